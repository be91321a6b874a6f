package data

import (
	"fmt"
)

type TaskStatus string

const (
	CreatedTaskStatus   TaskStatus = "Created"
	ScheduledTaskStatus TaskStatus = "Scheduled"
	PublishedTaskStatus TaskStatus = "Published"
	AssignedTaskStatus  TaskStatus = "Assigned"
	SubmittedTaskStatus TaskStatus = "Submitted"
	ReviewTaskStatus    TaskStatus = "Review"
	CompletedTaskStatus TaskStatus = "Completed"
	ExpiredTaskStatus   TaskStatus = "Expired"
)

// Validate validates the task status
func (status TaskStatus) Validate() error {
	switch status {
	case CreatedTaskStatus, ScheduledTaskStatus, PublishedTaskStatus, AssignedTaskStatus,
		SubmittedTaskStatus, ReviewTaskStatus, CompletedTaskStatus, ExpiredTaskStatus:
		return nil
	default:
		return fmt.Errorf("invalid task status: %s", status)
	}
}

// TransitionTo transitions the task status to the target state
func (status TaskStatus) TransitionTo(targetState TaskStatus) error {
	return TaskStateMachineWithInitialState(status).TransitionTo(targetState.State())
}

// TaskStateMachineWithInitialState returns a state machine for Tasks initialized with the given state
func TaskStateMachineWithInitialState(initialState TaskStatus) *StateMachine {
	transitions := []StateTransition{
		{From: CreatedTaskStatus.State(), To: ScheduledTaskStatus.State()},   // batch created with a future publishAt
		{From: CreatedTaskStatus.State(), To: PublishedTaskStatus.State()},   // requester publishes the batch
		{From: ScheduledTaskStatus.State(), To: PublishedTaskStatus.State()}, // scheduler publishes at publishAt
		{From: PublishedTaskStatus.State(), To: AssignedTaskStatus.State()},  // worker locks the task
		{From: AssignedTaskStatus.State(), To: SubmittedTaskStatus.State()},  // worker submits
		{From: AssignedTaskStatus.State(), To: ReviewTaskStatus.State()},     // submission enters QC
		{From: AssignedTaskStatus.State(), To: PublishedTaskStatus.State()},  // assignment expired, task re-released
		{From: SubmittedTaskStatus.State(), To: ReviewTaskStatus.State()},    // submission enters QC
		{From: ReviewTaskStatus.State(), To: CompletedTaskStatus.State()},    // QC reached a terminal decision
	}
	// every state can expire
	for _, from := range TaskStatuses() {
		if from != ExpiredTaskStatus {
			transitions = append(transitions, StateTransition{From: from.State(), To: ExpiredTaskStatus.State()})
		}
	}

	return NewStateMachine(initialState.State(), transitions)
}

// TaskStatuses returns a list of all possible task statuses
func TaskStatuses() []TaskStatus {
	return []TaskStatus{CreatedTaskStatus, ScheduledTaskStatus, PublishedTaskStatus, AssignedTaskStatus, SubmittedTaskStatus, ReviewTaskStatus, CompletedTaskStatus, ExpiredTaskStatus}
}

// SourceStatuses returns a list of states that the task status can transition from given the target state
func (status TaskStatus) SourceStatuses() []TaskStatus {
	stateMachine := TaskStateMachineWithInitialState(CreatedTaskStatus)
	fromStates := []TaskStatus{}
	for _, fromState := range TaskStatuses() {
		if stateMachine.Transitions[fromState.State()][status.State()] {
			fromStates = append(fromStates, fromState)
		}
	}
	return fromStates
}

func (status TaskStatus) State() State {
	return State(status)
}
