package data

import (
	"fmt"
)

type AssignmentStatus string

const (
	AssignedAssignmentStatus  AssignmentStatus = "Assigned"
	SubmittedAssignmentStatus AssignmentStatus = "Submitted"
	ExpiredAssignmentStatus   AssignmentStatus = "Expired"
)

// Validate validates the assignment status
func (status AssignmentStatus) Validate() error {
	switch status {
	case AssignedAssignmentStatus, SubmittedAssignmentStatus, ExpiredAssignmentStatus:
		return nil
	default:
		return fmt.Errorf("invalid assignment status: %s", status)
	}
}

// TransitionTo transitions the assignment status to the target state
func (status AssignmentStatus) TransitionTo(targetState AssignmentStatus) error {
	return AssignmentStateMachineWithInitialState(status).TransitionTo(targetState.State())
}

// AssignmentStateMachineWithInitialState returns a state machine for Assignments initialized with the given state
func AssignmentStateMachineWithInitialState(initialState AssignmentStatus) *StateMachine {
	transitions := []StateTransition{
		{From: AssignedAssignmentStatus.State(), To: SubmittedAssignmentStatus.State()}, // worker submits in time
		{From: AssignedAssignmentStatus.State(), To: ExpiredAssignmentStatus.State()},   // TTL elapsed, lock released
	}

	return NewStateMachine(initialState.State(), transitions)
}

// AssignmentStatuses returns a list of all possible assignment statuses
func AssignmentStatuses() []AssignmentStatus {
	return []AssignmentStatus{AssignedAssignmentStatus, SubmittedAssignmentStatus, ExpiredAssignmentStatus}
}

// SourceStatuses returns a list of states that the assignment status can transition from given the target state
func (status AssignmentStatus) SourceStatuses() []AssignmentStatus {
	stateMachine := AssignmentStateMachineWithInitialState(AssignedAssignmentStatus)
	fromStates := []AssignmentStatus{}
	for _, fromState := range AssignmentStatuses() {
		if stateMachine.Transitions[fromState.State()][status.State()] {
			fromStates = append(fromStates, fromState)
		}
	}
	return fromStates
}

func (status AssignmentStatus) State() State {
	return State(status)
}
