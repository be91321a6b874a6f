package data

import (
	"fmt"
)

type SubmissionStatus string

const (
	PendingSubmissionStatus          SubmissionStatus = "Pending"
	PendingConsensusSubmissionStatus SubmissionStatus = "PendingConsensus"
	ApprovedSubmissionStatus         SubmissionStatus = "Approved"
	RejectedSubmissionStatus         SubmissionStatus = "Rejected"
	DisputedSubmissionStatus         SubmissionStatus = "Disputed"
	RejectedFinalSubmissionStatus    SubmissionStatus = "RejectedFinal"
)

// Validate validates the submission status
func (status SubmissionStatus) Validate() error {
	switch status {
	case PendingSubmissionStatus, PendingConsensusSubmissionStatus, ApprovedSubmissionStatus,
		RejectedSubmissionStatus, DisputedSubmissionStatus, RejectedFinalSubmissionStatus:
		return nil
	default:
		return fmt.Errorf("invalid submission status: %s", status)
	}
}

// TransitionTo transitions the submission status to the target state
func (status SubmissionStatus) TransitionTo(targetState SubmissionStatus) error {
	return SubmissionStateMachineWithInitialState(status).TransitionTo(targetState.State())
}

// SubmissionStateMachineWithInitialState returns a state machine for Submissions initialized with the given state
func SubmissionStateMachineWithInitialState(initialState SubmissionStatus) *StateMachine {
	transitions := []StateTransition{
		{From: PendingSubmissionStatus.State(), To: PendingConsensusSubmissionStatus.State()},  // adjudicated individually, waiting for peers
		{From: PendingSubmissionStatus.State(), To: ApprovedSubmissionStatus.State()},          // fraud-free gold/AI approval
		{From: PendingSubmissionStatus.State(), To: RejectedSubmissionStatus.State()},          // fraud, gold mismatch, or AI rejection
		{From: PendingConsensusSubmissionStatus.State(), To: ApprovedSubmissionStatus.State()}, // consensus match
		{From: PendingConsensusSubmissionStatus.State(), To: RejectedSubmissionStatus.State()}, // consensus mismatch or none
		{From: RejectedSubmissionStatus.State(), To: DisputedSubmissionStatus.State()},         // worker escalates
		{From: DisputedSubmissionStatus.State(), To: ApprovedSubmissionStatus.State()},         // dispute resolved in favor
		{From: DisputedSubmissionStatus.State(), To: RejectedFinalSubmissionStatus.State()},    // dispute resolved against
	}

	return NewStateMachine(initialState.State(), transitions)
}

// SubmissionStatuses returns a list of all possible submission statuses
func SubmissionStatuses() []SubmissionStatus {
	return []SubmissionStatus{PendingSubmissionStatus, PendingConsensusSubmissionStatus, ApprovedSubmissionStatus, RejectedSubmissionStatus, DisputedSubmissionStatus, RejectedFinalSubmissionStatus}
}

// SourceStatuses returns a list of states that the submission status can transition from given the target state
func (status SubmissionStatus) SourceStatuses() []SubmissionStatus {
	stateMachine := SubmissionStateMachineWithInitialState(PendingSubmissionStatus)
	fromStates := []SubmissionStatus{}
	for _, fromState := range SubmissionStatuses() {
		if stateMachine.Transitions[fromState.State()][status.State()] {
			fromStates = append(fromStates, fromState)
		}
	}
	return fromStates
}

// IsTerminal reports whether the status is terminal for QC purposes.
func (status SubmissionStatus) IsTerminal() bool {
	switch status {
	case ApprovedSubmissionStatus, RejectedSubmissionStatus, DisputedSubmissionStatus, RejectedFinalSubmissionStatus:
		return true
	default:
		return false
	}
}

func (status SubmissionStatus) State() State {
	return State(status)
}
