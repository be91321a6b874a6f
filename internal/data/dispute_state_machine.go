package data

import (
	"fmt"
)

type DisputeStatus string

const (
	OpenDisputeStatus         DisputeStatus = "Open"
	ResolvedDisputeStatus     DisputeStatus = "Resolved"
	AutoApprovedDisputeStatus DisputeStatus = "AutoApproved"
)

// DisputeDecision is the admin (or auto-resolver) outcome recorded on resolution.
type DisputeDecision string

const (
	ApproveDisputeDecision     DisputeDecision = "APPROVE"
	PartialDisputeDecision     DisputeDecision = "PARTIAL"
	RejectDisputeDecision      DisputeDecision = "REJECT"
	AutoApproveDisputeDecision DisputeDecision = "AUTO_APPROVE"
)

// Validate validates the dispute status
func (status DisputeStatus) Validate() error {
	switch status {
	case OpenDisputeStatus, ResolvedDisputeStatus, AutoApprovedDisputeStatus:
		return nil
	default:
		return fmt.Errorf("invalid dispute status: %s", status)
	}
}

// Validate validates the dispute decision
func (decision DisputeDecision) Validate() error {
	switch decision {
	case ApproveDisputeDecision, PartialDisputeDecision, RejectDisputeDecision, AutoApproveDisputeDecision:
		return nil
	default:
		return fmt.Errorf("invalid dispute decision: %s", decision)
	}
}

// PayoutPercent returns the payout fraction the decision grants.
func (decision DisputeDecision) PayoutPercent() int {
	switch decision {
	case ApproveDisputeDecision, AutoApproveDisputeDecision:
		return 100
	case PartialDisputeDecision:
		return 50
	default:
		return 0
	}
}

// TransitionTo transitions the dispute status to the target state
func (status DisputeStatus) TransitionTo(targetState DisputeStatus) error {
	return DisputeStateMachineWithInitialState(status).TransitionTo(targetState.State())
}

// DisputeStateMachineWithInitialState returns a state machine for Disputes initialized with the given state
func DisputeStateMachineWithInitialState(initialState DisputeStatus) *StateMachine {
	transitions := []StateTransition{
		{From: OpenDisputeStatus.State(), To: ResolvedDisputeStatus.State()},     // admin resolves
		{From: OpenDisputeStatus.State(), To: AutoApprovedDisputeStatus.State()}, // resolution deadline elapsed
	}

	return NewStateMachine(initialState.State(), transitions)
}

// DisputeStatuses returns a list of all possible dispute statuses
func DisputeStatuses() []DisputeStatus {
	return []DisputeStatus{OpenDisputeStatus, ResolvedDisputeStatus, AutoApprovedDisputeStatus}
}

// SourceStatuses returns a list of states that the dispute status can transition from given the target state
func (status DisputeStatus) SourceStatuses() []DisputeStatus {
	stateMachine := DisputeStateMachineWithInitialState(OpenDisputeStatus)
	fromStates := []DisputeStatus{}
	for _, fromState := range DisputeStatuses() {
		if stateMachine.Transitions[fromState.State()][status.State()] {
			fromStates = append(fromStates, fromState)
		}
	}
	return fromStates
}

func (status DisputeStatus) State() State {
	return State(status)
}
