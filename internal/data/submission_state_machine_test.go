package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_SubmissionStatus_TransitionTo(t *testing.T) {
	testCases := []struct {
		from    SubmissionStatus
		to      SubmissionStatus
		wantErr bool
	}{
		{PendingSubmissionStatus, PendingConsensusSubmissionStatus, false},
		{PendingSubmissionStatus, ApprovedSubmissionStatus, false},
		{PendingSubmissionStatus, RejectedSubmissionStatus, false},
		{PendingConsensusSubmissionStatus, ApprovedSubmissionStatus, false},
		{PendingConsensusSubmissionStatus, RejectedSubmissionStatus, false},
		{RejectedSubmissionStatus, DisputedSubmissionStatus, false},
		{DisputedSubmissionStatus, ApprovedSubmissionStatus, false},
		{DisputedSubmissionStatus, RejectedFinalSubmissionStatus, false},
		{ApprovedSubmissionStatus, RejectedSubmissionStatus, true},
		{RejectedFinalSubmissionStatus, ApprovedSubmissionStatus, true},
		{ApprovedSubmissionStatus, DisputedSubmissionStatus, true},
	}
	for _, tc := range testCases {
		err := tc.from.TransitionTo(tc.to)
		if tc.wantErr {
			assert.Errorf(t, err, "expected %s -> %s to be rejected", tc.from, tc.to)
		} else {
			assert.NoErrorf(t, err, "expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}
}

func Test_SubmissionStatus_IsTerminal(t *testing.T) {
	assert.False(t, PendingSubmissionStatus.IsTerminal())
	assert.False(t, PendingConsensusSubmissionStatus.IsTerminal())
	assert.True(t, ApprovedSubmissionStatus.IsTerminal())
	assert.True(t, RejectedSubmissionStatus.IsTerminal())
	assert.True(t, DisputedSubmissionStatus.IsTerminal())
	assert.True(t, RejectedFinalSubmissionStatus.IsTerminal())
}

func Test_DisputeDecision_PayoutPercent(t *testing.T) {
	assert.Equal(t, 100, ApproveDisputeDecision.PayoutPercent())
	assert.Equal(t, 50, PartialDisputeDecision.PayoutPercent())
	assert.Equal(t, 0, RejectDisputeDecision.PayoutPercent())
	assert.Equal(t, 100, AutoApproveDisputeDecision.PayoutPercent())
}

func Test_DisputeDecision_Validate(t *testing.T) {
	for _, d := range []DisputeDecision{ApproveDisputeDecision, PartialDisputeDecision, RejectDisputeDecision, AutoApproveDisputeDecision} {
		assert.NoError(t, d.Validate())
	}
	assert.Error(t, DisputeDecision("MAYBE").Validate())
}
