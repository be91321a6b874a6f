package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdtask/platform-backend/db/dbtest"
)

func Test_SubmissionModel_ApplyQCDecision(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()
	m := &SubmissionModel{}

	task := CreateTaskFixture(t, ctx, dbt, &Task{Status: ReviewTaskStatus})
	assignment := CreateAssignmentFixture(t, ctx, dbt, &Assignment{TaskID: task.ID})
	submission := CreateSubmissionFixture(t, ctx, dbt, &Submission{
		TaskID:       task.ID,
		WorkerID:     assignment.WorkerID,
		AssignmentID: assignment.ID,
		Answer:       "cat",
	})

	applied, err := m.ApplyQCDecision(ctx, dbt, submission.ID, ApprovedSubmissionStatus, 1.0, "Gold Standard Validation")
	require.NoError(t, err)
	assert.True(t, applied)

	// a replayed decision must not rewrite a terminal submission
	applied, err = m.ApplyQCDecision(ctx, dbt, submission.ID, RejectedSubmissionStatus, 0.0, "Gold Standard Validation")
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := m.Get(ctx, dbt, submission.ID)
	require.NoError(t, err)
	assert.Equal(t, ApprovedSubmissionStatus, got.Status)
	require.NotNil(t, got.AIConfidence)
	assert.InDelta(t, 1.0, *got.AIConfidence, 0.0001)
	require.NotNil(t, got.QCReason)
	assert.Equal(t, "Gold Standard Validation", *got.QCReason)
}

func Test_SubmissionModel_MarkPendingConsensus_keepsTerminal(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()
	m := &SubmissionModel{}

	task := CreateTaskFixture(t, ctx, dbt, &Task{Status: ReviewTaskStatus})
	assignment := CreateAssignmentFixture(t, ctx, dbt, &Assignment{TaskID: task.ID})
	submission := CreateSubmissionFixture(t, ctx, dbt, &Submission{
		TaskID:       task.ID,
		WorkerID:     assignment.WorkerID,
		AssignmentID: assignment.ID,
		Answer:       "cat",
	})

	_, err := m.ApplyQCDecision(ctx, dbt, submission.ID, ApprovedSubmissionStatus, 0.9, "Majority Consensus")
	require.NoError(t, err)

	require.NoError(t, m.MarkPendingConsensus(ctx, dbt, submission.ID))

	got, err := m.Get(ctx, dbt, submission.ID)
	require.NoError(t, err)
	assert.Equal(t, ApprovedSubmissionStatus, got.Status)
}

func Test_SubmissionModel_MarkPaid_onlyOnce(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()
	m := &SubmissionModel{}

	task := CreateTaskFixture(t, ctx, dbt, &Task{Status: ReviewTaskStatus})
	assignment := CreateAssignmentFixture(t, ctx, dbt, &Assignment{TaskID: task.ID})
	submission := CreateSubmissionFixture(t, ctx, dbt, &Submission{
		TaskID:       task.ID,
		WorkerID:     assignment.WorkerID,
		AssignmentID: assignment.ID,
		Answer:       "cat",
	})

	require.NoError(t, m.MarkPaid(ctx, dbt, submission.ID))

	err := m.MarkPaid(ctx, dbt, submission.ID)
	assert.ErrorIs(t, err, ErrRecordAlreadyExists)
}
