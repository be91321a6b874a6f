package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdtask/platform-backend/db/dbtest"
	"github.com/crowdtask/platform-backend/internal/data"
)

func Test_WorkerStatsService_RecordOutcome(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()

	models := newTestModels(t, dbt)
	service, err := NewWorkerStatsService(models)
	require.NoError(t, err)

	task := data.CreateTaskFixture(t, ctx, dbt, &data.Task{
		Payload: data.TaskPayload{"question": "q", "reward": "1.00"},
	})

	// first approval creates the profile row
	require.NoError(t, service.RecordOutcome(ctx, "worker-1", task.ID, true))

	worker, err := models.Workers.Get(ctx, dbt, "worker-1")
	require.NoError(t, err)
	assert.Equal(t, 1, worker.TasksSubmitted)
	assert.Equal(t, 1, worker.TasksApproved)
	assert.Equal(t, 1.0, worker.Accuracy)
	// perfect accuracy clears the Intermediate bar, not enough volume for Expert
	assert.Equal(t, data.IntermediateWorkerLevel, worker.Level)
	assert.Equal(t, "0.80", worker.Earnings.StringFixed(2))

	// a rejection moves submitted but not approved, and earns nothing
	require.NoError(t, service.RecordOutcome(ctx, "worker-1", task.ID, false))

	worker, err = models.Workers.Get(ctx, dbt, "worker-1")
	require.NoError(t, err)
	assert.Equal(t, 2, worker.TasksSubmitted)
	assert.Equal(t, 1, worker.TasksApproved)
	assert.Equal(t, 0.5, worker.Accuracy)
	assert.Equal(t, "0.80", worker.Earnings.StringFixed(2))
}

func Test_WorkerStatsService_RecordOutcome_defaultReward(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()

	models := newTestModels(t, dbt)
	service, err := NewWorkerStatsService(models)
	require.NoError(t, err)

	task := data.CreateTaskFixture(t, ctx, dbt, &data.Task{
		Payload: data.TaskPayload{"question": "no reward key"},
	})

	require.NoError(t, service.RecordOutcome(ctx, "worker-2", task.ID, true))

	worker, err := models.Workers.Get(ctx, dbt, "worker-2")
	require.NoError(t, err)
	// 80% of the 0.50 default reward
	assert.Equal(t, "0.40", worker.Earnings.StringFixed(2))
}
