package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdtask/platform-backend/db/dbtest"
	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/utils"
)

func Test_AssignmentService_AssignTask(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()

	models := newTestModels(t, dbt)
	service, err := NewAssignmentService(models, nil, 0)
	require.NoError(t, err)

	task := data.CreateTaskFixture(t, ctx, dbt, &data.Task{Status: data.PublishedTaskStatus})

	assignment, err := service.AssignTask(ctx, task.ID, "worker-1")
	require.NoError(t, err)
	assert.Equal(t, task.ID, assignment.TaskID)
	assert.Equal(t, "worker-1", assignment.WorkerID)
	assert.Equal(t, data.AssignedAssignmentStatus, assignment.Status)
	assert.WithinDuration(t, time.Now().Add(DefaultAssignmentTTL), assignment.ExpiresAt, 5*time.Second)

	lockedTask, err := models.Tasks.Get(ctx, dbt, task.ID)
	require.NoError(t, err)
	assert.Equal(t, data.AssignedTaskStatus, lockedTask.Status)
	require.NotNil(t, lockedTask.AssignedTo)
	assert.Equal(t, "worker-1", *lockedTask.AssignedTo)

	// a second worker loses the race
	_, err = service.AssignTask(ctx, task.ID, "worker-2")
	assert.ErrorIs(t, err, ErrTaskNotAvailable)
}

func Test_AssignmentService_AssignTask_levelGate(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()

	models := newTestModels(t, dbt)
	service, err := NewAssignmentService(models, nil, 0)
	require.NoError(t, err)

	task := data.CreateTaskFixture(t, ctx, dbt, &data.Task{
		Status:        data.PublishedTaskStatus,
		RequiredLevel: utils.StringPtr(string(data.ExpertWorkerLevel)),
	})

	// an unknown worker defaults to Novice and is locked out
	_, err = service.AssignTask(ctx, task.ID, "novice-worker")
	assert.ErrorIs(t, err, ErrTaskLevelLocked)

	_, _, err = models.Workers.IncrementCounters(ctx, dbt, "expert-worker", true, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, models.Workers.UpdateDerived(ctx, dbt, "expert-worker", 0.95, data.ExpertWorkerLevel))
	assignment, err := service.AssignTask(ctx, task.ID, "expert-worker")
	require.NoError(t, err)
	assert.Equal(t, "expert-worker", assignment.WorkerID)
}

func Test_AssignmentService_ExpireStaleAssignments(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()

	models := newTestModels(t, dbt)
	service, err := NewAssignmentService(models, nil, 0)
	require.NoError(t, err)

	staleTask := data.CreateTaskFixture(t, ctx, dbt, &data.Task{
		Status:     data.AssignedTaskStatus,
		AssignedTo: utils.StringPtr("slow-worker"),
	})
	stale := data.CreateAssignmentFixture(t, ctx, dbt, &data.Assignment{
		TaskID:    staleTask.ID,
		WorkerID:  "slow-worker",
		ExpiresAt: time.Now().Add(-time.Minute),
	})

	freshTask := data.CreateTaskFixture(t, ctx, dbt, &data.Task{
		Status:     data.AssignedTaskStatus,
		AssignedTo: utils.StringPtr("active-worker"),
	})
	fresh := data.CreateAssignmentFixture(t, ctx, dbt, &data.Assignment{
		TaskID:   freshTask.ID,
		WorkerID: "active-worker",
	})

	expired, err := service.ExpireStaleAssignments(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	expiredAssignment, err := models.Assignments.Get(ctx, dbt, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, data.ExpiredAssignmentStatus, expiredAssignment.Status)

	// the task returns to the pool with its lock cleared
	releasedTask, err := models.Tasks.Get(ctx, dbt, staleTask.ID)
	require.NoError(t, err)
	assert.Equal(t, data.PublishedTaskStatus, releasedTask.Status)
	assert.Nil(t, releasedTask.AssignedTo)

	untouched, err := models.Assignments.Get(ctx, dbt, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, data.AssignedAssignmentStatus, untouched.Status)
}
