package data

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdtask/platform-backend/db/dbtest"
)

func Test_CalculateLevel(t *testing.T) {
	testCases := []struct {
		accuracy  float64
		submitted int
		want      WorkerLevel
	}{
		{0.95, 100, ExpertWorkerLevel},
		{0.91, 51, ExpertWorkerLevel},
		{0.95, 50, IntermediateWorkerLevel}, // high accuracy but not enough volume
		{0.90, 100, IntermediateWorkerLevel},
		{0.85, 10, IntermediateWorkerLevel},
		{0.80, 100, NoviceWorkerLevel},
		{0.50, 5, NoviceWorkerLevel},
		{0, 0, NoviceWorkerLevel},
	}
	for _, tc := range testCases {
		got := CalculateLevel(tc.accuracy, tc.submitted)
		assert.Equalf(t, tc.want, got, "accuracy=%v submitted=%d", tc.accuracy, tc.submitted)
	}
}

func Test_WorkerLevel_CanAccessTask(t *testing.T) {
	assert.True(t, NoviceWorkerLevel.CanAccessTask(NoviceWorkerLevel))
	assert.False(t, NoviceWorkerLevel.CanAccessTask(IntermediateWorkerLevel))
	assert.False(t, NoviceWorkerLevel.CanAccessTask(ExpertWorkerLevel))
	assert.True(t, IntermediateWorkerLevel.CanAccessTask(NoviceWorkerLevel))
	assert.True(t, IntermediateWorkerLevel.CanAccessTask(IntermediateWorkerLevel))
	assert.False(t, IntermediateWorkerLevel.CanAccessTask(ExpertWorkerLevel))
	assert.True(t, ExpertWorkerLevel.CanAccessTask(NoviceWorkerLevel))
	assert.True(t, ExpertWorkerLevel.CanAccessTask(ExpertWorkerLevel))
}

func Test_WorkerModel_IncrementCounters(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()
	m := &WorkerModel{}

	submitted, approved, err := m.IncrementCounters(ctx, dbt, "worker-1", true, decimal.NewFromFloat(0.40))
	require.NoError(t, err)
	assert.Equal(t, 1, submitted)
	assert.Equal(t, 1, approved)

	submitted, approved, err = m.IncrementCounters(ctx, dbt, "worker-1", false, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, 2, submitted)
	assert.Equal(t, 1, approved)

	worker, err := m.Get(ctx, dbt, "worker-1")
	require.NoError(t, err)
	assert.True(t, worker.Earnings.Equal(decimal.NewFromFloat(0.40)))
	assert.Equal(t, NoviceWorkerLevel, worker.Level)
	assert.False(t, worker.CreatedAt.IsZero())
	assert.False(t, worker.UpdatedAt.IsZero())
}

func Test_WorkerModel_UpdateDerived(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()
	m := &WorkerModel{}

	_, _, err := m.IncrementCounters(ctx, dbt, "worker-2", true, decimal.Zero)
	require.NoError(t, err)

	err = m.UpdateDerived(ctx, dbt, "worker-2", 0.85, IntermediateWorkerLevel)
	require.NoError(t, err)

	worker, err := m.Get(ctx, dbt, "worker-2")
	require.NoError(t, err)
	assert.InDelta(t, 0.85, worker.Accuracy, 0.0001)
	assert.Equal(t, IntermediateWorkerLevel, worker.Level)
}

func Test_WorkerModel_GetLevel_defaultsToNovice(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	level, err := (&WorkerModel{}).GetLevel(context.Background(), dbt, "never-seen")
	require.NoError(t, err)
	assert.Equal(t, NoviceWorkerLevel, level)
}
