package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/logger"
)

// workerEarningsRate is the share of the task reward credited to the worker's
// lifetime earnings counter (mirrors the 20% platform fee).
var workerEarningsRate = decimal.NewFromFloat(0.8)

// WorkerStatsService recomputes worker gamification stats on submission
// outcomes. Race-safety comes entirely from the atomic counter increment; the
// derived accuracy and level writes may be overwritten by a concurrent event
// with fresher counters.
type WorkerStatsService struct {
	models *data.Models
}

func NewWorkerStatsService(models *data.Models) (*WorkerStatsService, error) {
	if models == nil {
		return nil, fmt.Errorf("models cannot be nil")
	}
	return &WorkerStatsService{models: models}, nil
}

// RecordOutcome bumps the worker's lifetime counters for an Approved or
// Rejected submission and recomputes accuracy and level from the post-update
// values.
func (s *WorkerStatsService) RecordOutcome(ctx context.Context, workerID, taskID string, approved bool) error {
	dbConnectionPool := s.models.DBConnectionPool

	earningsDelta := decimal.Zero
	if approved {
		reward := DefaultTaskReward
		task, err := s.models.Tasks.Get(ctx, dbConnectionPool, taskID)
		if err != nil {
			// earnings are best-effort; the counters still must move
			logger.Ctx(ctx).Warnf("loading task %s for earnings: %v", taskID, err)
		} else if payloadReward, ok := task.Payload.Reward(); ok {
			reward = payloadReward
		}
		earningsDelta = reward.Mul(workerEarningsRate).RoundDown(2)
	}

	tasksSubmitted, tasksApproved, err := s.models.Workers.IncrementCounters(ctx, dbConnectionPool, workerID, approved, earningsDelta)
	if err != nil {
		return fmt.Errorf("incrementing counters for worker %s: %w", workerID, err)
	}

	accuracy := float64(tasksApproved) / float64(max(tasksSubmitted, 1))
	level := data.CalculateLevel(accuracy, tasksSubmitted)

	if err = s.models.Workers.UpdateDerived(ctx, dbConnectionPool, workerID, accuracy, level); err != nil {
		return fmt.Errorf("updating derived stats for worker %s: %w", workerID, err)
	}

	logger.Ctx(ctx).Infof("Updated stats for worker %s: %d/%d approved, accuracy %.3f, level %s", workerID, tasksApproved, tasksSubmitted, accuracy, level)
	return nil
}
