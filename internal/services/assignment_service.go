package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/db"
	"github.com/crowdtask/platform-backend/internal/logger"
	"github.com/crowdtask/platform-backend/internal/monitor"
)

const DefaultAssignmentTTL = 10 * time.Minute

var (
	// ErrTaskNotAvailable means another worker locked the task first.
	ErrTaskNotAvailable = errors.New("task is not available for assignment")
	// ErrTaskLevelLocked means the worker's level does not meet the task's requirement.
	ErrTaskLevelLocked = errors.New("task requires a higher worker level")
)

// AssignmentService locks tasks to workers and reclaims stale locks.
type AssignmentService struct {
	models         *data.Models
	monitorService monitor.MonitorServiceInterface
	assignmentTTL  time.Duration
}

func NewAssignmentService(models *data.Models, monitorService monitor.MonitorServiceInterface, assignmentTTL time.Duration) (*AssignmentService, error) {
	if models == nil {
		return nil, fmt.Errorf("models cannot be nil")
	}
	if assignmentTTL <= 0 {
		assignmentTTL = DefaultAssignmentTTL
	}
	return &AssignmentService{
		models:         models,
		monitorService: monitorService,
		assignmentTTL:  assignmentTTL,
	}, nil
}

// AssignTask locks a Published task to the worker and opens an assignment
// with a TTL. Exactly one of N racing workers wins the conditional task
// update; the rest get ErrTaskNotAvailable.
func (s *AssignmentService) AssignTask(ctx context.Context, taskID, workerID string) (*data.Assignment, error) {
	dbConnectionPool := s.models.DBConnectionPool

	task, err := s.models.Tasks.Get(ctx, dbConnectionPool, taskID)
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", taskID, err)
	}

	if task.RequiredLevel != nil {
		workerLevel, levelErr := s.models.Workers.GetLevel(ctx, dbConnectionPool, workerID)
		if levelErr != nil {
			return nil, fmt.Errorf("loading level of worker %s: %w", workerID, levelErr)
		}
		if !workerLevel.CanAccessTask(data.WorkerLevel(*task.RequiredLevel)) {
			return nil, ErrTaskLevelLocked
		}
	}

	assignment, err := db.RunInTransactionWithResult(ctx, dbConnectionPool, nil, func(dbTx db.DBTransaction) (*data.Assignment, error) {
		if lockErr := s.models.Tasks.Lock(ctx, dbTx, taskID, workerID); lockErr != nil {
			if errors.Is(lockErr, data.ErrMismatchNumRowsAffected) {
				return nil, ErrTaskNotAvailable
			}
			return nil, lockErr
		}

		newAssignment := &data.Assignment{
			ID:        uuid.NewString(),
			TaskID:    taskID,
			WorkerID:  workerID,
			Status:    data.AssignedAssignmentStatus,
			ExpiresAt: time.Now().Add(s.assignmentTTL),
		}
		if insertErr := s.models.Assignments.Insert(ctx, dbTx, newAssignment); insertErr != nil {
			return nil, insertErr
		}
		return newAssignment, nil
	})
	if err != nil {
		if errors.Is(err, ErrTaskNotAvailable) {
			return nil, ErrTaskNotAvailable
		}
		return nil, fmt.Errorf("assigning task %s to worker %s: %w", taskID, workerID, err)
	}

	logger.Ctx(ctx).Infof("Assigned task %s to worker %s until %s", taskID, workerID, assignment.ExpiresAt.Format(time.RFC3339))
	return assignment, nil
}

// ExpireStaleAssignments reclaims assignments whose TTL has lapsed, returning
// each task to the Published pool. Every item is its own transaction so one
// bad row cannot wedge the sweep.
func (s *AssignmentService) ExpireStaleAssignments(ctx context.Context, limit int) (int, error) {
	dbConnectionPool := s.models.DBConnectionPool

	stale, err := s.models.Assignments.GetStaleAssigned(ctx, dbConnectionPool, time.Now(), limit)
	if err != nil {
		return 0, fmt.Errorf("querying stale assignments: %w", err)
	}

	expired := 0
	for _, assignment := range stale {
		err = db.RunInTransaction(ctx, dbConnectionPool, nil, func(dbTx db.DBTransaction) error {
			if expireErr := s.models.Assignments.Expire(ctx, dbTx, assignment.ID); expireErr != nil {
				return expireErr
			}
			return s.models.Tasks.Release(ctx, dbTx, assignment.TaskID)
		})
		if err != nil {
			// another actor won the race (submission arrived or a parallel sweep); skip
			logger.Ctx(ctx).Warnf("expiring assignment %s: %v", assignment.ID, err)
			continue
		}
		expired++
		if s.monitorService != nil {
			if monitorErr := s.monitorService.MonitorCounters(monitor.AssignmentsExpiredCounterTag, nil); monitorErr != nil {
				logger.Ctx(ctx).Errorf("monitoring expired assignment: %v", monitorErr)
			}
		}
	}

	return expired, nil
}
