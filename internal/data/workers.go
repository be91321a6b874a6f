package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crowdtask/platform-backend/internal/db"
)

// WorkerLevel is the tier a worker has earned through accuracy and volume.
type WorkerLevel string

const (
	NoviceWorkerLevel       WorkerLevel = "Novice"
	IntermediateWorkerLevel WorkerLevel = "Intermediate"
	ExpertWorkerLevel       WorkerLevel = "Expert"
)

func (l WorkerLevel) Validate() error {
	switch l {
	case NoviceWorkerLevel, IntermediateWorkerLevel, ExpertWorkerLevel:
		return nil
	default:
		return fmt.Errorf("invalid worker level %q", l)
	}
}

var workerLevelRank = map[WorkerLevel]int{
	NoviceWorkerLevel:       0,
	IntermediateWorkerLevel: 1,
	ExpertWorkerLevel:       2,
}

// CanAccessTask reports whether a worker at this level may take a task gated
// at requiredLevel. Levels are hierarchical: Expert unlocks everything.
func (l WorkerLevel) CanAccessTask(requiredLevel WorkerLevel) bool {
	return workerLevelRank[l] >= workerLevelRank[requiredLevel]
}

// CalculateLevel derives a worker's level from lifetime accuracy and volume.
// Expert needs accuracy above 0.90 with more than 50 submissions; Intermediate
// needs accuracy above 0.80.
func CalculateLevel(accuracy float64, tasksSubmitted int) WorkerLevel {
	if accuracy > 0.90 && tasksSubmitted > 50 {
		return ExpertWorkerLevel
	}
	if accuracy > 0.80 {
		return IntermediateWorkerLevel
	}
	return NoviceWorkerLevel
}

type Worker struct {
	ID             string          `json:"id" db:"id"`
	TasksSubmitted int             `json:"tasks_submitted" db:"tasks_submitted"`
	TasksApproved  int             `json:"tasks_approved" db:"tasks_approved"`
	Accuracy       float64         `json:"accuracy" db:"accuracy"`
	Level          WorkerLevel     `json:"level" db:"level"`
	Earnings       decimal.Decimal `json:"earnings" db:"earnings"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

type WorkerModel struct {
	dbConnectionPool db.DBConnectionPool
}

const workerColumns = `id, tasks_submitted, tasks_approved, accuracy, level, earnings, created_at, updated_at`

// Get returns the worker row, or ErrRecordNotFound for workers that have
// never submitted anything.
func (m *WorkerModel) Get(ctx context.Context, sqlExec db.SQLExecuter, id string) (*Worker, error) {
	var worker Worker
	query := fmt.Sprintf(`SELECT %s FROM workers WHERE id = $1`, workerColumns)
	err := sqlExec.GetContext(ctx, &worker, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying worker %s: %w", id, err)
	}
	return &worker, nil
}

// GetLevel returns the worker's level, defaulting to Novice for workers
// without a profile row yet.
func (m *WorkerModel) GetLevel(ctx context.Context, sqlExec db.SQLExecuter, id string) (WorkerLevel, error) {
	worker, err := m.Get(ctx, sqlExec, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return NoviceWorkerLevel, nil
		}
		return "", err
	}
	return worker.Level, nil
}

// IncrementCounters atomically bumps the worker's lifetime counters, creating
// the profile row on first contact. The returned totals are the post-update
// values, read back in the same statement so two concurrent QC outcomes
// cannot observe the same count.
func (m *WorkerModel) IncrementCounters(ctx context.Context, sqlExec db.SQLExecuter, workerID string, approved bool, earningsDelta decimal.Decimal) (tasksSubmitted int, tasksApproved int, err error) {
	approvedDelta := 0
	if approved {
		approvedDelta = 1
	}
	const query = `
		INSERT INTO workers
			(id, tasks_submitted, tasks_approved, earnings)
		VALUES
			($1, 1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			tasks_submitted = workers.tasks_submitted + 1,
			tasks_approved = workers.tasks_approved + EXCLUDED.tasks_approved,
			earnings = workers.earnings + EXCLUDED.earnings,
			updated_at = NOW()
		RETURNING tasks_submitted, tasks_approved
	`
	row := sqlExec.QueryRowxContext(ctx, query, workerID, approvedDelta, earningsDelta)
	if err = row.Scan(&tasksSubmitted, &tasksApproved); err != nil {
		return 0, 0, fmt.Errorf("incrementing counters for worker %s: %w", workerID, err)
	}
	return tasksSubmitted, tasksApproved, nil
}

// UpdateDerived persists the recomputed accuracy and level.
func (m *WorkerModel) UpdateDerived(ctx context.Context, sqlExec db.SQLExecuter, workerID string, accuracy float64, level WorkerLevel) error {
	const query = `
		UPDATE
			workers
		SET
			accuracy = $1,
			level = $2,
			updated_at = NOW()
		WHERE
			id = $3
		`
	_, err := sqlExec.ExecContext(ctx, query, accuracy, level, workerID)
	if err != nil {
		return fmt.Errorf("updating derived stats for worker %s: %w", workerID, err)
	}
	return nil
}

// GetLeaderboard returns the top earners, highest first.
func (m *WorkerModel) GetLeaderboard(ctx context.Context, sqlExec db.SQLExecuter, limit int) ([]*Worker, error) {
	workers := []*Worker{}
	query := fmt.Sprintf(`
		SELECT %s FROM workers
		ORDER BY earnings DESC, tasks_approved DESC
		LIMIT $1
	`, workerColumns)
	err := sqlExec.SelectContext(ctx, &workers, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	return workers, nil
}
