package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/crowdtask/platform-backend/internal/db"
	"github.com/crowdtask/platform-backend/internal/logger"
)

type Assignment struct {
	ID        string           `json:"id" db:"id"`
	TaskID    string           `json:"task_id" db:"task_id"`
	WorkerID  string           `json:"worker_id" db:"worker_id"`
	Status    AssignmentStatus `json:"status" db:"status"`
	ExpiresAt time.Time        `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	ExpiredAt *time.Time       `json:"expired_at,omitempty" db:"expired_at"`
}

type AssignmentModel struct {
	dbConnectionPool db.DBConnectionPool
}

const assignmentColumns = `id, task_id, worker_id, status, expires_at, created_at, expired_at`

func (m *AssignmentModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, assignment *Assignment) error {
	const q = `
		INSERT INTO assignments
			(id, task_id, worker_id, status, expires_at)
		VALUES
			($1, $2, $3, $4, $5)
	`
	_, err := sqlExec.ExecContext(ctx, q,
		assignment.ID,
		assignment.TaskID,
		assignment.WorkerID,
		assignment.Status,
		assignment.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("inserting assignment %s: %w", assignment.ID, err)
	}
	return nil
}

func (m *AssignmentModel) Get(ctx context.Context, sqlExec db.SQLExecuter, id string) (*Assignment, error) {
	var assignment Assignment
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE id = $1`, assignmentColumns)
	err := sqlExec.GetContext(ctx, &assignment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying assignment %s: %w", id, err)
	}
	return &assignment, nil
}

// UpdateStatus updates the status of the given assignment, only from a legal source status.
func (m *AssignmentModel) UpdateStatus(ctx context.Context, sqlExec db.SQLExecuter, assignmentID string, targetStatus AssignmentStatus) error {
	sourceStatuses := targetStatus.SourceStatuses()

	query := `
		UPDATE
			assignments
		SET
			status = $1
		WHERE
			id = $2 AND status = ANY($3)
		`
	result, err := sqlExec.ExecContext(ctx, query, targetStatus, assignmentID, pq.Array(sourceStatuses))
	if err != nil {
		return fmt.Errorf("updating assignment status: %w", err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}

	if numRowsAffected == 0 {
		return fmt.Errorf("assignment %s status was not updated from %s to %s: %w", assignmentID, sourceStatuses, targetStatus, ErrMismatchNumRowsAffected)
	} else if numRowsAffected == 1 {
		logger.Ctx(ctx).Infof("Set assignment %s status from %s to %s", assignmentID, sourceStatuses, targetStatus)
	} else {
		return fmt.Errorf("unexpected number of rows affected: %d when updating assignment %s status from %s to %s",
			numRowsAffected,
			assignmentID,
			sourceStatuses,
			targetStatus)
	}

	return nil
}

// Expire transitions an Assigned assignment to Expired, stamping expired_at.
func (m *AssignmentModel) Expire(ctx context.Context, sqlExec db.SQLExecuter, assignmentID string) error {
	const query = `
		UPDATE
			assignments
		SET
			status = $1,
			expired_at = NOW()
		WHERE
			id = $2 AND status = $3
		`
	result, err := sqlExec.ExecContext(ctx, query, ExpiredAssignmentStatus, assignmentID, AssignedAssignmentStatus)
	if err != nil {
		return fmt.Errorf("expiring assignment %s: %w", assignmentID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected != 1 {
		return fmt.Errorf("assignment %s was not expired: %w", assignmentID, ErrMismatchNumRowsAffected)
	}
	return nil
}

// GetStaleAssigned returns Assigned assignments whose TTL lapsed before the
// cutoff, oldest first, bounded by limit.
func (m *AssignmentModel) GetStaleAssigned(ctx context.Context, sqlExec db.SQLExecuter, cutoff time.Time, limit int) ([]*Assignment, error) {
	assignments := []*Assignment{}
	query := fmt.Sprintf(`
		SELECT %s FROM assignments
		WHERE status = $1 AND expires_at < $2
		ORDER BY expires_at ASC
		LIMIT $3
	`, assignmentColumns)
	err := sqlExec.SelectContext(ctx, &assignments, query, AssignedAssignmentStatus, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("querying stale assignments: %w", err)
	}
	return assignments, nil
}
