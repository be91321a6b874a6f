package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/crowdtask/platform-backend/internal/db"
	"github.com/crowdtask/platform-backend/internal/logger"
)

type Dispute struct {
	ID            string           `json:"id" db:"id"`
	SubmissionID  string           `json:"submission_id" db:"submission_id"`
	WorkerID      string           `json:"worker_id" db:"worker_id"`
	Reason        string           `json:"reason" db:"reason"`
	Status        DisputeStatus    `json:"status" db:"status"`
	Decision      *DisputeDecision `json:"decision,omitempty" db:"decision"`
	PayoutPercent *int             `json:"payout_percent,omitempty" db:"payout_percent"`
	AdminNotes    *string          `json:"admin_notes,omitempty" db:"admin_notes"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	ResolvedAt    *time.Time       `json:"resolved_at,omitempty" db:"resolved_at"`
}

type DisputeModel struct {
	dbConnectionPool db.DBConnectionPool
}

const disputeColumns = `id, submission_id, worker_id, reason, status, decision, payout_percent, admin_notes, created_at, resolved_at`

func (m *DisputeModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, dispute *Dispute) error {
	const q = `
		INSERT INTO disputes
			(id, submission_id, worker_id, reason, status)
		VALUES
			($1, $2, $3, $4, $5)
	`
	_, err := sqlExec.ExecContext(ctx, q,
		dispute.ID,
		dispute.SubmissionID,
		dispute.WorkerID,
		dispute.Reason,
		dispute.Status,
	)
	if err != nil {
		return fmt.Errorf("inserting dispute %s: %w", dispute.ID, err)
	}
	return nil
}

func (m *DisputeModel) Get(ctx context.Context, sqlExec db.SQLExecuter, id string) (*Dispute, error) {
	var dispute Dispute
	query := fmt.Sprintf(`SELECT %s FROM disputes WHERE id = $1`, disputeColumns)
	err := sqlExec.GetContext(ctx, &dispute, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying dispute %s: %w", id, err)
	}
	return &dispute, nil
}

// GetByWorker returns the worker's disputes, newest first.
func (m *DisputeModel) GetByWorker(ctx context.Context, sqlExec db.SQLExecuter, workerID string) ([]*Dispute, error) {
	disputes := []*Dispute{}
	query := fmt.Sprintf(`SELECT %s FROM disputes WHERE worker_id = $1 ORDER BY created_at DESC`, disputeColumns)
	err := sqlExec.SelectContext(ctx, &disputes, query, workerID)
	if err != nil {
		return nil, fmt.Errorf("querying disputes for worker %s: %w", workerID, err)
	}
	return disputes, nil
}

// GetByStatus returns disputes in the given status, oldest first.
func (m *DisputeModel) GetByStatus(ctx context.Context, sqlExec db.SQLExecuter, status DisputeStatus) ([]*Dispute, error) {
	disputes := []*Dispute{}
	query := fmt.Sprintf(`SELECT %s FROM disputes WHERE status = $1 ORDER BY created_at ASC`, disputeColumns)
	err := sqlExec.SelectContext(ctx, &disputes, query, status)
	if err != nil {
		return nil, fmt.Errorf("querying disputes by status %s: %w", status, err)
	}
	return disputes, nil
}

// GetOpenOlderThan returns Open disputes created before the cutoff, oldest
// first, bounded by limit. The auto-resolver scans these.
func (m *DisputeModel) GetOpenOlderThan(ctx context.Context, sqlExec db.SQLExecuter, cutoff time.Time, limit int) ([]*Dispute, error) {
	disputes := []*Dispute{}
	query := fmt.Sprintf(`
		SELECT %s FROM disputes
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`, disputeColumns)
	err := sqlExec.SelectContext(ctx, &disputes, query, OpenDisputeStatus, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("querying open disputes older than %s: %w", cutoff, err)
	}
	return disputes, nil
}

// Resolve closes an Open dispute with the given outcome. A dispute that is no
// longer Open is reported through ErrMismatchNumRowsAffected so repeated
// resolutions (admin double-click, auto-resolver rerun) are no-ops.
func (m *DisputeModel) Resolve(ctx context.Context, sqlExec db.SQLExecuter, disputeID string, targetStatus DisputeStatus, decision DisputeDecision, payoutPercent int, adminNotes string) error {
	const query = `
		UPDATE
			disputes
		SET
			status = $1,
			decision = $2,
			payout_percent = $3,
			admin_notes = $4,
			resolved_at = NOW()
		WHERE
			id = $5 AND status = $6
		`
	result, err := sqlExec.ExecContext(ctx, query, targetStatus, decision, payoutPercent, adminNotes, disputeID, OpenDisputeStatus)
	if err != nil {
		return fmt.Errorf("resolving dispute %s: %w", disputeID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return fmt.Errorf("dispute %s is not open: %w", disputeID, ErrMismatchNumRowsAffected)
	}
	logger.Ctx(ctx).Infof("Resolved dispute %s with decision %s (payout %d%%)", disputeID, decision, payoutPercent)
	return nil
}
