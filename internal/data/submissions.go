package data

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/crowdtask/platform-backend/internal/db"
	"github.com/crowdtask/platform-backend/internal/logger"
)

// Payment statuses tracked on a submission once the settlement engine has seen it.
const (
	PaymentStatusPaid   = "PAID"
	PaymentStatusFailed = "FAILED"
)

// DisputeResolution is the outcome recorded on a submission when its dispute closes.
type DisputeResolution struct {
	Decision      DisputeDecision `json:"decision"`
	PayoutPercent int             `json:"payout_percent"`
	ResolvedAt    time.Time       `json:"resolved_at"`
}

func (r DisputeResolution) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *DisputeResolution) Scan(value any) error {
	if value == nil {
		return nil
	}
	raw, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unexpected type %T for DisputeResolution", value)
	}
	return json.Unmarshal(raw, r)
}

type Submission struct {
	ID                   string             `json:"id" db:"id"`
	TaskID               string             `json:"task_id" db:"task_id"`
	WorkerID             string             `json:"worker_id" db:"worker_id"`
	AssignmentID         string             `json:"assignment_id" db:"assignment_id"`
	Status               SubmissionStatus   `json:"status" db:"status"`
	Answer               string             `json:"answer" db:"answer"`
	QCReason             *string            `json:"qc_reason,omitempty" db:"qc_reason"`
	AIConfidence         *float64           `json:"ai_confidence,omitempty" db:"ai_confidence"`
	PaymentStatus        *string            `json:"payment_status,omitempty" db:"payment_status"`
	PaymentFailureReason *string            `json:"payment_failure_reason,omitempty" db:"payment_failure_reason"`
	DisputeResolution    *DisputeResolution `json:"dispute_resolution,omitempty" db:"dispute_resolution"`
	SubmittedAt          time.Time          `json:"submitted_at" db:"submitted_at"`
	UpdatedAt            time.Time          `json:"updated_at" db:"updated_at"`
}

type SubmissionModel struct {
	dbConnectionPool db.DBConnectionPool
}

const submissionColumns = `
	id, task_id, worker_id, assignment_id, status, answer, qc_reason, ai_confidence,
	payment_status, payment_failure_reason, dispute_resolution, submitted_at, updated_at
`

func (m *SubmissionModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, submission *Submission) error {
	const q = `
		INSERT INTO submissions
			(id, task_id, worker_id, assignment_id, status, answer)
		VALUES
			($1, $2, $3, $4, $5, $6)
	`
	_, err := sqlExec.ExecContext(ctx, q,
		submission.ID,
		submission.TaskID,
		submission.WorkerID,
		submission.AssignmentID,
		submission.Status,
		submission.Answer,
	)
	if err != nil {
		return fmt.Errorf("inserting submission %s: %w", submission.ID, err)
	}
	return nil
}

func (m *SubmissionModel) Get(ctx context.Context, sqlExec db.SQLExecuter, id string) (*Submission, error) {
	var submission Submission
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE id = $1`, submissionColumns)
	err := sqlExec.GetContext(ctx, &submission, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying submission %s: %w", id, err)
	}
	return &submission, nil
}

// GetByTaskID returns all submissions of a task, oldest first. This is the
// peer set the consensus tally runs over.
func (m *SubmissionModel) GetByTaskID(ctx context.Context, sqlExec db.SQLExecuter, taskID string) ([]*Submission, error) {
	submissions := []*Submission{}
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE task_id = $1 ORDER BY submitted_at ASC`, submissionColumns)
	err := sqlExec.SelectContext(ctx, &submissions, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("querying submissions for task %s: %w", taskID, err)
	}
	return submissions, nil
}

// GetByWorkerSince returns the worker's submissions newer than the cutoff,
// newest first, bounded by limit. Used by the fraud detector's copy-paste and
// spam checks.
func (m *SubmissionModel) GetByWorkerSince(ctx context.Context, sqlExec db.SQLExecuter, workerID string, since time.Time, limit int) ([]*Submission, error) {
	submissions := []*Submission{}
	query := fmt.Sprintf(`
		SELECT %s FROM submissions
		WHERE worker_id = $1 AND submitted_at >= $2
		ORDER BY submitted_at DESC
		LIMIT $3
	`, submissionColumns)
	err := sqlExec.SelectContext(ctx, &submissions, query, workerID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent submissions for worker %s: %w", workerID, err)
	}
	return submissions, nil
}

// GetLatestByWorker returns the worker's most recent submissions, newest
// first, bounded by limit. Used by the bot-timing check.
func (m *SubmissionModel) GetLatestByWorker(ctx context.Context, sqlExec db.SQLExecuter, workerID string, limit int) ([]*Submission, error) {
	submissions := []*Submission{}
	query := fmt.Sprintf(`
		SELECT %s FROM submissions
		WHERE worker_id = $1
		ORDER BY submitted_at DESC
		LIMIT $2
	`, submissionColumns)
	err := sqlExec.SelectContext(ctx, &submissions, query, workerID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying latest submissions for worker %s: %w", workerID, err)
	}
	return submissions, nil
}

// GetByWorker returns all submissions by the worker, newest first.
func (m *SubmissionModel) GetByWorker(ctx context.Context, sqlExec db.SQLExecuter, workerID string) ([]*Submission, error) {
	submissions := []*Submission{}
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE worker_id = $1 ORDER BY submitted_at DESC`, submissionColumns)
	err := sqlExec.SelectContext(ctx, &submissions, query, workerID)
	if err != nil {
		return nil, fmt.Errorf("querying submissions for worker %s: %w", workerID, err)
	}
	return submissions, nil
}

// UpdateStatus updates the status of the given submission, only from a legal source status.
func (m *SubmissionModel) UpdateStatus(ctx context.Context, sqlExec db.SQLExecuter, submissionID string, targetStatus SubmissionStatus) error {
	sourceStatuses := targetStatus.SourceStatuses()

	query := `
		UPDATE
			submissions
		SET
			status = $1,
			updated_at = NOW()
		WHERE
			id = $2 AND status = ANY($3)
		`
	result, err := sqlExec.ExecContext(ctx, query, targetStatus, submissionID, pq.Array(sourceStatuses))
	if err != nil {
		return fmt.Errorf("updating submission status: %w", err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}

	if numRowsAffected == 0 {
		return fmt.Errorf("submission %s status was not updated from %s to %s: %w", submissionID, sourceStatuses, targetStatus, ErrMismatchNumRowsAffected)
	} else if numRowsAffected == 1 {
		logger.Ctx(ctx).Infof("Set submission %s status from %s to %s", submissionID, sourceStatuses, targetStatus)
	} else {
		return fmt.Errorf("unexpected number of rows affected: %d when updating submission %s status from %s to %s",
			numRowsAffected,
			submissionID,
			sourceStatuses,
			targetStatus)
	}

	return nil
}

// MarkPendingConsensus parks the submission for the vote. Writes only from
// Pending or PendingConsensus so a terminal decision is never reverted by a
// replayed QC message.
func (m *SubmissionModel) MarkPendingConsensus(ctx context.Context, sqlExec db.SQLExecuter, submissionID string) error {
	const query = `
		UPDATE
			submissions
		SET
			status = $1,
			updated_at = NOW()
		WHERE
			id = $2 AND status = ANY($3)
		`
	_, err := sqlExec.ExecContext(ctx, query, PendingConsensusSubmissionStatus, submissionID,
		pq.Array([]SubmissionStatus{PendingSubmissionStatus, PendingConsensusSubmissionStatus}))
	if err != nil {
		return fmt.Errorf("marking submission %s pending consensus: %w", submissionID, err)
	}
	return nil
}

// ApplyQCDecision writes a QC terminal status with its confidence and reason.
// Only submissions still in Pending or PendingConsensus are touched, so
// Disputed and RejectedFinal rows survive QC replays. The returned bool
// reports whether the row was actually written.
func (m *SubmissionModel) ApplyQCDecision(ctx context.Context, sqlExec db.SQLExecuter, submissionID string, targetStatus SubmissionStatus, confidence float64, reason string) (bool, error) {
	const query = `
		UPDATE
			submissions
		SET
			status = $1,
			ai_confidence = $2,
			qc_reason = $3,
			updated_at = NOW()
		WHERE
			id = $4 AND status = ANY($5)
		`
	result, err := sqlExec.ExecContext(ctx, query, targetStatus, confidence, reason, submissionID,
		pq.Array([]SubmissionStatus{PendingSubmissionStatus, PendingConsensusSubmissionStatus}))
	if err != nil {
		return false, fmt.Errorf("applying QC decision on submission %s: %w", submissionID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting number of rows affected: %w", err)
	}
	return numRowsAffected == 1, nil
}

// MarkPaid flags the submission as settled. It writes at most once; a second
// call reports ErrRecordAlreadyExists so a replayed Approved edge cannot
// settle twice.
func (m *SubmissionModel) MarkPaid(ctx context.Context, sqlExec db.SQLExecuter, submissionID string) error {
	const query = `
		UPDATE
			submissions
		SET
			payment_status = $1,
			payment_failure_reason = NULL,
			updated_at = NOW()
		WHERE
			id = $2 AND (payment_status IS NULL OR payment_status <> $1)
		`
	result, err := sqlExec.ExecContext(ctx, query, PaymentStatusPaid, submissionID)
	if err != nil {
		return fmt.Errorf("marking submission %s paid: %w", submissionID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return fmt.Errorf("submission %s is already paid: %w", submissionID, ErrRecordAlreadyExists)
	}
	return nil
}

// MarkPaymentFailed records a settlement failure with its reason.
func (m *SubmissionModel) MarkPaymentFailed(ctx context.Context, sqlExec db.SQLExecuter, submissionID, reason string) error {
	const query = `
		UPDATE
			submissions
		SET
			payment_status = $1,
			payment_failure_reason = $2,
			updated_at = NOW()
		WHERE
			id = $3
		`
	_, err := sqlExec.ExecContext(ctx, query, PaymentStatusFailed, reason, submissionID)
	if err != nil {
		return fmt.Errorf("marking submission %s payment failed: %w", submissionID, err)
	}
	return nil
}

// SetDisputeResolution stamps the dispute outcome onto the submission.
func (m *SubmissionModel) SetDisputeResolution(ctx context.Context, sqlExec db.SQLExecuter, submissionID string, resolution DisputeResolution) error {
	const query = `
		UPDATE
			submissions
		SET
			dispute_resolution = $1,
			updated_at = NOW()
		WHERE
			id = $2
		`
	_, err := sqlExec.ExecContext(ctx, query, resolution, submissionID)
	if err != nil {
		return fmt.Errorf("setting dispute resolution on submission %s: %w", submissionID, err)
	}
	return nil
}
