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
	"github.com/shopspring/decimal"

	"github.com/crowdtask/platform-backend/internal/db"
	"github.com/crowdtask/platform-backend/internal/logger"
)

// Task types with a dedicated AI adjudication path. Any other type goes
// straight to consensus.
const (
	ImageClassificationTaskType = "image-classification"
	AudioTranscriptionTaskType  = "audio-transcription"
)

// Transcription job statuses tracked on audio-transcription tasks.
const (
	TranscriptionNotStarted = "NOT_STARTED"
	TranscriptionInProgress = "IN_PROGRESS"
	TranscriptionCompleted  = "COMPLETED"
	TranscriptionFailed     = "FAILED"
)

// TaskPayload is the opaque requester-provided payload. Well-known keys
// (reward, mediaKey, expectedLabel) are read through accessors.
type TaskPayload map[string]any

func (p TaskPayload) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

func (p *TaskPayload) Scan(value any) error {
	if value == nil {
		*p = TaskPayload{}
		return nil
	}
	raw, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unexpected type %T for TaskPayload", value)
	}
	return json.Unmarshal(raw, p)
}

// Reward returns the task reward from the payload, reporting whether it was present.
func (p TaskPayload) Reward() (decimal.Decimal, bool) {
	raw, ok := p["reward"]
	if !ok {
		return decimal.Zero, false
	}

	switch v := raw.(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(v), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// MediaKey returns the blob-store key of the task media, if any.
func (p TaskPayload) MediaKey() string {
	if v, ok := p["mediaKey"].(string); ok {
		return v
	}
	return ""
}

type Task struct {
	ID                   string      `json:"id" db:"id"`
	RequesterID          string      `json:"requester_id" db:"requester_id"`
	BatchID              string      `json:"batch_id" db:"batch_id"`
	Status               TaskStatus  `json:"status" db:"status"`
	Type                 string      `json:"type" db:"task_type"`
	Payload              TaskPayload `json:"payload" db:"payload"`
	IsGold               bool        `json:"is_gold" db:"is_gold"`
	GoldAnswer           *string     `json:"gold_answer,omitempty" db:"gold_answer"`
	PublishAt            *time.Time  `json:"publish_at,omitempty" db:"publish_at"`
	AssignedTo           *string     `json:"assigned_to,omitempty" db:"assigned_to"`
	AssignedAt           *time.Time  `json:"assigned_at,omitempty" db:"assigned_at"`
	RequiredLevel        *string     `json:"required_level,omitempty" db:"required_level"`
	TranscriptionJobName *string     `json:"transcription_job_name,omitempty" db:"transcription_job_name"`
	TranscriptionStatus  *string     `json:"transcription_status,omitempty" db:"transcription_status"`
	TranscriptionError   *string     `json:"transcription_error,omitempty" db:"transcription_error"`
	AITranscription      *string     `json:"ai_transcription,omitempty" db:"ai_transcription"`
	CreatedAt            time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at" db:"updated_at"`
}

type TaskModel struct {
	dbConnectionPool db.DBConnectionPool
}

const taskColumns = `
	id, requester_id, batch_id, status, task_type, payload, is_gold, gold_answer,
	publish_at, assigned_to, assigned_at, required_level,
	transcription_job_name, transcription_status, transcription_error, ai_transcription,
	created_at, updated_at
`

func (m *TaskModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, task *Task) error {
	const q = `
		INSERT INTO tasks
			(id, requester_id, batch_id, status, task_type, payload, is_gold, gold_answer, publish_at, required_level, transcription_job_name, transcription_status)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := sqlExec.ExecContext(ctx, q,
		task.ID,
		task.RequesterID,
		task.BatchID,
		task.Status,
		task.Type,
		task.Payload,
		task.IsGold,
		task.GoldAnswer,
		task.PublishAt,
		task.RequiredLevel,
		task.TranscriptionJobName,
		task.TranscriptionStatus,
	)
	if err != nil {
		return fmt.Errorf("inserting task %s: %w", task.ID, err)
	}
	return nil
}

func (m *TaskModel) Get(ctx context.Context, sqlExec db.SQLExecuter, id string) (*Task, error) {
	var task Task
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1`, taskColumns)
	err := sqlExec.GetContext(ctx, &task, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying task %s: %w", id, err)
	}
	return &task, nil
}

// GetPublished returns Published tasks ordered oldest first, bounded by limit.
func (m *TaskModel) GetPublished(ctx context.Context, sqlExec db.SQLExecuter, limit int) ([]*Task, error) {
	tasks := []*Task{}
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE status = $1 ORDER BY created_at ASC LIMIT $2`, taskColumns)
	err := sqlExec.SelectContext(ctx, &tasks, query, PublishedTaskStatus, limit)
	if err != nil {
		return nil, fmt.Errorf("querying published tasks: %w", err)
	}
	return tasks, nil
}

// GetByRequester returns the requester's tasks, optionally filtered by status.
func (m *TaskModel) GetByRequester(ctx context.Context, sqlExec db.SQLExecuter, requesterID string, status *TaskStatus) ([]*Task, error) {
	tasks := []*Task{}
	if status != nil {
		query := fmt.Sprintf(`SELECT %s FROM tasks WHERE requester_id = $1 AND status = $2 ORDER BY created_at DESC`, taskColumns)
		if err := sqlExec.SelectContext(ctx, &tasks, query, requesterID, *status); err != nil {
			return nil, fmt.Errorf("querying tasks for requester %s: %w", requesterID, err)
		}
		return tasks, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE requester_id = $1 ORDER BY created_at DESC`, taskColumns)
	if err := sqlExec.SelectContext(ctx, &tasks, query, requesterID); err != nil {
		return nil, fmt.Errorf("querying tasks for requester %s: %w", requesterID, err)
	}
	return tasks, nil
}

// GetByTranscriptionJobName resolves the task a transcription job belongs to.
func (m *TaskModel) GetByTranscriptionJobName(ctx context.Context, sqlExec db.SQLExecuter, jobName string) (*Task, error) {
	var task Task
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE transcription_job_name = $1`, taskColumns)
	err := sqlExec.GetContext(ctx, &task, query, jobName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying task by transcription job %s: %w", jobName, err)
	}
	return &task, nil
}

// GetByTranscriptionStatus returns tasks whose transcription job is in the
// given state, oldest first, bounded by limit.
func (m *TaskModel) GetByTranscriptionStatus(ctx context.Context, sqlExec db.SQLExecuter, transcriptionStatus string, limit int) ([]*Task, error) {
	tasks := []*Task{}
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE transcription_status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, taskColumns)
	err := sqlExec.SelectContext(ctx, &tasks, query, transcriptionStatus, limit)
	if err != nil {
		return nil, fmt.Errorf("querying tasks with transcription status %s: %w", transcriptionStatus, err)
	}
	return tasks, nil
}

// UpdateStatus updates the status of the given task, only when the current
// status is a legal source for the target. This conditional write is the
// concurrency primitive for the task lifecycle.
func (m *TaskModel) UpdateStatus(ctx context.Context, sqlExec db.SQLExecuter, taskID string, targetStatus TaskStatus) error {
	sourceStatuses := targetStatus.SourceStatuses()

	query := `
		UPDATE
			tasks
		SET
			status = $1,
			updated_at = NOW()
		WHERE
			id = $2 AND status = ANY($3)
		`
	result, err := sqlExec.ExecContext(ctx, query, targetStatus, taskID, pq.Array(sourceStatuses))
	if err != nil {
		return fmt.Errorf("updating task status: %w", err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}

	if numRowsAffected == 0 {
		return fmt.Errorf("task %s status was not updated from %s to %s: %w", taskID, sourceStatuses, targetStatus, ErrMismatchNumRowsAffected)
	} else if numRowsAffected == 1 {
		logger.Ctx(ctx).Infof("Set task %s status from %s to %s", taskID, sourceStatuses, targetStatus)
	} else {
		return fmt.Errorf("unexpected number of rows affected: %d when updating task %s status from %s to %s",
			numRowsAffected,
			taskID,
			sourceStatuses,
			targetStatus)
	}

	return nil
}

// Lock transitions a Published task to Assigned for the given worker.
// Exactly one of the racing workers wins; the others get ErrMismatchNumRowsAffected.
func (m *TaskModel) Lock(ctx context.Context, sqlExec db.SQLExecuter, taskID, workerID string) error {
	const query = `
		UPDATE
			tasks
		SET
			status = $1,
			assigned_to = $2,
			assigned_at = NOW(),
			updated_at = NOW()
		WHERE
			id = $3 AND status = $4
		`
	result, err := sqlExec.ExecContext(ctx, query, AssignedTaskStatus, workerID, taskID, PublishedTaskStatus)
	if err != nil {
		return fmt.Errorf("locking task %s: %w", taskID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected != 1 {
		return fmt.Errorf("task %s is no longer available: %w", taskID, ErrMismatchNumRowsAffected)
	}
	return nil
}

// Release returns an Assigned task to the Published pool, clearing the lock holder.
func (m *TaskModel) Release(ctx context.Context, sqlExec db.SQLExecuter, taskID string) error {
	const query = `
		UPDATE
			tasks
		SET
			status = $1,
			assigned_to = NULL,
			assigned_at = NULL,
			updated_at = NOW()
		WHERE
			id = $2 AND status = $3
		`
	result, err := sqlExec.ExecContext(ctx, query, PublishedTaskStatus, taskID, AssignedTaskStatus)
	if err != nil {
		return fmt.Errorf("releasing task %s: %w", taskID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected != 1 {
		return fmt.Errorf("task %s was not released: %w", taskID, ErrMismatchNumRowsAffected)
	}
	return nil
}

// PublishBatch transitions all Created tasks of the requester's batch to
// Published and returns how many were published.
func (m *TaskModel) PublishBatch(ctx context.Context, sqlExec db.SQLExecuter, requesterID, batchID string) (int, error) {
	const query = `
		UPDATE
			tasks
		SET
			status = $1,
			updated_at = NOW()
		WHERE
			batch_id = $2 AND requester_id = $3 AND status = $4
		`
	result, err := sqlExec.ExecContext(ctx, query, PublishedTaskStatus, batchID, requesterID, CreatedTaskStatus)
	if err != nil {
		return 0, fmt.Errorf("publishing batch %s: %w", batchID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting number of rows affected: %w", err)
	}
	return int(numRowsAffected), nil
}

// PublishScheduledBefore publishes Scheduled tasks whose publishAt has passed,
// bounded per call, and returns the published task IDs.
func (m *TaskModel) PublishScheduledBefore(ctx context.Context, sqlExec db.SQLExecuter, now time.Time, limit int) ([]string, error) {
	const query = `
		UPDATE
			tasks
		SET
			status = $1,
			updated_at = NOW()
		WHERE
			id IN (
				SELECT id FROM tasks
				WHERE status = $2 AND publish_at <= $3
				ORDER BY publish_at ASC
				LIMIT $4
			)
		RETURNING id
		`
	ids := []string{}
	err := sqlExec.SelectContext(ctx, &ids, query, PublishedTaskStatus, ScheduledTaskStatus, now, limit)
	if err != nil {
		return nil, fmt.Errorf("publishing scheduled tasks: %w", err)
	}
	return ids, nil
}

// SetTranscriptionJob records the started transcription job on the task.
func (m *TaskModel) SetTranscriptionJob(ctx context.Context, sqlExec db.SQLExecuter, taskID, jobName, status string) error {
	const query = `
		UPDATE tasks
		SET transcription_job_name = $1, transcription_status = $2, updated_at = NOW()
		WHERE id = $3
		`
	_, err := sqlExec.ExecContext(ctx, query, jobName, status, taskID)
	if err != nil {
		return fmt.Errorf("setting transcription job on task %s: %w", taskID, err)
	}
	return nil
}

// SetTranscriptionResult writes the completed transcript onto the task.
func (m *TaskModel) SetTranscriptionResult(ctx context.Context, sqlExec db.SQLExecuter, taskID, transcript string) error {
	const query = `
		UPDATE tasks
		SET ai_transcription = $1, transcription_status = $2, updated_at = NOW()
		WHERE id = $3
		`
	_, err := sqlExec.ExecContext(ctx, query, transcript, TranscriptionCompleted, taskID)
	if err != nil {
		return fmt.Errorf("setting transcription result on task %s: %w", taskID, err)
	}
	return nil
}

// SetTranscriptionFailure marks the transcription job as failed with its error.
func (m *TaskModel) SetTranscriptionFailure(ctx context.Context, sqlExec db.SQLExecuter, taskID, failureReason string) error {
	const query = `
		UPDATE tasks
		SET transcription_status = $1, transcription_error = $2, updated_at = NOW()
		WHERE id = $3
		`
	_, err := sqlExec.ExecContext(ctx, query, TranscriptionFailed, failureReason, taskID)
	if err != nil {
		return fmt.Errorf("setting transcription failure on task %s: %w", taskID, err)
	}
	return nil
}
