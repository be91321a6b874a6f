package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dimchansky/utfbom"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/crowdtask/platform-backend/internal/aiservices"
	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/db"
	"github.com/crowdtask/platform-backend/internal/logger"
	"github.com/crowdtask/platform-backend/internal/utils"
)

var (
	// ErrBatchNotFound means the batch has no publishable tasks for this requester.
	ErrBatchNotFound = errors.New("batch not found")
	// ErrEmptyBatch means the batch upload contained no tasks.
	ErrEmptyBatch = errors.New("batch contains no tasks")
)

// TaskInput is one task in a batch upload.
type TaskInput struct {
	Type          string           `json:"type"`
	Payload       data.TaskPayload `json:"payload"`
	IsGold        bool             `json:"isGold"`
	GoldAnswer    *string          `json:"goldAnswer,omitempty"`
	PublishAt     *time.Time       `json:"publishAt,omitempty"`
	RequiredLevel *string          `json:"requiredLevel,omitempty"`
}

// csvTaskRow is the flat CSV shape of a task upload row.
type csvTaskRow struct {
	TaskType      string `csv:"task_type"`
	Question      string `csv:"question"`
	Reward        string `csv:"reward"`
	MediaKey      string `csv:"media_key"`
	IsGold        bool   `csv:"is_gold"`
	GoldAnswer    string `csv:"gold_answer"`
	RequiredLevel string `csv:"required_level"`
	PublishAt     string `csv:"publish_at"`
}

// AvailableTask is a task in the worker feed, flagged when the worker's level
// does not unlock it yet.
type AvailableTask struct {
	*data.Task
	Locked bool `json:"locked"`
}

// TaskService handles the requester-side task lifecycle: batch creation,
// publication, and the worker-facing feed.
type TaskService struct {
	models      *data.Models
	transcriber aiservices.Transcriber
}

func NewTaskService(models *data.Models, transcriber aiservices.Transcriber) (*TaskService, error) {
	if models == nil {
		return nil, fmt.Errorf("models cannot be nil")
	}
	return &TaskService{models: models, transcriber: transcriber}, nil
}

// CreateBatch stores a batch of tasks for the requester and returns the batch
// ID with the number created. Tasks with a publishAt are Scheduled; the rest
// wait in Created until the batch is published.
func (s *TaskService) CreateBatch(ctx context.Context, requesterID string, inputs []TaskInput) (string, int, error) {
	if len(inputs) == 0 {
		return "", 0, ErrEmptyBatch
	}

	batchID := uuid.NewString()
	tasks := make([]*data.Task, 0, len(inputs))
	for _, input := range inputs {
		status := data.CreatedTaskStatus
		if input.PublishAt != nil {
			status = data.ScheduledTaskStatus
		}

		task := &data.Task{
			ID:            uuid.NewString(),
			RequesterID:   requesterID,
			BatchID:       batchID,
			Status:        status,
			Type:          input.Type,
			Payload:       input.Payload,
			IsGold:        input.IsGold,
			GoldAnswer:    input.GoldAnswer,
			PublishAt:     input.PublishAt,
			RequiredLevel: input.RequiredLevel,
		}
		if task.Payload == nil {
			task.Payload = data.TaskPayload{}
		}
		if task.Type == data.AudioTranscriptionTaskType {
			task.TranscriptionStatus = utils.StringPtr(data.TranscriptionNotStarted)
		}
		tasks = append(tasks, task)
	}

	err := db.RunInTransaction(ctx, s.models.DBConnectionPool, nil, func(dbTx db.DBTransaction) error {
		for _, task := range tasks {
			if innerErr := s.models.Tasks.Insert(ctx, dbTx, task); innerErr != nil {
				return innerErr
			}
		}
		return nil
	})
	if err != nil {
		return "", 0, fmt.Errorf("creating batch for requester %s: %w", requesterID, err)
	}

	// Transcription kickoff is best-effort: a failed start leaves the task in
	// NOT_STARTED and the audio adjudicator inconclusive.
	for _, task := range tasks {
		s.startTranscription(ctx, task)
	}

	logger.Ctx(ctx).Infof("Created batch %s with %d tasks for requester %s", batchID, len(tasks), requesterID)
	return batchID, len(tasks), nil
}

// CreateBatchFromCSV parses a CSV upload (BOM tolerated) into a task batch.
func (s *TaskService) CreateBatchFromCSV(ctx context.Context, requesterID string, csvFile io.Reader) (string, int, error) {
	rows := []*csvTaskRow{}
	if err := gocsv.Unmarshal(utfbom.SkipOnly(csvFile), &rows); err != nil {
		return "", 0, fmt.Errorf("parsing CSV batch: %w", err)
	}

	inputs := make([]TaskInput, 0, len(rows))
	for i, row := range rows {
		payload := data.TaskPayload{}
		if row.Question != "" {
			payload["question"] = row.Question
		}
		if row.Reward != "" {
			if err := utils.ValidateAmount(row.Reward); err != nil {
				return "", 0, fmt.Errorf("invalid reward on CSV line %d: %w", i+2, err)
			}
			payload["reward"] = row.Reward
		}
		if row.MediaKey != "" {
			payload["mediaKey"] = row.MediaKey
		}

		input := TaskInput{
			Type:    row.TaskType,
			Payload: payload,
			IsGold:  row.IsGold,
		}
		if row.GoldAnswer != "" {
			input.GoldAnswer = utils.StringPtr(row.GoldAnswer)
		}
		if row.RequiredLevel != "" {
			level := data.WorkerLevel(row.RequiredLevel)
			if err := level.Validate(); err != nil {
				return "", 0, fmt.Errorf("invalid required level on CSV line %d: %w", i+2, err)
			}
			input.RequiredLevel = utils.StringPtr(string(level))
		}
		if row.PublishAt != "" {
			publishAt, err := time.Parse(time.RFC3339, row.PublishAt)
			if err != nil {
				return "", 0, fmt.Errorf("invalid publish_at on CSV line %d: %w", i+2, err)
			}
			input.PublishAt = &publishAt
		}
		inputs = append(inputs, input)
	}

	return s.CreateBatch(ctx, requesterID, inputs)
}

// PublishBatch makes every Created task of the batch available to workers.
func (s *TaskService) PublishBatch(ctx context.Context, requesterID, batchID string) (int, error) {
	count, err := s.models.Tasks.PublishBatch(ctx, s.models.DBConnectionPool, requesterID, batchID)
	if err != nil {
		return 0, fmt.Errorf("publishing batch %s: %w", batchID, err)
	}
	if count == 0 {
		return 0, ErrBatchNotFound
	}
	logger.Ctx(ctx).Infof("Published %d tasks of batch %s", count, batchID)
	return count, nil
}

// PublishDueScheduled publishes Scheduled tasks whose publishAt has passed.
func (s *TaskService) PublishDueScheduled(ctx context.Context, limit int) (int, error) {
	ids, err := s.models.Tasks.PublishScheduledBefore(ctx, s.models.DBConnectionPool, time.Now(), limit)
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		logger.Ctx(ctx).Infof("Published %d scheduled tasks", len(ids))
	}
	return len(ids), nil
}

// ListAvailable returns the worker feed: Published tasks with a locked flag
// for those gated above the worker's level, unlocked tasks first.
func (s *TaskService) ListAvailable(ctx context.Context, workerID string, limit int) ([]AvailableTask, data.WorkerLevel, error) {
	dbConnectionPool := s.models.DBConnectionPool

	workerLevel, err := s.models.Workers.GetLevel(ctx, dbConnectionPool, workerID)
	if err != nil {
		return nil, "", fmt.Errorf("loading level of worker %s: %w", workerID, err)
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	tasks, err := s.models.Tasks.GetPublished(ctx, dbConnectionPool, limit)
	if err != nil {
		return nil, "", fmt.Errorf("loading published tasks: %w", err)
	}

	available := make([]AvailableTask, 0, len(tasks))
	for _, task := range tasks {
		locked := false
		if task.RequiredLevel != nil {
			locked = !workerLevel.CanAccessTask(data.WorkerLevel(*task.RequiredLevel))
		}
		available = append(available, AvailableTask{Task: task, Locked: locked})
	}

	// unlocked first, then oldest first within each group
	sort.SliceStable(available, func(i, j int) bool {
		if available[i].Locked != available[j].Locked {
			return !available[i].Locked
		}
		return available[i].CreatedAt.Before(available[j].CreatedAt)
	})

	return available, workerLevel, nil
}

// ListByRequester returns the requester's tasks, optionally filtered by status.
func (s *TaskService) ListByRequester(ctx context.Context, requesterID string, status *data.TaskStatus) ([]*data.Task, error) {
	return s.models.Tasks.GetByRequester(ctx, s.models.DBConnectionPool, requesterID, status)
}

// startTranscription kicks off the async transcription of an audio task.
func (s *TaskService) startTranscription(ctx context.Context, task *data.Task) {
	if s.transcriber == nil || task.Type != data.AudioTranscriptionTaskType {
		return
	}
	mediaKey := task.Payload.MediaKey()
	if mediaKey == "" {
		logger.Ctx(ctx).Warnf("Audio task %s has no media key, skipping transcription", task.ID)
		return
	}

	jobName, err := s.transcriber.StartTranscriptionJob(ctx, mediaKey)
	if err != nil {
		logger.Ctx(ctx).Warnf("starting transcription for task %s: %v", task.ID, err)
		return
	}
	if err = s.models.Tasks.SetTranscriptionJob(ctx, s.models.DBConnectionPool, task.ID, jobName, data.TranscriptionInProgress); err != nil {
		logger.Ctx(ctx).Errorf("recording transcription job %s on task %s: %v", jobName, task.ID, err)
	}
}
