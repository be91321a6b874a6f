package services

import (
	"context"
	"fmt"

	"github.com/crowdtask/platform-backend/internal/aiservices"
	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/logger"
)

// TranscriptionService tracks in-flight Transcribe jobs and writes completed
// transcripts back onto their tasks so the audio adjudicator can use them.
type TranscriptionService struct {
	models      *data.Models
	transcriber aiservices.Transcriber
}

func NewTranscriptionService(models *data.Models, transcriber aiservices.Transcriber) (*TranscriptionService, error) {
	if models == nil {
		return nil, fmt.Errorf("models cannot be nil")
	}
	if transcriber == nil {
		return nil, fmt.Errorf("transcriber cannot be nil")
	}
	return &TranscriptionService{models: models, transcriber: transcriber}, nil
}

// SyncPendingTranscriptions polls every in-progress transcription job and
// records its outcome. Per-task errors are logged and skipped so one stuck
// job cannot block the sweep.
func (s *TranscriptionService) SyncPendingTranscriptions(ctx context.Context, limit int) (int, error) {
	dbConnectionPool := s.models.DBConnectionPool

	tasks, err := s.models.Tasks.GetByTranscriptionStatus(ctx, dbConnectionPool, data.TranscriptionInProgress, limit)
	if err != nil {
		return 0, fmt.Errorf("querying in-progress transcriptions: %w", err)
	}

	completed := 0
	for _, task := range tasks {
		if task.TranscriptionJobName == nil {
			logger.Ctx(ctx).Warnf("Task %s is IN_PROGRESS without a transcription job name", task.ID)
			continue
		}

		job, jobErr := s.transcriber.GetTranscriptionJob(ctx, *task.TranscriptionJobName)
		if jobErr != nil {
			logger.Ctx(ctx).Warnf("polling transcription job %s: %v", *task.TranscriptionJobName, jobErr)
			continue
		}

		switch job.Status {
		case "COMPLETED":
			if writeErr := s.models.Tasks.SetTranscriptionResult(ctx, dbConnectionPool, task.ID, job.Transcript); writeErr != nil {
				logger.Ctx(ctx).Errorf("recording transcript on task %s: %v", task.ID, writeErr)
				continue
			}
			completed++
		case "FAILED":
			if writeErr := s.models.Tasks.SetTranscriptionFailure(ctx, dbConnectionPool, task.ID, job.FailureReason); writeErr != nil {
				logger.Ctx(ctx).Errorf("recording transcription failure on task %s: %v", task.ID, writeErr)
			}
		}
	}

	return completed, nil
}

// CompleteTranscriptionJob handles a single job-state notification, resolving
// the owning task by job name.
func (s *TranscriptionService) CompleteTranscriptionJob(ctx context.Context, jobName string) error {
	dbConnectionPool := s.models.DBConnectionPool

	task, err := s.models.Tasks.GetByTranscriptionJobName(ctx, dbConnectionPool, jobName)
	if err != nil {
		return fmt.Errorf("resolving task of transcription job %s: %w", jobName, err)
	}

	job, err := s.transcriber.GetTranscriptionJob(ctx, jobName)
	if err != nil {
		return fmt.Errorf("fetching transcription job %s: %w", jobName, err)
	}

	switch job.Status {
	case "COMPLETED":
		return s.models.Tasks.SetTranscriptionResult(ctx, dbConnectionPool, task.ID, job.Transcript)
	case "FAILED":
		return s.models.Tasks.SetTranscriptionFailure(ctx, dbConnectionPool, task.ID, job.FailureReason)
	default:
		logger.Ctx(ctx).Infof("Transcription job %s still %s", jobName, job.Status)
		return nil
	}
}
