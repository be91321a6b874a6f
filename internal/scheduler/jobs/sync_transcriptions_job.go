package jobs

import (
	"context"
	"fmt"
	"time"
)

const (
	syncTranscriptionsJobName            = "sync_transcriptions_job"
	syncTranscriptionsJobIntervalSeconds = 30
	syncTranscriptionsBatchSize          = 50
)

type TranscriptionSyncer interface {
	SyncPendingTranscriptions(ctx context.Context, limit int) (int, error)
}

// SyncTranscriptionsJob polls in-flight transcription jobs and records their
// outcomes on the owning tasks.
type SyncTranscriptionsJob struct {
	service TranscriptionSyncer
}

func NewSyncTranscriptionsJob(service TranscriptionSyncer) *SyncTranscriptionsJob {
	return &SyncTranscriptionsJob{service: service}
}

func (j SyncTranscriptionsJob) GetInterval() time.Duration {
	return syncTranscriptionsJobIntervalSeconds * time.Second
}

func (j SyncTranscriptionsJob) GetName() string {
	return syncTranscriptionsJobName
}

func (j SyncTranscriptionsJob) Execute(ctx context.Context) error {
	if _, err := j.service.SyncPendingTranscriptions(ctx, syncTranscriptionsBatchSize); err != nil {
		return fmt.Errorf("error executing SyncTranscriptionsJob: %w", err)
	}
	return nil
}

var _ Job = (*SyncTranscriptionsJob)(nil)
