package eventhandlers

import (
	"context"
	"fmt"

	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/events"
	"github.com/crowdtask/platform-backend/internal/events/schemas"
	"github.com/crowdtask/platform-backend/internal/utils"
)

// OutcomeRecorder updates a worker's gamification stats for one QC outcome.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, workerID, taskID string, approved bool) error
}

// WorkerStatsEventHandler recomputes worker stats whenever a submission lands
// in Approved or Rejected. Intermediate transitions (PendingConsensus,
// Disputed) carry no outcome and are ignored.
type WorkerStatsEventHandler struct {
	service OutcomeRecorder
}

var _ events.EventHandler = new(WorkerStatsEventHandler)

func NewWorkerStatsEventHandler(service OutcomeRecorder) *WorkerStatsEventHandler {
	return &WorkerStatsEventHandler{service: service}
}

func (h *WorkerStatsEventHandler) Name() string {
	return "WorkerStatsEventHandler"
}

func (h *WorkerStatsEventHandler) CanHandleMessage(ctx context.Context, message *events.Message) bool {
	return message.Topic == events.SubmissionStatusTopic && message.Type == events.SubmissionStatusChangedType
}

func (h *WorkerStatsEventHandler) Handle(ctx context.Context, message *events.Message) error {
	payload, err := utils.ConvertType[any, schemas.EventSubmissionStatusChangedData](message.Data)
	if err != nil {
		return fmt.Errorf("[%s] could not convert data to %T: %w", h.Name(), schemas.EventSubmissionStatusChangedData{}, err)
	}

	approved := false
	switch payload.NewStatus {
	case string(data.ApprovedSubmissionStatus):
		approved = true
	case string(data.RejectedSubmissionStatus):
	default:
		return nil
	}

	// a dispute approval reverses a rejection that was already counted; the
	// counters only track first outcomes
	if payload.OldStatus == string(data.DisputedSubmissionStatus) {
		return nil
	}

	if err := h.service.RecordOutcome(ctx, payload.WorkerID, payload.TaskID, approved); err != nil {
		return fmt.Errorf("[%s] recording outcome for worker %s: %w", h.Name(), payload.WorkerID, err)
	}
	return nil
}
