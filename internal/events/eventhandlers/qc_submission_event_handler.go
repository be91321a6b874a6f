package eventhandlers

import (
	"context"
	"fmt"

	"github.com/crowdtask/platform-backend/internal/events"
	"github.com/crowdtask/platform-backend/internal/events/schemas"
	"github.com/crowdtask/platform-backend/internal/utils"
)

// QCProcessor runs the quality-control pipeline for one submission.
type QCProcessor interface {
	ProcessSubmission(ctx context.Context, submissionID string) error
}

// QCSubmissionEventHandler feeds freshly received submissions into the QC
// pipeline.
type QCSubmissionEventHandler struct {
	service QCProcessor
}

var _ events.EventHandler = new(QCSubmissionEventHandler)

func NewQCSubmissionEventHandler(service QCProcessor) *QCSubmissionEventHandler {
	return &QCSubmissionEventHandler{service: service}
}

func (h *QCSubmissionEventHandler) Name() string {
	return "QCSubmissionEventHandler"
}

func (h *QCSubmissionEventHandler) CanHandleMessage(ctx context.Context, message *events.Message) bool {
	return message.Topic == events.SubmissionReceivedTopic && message.Type == events.SubmissionReceivedType
}

func (h *QCSubmissionEventHandler) Handle(ctx context.Context, message *events.Message) error {
	payload, err := utils.ConvertType[any, schemas.EventSubmissionReceivedData](message.Data)
	if err != nil {
		return fmt.Errorf("[%s] could not convert data to %T: %w", h.Name(), schemas.EventSubmissionReceivedData{}, err)
	}

	if err := h.service.ProcessSubmission(ctx, payload.SubmissionID); err != nil {
		return fmt.Errorf("[%s] processing submission %s: %w", h.Name(), payload.SubmissionID, err)
	}
	return nil
}
