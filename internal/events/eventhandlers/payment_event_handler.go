package eventhandlers

import (
	"context"
	"fmt"

	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/events"
	"github.com/crowdtask/platform-backend/internal/events/schemas"
	"github.com/crowdtask/platform-backend/internal/logger"
	"github.com/crowdtask/platform-backend/internal/utils"
)

// SubmissionSettler pays out an approved submission.
type SubmissionSettler interface {
	SettleSubmission(ctx context.Context, submissionID string, payoutPercent int) error
}

// PaymentEventHandler settles submissions on the Approved edge of the
// submission-status stream. Only transitions INTO Approved settle; replays of
// an already-Approved status are skipped here and again by the paid flag.
type PaymentEventHandler struct {
	service SubmissionSettler
}

var _ events.EventHandler = new(PaymentEventHandler)

func NewPaymentEventHandler(service SubmissionSettler) *PaymentEventHandler {
	return &PaymentEventHandler{service: service}
}

func (h *PaymentEventHandler) Name() string {
	return "PaymentEventHandler"
}

func (h *PaymentEventHandler) CanHandleMessage(ctx context.Context, message *events.Message) bool {
	return message.Topic == events.SubmissionStatusTopic && message.Type == events.SubmissionStatusChangedType
}

func (h *PaymentEventHandler) Handle(ctx context.Context, message *events.Message) error {
	payload, err := utils.ConvertType[any, schemas.EventSubmissionStatusChangedData](message.Data)
	if err != nil {
		return fmt.Errorf("[%s] could not convert data to %T: %w", h.Name(), schemas.EventSubmissionStatusChangedData{}, err)
	}

	if payload.NewStatus != string(data.ApprovedSubmissionStatus) || payload.OldStatus == string(data.ApprovedSubmissionStatus) {
		logger.Ctx(ctx).Debugf("[%s] skipping %s -> %s for submission %s", h.Name(), payload.OldStatus, payload.NewStatus, payload.SubmissionID)
		return nil
	}

	if err := h.service.SettleSubmission(ctx, payload.SubmissionID, payload.PayoutPercent); err != nil {
		return fmt.Errorf("[%s] settling submission %s: %w", h.Name(), payload.SubmissionID, err)
	}
	return nil
}
