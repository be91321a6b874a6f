package events

import (
	"context"

	"github.com/crowdtask/platform-backend/internal/logger"
)

// Topic Names
const (
	// SubmissionReceivedTopic carries freshly created submissions into the QC pipeline.
	SubmissionReceivedTopic = "qc-submission"
	// SubmissionStatusTopic carries QC and dispute outcomes to the settlement and stats handlers.
	SubmissionStatusTopic = "submission-status"
	// QCCompletedTopic is the externally consumed notification stream.
	QCCompletedTopic = "crowdsourcing.qc"
)

// Type Names
const (
	SubmissionReceivedType      = "submission-received"
	SubmissionStatusChangedType = "submission-status-changed"
	SubmissionQCCompletedType   = "SubmissionQCCompleted"
)

type EventHandler interface {
	Name() string
	CanHandleMessage(ctx context.Context, message *Message) bool
	Handle(ctx context.Context, message *Message) error
}

type Producer interface {
	WriteMessages(ctx context.Context, messages ...Message) error
	Close() error
}

type Consumer interface {
	ReadMessage(ctx context.Context) (*Message, error)
	Topic() string
	Handlers() []EventHandler
	RegisterEventHandler(ctx context.Context, handlers ...EventHandler) error
	Close() error
}

// NoopProducer is a producer used to log messages instead of sending them to a real broker.
type NoopProducer struct{}

func (p NoopProducer) WriteMessages(ctx context.Context, messages ...Message) error {
	logger.Ctx(ctx).Debugf("NoopProducer: discarding messages %+v", messages)
	return nil
}

func (p NoopProducer) Close() error {
	return nil
}

var _ Producer = NoopProducer{}
