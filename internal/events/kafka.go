package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"golang.org/x/exp/maps"

	"github.com/crowdtask/platform-backend/internal/logger"
)

type KafkaEventManager struct {
	handlers []EventHandler
	topic    string
	writer   *kafka.Writer
	reader   *kafka.Reader
}

func NewKafkaEventManager(brokers []string, consumerTopic, consumerGroupID string) (*KafkaEventManager, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("brokers cannot be empty")
	}

	k := KafkaEventManager{topic: consumerTopic}

	writer := kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.RoundRobin{},
		RequiredAcks: -1,
	}
	k.writer = &writer

	if consumerTopic != "" {
		k.reader = kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: consumerGroupID,
			Topic:   consumerTopic,
		})
	}

	return &k, nil
}

// Implements Producer interface
var _ Producer = new(KafkaEventManager)

// Implements Consumer interface
var _ Consumer = new(KafkaEventManager)

func (k *KafkaEventManager) WriteMessages(ctx context.Context, messages ...Message) error {
	kafkaMessages := make([]kafka.Message, 0, len(messages))
	for _, msg := range messages {
		msgJSON, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshalling message: %w", err)
		}

		kafkaMessages = append(kafkaMessages, kafka.Message{
			Topic: msg.Topic,
			Key:   []byte(msg.Key),
			Value: msgJSON,
		})
	}

	if err := k.writer.WriteMessages(ctx, kafkaMessages...); err != nil {
		return fmt.Errorf("writing message on kafka: %w", err)
	}

	return nil
}

func (k *KafkaEventManager) RegisterEventHandler(ctx context.Context, handlers ...EventHandler) error {
	ehMap := make(map[string]EventHandler, len(handlers))
	for _, handler := range handlers {
		logger.Ctx(ctx).Infof("registering event handler %s", handler.Name())
		ehMap[handler.Name()] = handler
	}
	k.handlers = maps.Values(ehMap)
	return nil
}

func (k *KafkaEventManager) Handlers() []EventHandler {
	return k.handlers
}

func (k *KafkaEventManager) Topic() string {
	return k.topic
}

// ReadMessage fetches and acknowledges the next message. Handling is the
// caller's job; a fetched message travels through the backoff manager until
// it is handled or dead-lettered.
func (k *KafkaEventManager) ReadMessage(ctx context.Context) (*Message, error) {
	if k.reader == nil {
		return nil, fmt.Errorf("kafka manager has no consumer topic configured")
	}

	kafkaMessage, err := k.reader.FetchMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching message from kafka: %w", err)
	}

	var msg Message
	if err = json.Unmarshal(kafkaMessage.Value, &msg); err != nil {
		return nil, fmt.Errorf("unmarshaling message: %w", err)
	}
	logger.Ctx(ctx).Infof("new message being processed: %s", msg.String())

	// Acknowledgement
	if err = k.reader.CommitMessages(ctx, kafkaMessage); err != nil {
		return nil, fmt.Errorf("committing message: %w", err)
	}

	return &msg, nil
}

func (k *KafkaEventManager) Close() error {
	logger.Info("closing kafka producer and consumer")
	if k.reader != nil {
		defer k.reader.Close()
	}
	defer k.writer.Close()
	return nil
}
