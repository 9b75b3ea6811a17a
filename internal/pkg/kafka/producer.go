package kafka

import (
	"Atrium/internal/api/config"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// NotifyProducer 通知事件生产者
type NotifyProducer interface {
	Emit(ctx context.Context, event *NotifyEvent) error
	Close() error
}

type notifyProducerImpl struct {
	producer sarama.SyncProducer
	topic    string
}

func NewNotifyProducer(cfg *config.Config) (NotifyProducer, error) {
	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, newSaramaConfig(cfg.Kafka))
	if err != nil {
		return nil, err
	}
	return &notifyProducerImpl{producer: producer, topic: cfg.Notify.Topic}, nil
}

// Emit 同一会话的事件按会话 ID 分区，保证到达顺序
func (s *notifyProducerImpl) Emit(ctx context.Context, event *NotifyEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	partition, offset, err := s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(event.ConversationID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return err
	}
	log.DebugContext(ctx, "notify event emitted", "conversationID", event.ConversationID, "partition", partition, "offset", offset)
	return nil
}

func (s *notifyProducerImpl) Close() error {
	return s.producer.Close()
}
