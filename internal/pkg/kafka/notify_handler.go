package kafka

import (
	"Atrium/internal/api/config"
	"context"
	"fmt"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/go-resty/resty/v2"
)

// NotifyHandler 消费通知事件并转发到推送网关
type NotifyHandler struct {
	client     *resty.Client
	webhookURL string
	serverKey  string
}

func NewNotifyHandler(cfg *config.Config) *NotifyHandler {
	return &NotifyHandler{
		client:     resty.New(),
		webhookURL: cfg.Notify.WebhookURL,
		serverKey:  cfg.Notify.ServerKey,
	}
}

func (s *NotifyHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("notify consumer setup")
	return nil
}

func (s *NotifyHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("notify consumer cleanup")
	return nil
}

func (s *NotifyHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-notify consume claim")
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("process batch error", "err", err)
		return err
	}
	log.Info("topic-notify consume claim end")
	return nil
}

func (s *NotifyHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	event, err := ToNotifyEvent(msg)
	if err != nil {
		// 脏数据直接丢弃，不值得重试
		return nil
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "key="+s.serverKey).
		SetBody(map[string]any{
			"conversation_id": event.ConversationID,
			"target":          event.Target,
			"title":           event.Name,
			"body":            event.Preview,
			"sent_at":         event.SentAt,
		}).
		Post(s.webhookURL)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 500 {
		return fmt.Errorf("push gateway status %d", resp.StatusCode())
	}
	if resp.IsError() {
		// 4xx 重试无意义，记录后吞掉
		log.WarnContext(ctx, "push gateway rejected event", "status", resp.StatusCode(), "conversationID", event.ConversationID)
	}
	return nil
}
