package service

import (
	"Atrium/internal/pkg/consts"
	"Atrium/internal/pkg/kafka"
	"Atrium/internal/pkg/mongo"
	"context"
	log "log/slog"
	"sync"
	"unicode/utf8"
)

const previewRunes = 80

// NotifyService 离线通知编排：维护"谁正在看哪个会话"的观察登记，
// 消息到达时接收方不在看才投递事件。通知失败不影响消息本身。
type NotifyService interface {
	SetViewing(sessionID, convID, role string)
	ClearViewing(sessionID string)
	MessageArrived(ctx context.Context, msg *mongo.Message)
}

type viewerRef struct {
	convID string
	role   string
}

type notifyServiceImpl struct {
	producer kafka.NotifyProducer

	mu      sync.RWMutex
	viewers map[string]viewerRef
}

func NewNotifyService(producer kafka.NotifyProducer) NotifyService {
	return &notifyServiceImpl{
		producer: producer,
		viewers:  make(map[string]viewerRef),
	}
}

// SetViewing 登记某连接正在看某会话（访客面板展开 / 运营者选中会话）
func (s *notifyServiceImpl) SetViewing(sessionID, convID, role string) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if convID == "" {
		delete(s.viewers, sessionID)
		return
	}
	s.viewers[sessionID] = viewerRef{convID: convID, role: role}
}

func (s *notifyServiceImpl) ClearViewing(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.viewers, sessionID)
}

// MessageArrived 发送方反推接收方：访客消息通知运营者，反之亦然
func (s *notifyServiceImpl) MessageArrived(ctx context.Context, msg *mongo.Message) {
	if s.producer == nil {
		return
	}

	target := consts.NotifyTargetOperator
	if msg.Sender == consts.RoleOperator {
		target = consts.NotifyTargetVisitor
	}
	if s.viewing(msg.ConversationID, target) {
		return
	}

	err := s.producer.Emit(ctx, &kafka.NotifyEvent{
		ConversationID: msg.ConversationID,
		Target:         target,
		Name:           msg.Name,
		Preview:        preview(msg.Content),
		SentAt:         msg.CreatedAt,
	})
	if err != nil {
		log.WarnContext(ctx, "通知事件投递失败", "conversationID", msg.ConversationID, "err", err)
	}
}

func (s *notifyServiceImpl) viewing(convID, role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ref := range s.viewers {
		if ref.convID == convID && ref.role == role {
			return true
		}
	}
	return false
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewRunes]) + "…"
}
