package service

import (
	"Atrium/internal/pkg/consts"
	"Atrium/internal/pkg/mongo"
	"context"
	log "log/slog"
)

// ReadStateService 已读状态追踪：未读量是快照的纯函数，不产生额外读请求
type ReadStateService interface {
	UnreadCount(msgs []*mongo.Message) int
	HasUnread(msgs []*mongo.Message) bool
	FirstUnread(msgs []*mongo.Message) *mongo.Message
	MarkRead(ctx context.Context, convID string) error
}

type readStateServiceImpl struct {
	sync SyncService
}

func NewReadStateService(sync SyncService) ReadStateService {
	return &readStateServiceImpl{sync: sync}
}

// UnreadCount 访客发出且未读的消息数
func (s *readStateServiceImpl) UnreadCount(msgs []*mongo.Message) int {
	count := 0
	for _, m := range msgs {
		if m.Sender == consts.RoleVisitor && !m.Read {
			count++
		}
	}
	return count
}

func (s *readStateServiceImpl) HasUnread(msgs []*mongo.Message) bool {
	return s.UnreadCount(msgs) > 0
}

// FirstUnread 定位首条未读访客消息；全部已读时返回 nil（跳转为空操作）
func (s *readStateServiceImpl) FirstUnread(msgs []*mongo.Message) *mongo.Message {
	for _, m := range msgs {
		if m.Sender == consts.RoleVisitor && !m.Read {
			return m
		}
	}
	return nil
}

// MarkRead 会话被选中时调用：对每条未读访客消息逐条置位。
// 各条更新相互独立，不是事务；中途断连留下的半完成状态在下次查看时自愈。
func (s *readStateServiceImpl) MarkRead(ctx context.Context, convID string) error {
	msgs, err := s.sync.Snapshot(ctx, convID)
	if err != nil {
		return ErrStoreWrite
	}

	var firstErr error
	changed := false
	for _, m := range msgs {
		if m.Sender != consts.RoleVisitor || m.Read {
			continue
		}
		if err := s.sync.SetRead(ctx, convID, m.ID, true); err != nil {
			log.WarnContext(ctx, "已读置位失败，留待下次查看自愈", "conversationID", convID, "messageID", m.ID, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		changed = true
	}

	if changed {
		s.sync.NotifyChanged(ctx, convID)
	}
	return firstErr
}
