package service

import (
	"Atrium/internal/pkg/consts"
	"Atrium/internal/pkg/mongo"
	"Atrium/internal/pkg/redis"
	"Atrium/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// ConversationView 单会话的聚合视图，Messages 已按时间升序排好
type ConversationView struct {
	ConversationID string
	Name           string
	Email          string
	Messages       []*mongo.Message
}

// SyncService 会话同步器：订阅方在每次变更通知后拿到完整快照（全量替换，非增量）
type SyncService interface {
	Append(ctx context.Context, msg *mongo.Message) (string, error)
	Delete(ctx context.Context, convID, msgID string) error
	SetRead(ctx context.Context, convID, msgID string, read bool) error
	NotifyChanged(ctx context.Context, convID string)

	Snapshot(ctx context.Context, convID string) ([]*mongo.Message, error)
	SnapshotAll(ctx context.Context) (map[string]*ConversationView, error)

	Subscribe(ctx context.Context, convID string, fn func([]*mongo.Message)) func()
	SubscribeAll(ctx context.Context, fn func(map[string]*ConversationView)) func()
}

type syncServiceImpl struct {
	messageRepo mongo.MessageRepo
	convRepo    repository.ConversationRepo
	bus         redis.Bus
}

func NewSyncService(messageRepo mongo.MessageRepo, convRepo repository.ConversationRepo, bus redis.Bus) SyncService {
	return &syncServiceImpl{
		messageRepo: messageRepo,
		convRepo:    convRepo,
		bus:         bus,
	}
}

// Append 追加消息：先落库，成功后广播变更
func (s *syncServiceImpl) Append(ctx context.Context, msg *mongo.Message) (string, error) {
	if strings.TrimSpace(msg.Content) == "" {
		return "", ErrMessageRequired
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().UnixMilli()
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id, err := s.messageRepo.Insert(writeCtx, msg)
	if err != nil {
		log.ErrorContext(ctx, "消息写入失败", "conversationID", msg.ConversationID, "err", err)
		return "", ErrStoreWrite
	}

	// 登记表的最近消息时间仅用于收件箱排序，失败不影响主流程
	if s.convRepo != nil {
		if err := s.convRepo.TouchLastMessage(ctx, msg.ConversationID, time.UnixMilli(msg.CreatedAt)); err != nil {
			log.WarnContext(ctx, "更新会话最近消息时间失败", "conversationID", msg.ConversationID, "err", err)
		}
	}

	s.NotifyChanged(ctx, msg.ConversationID)
	return id, nil
}

// Delete 删除单条消息（仅运营者入口会调用）；目标不存在时不广播
func (s *syncServiceImpl) Delete(ctx context.Context, convID, msgID string) error {
	if err := s.messageRepo.Delete(ctx, convID, msgID); err != nil {
		if errors.Is(err, mongo.ErrNotFound) {
			return ErrMessageNotFound
		}
		log.ErrorContext(ctx, "消息删除失败", "conversationID", convID, "messageID", msgID, "err", err)
		return ErrStoreWrite
	}
	s.NotifyChanged(ctx, convID)
	return nil
}

// SetRead 更新单条消息的已读标志，不广播；批量置位后由调用方统一 NotifyChanged
func (s *syncServiceImpl) SetRead(ctx context.Context, convID, msgID string, read bool) error {
	if err := s.messageRepo.SetRead(ctx, convID, msgID, read); err != nil {
		if errors.Is(err, mongo.ErrNotFound) {
			return ErrMessageNotFound
		}
		return ErrStoreWrite
	}
	return nil
}

// NotifyChanged 广播某会话内容已变更，订阅方收到后自行全量回读
func (s *syncServiceImpl) NotifyChanged(ctx context.Context, convID string) {
	if err := s.bus.Publish(ctx, consts.ChatConversationKey+convID, []byte(convID)); err != nil {
		log.WarnContext(ctx, "变更广播失败", "conversationID", convID, "err", err)
	}
	if err := s.bus.Publish(ctx, consts.ChatFirehoseKey, []byte(convID)); err != nil {
		log.WarnContext(ctx, "全量频道广播失败", "conversationID", convID, "err", err)
	}
}

// Snapshot 单会话全量快照，已按时间升序、同刻按存储 ID 定序
func (s *syncServiceImpl) Snapshot(ctx context.Context, convID string) ([]*mongo.Message, error) {
	msgs, err := s.messageRepo.ListByConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	sortMessages(msgs)
	return msgs, nil
}

// SnapshotAll 全部会话的分组快照
func (s *syncServiceImpl) SnapshotAll(ctx context.Context) (map[string]*ConversationView, error) {
	grouped, err := s.messageRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	views := make(map[string]*ConversationView, len(grouped))
	for convID, msgs := range grouped {
		sortMessages(msgs)
		view := &ConversationView{
			ConversationID: convID,
			Messages:       msgs,
		}
		view.Name, view.Email = displayIdentity(msgs)
		views[convID] = view
	}
	return views, nil
}

// Subscribe 订阅单会话。首次回调即为当前快照，此后每次变更通知全量替换。
// 返回的取消函数可重复调用，取消后不再有回调。
func (s *syncServiceImpl) Subscribe(ctx context.Context, convID string, fn func([]*mongo.Message)) func() {
	sub := s.bus.Subscribe(ctx, consts.ChatConversationKey+convID)

	go func() {
		s.deliverOne(ctx, convID, fn)
		for range sub.C() {
			s.deliverOne(ctx, convID, fn)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = sub.Close()
		})
	}
}

// SubscribeAll 订阅全部会话（收件箱模式）
func (s *syncServiceImpl) SubscribeAll(ctx context.Context, fn func(map[string]*ConversationView)) func() {
	sub := s.bus.Subscribe(ctx, consts.ChatFirehoseKey)

	go func() {
		s.deliverAll(ctx, fn)
		for range sub.C() {
			s.deliverAll(ctx, fn)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = sub.Close()
		})
	}
}

// deliverOne 读取失败只跳过本次推送，订阅保持存活
func (s *syncServiceImpl) deliverOne(ctx context.Context, convID string, fn func([]*mongo.Message)) {
	msgs, err := s.Snapshot(ctx, convID)
	if err != nil {
		log.WarnContext(ctx, "快照读取失败，跳过本次推送", "conversationID", convID, "err", err)
		return
	}
	fn(msgs)
}

func (s *syncServiceImpl) deliverAll(ctx context.Context, fn func(map[string]*ConversationView)) {
	views, err := s.SnapshotAll(ctx)
	if err != nil {
		log.WarnContext(ctx, "全量快照读取失败，跳过本次推送", "err", err)
		return
	}
	fn(views)
}

// sortMessages 每个快照都重新排序：存储本身不保证顺序
func sortMessages(msgs []*mongo.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt != msgs[j].CreatedAt {
			return msgs[i].CreatedAt < msgs[j].CreatedAt
		}
		return msgs[i].ID < msgs[j].ID
	})
}

// displayIdentity 从任意一条访客消息取展示身份，没有访客消息时退化取首条
func displayIdentity(msgs []*mongo.Message) (string, string) {
	for _, m := range msgs {
		if m.Sender == consts.RoleVisitor {
			return m.Name, m.Email
		}
	}
	if len(msgs) > 0 {
		return msgs[0].Name, msgs[0].Email
	}
	return "Anonymous", "guest"
}
