package service

import (
	"Atrium/internal/api/dto"
	"Atrium/internal/pkg/consts"
	"Atrium/internal/pkg/redis"
	"context"
	log "log/slog"
	"sync"
	"time"
)

// SignalService 即时信号器：typing / presence 按 (会话, 角色) 维护，
// 均为短生命周期标志。typing 带防抖自动清除；两者都有断连清理保障。
type SignalService interface {
	SetTyping(ctx context.Context, sessionID, convID, role string, active bool) error
	SetOnline(ctx context.Context, sessionID, convID, role string, online bool) error
	Heartbeat(ctx context.Context, convID, role string) error

	Signals(ctx context.Context, convID string) (*dto.SignalDTO, error)
	Subscribe(ctx context.Context, convID string, fn func(*dto.SignalDTO)) func()
	SubscribeAll(ctx context.Context, fn func(convID string)) func()

	// Disconnect 执行某连接会话注册过的全部清理动作（WS 读循环退出时调用）
	Disconnect(sessionID string)
}

type flagRef struct {
	convID string
	role   string
}

type signalServiceImpl struct {
	flags       redis.FlagStore
	bus         redis.Bus
	debounce    time.Duration
	presenceTTL time.Duration

	mu       sync.Mutex
	timers   map[string]*time.Timer
	sessions map[string]map[flagRef]struct{}
}

func NewSignalService(flags redis.FlagStore, bus redis.Bus, debounce, presenceTTL time.Duration) SignalService {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	if presenceTTL <= 0 {
		presenceTTL = 30 * time.Second
	}
	return &signalServiceImpl{
		flags:       flags,
		bus:         bus,
		debounce:    debounce,
		presenceTTL: presenceTTL,
		timers:      make(map[string]*time.Timer),
		sessions:    make(map[string]map[flagRef]struct{}),
	}
}

// SetTyping 置位前先登记断连清理，保证不存在"置位成功但清理未注册"的窗口
func (s *signalServiceImpl) SetTyping(ctx context.Context, sessionID, convID, role string, active bool) error {
	key := typingKey(convID, role)

	if active {
		s.track(sessionID, convID, role)

		// TTL 兜底略宽于防抖窗口，进程崩溃时由存储侧收敛
		if err := s.flags.SetFlag(ctx, key, s.debounce+time.Second); err != nil {
			return err
		}
		s.armTimer(key, convID)
	} else {
		s.stopTimer(key)
		if err := s.flags.ClearFlag(ctx, key); err != nil {
			return err
		}
	}

	s.publish(ctx, convID)
	return nil
}

// SetOnline 在线标志，心跳续期、断连清理
func (s *signalServiceImpl) SetOnline(ctx context.Context, sessionID, convID, role string, online bool) error {
	key := presenceKey(convID, role)

	if online {
		s.track(sessionID, convID, role)
		if err := s.flags.SetFlag(ctx, key, s.presenceTTL); err != nil {
			return err
		}
	} else {
		if err := s.flags.ClearFlag(ctx, key); err != nil {
			return err
		}
	}

	s.publish(ctx, convID)
	return nil
}

// Heartbeat 续期在线标志，不广播
func (s *signalServiceImpl) Heartbeat(ctx context.Context, convID, role string) error {
	return s.flags.SetFlag(ctx, presenceKey(convID, role), s.presenceTTL)
}

// Signals 读取单会话双角色的全部标志
func (s *signalServiceImpl) Signals(ctx context.Context, convID string) (*dto.SignalDTO, error) {
	sig := &dto.SignalDTO{ConversationID: convID}

	var err error
	if sig.Typing.Visitor, err = s.flags.GetFlag(ctx, typingKey(convID, consts.RoleVisitor)); err != nil {
		return nil, err
	}
	if sig.Typing.Operator, err = s.flags.GetFlag(ctx, typingKey(convID, consts.RoleOperator)); err != nil {
		return nil, err
	}
	if sig.Online.Visitor, err = s.flags.GetFlag(ctx, presenceKey(convID, consts.RoleVisitor)); err != nil {
		return nil, err
	}
	if sig.Online.Operator, err = s.flags.GetFlag(ctx, presenceKey(convID, consts.RoleOperator)); err != nil {
		return nil, err
	}
	return sig, nil
}

// Subscribe 订阅单会话信号，每次通知全量回读
func (s *signalServiceImpl) Subscribe(ctx context.Context, convID string, fn func(*dto.SignalDTO)) func() {
	sub := s.bus.Subscribe(ctx, consts.ChatSignalKey+convID)

	go func() {
		s.deliver(ctx, convID, fn)
		for range sub.C() {
			s.deliver(ctx, convID, fn)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = sub.Close()
		})
	}
}

// SubscribeAll 收件箱模式：只告知哪个会话的信号变了
func (s *signalServiceImpl) SubscribeAll(ctx context.Context, fn func(convID string)) func() {
	sub := s.bus.Subscribe(ctx, consts.ChatSignalFirehoseKey)

	go func() {
		for payload := range sub.C() {
			fn(payload)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = sub.Close()
		})
	}
}

// Disconnect 连接异常断开：清掉该会话登记过的全部标志并广播，
// 让其它观察者立即收敛到 false，而不是等待超时
func (s *signalServiceImpl) Disconnect(sessionID string) {
	s.mu.Lock()
	refs := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	ctx := context.Background()
	for ref := range refs {
		s.stopTimer(typingKey(ref.convID, ref.role))
		if err := s.flags.ClearFlag(ctx, typingKey(ref.convID, ref.role)); err != nil {
			log.Warn("断连清理 typing 失败", "conversationID", ref.convID, "role", ref.role, "err", err)
		}
		if err := s.flags.ClearFlag(ctx, presenceKey(ref.convID, ref.role)); err != nil {
			log.Warn("断连清理 presence 失败", "conversationID", ref.convID, "role", ref.role, "err", err)
		}
		s.publish(ctx, ref.convID)
	}
}

func (s *signalServiceImpl) track(sessionID, convID, role string) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[sessionID] == nil {
		s.sessions[sessionID] = make(map[flagRef]struct{})
	}
	s.sessions[sessionID][flagRef{convID: convID, role: role}] = struct{}{}
}

// armTimer 每次键入重置防抖计时器，窗口内无后续输入则自动清除
func (s *signalServiceImpl) armTimer(key, convID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	s.timers[key] = time.AfterFunc(s.debounce, func() {
		ctx := context.Background()
		if err := s.flags.ClearFlag(ctx, key); err != nil {
			log.Warn("typing 防抖清除失败", "key", key, "err", err)
		}
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		s.publish(ctx, convID)
	})
}

func (s *signalServiceImpl) stopTimer(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

func (s *signalServiceImpl) deliver(ctx context.Context, convID string, fn func(*dto.SignalDTO)) {
	sig, err := s.Signals(ctx, convID)
	if err != nil {
		log.WarnContext(ctx, "信号读取失败，跳过本次推送", "conversationID", convID, "err", err)
		return
	}
	fn(sig)
}

func (s *signalServiceImpl) publish(ctx context.Context, convID string) {
	if err := s.bus.Publish(ctx, consts.ChatSignalKey+convID, []byte(convID)); err != nil {
		log.WarnContext(ctx, "信号广播失败", "conversationID", convID, "err", err)
	}
	if err := s.bus.Publish(ctx, consts.ChatSignalFirehoseKey, []byte(convID)); err != nil {
		log.WarnContext(ctx, "信号全量广播失败", "conversationID", convID, "err", err)
	}
}

func typingKey(convID, role string) string {
	return consts.ChatTypingKey + convID + ":" + role
}

func presenceKey(convID, role string) string {
	return consts.ChatPresenceKey + convID + ":" + role
}
