package service

import (
	"Atrium/internal/model"
	"Atrium/internal/pkg/mongo"
	"Atrium/internal/pkg/redis"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// 内存版消息存储
type fakeMessageRepo struct {
	mu       sync.Mutex
	byConv   map[string][]*mongo.Message
	nextID   int
	failRead map[string]bool // SetRead 对这些消息 ID 报错
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		byConv:   make(map[string][]*mongo.Message),
		failRead: make(map[string]bool),
	}
}

func (f *fakeMessageRepo) Insert(ctx context.Context, msg *mongo.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.ID == "" {
		f.nextID++
		msg.ID = fmt.Sprintf("m%03d", f.nextID)
	}
	clone := *msg
	f.byConv[msg.ConversationID] = append(f.byConv[msg.ConversationID], &clone)
	return msg.ID, nil
}

func (f *fakeMessageRepo) ListByConversation(ctx context.Context, convID string) ([]*mongo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*mongo.Message, 0, len(f.byConv[convID]))
	for _, m := range f.byConv[convID] {
		clone := *m
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeMessageRepo) ListAll(ctx context.Context) (map[string][]*mongo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]*mongo.Message, len(f.byConv))
	for convID, msgs := range f.byConv {
		for _, m := range msgs {
			clone := *m
			out[convID] = append(out[convID], &clone)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) SetRead(ctx context.Context, convID, msgID string, read bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRead[msgID] {
		return errors.New("write rejected")
	}
	for _, m := range f.byConv[convID] {
		if m.ID == msgID {
			m.Read = read
			return nil
		}
	}
	return mongo.ErrNotFound
}

func (f *fakeMessageRepo) Delete(ctx context.Context, convID, msgID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.byConv[convID]
	for i, m := range msgs {
		if m.ID == msgID {
			f.byConv[convID] = append(msgs[:i], msgs[i+1:]...)
			return nil
		}
	}
	return mongo.ErrNotFound
}

// 内存版变更总线
type fakeBus struct {
	mu   sync.Mutex
	subs map[string][]chan string
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: make(map[string][]chan string)}
}

func (f *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	targets := append([]chan string(nil), f.subs[channel]...)
	f.mu.Unlock()
	for _, ch := range targets {
		select {
		case ch <- string(payload):
		default:
		}
	}
	return nil
}

type fakeSubscription struct {
	bus      *fakeBus
	ch       chan string
	channels []string
	once     sync.Once
}

func (f *fakeBus) Subscribe(ctx context.Context, channels ...string) redis.Subscription {
	sub := &fakeSubscription{bus: f, ch: make(chan string, 64), channels: channels}
	f.mu.Lock()
	for _, c := range channels {
		f.subs[c] = append(f.subs[c], sub.ch)
	}
	f.mu.Unlock()
	return sub
}

func (s *fakeSubscription) C() <-chan string { return s.ch }

func (s *fakeSubscription) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		for _, c := range s.channels {
			list := s.bus.subs[c]
			for i, ch := range list {
				if ch == s.ch {
					s.bus.subs[c] = append(list[:i], list[i+1:]...)
					break
				}
			}
		}
		s.bus.mu.Unlock()
		close(s.ch)
	})
	return nil
}

// 内存版标志存储，TTL 记账但不主动过期
type fakeFlagStore struct {
	mu    sync.Mutex
	flags map[string]time.Time
}

func newFakeFlagStore() *fakeFlagStore {
	return &fakeFlagStore{flags: make(map[string]time.Time)}
}

func (f *fakeFlagStore) SetFlag(ctx context.Context, key string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[key] = time.Now().Add(ttl)
	return nil
}

func (f *fakeFlagStore) ClearFlag(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.flags, key)
	return nil
}

func (f *fakeFlagStore) GetFlag(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.flags[key]
	return ok, nil
}

func (f *fakeFlagStore) ListFlags(ctx context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range f.flags {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// 内存版会话登记表
type fakeConversationRepo struct {
	mu    sync.Mutex
	byID  map[string]*model.Conversation
	order []string
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{byID: make(map[string]*model.Conversation)}
}

func (f *fakeConversationRepo) Create(ctx context.Context, conv *model.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *conv
	clone.CreatedAt = time.Now()
	f.byID[conv.ID] = &clone
	f.order = append(f.order, conv.ID)
	return nil
}

func (f *fakeConversationRepo) GetByID(ctx context.Context, convID string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if conv, ok := f.byID[convID]; ok {
		clone := *conv
		return &clone, nil
	}
	return nil, nil
}

func (f *fakeConversationRepo) FindByEmail(ctx context.Context, email string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// 按创建顺序返回最早一条
	for _, id := range f.order {
		if f.byID[id].Email == email {
			clone := *f.byID[id]
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeConversationRepo) TouchLastMessage(ctx context.Context, convID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if conv, ok := f.byID[convID]; ok {
		conv.LastMessageAt = at
	}
	return nil
}

// 内存版运营者账号表
type fakeOperatorRepo struct {
	operators map[string]*model.Operator
}

func (f *fakeOperatorRepo) GetByEmail(ctx context.Context, email string) (*model.Operator, error) {
	if op, ok := f.operators[email]; ok {
		return op, nil
	}
	return nil, nil
}
