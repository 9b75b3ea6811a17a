package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Bus 变更通知总线：只负责告知"某条路径变了"，订阅方自行全量回读
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channels ...string) Subscription
}

// Subscription 一路订阅，Close 可重复调用
type Subscription interface {
	C() <-chan string
	Close() error
}

type redisBus struct{}

// NewBus 基于全局 Redis 客户端构造总线
func NewBus() Bus {
	return &redisBus{}
}

func (s *redisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	return Rdb.Publish(ctx, channel, payload).Err()
}

func (s *redisBus) Subscribe(ctx context.Context, channels ...string) Subscription {
	pubsub := Rdb.Subscribe(ctx, channels...)
	sub := &redisSubscription{
		pubsub: pubsub,
		ch:     make(chan string, 64),
	}
	go sub.pump()
	return sub
}

type redisSubscription struct {
	pubsub *redis.PubSub
	ch     chan string
}

func (s *redisSubscription) pump() {
	defer close(s.ch)
	for msg := range s.pubsub.Channel() {
		s.ch <- msg.Payload
	}
}

func (s *redisSubscription) C() <-chan string {
	return s.ch
}

func (s *redisSubscription) Close() error {
	return s.pubsub.Close()
}
