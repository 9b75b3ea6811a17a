package redis

import (
	"context"
	"time"
)

// FlagStore 短生命周期布尔标志存储，用于 typing / presence
// 带 TTL 兜底：进程崩溃后标志也会自行收敛为 false
type FlagStore interface {
	SetFlag(ctx context.Context, key string, ttl time.Duration) error
	ClearFlag(ctx context.Context, key string) error
	GetFlag(ctx context.Context, key string) (bool, error)
	// ListFlags 按模式枚举当前置位的标志键
	ListFlags(ctx context.Context, pattern string) ([]string, error)
}

type redisFlagStore struct{}

func NewFlagStore() FlagStore {
	return &redisFlagStore{}
}

func (s *redisFlagStore) SetFlag(ctx context.Context, key string, ttl time.Duration) error {
	return Rdb.Set(ctx, key, "1", ttl).Err()
}

func (s *redisFlagStore) ClearFlag(ctx context.Context, key string) error {
	return Rdb.Del(ctx, key).Err()
}

func (s *redisFlagStore) GetFlag(ctx context.Context, key string) (bool, error) {
	n, err := Rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisFlagStore) ListFlags(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := Rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}
