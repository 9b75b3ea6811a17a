package job

import (
	"Atrium/internal/pkg/consts"
	"Atrium/internal/pkg/redis"
	"context"
	log "log/slog"
	"strings"
)

// SignalSweepJob 信号收敛兜底：typing / presence 标志靠 TTL 过期时
// 存储侧不会产生任何变更事件，订阅方会一直停留在旧状态。
// 定期比对两次扫描结果，对"悄悄消失"的标志补发一次变更广播。
type SignalSweepJob struct {
	flags redis.FlagStore
	bus   redis.Bus

	lastSeen map[string]struct{}
}

func NewSignalSweepJob(flags redis.FlagStore, bus redis.Bus) *SignalSweepJob {
	return &SignalSweepJob{
		flags:    flags,
		bus:      bus,
		lastSeen: make(map[string]struct{}),
	}
}

func (s *SignalSweepJob) Run() {
	ctx := context.Background()

	current := make(map[string]struct{})
	for _, pattern := range []string{consts.ChatTypingKey + "*", consts.ChatPresenceKey + "*"} {
		keys, err := s.flags.ListFlags(ctx, pattern)
		if err != nil {
			log.Error("signal sweep scan failed", "pattern", pattern, "err", err)
			return
		}
		for _, key := range keys {
			current[key] = struct{}{}
		}
	}

	// 上轮还在、这轮没了的标志：TTL 过期，补发广播
	notified := make(map[string]struct{})
	for key := range s.lastSeen {
		if _, ok := current[key]; ok {
			continue
		}
		convID := conversationOf(key)
		if convID == "" {
			continue
		}
		if _, done := notified[convID]; done {
			continue
		}
		notified[convID] = struct{}{}

		if err := s.bus.Publish(ctx, consts.ChatSignalKey+convID, []byte(convID)); err != nil {
			log.Error("signal sweep publish failed", "conversationID", convID, "err", err)
		}
		if err := s.bus.Publish(ctx, consts.ChatSignalFirehoseKey, []byte(convID)); err != nil {
			log.Error("signal sweep publish failed", "conversationID", convID, "err", err)
		}
	}

	s.lastSeen = current
}

// conversationOf 从标志键里取会话 ID，键形如 chat:typing:<convID>:<role>
func conversationOf(key string) string {
	rest := strings.TrimPrefix(key, consts.ChatTypingKey)
	if rest == key {
		rest = strings.TrimPrefix(key, consts.ChatPresenceKey)
		if rest == key {
			return ""
		}
	}
	idx := strings.LastIndex(rest, ":")
	if idx <= 0 {
		return ""
	}
	return rest[:idx]
}
