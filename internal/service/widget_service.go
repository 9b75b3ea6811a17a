package service

import (
	"Atrium/internal/api/dto"
	"Atrium/internal/pkg/consts"
	"Atrium/internal/pkg/mongo"
	"Atrium/internal/pkg/security"
	"context"
	"strings"
	"sync"
)

// 访客侧挂件状态机
const (
	WidgetStateNoIdentity = "no-identity" // 仅匿名会话，需先提交联系表单
	WidgetStateSubmitted  = "submitted"   // 表单已提交，会话 ID 尚未写回令牌
	WidgetStateChatting   = "chatting"    // 身份已确立，可收发消息
)

// WidgetService 访客挂件控制器：状态机、消息撰写、面板开合与未读角标。
// 角标是连接级状态：面板收起期间累计对方新消息数，展开即清零。
type WidgetService interface {
	State(claims *security.ChatClaims) string
	Compose(ctx context.Context, claims *security.ChatClaims, req *dto.SendMessageReq) (string, error)
	SetPanel(sessionID, state string)
	PanelOpen(sessionID string) bool
	// ObserveSnapshot 快照到达时记账，返回当前角标值
	ObserveSnapshot(sessionID string, msgs []*mongo.Message) int
	Forget(sessionID string)
}

type widgetSession struct {
	panelOpen bool
	primed    bool // 首个快照已登记为历史
	seen      map[string]struct{}
	badge     int
}

type widgetServiceImpl struct {
	sync SyncService

	mu       sync.Mutex
	sessions map[string]*widgetSession
}

func NewWidgetService(syncSvc SyncService) WidgetService {
	return &widgetServiceImpl{
		sync:     syncSvc,
		sessions: make(map[string]*widgetSession),
	}
}

func (s *widgetServiceImpl) State(claims *security.ChatClaims) string {
	if claims == nil || !claims.Submitted {
		return WidgetStateNoIdentity
	}
	if claims.ConversationID == "" {
		return WidgetStateSubmitted
	}
	return WidgetStateChatting
}

// Compose 访客发消息：会话 ID 与署名一律取自令牌，不信任请求体
func (s *widgetServiceImpl) Compose(ctx context.Context, claims *security.ChatClaims, req *dto.SendMessageReq) (string, error) {
	if s.State(claims) != WidgetStateChatting {
		return "", ErrIdentityNotResolved
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return "", ErrMessageRequired
	}

	return s.sync.Append(ctx, &mongo.Message{
		ConversationID: claims.ConversationID,
		Name:           claims.Name,
		Email:          claims.Email,
		Content:        content,
		Sender:         consts.RoleVisitor,
	})
}

// SetPanel 面板展开即认为对方消息已被看见，角标清零
func (s *widgetServiceImpl) SetPanel(sessionID, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.session(sessionID)
	ws.panelOpen = state == consts.PanelOpen
	if ws.panelOpen {
		ws.badge = 0
	}
}

func (s *widgetServiceImpl) PanelOpen(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session(sessionID).panelOpen
}

// ObserveSnapshot 只对未见过的运营者消息计数，快照重放不会重复累计。
// 连接后的首个快照是历史回放，只登记不入账：角标统计的是面板收起
// 期间新到的消息，不是全量历史。
func (s *widgetServiceImpl) ObserveSnapshot(sessionID string, msgs []*mongo.Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.session(sessionID)
	if !ws.primed {
		ws.primed = true
		for _, m := range msgs {
			if m.Sender == consts.RoleOperator {
				ws.seen[m.ID] = struct{}{}
			}
		}
		if ws.panelOpen {
			ws.badge = 0
		}
		return ws.badge
	}
	for _, m := range msgs {
		if m.Sender != consts.RoleOperator {
			continue
		}
		if _, ok := ws.seen[m.ID]; ok {
			continue
		}
		ws.seen[m.ID] = struct{}{}
		if !ws.panelOpen {
			ws.badge++
		}
	}
	if ws.panelOpen {
		ws.badge = 0
	}
	return ws.badge
}

// Forget 连接关闭后丢弃连接级状态
func (s *widgetServiceImpl) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func (s *widgetServiceImpl) session(sessionID string) *widgetSession {
	ws, ok := s.sessions[sessionID]
	if !ok {
		ws = &widgetSession{seen: make(map[string]struct{})}
		s.sessions[sessionID] = ws
	}
	return ws
}
