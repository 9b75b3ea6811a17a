package handler

import (
	"Atrium/internal/api/dto"
	"Atrium/internal/api/middleware"
	"Atrium/internal/pkg/consts"
	"Atrium/internal/pkg/mongo"
	"Atrium/internal/pkg/response"
	"Atrium/internal/service"
	"context"
	log "log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const heartbeatInterval = 10 * time.Second

type WsHandler struct {
	syncSvc   service.SyncService
	signalSvc service.SignalService
	widgetSvc service.WidgetService
	inboxSvc  service.InboxService
	notifySvc service.NotifyService
}

func NewWsHandler(
	syncSvc service.SyncService,
	signalSvc service.SignalService,
	widgetSvc service.WidgetService,
	inboxSvc service.InboxService,
	notifySvc service.NotifyService,
) *WsHandler {
	return &WsHandler{
		syncSvc:   syncSvc,
		signalSvc: signalSvc,
		widgetSvc: widgetSvc,
		inboxSvc:  inboxSvc,
		notifySvc: notifySvc,
	}
}

// ChatConnect 访客推送通道：全量消息快照 + 信号
func (s *WsHandler) ChatConnect(c *gin.Context) {
	claims := middleware.VisitorClaims(c)
	if claims == nil || !claims.Submitted || claims.ConversationID == "" {
		response.Error(c, service.ErrIdentityNotResolved)
		return
	}
	sessionID := claims.SessionID
	convID := claims.ConversationID

	// 升级 Websocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	ctx := context.Background()
	stopChan := make(chan struct{})
	out := make(chan any, 16)
	push := func(frame any) {
		select {
		case out <- frame:
		case <-stopChan:
		}
	}

	unsubMsg := s.syncSvc.Subscribe(ctx, convID, func(msgs []*mongo.Message) {
		badge := s.widgetSvc.ObserveSnapshot(sessionID, msgs)
		push(&dto.SnapshotFrame{
			Type:           "snapshot",
			ConversationID: convID,
			Messages:       toMessageDTOs(msgs),
			Badge:          badge,
		})
	})
	defer unsubMsg()

	unsubSig := s.signalSvc.Subscribe(ctx, convID, func(sig *dto.SignalDTO) {
		push(&dto.SignalFrame{Type: "signal", Signal: *sig})
	})
	defer unsubSig()

	if err = s.signalSvc.SetOnline(ctx, sessionID, convID, consts.RoleVisitor, true); err != nil {
		log.Warn("presence 置位失败", "conversationID", convID, "err", err)
	}

	log.Info("访客 WS 连接已建立", "conversationID", convID)

	// 读循环：监听客户端主动断开
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(stopChan)
				return
			}
		}
	}()

	s.pump(conn, out, stopChan, func() {
		s.signalSvc.Heartbeat(ctx, convID, consts.RoleVisitor)
	})

	// 断连清理：标志收敛、角标丢弃、观察登记撤销
	s.signalSvc.Disconnect(sessionID)
	s.widgetSvc.Forget(sessionID)
	s.notifySvc.ClearViewing(sessionID)
	log.Info("访客 WS 连接已断开", "conversationID", convID)
}

// InboxConnect 运营者推送通道：收件箱概要 + 选中会话的快照与信号
func (s *WsHandler) InboxConnect(c *gin.Context) {
	if err := s.inboxSvc.Authorize(operatorClaims(c)); err != nil {
		response.Error(c, err)
		return
	}
	email := c.GetString("email")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	ctx := context.Background()
	stopChan := make(chan struct{})
	out := make(chan any, 16)
	push := func(frame any) {
		select {
		case out <- frame:
		case <-stopChan:
		}
	}

	pushInbox := func() {
		summaries, err := s.inboxSvc.Summaries(ctx, "")
		if err != nil {
			log.Warn("收件箱概要读取失败，跳过本次推送", "err", err)
			return
		}
		push(&dto.InboxFrame{Type: "inbox", Conversations: summaries})
	}

	unsubMsg := s.syncSvc.SubscribeAll(ctx, func(map[string]*service.ConversationView) {
		pushInbox()
	})
	defer unsubMsg()

	unsubSig := s.signalSvc.SubscribeAll(ctx, func(string) {
		pushInbox()
	})
	defer unsubSig()

	log.Info("运营者 WS 连接已建立", "email", email)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(stopChan)
				return
			}
		}
	}()

	s.pump(conn, out, stopChan, nil)

	s.signalSvc.Disconnect(email)
	s.notifySvc.ClearViewing(email)
	log.Info("运营者 WS 连接已断开", "email", email)
}

// pump 写循环：推送帧、定期心跳，直到连接断开
func (s *WsHandler) pump(conn *websocket.Conn, out <-chan any, stopChan <-chan struct{}, heartbeat func()) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(frame); err != nil {
				log.Error("WS 推送失败", "err", err)
				return
			}
		case <-ticker.C:
			if heartbeat != nil {
				heartbeat()
			}
		case <-stopChan:
			return
		}
	}
}
