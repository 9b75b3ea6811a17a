package handler

import (
	"Atrium/internal/api/dto"
	"Atrium/internal/api/middleware"
	"Atrium/internal/pkg/consts"
	"Atrium/internal/pkg/mongo"
	"Atrium/internal/pkg/response"
	"Atrium/internal/service"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
)

// ChatHandler 访客挂件的 HTTP 入口
type ChatHandler struct {
	identitySvc service.IdentityService
	widgetSvc   service.WidgetService
	signalSvc   service.SignalService
	notifySvc   service.NotifyService
	syncSvc     service.SyncService
}

func NewChatHandler(
	identitySvc service.IdentityService,
	widgetSvc service.WidgetService,
	signalSvc service.SignalService,
	notifySvc service.NotifyService,
	syncSvc service.SyncService,
) *ChatHandler {
	return &ChatHandler{
		identitySvc: identitySvc,
		widgetSvc:   widgetSvc,
		signalSvc:   signalSvc,
		notifySvc:   notifySvc,
		syncSvc:     syncSvc,
	}
}

// Session 签发匿名会话
func (s *ChatHandler) Session(c *gin.Context) {
	resp, err := s.identitySvc.NewSession(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// Intake 提交联系表单，确立身份
func (s *ChatHandler) Intake(c *gin.Context) {
	var req dto.IntakeReq
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, err)
		return
	}
	resp, err := s.identitySvc.Resolve(c.Request.Context(), middleware.VisitorClaims(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// Send 访客发消息
func (s *ChatHandler) Send(c *gin.Context) {
	var req dto.SendMessageReq
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, err)
		return
	}
	claims := middleware.VisitorClaims(c)
	id, err := s.widgetSvc.Compose(c.Request.Context(), claims, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	s.notifySvc.MessageArrived(c.Request.Context(), &mongo.Message{
		ID:             id,
		ConversationID: claims.ConversationID,
		Name:           claims.Name,
		Content:        req.Content,
		Sender:         consts.RoleVisitor,
		CreatedAt:      time.Now().UnixMilli(),
	})
	response.Success(c, gin.H{"id": id})
}

// Typing 键入状态上报
func (s *ChatHandler) Typing(c *gin.Context) {
	var req dto.TypingReq
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, err)
		return
	}
	claims := middleware.VisitorClaims(c)
	if claims == nil || claims.ConversationID == "" {
		response.Error(c, service.ErrIdentityNotResolved)
		return
	}
	err := s.signalSvc.SetTyping(c.Request.Context(), claims.SessionID, claims.ConversationID, consts.RoleVisitor, req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Panel 面板开合：展开即认为正在看会话，收起恢复角标累计
func (s *ChatHandler) Panel(c *gin.Context) {
	var req dto.PanelReq
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, err)
		return
	}
	claims := middleware.VisitorClaims(c)
	if claims == nil || claims.SessionID == "" {
		response.Error(c, service.ErrIdentityNotResolved)
		return
	}

	s.widgetSvc.SetPanel(claims.SessionID, req.State)
	if req.State == consts.PanelOpen && claims.ConversationID != "" {
		s.notifySvc.SetViewing(claims.SessionID, claims.ConversationID, consts.NotifyTargetVisitor)
	} else {
		s.notifySvc.ClearViewing(claims.SessionID)
	}
	response.Success(c, nil)
}

// History 当前会话全量消息
func (s *ChatHandler) History(c *gin.Context) {
	claims := middleware.VisitorClaims(c)
	if claims == nil || claims.ConversationID == "" {
		response.Error(c, service.ErrIdentityNotResolved)
		return
	}
	msgs, err := s.syncSvc.Snapshot(c.Request.Context(), claims.ConversationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toMessageDTOs(msgs))
}

func toMessageDTOs(msgs []*mongo.Message) []*dto.MessageDTO {
	list := make([]*dto.MessageDTO, 0, len(msgs))
	if err := copier.Copy(&list, &msgs); err != nil {
		return []*dto.MessageDTO{}
	}
	return list
}
