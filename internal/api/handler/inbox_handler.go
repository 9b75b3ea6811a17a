package handler

import (
	"Atrium/internal/api/dto"
	"Atrium/internal/pkg/consts"
	"Atrium/internal/pkg/mongo"
	"Atrium/internal/pkg/response"
	"Atrium/internal/pkg/security"
	"Atrium/internal/service"
	"time"

	"github.com/gin-gonic/gin"
)

// operatorClaims 取鉴权中间件写入的运营者身份，缺席时返回 nil
func operatorClaims(c *gin.Context) *security.ChatClaims {
	if v, ok := c.Get("claims"); ok {
		if claims, ok := v.(*security.ChatClaims); ok {
			return claims
		}
	}
	return nil
}

// InboxHandler 运营者收件箱的 HTTP 入口
type InboxHandler struct {
	inboxSvc  service.InboxService
	syncSvc   service.SyncService
	signalSvc service.SignalService
	notifySvc service.NotifyService
}

func NewInboxHandler(inboxSvc service.InboxService, syncSvc service.SyncService, signalSvc service.SignalService, notifySvc service.NotifyService) *InboxHandler {
	return &InboxHandler{
		inboxSvc:  inboxSvc,
		syncSvc:   syncSvc,
		signalSvc: signalSvc,
		notifySvc: notifySvc,
	}
}

// Conversations 侧栏概要列表，?name= 按称呼过滤
func (s *InboxHandler) Conversations(c *gin.Context) {
	if err := s.inboxSvc.Authorize(operatorClaims(c)); err != nil {
		response.Error(c, err)
		return
	}
	summaries, err := s.inboxSvc.Summaries(c.Request.Context(), c.Query("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summaries)
}

// Messages 单会话全量消息
func (s *InboxHandler) Messages(c *gin.Context) {
	if err := s.inboxSvc.Authorize(operatorClaims(c)); err != nil {
		response.Error(c, err)
		return
	}
	convID := c.Query("conversation_id")
	if convID == "" {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	msgs, err := s.syncSvc.Snapshot(c.Request.Context(), convID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toMessageDTOs(msgs))
}

// Read 选中会话：置已读并登记"正在看"
func (s *InboxHandler) Read(c *gin.Context) {
	var req dto.MarkReadReq
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, err)
		return
	}
	if err := s.inboxSvc.Select(c.Request.Context(), req.ConversationID); err != nil {
		response.Error(c, err)
		return
	}
	s.notifySvc.SetViewing(c.GetString("email"), req.ConversationID, consts.NotifyTargetOperator)
	response.Success(c, nil)
}

// Reply 运营者回复
func (s *InboxHandler) Reply(c *gin.Context) {
	var req dto.SendMessageReq
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, err)
		return
	}
	email := c.GetString("email")
	id, err := s.inboxSvc.Reply(c.Request.Context(), email, req.ConversationID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}

	s.notifySvc.MessageArrived(c.Request.Context(), &mongo.Message{
		ID:             id,
		ConversationID: req.ConversationID,
		Email:          email,
		Content:        req.Content,
		Sender:         consts.RoleOperator,
		CreatedAt:      time.Now().UnixMilli(),
	})
	response.Success(c, gin.H{"id": id})
}

// Typing 运营者键入状态上报
func (s *InboxHandler) Typing(c *gin.Context) {
	var req dto.TypingReq
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, err)
		return
	}
	if req.ConversationID == "" {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	err := s.signalSvc.SetTyping(c.Request.Context(), c.GetString("email"), req.ConversationID, consts.RoleOperator, req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// DeleteMessage 删除单条消息
func (s *InboxHandler) DeleteMessage(c *gin.Context) {
	var req dto.DeleteMessageReq
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, err)
		return
	}
	if err := s.inboxSvc.DeleteMessage(c.Request.Context(), req.ConversationID, req.MessageID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
