package handler

import (
	"Atrium/internal/api/dto"
	"Atrium/internal/pkg/response"
	"Atrium/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	inboxSvc service.InboxService
}

func NewAuthHandler(inboxSvc service.InboxService) *AuthHandler {
	return &AuthHandler{inboxSvc: inboxSvc}
}

func (s *AuthHandler) Login(c *gin.Context) {
	var req dto.OperatorLoginReq
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, err)
		return
	}
	resp, err := s.inboxSvc.Login(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

func (s *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString("token")
	if err := s.inboxSvc.Logout(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
