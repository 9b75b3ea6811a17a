package service

import (
	"Atrium/internal/api/dto"
	"Atrium/internal/model"
	"Atrium/internal/pkg/consts"
	"Atrium/internal/pkg/mongo"
	"Atrium/internal/pkg/security"
	"Atrium/internal/repository"
	"context"
	log "log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// IdentityService 访客身份解析：匿名会话 -> 联系表单 -> 稳定会话 ID。
// 同一邮箱多次提交复用最早会话，令牌承载解析结果（客户端的持久身份缓存）。
type IdentityService interface {
	NewSession(ctx context.Context) (*dto.SessionResp, error)
	Resolve(ctx context.Context, claims *security.ChatClaims, req *dto.IntakeReq) (*dto.IntakeResp, error)
}

type identityServiceImpl struct {
	convRepo repository.ConversationRepo
	sync     SyncService
	validate *validator.Validate
}

func NewIdentityService(convRepo repository.ConversationRepo, sync SyncService) IdentityService {
	return &identityServiceImpl{
		convRepo: convRepo,
		sync:     sync,
		validate: validator.New(),
	}
}

// NewSession 签发匿名会话：随机会话 ID + 未解析访客令牌
func (s *identityServiceImpl) NewSession(ctx context.Context) (*dto.SessionResp, error) {
	sessionID := uuid.NewString()
	token, err := security.GenerateVisitorToken(sessionID, "", "", "", false)
	if err != nil {
		log.ErrorContext(ctx, "访客令牌签发失败", "err", err)
		return nil, UnExpectedError
	}
	return &dto.SessionResp{SessionID: sessionID, Token: token}, nil
}

// Resolve 提交联系表单确立身份。解析结果写回新令牌，之后同一浏览器
// 的所有请求都会落到同一会话；换了邮箱则按邮箱复用既有会话。
func (s *identityServiceImpl) Resolve(ctx context.Context, claims *security.ChatClaims, req *dto.IntakeReq) (*dto.IntakeResp, error) {
	if claims == nil || claims.SessionID == "" {
		return nil, ErrIdentityNotReady
	}

	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	content := strings.TrimSpace(req.Message)
	if name == "" {
		return nil, ErrNameRequired
	}
	if s.validate.Var(email, "required,email") != nil {
		return nil, ErrEmailInvalid
	}
	if content == "" {
		return nil, ErrMessageRequired
	}

	// 已解析过的令牌重复提交：会话固定在令牌内，留言照常落到既有会话
	if claims.Submitted && claims.ConversationID != "" {
		if _, err := s.sync.Append(ctx, &mongo.Message{
			ConversationID: claims.ConversationID,
			Name:           name,
			Email:          email,
			Content:        content,
			Sender:         consts.RoleVisitor,
		}); err != nil {
			return nil, err
		}
		return s.issue(ctx, claims.SessionID, claims.ConversationID, name, email)
	}

	conv, err := s.convRepo.FindByEmail(ctx, email)
	if err != nil {
		log.ErrorContext(ctx, "会话查询失败", "email", email, "err", err)
		return nil, UnExpectedError
	}

	convID := claims.SessionID
	if conv != nil {
		convID = conv.ID
	} else {
		if err = s.convRepo.Create(ctx, &model.Conversation{ID: convID, Name: name, Email: email}); err != nil {
			log.ErrorContext(ctx, "会话创建失败", "conversationID", convID, "err", err)
			return nil, UnExpectedError
		}
	}

	if _, err = s.sync.Append(ctx, &mongo.Message{
		ConversationID: convID,
		Name:           name,
		Email:          email,
		Content:        content,
		Sender:         consts.RoleVisitor,
	}); err != nil {
		return nil, err
	}

	return s.issue(ctx, claims.SessionID, convID, name, email)
}

func (s *identityServiceImpl) issue(ctx context.Context, sessionID, convID, name, email string) (*dto.IntakeResp, error) {
	token, err := security.GenerateVisitorToken(sessionID, convID, name, email, true)
	if err != nil {
		log.ErrorContext(ctx, "访客令牌签发失败", "conversationID", convID, "err", err)
		return nil, UnExpectedError
	}
	return &dto.IntakeResp{ConversationID: convID, Token: token, Submitted: true}, nil
}
