package service

import (
	"Atrium/internal/api/config"
	"Atrium/internal/api/dto"
	"Atrium/internal/pkg/consts"
	"Atrium/internal/pkg/mongo"
	"Atrium/internal/pkg/redis"
	"Atrium/internal/pkg/security"
	"Atrium/internal/repository"
	"context"
	log "log/slog"
	"sort"
	"strings"
)

// InboxService 运营者收件箱：登录鉴权、会话列表、选中已读、回复与删除。
// 收件箱只对配置指定的运营者邮箱开放。
type InboxService interface {
	Login(ctx context.Context, req *dto.OperatorLoginReq) (*dto.OperatorLoginResp, error)
	Logout(ctx context.Context, token string) error
	Authorize(claims *security.ChatClaims) error

	Summaries(ctx context.Context, nameFilter string) ([]*dto.ConversationSummaryDTO, error)
	Select(ctx context.Context, convID string) error
	Reply(ctx context.Context, operatorEmail, convID, content string) (string, error)
	DeleteMessage(ctx context.Context, convID, msgID string) error
}

type inboxServiceImpl struct {
	operatorRepo repository.OperatorRepo
	sync         SyncService
	readState    ReadStateService
	signal       SignalService
}

func NewInboxService(operatorRepo repository.OperatorRepo, syncSvc SyncService, readState ReadStateService, signal SignalService) InboxService {
	return &inboxServiceImpl{
		operatorRepo: operatorRepo,
		sync:         syncSvc,
		readState:    readState,
		signal:       signal,
	}
}

// Login 校验账号密码并签发运营者令牌。邮箱白名单与凭证校验
// 统一返回同一个错误，不暴露哪一步失败
func (s *inboxServiceImpl) Login(ctx context.Context, req *dto.OperatorLoginReq) (*dto.OperatorLoginResp, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.EqualFold(email, config.Cfg.Chat.OperatorEmail) {
		return nil, ErrCredentialInvalid
	}

	operator, err := s.operatorRepo.GetByEmail(ctx, email)
	if err != nil {
		log.ErrorContext(ctx, "运营者查询失败", "email", email, "err", err)
		return nil, UnExpectedError
	}
	if operator == nil {
		return nil, ErrCredentialInvalid
	}
	if err = security.CheckPasswordHash(req.Password, operator.PasswordHash); err != nil {
		return nil, ErrCredentialInvalid
	}

	token, err := security.GenerateOperatorToken(email)
	if err != nil {
		log.ErrorContext(ctx, "运营者令牌签发失败", "email", email, "err", err)
		return nil, UnExpectedError
	}
	return &dto.OperatorLoginResp{Token: token, Email: email}, nil
}

// Logout 把令牌签名写进黑名单，有效期与令牌一致
func (s *inboxServiceImpl) Logout(ctx context.Context, token string) error {
	signature, err := security.ExtractSignature(token)
	if err != nil {
		return UnauthorizedError
	}
	if err = redis.SetWithExpiration(ctx, consts.TokenBlockKey+signature, "1", security.OperatorExpiration); err != nil {
		log.ErrorContext(ctx, "令牌拉黑失败", "err", err)
		return UnExpectedError
	}
	return nil
}

func (s *inboxServiceImpl) Authorize(claims *security.ChatClaims) error {
	if claims == nil || claims.Role != consts.RoleOperator {
		return ErrNotOperator
	}
	return nil
}

// Summaries 收件箱侧栏：全量快照聚合出每个会话的概要，
// 按最后一条消息时间倒序；filter 对称呼做大小写无关子串匹配
func (s *inboxServiceImpl) Summaries(ctx context.Context, nameFilter string) ([]*dto.ConversationSummaryDTO, error) {
	views, err := s.sync.SnapshotAll(ctx)
	if err != nil {
		return nil, err
	}

	filter := strings.ToLower(strings.TrimSpace(nameFilter))
	summaries := make([]*dto.ConversationSummaryDTO, 0, len(views))
	for convID, view := range views {
		if filter != "" && !strings.Contains(strings.ToLower(view.Name), filter) {
			continue
		}

		item := &dto.ConversationSummaryDTO{
			ConversationID: convID,
			Name:           view.Name,
			Email:          view.Email,
			UnreadCount:    s.readState.UnreadCount(view.Messages),
		}
		item.HasUnread = item.UnreadCount > 0
		if last := lastMessage(view.Messages); last != nil {
			item.LastMessage = last.Content
			item.LastMessageAt = last.CreatedAt
		}

		if sig, sigErr := s.signal.Signals(ctx, convID); sigErr == nil {
			item.Online = sig.Online.Visitor
			item.Typing = sig.Typing.Visitor
		} else {
			log.WarnContext(ctx, "信号读取失败，概要降级", "conversationID", convID, "err", sigErr)
		}
		summaries = append(summaries, item)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].LastMessageAt != summaries[j].LastMessageAt {
			return summaries[i].LastMessageAt > summaries[j].LastMessageAt
		}
		return summaries[i].ConversationID < summaries[j].ConversationID
	})
	return summaries, nil
}

// Select 运营者选中会话：访客消息全部置已读，并撤掉自己残留的 typing
func (s *inboxServiceImpl) Select(ctx context.Context, convID string) error {
	if convID == "" {
		return ErrParamInvalid
	}
	if err := s.signal.SetTyping(ctx, "", convID, consts.RoleOperator, false); err != nil {
		log.WarnContext(ctx, "typing 撤销失败", "conversationID", convID, "err", err)
	}
	return s.readState.MarkRead(ctx, convID)
}

// Reply 运营者回复：消息落库即已读（运营者不会对自己未读）
func (s *inboxServiceImpl) Reply(ctx context.Context, operatorEmail, convID, content string) (string, error) {
	if convID == "" {
		return "", ErrParamInvalid
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrMessageRequired
	}

	id, err := s.sync.Append(ctx, &mongo.Message{
		ConversationID: convID,
		Email:          operatorEmail,
		Content:        content,
		Sender:         consts.RoleOperator,
		Read:           true,
	})
	if err != nil {
		return "", err
	}

	if err = s.signal.SetTyping(ctx, "", convID, consts.RoleOperator, false); err != nil {
		log.WarnContext(ctx, "typing 撤销失败", "conversationID", convID, "err", err)
	}
	return id, nil
}

func (s *inboxServiceImpl) DeleteMessage(ctx context.Context, convID, msgID string) error {
	if convID == "" || msgID == "" {
		return ErrParamInvalid
	}
	return s.sync.Delete(ctx, convID, msgID)
}

func lastMessage(msgs []*mongo.Message) *mongo.Message {
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}
