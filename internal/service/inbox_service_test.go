package service

import (
	"Atrium/internal/api/config"
	"Atrium/internal/api/dto"
	"Atrium/internal/model"
	"Atrium/internal/pkg/consts"
	"Atrium/internal/pkg/mongo"
	"Atrium/internal/pkg/security"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInboxFixture(t *testing.T) (InboxService, SyncService, *fakeMessageRepo, SignalService) {
	t.Helper()
	config.Cfg = &config.Config{Chat: config.ChatConfig{OperatorEmail: "ops@example.com"}}

	hash, err := security.HashPassword("secret-pass")
	require.NoError(t, err)
	operatorRepo := &fakeOperatorRepo{operators: map[string]*model.Operator{
		"ops@example.com": {ID: 1, Email: "ops@example.com", PasswordHash: hash},
	}}

	msgRepo := newFakeMessageRepo()
	bus := newFakeBus()
	syncSvc := NewSyncService(msgRepo, newFakeConversationRepo(), bus)
	readState := NewReadStateService(syncSvc)
	signal := NewSignalService(newFakeFlagStore(), bus, time.Minute, time.Minute)

	return NewInboxService(operatorRepo, syncSvc, readState, signal), syncSvc, msgRepo, signal
}

func TestInbox_Login(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newInboxFixture(t)

	t.Run("白名单外邮箱拒绝", func(t *testing.T) {
		_, err := svc.Login(ctx, &dto.OperatorLoginReq{Email: "other@example.com", Password: "secret-pass"})
		assert.ErrorIs(t, err, ErrCredentialInvalid)
	})

	t.Run("密码错误拒绝", func(t *testing.T) {
		_, err := svc.Login(ctx, &dto.OperatorLoginReq{Email: "ops@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, ErrCredentialInvalid)
	})

	t.Run("登录成功签发运营者令牌", func(t *testing.T) {
		resp, err := svc.Login(ctx, &dto.OperatorLoginReq{Email: "Ops@Example.com", Password: "secret-pass"})
		require.NoError(t, err)

		claims, err := security.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, consts.RoleOperator, claims.Role)
		assert.Equal(t, "ops@example.com", claims.Email)
	})
}

func TestInbox_Authorize(t *testing.T) {
	svc, _, _, _ := newInboxFixture(t)

	assert.ErrorIs(t, svc.Authorize(nil), ErrNotOperator)
	assert.ErrorIs(t, svc.Authorize(visitorClaims("s1")), ErrNotOperator)
	assert.NoError(t, svc.Authorize(&security.ChatClaims{Role: consts.RoleOperator, Email: "ops@example.com"}))
}

func TestInbox_Summaries(t *testing.T) {
	ctx := context.Background()
	svc, syncSvc, _, signal := newInboxFixture(t)

	seed := func(convID, name, content string, at int64) {
		_, err := syncSvc.Append(ctx, &mongo.Message{
			ConversationID: convID, Name: name, Email: name + "@example.com",
			Content: content, Sender: consts.RoleVisitor, CreatedAt: at,
		})
		require.NoError(t, err)
	}
	seed("c1", "Alice", "早", 1000)
	seed("c1", "Alice", "在吗", 2000)
	seed("c2", "Bob", "你好", 3000)

	require.NoError(t, signal.SetTyping(ctx, "s2", "c2", consts.RoleVisitor, true))

	summaries, err := svc.Summaries(ctx, "")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// 按最近消息时间倒序
	assert.Equal(t, "c2", summaries[0].ConversationID)
	assert.True(t, summaries[0].Typing)
	assert.Equal(t, "你好", summaries[0].LastMessage)

	assert.Equal(t, "c1", summaries[1].ConversationID)
	assert.Equal(t, 2, summaries[1].UnreadCount)
	assert.True(t, summaries[1].HasUnread)
	assert.Equal(t, "在吗", summaries[1].LastMessage)
	assert.EqualValues(t, 2000, summaries[1].LastMessageAt)

	t.Run("称呼过滤大小写无关", func(t *testing.T) {
		filtered, err := svc.Summaries(ctx, "aLi")
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		assert.Equal(t, "Alice", filtered[0].Name)
	})
}

func TestInbox_SelectAndReply(t *testing.T) {
	ctx := context.Background()
	svc, syncSvc, msgRepo, _ := newInboxFixture(t)

	_, err := syncSvc.Append(ctx, &mongo.Message{ConversationID: "c1", Name: "Alice", Content: "在吗", Sender: consts.RoleVisitor, CreatedAt: 1000})
	require.NoError(t, err)

	require.NoError(t, svc.Select(ctx, "c1"))
	msgs, _ := msgRepo.ListByConversation(ctx, "c1")
	assert.True(t, msgs[0].Read, "选中即已读")

	id, err := svc.Reply(ctx, "ops@example.com", "c1", "在的")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs, _ = msgRepo.ListByConversation(ctx, "c1")
	require.Len(t, msgs, 2)
	reply := msgs[1]
	assert.Equal(t, consts.RoleOperator, reply.Sender)
	assert.True(t, reply.Read, "运营者消息落库即已读")

	t.Run("空回复拒绝", func(t *testing.T) {
		_, err := svc.Reply(ctx, "ops@example.com", "c1", "  ")
		assert.ErrorIs(t, err, ErrMessageRequired)
	})

	t.Run("删除消息", func(t *testing.T) {
		require.NoError(t, svc.DeleteMessage(ctx, "c1", id))
		msgs, _ := msgRepo.ListByConversation(ctx, "c1")
		assert.Len(t, msgs, 1)
	})
}
