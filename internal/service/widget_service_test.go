package service

import (
	"Atrium/internal/api/dto"
	"Atrium/internal/pkg/consts"
	"Atrium/internal/pkg/mongo"
	"Atrium/internal/pkg/security"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chattingClaims() *security.ChatClaims {
	return &security.ChatClaims{
		Role: consts.RoleVisitor, SessionID: "s1", ConversationID: "c1",
		Name: "张三", Email: "z@example.com", Submitted: true,
	}
}

func TestWidget_State(t *testing.T) {
	svc := NewWidgetService(nil)

	assert.Equal(t, WidgetStateNoIdentity, svc.State(nil))
	assert.Equal(t, WidgetStateNoIdentity, svc.State(visitorClaims("s1")))

	submitted := visitorClaims("s1")
	submitted.Submitted = true
	assert.Equal(t, WidgetStateSubmitted, svc.State(submitted))

	assert.Equal(t, WidgetStateChatting, svc.State(chattingClaims()))
}

func TestWidget_Compose(t *testing.T) {
	ctx := context.Background()
	msgRepo := newFakeMessageRepo()
	syncSvc := NewSyncService(msgRepo, nil, newFakeBus())
	svc := NewWidgetService(syncSvc)

	t.Run("身份未确立拒绝", func(t *testing.T) {
		_, err := svc.Compose(ctx, visitorClaims("s1"), &dto.SendMessageReq{Content: "hi"})
		assert.ErrorIs(t, err, ErrIdentityNotResolved)
	})

	t.Run("署名取自令牌", func(t *testing.T) {
		_, err := svc.Compose(ctx, chattingClaims(), &dto.SendMessageReq{ConversationID: "c-forged", Content: "hi"})
		require.NoError(t, err)

		msgs, _ := msgRepo.ListByConversation(ctx, "c1")
		require.Len(t, msgs, 1, "会话 ID 以令牌为准，请求体伪造无效")
		assert.Equal(t, "张三", msgs[0].Name)
		assert.Equal(t, consts.RoleVisitor, msgs[0].Sender)
		assert.False(t, msgs[0].Read)
	})
}

func TestWidget_Badge(t *testing.T) {
	svc := NewWidgetService(nil)

	op := func(id string) *mongo.Message {
		return &mongo.Message{ID: id, Sender: consts.RoleOperator}
	}
	visitor := func(id string) *mongo.Message {
		return &mongo.Message{ID: id, Sender: consts.RoleVisitor}
	}

	// 新连接的首个快照是历史回放，不计入角标
	badge := svc.ObserveSnapshot("s1", []*mongo.Message{visitor("m1"), op("m2"), op("m3")})
	assert.Equal(t, 0, badge, "历史消息不是新消息")

	// 面板收起：此后新到的运营者消息累计角标，访客自己的消息不计
	badge = svc.ObserveSnapshot("s1", []*mongo.Message{visitor("m1"), op("m2"), op("m3"), visitor("m4"), op("m5")})
	assert.Equal(t, 1, badge)

	// 全量快照重放不重复累计
	badge = svc.ObserveSnapshot("s1", []*mongo.Message{visitor("m1"), op("m2"), op("m3"), visitor("m4"), op("m5")})
	assert.Equal(t, 1, badge)

	badge = svc.ObserveSnapshot("s1", []*mongo.Message{visitor("m1"), op("m2"), op("m3"), visitor("m4"), op("m5"), op("m6")})
	assert.Equal(t, 2, badge)

	// 面板展开即清零
	svc.SetPanel("s1", consts.PanelOpen)
	assert.True(t, svc.PanelOpen("s1"))
	badge = svc.ObserveSnapshot("s1", []*mongo.Message{op("m5"), op("m6"), op("m7")})
	assert.Equal(t, 0, badge, "面板展开期间不累计")

	// 重新收起后从零开始
	svc.SetPanel("s1", consts.PanelClosed)
	badge = svc.ObserveSnapshot("s1", []*mongo.Message{op("m5"), op("m6"), op("m7"), op("m8")})
	assert.Equal(t, 1, badge)

	// 会话之间相互独立，各自从自己的首个快照起算
	assert.Equal(t, 0, svc.ObserveSnapshot("s2", []*mongo.Message{op("m2")}))
	assert.Equal(t, 1, svc.ObserveSnapshot("s2", []*mongo.Message{op("m2"), op("m9")}))

	// 连接关闭丢弃状态，重连后整个快照重新算作历史
	svc.Forget("s1")
	badge = svc.ObserveSnapshot("s1", []*mongo.Message{op("m2"), op("m3"), op("m5")})
	assert.Equal(t, 0, badge)
}
