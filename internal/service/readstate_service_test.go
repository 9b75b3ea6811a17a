package service

import (
	"Atrium/internal/pkg/consts"
	"Atrium/internal/pkg/mongo"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadState_Counting(t *testing.T) {
	svc := NewReadStateService(nil)

	msgs := []*mongo.Message{
		{ID: "m1", Sender: consts.RoleVisitor, Read: true},
		{ID: "m2", Sender: consts.RoleOperator, Read: false}, // 运营者消息不计入
		{ID: "m3", Sender: consts.RoleVisitor, Read: false},
		{ID: "m4", Sender: consts.RoleVisitor, Read: false},
	}

	assert.Equal(t, 2, svc.UnreadCount(msgs))
	assert.True(t, svc.HasUnread(msgs))
	require.NotNil(t, svc.FirstUnread(msgs))
	assert.Equal(t, "m3", svc.FirstUnread(msgs).ID)

	assert.Equal(t, 0, svc.UnreadCount(nil))
	assert.Nil(t, svc.FirstUnread(nil))
}

func TestReadState_MarkRead(t *testing.T) {
	ctx := context.Background()

	t.Run("全部置位并只广播一次", func(t *testing.T) {
		repo := newFakeMessageRepo()
		bus := newFakeBus()
		syncSvc := NewSyncService(repo, nil, bus)
		svc := NewReadStateService(syncSvc)

		sub := bus.Subscribe(ctx, consts.ChatConversationKey+"c1")
		defer sub.Close()

		_, err := syncSvc.Append(ctx, &mongo.Message{ConversationID: "c1", Content: "a", Sender: consts.RoleVisitor, CreatedAt: 1000})
		require.NoError(t, err)
		_, err = syncSvc.Append(ctx, &mongo.Message{ConversationID: "c1", Content: "b", Sender: consts.RoleVisitor, CreatedAt: 2000})
		require.NoError(t, err)

		// 跳过 Append 自身的两次广播
		<-sub.C()
		<-sub.C()

		require.NoError(t, svc.MarkRead(ctx, "c1"))

		msgs, _ := repo.ListByConversation(ctx, "c1")
		for _, m := range msgs {
			assert.True(t, m.Read)
		}
		<-sub.C()
		select {
		case <-sub.C():
			t.Fatal("期望只广播一次")
		default:
		}

		// 再次选中已无未读，不再广播
		require.NoError(t, svc.MarkRead(ctx, "c1"))
		select {
		case <-sub.C():
			t.Fatal("无变更时不应广播")
		default:
		}
	})

	t.Run("单条失败不阻断其余置位", func(t *testing.T) {
		repo := newFakeMessageRepo()
		syncSvc := NewSyncService(repo, nil, newFakeBus())
		svc := NewReadStateService(syncSvc)

		id1, err := syncSvc.Append(ctx, &mongo.Message{ConversationID: "c1", Content: "a", Sender: consts.RoleVisitor, CreatedAt: 1000})
		require.NoError(t, err)
		_, err = syncSvc.Append(ctx, &mongo.Message{ConversationID: "c1", Content: "b", Sender: consts.RoleVisitor, CreatedAt: 2000})
		require.NoError(t, err)

		repo.failRead[id1] = true

		err = svc.MarkRead(ctx, "c1")
		assert.Error(t, err)

		msgs, _ := repo.ListByConversation(ctx, "c1")
		read := 0
		for _, m := range msgs {
			if m.Read {
				read++
			}
		}
		assert.Equal(t, 1, read)

		// 失败的那条恢复后自愈
		delete(repo.failRead, id1)
		require.NoError(t, svc.MarkRead(ctx, "c1"))
		msgs, _ = repo.ListByConversation(ctx, "c1")
		for _, m := range msgs {
			assert.True(t, m.Read)
		}
	})
}
