package service

import (
	"Atrium/internal/pkg/consts"
	"Atrium/internal/pkg/mongo"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSyncFixture() (SyncService, *fakeMessageRepo, *fakeBus) {
	repo := newFakeMessageRepo()
	bus := newFakeBus()
	return NewSyncService(repo, newFakeConversationRepo(), bus), repo, bus
}

func TestSyncService_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("空消息拒绝", func(t *testing.T) {
		svc, _, _ := newSyncFixture()
		_, err := svc.Append(ctx, &mongo.Message{ConversationID: "c1", Content: "   "})
		assert.ErrorIs(t, err, ErrMessageRequired)
	})

	t.Run("缺省时间戳取服务端当前毫秒", func(t *testing.T) {
		svc, repo, _ := newSyncFixture()
		before := time.Now().UnixMilli()
		_, err := svc.Append(ctx, &mongo.Message{ConversationID: "c1", Content: "hi", Sender: consts.RoleVisitor})
		require.NoError(t, err)

		msgs, _ := repo.ListByConversation(ctx, "c1")
		require.Len(t, msgs, 1)
		assert.GreaterOrEqual(t, msgs[0].CreatedAt, before)
	})
}

func TestSyncService_SnapshotOrdering(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSyncFixture()

	// 乱序写入：快照必须按时间戳升序，同时间戳按 ID 升序
	_, err := svc.Append(ctx, &mongo.Message{ConversationID: "c1", Content: "third", Sender: consts.RoleVisitor, CreatedAt: 3000})
	require.NoError(t, err)
	_, err = svc.Append(ctx, &mongo.Message{ConversationID: "c1", Content: "first", Sender: consts.RoleVisitor, CreatedAt: 1000})
	require.NoError(t, err)
	_, err = svc.Append(ctx, &mongo.Message{ConversationID: "c1", Content: "tie-late", Sender: consts.RoleVisitor, CreatedAt: 2000})
	require.NoError(t, err)
	_, err = svc.Append(ctx, &mongo.Message{ConversationID: "c1", Content: "tie-early", Sender: consts.RoleVisitor, CreatedAt: 2000})
	require.NoError(t, err)

	snapshot, err := svc.Snapshot(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, snapshot, 4)

	assert.Equal(t, "first", snapshot[0].Content)
	assert.Equal(t, "tie-late", snapshot[1].Content) // ID 较小（先写入）
	assert.Equal(t, "tie-early", snapshot[2].Content)
	assert.Equal(t, "third", snapshot[3].Content)

	// 快照读取是幂等的：再读一次结果不变
	again, err := svc.Snapshot(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, snapshot, again)
}

func TestSyncService_SnapshotAllIdentity(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSyncFixture()

	// 运营者先回复，访客后发言：展示身份仍取访客署名
	_, err := svc.Append(ctx, &mongo.Message{ConversationID: "c1", Content: "您好", Sender: consts.RoleOperator, Read: true, CreatedAt: 1000})
	require.NoError(t, err)
	_, err = svc.Append(ctx, &mongo.Message{ConversationID: "c1", Name: "张三", Email: "zhang@example.com", Content: "咨询", Sender: consts.RoleVisitor, CreatedAt: 2000})
	require.NoError(t, err)

	views, err := svc.SnapshotAll(ctx)
	require.NoError(t, err)
	require.Contains(t, views, "c1")
	assert.Equal(t, "张三", views["c1"].Name)
	assert.Equal(t, "zhang@example.com", views["c1"].Email)
}

func TestSyncService_Subscribe(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSyncFixture()

	_, err := svc.Append(ctx, &mongo.Message{ConversationID: "c1", Content: "one", Sender: consts.RoleVisitor, CreatedAt: 1000})
	require.NoError(t, err)

	var mu sync.Mutex
	var got [][]*mongo.Message
	unsub := svc.Subscribe(ctx, "c1", func(msgs []*mongo.Message) {
		mu.Lock()
		got = append(got, msgs)
		mu.Unlock()
	})
	defer unsub()

	// 初始快照先到
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 1 && len(got[0]) == 1
	}, time.Second, 10*time.Millisecond)

	// 追加触发全量重读
	_, err = svc.Append(ctx, &mongo.Message{ConversationID: "c1", Content: "two", Sender: consts.RoleVisitor, CreatedAt: 2000})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		last := got[len(got)-1]
		return len(last) == 2 && last[1].Content == "two"
	}, time.Second, 10*time.Millisecond)

	// 退订后不再推送
	unsub()
	countAfter := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(got)
	}()
	_, err = svc.Append(ctx, &mongo.Message{ConversationID: "c1", Content: "three", Sender: consts.RoleVisitor, CreatedAt: 3000})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, countAfter, func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(got)
	}())
}

func TestSyncService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("删除后快照即时反映", func(t *testing.T) {
		svc, _, _ := newSyncFixture()
		id, err := svc.Append(ctx, &mongo.Message{ConversationID: "c1", Content: "oops", Sender: consts.RoleVisitor, CreatedAt: 1000})
		require.NoError(t, err)
		require.NoError(t, svc.Delete(ctx, "c1", id))

		snapshot, err := svc.Snapshot(ctx, "c1")
		require.NoError(t, err)
		assert.Empty(t, snapshot)
	})

	t.Run("删除不存在的消息报错且不广播", func(t *testing.T) {
		svc, _, bus := newSyncFixture()
		sub := bus.Subscribe(ctx, consts.ChatFirehoseKey)
		defer func() {
			_ = sub.Close()
		}()

		err := svc.Delete(ctx, "c1", "ghost")
		assert.ErrorIs(t, err, ErrMessageNotFound)

		select {
		case payload := <-sub.C():
			t.Fatalf("不应有变更广播，收到 %q", payload)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("已读置位目标不存在报错", func(t *testing.T) {
		svc, _, _ := newSyncFixture()
		err := svc.SetRead(ctx, "c1", "ghost", true)
		assert.ErrorIs(t, err, ErrMessageNotFound)
	})
}
