package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-chat-api/internal/domain/entity"
	apperrors "ai-chat-api/pkg/errors"
)

func seedConversation(t *testing.T, s *Store, now time.Time) *entity.Conversation {
	t.Helper()
	c := entity.NewConversation(now)
	require.NoError(t, s.Conversations().Create(context.Background(), c))
	return c
}

func TestStore_MessagesOrderedByCreatedAtThenInsertion(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := seedConversation(t, s, now)

	// 相同时间戳按插入顺序
	for _, content := range []string{"a", "b", "c"} {
		require.NoError(t, s.Messages().Create(ctx, entity.NewMessage(c.ID, entity.RoleUser, content, now, time.Time{})))
	}
	require.NoError(t, s.Messages().Create(ctx, entity.NewMessage(c.ID, entity.RoleAssistant, "early", now.Add(-time.Second), time.Time{})))

	msgs, err := s.Messages().ListByConversation(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, []string{"early", "a", "b", "c"}, contents(msgs))
}

func TestStore_RejectsInvalidRole(t *testing.T) {
	s := NewStore()
	c := seedConversation(t, s, time.Now())

	err := s.Messages().Create(context.Background(), entity.NewMessage(c.ID, entity.Role("SYSTEM"), "x", time.Now(), time.Time{}))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidParam))

	msgs, err := s.Messages().ListByConversation(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestStore_TransactionRollback(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	c := seedConversation(t, s, time.Now())
	boom := errors.New("boom")

	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Messages().Create(ctx, entity.NewMessage(c.ID, entity.RoleUser, "hi", time.Now(), time.Time{})))
		locked, err := s.Conversations().GetByIDForUpdate(ctx, c.ID)
		require.NoError(t, err)
		locked.Rename("hi", time.Now())
		require.NoError(t, s.Conversations().Update(ctx, locked))

		// 事务内可见自己的写入
		msgs, err := s.Messages().ListByConversation(ctx, c.ID)
		require.NoError(t, err)
		assert.Len(t, msgs, 1)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	msgs, err := s.Messages().ListByConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	got, err := s.Conversations().GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Title)
}

func TestStore_TransactionPanicRollsBack(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	c := seedConversation(t, s, time.Now())

	assert.Panics(t, func() {
		_ = s.WithTransaction(ctx, func(ctx context.Context) error {
			_, _ = s.Conversations().GetByIDForUpdate(ctx, c.ID)
			_ = s.Messages().Create(ctx, entity.NewMessage(c.ID, entity.RoleUser, "hi", time.Now(), time.Time{}))
			panic("boom")
		})
	})

	msgs, err := s.Messages().ListByConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// 锁已释放
	lockCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	err = s.WithTransaction(lockCtx, func(ctx context.Context) error {
		_, err := s.Conversations().GetByIDForUpdate(ctx, c.ID)
		return err
	})
	assert.NoError(t, err)
}

func TestStore_DeleteCascadesAndIsIdempotent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	c := seedConversation(t, s, time.Now())
	other := seedConversation(t, s, time.Now())

	require.NoError(t, s.Messages().Create(ctx, entity.NewMessage(c.ID, entity.RoleUser, "hi", time.Now(), time.Time{})))
	require.NoError(t, s.Messages().Create(ctx, entity.NewMessage(other.ID, entity.RoleUser, "keep", time.Now(), time.Time{})))

	require.NoError(t, s.Conversations().Delete(ctx, c.ID))
	require.NoError(t, s.Conversations().Delete(ctx, c.ID))
	require.NoError(t, s.Conversations().Delete(ctx, "never-existed"))

	got, err := s.Conversations().GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	msgs, _ := s.Messages().ListByConversation(ctx, c.ID)
	assert.Empty(t, msgs)
	msgs, _ = s.Messages().ListByConversation(ctx, other.ID)
	assert.Len(t, msgs, 1)
}

func TestStore_ListByUpdatedDesc(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	a := seedConversation(t, s, base)
	b := seedConversation(t, s, base.Add(time.Minute))
	c := seedConversation(t, s, base)

	list, err := s.Conversations().ListByUpdatedDesc(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, b.ID, list[0].ID)

	// updatedAt 相同时按 id 升序
	first, second := a.ID, c.ID
	if second < first {
		first, second = second, first
	}
	assert.Equal(t, first, list[1].ID)
	assert.Equal(t, second, list[2].ID)
}

func TestStore_MessageForMissingConversation(t *testing.T) {
	s := NewStore()
	err := s.Messages().Create(context.Background(), entity.NewMessage("missing", entity.RoleUser, "hi", time.Now(), time.Time{}))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConversationNotFound))
}

func TestStore_LockSerializesSameConversation(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	c := seedConversation(t, s, time.Now())

	acquired := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- s.WithTransaction(ctx, func(ctx context.Context) error {
			if _, err := s.Conversations().GetByIDForUpdate(ctx, c.ID); err != nil {
				return err
			}
			close(acquired)
			<-release
			return nil
		})
	}()
	<-acquired

	// 锁被占用时，第二个事务在超时前拿不到锁
	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := s.WithTransaction(waitCtx, func(ctx context.Context) error {
		_, err := s.Conversations().GetByIDForUpdate(ctx, c.ID)
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// 其他对话不受影响
	other := seedConversation(t, s, time.Now())
	err = s.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := s.Conversations().GetByIDForUpdate(ctx, other.ID)
		return err
	})
	assert.NoError(t, err)

	close(release)
	require.NoError(t, <-done)
	assert.Zero(t, s.lockCount(), "idle locks are dropped")
}

func TestStore_DeleteDropsLockEntry(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c := seedConversation(t, s, time.Now())
		err := s.WithTransaction(ctx, func(ctx context.Context) error {
			if _, err := s.Conversations().GetByIDForUpdate(ctx, c.ID); err != nil {
				return err
			}
			return s.Messages().Create(ctx, entity.NewMessage(c.ID, entity.RoleUser, "hi", time.Now(), time.Time{}))
		})
		require.NoError(t, err)
		require.NoError(t, s.Conversations().Delete(ctx, c.ID))
	}
	assert.Zero(t, s.lockCount())

	// 等待者在持有者删除对话后仍能拿到锁
	c := seedConversation(t, s, time.Now())
	acquired := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.WithTransaction(ctx, func(ctx context.Context) error {
			if _, err := s.Conversations().GetByIDForUpdate(ctx, c.ID); err != nil {
				return err
			}
			close(acquired)
			<-release
			return s.Conversations().Delete(ctx, c.ID)
		})
	}()
	<-acquired

	waiter := make(chan error, 1)
	go func() {
		waiter <- s.WithTransaction(ctx, func(ctx context.Context) error {
			got, err := s.Conversations().GetByIDForUpdate(ctx, c.ID)
			if err == nil && got != nil {
				return errors.New("conversation should be gone")
			}
			return err
		})
	}()

	close(release)
	require.NoError(t, <-done)
	select {
	case err := <-waiter:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
	assert.Zero(t, s.lockCount())
}

func contents(msgs []*entity.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}
