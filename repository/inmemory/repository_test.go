package inmemory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibiki-social/hibiki/model"
	"github.com/hibiki-social/hibiki/repository"
)

func TestRepository_SaveMessage(t *testing.T) {
	t.Parallel()
	repo := NewRepository()
	ctx := context.Background()

	_, err := repo.SaveMessage(ctx, repository.SaveMessageArgs{SenderID: "u1"})
	assert.True(t, repository.IsArgError(err))
	_, err = repo.SaveMessage(ctx, repository.SaveMessageArgs{ChatID: "r1", SenderID: "u1", Kind: "gif"})
	assert.True(t, repository.IsArgError(err))

	m, err := repo.SaveMessage(ctx, repository.SaveMessageArgs{ChatID: "r1", SenderID: "u1", Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryStatusSent, m.Status)
	assert.Equal(t, model.MessageKindText, m.Kind)

	m.Content = "mutated"
	got, err := repo.GetMessage(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Content, "stored message must not be shared with the caller")

	_, err = repo.GetMessage(ctx, uuid.Must(uuid.NewV7()))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRepository_ReadReceipts(t *testing.T) {
	t.Parallel()
	repo := NewRepository()
	ctx := context.Background()

	var ids []uuid.UUID
	for _, sender := range []string{"u1", "u2", "u1"} {
		m, err := repo.SaveMessage(ctx, repository.SaveMessageArgs{ChatID: "r1", SenderID: sender, Content: "x"})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	_, _, err := repo.MarkMessageRead(ctx, uuid.Nil, "u2")
	assert.ErrorIs(t, err, repository.ErrNilID)

	m, changed, err := repo.MarkMessageRead(ctx, ids[0], "u2")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, m.IsReadBy("u2"))
	_, changed, err = repo.MarkMessageRead(ctx, ids[0], "u2")
	require.NoError(t, err)
	assert.False(t, changed)

	unread, err := repo.GetUnreadMessages(ctx, "r1", "u2")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, ids[2], unread[0].ID)

	n, err := repo.MarkMessagesRead(ctx, []uuid.UUID{ids[0], ids[2]}, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	unread, err = repo.GetUnreadMessages(ctx, "r1", "u2")
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestRepository_LatestMessage(t *testing.T) {
	t.Parallel()
	repo := NewRepository()
	ctx := context.Background()

	_, err := repo.GetLatestMessageID(ctx, "r1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	id := uuid.Must(uuid.NewV7())
	require.NoError(t, repo.SetLatestMessage(ctx, "r1", id, time.Now()))
	got, err := repo.GetLatestMessageID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestRepository_ConcurrentRead(t *testing.T) {
	t.Parallel()
	repo := NewRepository()
	ctx := context.Background()

	m, err := repo.SaveMessage(ctx, repository.SaveMessageArgs{ChatID: "r1", SenderID: "u1", Content: "x"})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changes int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, changed, err := repo.MarkMessageRead(ctx, m.ID, "u2")
			assert.NoError(t, err)
			if changed {
				mu.Lock()
				changes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, changes)
}
