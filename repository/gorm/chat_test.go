package gorm

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid"

	"github.com/hibiki-social/hibiki/repository"
)

func TestRepository_LatestMessage(t *testing.T) {
	t.Parallel()
	repo, assert, require := setup(t, common)
	ctx := context.Background()
	chatID := randomChatID()

	_, err := repo.GetLatestMessageID(ctx, chatID)
	assert.ErrorIs(err, repository.ErrNotFound)
	assert.ErrorIs(repo.SetLatestMessage(ctx, "", uuid.Must(uuid.NewV7()), time.Now()), repository.ErrNilID)

	first := uuid.Must(uuid.NewV7())
	second := uuid.Must(uuid.NewV7())
	require.NoError(repo.SetLatestMessage(ctx, chatID, first, time.Now()))
	require.NoError(repo.SetLatestMessage(ctx, chatID, second, time.Now()))

	id, err := repo.GetLatestMessageID(ctx, chatID)
	require.NoError(err)
	assert.Equal(second, id)
}
