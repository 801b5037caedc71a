package gorm

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"

	"github.com/hibiki-social/hibiki/model"
	"github.com/hibiki-social/hibiki/repository"
)

func TestRepository_SaveMessage_InvalidArgs(t *testing.T) {
	t.Parallel()
	repo, assert, _ := setup(t, common)
	ctx := context.Background()

	_, err := repo.SaveMessage(ctx, repository.SaveMessageArgs{SenderID: "u1", Content: "hi"})
	assert.True(repository.IsArgError(err))
	_, err = repo.SaveMessage(ctx, repository.SaveMessageArgs{ChatID: "c", Content: "hi"})
	assert.True(repository.IsArgError(err))
	_, err = repo.SaveMessage(ctx, repository.SaveMessageArgs{ChatID: "c", SenderID: "u1", Content: "hi", Kind: "sticker"})
	assert.True(repository.IsArgError(err))
}

func TestRepository_SaveMessage(t *testing.T) {
	t.Parallel()
	repo, assert, require := setup(t, common)
	ctx := context.Background()

	m, err := repo.SaveMessage(ctx, repository.SaveMessageArgs{
		ChatID:   randomChatID(),
		SenderID: "u1",
		Content:  "hello",
		Media:    "uploads/a.png",
		Kind:     model.MessageKindImage,
	})
	require.NoError(err)
	assert.NotEqual(uuid.Nil, m.ID)
	assert.Equal("hello", m.Content)
	assert.Equal(model.DeliveryStatusSent, m.Status)
	assert.Empty(m.ReadBy)

	got, err := repo.GetMessage(ctx, m.ID)
	require.NoError(err)
	assert.Equal("hello", got.Content)
	assert.Equal("uploads/a.png", got.Media)
	assert.Equal(model.MessageKindImage, got.Kind)
}

func TestRepository_GetMessage(t *testing.T) {
	t.Parallel()
	repo, assert, _ := setup(t, common)

	_, err := repo.GetMessage(context.Background(), uuid.Nil)
	assert.ErrorIs(err, repository.ErrNotFound)
	_, err = repo.GetMessage(context.Background(), uuid.Must(uuid.NewV7()))
	assert.ErrorIs(err, repository.ErrNotFound)
}

func TestRepository_EncryptedContent(t *testing.T) {
	t.Parallel()
	repo, assert, require := setup(t, encrypted)
	ctx := context.Background()

	m, err := repo.SaveMessage(ctx, repository.SaveMessageArgs{ChatID: randomChatID(), SenderID: "u1", Content: "secret text"})
	require.NoError(err)

	var raw model.Message
	require.NoError(repo.db.First(&raw, &model.Message{ID: m.ID}).Error)
	assert.NotEqual("secret text", raw.Content)

	got, err := repo.GetMessage(ctx, m.ID)
	require.NoError(err)
	assert.Equal("secret text", got.Content)
}

func TestRepository_MarkMessageRead(t *testing.T) {
	t.Parallel()
	repo, assert, require := setup(t, common)
	ctx := context.Background()

	m, err := repo.SaveMessage(ctx, repository.SaveMessageArgs{ChatID: randomChatID(), SenderID: "u1", Content: "hi"})
	require.NoError(err)

	_, _, err = repo.MarkMessageRead(ctx, uuid.Nil, "u2")
	assert.ErrorIs(err, repository.ErrNilID)
	_, _, err = repo.MarkMessageRead(ctx, uuid.Must(uuid.NewV7()), "u2")
	assert.ErrorIs(err, repository.ErrNotFound)

	got, changed, err := repo.MarkMessageRead(ctx, m.ID, "u2")
	require.NoError(err)
	assert.True(changed)
	assert.True(got.IsReadBy("u2"))

	got, changed, err = repo.MarkMessageRead(ctx, m.ID, "u2")
	require.NoError(err)
	assert.False(changed)
	assert.Len(got.ReadBy, 1)
}

func TestRepository_UnreadMessages(t *testing.T) {
	t.Parallel()
	repo, assert, require := setup(t, common)
	ctx := context.Background()
	chatID := randomChatID()

	var ids []uuid.UUID
	for _, sender := range []string{"u1", "u1", "u2", "u1"} {
		m, err := repo.SaveMessage(ctx, repository.SaveMessageArgs{ChatID: chatID, SenderID: sender, Content: "x"})
		require.NoError(err)
		ids = append(ids, m.ID)
	}
	_, _, err := repo.MarkMessageRead(ctx, ids[0], "u2")
	require.NoError(err)

	unread, err := repo.GetUnreadMessages(ctx, chatID, "u2")
	require.NoError(err)
	if assert.Len(unread, 2) {
		assert.Equal(ids[1], unread[0].ID)
		assert.Equal(ids[3], unread[1].ID)
	}

	n, err := repo.MarkMessagesRead(ctx, []uuid.UUID{unread[0].ID, unread[1].ID, ids[0]}, "u2")
	require.NoError(err)
	assert.Equal(2, n)

	unread, err = repo.GetUnreadMessages(ctx, chatID, "u2")
	require.NoError(err)
	assert.Empty(unread)

	n, err = repo.MarkMessagesRead(ctx, nil, "u2")
	require.NoError(err)
	assert.Equal(0, n)
}
