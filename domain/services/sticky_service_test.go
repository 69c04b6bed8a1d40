package services

import (
	"context"
	"errors"
	"testing"

	"stickybot/domain/entities"
	"stickybot/domain/interfaces"
	"stickybot/events"
	"stickybot/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newStickyService(t *testing.T) (*StickyService, *engineFixture) {
	t.Helper()
	f := newEngineFixture(t, WithWebhookIdentity("Sticky", ""))
	return NewStickyService(f.repo, f.gateway, f.engine, f.publisher), f
}

func templateMessage(id, content string) *interfaces.FetchedMessage {
	return &interfaces.FetchedMessage{
		ID:        id,
		GuildID:   "1",
		ChannelID: "100",
		Content:   content,
		AuthorID:  "u1",
	}
}

func boolPtr(b bool) *bool    { return &b }
func int64Ptr(i int64) *int64 { return &i }

func TestCreateSticky_NewChannel(t *testing.T) {
	svc, f := newStickyService(t)
	ctx := context.Background()

	f.gateway.On("FetchMessage", mock.Anything, testChannel, "T1").Return(templateMessage("T1", "read the rules"), nil).Once()
	f.gateway.On("CreateWebhook", mock.Anything, mock.Anything, "Sticky", "").Return(webhookFor("100"), nil).Once()

	settings, err := svc.CreateSticky(ctx, CreateStickyRequest{
		Channel:   testChannel,
		MessageID: "T1",
		CreatorID: "u1",
	})
	require.NoError(t, err)
	f.gateway.AssertExpectations(t)

	stored := f.get(t, "100")
	require.NotNil(t, stored)
	assert.Equal(t, settings.ChannelID, stored.ChannelID)
	assert.True(t, stored.HasTemplate())
	assert.Equal(t, "T1", stored.TemplateMessageID())
	assert.Equal(t, "100", stored.TemplateChannelID())
	assert.Equal(t, "read the rules", stored.Content)
	assert.Equal(t, "wh-100", stored.WebhookID)
	assert.Equal(t, webhookFor("100").URL, stored.WebhookURL)
	assert.True(t, stored.Silent)
	assert.True(t, stored.IgnoreBots)
	assert.Zero(t, stored.Debounce)
	assert.Equal(t, "u1", stored.CreatorID)
	assert.NotNil(t, stored.CreatedAt)
}

func TestCreateSticky_AppliesOptions(t *testing.T) {
	svc, f := newStickyService(t)

	f.gateway.On("FetchMessage", mock.Anything, mock.Anything, "T1").Return(templateMessage("T1", "x"), nil).Once()
	f.gateway.On("CreateWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(webhookFor("100"), nil).Once()

	_, err := svc.CreateSticky(context.Background(), CreateStickyRequest{
		Channel:    testChannel,
		MessageID:  "T1",
		IgnoreBots: boolPtr(false),
		Silent:     boolPtr(false),
		Debounce:   int64Ptr(1500),
	})
	require.NoError(t, err)

	stored := f.get(t, "100")
	assert.False(t, stored.IgnoreBots)
	assert.False(t, stored.Silent)
	assert.Equal(t, int64(1500), stored.Debounce)
}

func TestCreateSticky_TemplateFromAnotherChannel(t *testing.T) {
	svc, f := newStickyService(t)

	message := templateMessage("T9", "shared")
	message.ChannelID = "300"
	f.gateway.On("FetchMessage", mock.Anything, mock.Anything, "T9").Return(message, nil).Once()
	f.gateway.On("CreateWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(webhookFor("100"), nil).Once()

	_, err := svc.CreateSticky(context.Background(), CreateStickyRequest{Channel: testChannel, MessageID: "T9"})
	require.NoError(t, err)

	stored := f.get(t, "100")
	assert.Equal(t, "100", stored.ChannelID)
	assert.Equal(t, "300", stored.TemplateChannelID())
}

func TestCreateSticky_ExistingRequiresOverride(t *testing.T) {
	svc, f := newStickyService(t)
	f.write(t, testutil.CreateTestSticky("100", "T0", "old"))

	f.gateway.On("FetchMessage", mock.Anything, mock.Anything, "T1").Return(templateMessage("T1", "new"), nil)

	_, err := svc.CreateSticky(context.Background(), CreateStickyRequest{Channel: testChannel, MessageID: "T1"})
	assert.ErrorIs(t, err, ErrStickyExists)
	assert.Equal(t, "old", f.get(t, "100").Content)
	f.gateway.AssertNotCalled(t, "CreateWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// Override reuses the stored webhook
	_, err = svc.CreateSticky(context.Background(), CreateStickyRequest{Channel: testChannel, MessageID: "T1", Override: true})
	require.NoError(t, err)

	stored := f.get(t, "100")
	assert.Equal(t, "new", stored.Content)
	assert.Equal(t, "T1", stored.TemplateMessageID())
	assert.Equal(t, "wh-100", stored.WebhookID)
	f.gateway.AssertNotCalled(t, "CreateWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateSticky_OverrideKeepsRuntimeState(t *testing.T) {
	svc, f := newStickyService(t)
	ctx := context.Background()

	existing := testutil.CreateTestSticky("100", "T0", "old")
	existing.WebhookURL = ""
	existing.SetLastMessage("M0")
	f.write(t, existing)

	f.gateway.On("FetchMessage", mock.Anything, mock.Anything, "T1").Return(templateMessage("T1", "new"), nil).Once()
	// A repost lands while the webhook is being resolved
	f.gateway.On("FetchWebhooks", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		_, err := f.repo.Update(ctx, "100", func(s *entities.ChannelSettings) {
			s.SetLastMessage("M9")
			s.IsDebouncing = true
		})
		require.NoError(t, err)
	}).Return([]*interfaces.Webhook{webhookFor("100")}, nil).Once()

	_, err := svc.CreateSticky(ctx, CreateStickyRequest{Channel: testChannel, MessageID: "T1", Override: true})
	require.NoError(t, err)
	f.gateway.AssertExpectations(t)

	stored := f.get(t, "100")
	assert.Equal(t, "new", stored.Content)
	assert.Equal(t, "T1", stored.TemplateMessageID())
	assert.Equal(t, "M9", stored.LastMessage())
	assert.True(t, stored.IsDebouncing)
	assert.Equal(t, webhookFor("100").URL, stored.WebhookURL)
}

func TestCreateSticky_Errors(t *testing.T) {
	t.Run("negative debounce", func(t *testing.T) {
		svc, f := newStickyService(t)
		_, err := svc.CreateSticky(context.Background(), CreateStickyRequest{
			Channel:   testChannel,
			MessageID: "T1",
			Debounce:  int64Ptr(-1),
		})
		assert.ErrorIs(t, err, ErrInvalidDebounce)
		f.gateway.AssertNotCalled(t, "FetchMessage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("template not found", func(t *testing.T) {
		svc, f := newStickyService(t)
		f.gateway.On("FetchMessage", mock.Anything, mock.Anything, "nope").Return(nil, errors.New("404 Unknown Message")).Once()

		_, err := svc.CreateSticky(context.Background(), CreateStickyRequest{Channel: testChannel, MessageID: "nope"})
		assert.ErrorIs(t, err, ErrTemplateNotFound)
		assert.Nil(t, f.get(t, "100"))
	})

	t.Run("webhook unavailable", func(t *testing.T) {
		svc, f := newStickyService(t)
		f.gateway.On("FetchMessage", mock.Anything, mock.Anything, "T1").Return(templateMessage("T1", "x"), nil).Once()
		f.gateway.On("CreateWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("403 Missing Permissions")).Once()

		_, err := svc.CreateSticky(context.Background(), CreateStickyRequest{Channel: testChannel, MessageID: "T1"})
		assert.ErrorIs(t, err, ErrWebhookUnavailable)
		assert.Nil(t, f.get(t, "100"))
	})
}

func TestCreateSticky_ThenRepost(t *testing.T) {
	svc, f := newStickyService(t)

	f.gateway.On("FetchMessage", mock.Anything, mock.Anything, "T1").Return(templateMessage("T1", "hello"), nil).Once()
	f.gateway.On("CreateWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(webhookFor("100"), nil).Once()
	f.gateway.On("SendVia", mock.Anything, webhookFor("100"), contentIs("hello")).Return("M1", nil).Once()

	_, err := svc.CreateSticky(context.Background(), CreateStickyRequest{Channel: testChannel, MessageID: "T1"})
	require.NoError(t, err)

	status, err := f.engine.MaybeRepost(context.Background(), testChannel, &TriggerMessage{ID: "m1", AuthorID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, RepostStatusReposted, status)
	f.gateway.AssertExpectations(t)
}

func TestCheckSticky(t *testing.T) {
	svc, f := newStickyService(t)

	_, err := svc.CheckSticky(context.Background(), "100")
	assert.ErrorIs(t, err, ErrNoSticky)

	f.write(t, testutil.CreateTestSticky("100", "T1", "hello"))
	settings, err := svc.CheckSticky(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, "T1", settings.TemplateMessageID())
}

func TestDeleteSticky_RemovesEverything(t *testing.T) {
	svc, f := newStickyService(t)
	settings := testutil.CreateTestStickyWithDebounce("100", 60_000)
	settings.SetLastMessage("M0")
	f.write(t, settings)

	_, err := f.engine.MaybeRepost(context.Background(), testChannel, nil)
	require.NoError(t, err)
	require.True(t, f.engine.Pending("100"))

	f.gateway.On("DeleteVia", mock.Anything, webhookFor("100"), "M0").Return(nil).Once()
	f.gateway.On("DeleteWebhook", mock.Anything, webhookFor("100"), "Sticky deleted by mod").Return(nil).Once()

	result, err := svc.DeleteSticky(context.Background(), testChannel, "mod")
	require.NoError(t, err)
	assert.True(t, result.TimerCancelled)
	assert.True(t, result.WebhookRemoved)
	assert.Equal(t, "100", result.Settings.ChannelID)

	f.gateway.AssertExpectations(t)
	assert.Nil(t, f.get(t, "100"))
	assert.False(t, f.engine.Pending("100"))

	deleted := f.publisher.OfType(events.EventTypeStickyDeleted)
	require.Len(t, deleted, 1)
	assert.Equal(t, "mod", deleted[0].(events.StickyDeletedEvent).DeletedBy)
}

func TestDeleteSticky_Missing(t *testing.T) {
	svc, _ := newStickyService(t)
	_, err := svc.DeleteSticky(context.Background(), testChannel, "mod")
	assert.ErrorIs(t, err, ErrNoSticky)
}

func TestDeleteSticky_WebhookDeleteFails(t *testing.T) {
	svc, f := newStickyService(t)
	f.write(t, testutil.CreateTestSticky("100", "T1", "hello"))

	f.gateway.On("DeleteWebhook", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("403")).Once()

	result, err := svc.DeleteSticky(context.Background(), testChannel, "mod")
	assert.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.WebhookRemoved)
	assert.Nil(t, f.get(t, "100"))
}

func TestDeleteSticky_WithoutWebhook(t *testing.T) {
	svc, f := newStickyService(t)
	f.write(t, testutil.CreateTestChannelSettings("100"))

	result, err := svc.DeleteSticky(context.Background(), testChannel, "mod")
	require.NoError(t, err)
	assert.False(t, result.WebhookRemoved)
	f.gateway.AssertNotCalled(t, "DeleteWebhook", mock.Anything, mock.Anything, mock.Anything)
	assert.Nil(t, f.get(t, "100"))
}

func TestSetUserIgnored(t *testing.T) {
	svc, f := newStickyService(t)

	_, err := svc.SetUserIgnored(context.Background(), "100", "u9", true)
	assert.ErrorIs(t, err, ErrNoSticky)
	assert.Nil(t, f.get(t, "100"))

	f.write(t, testutil.CreateTestSticky("100", "T1", "hello"))

	settings, err := svc.SetUserIgnored(context.Background(), "100", "u9", true)
	require.NoError(t, err)
	assert.True(t, settings.IsUserIgnored("u9"))
	assert.True(t, f.get(t, "100").IsUserIgnored("u9"))

	_, err = svc.SetUserIgnored(context.Background(), "100", "u9", false)
	require.NoError(t, err)
	assert.False(t, f.get(t, "100").IsUserIgnored("u9"))
}
