package chat_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/authz"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/pagination"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/chat"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/notifications"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/testutil"
)

type fixture struct {
	svc       *chat.ChatService
	pub       *testutil.RecordingPublisher
	company   *models.User
	freelance *models.User
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	pub := &testutil.RecordingPublisher{}
	notifier := notifications.NewNotificationService(db, pub, nil)
	return fixture{
		svc:       chat.NewChatService(db, pub, notifier),
		pub:       pub,
		company:   testutil.CreateTestUser(t, db, models.RoleCompany),
		freelance: testutil.CreateTestUser(t, db, models.RoleFreelance),
	}
}

func TestStartConversation_SamePairBothDirections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	conv, created, err := f.svc.StartConversation(ctx, testutil.CallerFor(f.company), f.freelance.ID)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := f.svc.StartConversation(ctx, testutil.CallerFor(f.freelance), f.company.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)

	var parts int64
	f.svc.DB.Model(&models.ConversationParticipant{}).Where("conversation_id = ?", conv.ID).Count(&parts)
	assert.Equal(t, int64(2), parts)
}

func TestStartConversation_Concurrent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 4)
	errs := make([]error, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller := testutil.CallerFor(f.company)
			other := f.freelance.ID
			if i%2 == 1 {
				caller, other = testutil.CallerFor(f.freelance), f.company.ID
			}
			conv, _, err := f.svc.StartConversation(ctx, caller, other)
			errs[i] = err
			if conv != nil {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	var n int64
	f.svc.DB.Model(&models.Conversation{}).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestStartConversation_Guards(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, err := f.svc.StartConversation(ctx, authz.Anonymous(), f.freelance.ID)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	_, _, err = f.svc.StartConversation(ctx, testutil.CallerFor(f.company), f.company.ID)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, _, err = f.svc.StartConversation(ctx, testutil.CallerFor(f.company), uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSendMessage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	conv, _, err := f.svc.StartConversation(ctx, testutil.CallerFor(f.company), f.freelance.ID)
	require.NoError(t, err)

	msg, err := f.svc.SendMessage(ctx, testutil.CallerFor(f.company), conv.ID, "  Bonjour, disponible demain ?  ")
	require.NoError(t, err)
	assert.Equal(t, "Bonjour, disponible demain ?", msg.Text)
	assert.Equal(t, f.company.ID, msg.SenderID)

	total, err := f.svc.UnreadTotal(ctx, testutil.CallerFor(f.freelance))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	senderTotal, err := f.svc.UnreadTotal(ctx, testutil.CallerFor(f.company))
	require.NoError(t, err)
	assert.Zero(t, senderTotal)

	// chat event to both sides, plus a notification for the recipient
	assert.Len(t, f.pub.For(f.company.ID), 1)
	assert.Len(t, f.pub.For(f.freelance.ID), 2)

	var notifs []models.Notification
	require.NoError(t, f.svc.DB.Where("user_id = ?", f.freelance.ID).Find(&notifs).Error)
	require.Len(t, notifs, 1)
	assert.Equal(t, models.NotifNewMessage, notifs[0].Type)
}

func TestSendMessage_Guards(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	outsider := testutil.CreateTestUser(t, f.svc.DB, models.RoleFreelance)
	conv, _, err := f.svc.StartConversation(ctx, testutil.CallerFor(f.company), f.freelance.ID)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, testutil.CallerFor(f.company), conv.ID, "   ")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.svc.SendMessage(ctx, authz.Anonymous(), conv.ID, "salut")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	_, err = f.svc.SendMessage(ctx, testutil.CallerFor(outsider), conv.ID, "salut")
	assert.Equal(t, apperr.KindNotOwner, apperr.KindOf(err))
	assert.Equal(t, apperr.ReasonNotParticipant, apperr.ReasonOf(err))

	_, err = f.svc.SendMessage(ctx, testutil.CallerFor(f.company), uuid.New(), "salut")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	var n int64
	f.svc.DB.Model(&models.Message{}).Count(&n)
	assert.Zero(t, n)
}

func TestListAndMarkRead(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	other := testutil.CreateTestUser(t, f.svc.DB, models.RoleCompany)

	conv, _, err := f.svc.StartConversation(ctx, testutil.CallerFor(f.company), f.freelance.ID)
	require.NoError(t, err)
	second, _, err := f.svc.StartConversation(ctx, testutil.CallerFor(other), f.freelance.ID)
	require.NoError(t, err)

	for _, text := range []string{"un", "deux", "trois"} {
		_, err := f.svc.SendMessage(ctx, testutil.CallerFor(f.company), conv.ID, text)
		require.NoError(t, err)
	}
	_, err = f.svc.SendMessage(ctx, testutil.CallerFor(other), second.ID, "hello")
	require.NoError(t, err)

	quiet := testutil.CreateTestUser(t, f.svc.DB, models.RoleCompany)
	silent, _, err := f.svc.StartConversation(ctx, testutil.CallerFor(quiet), f.freelance.ID)
	require.NoError(t, err)

	convs, err := f.svc.ListConversations(ctx, testutil.CallerFor(f.freelance))
	require.NoError(t, err)
	require.Len(t, convs, 3)
	byID := map[uuid.UUID]chat.ConversationSummary{}
	for _, c := range convs {
		byID[c.ID] = c
	}
	assert.Equal(t, 3, byID[conv.ID].UnreadCount)
	assert.Equal(t, f.company.ID, byID[conv.ID].Other.ID)
	require.NotNil(t, byID[conv.ID].LastMessage)
	assert.Equal(t, "trois", byID[conv.ID].LastMessage.Text)
	assert.Equal(t, 1, byID[second.ID].UnreadCount)
	require.NotNil(t, byID[second.ID].LastMessage)
	assert.Equal(t, "hello", byID[second.ID].LastMessage.Text)
	assert.Nil(t, byID[silent.ID].LastMessage)
	assert.Zero(t, byID[silent.ID].UnreadCount)

	page, err := f.svc.ListMessages(ctx, testutil.CallerFor(f.freelance), conv.ID, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "un", page.Items[0].Text)

	_, err = f.svc.ListMessages(ctx, testutil.CallerFor(other), conv.ID, pagination.Params{})
	assert.Equal(t, apperr.ReasonNotParticipant, apperr.ReasonOf(err))

	require.NoError(t, f.svc.MarkConversationRead(ctx, testutil.CallerFor(f.freelance), conv.ID))
	total, err := f.svc.UnreadTotal(ctx, testutil.CallerFor(f.freelance))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "only the marked conversation resets")

	err = f.svc.MarkConversationRead(ctx, testutil.CallerFor(other), conv.ID)
	assert.Equal(t, apperr.KindNotOwner, apperr.KindOf(err))
}
