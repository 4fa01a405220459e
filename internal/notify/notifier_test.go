package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/estatebot/core/telegram/teletest"
	"github.com/m3rciful/estatebot/internal/api"
	"github.com/m3rciful/estatebot/internal/bot/action"
)

func newTestNotifier() (*Notifier, *teletest.Messenger) {
	m := &teletest.Messenger{}
	return NewNotifier(Options{
		Sender:      m,
		BotUsername: "@yene_etbot",
		Channel:     "@yene_et",
		ChannelURL:  "https://t.me/yene_et",
		AdminChatID: -100,
		SiteURL:     "https://estate.example/",
	}), m
}

func confirmedEvent() Event {
	return Event{
		ID:   "evt-1",
		Type: TypePropertyConfirmed,
		Property: &api.Property{
			ID: 12, Name: "Bole Villa", Status: api.StatusConfirmed, City: "Addis Ababa", Region: "AA",
			SellingPrice: "1500000.00", Owner: "77",
		},
		Owner:          &api.Customer{TelegramID: "77", FullName: "Sara T.", IsVerified: true},
		ConfirmedCount: 3,
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]Event{
		"unknown type":      {Type: "customer.deleted"},
		"customer missing":  {Type: TypeCustomerVerified},
		"property missing":  {Type: TypePropertyConfirmed},
		"property zero id":  {Type: TypePropertyConfirmed, Property: &api.Property{}},
		"tour missing":      {Type: TypeTourCreated},
		"customer no tg id": {Type: TypeCustomerTypeChanged, Customer: &api.Customer{}},
	}
	for name, e := range cases {
		assert.ErrorIs(t, e.Validate(), ErrInvalidEvent, name)
	}
	assert.NoError(t, confirmedEvent().Validate())
}

func TestUpgradeOnlyForUpgradedTypes(t *testing.T) {
	n, m := newTestNotifier()
	ctx := context.Background()

	require.NoError(t, n.Deliver(ctx, Event{Type: TypeCustomerTypeChanged, Customer: &api.Customer{TelegramID: "5", UserType: api.UserTypeUser}}))
	assert.Empty(t, m.Sent)

	require.NoError(t, n.Deliver(ctx, Event{Type: TypeCustomerTypeChanged, Customer: &api.Customer{TelegramID: "5", UserType: api.UserTypeAgent}}))
	got := m.To(5)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "*agent*")
	assert.Equal(t, tele.ModeMarkdownV2, m.Sent[0].ParseMode())
}

func TestVerificationMessage(t *testing.T) {
	n, m := newTestNotifier()
	require.NoError(t, n.Deliver(context.Background(), Event{Type: TypeCustomerVerified, Customer: &api.Customer{TelegramID: "5", IsVerified: true}}))
	require.Len(t, m.To(5), 1)
	assert.Contains(t, m.To(5)[0], "verified")
}

func TestPropertyConfirmedPostsAndCongratulates(t *testing.T) {
	n, m := newTestNotifier()
	require.NoError(t, n.Deliver(context.Background(), confirmedEvent()))

	owner := m.To(77)
	require.Len(t, owner, 1)
	assert.Contains(t, owner[0], "Sara T\\.")
	assert.Contains(t, owner[0], "[View on Channel](https://t.me/yene_et)")

	posts := m.ToChat("@yene_et")
	require.Len(t, posts, 1)
	post := posts[0]
	assert.Contains(t, post.Text(), "🏠 *Property Name:* Bole Villa")
	assert.Contains(t, post.Text(), "Verified Client ✅")
	assert.Contains(t, post.Text(), "🔢 *Properties Listed:* 3")

	kb := post.Markup().InlineKeyboard
	require.Len(t, kb, 2)
	require.Len(t, kb[0], 2)
	assert.Equal(t, "https://t.me/yene_etbot?start=request_tour_12", kb[0][0].URL)
	assert.Equal(t, string(action.MakeFavorite), kb[0][1].Unique)
	assert.Equal(t, "12", kb[0][1].Data)
	assert.Equal(t, "https://estate.example/property/12", kb[1][0].URL)

	sent, failed := n.Counts()
	assert.Equal(t, uint64(2), sent)
	assert.Zero(t, failed)
}

func TestOwnerFailureDoesNotStopChannelPost(t *testing.T) {
	n, m := newTestNotifier()
	m.Fail = map[string]bool{"77": true}

	require.NoError(t, n.Deliver(context.Background(), confirmedEvent()))
	assert.Len(t, m.ToChat("@yene_et"), 1)
	_, failed := n.Counts()
	assert.Equal(t, uint64(1), failed)
}

func TestPendingPropertyIsSkipped(t *testing.T) {
	n, m := newTestNotifier()
	e := confirmedEvent()
	e.Property.Status = api.StatusPending
	require.NoError(t, n.Deliver(context.Background(), e))
	assert.Empty(t, m.Sent)
}

func TestTourCreatedGoesToAdminChat(t *testing.T) {
	n, m := newTestNotifier()
	e := Event{
		Type:     TypeTourCreated,
		Tour:     &api.Tour{Property: 12, FullName: "Abebe", PhoneNumber: "+251911", TourDate: "Monday", TourTimeSlot: "9-11"},
		Property: &api.Property{ID: 12, Name: "Bole Villa"},
	}
	require.NoError(t, n.Deliver(context.Background(), e))
	got := m.To(-100)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "*Requested Time:* 9\\-11")
	assert.Contains(t, got[0], "\\+251911")
}

func TestTourCreatedWithoutAdminChatIsSkipped(t *testing.T) {
	m := &teletest.Messenger{}
	n := NewNotifier(Options{Sender: m})
	require.NoError(t, n.Deliver(context.Background(), Event{Type: TypeTourCreated, Tour: &api.Tour{Property: 1}}))
	assert.Empty(t, m.Sent)
}

func TestProcessTask(t *testing.T) {
	n, m := newTestNotifier()
	payload, err := json.Marshal(confirmedEvent())
	require.NoError(t, err)

	require.NoError(t, n.ProcessTask(context.Background(), asynq.NewTask(TaskDeliver, payload)))
	assert.Len(t, m.ToChat("@yene_et"), 1)

	err = n.ProcessTask(context.Background(), asynq.NewTask(TaskDeliver, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestLocalQueueDelivers(t *testing.T) {
	n, m := newTestNotifier()
	q := NewLocalQueue(n, 2)
	require.NoError(t, q.Start())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Enqueue(ctx, confirmedEvent()))
	cancel()
	require.NoError(t, q.Close())

	assert.Len(t, m.ToChat("@yene_et"), 1)
}
