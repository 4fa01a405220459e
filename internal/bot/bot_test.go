package bot

import (
	"strconv"
	"strings"
	"testing"

	"github.com/m3rciful/estatebot/core/telegram/callbacks"
	"github.com/m3rciful/estatebot/core/telegram/state"
	"github.com/m3rciful/estatebot/internal/api"
	"github.com/m3rciful/estatebot/internal/bot/action"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRegistersUnknownCustomer(t *testing.T) {
	h := newHarness(t)

	c := h.say(userID, "/start")
	require.Equal(t, 1, h.api.count("RegisterCustomer"))
	assert.Contains(t, c.Last().Text(), "You're registered")
	require.NotNil(t, c.Last().Markup())

	c = h.say(userID, "/start")
	assert.Equal(t, 1, h.api.count("RegisterCustomer"))
	assert.Contains(t, c.Last().Text(), "Welcome back")
}

func TestUnavailableServiceGetsConnectivityMessage(t *testing.T) {
	h := newHarness(t)
	h.api.down = true

	for _, cmd := range []string{"/start", "/list_properties", "/list_tours", "/list_favorites"} {
		c := h.say(userID, cmd)
		assert.Equal(t, msgUnavailable, c.Last().Text(), cmd)
	}
}

func TestAdminCommandsRejectOthers(t *testing.T) {
	h := newHarness(t)

	for _, cmd := range []string{"/requests", "/list_users", "/respond 5"} {
		c := h.say(userID, cmd)
		assert.Equal(t, msgAccessDenied, c.Last().Text(), cmd)
	}
	c := h.press(userID, action.Paged(action.ListUsers, 1).Data())
	assert.Equal(t, msgAccessDenied, c.Last().Text())

	assert.Zero(t, h.api.count("ListRequests"))
	assert.Zero(t, h.api.count("ListCustomers"))
	assert.Zero(t, h.api.count("GetRequest"))
	assert.False(t, h.session(userID).InProgress())
}

func TestUnknownCallbackIsAnswered(t *testing.T) {
	h := newHarness(t)

	c := h.press(userID, callbacks.Encode("nonsense", "1"))
	assert.Contains(t, c.Last().Text(), "not recognized")

	c = h.press(userID, action.Paged(action.ListTours, 1).Data()+"x")
	assert.Contains(t, c.Last().Text(), "not recognized")
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)
	c := h.say(userID, "/teleport")
	assert.Equal(t, msgUnknown, c.Last().Text())
}

func TestListPropertiesPages(t *testing.T) {
	h := newHarness(t)
	h.api.owned[userID] = []api.Property{
		{ID: 1, Name: "Bole Villa", Status: api.StatusConfirmed},
		{ID: 2, Name: "CMC Flat", Status: api.StatusPending},
		{ID: 3, Name: "Lake House", Status: api.StatusRejected},
	}

	c := h.say(userID, "/list_properties")
	first := c.Last()
	assert.Contains(t, first.Text(), "Page 1")
	assert.Contains(t, first.Text(), "Bole Villa")
	assert.NotContains(t, first.Text(), "Lake House")

	c = h.press(userID, action.Paged(action.ListProperties, 9).Data())
	last := c.Last()
	assert.True(t, last.Edited)
	assert.Contains(t, last.Text(), "Page 2")
	assert.Contains(t, last.Text(), "3\\. 📍 *Lake House*")
}

func TestListUsersCountsConfirmed(t *testing.T) {
	h := newHarness(t)
	h.api.customers[1] = &api.Customer{TelegramID: "1", FullName: "Zed Agent", UserType: api.UserTypeAgent}
	h.api.customers[2] = &api.Customer{TelegramID: "2", FullName: "Abe Owner", UserType: api.UserTypeOwner}
	h.api.customers[3] = &api.Customer{TelegramID: "3", FullName: "Plain User", UserType: api.UserTypeUser}
	h.api.owned[2] = []api.Property{{ID: 1, Status: api.StatusConfirmed}, {ID: 2, Status: api.StatusPending}}

	c := h.say(adminID, "/list_users")
	text := c.Last().Text()
	assert.NotContains(t, text, "Plain User")
	require.Less(t, strings.Index(text, "Abe Owner"), strings.Index(text, "Zed Agent"))
	assert.Contains(t, text, "Confirmed Properties: `1`")
}

func TestListRequestsShowsPendingOnly(t *testing.T) {
	h := newHarness(t)
	h.api.requests[1] = &api.LiveRequest{ID: 1, UserID: "42", Name: "Open"}
	h.api.requests[2] = &api.LiveRequest{ID: 2, UserID: "43", Name: "Closed", IsResponded: true}

	c := h.say(adminID, "/requests")
	text := strings.Join(c.Texts(), "\n")
	assert.Contains(t, text, "/respond 1")
	assert.NotContains(t, text, "/respond 2")
}

func TestSplitChunksKeepsBlocksWhole(t *testing.T) {
	blocks := []string{strings.Repeat("a", 30), strings.Repeat("b", 30), strings.Repeat("c", 30)}
	got := splitChunks("H\n", blocks, 64)
	require.Len(t, got, 2)
	assert.Equal(t, "H\n"+blocks[0]+blocks[1], got[0])
	assert.Equal(t, blocks[2], got[1])

	got = splitChunks("", []string{strings.Repeat("x", 10)}, 4)
	assert.Equal(t, []string{"xxxx", "xxxx", "xx"}, got)
	for _, chunk := range splitChunks("", blocks, 45) {
		assert.LessOrEqual(t, len(chunk), 45)
	}
}

func TestToggleFavoriteAddsThenRemoves(t *testing.T) {
	h := newHarness(t)
	h.api.properties[7] = api.Property{ID: 7, Name: "Sunny_Loft"}
	data := action.Favorite(7).Data()

	h.press(userID, data)
	require.Len(t, h.api.favorites, 1)
	h.press(userID, data)
	assert.Empty(t, h.api.favorites)

	got := h.msgr.To(userID)
	require.Len(t, got, 2)
	assert.Equal(t, "❤️ Property *Sunny\\_Loft* added to your favorites\\!", got[0])
	assert.Equal(t, "❌ Property *Sunny\\_Loft* removed from your favorites\\.", got[1])
}

func TestFavoriteWithoutRecordIDIsNotRemoved(t *testing.T) {
	h := newHarness(t)
	h.api.favorites = []api.Favorite{{Property: 7, CustomerTelegramID: api.FlexID(userID)}}

	h.press(userID, action.Favorite(7).Data())

	assert.Len(t, h.api.favorites, 1)
	assert.Zero(t, h.api.count("DeleteFavorite"))
	require.NotEmpty(t, h.msgr.Sent)
	last := h.msgr.Sent[len(h.msgr.Sent)-1]
	assert.Equal(t, "❌ Could not identify the favorite record to remove. Contact support.", last.Text())
	assert.Empty(t, last.ParseMode())
}

func TestLegacyFavoriteDataStillWorks(t *testing.T) {
	h := newHarness(t)
	h.press(userID, "make_favorite_9")
	require.Len(t, h.api.favorites, 1)
	assert.Equal(t, int64(9), h.api.favorites[0].Property)
}

func TestCancelClearsFlowButKeepsPrefs(t *testing.T) {
	h := newHarness(t)

	h.say(userID, "/changelang")
	h.say(userID, "english")
	assert.Equal(t, "English", h.session(userID).Pref(PrefLanguage))

	h.say(userID, "/live_agent")
	h.say(userID, "Abebe")
	require.Equal(t, stateLivePhone, h.session(userID).State)

	c := h.say(userID, "/leave")
	assert.Equal(t, msgCancelled, c.Last().Text())
	s := h.session(userID)
	assert.Equal(t, state.StateIdle, s.State)
	assert.Empty(t, s.Flow)
	assert.Equal(t, "English", s.Pref(PrefLanguage))

	c = h.say(userID, "/cancel")
	assert.Equal(t, msgCancelled, c.Last().Text())
}

func TestCommandMidFlowGetsHint(t *testing.T) {
	h := newHarness(t)
	h.say(userID, "/live_agent")

	c := h.say(userID, "/list_tours")
	assert.Equal(t, msgBusy, c.Last().Text())
	assert.Zero(t, h.api.count("ListCustomerTours"))

	c = h.press(userID, action.Menu(action.ChangeLanguage).Data())
	assert.Equal(t, msgBusy, c.Last().Text())
	assert.Equal(t, stateLiveName, h.session(userID).State)
}

func TestFlowStepRejectsEmptyInput(t *testing.T) {
	h := newHarness(t)
	h.say(userID, "/live_agent")
	h.say(userID, "   ")
	assert.Equal(t, stateLiveName, h.session(userID).State)
}

func TestPageOfReadsCommandArgument(t *testing.T) {
	h := newHarness(t)
	for i := int64(1); i <= 5; i++ {
		h.api.tours = append(h.api.tours, api.Tour{ID: i, Property: i, TelegramID: api.FlexID(userID), TourDate: "Monday"})
	}
	c := h.say(userID, "/list_tours 3")
	assert.Contains(t, c.Last().Text(), "Page 3")
	assert.Contains(t, c.Last().Text(), "Unknown Property")
	assert.Contains(t, c.Last().Text(), strconv.Itoa(5)+"\\.")
}
