package bot

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	tg "github.com/m3rciful/estatebot/core/telegram"
	"github.com/m3rciful/estatebot/core/telegram/state"
	"github.com/m3rciful/estatebot/core/telegram/teletest"
	"github.com/m3rciful/estatebot/internal/api"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

// fakeAPI is an in-memory Backend. Setting down makes every call fail the
// way an unreachable service does.
type fakeAPI struct {
	mu         sync.Mutex
	down       bool
	nextID     int64
	calls      map[string]int
	customers  map[int64]*api.Customer
	properties map[int64]api.Property
	owned      map[int64][]api.Property
	tours      []api.Tour
	favorites  []api.Favorite
	requests   map[int64]*api.LiveRequest
	messages   []api.Message
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		nextID:     100,
		calls:      map[string]int{},
		customers:  map[int64]*api.Customer{},
		properties: map[int64]api.Property{},
		owned:      map[int64][]api.Property{},
		requests:   map[int64]*api.LiveRequest{},
	}
}

func (f *fakeAPI) call(op string) error {
	f.calls[op]++
	if f.down {
		return fmt.Errorf("%s: %w", op, api.ErrUnavailable)
	}
	return nil
}

func (f *fakeAPI) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAPI) RegisterCustomer(_ context.Context, telegramID int64, fullName, username string) (*api.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("RegisterCustomer"); err != nil {
		return nil, err
	}
	c := &api.Customer{TelegramID: api.FlexID(telegramID), FullName: fullName, Username: username, UserType: api.UserTypeUser}
	f.customers[telegramID] = c
	return c, nil
}

func (f *fakeAPI) GetCustomer(_ context.Context, telegramID int64) (*api.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GetCustomer"); err != nil {
		return nil, err
	}
	c, ok := f.customers[telegramID]
	if !ok {
		return nil, api.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeAPI) ListCustomers(context.Context) ([]api.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("ListCustomers"); err != nil {
		return nil, err
	}
	out := make([]api.Customer, 0, len(f.customers))
	for _, c := range f.customers {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeAPI) ListCustomerProperties(_ context.Context, telegramID int64) ([]api.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("ListCustomerProperties"); err != nil {
		return nil, err
	}
	return append([]api.Property(nil), f.owned[telegramID]...), nil
}

func (f *fakeAPI) ListCustomerTours(_ context.Context, telegramID int64) ([]api.Tour, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("ListCustomerTours"); err != nil {
		return nil, err
	}
	var out []api.Tour
	for _, t := range f.tours {
		if t.TelegramID == api.FlexID(telegramID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeAPI) ListCustomerFavorites(_ context.Context, telegramID int64) ([]api.Favorite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("ListCustomerFavorites"); err != nil {
		return nil, err
	}
	var out []api.Favorite
	for _, fav := range f.favorites {
		if fav.CustomerTelegramID == api.FlexID(telegramID) {
			out = append(out, fav)
		}
	}
	return out, nil
}

func (f *fakeAPI) GetProperty(_ context.Context, id int64) (*api.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GetProperty"); err != nil {
		return nil, err
	}
	p, ok := f.properties[id]
	if !ok {
		return nil, api.ErrNotFound
	}
	return &p, nil
}

func (f *fakeAPI) CreateFavorite(_ context.Context, propertyID, telegramID int64) (*api.Favorite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateFavorite"); err != nil {
		return nil, err
	}
	fav := api.Favorite{ID: f.id(), Property: propertyID, CustomerTelegramID: api.FlexID(telegramID)}
	f.favorites = append(f.favorites, fav)
	return &fav, nil
}

func (f *fakeAPI) DeleteFavorite(_ context.Context, favoriteID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteFavorite"); err != nil {
		return err
	}
	for i, fav := range f.favorites {
		if fav.ID == favoriteID {
			f.favorites = append(f.favorites[:i], f.favorites[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete favorite: %w", api.ErrUnavailable)
}

func (f *fakeAPI) CreateTour(_ context.Context, t api.Tour) (*api.Tour, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateTour"); err != nil {
		return nil, err
	}
	t.ID = f.id()
	t.Status = "pending"
	f.tours = append(f.tours, t)
	return &t, nil
}

func (f *fakeAPI) CreateRequest(_ context.Context, r api.LiveRequest) (*api.LiveRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateRequest"); err != nil {
		return nil, err
	}
	r.ID = f.id()
	f.requests[r.ID] = &r
	cp := r
	return &cp, nil
}

func (f *fakeAPI) ListRequests(context.Context) ([]api.LiveRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("ListRequests"); err != nil {
		return nil, err
	}
	out := make([]api.LiveRequest, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeAPI) GetRequest(_ context.Context, id int64) (*api.LiveRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GetRequest"); err != nil {
		return nil, err
	}
	r, ok := f.requests[id]
	if !ok {
		return nil, api.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeAPI) MarkRequestResponded(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("MarkRequestResponded"); err != nil {
		return err
	}
	if r, ok := f.requests[id]; ok {
		r.IsResponded = true
	}
	return nil
}

func (f *fakeAPI) CreateMessage(_ context.Context, m api.Message) (*api.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateMessage"); err != nil {
		return nil, err
	}
	m.ID = f.id()
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.ID) * time.Minute)
	}
	f.messages = append(f.messages, m)
	return &m, nil
}

func (f *fakeAPI) ListMessages(context.Context) ([]api.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("ListMessages"); err != nil {
		return nil, err
	}
	return append([]api.Message(nil), f.messages...), nil
}

const (
	adminID = int64(900)
	userID  = int64(42)
)

// harness drives the bot through the same routes the runtime binds.
type harness struct {
	t      *testing.T
	api    *fakeAPI
	msgr   *teletest.Messenger
	fsm    *state.Machine
	store  *state.MemoryStore
	bot    *Bot
	text   tele.HandlerFunc
	button tele.HandlerFunc
}

func newHarness(t *testing.T, admins ...int64) *harness {
	t.Helper()
	if len(admins) == 0 {
		admins = []int64{adminID}
	}
	h := &harness{t: t, api: newFakeAPI(), msgr: &teletest.Messenger{}, store: state.NewMemoryStore()}
	h.fsm = state.NewMachine(h.store, state.Options{})
	h.bot = New(Options{
		API:         h.api,
		FSM:         h.fsm,
		Messenger:   h.msgr,
		AdminIDs:    admins,
		BotUsername: "estate_bot",
	})
	reg := tg.NewRegistry()
	require.NoError(t, h.bot.Register(reg))
	for _, r := range h.bot.Routes(reg, h.fsm.Serialize()) {
		switch r.Endpoint {
		case tele.OnText:
			h.text = r.Handler
		case tele.OnCallback:
			h.button = r.Handler
		}
	}
	require.NotNil(t, h.text)
	require.NotNil(t, h.button)
	return h
}

// say sends text from uid in their private chat.
func (h *harness) say(uid int64, text string) *teletest.Context {
	h.t.Helper()
	c := teletest.Message(uid, text)
	_ = h.text(c)
	return c
}

// press taps a button carrying data in uid's private chat.
func (h *harness) press(uid int64, data string) *teletest.Context {
	h.t.Helper()
	c := teletest.Callback(uid, uid, data)
	_ = h.button(c)
	return c
}

func (h *harness) session(uid int64) *state.Session {
	h.t.Helper()
	s, err := h.fsm.Load(context.Background(), state.Key{UserID: uid, ChatID: uid})
	require.NoError(h.t, err)
	return s
}
