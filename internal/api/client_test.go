package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/api", LiveURL: srv.URL + "/live"})
}

func TestFlexDecodesNumbersAndStrings(t *testing.T) {
	var v struct {
		A Flex `json:"a"`
		B Flex `json:"b"`
		C Flex `json:"c"`
		D Flex `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 1648265210, "b": " 42 ", "c": null, "d": 12.50}`), &v))
	assert.Equal(t, Flex("1648265210"), v.A)
	assert.Equal(t, Flex("42"), v.B)
	assert.Equal(t, Flex(""), v.C)
	assert.Equal(t, Flex("12.50"), v.D)

	n, ok := v.A.Int64()
	assert.True(t, ok)
	assert.EqualValues(t, 1648265210, n)
	_, ok = v.D.Int64()
	assert.False(t, ok)
}

func TestGetCustomer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/customers/7/":
			_, _ = w.Write([]byte(`{"telegram_id": 7, "full_name": "Abebe", "user_type": "agent", "profile_token": "tok"}`))
		default:
			http.NotFound(w, r)
		}
	})

	cust, err := c.GetCustomer(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Abebe", cust.FullName)
	assert.True(t, cust.Upgraded())

	_, err = c.GetCustomer(context.Background(), 8)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestRegisterCustomerPayload(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/customers/", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"telegram_id": "7", "full_name": "Abebe", "user_type": "user"}`))
	})

	cust, err := c.RegisterCustomer(context.Background(), 7, "Abebe", "abebe")
	require.NoError(t, err)
	assert.Equal(t, "user", cust.UserType)
	assert.Equal(t, map[string]any{"telegram_id": "7", "full_name": "Abebe", "username": "abebe"}, got)
}

func TestUpdateCustomerType(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		if r.URL.Path != "/api/customers/7/" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"telegram_id": 7, "full_name": "Abebe", "user_type": "agent"}`))
	})

	cust, err := c.UpdateCustomerType(context.Background(), 7, "agent")
	require.NoError(t, err)
	assert.True(t, cust.Upgraded())
	assert.Equal(t, map[string]any{"user_type": "agent"}, got)

	_, err = c.UpdateCustomerType(context.Background(), 8, "agent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusFailuresAreUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := c.ListCustomerTours(context.Background(), 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "API_UNAVAILABLE", apiErr.Code())
}

func TestNotFoundOnListIsUnavailable(t *testing.T) {
	c := newTestClient(t, http.NotFound)
	_, err := c.ListRequests(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTimeoutMatchesStatusFailure(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})
	c := New(Options{BaseURL: srv.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.GetProperty(ctx, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestTimeoutClamped(t *testing.T) {
	assert.Equal(t, DefaultTimeout, New(Options{}).Timeout())
	assert.Equal(t, 10*time.Second, New(Options{Timeout: time.Second}).Timeout())
	assert.Equal(t, 30*time.Second, New(Options{Timeout: time.Minute}).Timeout())
}

func TestCreateTourPayload(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tours/", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 3, "property": 12}`))
	})

	tour, err := c.CreateTour(context.Background(), Tour{
		Property:     12,
		FullName:     "Sara",
		PhoneNumber:  "+251911",
		TourDate:     "Monday",
		TourTimeSlot: "9-11",
		TelegramID:   FlexID(5),
		Username:     "sara",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, tour.ID)
	assert.Equal(t, map[string]any{
		"property":       float64(12),
		"full_name":      "Sara",
		"phone_number":   "+251911",
		"tour_date":      "Monday",
		"tour_time_slot": "9-11",
		"telegram_id":    "5",
		"username":       "sara",
	}, got)
}

func TestFavoriteRoundTrip(t *testing.T) {
	var deleted string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "9", body["customer_telegram_id"])
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": 77, "property": 4, "customer_telegram_id": 9}`))
		case http.MethodDelete:
			deleted = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		}
	})

	fav, err := c.CreateFavorite(context.Background(), 4, 9)
	require.NoError(t, err)
	assert.EqualValues(t, 77, fav.ID)
	require.NoError(t, c.DeleteFavorite(context.Background(), fav.ID))
	assert.Equal(t, "/api/favorites/77/", deleted)
}

func TestLiveEndpointsUseLiveBase(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodPatch:
			var body map[string]bool
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.True(t, body["is_responded"])
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": 1, "request": 5, "sender_id": 1, "user_id": 2, "content": "hi"}`))
		default:
			_, _ = w.Write([]byte(`[{"id": 1, "request": 5, "sender_id": "1", "user_id": "2", "content": "hi", "timestamp": "2024-05-01T10:00:00Z"}]`))
		}
	})

	ctx := context.Background()
	_, err := c.CreateMessage(ctx, Message{Request: 5, SenderID: "1", UserID: "2", Content: "hi"})
	require.NoError(t, err)
	msgs, err := c.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, 2024, msgs[0].Timestamp.Year())
	require.NoError(t, c.MarkRequestResponded(ctx, 5))

	assert.Equal(t, []string{"POST /live/messages/", "GET /live/messages/", "PATCH /live/requests/5/"}, paths)
}
