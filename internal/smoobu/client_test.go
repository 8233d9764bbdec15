package smoobu

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpenlodge/concierge/internal/cache"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	return NewClient("test-key", server.URL, 70, 5*time.Second, cache.New(), nil)
}

func TestCheckAvailability(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/booking/checkApartmentAvailability", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("Api-Key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req AvailabilityRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "2026-02-01", req.ArrivalDate)
		assert.Equal(t, "2026-02-05", req.DepartureDate)
		assert.Equal(t, 2, req.Guests)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"availableApartments": [1401001, 1401003],
			"prices": {
				"1401001": {"price": 480.0, "currency": "EUR"},
				"1401003": {"price": 612.4, "currency": "EUR"}
			}
		}`)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	res, err := c.CheckAvailability(context.Background(), AvailabilityRequest{
		ArrivalDate:   "2026-02-01",
		DepartureDate: "2026-02-05",
		Guests:        2,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1401001, 1401003}, res.AvailableApartments)
	assert.Equal(t, Rate{Price: 612.4, Currency: "EUR"}, res.Prices[1401003])
}

func TestCheckAvailabilityCaches(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.WriteString(w, `{"availableApartments":[1],"prices":{}}`)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	req := AvailabilityRequest{ArrivalDate: "2026-02-01", DepartureDate: "2026-02-05", Guests: 2}

	for i := 0; i < 3; i++ {
		_, err := c.CheckAvailability(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load(), "identical queries are served from cache")

	// Changing any parameter misses the cache.
	req.Guests = 3
	_, err := c.CheckAvailability(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCheckAvailabilityAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "smoobu is down")
	}))
	defer server.Close()

	c := newTestClient(t, server)
	_, err := c.CheckAvailability(context.Background(), AvailabilityRequest{ArrivalDate: "2026-02-01", DepartureDate: "2026-02-05"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Contains(t, apiErr.Body, "smoobu is down")
}

func TestCheckAvailabilityTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := NewClient("test-key", server.URL, 70, 50*time.Millisecond, cache.New(), nil)
	_, err := c.CheckAvailability(context.Background(), AvailabilityRequest{ArrivalDate: "2026-02-01", DepartureDate: "2026-02-05"})
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "err=%v", err)
}

func TestListApartmentsCaches(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "/api/apartments", r.URL.Path)
		io.WriteString(w, `{"apartments":[{"id":1401001,"name":"Apartment Enzian"}]}`)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	for i := 0; i < 2; i++ {
		apts, err := c.ListApartments(context.Background())
		require.NoError(t, err)
		require.Len(t, apts, 1)
		assert.Equal(t, "Apartment Enzian", apts[0].Name)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateReservation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/reservations", r.URL.Path)

		var res Reservation
		require.NoError(t, json.NewDecoder(r.Body).Decode(&res))
		assert.Equal(t, 70, res.ChannelID, "default channel id is filled in")
		assert.Equal(t, "Mira", res.FirstName)

		io.WriteString(w, `{"id": 987654}`)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	id, err := c.CreateReservation(context.Background(), Reservation{
		ArrivalDate:   "2026-02-01",
		DepartureDate: "2026-02-05",
		ApartmentID:   1401001,
		Adults:        2,
		FirstName:     "Mira",
		LastName:      "Huber",
		Email:         "mira@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, 987654, id)
}

func TestCreateReservationMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	_, err := c.CreateReservation(context.Background(), Reservation{ApartmentID: 1})
	assert.Error(t, err)
}

func TestAddPriceElement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/reservations/987654/price-elements", r.URL.Path)
		var el PriceElement
		require.NoError(t, json.NewDecoder(r.Body).Decode(&el))
		assert.Equal(t, "Haustier", el.Name)
		io.WriteString(w, `{"id": 1}`)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	err := c.AddPriceElement(context.Background(), 987654, PriceElement{
		Type:   "addon",
		Name:   "Haustier",
		Amount: 60,
	})
	assert.NoError(t, err)
}

func TestListBookings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/reservations", r.URL.Path)
		assert.Equal(t, "2026-02-01", r.URL.Query().Get("from"))
		assert.Equal(t, "2026-02-28", r.URL.Query().Get("to"))
		io.WriteString(w, `{"bookings":[{"id":1,"apartment_id":1401001,"arrival":"2026-02-01","departure":"2026-02-05","guest-name":"Mira Huber"}]}`)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	bookings, err := c.ListBookings(context.Background(), "2026-02-01", "2026-02-28")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "Mira Huber", bookings[0].GuestName)
}

func TestRaw(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/rates", r.URL.Path)
		io.WriteString(w, `{"data":{"1401001":[]}}`)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	raw, err := c.Raw(context.Background(), "/api/rates")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"1401001":[]}}`, string(raw))
}

func TestMissingAPIKey(t *testing.T) {
	c := NewClient("", "http://unused", 70, time.Second, cache.New(), nil)
	assert.False(t, c.Configured())
	_, err := c.CheckAvailability(context.Background(), AvailabilityRequest{})
	assert.Error(t, err)
}
