// Package smoobu talks to the Smoobu channel manager: availability and
// rate lookups, reservation creation and price elements.
package smoobu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alpenlodge/concierge/internal/cache"
	"github.com/alpenlodge/concierge/pkg/logging"
)

const (
	defaultBaseURL = "https://login.smoobu.com"
	defaultTimeout = 20 * time.Second

	availabilityCacheTTL = 30 * time.Second
	apartmentsCacheTTL   = 5 * time.Minute
)

// APIError is a non-2xx answer from Smoobu. The body is kept (truncated)
// for logs; handlers map any APIError to a generic upstream failure.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("smoobu: status %d: %s", e.Status, e.Body)
}

// IsTimeout reports whether err is a client-side timeout or context
// deadline rather than a Smoobu rejection.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue) && ue.Timeout()
}

// AvailabilityRequest are the parameters of a price/availability check.
type AvailabilityRequest struct {
	ArrivalDate   string `json:"arrivalDate"`
	DepartureDate string `json:"departureDate"`
	Guests        int    `json:"guests,omitempty"`
	Apartments    []int  `json:"apartments,omitempty"`
	CustomerID    int    `json:"customerId,omitempty"`
}

// Rate is the nightly-total price Smoobu quotes for one apartment.
type Rate struct {
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

// AvailabilityResult lists the bookable apartment ids and their quotes.
type AvailabilityResult struct {
	AvailableApartments []int        `json:"availableApartments"`
	Prices              map[int]Rate `json:"prices"`
}

// Apartment is one entry of Smoobu's apartment listing.
type Apartment struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Reservation creates a booking in Smoobu.
type Reservation struct {
	ArrivalDate   string  `json:"arrivalDate"`
	DepartureDate string  `json:"departureDate"`
	ApartmentID   int     `json:"apartmentId"`
	ChannelID     int     `json:"channelId"`
	Adults        int     `json:"adults"`
	Children      int     `json:"children,omitempty"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone,omitempty"`
	Notice        string  `json:"notice,omitempty"`
	Price         float64 `json:"price,omitempty"`
}

// PriceElement is an extra line item on an existing reservation.
type PriceElement struct {
	Type     string  `json:"type"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Quantity int     `json:"quantity,omitempty"`
	Tax      float64 `json:"tax,omitempty"`
}

// Booking is one reservation row from Smoobu's bookings listing.
type Booking struct {
	ID          int    `json:"id"`
	ApartmentID int    `json:"apartment_id"`
	Arrival     string `json:"arrival"`
	Departure   string `json:"departure"`
	GuestName   string `json:"guest-name"`
	Channel     string `json:"channel_name"`
	Type        string `json:"type"`
}

// Client calls the Smoobu API. Availability answers are cached for 30
// seconds and the apartment list for 5 minutes, keyed on the exact
// request parameters, so a burst of chat turns does not hammer Smoobu.
type Client struct {
	baseURL    string
	apiKey     string
	channelID  int
	httpClient *http.Client
	cache      *cache.Cache
	logger     *logging.Logger
	nowFn      func() time.Time
}

// NewClient creates a Smoobu client. baseURL falls back to the public
// endpoint when empty.
func NewClient(apiKey, baseURL string, channelID int, timeout time.Duration, c *cache.Cache, logger *logging.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if c == nil {
		c = cache.New()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		channelID:  channelID,
		httpClient: &http.Client{Timeout: timeout},
		cache:      c,
		logger:     logger,
		nowFn:      time.Now,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// CheckAvailability asks Smoobu which apartments are free for the stay
// and what they cost.
func (c *Client) CheckAvailability(ctx context.Context, req AvailabilityRequest) (*AvailabilityResult, error) {
	key := cache.Key("availability", req)
	if hit, ok := c.cache.Get(key); ok {
		return hit.(*AvailabilityResult), nil
	}

	var out struct {
		AvailableApartments []int           `json:"availableApartments"`
		Prices              map[string]Rate `json:"prices"`
	}
	if err := c.do(ctx, http.MethodPost, "/booking/checkApartmentAvailability", req, &out); err != nil {
		return nil, err
	}

	result := &AvailabilityResult{
		AvailableApartments: out.AvailableApartments,
		Prices:              make(map[int]Rate, len(out.Prices)),
	}
	// Smoobu keys the price map with stringified apartment ids.
	for idStr, rate := range out.Prices {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		result.Prices[id] = rate
	}

	c.cache.Set(key, result, availabilityCacheTTL)
	return result, nil
}

// ListApartments returns every apartment visible to the API key.
func (c *Client) ListApartments(ctx context.Context) ([]Apartment, error) {
	key := cache.Key("apartments", nil)
	if hit, ok := c.cache.Get(key); ok {
		return hit.([]Apartment), nil
	}

	var out struct {
		Apartments []Apartment `json:"apartments"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/apartments", nil, &out); err != nil {
		return nil, err
	}

	c.cache.Set(key, out.Apartments, apartmentsCacheTTL)
	return out.Apartments, nil
}

// CreateReservation books the stay and returns Smoobu's reservation id.
func (c *Client) CreateReservation(ctx context.Context, r Reservation) (int, error) {
	if r.ChannelID == 0 {
		r.ChannelID = c.channelID
	}
	var out struct {
		ID int `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/reservations", r, &out); err != nil {
		return 0, err
	}
	if out.ID == 0 {
		return 0, errors.New("smoobu: reservation response without id")
	}
	return out.ID, nil
}

// AddPriceElement attaches an extra charge, such as a pet fee, to an
// existing reservation.
func (c *Client) AddPriceElement(ctx context.Context, reservationID int, el PriceElement) error {
	path := fmt.Sprintf("/api/reservations/%d/price-elements", reservationID)
	var out json.RawMessage
	return c.do(ctx, http.MethodPost, path, el, &out)
}

// ListBookings fetches reservations between from and to (YYYY-MM-DD).
func (c *Client) ListBookings(ctx context.Context, from, to string) ([]Booking, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	path := "/api/reservations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Bookings []Booking `json:"bookings"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Bookings, nil
}

// Raw proxies an arbitrary GET under /api for the admin debug surface
// and returns the unparsed body.
func (c *Client) Raw(ctx context.Context, path string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	if c.apiKey == "" {
		return errors.New("smoobu: missing api key")
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("smoobu: marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("smoobu: create request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := c.nowFn()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if IsTimeout(err) {
			c.logger.Warn("smoobu request timed out", "path", path, "elapsed", time.Since(start).String())
		}
		return fmt.Errorf("smoobu: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("smoobu: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return &APIError{Status: resp.StatusCode, Body: msg}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("smoobu: unmarshal response: %w", err)
		}
	}
	return nil
}
