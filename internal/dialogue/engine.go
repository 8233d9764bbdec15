// Package dialogue drives the multi-turn booking conversation: it
// derives the effective state from the session draft each turn, fills
// slots from the latest utterance and answers with priced options.
package dialogue

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/alpenlodge/concierge/internal/nlp"
	"github.com/alpenlodge/concierge/internal/observability/metrics"
	"github.com/alpenlodge/concierge/internal/offer"
	"github.com/alpenlodge/concierge/internal/session"
	"github.com/alpenlodge/concierge/internal/smoobu"
	"github.com/alpenlodge/concierge/internal/units"
	"github.com/alpenlodge/concierge/pkg/logging"
)

// SourceBooking tags replies produced by the booking engine, so the
// chat transport can report where an answer came from.
const SourceBooking = "booking"

const (
	maxListed       = 8
	maxStoredOption = 10
)

// AvailabilityClient is the slice of the Smoobu client the engine needs.
type AvailabilityClient interface {
	CheckAvailability(ctx context.Context, req smoobu.AvailabilityRequest) (*smoobu.AvailabilityResult, error)
}

// TurnError carries an upstream failure out-of-band. The user only sees
// the apologetic reply text, never the raw detail.
type TurnError struct {
	Code   string
	Detail string
}

// Reply is one answered chat turn.
type Reply struct {
	Text    string
	Actions []Action
	Source  string
	Err     *TurnError
}

// Engine orchestrates booking turns against the session store, the unit
// directory and the availability provider.
type Engine struct {
	store          *session.Store
	units          *units.Directory
	avail          AvailabilityClient
	signer         *offer.Signer
	metrics        *metrics.ConciergeMetrics
	logger         *logging.Logger
	bookingPageURL string
	nowFn          func() time.Time
}

// NewEngine wires the booking engine. signer and m may be nil.
func NewEngine(store *session.Store, dir *units.Directory, avail AvailabilityClient, signer *offer.Signer, m *metrics.ConciergeMetrics, logger *logging.Logger, bookingPageURL string) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	if bookingPageURL == "" {
		bookingPageURL = "/buchen/"
	}
	return &Engine{
		store:          store,
		units:          dir,
		avail:          avail,
		signer:         signer,
		metrics:        m,
		logger:         logger,
		bookingPageURL: bookingPageURL,
		nowFn:          time.Now,
	}
}

// Handles reports whether the utterance belongs to the booking flow:
// either it carries booking intent on its own, or an earlier turn
// already opened a draft for this session.
func (e *Engine) Handles(sessionID, text string) bool {
	if IsBookingIntent(text, e.nowFn()) {
		return true
	}
	sess := e.store.Get(sessionID)
	return sess != nil && sess.Booking != nil && sess.Booking.InProgress
}

// Turn processes one booking utterance and returns the reply. All
// draft reads and writes happen under the session's lock, so a
// double-sent message cannot drop slot updates.
func (e *Engine) Turn(ctx context.Context, sessionID, lang, text string) Reply {
	var reply Reply
	e.store.Update(sessionID, func(sess *session.Session) {
		reply = e.turn(ctx, sess, lang, text)
	})
	return reply
}

func (e *Engine) turn(ctx context.Context, sess *session.Session, lang, text string) Reply {
	d := sess.Booking
	if d == nil {
		d = &session.Draft{}
		sess.Booking = d
	}

	if IsReset(text) {
		category := d.CategoryFilter
		*d = session.Draft{CategoryFilter: category, InProgress: true}
		return e.askDatesReply(lang)
	}
	if IsClearFilters(text) {
		d.ClearFilters()
	}
	if IsBack(text) {
		d.Selected = 0
		d.UnitFilter = 0
	}

	// A bare number picks from the last shown list. Out-of-range input
	// falls through as if nothing was selected.
	if n := BareSelection(text); n > 0 && len(d.LastOptions) > 0 {
		if n <= len(d.LastOptions) {
			picked := d.LastOptions[n-1]
			d.Selected = picked.ApartmentID
			d.UnitFilter = picked.ApartmentID
		}
	}

	e.extractSlots(d, text)
	d.InProgress = true

	if d.Arrival == "" {
		return e.askDatesReply(lang)
	}
	if d.Departure == "" {
		return e.askDepartureReply(lang, d.Arrival)
	}

	guests := d.Guests
	defaulted := guests == 0
	if defaulted {
		guests = 1
	}

	req := smoobu.AvailabilityRequest{
		ArrivalDate:   d.Arrival,
		DepartureDate: d.Departure,
		Guests:        guests,
	}
	if d.UnitFilter > 0 {
		req.Apartments = []int{d.UnitFilter}
	}

	result, err := e.avail.CheckAvailability(ctx, req)
	if err != nil {
		e.metrics.ObserveAvailability("error")
		e.logger.Error("availability lookup failed", "error", err, "arrival", d.Arrival, "departure", d.Departure)
		reply := e.apologyReply(lang)
		code := "upstream_error"
		if smoobu.IsTimeout(err) {
			code = "upstream_timeout"
		}
		reply.Err = &TurnError{Code: code, Detail: err.Error()}
		return reply
	}

	options := e.buildOptions(d, result, guests)
	if len(options) == 0 {
		e.metrics.ObserveAvailability("empty")
		d.LastOptions = nil
		return e.noAvailabilityReply(lang, d.Arrival, d.Departure)
	}
	e.metrics.ObserveAvailability("ok")

	if d.Selected > 0 {
		for _, opt := range options {
			if opt.ApartmentID == d.Selected {
				d.LastOptions = []session.StayOption{opt}
				return e.focusedReply(lang, d, opt, defaulted)
			}
		}
		// The picked unit dropped out (sold, capacity); re-list.
		d.Selected = 0
	}

	shown := options
	hidden := 0
	if len(shown) > maxListed {
		hidden = len(shown) - maxListed
		shown = shown[:maxListed]
	}
	stored := options
	if len(stored) > maxStoredOption {
		stored = stored[:maxStoredOption]
	}
	d.LastOptions = stored
	return e.listReply(lang, d, shown, hidden, defaulted)
}

// extractSlots merges every field the utterance mentions into the
// draft. Absent fields never clear earlier values.
func (e *Engine) extractSlots(d *session.Draft, text string) {
	now := e.nowFn()
	var found session.Draft
	found.Arrival, found.Departure = nlp.ParseDateRange(text, now)
	// A lone later date after an arrival-only draft is the departure
	// ("bis 5.2.26"), not a replacement arrival.
	if found.Departure == "" && found.Arrival != "" &&
		d.Arrival != "" && d.Departure == "" && found.Arrival > d.Arrival {
		found.Departure = found.Arrival
		found.Arrival = ""
	}
	found.Guests = nlp.ParseGuestCount(text)
	found.CategoryFilter = units.DetectCategoryMention(text)
	if u, ok := e.units.FindByNameMention(text); ok {
		found.UnitFilter = u.SmoobuID
		d.Selected = u.SmoobuID
	}
	d.Merge(found)

	// "3 Nächte" after an arrival-only turn fixes the departure.
	if d.Arrival != "" && d.Departure == "" {
		if n := nlp.ParseNights(text); n > 0 {
			d.Departure = nlp.AddNights(d.Arrival, n)
		}
	}
}

// buildOptions resolves provider ids against the registry, applies the
// draft's filters and the capacity cut, and sorts deterministically:
// priced ascending, unpriced after, ties by collated name.
func (e *Engine) buildOptions(d *session.Draft, result *smoobu.AvailabilityResult, guests int) []session.StayOption {
	options := make([]session.StayOption, 0, len(result.AvailableApartments))
	for _, id := range result.AvailableApartments {
		u, ok := e.units.FindBySmoobuID(id)
		if !ok || !u.Active {
			continue
		}
		if d.CategoryFilter != "" && u.Category != d.CategoryFilter {
			continue
		}
		if d.UnitFilter > 0 && id != d.UnitFilter {
			continue
		}
		if u.MaxGuests > 0 && guests > u.MaxGuests {
			continue
		}
		opt := session.StayOption{
			ApartmentID: id,
			Name:        u.Name,
			Category:    u.Category,
			MaxGuests:   u.MaxGuests,
			AreaSqm:     u.AreaSqm,
			BookingURL:  e.bookingPageURL,
		}
		if u.HTMLFile != "" {
			opt.DetailsURL = "/" + u.HTMLFile
		}
		if rate, ok := result.Prices[id]; ok && rate.Price > 0 {
			opt.Price = rate.Price
			opt.Currency = rate.Currency
		}
		options = append(options, opt)
	}

	coll := collate.New(language.German, collate.IgnoreCase)
	sort.SliceStable(options, func(i, j int) bool {
		a, b := options[i], options[j]
		switch {
		case a.Priced() && b.Priced():
			if a.Price != b.Price {
				return a.Price < b.Price
			}
			return coll.CompareString(a.Name, b.Name) < 0
		case a.Priced():
			return true
		case b.Priced():
			return false
		default:
			return coll.CompareString(a.Name, b.Name) < 0
		}
	})
	return options
}

// bookingURL carries the draft's stay into the manual booking page.
func (e *Engine) bookingURL(d *session.Draft) string {
	q := url.Values{}
	if d.Arrival != "" {
		q.Set("arrival", d.Arrival)
	}
	if d.Departure != "" {
		q.Set("departure", d.Departure)
	}
	if d.Guests > 0 {
		q.Set("guests", fmt.Sprintf("%d", d.Guests))
	}
	if len(q) == 0 {
		return e.bookingPageURL
	}
	return e.bookingPageURL + "?" + q.Encode()
}

// offerBookingURL additionally pins the picked unit and, when signing
// is configured, a short-lived offer token binding the quoted price.
func (e *Engine) offerBookingURL(d *session.Draft, opt session.StayOption) string {
	q := url.Values{}
	q.Set("apartment", fmt.Sprintf("%d", opt.ApartmentID))
	if d.Arrival != "" {
		q.Set("arrival", d.Arrival)
	}
	if d.Departure != "" {
		q.Set("departure", d.Departure)
	}
	guests := d.Guests
	if guests == 0 {
		guests = 1
	}
	q.Set("guests", fmt.Sprintf("%d", guests))

	if e.signer.Enabled() && opt.Priced() {
		token, err := e.signer.Sign(&offer.Offer{
			ApartmentID: opt.ApartmentID,
			Arrival:     d.Arrival,
			Departure:   d.Departure,
			Guests:      guests,
			Price:       opt.Price,
			Currency:    opt.Currency,
		})
		if err == nil {
			q.Set("offer", token)
		}
	}
	return e.bookingPageURL + "?" + q.Encode()
}

func nightsBetween(arrival, departure string) int {
	return nlp.Nights(arrival, departure)
}
