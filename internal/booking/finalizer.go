// Package booking turns a verified offer (or raw stay parameters) into
// a real Smoobu reservation.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/alpenlodge/concierge/internal/nlp"
	"github.com/alpenlodge/concierge/internal/observability/metrics"
	"github.com/alpenlodge/concierge/internal/offer"
	"github.com/alpenlodge/concierge/internal/payments"
	"github.com/alpenlodge/concierge/internal/smoobu"
	"github.com/alpenlodge/concierge/internal/units"
	"github.com/alpenlodge/concierge/pkg/logging"
)

// ReservationClient is the slice of the Smoobu client the finalizer
// uses.
type ReservationClient interface {
	CheckAvailability(ctx context.Context, req smoobu.AvailabilityRequest) (*smoobu.AvailabilityResult, error)
	CreateReservation(ctx context.Context, r smoobu.Reservation) (int, error)
	AddPriceElement(ctx context.Context, reservationID int, el smoobu.PriceElement) error
}

// GuestDetails are the contact fields a reservation needs. All of them
// are mandatory.
type GuestDetails struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

func (g GuestDetails) missingFields() []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"firstName", g.FirstName},
		{"lastName", g.LastName},
		{"email", g.Email},
		{"phone", g.Phone},
		{"street", g.Street},
		{"postalCode", g.PostalCode},
		{"city", g.City},
		{"country", g.Country},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Extras are optional priced add-ons for the stay.
type Extras struct {
	Pets int `json:"pets,omitempty"`
}

// Request is one finalize call. Either OfferToken or the raw stay
// fields must be present.
type Request struct {
	OfferToken  string       `json:"offerToken,omitempty"`
	ApartmentID int          `json:"apartmentId,omitempty"`
	Arrival     string       `json:"arrival,omitempty"`
	Departure   string       `json:"departure,omitempty"`
	Guests      int          `json:"guests,omitempty"`
	Guest       GuestDetails `json:"guest"`
	Extras      Extras       `json:"extras"`
	Notes       string       `json:"notes,omitempty"`
}

// ExtrasApplied reports the best-effort outcome of attaching extras.
// Errors here never roll back the reservation.
type ExtrasApplied struct {
	Applied []string `json:"applied,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// Result is a successful finalize outcome.
type Result struct {
	BookingID     int               `json:"bookingId"`
	ApartmentID   int               `json:"apartmentId"`
	ApartmentName string            `json:"apartmentName,omitempty"`
	Arrival       string            `json:"arrival"`
	Departure     string            `json:"departure"`
	Nights        int               `json:"nights"`
	Guests        int               `json:"guests"`
	Price         float64           `json:"price,omitempty"`
	Currency      string            `json:"currency,omitempty"`
	Extras        ExtrasApplied     `json:"extrasApplied"`
	Deposit       *payments.Deposit `json:"deposit,omitempty"`
	DepositError  string            `json:"depositError,omitempty"`
}

// Finalizer validates guest data, resolves the priced stay and creates
// the reservation.
type Finalizer struct {
	smoobu         ReservationClient
	units          *units.Directory
	signer         *offer.Signer
	deposits       *payments.Service
	metrics        *metrics.ConciergeMetrics
	logger         *logging.Logger
	petFeePerNight float64
	nowFn          func() time.Time
}

// NewFinalizer wires the finalizer. deposits and m may be nil.
func NewFinalizer(client ReservationClient, dir *units.Directory, signer *offer.Signer, deposits *payments.Service, m *metrics.ConciergeMetrics, logger *logging.Logger, petFeePerNight float64) *Finalizer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Finalizer{
		smoobu:         client,
		units:          dir,
		signer:         signer,
		deposits:       deposits,
		metrics:        m,
		logger:         logger,
		petFeePerNight: petFeePerNight,
		nowFn:          time.Now,
	}
}

// Finalize creates the reservation described by req. The returned
// *Error carries the public code and HTTP status on failure.
func (f *Finalizer) Finalize(ctx context.Context, req Request) (*Result, *Error) {
	// Without a signing secret no trusted price path exists, so the
	// endpoint refuses outright instead of accepting unvetted amounts.
	if !f.signer.Enabled() {
		return nil, errBookingDisabled()
	}

	if missing := req.Guest.missingFields(); len(missing) > 0 {
		return nil, errMissingGuestFields(missing)
	}

	stay, apiErr := f.resolveStay(ctx, req)
	if apiErr != nil {
		return nil, apiErr
	}

	reservation := smoobu.Reservation{
		ArrivalDate:   stay.arrival,
		DepartureDate: stay.departure,
		ApartmentID:   stay.apartmentID,
		Adults:        stay.guests,
		FirstName:     req.Guest.FirstName,
		LastName:      req.Guest.LastName,
		Email:         req.Guest.Email,
		Phone:         req.Guest.Phone,
		Notice:        buildNotice(req),
		Price:         stay.price,
	}
	started := f.nowFn()
	bookingID, err := f.smoobu.CreateReservation(ctx, reservation)
	f.metrics.ObserveUpstreamLatency("smoobu", time.Since(started).Seconds())
	if err != nil {
		f.logger.Error("reservation create failed", "error", err, "apartment", stay.apartmentID)
		return nil, errUpstream("reservation create failed")
	}
	f.logger.Info("reservation created", "booking_id", bookingID, "apartment", stay.apartmentID, "arrival", stay.arrival, "departure", stay.departure)

	nights := nlp.Nights(stay.arrival, stay.departure)
	result := &Result{
		BookingID:   bookingID,
		ApartmentID: stay.apartmentID,
		Arrival:     stay.arrival,
		Departure:   stay.departure,
		Nights:      nights,
		Guests:      stay.guests,
		Price:       stay.price,
		Currency:    stay.currency,
	}
	if u, ok := f.units.FindBySmoobuID(stay.apartmentID); ok {
		result.ApartmentName = u.Name
	}

	f.attachExtras(ctx, bookingID, req.Extras, nights, result)
	f.collectDeposit(ctx, bookingID, stay, result)
	return result, nil
}

type resolvedStay struct {
	apartmentID int
	arrival     string
	departure   string
	guests      int
	price       float64
	currency    string
}

// resolveStay trusts a verified offer token, or recomputes a fresh
// quote from raw parameters. Client-supplied prices are never used.
func (f *Finalizer) resolveStay(ctx context.Context, req Request) (*resolvedStay, *Error) {
	if req.OfferToken != "" {
		o, err := f.signer.Verify(req.OfferToken)
		if err != nil {
			return nil, errInvalidOffer()
		}
		arrival, departure, derr := normalizeStay(o.Arrival, o.Departure, f.nowFn())
		if derr != nil {
			return nil, derr
		}
		guests := o.Guests
		if guests <= 0 {
			guests = 1
		}
		return &resolvedStay{
			apartmentID: o.ApartmentID,
			arrival:     arrival,
			departure:   departure,
			guests:      guests,
			price:       o.Price,
			currency:    o.Currency,
		}, nil
	}

	if req.Arrival == "" || req.Departure == "" {
		var missing []string
		if req.Arrival == "" {
			missing = append(missing, "arrival")
		}
		if req.Departure == "" {
			missing = append(missing, "departure")
		}
		return nil, errMissingParams(missing...)
	}
	arrival, departure, derr := normalizeStay(req.Arrival, req.Departure, f.nowFn())
	if derr != nil {
		return nil, derr
	}
	guests := req.Guests
	if guests <= 0 {
		guests = 1
	}

	avail, err := f.smoobu.CheckAvailability(ctx, smoobu.AvailabilityRequest{
		ArrivalDate:   arrival,
		DepartureDate: departure,
		Guests:        guests,
	})
	if err != nil {
		f.logger.Error("finalize availability lookup failed", "error", err)
		return nil, errUpstream("availability lookup failed")
	}

	if req.ApartmentID > 0 {
		for _, id := range avail.AvailableApartments {
			if id == req.ApartmentID {
				stay := &resolvedStay{apartmentID: id, arrival: arrival, departure: departure, guests: guests}
				if rate, ok := avail.Prices[id]; ok {
					stay.price = rate.Price
					stay.currency = rate.Currency
				}
				return stay, nil
			}
		}
		return nil, errApartmentNotAvailable()
	}

	// No unit requested: take the cheapest priced unit that fits.
	best := (*resolvedStay)(nil)
	for _, id := range avail.AvailableApartments {
		u, ok := f.units.FindBySmoobuID(id)
		if !ok || !u.Active {
			continue
		}
		if u.MaxGuests > 0 && guests > u.MaxGuests {
			continue
		}
		rate, ok := avail.Prices[id]
		if !ok || rate.Price <= 0 {
			continue
		}
		if best == nil || rate.Price < best.price {
			best = &resolvedStay{
				apartmentID: id,
				arrival:     arrival,
				departure:   departure,
				guests:      guests,
				price:       rate.Price,
				currency:    rate.Currency,
			}
		}
	}
	if best == nil {
		return nil, errNoAvailability()
	}
	return best, nil
}

// normalizeStay re-parses both dates, swaps an inverted pair and
// rejects a zero-night stay.
func normalizeStay(arrival, departure string, now time.Time) (string, string, *Error) {
	a := nlp.ParseDate(arrival, now)
	d := nlp.ParseDate(departure, now)
	if a == "" || d == "" {
		return "", "", errInvalidDates("unparseable arrival or departure")
	}
	if a > d {
		a, d = d, a
	}
	if a == d {
		return "", "", errInvalidDates("minimum stay is one night")
	}
	return a, d, nil
}

func (f *Finalizer) attachExtras(ctx context.Context, bookingID int, extras Extras, nights int, result *Result) {
	if extras.Pets <= 0 || f.petFeePerNight <= 0 || nights <= 0 {
		return
	}
	amount := f.petFeePerNight * float64(nights) * float64(extras.Pets)
	el := smoobu.PriceElement{
		Type:     "addon",
		Name:     fmt.Sprintf("Haustier (%d x %d Nächte)", extras.Pets, nights),
		Amount:   amount,
		Quantity: 1,
	}
	if err := f.smoobu.AddPriceElement(ctx, bookingID, el); err != nil {
		f.logger.Warn("pet fee attach failed", "error", err, "booking_id", bookingID)
		result.Extras.Errors = append(result.Extras.Errors, fmt.Sprintf("pet fee: %v", err))
		return
	}
	result.Extras.Applied = append(result.Extras.Applied, el.Name)
}

// collectDeposit opens a Stripe payment intent for the deposit when
// payments are configured. A failure is reported, never fatal.
func (f *Finalizer) collectDeposit(ctx context.Context, bookingID int, stay *resolvedStay, result *Result) {
	if !f.deposits.Enabled() || stay.price <= 0 {
		return
	}
	dep, err := f.deposits.CreateDeposit(ctx, stay.price, stay.currency, fmt.Sprintf("%d", bookingID))
	if err != nil {
		result.DepositError = "deposit could not be initiated"
		return
	}
	result.Deposit = dep
}

func buildNotice(req Request) string {
	notice := req.Notes
	if req.Extras.Pets > 0 {
		if notice != "" {
			notice += " | "
		}
		notice += fmt.Sprintf("Haustiere: %d", req.Extras.Pets)
	}
	if notice == "" {
		notice = "Online-Buchung via Concierge-Chat"
	}
	return notice
}
