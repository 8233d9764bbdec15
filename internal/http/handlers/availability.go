// Package handlers holds the JSON endpoints that sit next to the chat
// transport: the availability lookup the booking page polls, the
// finalize endpoint, and the admin and debug surfaces.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/alpenlodge/concierge/internal/booking"
	"github.com/alpenlodge/concierge/internal/nlp"
	"github.com/alpenlodge/concierge/internal/observability/metrics"
	"github.com/alpenlodge/concierge/internal/offer"
	"github.com/alpenlodge/concierge/internal/smoobu"
	"github.com/alpenlodge/concierge/internal/units"
	"github.com/alpenlodge/concierge/pkg/logging"
)

// AvailabilityRequest is the booking page's lookup payload.
type AvailabilityRequest struct {
	Arrival    string `json:"arrival"`
	Departure  string `json:"departure"`
	Guests     int    `json:"guests,omitempty"`
	Apartments []int  `json:"apartments,omitempty"`
}

// AvailabilityOffer is one signed, bookable quote in the response.
type AvailabilityOffer struct {
	ApartmentID int     `json:"apartmentId"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Token       string  `json:"token"`
	ExpiresAt   int64   `json:"expiresAt"`
}

// AvailabilityResponse mirrors the provider answer, narrowed to units
// the registry knows and extended with signed offers.
type AvailabilityResponse struct {
	Arrival             string              `json:"arrival"`
	Departure           string              `json:"departure"`
	Nights              int                 `json:"nights"`
	Guests              int                 `json:"guests,omitempty"`
	AvailableApartments []int               `json:"availableApartments"`
	Prices              map[int]smoobu.Rate `json:"prices"`
	Offers              []AvailabilityOffer `json:"offers,omitempty"`
}

// AvailabilityHandler serves POST /api/smoobu/availability.
type AvailabilityHandler struct {
	Smoobu  *smoobu.Client
	Units   *units.Directory
	Signer  *offer.Signer
	Metrics *metrics.ConciergeMetrics
	Logger  *logging.Logger
}

func (h *AvailabilityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &booking.Error{Code: booking.CodeMissingParams, Status: http.StatusBadRequest, Fields: []string{"arrival", "departure"}})
		return
	}
	var missing []string
	if req.Arrival == "" {
		missing = append(missing, "arrival")
	}
	if req.Departure == "" {
		missing = append(missing, "departure")
	}
	if len(missing) > 0 {
		writeError(w, &booking.Error{Code: booking.CodeMissingParams, Status: http.StatusBadRequest, Fields: missing})
		return
	}
	if !validISODate(req.Arrival) || !validISODate(req.Departure) {
		writeError(w, &booking.Error{Code: booking.CodeInvalidDates, Status: http.StatusBadRequest, Detail: "dates must be YYYY-MM-DD"})
		return
	}
	if req.Departure <= req.Arrival {
		writeError(w, &booking.Error{Code: booking.CodeInvalidDates, Status: http.StatusBadRequest, Detail: "departure must be after arrival"})
		return
	}

	result, err := h.Smoobu.CheckAvailability(r.Context(), smoobu.AvailabilityRequest{
		ArrivalDate:   req.Arrival,
		DepartureDate: req.Departure,
		Guests:        req.Guests,
		Apartments:    req.Apartments,
	})
	if err != nil {
		h.Metrics.ObserveAvailability("upstream_error")
		h.Logger.Error("availability lookup failed", "error", err)
		writeError(w, &booking.Error{Code: booking.CodeUpstreamError, Status: http.StatusBadGateway})
		return
	}

	resp := AvailabilityResponse{
		Arrival:   req.Arrival,
		Departure: req.Departure,
		Nights:    nlp.Nights(req.Arrival, req.Departure),
		Guests:    req.Guests,
		Prices:    map[int]smoobu.Rate{},
	}
	for _, id := range result.AvailableApartments {
		unit, ok := h.Units.FindBySmoobuID(id)
		if !ok || !unit.Active {
			continue
		}
		if req.Guests > 0 && unit.MaxGuests > 0 && req.Guests > unit.MaxGuests {
			continue
		}
		resp.AvailableApartments = append(resp.AvailableApartments, id)
		rate, priced := result.Prices[id]
		if priced {
			resp.Prices[id] = rate
		}
		if priced && rate.Price > 0 && h.Signer.Enabled() {
			o := offer.Offer{
				ApartmentID: id,
				Arrival:     req.Arrival,
				Departure:   req.Departure,
				Guests:      req.Guests,
				Price:       rate.Price,
				Currency:    rate.Currency,
			}
			token, signErr := h.Signer.Sign(&o)
			if signErr != nil {
				h.Logger.Error("offer signing failed", "apartment", id, "error", signErr)
				continue
			}
			resp.Offers = append(resp.Offers, AvailabilityOffer{
				ApartmentID: id,
				Name:        unit.Name,
				Price:       rate.Price,
				Currency:    rate.Currency,
				Token:       token,
				ExpiresAt:   o.ExpiresAt,
			})
		}
	}
	if resp.AvailableApartments == nil {
		resp.AvailableApartments = []int{}
	}
	h.Metrics.ObserveAvailability("ok")
	writeJSON(w, http.StatusOK, resp)
}

func validISODate(s string) bool {
	t, err := time.Parse("2006-01-02", s)
	return err == nil && t.Format("2006-01-02") == s
}
