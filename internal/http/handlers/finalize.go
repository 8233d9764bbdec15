package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/alpenlodge/concierge/internal/booking"
	"github.com/alpenlodge/concierge/internal/observability/metrics"
	"github.com/alpenlodge/concierge/pkg/logging"
)

// FinalizeHandler serves POST /api/booking/finalize. All validation and
// provider calls live in the finalizer; this layer only translates the
// wire format.
type FinalizeHandler struct {
	Finalizer *booking.Finalizer
	Metrics   *metrics.ConciergeMetrics
	Logger    *logging.Logger
}

func (h *FinalizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req booking.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &booking.Error{Code: booking.CodeMissingParams, Status: http.StatusBadRequest, Detail: "invalid JSON body"})
		return
	}
	result, bookErr := h.Finalizer.Finalize(r.Context(), req)
	if bookErr != nil {
		h.Metrics.ObserveBooking(bookErr.Code)
		h.Logger.Warn("booking rejected", "code", bookErr.Code, "fields", bookErr.Fields)
		writeError(w, bookErr)
		return
	}
	h.Metrics.ObserveBooking("created")
	h.Logger.Info("booking created",
		"booking_id", result.BookingID,
		"apartment_id", result.ApartmentID,
		"arrival", result.Arrival,
		"departure", result.Departure)
	writeJSON(w, http.StatusCreated, result)
}
