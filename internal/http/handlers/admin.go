package handlers

import (
	"net/http"
	"strings"

	"github.com/alpenlodge/concierge/internal/booking"
	"github.com/alpenlodge/concierge/internal/smoobu"
	"github.com/alpenlodge/concierge/pkg/logging"
)

// AdminSmoobuHandler exposes read-only provider views for operators.
// The router wraps both routes in admin auth.
type AdminSmoobuHandler struct {
	Smoobu *smoobu.Client
	Logger *logging.Logger
}

// Bookings serves GET /api/smoobu/bookings?from=&to=.
func (h *AdminSmoobuHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if (from != "" && !validISODate(from)) || (to != "" && !validISODate(to)) {
		writeError(w, &booking.Error{Code: booking.CodeInvalidDates, Status: http.StatusBadRequest, Detail: "from/to must be YYYY-MM-DD"})
		return
	}
	bookings, err := h.Smoobu.ListBookings(r.Context(), from, to)
	if err != nil {
		h.Logger.Error("bookings listing failed", "error", err)
		writeError(w, &booking.Error{Code: booking.CodeUpstreamError, Status: http.StatusBadGateway})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// Raw serves GET /api/smoobu/raw/* and proxies the remaining path
// verbatim to the provider. Only GETs pass through, so an operator can
// inspect any provider resource without a second credential.
func (h *AdminSmoobuHandler) Raw(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/smoobu/raw")
	if path == "" || !strings.HasPrefix(path, "/") || strings.Contains(path, "..") {
		writeError(w, &booking.Error{Code: booking.CodeMissingParams, Status: http.StatusBadRequest, Detail: "missing provider path"})
		return
	}
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}
	raw, err := h.Smoobu.Raw(r.Context(), path)
	if err != nil {
		h.Logger.Error("raw provider proxy failed", "path", path, "error", err)
		writeError(w, &booking.Error{Code: booking.CodeUpstreamError, Status: http.StatusBadGateway})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
