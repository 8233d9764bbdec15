package booking

import (
	"net/http"
	"strings"
)

// Stable error codes of the public booking endpoints. Clients switch on
// these, so they are part of the API contract.
const (
	CodeMissingParams         = "missing_params"
	CodeInvalidDates          = "invalid_dates"
	CodeMissingGuestFields    = "missing_guest_fields"
	CodeInvalidOffer          = "invalid_offer"
	CodeBookingDisabled       = "booking_disabled"
	CodeNoAvailability        = "no_availability"
	CodeApartmentNotAvailable = "apartment_not_available"
	CodeUpstreamError         = "upstream_error"
	CodeRateLimited           = "rate_limited"
)

// Error is a structured client-facing failure with a stable code and
// HTTP status. Fields lists the exact missing inputs when applicable.
type Error struct {
	Code   string   `json:"error"`
	Status int      `json:"-"`
	Fields []string `json:"fields,omitempty"`
	Detail string   `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return e.Code + ": " + strings.Join(e.Fields, ", ")
	}
	if e.Detail != "" {
		return e.Code + ": " + e.Detail
	}
	return e.Code
}

func errMissingParams(fields ...string) *Error {
	return &Error{Code: CodeMissingParams, Status: http.StatusBadRequest, Fields: fields}
}

func errInvalidDates(detail string) *Error {
	return &Error{Code: CodeInvalidDates, Status: http.StatusBadRequest, Detail: detail}
}

func errMissingGuestFields(fields []string) *Error {
	return &Error{Code: CodeMissingGuestFields, Status: http.StatusBadRequest, Fields: fields}
}

func errInvalidOffer() *Error {
	return &Error{Code: CodeInvalidOffer, Status: http.StatusBadRequest}
}

func errBookingDisabled() *Error {
	return &Error{Code: CodeBookingDisabled, Status: http.StatusServiceUnavailable}
}

func errNoAvailability() *Error {
	return &Error{Code: CodeNoAvailability, Status: http.StatusConflict}
}

func errApartmentNotAvailable() *Error {
	return &Error{Code: CodeApartmentNotAvailable, Status: http.StatusConflict}
}

func errUpstream(detail string) *Error {
	return &Error{Code: CodeUpstreamError, Status: http.StatusBadGateway, Detail: detail}
}
