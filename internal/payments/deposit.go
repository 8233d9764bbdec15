// Package payments collects an optional booking deposit through Stripe.
package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"github.com/alpenlodge/concierge/pkg/logging"
)

// Deposit is the client-facing handle of a created payment intent.
type Deposit struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
	AmountCents     int64  `json:"amountCents"`
	Currency        string `json:"currency"`
}

// Service creates deposit payment intents. With no API key configured
// the service is disabled and bookings complete without a deposit.
type Service struct {
	enabled  bool
	percent  float64
	minCents int64
	logger   *logging.Logger
}

// New configures the Stripe client. percent is the deposit share of the
// booking total, minCents the smallest deposit ever charged.
func New(apiKey string, percent float64, minCents int64, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{percent: percent, minCents: minCents, logger: logger}
	if apiKey != "" {
		stripe.Key = apiKey
		s.enabled = true
	}
	return s
}

// Enabled reports whether a Stripe key is configured.
func (s *Service) Enabled() bool { return s != nil && s.enabled }

// DepositCents computes the deposit for a booking total, clamped to the
// configured minimum.
func (s *Service) DepositCents(total float64) int64 {
	// total is in euros, percent in [0,100]: the /100 for the share and
	// the *100 for cents cancel out.
	cents := int64(math.Round(total * s.percent))
	if cents < s.minCents {
		cents = s.minCents
	}
	return cents
}

// CreateDeposit opens a payment intent for the booking's deposit and
// returns the client secret the widget needs to collect the card.
func (s *Service) CreateDeposit(ctx context.Context, total float64, currency, bookingRef string) (*Deposit, error) {
	if !s.Enabled() {
		return nil, errors.New("payments: stripe not configured")
	}
	if currency == "" {
		currency = "EUR"
	}
	cents := s.DepositCents(total)

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(cents),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description: stripe.String(fmt.Sprintf("Anzahlung Buchung %s", bookingRef)),
	}
	params.Context = ctx
	params.AddMetadata("booking_ref", bookingRef)

	pi, err := paymentintent.New(params)
	if err != nil {
		s.logger.Error("stripe payment intent failed", "error", err, "booking_ref", bookingRef)
		return nil, fmt.Errorf("payments: create intent: %w", err)
	}
	return &Deposit{
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
		AmountCents:     cents,
		Currency:        strings.ToUpper(currency),
	}, nil
}
