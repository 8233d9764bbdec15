package booking

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpenlodge/concierge/internal/offer"
	"github.com/alpenlodge/concierge/internal/smoobu"
	"github.com/alpenlodge/concierge/internal/units"
)

type fakeReservations struct {
	availability    *smoobu.AvailabilityResult
	availabilityErr error
	reservationID   int
	reservationErr  error
	priceElementErr error

	lastReservation smoobu.Reservation
	priceElements   []smoobu.PriceElement
	created         int
}

func (f *fakeReservations) CheckAvailability(_ context.Context, _ smoobu.AvailabilityRequest) (*smoobu.AvailabilityResult, error) {
	if f.availabilityErr != nil {
		return nil, f.availabilityErr
	}
	return f.availability, nil
}

func (f *fakeReservations) CreateReservation(_ context.Context, r smoobu.Reservation) (int, error) {
	if f.reservationErr != nil {
		return 0, f.reservationErr
	}
	f.created++
	f.lastReservation = r
	return f.reservationID, nil
}

func (f *fakeReservations) AddPriceElement(_ context.Context, _ int, el smoobu.PriceElement) error {
	if f.priceElementErr != nil {
		return f.priceElementErr
	}
	f.priceElements = append(f.priceElements, el)
	return nil
}

func validGuest() GuestDetails {
	return GuestDetails{
		FirstName:  "Mira",
		LastName:   "Huber",
		Email:      "mira@example.com",
		Phone:      "+43 660 1234567",
		Street:     "Dorfstraße 1",
		PostalCode: "6330",
		City:       "Kufstein",
		Country:    "AT",
	}
}

func newTestFinalizer(t *testing.T, client ReservationClient, signer *offer.Signer) *Finalizer {
	t.Helper()
	dir, err := units.NewDirectory(filepath.Join("testdata", "unit_registry.json"))
	require.NoError(t, err)
	if signer == nil {
		signer = offer.NewSigner("test-secret", 10*time.Minute)
	}
	return NewFinalizer(client, dir, signer, nil, nil, nil, 15)
}

func TestFinalizeWithOfferToken(t *testing.T) {
	client := &fakeReservations{reservationID: 987654}
	signer := offer.NewSigner("test-secret", 10*time.Minute)
	f := newTestFinalizer(t, client, signer)

	token, err := signer.Sign(&offer.Offer{
		ApartmentID: 1401003,
		Arrival:     "2026-02-01",
		Departure:   "2026-02-05",
		Guests:      2,
		Price:       612.40,
		Currency:    "EUR",
	})
	require.NoError(t, err)

	res, apiErr := f.Finalize(context.Background(), Request{
		OfferToken: token,
		Guest:      validGuest(),
	})
	require.Nil(t, apiErr)
	assert.Equal(t, 987654, res.BookingID)
	assert.Equal(t, 1401003, res.ApartmentID)
	assert.Equal(t, "Suite Kaiserblick", res.ApartmentName)
	assert.Equal(t, 4, res.Nights)
	assert.Equal(t, 612.40, res.Price)
	assert.Equal(t, 612.40, client.lastReservation.Price, "signed price is used, not client input")
	assert.Equal(t, 2, client.lastReservation.Adults)
}

func TestFinalizeForgedTokenRejected(t *testing.T) {
	client := &fakeReservations{reservationID: 1}
	signer := offer.NewSigner("test-secret", 10*time.Minute)
	f := newTestFinalizer(t, client, signer)

	token, err := signer.Sign(&offer.Offer{ApartmentID: 1401003, Arrival: "2026-02-01", Departure: "2026-02-05", Guests: 2, Price: 612.40})
	require.NoError(t, err)
	forged := []byte(token)
	if forged[len(forged)-1] == 'A' {
		forged[len(forged)-1] = 'B'
	} else {
		forged[len(forged)-1] = 'A'
	}

	_, apiErr := f.Finalize(context.Background(), Request{OfferToken: string(forged), Guest: validGuest()})
	require.NotNil(t, apiErr)
	assert.Equal(t, CodeInvalidOffer, apiErr.Code)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Zero(t, client.created, "no reservation is ever created from a forged token")
}

func TestFinalizeRawParamsPicksCheapest(t *testing.T) {
	client := &fakeReservations{
		reservationID: 42,
		availability: &smoobu.AvailabilityResult{
			AvailableApartments: []int{1401001, 1401002, 1401003},
			Prices: map[int]smoobu.Rate{
				1401001: {Price: 480, Currency: "EUR"},
				1401002: {Price: 560, Currency: "EUR"},
				1401003: {Price: 612.4, Currency: "EUR"},
			},
		},
	}
	f := newTestFinalizer(t, client, nil)

	res, apiErr := f.Finalize(context.Background(), Request{
		Arrival:   "2026-02-01",
		Departure: "2026-02-05",
		Guests:    2,
		Guest:     validGuest(),
	})
	require.Nil(t, apiErr)
	assert.Equal(t, 1401001, res.ApartmentID, "cheapest available unit wins")
	assert.Equal(t, 480.0, res.Price)
}

func TestFinalizeRawParamsCapacityRespected(t *testing.T) {
	client := &fakeReservations{
		reservationID: 42,
		availability: &smoobu.AvailabilityResult{
			AvailableApartments: []int{1401001, 1401002},
			Prices: map[int]smoobu.Rate{
				1401001: {Price: 480, Currency: "EUR"},
				1401002: {Price: 560, Currency: "EUR"},
			},
		},
	}
	f := newTestFinalizer(t, client, nil)

	// Apartment Enzian (cheapest) only sleeps 2; Bergblick takes 4.
	res, apiErr := f.Finalize(context.Background(), Request{
		Arrival:   "2026-02-01",
		Departure: "2026-02-05",
		Guests:    4,
		Guest:     validGuest(),
	})
	require.Nil(t, apiErr)
	assert.Equal(t, 1401002, res.ApartmentID)
}

func TestFinalizeRequestedUnitUnavailable(t *testing.T) {
	client := &fakeReservations{
		availability: &smoobu.AvailabilityResult{AvailableApartments: []int{1401001}},
	}
	f := newTestFinalizer(t, client, nil)

	_, apiErr := f.Finalize(context.Background(), Request{
		ApartmentID: 1401005,
		Arrival:     "2026-02-01",
		Departure:   "2026-02-05",
		Guest:       validGuest(),
	})
	require.NotNil(t, apiErr)
	assert.Equal(t, CodeApartmentNotAvailable, apiErr.Code)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
}

func TestFinalizeNoAvailability(t *testing.T) {
	client := &fakeReservations{availability: &smoobu.AvailabilityResult{}}
	f := newTestFinalizer(t, client, nil)

	_, apiErr := f.Finalize(context.Background(), Request{
		Arrival:   "2026-02-01",
		Departure: "2026-02-05",
		Guest:     validGuest(),
	})
	require.NotNil(t, apiErr)
	assert.Equal(t, CodeNoAvailability, apiErr.Code)
}

func TestFinalizeMissingGuestFields(t *testing.T) {
	f := newTestFinalizer(t, &fakeReservations{}, nil)

	guest := validGuest()
	guest.Email = ""
	guest.Street = ""

	_, apiErr := f.Finalize(context.Background(), Request{
		Arrival:   "2026-02-01",
		Departure: "2026-02-05",
		Guest:     guest,
	})
	require.NotNil(t, apiErr)
	assert.Equal(t, CodeMissingGuestFields, apiErr.Code)
	assert.Equal(t, []string{"email", "street"}, apiErr.Fields)
}

func TestFinalizeMissingParams(t *testing.T) {
	f := newTestFinalizer(t, &fakeReservations{}, nil)

	_, apiErr := f.Finalize(context.Background(), Request{Guest: validGuest()})
	require.NotNil(t, apiErr)
	assert.Equal(t, CodeMissingParams, apiErr.Code)
	assert.ElementsMatch(t, []string{"arrival", "departure"}, apiErr.Fields)
}

func TestFinalizeDateNormalization(t *testing.T) {
	client := &fakeReservations{
		reservationID: 42,
		availability: &smoobu.AvailabilityResult{
			AvailableApartments: []int{1401001},
			Prices:              map[int]smoobu.Rate{1401001: {Price: 480, Currency: "EUR"}},
		},
	}
	f := newTestFinalizer(t, client, nil)

	// Inverted dates are swapped, not rejected.
	res, apiErr := f.Finalize(context.Background(), Request{
		Arrival:   "2026-02-05",
		Departure: "2026-02-01",
		Guest:     validGuest(),
	})
	require.Nil(t, apiErr)
	assert.Equal(t, "2026-02-01", res.Arrival)
	assert.Equal(t, "2026-02-05", res.Departure)

	// Zero-night stays are rejected.
	_, apiErr = f.Finalize(context.Background(), Request{
		Arrival:   "2026-02-01",
		Departure: "2026-02-01",
		Guest:     validGuest(),
	})
	require.NotNil(t, apiErr)
	assert.Equal(t, CodeInvalidDates, apiErr.Code)
}

func TestFinalizeBookingDisabled(t *testing.T) {
	f := newTestFinalizer(t, &fakeReservations{}, offer.NewSigner("", 10*time.Minute))

	_, apiErr := f.Finalize(context.Background(), Request{
		Arrival:   "2026-02-01",
		Departure: "2026-02-05",
		Guest:     validGuest(),
	})
	require.NotNil(t, apiErr)
	assert.Equal(t, CodeBookingDisabled, apiErr.Code)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
}

func TestFinalizePetFeeAttached(t *testing.T) {
	client := &fakeReservations{
		reservationID: 42,
		availability: &smoobu.AvailabilityResult{
			AvailableApartments: []int{1401001},
			Prices:              map[int]smoobu.Rate{1401001: {Price: 480, Currency: "EUR"}},
		},
	}
	f := newTestFinalizer(t, client, nil)

	res, apiErr := f.Finalize(context.Background(), Request{
		Arrival:   "2026-02-01",
		Departure: "2026-02-05",
		Guests:    2,
		Extras:    Extras{Pets: 1},
		Guest:     validGuest(),
	})
	require.Nil(t, apiErr)
	require.Len(t, client.priceElements, 1)
	assert.Equal(t, 60.0, client.priceElements[0].Amount, "15 per night x 4 nights x 1 pet")
	assert.Len(t, res.Extras.Applied, 1)
	assert.Empty(t, res.Extras.Errors)
}

func TestFinalizePetFeeFailureIsPartial(t *testing.T) {
	client := &fakeReservations{
		reservationID:   42,
		priceElementErr: errors.New("price element rejected"),
		availability: &smoobu.AvailabilityResult{
			AvailableApartments: []int{1401001},
			Prices:              map[int]smoobu.Rate{1401001: {Price: 480, Currency: "EUR"}},
		},
	}
	f := newTestFinalizer(t, client, nil)

	res, apiErr := f.Finalize(context.Background(), Request{
		Arrival:   "2026-02-01",
		Departure: "2026-02-05",
		Guests:    2,
		Extras:    Extras{Pets: 1},
		Guest:     validGuest(),
	})
	require.Nil(t, apiErr, "reservation success survives a failed extra")
	assert.Equal(t, 42, res.BookingID)
	require.Len(t, res.Extras.Errors, 1)
	assert.Contains(t, res.Extras.Errors[0], "pet fee")
}

func TestFinalizeUpstreamFailure(t *testing.T) {
	client := &fakeReservations{availabilityErr: errors.New("smoobu down")}
	f := newTestFinalizer(t, client, nil)

	_, apiErr := f.Finalize(context.Background(), Request{
		Arrival:   "2026-02-01",
		Departure: "2026-02-05",
		Guest:     validGuest(),
	})
	require.NotNil(t, apiErr)
	assert.Equal(t, CodeUpstreamError, apiErr.Code)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}
