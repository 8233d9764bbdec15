package offer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOffer() *Offer {
	return &Offer{
		ApartmentID: 1401003,
		Arrival:     "2026-02-01",
		Departure:   "2026-02-05",
		Guests:      2,
		Price:       612.40,
		Currency:    "EUR",
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	s := NewSigner("test-secret", 10*time.Minute)

	token, err := s.Sign(testOffer())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v1."))
	assert.Len(t, strings.Split(token, "."), 3)

	got, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, 1401003, got.ApartmentID)
	assert.Equal(t, "2026-02-01", got.Arrival)
	assert.Equal(t, "2026-02-05", got.Departure)
	assert.Equal(t, 2, got.Guests)
	assert.Equal(t, 612.40, got.Price)
	assert.Equal(t, "EUR", got.Currency)
	assert.Greater(t, got.ExpiresAt, time.Now().UnixMilli())
}

func TestSignStampsExpiryOnCaller(t *testing.T) {
	s := NewSigner("test-secret", 10*time.Minute)
	now := time.Now()
	s.nowFn = func() time.Time { return now }

	o := testOffer()
	_, err := s.Sign(o)
	require.NoError(t, err)
	assert.Equal(t, now.Add(10*time.Minute).UnixMilli(), o.ExpiresAt)
}

func TestDiscountCodeRoundTrip(t *testing.T) {
	s := NewSigner("test-secret", 10*time.Minute)

	o := testOffer()
	o.DiscountCode = "WINTER26"
	token, err := s.Sign(o)
	require.NoError(t, err)

	got, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "WINTER26", got.DiscountCode)

	// Without a code the payload stays free of the field.
	plain, err := s.Sign(testOffer())
	require.NoError(t, err)
	_, err = s.Verify(plain)
	require.NoError(t, err)
}

func TestVerifyRejectsTampering(t *testing.T) {
	s := NewSigner("test-secret", 10*time.Minute)
	token, err := s.Sign(testOffer())
	require.NoError(t, err)

	// Flipping any single character must invalidate the token.
	for _, i := range []int{3, len(token) / 2, len(token) - 1} {
		b := []byte(token)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		_, err := s.Verify(string(b))
		assert.ErrorIs(t, err, ErrInvalidOffer, "mutated index %d", i)
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	s := NewSigner("test-secret", 10*time.Minute)
	for _, token := range []string{
		"",
		"v1",
		"v1.onlytwo",
		"v2.payload.sig",
		"v1.payload.sig.extra",
		"v1.!!!.sig",
	} {
		_, err := s.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidOffer, "token=%q", token)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	s := NewSigner("test-secret", 10*time.Minute)
	now := time.Now()
	s.nowFn = func() time.Time { return now }

	token, err := s.Sign(testOffer())
	require.NoError(t, err)

	s.nowFn = func() time.Time { return now.Add(10*time.Minute + time.Second) }
	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidOffer)

	s.nowFn = func() time.Time { return now.Add(9 * time.Minute) }
	_, err = s.Verify(token)
	assert.NoError(t, err)
}

func TestVerifyRejectsRotatedSecret(t *testing.T) {
	token, err := NewSigner("old-secret", 10*time.Minute).Sign(testOffer())
	require.NoError(t, err)

	_, err = NewSigner("new-secret", 10*time.Minute).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidOffer)
}

func TestDisabledSigner(t *testing.T) {
	s := NewSigner("", 10*time.Minute)
	assert.False(t, s.Enabled())

	_, err := s.Sign(testOffer())
	assert.Error(t, err)
	_, err = s.Verify("v1.x.y")
	assert.ErrorIs(t, err, ErrInvalidOffer)

	var nilSigner *Signer
	assert.False(t, nilSigner.Enabled())
}
