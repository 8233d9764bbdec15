// Package offer signs short-lived price offers so the finalize step can
// trust amounts that round-tripped through the client.
package offer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrInvalidOffer covers every verification failure: bad format, bad
// signature and expiry all look the same to the caller, so a client
// cannot probe which check tripped.
var ErrInvalidOffer = errors.New("invalid or expired offer")

const tokenVersion = "v1"

// Offer is the payload a signed token carries.
type Offer struct {
	ApartmentID  int     `json:"apartmentId"`
	Arrival      string  `json:"arrival"`
	Departure    string  `json:"departure"`
	Guests       int     `json:"guests"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	DiscountCode string  `json:"discountCode,omitempty"`
	ExpiresAt    int64   `json:"exp"` // unix milliseconds
}

// Signer mints and verifies offer tokens. A Signer with an empty secret
// is disabled and mints nothing.
type Signer struct {
	secret []byte
	ttl    time.Duration
	nowFn  func() time.Time
}

// NewSigner returns a Signer issuing tokens valid for ttl.
func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, nowFn: time.Now}
}

// Enabled reports whether a signing secret is configured.
func (s *Signer) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

// Sign stamps the expiry into o, serializes it and returns
// "v1.<base64url payload>.<base64url hmac>". The caller keeps the
// stamped ExpiresAt.
func (s *Signer) Sign(o *Offer) (string, error) {
	if !s.Enabled() {
		return "", errors.New("offer signing not configured")
	}
	o.ExpiresAt = s.nowFn().Add(s.ttl).UnixMilli()
	raw, err := json.Marshal(o)
	if err != nil {
		return "", err
	}
	body := tokenVersion + "." + base64.RawURLEncoding.EncodeToString(raw)
	return body + "." + s.signature(body), nil
}

// Verify checks the token's shape, signature and expiry and returns the
// embedded offer. Any failure yields ErrInvalidOffer.
func (s *Signer) Verify(token string) (Offer, error) {
	if !s.Enabled() {
		return Offer{}, ErrInvalidOffer
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] != tokenVersion {
		return Offer{}, ErrInvalidOffer
	}
	body := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(s.signature(body)), []byte(parts[2])) {
		return Offer{}, ErrInvalidOffer
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Offer{}, ErrInvalidOffer
	}
	var o Offer
	if err := json.Unmarshal(raw, &o); err != nil {
		return Offer{}, ErrInvalidOffer
	}
	if o.ExpiresAt <= s.nowFn().UnixMilli() {
		return Offer{}, ErrInvalidOffer
	}
	return o, nil
}

func (s *Signer) signature(body string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
