// Package session holds per-visitor conversation state in memory.
package session

import (
	"sync"
	"time"
)

// StayOption is one priced (or unpriced) unit shown to the guest for a
// concrete stay. A non-positive Price means Smoobu returned no rate.
type StayOption struct {
	ApartmentID int     `json:"apartmentId"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	MaxGuests   int     `json:"maxGuests"`
	AreaSqm     float64 `json:"areaSqm"`
	DetailsURL  string  `json:"detailsUrl,omitempty"`
	BookingURL  string  `json:"bookingUrl,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Currency    string  `json:"currency,omitempty"`
}

// Priced reports whether Smoobu returned a usable rate for the option.
func (o StayOption) Priced() bool { return o.Price > 0 }

// Draft accumulates booking slots across turns until the guest has
// named dates, and optionally guests and a unit or category.
type Draft struct {
	Arrival        string
	Departure      string
	Guests         int
	CategoryFilter string
	UnitFilter     int // Smoobu apartment id, 0 when unset
	Selected       int // Smoobu apartment id picked from the last list
	LastOptions    []StayOption
	InProgress     bool
}

// Merge copies the non-zero slots of other into d. Already-filled slots
// survive a turn that does not mention them again.
func (d *Draft) Merge(other Draft) {
	if other.Arrival != "" {
		d.Arrival = other.Arrival
	}
	if other.Departure != "" {
		d.Departure = other.Departure
	}
	if other.Guests > 0 {
		d.Guests = other.Guests
	}
	if other.CategoryFilter != "" {
		d.CategoryFilter = other.CategoryFilter
	}
	if other.UnitFilter > 0 {
		d.UnitFilter = other.UnitFilter
	}
}

// ClearFilters drops the unit and category constraints but keeps dates
// and guests, for "show me all categories" turns.
func (d *Draft) ClearFilters() {
	d.CategoryFilter = ""
	d.UnitFilter = 0
	d.Selected = 0
}

// ListItem is one entry of the last numbered list shown in chat, kept
// so a bare "2" in the next message can be resolved.
type ListItem struct {
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

// Session is everything remembered about one chat visitor.
type Session struct {
	ID       string
	Booking  *Draft
	LastList []ListItem
}

// snapshot deep-copies the mutable parts, so a reader can keep the
// result past the entry lock.
func (s *Session) snapshot() *Session {
	cp := &Session{ID: s.ID}
	if s.Booking != nil {
		b := *s.Booking
		b.LastOptions = append([]StayOption(nil), s.Booking.LastOptions...)
		cp.Booking = &b
	}
	if s.LastList != nil {
		cp.LastList = append([]ListItem(nil), s.LastList...)
	}
	return cp
}

// entry.mu guards sess; lastTouched is guarded by Store.mu instead, so
// eviction checks never need the entry lock.
type entry struct {
	mu          sync.Mutex
	sess        *Session
	lastTouched time.Time
}

const sweepThreshold = 10000

// Store keeps sessions in memory with a sliding idle TTL. Expired
// sessions are evicted lazily on access, plus a full sweep when the map
// grows past sweepThreshold.
type Store struct {
	ttl      time.Duration
	nowFn    func() time.Time
	onExpire func()

	mu      sync.Mutex
	entries map[string]*entry
}

// NewStore returns a Store evicting sessions idle longer than ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:     ttl,
		nowFn:   time.Now,
		entries: make(map[string]*entry),
	}
}

// OnExpire registers fn to run once per evicted session. Set it before
// the store is shared between goroutines.
func (s *Store) OnExpire(fn func()) {
	s.onExpire = fn
}

func (s *Store) expired() {
	if s.onExpire != nil {
		s.onExpire()
	}
}

// Get returns a snapshot of the session for id, or nil if unknown or
// expired. The snapshot is safe to read concurrently with Update;
// writes must go through Update. Get does not slide the TTL.
func (s *Store) Get(id string) *Session {
	now := s.nowFn()
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if now.Sub(e.lastTouched) > s.ttl {
		delete(s.entries, id)
		s.mu.Unlock()
		s.expired()
		return nil
	}
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.snapshot()
}

// Update runs fn with the session for id, creating a fresh one when the
// id is new or its old session expired. Calls for the same id are
// serialized, so a turn reads and writes its session atomically even
// when the client double-sends.
func (s *Store) Update(id string, fn func(*Session)) {
	e := s.acquire(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.sess)
}

func (s *Store) acquire(id string) *entry {
	now := s.nowFn()
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) > sweepThreshold {
		for k, e := range s.entries {
			if now.Sub(e.lastTouched) > s.ttl {
				delete(s.entries, k)
				s.expired()
			}
		}
	}

	e, ok := s.entries[id]
	if ok && now.Sub(e.lastTouched) > s.ttl {
		delete(s.entries, id)
		s.expired()
		ok = false
	}
	if !ok {
		e = &entry{sess: &Session{ID: id, Booking: &Draft{}}}
		s.entries[id] = e
	}
	e.lastTouched = now
	return e
}

// Len reports the number of live entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
