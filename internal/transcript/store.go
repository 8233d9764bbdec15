// Package transcript keeps a rolling chat history per session in Redis
// so the LLM fallback sees recent context and guests can reload the
// widget without losing the thread.
package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alpenlodge/concierge/pkg/logging"
)

const (
	keyPrefix  = "concierge:transcript:"
	maxEntries = 50
	entryTTL   = 24 * time.Hour
)

// Entry is one chat message, either side.
type Entry struct {
	Role    string    `json:"role"` // "user" or "assistant"
	Content string    `json:"content"`
	Source  string    `json:"source,omitempty"`
	At      time.Time `json:"at"`
}

// Store appends and lists transcripts. With a nil Redis client the
// store is a no-op, chat then simply runs without history.
type Store struct {
	redis  *redis.Client
	logger *logging.Logger
}

// NewStore wraps the given Redis client. client may be nil.
func NewStore(client *redis.Client, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{redis: client, logger: logger}
}

// Enabled reports whether a Redis backend is configured.
func (s *Store) Enabled() bool { return s != nil && s.redis != nil }

// Append stores one entry, trims the list to the newest maxEntries and
// refreshes the 24h expiry. Failures are logged, never fatal: the chat
// must not break because Redis hiccuped.
func (s *Store) Append(ctx context.Context, sessionID string, e Entry) {
	if !s.Enabled() || sessionID == "" {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	key := keyPrefix + sessionID
	pipe := s.redis.Pipeline()
	pipe.RPush(ctx, key, raw)
	pipe.LTrim(ctx, key, -maxEntries, -1)
	pipe.Expire(ctx, key, entryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("transcript append failed", "error", err, "session", sessionID)
	}
}

// List returns the stored entries, oldest first.
func (s *Store) List(ctx context.Context, sessionID string) ([]Entry, error) {
	if !s.Enabled() {
		return nil, nil
	}
	raws, err := s.redis.LRange(ctx, keyPrefix+sessionID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("transcript list: %w", err)
	}
	entries := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
