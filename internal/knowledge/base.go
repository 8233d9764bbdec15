// Package knowledge answers "what's nearby" questions from a curated
// JSON file of restaurants, ski areas and sights around the lodge.
package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/alpenlodge/concierge/internal/units"
)

// Item is one recommendation entry.
type Item struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	DistanceKm  float64  `json:"distance_km,omitempty"`
	URL         string   `json:"url,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Category groups items under a set of trigger keywords.
type Category struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	TitleEN  string   `json:"title_en,omitempty"`
	Keywords []string `json:"keywords"`
	Items    []Item   `json:"items"`
}

// Base serves keyword lookups against the knowledge file and reloads
// it when the file changes on disk.
type Base struct {
	path string

	mu         sync.RWMutex
	modTime    time.Time
	categories []Category
}

// NewBase loads the knowledge file at path.
func NewBase(path string) (*Base, error) {
	b := &Base{path: path}
	if err := b.reload(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Base) reload() error {
	info, err := os.Stat(b.path)
	if err != nil {
		return fmt.Errorf("stat knowledge file: %w", err)
	}
	raw, err := os.ReadFile(b.path)
	if err != nil {
		return fmt.Errorf("read knowledge file: %w", err)
	}
	var doc struct {
		Categories []Category `json:"categories"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse knowledge file %s: %w", b.path, err)
	}
	b.mu.Lock()
	b.modTime = info.ModTime()
	b.categories = doc.Categories
	b.mu.Unlock()
	return nil
}

func (b *Base) ensureFresh() {
	info, err := os.Stat(b.path)
	if err != nil {
		return
	}
	b.mu.RLock()
	fresh := info.ModTime().Equal(b.modTime)
	b.mu.RUnlock()
	if !fresh {
		_ = b.reload()
	}
}

// Categories returns every category in file order.
func (b *Base) Categories() []Category {
	b.ensureFresh()
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Category, len(b.categories))
	copy(out, b.categories)
	return out
}

// Lookup finds the first category whose keywords appear in text.
// Matching is case- and diacritic-insensitive.
func (b *Base) Lookup(text string) (Category, bool) {
	folded := units.Fold(text)
	b.ensureFresh()
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, cat := range b.categories {
		for _, kw := range cat.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(folded, units.Fold(kw)) {
				return cat, true
			}
		}
	}
	return Category{}, false
}

// LocalizedTitle returns the category heading for the requested language.
func (c Category) LocalizedTitle(lang string) string {
	if strings.HasPrefix(strings.ToLower(lang), "en") && c.TitleEN != "" {
		return c.TitleEN
	}
	return c.Title
}
