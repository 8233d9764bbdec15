// Package units loads the apartment registry and resolves free-text
// mentions of unit names and categories.
package units

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Unit is one bookable rental from the registry file.
type Unit struct {
	UnitID    string  `json:"unit_id"`
	SmoobuID  int     `json:"smoobu_id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	MaxGuests int     `json:"max_guests"`
	AreaSqm   float64 `json:"area_sqm"`
	HTMLFile  string  `json:"html_file"`
	Active    bool    `json:"active"`
}

// Recognized category values. The registry is expected to use these
// lowercase strings verbatim.
const (
	CategoryApartment = "apartment"
	CategorySuite     = "suite"
	CategoryPremium   = "premium"
)

// Directory serves registry lookups and transparently reloads the
// backing file when its modification time changes.
type Directory struct {
	path string

	mu       sync.RWMutex
	modTime  time.Time
	units    []Unit
	bySmoobu map[int]Unit
	// folded unit names, longest first, for substring mention matching
	mentions []mentionEntry
}

type mentionEntry struct {
	folded string
	unit   Unit
}

// NewDirectory reads the registry at path. The initial load must
// succeed; later reload failures keep the last good snapshot.
func NewDirectory(path string) (*Directory, error) {
	d := &Directory{path: path}
	if err := d.reload(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Directory) reload() error {
	info, err := os.Stat(d.path)
	if err != nil {
		return fmt.Errorf("stat unit registry: %w", err)
	}
	raw, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("read unit registry: %w", err)
	}
	var units []Unit
	if err := json.Unmarshal(raw, &units); err != nil {
		return fmt.Errorf("parse unit registry %s: %w", d.path, err)
	}

	bySmoobu := make(map[int]Unit, len(units))
	mentions := make([]mentionEntry, 0, len(units))
	for _, u := range units {
		bySmoobu[u.SmoobuID] = u
		if f := Fold(u.Name); f != "" {
			mentions = append(mentions, mentionEntry{folded: f, unit: u})
		}
	}
	sort.Slice(mentions, func(i, j int) bool {
		return len(mentions[i].folded) > len(mentions[j].folded)
	})

	d.mu.Lock()
	d.modTime = info.ModTime()
	d.units = units
	d.bySmoobu = bySmoobu
	d.mentions = mentions
	d.mu.Unlock()
	return nil
}

// ensureFresh reloads when the file on disk is newer than the snapshot.
// A failed reload is ignored so lookups keep working on stale data.
func (d *Directory) ensureFresh() {
	info, err := os.Stat(d.path)
	if err != nil {
		return
	}
	d.mu.RLock()
	fresh := info.ModTime().Equal(d.modTime)
	d.mu.RUnlock()
	if !fresh {
		_ = d.reload()
	}
}

// All returns every unit in registry order, including inactive ones.
func (d *Directory) All() []Unit {
	d.ensureFresh()
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Unit, len(d.units))
	copy(out, d.units)
	return out
}

// Active returns the bookable units in registry order.
func (d *Directory) Active() []Unit {
	d.ensureFresh()
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Unit, 0, len(d.units))
	for _, u := range d.units {
		if u.Active {
			out = append(out, u)
		}
	}
	return out
}

// FindBySmoobuID resolves a Smoobu apartment id to its registry unit.
func (d *Directory) FindBySmoobuID(id int) (Unit, bool) {
	d.ensureFresh()
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.bySmoobu[id]
	return u, ok
}

// FindByNameMention scans text for a unit name. Matching is
// diacritic-insensitive and case-insensitive, and longer names win so
// "Suite Kaiser Deluxe" is not shadowed by "Suite Kaiser".
func (d *Directory) FindByNameMention(text string) (Unit, bool) {
	d.ensureFresh()
	folded := Fold(text)
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, m := range d.mentions {
		if strings.Contains(folded, m.folded) {
			return m.unit, true
		}
	}
	return Unit{}, false
}

// DetectCategoryMention returns the category named in text, or "".
// "premium suite" counts as premium, not suite.
func DetectCategoryMention(text string) string {
	folded := Fold(text)
	if strings.Contains(folded, "premium") {
		return CategoryPremium
	}
	if strings.Contains(folded, "suite") {
		return CategorySuite
	}
	for _, w := range []string{"apartment", "appartement", "appartment", "wohnung"} {
		if strings.Contains(folded, w) {
			return CategoryApartment
		}
	}
	return ""
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var germanASCII = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")

// Fold lowercases text, transliterates German umlauts the usual way
// (ü becomes ue) and strips any remaining diacritics, so "Bergkristall
// Süd" matches a user typing "bergkristall sued".
func Fold(text string) string {
	text = strings.ToLower(text)
	text = germanASCII.Replace(text)
	out, _, err := transform.String(foldTransformer, text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(out)
}
