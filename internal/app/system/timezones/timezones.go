// Package timezones resolves the display time zone used for dates on
// pages and in CSV exports. Stored times are UTC.
package timezones

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

// Default is the zone of the clinics the dashboard serves.
const Default = "Asia/Colombo"

type Zone struct {
	ID     string
	Label  string
	Region string
}

// curated is the short list offered in configuration docs and validated
// at startup. Any IANA name loadable by time.LoadLocation is accepted.
var curated = []Zone{
	{ID: "Asia/Colombo", Label: "Sri Lanka (Colombo)", Region: "Asia"},
	{ID: "Asia/Kolkata", Label: "India (Kolkata)", Region: "Asia"},
	{ID: "Asia/Dubai", Label: "Gulf (Dubai)", Region: "Asia"},
	{ID: "Asia/Singapore", Label: "Singapore", Region: "Asia"},
	{ID: "Australia/Sydney", Label: "Australia (Sydney)", Region: "Australia"},
	{ID: "Europe/London", Label: "United Kingdom (London)", Region: "Europe"},
	{ID: "America/New_York", Label: "US Eastern (New York)", Region: "America"},
	{ID: "UTC", Label: "UTC", Region: "Other"},
}

var (
	mu    sync.Mutex
	cache = map[string]*time.Location{}
)

// All returns the curated zones sorted by region, then label.
func All() []Zone {
	out := append([]Zone(nil), curated...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Region != out[j].Region {
			return out[i].Region < out[j].Region
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Label returns the human-friendly label for an ID, or the ID itself if not found.
func Label(id string) string {
	for _, z := range curated {
		if z.ID == id {
			return z.Label
		}
	}
	return id
}

// Location loads id, or Default when id is blank. Loaded zones are cached.
func Location(id string) (*time.Location, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = Default
	}

	mu.Lock()
	defer mu.Unlock()
	if loc, ok := cache[id]; ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", id, err)
	}
	cache[id] = loc
	return loc, nil
}

// Valid reports whether id names a loadable zone.
func Valid(id string) bool {
	_, err := Location(id)
	return err == nil
}
