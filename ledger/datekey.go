package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	DayKeyLayout    = "2006-01-02"
	DefaultTimezone = "UTC"
)

var ErrInvalidTimezone = errors.New("invalid timezone")

var zoneCache sync.Map

// LoadZone resolves an IANA zone name. Empty names and "Local" are rejected so a
// learner's day never depends on the server's own zone.
func LoadZone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}

	if loc, ok := zoneCache.Load(name); ok {
		return loc.(*time.Location), nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}

	zoneCache.Store(name, loc)
	return loc, nil
}

// ResolveZone returns the zone for name, or UTC when name is not a recognised zone.
// The returned string is the name of the zone actually used.
func ResolveZone(name string) (*time.Location, string) {
	loc, err := LoadZone(name)
	if err != nil {
		return time.UTC, DefaultTimezone
	}
	return loc, name
}

// DateKey returns the calendar day that instant falls on in timezone as YYYY-MM-DD.
func DateKey(instant time.Time, timezone string) (string, error) {
	loc, err := LoadZone(timezone)
	if err != nil {
		return "", err
	}
	return instant.In(loc).Format(DayKeyLayout), nil
}

// PreviousDateKey returns the key of the calendar day before the one instant falls on.
// The subtraction is done on the calendar date, so days that are 23 or 25 hours long
// around DST changes are handled.
func PreviousDateKey(instant time.Time, timezone string) (string, error) {
	loc, err := LoadZone(timezone)
	if err != nil {
		return "", err
	}
	return previousDay(instant.In(loc)), nil
}

func previousDay(local time.Time) string {
	y, m, d := local.Date()
	return time.Date(y, m, d-1, 12, 0, 0, 0, local.Location()).Format(DayKeyLayout)
}
