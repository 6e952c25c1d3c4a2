package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/lac-hong-legacy/lingo_api/ledger"
)

func mustKey(t *testing.T, instant time.Time, tz string) string {
	t.Helper()
	key, err := ledger.DateKey(instant, tz)
	if err != nil {
		t.Fatalf("date key %s in %s: %v", instant, tz, err)
	}
	return key
}

func mustPrevKey(t *testing.T, instant time.Time, tz string) string {
	t.Helper()
	key, err := ledger.PreviousDateKey(instant, tz)
	if err != nil {
		t.Fatalf("previous date key %s in %s: %v", instant, tz, err)
	}
	return key
}

func TestDateKey_UTC(t *testing.T) {
	instant := time.Date(2025, 7, 1, 23, 59, 59, 0, time.UTC)
	if got := mustKey(t, instant, "UTC"); got != "2025-07-01" {
		t.Errorf("expected 2025-07-01, got %s", got)
	}
	if got := mustKey(t, instant.Add(time.Second), "UTC"); got != "2025-07-02" {
		t.Errorf("expected 2025-07-02 after midnight, got %s", got)
	}
}

func TestDateKey_NonUTCOffsets(t *testing.T) {
	instant := time.Date(2025, 1, 1, 18, 45, 0, 0, time.UTC)

	cases := map[string]string{
		"Asia/Kolkata":        "2025-01-02", // +05:30 -> 00:15 next day
		"America/Los_Angeles": "2025-01-01",
		"Pacific/Kiritimati":  "2025-01-02",
		"Pacific/Pago_Pago":   "2025-01-01",
	}
	for tz, want := range cases {
		if got := mustKey(t, instant, tz); got != want {
			t.Errorf("%s: expected %s, got %s", tz, want, got)
		}
	}
}

func TestDateKey_SameDayIffSameCalendarDay(t *testing.T) {
	// 00:30 and 23:30 local time in Tokyo are the same day even though they straddle
	// a UTC midnight.
	a := time.Date(2025, 7, 1, 15, 30, 0, 0, time.UTC) // 07-02 00:30 JST
	b := time.Date(2025, 7, 2, 14, 30, 0, 0, time.UTC) // 07-02 23:30 JST
	if mustKey(t, a, "Asia/Tokyo") != mustKey(t, b, "Asia/Tokyo") {
		t.Error("expected both instants on the same Tokyo day")
	}
	if mustKey(t, a, "UTC") == mustKey(t, b, "UTC") {
		t.Error("expected the instants on different UTC days")
	}
}

func TestDateKey_DSTTransitions(t *testing.T) {
	tz := "America/New_York"

	// 23:59 EST on the eve of spring forward.
	if got := mustKey(t, time.Date(2025, 3, 9, 4, 59, 0, 0, time.UTC), tz); got != "2025-03-08" {
		t.Errorf("expected 2025-03-08, got %s", got)
	}
	// 03:30 EDT, right after the skipped hour.
	if got := mustKey(t, time.Date(2025, 3, 9, 7, 30, 0, 0, time.UTC), tz); got != "2025-03-09" {
		t.Errorf("expected 2025-03-09, got %s", got)
	}
	// 23:30 EST on the 25 hour fall-back day.
	if got := mustKey(t, time.Date(2025, 11, 3, 4, 30, 0, 0, time.UTC), tz); got != "2025-11-02" {
		t.Errorf("expected 2025-11-02, got %s", got)
	}
}

func TestPreviousDateKey_CalendarNotDuration(t *testing.T) {
	// 00:30 EDT on the day after spring forward. Subtracting 24h lands on 23:30 EST
	// two calendar days back; the calendar answer is the 9th.
	instant := time.Date(2025, 3, 10, 4, 30, 0, 0, time.UTC)
	if got := mustPrevKey(t, instant, "America/New_York"); got != "2025-03-09" {
		t.Errorf("expected 2025-03-09, got %s", got)
	}

	naive := mustKey(t, instant.Add(-24*time.Hour), "America/New_York")
	if naive == "2025-03-09" {
		t.Fatal("fixture no longer exercises the DST gap")
	}
}

func TestPreviousDateKey_Boundaries(t *testing.T) {
	cases := []struct {
		instant time.Time
		want    string
	}{
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "2024-12-31"},
		{time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), "2024-02-29"},
		{time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), "2025-02-28"},
		{time.Date(2025, 8, 1, 23, 0, 0, 0, time.UTC), "2025-07-31"},
	}
	for _, tc := range cases {
		if got := mustPrevKey(t, tc.instant, "UTC"); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.instant, tc.want, got)
		}
	}
}

func TestDateKey_InvalidTimezone(t *testing.T) {
	for _, tz := range []string{"", "Local", "Mars/Olympus_Mons", "not a zone"} {
		if _, err := ledger.DateKey(time.Now(), tz); !errors.Is(err, ledger.ErrInvalidTimezone) {
			t.Errorf("%q: expected ErrInvalidTimezone, got %v", tz, err)
		}
		if _, err := ledger.PreviousDateKey(time.Now(), tz); !errors.Is(err, ledger.ErrInvalidTimezone) {
			t.Errorf("%q: expected ErrInvalidTimezone from previous, got %v", tz, err)
		}
	}
}

func TestResolveZone_FallsBackToUTC(t *testing.T) {
	loc, name := ledger.ResolveZone("Nowhere/Special")
	if loc != time.UTC || name != "UTC" {
		t.Errorf("expected UTC fallback, got %v %q", loc, name)
	}

	loc, name = ledger.ResolveZone("Europe/Berlin")
	if name != "Europe/Berlin" || loc.String() != "Europe/Berlin" {
		t.Errorf("expected Europe/Berlin, got %v %q", loc, name)
	}
}
