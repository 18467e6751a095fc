package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("2024-01-01", "2024-02-28")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if w.StartKey() != "2024-01-01" || w.EndKey() != "2024-02-28" {
		t.Fatalf("unexpected keys %s", w)
	}

	// Timestamps are truncated to their calendar day.
	w, err = ParseWindow("2024-01-01T13:45:00Z", "2024-01-01T23:59:59.999Z")
	if err != nil || w.StartKey() != "2024-01-01" || w.EndKey() != "2024-01-01" {
		t.Fatalf("unexpected window %s (err=%v)", w, err)
	}

	for _, tc := range [][2]string{
		{"2024-02-01", "2024-01-01"},
		{"", "2024-01-01"},
		{"2024-01-01", "yesterday"},
	} {
		if _, err := ParseWindow(tc[0], tc[1]); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("%v expected ErrInvalidWindow, got %v", tc, err)
		}
	}
}

func TestYearWindow(t *testing.T) {
	w := YearWindow(2024)
	if w.StartKey() != "2024-01-01" || w.EndKey() != "2024-12-31" {
		t.Fatalf("unexpected year window %s", w)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	in := time.Date(2024, 1, 31, 18, 30, 15, 250_000_000, time.FixedZone("CET", 3600))
	s := FormatTimestamp(in)
	if s != "2024-01-31T17:30:15.250Z" {
		t.Fatalf("unexpected format %q", s)
	}
	out, err := ParseTimestamp(s)
	if err != nil || !out.Equal(in) {
		t.Fatalf("round trip mismatch: %v (err=%v)", out, err)
	}
	if d, err := ParseTimestamp("2024-01-05"); err != nil || d.Day() != 5 {
		t.Fatalf("expected day-only fallback, got %v (err=%v)", d, err)
	}
	if _, err := ParseTimestamp("garbage"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestParseSortOrder(t *testing.T) {
	if o, err := ParseSortOrder("", Descending); err != nil || o != Descending {
		t.Fatalf("expected default, got %q (err=%v)", o, err)
	}
	if o, err := ParseSortOrder("ASC", Descending); err != nil || o != Ascending {
		t.Fatalf("expected asc, got %q (err=%v)", o, err)
	}
	if _, err := ParseSortOrder("sideways", Ascending); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder, got %v", err)
	}
}
