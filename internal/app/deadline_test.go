package app

import (
	"errors"
	"testing"
	"time"
)

func TestParseDeadlineExplicit(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	got, err := ParseDeadline("22:00 07.07.2025", now, time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2025, 7, 7, 22, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParseDeadlineBareTimeToday(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	got, err := ParseDeadline("22:00", now, time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2025, 7, 1, 22, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected same-day deadline %v, got %v", want, got)
	}
}

func TestParseDeadlineBareTimeRollsToTomorrow(t *testing.T) {
	now := time.Date(2025, 7, 1, 23, 30, 0, 0, time.UTC)
	got, err := ParseDeadline("22:00", now, time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2025, 7, 2, 22, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected next-day deadline %v, got %v", want, got)
	}
}

func TestParseDeadlineRespectsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	got, err := ParseDeadline("22:00 07.07.2025", now, loc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Location() != loc {
		t.Fatalf("expected deadline in %v, got %v", loc, got.Location())
	}
}

func TestParseDeadlineRejectsGarbage(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	for _, input := range []string{"", "soon", "25:99", "22.00", "07.07.2025"} {
		if _, err := ParseDeadline(input, now, time.UTC); !errors.Is(err, errBadDeadline) {
			t.Fatalf("expected errBadDeadline for %q, got %v", input, err)
		}
	}
}
