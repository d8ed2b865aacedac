package models

import (
	"testing"
	"time"
)

func TestEntryHours(t *testing.T) {
	clockIn := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	open := &TimeEntry{ClockInAt: clockIn}
	if open.Hours() != 0 {
		t.Fatalf("open shift hours = %v; expected 0", open.Hours())
	}
	if !open.IsOpen() {
		t.Fatal("expected IsOpen for nil ClockOutAt")
	}

	out := clockIn.Add(7*time.Hour + 30*time.Minute)
	closed := &TimeEntry{ClockInAt: clockIn, ClockOutAt: &out}
	if closed.Hours() != 7.5 {
		t.Fatalf("closed shift hours = %v; expected 7.5", closed.Hours())
	}
	if closed.IsOpen() {
		t.Fatal("expected closed shift")
	}
}

func TestClassifyPunch(t *testing.T) {
	cases := []struct {
		hours    float64
		expected PunchMessageType
	}{
		{0.1, PunchMessageBreak},
		{4.99, PunchMessageBreak},
		{5, PunchMessageEndOfDay},
		{9, PunchMessageEndOfDay},
	}
	for _, tc := range cases {
		if got := ClassifyPunch(tc.hours); got != tc.expected {
			t.Fatalf("ClassifyPunch(%v) = %q; expected %q", tc.hours, got, tc.expected)
		}
	}
}

func TestFilterEntriesByLocation(t *testing.T) {
	entries := []*TimeEntry{
		{ID: 1, LocationId: 10},
		{ID: 2, LocationId: 20},
		{ID: 3, LocationId: 10},
	}
	filtered := FilterEntriesByLocation(entries, 10)
	if len(filtered) != 2 || filtered[0].ID != 1 || filtered[1].ID != 3 {
		t.Fatalf("unexpected filter result: %+v", filtered)
	}
	if got := FilterEntriesByLocation(entries, 99); len(got) != 0 {
		t.Fatalf("expected empty result for unused location, got %d rows", len(got))
	}
}

func TestMyDateStringDayBounds(t *testing.T) {
	// 2026-07-04 in New York is UTC-4; the day's bounds must land on
	// 04:00 UTC, not midnight UTC.
	parsed, err := ParseDateString("2026-07-04")
	if err != nil {
		t.Fatalf("ParseDateString: %v", err)
	}

	start := parsed
	if err := start.StartOfDayUTCTime("America/New_York"); err != nil {
		t.Fatalf("StartOfDayUTCTime: %v", err)
	}
	expectedStart := time.Date(2026, 7, 4, 4, 0, 0, 0, time.UTC)
	if !start.Time().Equal(expectedStart) {
		t.Fatalf("start of day = %v; expected %v", start.Time(), expectedStart)
	}

	end := parsed
	if err := end.EndOfDayUTCTime("America/New_York"); err != nil {
		t.Fatalf("EndOfDayUTCTime: %v", err)
	}
	expectedEnd := time.Date(2026, 7, 5, 3, 59, 59, 999000000, time.UTC)
	if !end.Time().Equal(expectedEnd) {
		t.Fatalf("end of day = %v; expected %v", end.Time(), expectedEnd)
	}
}
