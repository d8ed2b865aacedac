package models

import (
	"errors"
	"testing"
	"time"

	"github.com/techetime/timeclock_backend/utils"
)

func TestResolveRateAt(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)
	}
	history := []PayRate{
		{ID: 1, AmountCents: 1000, EffectiveDate: day(1), CreatedAt: day(1)},
		{ID: 2, AmountCents: 1200, EffectiveDate: day(10), CreatedAt: day(9)},
		{ID: 3, AmountCents: 1500, EffectiveDate: day(20), CreatedAt: day(19)},
	}

	cases := []struct {
		name     string
		at       time.Time
		expected int64
	}{
		{"before second rate", day(5), 1000},
		{"exactly on effective date", day(10), 1200},
		{"between rates", day(15), 1200},
		{"after all rates", day(25), 1500},
	}
	for _, tc := range cases {
		rate, err := ResolveRateAt(history, tc.at)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if rate.AmountCents != tc.expected {
			t.Fatalf("%s: got %d, expected %d", tc.name, rate.AmountCents, tc.expected)
		}
	}
}

func TestResolveRateAtNoQualifyingRate(t *testing.T) {
	future := []PayRate{
		{ID: 1, AmountCents: 1000, EffectiveDate: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	at := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	if _, err := ResolveRateAt(nil, at); !errors.Is(err, utils.ErrNoRateSet) {
		t.Fatalf("empty history: expected ErrNoRateSet, got %v", err)
	}
	if _, err := ResolveRateAt(future, at); !errors.Is(err, utils.ErrNoRateSet) {
		t.Fatalf("future-only history: expected ErrNoRateSet, got %v", err)
	}
}

func TestResolveRateAtTieBreaking(t *testing.T) {
	effective := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	at := effective.AddDate(0, 0, 5)

	// Same effective date, different creation times: latest creation wins.
	byCreation := []PayRate{
		{ID: 1, AmountCents: 1000, EffectiveDate: effective, CreatedAt: effective},
		{ID: 2, AmountCents: 1100, EffectiveDate: effective, CreatedAt: effective.Add(time.Hour)},
	}
	rate, err := ResolveRateAt(byCreation, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate.AmountCents != 1100 {
		t.Fatalf("creation-time tie break: got %d, expected 1100", rate.AmountCents)
	}

	// Identical effective date and creation time: highest id wins.
	byId := []PayRate{
		{ID: 2, AmountCents: 1300, EffectiveDate: effective, CreatedAt: effective},
		{ID: 1, AmountCents: 1200, EffectiveDate: effective, CreatedAt: effective},
	}
	rate, err = ResolveRateAt(byId, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate.ID != 2 {
		t.Fatalf("id tie break: got id %d, expected 2", rate.ID)
	}
}
