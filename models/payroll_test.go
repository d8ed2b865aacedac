package models

import (
	"testing"
	"time"
)

func TestSplitWeeklyHours(t *testing.T) {
	cases := []struct {
		hours      float64
		regular    float64
		overtime   float64
		doubleTime float64
	}{
		{0, 0, 0, 0},
		{39.5, 39.5, 0, 0},
		{40, 40, 0, 0},
		{40.25, 40, 0.25, 0},
		{55, 40, 15, 0},
		{60, 40, 20, 0},
		{61, 40, 20, 1},
		{80, 40, 20, 20},
	}
	for _, tc := range cases {
		regular, overtime, doubleTime := splitWeeklyHours(tc.hours)
		if regular != tc.regular || overtime != tc.overtime || doubleTime != tc.doubleTime {
			t.Fatalf("splitWeeklyHours(%v) = (%v, %v, %v); expected (%v, %v, %v)",
				tc.hours, regular, overtime, doubleTime, tc.regular, tc.overtime, tc.doubleTime)
		}
	}
}

func TestGrossPayCents(t *testing.T) {
	cases := []struct {
		name       string
		regular    float64
		overtime   float64
		doubleTime float64
		rateCents  int64
		expected   int64
	}{
		{"regular only", 40, 0, 0, 1500, 60000},
		{"with overtime", 40, 10, 0, 1500, 60000 + 22500},
		{"all three bands", 40, 20, 5, 2000, 80000 + 60000 + 20000},
		{"fractional hours round to cents", 0.333333, 0, 0, 1000, 333},
		{"zero rate", 40, 10, 0, 0, 0},
	}
	for _, tc := range cases {
		got := GrossPayCents(tc.regular, tc.overtime, tc.doubleTime, tc.rateCents)
		if got != tc.expected {
			t.Fatalf("%s: GrossPayCents = %d; expected %d", tc.name, got, tc.expected)
		}
	}
}

func closedEntry(userId int, clockIn time.Time, hours float64) *TimeEntry {
	out := clockIn.Add(time.Duration(hours * float64(time.Hour)))
	return &TimeEntry{UserId: userId, ClockInAt: clockIn, ClockOutAt: &out}
}

func workerWithRate(id int, rateCents int64, effective time.Time) *User {
	return &User{
		ID:          id,
		DisplayName: "Test Worker",
		PayRates: []PayRate{
			{ID: 1, UserId: id, AmountCents: rateCents, EffectiveDate: effective, CreatedAt: effective},
		},
	}
}

func TestAggregateWorkerEntriesSplitsPerWeek(t *testing.T) {
	// Two ISO weeks, 45h then 30h. Overtime applies only to the first week;
	// hours must not blend across weeks into a single 75h bucket.
	week1Monday := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	week2Monday := week1Monday.AddDate(0, 0, 7)

	var entries []*TimeEntry
	for day := 0; day < 5; day++ {
		entries = append(entries, closedEntry(1, week1Monday.AddDate(0, 0, day), 9))
		entries = append(entries, closedEntry(1, week2Monday.AddDate(0, 0, day), 6))
	}

	worker := workerWithRate(1, 2000, week1Monday.AddDate(0, 0, -30))
	summary := AggregateWorkerEntries(worker, entries, week1Monday)

	if summary.RegularHours != 70 {
		t.Fatalf("regular hours = %v; expected 70", summary.RegularHours)
	}
	if summary.OvertimeHours != 5 {
		t.Fatalf("overtime hours = %v; expected 5", summary.OvertimeHours)
	}
	if summary.DoubleTimeHours != 0 {
		t.Fatalf("double time hours = %v; expected 0", summary.DoubleTimeHours)
	}
	if summary.TotalHours != 75 {
		t.Fatalf("total hours = %v; expected 75", summary.TotalHours)
	}
	// 70h regular + 5h at 1.5x, rate $20/h
	expected := int64(70*2000) + int64(5*2000*1.5)
	if summary.GrossPayCents != expected {
		t.Fatalf("gross pay = %d; expected %d", summary.GrossPayCents, expected)
	}
}

func TestAggregateWorkerEntriesDoubleTime(t *testing.T) {
	// 65h in one ISO week: 40 regular, 20 overtime, 5 double time.
	monday := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	var entries []*TimeEntry
	for day := 0; day < 5; day++ {
		entries = append(entries, closedEntry(1, monday.AddDate(0, 0, day), 13))
	}

	worker := workerWithRate(1, 1000, monday.AddDate(0, 0, -1))
	summary := AggregateWorkerEntries(worker, entries, monday)

	if summary.RegularHours != 40 || summary.OvertimeHours != 20 || summary.DoubleTimeHours != 5 {
		t.Fatalf("bands = (%v, %v, %v); expected (40, 20, 5)",
			summary.RegularHours, summary.OvertimeHours, summary.DoubleTimeHours)
	}
	expected := int64(40*1000) + int64(20*1000*1.5) + int64(5*1000*2)
	if summary.GrossPayCents != expected {
		t.Fatalf("gross pay = %d; expected %d", summary.GrossPayCents, expected)
	}
}

func TestAggregateWorkerEntriesIgnoresOpenShifts(t *testing.T) {
	monday := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	entries := []*TimeEntry{
		closedEntry(1, monday, 8),
		{UserId: 1, ClockInAt: monday.AddDate(0, 0, 1)}, // still clocked in
	}

	worker := workerWithRate(1, 1500, monday.AddDate(0, 0, -1))
	summary := AggregateWorkerEntries(worker, entries, monday)

	if summary.TotalHours != 8 {
		t.Fatalf("total hours = %v; expected 8 (open shift must not count)", summary.TotalHours)
	}
	if summary.EntryCount != 1 {
		t.Fatalf("entry count = %d; expected 1", summary.EntryCount)
	}
	if summary.OpenEntryCount != 1 {
		t.Fatalf("open entry count = %d; expected 1", summary.OpenEntryCount)
	}
}

func TestAggregateWorkerEntriesRateResolvedAtEarliestEntry(t *testing.T) {
	// Rate raised mid-range: the whole range prices at the rate in force
	// when the range's first shift started.
	monday := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	worker := &User{
		ID:          1,
		DisplayName: "Raise Mid Range",
		PayRates: []PayRate{
			{ID: 1, UserId: 1, AmountCents: 1000, EffectiveDate: monday.AddDate(0, 0, -30), CreatedAt: monday.AddDate(0, 0, -30)},
			{ID: 2, UserId: 1, AmountCents: 2000, EffectiveDate: monday.AddDate(0, 0, 2), CreatedAt: monday.AddDate(0, 0, 2)},
		},
	}
	entries := []*TimeEntry{
		closedEntry(1, monday, 8),
		closedEntry(1, monday.AddDate(0, 0, 3), 8), // after the raise
	}

	summary := AggregateWorkerEntries(worker, entries, monday)
	if summary.RateCentsPerHour != 1000 {
		t.Fatalf("rate = %d; expected 1000 (resolved at earliest entry)", summary.RateCentsPerHour)
	}
	if summary.GrossPayCents != 16*1000 {
		t.Fatalf("gross pay = %d; expected %d", summary.GrossPayCents, 16*1000)
	}
}

func TestAggregateWorkerEntriesNoRateSet(t *testing.T) {
	monday := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	worker := &User{ID: 1, DisplayName: "No Rate"}
	entries := []*TimeEntry{closedEntry(1, monday, 8)}

	summary := AggregateWorkerEntries(worker, entries, monday)
	if !summary.NoRateSet {
		t.Fatal("expected NoRateSet")
	}
	if summary.TotalHours != 8 {
		t.Fatalf("total hours = %v; hours must survive a missing rate", summary.TotalHours)
	}
	if summary.GrossPayCents != 0 || summary.RateCentsPerHour != 0 {
		t.Fatalf("money fields must stay zero with no rate; got rate=%d gross=%d",
			summary.RateCentsPerHour, summary.GrossPayCents)
	}
}

func TestAggregateWorkerEntriesZeroEntriesUsesFallbackInstant(t *testing.T) {
	rangeStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	worker := workerWithRate(1, 1750, rangeStart.AddDate(0, 0, -10))

	summary := AggregateWorkerEntries(worker, nil, rangeStart)
	if summary.TotalHours != 0 {
		t.Fatalf("total hours = %v; expected 0", summary.TotalHours)
	}
	if summary.NoRateSet {
		t.Fatal("rate should resolve at the range start for zero-hour workers")
	}
	if summary.RateCentsPerHour != 1750 {
		t.Fatalf("rate = %d; expected 1750", summary.RateCentsPerHour)
	}
}

func TestSortSummariesIsDeterministic(t *testing.T) {
	summaries := []*WorkerPayrollSummary{
		{UserId: 3, DisplayName: "Zoe"},
		{UserId: 2, DisplayName: "amy"},
		{UserId: 1, DisplayName: "Amy"},
	}
	SortSummaries(summaries)
	// case-insensitive by name, id breaks the tie
	if summaries[0].UserId != 1 || summaries[1].UserId != 2 || summaries[2].UserId != 3 {
		t.Fatalf("unexpected order: %d, %d, %d",
			summaries[0].UserId, summaries[1].UserId, summaries[2].UserId)
	}
}
