package models

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Weekly hour thresholds. Hours within a single ISO week above the regular
// threshold pay time-and-a-half; above the double-time threshold they pay
// double. Weeks never blend: a Sunday-to-Monday shift still books all of its
// hours into the week of its clock-in.
const (
	WeeklyRegularHoursLimit    = 40.0
	WeeklyDoubleTimeHoursLimit = 60.0

	overtimeMultiplier   = 1.5
	doubleTimeMultiplier = 2.0
)

// WorkerPayrollSummary is one worker's aggregate over the report range.
// Hours stay at full float precision here; rounding is presentation's job.
type WorkerPayrollSummary struct {
	UserId           int     `json:"user_id"`
	DisplayName      string  `json:"display_name"`
	LocationId       int     `json:"location_id"`
	LocationName     string  `json:"location_name"`
	RegularHours     float64 `json:"regular_hours"`
	OvertimeHours    float64 `json:"overtime_hours"`
	DoubleTimeHours  float64 `json:"double_time_hours"`
	TotalHours       float64 `json:"total_hours"`
	RateCentsPerHour int64   `json:"rate_cents_per_hour"`
	GrossPayCents    int64   `json:"gross_pay_cents"`
	NoRateSet        bool    `json:"no_rate_set"`
	EntryCount       int     `json:"entry_count"`
	OpenEntryCount   int     `json:"open_entry_count"`
}

// splitWeeklyHours carves one week's hours into regular, overtime and
// double-time bands.
func splitWeeklyHours(hours float64) (regular, overtime, doubleTime float64) {
	if hours <= WeeklyRegularHoursLimit {
		return hours, 0, 0
	}
	if hours <= WeeklyDoubleTimeHoursLimit {
		return WeeklyRegularHoursLimit, hours - WeeklyRegularHoursLimit, 0
	}
	return WeeklyRegularHoursLimit,
		WeeklyDoubleTimeHoursLimit - WeeklyRegularHoursLimit,
		hours - WeeklyDoubleTimeHoursLimit
}

// AggregateWorkerEntries folds one worker's closed entries into a payroll
// summary. Entries are bucketed by the ISO week of their clock-in, the
// overtime split runs per week, then the bands sum across weeks.
//
// The pay rate is resolved once, at the earliest entry's clock-in. Workers
// whose rate changes mid-range are priced at the rate in force when the
// range's work began; per-entry rate resolution is a correction workflow,
// not a report concern. With no entries, rateFallbackAt (the report range
// start) anchors the lookup so rostered zero-hour workers still show a rate.
func AggregateWorkerEntries(worker *User, entries []*TimeEntry, rateFallbackAt time.Time) *WorkerPayrollSummary {
	summary := &WorkerPayrollSummary{
		UserId:      worker.ID,
		DisplayName: worker.Name(),
		LocationId:  worker.LocationId,
	}

	rateAt := rateFallbackAt
	weekHours := map[[2]int]float64{}
	for _, entry := range entries {
		if entry.ClockOutAt == nil {
			summary.OpenEntryCount++
			continue
		}
		summary.EntryCount++
		if summary.EntryCount == 1 || entry.ClockInAt.Before(rateAt) {
			rateAt = entry.ClockInAt
		}

		year, week := entry.ClockInAt.ISOWeek()
		weekHours[[2]int{year, week}] += entry.Hours()
	}

	for _, hours := range weekHours {
		regular, overtime, doubleTime := splitWeeklyHours(hours)
		summary.RegularHours += regular
		summary.OvertimeHours += overtime
		summary.DoubleTimeHours += doubleTime
	}
	summary.TotalHours = summary.RegularHours + summary.OvertimeHours + summary.DoubleTimeHours

	rate, err := ResolveRateAt(worker.PayRates, rateAt)
	if err != nil {
		summary.NoRateSet = true
		return summary
	}
	summary.RateCentsPerHour = rate.AmountCents
	summary.GrossPayCents = GrossPayCents(
		summary.RegularHours, summary.OvertimeHours, summary.DoubleTimeHours, rate.AmountCents)
	return summary
}

// GrossPayCents prices the three hour bands in cents. Decimal arithmetic
// end to end; one half-up rounding to whole cents at the very end.
func GrossPayCents(regularHours, overtimeHours, doubleTimeHours float64, rateCents int64) int64 {
	rate := decimal.NewFromInt(rateCents)
	gross := decimal.NewFromFloat(regularHours).Mul(rate).
		Add(decimal.NewFromFloat(overtimeHours).Mul(rate).Mul(decimal.NewFromFloat(overtimeMultiplier))).
		Add(decimal.NewFromFloat(doubleTimeHours).Mul(rate).Mul(decimal.NewFromFloat(doubleTimeMultiplier)))
	return gross.Round(0).IntPart()
}

// SortSummaries orders report rows by display name (case-insensitive), then
// user id for identically named workers, so repeated runs render identically.
func SortSummaries(summaries []*WorkerPayrollSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		left := strings.ToLower(summaries[i].DisplayName)
		right := strings.ToLower(summaries[j].DisplayName)
		if left != right {
			return left < right
		}
		return summaries[i].UserId < summaries[j].UserId
	})
}

// GroupEntriesByUser splits a range fetch into per-worker slices, keeping
// the fetch's clock-in ordering within each slice.
func GroupEntriesByUser(entries []*TimeEntry) map[int][]*TimeEntry {
	grouped := map[int][]*TimeEntry{}
	for _, entry := range entries {
		grouped[entry.UserId] = append(grouped[entry.UserId], entry)
	}
	return grouped
}
