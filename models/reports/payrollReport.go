package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/techetime/timeclock_backend/config"
	"github.com/techetime/timeclock_backend/insights"
	"github.com/techetime/timeclock_backend/models"
	"github.com/techetime/timeclock_backend/utils"
)

// MaxReportRangeDays caps the report span. Longer ranges belong in an
// export pipeline, not a request/response report.
const MaxReportRangeDays = 90

// Shifts over this length are flagged overtime in the detailed breakdown.
// This is a per-shift presentation flag; pay math uses the weekly split.
const dailyOvertimeThresholdHours = 8.0

type PayrollReportInput struct {
	FromDate   models.MyDateString `json:"from_date" binding:"required"`
	ToDate     models.MyDateString `json:"to_date" binding:"required"`
	LocationId *int                `json:"location_id"`
	UserId     *int                `json:"user_id"`
}

// ShiftDetailRow is one closed shift in the detailed breakdown.
type ShiftDetailRow struct {
	EntryId      int       `json:"entry_id"`
	Date         string    `json:"date"`
	WorkerName   string    `json:"worker_name"`
	LocationName string    `json:"location_name"`
	ClockInAt    time.Time `json:"clock_in_at"`
	ClockOutAt   time.Time `json:"clock_out_at"`
	Hours        float64   `json:"hours"`
	PayType      string    `json:"pay_type"`
}

type PayrollTotals struct {
	RegularHours    float64 `json:"regular_hours"`
	OvertimeHours   float64 `json:"overtime_hours"`
	DoubleTimeHours float64 `json:"double_time_hours"`
	TotalHours      float64 `json:"total_hours"`
	GrossPayCents   int64   `json:"gross_pay_cents"`
	WorkerCount     int     `json:"worker_count"`
	LocationCount   int     `json:"location_count"`
}

type PayrollReport struct {
	ReportId    string                         `json:"report_id"`
	FromDate    time.Time                      `json:"from_date"`
	ToDate      time.Time                      `json:"to_date"`
	LocationId  int                            `json:"location_id"`
	UserId      int                            `json:"user_id"`
	GeneratedAt time.Time                      `json:"generated_at"`
	Rows        []*models.WorkerPayrollSummary `json:"rows"`
	Shifts      []*ShiftDetailRow              `json:"shifts"`
	Totals      PayrollTotals                  `json:"totals"`
	Insights    *string                        `json:"insights,omitempty"`
}

// PayrollReportId derives a stable id from the report parameters. The same
// business, range and location filter always produce the same id, so audit
// rows and cache keys for re-runs of one report line up.
func PayrollReportId(businessId string, from, to time.Time, locationId, userId int) string {
	canonical := fmt.Sprintf("payroll|%s|%s|%s|%d|%d",
		businessId,
		from.UTC().Format(time.RFC3339Nano),
		to.UTC().Format(time.RFC3339Nano),
		locationId,
		userId)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(canonical)).String()
}

// validateReportRange enforces the range cap on the raw request dates,
// counting inclusive calendar days. Days, not elapsed time: a range that
// crosses a DST transition is an hour longer or shorter on the clock but
// covers the same number of days, and the cap must not move with it.
func validateReportRange(from, to time.Time) error {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	if toDay.Before(fromDay) {
		return utils.ValidationError("to date must not be before from date")
	}
	spanDays := int(toDay.Sub(fromDay).Hours()/24) + 1
	if spanDays > MaxReportRangeDays {
		return utils.ValidationError(
			fmt.Sprintf("report range must not exceed %d days", MaxReportRangeDays))
	}
	return nil
}

// ClassifyShiftPayType labels one shift for the detailed breakdown.
func ClassifyShiftPayType(hours float64) string {
	if hours > dailyOvertimeThresholdHours {
		return "overtime"
	}
	return "regular"
}

// BuildPayrollReport assembles the weekly-overtime payroll report for the
// requested range. The roster drives the rows: every active worker appears,
// including those with zero hours, plus any deactivated worker who still has
// entries in the range.
func BuildPayrollReport(ctx context.Context, input *PayrollReportInput) (*PayrollReport, error) {
	started := time.Now()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	business, err := models.GetBusiness(ctx)
	if err != nil {
		return nil, err
	}

	if err := validateReportRange(input.FromDate.Time(), input.ToDate.Time()); err != nil {
		return nil, err
	}

	fromDate := input.FromDate
	toDate := input.ToDate
	if err := fromDate.StartOfDayUTCTime(business.Timezone); err != nil {
		return nil, utils.ValidationError("invalid from date")
	}
	if err := toDate.EndOfDayUTCTime(business.Timezone); err != nil {
		return nil, utils.ValidationError("invalid to date")
	}
	from := fromDate.Time()
	to := toDate.Time()

	locationId := 0
	if input.LocationId != nil && *input.LocationId != 0 {
		if err := utils.ValidateResourceId[models.Location](ctx, businessId, input.LocationId); err != nil {
			return nil, utils.NotFoundError("location not found")
		}
		locationId = *input.LocationId
	}
	userId := 0
	if input.UserId != nil && *input.UserId != 0 {
		if err := utils.ValidateResourceId[models.User](ctx, businessId, input.UserId); err != nil {
			return nil, utils.NotFoundError("user not found")
		}
		userId = *input.UserId
	}

	reportId := PayrollReportId(businessId, from, to, locationId, userId)
	auditDetail := map[string]interface{}{
		"from_date":   from.Format(time.RFC3339),
		"to_date":     to.Format(time.RFC3339),
		"location_id": locationId,
		"user_id":     userId,
	}

	// a cached report is still a generation from the requester's side, so
	// the audit record is written on both paths
	if cached, ok := getCachedReport(ctx, reportId); ok {
		auditDetail["cache_hit"] = true
		models.WriteAudit(ctx, models.AuditActionReportGenerated, "payroll_reports", 0, auditDetail, reportId)
		return cached, nil
	}

	var workers []*models.User
	if userId > 0 {
		workers, err = models.GetUsersWithRatesByIds(ctx, businessId, []int{userId})
	} else {
		workers, err = models.GetWorkersWithRates(ctx, businessId, locationId)
	}
	if err != nil {
		return nil, err
	}
	entries, err := models.FetchEntriesInRange(ctx, businessId, from, to, locationId)
	if err != nil {
		return nil, err
	}
	if userId > 0 {
		filtered := entries[:0]
		for _, entry := range entries {
			if entry.UserId == userId {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	grouped := models.GroupEntriesByUser(entries)

	workersById := map[int]*models.User{}
	for _, worker := range workers {
		workersById[worker.ID] = worker
	}
	var offRoster []int
	for entryUserId := range grouped {
		if _, ok := workersById[entryUserId]; !ok {
			offRoster = append(offRoster, entryUserId)
		}
	}
	extra, err := models.GetUsersWithRatesByIds(ctx, businessId, offRoster)
	if err != nil {
		return nil, err
	}
	for _, worker := range extra {
		workersById[worker.ID] = worker
		workers = append(workers, worker)
	}

	locationNames := resolveLocationNames(ctx, businessId, workers, entries)

	report := &PayrollReport{
		ReportId:    reportId,
		FromDate:    from,
		ToDate:      to,
		LocationId:  locationId,
		UserId:      userId,
		GeneratedAt: time.Now().UTC(),
	}

	distinctLocations := map[int]struct{}{}
	for _, worker := range workers {
		summary := models.AggregateWorkerEntries(worker, grouped[worker.ID], from)
		summary.LocationName = locationNames[summary.LocationId]
		distinctLocations[summary.LocationId] = struct{}{}

		report.Rows = append(report.Rows, summary)
		report.Totals.RegularHours += summary.RegularHours
		report.Totals.OvertimeHours += summary.OvertimeHours
		report.Totals.DoubleTimeHours += summary.DoubleTimeHours
		report.Totals.TotalHours += summary.TotalHours
		report.Totals.GrossPayCents += summary.GrossPayCents
	}
	report.Totals.WorkerCount = len(report.Rows)
	report.Totals.LocationCount = len(distinctLocations)
	models.SortSummaries(report.Rows)

	report.Shifts = buildShiftRows(entries, workersById, locationNames, business.Timezone)

	attachInsights(ctx, business.Name, report)

	models.WriteAudit(ctx, models.AuditActionReportGenerated, "payroll_reports", 0, auditDetail, reportId)

	setCachedReport(ctx, reportId, report)
	logSlowReport(ctx, "payroll", started, map[string]interface{}{
		"workers": len(report.Rows),
		"entries": len(entries),
	})
	return report, nil
}

// resolveLocationNames batches the lookup for every location the report
// touches. A lookup failure degrades to "Unknown Location" on every row
// rather than failing the report.
func resolveLocationNames(ctx context.Context, businessId string, workers []*models.User, entries []*models.TimeEntry) map[int]string {
	var ids []int
	for _, worker := range workers {
		ids = append(ids, worker.LocationId)
	}
	for _, entry := range entries {
		ids = append(ids, entry.LocationId)
	}
	ids = utils.UniqueSlice(ids)

	names, err := models.GetLocationNames(ctx, businessId, ids)
	if err != nil {
		config.LogError(config.GetLogger(), "payrollReport.go", "resolveLocationNames", "GetLocationNames", ids, err)
		names = map[int]string{}
	}
	resolved := make(map[int]string, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok && name != "" {
			resolved[id] = name
		} else {
			resolved[id] = models.UnknownLocationName
		}
	}
	return resolved
}

func buildShiftRows(entries []*models.TimeEntry, workersById map[int]*models.User, locationNames map[int]string, timezone string) []*ShiftDetailRow {
	location := time.UTC
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err == nil {
			location = loc
		}
	}

	var rows []*ShiftDetailRow
	for _, entry := range entries {
		if entry.ClockOutAt == nil {
			continue
		}
		workerName := models.UnknownWorkerName
		if worker, ok := workersById[entry.UserId]; ok {
			workerName = worker.Name()
		}
		locationName := locationNames[entry.LocationId]
		if locationName == "" {
			locationName = models.UnknownLocationName
		}
		hours := entry.Hours()
		rows = append(rows, &ShiftDetailRow{
			EntryId:      entry.ID,
			Date:         entry.ClockInAt.In(location).Format("2006-01-02"),
			WorkerName:   workerName,
			LocationName: locationName,
			ClockInAt:    entry.ClockInAt,
			ClockOutAt:   *entry.ClockOutAt,
			Hours:        utils.Round2(hours),
			PayType:      ClassifyShiftPayType(hours),
		})
	}
	return rows
}

// attachInsights asks the narrative generator for a short commentary when
// the feature is configured. Any failure just leaves Insights nil.
func attachInsights(ctx context.Context, businessName string, report *PayrollReport) {
	if !config.InsightsEnabled() {
		return
	}
	stats := insights.PayrollStats{
		BusinessName:  businessName,
		FromDate:      report.FromDate.Format("2006-01-02"),
		ToDate:        report.ToDate.Format("2006-01-02"),
		WorkerCount:   report.Totals.WorkerCount,
		TotalHours:    utils.Round2(report.Totals.TotalHours),
		OvertimeHours: utils.Round2(report.Totals.OvertimeHours + report.Totals.DoubleTimeHours),
		GrossPayCents: report.Totals.GrossPayCents,
	}
	narrative, err := insights.GeneratePayrollInsights(ctx, stats)
	if err != nil {
		config.LogError(config.GetLogger(), "payrollReport.go", "attachInsights", "GeneratePayrollInsights", report.ReportId, err)
		return
	}
	if narrative != "" {
		report.Insights = &narrative
	}
}
