package reports

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// formatCents renders money columns as dollars with two decimals.
func formatCents(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}

func formatHours(hours float64) string {
	return strconv.FormatFloat(hours, 'f', 2, 64)
}

// RenderSummaryCSV writes the per-worker summary. Workers with no pay rate
// in force keep their hours but render blank rate and gross columns; the
// TOTAL row closes the file.
func RenderSummaryCSV(report *PayrollReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{
		"Worker", "Location",
		"Regular Hours", "Overtime Hours", "Double Time Hours", "Total Hours",
		"Hourly Rate", "Gross Pay",
	}
	if err := writer.Write(header); err != nil {
		return nil, err
	}

	for _, row := range report.Rows {
		rate := ""
		gross := ""
		if !row.NoRateSet {
			rate = formatCents(row.RateCentsPerHour)
			gross = formatCents(row.GrossPayCents)
		}
		record := []string{
			row.DisplayName,
			row.LocationName,
			formatHours(row.RegularHours),
			formatHours(row.OvertimeHours),
			formatHours(row.DoubleTimeHours),
			formatHours(row.TotalHours),
			rate,
			gross,
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	total := []string{
		"TOTAL", "",
		formatHours(report.Totals.RegularHours),
		formatHours(report.Totals.OvertimeHours),
		formatHours(report.Totals.DoubleTimeHours),
		formatHours(report.Totals.TotalHours),
		"",
		formatCents(report.Totals.GrossPayCents),
	}
	if err := writer.Write(total); err != nil {
		return nil, err
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderDetailedCSV writes one row per closed shift, flagging shifts over
// the daily threshold as overtime.
func RenderDetailedCSV(report *PayrollReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{
		"Date", "Worker", "Location", "Clock In", "Clock Out", "Hours", "Pay Type",
	}
	if err := writer.Write(header); err != nil {
		return nil, err
	}

	for _, shift := range report.Shifts {
		record := []string{
			shift.Date,
			shift.WorkerName,
			shift.LocationName,
			shift.ClockInAt.UTC().Format(time.RFC3339),
			shift.ClockOutAt.UTC().Format(time.RFC3339),
			formatHours(shift.Hours),
			shift.PayType,
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
