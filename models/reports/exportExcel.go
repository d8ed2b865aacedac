package reports

import (
	"time"

	"github.com/xuri/excelize/v2"
)

// RenderExcel builds the xlsx workbook: a Summary sheet mirroring the
// summary CSV and a Shifts sheet mirroring the detailed one. Money columns
// are numeric dollars so the file totals cleanly in a spreadsheet.
func RenderExcel(report *PayrollReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	const shiftsSheet = "Shifts"

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(shiftsSheet); err != nil {
		return nil, err
	}

	summaryHeader := []interface{}{
		"Worker", "Location",
		"Regular Hours", "Overtime Hours", "Double Time Hours", "Total Hours",
		"Hourly Rate", "Gross Pay",
	}
	if err := writeRow(f, summarySheet, 1, summaryHeader); err != nil {
		return nil, err
	}
	rowNo := 2
	for _, row := range report.Rows {
		var rate, gross interface{}
		if !row.NoRateSet {
			rate = float64(row.RateCentsPerHour) / 100
			gross = float64(row.GrossPayCents) / 100
		}
		cells := []interface{}{
			row.DisplayName, row.LocationName,
			row.RegularHours, row.OvertimeHours, row.DoubleTimeHours, row.TotalHours,
			rate, gross,
		}
		if err := writeRow(f, summarySheet, rowNo, cells); err != nil {
			return nil, err
		}
		rowNo++
	}
	totals := []interface{}{
		"TOTAL", nil,
		report.Totals.RegularHours, report.Totals.OvertimeHours,
		report.Totals.DoubleTimeHours, report.Totals.TotalHours,
		nil, float64(report.Totals.GrossPayCents) / 100,
	}
	if err := writeRow(f, summarySheet, rowNo, totals); err != nil {
		return nil, err
	}

	shiftsHeader := []interface{}{
		"Date", "Worker", "Location", "Clock In", "Clock Out", "Hours", "Pay Type",
	}
	if err := writeRow(f, shiftsSheet, 1, shiftsHeader); err != nil {
		return nil, err
	}
	for i, shift := range report.Shifts {
		cells := []interface{}{
			shift.Date, shift.WorkerName, shift.LocationName,
			shift.ClockInAt.UTC().Format(time.RFC3339),
			shift.ClockOutAt.UTC().Format(time.RFC3339),
			shift.Hours, shift.PayType,
		}
		if err := writeRow(f, shiftsSheet, i+2, cells); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, rowNo int, values []interface{}) error {
	for i, value := range values {
		if value == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, rowNo)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return err
		}
	}
	return nil
}
