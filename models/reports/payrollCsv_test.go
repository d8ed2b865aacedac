package reports

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/techetime/timeclock_backend/models"
)

func sampleReport() *PayrollReport {
	out1 := time.Date(2026, 5, 4, 17, 0, 0, 0, time.UTC)
	out2 := time.Date(2026, 5, 5, 19, 30, 0, 0, time.UTC)
	return &PayrollReport{
		ReportId: "test-report",
		FromDate: time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
		ToDate:   time.Date(2026, 5, 10, 23, 59, 59, 0, time.UTC),
		Rows: []*models.WorkerPayrollSummary{
			{
				UserId: 1, DisplayName: "Amy Adams", LocationName: "Downtown",
				RegularHours: 40, OvertimeHours: 5, TotalHours: 45,
				RateCentsPerHour: 2000, GrossPayCents: 95000,
			},
			{
				UserId: 2, DisplayName: "Bob Brown", LocationName: "Riverside",
				RegularHours: 8, TotalHours: 8,
				NoRateSet: true,
			},
		},
		Shifts: []*ShiftDetailRow{
			{
				EntryId: 1, Date: "2026-05-04", WorkerName: "Amy Adams", LocationName: "Downtown",
				ClockInAt: out1.Add(-8 * time.Hour), ClockOutAt: out1,
				Hours: 8, PayType: "regular",
			},
			{
				EntryId: 2, Date: "2026-05-05", WorkerName: "Amy Adams", LocationName: "Downtown",
				ClockInAt: out2.Add(-10 * time.Hour), ClockOutAt: out2,
				Hours: 10, PayType: "overtime",
			},
		},
		Totals: PayrollTotals{
			RegularHours: 48, OvertimeHours: 5, TotalHours: 53,
			GrossPayCents: 95000, WorkerCount: 2,
		},
	}
}

func parseCSV(t *testing.T, payload []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	return records
}

func TestRenderSummaryCSV(t *testing.T) {
	payload, err := RenderSummaryCSV(sampleReport())
	if err != nil {
		t.Fatalf("RenderSummaryCSV: %v", err)
	}
	records := parseCSV(t, payload)

	// header + 2 workers + TOTAL
	if len(records) != 4 {
		t.Fatalf("expected 4 csv rows, got %d", len(records))
	}
	if records[0][0] != "Worker" || records[0][7] != "Gross Pay" {
		t.Fatalf("unexpected header: %v", records[0])
	}

	amy := records[1]
	if amy[0] != "Amy Adams" || amy[6] != "20.00" || amy[7] != "950.00" {
		t.Fatalf("unexpected first row: %v", amy)
	}

	// no rate in force: hours present, money columns blank
	bob := records[2]
	if bob[0] != "Bob Brown" || bob[5] != "8.00" {
		t.Fatalf("unexpected second row: %v", bob)
	}
	if bob[6] != "" || bob[7] != "" {
		t.Fatalf("rate/gross must be blank with no rate set: %v", bob)
	}

	total := records[3]
	if total[0] != "TOTAL" || total[5] != "53.00" || total[7] != "950.00" {
		t.Fatalf("unexpected total row: %v", total)
	}
}

func TestRenderDetailedCSV(t *testing.T) {
	payload, err := RenderDetailedCSV(sampleReport())
	if err != nil {
		t.Fatalf("RenderDetailedCSV: %v", err)
	}
	records := parseCSV(t, payload)

	if len(records) != 3 {
		t.Fatalf("expected 3 csv rows, got %d", len(records))
	}
	if records[1][6] != "regular" || records[2][6] != "overtime" {
		t.Fatalf("unexpected pay types: %v / %v", records[1][6], records[2][6])
	}
	if records[2][5] != "10.00" {
		t.Fatalf("unexpected hours column: %v", records[2])
	}
}

func TestRenderExcelProducesWorkbook(t *testing.T) {
	payload, err := RenderExcel(sampleReport())
	if err != nil {
		t.Fatalf("RenderExcel: %v", err)
	}
	// xlsx is a zip archive
	if len(payload) < 4 || payload[0] != 'P' || payload[1] != 'K' {
		t.Fatalf("expected zip magic, got % x", payload[:4])
	}
}

func TestClassifyShiftPayType(t *testing.T) {
	cases := []struct {
		hours    float64
		expected string
	}{
		{7.99, "regular"},
		{8, "regular"},
		{8.01, "overtime"},
		{12, "overtime"},
	}
	for _, tc := range cases {
		if got := ClassifyShiftPayType(tc.hours); got != tc.expected {
			t.Fatalf("ClassifyShiftPayType(%v) = %q; expected %q", tc.hours, got, tc.expected)
		}
	}
}

func TestPayrollReportIdIsDeterministic(t *testing.T) {
	from := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 5, 10, 23, 59, 59, 0, time.UTC)

	first := PayrollReportId("biz-1", from, to, 0, 0)
	second := PayrollReportId("biz-1", from, to, 0, 0)
	if first != second {
		t.Fatalf("same params produced different ids: %s / %s", first, second)
	}

	if PayrollReportId("biz-2", from, to, 0, 0) == first {
		t.Fatal("different business must produce a different id")
	}
	if PayrollReportId("biz-1", from, to, 7, 0) == first {
		t.Fatal("different location filter must produce a different id")
	}
	if PayrollReportId("biz-1", from, to, 0, 3) == first {
		t.Fatal("different worker filter must produce a different id")
	}
	if PayrollReportId("biz-1", from, to.Add(time.Second), 0, 0) == first {
		t.Fatal("different range must produce a different id")
	}
}
