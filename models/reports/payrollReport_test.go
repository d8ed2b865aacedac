package reports

import (
	"testing"
	"time"

	"github.com/techetime/timeclock_backend/utils"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestValidateReportRange(t *testing.T) {
	tests := []struct {
		name    string
		from    time.Time
		to      time.Time
		wantErr bool
	}{
		{"single day", day(2026, 5, 4), day(2026, 5, 4), false},
		{"89 days", day(2026, 1, 1), day(2026, 3, 30), false},
		{"90 days", day(2026, 1, 1), day(2026, 3, 31), false},
		{"91 days", day(2026, 1, 1), day(2026, 4, 1), true},
		{"90 days across fall-back", day(2026, 9, 1), day(2026, 11, 29), false},
		{"91 days across fall-back", day(2026, 9, 1), day(2026, 11, 30), true},
		{"90 days across spring-forward", day(2026, 2, 1), day(2026, 5, 1), false},
		{"to before from", day(2026, 5, 4), day(2026, 5, 3), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateReportRange(tt.from, tt.to)
			if tt.wantErr {
				if !utils.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
