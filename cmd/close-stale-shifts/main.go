package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/techetime/timeclock_backend/config"
	"github.com/techetime/timeclock_backend/models"
	"github.com/techetime/timeclock_backend/utils"
)

// Ops tool: close shifts that have been open longer than the cutoff.
// Forgotten punches otherwise sit open forever and the worker cannot clock
// in the next day. Closed entries get a note so payroll can spot and
// correct them.
func main() {
	businessID := flag.String("business-id", "", "Optional: only one business (uuid string). If empty, runs for all businesses.")
	maxOpenHours := flag.Int("max-open-hours", 16, "Close shifts open longer than this many hours")
	dryRun := flag.Bool("dry-run", false, "List stale shifts without closing them")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	ctx = utils.SetUserNameInContext(ctx, "CloseStaleShifts")
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	cutoff := time.Now().UTC().Add(-time.Duration(*maxOpenHours) * time.Hour)
	query := db.WithContext(ctx).
		Where("clock_out_at IS NULL AND clock_in_at < ?", cutoff)
	if strings.TrimSpace(*businessID) != "" {
		query = query.Where("business_id = ?", strings.TrimSpace(*businessID))
	}

	var stale []*models.TimeEntry
	if err := query.Find(&stale).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list stale shifts: %v\n", err)
		os.Exit(1)
	}
	if len(stale) == 0 {
		fmt.Println("no stale shifts found")
		return
	}

	for _, entry := range stale {
		openFor := time.Since(entry.ClockInAt).Round(time.Minute)
		fmt.Printf("entry %d business=%s user=%d open since %s (%s)\n",
			entry.ID, entry.BusinessId, entry.UserId,
			entry.ClockInAt.Format(time.RFC3339), openFor)
		if *dryRun {
			continue
		}

		closeAt := entry.ClockInAt.Add(time.Duration(*maxOpenHours) * time.Hour)
		note := fmt.Sprintf("auto-closed after %dh; verify actual end time", *maxOpenHours)
		if entry.Notes != "" {
			note = entry.Notes + "; " + note
		}
		err := db.WithContext(ctx).Model(entry).Updates(map[string]interface{}{
			"ClockOutAt": closeAt,
			"Notes":      note,
		}).Error
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to close entry %d: %v\n", entry.ID, err)
			os.Exit(1)
		}
	}

	if *dryRun {
		fmt.Printf("%d stale shifts (dry run, nothing closed)\n", len(stale))
		return
	}
	fmt.Printf("closed %d stale shifts\n", len(stale))
}
