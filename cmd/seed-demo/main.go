package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/techetime/timeclock_backend/config"
	"github.com/techetime/timeclock_backend/models"
	"github.com/techetime/timeclock_backend/utils"
)

// Seeds a demo business with two locations, a handful of pin-enabled
// workers with rate history, and two weeks of closed shifts so reports have
// something to chew on. Safe to run against an empty database only.
func main() {
	name := flag.String("name", "Demo Coffee Co", "Business name")
	timezone := flag.String("timezone", "America/New_York", "Business timezone")
	ownerEmail := flag.String("owner-email", "owner@example.com", "Owner login email")
	ownerPassword := flag.String("owner-password", "changeme123", "Owner login password")
	weeks := flag.Int("weeks", 2, "Weeks of shift history to generate")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	if err := models.MigrateTables(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
		os.Exit(1)
	}

	business, owner, err := models.RegisterBusiness(ctx, &models.NewBusiness{
		Name:          *name,
		Timezone:      *timezone,
		OwnerName:     "Demo Owner",
		OwnerEmail:    *ownerEmail,
		OwnerPassword: *ownerPassword,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to register business: %v\n", err)
		os.Exit(1)
	}

	ctx = utils.SetBusinessIdInContext(ctx, business.ID)
	ctx = utils.SetUserIdInContext(ctx, owner.ID)
	ctx = utils.SetUserNameInContext(ctx, "SeedDemo")
	ctx = utils.SetUserRoleInContext(ctx, string(models.UserRoleOwner))

	locationNames := []string{"Downtown", "Riverside"}
	var locations []*models.Location
	for _, locName := range locationNames {
		location, err := models.CreateLocation(ctx, &models.NewLocation{
			Name:     locName,
			Timezone: *timezone,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create location %s: %v\n", locName, err)
			os.Exit(1)
		}
		locations = append(locations, location)
	}

	type seedWorker struct {
		first, last, pin string
		rateCents        int64
	}
	seedWorkers := []seedWorker{
		{"Ava", "Nguyen", "1234", 1850},
		{"Ben", "Carter", "2345", 1700},
		{"Carla", "Diaz", "3456", 2100},
		{"Dmitri", "Ivanov", "4567", 1950},
		{"Erin", "Walsh", "5678", 1600},
	}

	var workers []*models.User
	for i, sw := range seedWorkers {
		worker, err := models.CreateUser(ctx, &models.NewUser{
			Role:             models.UserRoleWorker,
			FirstName:        sw.first,
			LastName:         sw.last,
			LocationId:       locations[i%len(locations)].ID,
			Pin:              sw.pin,
			InitialRateCents: sw.rateCents,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create worker %s: %v\n", sw.first, err)
			os.Exit(1)
		}
		workers = append(workers, worker)
	}

	// Closed shifts: weekday mornings, lengths varied enough to trip the
	// weekly overtime split for the first two workers.
	db := config.GetDB()
	start := time.Now().UTC().AddDate(0, 0, -7*(*weeks))
	entryCount := 0
	for day := 0; day < 7*(*weeks); day++ {
		date := start.AddDate(0, 0, day)
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			continue
		}
		for i, worker := range workers {
			clockIn := time.Date(date.Year(), date.Month(), date.Day(), 13, 0, 0, 0, time.UTC)
			hours := 8.0
			if i < 2 {
				hours = 9.5
			}
			clockOut := clockIn.Add(time.Duration(hours * float64(time.Hour)))
			entry := &models.TimeEntry{
				BusinessId: business.ID,
				UserId:     worker.ID,
				LocationId: worker.LocationId,
				ClockInAt:  clockIn,
				ClockOutAt: &clockOut,
			}
			if err := db.WithContext(ctx).Create(entry).Error; err != nil {
				fmt.Fprintf(os.Stderr, "failed to create entry: %v\n", err)
				os.Exit(1)
			}
			entryCount++
		}
	}

	fmt.Printf("seeded business %s (%s)\n", business.Name, business.ID)
	fmt.Printf("owner login: %s / %s\n", *ownerEmail, *ownerPassword)
	fmt.Printf("%d workers, %d locations, %d closed shifts\n", len(workers), len(locations), entryCount)
}
