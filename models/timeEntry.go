package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/techetime/timeclock_backend/config"
	"github.com/techetime/timeclock_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TimeEntry is one shift. ClockOutAt == nil means the shift is open.
//
// Central invariant: per (business_id, user_id) at most one row may have
// clock_out_at IS NULL. Every mutation below re-checks it inside a
// transaction that first takes a FOR UPDATE lock on the worker's user row,
// so concurrent punches, admin corrections and retries serialize on that row
// instead of racing the check-then-write.
type TimeEntry struct {
	ID         int        `gorm:"primary_key" json:"id"`
	BusinessId string     `gorm:"index;not null" json:"business_id"`
	UserId     int        `gorm:"index;not null" json:"user_id"`
	LocationId int        `gorm:"index" json:"location_id"`
	ClockInAt  time.Time  `gorm:"not null;index" json:"clock_in_at"`
	ClockOutAt *time.Time `gorm:"index" json:"clock_out_at"`
	Notes      string     `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (entry *TimeEntry) IsOpen() bool {
	return entry.ClockOutAt == nil
}

// Hours returns the shift length in hours at full float precision.
// Open shifts contribute zero.
func (entry *TimeEntry) Hours() float64 {
	if entry.ClockOutAt == nil {
		return 0
	}
	return entry.ClockOutAt.Sub(entry.ClockInAt).Hours()
}

type NewTimeEntry struct {
	UserId     int    `json:"user_id" binding:"required"`
	LocationId int    `json:"location_id" binding:"required"`
	Notes      string `json:"notes"`
}

type PinPunchInput struct {
	Pin        string `json:"pin" binding:"required"`
	LocationId int    `json:"location_id"`
	Notes      string `json:"notes"`
}

type PinPunchResult struct {
	Action           ClockAction      `json:"action"`
	Entry            *TimeEntry       `json:"entry"`
	WorkerName       string           `json:"worker_name"`
	HoursWorked      *float64         `json:"hours_worked,omitempty"`
	MessageType      PunchMessageType `json:"message_type,omitempty"`
	IsInitialClockIn bool             `json:"is_initial_clock_in"`
}

// Punches under this length read back as a break on the kiosk.
const breakPunchThresholdHours = 5

// lockUserRow loads the worker's row FOR UPDATE inside tx. This is the
// serialization point for all open-shift mutations of that worker.
func lockUserRow(tx *gorm.DB, businessId string, userId int) (*User, error) {
	var user User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessId, userId).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundError("user not found in this business")
		}
		return nil, err
	}
	if !utils.DereferencePtr(user.IsActive, true) {
		return nil, utils.NotFoundError("user is deactivated")
	}
	return &user, nil
}

func findOpenEntry(tx *gorm.DB, businessId string, userId int) (*TimeEntry, error) {
	var entry TimeEntry
	err := tx.Where("business_id = ? AND user_id = ? AND clock_out_at IS NULL", businessId, userId).
		Order("clock_in_at DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func validateEntryLocation(tx *gorm.DB, businessId string, locationId int) error {
	var location Location
	err := tx.Where("business_id = ? AND id = ?", businessId, locationId).
		First(&location).Error
	if err != nil {
		return utils.NotFoundError("location not found in this business")
	}
	if !utils.DereferencePtr(location.IsActive, true) {
		return utils.NotFoundError("location is deactivated")
	}
	return nil
}

// obtainPunchLock takes a best-effort redis lock per worker before the
// transaction. Reliability must not depend on Redis: the user-row lock in
// the transaction stays authoritative, this only sheds duplicate kiosk
// submissions before they reach the database.
func obtainPunchLock(ctx context.Context, businessId string, userId int) *redislock.Lock {
	redisLock := config.GetRedisLock()
	if redisLock == nil {
		return nil
	}
	lock, err := redisLock.Obtain(ctx, fmt.Sprintf("punch:%s:%d", businessId, userId), 10*time.Second, nil)
	if err != nil {
		if err != redislock.ErrNotObtained {
			config.LogError(config.GetLogger(), "timeEntry.go", "obtainPunchLock", "Obtain", userId, err)
		}
		return nil
	}
	return lock
}

func releasePunchLock(ctx context.Context, lock *redislock.Lock) {
	if lock == nil {
		return
	}
	if err := lock.Release(ctx); err != nil {
		config.LogError(config.GetLogger(), "timeEntry.go", "releasePunchLock", "Release", nil, err)
	}
}

// ClockIn opens a shift for the worker. Conflict when a shift is already
// open; NotFound when user or location is not part of the business.
func ClockIn(ctx context.Context, input *NewTimeEntry) (*TimeEntry, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	lock := obtainPunchLock(ctx, businessId, input.UserId)
	defer releasePunchLock(ctx, lock)

	var entry *TimeEntry
	err := utils.RunInTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := lockUserRow(tx, businessId, input.UserId); err != nil {
			return err
		}
		open, err := findOpenEntry(tx, businessId, input.UserId)
		if err != nil {
			return err
		}
		if open != nil {
			return utils.ConflictError("user already has an open shift")
		}
		if err := validateEntryLocation(tx, businessId, input.LocationId); err != nil {
			return err
		}

		entry = &TimeEntry{
			BusinessId: businessId,
			UserId:     input.UserId,
			LocationId: input.LocationId,
			ClockInAt:  time.Now().UTC(),
			Notes:      input.Notes,
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ClockOut closes the worker's open shift. NotFound when none is open.
func ClockOut(ctx context.Context, userId int) (*TimeEntry, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	lock := obtainPunchLock(ctx, businessId, userId)
	defer releasePunchLock(ctx, lock)

	var entry *TimeEntry
	err := utils.RunInTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := lockUserRow(tx, businessId, userId); err != nil {
			return err
		}
		open, err := findOpenEntry(tx, businessId, userId)
		if err != nil {
			return err
		}
		if open == nil {
			return utils.NotFoundError("no open shift found")
		}

		now := time.Now().UTC()
		if err := tx.Model(open).Update("ClockOutAt", now).Error; err != nil {
			return err
		}
		open.ClockOutAt = &now
		entry = open
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// TogglePin is the kiosk punch: resolve the PIN to one worker, then clock
// out if a shift is open, otherwise clock in. The open-shift check and the
// write happen in one transaction behind the worker's row lock, so two rapid
// punches with the same PIN cannot double-open or double-close a shift.
//
// PIN resolution runs before the transaction: bcrypt comparisons across the
// candidate set must not hold row locks open. The transaction re-reads the
// worker under FOR UPDATE, so the resolved id only names whose lock to take;
// every open/close decision is made on locked, current state.
func TogglePin(ctx context.Context, input *PinPunchInput) (*PinPunchResult, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	worker, err := ResolveWorkerByPIN(ctx, businessId, input.Pin)
	if err != nil {
		return nil, err
	}

	lock := obtainPunchLock(ctx, businessId, worker.ID)
	defer releasePunchLock(ctx, lock)

	result := &PinPunchResult{WorkerName: worker.Name()}
	err = utils.RunInTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := lockUserRow(tx, businessId, worker.ID); err != nil {
			return err
		}
		open, err := findOpenEntry(tx, businessId, worker.ID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if open != nil {
			if err := tx.Model(open).Update("ClockOutAt", now).Error; err != nil {
				return err
			}
			open.ClockOutAt = &now

			hours := now.Sub(open.ClockInAt).Hours()
			result.Action = ClockActionOut
			result.Entry = open
			result.HoursWorked = &hours
			result.MessageType = ClassifyPunch(hours)
			return nil
		}

		locationId := input.LocationId
		if locationId == 0 {
			locationId = worker.LocationId
		}
		if err := validateEntryLocation(tx, businessId, locationId); err != nil {
			return err
		}

		entry := &TimeEntry{
			BusinessId: businessId,
			UserId:     worker.ID,
			LocationId: locationId,
			ClockInAt:  now,
			Notes:      input.Notes,
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		result.Action = ClockActionIn
		result.Entry = entry
		result.IsInitialClockIn = isFirstEntryOfDay(tx, businessId, worker.ID, entry.ID, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ClassifyPunch names a clock-out for kiosk messaging.
func ClassifyPunch(hoursWorked float64) PunchMessageType {
	if hoursWorked < breakPunchThresholdHours {
		return PunchMessageBreak
	}
	return PunchMessageEndOfDay
}

// isFirstEntryOfDay is best-effort greeting data: any failure (including a
// missing business timezone) reports false and never aborts the clock-in.
func isFirstEntryOfDay(tx *gorm.DB, businessId string, userId int, excludeEntryId int, now time.Time) bool {
	location := time.UTC
	var business Business
	if err := tx.Where("id = ?", businessId).First(&business).Error; err == nil && business.Timezone != "" {
		if loc, err := time.LoadLocation(business.Timezone); err == nil {
			location = loc
		}
	}

	local := now.In(location)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, location)

	var count int64
	err := tx.Model(&TimeEntry{}).
		Where("business_id = ? AND user_id = ? AND id <> ? AND clock_in_at >= ?",
			businessId, userId, excludeEntryId, dayStart.In(time.UTC)).
		Count(&count).Error
	if err != nil {
		config.LogError(config.GetLogger(), "timeEntry.go", "isFirstEntryOfDay", "Count", userId, err)
		return false
	}
	return count == 0
}

type UpdateTimeEntryInput struct {
	ClockInAt  *MyDateString `json:"clock_in_at"`
	ClockOutAt *MyDateString `json:"clock_out_at"`
	LocationId *int          `json:"location_id"`
	Notes      *string       `json:"notes"`
}

// UpdateTimeEntry is the out-of-band admin correction. It still locks the
// worker's row: a correction that reopens an entry must not race a kiosk
// punch into a second open shift.
func UpdateTimeEntry(ctx context.Context, id int, input *UpdateTimeEntryInput) (*TimeEntry, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var entry *TimeEntry
	err := utils.RunInTransaction(ctx, func(tx *gorm.DB) error {
		var existing TimeEntry
		err := tx.Where("business_id = ? AND id = ?", businessId, id).First(&existing).Error
		if err != nil {
			return utils.NotFoundError("time entry not found")
		}
		if _, err := lockUserRow(tx, businessId, existing.UserId); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		clockIn := existing.ClockInAt
		clockOut := existing.ClockOutAt
		if input.ClockInAt != nil {
			clockIn = input.ClockInAt.Time()
			updates["ClockInAt"] = clockIn
		}
		if input.ClockOutAt != nil {
			out := input.ClockOutAt.Time()
			clockOut = &out
			updates["ClockOutAt"] = out
		}
		if clockOut != nil && !clockOut.After(clockIn) {
			return utils.ValidationError("clock-out must be after clock-in")
		}
		if input.LocationId != nil {
			if err := validateEntryLocation(tx, businessId, *input.LocationId); err != nil {
				return err
			}
			updates["LocationId"] = *input.LocationId
		}
		if input.Notes != nil {
			updates["Notes"] = *input.Notes
		}
		if len(updates) == 0 {
			entry = &existing
			return nil
		}

		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return err
		}
		err = tx.Where("business_id = ? AND id = ?", businessId, id).First(&existing).Error
		if err != nil {
			return err
		}
		entry = &existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	WriteAudit(ctx, AuditActionEntryCorrected, "time_entries", id, input, "")
	return entry, nil
}

func DeleteTimeEntry(ctx context.Context, id int) error {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return errors.New("business id is required")
	}

	err := utils.RunInTransaction(ctx, func(tx *gorm.DB) error {
		var existing TimeEntry
		err := tx.Where("business_id = ? AND id = ?", businessId, id).First(&existing).Error
		if err != nil {
			return utils.NotFoundError("time entry not found")
		}
		if _, err := lockUserRow(tx, businessId, existing.UserId); err != nil {
			return err
		}
		return tx.Delete(&existing).Error
	})
	if err != nil {
		return err
	}

	WriteAudit(ctx, AuditActionEntryDeleted, "time_entries", id, nil, "")
	return nil
}

// GetOpenEntry reports the worker's in-progress shift, if any. Reports use
// this for "currently clocked in" display; it never contributes hours.
func GetOpenEntry(ctx context.Context, userId int) (*TimeEntry, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	return findOpenEntry(db.WithContext(ctx), businessId, userId)
}

// FetchEntriesInRange returns the business's entries whose clock-in falls in
// [from, to], optionally narrowed to one location in SQL. When the filtered
// query path fails (e.g. missing index on a large tenant), it falls back to
// the unfiltered range fetch and applies the same predicate in memory; both
// paths produce identical results by construction.
func FetchEntriesInRange(ctx context.Context, businessId string, from, to time.Time, locationId int) ([]*TimeEntry, error) {
	db := config.GetDB()

	if locationId > 0 {
		var entries []*TimeEntry
		err := db.WithContext(ctx).
			Where("business_id = ? AND clock_in_at BETWEEN ? AND ? AND location_id = ?",
				businessId, from, to, locationId).
			Order("clock_in_at ASC").
			Find(&entries).Error
		if err == nil {
			return entries, nil
		}
		config.LogError(config.GetLogger(), "timeEntry.go", "FetchEntriesInRange", "filtered query, falling back", locationId, err)
	}

	var entries []*TimeEntry
	err := db.WithContext(ctx).
		Where("business_id = ? AND clock_in_at BETWEEN ? AND ?", businessId, from, to).
		Order("clock_in_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	if locationId > 0 {
		entries = FilterEntriesByLocation(entries, locationId)
	}
	return entries, nil
}

// FilterEntriesByLocation is the in-memory twin of the SQL location filter.
func FilterEntriesByLocation(entries []*TimeEntry, locationId int) []*TimeEntry {
	filtered := make([]*TimeEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.LocationId == locationId {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}
