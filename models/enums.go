package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

type UserRole string

const (
	UserRoleWorker      UserRole = "WORKER"
	UserRoleManager     UserRole = "MANAGER"
	UserRoleOwner       UserRole = "OWNER"
	UserRoleClientAdmin UserRole = "CLIENT_ADMIN"
	UserRoleSuperadmin  UserRole = "SUPERADMIN"
)

func (t UserRole) Valid() bool {
	switch t {
	case UserRoleWorker, UserRoleManager, UserRoleOwner, UserRoleClientAdmin, UserRoleSuperadmin:
		return true
	}
	return false
}

// CanManage reports whether the role may perform admin actions (manual clock
// corrections, reports, roster management) for its business.
func (t UserRole) CanManage() bool {
	switch t {
	case UserRoleManager, UserRoleOwner, UserRoleClientAdmin, UserRoleSuperadmin:
		return true
	}
	return false
}

func (t *UserRole) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("user role must be string")
	}
	role := UserRole(str)
	if !role.Valid() {
		return fmt.Errorf("invalid user role %q", str)
	}
	*t = role
	return nil
}

type ClockAction string

const (
	ClockActionIn  ClockAction = "clock-in"
	ClockActionOut ClockAction = "clock-out"
)

// PunchMessageType classifies a clock-out punch for kiosk messaging:
// short shifts read as a break, longer ones as end of day.
type PunchMessageType string

const (
	PunchMessageBreak    PunchMessageType = "break"
	PunchMessageEndOfDay PunchMessageType = "end-of-day"
)

type AuditAction string

const (
	AuditActionReportGenerated AuditAction = "payroll_report_generated"
	AuditActionReportExported  AuditAction = "payroll_report_exported"
	AuditActionEntryCorrected  AuditAction = "time_entry_corrected"
	AuditActionEntryDeleted    AuditAction = "time_entry_deleted"
)

type MyDateString time.Time

func (t MyDateString) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(time.Time(t).Format("2006-01-02T15:04:05"))), nil
}

// Accepts "2006-01-02" and "2006-01-02T15:04:05"; the value stays naive until
// StartOfDayUTCTime/EndOfDayUTCTime pin it to the report timezone.
func (t *MyDateString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("date must be string")
	}
	parsed, err := ParseDateString(str)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func ParseDateString(str string) (MyDateString, error) {
	for _, layout := range []string{"2006-01-02", "2006-01-02T15:04:05"} {
		if parsed, err := time.Parse(layout, str); err == nil {
			return MyDateString(parsed), nil
		}
	}
	return MyDateString{}, fmt.Errorf("error parsing date %q", str)
}

func (t *MyDateString) StartOfDayUTCTime(timezone string) error {
	// do nothing if the pointer is nil
	if t == nil {
		return nil
	}

	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "UTC"
	}

	location, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}

	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		0, 0, 0, 0,
		location,
	)

	*t = MyDateString(localTimeInZone.In(time.UTC))

	return nil
}

func (t *MyDateString) EndOfDayUTCTime(timezone string) error {
	// do nothing if the pointer is nil
	if t == nil {
		return nil
	}

	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "UTC"
	}

	location, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}

	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		23, 59, 59, 999000000,
		location,
	)

	*t = MyDateString(localTimeInZone.In(time.UTC))

	return nil
}

func (t MyDateString) Time() time.Time {
	return time.Time(t)
}
