package models

import "github.com/techetime/timeclock_backend/config"

func MigrateTables() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&Business{},
		&Location{},
		&User{},
		&PayRate{},
		&TimeEntry{},
		&AuditRecord{},
	)
}
