package models

import (
	"context"
	"time"

	"github.com/techetime/timeclock_backend/config"
	"github.com/techetime/timeclock_backend/utils"
)

// AuditRecord tracks the payroll-sensitive mutations: report generation and
// export, entry correction, entry deletion. Kiosk punches are not audited
// here, the entries themselves are the record.
type AuditRecord struct {
	ID           int       `gorm:"primary_key" json:"id"`
	BusinessId   string    `gorm:"index;not null" json:"business_id"`
	UserId       int       `gorm:"index" json:"user_id"`
	UserName     string    `json:"user_name"`
	Action       string    `gorm:"index;not null" json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceId   int       `json:"resource_id"`
	ReportId     string    `gorm:"index" json:"report_id"`
	Detail       string    `gorm:"type:text" json:"detail"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// WriteAudit records who did what. Best effort on both sinks: an audit
// failure is logged and swallowed, it never fails the operation it records.
// When an audit topic is configured the record is mirrored to Pub/Sub for
// downstream compliance consumers.
func WriteAudit(ctx context.Context, action AuditAction, resourceType string, resourceId int, detail interface{}, reportId string) {

	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)

	detailJson := ""
	if detail != nil {
		if marshalled, err := utils.MarshalToJSON(detail); err == nil {
			detailJson = marshalled
		}
	}

	record := &AuditRecord{
		BusinessId:   businessId,
		UserId:       userId,
		UserName:     userName,
		Action:       string(action),
		ResourceType: resourceType,
		ResourceId:   resourceId,
		ReportId:     reportId,
		Detail:       detailJson,
	}

	db := config.GetDB()
	if db != nil {
		if err := db.WithContext(ctx).Create(record).Error; err != nil {
			config.LogError(config.GetLogger(), "history.go", "WriteAudit", "Create", action, err)
		}
	}

	payload, err := utils.MarshalToJSON(map[string]interface{}{
		"business_id":   businessId,
		"user_id":       userId,
		"user_name":     userName,
		"action":        string(action),
		"resource_type": resourceType,
		"resource_id":   resourceId,
		"report_id":     reportId,
		"detail":        detailJson,
		"created_at":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		config.LogError(config.GetLogger(), "history.go", "WriteAudit", "MarshalToJSON", action, err)
		return
	}
	config.PublishAudit(ctx, []byte(payload))
}

// GetAuditRecords lists the business's audit trail, newest first.
func GetAuditRecords(ctx context.Context, limit int) ([]*AuditRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ValidationError("business id is required")
	}

	var records []*AuditRecord
	err := config.GetDB().WithContext(ctx).
		Where("business_id = ?", businessId).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
