package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/techetime/timeclock_backend/config"
	"github.com/techetime/timeclock_backend/utils"
	"gorm.io/gorm"
)

// Business is the tenant root. Every other row carries its id; businesses are
// never hard-deleted, only deactivated.
type Business struct {
	ID        string    `gorm:"primary_key;size:64" json:"id"`
	Name      string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Timezone  string    `gorm:"size:50" json:"timezone"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBusiness struct {
	Name          string `json:"name" binding:"required"`
	Timezone      string `json:"timezone"`
	OwnerName     string `json:"owner_name" binding:"required"`
	OwnerEmail    string `json:"owner_email" binding:"required,email"`
	OwnerPassword string `json:"owner_password" binding:"required,min=8"`
}

/*
caches:
	Business:$businessId
*/

func (business Business) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("Business:" + business.ID)
}

// GetBusiness loads the request's business, consulting the redis cache first.
func GetBusiness(ctx context.Context) (*Business, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var business Business
	exists, err := config.GetRedisObject("Business:"+businessId, &business)
	if err == nil && exists {
		return &business, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", businessId).First(&business).Error; err != nil {
		return nil, utils.NotFoundError("business not found")
	}

	if err := config.SetRedisObject("Business:"+businessId, business, 12*time.Hour); err != nil {
		config.LogError(config.GetLogger(), "business.go", "GetBusiness", "SetRedisObject", businessId, err)
	}
	return &business, nil
}

// RegisterBusiness creates the tenant root and its OWNER account in one
// transaction. This is the only operation that runs without a business scope.
func RegisterBusiness(ctx context.Context, input *NewBusiness) (*Business, *User, error) {

	timezone := strings.TrimSpace(input.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, nil, utils.ValidationError("unknown timezone " + timezone)
	}

	passwordHash, err := utils.HashPassword(input.OwnerPassword)
	if err != nil {
		return nil, nil, err
	}

	business := Business{
		ID:       uuid.NewString(),
		Name:     input.Name,
		Timezone: timezone,
		IsActive: utils.NewTrue(),
	}
	email := strings.ToLower(strings.TrimSpace(input.OwnerEmail))
	owner := User{
		BusinessId:   business.ID,
		Role:         UserRoleOwner,
		DisplayName:  input.OwnerName,
		Email:        &email,
		PasswordHash: string(passwordHash),
		IsActive:     utils.NewTrue(),
		PinEnabled:   utils.NewFalse(),
	}

	// registration runs outside any tenant scope
	regCtx := utils.SetSkipTenantScopeInContext(ctx, true)
	err = utils.RunInTransaction(regCtx, func(tx *gorm.DB) error {
		if err := tx.Create(&business).Error; err != nil {
			return err
		}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	owner.PrepareGive()
	return &business, &owner, nil
}
