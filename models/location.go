package models

import (
	"context"
	"errors"
	"time"

	"github.com/techetime/timeclock_backend/config"
	"github.com/techetime/timeclock_backend/utils"
)

// UnknownLocationName is the display fallback when a referenced location
// no longer resolves. Reports must render, not fail, on a dangling id.
const UnknownLocationName = "Unknown Location"

// Location is a worksite. TimeEntries and Users reference it by id (weak
// reference); deactivation is soft via IsActive.
type Location struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Address    string    `gorm:"type:text" json:"address"`
	Timezone   string    `gorm:"size:50" json:"timezone"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewLocation struct {
	Name     string `json:"name" binding:"required"`
	Address  string `json:"address"`
	Timezone string `json:"timezone"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewLocation) validate(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Location](ctx, businessId, id); err != nil {
			return utils.NotFoundError("location not found")
		}
	}
	input.Name = utils.NormalizeSpace(input.Name)
	if input.Name == "" {
		return utils.ValidationError("name is required")
	}
	if err := utils.ValidateUnique[Location](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if input.Timezone != "" {
		if _, err := time.LoadLocation(input.Timezone); err != nil {
			return utils.ValidationError("unknown timezone " + input.Timezone)
		}
	}
	return nil
}

func CreateLocation(ctx context.Context, input *NewLocation) (*Location, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	location := Location{
		BusinessId: businessId,
		Name:       input.Name,
		Address:    input.Address,
		Timezone:   input.Timezone,
		IsActive:   utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&location).Error; err != nil {
		return nil, err
	}

	return &location, nil
}

func UpdateLocation(ctx context.Context, id int, input *NewLocation) (*Location, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	update := Location{ID: id, BusinessId: businessId}
	err := db.WithContext(ctx).Model(&update).
		Where("business_id = ?", businessId).
		Updates(map[string]interface{}{
			"Name":     input.Name,
			"Address":  input.Address,
			"Timezone": input.Timezone,
		}).Error
	if err != nil {
		return nil, err
	}

	return utils.FetchModel[Location](ctx, businessId, id)
}

// DeactivateLocation soft-deletes: historical time entries keep pointing at it.
func DeactivateLocation(ctx context.Context, id int) (*Location, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	location, err := utils.FetchModel[Location](ctx, businessId, id)
	if err != nil {
		return nil, utils.NotFoundError("location not found")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(location).
		Where("business_id = ?", businessId).
		Update("IsActive", false).Error
	if err != nil {
		return nil, err
	}
	location.IsActive = utils.NewFalse()
	return location, nil
}

func GetLocations(ctx context.Context) ([]*Location, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchAllModels[Location](ctx, businessId)
}

// GetLocationNames batch-resolves location ids to names in one query.
// Missing ids are simply absent from the map; callers degrade the display
// field, never the numbers.
func GetLocationNames(ctx context.Context, businessId string, ids []int) (map[int]string, error) {
	ids = utils.UniqueSlice(ids)
	if len(ids) == 0 {
		return map[int]string{}, nil
	}

	locations, err := utils.FetchModelsWhere[Location](ctx, businessId, "id IN ?", ids)
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(locations))
	for _, location := range locations {
		names[location.ID] = location.Name
	}
	return names, nil
}
