package models

import (
	"context"
	"errors"
	"time"

	"github.com/techetime/timeclock_backend/config"
	"github.com/techetime/timeclock_backend/utils"
)

// PayRate is one entry in a worker's append-only rate history. Changing a
// rate appends a new row; existing rows are never mutated, so historical
// reports stay reproducible.
type PayRate struct {
	ID            int       `gorm:"primary_key" json:"id"`
	BusinessId    string    `gorm:"index;not null" json:"business_id"`
	UserId        int       `gorm:"index;not null" json:"user_id"`
	AmountCents   int64     `gorm:"not null" json:"amount_cents"`
	EffectiveDate time.Time `gorm:"not null;index" json:"effective_date"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewPayRate struct {
	AmountCents   int64        `json:"amount_cents" binding:"required"`
	EffectiveDate MyDateString `json:"effective_date" binding:"required"`
}

// ResolveRateAt returns the rate in effect at the given instant: the entry
// with the greatest effective date not after the instant. Ties on effective
// date go to the most recently created row, then the highest id.
//
// No qualifying entry returns ErrNoRateSet. Callers must keep that
// distinguishable from a genuine zero rate all the way to presentation.
// Pure function: no side effects, no clock reads.
func ResolveRateAt(rates []PayRate, at time.Time) (*PayRate, error) {
	var best *PayRate
	for i := range rates {
		rate := &rates[i]
		if rate.EffectiveDate.After(at) {
			continue
		}
		if best == nil {
			best = rate
			continue
		}
		switch {
		case rate.EffectiveDate.After(best.EffectiveDate):
			best = rate
		case rate.EffectiveDate.Equal(best.EffectiveDate):
			if rate.CreatedAt.After(best.CreatedAt) ||
				(rate.CreatedAt.Equal(best.CreatedAt) && rate.ID > best.ID) {
				best = rate
			}
		}
	}
	if best == nil {
		return nil, utils.ErrNoRateSet
	}
	return best, nil
}

// AppendPayRate records a new rate for the worker. History is append-only.
func AppendPayRate(ctx context.Context, userId int, input *NewPayRate) (*PayRate, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if input.AmountCents <= 0 {
		return nil, utils.ValidationError("rate must be positive cents")
	}
	if err := utils.ValidateResourceId[User](ctx, businessId, userId); err != nil {
		return nil, utils.NotFoundError("user not found")
	}

	rate := PayRate{
		BusinessId:    businessId,
		UserId:        userId,
		AmountCents:   input.AmountCents,
		EffectiveDate: input.EffectiveDate.Time(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&rate).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}

func GetPayRates(ctx context.Context, userId int) ([]PayRate, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var rates []PayRate
	err := db.WithContext(ctx).
		Where("business_id = ? AND user_id = ?", businessId, userId).
		Order("effective_date ASC, created_at ASC, id ASC").
		Find(&rates).Error
	if err != nil {
		return nil, err
	}
	return rates, nil
}
