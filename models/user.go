package models

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/techetime/timeclock_backend/config"
	"github.com/techetime/timeclock_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID         int      `gorm:"primary_key" json:"id"`
	BusinessId string   `gorm:"index;not null" json:"business_id"`
	Role       UserRole `gorm:"size:20;not null;default:WORKER" json:"role"`
	FirstName  string   `gorm:"size:100" json:"first_name"`
	LastName   string   `gorm:"size:100" json:"last_name"`
	// DisplayName falls back to "FirstName LastName" when blank.
	DisplayName string  `gorm:"size:200" json:"display_name"`
	Email       *string `gorm:"size:100;index" json:"email"`
	LocationId  int     `gorm:"index" json:"location_id"`
	// bcrypt digests; plaintext never stored
	PasswordHash string `gorm:"size:255" json:"-"`
	PinHash      string `gorm:"size:255" json:"-"`
	PinEnabled   *bool  `gorm:"not null;default:false" json:"pin_enabled"`
	IsActive     *bool  `gorm:"not null;default:true" json:"is_active"`
	// append-only rate history, newest rows added by AppendPayRate
	PayRates  []PayRate `gorm:"foreignKey:UserId" json:"pay_rates,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Role        UserRole `json:"role" binding:"required"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	DisplayName string   `json:"display_name"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	LocationId  int      `json:"location_id"`
	Pin         string   `json:"pin"`
	// amount in integer cents; 0 means no initial rate
	InitialRateCents int64 `json:"initial_rate_cents"`
}

// UnknownWorkerName is the display fallback for entries whose worker row no
// longer resolves. Display only; hours and pay are never defaulted.
const UnknownWorkerName = "Unknown Worker"

func (result *User) PrepareGive() {
	result.PasswordHash = ""
	result.PinHash = ""
}

func (user *User) Name() string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

/*
caches:
	UserByEmail:$email
*/

func (user User) RemoveInstanceRedis() error {
	if user.Email == nil {
		return nil
	}
	return config.RemoveRedisKey("UserByEmail:" + *user.Email)
}

const (
	PinMinLength = 4
	PinMaxLength = 8
)

// ValidatePinFormat rejects malformed PINs before any hash comparison runs.
func ValidatePinFormat(pin string) error {
	if len(pin) < PinMinLength || len(pin) > PinMaxLength || !utils.IsDigits(pin) {
		return utils.ValidationError("PIN must be 4-8 digits")
	}
	return nil
}

// validate input for both create & update. (id = 0 for create)
func (input *NewUser) validate(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[User](ctx, businessId, id); err != nil {
			return utils.NotFoundError("user not found")
		}
	}
	if !input.Role.Valid() {
		return utils.ValidationError("invalid role")
	}
	input.FirstName = utils.NormalizeSpace(input.FirstName)
	input.LastName = utils.NormalizeSpace(input.LastName)
	input.DisplayName = utils.NormalizeSpace(input.DisplayName)
	// managers and above authenticate by email+password
	if input.Role.CanManage() && strings.TrimSpace(input.Email) == "" {
		return utils.ValidationError("email is required for " + string(input.Role))
	}
	if input.Email != "" {
		if err := utils.ValidateUnique[User](ctx, businessId, "email", strings.ToLower(strings.TrimSpace(input.Email)), id); err != nil {
			return err
		}
	}
	if input.Pin != "" {
		if err := ValidatePinFormat(input.Pin); err != nil {
			return err
		}
	}
	if input.LocationId > 0 {
		if err := utils.ValidateResourceId[Location](ctx, businessId, input.LocationId); err != nil {
			return utils.NotFoundError("location not found")
		}
	}
	if input.InitialRateCents < 0 {
		return utils.ValidationError("rate cannot be negative")
	}
	return nil
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	user := User{
		BusinessId:  businessId,
		Role:        input.Role,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		DisplayName: input.DisplayName,
		LocationId:  input.LocationId,
		IsActive:    utils.NewTrue(),
		PinEnabled:  utils.NewFalse(),
	}
	if email := strings.ToLower(strings.TrimSpace(input.Email)); email != "" {
		user.Email = &email
	}
	if input.Password != "" {
		hash, err := utils.HashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}
	if input.Pin != "" {
		hash, err := utils.HashPin(input.Pin)
		if err != nil {
			return nil, err
		}
		user.PinHash = string(hash)
		user.PinEnabled = utils.NewTrue()
	}

	err := utils.RunInTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if input.InitialRateCents > 0 {
			rate := PayRate{
				BusinessId:    businessId,
				UserId:        user.ID,
				AmountCents:   input.InitialRateCents,
				EffectiveDate: time.Now().UTC(),
			}
			if err := tx.Create(&rate).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	user.PrepareGive()
	return &user, nil
}

type UpdateUserInput struct {
	FirstName   *string   `json:"first_name"`
	LastName    *string   `json:"last_name"`
	DisplayName *string   `json:"display_name"`
	LocationId  *int      `json:"location_id"`
	Role        *UserRole `json:"role"`
	Pin         *string   `json:"pin"`
	PinEnabled  *bool     `json:"pin_enabled"`
	IsActive    *bool     `json:"is_active"`
}

func UpdateUser(ctx context.Context, id int, input *UpdateUserInput) (*User, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	user, err := utils.FetchModel[User](ctx, businessId, id)
	if err != nil {
		return nil, utils.NotFoundError("user not found")
	}

	updates := map[string]interface{}{}
	if input.FirstName != nil {
		updates["FirstName"] = *input.FirstName
	}
	if input.LastName != nil {
		updates["LastName"] = *input.LastName
	}
	if input.DisplayName != nil {
		updates["DisplayName"] = *input.DisplayName
	}
	if input.LocationId != nil {
		if err := utils.ValidateResourceId[Location](ctx, businessId, *input.LocationId); err != nil {
			return nil, utils.NotFoundError("location not found")
		}
		updates["LocationId"] = *input.LocationId
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, utils.ValidationError("invalid role")
		}
		updates["Role"] = *input.Role
	}
	if input.Pin != nil {
		if err := ValidatePinFormat(*input.Pin); err != nil {
			return nil, err
		}
		hash, err := utils.HashPin(*input.Pin)
		if err != nil {
			return nil, err
		}
		updates["PinHash"] = string(hash)
		updates["PinEnabled"] = true
	}
	if input.PinEnabled != nil {
		updates["PinEnabled"] = *input.PinEnabled
	}
	if input.IsActive != nil {
		updates["IsActive"] = *input.IsActive
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(user).
		Where("business_id = ?", businessId).
		Updates(updates).Error
	if err != nil {
		return nil, err
	}

	if err := user.RemoveInstanceRedis(); err != nil {
		config.LogError(config.GetLogger(), "user.go", "UpdateUser", "RemoveInstanceRedis", id, err)
	}

	user, err = utils.FetchModel[User](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	user.PrepareGive()
	return user, nil
}

func GetUsers(ctx context.Context) ([]*User, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	users, err := utils.FetchAllModels[User](ctx, businessId)
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		user.PrepareGive()
	}
	return users, nil
}

// GetWorkersWithRates loads the active worker roster with full pay-rate
// history preloaded, optionally narrowed to one location. Payroll needs
// every active worker, including those with zero entries in the range.
func GetWorkersWithRates(ctx context.Context, businessId string, locationId int) ([]*User, error) {
	db := config.GetDB()
	query := db.WithContext(ctx).
		Preload("PayRates").
		Where("business_id = ? AND role = ? AND is_active = true", businessId, UserRoleWorker)
	if locationId > 0 {
		query = query.Where("location_id = ?", locationId)
	}

	var users []*User
	if err := query.Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetUsersWithRatesByIds loads specific users with pay-rate history,
// including deactivated ones. Reports need this for entries left behind by
// workers removed from the roster mid-range.
func GetUsersWithRatesByIds(ctx context.Context, businessId string, ids []int) ([]*User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []*User
	err := config.GetDB().WithContext(ctx).
		Preload("PayRates").
		Where("business_id = ? AND id IN ?", businessId, ids).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// userCacheEntry carries the credential digests that the User json tags
// deliberately drop; caching the bare struct would strip them.
type userCacheEntry struct {
	User         User   `json:"user"`
	PasswordHash string `json:"password_hash"`
	PinHash      string `json:"pin_hash"`
}

// FindUserByEmail is the login lookup; business scope comes from the matched
// row, not the context (login has no token yet). Redis-cached.
func FindUserByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var entry userCacheEntry
	exists, err := config.GetRedisObject("UserByEmail:"+email, &entry)
	if err == nil && exists {
		entry.User.PasswordHash = entry.PasswordHash
		entry.User.PinHash = entry.PinHash
		return &entry.User, nil
	}

	var user User
	db := config.GetDB()
	skipCtx := utils.SetSkipTenantScopeInContext(ctx, true)
	err = db.WithContext(skipCtx).
		Where("email = ? AND is_active = true", email).
		First(&user).Error
	if err != nil {
		return nil, utils.NotFoundError("user not found")
	}

	entry = userCacheEntry{User: user, PasswordHash: user.PasswordHash, PinHash: user.PinHash}
	if err := config.SetRedisObject("UserByEmail:"+email, entry, time.Hour); err != nil {
		config.LogError(config.GetLogger(), "user.go", "FindUserByEmail", "SetRedisObject", email, err)
	}
	return &user, nil
}

// ResolveWorkerByPIN matches the supplied PIN against every active
// pin-enabled worker of the business. The bcrypt comparisons run in parallel
// so kiosk latency stays roughly flat as the roster grows; candidate order
// (ascending id) makes a hypothetical digest collision resolve
// deterministically to the first match.
func ResolveWorkerByPIN(ctx context.Context, businessId string, pin string) (*User, error) {
	if err := ValidatePinFormat(pin); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var candidates []*User
	err := db.WithContext(ctx).
		Where("business_id = ? AND pin_enabled = true AND is_active = true", businessId).
		Order("id ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	matched := make([]bool, len(candidates))
	var wg sync.WaitGroup
	for i, candidate := range candidates {
		if candidate.PinHash == "" {
			continue
		}
		wg.Add(1)
		go func(i int, hash string) {
			defer wg.Done()
			matched[i] = utils.ComparePin(hash, pin) == nil
		}(i, candidate.PinHash)
	}
	wg.Wait()

	for i, ok := range matched {
		if ok {
			return candidates[i], nil
		}
	}
	return nil, utils.NotFoundError("no worker matches that PIN")
}
