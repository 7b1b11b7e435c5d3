package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	dbtypes "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/types"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"
	pkgerrors "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/errors"
)

// Service exposes coupon management and validation.
type Service interface {
	Create(ctx context.Context, input CreateCouponInput) (*CouponDTO, error)
	Update(ctx context.Context, couponID uuid.UUID, input UpdateCouponInput) (*CouponDTO, error)
	Delete(ctx context.Context, couponID uuid.UUID) error
	Get(ctx context.Context, couponID uuid.UUID) (*CouponDTO, error)
	List(ctx context.Context) ([]CouponDTO, error)
	ValidateForCart(ctx context.Context, code string, lines []CartLine) (*ValidationResult, error)
}

// CreateCouponInput holds the validated payload to create a coupon.
type CreateCouponInput struct {
	Code                  string
	Description           *string
	DiscountType          enums.DiscountType
	DiscountValue         decimal.Decimal
	MaxDiscountCents      *int64
	MinPurchaseCents      int64
	UsageLimit            *int
	StartsAt              time.Time
	ExpiresAt             time.Time
	IsActive              *bool
	ApplicableCategoryIDs []uuid.UUID
	ApplicableProductIDs  []uuid.UUID
}

// UpdateCouponInput holds optional mutation values for a coupon.
type UpdateCouponInput struct {
	Description           *string
	DiscountValue         *decimal.Decimal
	MaxDiscountCents      *int64
	MinPurchaseCents      *int64
	UsageLimit            *int
	StartsAt              *time.Time
	ExpiresAt             *time.Time
	IsActive              *bool
	ApplicableCategoryIDs *[]uuid.UUID
	ApplicableProductIDs  *[]uuid.UUID
}

// CouponDTO is the coupon payload returned to admin clients.
type CouponDTO struct {
	ID                    uuid.UUID       `json:"id"`
	Code                  string          `json:"code"`
	Description           *string         `json:"description,omitempty"`
	DiscountType          string          `json:"discount_type"`
	DiscountValue         decimal.Decimal `json:"discount_value"`
	MaxDiscountCents      *int64          `json:"max_discount_cents,omitempty"`
	MinPurchaseCents      int64           `json:"min_purchase_cents"`
	UsageLimit            *int            `json:"usage_limit,omitempty"`
	UsageCount            int             `json:"usage_count"`
	StartsAt              time.Time       `json:"starts_at"`
	ExpiresAt             time.Time       `json:"expires_at"`
	IsActive              bool            `json:"is_active"`
	ApplicableCategoryIDs []uuid.UUID     `json:"applicable_category_ids"`
	ApplicableProductIDs  []uuid.UUID     `json:"applicable_product_ids"`
	CreatedAt             time.Time       `json:"created_at"`
}

// NewCouponDTO builds a DTO from the persisted coupon.
func NewCouponDTO(coupon *models.Coupon) *CouponDTO {
	return &CouponDTO{
		ID:                    coupon.ID,
		Code:                  coupon.Code,
		Description:           coupon.Description,
		DiscountType:          coupon.DiscountType.String(),
		DiscountValue:         coupon.DiscountValue,
		MaxDiscountCents:      coupon.MaxDiscountCents,
		MinPurchaseCents:      coupon.MinPurchaseCents,
		UsageLimit:            coupon.UsageLimit,
		UsageCount:            coupon.UsageCount,
		StartsAt:              coupon.StartsAt,
		ExpiresAt:             coupon.ExpiresAt,
		IsActive:              coupon.IsActive,
		ApplicableCategoryIDs: append([]uuid.UUID{}, coupon.ApplicableCategoryIDs...),
		ApplicableProductIDs:  append([]uuid.UUID{}, coupon.ApplicableProductIDs...),
		CreatedAt:             coupon.CreatedAt,
	}
}

type service struct {
	repo *Repository
	now  func() time.Time
}

// NewService constructs a coupon service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Create registers a new coupon with a normalized uppercase code.
func (s *service) Create(ctx context.Context, input CreateCouponInput) (*CouponDTO, error) {
	code := NormalizeCode(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if !input.DiscountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if input.DiscountValue.IsNegative() || input.DiscountValue.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must be positive")
	}
	if input.DiscountType == enums.DiscountTypePercentage && input.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	if input.MinPurchaseCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum purchase cannot be negative")
	}
	if input.UsageLimit != nil && *input.UsageLimit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage limit must be positive")
	}
	if !input.ExpiresAt.After(input.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiry must be after the start date")
	}

	coupon := &models.Coupon{
		ID:                    uuid.New(),
		Code:                  code,
		Description:           input.Description,
		DiscountType:          input.DiscountType,
		DiscountValue:         input.DiscountValue,
		MaxDiscountCents:      input.MaxDiscountCents,
		MinPurchaseCents:      input.MinPurchaseCents,
		UsageLimit:            input.UsageLimit,
		StartsAt:              input.StartsAt,
		ExpiresAt:             input.ExpiresAt,
		IsActive:              true,
		ApplicableCategoryIDs: dbtypes.UUIDArray(input.ApplicableCategoryIDs),
		ApplicableProductIDs:  dbtypes.UUIDArray(input.ApplicableProductIDs),
	}
	if input.IsActive != nil {
		coupon.IsActive = *input.IsActive
	}
	if coupon.ApplicableCategoryIDs == nil {
		coupon.ApplicableCategoryIDs = dbtypes.UUIDArray{}
	}
	if coupon.ApplicableProductIDs == nil {
		coupon.ApplicableProductIDs = dbtypes.UUIDArray{}
	}

	created, err := s.repo.Create(ctx, coupon)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a coupon with this code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert coupon")
	}
	return NewCouponDTO(created), nil
}

// Update applies partial updates. Codes are immutable once issued so
// redeemed orders keep pointing at the same coupon.
func (s *service) Update(ctx context.Context, couponID uuid.UUID, input UpdateCouponInput) (*CouponDTO, error) {
	coupon, err := s.repo.FindByID(ctx, couponID)
	if err != nil {
		return nil, notFoundOrDependency(err, "coupon not found", "db: load coupon")
	}

	if input.Description != nil {
		coupon.Description = input.Description
	}
	if input.DiscountValue != nil {
		if input.DiscountValue.IsNegative() || input.DiscountValue.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value must be positive")
		}
		if coupon.DiscountType == enums.DiscountTypePercentage && input.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
		}
		coupon.DiscountValue = *input.DiscountValue
	}
	if input.MaxDiscountCents != nil {
		coupon.MaxDiscountCents = input.MaxDiscountCents
	}
	if input.MinPurchaseCents != nil {
		if *input.MinPurchaseCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum purchase cannot be negative")
		}
		coupon.MinPurchaseCents = *input.MinPurchaseCents
	}
	if input.UsageLimit != nil {
		if *input.UsageLimit <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage limit must be positive")
		}
		coupon.UsageLimit = input.UsageLimit
	}
	if input.StartsAt != nil {
		coupon.StartsAt = *input.StartsAt
	}
	if input.ExpiresAt != nil {
		coupon.ExpiresAt = *input.ExpiresAt
	}
	if !coupon.ExpiresAt.After(coupon.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiry must be after the start date")
	}
	if input.IsActive != nil {
		coupon.IsActive = *input.IsActive
	}
	if input.ApplicableCategoryIDs != nil {
		coupon.ApplicableCategoryIDs = dbtypes.UUIDArray(*input.ApplicableCategoryIDs)
	}
	if input.ApplicableProductIDs != nil {
		coupon.ApplicableProductIDs = dbtypes.UUIDArray(*input.ApplicableProductIDs)
	}

	updated, err := s.repo.Update(ctx, coupon)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update coupon")
	}
	return NewCouponDTO(updated), nil
}

// Delete removes a coupon.
func (s *service) Delete(ctx context.Context, couponID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, couponID); err != nil {
		return notFoundOrDependency(err, "coupon not found", "db: load coupon")
	}
	if err := s.repo.Delete(ctx, couponID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete coupon")
	}
	return nil
}

// Get loads a single coupon.
func (s *service) Get(ctx context.Context, couponID uuid.UUID) (*CouponDTO, error) {
	coupon, err := s.repo.FindByID(ctx, couponID)
	if err != nil {
		return nil, notFoundOrDependency(err, "coupon not found", "db: load coupon")
	}
	return NewCouponDTO(coupon), nil
}

// List returns all coupons for the admin panel.
func (s *service) List(ctx context.Context) ([]CouponDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list coupons")
	}
	out := make([]CouponDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewCouponDTO(&rows[i]))
	}
	return out, nil
}

// ValidateForCart resolves a code and runs the rule chain against the cart.
func (s *service) ValidateForCart(ctx context.Context, code string, lines []CartLine) (*ValidationResult, error) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, notFoundOrDependency(err, "invalid coupon code", "db: load coupon")
	}
	return Validate(coupon, lines, s.now())
}

func isUniqueViolation(err error) bool {
	if dbpkg.IsUniqueViolation(err, "") {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFoundOrDependency(err error, notFoundMsg, depMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, depMsg)
}
