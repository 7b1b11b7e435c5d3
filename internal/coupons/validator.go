package coupons

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"
	pkgerrors "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/errors"
)

// CartLine is the minimal cart view the validator needs: which product the
// line holds, its category, and what it costs.
type CartLine struct {
	ProductID      uuid.UUID
	CategoryID     uuid.UUID
	LineTotalCents int64
}

// ValidationResult reports a successful coupon application.
type ValidationResult struct {
	Coupon        *models.Coupon
	DiscountCents int64
}

// Validate runs the coupon rule chain against a cart snapshot and computes
// the discount. Checks run in a fixed order so the caller always gets the
// most specific failure: window, usage limit, minimum purchase, then
// applicability.
func Validate(coupon *models.Coupon, lines []CartLine, now time.Time) (*ValidationResult, error) {
	if coupon == nil || !coupon.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invalid coupon code")
	}
	if now.Before(coupon.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "this coupon is not active yet")
	}
	if now.After(coupon.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "this coupon has expired")
	}
	if !coupon.HasRemainingUses() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "this coupon has reached its usage limit")
	}

	cartTotal := int64(0)
	for _, line := range lines {
		cartTotal += line.LineTotalCents
	}
	if cartTotal < coupon.MinPurchaseCents {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("minimum purchase of Rs. %d required to use this coupon", coupon.MinPurchaseCents/100))
	}

	if !appliesToCart(coupon, lines) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "this coupon is not applicable to items in your cart")
	}

	discount := discountFor(coupon, cartTotal)
	return &ValidationResult{Coupon: coupon, DiscountCents: discount}, nil
}

// appliesToCart checks the coupon's product/category scopes. Empty scopes
// mean the whole catalog qualifies; otherwise one matching line is enough.
func appliesToCart(coupon *models.Coupon, lines []CartLine) bool {
	if len(coupon.ApplicableProductIDs) == 0 && len(coupon.ApplicableCategoryIDs) == 0 {
		return true
	}

	products := make(map[uuid.UUID]struct{}, len(coupon.ApplicableProductIDs))
	for _, id := range coupon.ApplicableProductIDs {
		products[id] = struct{}{}
	}
	categories := make(map[uuid.UUID]struct{}, len(coupon.ApplicableCategoryIDs))
	for _, id := range coupon.ApplicableCategoryIDs {
		categories[id] = struct{}{}
	}

	for _, line := range lines {
		if _, ok := products[line.ProductID]; ok {
			return true
		}
		if _, ok := categories[line.CategoryID]; ok {
			return true
		}
	}
	return false
}

// discountFor computes the discount in paisa. Percentage coupons apply to
// the whole cart total and respect the per-coupon cap; the result never
// exceeds the cart total.
func discountFor(coupon *models.Coupon, cartTotalCents int64) int64 {
	var discount int64
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		discount = decimal.NewFromInt(cartTotalCents).
			Mul(coupon.DiscountValue).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
		if coupon.MaxDiscountCents != nil && discount > *coupon.MaxDiscountCents {
			discount = *coupon.MaxDiscountCents
		}
	case enums.DiscountTypeFixed:
		discount = coupon.DiscountValue.Round(0).IntPart()
	}

	if discount > cartTotalCents {
		discount = cartTotalCents
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
