package coupons

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	dbtypes "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/types"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"
	pkgerrors "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/errors"
)

func testCoupon(mutate func(c *models.Coupon)) *models.Coupon {
	coupon := &models.Coupon{
		ID:                    uuid.New(),
		Code:                  "SAVE10",
		DiscountType:          enums.DiscountTypePercentage,
		DiscountValue:         decimal.NewFromInt(10),
		StartsAt:              time.Now().Add(-24 * time.Hour),
		ExpiresAt:             time.Now().Add(24 * time.Hour),
		IsActive:              true,
		ApplicableCategoryIDs: dbtypes.UUIDArray{},
		ApplicableProductIDs:  dbtypes.UUIDArray{},
	}
	if mutate != nil {
		mutate(coupon)
	}
	return coupon
}

func linesTotaling(cents int64) []CartLine {
	return []CartLine{{ProductID: uuid.New(), CategoryID: uuid.New(), LineTotalCents: cents}}
}

func TestValidate_RuleChain(t *testing.T) {
	now := time.Now()

	t.Run("inactive", func(t *testing.T) {
		_, err := Validate(testCoupon(func(c *models.Coupon) { c.IsActive = false }), linesTotaling(100000), now)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("notStartedYet", func(t *testing.T) {
		_, err := Validate(testCoupon(func(c *models.Coupon) { c.StartsAt = now.Add(time.Hour) }), linesTotaling(100000), now)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		_, err := Validate(testCoupon(func(c *models.Coupon) { c.ExpiresAt = now.Add(-time.Hour) }), linesTotaling(100000), now)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict, got %v", err)
		}
	})

	t.Run("usageLimitReached", func(t *testing.T) {
		limit := 5
		_, err := Validate(testCoupon(func(c *models.Coupon) {
			c.UsageLimit = &limit
			c.UsageCount = 5
		}), linesTotaling(100000), now)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict, got %v", err)
		}
	})

	t.Run("belowMinPurchase", func(t *testing.T) {
		_, err := Validate(testCoupon(func(c *models.Coupon) { c.MinPurchaseCents = 150000 }), linesTotaling(100000), now)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict, got %v", err)
		}
		if got := err.Error(); got == "" {
			t.Fatal("expected message naming the threshold")
		}
	})

	t.Run("success", func(t *testing.T) {
		result, err := Validate(testCoupon(nil), linesTotaling(100000), now)
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if result.DiscountCents != 10000 {
			t.Fatalf("expected 10%% of 100000, got %d", result.DiscountCents)
		}
	})
}

func TestValidate_Applicability(t *testing.T) {
	now := time.Now()
	productID := uuid.New()
	categoryID := uuid.New()

	t.Run("productScopeMatch", func(t *testing.T) {
		coupon := testCoupon(func(c *models.Coupon) {
			c.ApplicableProductIDs = dbtypes.UUIDArray{productID}
		})
		lines := []CartLine{
			{ProductID: uuid.New(), CategoryID: uuid.New(), LineTotalCents: 40000},
			{ProductID: productID, CategoryID: uuid.New(), LineTotalCents: 60000},
		}
		result, err := Validate(coupon, lines, now)
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		// percentage applies to the whole cart once any line qualifies
		if result.DiscountCents != 10000 {
			t.Fatalf("expected discount on full cart, got %d", result.DiscountCents)
		}
	})

	t.Run("categoryScopeMatch", func(t *testing.T) {
		coupon := testCoupon(func(c *models.Coupon) {
			c.ApplicableCategoryIDs = dbtypes.UUIDArray{categoryID}
		})
		lines := []CartLine{{ProductID: uuid.New(), CategoryID: categoryID, LineTotalCents: 50000}}
		if _, err := Validate(coupon, lines, now); err != nil {
			t.Fatalf("validate: %v", err)
		}
	})

	t.Run("noMatch", func(t *testing.T) {
		coupon := testCoupon(func(c *models.Coupon) {
			c.ApplicableProductIDs = dbtypes.UUIDArray{uuid.New()}
			c.ApplicableCategoryIDs = dbtypes.UUIDArray{uuid.New()}
		})
		_, err := Validate(coupon, linesTotaling(50000), now)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict, got %v", err)
		}
	})
}

func TestDiscountFor(t *testing.T) {
	t.Run("percentageCapped", func(t *testing.T) {
		cap := int64(5000)
		coupon := testCoupon(func(c *models.Coupon) {
			c.DiscountValue = decimal.NewFromInt(20)
			c.MaxDiscountCents = &cap
		})
		if got := discountFor(coupon, 100000); got != 5000 {
			t.Fatalf("expected cap at 5000, got %d", got)
		}
	})

	t.Run("fixedClampedToCartTotal", func(t *testing.T) {
		coupon := testCoupon(func(c *models.Coupon) {
			c.DiscountType = enums.DiscountTypeFixed
			c.DiscountValue = decimal.NewFromInt(80000)
		})
		if got := discountFor(coupon, 50000); got != 50000 {
			t.Fatalf("expected clamp to cart total, got %d", got)
		}
	})

	t.Run("fractionalPercentageRounds", func(t *testing.T) {
		coupon := testCoupon(func(c *models.Coupon) {
			c.DiscountValue = decimal.RequireFromString("12.5")
		})
		if got := discountFor(coupon, 99900); got != 12488 {
			t.Fatalf("expected 12488, got %d", got)
		}
	})
}
