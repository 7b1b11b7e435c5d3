package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/types"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"
)

// Coupon is a discount code. DiscountValue is a percentage (0-100) for
// percentage coupons and an amount in paisa for fixed coupons. Empty
// applicability lists mean the coupon applies to the whole catalog.
type Coupon struct {
	ID                    uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code                  string             `gorm:"column:code;type:text;not null;uniqueIndex"`
	Description           *string            `gorm:"column:description;type:text"`
	DiscountType          enums.DiscountType `gorm:"column:discount_type;type:discount_type;not null"`
	DiscountValue         decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MaxDiscountCents      *int64             `gorm:"column:max_discount_cents"`
	MinPurchaseCents      int64              `gorm:"column:min_purchase_cents;not null;default:0"`
	UsageLimit            *int               `gorm:"column:usage_limit"`
	UsageCount            int                `gorm:"column:usage_count;not null;default:0"`
	StartsAt              time.Time          `gorm:"column:starts_at;not null"`
	ExpiresAt             time.Time          `gorm:"column:expires_at;not null"`
	IsActive              bool               `gorm:"column:is_active;not null;default:true"`
	ApplicableCategoryIDs dbtypes.UUIDArray  `gorm:"column:applicable_category_ids;type:uuid[];not null"`
	ApplicableProductIDs  dbtypes.UUIDArray  `gorm:"column:applicable_product_ids;type:uuid[];not null"`
	CreatedAt             time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// HasRemainingUses reports whether the usage limit still has headroom.
// Coupons without a limit always have headroom.
func (c Coupon) HasRemainingUses() bool {
	if c.UsageLimit == nil {
		return true
	}
	return c.UsageCount < *c.UsageLimit
}
