package models

import (
	"time"

	"github.com/google/uuid"
)

// CartRecord is the single active cart per user. Line prices are snapshots
// from when each item was added; CouponDiscountCents pins the discount that
// was granted when the coupon was applied. Checkout re-derives both.
type CartRecord struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	CouponID            *uuid.UUID `gorm:"column:coupon_id;type:uuid"`
	CouponDiscountCents int64      `gorm:"column:coupon_discount_cents;not null;default:0"`
	Coupon              *Coupon    `gorm:"foreignKey:CouponID"`
	Items               []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
