package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one product (optionally a specific variant) in a cart. Items
// with the same product and variant merge into a single line. UnitPriceCents
// is the price observed when the line was last added; checkout re-derives
// prices from the live catalog.
type CartItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID         uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID      *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	Quantity       int             `gorm:"column:quantity;not null"`
	UnitPriceCents int64           `gorm:"column:unit_price_cents;not null"`
	Product        *Product        `gorm:"foreignKey:ProductID"`
	Variant        *ProductVariant `gorm:"foreignKey:VariantID"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
