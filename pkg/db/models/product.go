package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product represents a catalog listing. Prices are stored in the minor
// currency unit (paisa). StockCount is the base stock for products without
// variants; variant stock lives on ProductVariant.
type Product struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID  uuid.UUID `gorm:"column:category_id;type:uuid;not null;index"`
	SKU         string    `gorm:"column:sku;not null;uniqueIndex"`
	Name        string    `gorm:"column:name;not null"`
	Slug        string    `gorm:"column:slug;not null;uniqueIndex"`
	Description *string   `gorm:"column:description;type:text"`
	PriceCents  int64     `gorm:"column:price_cents;not null"`
	StockCount  int       `gorm:"column:stock_count;not null;default:0"`
	// TrackInventory false means the product never sells out; the counter
	// still moves so reporting stays truthful. No gorm default tag so an
	// explicit false survives the insert.
	TrackInventory bool             `gorm:"column:track_inventory;not null"`
	Unit           *string          `gorm:"column:unit"`
	ImageURLs      pq.StringArray   `gorm:"column:image_urls;type:text[];not null;default:ARRAY[]::text[]"`
	IsActive       bool             `gorm:"column:is_active;not null;default:true"`
	IsFeatured     bool             `gorm:"column:is_featured;not null;default:false"`
	Category       *Category        `gorm:"foreignKey:CategoryID"`
	Variants       []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// HasVariants reports whether stock and pricing are tracked per variant.
func (p Product) HasVariants() bool {
	return len(p.Variants) > 0
}
