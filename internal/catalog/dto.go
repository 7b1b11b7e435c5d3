package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
)

// CategoryDTO represents a browsable product category.
type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductDTO is the catalog product payload returned to clients.
type ProductDTO struct {
	ID             uuid.UUID    `json:"id"`
	CategoryID     uuid.UUID    `json:"category_id"`
	SKU            string       `json:"sku"`
	Name           string       `json:"name"`
	Slug           string       `json:"slug"`
	Description    *string      `json:"description,omitempty"`
	PriceCents     int64        `json:"price_cents"`
	StockCount     int          `json:"stock_count"`
	TrackInventory bool         `json:"track_inventory"`
	Unit           *string      `json:"unit,omitempty"`
	ImageURLs      []string     `json:"image_urls"`
	IsActive       bool         `json:"is_active"`
	IsFeatured     bool         `json:"is_featured"`
	InStock        bool         `json:"in_stock"`
	Category       *CategoryDTO `json:"category,omitempty"`
	Variants       []VariantDTO `json:"variants,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// VariantDTO carries per-variant pricing and stock.
type VariantDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	StockCount int       `json:"stock_count"`
	IsActive   bool      `json:"is_active"`
}

// ProductListResult is a cursor page of products.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// NewCategoryDTO builds a DTO from the persisted category.
func NewCategoryDTO(category *models.Category) *CategoryDTO {
	return &CategoryDTO{
		ID:          category.ID,
		Name:        category.Name,
		Slug:        category.Slug,
		Description: category.Description,
		IsActive:    category.IsActive,
		CreatedAt:   category.CreatedAt,
		UpdatedAt:   category.UpdatedAt,
	}
}

// NewProductDTO builds a DTO from the persisted model with its preloaded
// category and variants.
func NewProductDTO(product *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:             product.ID,
		CategoryID:     product.CategoryID,
		SKU:            product.SKU,
		Name:           product.Name,
		Slug:           product.Slug,
		Description:    product.Description,
		PriceCents:     product.PriceCents,
		StockCount:     product.StockCount,
		TrackInventory: product.TrackInventory,
		Unit:           product.Unit,
		ImageURLs:      append([]string{}, product.ImageURLs...),
		IsActive:       product.IsActive,
		IsFeatured:     product.IsFeatured,
		CreatedAt:      product.CreatedAt,
		UpdatedAt:      product.UpdatedAt,
	}

	if product.Category != nil {
		dto.Category = NewCategoryDTO(product.Category)
	}

	if len(product.Variants) > 0 {
		dto.Variants = make([]VariantDTO, len(product.Variants))
		inStock := false
		for i, variant := range product.Variants {
			dto.Variants[i] = VariantDTO{
				ID:         variant.ID,
				Name:       variant.Name,
				PriceCents: variant.PriceCents,
				StockCount: variant.StockCount,
				IsActive:   variant.IsActive,
			}
			if variant.IsActive && variant.StockCount > 0 {
				inStock = true
			}
		}
		dto.InStock = inStock
	} else {
		dto.InStock = product.StockCount > 0
	}
	if !product.TrackInventory {
		dto.InStock = true
	}

	return dto
}
