package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/pagination"
)

// ProductListFilters narrows the public product listing.
type ProductListFilters struct {
	CategoryID    *uuid.UUID
	CategorySlug  *string
	IsFeatured    *bool
	PriceMinCents *int64
	PriceMaxCents *int64
	InStock       *bool
	Query         string
	IncludeHidden bool
}

// Repository wires together catalog persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateCategory inserts a new category row.
func (r *Repository) CreateCategory(ctx context.Context, category *models.Category) (*models.Category, error) {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory updates an existing category row.
func (r *Repository) UpdateCategory(ctx context.Context, category *models.Category) (*models.Category, error) {
	if err := r.db.WithContext(ctx).Save(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

// FindCategoryByID loads a single category.
func (r *Repository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// FindCategoryBySlug loads a category by its URL slug.
func (r *Repository) FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// ListCategories returns categories ordered by name. Inactive categories are
// included only when includeHidden is set.
func (r *Repository) ListCategories(ctx context.Context, includeHidden bool) ([]models.Category, error) {
	qb := r.db.WithContext(ctx).Order("name ASC")
	if !includeHidden {
		qb = qb.Where("is_active = ?", true)
	}
	var rows []models.Category
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteCategory removes a category by ID.
func (r *Repository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Category{}).Error
}

// CountProductsInCategory reports how many products reference the category.
func (r *Repository) CountProductsInCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("category_id = ?", categoryID).
		Count(&count).
		Error
	return count, err
}

// CreateProduct inserts a new product row with its variants.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct updates an existing product row without touching variants.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Omit("Variants", "Category").Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes a product by ID; variants cascade.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// FindProductByID loads a product with its category and variants.
func (r *Repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("price_cents ASC")
		}).
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductBySlug loads a product by slug with its category and variants.
func (r *Repository) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("price_cents ASC")
		}).
		First(&product, "slug = ?", slug).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListLowStock returns active products whose own stock, or any active
// variant's stock, has fallen to the threshold or below.
func (r *Repository) ListLowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("stock_count ASC")
		}).
		Where("products.is_active = ?", true).
		Where("(products.stock_count <= ? OR EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = products.id AND v.is_active AND v.stock_count <= ?))", threshold, threshold).
		Order("products.stock_count ASC").
		Find(&rows).
		Error
	return rows, err
}

// FindProductsByIDs loads products (with variants) for the given IDs.
func (r *Repository) FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("id IN ?", ids).
		Find(&rows).
		Error
	return rows, err
}

// ListProducts returns a cursor page of products matching the filters.
func (r *Repository) ListProducts(ctx context.Context, params pagination.Params, filters ProductListFilters) (*ProductListResult, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("price_cents ASC")
		})

	if !filters.IncludeHidden {
		qb = qb.Where("products.is_active = ?", true)
	}
	if filters.CategoryID != nil {
		qb = qb.Where("products.category_id = ?", *filters.CategoryID)
	}
	if filters.CategorySlug != nil {
		qb = qb.Where("products.category_id IN (SELECT id FROM categories WHERE slug = ?)", *filters.CategorySlug)
	}
	if filters.IsFeatured != nil {
		qb = qb.Where("products.is_featured = ?", *filters.IsFeatured)
	}
	if filters.PriceMinCents != nil {
		qb = qb.Where("products.price_cents >= ?", *filters.PriceMinCents)
	}
	if filters.PriceMaxCents != nil {
		qb = qb.Where("products.price_cents <= ?", *filters.PriceMaxCents)
	}
	if filters.InStock != nil && *filters.InStock {
		qb = qb.Where("(products.stock_count > 0 OR NOT products.track_inventory OR EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = products.id AND v.is_active AND v.stock_count > 0))")
	}
	if search := strings.TrimSpace(filters.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(products.name) LIKE ? OR LOWER(products.sku) LIKE ?)", pattern, pattern)
	}

	if cursor != nil {
		qb = qb.Where("(products.created_at < ?) OR (products.created_at = ? AND products.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var records []models.Product
	err = qb.Order("products.created_at DESC").
		Order("products.id DESC").
		Limit(limitWithBuffer).
		Find(&records).
		Error
	if err != nil {
		return nil, err
	}

	resultRows := records
	nextCursor := ""
	if len(records) > pageSize {
		resultRows = records[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	products := make([]ProductDTO, 0, len(resultRows))
	for i := range resultRows {
		products = append(products, *NewProductDTO(&resultRows[i]))
	}

	return &ProductListResult{
		Products:   products,
		NextCursor: nextCursor,
	}, nil
}

// CreateVariant inserts a variant row for an existing product.
func (r *Repository) CreateVariant(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error) {
	if err := r.db.WithContext(ctx).Create(variant).Error; err != nil {
		return nil, err
	}
	return variant, nil
}

// UpdateVariant updates an existing variant row.
func (r *Repository) UpdateVariant(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error) {
	if err := r.db.WithContext(ctx).Save(variant).Error; err != nil {
		return nil, err
	}
	return variant, nil
}

// FindVariantByID loads a single variant.
func (r *Repository) FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// DeleteVariant removes a variant by ID.
func (r *Repository) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ProductVariant{}).Error
}
