package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	pkgerrors "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/errors"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/pagination"
)

// Service exposes catalog management and browsing operations.
type Service interface {
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error)
	UpdateCategory(ctx context.Context, categoryID uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error)
	DeleteCategory(ctx context.Context, categoryID uuid.UUID) error
	ListCategories(ctx context.Context, includeHidden bool) ([]CategoryDTO, error)

	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	GetProductBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	ListProducts(ctx context.Context, params pagination.Params, filters ProductListFilters) (*ProductListResult, error)
	ListLowStock(ctx context.Context, threshold int) ([]ProductDTO, error)

	AddVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*ProductDTO, error)
	UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, input UpdateVariantInput) (*ProductDTO, error)
	RemoveVariant(ctx context.Context, productID, variantID uuid.UUID) (*ProductDTO, error)
}

// CreateCategoryInput holds the validated payload to create a category.
type CreateCategoryInput struct {
	Name        string
	Description *string
	IsActive    *bool
}

// UpdateCategoryInput holds optional mutation values for a category.
type UpdateCategoryInput struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	CategoryID  uuid.UUID
	SKU         string
	Name        string
	Description *string
	PriceCents  int64
	StockCount  int
	Unit        *string
	ImageURLs   []string
	IsActive    *bool
	IsFeatured  bool
	// TrackInventory defaults to true; nil means tracked.
	TrackInventory *bool
	Variants       []VariantInput
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	CategoryID     *uuid.UUID
	SKU            *string
	Name           *string
	Description    *string
	PriceCents     *int64
	Unit           *string
	ImageURLs      *[]string
	IsActive       *bool
	IsFeatured     *bool
	TrackInventory *bool
}

// VariantInput defines a pack size with its own price and stock.
type VariantInput struct {
	Name       string
	PriceCents int64
	StockCount int
	IsActive   *bool
}

// UpdateVariantInput holds optional mutation values for a variant.
type UpdateVariantInput struct {
	Name       *string
	PriceCents *int64
	IsActive   *bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// service implements the catalog service.
type service struct {
	repo *Repository
	tx   txRunner
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

var slugStripPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a display name to a URL slug.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugStripPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// CreateCategory creates a category with a slug derived from its name.
func (s *service) CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}

	category := &models.Category{
		ID:          uuid.New(),
		Name:        name,
		Slug:        Slugify(name),
		Description: input.Description,
		IsActive:    true,
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}

	created, err := s.repo.CreateCategory(ctx, category)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a category with this name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert category")
	}
	return NewCategoryDTO(created), nil
}

// UpdateCategory applies partial updates to a category. Renaming regenerates
// the slug.
func (s *service) UpdateCategory(ctx context.Context, categoryID uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error) {
	category, err := s.repo.FindCategoryByID(ctx, categoryID)
	if err != nil {
		return nil, notFoundOrDependency(err, "category not found", "db: load category")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name cannot be empty")
		}
		category.Name = name
		category.Slug = Slugify(name)
	}
	if input.Description != nil {
		category.Description = input.Description
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}

	updated, err := s.repo.UpdateCategory(ctx, category)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a category with this name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update category")
	}
	return NewCategoryDTO(updated), nil
}

// DeleteCategory removes an empty category. Categories that still have
// products cannot be deleted.
func (s *service) DeleteCategory(ctx context.Context, categoryID uuid.UUID) error {
	if _, err := s.repo.FindCategoryByID(ctx, categoryID); err != nil {
		return notFoundOrDependency(err, "category not found", "db: load category")
	}

	count, err := s.repo.CountProductsInCategory(ctx, categoryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count category products")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "category still has products")
	}

	if err := s.repo.DeleteCategory(ctx, categoryID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete category")
	}
	return nil
}

// ListCategories returns all categories visible to the caller.
func (s *service) ListCategories(ctx context.Context, includeHidden bool) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx, includeHidden)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewCategoryDTO(&rows[i]))
	}
	return out, nil
}

// CreateProduct creates a product with its variants in one transaction.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindCategoryByID(ctx, input.CategoryID); err != nil {
		return nil, notFoundOrDependency(err, "category not found", "db: load category")
	}

	product := &models.Product{
		ID:             uuid.New(),
		CategoryID:     input.CategoryID,
		SKU:            strings.TrimSpace(input.SKU),
		Name:           strings.TrimSpace(input.Name),
		Slug:           Slugify(input.Name),
		Description:    input.Description,
		PriceCents:     input.PriceCents,
		StockCount:     input.StockCount,
		Unit:           input.Unit,
		ImageURLs:      input.ImageURLs,
		IsActive:       true,
		IsFeatured:     input.IsFeatured,
		TrackInventory: true,
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if input.TrackInventory != nil {
		product.TrackInventory = *input.TrackInventory
	}
	if product.ImageURLs == nil {
		product.ImageURLs = []string{}
	}
	for _, v := range input.Variants {
		variant := models.ProductVariant{
			ID:         uuid.New(),
			Name:       strings.TrimSpace(v.Name),
			PriceCents: v.PriceCents,
			StockCount: v.StockCount,
			IsActive:   true,
		}
		if v.IsActive != nil {
			variant.IsActive = *v.IsActive
		}
		product.Variants = append(product.Variants, variant)
	}

	var createdID uuid.UUID
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.repo.WithTx(tx).CreateProduct(ctx, product)
		if err != nil {
			if isUniqueViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "a product with this SKU or name already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		createdID = created.ID
		return nil
	}); err != nil {
		return nil, err
	}

	return s.GetProduct(ctx, createdID)
}

// UpdateProduct applies partial updates to a product. Stock changes go
// through the inventory ledger, not this path.
func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		return nil, notFoundOrDependency(err, "product not found", "db: load product")
	}

	if input.CategoryID != nil {
		if _, err := s.repo.FindCategoryByID(ctx, *input.CategoryID); err != nil {
			return nil, notFoundOrDependency(err, "category not found", "db: load category")
		}
		product.CategoryID = *input.CategoryID
	}
	if input.SKU != nil {
		sku := strings.TrimSpace(*input.SKU)
		if sku == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku cannot be empty")
		}
		product.SKU = sku
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		product.Name = name
		product.Slug = Slugify(name)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		product.PriceCents = *input.PriceCents
	}
	if input.Unit != nil {
		product.Unit = input.Unit
	}
	if input.ImageURLs != nil {
		product.ImageURLs = *input.ImageURLs
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}
	if input.TrackInventory != nil {
		product.TrackInventory = *input.TrackInventory
	}

	if _, err := s.repo.UpdateProduct(ctx, product); err != nil {
		if isUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a product with this SKU or name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	return s.GetProduct(ctx, productID)
}

// DeleteProduct removes a product and its variants.
func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.repo.FindProductByID(ctx, productID); err != nil {
		return notFoundOrDependency(err, "product not found", "db: load product")
	}
	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}
	return nil
}

// GetProduct fetches a product with its category and variants.
func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		return nil, notFoundOrDependency(err, "product not found", "db: load product")
	}
	return NewProductDTO(product), nil
}

// GetProductBySlug fetches a product by its URL slug.
func (s *service) GetProductBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	product, err := s.repo.FindProductBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, notFoundOrDependency(err, "product not found", "db: load product")
	}
	return NewProductDTO(product), nil
}

// ListProducts returns a cursor page of products for browsing.
func (s *service) ListProducts(ctx context.Context, params pagination.Params, filters ProductListFilters) (*ProductListResult, error) {
	result, err := s.repo.ListProducts(ctx, params, filters)
	if err != nil {
		var typed *pkgerrors.Error
		if errors.As(err, &typed) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}
	return result, nil
}

// ListLowStock flags products running out, for the admin restock view.
func (s *service) ListLowStock(ctx context.Context, threshold int) ([]ProductDTO, error) {
	if threshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold cannot be negative")
	}
	rows, err := s.repo.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list low stock")
	}
	products := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		products = append(products, *NewProductDTO(&rows[i]))
	}
	return products, nil
}

// AddVariant appends a new pack size to an existing product.
func (s *service) AddVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*ProductDTO, error) {
	if err := validateVariantInput(input); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindProductByID(ctx, productID); err != nil {
		return nil, notFoundOrDependency(err, "product not found", "db: load product")
	}

	variant := &models.ProductVariant{
		ID:         uuid.New(),
		ProductID:  productID,
		Name:       strings.TrimSpace(input.Name),
		PriceCents: input.PriceCents,
		StockCount: input.StockCount,
		IsActive:   true,
	}
	if input.IsActive != nil {
		variant.IsActive = *input.IsActive
	}

	if _, err := s.repo.CreateVariant(ctx, variant); err != nil {
		if isUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a variant with this name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert variant")
	}
	return s.GetProduct(ctx, productID)
}

// UpdateVariant applies partial updates to a variant. Stock changes go
// through the inventory ledger.
func (s *service) UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, input UpdateVariantInput) (*ProductDTO, error) {
	variant, err := s.repo.FindVariantByID(ctx, variantID)
	if err != nil {
		return nil, notFoundOrDependency(err, "variant not found", "db: load variant")
	}
	if variant.ProductID != productID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant name cannot be empty")
		}
		variant.Name = name
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		variant.PriceCents = *input.PriceCents
	}
	if input.IsActive != nil {
		variant.IsActive = *input.IsActive
	}

	if _, err := s.repo.UpdateVariant(ctx, variant); err != nil {
		if isUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a variant with this name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update variant")
	}
	return s.GetProduct(ctx, productID)
}

// RemoveVariant deletes a variant from a product.
func (s *service) RemoveVariant(ctx context.Context, productID, variantID uuid.UUID) (*ProductDTO, error) {
	variant, err := s.repo.FindVariantByID(ctx, variantID)
	if err != nil {
		return nil, notFoundOrDependency(err, "variant not found", "db: load variant")
	}
	if variant.ProductID != productID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	if err := s.repo.DeleteVariant(ctx, variantID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete variant")
	}
	return s.GetProduct(ctx, productID)
}

func validateProductInput(input CreateProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if strings.TrimSpace(input.SKU) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if input.CategoryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "category_id is required")
	}
	if input.PriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.StockCount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	seen := make(map[string]struct{}, len(input.Variants))
	for _, v := range input.Variants {
		if err := validateVariantInput(v); err != nil {
			return err
		}
		key := strings.ToLower(strings.TrimSpace(v.Name))
		if _, dup := seen[key]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate variant name: "+v.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func validateVariantInput(input VariantInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant name is required")
	}
	if input.PriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.StockCount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if dbpkg.IsUniqueViolation(err, "") {
		return true
	}
	// sqlite phrasing, used by the in-memory test databases
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFoundOrDependency(err error, notFoundMsg, depMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, depMsg)
}
