package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/api/responses"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/api/validators"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/catalog"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/inventory"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/config"
	pkgerrors "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/errors"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/logger"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/pagination"
)

// ListProducts serves the public product browse page.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters, err := buildProductFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ProductBySlug serves the public product detail page.
func ProductBySlug(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "slug is required"))
			return
		}

		product, err := svc.GetProductBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ListCategories serves the public category list.
func ListCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		categories, err := svc.ListCategories(r.Context(), false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

type createProductRequest struct {
	CategoryID     uuid.UUID               `json:"category_id" validate:"required"`
	SKU            string                  `json:"sku" validate:"required"`
	Name           string                  `json:"name" validate:"required"`
	Description    *string                 `json:"description,omitempty"`
	PriceCents     int64                   `json:"price_cents" validate:"required,min=1"`
	StockCount     int                     `json:"stock_count" validate:"min=0"`
	Unit           *string                 `json:"unit,omitempty"`
	ImageURLs      []string                `json:"image_urls,omitempty"`
	IsActive       *bool                   `json:"is_active,omitempty"`
	IsFeatured     bool                    `json:"is_featured"`
	TrackInventory *bool                   `json:"track_inventory,omitempty"`
	Variants       []productVariantRequest `json:"variants,omitempty"`
}

type productVariantRequest struct {
	Name       string `json:"name" validate:"required"`
	PriceCents int64  `json:"price_cents" validate:"required,min=1"`
	StockCount int    `json:"stock_count" validate:"min=0"`
	IsActive   *bool  `json:"is_active,omitempty"`
}

type updateProductRequest struct {
	CategoryID     *uuid.UUID `json:"category_id,omitempty"`
	SKU            *string    `json:"sku,omitempty"`
	Name           *string    `json:"name,omitempty"`
	Description    *string    `json:"description,omitempty"`
	PriceCents     *int64     `json:"price_cents,omitempty"`
	Unit           *string    `json:"unit,omitempty"`
	ImageURLs      *[]string  `json:"image_urls,omitempty"`
	IsActive       *bool      `json:"is_active,omitempty"`
	IsFeatured     *bool      `json:"is_featured,omitempty"`
	TrackInventory *bool      `json:"track_inventory,omitempty"`
}

// AdminCreateProduct adds a product (optionally with variants) to the catalog.
func AdminCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var req createProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variants := make([]catalog.VariantInput, 0, len(req.Variants))
		for _, v := range req.Variants {
			variants = append(variants, catalog.VariantInput{
				Name:       v.Name,
				PriceCents: v.PriceCents,
				StockCount: v.StockCount,
				IsActive:   v.IsActive,
			})
		}

		product, err := svc.CreateProduct(r.Context(), catalog.CreateProductInput{
			CategoryID:     req.CategoryID,
			SKU:            req.SKU,
			Name:           req.Name,
			Description:    req.Description,
			PriceCents:     req.PriceCents,
			StockCount:     req.StockCount,
			Unit:           req.Unit,
			ImageURLs:      req.ImageURLs,
			IsActive:       req.IsActive,
			IsFeatured:     req.IsFeatured,
			TrackInventory: req.TrackInventory,
			Variants:       variants,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// AdminUpdateProduct patches product fields.
func AdminUpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := parsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), productID, catalog.UpdateProductInput{
			CategoryID:     req.CategoryID,
			SKU:            req.SKU,
			Name:           req.Name,
			Description:    req.Description,
			PriceCents:     req.PriceCents,
			Unit:           req.Unit,
			ImageURLs:      req.ImageURLs,
			IsActive:       req.IsActive,
			IsFeatured:     req.IsFeatured,
			TrackInventory: req.TrackInventory,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminDeleteProduct removes a product from the catalog.
func AdminDeleteProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := parsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type setStockRequest struct {
	VariantID  *uuid.UUID `json:"variant_id,omitempty"`
	StockCount *int       `json:"stock_count,omitempty"`
	Delta      *int       `json:"delta,omitempty"`
}

// AdminSetStock sets or adjusts stock through the ledger so a zero-to-positive
// transition triggers back-in-stock fanout.
func AdminSetStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		productID, err := parsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req setStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.StockCount == nil && req.Delta == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stock_count or delta is required"))
			return
		}
		if req.StockCount != nil && req.Delta != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stock_count and delta are mutually exclusive"))
			return
		}

		ref := inventory.ItemRef{ProductID: productID, VariantID: req.VariantID}
		var result *inventory.StockDTO
		if req.StockCount != nil {
			result, err = svc.SetStock(r.Context(), ref, *req.StockCount)
		} else {
			result, err = svc.AddStock(r.Context(), ref, *req.Delta)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminLowStock lists products at or below the restock threshold.
func AdminLowStock(svc catalog.Service, cfg config.CatalogConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		threshold, err := validators.ParseQueryInt(r, "threshold", cfg.LowStockThreshold, 0, 100000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products, err := svc.ListLowStock(r.Context(), threshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

type createCategoryRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type updateCategoryRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// AdminListCategories includes hidden categories.
func AdminListCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		categories, err := svc.ListCategories(r.Context(), true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

// AdminCreateCategory adds a catalog category.
func AdminCreateCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var req createCategoryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := svc.CreateCategory(r.Context(), catalog.CreateCategoryInput{
			Name:        req.Name,
			Description: req.Description,
			IsActive:    req.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

// AdminUpdateCategory patches category fields.
func AdminUpdateCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		categoryID, err := parsePathUUID(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateCategoryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := svc.UpdateCategory(r.Context(), categoryID, catalog.UpdateCategoryInput{
			Name:        req.Name,
			Description: req.Description,
			IsActive:    req.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}

// AdminDeleteCategory removes a category with no products.
func AdminDeleteCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		categoryID, err := parsePathUUID(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteCategory(r.Context(), categoryID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type updateVariantRequest struct {
	Name       *string `json:"name,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

// AdminAddVariant attaches a new variant to a product.
func AdminAddVariant(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := parsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req productVariantRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.AddVariant(r.Context(), productID, catalog.VariantInput{
			Name:       req.Name,
			PriceCents: req.PriceCents,
			StockCount: req.StockCount,
			IsActive:   req.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// AdminUpdateVariant patches variant fields.
func AdminUpdateVariant(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := parsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := parsePathUUID(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateVariantRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateVariant(r.Context(), productID, variantID, catalog.UpdateVariantInput{
			Name:       req.Name,
			PriceCents: req.PriceCents,
			IsActive:   req.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminRemoveVariant detaches a variant from a product.
func AdminRemoveVariant(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := parsePathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := parsePathUUID(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.RemoveVariant(r.Context(), productID, variantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func buildProductFilters(r *http.Request) (catalog.ProductListFilters, error) {
	filters := catalog.ProductListFilters{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("category_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category_id")
		}
		filters.CategoryID = &id
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		filters.CategorySlug = &raw
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("featured")); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid featured flag")
		}
		filters.IsFeatured = &featured
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("in_stock")); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid in_stock flag")
		}
		filters.InStock = &inStock
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("price_min")); raw != "" {
		min, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || min < 0 {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid price_min")
		}
		filters.PriceMinCents = &min
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("price_max")); raw != "" {
		max, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || max < 0 {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid price_max")
		}
		filters.PriceMaxCents = &max
	}

	return filters, nil
}
