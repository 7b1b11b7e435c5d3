package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/coupons"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	pkgerrors "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/errors"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/pricing"
)

type couponValidator interface {
	ValidateForCart(ctx context.Context, code string, lines []coupons.CartLine) (*coupons.ValidationResult, error)
}

// Service exposes the per-user cart operations.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartView, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartView, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartView, error)
	ClearCart(ctx context.Context, userID uuid.UUID) (*CartView, error)
	ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*CartView, error)
	RemoveCoupon(ctx context.Context, userID uuid.UUID) (*CartView, error)
	PreviewCoupon(ctx context.Context, userID uuid.UUID, code string) (*AppliedCoupon, error)
}

// AddItemInput adds a quantity of one product (or variant) to the cart.
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// CartView is the cart returned to clients. Line prices are the snapshots
// taken when each item was added; checkout re-derives everything from the
// live catalog before an order is placed.
type CartView struct {
	ID       uuid.UUID      `json:"id"`
	Items    []CartItemView `json:"items"`
	Coupon   *AppliedCoupon `json:"coupon,omitempty"`
	Subtotal int64          `json:"subtotal_cents"`
	Discount int64          `json:"discount_cents"`
	Delivery int64          `json:"delivery_fee_cents"`
	Total    int64          `json:"total_cents"`
	Warnings []string       `json:"warnings,omitempty"`
}

// CartItemView is one priced cart line.
type CartItemView struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	Name           string     `json:"name"`
	VariantName    *string    `json:"variant_name,omitempty"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	Quantity       int        `json:"quantity"`
	LineTotalCents int64      `json:"line_total_cents"`
	InStock        bool       `json:"in_stock"`
}

// AppliedCoupon shows coupon state on the cart view.
type AppliedCoupon struct {
	Code          string `json:"code"`
	DiscountCents int64  `json:"discount_cents"`
}

type service struct {
	repo       *Repository
	validator  couponValidator
	pricingCfg pricing.Config
	now        func() time.Time
}

// NewService constructs a cart service instance.
func NewService(repo *Repository, validator couponValidator, pricingCfg pricing.Config) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if validator == nil {
		return nil, fmt.Errorf("coupon validator required")
	}
	return &service{repo: repo, validator: validator, pricingCfg: pricingCfg, now: time.Now}, nil
}

// GetCart returns the user's cart, creating it on first touch.
func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	record, err := s.repo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	return s.buildView(ctx, record)
}

// AddItem validates the product line and merges it into the cart.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartView, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}

	record, err := s.repo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}

	product, variant, err := s.loadSellable(ctx, input.ProductID, input.VariantID)
	if err != nil {
		return nil, err
	}

	stock := 0
	if variant != nil {
		stock = variant.StockCount
	} else {
		stock = product.StockCount
	}
	// Untracked products never sell out.
	if product.TrackInventory && stock < input.Quantity {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "not enough stock for the requested quantity")
	}

	unitPrice := product.PriceCents
	if variant != nil {
		unitPrice = variant.PriceCents
	}
	if err := s.repo.AddItem(ctx, record.ID, input.ProductID, input.VariantID, input.Quantity, unitPrice); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: add cart item")
	}
	return s.reload(ctx, userID)
}

// UpdateItemQuantity overwrites a line's quantity; zero removes the line.
func (s *service) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartView, error) {
	record, err := s.repo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}

	if err := s.repo.SetItemQuantity(ctx, record.ID, itemID, quantity); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update cart item")
	}
	return s.reload(ctx, userID)
}

// RemoveItem deletes a line from the cart.
func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartView, error) {
	record, err := s.repo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}

	if err := s.repo.RemoveItem(ctx, record.ID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: remove cart item")
	}
	return s.reload(ctx, userID)
}

// ClearCart empties the cart and drops any applied coupon.
func (s *service) ClearCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	record, err := s.repo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	if err := s.repo.ClearItems(ctx, record.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
	}
	return s.reload(ctx, userID)
}

// ApplyCoupon validates the code against the current cart and pins it.
func (s *service) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*CartView, error) {
	record, err := s.repo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot apply a coupon to an empty cart")
	}

	lines, _ := s.priceLines(record)
	result, err := s.validator.ValidateForCart(ctx, code, couponLines(record, lines))
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetCoupon(ctx, record.ID, &result.Coupon.ID, result.DiscountCents); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: apply coupon")
	}
	return s.reload(ctx, userID)
}

// PreviewCoupon validates a code against the current cart without
// attaching it, so clients can show the discount before applying.
func (s *service) PreviewCoupon(ctx context.Context, userID uuid.UUID, code string) (*AppliedCoupon, error) {
	record, err := s.repo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot validate a coupon against an empty cart")
	}

	lines, _ := s.priceLines(record)
	result, err := s.validator.ValidateForCart(ctx, code, couponLines(record, lines))
	if err != nil {
		return nil, err
	}
	return &AppliedCoupon{Code: result.Coupon.Code, DiscountCents: result.DiscountCents}, nil
}

// RemoveCoupon detaches the coupon from the cart.
func (s *service) RemoveCoupon(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	record, err := s.repo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
	}
	if err := s.repo.SetCoupon(ctx, record.ID, nil, 0); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: remove coupon")
	}
	return s.reload(ctx, userID)
}

func (s *service) reload(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	record, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload cart")
	}
	return s.buildView(ctx, record)
}

// loadSellable checks the product (and variant, when given) exists and is
// purchasable.
func (s *service) loadSellable(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*models.Product, *models.ProductVariant, error) {
	var product models.Product
	err := s.repo.db.WithContext(ctx).
		Preload("Variants").
		First(&product, "id = ?", productID).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if !product.IsActive {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "this product is no longer available")
	}

	if variantID == nil {
		if product.HasVariants() {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "a variant must be selected for this product")
		}
		return &product, nil, nil
	}

	for i := range product.Variants {
		if product.Variants[i].ID == *variantID {
			if !product.Variants[i].IsActive {
				return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "this variant is no longer available")
			}
			return &product, &product.Variants[i], nil
		}
	}
	return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
}

// priceLines builds the view for every cart line from the stored price
// snapshots. Lines whose product disappeared or was deactivated surface as
// warnings instead of failing the whole view.
func (s *service) priceLines(record *models.CartRecord) ([]CartItemView, []string) {
	views := make([]CartItemView, 0, len(record.Items))
	var warnings []string

	for _, item := range record.Items {
		if item.Product == nil || !item.Product.IsActive {
			warnings = append(warnings, fmt.Sprintf("item %s is no longer available", item.ID))
			continue
		}

		view := CartItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Product.Name,
			Quantity:  item.Quantity,
		}

		if item.VariantID != nil {
			if item.Variant == nil || !item.Variant.IsActive {
				warnings = append(warnings, fmt.Sprintf("item %s is no longer available", item.ID))
				continue
			}
			view.VariantName = &item.Variant.Name
			view.InStock = item.Variant.StockCount >= item.Quantity
		} else {
			view.InStock = item.Product.StockCount >= item.Quantity
		}
		view.UnitPriceCents = item.UnitPriceCents
		if !item.Product.TrackInventory {
			view.InStock = true
		}

		view.LineTotalCents = view.UnitPriceCents * int64(item.Quantity)
		if !view.InStock {
			warnings = append(warnings, fmt.Sprintf("only limited stock left for %s", view.Name))
		}
		views = append(views, view)
	}
	return views, warnings
}

// buildView prices the cart and previews the checkout quote. An applied
// coupon that stopped validating is silently dropped from the preview.
func (s *service) buildView(ctx context.Context, record *models.CartRecord) (*CartView, error) {
	items, warnings := s.priceLines(record)

	priceLines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		priceLines = append(priceLines, pricing.Line{UnitPriceCents: item.UnitPriceCents, Quantity: item.Quantity})
	}

	var applied *AppliedCoupon
	discount := int64(0)
	if record.Coupon != nil && len(items) > 0 {
		// The pinned discount from apply time is what the view shows; the
		// revalidation only decides whether it still holds at all.
		if _, err := coupons.Validate(record.Coupon, couponLines(record, items), s.now()); err == nil {
			discount = record.CouponDiscountCents
			applied = &AppliedCoupon{Code: record.Coupon.Code, DiscountCents: discount}
		} else {
			warnings = append(warnings, "the applied coupon is no longer valid")
		}
	}

	quote := pricing.QuoteOrder(priceLines, discount, s.pricingCfg, nil)

	view := &CartView{
		ID:       record.ID,
		Items:    items,
		Coupon:   applied,
		Subtotal: quote.SubtotalCents,
		Discount: quote.DiscountCents,
		Delivery: quote.DeliveryFeeCents,
		Total:    quote.TotalCents,
		Warnings: warnings,
	}
	if len(items) == 0 {
		// empty carts carry no delivery fee or surcharge preview
		view.Delivery = 0
		view.Total = 0
	}
	return view, nil
}

// couponLines converts priced views into the validator's cart shape.
func couponLines(record *models.CartRecord, items []CartItemView) []coupons.CartLine {
	byID := make(map[uuid.UUID]models.CartItem, len(record.Items))
	for _, item := range record.Items {
		byID[item.ID] = item
	}

	lines := make([]coupons.CartLine, 0, len(items))
	for _, item := range items {
		categoryID := uuid.Nil
		if source, ok := byID[item.ID]; ok && source.Product != nil {
			categoryID = source.Product.CategoryID
		}
		lines = append(lines, coupons.CartLine{
			ProductID:      item.ProductID,
			CategoryID:     categoryID,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return lines
}
