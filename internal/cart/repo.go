package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
)

// Repository wires cart persistence helpers. One cart per user.
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

// GetOrCreateByUser loads the user's cart with items, products, variants and
// the applied coupon, creating an empty cart on first touch.
func (r *Repository) GetOrCreateByUser(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	cart, err := r.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	record := &models.CartRecord{ID: uuid.New(), UserID: userID}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	record.Items = []models.CartItem{}
	return record, nil
}

// FindByUser loads the user's cart with all read-path preloads.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	var record models.CartRecord
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Items.Product").
		Preload("Items.Product.Variants").
		Preload("Items.Variant").
		Preload("Coupon").
		First(&record, "user_id = ?", userID).
		Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindItem loads one line of a cart.
func (r *Repository) FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		First(&item, "id = ? AND cart_id = ?", itemID, cartID).
		Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// findMergeTarget returns an existing line for the same product and variant,
// or nil when the addition starts a new line.
func (r *Repository) findMergeTarget(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartItem, error) {
	qb := r.db.WithContext(ctx).Where("cart_id = ? AND product_id = ?", cartID, productID)
	if variantID != nil {
		qb = qb.Where("variant_id = ?", *variantID)
	} else {
		qb = qb.Where("variant_id IS NULL")
	}

	var item models.CartItem
	if err := qb.First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// AddItem merges the quantity into an existing line for the same product and
// variant, or appends a new line. unitPriceCents is the catalog price at add
// time; a merge refreshes the snapshot to the latest observed price.
func (r *Repository) AddItem(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID, quantity int, unitPriceCents int64) error {
	existing, err := r.findMergeTarget(ctx, cartID, productID, variantID)
	if err != nil {
		return err
	}
	if existing != nil {
		return r.db.WithContext(ctx).
			Model(&models.CartItem{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"quantity":         gorm.Expr("quantity + ?", quantity),
				"unit_price_cents": unitPriceCents,
			}).
			Error
	}

	item := &models.CartItem{
		ID:             uuid.New(),
		CartID:         cartID,
		ProductID:      productID,
		VariantID:      variantID,
		Quantity:       quantity,
		UnitPriceCents: unitPriceCents,
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// SetItemQuantity overwrites one line's quantity. Zero or negative removes
// the line.
func (r *Repository) SetItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return r.RemoveItem(ctx, cartID, itemID)
	}
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Update("quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RemoveItem deletes one line from the cart.
func (r *Repository) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearItems empties the cart and detaches any coupon.
func (r *Repository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("id = ?", cartID).
		Updates(map[string]any{"coupon_id": nil, "coupon_discount_cents": 0}).
		Error
}

// SetCoupon attaches or detaches (nil) a coupon on the cart, pinning the
// discount granted at apply time.
func (r *Repository) SetCoupon(ctx context.Context, cartID uuid.UUID, couponID *uuid.UUID, discountCents int64) error {
	if couponID == nil {
		discountCents = 0
	}
	return r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("id = ?", cartID).
		Updates(map[string]any{"coupon_id": couponID, "coupon_discount_cents": discountCents}).
		Error
}
