package restock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
)

// Repository persists back-in-stock subscriptions.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a subscription row.
func (r *Repository) Create(ctx context.Context, sub *models.RestockSubscription) (*models.RestockSubscription, error) {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

// HasPending reports whether an unnotified subscription already exists for
// this subscriber and stock row.
func (r *Repository) HasPending(ctx context.Context, email string, productID uuid.UUID, variantID *uuid.UUID) (bool, error) {
	qb := r.db.WithContext(ctx).
		Model(&models.RestockSubscription{}).
		Where("email = ? AND product_id = ? AND notified_at IS NULL", email, productID)
	qb = scopeVariant(qb, variantID)

	var count int64
	if err := qb.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ClaimPending loads every unnotified subscription for the stock row and
// marks them notified in the same call, so one replenishment serves each
// subscription at most once.
func (r *Repository) ClaimPending(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) ([]models.RestockSubscription, error) {
	var subs []models.RestockSubscription
	qb := r.db.WithContext(ctx).
		Where("product_id = ? AND notified_at IS NULL", productID)
	qb = scopeVariant(qb, variantID)
	if err := qb.Order("created_at ASC").Find(&subs).Error; err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return subs, nil
	}

	ids := make([]uuid.UUID, len(subs))
	for i, sub := range subs {
		ids[i] = sub.ID
	}
	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&models.RestockSubscription{}).
		Where("id IN ? AND notified_at IS NULL", ids).
		Update("notified_at", &now).
		Error
	if err != nil {
		return nil, err
	}
	for i := range subs {
		subs[i].NotifiedAt = &now
	}
	return subs, nil
}

// ListByUser returns the user's subscriptions, pending first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.RestockSubscription, error) {
	var subs []models.RestockSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("notified_at IS NOT NULL").
		Order("created_at DESC").
		Find(&subs).
		Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// Delete removes one subscription owned by the user.
func (r *Repository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.RestockSubscription{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func scopeVariant(qb *gorm.DB, variantID *uuid.UUID) *gorm.DB {
	if variantID != nil {
		return qb.Where("variant_id = ?", *variantID)
	}
	return qb.Where("variant_id IS NULL")
}
