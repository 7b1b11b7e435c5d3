package restock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	pkgerrors "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/errors"
)

// SubscribeInput registers interest in an out-of-stock product.
type SubscribeInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	UserID    *uuid.UUID
	Email     string
}

// SubscriptionDTO is the client view of a subscription.
type SubscriptionDTO struct {
	ID         uuid.UUID  `json:"id"`
	ProductID  uuid.UUID  `json:"product_id"`
	VariantID  *uuid.UUID `json:"variant_id,omitempty"`
	Email      string     `json:"email"`
	NotifiedAt *time.Time `json:"notified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Service manages back-in-stock subscriptions.
type Service interface {
	Subscribe(ctx context.Context, input SubscribeInput) (*SubscriptionDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]SubscriptionDTO, error)
	Unsubscribe(ctx context.Context, id, userID uuid.UUID) error
}

type service struct {
	repo *Repository
	db   *gorm.DB
}

// NewService builds the restock subscription service. The raw DB handle is
// used for stock reads against the catalog tables.
func NewService(repo *Repository, db *gorm.DB) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("restock repository required")
	}
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	return &service{repo: repo, db: db}, nil
}

// Subscribe registers a notification request. Only rows that are actually
// out of stock accept subscriptions; anything else is a conflict.
func (s *service) Subscribe(ctx context.Context, input SubscribeInput) (*SubscriptionDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	stock, tracked, err := s.stockFor(ctx, input.ProductID, input.VariantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: read stock")
	}
	// An untracked product never runs out, so there is nothing to wait for.
	if stock > 0 || !tracked {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is in stock")
	}

	pending, err := s.repo.HasPending(ctx, email, input.ProductID, input.VariantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check subscription")
	}
	if pending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "you are already subscribed for this product")
	}

	sub := &models.RestockSubscription{
		ID:        uuid.New(),
		ProductID: input.ProductID,
		VariantID: input.VariantID,
		UserID:    input.UserID,
		Email:     email,
	}
	created, err := s.repo.Create(ctx, sub)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create subscription")
	}
	return newDTO(created), nil
}

// ListMine returns the user's subscriptions.
func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]SubscriptionDTO, error) {
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list subscriptions")
	}
	out := make([]SubscriptionDTO, len(subs))
	for i := range subs {
		out[i] = *newDTO(&subs[i])
	}
	return out, nil
}

// Unsubscribe removes the user's subscription.
func (s *service) Unsubscribe(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete subscription")
	}
	return nil
}

func (s *service) stockFor(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int, bool, error) {
	var product models.Product
	err := s.db.WithContext(ctx).
		Select("id", "stock_count", "track_inventory").
		First(&product, "id = ?", productID).
		Error
	if err != nil {
		return 0, false, err
	}

	stock := product.StockCount
	if variantID != nil {
		var stocks []int
		err = s.db.WithContext(ctx).
			Model(&models.ProductVariant{}).
			Where("id = ? AND product_id = ?", *variantID, productID).
			Pluck("stock_count", &stocks).
			Error
		if err != nil {
			return 0, false, err
		}
		if len(stocks) == 0 {
			return 0, false, gorm.ErrRecordNotFound
		}
		stock = stocks[0]
	}
	return stock, product.TrackInventory, nil
}

func newDTO(sub *models.RestockSubscription) *SubscriptionDTO {
	return &SubscriptionDTO{
		ID:         sub.ID,
		ProductID:  sub.ProductID,
		VariantID:  sub.VariantID,
		Email:      sub.Email,
		NotifiedAt: sub.NotifiedAt,
		CreatedAt:  sub.CreatedAt,
	}
}
