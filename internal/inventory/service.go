package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"
	pkgerrors "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/errors"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/outbox"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes admin stock adjustments. Checkout and order cancellation
// use the package-level Decrement/Restore helpers inside their own
// transactions.
type Service interface {
	SetStock(ctx context.Context, ref ItemRef, qty int) (*StockDTO, error)
	AddStock(ctx context.Context, ref ItemRef, delta int) (*StockDTO, error)
}

// StockDTO reports the post-adjustment state of a stock row.
type StockDTO struct {
	ProductID   uuid.UUID  `json:"product_id"`
	VariantID   *uuid.UUID `json:"variant_id,omitempty"`
	StockCount  int        `json:"stock_count"`
	BackInStock bool       `json:"back_in_stock"`
}

type service struct {
	tx     txRunner
	outbox outboxPublisher
}

// NewService constructs an inventory service instance.
func NewService(tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{tx: tx, outbox: outboxSvc}, nil
}

// SetStock overwrites a stock row. A row that comes back from empty emits a
// replenishment event so waiting customers get notified.
func (s *service) SetStock(ctx context.Context, ref ItemRef, qty int) (*StockDTO, error) {
	var dto *StockDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		result, err := SetStock(ctx, tx, ref, qty)
		if err != nil {
			return err
		}
		dto = &StockDTO{
			ProductID:   ref.ProductID,
			VariantID:   ref.VariantID,
			StockCount:  result.NewStock,
			BackInStock: result.CrossedZero,
		}
		if result.CrossedZero {
			return s.emitReplenished(ctx, tx, *result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// AddStock applies a signed delta to a stock row. Negative deltas use the
// guarded decrement so stock can never go below zero.
func (s *service) AddStock(ctx context.Context, ref ItemRef, delta int) (*StockDTO, error) {
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta cannot be zero")
	}

	var dto *StockDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if delta < 0 {
			if err := Decrement(ctx, tx, []Line{{Ref: ref, Qty: -delta}}); err != nil {
				return err
			}
			count, err := currentStock(ctx, tx, ref)
			if err != nil {
				return err
			}
			dto = &StockDTO{ProductID: ref.ProductID, VariantID: ref.VariantID, StockCount: count}
			return nil
		}

		results, err := Restore(ctx, tx, []Line{{Ref: ref, Qty: delta}})
		if err != nil {
			return err
		}
		result := results[0]
		dto = &StockDTO{
			ProductID:   ref.ProductID,
			VariantID:   ref.VariantID,
			StockCount:  result.NewStock,
			BackInStock: result.CrossedZero,
		}
		if result.CrossedZero {
			return s.emitReplenished(ctx, tx, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *service) emitReplenished(ctx context.Context, tx *gorm.DB, result Replenishment) error {
	event, err := buildReplenishedEvent(ctx, tx, result)
	if err != nil {
		return err
	}
	if err := s.outbox.Emit(ctx, tx, *event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: emit stock.replenished")
	}
	return nil
}

// buildReplenishedEvent resolves display names for the notification payload.
func buildReplenishedEvent(ctx context.Context, tx *gorm.DB, result Replenishment) (*outbox.DomainEvent, error) {
	var product models.Product
	if err := tx.WithContext(ctx).First(&product, "id = ?", result.Ref.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	payload := payloads.StockReplenishedEvent{
		ProductID:   result.Ref.ProductID,
		VariantID:   result.Ref.VariantID,
		ProductName: product.Name,
		NewStock:    result.NewStock,
		OccurredAt:  time.Now().UTC(),
	}
	if result.Ref.VariantID != nil {
		var variant models.ProductVariant
		if err := tx.WithContext(ctx).First(&variant, "id = ?", *result.Ref.VariantID).Error; err == nil {
			payload.VariantName = &variant.Name
		}
	}

	return &outbox.DomainEvent{
		EventType:     enums.EventStockReplenished,
		AggregateType: enums.AggregateProduct,
		AggregateID:   result.Ref.ProductID,
		Data:          payload,
		Version:       1,
	}, nil
}
