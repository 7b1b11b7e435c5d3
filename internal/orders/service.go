package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/inventory"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"
	pkgerrors "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/errors"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/outbox"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/outbox/payloads"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/pagination"
)

// Requester identifies who is asking: customers only see their own orders.
type Requester struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// CancelInput carries a cancellation request.
type CancelInput struct {
	OrderID uuid.UUID
	Actor   enums.CancelActor
	Reason  string
}

// Service exposes order lifecycle operations after checkout.
type Service interface {
	GetByID(ctx context.Context, requester Requester, orderID uuid.UUID) (*OrderDTO, error)
	GetByNumber(ctx context.Context, requester Requester, orderNumber string) (*OrderDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderListDTO, error)
	ListAll(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderListDTO, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error)
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, to enums.PaymentStatus) (*OrderDTO, error)
	Cancel(ctx context.Context, requester Requester, input CancelInput) (*OrderDTO, error)
	Stats(ctx context.Context, period StatsPeriod) (*StatsDTO, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	users   userLoader
	metrics orderMetrics
	now     func() time.Time
}

// NewService constructs an order service instance.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher, users userLoader, metrics orderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if metrics == nil {
		return nil, fmt.Errorf("order metrics required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  publisher,
		users:   users,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

// GetByID loads one order, enforcing ownership for customers.
func (s *service) GetByID(ctx context.Context, requester Requester, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOrDependency(err, "order not found", "db: load order")
	}
	if err := authorize(requester, order); err != nil {
		return nil, err
	}
	return NewOrderDTO(order), nil
}

// GetByNumber loads one order by its customer-facing number.
func (s *service) GetByNumber(ctx context.Context, requester Requester, orderNumber string) (*OrderDTO, error) {
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, notFoundOrDependency(err, "order not found", "db: load order")
	}
	if err := authorize(requester, order); err != nil {
		return nil, err
	}
	return NewOrderDTO(order), nil
}

// ListMine returns the requesting user's orders.
func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderListDTO, error) {
	list, err := s.repo.ListByUser(ctx, userID, params, filters)
	if err != nil {
		return nil, wrapListErr(err)
	}
	return toListDTO(list), nil
}

// ListAll returns all orders for the admin panel.
func (s *service) ListAll(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderListDTO, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, wrapListErr(err)
	}
	return toListDTO(list), nil
}

// UpdateStatusInput carries the admin's status change along with optional
// fulfillment details.
type UpdateStatusInput struct {
	To                enums.OrderStatus
	Notes             *string
	TrackingNumber    *string
	EstimatedDelivery *time.Time
}

// UpdateStatus advances an order through the fulfillment machine. Returned
// orders put their stock back on the shelf.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	to := input.To
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if to == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "use the cancel operation to cancel an order")
	}

	var dto *OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return notFoundOrDependency(err, "order not found", "db: load order")
		}
		if !CanTransition(order.Status, to) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, to))
		}

		updates := map[string]any{"status": to}
		if input.Notes != nil {
			updates["notes"] = *input.Notes
		}
		if input.TrackingNumber != nil {
			updates["tracking_number"] = *input.TrackingNumber
		}
		if input.EstimatedDelivery != nil {
			updates["estimated_delivery"] = *input.EstimatedDelivery
		}
		if to == enums.OrderStatusDelivered {
			now := s.now()
			updates["delivered_at"] = &now
		}
		if err := repo.UpdateStatus(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order status")
		}

		if to == enums.OrderStatusReturned {
			if err := s.restoreOrderStock(ctx, tx, order); err != nil {
				return err
			}
		}

		if err := s.emitStatusChanged(ctx, tx, order, to, nil, ""); err != nil {
			return err
		}

		updated, err := repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload order")
		}
		dto = NewOrderDTO(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// UpdatePaymentStatus sets the settlement state. It is orthogonal to the
// fulfillment machine.
func (s *service) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, to enums.PaymentStatus) (*OrderDTO, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	if err := s.repo.UpdateStatus(ctx, orderID, map[string]any{"payment_status": to}); err != nil {
		return nil, notFoundOrDependency(err, "order not found", "db: update payment status")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOrDependency(err, "order not found", "db: load order")
	}
	return NewOrderDTO(order), nil
}

// Cancel aborts an order that has not shipped. Stock goes back on the shelf
// inside the same transaction and customers are notified through the outbox.
func (s *service) Cancel(ctx context.Context, requester Requester, input CancelInput) (*OrderDTO, error) {
	if !input.Actor.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cancel actor")
	}

	var dto *OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return notFoundOrDependency(err, "order not found", "db: load order")
		}
		if err := authorize(requester, order); err != nil {
			return err
		}
		if !order.Status.IsCancellable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("orders in status %s cannot be cancelled", order.Status))
		}

		now := s.now()
		actor := input.Actor
		updates := map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_by": actor,
			"cancelled_at": &now,
		}
		if input.Reason != "" {
			updates["cancel_reason"] = input.Reason
		}
		if err := repo.UpdateStatus(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: cancel order")
		}

		if err := s.restoreOrderStock(ctx, tx, order); err != nil {
			return err
		}
		if err := s.emitStatusChanged(ctx, tx, order, enums.OrderStatusCancelled, &actor, input.Reason); err != nil {
			return err
		}

		updated, err := repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload order")
		}
		dto = NewOrderDTO(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCancelled(input.Actor.String())
	return dto, nil
}

// restoreOrderStock puts every line's quantity back and emits replenishment
// events for rows that came back from empty.
func (s *service) restoreOrderStock(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if len(order.Items) == 0 {
		return nil
	}

	lines := make([]inventory.Line, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, inventory.Line{
			Ref: inventory.ItemRef{ProductID: item.ProductID, VariantID: item.VariantID},
			Qty: item.Quantity,
		})
	}

	results, err := inventory.Restore(ctx, tx, lines)
	if err != nil {
		return err
	}

	// Two lines can share a product through different variants, so the
	// lookup keys on both.
	type lineKey struct {
		productID uuid.UUID
		variantID uuid.UUID
	}
	refKey := func(productID uuid.UUID, variantID *uuid.UUID) lineKey {
		key := lineKey{productID: productID}
		if variantID != nil {
			key.variantID = *variantID
		}
		return key
	}
	itemNames := make(map[lineKey]models.OrderItem, len(order.Items))
	for _, item := range order.Items {
		itemNames[refKey(item.ProductID, item.VariantID)] = item
	}

	for _, result := range results {
		if !result.CrossedZero {
			continue
		}
		payload := payloads.StockReplenishedEvent{
			ProductID:  result.Ref.ProductID,
			VariantID:  result.Ref.VariantID,
			NewStock:   result.NewStock,
			OccurredAt: s.now().UTC(),
		}
		if item, ok := itemNames[refKey(result.Ref.ProductID, result.Ref.VariantID)]; ok {
			payload.ProductName = item.Name
			payload.VariantName = item.VariantName
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventStockReplenished,
			AggregateType: enums.AggregateProduct,
			AggregateID:   result.Ref.ProductID,
			Data:          payload,
			Version:       1,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: emit stock.replenished")
		}
	}
	return nil
}

func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus, actor *enums.CancelActor, reason string) error {
	email := ""
	if user, err := s.users.FindByID(ctx, order.UserID); err == nil {
		email = user.Email
	}

	payload := payloads.OrderStatusChangedEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		CustomerEmail: email,
		FromStatus:    order.Status,
		ToStatus:      to,
		ChangedBy:     actor,
		Reason:        reason,
		ChangedAt:     s.now().UTC(),
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data:          payload,
		Version:       1,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: emit order.status_changed")
	}
	return nil
}

func authorize(requester Requester, order *models.Order) error {
	if requester.IsAdmin {
		return nil
	}
	if order.UserID != requester.UserID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}

func toListDTO(list *OrderList) *OrderListDTO {
	dto := &OrderListDTO{NextCursor: list.NextCursor, Orders: make([]OrderDTO, len(list.Orders))}
	for i := range list.Orders {
		dto.Orders[i] = *NewOrderDTO(&list.Orders[i])
	}
	return dto
}

func wrapListErr(err error) error {
	var typed *pkgerrors.Error
	if errors.As(err, &typed) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
}

func notFoundOrDependency(err error, notFoundMsg, depMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	var typed *pkgerrors.Error
	if errors.As(err, &typed) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, depMsg)
}
