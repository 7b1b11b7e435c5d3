package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/logger"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/mailer"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/outbox"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/outbox/idempotency"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/outbox/payloads"
)

const notificationConsumer = "notification-worker"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// restockClaimer hands out pending back-in-stock subscriptions, marking
// them notified in the same call.
type restockClaimer interface {
	ClaimPending(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) ([]models.RestockSubscription, error)
}

// Consumer turns order and stock events into notification rows and email.
type Consumer struct {
	repo         repository
	restock      restockClaimer
	mail         mailer.Sender
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the notification consumer.
func NewConsumer(
	repo repository,
	restock restockClaimer,
	mail mailer.Sender,
	subscription *pubsub.Subscriber,
	manager *idempotency.Manager,
	logg *logger.Logger,
) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if restock == nil {
		return nil, fmt.Errorf("restock claimer required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		restock:      restock,
		mail:         mail,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if !eventType.IsValid() {
		c.logg.Info(logCtx, "skipping unknown event type")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, notificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.dispatch(ctx, eventType, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, notificationConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) dispatch(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventOrderCreated:
		var payload payloads.OrderCreatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.handleOrderCreated(ctx, payload, logCtx)
	case enums.EventOrderStatusChanged:
		var payload payloads.OrderStatusChangedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.handleStatusChanged(ctx, payload, logCtx)
	case enums.EventStockReplenished:
		var payload payloads.StockReplenishedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.handleStockReplenished(ctx, payload, logCtx)
	default:
		c.logg.Info(logCtx, "event type not handled")
		return nil
	}
}

func (c *Consumer) handleOrderCreated(ctx context.Context, payload payloads.OrderCreatedEvent, logCtx context.Context) error {
	orderID := payload.OrderID

	operator := &models.Notification{
		ID:      uuid.New(),
		Kind:    enums.NotificationNewOrderAlert,
		Title:   "New order received",
		Message: fmt.Sprintf("Order %s: %d item(s), Rs. %d, paid via %s.", payload.OrderNumber, payload.ItemCount, payload.TotalCents/100, payload.PaymentMethod),
		OrderID: &orderID,
	}
	if err := c.repo.Create(ctx, operator); err != nil {
		return err
	}

	userID := payload.UserID
	confirmation := &models.Notification{
		ID:      uuid.New(),
		UserID:  &userID,
		Kind:    enums.NotificationOrderConfirmation,
		Title:   "Order confirmed",
		Message: fmt.Sprintf("Your order %s has been placed.", payload.OrderNumber),
		OrderID: &orderID,
	}
	if err := c.repo.Create(ctx, confirmation); err != nil {
		return err
	}

	if payload.CustomerEmail != "" {
		subject, html := orderConfirmationMail(payload)
		c.sendMail(ctx, logCtx, payload.CustomerEmail, subject, html)
	}
	return nil
}

func (c *Consumer) handleStatusChanged(ctx context.Context, payload payloads.OrderStatusChangedEvent, logCtx context.Context) error {
	orderID := payload.OrderID
	userID := payload.UserID

	operator := &models.Notification{
		ID:      uuid.New(),
		Kind:    enums.NotificationOrderStatusUpdate,
		Title:   "Order status changed",
		Message: fmt.Sprintf("Order %s moved from %s to %s.", payload.OrderNumber, statusLabel(payload.FromStatus.String()), statusLabel(payload.ToStatus.String())),
		OrderID: &orderID,
	}
	if err := c.repo.Create(ctx, operator); err != nil {
		return err
	}

	notification := &models.Notification{
		ID:      uuid.New(),
		UserID:  &userID,
		Kind:    enums.NotificationOrderStatusUpdate,
		Title:   "Order update",
		Message: fmt.Sprintf("Order %s is now %s.", payload.OrderNumber, statusLabel(payload.ToStatus.String())),
		OrderID: &orderID,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}

	if payload.CustomerEmail != "" {
		subject, html := statusUpdateMail(payload)
		c.sendMail(ctx, logCtx, payload.CustomerEmail, subject, html)
	}
	return nil
}

func (c *Consumer) handleStockReplenished(ctx context.Context, payload payloads.StockReplenishedEvent, logCtx context.Context) error {
	subs, err := c.restock.ClaimPending(ctx, payload.ProductID, payload.VariantID)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return nil
	}

	// One bad row must not starve the rest of the fanout; failures are
	// collected and the event nacked as a whole.
	var fanoutErr error
	subject, html := backInStockMail(payload)
	for _, sub := range subs {
		if sub.UserID != nil {
			notification := &models.Notification{
				ID:      uuid.New(),
				UserID:  sub.UserID,
				Kind:    enums.NotificationBackInStock,
				Title:   "Back in stock",
				Message: fmt.Sprintf("%s is available again.", payload.ProductName),
			}
			if err := c.repo.Create(ctx, notification); err != nil {
				fanoutErr = multierr.Append(fanoutErr, err)
				continue
			}
		}
		c.sendMail(ctx, logCtx, sub.Email, subject, html)
	}
	if fanoutErr != nil {
		return fanoutErr
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{"subscribers": len(subs)}), "restock fanout complete")
	return nil
}

// sendMail is best-effort: a bounced email never retries the event.
func (c *Consumer) sendMail(ctx context.Context, logCtx context.Context, to, subject, html string) {
	err := c.mail.Send(ctx, mailer.Message{To: []string{to}, Subject: subject, HTML: html})
	if err != nil {
		c.logg.Error(logCtx, "mail send failed", err)
	}
}
