package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"
)

// OrderCreatedEvent signals a successfully placed order. It carries enough
// of the snapshot for downstream consumers to render notifications without
// a database round trip.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	UserID        uuid.UUID           `json:"user_id"`
	CustomerEmail string              `json:"customer_email"`
	CustomerName  string              `json:"customer_name"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	ItemCount     int                 `json:"item_count"`
	TotalCents    int64               `json:"total_cents"`
	PlacedAt      time.Time           `json:"placed_at"`
}

// OrderStatusChangedEvent is emitted on every status transition, including
// cancellations.
type OrderStatusChangedEvent struct {
	OrderID       uuid.UUID          `json:"order_id"`
	OrderNumber   string             `json:"order_number"`
	UserID        uuid.UUID          `json:"user_id"`
	CustomerEmail string             `json:"customer_email"`
	FromStatus    enums.OrderStatus  `json:"from_status"`
	ToStatus      enums.OrderStatus  `json:"to_status"`
	ChangedBy     *enums.CancelActor `json:"changed_by,omitempty"`
	Reason        string             `json:"reason,omitempty"`
	ChangedAt     time.Time          `json:"changed_at"`
}

// StockReplenishedEvent fires when a product or variant crosses from zero
// stock back to positive. Consumers fan it out to restock subscribers.
type StockReplenishedEvent struct {
	ProductID   uuid.UUID  `json:"product_id"`
	VariantID   *uuid.UUID `json:"variant_id,omitempty"`
	ProductName string     `json:"product_name"`
	VariantName *string    `json:"variant_name,omitempty"`
	NewStock    int        `json:"new_stock"`
	OccurredAt  time.Time  `json:"occurred_at"`
}
