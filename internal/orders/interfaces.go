package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/outbox"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/pagination"
)

// Repository defines persistence operations for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CountByStatus(ctx context.Context, from, to time.Time) (map[enums.OrderStatus]int64, error)
	PeriodTotals(ctx context.Context, from, to time.Time) (*PeriodTotals, error)
}

// ListFilters narrows order listings.
type ListFilters struct {
	Status        *enums.OrderStatus
	PaymentMethod *enums.PaymentMethod
	From          *time.Time
	To            *time.Time
	Search        string
}

// OrderList is a cursor page of orders.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}

// PeriodTotals aggregates order volume and revenue over a window. Cancelled
// and returned orders do not count toward revenue.
type PeriodTotals struct {
	OrderCount   int64
	ItemCount    int64
	RevenueCents int64
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderMetrics interface {
	IncCancelled(actor string)
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}
