package enums

// OutboxEventType names the domain events persisted through the outbox.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order.created"
	EventOrderStatusChanged OutboxEventType = "order.status_changed"
	EventStockReplenished   OutboxEventType = "stock.replenished"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateProduct OutboxAggregateType = "product"
)

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	switch o {
	case EventOrderCreated, EventOrderStatusChanged, EventStockReplenished:
		return true
	}
	return false
}
