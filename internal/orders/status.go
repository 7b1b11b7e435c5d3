package orders

import "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"

// allowedTransitions is the fulfillment state machine. Cancellation is not
// listed here: it runs through Cancel, which also restores stock.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:        {enums.OrderStatusProcessing},
	enums.OrderStatusProcessing:     {enums.OrderStatusPacked},
	enums.OrderStatusPacked:         {enums.OrderStatusOutForDelivery},
	enums.OrderStatusOutForDelivery: {enums.OrderStatusDelivered, enums.OrderStatusReturned},
}

// CanTransition reports whether the fulfillment machine permits moving an
// order from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
