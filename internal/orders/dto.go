package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/types"
)

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID                uuid.UUID             `json:"id"`
	OrderNumber       string                `json:"order_number"`
	UserID            uuid.UUID             `json:"user_id"`
	Status            string                `json:"status"`
	PaymentStatus     string                `json:"payment_status"`
	PaymentMethod     string                `json:"payment_method"`
	ShippingAddress   types.ShippingAddress `json:"shipping_address"`
	CouponCode        *string               `json:"coupon_code,omitempty"`
	SubtotalCents     int64                 `json:"subtotal_cents"`
	DiscountCents     int64                 `json:"discount_cents"`
	DeliveryFeeCents  int64                 `json:"delivery_fee_cents"`
	SurchargeCents    int64                 `json:"surcharge_cents"`
	TotalCents        int64                 `json:"total_cents"`
	Notes             *string               `json:"notes,omitempty"`
	TrackingNumber    *string               `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time            `json:"estimated_delivery,omitempty"`
	CancelledBy       *string               `json:"cancelled_by,omitempty"`
	CancelReason      *string               `json:"cancel_reason,omitempty"`
	CancelledAt       *time.Time            `json:"cancelled_at,omitempty"`
	DeliveredAt       *time.Time            `json:"delivered_at,omitempty"`
	Items             []OrderItemDTO        `json:"items"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// OrderItemDTO is one snapshot line of an order.
type OrderItemDTO struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	Name           string     `json:"name"`
	VariantName    *string    `json:"variant_name,omitempty"`
	Image          *string    `json:"image,omitempty"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	Quantity       int        `json:"quantity"`
	LineTotalCents int64      `json:"line_total_cents"`
}

// OrderListDTO is a cursor page of orders.
type OrderListDTO struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// NewOrderDTO builds a DTO from the persisted order.
func NewOrderDTO(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:                order.ID,
		OrderNumber:       order.OrderNumber,
		UserID:            order.UserID,
		Status:            order.Status.String(),
		PaymentStatus:     order.PaymentStatus.String(),
		PaymentMethod:     order.PaymentMethod.String(),
		ShippingAddress:   order.ShippingAddress,
		CouponCode:        order.CouponCode,
		SubtotalCents:     order.SubtotalCents,
		DiscountCents:     order.DiscountCents,
		DeliveryFeeCents:  order.DeliveryFeeCents,
		SurchargeCents:    order.SurchargeCents,
		TotalCents:        order.TotalCents,
		Notes:             order.Notes,
		TrackingNumber:    order.TrackingNumber,
		EstimatedDelivery: order.EstimatedDelivery,
		CancelReason:      order.CancelReason,
		CancelledAt:       order.CancelledAt,
		DeliveredAt:       order.DeliveredAt,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
	if order.CancelledBy != nil {
		actor := order.CancelledBy.String()
		dto.CancelledBy = &actor
	}

	dto.Items = make([]OrderItemDTO, len(order.Items))
	for i, item := range order.Items {
		dto.Items[i] = OrderItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Name:           item.Name,
			VariantName:    item.VariantName,
			Image:          item.Image,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: item.LineTotalCents,
		}
	}
	return dto
}
