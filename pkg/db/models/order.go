package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/types"
)

// Order is the immutable record produced at checkout. All monetary fields
// are snapshots in paisa; later catalog or coupon edits never change them.
type Order struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber       string                `gorm:"column:order_number;type:text;not null;uniqueIndex"`
	UserID            uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Status            enums.OrderStatus     `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus     enums.PaymentStatus   `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	PaymentMethod     enums.PaymentMethod   `gorm:"column:payment_method;type:payment_method;not null"`
	ShippingAddress   types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	CouponCode        *string               `gorm:"column:coupon_code"`
	SubtotalCents     int64                 `gorm:"column:subtotal_cents;not null"`
	DiscountCents     int64                 `gorm:"column:discount_cents;not null;default:0"`
	DeliveryFeeCents  int64                 `gorm:"column:delivery_fee_cents;not null;default:0"`
	SurchargeCents    int64                 `gorm:"column:surcharge_cents;not null;default:0"`
	TotalCents        int64                 `gorm:"column:total_cents;not null"`
	Notes             *string               `gorm:"column:notes;type:text"`
	TrackingNumber    *string               `gorm:"column:tracking_number"`
	EstimatedDelivery *time.Time            `gorm:"column:estimated_delivery"`
	CancelledBy       *enums.CancelActor    `gorm:"column:cancelled_by;type:cancel_actor"`
	CancelReason      *string               `gorm:"column:cancel_reason;type:text"`
	CancelledAt       *time.Time            `gorm:"column:cancelled_at"`
	DeliveredAt       *time.Time            `gorm:"column:delivered_at"`
	Items             []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
