package models

import (
	"time"

	"github.com/google/uuid"
)

// RestockSubscription registers interest in a product (or variant) that is
// out of stock. NotifiedAt marks subscriptions already served so a later
// restock does not notify twice.
type RestockSubscription struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID  uuid.UUID  `gorm:"column:product_id;type:uuid;not null;index"`
	VariantID  *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	UserID     *uuid.UUID `gorm:"column:user_id;type:uuid"`
	Email      string     `gorm:"column:email;type:text;not null"`
	NotifiedAt *time.Time `gorm:"column:notified_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}
