package orders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/outbox"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  phone TEXT,
  role TEXT NOT NULL DEFAULT 'customer',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  category_id TEXT NOT NULL,
  sku TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
  price_cents INTEGER NOT NULL,
  stock_count INTEGER NOT NULL DEFAULT 0,
  track_inventory INTEGER NOT NULL DEFAULT 1,
  unit TEXT,
  image_urls TEXT NOT NULL DEFAULT '{}',
  is_active INTEGER NOT NULL DEFAULT 1,
  is_featured INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  stock_count INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT NOT NULL,
  shipping_address TEXT,
  coupon_code TEXT,
  subtotal_cents INTEGER NOT NULL,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  delivery_fee_cents INTEGER NOT NULL DEFAULT 0,
  surcharge_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  notes TEXT,
  tracking_number TEXT,
  estimated_delivery DATETIME,
  cancelled_by TEXT,
  cancel_reason TEXT,
  cancelled_at DATETIME,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  name TEXT NOT NULL,
  variant_name TEXT,
  image TEXT,
  unit_price_cents INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type capturedEvent struct {
	event outbox.DomainEvent
}

type captureOutbox struct {
	events []capturedEvent
}

func (c *captureOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	c.events = append(c.events, capturedEvent{event: event})
	return nil
}

type captureMetrics struct {
	cancelled []string
}

func (c *captureMetrics) IncCancelled(actor string) {
	c.cancelled = append(c.cancelled, actor)
}

type dbUserLoader struct {
	db *gorm.DB
}

func (l dbUserLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := l.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     "User",
		Role:         "customer",
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedOrderProduct(t *testing.T, db *gorm.DB, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:             uuid.New(),
		CategoryID:     uuid.New(),
		SKU:            "SKU-" + uuid.NewString()[:8],
		Name:           "Basmati Rice",
		Slug:           "basmati-rice-" + uuid.NewString()[:8],
		PriceCents:     50000,
		StockCount:     stock,
		TrackInventory: true,
		ImageURLs:      []string{},
		IsActive:       true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func seedOrderVariant(t *testing.T, db *gorm.DB, productID uuid.UUID, name string, stock int) *models.ProductVariant {
	t.Helper()
	variant := &models.ProductVariant{
		ID:         uuid.New(),
		ProductID:  productID,
		Name:       name,
		PriceCents: 50000,
		StockCount: stock,
		IsActive:   true,
	}
	if err := db.Create(variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return variant
}

type orderSeed struct {
	userID    uuid.UUID
	status    enums.OrderStatus
	total     int64
	createdAt time.Time
	items     []models.OrderItem
}

func seedOrder(t *testing.T, db *gorm.DB, seed orderSeed) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "ORD" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:11]),
		UserID:        seed.userID,
		Status:        seed.status,
		PaymentStatus: enums.PaymentStatusPending,
		PaymentMethod: enums.PaymentMethodCOD,
		ShippingAddress: types.ShippingAddress{
			FullName: "Test User",
			Phone:    "03001234567",
			Line1:    "House 1, Street 2",
			City:     "Lahore",
			Area:     "Gulberg",
		},
		SubtotalCents: seed.total,
		TotalCents:    seed.total,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	if !seed.createdAt.IsZero() {
		if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Update("created_at", seed.createdAt).Error; err != nil {
			t.Fatalf("backdate order: %v", err)
		}
		order.CreatedAt = seed.createdAt
	}
	for i := range seed.items {
		seed.items[i].ID = uuid.New()
		seed.items[i].OrderID = order.ID
		if err := db.Create(&seed.items[i]).Error; err != nil {
			t.Fatalf("seed order item: %v", err)
		}
	}
	order.Items = seed.items
	return order
}
