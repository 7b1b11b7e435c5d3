package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/coupons"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	dbtypes "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/types"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"
	pkgerrors "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/errors"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/pricing"
)

var testPricing = pricing.Config{
	FreeDeliveryThreshold: 250000,
	DeliveryFee:           24000,
	OrderSurcharge:        100,
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	statements := []string{
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
		`CREATE TABLE IF NOT EXISTS coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  description TEXT,
  discount_type TEXT NOT NULL,
  discount_value NUMERIC NOT NULL,
  max_discount_cents INTEGER,
  min_purchase_cents INTEGER NOT NULL DEFAULT 0,
  usage_limit INTEGER,
  usage_count INTEGER NOT NULL DEFAULT 0,
  starts_at DATETIME NOT NULL,
  expires_at DATETIME NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  applicable_category_ids TEXT NOT NULL DEFAULT '{}',
  applicable_product_ids TEXT NOT NULL DEFAULT '{}',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS cart_records (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  coupon_id TEXT,
  coupon_discount_cents INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, priceCents int64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:             uuid.New(),
		CategoryID:     uuid.New(),
		SKU:            "SKU-" + uuid.NewString()[:8],
		Name:           "Daal Chana",
		Slug:           "daal-chana-" + uuid.NewString()[:8],
		PriceCents:     priceCents,
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

func seedVariant(t *testing.T, db *gorm.DB, productID uuid.UUID, priceCents int64, stock int) *models.ProductVariant {
	t.Helper()
	variant := &models.ProductVariant{
		ID:         uuid.New(),
		ProductID:  productID,
		Name:       "1kg",
		PriceCents: priceCents,
		StockCount: stock,
		IsActive:   true,
	}
	if err := db.Create(variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return variant
}

func seedCoupon(t *testing.T, db *gorm.DB, code string, percent int64) *models.Coupon {
	t.Helper()
	coupon := &models.Coupon{
		ID:                    uuid.New(),
		Code:                  code,
		DiscountType:          enums.DiscountTypePercentage,
		DiscountValue:         decimal.NewFromInt(percent),
		StartsAt:              time.Now().Add(-time.Hour),
		ExpiresAt:             time.Now().Add(time.Hour),
		IsActive:              true,
		ApplicableCategoryIDs: dbtypes.UUIDArray{},
		ApplicableProductIDs:  dbtypes.UUIDArray{},
	}
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
	return coupon
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	couponSvc, err := coupons.NewService(coupons.NewRepository(db))
	if err != nil {
		t.Fatalf("coupon service: %v", err)
	}
	svc, err := NewService(NewRepository(db), couponSvc, testPricing)
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	return svc, db
}

func TestGetCart_CreatesEmptyCart(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	userID := uuid.New()

	view, err := svc.GetCart(context.Background(), userID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(view.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(view.Items))
	}
	if view.Total != 0 || view.Delivery != 0 {
		t.Fatalf("empty cart must quote zero, got total=%d delivery=%d", view.Total, view.Delivery)
	}
}

func TestAddItem_MergesSameLine(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	userID := uuid.New()
	product := seedProduct(t, db, 50000, 10)

	if _, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	view, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(view.Items) != 1 {
		t.Fatalf("expected one merged line, got %d", len(view.Items))
	}
	if view.Items[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", view.Items[0].Quantity)
	}
	if view.Subtotal != 250000 {
		t.Fatalf("expected subtotal 250000, got %d", view.Subtotal)
	}
	// subtotal sits exactly on the free delivery threshold
	if view.Delivery != 0 {
		t.Fatalf("expected free delivery, got %d", view.Delivery)
	}
}

func TestAddItem_VariantLinesStaySeparate(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	userID := uuid.New()
	product := seedProduct(t, db, 0, 0)
	v1 := seedVariant(t, db, product.ID, 28000, 5)
	v2 := &models.ProductVariant{
		ID: uuid.New(), ProductID: product.ID, Name: "5kg", PriceCents: 120000, StockCount: 5, IsActive: true,
	}
	if err := db.Create(v2).Error; err != nil {
		t.Fatalf("seed second variant: %v", err)
	}

	if _, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, VariantID: &v1.ID, Quantity: 1}); err != nil {
		t.Fatalf("add v1: %v", err)
	}
	view, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, VariantID: &v2.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("add v2: %v", err)
	}
	if len(view.Items) != 2 {
		t.Fatalf("expected two lines, got %d", len(view.Items))
	}
}

func TestAddItem_Guards(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	userID := uuid.New()

	t.Run("unknownProduct", func(t *testing.T) {
		_, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: uuid.New(), Quantity: 1})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("insufficientStock", func(t *testing.T) {
		product := seedProduct(t, db, 10000, 1)
		_, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 5})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict, got %v", err)
		}
	})

	t.Run("untrackedProductSellsPastZero", func(t *testing.T) {
		product := seedProduct(t, db, 10000, 0)
		if err := db.Model(product).Update("track_inventory", false).Error; err != nil {
			t.Fatalf("untrack product: %v", err)
		}
		view, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 5})
		if err != nil {
			t.Fatalf("add untracked item: %v", err)
		}
		if len(view.Items) == 0 {
			t.Fatal("expected item in cart")
		}
	})

	t.Run("variantRequired", func(t *testing.T) {
		product := seedProduct(t, db, 0, 0)
		seedVariant(t, db, product.ID, 28000, 5)
		_, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 1})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("inactiveProduct", func(t *testing.T) {
		product := seedProduct(t, db, 10000, 5)
		db.Model(product).Update("is_active", false)
		_, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 1})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict, got %v", err)
		}
	})
}

func TestUpdateItemQuantity_ZeroRemovesLine(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	userID := uuid.New()
	product := seedProduct(t, db, 50000, 10)

	view, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	itemID := view.Items[0].ID

	view, err = svc.UpdateItemQuantity(context.Background(), userID, itemID, 0)
	if err != nil {
		t.Fatalf("update to zero: %v", err)
	}
	if len(view.Items) != 0 {
		t.Fatalf("expected line removed, got %d items", len(view.Items))
	}

	_, err = svc.UpdateItemQuantity(context.Background(), userID, uuid.New(), 3)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApplyCoupon(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	userID := uuid.New()
	product := seedProduct(t, db, 100000, 10)
	seedCoupon(t, db, "SAVE10", 10)

	if _, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}

	view, err := svc.ApplyCoupon(context.Background(), userID, "save10")
	if err != nil {
		t.Fatalf("apply coupon: %v", err)
	}
	if view.Coupon == nil || view.Coupon.Code != "SAVE10" {
		t.Fatalf("expected applied coupon, got %+v", view.Coupon)
	}
	if view.Discount != 20000 {
		t.Fatalf("expected 20000 discount, got %d", view.Discount)
	}
	// 200000 - 20000 drops below the free delivery threshold
	if view.Delivery != testPricing.DeliveryFee {
		t.Fatalf("expected delivery fee %d, got %d", testPricing.DeliveryFee, view.Delivery)
	}
	wantTotal := int64(200000 - 20000 + 24000 + 100)
	if view.Total != wantTotal {
		t.Fatalf("expected total %d, got %d", wantTotal, view.Total)
	}

	view, err = svc.RemoveCoupon(context.Background(), userID)
	if err != nil {
		t.Fatalf("remove coupon: %v", err)
	}
	if view.Coupon != nil || view.Discount != 0 {
		t.Fatalf("expected coupon removed, got %+v", view.Coupon)
	}
}

func TestAddItem_SnapshotsUnitPrice(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	userID := uuid.New()
	product := seedProduct(t, db, 100000, 10)

	if _, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}

	// the catalog price moves after the item was added
	if err := db.Model(product).Update("price_cents", 130000).Error; err != nil {
		t.Fatalf("reprice product: %v", err)
	}

	view, err := svc.GetCart(context.Background(), userID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if view.Items[0].UnitPriceCents != 100000 {
		t.Fatalf("expected the price from add time, got %d", view.Items[0].UnitPriceCents)
	}
	if view.Subtotal != 200000 {
		t.Fatalf("expected subtotal from snapshots, got %d", view.Subtotal)
	}

	// merging the same line refreshes the snapshot to the current price
	view, err = svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("merge add: %v", err)
	}
	if view.Items[0].UnitPriceCents != 130000 {
		t.Fatalf("expected refreshed snapshot, got %d", view.Items[0].UnitPriceCents)
	}
	if view.Items[0].Quantity != 3 {
		t.Fatalf("expected merged quantity 3, got %d", view.Items[0].Quantity)
	}
}

func TestApplyCoupon_PinsDiscount(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	userID := uuid.New()
	product := seedProduct(t, db, 100000, 10)
	seedCoupon(t, db, "SAVE10", 10)

	if _, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.ApplyCoupon(context.Background(), userID, "SAVE10"); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// growing the cart afterwards does not grow the pinned discount
	view, err := svc.UpdateItemQuantity(context.Background(), userID, mustFirstItemID(t, db, userID), 4)
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if view.Discount != 20000 {
		t.Fatalf("expected the discount pinned at apply time, got %d", view.Discount)
	}
}

func mustFirstItemID(t *testing.T, db *gorm.DB, userID uuid.UUID) uuid.UUID {
	t.Helper()
	var record models.CartRecord
	if err := db.Preload("Items").First(&record, "user_id = ?", userID).Error; err != nil {
		t.Fatalf("load cart: %v", err)
	}
	if len(record.Items) == 0 {
		t.Fatal("cart has no items")
	}
	return record.Items[0].ID
}

func TestApplyCoupon_EmptyCart(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	seedCoupon(t, db, "SAVE10", 10)

	_, err := svc.ApplyCoupon(context.Background(), uuid.New(), "SAVE10")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClearCart_DropsItemsAndCoupon(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	userID := uuid.New()
	product := seedProduct(t, db, 100000, 10)
	seedCoupon(t, db, "SAVE10", 10)

	if _, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.ApplyCoupon(context.Background(), userID, "SAVE10"); err != nil {
		t.Fatalf("apply: %v", err)
	}

	view, err := svc.ClearCart(context.Background(), userID)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(view.Items) != 0 || view.Coupon != nil {
		t.Fatalf("expected empty cart without coupon, got %+v", view)
	}
}

func TestCartView_StaleCouponWarns(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	userID := uuid.New()
	product := seedProduct(t, db, 100000, 10)
	coupon := seedCoupon(t, db, "SAVE10", 10)

	if _, err := svc.AddItem(context.Background(), userID, AddItemInput{ProductID: product.ID, Quantity: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.ApplyCoupon(context.Background(), userID, "SAVE10"); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// coupon expires after it was applied
	db.Model(coupon).Update("expires_at", time.Now().Add(-time.Minute))

	view, err := svc.GetCart(context.Background(), userID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if view.Coupon != nil || view.Discount != 0 {
		t.Fatalf("expired coupon must not discount, got %+v", view.Coupon)
	}
	if len(view.Warnings) == 0 {
		t.Fatal("expected a warning about the stale coupon")
	}
}
