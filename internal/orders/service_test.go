package orders

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"
	pkgerrors "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/errors"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/outbox/payloads"
)

func newOrderService(t *testing.T, db *gorm.DB) (Service, *captureOutbox, *captureMetrics) {
	t.Helper()
	published := &captureOutbox{}
	metrics := &captureMetrics{}
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, published, dbUserLoader{db: db}, metrics)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, published, metrics
}

func TestUpdateStatus_TransitionTable(t *testing.T) {
	db := newTestDB(t)
	svc, published, _ := newOrderService(t, db)
	ctx := context.Background()

	user := seedUser(t, db, "alice@example.com")
	order := seedOrder(t, db, orderSeed{userID: user.ID, status: enums.OrderStatusPending, total: 100000})

	dto, err := svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{To: enums.OrderStatusProcessing})
	if err != nil {
		t.Fatalf("pending -> processing: %v", err)
	}
	if dto.Status != "processing" {
		t.Fatalf("expected processing, got %s", dto.Status)
	}
	if len(published.events) != 1 || published.events[0].event.EventType != enums.EventOrderStatusChanged {
		t.Fatalf("expected one order.status_changed event, got %+v", published.events)
	}

	if _, err := svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{To: enums.OrderStatusDelivered}); err == nil {
		t.Fatal("processing -> delivered should be rejected")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestUpdateStatus_DeliveredStampsTimestamp(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newOrderService(t, db)
	ctx := context.Background()

	user := seedUser(t, db, "bob@example.com")
	order := seedOrder(t, db, orderSeed{userID: user.ID, status: enums.OrderStatusOutForDelivery, total: 100000})

	notes := "left with the guard"
	dto, err := svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{To: enums.OrderStatusDelivered, Notes: &notes})
	if err != nil {
		t.Fatalf("out_for_delivery -> delivered: %v", err)
	}
	if dto.DeliveredAt == nil {
		t.Fatal("expected delivered_at to be stamped")
	}
	if dto.Notes == nil || *dto.Notes != notes {
		t.Fatalf("expected notes %q, got %v", notes, dto.Notes)
	}
}

func TestUpdateStatus_RecordsFulfillmentDetails(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newOrderService(t, db)
	ctx := context.Background()

	user := seedUser(t, db, "carol@example.com")
	order := seedOrder(t, db, orderSeed{userID: user.ID, status: enums.OrderStatusPacked, total: 100000})

	tracking := "TCS-889900112"
	eta := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	dto, err := svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{
		To:                enums.OrderStatusOutForDelivery,
		TrackingNumber:    &tracking,
		EstimatedDelivery: &eta,
	})
	if err != nil {
		t.Fatalf("packed -> out_for_delivery: %v", err)
	}
	if dto.TrackingNumber == nil || *dto.TrackingNumber != tracking {
		t.Fatalf("expected tracking number %q, got %v", tracking, dto.TrackingNumber)
	}
	if dto.EstimatedDelivery == nil || !dto.EstimatedDelivery.Equal(eta) {
		t.Fatalf("expected estimated delivery %v, got %v", eta, dto.EstimatedDelivery)
	}
}

func TestUpdateStatus_ReturnedRestoresStock(t *testing.T) {
	db := newTestDB(t)
	svc, published, _ := newOrderService(t, db)
	ctx := context.Background()

	user := seedUser(t, db, "carol@example.com")
	product := seedOrderProduct(t, db, 0)
	order := seedOrder(t, db, orderSeed{
		userID: user.ID, status: enums.OrderStatusOutForDelivery, total: 100000,
		items: []models.OrderItem{
			{ProductID: product.ID, Name: product.Name, UnitPriceCents: 50000, Quantity: 2, LineTotalCents: 100000},
		},
	})

	if _, err := svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{To: enums.OrderStatusReturned}); err != nil {
		t.Fatalf("out_for_delivery -> returned: %v", err)
	}

	var stock int
	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).Pluck("stock_count", &stock).Error; err != nil {
		t.Fatalf("read stock: %v", err)
	}
	if stock != 2 {
		t.Fatalf("expected stock restored to 2, got %d", stock)
	}

	var sawReplenished bool
	for _, captured := range published.events {
		if captured.event.EventType == enums.EventStockReplenished {
			sawReplenished = true
		}
	}
	if !sawReplenished {
		t.Fatal("expected stock.replenished for a zero-crossing restore")
	}
}

func TestUpdateStatus_ReturnedNamesVariantLines(t *testing.T) {
	db := newTestDB(t)
	svc, published, _ := newOrderService(t, db)
	ctx := context.Background()

	user := seedUser(t, db, "erum@example.com")
	product := seedOrderProduct(t, db, 0)
	small := seedOrderVariant(t, db, product.ID, "5kg", 0)
	large := seedOrderVariant(t, db, product.ID, "10kg", 0)

	smallName := small.Name
	largeName := large.Name
	order := seedOrder(t, db, orderSeed{
		userID: user.ID, status: enums.OrderStatusOutForDelivery, total: 150000,
		items: []models.OrderItem{
			{ProductID: product.ID, VariantID: &small.ID, Name: product.Name, VariantName: &smallName, UnitPriceCents: 50000, Quantity: 1, LineTotalCents: 50000},
			{ProductID: product.ID, VariantID: &large.ID, Name: product.Name, VariantName: &largeName, UnitPriceCents: 100000, Quantity: 1, LineTotalCents: 100000},
		},
	})

	if _, err := svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{To: enums.OrderStatusReturned}); err != nil {
		t.Fatalf("out_for_delivery -> returned: %v", err)
	}

	seen := map[string]bool{}
	for _, captured := range published.events {
		if captured.event.EventType != enums.EventStockReplenished {
			continue
		}
		payload, ok := captured.event.Data.(payloads.StockReplenishedEvent)
		if !ok {
			t.Fatalf("unexpected payload type %T", captured.event.Data)
		}
		if payload.VariantID == nil || payload.VariantName == nil {
			t.Fatalf("replenished event missing variant: %+v", payload)
		}
		want := smallName
		if *payload.VariantID == large.ID {
			want = largeName
		}
		if *payload.VariantName != want {
			t.Fatalf("variant %s labeled %q", *payload.VariantID, *payload.VariantName)
		}
		seen[*payload.VariantName] = true
	}
	if !seen[smallName] || !seen[largeName] {
		t.Fatalf("expected replenished events for both variants, got %v", seen)
	}
}

func TestCancel(t *testing.T) {
	db := newTestDB(t)
	svc, published, metrics := newOrderService(t, db)
	ctx := context.Background()

	user := seedUser(t, db, "dave@example.com")
	product := seedOrderProduct(t, db, 3)
	order := seedOrder(t, db, orderSeed{
		userID: user.ID, status: enums.OrderStatusPending, total: 150000,
		items: []models.OrderItem{
			{ProductID: product.ID, Name: product.Name, UnitPriceCents: 50000, Quantity: 3, LineTotalCents: 150000},
		},
	})

	dto, err := svc.Cancel(ctx, Requester{UserID: user.ID}, CancelInput{
		OrderID: order.ID,
		Actor:   enums.CancelActorUser,
		Reason:  "ordered by mistake",
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if dto.Status != "cancelled" {
		t.Fatalf("expected cancelled, got %s", dto.Status)
	}
	if dto.CancelledBy == nil || *dto.CancelledBy != "user" {
		t.Fatalf("expected cancelled_by user, got %v", dto.CancelledBy)
	}
	if dto.CancelReason == nil || *dto.CancelReason != "ordered by mistake" {
		t.Fatalf("expected cancel reason recorded, got %v", dto.CancelReason)
	}
	if dto.CancelledAt == nil {
		t.Fatal("expected cancelled_at to be stamped")
	}

	var stock int
	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).Pluck("stock_count", &stock).Error; err != nil {
		t.Fatalf("read stock: %v", err)
	}
	if stock != 6 {
		t.Fatalf("expected stock back to 6, got %d", stock)
	}

	if len(metrics.cancelled) != 1 || metrics.cancelled[0] != "user" {
		t.Fatalf("expected cancel metric for user, got %v", metrics.cancelled)
	}
	if len(published.events) == 0 || published.events[len(published.events)-1].event.EventType != enums.EventOrderStatusChanged {
		t.Fatalf("expected order.status_changed event, got %+v", published.events)
	}
}

func TestCancel_Guards(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newOrderService(t, db)
	ctx := context.Background()

	owner := seedUser(t, db, "erin@example.com")
	stranger := seedUser(t, db, "frank@example.com")
	packed := seedOrder(t, db, orderSeed{userID: owner.ID, status: enums.OrderStatusPacked, total: 50000})
	pending := seedOrder(t, db, orderSeed{userID: owner.ID, status: enums.OrderStatusPending, total: 50000})

	t.Run("packedTooLate", func(t *testing.T) {
		_, err := svc.Cancel(ctx, Requester{UserID: owner.ID}, CancelInput{OrderID: packed.ID, Actor: enums.CancelActorUser})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict, got %v", err)
		}
	})

	t.Run("strangerSeesNotFound", func(t *testing.T) {
		_, err := svc.Cancel(ctx, Requester{UserID: stranger.ID}, CancelInput{OrderID: pending.ID, Actor: enums.CancelActorUser})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("adminMayCancelAnyOrder", func(t *testing.T) {
		dto, err := svc.Cancel(ctx, Requester{UserID: stranger.ID, IsAdmin: true}, CancelInput{
			OrderID: pending.ID,
			Actor:   enums.CancelActorAdmin,
		})
		if err != nil {
			t.Fatalf("admin cancel: %v", err)
		}
		if dto.CancelledBy == nil || *dto.CancelledBy != "admin" {
			t.Fatalf("expected cancelled_by admin, got %v", dto.CancelledBy)
		}
	})
}

func TestGetByID_Ownership(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newOrderService(t, db)
	ctx := context.Background()

	owner := seedUser(t, db, "grace@example.com")
	stranger := seedUser(t, db, "hank@example.com")
	order := seedOrder(t, db, orderSeed{userID: owner.ID, status: enums.OrderStatusPending, total: 50000})

	if _, err := svc.GetByID(ctx, Requester{UserID: owner.ID}, order.ID); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := svc.GetByID(ctx, Requester{UserID: stranger.ID, IsAdmin: true}, order.ID); err != nil {
		t.Fatalf("admin read: %v", err)
	}
	_, err := svc.GetByID(ctx, Requester{UserID: stranger.ID}, order.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for stranger, got %v", err)
	}
}

func TestUpdatePaymentStatus(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newOrderService(t, db)
	ctx := context.Background()

	user := seedUser(t, db, "iris@example.com")
	order := seedOrder(t, db, orderSeed{userID: user.ID, status: enums.OrderStatusPending, total: 50000})

	dto, err := svc.UpdatePaymentStatus(ctx, order.ID, enums.PaymentStatusPaid)
	if err != nil {
		t.Fatalf("update payment status: %v", err)
	}
	if dto.PaymentStatus != "paid" {
		t.Fatalf("expected paid, got %s", dto.PaymentStatus)
	}
	if dto.Status != "pending" {
		t.Fatalf("fulfillment status must be untouched, got %s", dto.Status)
	}

	_, err = svc.UpdatePaymentStatus(ctx, order.ID, enums.PaymentStatus("settled"))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStats(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newOrderService(t, db)
	ctx := context.Background()

	user := seedUser(t, db, "judy@example.com")
	product := seedOrderProduct(t, db, 10)
	weekStart := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	weekEnd := weekStart.AddDate(0, 0, 7)

	// previous week: one order at 100000
	seedOrder(t, db, orderSeed{userID: user.ID, status: enums.OrderStatusDelivered, total: 100000, createdAt: weekStart.AddDate(0, 0, -3)})

	// current week: two orders, one cancelled (excluded)
	seedOrder(t, db, orderSeed{
		userID: user.ID, status: enums.OrderStatusDelivered, total: 150000, createdAt: weekStart.Add(24 * time.Hour),
		items: []models.OrderItem{
			{ProductID: product.ID, Name: product.Name, UnitPriceCents: 50000, Quantity: 3, LineTotalCents: 150000},
		},
	})
	seedOrder(t, db, orderSeed{
		userID: user.ID, status: enums.OrderStatusPending, total: 50000, createdAt: weekStart.Add(48 * time.Hour),
		items: []models.OrderItem{
			{ProductID: product.ID, Name: product.Name, UnitPriceCents: 50000, Quantity: 1, LineTotalCents: 50000},
		},
	})
	seedOrder(t, db, orderSeed{userID: user.ID, status: enums.OrderStatusCancelled, total: 999999, createdAt: weekStart.Add(72 * time.Hour)})

	stats, err := svc.Stats(ctx, StatsPeriod{From: weekStart, To: weekEnd})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.OrderCount != 2 {
		t.Fatalf("expected 2 orders, got %d", stats.OrderCount)
	}
	if stats.RevenueCents != 200000 {
		t.Fatalf("expected revenue 200000, got %d", stats.RevenueCents)
	}
	if stats.ItemCount != 4 {
		t.Fatalf("expected 4 items, got %d", stats.ItemCount)
	}
	if stats.AvgOrderValueCents != 100000 {
		t.Fatalf("expected avg 100000, got %d", stats.AvgOrderValueCents)
	}
	if got := stats.OrderCountChangePct.IntPart(); got != 100 {
		t.Fatalf("expected +100%% order count change, got %s", stats.OrderCountChangePct)
	}
	if got := stats.RevenueChangePct.IntPart(); got != 100 {
		t.Fatalf("expected +100%% revenue change, got %s", stats.RevenueChangePct)
	}
	if stats.ByStatus["cancelled"] != 1 || stats.ByStatus["delivered"] != 1 || stats.ByStatus["pending"] != 1 {
		t.Fatalf("unexpected by-status counts: %v", stats.ByStatus)
	}
}

func TestStats_ZeroGuard(t *testing.T) {
	db := newTestDB(t)
	svc, _, _ := newOrderService(t, db)
	ctx := context.Background()

	user := seedUser(t, db, "kyle@example.com")
	weekStart := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	seedOrder(t, db, orderSeed{userID: user.ID, status: enums.OrderStatusPending, total: 50000, createdAt: weekStart.Add(time.Hour)})

	stats, err := svc.Stats(ctx, StatsPeriod{From: weekStart, To: weekStart.AddDate(0, 0, 7)})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got := stats.OrderCountChangePct.IntPart(); got != 100 {
		t.Fatalf("empty previous period must read +100%%, got %s", stats.OrderCountChangePct)
	}

	empty, err := svc.Stats(ctx, StatsPeriod{From: weekStart.AddDate(0, 1, 0), To: weekStart.AddDate(0, 1, 7)})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !empty.OrderCountChangePct.IsZero() {
		t.Fatalf("two empty periods must read 0%%, got %s", empty.OrderCountChangePct)
	}
}
