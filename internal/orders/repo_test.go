package orders

import (
	"context"
	"testing"
	"time"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/pagination"
)

func TestList_FiltersAndCursor(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		status := enums.OrderStatusPending
		if i%2 == 1 {
			status = enums.OrderStatusDelivered
		}
		seedOrder(t, db, orderSeed{
			userID:    alice.ID,
			status:    status,
			total:     100000,
			createdAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	seedOrder(t, db, orderSeed{
		userID:    bob.ID,
		status:    enums.OrderStatusPending,
		total:     50000,
		createdAt: base.Add(time.Hour),
	})

	t.Run("listByUserScopes", func(t *testing.T) {
		page, err := repo.ListByUser(ctx, alice.ID, pagination.Params{Limit: 10}, ListFilters{})
		if err != nil {
			t.Fatalf("list by user: %v", err)
		}
		if len(page.Orders) != 5 {
			t.Fatalf("expected 5 orders for alice, got %d", len(page.Orders))
		}
		for _, order := range page.Orders {
			if order.UserID != alice.ID {
				t.Fatalf("order %s belongs to %s", order.OrderNumber, order.UserID)
			}
		}
	})

	t.Run("statusFilter", func(t *testing.T) {
		status := enums.OrderStatusDelivered
		page, err := repo.List(ctx, pagination.Params{Limit: 10}, ListFilters{Status: &status})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(page.Orders) != 2 {
			t.Fatalf("expected 2 delivered orders, got %d", len(page.Orders))
		}
	})

	t.Run("dateWindow", func(t *testing.T) {
		from := base.Add(2 * time.Minute)
		to := base.Add(30 * time.Minute)
		page, err := repo.List(ctx, pagination.Params{Limit: 10}, ListFilters{From: &from, To: &to})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(page.Orders) != 3 {
			t.Fatalf("expected 3 orders in window, got %d", len(page.Orders))
		}
	})

	t.Run("cursorPagination", func(t *testing.T) {
		seen := map[string]bool{}
		cursor := ""
		for {
			page, err := repo.List(ctx, pagination.Params{Limit: 2, Cursor: cursor}, ListFilters{})
			if err != nil {
				t.Fatalf("list page: %v", err)
			}
			for _, order := range page.Orders {
				if seen[order.OrderNumber] {
					t.Fatalf("order %s returned twice", order.OrderNumber)
				}
				seen[order.OrderNumber] = true
			}
			if page.NextCursor == "" {
				break
			}
			cursor = page.NextCursor
		}
		if len(seen) != 6 {
			t.Fatalf("expected 6 orders across pages, got %d", len(seen))
		}
	})
}

func TestFindByNumber_Normalizes(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "carol@example.com")
	order := seedOrder(t, db, orderSeed{userID: user.ID, status: enums.OrderStatusPending, total: 75000})

	found, err := repo.FindByNumber(ctx, "  "+order.OrderNumber+"  ")
	if err != nil {
		t.Fatalf("find by number: %v", err)
	}
	if found.ID != order.ID {
		t.Fatalf("expected order %s, got %s", order.ID, found.ID)
	}
}

func TestPeriodTotals_ExcludesCancelledAndReturned(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "dave@example.com")
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	seedOrder(t, db, orderSeed{
		userID: user.ID, status: enums.OrderStatusDelivered, total: 100000, createdAt: base,
		items: []models.OrderItem{
			{ProductID: seedOrderProduct(t, db, 10).ID, Name: "Basmati Rice", UnitPriceCents: 50000, Quantity: 2, LineTotalCents: 100000},
		},
	})
	seedOrder(t, db, orderSeed{
		userID: user.ID, status: enums.OrderStatusPending, total: 60000, createdAt: base.Add(time.Hour),
		items: []models.OrderItem{
			{ProductID: seedOrderProduct(t, db, 10).ID, Name: "Basmati Rice", UnitPriceCents: 20000, Quantity: 3, LineTotalCents: 60000},
		},
	})
	seedOrder(t, db, orderSeed{userID: user.ID, status: enums.OrderStatusCancelled, total: 999999, createdAt: base.Add(2 * time.Hour)})
	seedOrder(t, db, orderSeed{userID: user.ID, status: enums.OrderStatusReturned, total: 888888, createdAt: base.Add(3 * time.Hour)})

	totals, err := repo.PeriodTotals(ctx, base, base.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("period totals: %v", err)
	}
	if totals.OrderCount != 2 {
		t.Fatalf("expected 2 revenue orders, got %d", totals.OrderCount)
	}
	if totals.RevenueCents != 160000 {
		t.Fatalf("expected revenue 160000, got %d", totals.RevenueCents)
	}
	if totals.ItemCount != 5 {
		t.Fatalf("expected 5 items, got %d", totals.ItemCount)
	}
}

func TestCountByStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "erin@example.com")
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedOrder(t, db, orderSeed{userID: user.ID, status: enums.OrderStatusPending, total: 10000, createdAt: base})
	}
	seedOrder(t, db, orderSeed{userID: user.ID, status: enums.OrderStatusDelivered, total: 10000, createdAt: base})

	counts, err := repo.CountByStatus(ctx, base, base.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("count by status: %v", err)
	}
	if counts[enums.OrderStatusPending] != 3 {
		t.Fatalf("expected 3 pending, got %d", counts[enums.OrderStatusPending])
	}
	if counts[enums.OrderStatusDelivered] != 1 {
		t.Fatalf("expected 1 delivered, got %d", counts[enums.OrderStatusDelivered])
	}
}
