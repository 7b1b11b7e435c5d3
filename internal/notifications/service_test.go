package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"
	pkgerrors "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	stmt := `CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  kind TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  order_id TEXT,
  read_at DATETIME,
  created_at DATETIME
);`
	if err := db.Exec(stmt).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func newNotificationService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedNotification(t *testing.T, db *gorm.DB, userID *uuid.UUID, kind enums.NotificationKind, createdAt time.Time) models.Notification {
	t.Helper()
	row := models.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Kind:    kind,
		Title:   "Order update",
		Message: "seeded",
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed notification: %v", err)
	}
	if err := db.Model(&models.Notification{}).Where("id = ?", row.ID).
		Update("created_at", createdAt).Error; err != nil {
		t.Fatalf("backdate notification: %v", err)
	}
	row.CreatedAt = createdAt
	return row
}

func TestList_ChannelScopingAndCursor(t *testing.T) {
	db := newTestDB(t)
	svc := newNotificationService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	otherID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	for i := 0; i < 5; i++ {
		seedNotification(t, db, &userID, enums.NotificationOrderStatusUpdate, base.Add(time.Duration(i)*time.Minute))
	}
	seedNotification(t, db, &otherID, enums.NotificationOrderStatusUpdate, base)
	seedNotification(t, db, nil, enums.NotificationNewOrderAlert, base)
	seedNotification(t, db, nil, enums.NotificationNewOrderAlert, base.Add(time.Minute))

	t.Run("userSeesOnlyOwnRows", func(t *testing.T) {
		result, err := svc.List(ctx, ListParams{UserID: &userID, Limit: 10})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(result.Items) != 5 {
			t.Fatalf("expected 5 notifications, got %d", len(result.Items))
		}
		for _, item := range result.Items {
			if item.UserID == nil || *item.UserID != userID {
				t.Fatalf("row leaked from another channel: %+v", item)
			}
		}
		if result.Cursor != "" {
			t.Fatalf("expected no cursor, got %q", result.Cursor)
		}
	})

	t.Run("nilUserAddressesOperatorChannel", func(t *testing.T) {
		result, err := svc.List(ctx, ListParams{Limit: 10})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(result.Items) != 2 {
			t.Fatalf("expected 2 operator notifications, got %d", len(result.Items))
		}
		for _, item := range result.Items {
			if item.UserID != nil {
				t.Fatalf("user row in operator channel: %+v", item)
			}
		}
	})

	t.Run("cursorWalksWithoutRepeats", func(t *testing.T) {
		seen := map[uuid.UUID]bool{}
		cursor := ""
		for page := 0; page < 4; page++ {
			result, err := svc.List(ctx, ListParams{UserID: &userID, Limit: 2, Cursor: cursor})
			if err != nil {
				t.Fatalf("page %d: %v", page, err)
			}
			for _, item := range result.Items {
				if seen[item.ID] {
					t.Fatalf("notification %s repeated", item.ID)
				}
				seen[item.ID] = true
			}
			if result.Cursor == "" {
				break
			}
			cursor = result.Cursor
		}
		if len(seen) != 5 {
			t.Fatalf("expected 5 distinct rows across pages, got %d", len(seen))
		}
	})

	t.Run("badCursorRejected", func(t *testing.T) {
		_, err := svc.List(ctx, ListParams{UserID: &userID, Limit: 2, Cursor: "not-a-cursor"})
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestMarkRead(t *testing.T) {
	db := newTestDB(t)
	svc := newNotificationService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	strangerID := uuid.New()
	now := time.Now().UTC()
	row := seedNotification(t, db, &userID, enums.NotificationOrderConfirmation, now)

	t.Run("strangerGetsNotFound", func(t *testing.T) {
		err := svc.MarkRead(ctx, &strangerID, row.ID)
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("ownerMarksRead", func(t *testing.T) {
		if err := svc.MarkRead(ctx, &userID, row.ID); err != nil {
			t.Fatalf("mark read: %v", err)
		}
		var stored models.Notification
		if err := db.First(&stored, "id = ?", row.ID).Error; err != nil {
			t.Fatalf("reload: %v", err)
		}
		if stored.ReadAt == nil {
			t.Fatal("expected read_at to be set")
		}
	})

	t.Run("secondMarkIsIdempotent", func(t *testing.T) {
		if err := svc.MarkRead(ctx, &userID, row.ID); err != nil {
			t.Fatalf("second mark read: %v", err)
		}
	})

	t.Run("unknownIDNotFound", func(t *testing.T) {
		err := svc.MarkRead(ctx, &userID, uuid.New())
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestMarkAllReadAndUnreadCount(t *testing.T) {
	db := newTestDB(t)
	svc := newNotificationService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	now := time.Now().UTC()
	seedNotification(t, db, &userID, enums.NotificationOrderStatusUpdate, now)
	seedNotification(t, db, &userID, enums.NotificationOrderStatusUpdate, now.Add(time.Minute))
	seedNotification(t, db, nil, enums.NotificationNewOrderAlert, now)

	count, err := svc.UnreadCount(ctx, &userID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 unread, got %d", count)
	}

	updated, err := svc.MarkAllRead(ctx, &userID)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 updated, got %d", updated)
	}

	count, err = svc.UnreadCount(ctx, &userID)
	if err != nil {
		t.Fatalf("unread count after: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 unread, got %d", count)
	}

	// Operator channel stays untouched by a user-scoped sweep.
	count, err = svc.UnreadCount(ctx, nil)
	if err != nil {
		t.Fatalf("operator unread count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 operator unread, got %d", count)
	}
}
