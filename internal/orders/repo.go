package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/pagination"
)

// repository is the GORM-backed order store.
type repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// Create inserts the order with its line items.
func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID loads an order with its items.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByNumber loads an order by its customer-facing number.
func (r *repository) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "order_number = ?", strings.ToUpper(strings.TrimSpace(orderNumber))).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser returns the user's orders, newest first.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	return r.list(ctx, params, filters, &userID)
}

// List returns all orders for the admin panel.
func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	return r.list(ctx, params, filters, nil)
}

func (r *repository) list(ctx context.Context, params pagination.Params, filters ListFilters, userID *uuid.UUID) (*OrderList, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Preload("Items")

	if userID != nil {
		qb = qb.Where("user_id = ?", *userID)
	}
	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	}
	if filters.PaymentMethod != nil {
		qb = qb.Where("payment_method = ?", *filters.PaymentMethod)
	}
	if filters.From != nil {
		qb = qb.Where("created_at >= ?", *filters.From)
	}
	if filters.To != nil {
		qb = qb.Where("created_at < ?", *filters.To)
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		qb = qb.Where("order_number LIKE ?", "%"+strings.ToUpper(search)+"%")
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var records []models.Order
	err = qb.Order("created_at DESC").
		Order("id DESC").
		Limit(limitWithBuffer).
		Find(&records).
		Error
	if err != nil {
		return nil, err
	}

	rows := records
	nextCursor := ""
	if len(records) > pageSize {
		rows = records[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &OrderList{Orders: rows, NextCursor: nextCursor}, nil
}

// UpdateStatus applies a column map to one order row.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountByStatus groups order counts over a creation window.
func (r *repository) CountByStatus(ctx context.Context, from, to time.Time) (map[enums.OrderStatus]int64, error) {
	type row struct {
		Status enums.OrderStatus
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("status").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}

	out := make(map[enums.OrderStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

// PeriodTotals sums the revenue-bearing orders in a creation window.
func (r *repository) PeriodTotals(ctx context.Context, from, to time.Time) (*PeriodTotals, error) {
	type row struct {
		OrderCount   int64
		ItemCount    int64
		RevenueCents int64
	}
	var result row
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select(`COUNT(*) AS order_count,
			COALESCE(SUM((SELECT SUM(quantity) FROM order_items WHERE order_items.order_id = orders.id)), 0) AS item_count,
			COALESCE(SUM(total_cents), 0) AS revenue_cents`).
		Where("created_at >= ? AND created_at < ?", from, to).
		Where("status NOT IN ?", []enums.OrderStatus{enums.OrderStatusCancelled, enums.OrderStatusReturned}).
		Scan(&result).
		Error
	if err != nil {
		return nil, err
	}
	return &PeriodTotals{OrderCount: result.OrderCount, ItemCount: result.ItemCount, RevenueCents: result.RevenueCents}, nil
}
