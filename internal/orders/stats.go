package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/errors"
)

// StatsPeriod bounds a reporting window. To is exclusive.
type StatsPeriod struct {
	From time.Time
	To   time.Time
}

// StatsDTO summarizes order volume for a period against the preceding period
// of equal length.
type StatsDTO struct {
	From                time.Time        `json:"from"`
	To                  time.Time        `json:"to"`
	OrderCount          int64            `json:"order_count"`
	ItemCount           int64            `json:"item_count"`
	RevenueCents        int64            `json:"revenue_cents"`
	AvgOrderValueCents  int64            `json:"avg_order_value_cents"`
	OrderCountChangePct decimal.Decimal  `json:"order_count_change_pct"`
	RevenueChangePct    decimal.Decimal  `json:"revenue_change_pct"`
	ByStatus            map[string]int64 `json:"by_status"`
}

// Stats aggregates the window and compares it to the previous window of the
// same length.
func (s *service) Stats(ctx context.Context, period StatsPeriod) (*StatsDTO, error) {
	if !period.To.After(period.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stats period end must be after start")
	}

	current, err := s.repo.PeriodTotals(ctx, period.From, period.To)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: period totals")
	}

	span := period.To.Sub(period.From)
	previous, err := s.repo.PeriodTotals(ctx, period.From.Add(-span), period.From)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: previous period totals")
	}

	byStatus, err := s.repo.CountByStatus(ctx, period.From, period.To)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count by status")
	}
	statusCounts := make(map[string]int64, len(byStatus))
	for status, count := range byStatus {
		statusCounts[status.String()] = count
	}

	dto := &StatsDTO{
		From:                period.From,
		To:                  period.To,
		OrderCount:          current.OrderCount,
		ItemCount:           current.ItemCount,
		RevenueCents:        current.RevenueCents,
		OrderCountChangePct: changePct(current.OrderCount, previous.OrderCount),
		RevenueChangePct:    changePct(current.RevenueCents, previous.RevenueCents),
		ByStatus:            statusCounts,
	}
	if current.OrderCount > 0 {
		dto.AvgOrderValueCents = decimal.NewFromInt(current.RevenueCents).
			Div(decimal.NewFromInt(current.OrderCount)).
			Round(0).
			IntPart()
	}
	return dto, nil
}

// changePct returns the percentage change from previous to current. An empty
// previous period with any current activity reads as +100%.
func changePct(current, previous int64) decimal.Decimal {
	if previous == 0 {
		if current == 0 {
			return decimal.Zero
		}
		return decimal.NewFromInt(100)
	}
	return decimal.NewFromInt(current - previous).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(previous)).
		Round(2)
}
