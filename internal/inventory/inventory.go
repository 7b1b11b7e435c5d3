package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	pkgerrors "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/errors"
)

// ItemRef addresses a stock row: either the product's base stock or one of
// its variants.
type ItemRef struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
}

func (r ItemRef) String() string {
	if r.VariantID != nil {
		return fmt.Sprintf("product %s variant %s", r.ProductID, *r.VariantID)
	}
	return fmt.Sprintf("product %s", r.ProductID)
}

// Line pairs a stock row with a quantity to take or return.
type Line struct {
	Ref ItemRef
	Qty int
}

// Replenishment records a stock row that was topped back up, with the
// resulting count. CrossedZero is set when the row went from empty to
// available, which is what triggers back-in-stock notifications.
type Replenishment struct {
	Ref         ItemRef
	NewStock    int
	CrossedZero bool
}

// Decrement atomically takes stock for every line inside the caller's
// transaction. Each row is decremented with a guarded UPDATE so a concurrent
// checkout can never drive a tracked row negative; any shortfall fails the
// whole batch with a state conflict. Untracked products skip the sufficiency
// guard but their counter still moves.
func Decrement(ctx context.Context, tx *gorm.DB, lines []Line) error {
	for _, line := range lines {
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive for "+line.Ref.String())
		}

		var res *gorm.DB
		if line.Ref.VariantID != nil {
			res = tx.WithContext(ctx).Exec(
				`UPDATE product_variants SET stock_count = stock_count - ?
				 WHERE id = ? AND product_id = ?
				 AND (stock_count >= ? OR EXISTS (
				     SELECT 1 FROM products p WHERE p.id = product_variants.product_id AND NOT p.track_inventory))`,
				line.Qty, *line.Ref.VariantID, line.Ref.ProductID, line.Qty,
			)
		} else {
			res = tx.WithContext(ctx).Exec(
				`UPDATE products SET stock_count = stock_count - ? WHERE id = ? AND (stock_count >= ? OR NOT track_inventory)`,
				line.Qty, line.Ref.ProductID, line.Qty,
			)
		}
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "db: decrement stock")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock for "+line.Ref.String())
		}
	}
	return nil
}

// Restore returns stock for every line inside the caller's transaction and
// reports which rows came back from empty.
func Restore(ctx context.Context, tx *gorm.DB, lines []Line) ([]Replenishment, error) {
	results := make([]Replenishment, 0, len(lines))
	for _, line := range lines {
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive for "+line.Ref.String())
		}

		before, err := currentStock(ctx, tx, line.Ref)
		if err != nil {
			return nil, err
		}

		var res *gorm.DB
		if line.Ref.VariantID != nil {
			res = tx.WithContext(ctx).Exec(
				`UPDATE product_variants SET stock_count = stock_count + ? WHERE id = ? AND product_id = ?`,
				line.Qty, *line.Ref.VariantID, line.Ref.ProductID,
			)
		} else {
			res = tx.WithContext(ctx).Exec(
				`UPDATE products SET stock_count = stock_count + ? WHERE id = ?`,
				line.Qty, line.Ref.ProductID,
			)
		}
		if res.Error != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "db: restore stock")
		}
		if res.RowsAffected == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock row missing for "+line.Ref.String())
		}

		results = append(results, Replenishment{
			Ref:         line.Ref,
			NewStock:    before + line.Qty,
			CrossedZero: before <= 0 && before+line.Qty > 0,
		})
	}
	return results, nil
}

// SetStock overwrites the count for one stock row and reports whether the
// row came back from empty.
func SetStock(ctx context.Context, tx *gorm.DB, ref ItemRef, qty int) (*Replenishment, error) {
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	before, err := currentStock(ctx, tx, ref)
	if err != nil {
		return nil, err
	}

	var res *gorm.DB
	if ref.VariantID != nil {
		res = tx.WithContext(ctx).Exec(
			`UPDATE product_variants SET stock_count = ? WHERE id = ? AND product_id = ?`,
			qty, *ref.VariantID, ref.ProductID,
		)
	} else {
		res = tx.WithContext(ctx).Exec(
			`UPDATE products SET stock_count = ? WHERE id = ?`,
			qty, ref.ProductID,
		)
	}
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "db: set stock")
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock row missing for "+ref.String())
	}

	return &Replenishment{
		Ref:         ref,
		NewStock:    qty,
		CrossedZero: before <= 0 && qty > 0,
	}, nil
}

func currentStock(ctx context.Context, tx *gorm.DB, ref ItemRef) (int, error) {
	var count int
	var err error
	if ref.VariantID != nil {
		err = tx.WithContext(ctx).
			Model(&models.ProductVariant{}).
			Where("id = ? AND product_id = ?", *ref.VariantID, ref.ProductID).
			Pluck("stock_count", &count).
			Error
	} else {
		err = tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", ref.ProductID).
			Pluck("stock_count", &count).
			Error
	}
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: read stock")
	}
	return count, nil
}
