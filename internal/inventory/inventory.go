// Package inventory keeps local stock counts consistent with fulfilled
// orders.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/punchamoorthee/checkoutops/internal/domain"
	"github.com/punchamoorthee/checkoutops/internal/obs"
	"github.com/punchamoorthee/checkoutops/internal/store"
)

// DefaultLowStockThreshold is the level at or below which a low-stock
// warning is emitted.
const DefaultLowStockThreshold = 5

const defaultProductType = "total_essential"

// Reconciler applies order line items and operational corrections to the
// inventory store. Each item is its own unit of work; a failure on one
// item is logged and skipped while the rest proceed.
type Reconciler struct {
	store     store.InventoryStore
	threshold int
}

// New builds a reconciler over st with the given low-stock threshold.
func New(st store.InventoryStore, threshold int) *Reconciler {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return &Reconciler{store: st, threshold: threshold}
}

// CheckAvailability verifies that every line item can be satisfied from
// current stock. All items are checked so the caller gets the full set of
// shortfalls in one pass.
func (r *Reconciler) CheckAvailability(ctx context.Context, items []domain.LineItem) (bool, []string) {
	var issues []string
	for _, item := range items {
		lvl, err := r.store.GetLevelByProduct(ctx, item.ProductName, productType(item))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				issues = append(issues, fmt.Sprintf("Product %q not found in inventory", item.ProductName))
				continue
			}
			issues = append(issues, fmt.Sprintf("Error checking inventory for %q", item.ProductName))
			continue
		}
		if lvl.CurrentStock < item.Quantity {
			issues = append(issues, fmt.Sprintf("Insufficient stock for %q: %d requested, %d available",
				item.ProductName, item.Quantity, lvl.CurrentStock))
		}
	}
	return len(issues) == 0, issues
}

// ApplyDecrement reduces stock for each fulfilled line item. Stock is
// clamped at zero. Returns false only if no item could be processed at
// all; partial application is the expected mode under faults.
func (r *Reconciler) ApplyDecrement(ctx context.Context, items []domain.LineItem) bool {
	applied := 0
	for _, item := range items {
		lvl, err := r.store.GetLevelByProduct(ctx, item.ProductName, productType(item))
		if err != nil {
			obs.Logger.Warn("inventory_item_skipped", "product", item.ProductName, "error", err.Error())
			continue
		}

		next := lvl.CurrentStock - item.Quantity
		clamped := clampStock(next)
		if err := r.store.SetStock(ctx, lvl.PackageID, clamped); err != nil {
			obs.Logger.Error("inventory_update_failed", "product", item.ProductName, "error", err.Error())
			continue
		}
		applied++

		obs.Logger.Info("inventory_updated",
			"product", item.ProductName,
			"decremented_by", item.Quantity,
			"new_stock", clamped,
		)
		r.warnLevels(item.ProductName, next)
	}
	return applied > 0 || len(items) == 0
}

// BulkAdjust applies add/subtract/set corrections. Each operation is
// validated and applied independently; errors are itemised, not fatal.
func (r *Reconciler) BulkAdjust(ctx context.Context, ops []domain.StockOperation) (bool, []string) {
	var errs []string
	for _, op := range ops {
		lvl, err := r.store.GetLevelByID(ctx, op.PackageID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				errs = append(errs, fmt.Sprintf("Package not found: %s", op.PackageID))
			} else {
				errs = append(errs, fmt.Sprintf("Error reading package %s", op.PackageID))
			}
			continue
		}

		var next int
		switch op.Operation {
		case domain.StockAdd:
			next = lvl.CurrentStock + op.Quantity
		case domain.StockSubtract:
			next = clampStock(lvl.CurrentStock - op.Quantity)
		case domain.StockSet:
			next = clampStock(op.Quantity)
		default:
			errs = append(errs, fmt.Sprintf("Invalid operation: %s", op.Operation))
			continue
		}

		if err := r.store.SetStock(ctx, op.PackageID, next); err != nil {
			errs = append(errs, fmt.Sprintf("Error updating package %s", op.PackageID))
			continue
		}
		obs.Logger.Info("stock_adjusted",
			"package_id", op.PackageID,
			"operation", op.Operation,
			"quantity", op.Quantity,
			"new_stock", next,
		)
		r.warnLevels(lvl.ProductName, next)
	}
	return len(errs) == 0, errs
}

// Levels reports the stock position of every active package.
func (r *Reconciler) Levels(ctx context.Context) ([]domain.InventoryLevel, error) {
	return r.store.ActiveLevels(ctx)
}

func (r *Reconciler) warnLevels(product string, level int) {
	if level <= 0 {
		obs.Logger.Error("out_of_stock", "product", product)
		return
	}
	if level <= r.threshold {
		obs.Logger.Warn("low_stock", "product", product, "remaining", level)
	}
}

func clampStock(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func productType(item domain.LineItem) string {
	if item.ProductType != "" {
		return item.ProductType
	}
	return defaultProductType
}
