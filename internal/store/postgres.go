package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/punchamoorthee/checkoutops/internal/domain"
	"github.com/punchamoorthee/checkoutops/internal/obs"
)

// ErrNotFound is the distinguished result for a missing row; callers treat
// it as a normal outcome, not a fault.
var ErrNotFound = errors.New("record not found")

// OrderStore is the capability the verifier and handlers use to read and
// update local order/session rows.
type OrderStore interface {
	GetOrderBySession(ctx context.Context, sessionID string) (*domain.OrderRecord, error)
	GetSessionRecord(ctx context.Context, sessionID string) (*domain.SessionRecord, error)
	MarkOrderPaid(ctx context.Context, sessionID string) error
}

// InventoryStore is the capability the reconciler uses to read and write
// stock levels.
type InventoryStore interface {
	GetLevelByProduct(ctx context.Context, productName, productType string) (*domain.InventoryLevel, error)
	GetLevelByID(ctx context.Context, packageID string) (*domain.InventoryLevel, error)
	SetStock(ctx context.Context, packageID string, quantity int) error
	ActiveLevels(ctx context.Context) ([]domain.InventoryLevel, error)
}

// Store implements OrderStore and InventoryStore over Postgres.
type Store struct {
	Db *pgxpool.Pool

	lowStockThreshold int
}

// New parses connString, opens a pool and verifies connectivity.
func New(connString string, lowStockThreshold int) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{Db: pool, lowStockThreshold: lowStockThreshold}, nil
}

func (s *Store) Close() {
	s.Db.Close()
}

// GetOrderBySession retrieves the order row created at checkout initiation,
// including its line items.
func (s *Store) GetOrderBySession(ctx context.Context, sessionID string) (*domain.OrderRecord, error) {
	var o domain.OrderRecord
	err := s.Db.QueryRow(ctx,
		"SELECT id, session_id, order_number, amount, currency, status, customer_email, created_at FROM orders WHERE session_id = $1",
		sessionID).Scan(&o.ID, &o.SessionID, &o.OrderNumber, &o.Amount, &o.Currency, &o.Status, &o.Email, &o.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("order lookup failed: %w", err)
	}

	rows, err := s.Db.Query(ctx,
		"SELECT product_name, product_type, quantity, unit_price FROM order_items WHERE order_id = $1 ORDER BY id",
		o.ID)
	if err != nil {
		return nil, fmt.Errorf("order items lookup failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var li domain.LineItem
		if err := rows.Scan(&li.ProductName, &li.ProductType, &li.Quantity, &li.UnitPrice); err != nil {
			obs.Logger.Warn("order_item_scan_error", "order_id", o.ID, "error", err.Error())
			continue
		}
		o.LineItems = append(o.LineItems, li)
	}
	return &o, nil
}

// GetSessionRecord retrieves the local bookkeeping row for a session.
func (s *Store) GetSessionRecord(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	var rec domain.SessionRecord
	err := s.Db.QueryRow(ctx,
		"SELECT session_id, COALESCE(user_id, ''), status, amount, created_at FROM checkout_sessions WHERE session_id = $1",
		sessionID).Scan(&rec.SessionID, &rec.UserID, &rec.Status, &rec.Amount, &rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}
	return &rec, nil
}

// MarkOrderPaid flips the order row to paid once verification confirms the
// payment. Rows are never deleted by this subsystem.
func (s *Store) MarkOrderPaid(ctx context.Context, sessionID string) error {
	tag, err := s.Db.Exec(ctx,
		"UPDATE orders SET status = 'paid', updated_at = now() WHERE session_id = $1 AND status <> 'paid'",
		sessionID)
	if err != nil {
		return fmt.Errorf("order update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already paid, or no local row yet (gateway callback may land
		// first). Either way nothing to do.
		return nil
	}
	return nil
}

// GetLevelByProduct looks up stock by product identity.
func (s *Store) GetLevelByProduct(ctx context.Context, productName, productType string) (*domain.InventoryLevel, error) {
	var lvl domain.InventoryLevel
	err := s.Db.QueryRow(ctx,
		"SELECT id, product_name, product_type, stock_quantity FROM packages WHERE product_name = $1 AND product_type = $2",
		productName, productType).Scan(&lvl.PackageID, &lvl.ProductName, &lvl.ProductType, &lvl.CurrentStock)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("package lookup failed: %w", err)
	}
	lvl.IsLowStock = lvl.CurrentStock <= s.lowStockThreshold
	return &lvl, nil
}

// GetLevelByID looks up stock by package id.
func (s *Store) GetLevelByID(ctx context.Context, packageID string) (*domain.InventoryLevel, error) {
	var lvl domain.InventoryLevel
	err := s.Db.QueryRow(ctx,
		"SELECT id, product_name, product_type, stock_quantity FROM packages WHERE id = $1",
		packageID).Scan(&lvl.PackageID, &lvl.ProductName, &lvl.ProductType, &lvl.CurrentStock)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("package lookup failed: %w", err)
	}
	lvl.IsLowStock = lvl.CurrentStock <= s.lowStockThreshold
	return &lvl, nil
}

// SetStock writes an absolute stock quantity. Callers clamp at zero before
// calling; the CHECK constraint on the column is the backstop.
func (s *Store) SetStock(ctx context.Context, packageID string, quantity int) error {
	tag, err := s.Db.Exec(ctx,
		"UPDATE packages SET stock_quantity = $1, updated_at = now() WHERE id = $2",
		quantity, packageID)
	if err != nil {
		return fmt.Errorf("stock update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveLevels lists stock for all active packages, ordered by name.
func (s *Store) ActiveLevels(ctx context.Context) ([]domain.InventoryLevel, error) {
	rows, err := s.Db.Query(ctx,
		"SELECT id, product_name, product_type, stock_quantity FROM packages WHERE is_active ORDER BY product_name")
	if err != nil {
		return nil, fmt.Errorf("inventory query failed: %w", err)
	}
	defer rows.Close()

	var levels []domain.InventoryLevel
	for rows.Next() {
		var lvl domain.InventoryLevel
		if err := rows.Scan(&lvl.PackageID, &lvl.ProductName, &lvl.ProductType, &lvl.CurrentStock); err != nil {
			obs.Logger.Warn("inventory_scan_error", "error", err.Error())
			continue
		}
		lvl.IsLowStock = lvl.CurrentStock <= s.lowStockThreshold
		levels = append(levels, lvl)
	}
	return levels, nil
}
