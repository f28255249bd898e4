// Package postgres implements the ledger on PostgreSQL through pgx.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
	"github.com/odyssey-erp/odyssey-mart/internal/platform/db"
)

//go:embed schema.sql
var schema string

// Store persists the ledger in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	opts db.TxOptions
}

// New constructs Store. maxRetries bounds replays after serialization failures.
func New(pool *pgxpool.Pool, maxRetries int) *Store {
	return &Store{pool: pool, opts: db.TxOptions{MaxRetries: maxRetries}}
}

// Migrate creates missing tables and indexes.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ledger/postgres: migrate: %w", err)
	}
	return nil
}

// WithTx executes the callback inside a repeatable-read transaction.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, ledger.Tx) error) error {
	if s == nil || s.pool == nil {
		return errors.New("ledger/postgres: store not initialised")
	}
	return db.WithTx(ctx, s.pool, s.opts, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const productColumns = `id, barcode, name, category_id, stock_quantity, import_price, retail_price, min_stock_level, unit, packing_quantity, description, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (ledger.Product, error) {
	var p ledger.Product
	err := row.Scan(&p.ID, &p.Barcode, &p.Name, &p.CategoryID, &p.StockQuantity, &p.ImportPrice, &p.RetailPrice,
		&p.MinStockLevel, &p.Unit, &p.PackingQuantity, &p.Description, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// LowStockProducts lists active products at or below their reorder level.
func (s *Store) LowStockProducts(ctx context.Context) ([]ledger.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE is_active AND stock_quantity <= min_stock_level ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: low stock: %w", err)
	}
	defer rows.Close()
	var out []ledger.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// StockLogs returns the newest logs of a product first.
func (s *Store) StockLogs(ctx context.Context, productID int64, limit int) ([]ledger.StockLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `SELECT id, product_id, COALESCE(staff_id, 0), change_type, change_quantity, current_stock,
COALESCE(import_receipt_id, 0), COALESCE(invoice_id, 0), COALESCE(return_invoice_id, 0), note, created_at
FROM stock_logs WHERE product_id=$1 ORDER BY id DESC LIMIT $2`, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: stock logs: %w", err)
	}
	defer rows.Close()
	var out []ledger.StockLog
	for rows.Next() {
		var l ledger.StockLog
		var changeType string
		if err := rows.Scan(&l.ID, &l.ProductID, &l.StaffID, &changeType, &l.ChangeQuantity, &l.CurrentStock,
			&l.ImportReceiptID, &l.InvoiceID, &l.ReturnInvoiceID, &l.Note, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.ChangeType = ledger.ChangeType(changeType)
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetInvoice reads an invoice and its lines without locking them.
func (s *Store) GetInvoice(ctx context.Context, id int64) (ledger.Invoice, error) {
	return loadInvoice(ctx, s.pool, id, false)
}

// ReconcileStock compares each product's stock with the sum of its logged changes.
func (s *Store) ReconcileStock(ctx context.Context) ([]ledger.StockDrift, error) {
	rows, err := s.pool.Query(ctx, `SELECT p.id, p.stock_quantity, COALESCE(SUM(l.change_quantity), 0)::BIGINT
FROM products p LEFT JOIN stock_logs l ON l.product_id = p.id
GROUP BY p.id, p.stock_quantity
HAVING p.stock_quantity <> COALESCE(SUM(l.change_quantity), 0)
ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: reconcile: %w", err)
	}
	defer rows.Close()
	var out []ledger.StockDrift
	for rows.Next() {
		var d ledger.StockDrift
		if err := rows.Scan(&d.ProductID, &d.StockQuantity, &d.LoggedQuantity); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
