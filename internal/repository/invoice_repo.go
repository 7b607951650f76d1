package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abelcubano/main-project/internal/models"
)

// InvoiceRepository persists invoices and their line items.
type InvoiceRepository interface {
	// ListAll returns the full invoice history, used to build the period
	// ledger at the start of a cycle.
	ListAll(ctx context.Context) ([]*models.Invoice, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	ListItems(ctx context.Context, invoiceID uuid.UUID) ([]*models.InvoiceItem, error)

	// CreateWithItems inserts the invoice and every item in one transaction.
	// IDs and CreatedAt are assigned on the passed structs.
	CreateWithItems(ctx context.Context, inv *models.Invoice, items []*models.InvoiceItem) error

	// ListIncomplete returns pending invoices created before olderThan that
	// have no items.
	ListIncomplete(ctx context.Context, olderThan time.Time) ([]*models.Invoice, error)

	// DeleteIncomplete deletes the invoice only if it is still pending and
	// itemless. It reports whether a row was removed.
	DeleteIncomplete(ctx context.Context, id uuid.UUID) (bool, error)
}

type invoiceRepo struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepository creates a new invoice repository.
func NewInvoiceRepository(pool *pgxpool.Pool) InvoiceRepository {
	return &invoiceRepo{pool: pool}
}

const invoiceColumns = `
	id, user_id, invoice_number, billing_period, status, issue_date, due_date,
	subtotal::text, tax::text, total::text, paid_at, created_at`

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var inv models.Invoice
	var subtotal, tax, total string
	err := row.Scan(
		&inv.ID,
		&inv.UserID,
		&inv.InvoiceNumber,
		&inv.BillingPeriod,
		&inv.Status,
		&inv.IssueDate,
		&inv.DueDate,
		&subtotal,
		&tax,
		&total,
		&inv.PaidAt,
		&inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if inv.Subtotal, err = parseMoney(subtotal); err != nil {
		return nil, err
	}
	if inv.Tax, err = parseMoney(tax); err != nil {
		return nil, err
	}
	if inv.Total, err = parseMoney(total); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepo) listInvoices(ctx context.Context, op, query string, args ...any) ([]*models.Invoice, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return invoices, nil
}

// ListAll returns every invoice.
func (r *invoiceRepo) ListAll(ctx context.Context) ([]*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices ORDER BY created_at, id`
	return r.listInvoices(ctx, "ListAll", query)
}

// GetByID retrieves an invoice by ID.
func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`

	inv, err := scanInvoice(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return inv, nil
}

// ListItems returns the items of an invoice in insertion order.
func (r *invoiceRepo) ListItems(ctx context.Context, invoiceID uuid.UUID) ([]*models.InvoiceItem, error) {
	query := `
		SELECT id, invoice_id, service_id, description, quantity, unit_price::text, total::text
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY seq`

	rows, err := r.pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("ListItems: %w", err)
	}
	defer rows.Close()

	var items []*models.InvoiceItem
	for rows.Next() {
		var item models.InvoiceItem
		var unitPrice, total string
		if err := rows.Scan(
			&item.ID,
			&item.InvoiceID,
			&item.ServiceID,
			&item.Description,
			&item.Quantity,
			&unitPrice,
			&total,
		); err != nil {
			return nil, fmt.Errorf("ListItems: %w", err)
		}
		if item.UnitPrice, err = parseMoney(unitPrice); err != nil {
			return nil, fmt.Errorf("ListItems: %w", err)
		}
		if item.Total, err = parseMoney(total); err != nil {
			return nil, fmt.Errorf("ListItems: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// CreateWithItems inserts the invoice and its items atomically. A failure at
// any point leaves no invoice behind.
func (r *invoiceRepo) CreateWithItems(ctx context.Context, inv *models.Invoice, items []*models.InvoiceItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("CreateWithItems: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}

	invoiceQuery := `
		INSERT INTO invoices (id, user_id, invoice_number, billing_period, status, issue_date, due_date, subtotal, tax, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::text::numeric, $9::text::numeric, $10::text::numeric)
		RETURNING created_at`

	err = tx.QueryRow(ctx, invoiceQuery,
		inv.ID,
		inv.UserID,
		inv.InvoiceNumber,
		inv.BillingPeriod,
		inv.Status,
		inv.IssueDate,
		inv.DueDate,
		formatMoney(inv.Subtotal),
		formatMoney(inv.Tax),
		formatMoney(inv.Total),
	).Scan(&inv.CreatedAt)
	if sentinel := classifyUnique(err); sentinel != nil {
		return fmt.Errorf("CreateWithItems: invoice %s: %w", inv.InvoiceNumber, sentinel)
	}
	if err != nil {
		return fmt.Errorf("CreateWithItems: insert invoice: %w", err)
	}

	itemQuery := `
		INSERT INTO invoice_items (id, invoice_id, service_id, description, quantity, unit_price, total)
		VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7::text::numeric)`

	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.InvoiceID = inv.ID
		if _, err := tx.Exec(ctx, itemQuery,
			item.ID,
			item.InvoiceID,
			item.ServiceID,
			item.Description,
			item.Quantity,
			formatMoney(item.UnitPrice),
			formatMoney(item.Total),
		); err != nil {
			return fmt.Errorf("CreateWithItems: insert item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("CreateWithItems: commit: %w", err)
	}
	return nil
}

// ListIncomplete returns stale pending invoices without items.
func (r *invoiceRepo) ListIncomplete(ctx context.Context, olderThan time.Time) ([]*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices i
		WHERE i.status = $1
		  AND i.created_at < $2
		  AND NOT EXISTS (SELECT 1 FROM invoice_items it WHERE it.invoice_id = i.id)
		ORDER BY i.created_at`
	return r.listInvoices(ctx, "ListIncomplete", query, models.InvoiceStatusPending, olderThan)
}

// DeleteIncomplete removes a pending, itemless invoice.
func (r *invoiceRepo) DeleteIncomplete(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		DELETE FROM invoices i
		WHERE i.id = $1
		  AND i.status = $2
		  AND NOT EXISTS (SELECT 1 FROM invoice_items it WHERE it.invoice_id = i.id)`

	tag, err := r.pool.Exec(ctx, query, id, models.InvoiceStatusPending)
	if err != nil {
		return false, fmt.Errorf("DeleteIncomplete: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
