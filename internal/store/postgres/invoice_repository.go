// Copyright 2026 The FleetWorks Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fleetworks/fleetworks/internal/billing"
)

// InvoiceRepository implements billing.Repository
type InvoiceRepository struct {
	db *DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `id, company_id, number, status, issued_at, due_at, total_cents, created_at, updated_at`

func scanInvoice(row pgx.Row) (*billing.Invoice, error) {
	var inv billing.Invoice
	var issuedAt, dueAt sql.NullTime

	err := row.Scan(
		&inv.ID, &inv.CompanyID, &inv.Number, &inv.Status, &issuedAt, &dueAt,
		&inv.TotalCents, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if issuedAt.Valid {
		inv.IssuedAt = &issuedAt.Time
	}
	if dueAt.Valid {
		inv.DueAt = &dueAt.Time
	}

	return &inv, nil
}

// Create creates an invoice together with its line items in one transaction
func (r *InvoiceRepository) Create(ctx context.Context, inv *billing.Invoice) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	_, err = tx.Exec(ctx, `
		INSERT INTO invoices (id, company_id, number, status, issued_at, due_at, total_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, inv.ID, inv.CompanyID, inv.Number, inv.Status, inv.IssuedAt, inv.DueAt, inv.TotalCents, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}

	for _, line := range inv.Lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO invoice_line_items (id, invoice_id, description, quantity, unit_price_cents)
			VALUES ($1, $2, $3, $4, $5)
		`, line.ID, inv.ID, line.Description, line.Quantity, line.UnitPriceCents)
		if err != nil {
			return fmt.Errorf("failed to insert line item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit invoice: %w", err)
	}

	inv.CreatedAt = now
	inv.UpdatedAt = now

	return nil
}

// GetByID retrieves an invoice with its line items
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*billing.Invoice, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+invoiceColumns+` FROM invoices WHERE id = $1
	`, id)

	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, billing.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if err := r.loadLines(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func (r *InvoiceRepository) loadLines(ctx context.Context, inv *billing.Invoice) error {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit_price_cents
		FROM invoice_line_items
		WHERE invoice_id = $1
		ORDER BY id
	`, inv.ID)
	if err != nil {
		return fmt.Errorf("failed to load line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line billing.LineItem
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.Description, &line.Quantity, &line.UnitPriceCents); err != nil {
			return fmt.Errorf("failed to scan line item: %w", err)
		}
		inv.Lines = append(inv.Lines, line)
	}
	return rows.Err()
}

// Update updates invoice status and totals. Line items are immutable once
// the invoice exists.
func (r *InvoiceRepository) Update(ctx context.Context, inv *billing.Invoice) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE invoices SET
			status = $2,
			issued_at = $3,
			due_at = $4,
			total_cents = $5,
			updated_at = NOW()
		WHERE id = $1
	`, inv.ID, inv.Status, inv.IssuedAt, inv.DueAt, inv.TotalCents)

	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}

	if result.RowsAffected() == 0 {
		return billing.ErrInvoiceNotFound
	}

	return nil
}

// Delete deletes an invoice and, via cascade, its line items
func (r *InvoiceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM invoices WHERE id = $1
	`, id)

	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}

	if result.RowsAffected() == 0 {
		return billing.ErrInvoiceNotFound
	}

	return nil
}

// List retrieves invoices with pagination, without line items
func (r *InvoiceRepository) List(ctx context.Context, limit, offset int) ([]*billing.Invoice, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	return collectInvoices(rows)
}

// ListByCompany retrieves invoices issued to a company, without line items
func (r *InvoiceRepository) ListByCompany(ctx context.Context, companyID string) ([]*billing.Invoice, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE company_id = $1
		ORDER BY created_at DESC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices by company: %w", err)
	}
	defer rows.Close()

	return collectInvoices(rows)
}

// NextNumber reserves the next sequential invoice number for a year. The
// upsert takes a row lock so concurrent issuers never see the same number.
func (r *InvoiceRepository) NextNumber(ctx context.Context, year int) (int, error) {
	var next int
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO invoice_counters (year, last_number)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_number = invoice_counters.last_number + 1
		RETURNING last_number
	`, year).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve invoice number: %w", err)
	}
	return next, nil
}

func collectInvoices(rows pgx.Rows) ([]*billing.Invoice, error) {
	var invoices []*billing.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoices: %w", err)
	}
	return invoices, nil
}
