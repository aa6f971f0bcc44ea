package billing

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrInvoiceNotFound  = errors.New("invoice not found")
	ErrInvoiceFinalized = errors.New("invoice is already finalized")
	ErrEmptyInvoice     = errors.New("invoice requires at least one line item")
)

// Invoice status constants
const (
	StatusDraft  = "draft"
	StatusIssued = "issued"
	StatusPaid   = "paid"
	StatusVoid   = "void"
)

// Invoice represents a bill issued to a company. Amounts are integer cents;
// floating point never touches money.
type Invoice struct {
	ID         string     `json:"id"`
	CompanyID  string     `json:"company_id"`
	Number     string     `json:"number"`
	Status     string     `json:"status"`
	IssuedAt   *time.Time `json:"issued_at,omitempty"`
	DueAt      *time.Time `json:"due_at,omitempty"`
	TotalCents int64      `json:"total_cents"`
	Lines      []LineItem `json:"lines"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// LineItem is one billed position on an invoice
type LineItem struct {
	ID             string `json:"id"`
	InvoiceID      string `json:"invoice_id"`
	Description    string `json:"description"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// Amount returns the line total in cents.
func (l LineItem) Amount() int64 {
	return l.Quantity * l.UnitPriceCents
}

// Repository defines the interface for invoice storage
type Repository interface {
	Create(ctx context.Context, invoice *Invoice) error
	GetByID(ctx context.Context, id string) (*Invoice, error)
	Update(ctx context.Context, invoice *Invoice) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*Invoice, error)
	ListByCompany(ctx context.Context, companyID string) ([]*Invoice, error)

	// NextNumber reserves the next sequential invoice number for a year.
	NextNumber(ctx context.Context, year int) (int, error)
}
