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

package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetworks/fleetworks/internal/audit"
	"github.com/fleetworks/fleetworks/internal/id"
)

// Service provides invoicing business logic
type Service struct {
	repo        Repository
	auditLogger audit.Logger
	dueTerm     time.Duration
}

// NewService creates a new billing service
func NewService(repo Repository, auditLogger audit.Logger, dueTerm time.Duration) *Service {
	if dueTerm <= 0 {
		dueTerm = 30 * 24 * time.Hour
	}
	return &Service{
		repo:        repo,
		auditLogger: auditLogger,
		dueTerm:     dueTerm,
	}
}

// LineInput describes one position when creating an invoice
type LineInput struct {
	Description    string `json:"description"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// Issue creates and finalizes an invoice for a company in one step. The
// invoice number is sequential per year: FW-<year>-<seq>.
func (s *Service) Issue(ctx context.Context, companyID string, lines []LineInput, actorID string) (*Invoice, error) {
	if companyID == "" {
		return nil, fmt.Errorf("company id is required")
	}
	if len(lines) == 0 {
		return nil, ErrEmptyInvoice
	}

	now := time.Now()
	seq, err := s.repo.NextNumber(ctx, now.Year())
	if err != nil {
		return nil, fmt.Errorf("failed to reserve invoice number: %w", err)
	}

	inv := &Invoice{
		ID:        id.NewUUIDv7(),
		CompanyID: companyID,
		Number:    fmt.Sprintf("FW-%d-%05d", now.Year(), seq),
		Status:    StatusIssued,
		IssuedAt:  &now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	due := now.Add(s.dueTerm)
	inv.DueAt = &due

	for _, line := range lines {
		if line.Description == "" {
			return nil, fmt.Errorf("line item description is required")
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("line item quantity must be positive")
		}
		if line.UnitPriceCents < 0 {
			return nil, fmt.Errorf("line item price must not be negative")
		}
		item := LineItem{
			ID:             id.NewUUIDv7(),
			InvoiceID:      inv.ID,
			Description:    line.Description,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		}
		inv.Lines = append(inv.Lines, item)
		inv.TotalCents += item.Amount()
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeInvoiceIssued,
		CompanyID: companyID,
		ActorID:   actorID,
		Resource:  inv.Number,
		Metadata:  map[string]any{"total_cents": inv.TotalCents},
	})

	return inv, nil
}

// Get retrieves an invoice by ID
func (s *Service) Get(ctx context.Context, invoiceID string) (*Invoice, error) {
	return s.repo.GetByID(ctx, invoiceID)
}

// List lists invoices across all companies
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Invoice, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, limit, offset)
}

// ListByCompany lists a company's invoices
func (s *Service) ListByCompany(ctx context.Context, companyID string) ([]*Invoice, error) {
	return s.repo.ListByCompany(ctx, companyID)
}

// MarkPaid records payment of an issued invoice
func (s *Service) MarkPaid(ctx context.Context, invoiceID string) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusIssued {
		return nil, fmt.Errorf("%w: status %s", ErrInvoiceFinalized, inv.Status)
	}
	inv.Status = StatusPaid
	inv.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	return inv, nil
}

// Void cancels an invoice that was issued in error
func (s *Service) Void(ctx context.Context, invoiceID string) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == StatusPaid || inv.Status == StatusVoid {
		return nil, fmt.Errorf("%w: status %s", ErrInvoiceFinalized, inv.Status)
	}
	inv.Status = StatusVoid
	inv.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to void invoice: %w", err)
	}
	return inv, nil
}
