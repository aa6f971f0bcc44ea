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
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fleetworks/fleetworks/internal/audit"
)

// MockRepository is a simple in-memory implementation of Repository
type MockRepository struct {
	invoices map[string]*Invoice
	counters map[int]int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		invoices: make(map[string]*Invoice),
		counters: make(map[int]int),
	}
}

func (m *MockRepository) Create(ctx context.Context, inv *Invoice) error {
	m.invoices[inv.ID] = inv
	return nil
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	return inv, nil
}

func (m *MockRepository) Update(ctx context.Context, inv *Invoice) error {
	if _, ok := m.invoices[inv.ID]; !ok {
		return ErrInvoiceNotFound
	}
	m.invoices[inv.ID] = inv
	return nil
}

func (m *MockRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.invoices[id]; !ok {
		return ErrInvoiceNotFound
	}
	delete(m.invoices, id)
	return nil
}

func (m *MockRepository) List(ctx context.Context, limit, offset int) ([]*Invoice, error) {
	var out []*Invoice
	for _, inv := range m.invoices {
		out = append(out, inv)
	}
	return out, nil
}

func (m *MockRepository) ListByCompany(ctx context.Context, companyID string) ([]*Invoice, error) {
	var out []*Invoice
	for _, inv := range m.invoices {
		if inv.CompanyID == companyID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *MockRepository) NextNumber(ctx context.Context, year int) (int, error) {
	m.counters[year]++
	return m.counters[year], nil
}

// TestPurpose: Validates invoice issuance, totals, and the yearly number sequence.
// Scope: Unit Test
// Expected: Totals sum quantity times unit price; numbers are sequential within a year; empty invoices are rejected.
// Test Case ID: INV-01
func TestBilling_Service_Issue(t *testing.T) {
	s := NewService(NewMockRepository(), audit.NewSlogLogger(), 30*24*time.Hour)
	ctx := context.Background()

	lines := []LineInput{
		{Description: "Subscription", Quantity: 1, UnitPriceCents: 49900},
		{Description: "Call-out", Quantity: 2, UnitPriceCents: 12500},
	}

	first, err := s.Issue(ctx, "company-1", lines, "admin-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if first.TotalCents != 74900 {
		t.Errorf("expected total 74900, got %d", first.TotalCents)
	}
	if first.Status != StatusIssued {
		t.Errorf("expected status %q, got %q", StatusIssued, first.Status)
	}
	if first.IssuedAt == nil || first.DueAt == nil {
		t.Fatal("issued and due timestamps must be set")
	}
	if !first.DueAt.After(*first.IssuedAt) {
		t.Error("due date must lie after the issue date")
	}

	year := time.Now().Year()
	prefix := fmt.Sprintf("FW-%d-", year)
	if !strings.HasPrefix(first.Number, prefix) {
		t.Errorf("expected number prefix %q, got %q", prefix, first.Number)
	}

	second, err := s.Issue(ctx, "company-1", lines[:1], "admin-1")
	if err != nil {
		t.Fatalf("second issue failed: %v", err)
	}
	if second.Number != fmt.Sprintf("FW-%d-%05d", year, 2) {
		t.Errorf("expected sequential number, got %q", second.Number)
	}

	if _, err := s.Issue(ctx, "company-1", nil, "admin-1"); !errors.Is(err, ErrEmptyInvoice) {
		t.Errorf("expected ErrEmptyInvoice, got %v", err)
	}
	if _, err := s.Issue(ctx, "", lines, "admin-1"); err == nil {
		t.Error("expected error for missing company")
	}
}

// TestPurpose: Validates line item constraints during issuance.
// Scope: Unit Test
// Expected: Empty descriptions, non-positive quantities, and negative prices are rejected.
// Test Case ID: INV-02
func TestBilling_Service_Issue_LineValidation(t *testing.T) {
	s := NewService(NewMockRepository(), audit.NewSlogLogger(), 0)
	ctx := context.Background()

	cases := []LineInput{
		{Description: "", Quantity: 1, UnitPriceCents: 100},
		{Description: "X", Quantity: 0, UnitPriceCents: 100},
		{Description: "X", Quantity: -1, UnitPriceCents: 100},
		{Description: "X", Quantity: 1, UnitPriceCents: -1},
	}
	for i, line := range cases {
		if _, err := s.Issue(ctx, "company-1", []LineInput{line}, "admin-1"); err == nil {
			t.Errorf("case %d: expected validation error for %+v", i, line)
		}
	}
}

// TestPurpose: Validates the status transitions of the invoice lifecycle.
// Scope: Unit Test
// Expected: Issued invoices can be paid or voided once; paid and void invoices are final.
// Test Case ID: INV-03
func TestBilling_Service_StatusTransitions(t *testing.T) {
	s := NewService(NewMockRepository(), audit.NewSlogLogger(), 0)
	ctx := context.Background()

	lines := []LineInput{{Description: "Service", Quantity: 1, UnitPriceCents: 1000}}

	paid, err := s.Issue(ctx, "company-1", lines, "admin-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := s.MarkPaid(ctx, paid.ID); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if _, err := s.MarkPaid(ctx, paid.ID); !errors.Is(err, ErrInvoiceFinalized) {
		t.Errorf("expected ErrInvoiceFinalized for double payment, got %v", err)
	}
	if _, err := s.Void(ctx, paid.ID); !errors.Is(err, ErrInvoiceFinalized) {
		t.Errorf("expected ErrInvoiceFinalized when voiding a paid invoice, got %v", err)
	}

	voided, err := s.Issue(ctx, "company-1", lines, "admin-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := s.Void(ctx, voided.ID); err != nil {
		t.Fatalf("void failed: %v", err)
	}
	if _, err := s.MarkPaid(ctx, voided.ID); !errors.Is(err, ErrInvoiceFinalized) {
		t.Errorf("expected ErrInvoiceFinalized when paying a void invoice, got %v", err)
	}

	if _, err := s.MarkPaid(ctx, "missing"); !errors.Is(err, ErrInvoiceNotFound) {
		t.Errorf("expected ErrInvoiceNotFound, got %v", err)
	}
}
