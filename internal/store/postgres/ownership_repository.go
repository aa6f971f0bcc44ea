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
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fleetworks/fleetworks/internal/auth"
)

// OwnershipRepository implements auth.OwnershipStore with single-column
// lookups. It is read-only and safe for concurrent use.
type OwnershipRepository struct {
	db *DB
}

// NewOwnershipRepository creates a new ownership repository
func NewOwnershipRepository(db *DB) *OwnershipRepository {
	return &OwnershipRepository{db: db}
}

// MachineCompany returns the company owning the machine
func (r *OwnershipRepository) MachineCompany(ctx context.Context, machineID string) (string, error) {
	var companyID string
	err := r.db.pool.QueryRow(ctx, `
		SELECT company_id FROM machines WHERE id = $1
	`, machineID).Scan(&companyID)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", auth.ErrOwnerNotFound
		}
		return "", fmt.Errorf("failed to resolve machine owner: %w", err)
	}

	return companyID, nil
}

// MaintenanceMachine returns the machine a maintenance belongs to
func (r *OwnershipRepository) MaintenanceMachine(ctx context.Context, maintenanceID string) (string, error) {
	var machineID string
	err := r.db.pool.QueryRow(ctx, `
		SELECT machine_id FROM maintenances WHERE id = $1
	`, maintenanceID).Scan(&machineID)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", auth.ErrOwnerNotFound
		}
		return "", fmt.Errorf("failed to resolve maintenance machine: %w", err)
	}

	return machineID, nil
}

// InvoiceCompany returns the company an invoice was issued to
func (r *OwnershipRepository) InvoiceCompany(ctx context.Context, invoiceID string) (string, error) {
	var companyID string
	err := r.db.pool.QueryRow(ctx, `
		SELECT company_id FROM invoices WHERE id = $1
	`, invoiceID).Scan(&companyID)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", auth.ErrOwnerNotFound
		}
		return "", fmt.Errorf("failed to resolve invoice owner: %w", err)
	}

	return companyID, nil
}
