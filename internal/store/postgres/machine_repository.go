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
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fleetworks/fleetworks/internal/fleet"
)

// MachineRepository implements fleet.MachineRepository
type MachineRepository struct {
	db *DB
}

// NewMachineRepository creates a new machine repository
func NewMachineRepository(db *DB) *MachineRepository {
	return &MachineRepository{db: db}
}

const machineColumns = `id, company_id, kind, name, serial_number, registration, created_at, updated_at`

func scanMachine(row pgx.Row) (*fleet.Machine, error) {
	var m fleet.Machine
	err := row.Scan(
		&m.ID, &m.CompanyID, &m.Kind, &m.Name, &m.SerialNumber, &m.Registration,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create creates a new machine
func (r *MachineRepository) Create(ctx context.Context, m *fleet.Machine) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO machines (id, company_id, kind, name, serial_number, registration, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, m.ID, m.CompanyID, m.Kind, m.Name, m.SerialNumber, m.Registration, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert machine: %w", err)
	}

	m.CreatedAt = now
	m.UpdatedAt = now

	return nil
}

// GetByID retrieves a machine by ID
func (r *MachineRepository) GetByID(ctx context.Context, id string) (*fleet.Machine, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+machineColumns+` FROM machines WHERE id = $1
	`, id)

	m, err := scanMachine(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fleet.ErrMachineNotFound
		}
		return nil, fmt.Errorf("failed to get machine: %w", err)
	}

	return m, nil
}

// Update updates machine information
func (r *MachineRepository) Update(ctx context.Context, m *fleet.Machine) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE machines SET
			kind = $2,
			name = $3,
			serial_number = $4,
			registration = $5,
			updated_at = NOW()
		WHERE id = $1
	`, m.ID, m.Kind, m.Name, m.SerialNumber, m.Registration)

	if err != nil {
		return fmt.Errorf("failed to update machine: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fleet.ErrMachineNotFound
	}

	return nil
}

// Delete deletes a machine and, via cascade, its maintenances
func (r *MachineRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM machines WHERE id = $1
	`, id)

	if err != nil {
		return fmt.Errorf("failed to delete machine: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fleet.ErrMachineNotFound
	}

	return nil
}

// List retrieves machines with pagination
func (r *MachineRepository) List(ctx context.Context, limit, offset int) ([]*fleet.Machine, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+machineColumns+` FROM machines
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	defer rows.Close()

	return collectMachines(rows)
}

// ListByCompany retrieves machines owned by a company
func (r *MachineRepository) ListByCompany(ctx context.Context, companyID string) ([]*fleet.Machine, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+machineColumns+` FROM machines
		WHERE company_id = $1
		ORDER BY created_at DESC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list machines by company: %w", err)
	}
	defer rows.Close()

	return collectMachines(rows)
}

func collectMachines(rows pgx.Rows) ([]*fleet.Machine, error) {
	var machines []*fleet.Machine
	for rows.Next() {
		m, err := scanMachine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan machine: %w", err)
		}
		machines = append(machines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate machines: %w", err)
	}
	return machines, nil
}
