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

	"github.com/fleetworks/fleetworks/internal/fleet"
)

// MaintenanceRepository implements fleet.MaintenanceRepository
type MaintenanceRepository struct {
	db *DB
}

// NewMaintenanceRepository creates a new maintenance repository
func NewMaintenanceRepository(db *DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

const maintenanceColumns = `id, machine_id, description, scheduled_at, completed_at, notified, created_at, updated_at`

func scanMaintenance(row pgx.Row) (*fleet.Maintenance, error) {
	var m fleet.Maintenance
	var completedAt sql.NullTime

	err := row.Scan(
		&m.ID, &m.MachineID, &m.Description, &m.ScheduledAt, &completedAt,
		&m.Notified, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		m.CompletedAt = &completedAt.Time
	}

	return &m, nil
}

// Create creates a new maintenance
func (r *MaintenanceRepository) Create(ctx context.Context, m *fleet.Maintenance) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO maintenances (id, machine_id, description, scheduled_at, completed_at, notified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, m.ID, m.MachineID, m.Description, m.ScheduledAt, m.CompletedAt, m.Notified, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert maintenance: %w", err)
	}

	m.CreatedAt = now
	m.UpdatedAt = now

	return nil
}

// GetByID retrieves a maintenance by ID
func (r *MaintenanceRepository) GetByID(ctx context.Context, id string) (*fleet.Maintenance, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+maintenanceColumns+` FROM maintenances WHERE id = $1
	`, id)

	m, err := scanMaintenance(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fleet.ErrMaintenanceNotFound
		}
		return nil, fmt.Errorf("failed to get maintenance: %w", err)
	}

	return m, nil
}

// Update updates maintenance information
func (r *MaintenanceRepository) Update(ctx context.Context, m *fleet.Maintenance) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE maintenances SET
			description = $2,
			scheduled_at = $3,
			completed_at = $4,
			notified = $5,
			updated_at = NOW()
		WHERE id = $1
	`, m.ID, m.Description, m.ScheduledAt, m.CompletedAt, m.Notified)

	if err != nil {
		return fmt.Errorf("failed to update maintenance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fleet.ErrMaintenanceNotFound
	}

	return nil
}

// Delete deletes a maintenance
func (r *MaintenanceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM maintenances WHERE id = $1
	`, id)

	if err != nil {
		return fmt.Errorf("failed to delete maintenance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fleet.ErrMaintenanceNotFound
	}

	return nil
}

// ListByMachine retrieves maintenances for a machine
func (r *MaintenanceRepository) ListByMachine(ctx context.Context, machineID string) ([]*fleet.Maintenance, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+maintenanceColumns+` FROM maintenances
		WHERE machine_id = $1
		ORDER BY scheduled_at
	`, machineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenances by machine: %w", err)
	}
	defer rows.Close()

	return collectMaintenances(rows)
}

// ListByCompany retrieves maintenances across all machines of a company
func (r *MaintenanceRepository) ListByCompany(ctx context.Context, companyID string) ([]*fleet.Maintenance, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT m.id, m.machine_id, m.description, m.scheduled_at, m.completed_at, m.notified, m.created_at, m.updated_at
		FROM maintenances m
		JOIN machines mc ON mc.id = m.machine_id
		WHERE mc.company_id = $1
		ORDER BY m.scheduled_at
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenances by company: %w", err)
	}
	defer rows.Close()

	return collectMaintenances(rows)
}

// ListDueBefore retrieves uncompleted, unreminded maintenances scheduled
// before the deadline. Backed by a partial index on (scheduled_at).
func (r *MaintenanceRepository) ListDueBefore(ctx context.Context, deadline time.Time) ([]*fleet.Maintenance, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+maintenanceColumns+` FROM maintenances
		WHERE scheduled_at <= $1 AND completed_at IS NULL AND notified = FALSE
		ORDER BY scheduled_at
	`, deadline)
	if err != nil {
		return nil, fmt.Errorf("failed to list due maintenances: %w", err)
	}
	defer rows.Close()

	return collectMaintenances(rows)
}

// MarkNotified flags a maintenance as reminded
func (r *MaintenanceRepository) MarkNotified(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE maintenances SET notified = TRUE, updated_at = NOW()
		WHERE id = $1
	`, id)

	if err != nil {
		return fmt.Errorf("failed to mark maintenance notified: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fleet.ErrMaintenanceNotFound
	}

	return nil
}

func collectMaintenances(rows pgx.Rows) ([]*fleet.Maintenance, error) {
	var maintenances []*fleet.Maintenance
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan maintenance: %w", err)
		}
		maintenances = append(maintenances, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate maintenances: %w", err)
	}
	return maintenances, nil
}
