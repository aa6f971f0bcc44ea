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

	"github.com/fleetworks/fleetworks/internal/company"
)

// CompanyRepository implements company.Repository
type CompanyRepository struct {
	db *DB
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// Create creates a new company
func (r *CompanyRepository) Create(ctx context.Context, c *company.Company) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO companies (id, name, contact_email, contact_phone, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.Name, c.ContactEmail, c.ContactPhone, c.Status, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert company: %w", err)
	}

	c.CreatedAt = now
	c.UpdatedAt = now

	return nil
}

// GetByID retrieves a company by ID
func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*company.Company, error) {
	var c company.Company
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, contact_email, contact_phone, status, created_at, updated_at
		FROM companies
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.ContactEmail, &c.ContactPhone, &c.Status, &c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, company.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	return &c, nil
}

// GetByName retrieves a company by name
func (r *CompanyRepository) GetByName(ctx context.Context, name string) (*company.Company, error) {
	var c company.Company
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, contact_email, contact_phone, status, created_at, updated_at
		FROM companies
		WHERE name = $1
	`, name).Scan(&c.ID, &c.Name, &c.ContactEmail, &c.ContactPhone, &c.Status, &c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, company.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	return &c, nil
}

// Update updates company information
func (r *CompanyRepository) Update(ctx context.Context, c *company.Company) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE companies SET
			name = $2,
			contact_email = $3,
			contact_phone = $4,
			status = $5,
			updated_at = NOW()
		WHERE id = $1
	`, c.ID, c.Name, c.ContactEmail, c.ContactPhone, c.Status)

	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}

	if result.RowsAffected() == 0 {
		return company.ErrCompanyNotFound
	}

	return nil
}

// Delete deletes a company
func (r *CompanyRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM companies WHERE id = $1
	`, id)

	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}

	if result.RowsAffected() == 0 {
		return company.ErrCompanyNotFound
	}

	return nil
}

// List retrieves companies with pagination
func (r *CompanyRepository) List(ctx context.Context, limit, offset int) ([]*company.Company, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, contact_email, contact_phone, status, created_at, updated_at
		FROM companies
		ORDER BY name
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []*company.Company
	for rows.Next() {
		var c company.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.ContactEmail, &c.ContactPhone, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate companies: %w", err)
	}

	return companies, nil
}
