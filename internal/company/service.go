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

package company

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fleetworks/fleetworks/internal/audit"
	"github.com/fleetworks/fleetworks/internal/id"
)

// Service provides company management business logic
type Service struct {
	repo        Repository
	auditLogger audit.Logger
}

// NewService creates a new company service
func NewService(repo Repository, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		auditLogger: auditLogger,
	}
}

// Create registers a new company
func (s *Service) Create(ctx context.Context, name, contactEmail, contactPhone string, actorID string) (*Company, error) {
	if name == "" {
		return nil, fmt.Errorf("company name is required")
	}

	if _, err := s.repo.GetByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrCompanyAlreadyExists, name)
	} else if !errors.Is(err, ErrCompanyNotFound) {
		return nil, fmt.Errorf("failed to check company name: %w", err)
	}

	now := time.Now()
	c := &Company{
		ID:           id.NewUUIDv7(),
		Name:         name,
		ContactEmail: contactEmail,
		ContactPhone: contactPhone,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeCompanyCreated,
		CompanyID: c.ID,
		ActorID:   actorID,
		Resource:  c.Name,
	})

	return c, nil
}

// Get retrieves a company by ID
func (s *Service) Get(ctx context.Context, companyID string) (*Company, error) {
	return s.repo.GetByID(ctx, companyID)
}

// List lists companies with pagination
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Company, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, limit, offset)
}

// Update changes a company's contact data
func (s *Service) Update(ctx context.Context, companyID, name, contactEmail, contactPhone string) (*Company, error) {
	c, err := s.repo.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if name != "" {
		c.Name = name
	}
	if contactEmail != "" {
		c.ContactEmail = contactEmail
	}
	if contactPhone != "" {
		c.ContactPhone = contactPhone
	}
	c.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}
	return c, nil
}

// Delete removes a company
func (s *Service) Delete(ctx context.Context, companyID string, actorID string) error {
	if _, err := s.repo.GetByID(ctx, companyID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, companyID); err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeCompanyDeleted,
		CompanyID: companyID,
		ActorID:   actorID,
	})
	return nil
}
