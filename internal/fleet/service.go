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

package fleet

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetworks/fleetworks/internal/id"
)

// Service provides machine and maintenance business logic
type Service struct {
	machines     MachineRepository
	maintenances MaintenanceRepository
}

// NewService creates a new fleet service
func NewService(machines MachineRepository, maintenances MaintenanceRepository) *Service {
	return &Service{
		machines:     machines,
		maintenances: maintenances,
	}
}

// RegisterMachine registers a machine for a company
func (s *Service) RegisterMachine(ctx context.Context, companyID string, kind MachineKind, name, serialNumber, registration string) (*Machine, error) {
	if companyID == "" {
		return nil, fmt.Errorf("company id is required")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMachineKind, kind)
	}
	if name == "" {
		return nil, fmt.Errorf("machine name is required")
	}
	if kind == KindFixed {
		// Fixed equipment carries no plate.
		registration = ""
	}

	now := time.Now()
	m := &Machine{
		ID:           id.NewUUIDv7(),
		CompanyID:    companyID,
		Kind:         kind,
		Name:         name,
		SerialNumber: serialNumber,
		Registration: registration,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.machines.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to register machine: %w", err)
	}
	return m, nil
}

// GetMachine retrieves a machine by ID
func (s *Service) GetMachine(ctx context.Context, machineID string) (*Machine, error) {
	return s.machines.GetByID(ctx, machineID)
}

// ListMachines lists all machines across companies
func (s *Service) ListMachines(ctx context.Context, limit, offset int) ([]*Machine, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.machines.List(ctx, limit, offset)
}

// ListCompanyMachines lists the machines of one company
func (s *Service) ListCompanyMachines(ctx context.Context, companyID string) ([]*Machine, error) {
	return s.machines.ListByCompany(ctx, companyID)
}

// UpdateMachine changes a machine's descriptive fields. The owning company
// is immutable; moving equipment between companies is a delete + register.
func (s *Service) UpdateMachine(ctx context.Context, machineID, name, serialNumber, registration string) (*Machine, error) {
	m, err := s.machines.GetByID(ctx, machineID)
	if err != nil {
		return nil, err
	}

	if name != "" {
		m.Name = name
	}
	if serialNumber != "" {
		m.SerialNumber = serialNumber
	}
	if registration != "" && m.Kind == KindTruck {
		m.Registration = registration
	}
	m.UpdatedAt = time.Now()

	if err := s.machines.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to update machine: %w", err)
	}
	return m, nil
}

// DeleteMachine removes a machine and, through the schema's cascade, its
// maintenance history.
func (s *Service) DeleteMachine(ctx context.Context, machineID string) error {
	if _, err := s.machines.GetByID(ctx, machineID); err != nil {
		return err
	}
	return s.machines.Delete(ctx, machineID)
}

// ScheduleMaintenance schedules a maintenance event for a machine
func (s *Service) ScheduleMaintenance(ctx context.Context, machineID, description string, scheduledAt time.Time) (*Maintenance, error) {
	if _, err := s.machines.GetByID(ctx, machineID); err != nil {
		return nil, err
	}
	if description == "" {
		return nil, fmt.Errorf("maintenance description is required")
	}
	if scheduledAt.IsZero() {
		return nil, fmt.Errorf("scheduled time is required")
	}

	now := time.Now()
	m := &Maintenance{
		ID:          id.NewUUIDv7(),
		MachineID:   machineID,
		Description: description,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.maintenances.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to schedule maintenance: %w", err)
	}
	return m, nil
}

// GetMaintenance retrieves a maintenance by ID
func (s *Service) GetMaintenance(ctx context.Context, maintenanceID string) (*Maintenance, error) {
	return s.maintenances.GetByID(ctx, maintenanceID)
}

// ListMachineMaintenances lists maintenance events of one machine
func (s *Service) ListMachineMaintenances(ctx context.Context, machineID string) ([]*Maintenance, error) {
	if _, err := s.machines.GetByID(ctx, machineID); err != nil {
		return nil, err
	}
	return s.maintenances.ListByMachine(ctx, machineID)
}

// ListCompanyMaintenances lists maintenance events across a company's fleet
func (s *Service) ListCompanyMaintenances(ctx context.Context, companyID string) ([]*Maintenance, error) {
	return s.maintenances.ListByCompany(ctx, companyID)
}

// UpdateMaintenance reschedules or re-describes a maintenance. Rescheduling
// clears the notified flag so the reminder sweep picks it up again.
func (s *Service) UpdateMaintenance(ctx context.Context, maintenanceID, description string, scheduledAt *time.Time) (*Maintenance, error) {
	m, err := s.maintenances.GetByID(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}

	if description != "" {
		m.Description = description
	}
	if scheduledAt != nil && !scheduledAt.IsZero() && !scheduledAt.Equal(m.ScheduledAt) {
		m.ScheduledAt = *scheduledAt
		m.Notified = false
	}
	m.UpdatedAt = time.Now()

	if err := s.maintenances.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to update maintenance: %w", err)
	}
	return m, nil
}

// CompleteMaintenance marks a maintenance as done
func (s *Service) CompleteMaintenance(ctx context.Context, maintenanceID string, completedAt time.Time) (*Maintenance, error) {
	m, err := s.maintenances.GetByID(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	if completedAt.IsZero() {
		completedAt = time.Now()
	}
	m.CompletedAt = &completedAt
	m.UpdatedAt = time.Now()

	if err := s.maintenances.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to complete maintenance: %w", err)
	}
	return m, nil
}

// DeleteMaintenance removes a maintenance event
func (s *Service) DeleteMaintenance(ctx context.Context, maintenanceID string) error {
	if _, err := s.maintenances.GetByID(ctx, maintenanceID); err != nil {
		return err
	}
	return s.maintenances.Delete(ctx, maintenanceID)
}
