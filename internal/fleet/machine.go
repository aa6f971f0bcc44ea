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
	"errors"
	"time"
)

// Domain errors
var (
	ErrMachineNotFound     = errors.New("machine not found")
	ErrMaintenanceNotFound = errors.New("maintenance not found")
	ErrInvalidMachineKind  = errors.New("invalid machine kind")
)

// MachineKind distinguishes mobile and stationary equipment
type MachineKind string

const (
	KindTruck MachineKind = "truck"
	KindFixed MachineKind = "fixed"
)

// Valid reports whether k is a known machine kind.
func (k MachineKind) Valid() bool {
	return k == KindTruck || k == KindFixed
}

// Machine represents a registered piece of equipment owned by one company
type Machine struct {
	ID           string      `json:"id"`
	CompanyID    string      `json:"company_id"`
	Kind         MachineKind `json:"kind"`
	Name         string      `json:"name"`
	SerialNumber string      `json:"serial_number"`
	Registration string      `json:"registration,omitempty"` // plate number, trucks only
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Maintenance represents a scheduled maintenance event for a machine
type Maintenance struct {
	ID          string     `json:"id"`
	MachineID   string     `json:"machine_id"`
	Description string     `json:"description"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Notified    bool       `json:"notified"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MachineRepository defines the interface for machine storage
type MachineRepository interface {
	Create(ctx context.Context, machine *Machine) error
	GetByID(ctx context.Context, id string) (*Machine, error)
	Update(ctx context.Context, machine *Machine) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*Machine, error)
	ListByCompany(ctx context.Context, companyID string) ([]*Machine, error)
}

// MaintenanceRepository defines the interface for maintenance storage
type MaintenanceRepository interface {
	Create(ctx context.Context, maintenance *Maintenance) error
	GetByID(ctx context.Context, id string) (*Maintenance, error)
	Update(ctx context.Context, maintenance *Maintenance) error
	Delete(ctx context.Context, id string) error
	ListByMachine(ctx context.Context, machineID string) ([]*Maintenance, error)
	ListByCompany(ctx context.Context, companyID string) ([]*Maintenance, error)

	// ListDueBefore returns uncompleted, not-yet-notified maintenances
	// scheduled before the deadline. Used by the reminder sweep.
	ListDueBefore(ctx context.Context, deadline time.Time) ([]*Maintenance, error)

	// MarkNotified flags a maintenance as reminded.
	MarkNotified(ctx context.Context, id string) error
}
