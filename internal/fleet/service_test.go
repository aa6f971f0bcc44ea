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
	"testing"
	"time"
)

// MockMachineRepository is a simple in-memory implementation of MachineRepository
type MockMachineRepository struct {
	machines map[string]*Machine
}

func NewMockMachineRepository() *MockMachineRepository {
	return &MockMachineRepository{machines: make(map[string]*Machine)}
}

func (m *MockMachineRepository) Create(ctx context.Context, machine *Machine) error {
	m.machines[machine.ID] = machine
	return nil
}

func (m *MockMachineRepository) GetByID(ctx context.Context, id string) (*Machine, error) {
	mach, ok := m.machines[id]
	if !ok {
		return nil, ErrMachineNotFound
	}
	return mach, nil
}

func (m *MockMachineRepository) Update(ctx context.Context, machine *Machine) error {
	if _, ok := m.machines[machine.ID]; !ok {
		return ErrMachineNotFound
	}
	m.machines[machine.ID] = machine
	return nil
}

func (m *MockMachineRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.machines[id]; !ok {
		return ErrMachineNotFound
	}
	delete(m.machines, id)
	return nil
}

func (m *MockMachineRepository) List(ctx context.Context, limit, offset int) ([]*Machine, error) {
	var out []*Machine
	for _, mach := range m.machines {
		out = append(out, mach)
	}
	return out, nil
}

func (m *MockMachineRepository) ListByCompany(ctx context.Context, companyID string) ([]*Machine, error) {
	var out []*Machine
	for _, mach := range m.machines {
		if mach.CompanyID == companyID {
			out = append(out, mach)
		}
	}
	return out, nil
}

// MockMaintenanceRepository is a simple in-memory implementation of MaintenanceRepository
type MockMaintenanceRepository struct {
	maintenances map[string]*Maintenance
}

func NewMockMaintenanceRepository() *MockMaintenanceRepository {
	return &MockMaintenanceRepository{maintenances: make(map[string]*Maintenance)}
}

func (m *MockMaintenanceRepository) Create(ctx context.Context, maintenance *Maintenance) error {
	m.maintenances[maintenance.ID] = maintenance
	return nil
}

func (m *MockMaintenanceRepository) GetByID(ctx context.Context, id string) (*Maintenance, error) {
	mt, ok := m.maintenances[id]
	if !ok {
		return nil, ErrMaintenanceNotFound
	}
	return mt, nil
}

func (m *MockMaintenanceRepository) Update(ctx context.Context, maintenance *Maintenance) error {
	if _, ok := m.maintenances[maintenance.ID]; !ok {
		return ErrMaintenanceNotFound
	}
	m.maintenances[maintenance.ID] = maintenance
	return nil
}

func (m *MockMaintenanceRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.maintenances[id]; !ok {
		return ErrMaintenanceNotFound
	}
	delete(m.maintenances, id)
	return nil
}

func (m *MockMaintenanceRepository) ListByMachine(ctx context.Context, machineID string) ([]*Maintenance, error) {
	var out []*Maintenance
	for _, mt := range m.maintenances {
		if mt.MachineID == machineID {
			out = append(out, mt)
		}
	}
	return out, nil
}

func (m *MockMaintenanceRepository) ListByCompany(ctx context.Context, companyID string) ([]*Maintenance, error) {
	return nil, nil
}

func (m *MockMaintenanceRepository) ListDueBefore(ctx context.Context, deadline time.Time) ([]*Maintenance, error) {
	var out []*Maintenance
	for _, mt := range m.maintenances {
		if mt.CompletedAt == nil && !mt.Notified && mt.ScheduledAt.Before(deadline) {
			out = append(out, mt)
		}
	}
	return out, nil
}

func (m *MockMaintenanceRepository) MarkNotified(ctx context.Context, id string) error {
	mt, ok := m.maintenances[id]
	if !ok {
		return ErrMaintenanceNotFound
	}
	mt.Notified = true
	return nil
}

func newTestService() (*Service, *MockMachineRepository, *MockMaintenanceRepository) {
	machines := NewMockMachineRepository()
	maintenances := NewMockMaintenanceRepository()
	return NewService(machines, maintenances), machines, maintenances
}

// TestPurpose: Validates machine registration rules for both machine kinds.
// Scope: Unit Test
// Expected: Trucks keep their registration plate, fixed equipment never carries one, unknown kinds are rejected.
// Test Case ID: FLT-01
func TestFleet_Service_RegisterMachine(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	truck, err := s.RegisterMachine(ctx, "company-1", KindTruck, "Volvo FH16", "SN-1", "B-AB 1234")
	if err != nil {
		t.Fatalf("register truck failed: %v", err)
	}
	if truck.Registration != "B-AB 1234" {
		t.Errorf("truck must keep its plate, got %q", truck.Registration)
	}

	fixed, err := s.RegisterMachine(ctx, "company-1", KindFixed, "Conveyor", "SN-2", "B-XY 9999")
	if err != nil {
		t.Fatalf("register fixed failed: %v", err)
	}
	if fixed.Registration != "" {
		t.Errorf("fixed equipment must not carry a plate, got %q", fixed.Registration)
	}

	_, err = s.RegisterMachine(ctx, "company-1", MachineKind("hovercraft"), "X", "SN-3", "")
	if !errors.Is(err, ErrInvalidMachineKind) {
		t.Errorf("expected ErrInvalidMachineKind, got %v", err)
	}

	if _, err := s.RegisterMachine(ctx, "", KindTruck, "X", "SN-4", ""); err == nil {
		t.Error("expected error for missing company")
	}
	if _, err := s.RegisterMachine(ctx, "company-1", KindTruck, "", "SN-5", ""); err == nil {
		t.Error("expected error for missing name")
	}
}

// TestPurpose: Validates that machine updates never change the owning company and respect the kind.
// Scope: Unit Test
// Security: Company assignment is immutable after registration
// Expected: Descriptive fields update; a registration update on fixed equipment is ignored.
// Test Case ID: FLT-02
func TestFleet_Service_UpdateMachine(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	fixed, err := s.RegisterMachine(ctx, "company-1", KindFixed, "Crane", "SN-C", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	updated, err := s.UpdateMachine(ctx, fixed.ID, "Tower Crane", "", "B-ZZ 1")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "Tower Crane" {
		t.Errorf("expected renamed machine, got %q", updated.Name)
	}
	if updated.Registration != "" {
		t.Error("fixed equipment must not gain a plate through updates")
	}
	if updated.CompanyID != "company-1" {
		t.Errorf("company must be immutable, got %q", updated.CompanyID)
	}

	if _, err := s.UpdateMachine(ctx, "missing", "X", "", ""); !errors.Is(err, ErrMachineNotFound) {
		t.Errorf("expected ErrMachineNotFound, got %v", err)
	}
}

// TestPurpose: Validates maintenance scheduling against its machine.
// Scope: Unit Test
// Expected: Scheduling against a missing machine fails; empty description or zero time are rejected.
// Test Case ID: FLT-03
func TestFleet_Service_ScheduleMaintenance(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	machine, err := s.RegisterMachine(ctx, "company-1", KindTruck, "Truck", "SN-T", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	when := time.Now().Add(48 * time.Hour)
	mt, err := s.ScheduleMaintenance(ctx, machine.ID, "Oil change", when)
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if mt.MachineID != machine.ID || mt.Notified {
		t.Error("new maintenance must reference the machine and start un-notified")
	}

	if _, err := s.ScheduleMaintenance(ctx, "missing", "X", when); !errors.Is(err, ErrMachineNotFound) {
		t.Errorf("expected ErrMachineNotFound, got %v", err)
	}
	if _, err := s.ScheduleMaintenance(ctx, machine.ID, "", when); err == nil {
		t.Error("expected error for empty description")
	}
	if _, err := s.ScheduleMaintenance(ctx, machine.ID, "X", time.Time{}); err == nil {
		t.Error("expected error for zero scheduled time")
	}
}

// TestPurpose: Validates that rescheduling re-arms the reminder flag.
// Scope: Unit Test
// Expected: Changing the scheduled time clears Notified; updating only the description keeps it.
// Test Case ID: FLT-04
func TestFleet_Service_Reschedule_ClearsNotified(t *testing.T) {
	s, _, maintenances := newTestService()
	ctx := context.Background()

	machine, _ := s.RegisterMachine(ctx, "company-1", KindTruck, "Truck", "SN-T", "")
	mt, err := s.ScheduleMaintenance(ctx, machine.ID, "Brake check", time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if err := maintenances.MarkNotified(ctx, mt.ID); err != nil {
		t.Fatalf("mark notified failed: %v", err)
	}

	// Description-only update keeps the flag.
	updated, err := s.UpdateMaintenance(ctx, mt.ID, "Brake and light check", nil)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.Notified {
		t.Error("description update must not clear the notified flag")
	}

	later := time.Now().Add(96 * time.Hour)
	updated, err = s.UpdateMaintenance(ctx, mt.ID, "", &later)
	if err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}
	if updated.Notified {
		t.Error("rescheduling must clear the notified flag for a fresh reminder")
	}
}

// TestPurpose: Validates the completion flow of maintenance events.
// Scope: Unit Test
// Expected: Completion stamps the given time; a zero time defaults to now; completed events no longer show up as due.
// Test Case ID: FLT-05
func TestFleet_Service_CompleteMaintenance(t *testing.T) {
	s, _, maintenances := newTestService()
	ctx := context.Background()

	machine, _ := s.RegisterMachine(ctx, "company-1", KindTruck, "Truck", "SN-T", "")
	mt, err := s.ScheduleMaintenance(ctx, machine.ID, "Inspection", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	done, err := s.CompleteMaintenance(ctx, mt.ID, time.Time{})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if done.CompletedAt == nil || done.CompletedAt.IsZero() {
		t.Fatal("zero completion time must default to now")
	}

	due, err := maintenances.ListDueBefore(ctx, time.Now().Add(48*time.Hour))
	if err != nil {
		t.Fatalf("list due failed: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("completed maintenance must not be due, got %d", len(due))
	}

	if _, err := s.CompleteMaintenance(ctx, "missing", time.Now()); !errors.Is(err, ErrMaintenanceNotFound) {
		t.Errorf("expected ErrMaintenanceNotFound, got %v", err)
	}
}
