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

//go:build integration
// +build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/fleetworks/fleetworks/internal/auth"
	"github.com/fleetworks/fleetworks/internal/company"
	"github.com/fleetworks/fleetworks/internal/fleet"
	"github.com/fleetworks/fleetworks/internal/id"
)

func connectTestDB(t *testing.T) *DB {
	t.Helper()

	ctx := context.Background()
	cfg := Config{
		Host:         "localhost",
		Port:         "5432",
		User:         "fleetworks",
		Password:     "fleetworks_dev_password",
		Database:     "fleetworks",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 5,
	}

	db, err := New(ctx, cfg)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to database: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

// TestPurpose: Validates that machine listings are strictly partitioned by
// company at the repository level.
// Scope: Database Integration Test
// Security: Cross-company data separation (CWE-284)
// Expected: A company's listing never contains another company's machines.
// Test Case ID: ISO-01
// Metadata:
//   - Category: Scoping
//   - Priority: High
//   - Tags: scoping, security, data-isolation
func TestMachineRepository_CompanyIsolation(t *testing.T) {
	db := connectTestDB(t)
	ctx := context.Background()

	companies := NewCompanyRepository(db)
	machines := NewMachineRepository(db)

	companyA := &company.Company{ID: id.NewUUIDv7(), Name: "iso-a-" + id.NewUUIDv7(), Status: company.StatusActive}
	companyB := &company.Company{ID: id.NewUUIDv7(), Name: "iso-b-" + id.NewUUIDv7(), Status: company.StatusActive}
	for _, c := range []*company.Company{companyA, companyB} {
		if err := companies.Create(ctx, c); err != nil {
			t.Fatalf("failed to create company: %v", err)
		}
		defer db.pool.Exec(ctx, "DELETE FROM companies WHERE id = $1", c.ID)
	}

	machineA := &fleet.Machine{ID: id.NewUUIDv7(), CompanyID: companyA.ID, Kind: fleet.KindTruck, Name: "Truck A"}
	machineB := &fleet.Machine{ID: id.NewUUIDv7(), CompanyID: companyB.ID, Kind: fleet.KindFixed, Name: "Press B"}
	for _, m := range []*fleet.Machine{machineA, machineB} {
		if err := machines.Create(ctx, m); err != nil {
			t.Fatalf("failed to create machine: %v", err)
		}
		defer db.pool.Exec(ctx, "DELETE FROM machines WHERE id = $1", m.ID)
	}

	listA, err := machines.ListByCompany(ctx, companyA.ID)
	if err != nil {
		t.Fatalf("failed to list machines: %v", err)
	}
	for _, m := range listA {
		if m.CompanyID != companyA.ID {
			t.Errorf("cross-company leakage! machine %s belongs to %s", m.ID, m.CompanyID)
		}
	}
}

// TestPurpose: Validates ownership resolution used by the scope resolver:
// machine to company, maintenance to machine, and the not-found sentinel for
// missing rows.
// Scope: Database Integration Test
// Security: Scope resolution correctness
// Expected: Correct owners returned; missing rows yield ErrOwnerNotFound.
// Test Case ID: ISO-02
func TestOwnershipRepository_Lookups(t *testing.T) {
	db := connectTestDB(t)
	ctx := context.Background()

	companies := NewCompanyRepository(db)
	machines := NewMachineRepository(db)
	maintenances := NewMaintenanceRepository(db)
	ownership := NewOwnershipRepository(db)

	c := &company.Company{ID: id.NewUUIDv7(), Name: "own-" + id.NewUUIDv7(), Status: company.StatusActive}
	if err := companies.Create(ctx, c); err != nil {
		t.Fatalf("failed to create company: %v", err)
	}
	defer db.pool.Exec(ctx, "DELETE FROM companies WHERE id = $1", c.ID)

	m := &fleet.Machine{ID: id.NewUUIDv7(), CompanyID: c.ID, Kind: fleet.KindTruck, Name: "Truck"}
	if err := machines.Create(ctx, m); err != nil {
		t.Fatalf("failed to create machine: %v", err)
	}
	defer db.pool.Exec(ctx, "DELETE FROM machines WHERE id = $1", m.ID)

	mnt := &fleet.Maintenance{ID: id.NewUUIDv7(), MachineID: m.ID, Description: "oil", ScheduledAt: time.Now().Add(time.Hour)}
	if err := maintenances.Create(ctx, mnt); err != nil {
		t.Fatalf("failed to create maintenance: %v", err)
	}
	defer db.pool.Exec(ctx, "DELETE FROM maintenances WHERE id = $1", mnt.ID)

	owner, err := ownership.MachineCompany(ctx, m.ID)
	if err != nil || owner != c.ID {
		t.Errorf("expected machine owner %s, got %s (err %v)", c.ID, owner, err)
	}

	parent, err := ownership.MaintenanceMachine(ctx, mnt.ID)
	if err != nil || parent != m.ID {
		t.Errorf("expected maintenance machine %s, got %s (err %v)", m.ID, parent, err)
	}

	if _, err := ownership.MachineCompany(ctx, id.NewUUIDv7()); err != auth.ErrOwnerNotFound {
		t.Errorf("expected ErrOwnerNotFound for missing machine, got %v", err)
	}
}
