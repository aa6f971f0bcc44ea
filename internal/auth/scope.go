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

package auth

import (
	"context"
	"errors"
	"fmt"
)

// ErrOwnerNotFound is returned by OwnershipStore implementations when the
// referenced row does not exist.
var ErrOwnerNotFound = errors.New("owner not found")

// OwnershipStore is the resolver's entire dependency on persistence: two
// read-only lookups. Implementations must return ErrOwnerNotFound (possibly
// wrapped) for missing rows and may be called concurrently.
type OwnershipStore interface {
	// MachineCompany returns the company owning the machine.
	MachineCompany(ctx context.Context, machineID string) (string, error)

	// MaintenanceMachine returns the machine a maintenance belongs to.
	MaintenanceMachine(ctx context.Context, maintenanceID string) (string, error)

	// InvoiceCompany returns the company an invoice was issued to.
	InvoiceCompany(ctx context.Context, invoiceID string) (string, error)
}

// ScopeResolver maps a resource reference to its owning company and compares
// company IDs against an identity's scope. It performs reads only.
type ScopeResolver struct {
	store OwnershipStore
}

// NewScopeResolver creates a resolver backed by the given store.
func NewScopeResolver(store OwnershipStore) *ScopeResolver {
	return &ScopeResolver{store: store}
}

// OwningCompany resolves the company that owns the referenced resource.
// Maintenances resolve through their parent machine; a maintenance whose
// machine row is gone is a data-integrity error and surfaces as ErrNotFound
// rather than defaulting to "no owner". Lookup failures other than a missing
// row propagate as-is so the guard can fail closed.
func (r *ScopeResolver) OwningCompany(ctx context.Context, ref ResourceRef) (string, error) {
	switch ref.Type {
	case ResourceMachine:
		companyID, err := r.store.MachineCompany(ctx, ref.ID)
		if err != nil {
			return "", translateOwnerErr(err, ref)
		}
		return companyID, nil

	case ResourceMaintenance:
		machineID, err := r.store.MaintenanceMachine(ctx, ref.ID)
		if err != nil {
			return "", translateOwnerErr(err, ref)
		}
		companyID, err := r.store.MachineCompany(ctx, machineID)
		if err != nil {
			// Orphaned maintenance: the parent machine was deleted.
			return "", translateOwnerErr(err, ref)
		}
		return companyID, nil

	case ResourceInvoice:
		companyID, err := r.store.InvoiceCompany(ctx, ref.ID)
		if err != nil {
			return "", translateOwnerErr(err, ref)
		}
		return companyID, nil

	default:
		return "", fmt.Errorf("%w: unknown resource type %q", ErrNotFound, ref.Type)
	}
}

// InScope reports whether the identity may touch resources of the company.
// Admin scope is universal. A fleet manager with an empty CompanyID has an
// empty scope and is never in scope, even for an empty target company.
func InScope(ident *Identity, companyID string) bool {
	if ident.Role == RoleAdmin {
		return true
	}
	if ident.CompanyID == "" {
		return false
	}
	return ident.CompanyID == companyID
}

func translateOwnerErr(err error, ref ResourceRef) error {
	if errors.Is(err, ErrOwnerNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, ref.Type, ref.ID)
	}
	return fmt.Errorf("failed to resolve owner of %s %s: %w", ref.Type, ref.ID, err)
}
