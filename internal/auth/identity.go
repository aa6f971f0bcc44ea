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
	"errors"
	"fmt"
)

// Denial taxonomy. Every rejection produced by this package wraps exactly one
// of these sentinels so that callers can branch with errors.Is and map them
// 1:1 to transport status codes (401/403/404).
var (
	// ErrUnauthenticated covers missing, malformed, tampered and expired
	// tokens. Never retried; the caller must obtain a fresh token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden covers role and scope denials for a valid identity.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when a referenced resource does not exist.
	// Resources that exist but are out of scope are reported as ErrForbidden,
	// not ErrNotFound: this deployment does not hide resource existence.
	ErrNotFound = errors.New("resource not found")

)

// ErrPrivilegeEscalation is a narrower ErrForbidden raised when a fleet
// manager attempts to change a role or company assignment. It wraps
// ErrForbidden so generic handling still works.
var ErrPrivilegeEscalation = fmt.Errorf("privilege escalation attempt: %w", ErrForbidden)

// Role is the coarse role carried in identity claims.
type Role string

const (
	// RoleAdmin has universal scope: every company, every operation.
	RoleAdmin Role = "admin"

	// RoleFleetManager is scoped to exactly one company.
	RoleFleetManager Role = "fleet_manager"
)

// Valid reports whether r is a role this system issues.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleFleetManager
}

// Identity is the authenticated caller's claims, decoded fresh from a bearer
// token on every request. It is never mutated and never persisted.
type Identity struct {
	// Subject is the unique username the token was issued to.
	Subject string

	// UserID is the user record backing this identity.
	UserID string

	// Role determines categorical permissions via the role policy.
	Role Role

	// CompanyID is the single company a fleet manager may touch. Empty for
	// admins (admin scope is universal and ignores this field). A fleet
	// manager with an empty CompanyID has an empty scope, not a universal
	// one; see Policy and ScopeResolver.
	CompanyID string
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// ResourceType identifies the kind of record a resource reference points at.
type ResourceType string

const (
	ResourceMachine     ResourceType = "machine"
	ResourceMaintenance ResourceType = "maintenance"
	ResourceInvoice     ResourceType = "invoice"
)

// ResourceRef is a (type, id) pointer to an owned record. Each resource type
// resolves to exactly one owning company.
type ResourceRef struct {
	Type ResourceType
	ID   string
}
