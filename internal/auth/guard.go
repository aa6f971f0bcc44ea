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
	"fmt"

	"github.com/fleetworks/fleetworks/internal/audit"
)

// Operation is a sealed set of authorization requests. Exactly one variant
// is checked per call to Authorize/Check.
type Operation interface {
	isOperation()
	describe() string
}

// CategoryCheck asks whether the identity may perform operations of a class
// at all, with no specific resource involved. Used for list-all vs list-own
// branching and for admin-only actions.
type CategoryCheck struct {
	Category Category
}

// ResourceCheck asks whether the identity may touch one concrete resource.
// The owning company is resolved through the scope resolver.
type ResourceCheck struct {
	Resource ResourceRef
}

// CompanyCheck asks whether the identity may touch resources of an
// explicitly named company, e.g. "list machines of company X".
type CompanyCheck struct {
	CompanyID string
}

// UserPatchCheck asks whether the identity may apply a field-level update to
// a user record. SetsRole/SetsCompany flag privileged fields in the patch.
type UserPatchCheck struct {
	TargetUserID    string
	TargetCompanyID string
	SetsRole        bool
	SetsCompany     bool
}

// UserDeleteCheck asks whether the identity may delete a user record.
type UserDeleteCheck struct {
	TargetUserID string
}

func (CategoryCheck) isOperation()  {}
func (ResourceCheck) isOperation()  {}
func (CompanyCheck) isOperation()   {}
func (UserPatchCheck) isOperation() {}
func (UserDeleteCheck) isOperation() {}

func (c CategoryCheck) describe() string { return "category:" + string(c.Category) }
func (c ResourceCheck) describe() string {
	return fmt.Sprintf("resource:%s/%s", c.Resource.Type, c.Resource.ID)
}
func (c CompanyCheck) describe() string    { return "company:" + c.CompanyID }
func (c UserPatchCheck) describe() string  { return "user-patch:" + c.TargetUserID }
func (c UserDeleteCheck) describe() string { return "user-delete:" + c.TargetUserID }

// Guard combines the token codec, role policy and scope resolver into one
// decision per request. It is the only type collaborators should consult;
// it performs no writes and holds no per-request state, so a single Guard is
// shared across all requests.
type Guard struct {
	codec       *TokenCodec
	resolver    *ScopeResolver
	auditLogger audit.Logger
}

// NewGuard creates an access guard.
func NewGuard(codec *TokenCodec, resolver *ScopeResolver, auditLogger audit.Logger) *Guard {
	return &Guard{
		codec:       codec,
		resolver:    resolver,
		auditLogger: auditLogger,
	}
}

// Authorize verifies the bearer token and checks the operation against the
// decoded identity. On success the identity is returned for further business
// logic (e.g. narrowing a list query); on failure a denial wrapping one of
// ErrUnauthenticated, ErrForbidden or ErrNotFound is returned and the
// identity is nil. Any dependency failure is terminal: denial, never a
// partial authorization.
func (g *Guard) Authorize(ctx context.Context, token string, op Operation) (*Identity, error) {
	ident, err := g.codec.Verify(token)
	if err != nil {
		g.logDenial(ctx, nil, op, err)
		return nil, err
	}
	if err := g.Check(ctx, ident, op); err != nil {
		return nil, err
	}
	return ident, nil
}

// Check evaluates an operation against an already-verified identity. Used by
// handlers after the auth middleware has decoded the token once.
func (g *Guard) Check(ctx context.Context, ident *Identity, op Operation) error {
	var err error
	switch check := op.(type) {
	case CategoryCheck:
		err = g.checkCategory(ident, check)
	case ResourceCheck:
		err = g.checkResource(ctx, ident, check)
	case CompanyCheck:
		err = g.checkCompany(ident, check)
	case UserPatchCheck:
		err = g.checkUserPatch(ident, check)
	case UserDeleteCheck:
		err = g.checkUserDelete(ident, check)
	default:
		err = fmt.Errorf("%w: unsupported operation", ErrForbidden)
	}
	if err != nil {
		g.logDenial(ctx, ident, op, err)
	}
	return err
}

func (g *Guard) checkCategory(ident *Identity, check CategoryCheck) error {
	if !PermitsIdentity(ident, check.Category) {
		return fmt.Errorf("%w: role %s may not perform %s", ErrForbidden, ident.Role, check.Category)
	}
	return nil
}

func (g *Guard) checkResource(ctx context.Context, ident *Identity, check ResourceCheck) error {
	companyID, err := g.resolver.OwningCompany(ctx, check.Resource)
	if err != nil {
		// Missing resource stays ErrNotFound; any other lookup failure
		// (timeout, connection loss) fails closed as a denial.
		return err
	}
	if !InScope(ident, companyID) {
		return fmt.Errorf("%w: %s %s belongs to another company",
			ErrForbidden, check.Resource.Type, check.Resource.ID)
	}
	return nil
}

func (g *Guard) checkCompany(ident *Identity, check CompanyCheck) error {
	if !InScope(ident, check.CompanyID) {
		return fmt.Errorf("%w: company %s is out of scope", ErrForbidden, check.CompanyID)
	}
	return nil
}

// checkUserPatch enforces the field-level write rule: a fleet manager may
// never set a role or company on any user record, and may change only their
// own profile fields. Admins may patch anyone.
func (g *Guard) checkUserPatch(ident *Identity, check UserPatchCheck) error {
	if ident.Role == RoleAdmin {
		return nil
	}
	if check.SetsRole || check.SetsCompany {
		return fmt.Errorf("%w (user %s)", ErrPrivilegeEscalation, check.TargetUserID)
	}
	if check.TargetUserID != ident.UserID {
		return fmt.Errorf("%w: may only edit own profile", ErrForbidden)
	}
	return nil
}

// checkUserDelete denies self-deletion by identity equality, independent of
// role, then requires the admin-only category.
func (g *Guard) checkUserDelete(ident *Identity, check UserDeleteCheck) error {
	if check.TargetUserID == ident.UserID {
		return fmt.Errorf("%w: cannot delete own account", ErrForbidden)
	}
	if !PermitsIdentity(ident, CategoryAdminOnly) {
		return fmt.Errorf("%w: deleting users requires admin role", ErrForbidden)
	}
	return nil
}

func (g *Guard) logDenial(ctx context.Context, ident *Identity, op Operation, denial error) {
	if g.auditLogger == nil {
		return
	}
	event := audit.Event{
		Type:     audit.TypeAccessDenied,
		Resource: op.describe(),
		Metadata: map[string]any{"reason": denial.Error()},
	}
	if ident != nil {
		event.ActorID = ident.UserID
		event.CompanyID = ident.CompanyID
	}
	g.auditLogger.Log(ctx, event)
}
