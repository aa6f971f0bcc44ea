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

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetworks/fleetworks/internal/audit"
	"github.com/fleetworks/fleetworks/internal/auth"
	"github.com/fleetworks/fleetworks/internal/billing"
	"github.com/fleetworks/fleetworks/internal/fleet"
	"github.com/fleetworks/fleetworks/internal/identity"
)

// =============================================================================
// ACCESS SCOPING & HTTP BEHAVIOR TESTS
// Category: API - Authentication, Scoping, Denial Taxonomy
// Type: Unit Test (UT)
// =============================================================================

type memUserRepo struct {
	identity.UserRepository
	users map[string]*identity.User
	creds map[string]*identity.Credentials
}

func (m *memUserRepo) GetByID(ctx context.Context, id string) (*identity.User, error) {
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, identity.ErrUserNotFound
	}
	return u, nil
}

func (m *memUserRepo) GetByUsername(ctx context.Context, username string) (*identity.User, error) {
	for _, u := range m.users {
		if u.Username == username && u.DeletedAt == nil {
			return u, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (m *memUserRepo) GetCredentials(ctx context.Context, userID string) (*identity.Credentials, error) {
	c, ok := m.creds[userID]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return c, nil
}

func (m *memUserRepo) Update(ctx context.Context, u *identity.User) error {
	m.users[u.ID] = u
	return nil
}

func (m *memUserRepo) UpdateLockout(ctx context.Context, userID string, attempts int, until *time.Time) error {
	if u, ok := m.users[userID]; ok {
		u.FailedLoginAttempts = attempts
		u.LockedUntil = until
	}
	return nil
}

func (m *memUserRepo) Delete(ctx context.Context, id string) error {
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return identity.ErrUserNotFound
	}
	now := time.Now()
	u.DeletedAt = &now
	return nil
}

func (m *memUserRepo) ListByCompany(ctx context.Context, companyID string) ([]*identity.User, error) {
	var out []*identity.User
	for _, u := range m.users {
		if u.CompanyID == companyID && u.DeletedAt == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

type memMachineRepo struct {
	fleet.MachineRepository
	machines map[string]*fleet.Machine
}

func (m *memMachineRepo) GetByID(ctx context.Context, id string) (*fleet.Machine, error) {
	mc, ok := m.machines[id]
	if !ok {
		return nil, fleet.ErrMachineNotFound
	}
	return mc, nil
}

func (m *memMachineRepo) ListByCompany(ctx context.Context, companyID string) ([]*fleet.Machine, error) {
	var out []*fleet.Machine
	for _, mc := range m.machines {
		if mc.CompanyID == companyID {
			out = append(out, mc)
		}
	}
	return out, nil
}

func (m *memMachineRepo) List(ctx context.Context, limit, offset int) ([]*fleet.Machine, error) {
	var out []*fleet.Machine
	for _, mc := range m.machines {
		out = append(out, mc)
	}
	return out, nil
}

type memOwnership struct {
	machines map[string]*fleet.Machine
}

func (m *memOwnership) MachineCompany(ctx context.Context, machineID string) (string, error) {
	mc, ok := m.machines[machineID]
	if !ok {
		return "", auth.ErrOwnerNotFound
	}
	return mc.CompanyID, nil
}

func (m *memOwnership) MaintenanceMachine(ctx context.Context, maintenanceID string) (string, error) {
	return "", auth.ErrOwnerNotFound
}

func (m *memOwnership) InvoiceCompany(ctx context.Context, invoiceID string) (string, error) {
	return "", auth.ErrOwnerNotFound
}

type testEnv struct {
	router       http.Handler
	codec        *auth.TokenCodec
	adminToken   string
	managerToken string
	users        *memUserRepo
}

const (
	testAdminID    = "user-admin"
	testManager1ID = "user-manager-1"
	testManager2ID = "user-manager-2"
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hasher := identity.NewPasswordHasher(8*1024, 1, 1, 16, 32)
	hash, err := hasher.Hash("correct-horse-9")
	require.NoError(t, err)

	users := &memUserRepo{
		users: map[string]*identity.User{
			testAdminID: {
				ID: testAdminID, Username: "root", Role: auth.RoleAdmin,
				NotifyPreference: identity.NotifyEmail,
			},
			testManager1ID: {
				ID: testManager1ID, Username: "manager1", Role: auth.RoleFleetManager,
				CompanyID: "company-1", NotifyPreference: identity.NotifyEmail,
			},
			testManager2ID: {
				ID: testManager2ID, Username: "manager2", Role: auth.RoleFleetManager,
				CompanyID: "company-2", NotifyPreference: identity.NotifyEmail,
			},
		},
		creds: map[string]*identity.Credentials{
			testManager1ID: {UserID: testManager1ID, PasswordHash: hash},
		},
	}

	machines := &memMachineRepo{machines: map[string]*fleet.Machine{
		"mach-1": {ID: "mach-1", CompanyID: "company-1", Kind: fleet.KindTruck, Name: "Truck 1"},
		"mach-2": {ID: "mach-2", CompanyID: "company-2", Kind: fleet.KindFixed, Name: "Press 2"},
	}}

	auditLogger := audit.NewSlogLogger()

	codec, err := auth.NewTokenCodec([]byte("test-secret-at-least-32-bytes-long"), 30*time.Minute, 24*time.Hour)
	require.NoError(t, err)
	resolver := auth.NewScopeResolver(&memOwnership{machines: machines.machines})
	guard := auth.NewGuard(codec, resolver, auditLogger)

	identitySvc := identity.NewService(users, hasher, auditLogger, 5, 15*time.Minute)
	fleetSvc := fleet.NewService(machines, nil)
	billingSvc := billing.NewService(nil, auditLogger, 30*24*time.Hour)

	h := NewHandler(identitySvc, nil, fleetSvc, billingSvc, guard, codec, auditLogger)
	router := NewRouter(h, NewRateLimiter(1000, 1000))

	adminToken, err := codec.Issue(users.users[testAdminID].Identity(), 0)
	require.NoError(t, err)
	managerToken, err := codec.Issue(users.users[testManager1ID].Identity(), 0)
	require.NoError(t, err)

	return &testEnv{
		router:       router,
		codec:        codec,
		adminToken:   adminToken,
		managerToken: managerToken,
		users:        users,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// TestPurpose: Validates that protected routes reject requests without a
// bearer token.
// Scope: Unit Test
// Security: Fail-closed authentication boundary
// Expected: Returns HTTP 401 Unauthorized.
// Test Case ID: SEC-01
func TestAPI_MissingToken_ReturnsUnauthorized(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/machines", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code,
		"SEC-01: missing token should return 401")
}

// TestPurpose: Validates that a tampered or garbage token never reaches a
// handler.
// Scope: Unit Test
// Security: Token integrity check
// Expected: Returns HTTP 401 Unauthorized.
// Test Case ID: SEC-02
func TestAPI_GarbageToken_ReturnsUnauthorized(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/machines", "not.a.jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code,
		"SEC-02: garbage token should return 401")
}

// TestPurpose: Validates that the X-Company-ID header is rejected on
// authenticated requests; company context comes only from the token.
// Scope: Unit Test
// Security: Company spoofing prevention
// Expected: Returns HTTP 400 Bad Request.
// Test Case ID: SEC-03
func TestAPI_CompanyHeader_ReturnsBadRequest(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/machines", nil)
	req.Header.Set("Authorization", "Bearer "+env.managerToken)
	req.Header.Set("X-Company-ID", "company-2")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code,
		"SEC-03: company header on authenticated request should return 400")
}

// TestPurpose: Validates company isolation on single-resource reads: a fleet
// manager reading a foreign machine gets 403, an admin gets 200, and a
// machine that does not exist is 404 for both.
// Scope: Unit Test
// Security: Scope enforcement and denial taxonomy
// Expected: 403 for foreign, 200 for admin, 404 for missing.
// Test Case ID: SEC-04
func TestAPI_MachineScoping(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/machines/mach-2", env.managerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code,
		"SEC-04: foreign machine should return 403 for fleet manager")

	w = env.do(t, http.MethodGet, "/api/v1/machines/mach-2", env.adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code,
		"SEC-04: admin should read any machine")

	w = env.do(t, http.MethodGet, "/api/v1/machines/mach-missing", env.managerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code,
		"SEC-04: missing machine should return 404, not 403")

	w = env.do(t, http.MethodGet, "/api/v1/machines/mach-missing", env.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code,
		"SEC-04: missing machine should return 404 for admin too")
}

// TestPurpose: Validates that a fleet manager only sees machines of their
// own company in list responses.
// Scope: Unit Test
// Security: List narrowing by scope
// Expected: Only company-1 machines in the response.
// Test Case ID: SEC-05
func TestAPI_ListMachines_NarrowedToOwnCompany(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/machines", env.managerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var machines []fleet.Machine
	require.NoError(t, json.NewDecoder(w.Body).Decode(&machines))
	require.Len(t, machines, 1)
	assert.Equal(t, "mach-1", machines[0].ID)
}

// TestPurpose: Validates the privilege-escalation rule: a fleet manager
// setting the role field on any user record, their own included, is denied
// with 403 before any write happens.
// Scope: Unit Test
// Security: Field-level write protection
// Expected: Returns HTTP 403 Forbidden.
// Test Case ID: SEC-06
func TestAPI_PatchOwnRole_ReturnsForbidden(t *testing.T) {
	env := newTestEnv(t)

	role := auth.RoleAdmin
	w := env.do(t, http.MethodPatch, "/api/v1/users/"+testManager1ID, env.managerToken,
		identity.UserPatch{Role: &role})
	assert.Equal(t, http.StatusForbidden, w.Code,
		"SEC-06: fleet manager setting a role should return 403")

	// Profile fields on the own record stay allowed.
	email := "new@example.com"
	w = env.do(t, http.MethodPatch, "/api/v1/users/"+testManager1ID, env.managerToken,
		identity.UserPatch{Email: &email})
	assert.Equal(t, http.StatusOK, w.Code,
		"SEC-06: own profile field update should succeed")

	// Another user's record is off limits even for unprivileged fields.
	w = env.do(t, http.MethodPatch, "/api/v1/users/"+testManager2ID, env.managerToken,
		identity.UserPatch{Email: &email})
	assert.Equal(t, http.StatusForbidden, w.Code,
		"SEC-06: patching another user should return 403")
}

// TestPurpose: Validates the self-deletion guard: no caller may delete their
// own account, admins included; admins may delete others.
// Scope: Unit Test
// Security: Lockout prevention
// Expected: 403 for self-delete, 200 for admin deleting another account.
// Test Case ID: SEC-07
func TestAPI_DeleteUser_SelfDenied(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodDelete, "/api/v1/users/"+testAdminID, env.adminToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code,
		"SEC-07: admin deleting own account should return 403")

	w = env.do(t, http.MethodDelete, "/api/v1/users/"+testManager2ID, env.managerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code,
		"SEC-07: fleet manager deleting a user should return 403")

	w = env.do(t, http.MethodDelete, "/api/v1/users/"+testManager2ID, env.adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code,
		"SEC-07: admin deleting another account should succeed")
}

// TestPurpose: Validates that company management is admin only.
// Scope: Unit Test
// Security: Admin-only category enforcement
// Expected: Returns HTTP 403 Forbidden for fleet managers.
// Test Case ID: SEC-08
func TestAPI_CreateCompany_AdminOnly(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/companies", env.managerToken,
		CompanyRequest{Name: "Intruder Oy"})
	assert.Equal(t, http.StatusForbidden, w.Code,
		"SEC-08: fleet manager creating a company should return 403")
}

// TestPurpose: Validates login behavior: valid credentials yield a usable
// token, wrong credentials 401, malformed JSON 400.
// Scope: Unit Test
// Security: Credential verification and parser safety
// Expected: 200 with token, then 401, then 400.
// Test Case ID: LGN-01
func TestAPI_Login(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", "",
		LoginRequest{Username: "manager1", Password: "correct-horse-9"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)

	ident, err := env.codec.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, testManager1ID, ident.UserID)
	assert.Equal(t, "company-1", ident.CompanyID)

	w = env.do(t, http.MethodPost, "/api/v1/auth/login", "",
		LoginRequest{Username: "manager1", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code,
		"LGN-01: wrong password should return 401")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte(`{invalid_json}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code,
		"LGN-01: malformed JSON should return 400")
}
