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

// Category classifies an operation independently of any concrete resource.
type Category string

const (
	// CategoryReadOwnScope reads resources inside the caller's own company.
	CategoryReadOwnScope Category = "read_own_scope"

	// CategoryReadAll reads resources across all companies.
	CategoryReadAll Category = "read_all"

	// CategoryWriteOwnScope writes resources inside the caller's own company.
	CategoryWriteOwnScope Category = "write_own_scope"

	// CategoryWriteAll writes resources across all companies.
	CategoryWriteAll Category = "write_all"

	// CategoryAdminOnly covers platform administration: creating and
	// deleting companies and users, and managing the service catalog.
	CategoryAdminOnly Category = "admin_only"
)

// permitted is the exhaustive role/category decision table. There is no
// default-allow: a (role, category) pair absent from this table is denied.
var permitted = map[Role]map[Category]bool{
	RoleAdmin: {
		CategoryReadOwnScope:  true,
		CategoryReadAll:       true,
		CategoryWriteOwnScope: true,
		CategoryWriteAll:      true,
		CategoryAdminOnly:     true,
	},
	RoleFleetManager: {
		CategoryReadOwnScope:  true,
		CategoryReadAll:       false,
		CategoryWriteOwnScope: true,
		CategoryWriteAll:      false,
		CategoryAdminOnly:     false,
	},
}

// Permits reports whether the role may categorically perform operations of
// the given class. Scoped categories still require a scope to act within: a
// fleet manager without a company has the permission but an empty scope, and
// every concrete check against it fails. That degradation is enforced
// explicitly in PermitsIdentity and the scope resolver, never left to a null
// comparison.
func Permits(role Role, category Category) bool {
	return permitted[role][category]
}

// PermitsIdentity applies the role table to a concrete identity. A fleet
// manager with no company is denied the scoped categories outright since its
// scope is empty.
func PermitsIdentity(ident *Identity, category Category) bool {
	if !Permits(ident.Role, category) {
		return false
	}
	if ident.Role == RoleFleetManager && ident.CompanyID == "" {
		switch category {
		case CategoryReadOwnScope, CategoryWriteOwnScope:
			return false
		}
	}
	return true
}
