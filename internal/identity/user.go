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

package identity

import (
	"context"
	"errors"
	"time"

	"github.com/fleetworks/fleetworks/internal/auth"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
	ErrAccountLocked      = errors.New("account is locked")
	ErrCompanyRequired    = errors.New("fleet manager requires a company")
)

// Notification preference constants
const (
	NotifyEmail = "email"
	NotifySMS   = "sms"
	NotifyBoth  = "both"
	NotifyNone  = "none"
)

// User represents a user account. Admins have an empty CompanyID; their
// scope is universal via role, never via a magic company value. A fleet
// manager always belongs to exactly one company.
type User struct {
	ID                  string
	Username            string
	Email               string
	Phone               string
	Role                auth.Role
	CompanyID           string
	NotifyPreference    string
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time
}

// Identity derives the claims an issued token carries for this user.
func (u *User) Identity() auth.Identity {
	return auth.Identity{
		Subject:   u.Username,
		UserID:    u.ID,
		Role:      u.Role,
		CompanyID: u.CompanyID,
	}
}

// Credentials represents user authentication credentials
type Credentials struct {
	UserID       string
	PasswordHash string
	UpdatedAt    time.Time
}

// UserPatch names exactly the fields an update may change. Nil fields are
// left untouched. The access guard decides who may set which fields; the
// service only applies them.
type UserPatch struct {
	Username         *string    `json:"username,omitempty"`
	Email            *string    `json:"email,omitempty"`
	Phone            *string    `json:"phone,omitempty"`
	NotifyPreference *string    `json:"notify_preference,omitempty"`
	Role             *auth.Role `json:"role,omitempty"`
	CompanyID        *string    `json:"company_id,omitempty"`
}

// SetsRole reports whether the patch changes the role field.
func (p UserPatch) SetsRole() bool { return p.Role != nil }

// SetsCompany reports whether the patch changes the company assignment.
func (p UserPatch) SetsCompany() bool { return p.CompanyID != nil }

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *User) error

	// AddCredentials adds credentials for a user
	AddCredentials(ctx context.Context, credentials *Credentials) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*User, error)

	// Update updates user information
	Update(ctx context.Context, user *User) error

	// UpdateLockout updates user lockout status
	UpdateLockout(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error

	// Delete soft-deletes a user
	Delete(ctx context.Context, id string) error

	// GetCredentials retrieves user credentials
	GetCredentials(ctx context.Context, userID string) (*Credentials, error)

	// UpdatePassword updates user password
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error

	// List retrieves all users
	List(ctx context.Context, limit, offset int) ([]*User, error)

	// ListByCompany retrieves users belonging to a company
	ListByCompany(ctx context.Context, companyID string) ([]*User, error)

	// CountAdmins counts non-deleted admin accounts
	CountAdmins(ctx context.Context) (int, error)
}
