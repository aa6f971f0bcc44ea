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
	"fmt"
	"time"

	"github.com/fleetworks/fleetworks/internal/audit"
	"github.com/fleetworks/fleetworks/internal/auth"
	"github.com/fleetworks/fleetworks/internal/id"
)

// Service provides user account business logic
type Service struct {
	repo               UserRepository
	hasher             *PasswordHasher
	auditLogger        audit.Logger
	lockoutMaxAttempts int
	lockoutDuration    time.Duration
}

// NewService creates a new identity service
func NewService(
	repo UserRepository,
	hasher *PasswordHasher,
	auditLogger audit.Logger,
	lockoutMaxAttempts int,
	lockoutDuration time.Duration,
) *Service {
	return &Service{
		repo:               repo,
		hasher:             hasher,
		auditLogger:        auditLogger,
		lockoutMaxAttempts: lockoutMaxAttempts,
		lockoutDuration:    lockoutDuration,
	}
}

// Provision creates a new user account with credentials.
func (s *Service) Provision(ctx context.Context, username, email, phone, password string, role auth.Role, companyID string, actorID string) (*User, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	if role == auth.RoleFleetManager && companyID == "" {
		return nil, ErrCompanyRequired
	}
	if role == auth.RoleAdmin {
		// Admins are never bound to a company; scope comes from the role.
		companyID = ""
	}
	if !isStrongPassword(password) {
		return nil, ErrWeakPassword
	}

	existing, err := s.repo.GetByUsername(ctx, username)
	if err == nil && existing != nil {
		return nil, ErrUserAlreadyExists
	} else if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	user := &User{
		ID:               id.NewUUIDv7(),
		Username:         username,
		Email:            email,
		Phone:            phone,
		Role:             role,
		CompanyID:        companyID,
		NotifyPreference: NotifyEmail,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.AddCredentials(ctx, &Credentials{UserID: user.ID, PasswordHash: passwordHash}); err != nil {
		return nil, fmt.Errorf("failed to add credentials: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeUserCreated,
		CompanyID: companyID,
		ActorID:   actorID,
		Resource:  username,
		Metadata:  map[string]any{"role": string(role)},
	})

	return user, nil
}

// Authenticate authenticates a user by username and password, applying the
// lockout policy on repeated failures.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			Resource: username,
			Metadata: map[string]any{"reason": "user_not_found"},
		})
		return nil, ErrInvalidCredentials
	}

	if user.LockedUntil != nil && user.LockedUntil.After(time.Now()) {
		s.auditLogger.Log(ctx, audit.Event{
			Type:      audit.TypeLoginFailed,
			CompanyID: user.CompanyID,
			ActorID:   user.ID,
			Resource:  "login",
			Metadata:  map[string]any{"reason": "locked_out"},
		})
		return nil, ErrAccountLocked
	}

	credentials, err := s.repo.GetCredentials(ctx, user.ID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	valid, err := s.hasher.Verify(password, credentials.PasswordHash)
	if err != nil || !valid {
		newAttempts := user.FailedLoginAttempts + 1
		var newLockedUntil *time.Time

		if newAttempts >= s.lockoutMaxAttempts {
			until := time.Now().Add(s.lockoutDuration)
			newLockedUntil = &until
			s.auditLogger.Log(ctx, audit.Event{
				Type:      audit.TypeUserLocked,
				CompanyID: user.CompanyID,
				ActorID:   user.ID,
				Resource:  "login",
				Metadata:  map[string]any{"attempts": newAttempts},
			})
		}

		_ = s.repo.UpdateLockout(ctx, user.ID, newAttempts, newLockedUntil)

		s.auditLogger.Log(ctx, audit.Event{
			Type:      audit.TypeLoginFailed,
			CompanyID: user.CompanyID,
			ActorID:   user.ID,
			Resource:  "login",
			Metadata: map[string]any{
				"reason":   "invalid_password",
				"attempts": newAttempts,
			},
		})

		return nil, ErrInvalidCredentials
	}

	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		_ = s.repo.UpdateLockout(ctx, user.ID, 0, nil)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeLoginSuccess,
		CompanyID: user.CompanyID,
		ActorID:   user.ID,
		Resource:  "login",
	})

	return user, nil
}

// Get retrieves a user by ID
func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	return s.repo.GetByID(ctx, userID)
}

// GetByUsername retrieves a user by username
func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// List retrieves all users
func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, limit, offset)
}

// ListByCompany retrieves users of one company
func (s *Service) ListByCompany(ctx context.Context, companyID string) ([]*User, error) {
	return s.repo.ListByCompany(ctx, companyID)
}

// ApplyPatch applies a field-allowlisted update to a user. Authorization of
// the individual fields happens in the access guard before this is called;
// the service still re-validates domain invariants.
func (s *Service) ApplyPatch(ctx context.Context, userID string, patch UserPatch, actorID string) (*User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	roleChanged := false
	if patch.Username != nil && *patch.Username != "" {
		user.Username = *patch.Username
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.Phone != nil {
		user.Phone = *patch.Phone
	}
	if patch.NotifyPreference != nil {
		switch *patch.NotifyPreference {
		case NotifyEmail, NotifySMS, NotifyBoth, NotifyNone:
			user.NotifyPreference = *patch.NotifyPreference
		default:
			return nil, fmt.Errorf("invalid notification preference %q", *patch.NotifyPreference)
		}
	}
	if patch.Role != nil {
		if !patch.Role.Valid() {
			return nil, fmt.Errorf("invalid role %q", *patch.Role)
		}
		roleChanged = user.Role != *patch.Role
		user.Role = *patch.Role
	}
	if patch.CompanyID != nil {
		user.CompanyID = *patch.CompanyID
	}
	if user.Role == auth.RoleFleetManager && user.CompanyID == "" {
		return nil, ErrCompanyRequired
	}
	if user.Role == auth.RoleAdmin {
		user.CompanyID = ""
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if roleChanged {
		s.auditLogger.Log(ctx, audit.Event{
			Type:      audit.TypeRoleChanged,
			CompanyID: user.CompanyID,
			ActorID:   actorID,
			Resource:  user.Username,
			Metadata:  map[string]any{"role": string(user.Role)},
		})
	}

	return user, nil
}

// ChangePassword changes a user's password after verifying the old one
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	credentials, err := s.repo.GetCredentials(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}

	valid, err := s.hasher.Verify(oldPassword, credentials.PasswordHash)
	if err != nil || !valid {
		return ErrInvalidCredentials
	}

	if !isStrongPassword(newPassword) {
		return ErrWeakPassword
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, userID, newHash); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:    audit.TypePasswordChanged,
		ActorID: userID,
	})
	return nil
}

// Delete soft-deletes a user account
func (s *Service) Delete(ctx context.Context, userID string, actorID string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeUserDeleted,
		CompanyID: user.CompanyID,
		ActorID:   actorID,
		Resource:  user.Username,
	})
	return nil
}

func isStrongPassword(password string) bool {
	// Password must be at least 8 characters
	return len(password) >= 8
}
