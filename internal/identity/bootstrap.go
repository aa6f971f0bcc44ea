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
	"fmt"
	"os"

	"github.com/fleetworks/fleetworks/internal/audit"
	"github.com/fleetworks/fleetworks/internal/auth"
)

const (
	EnvBootstrapAdminUsername = "FW_BOOTSTRAP_ADMIN_USERNAME"
	EnvBootstrapAdminPassword = "FW_BOOTSTRAP_ADMIN_PASSWORD"
	EnvBootstrapAdminEmail    = "FW_BOOTSTRAP_ADMIN_EMAIL"
)

// BootstrapService creates the initial admin account on first start
type BootstrapService struct {
	identityService *Service
	auditLogger     audit.Logger
}

// NewBootstrapService creates a new bootstrap service
func NewBootstrapService(identityService *Service, auditLogger audit.Logger) *BootstrapService {
	return &BootstrapService{
		identityService: identityService,
		auditLogger:     auditLogger,
	}
}

// Bootstrap creates an admin account from environment configuration if no
// admin exists yet. Without configuration it is a no-op.
func (s *BootstrapService) Bootstrap(ctx context.Context) error {
	username := os.Getenv(EnvBootstrapAdminUsername)
	password := os.Getenv(EnvBootstrapAdminPassword)

	if username == "" {
		return nil
	}
	if password == "" {
		return fmt.Errorf("%s is set but %s is empty", EnvBootstrapAdminUsername, EnvBootstrapAdminPassword)
	}

	count, err := s.identityService.repo.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for existing admins: %w", err)
	}
	if count > 0 {
		// Already bootstrapped, skip silently.
		return nil
	}

	user, err := s.identityService.Provision(ctx,
		username,
		os.Getenv(EnvBootstrapAdminEmail),
		"",
		password,
		auth.RoleAdmin,
		"",
		audit.ActorSystemBootstrap,
	)
	if err != nil {
		return fmt.Errorf("failed to provision bootstrap admin: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAdminBootstrap,
		ActorID:  audit.ActorSystemBootstrap,
		Resource: user.Username,
		Metadata: map[string]any{"user_id": user.ID},
	})

	return nil
}
