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

package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetworks/fleetworks/internal/audit"
	"github.com/fleetworks/fleetworks/internal/auth"
	"github.com/fleetworks/fleetworks/internal/fleet"
	"github.com/fleetworks/fleetworks/internal/identity"
	"github.com/fleetworks/fleetworks/internal/notify"
	"github.com/fleetworks/fleetworks/internal/observability/logger"
)

// Service sends reminders for upcoming maintenances. Each sweep is
// idempotent per maintenance: a reminded maintenance is marked notified
// before counting as done, so two overlapping sweeps can at worst duplicate
// a message, never lose one.
type Service struct {
	maintenances fleet.MaintenanceRepository
	machines     fleet.MachineRepository
	users        identity.UserRepository
	sender       notify.Sender
	auditLogger  audit.Logger
	lookahead    time.Duration
}

// NewService creates a new reminder service
func NewService(
	maintenances fleet.MaintenanceRepository,
	machines fleet.MachineRepository,
	users identity.UserRepository,
	sender notify.Sender,
	auditLogger audit.Logger,
	lookahead time.Duration,
) *Service {
	return &Service{
		maintenances: maintenances,
		machines:     machines,
		users:        users,
		sender:       sender,
		auditLogger:  auditLogger,
		lookahead:    lookahead,
	}
}

// Sweep scans for maintenances due within the lookahead window and reminds
// the owning company's fleet managers. A failure on one maintenance does not
// abort the sweep; the error of the last failure is returned.
func (s *Service) Sweep(ctx context.Context) error {
	deadline := time.Now().Add(s.lookahead)
	due, err := s.maintenances.ListDueBefore(ctx, deadline)
	if err != nil {
		return fmt.Errorf("failed to list due maintenances: %w", err)
	}

	var lastErr error
	for _, m := range due {
		if err := s.remind(ctx, m); err != nil {
			slog.ErrorContext(ctx, "failed to send maintenance reminder",
				logger.MaintenanceID(m.ID), logger.Error(err))
			lastErr = err
		}
	}
	return lastErr
}

func (s *Service) remind(ctx context.Context, m *fleet.Maintenance) error {
	machine, err := s.machines.GetByID(ctx, m.MachineID)
	if err != nil {
		// Orphaned maintenance; leave it unmarked and surface the error.
		return fmt.Errorf("failed to resolve machine %s: %w", m.MachineID, err)
	}

	users, err := s.users.ListByCompany(ctx, machine.CompanyID)
	if err != nil {
		return fmt.Errorf("failed to list recipients for company %s: %w", machine.CompanyID, err)
	}

	subject := fmt.Sprintf("Maintenance due: %s", machine.Name)
	body := fmt.Sprintf("Maintenance %q for machine %s (%s) is scheduled at %s.",
		m.Description, machine.Name, machine.SerialNumber, m.ScheduledAt.Format(time.RFC1123))

	sent := 0
	for _, u := range users {
		if u.Role != auth.RoleFleetManager {
			continue
		}
		if err := s.send(ctx, u, subject, body); err != nil {
			slog.WarnContext(ctx, "reminder delivery failed",
				logger.UserID(u.ID), logger.MaintenanceID(m.ID), logger.Error(err))
			continue
		}
		sent++
	}

	if err := s.maintenances.MarkNotified(ctx, m.ID); err != nil {
		return fmt.Errorf("failed to mark maintenance %s notified: %w", m.ID, err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeReminderSent,
		CompanyID: machine.CompanyID,
		ActorID:   audit.ActorSystemReminder,
		Resource:  m.ID,
		Metadata:  map[string]any{"recipients": sent, "machine_id": machine.ID},
	})
	return nil
}

func (s *Service) send(ctx context.Context, u *identity.User, subject, body string) error {
	switch u.NotifyPreference {
	case identity.NotifyEmail:
		return s.sender.SendEmail(ctx, u.Email, subject, body)
	case identity.NotifySMS:
		return s.sender.SendSMS(ctx, u.Phone, body)
	case identity.NotifyBoth:
		if err := s.sender.SendEmail(ctx, u.Email, subject, body); err != nil {
			return err
		}
		return s.sender.SendSMS(ctx, u.Phone, body)
	case identity.NotifyNone:
		return nil
	default:
		return s.sender.SendEmail(ctx, u.Email, subject, body)
	}
}

// Run executes Sweep on a fixed interval until the context is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				slog.ErrorContext(ctx, "maintenance reminder sweep failed", logger.Error(err))
			}
		}
	}
}
