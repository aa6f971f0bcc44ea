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

// Command sweep runs one maintenance reminder pass and exits. Meant for
// cron-style deployments where the in-process ticker of the server is
// disabled via REMINDER_ENABLED=false.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fleetworks/fleetworks/internal/audit"
	"github.com/fleetworks/fleetworks/internal/config"
	"github.com/fleetworks/fleetworks/internal/notify"
	"github.com/fleetworks/fleetworks/internal/observability/logger"
	"github.com/fleetworks/fleetworks/internal/reminder"
	"github.com/fleetworks/fleetworks/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	svc := reminder.NewService(
		postgres.NewMaintenanceRepository(db),
		postgres.NewMachineRepository(db),
		postgres.NewUserRepository(db),
		notify.NewSlogSender(),
		audit.NewSlogLogger(),
		cfg.Reminder.Lookahead,
	)

	if err := svc.Sweep(ctx); err != nil {
		slog.Error("reminder sweep finished with errors", logger.Error(err))
		os.Exit(1)
	}
	slog.Info("reminder sweep completed")
}
