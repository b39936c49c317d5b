// cmd/seed/main.go
package main

import (
	"context"
	"flag"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

func main() {
	var (
		drop     bool
		showInfo bool
	)

	flag.BoolVar(&drop, "drop", false, "Drop every table before migrating (destroys all data)")
	flag.BoolVar(&showInfo, "info", true, "Log table row counts when done")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := logger.New(cfg)

	db, err := postgres.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	migration := postgres.NewMigration(db.GetDB(), log)

	if drop {
		if err := migration.DropAllTables(); err != nil {
			log.WithError(err).Fatal("Failed to drop tables")
		}
	}

	if err := migration.RunAutoMigrations(); err != nil {
		log.WithError(err).Fatal("Database migration failed")
	}
	if err := migration.CreateIndexes(); err != nil {
		log.WithError(err).Warn("Index creation failed")
	}

	ctx := context.Background()

	if err := migration.SeedSampleCatalog(ctx); err != nil {
		log.WithError(err).Fatal("Catalog seeding failed")
	}

	if cfg.App.AdminEmail != "" && cfg.App.AdminPassword != "" {
		users := user.NewService(db.GetDB(), cfg, log)
		if err := migration.SeedAdminUser(ctx, users, cfg.App.AdminEmail, cfg.App.AdminPassword); err != nil {
			log.WithError(err).Fatal("Admin seeding failed")
		}
	} else {
		log.Info("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin user")
	}

	if showInfo {
		if err := migration.GetTableInfo(); err != nil {
			log.WithError(err).Warn("Failed to list tables")
		}
	}

	log.Info("Seeding completed")
}
