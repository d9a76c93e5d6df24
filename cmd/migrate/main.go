// cmd/migrate/main.go
package main

import (
	"github.com/sirupsen/logrus"

	"github.com/javajoker/labelhub/internal/config"
	"github.com/javajoker/labelhub/internal/database"
	"github.com/javajoker/labelhub/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	// Make sure the core can be wired against the migrated schema
	if _, err := services.New(db, cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize services")
	}

	logrus.WithField("environment", cfg.Environment).Info("Schema is up to date")
}
