package database

import (
	"log/slog"

	"gorm.io/gorm"

	"blogpress/models"
)

func RunMigrations(db *gorm.DB) error {
	slog.Info("running database migrations")

	err := db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
	)

	if err != nil {
		slog.Error("migrations failed", "err", err)
		return err
	}

	slog.Info("migrations completed")
	return nil
}
