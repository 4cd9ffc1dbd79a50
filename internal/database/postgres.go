package database

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"encantia/internal/models"
)

// Open connects, migrates the schema and makes sure the settings row exists.
func Open(driver, dsn string) (*gorm.DB, error) {
	db, err := Connect(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	if err := SeedSettings(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Connect opens a pool with the named driver, postgres or mysql.
func Connect(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "postgres", "":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		Logger:                                   logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Follow{},
		&models.Event{},
		&models.Book{},
		&models.TeamMember{},
		&models.TeamApplication{},
		&models.Alert{},
		&models.Update{},
		&models.MusicRequest{},
		&models.Connection{},
		&models.Settings{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// SeedSettings inserts the settings singleton with maintenance off if it is missing.
func SeedSettings(db *gorm.DB) error {
	var row models.Settings
	err := db.First(&row, models.SettingsRowID).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check settings row: %w", err)
	}

	row = models.Settings{ID: models.SettingsRowID}
	if err := db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to seed settings row: %w", err)
	}
	slog.Info("Seeded settings row", "id", row.ID)
	return nil
}
