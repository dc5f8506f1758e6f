package database

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/CUknot/chat_backend/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite://"

// Connect opens the relational store named by url. A "sqlite://<path>" url
// selects SQLite; anything else is handed to the Postgres driver as a DSN.
func Connect(url string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if path, ok := strings.CutPrefix(url, sqlitePrefix); ok {
		dialector = sqlite.Open(path)
	} else {
		dialector = postgres.Open(url)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if dialector.Name() == "sqlite" {
		// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(40)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	slog.Info("Database connection established", "driver", dialector.Name())
	return db, nil
}

// Migrate automatically migrates the database schema
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Room{}, &models.Membership{}, &models.Message{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	slog.Info("Database migration completed")
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
