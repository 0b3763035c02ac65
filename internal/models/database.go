package models

import (
	"fmt"

	"github.com/webcrawler/backend/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to the configured database without touching the package-level handle.
func Open(cfg *config.DatabaseConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// SQLite has a single writer; one connection serialises transactions
	// instead of failing them with SQLITE_BUSY. It also keeps ":memory:" alive.
	if cfg.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

func InitDB(cfg *config.DatabaseConfig, logLevel logger.LogLevel) error {
	db, err := Open(cfg, logLevel)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Migrate creates or updates every table owned by the service.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Token{},
		&Bookmark{},
		&Note{},
		&Notification{},
		&SystemLog{},
	)
}

func AutoMigrate() error {
	return Migrate(DB)
}

func GetDB() *gorm.DB {
	return DB
}

// GormLogLevel maps an application log level onto gorm's logger levels.
func GormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "info", "warn":
		return logger.Warn
	case "error":
		return logger.Error
	default:
		return logger.Silent
	}
}
