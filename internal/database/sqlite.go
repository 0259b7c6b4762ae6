package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"github.com/papermoth/ficshelf/backend/internal/catalog"
	"github.com/papermoth/ficshelf/backend/internal/readinglog"
	"github.com/papermoth/ficshelf/backend/internal/social"
	"github.com/papermoth/ficshelf/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&users.User{},
		&users.Follow{},
		&catalog.Fic{},
		&catalog.Shelf{},
		&catalog.ShelfFic{},
		&catalog.TaggableEntity{},
		&catalog.EntityLink{},
		&readinglog.ReadingLog{},
		&social.Post{},
		&social.Comment{},
		&migrationRecord{},
	); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}
