package database

import (
	"errors"
	"strings"
	"time"

	"github.com/papermoth/ficshelf/backend/internal/catalog"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillEntityNameKeys = "2026-06-18_backfill_entity_name_keys"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillEntityNameKeys, apply: backfillEntityNameKeys},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Rows imported before name_key existed carry an empty key and would dodge the
// case-insensitive uniqueness index.
func backfillEntityNameKeys(db *gorm.DB) error {
	var entities []catalog.TaggableEntity
	if err := db.Where("name_key = ''").Find(&entities).Error; err != nil {
		return err
	}
	for _, entity := range entities {
		key := strings.ToLower(strings.TrimSpace(entity.Name))
		if err := db.Model(&catalog.TaggableEntity{}).
			Where("entity_id = ?", entity.EntityID).
			Update("name_key", key).Error; err != nil {
			return err
		}
	}
	return nil
}
