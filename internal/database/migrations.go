package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationUniqueUsernameNoCase = "2026-07-18_unique_username_nocase"
	migrationBackfillAccessLevel  = "2026-07-18_backfill_access_level"
)

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
		{name: migrationUniqueUsernameNoCase, apply: createCaseInsensitiveUsernameIndex},
		{name: migrationBackfillAccessLevel, apply: backfillAccessLevel},
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

// Usernames compare case-insensitively, so uniqueness must be enforced by a
// NOCASE index rather than the default collation.
func createCaseInsensitiveUsernameIndex(db *gorm.DB) error {
	return db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_nocase ON users(username COLLATE NOCASE);",
	).Error
}

// Grants written before the access-level default existed carry NULL or empty
// levels; normalize them to view.
func backfillAccessLevel(db *gorm.DB) error {
	return db.Exec(
		"UPDATE shared_list_access SET access_level = 'view' WHERE access_level IS NULL OR access_level = '';",
	).Error
}
