package database

import (
	"path/filepath"
	"testing"

	"github.com/veshchi/backend/internal/auth"
	"github.com/veshchi/backend/internal/sharing"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func openTestDatabase(testContext *testing.T) *gorm.DB {
	testContext.Helper()
	databasePath := filepath.Join(testContext.TempDir(), "veshchi.db")
	database, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	return database
}

func TestOpenSQLiteEnforcesCaseInsensitiveUsernames(testContext *testing.T) {
	database := openTestDatabase(testContext)

	if err := database.Create(&auth.User{Username: "Bob", PasswordHash: "hash"}).Error; err != nil {
		testContext.Fatalf("failed to insert user: %v", err)
	}
	err := database.Create(&auth.User{Username: "bob", PasswordHash: "hash"}).Error
	if err == nil {
		testContext.Fatalf("expected case-insensitive duplicate to be rejected")
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationUniqueUsernameNoCase).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}
}

func TestApplyMigrationsBackfillsAccessLevel(testContext *testing.T) {
	database := openTestDatabase(testContext)

	owner := auth.User{Username: "owner", PasswordHash: "hash"}
	grantee := auth.User{Username: "grantee", PasswordHash: "hash"}
	if err := database.Create(&owner).Error; err != nil {
		testContext.Fatalf("failed to insert owner: %v", err)
	}
	if err := database.Create(&grantee).Error; err != nil {
		testContext.Fatalf("failed to insert grantee: %v", err)
	}
	shared := sharing.SharedList{ListID: "l-1", ListName: "Travel", OwnerID: owner.ID, ListData: "[]"}
	if err := database.Create(&shared).Error; err != nil {
		testContext.Fatalf("failed to insert shared list: %v", err)
	}
	if err := database.Exec(
		"INSERT INTO shared_list_access (list_id, user_id, access_level, created_at) VALUES (?, ?, '', CURRENT_TIMESTAMP);",
		shared.ID, grantee.ID,
	).Error; err != nil {
		testContext.Fatalf("failed to insert grant: %v", err)
	}
	if err := database.Exec("DELETE FROM db_migrations WHERE name = ?;", migrationBackfillAccessLevel).Error; err != nil {
		testContext.Fatalf("failed to reset migration record: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored sharing.SharedListAccess
	if err := database.Where("list_id = ? AND user_id = ?", shared.ID, grantee.ID).Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload grant: %v", err)
	}
	if stored.AccessLevel != sharing.AccessView {
		testContext.Fatalf("expected view access after backfill, got %q", stored.AccessLevel)
	}
}

func TestApplyMigrationsIsIdempotent(testContext *testing.T) {
	database := openTestDatabase(testContext)
	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("expected re-application to succeed: %v", err)
	}
}
