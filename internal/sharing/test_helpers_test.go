package sharing

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/veshchi/backend/internal/auth"
	"github.com/veshchi/backend/internal/checklist"
	"github.com/veshchi/backend/internal/localstore"
	"github.com/veshchi/backend/internal/prefs"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// testDevice bundles the per-device services: its own prefs file (and thus
// its own session pointer and local catalog) over the shared database.
type testDevice struct {
	credentials *auth.Service
	local       *localstore.Service
	registry    *Service
}

func newSharedDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "sharing.db")), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&auth.User{}, &SharedList{}, &SharedListAccess{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func newTestDevice(t *testing.T, db *gorm.DB) *testDevice {
	t.Helper()

	store, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.json"))
	if err != nil {
		t.Fatalf("failed to open prefs: %v", err)
	}
	clock := func() time.Time { return time.Unix(1750000000, 0) }

	credentials, err := auth.NewService(auth.ServiceConfig{
		Database: db,
		Prefs:    store,
		Clock:    clock,
		HashCost: bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("failed to build credential service: %v", err)
	}

	local, err := localstore.NewService(localstore.ServiceConfig{
		Prefs:      store,
		IDProvider: checklist.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to build local store: %v", err)
	}

	registry, err := NewService(ServiceConfig{
		Database:    db,
		Credentials: credentials,
		Local:       local,
		IDProvider:  checklist.NewUUIDProvider(),
		Clock:       clock,
	})
	if err != nil {
		t.Fatalf("failed to build sharing service: %v", err)
	}

	return &testDevice{credentials: credentials, local: local, registry: registry}
}

func mustRegister(t *testing.T, device *testDevice, username, password string) *auth.User {
	t.Helper()
	user, err := device.credentials.Register(context.Background(), username, password)
	if err != nil {
		t.Fatalf("unexpected register error for %s: %v", username, err)
	}
	return user
}

func travelItems() []checklist.Item {
	return []checklist.Item{
		{ID: "i-1", Name: "Passport"},
		{ID: "i-2", Name: "Charger"},
	}
}
