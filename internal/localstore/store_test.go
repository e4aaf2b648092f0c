package localstore

import (
	"path/filepath"
	"testing"

	"github.com/veshchi/backend/internal/checklist"
	"github.com/veshchi/backend/internal/faults"
	"github.com/veshchi/backend/internal/prefs"
)

func newTestService(t *testing.T) (*Service, prefs.Store) {
	t.Helper()
	store, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.json"))
	if err != nil {
		t.Fatalf("unexpected prefs error: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Prefs:      store,
		IDProvider: checklist.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return service, store
}

func TestListsEmptyWithoutData(t *testing.T) {
	service, _ := newTestService(t)
	if lists := service.Lists(); len(lists) != 0 {
		t.Fatalf("expected empty catalog, got %d entries", len(lists))
	}
}

func TestCreateListAppendsToCatalog(t *testing.T) {
	service, _ := newTestService(t)

	first, err := service.CreateList("Travel")
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if first.ID == "" {
		t.Fatalf("expected generated list id")
	}

	second, err := service.CreateList("Groceries")
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	lists := service.Lists()
	if len(lists) != 2 {
		t.Fatalf("expected 2 lists, got %d", len(lists))
	}
	if lists[0].ID != first.ID || lists[1].ID != second.ID {
		t.Fatalf("catalog order changed: %#v", lists)
	}
}

func TestCreateListRejectsBlankName(t *testing.T) {
	service, _ := newTestService(t)
	if _, err := service.CreateList("   "); !faults.IsKind(err, faults.KindValidation) {
		t.Fatalf("expected validation fault, got %v", err)
	}
}

func TestItemsRoundTrip(t *testing.T) {
	service, _ := newTestService(t)
	list, err := service.CreateList("Travel")
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	saved := []checklist.Item{
		{ID: "i-1", Name: "Passport"},
		{ID: "i-2", Name: "Charger", Checked: true},
	}
	if err := service.SaveItems(list.Name, list.ID, saved); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	loaded, err := service.Items(list.Name, list.ID)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if len(loaded) != 2 || loaded[0] != saved[0] || loaded[1] != saved[1] {
		t.Fatalf("items changed across round trip: %#v", loaded)
	}
}

func TestItemsRequireListID(t *testing.T) {
	service, _ := newTestService(t)
	if _, err := service.Items("Travel", ""); !faults.IsKind(err, faults.KindValidation) {
		t.Fatalf("expected validation fault for missing id, got %v", err)
	}
	if err := service.SaveItems("Travel", "", nil); !faults.IsKind(err, faults.KindValidation) {
		t.Fatalf("expected validation fault for missing id, got %v", err)
	}
}

func TestItemsFallBackToDefaultsForKnownName(t *testing.T) {
	service, _ := newTestService(t)

	items, err := service.Items(checklist.DefaultListLeavingHome, "list-1")
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 default items, got %d", len(items))
	}

	unknown, err := service.Items("Совершенно новый список", "list-2")
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if len(unknown) != 0 {
		t.Fatalf("expected empty items for unknown list, got %d", len(unknown))
	}
}

func TestCorruptCatalogAndItemsAreSwallowed(t *testing.T) {
	service, store := newTestService(t)
	if err := store.Set("custom_lists", "{broken"); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	if err := store.Set("items_list-1", "{broken"); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}

	if lists := service.Lists(); len(lists) != 0 {
		t.Fatalf("expected corrupt catalog to read as empty")
	}

	items, err := service.Items(checklist.DefaultListTrip, "list-1")
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected trip defaults after corruption, got %d items", len(items))
	}
}
