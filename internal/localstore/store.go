// Package localstore owns the per-device catalog of checklists and their
// items, persisted through the prefs key-value store.
package localstore

import (
	"errors"
	"strings"

	"github.com/veshchi/backend/internal/checklist"
	"github.com/veshchi/backend/internal/faults"
	"github.com/veshchi/backend/internal/prefs"
	"go.uber.org/zap"
)

const (
	customListsKey = "custom_lists"
	itemsKeyPrefix = "items_"
)

var (
	errMissingPrefs      = errors.New("localstore: prefs store is required")
	errMissingIDProvider = errors.New("localstore: id provider is required")
	noOpLogger           = zap.NewNop()
)

// ServiceConfig describes the dependencies of the local list store.
type ServiceConfig struct {
	Prefs      prefs.Store
	IDProvider checklist.IDProvider
	Logger     *zap.Logger
}

// Service reads and writes the device-local checklist catalog.
type Service struct {
	prefs  prefs.Store
	ids    checklist.IDProvider
	logger *zap.Logger
}

// NewService constructs the local list store.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Prefs == nil {
		return nil, errMissingPrefs
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{prefs: cfg.Prefs, ids: cfg.IDProvider, logger: logger}, nil
}

// Lists returns the custom list catalog. Missing or undecodable data yields
// an empty catalog; corruption is logged, never surfaced.
func (s *Service) Lists() []checklist.List {
	raw, ok := s.prefs.Get(customListsKey)
	if !ok || strings.TrimSpace(raw) == "" {
		return []checklist.List{}
	}
	lists, err := checklist.DecodeLists(raw)
	if err != nil {
		s.logger.Warn("custom list catalog is corrupt, treating as empty",
			zap.String("key", customListsKey),
			zap.Error(err))
		return []checklist.List{}
	}
	return lists
}

// CreateList appends a new list with a generated identifier to the catalog.
func (s *Service) CreateList(name string) (*checklist.List, error) {
	if strings.TrimSpace(name) == "" {
		return nil, faults.New(faults.KindValidation, "list name must not be empty")
	}

	id, err := s.ids.NewID()
	if err != nil {
		return nil, faults.Wrap(faults.KindInternal, "could not generate a list id", err)
	}

	list := checklist.List{ID: id, Name: name}
	catalog := append(s.Lists(), list)
	encoded, err := checklist.EncodeLists(catalog)
	if err != nil {
		return nil, err
	}
	if err := s.prefs.Set(customListsKey, encoded); err != nil {
		return nil, faults.Wrap(faults.KindInternal, "could not persist the list catalog", err)
	}

	s.logger.Info("local list created", zap.String("list_id", id), zap.String("list_name", name))
	return &list, nil
}

// Items loads the stored items of a list. Without stored data the built-in
// default set for the list name is returned (empty for unknown names);
// corrupt data falls back the same way.
func (s *Service) Items(listName, listID string) ([]checklist.Item, error) {
	if strings.TrimSpace(listID) == "" {
		return nil, faults.New(faults.KindValidation, "list id is required")
	}

	raw, ok := s.prefs.Get(itemsKeyPrefix + listID)
	if !ok || strings.TrimSpace(raw) == "" {
		return s.defaultItems(listName)
	}

	items, err := checklist.DecodeItems(raw)
	if err != nil {
		s.logger.Warn("stored items are corrupt, falling back to defaults",
			zap.String("key", itemsKeyPrefix+listID),
			zap.Error(err))
		return s.defaultItems(listName)
	}
	return items, nil
}

// SaveItems overwrites the stored items of a list. Whole-collection
// replacement, no partial writes.
func (s *Service) SaveItems(listName, listID string, items []checklist.Item) error {
	if strings.TrimSpace(listID) == "" {
		return faults.New(faults.KindValidation, "list id is required")
	}

	encoded, err := checklist.EncodeItems(items)
	if err != nil {
		return err
	}
	if err := s.prefs.Set(itemsKeyPrefix+listID, encoded); err != nil {
		return faults.Wrap(faults.KindInternal, "could not persist the list items", err)
	}

	s.logger.Debug("local items saved",
		zap.String("list_id", listID),
		zap.String("list_name", listName),
		zap.Int("count", len(items)))
	return nil
}

func (s *Service) defaultItems(listName string) ([]checklist.Item, error) {
	items, err := checklist.DefaultItems(listName, s.ids)
	if err != nil {
		return nil, faults.Wrap(faults.KindInternal, "could not generate default items", err)
	}
	return items, nil
}
