// Package sharing owns cross-user publication of checklist snapshots and the
// access grants controlling who may read them.
package sharing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/veshchi/backend/internal/auth"
	"github.com/veshchi/backend/internal/checklist"
	"github.com/veshchi/backend/internal/faults"
	"github.com/veshchi/backend/internal/localstore"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opShareList   = "sharing.share_list"
	opFetchList   = "sharing.fetch_list"
	opMaterialize = "sharing.materialize"
	opUpdateList  = "sharing.update_list"
)

var (
	errMissingDatabase    = errors.New("sharing: database handle is required")
	errMissingCredentials = errors.New("sharing: credential service is required")
	errMissingLocalStore  = errors.New("sharing: local list store is required")
	errMissingIDProvider  = errors.New("sharing: id provider is required")
	noOpLogger            = zap.NewNop()
)

// ServiceConfig describes the dependencies of the sharing registry.
type ServiceConfig struct {
	Database    *gorm.DB
	Credentials *auth.Service
	Local       *localstore.Service
	IDProvider  checklist.IDProvider
	Clock       func() time.Time
	Logger      *zap.Logger
}

// Service publishes list snapshots, enforces access grants and materializes
// received snapshots into local storage.
type Service struct {
	db          *gorm.DB
	credentials *auth.Service
	local       *localstore.Service
	ids         checklist.IDProvider
	clock       func() time.Time
	logger      *zap.Logger
}

// NewService constructs the sharing registry.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.Credentials == nil {
		return nil, errMissingCredentials
	}
	if cfg.Local == nil {
		return nil, errMissingLocalStore
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:          cfg.Database,
		credentials: cfg.Credentials,
		local:       cfg.Local,
		ids:         cfg.IDProvider,
		clock:       clock,
		logger:      logger,
	}, nil
}

// ShareList publishes a snapshot of the given items and grants the recipient
// view access. The list row and the grant are written in one transaction, so
// an interrupted share never leaves an orphaned publication.
func (s *Service) ShareList(ctx context.Context, listID, listName string, items []checklist.Item, recipientUsername string) (int, error) {
	currentUserID, err := s.requireSession()
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(recipientUsername) == "" {
		return 0, faults.New(faults.KindValidation, "recipient login must not be empty")
	}
	if len(items) == 0 {
		return 0, faults.New(faults.KindValidation, "the list is empty")
	}

	recipient, err := s.credentials.FindByUsername(ctx, recipientUsername)
	if err != nil {
		s.logError(opShareList, "recipient_lookup_failed", err)
		return 0, err
	}
	if recipient == nil {
		return 0, faults.New(faults.KindNotFound, fmt.Sprintf("user %q was not found", recipientUsername))
	}
	if recipient.ID == currentUserID {
		return 0, faults.New(faults.KindValidation, "you cannot share a list with yourself")
	}

	snapshot, err := checklist.EncodeItems(items)
	if err != nil {
		s.logError(opShareList, "snapshot_encode_failed", err)
		return 0, faults.Wrap(faults.KindInternal, "could not serialize the list", err)
	}

	externalID := listID
	if externalID == "" {
		generated, err := s.ids.NewID()
		if err != nil {
			s.logError(opShareList, "id_generation_failed", err)
			return 0, faults.Wrap(faults.KindInternal, "could not generate a list id", err)
		}
		externalID = generated
	}

	now := s.clock().UTC()
	shared := SharedList{
		ListID:    externalID,
		ListName:  listName,
		OwnerID:   currentUserID,
		ListData:  snapshot,
		CreatedAt: now,
		UpdatedAt: now,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&shared).Error; err != nil {
			s.logError(opShareList, "list_insert_failed", err, zap.Int("owner_id", currentUserID))
			return faults.Wrap(faults.KindInternal, "could not publish the list", err)
		}
		grant := SharedListAccess{
			ListID:      shared.ID,
			UserID:      recipient.ID,
			AccessLevel: AccessView,
			CreatedAt:   now,
		}
		if err := tx.Create(&grant).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return faults.Wrap(faults.KindConflict, "this list is already shared with this user", err)
			}
			s.logError(opShareList, "grant_insert_failed", err, zap.Int("shared_list_id", shared.ID))
			return faults.Wrap(faults.KindInternal, "could not grant access", err)
		}
		return nil
	})
	if txErr != nil {
		return 0, txErr
	}

	s.logger.Info("list shared",
		zap.Int("shared_list_id", shared.ID),
		zap.Int("owner_id", currentUserID),
		zap.Int("recipient_id", recipient.ID))
	return shared.ID, nil
}

// FetchSharedList loads a published list with its owner and grants, allowing
// the owner or any grantee to read it.
func (s *Service) FetchSharedList(ctx context.Context, sharedListID int) (*SharedList, error) {
	currentUserID, err := s.requireSession()
	if err != nil {
		return nil, err
	}

	var shared SharedList
	loadErr := s.db.WithContext(ctx).
		Preload("Owner").
		Preload("Accesses").
		First(&shared, sharedListID).Error
	if errors.Is(loadErr, gorm.ErrRecordNotFound) {
		return nil, faults.New(faults.KindNotFound, "no shared list with this id was found")
	}
	if loadErr != nil {
		s.logError(opFetchList, "load_failed", loadErr, zap.Int("shared_list_id", sharedListID))
		return nil, faults.Wrap(faults.KindInternal, "could not load the shared list", loadErr)
	}

	if !s.hasAccess(&shared, currentUserID) {
		// The message must not reveal who the list is shared with.
		return nil, faults.New(faults.KindForbidden, "you do not have access to this list")
	}

	return &shared, nil
}

// MaterializeToLocal copies a fetched snapshot into local storage as a new
// checklist. No link to the shared list is retained.
func (s *Service) MaterializeToLocal(ctx context.Context, shared *SharedList) (*checklist.List, error) {
	if _, err := s.requireSession(); err != nil {
		return nil, err
	}
	if shared == nil {
		return nil, faults.New(faults.KindValidation, "a shared list is required")
	}

	items, err := checklist.DecodeItems(shared.ListData)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, faults.New(faults.KindValidation, "the list is empty")
	}

	// The shared id in the name keeps the copy from colliding with the
	// recipient's own list of the same name.
	localName := fmt.Sprintf("%s (общий #%d)", shared.ListName, shared.ID)
	localList, err := s.local.CreateList(localName)
	if err != nil {
		s.logError(opMaterialize, "create_local_failed", err, zap.Int("shared_list_id", shared.ID))
		return nil, err
	}
	if err := s.local.SaveItems(localList.Name, localList.ID, items); err != nil {
		s.logError(opMaterialize, "save_items_failed", err, zap.String("list_id", localList.ID))
		return nil, err
	}

	s.logger.Info("shared list materialized",
		zap.Int("shared_list_id", shared.ID),
		zap.String("local_list_id", localList.ID))
	return localList, nil
}

// UpdateSharedList replaces the published snapshot. Only the owner may
// update; recipients see the change on their next fetch.
func (s *Service) UpdateSharedList(ctx context.Context, sharedListID int, items []checklist.Item) error {
	currentUserID, err := s.requireSession()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return faults.New(faults.KindValidation, "the list is empty")
	}

	var shared SharedList
	loadErr := s.db.WithContext(ctx).First(&shared, sharedListID).Error
	if errors.Is(loadErr, gorm.ErrRecordNotFound) {
		return faults.New(faults.KindNotFound, "no shared list with this id was found")
	}
	if loadErr != nil {
		s.logError(opUpdateList, "load_failed", loadErr, zap.Int("shared_list_id", sharedListID))
		return faults.Wrap(faults.KindInternal, "could not load the shared list", loadErr)
	}
	if shared.OwnerID != currentUserID {
		return faults.New(faults.KindForbidden, "only the owner can update the list")
	}

	snapshot, err := checklist.EncodeItems(items)
	if err != nil {
		return faults.Wrap(faults.KindInternal, "could not serialize the list", err)
	}

	updates := map[string]interface{}{
		"list_data":  snapshot,
		"updated_at": s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Model(&SharedList{}).
		Where("id = ?", sharedListID).
		Updates(updates).Error; err != nil {
		s.logError(opUpdateList, "update_failed", err, zap.Int("shared_list_id", sharedListID))
		return faults.Wrap(faults.KindInternal, "could not update the shared list", err)
	}

	s.logger.Info("shared list updated", zap.Int("shared_list_id", sharedListID))
	return nil
}

func (s *Service) requireSession() (int, error) {
	currentUserID := s.credentials.CurrentUserID()
	if currentUserID == 0 {
		return 0, faults.New(faults.KindAuth, "not authenticated")
	}
	return currentUserID, nil
}

func (s *Service) hasAccess(shared *SharedList, userID int) bool {
	if shared.OwnerID == userID {
		return true
	}
	for _, grant := range shared.Accesses {
		if grant.UserID == userID {
			return true
		}
	}
	return false
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("sharing service error", attrs...)
}
