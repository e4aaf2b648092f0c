// Package auth owns credential-based identity: account registration, login
// verification and the device-local session pointer.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/veshchi/backend/internal/faults"
	"github.com/veshchi/backend/internal/prefs"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	currentUserIDKey   = "current_user_id"
	currentUsernameKey = "current_username"

	minUsernameLength = 3
	minPasswordLength = 6
)

// The same message covers unknown users and wrong passwords so login
// failures never reveal whether a username exists.
const invalidCredentialsMessage = "invalid login or password"

var (
	errMissingDatabase = errors.New("auth: database handle is required")
	errMissingPrefs    = errors.New("auth: prefs store is required")
	noOpLogger         = zap.NewNop()
)

// ServiceConfig describes the dependencies of the credential service.
type ServiceConfig struct {
	Database *gorm.DB
	Prefs    prefs.Store
	Clock    func() time.Time
	HashCost int
	Logger   *zap.Logger
}

// Service implements registration, login and session resolution.
type Service struct {
	db       *gorm.DB
	prefs    prefs.Store
	clock    func() time.Time
	hashCost int
	logger   *zap.Logger
}

// NewService constructs the credential service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.Prefs == nil {
		return nil, errMissingPrefs
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	hashCost := cfg.HashCost
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:       cfg.Database,
		prefs:    cfg.Prefs,
		clock:    clock,
		hashCost: hashCost,
		logger:   logger,
	}, nil
}

// Register creates a new account, stores a bcrypt hash of the password and
// persists the session pointer for the new user.
func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return nil, faults.New(faults.KindValidation, "login and password must not be empty")
	}
	if utf8.RuneCountInString(username) < minUsernameLength {
		return nil, faults.New(faults.KindValidation, "login must be at least 3 characters")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, faults.New(faults.KindValidation, "password must be at least 6 characters")
	}

	// Fast-path check for a friendlier message; the case-insensitive unique
	// index remains the source of truth under concurrent registration.
	existing, err := s.findByUsername(ctx, username)
	if err != nil {
		return nil, faults.Wrap(faults.KindInternal, "could not check the login", err)
	}
	if existing != nil {
		return nil, faults.New(faults.KindConflict, "a user with this login already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, faults.Wrap(faults.KindInternal, "could not hash the password", err)
	}

	user := User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, faults.Wrap(faults.KindConflict, "a user with this login already exists", err)
		}
		return nil, faults.Wrap(faults.KindInternal, "could not create the user", err)
	}

	if err := s.storeSession(&user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Int("user_id", user.ID), zap.String("username", user.Username))
	return &user, nil
}

// Login verifies the credentials and updates the session pointer.
func (s *Service) Login(ctx context.Context, username, password string) (*User, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return nil, faults.New(faults.KindValidation, "login and password must not be empty")
	}

	user, err := s.findByUsername(ctx, username)
	if err != nil {
		return nil, faults.Wrap(faults.KindInternal, "could not look up the user", err)
	}
	if user == nil {
		return nil, faults.New(faults.KindAuth, invalidCredentialsMessage)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("password verification failed", zap.String("username", username))
		return nil, faults.New(faults.KindAuth, invalidCredentialsMessage)
	}

	if err := s.storeSession(user); err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.Int("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Logout clears the session pointer. Calling it without a session is a no-op.
func (s *Service) Logout() error {
	if err := s.prefs.Delete(currentUserIDKey); err != nil {
		return faults.Wrap(faults.KindInternal, "could not clear the session", err)
	}
	if err := s.prefs.Delete(currentUsernameKey); err != nil {
		return faults.Wrap(faults.KindInternal, "could not clear the session", err)
	}
	return nil
}

// IsLoggedIn reports whether a session pointer is present.
func (s *Service) IsLoggedIn() bool {
	return s.prefs.Has(currentUserIDKey)
}

// CurrentUserID returns the session's user id, or 0 without a session.
func (s *Service) CurrentUserID() int {
	return prefs.GetInt(s.prefs, currentUserIDKey, 0)
}

// CurrentUsername returns the session's username, or an empty string.
func (s *Service) CurrentUsername() string {
	username, _ := s.prefs.Get(currentUsernameKey)
	return username
}

// CurrentUser resolves the session pointer against storage. A pointer that
// refers to a deleted user yields nil without an error.
func (s *Service) CurrentUser(ctx context.Context) (*User, error) {
	userID := s.CurrentUserID()
	if userID == 0 {
		return nil, nil
	}

	var user User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, faults.Wrap(faults.KindInternal, "could not resolve the session user", err)
	}
	return &user, nil
}

// FindByUsername resolves an account by case-insensitive username match.
// Absence is reported as nil, nil.
func (s *Service) FindByUsername(ctx context.Context, username string) (*User, error) {
	user, err := s.findByUsername(ctx, username)
	if err != nil {
		return nil, faults.Wrap(faults.KindInternal, "could not look up the user", err)
	}
	return user, nil
}

func (s *Service) findByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).
		Where("LOWER(username) = LOWER(?)", username).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) storeSession(user *User) error {
	if err := prefs.SetInt(s.prefs, currentUserIDKey, user.ID); err != nil {
		return faults.Wrap(faults.KindInternal, "could not persist the session", err)
	}
	if err := s.prefs.Set(currentUsernameKey, user.Username); err != nil {
		return faults.Wrap(faults.KindInternal, "could not persist the session", err)
	}
	return nil
}
