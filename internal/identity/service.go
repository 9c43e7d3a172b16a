package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/notjira/internal/config"
	"github.com/spec-kit/notjira/internal/store"
	apperrors "github.com/spec-kit/notjira/pkg/util"
)

// StateListener is invoked with the identity on sign-in and nil on sign-out.
type StateListener func(*Identity)

// Verifier resolves a session token to an identity. The HTTP middleware
// depends on this rather than the full service.
type Verifier interface {
	Verify(token string) (*Identity, error)
}

// Service is an email/password identity provider backed by the remote store.
type Service struct {
	store  store.Store
	tokens *TokenManager
	cost   int
	logger *zap.Logger

	mu        sync.Mutex
	listeners []StateListener
}

// NewService constructs the provider.
func NewService(cfg config.AuthConfig, st store.Store, logger *zap.Logger) *Service {
	return &Service{
		store:  st,
		tokens: NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		cost:   cfg.BcryptCost,
		logger: logger,
	}
}

// OnStateChange registers a sign-in-state listener for the session lifetime.
func (s *Service) OnStateChange(listener StateListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// Register creates an account and its users/{uid} record.
func (s *Service) Register(ctx context.Context, name, email, password, photoURL string) (*Identity, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("valid email required", nil)
	}
	if len(password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}

	var existing accountRecord
	err := s.store.Get(ctx, store.CollectionAccounts, emailKey(email), &existing)
	if err == nil {
		return nil, apperrors.NewConflict("account already exists", map[string]any{"email": email})
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}

	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := time.Now().UTC()
	account := accountRecord{
		UID:          uuid.NewString(),
		Name:         name,
		Email:        email,
		PhotoURL:     photoURL,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if err := s.store.Put(ctx, store.CollectionAccounts, emailKey(email), account); err != nil {
		return nil, apperrors.NewStoreWriteError("account create", err)
	}
	if err := s.store.Put(ctx, store.CollectionUsers, account.UID, userRecord{
		Name:      name,
		Email:     email,
		PhotoURL:  photoURL,
		CreatedAt: now,
		LastLogin: now,
	}); err != nil {
		return nil, apperrors.NewStoreWriteError("user record create", err)
	}

	s.logger.Info("account registered", zap.String("uid", account.UID))
	return &Identity{
		UID:          account.UID,
		DisplayName:  name,
		Email:        email,
		PhotoURL:     photoURL,
		CreatedAt:    now,
		LastSignInAt: now,
	}, nil
}

// SignIn authenticates the credentials, refreshes the users/{uid} account
// record and issues a session token.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Identity, string, error) {
	email = normalizeEmail(email)

	var account accountRecord
	if err := s.store.Get(ctx, store.CollectionAccounts, emailKey(email), &account); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", apperrors.NewInternalError(err)
	}
	if err := ComparePassword(account.PasswordHash, password); err != nil {
		return nil, "", apperrors.NewUnauthorized("invalid credentials")
	}

	now := time.Now().UTC()
	id := &Identity{
		UID:          account.UID,
		DisplayName:  account.Name,
		Email:        account.Email,
		PhotoURL:     account.PhotoURL,
		CreatedAt:    account.CreatedAt,
		LastSignInAt: now,
	}

	if err := s.store.Merge(ctx, store.CollectionUsers, account.UID, map[string]any{
		"name":      account.Name,
		"email":     account.Email,
		"photoURL":  account.PhotoURL,
		"lastLogin": now,
	}); err != nil {
		s.logger.Warn("failed to refresh user record on sign-in", zap.String("uid", account.UID), zap.Error(err))
	}

	token, _, err := s.tokens.GenerateToken(id)
	if err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}

	s.notify(id)
	return id, token, nil
}

// Verify resolves a bearer token to the identity it was issued for.
func (s *Service) Verify(token string) (*Identity, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid or expired token")
	}
	return &Identity{
		UID:         claims.UID,
		DisplayName: claims.Name,
		PhotoURL:    claims.PhotoURL,
	}, nil
}

// SignOut clears the session and notifies state listeners.
func (s *Service) SignOut(ctx context.Context, uid string) {
	s.logger.Info("signed out", zap.String("uid", uid))
	s.notify(nil)
}

func (s *Service) notify(id *Identity) {
	s.mu.Lock()
	listeners := append([]StateListener{}, s.listeners...)
	s.mu.Unlock()
	for _, listener := range listeners {
		listener(id)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// emailKey makes an email usable as a document key.
func emailKey(email string) string {
	return strings.ReplaceAll(email, ".", ",")
}
