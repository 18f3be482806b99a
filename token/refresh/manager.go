package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jrsteele09/ilumina-session/internal/config"
	ierrors "github.com/jrsteele09/ilumina-session/internal/errors"
)

// Manager handles refresh token creation, validation, and rotation
type Manager struct {
	repo    Repo
	config  config.TokenConfig
	nowFunc func() time.Time
}

type ManagerOption func(*Manager)

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, cfg config.TokenConfig, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:    repo,
		config:  cfg,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Create generates a new refresh token for userID. Any previous token for the
// user is revoked: one live refresh token per user.
func (m *Manager) Create(userID string) (string, error) {
	if existing, err := m.repo.GetByUserID(userID); err == nil && existing != nil {
		if err := m.repo.Delete(existing.Token); err != nil {
			return "", fmt.Errorf("failed to delete existing refresh token: %w", err)
		}
	}

	tokenBytes := make([]byte, m.config.GetRefreshTokenLength())
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:  tokenStr,
		UserID: userID,
		Iat:    m.nowFunc(),
	}); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return tokenStr, nil
}

// Rotate validates token and replaces it with a new one, returning the owner
// and the replacement.
func (m *Manager) Rotate(token string) (*StoredRefreshToken, error) {
	stored, err := m.repo.Get(token)
	if err != nil || stored == nil {
		return nil, ierrors.ErrInvalidRefreshToken
	}
	if m.IsExpired(stored) {
		_ = m.repo.Delete(token)
		return nil, ierrors.ErrRefreshTokenExpired
	}

	next, err := m.Create(stored.UserID)
	if err != nil {
		return nil, err
	}
	return m.repo.Get(next)
}

// Revoke removes a refresh token from storage
func (m *Manager) Revoke(token string) error {
	return m.repo.Delete(token)
}

// IsExpired checks if a refresh token has outlived the configured expiry
func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return m.nowFunc().Sub(rt.Iat) > m.config.GetDefaultRefreshTokenExpiry()
}
