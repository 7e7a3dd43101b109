package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/blogapi/backend/internal/logging"
	"github.com/blogapi/backend/internal/models"
)

// SweepGrace is how long a token row survives past its refresh expiration.
const SweepGrace = 24 * time.Hour

var (
	// ErrTokenNotFound indicates no token row matches the presented credential.
	ErrTokenNotFound = errors.New("token not found")
	// ErrAccessTokenExpired indicates the access credential is past its expiration.
	ErrAccessTokenExpired = errors.New("access token expired")
	// ErrRefreshTokenExpired indicates the refresh token has expired and cannot be used.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// TokenStore persists issued token pairs.
type TokenStore interface {
	Create(ctx context.Context, token models.Token) (models.Token, error)
	FindByAccessToken(ctx context.Context, accessToken string) (models.Token, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (models.Token, error)
	Expire(ctx context.Context, tokenID int64, at time.Time) error
	// Rotate expires the old row and inserts next in a single transaction.
	Rotate(ctx context.Context, oldID int64, at time.Time, next models.Token) (models.Token, error)
	DeleteRefreshExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserToucher records user activity and returns the refreshed user.
type UserToucher interface {
	Touch(ctx context.Context, userID int64, at time.Time) (models.User, error)
}

// Manager manages the lifecycle of access/refresh token pairs backed by a persistent store.
type Manager struct {
	accessTTL  time.Duration
	refreshTTL time.Duration

	store TokenStore
	users UserToucher
	now   func() time.Time
}

// NewManager constructs a Manager that issues access and refresh tokens with the provided TTLs.
// The refresh lifetime is never shorter than the access lifetime.
func NewManager(accessTTL, refreshTTL time.Duration, store TokenStore, users UserToucher) *Manager {
	if store == nil {
		panic("auth: token store must not be nil")
	}
	if users == nil {
		panic("auth: user toucher must not be nil")
	}
	if refreshTTL < accessTTL {
		refreshTTL = accessTTL
	}
	return &Manager{
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      store,
		users:      users,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithNowFunc allows tests to override the time source.
func (m *Manager) WithNowFunc(now func() time.Time) {
	m.now = now
}

// Issue creates and persists a new token pair for the provided user.
func (m *Manager) Issue(ctx context.Context, user models.User) (models.Token, error) {
	token, err := m.generate(user.ID)
	if err != nil {
		return models.Token{}, err
	}

	created, err := m.store.Create(ctx, token)
	if err != nil {
		return models.Token{}, fmt.Errorf("persist token: %w", err)
	}
	return created, nil
}

// VerifyAccess resolves the user owning a live access token and marks them as seen.
func (m *Manager) VerifyAccess(ctx context.Context, accessToken string) (models.User, error) {
	if accessToken == "" {
		return models.User{}, ErrTokenNotFound
	}

	token, err := m.store.FindByAccessToken(ctx, accessToken)
	if err != nil {
		return models.User{}, err
	}

	now := m.now()
	if !token.AccessLive(now) {
		return models.User{}, ErrAccessTokenExpired
	}

	user, err := m.users.Touch(ctx, token.UserID, now)
	if err != nil {
		return models.User{}, fmt.Errorf("touch user %d: %w", token.UserID, err)
	}
	return user, nil
}

// VerifyRefresh returns the token row for a live refresh token. The access token
// accompanying the request is accepted as-is and not compared with the stored one.
func (m *Manager) VerifyRefresh(ctx context.Context, refreshToken, accessToken string) (models.Token, error) {
	if refreshToken == "" {
		return models.Token{}, ErrTokenNotFound
	}

	token, err := m.store.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		return models.Token{}, err
	}

	if !token.RefreshLive(m.now()) {
		return models.Token{}, ErrRefreshTokenExpired
	}
	return token, nil
}

// Rotate expires token and issues a fresh pair for the same user atomically.
func (m *Manager) Rotate(ctx context.Context, token models.Token) (models.Token, error) {
	ctx, span := logging.StartSpan(ctx, "tokens.rotate")
	defer span.End()

	next, err := m.generate(token.UserID)
	if err != nil {
		return models.Token{}, err
	}

	rotated, err := m.store.Rotate(ctx, token.ID, m.now(), next)
	if err != nil {
		span.Fail(err)
		return models.Token{}, fmt.Errorf("rotate token %d: %w", token.ID, err)
	}
	return rotated, nil
}

// Revoke ends both credentials of token immediately. The row is kept until swept.
func (m *Manager) Revoke(ctx context.Context, token models.Token) error {
	return m.store.Expire(ctx, token.ID, m.now())
}

// RevokeAccess revokes the token identified by its access credential, live or not.
func (m *Manager) RevokeAccess(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return ErrTokenNotFound
	}
	token, err := m.store.FindByAccessToken(ctx, accessToken)
	if err != nil {
		return err
	}
	return m.Revoke(ctx, token)
}

// Sweep deletes token rows whose refresh expiration is more than SweepGrace in the past.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	ctx, span := logging.StartSpan(ctx, "tokens.sweep")
	defer span.End()

	removed, err := m.store.DeleteRefreshExpiredBefore(ctx, m.now().Add(-SweepGrace))
	if err != nil {
		span.Fail(err)
		return 0, fmt.Errorf("sweep tokens: %w", err)
	}
	if removed > 0 {
		logging.FromContext(ctx).Info("swept expired tokens", "removed", removed)
	}
	return removed, nil
}

func (m *Manager) generate(userID int64) (models.Token, error) {
	if userID == 0 {
		return models.Token{}, errors.New("user id must be provided")
	}

	accessToken, err := randomToken()
	if err != nil {
		return models.Token{}, err
	}

	refreshToken, err := randomToken()
	if err != nil {
		return models.Token{}, err
	}

	now := m.now()
	return models.Token{
		AccessToken:       accessToken,
		AccessExpiration:  now.Add(m.accessTTL),
		RefreshToken:      refreshToken,
		RefreshExpiration: now.Add(m.refreshTTL),
		UserID:            userID,
	}, nil
}

// randomToken returns 32 bytes of entropy as 43 URL-safe characters, which fits
// the 64 character token columns.
func randomToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
