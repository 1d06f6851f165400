// Package session maps opaque client tokens to server-side login sessions.
//
// A token is an HS256 JWT whose jti names a server-side record. Signature
// checks alone never authenticate a caller; the record must still exist,
// so logout and revocation take effect immediately.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"warbler/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Issuer   = "warbler"
	Audience = "warbler-web"
)

// Store persists session records.
type Store interface {
	Save(ctx context.Context, sid string, userID uint, ttl time.Duration) error
	// Lookup reports the owner of sid, or false when it does not exist.
	Lookup(ctx context.Context, sid string) (uint, bool, error)
	Delete(ctx context.Context, sid string) error
	DeleteAll(ctx context.Context, userID uint) error
}

// Manager issues and resolves session tokens.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager returns a Manager signing with secret. A non-positive ttl
// falls back to one week.
func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Manager{store: store, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime of new sessions.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Login creates a session for userID and returns its token.
func (m *Manager) Login(ctx context.Context, userID uint) (string, time.Time, error) {
	if userID == 0 {
		return "", time.Time{}, errors.New("session: login without user")
	}
	sid := uuid.NewString()
	expiresAt := m.now().Add(m.ttl)

	if err := m.store.Save(ctx, sid, userID, m.ttl); err != nil {
		return "", time.Time{}, fmt.Errorf("save session: %w", err)
	}
	token, err := m.sign(sid, userID, expiresAt)
	if err != nil {
		_ = m.store.Delete(ctx, sid)
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (m *Manager) sign(sid string, userID uint, expiresAt time.Time) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    Issuer,
		Audience:  jwt.ClaimStrings{Audience},
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        sid,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *Manager) parse(token string, validate bool) (*jwt.RegisteredClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithTimeFunc(m.now),
	}
	if !validate {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	var claims jwt.RegisteredClaims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...); err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, errors.New("session: token without id")
	}
	return &claims, nil
}

// Resolve maps token to an identity. Bad, expired or revoked tokens resolve
// to the anonymous identity without an error; only store failures error.
func (m *Manager) Resolve(ctx context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Anonymous, nil
	}
	claims, err := m.parse(token, true)
	if err != nil {
		return models.Anonymous, nil
	}
	sub, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || sub == 0 {
		return models.Anonymous, nil
	}

	owner, ok, err := m.store.Lookup(ctx, claims.ID)
	if err != nil {
		return models.Anonymous, fmt.Errorf("lookup session: %w", err)
	}
	if !ok || uint64(owner) != sub {
		return models.Anonymous, nil
	}
	return models.Identity{UserID: owner, SessionID: claims.ID}, nil
}

// Logout removes the session named by token. Unknown, expired or malformed
// tokens are ignored.
func (m *Manager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := m.parse(token, false)
	if err != nil {
		return nil
	}
	return m.store.Delete(ctx, claims.ID)
}

// RevokeAll ends every session of userID.
func (m *Manager) RevokeAll(ctx context.Context, userID uint) error {
	return m.store.DeleteAll(ctx, userID)
}
