package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/domiciliarios-backend/pkg/config"
	"github.com/angelmondragon/domiciliarios-backend/pkg/enums"
	redisclient "github.com/angelmondragon/domiciliarios-backend/pkg/redis"
)

// ErrSessionNotFound is returned when the session expired or was revoked.
var ErrSessionNotFound = errors.New("session not found")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// Session is the server-side half of a login. It holds the CMS token so it never has to
// reach the browser.
type Session struct {
	ID        string         `json:"id"`
	UserID    int            `json:"userId"`
	Username  string         `json:"username"`
	Email     string         `json:"email"`
	Role      enums.UserRole `json:"role"`
	CMSToken  string         `json:"cmsToken"`
	CreatedAt time.Time      `json:"createdAt"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// CurrentToken returns the data API token for repositories acting on this session.
func (s *Session) CurrentToken() string {
	if s == nil {
		return ""
	}
	return s.CMSToken
}

// Manager stores sessions keyed by access id (the JWT jti).
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
	now   func() time.Time
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	Load(ctx context.Context, accessID string) (*Session, error)
}

// NewManager constructs a session manager backed by Redis (or its in-memory stand-in).
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.AccessTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{
		store: client,
		keyer: client,
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

// TTL is the lifetime of a stored session.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create persists sess, assigning an id when it has none.
func (m *Manager) Create(ctx context.Context, sess Session) (*Session, error) {
	if strings.TrimSpace(sess.CMSToken) == "" {
		return nil, fmt.Errorf("cms token is required")
	}
	if sess.UserID <= 0 {
		return nil, fmt.Errorf("user id is required")
	}
	if sess.ID == "" {
		sess.ID = NewAccessID()
	}
	now := m.now().UTC()
	sess.CreatedAt = now
	sess.ExpiresAt = now.Add(m.ttl)

	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(sess.ID), string(raw), m.ttl); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Load returns the live session for accessID or ErrSessionNotFound.
func (m *Manager) Load(ctx context.Context, accessID string) (*Session, error) {
	if strings.TrimSpace(accessID) == "" {
		return nil, ErrSessionNotFound
	}
	raw, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID))
	if err != nil {
		if redisclient.IsNil(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &sess, nil
}

// Revoke deletes the session tied to the access identifier.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.Del(ctx, m.keyer.AccessSessionKey(accessID))
}

// NewAccessID produces a stable identifier used as the JWT jti/Redis key.
func NewAccessID() string {
	return uuid.NewString()
}
