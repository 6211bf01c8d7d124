package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/castmenu-backend/pkg/config"
	pkgredis "github.com/angelmondragon/castmenu-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errAccessIDRequired    = errors.New("access id is required")
)

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AddMember(ctx context.Context, key string, ttl time.Duration, members ...string) error
	RemoveMember(ctx context.Context, key string, members ...string) error
	Members(ctx context.Context, key string) ([]string, error)
	AccessSessionKey(accessID string) string
	AdminSessionsKey(adminID string) string
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// entry is what redis holds under an access id. Only a digest of the refresh
// token is kept.
type entry struct {
	AdminID     uuid.UUID `json:"admin_id"`
	RefreshHash string    `json:"refresh_sha256"`
	IssuedAt    time.Time `json:"issued_at"`
}

// Issued is a freshly stored session.
type Issued struct {
	AccessID     string
	RefreshToken string
	AdminID      uuid.UUID
}

// Manager keeps admin sessions in redis. The access id doubles as the JWT
// jti, so revoking the session invalidates the access token too. Each admin
// also has a set of their open access ids so all of them can be ended at once.
type Manager struct {
	store store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *pkgredis.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return newManager(client, cfg)
}

func newManager(s store, cfg config.JWTConfig) (*Manager, error) {
	ttl, access := cfg.RefreshTokenTTL(), cfg.AccessTokenTTL()
	switch {
	case ttl <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case ttl <= access:
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, access)
	}
	return &Manager{store: s, ttl: ttl, now: time.Now}, nil
}

// Start opens a session for the admin.
func (m *Manager) Start(ctx context.Context, adminID uuid.UUID) (Issued, error) {
	if adminID == uuid.Nil {
		return Issued{}, errors.New("admin id is required")
	}
	return m.open(ctx, adminID)
}

// Rotate exchanges the refresh token of the session named by oldAccessID for
// a new session. A wrong token leaves the session alone; a correct one can
// be used only once, even by concurrent callers.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, refreshToken string) (Issued, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(refreshToken) == "" {
		return Issued{}, ErrInvalidRefreshToken
	}
	key := m.store.AccessSessionKey(oldAccessID)

	current, err := m.read(ctx, key, m.store.Get)
	if err != nil {
		return Issued{}, err
	}
	if !current.matches(refreshToken) {
		return Issued{}, ErrInvalidRefreshToken
	}
	// claim: whoever deletes the key first owns the rotation
	claimed, err := m.read(ctx, key, m.store.GetDel)
	if err != nil {
		return Issued{}, err
	}
	if claimed.RefreshHash != current.RefreshHash {
		return Issued{}, ErrInvalidRefreshToken
	}
	// a stale member only costs a no-op delete in RevokeAll
	_ = m.store.RemoveMember(ctx, m.indexKey(claimed.AdminID), oldAccessID)
	return m.open(ctx, claimed.AdminID)
}

// Revoke deletes the session tied to the access id.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errAccessIDRequired
	}
	raw, err := m.store.GetDel(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case pkgredis.IsMiss(err):
		return nil
	case err != nil:
		return err
	}
	var e entry
	if json.Unmarshal([]byte(raw), &e) == nil && e.AdminID != uuid.Nil {
		return m.store.RemoveMember(ctx, m.indexKey(e.AdminID), accessID)
	}
	return nil
}

// RevokeAll ends every open session of the admin. Access tokens already
// handed out stop passing the session check right away.
func (m *Manager) RevokeAll(ctx context.Context, adminID uuid.UUID) error {
	if adminID == uuid.Nil {
		return errors.New("admin id is required")
	}
	index := m.indexKey(adminID)
	accessIDs, err := m.store.Members(ctx, index)
	if err != nil && !pkgredis.IsMiss(err) {
		return err
	}
	keys := make([]string, 0, len(accessIDs)+1)
	for _, id := range accessIDs {
		keys = append(keys, m.store.AccessSessionKey(id))
	}
	return m.store.Del(ctx, append(keys, index)...)
}

// HasSession reports whether the access id still names a live session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errAccessIDRequired
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case pkgredis.IsMiss(err):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (m *Manager) open(ctx context.Context, adminID uuid.UUID) (Issued, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return Issued{}, fmt.Errorf("generate refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	accessID := uuid.NewString()

	payload, err := json.Marshal(entry{AdminID: adminID, RefreshHash: digest(token), IssuedAt: m.now().UTC()})
	if err != nil {
		return Issued{}, fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(payload), m.ttl); err != nil {
		return Issued{}, err
	}
	if err := m.store.AddMember(ctx, m.indexKey(adminID), m.ttl, accessID); err != nil {
		_ = m.store.Del(ctx, m.store.AccessSessionKey(accessID))
		return Issued{}, fmt.Errorf("index session: %w", err)
	}
	return Issued{AccessID: accessID, RefreshToken: token, AdminID: adminID}, nil
}

func (m *Manager) indexKey(adminID uuid.UUID) string {
	return m.store.AdminSessionsKey(adminID.String())
}

func (m *Manager) read(ctx context.Context, key string, fetch func(context.Context, string) (string, error)) (entry, error) {
	raw, err := fetch(ctx, key)
	if pkgredis.IsMiss(err) {
		return entry{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return entry{}, err
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil || e.AdminID == uuid.Nil || e.RefreshHash == "" {
		return entry{}, ErrInvalidRefreshToken
	}
	return e, nil
}

func (e entry) matches(token string) bool {
	return subtle.ConstantTimeCompare([]byte(e.RefreshHash), []byte(digest(token))) == 1
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawStdEncoding.EncodeToString(sum[:])
}
