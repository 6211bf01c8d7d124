package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/castmenu-backend/pkg/config"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
	sets map[string]map[string]bool
	ttls map[string]time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{data: map[string]string{}, sets: map[string]map[string]bool{}, ttls: map[string]time.Duration{}}
}

func (m *mockStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *mockStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) GetDel(ctx context.Context, key string) (string, error) {
	val, err := m.Get(ctx, key)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return val, err
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
		delete(m.sets, key)
	}
	return nil
}

func (m *mockStore) AddMember(_ context.Context, key string, ttl time.Duration, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets[key] == nil {
		m.sets[key] = map[string]bool{}
	}
	for _, member := range members {
		m.sets[key][member] = true
	}
	m.ttls[key] = ttl
	return nil
}

func (m *mockStore) RemoveMember(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range members {
		delete(m.sets[key], member)
	}
	return nil
}

func (m *mockStore) Members(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return out, nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func (m *mockStore) AdminSessionsKey(adminID string) string {
	return "admin-sess:" + adminID
}

func newTestManager(t *testing.T) (*Manager, *mockStore) {
	t.Helper()
	store := newMockStore()
	m, err := newManager(store, config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 120})
	require.NoError(t, err)
	return m, store
}

func TestStartAndRotate(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	adminID := uuid.New()

	first, err := m.Start(ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, adminID, first.AdminID)
	assert.Equal(t, 2*time.Hour, store.ttls["sess:"+first.AccessID])

	_, err = m.Rotate(ctx, first.AccessID, "wrong")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	live, err := m.HasSession(ctx, first.AccessID)
	require.NoError(t, err)
	assert.True(t, live, "a wrong token must not burn the session")

	second, err := m.Rotate(ctx, first.AccessID, first.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, adminID, second.AdminID)
	assert.NotEqual(t, first.AccessID, second.AccessID)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	live, err = m.HasSession(ctx, first.AccessID)
	require.NoError(t, err)
	assert.False(t, live, "old session dropped")

	live, err = m.HasSession(ctx, second.AccessID)
	require.NoError(t, err)
	assert.True(t, live)

	_, err = m.Rotate(ctx, first.AccessID, first.RefreshToken)
	assert.True(t, errors.Is(err, ErrInvalidRefreshToken), "refresh tokens are single use")
}

func TestRevoke(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	issued, err := m.Start(ctx, uuid.New())
	require.NoError(t, err)
	require.NoError(t, m.Revoke(ctx, issued.AccessID))

	live, err := m.HasSession(ctx, issued.AccessID)
	require.NoError(t, err)
	assert.False(t, live)

	assert.Error(t, m.Revoke(ctx, " "))
}

func TestRevokeAllEndsEverySessionOfTheAdmin(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	adminID, other := uuid.New(), uuid.New()

	first, err := m.Start(ctx, adminID)
	require.NoError(t, err)
	second, err := m.Start(ctx, adminID)
	require.NoError(t, err)
	rotated, err := m.Rotate(ctx, second.AccessID, second.RefreshToken)
	require.NoError(t, err)
	bystander, err := m.Start(ctx, other)
	require.NoError(t, err)

	index := "admin-sess:" + adminID.String()
	assert.Len(t, store.sets[index], 2, "rotation swaps the indexed access id")
	assert.Equal(t, 2*time.Hour, store.ttls[index])

	require.NoError(t, m.RevokeAll(ctx, adminID))
	for _, id := range []string{first.AccessID, rotated.AccessID} {
		live, err := m.HasSession(ctx, id)
		require.NoError(t, err)
		assert.False(t, live, id)
	}
	assert.NotContains(t, store.sets, index)

	live, err := m.HasSession(ctx, bystander.AccessID)
	require.NoError(t, err)
	assert.True(t, live, "other admins keep their sessions")

	require.NoError(t, m.RevokeAll(ctx, adminID), "nothing left to revoke")
	assert.Error(t, m.RevokeAll(ctx, uuid.Nil))
}

func TestRevokeDropsIndexEntry(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	adminID := uuid.New()

	issued, err := m.Start(ctx, adminID)
	require.NoError(t, err)
	require.NoError(t, m.Revoke(ctx, issued.AccessID))
	assert.Empty(t, store.sets["admin-sess:"+adminID.String()])
	require.NoError(t, m.Revoke(ctx, issued.AccessID), "revoking twice is fine")
}

func TestRotateRejectsCorruptRecord(t *testing.T) {
	m, store := newTestManager(t)
	store.data["sess:bad"] = "not-json"

	_, err := m.Rotate(context.Background(), "bad", "anything")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestNewManagerValidatesTTL(t *testing.T) {
	store := newMockStore()
	_, err := newManager(store, config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30})
	assert.Error(t, err)
	_, err = newManager(store, config.JWTConfig{ExpirationMinutes: 60})
	assert.Error(t, err)

	_, err = NewManager(nil, config.JWTConfig{})
	assert.Error(t, err)
}

func TestSessionStoresOnlyRefreshDigest(t *testing.T) {
	m, store := newTestManager(t)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	issued, err := m.Start(context.Background(), uuid.New())
	require.NoError(t, err)

	raw := store.data["sess:"+issued.AccessID]
	assert.NotContains(t, raw, issued.RefreshToken)
	assert.Contains(t, raw, `"issued_at":"2026-03-01T09:00:00Z"`)
	assert.True(t, strings.Contains(raw, `"refresh_sha256":"`))
}

func TestRotateLosesRaceToConcurrentClaim(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()
	issued, err := m.Start(ctx, uuid.New())
	require.NoError(t, err)

	racing := &racingStore{mockStore: store}
	m.store = racing

	_, err = m.Rotate(ctx, issued.AccessID, issued.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

// racingStore lets another caller consume the session between the read and
// the claim.
type racingStore struct {
	*mockStore
}

func (r *racingStore) GetDel(ctx context.Context, key string) (string, error) {
	_ = r.mockStore.Del(ctx, key)
	return r.mockStore.GetDel(ctx, key)
}
