package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/castmenu-backend/pkg/errors"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
		delete(f.ttls, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) only(t *testing.T) storedResponse {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.data, 1)
	var rec storedResponse
	for _, raw := range f.data {
		require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	}
	return rec
}

func keyedRequest(method, path, key, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{path}
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Message
}

func TestIsIdempotentCreate(t *testing.T) {
	tests := []struct {
		method  string
		pattern string
		want    bool
	}{
		{http.MethodPost, "/api/admin/v1/casts", true},
		{http.MethodPost, "/api/admin/v1/casts/{castId}/badges", true},
		{http.MethodPost, "/api/admin/v1/casts/7f1c/badges", true},
		{http.MethodPost, "/api/admin/v1/images", true},
		{http.MethodPost, "/api/admin/v1/casts//badges", false},
		{http.MethodPut, "/api/admin/v1/casts/{castId}", false},
		{http.MethodDelete, "/api/admin/v1/badges/{badgeId}", false},
		{http.MethodPost, "/api/admin/v1/auth/login", false},
		{http.MethodPost, "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isIdempotentCreate(tt.method, tt.pattern), "%s %s", tt.method, tt.pattern)
	}
}

func TestRoutePatternFallsBackForMountedGroups(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/drinks/", nil)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{"/api/admin/v1/*"}
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	assert.Equal(t, "/api/admin/v1/drinks", routePattern(req))
}

func TestIdempotencyPassesThroughWithoutHeader(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, keyedRequest(http.MethodPost, "/api/admin/v1/badges", "", `{"name":"new"}`))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyWithoutStoreIsTransparent(t *testing.T) {
	var calls int
	handler := Idempotency(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/api/admin/v1/casts", "k", `{}`))
	assert.Equal(t, 1, calls)
}

func TestIdempotencyReplaysFinishedResponse(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"Yui"}`, string(body))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Location", "/api/v1/casts/c-1")
		w.Header().Set("X-Other", "dropped")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, keyedRequest(http.MethodPost, "/api/admin/v1/casts", "abc", `{"name":"Yui"}`))
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(IdempotencyReplayedHeader))

	rec := store.only(t)
	assert.Equal(t, stateDone, rec.State)
	for _, ttl := range store.ttls {
		assert.Equal(t, defaultIdempotencyTTL, ttl)
	}

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, keyedRequest(http.MethodPost, "/api/admin/v1/casts", "abc", `{"name":"Yui"}`))

	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "/api/v1/casts/c-1", replay.Header().Get("Location"))
	assert.Empty(t, replay.Header().Get("X-Other"))
	assert.Equal(t, "true", replay.Header().Get(IdempotencyReplayedHeader))
	assert.Equal(t, `{"ok":true}`, replay.Body.String())
	assert.Equal(t, 1, calls)
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, keyedRequest(http.MethodPost, "/api/admin/v1/images", "retry-me", `img`))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyStoresClientErrors(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, keyedRequest(http.MethodPost, "/api/admin/v1/admins", "bad", `{}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	assert.Equal(t, 1, calls)
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/api/admin/v1/drinks", "xyz", `{"name":"Highball"}`))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, keyedRequest(http.MethodPost, "/api/admin/v1/drinks", "xyz", `{"name":"Lemon sour"}`))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestIdempotencyRejectsRetryWhileInFlight(t *testing.T) {
	store := newFakeStore()
	started := make(chan struct{})
	release := make(chan struct{})
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusCreated)
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/api/admin/v1/badges", "slow", `{"name":"VIP"}`))
	}()
	<-started

	pending := store.only(t)
	assert.Equal(t, statePending, pending.State)
	for _, ttl := range store.ttls {
		assert.Equal(t, pendingTTL, ttl)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, keyedRequest(http.MethodPost, "/api/admin/v1/badges", "slow", `{"name":"VIP"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "still in progress")

	close(release)
	<-done
	assert.Equal(t, stateDone, store.only(t).State)
}

func TestIdempotencyScopesKeysPerPath(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/api/admin/v1/badges", "same", `{}`))
	handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/api/admin/v1/drinks", "same", `{}`))

	assert.Equal(t, 2, calls)
	assert.Len(t, store.data, 2)
}
