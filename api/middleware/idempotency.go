package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/castmenu-backend/api/responses"
	pkgerrors "github.com/angelmondragon/castmenu-backend/pkg/errors"
	"github.com/angelmondragon/castmenu-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/castmenu-backend/pkg/redis"
)

const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotencyReplayedHeader = "Idempotent-Replayed"

	defaultIdempotencyTTL = 24 * time.Hour
	// pendingTTL bounds how long a crashed request can hold its key.
	pendingTTL = 2 * time.Minute
	// maxIdempotentBody covers the largest image upload plus multipart framing.
	maxIdempotentBody = 32 << 20
)

const (
	statePending = "pending"
	stateDone    = "done"
)

// Admin creates are the only non-repeatable writes; updates and deletes
// already converge on retry.
var idempotentCreates = map[string]struct{}{
	"/api/admin/v1/casts":            {},
	"/api/admin/v1/badges":           {},
	"/api/admin/v1/drink-categories": {},
	"/api/admin/v1/drinks":           {},
	"/api/admin/v1/admins":           {},
	"/api/admin/v1/images":           {},
}

type storedResponse struct {
	State       string            `json:"state"`
	Fingerprint string            `json:"fingerprint"`
	Status      int               `json:"status,omitempty"`
	Header      map[string]string `json:"header,omitempty"`
	Body        []byte            `json:"body,omitempty"`
}

var replayedHeaders = []string{"Content-Type", "Location"}

// Idempotency claims the Idempotency-Key before running a create and replays
// the finished response on retries. A retry that arrives while the first
// attempt is still running is rejected. Server errors release the key.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if clientKey == "" || !isIdempotentCreate(r.Method, routePattern(r)) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody+1))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			if len(body) > maxIdempotentBody {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request body too large"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := fingerprintRequest(r, body)
			key := store.IdempotencyKey(AdminIDFromContext(ctx)+"|"+r.Method+"|"+trimSlash(r.URL.Path), clientKey)

			claimed, err := claim(ctx, store, key, fingerprint)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				existing, err := load(ctx, store, key)
				switch {
				case err != nil:
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
				case existing == nil:
					// expired between the claim and the read; the client may retry
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key expired, retry the request"))
				case existing.Fingerprint != fingerprint:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
				case existing.State != stateDone:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress"))
				default:
					existing.replay(w)
				}
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			// release with a detached context so a cancelled client does not pin the key
			persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()

			if capture.statusCode() >= http.StatusInternalServerError {
				if err := store.Del(persistCtx, key); err != nil {
					logg.Error(persistCtx, "release idempotency key", err)
				}
				return
			}
			if err := finish(persistCtx, store, key, fingerprint, capture); err != nil {
				logg.Error(persistCtx, "persist idempotency record", err)
			}
		})
	}
}

func isIdempotentCreate(method, pattern string) bool {
	if method != http.MethodPost || pattern == "" {
		return false
	}
	if _, ok := idempotentCreates[pattern]; ok {
		return true
	}
	// POST /api/admin/v1/casts/{castId}/badges
	rest, ok := strings.CutPrefix(pattern, "/api/admin/v1/casts/")
	return ok && strings.HasSuffix(rest, "/badges") && rest != "/badges"
}

func claim(ctx context.Context, store pkgredis.IdempotencyStore, key, fingerprint string) (bool, error) {
	payload, err := json.Marshal(storedResponse{State: statePending, Fingerprint: fingerprint})
	if err != nil {
		return false, err
	}
	return store.SetNX(ctx, key, string(payload), pendingTTL)
}

func load(ctx context.Context, store pkgredis.IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(ctx, key)
	if pkgredis.IsMiss(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record storedResponse
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func finish(ctx context.Context, store pkgredis.IdempotencyStore, key, fingerprint string, capture *responseCapture) error {
	record := storedResponse{
		State:       stateDone,
		Fingerprint: fingerprint,
		Status:      capture.statusCode(),
		Body:        capture.body.Bytes(),
	}
	for _, name := range replayedHeaders {
		if v := capture.Header().Get(name); v != "" {
			if record.Header == nil {
				record.Header = make(map[string]string, len(replayedHeaders))
			}
			record.Header[name] = v
		}
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, string(payload), defaultIdempotencyTTL)
}

func (s *storedResponse) replay(w http.ResponseWriter) {
	for name, v := range s.Header {
		w.Header().Set(name, v)
	}
	w.Header().Set(IdempotencyReplayedHeader, "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

// fingerprintRequest covers the content type so a multipart boundary change
// counts as a different request.
func fingerprintRequest(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Header.Get("Content-Type")))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func routePattern(r *http.Request) string {
	// inside a mounted group the pattern is still partial ("/api/admin/v1/*")
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			return trimSlash(pattern)
		}
	}
	return trimSlash(r.URL.Path)
}

func trimSlash(path string) string {
	if len(path) > 1 {
		return strings.TrimSuffix(path, "/")
	}
	return path
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
