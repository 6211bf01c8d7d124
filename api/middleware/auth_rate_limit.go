package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/castmenu-backend/api/responses"
	pkgerrors "github.com/angelmondragon/castmenu-backend/pkg/errors"
	"github.com/angelmondragon/castmenu-backend/pkg/logger"
)

// loginBodyLimit caps how much of a login body is buffered for the identifier lookup.
const loginBodyLimit = 16 << 10

// RateLimiterStore counts hits in a fixed window.
type RateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(parts ...string) string
}

// AuthRateLimitPolicy defines fixed window limits for one auth surface.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	identLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, identLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, identLimit: identLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.identLimit > 0)
}

// bucket is one counter a request is charged against.
type bucket struct {
	scope string
	value string
	limit int
	// logged is what reaches the logs in place of value
	logged map[string]any
}

// AuthRateLimit counts attempts per client IP and per login identifier.
// Identifiers are hashed before they reach redis or the logs.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			buckets, err := policy.buckets(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}

			for _, b := range buckets {
				count, err := store.IncrWithTTL(ctx, store.RateLimitKey(policy.name, b.scope, b.value), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(b.limit) {
					policy.reject(ctx, logg, w, b, count)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// buckets restores r.Body after peeking at the identifier.
func (p AuthRateLimitPolicy) buckets(r *http.Request) ([]bucket, error) {
	var out []bucket
	if p.ipLimit > 0 {
		if ip := clientIP(r); ip != "" {
			out = append(out, bucket{scope: "ip", value: ip, limit: p.ipLimit, logged: map[string]any{"ip": ip}})
		}
	}
	if p.identLimit <= 0 {
		return out, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, loginBodyLimit))
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var login struct {
		Identifier string `json:"identifier"`
	}
	if json.Unmarshal(body, &login) != nil {
		return out, nil
	}
	if ident := strings.ToLower(strings.TrimSpace(login.Identifier)); ident != "" {
		sum := sha256.Sum256([]byte(ident))
		hash := hex.EncodeToString(sum[:])
		out = append(out, bucket{scope: "ident", value: hash, limit: p.identLimit, logged: map[string]any{"identifier_hash": hash}})
	}
	return out, nil
}

func (p AuthRateLimitPolicy) reject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, b bucket, count int64) {
	fields := map[string]any{
		"scope":          b.scope,
		"policy":         p.name,
		"attempts":       count,
		"limit":          b.limit,
		"window_seconds": int(p.window.Seconds()),
	}
	for k, v := range b.logged {
		fields[k] = v
	}
	logg.Warn(logg.WithFields(ctx, fields), "auth.rate_limit.blocked")

	w.Header().Set("Retry-After", strconv.Itoa(int(p.window.Round(time.Second).Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts"))
}

// clientIP prefers the first valid X-Forwarded-For hop, then X-Real-IP,
// then the socket address.
func clientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); first != "" {
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.Unmap().String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
