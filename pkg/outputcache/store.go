// Package outputcache stores fully resolved render output keyed by
// page identity, so repeat requests skip the render pass entirely. A
// cached page is the final markup with hydration records intact; a
// client hydrating from a cached page behaves exactly as if it had
// been rendered fresh.
package outputcache

import (
	"context"
	"errors"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/isokit/isokit/pkg/ssr"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("outputcache: miss")

// Entry is one cached render output.
type Entry struct {
	Key       string    `json:"key"`
	HTML      string    `json:"html"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its deadline at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Store is a cache backend for render output.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Put(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, key string) error
}

// Key derives a stable cache key from the request path and a variant
// discriminator (locale, auth bucket, AB arm).
func Key(path, variant string) string {
	h := xxhash.New()
	h.WriteString(path)
	h.Write([]byte{0})
	h.WriteString(variant)
	return "page:" + hexSum(h.Sum64())
}

func hexSum(v uint64) string {
	const digits = "0123456789abcdef"
	var buf [16]byte
	for i := 15; i >= 0; i-- {
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf[:])
}

// TTLPolicy decides how long a rendered page may be cached based on
// the pass outcome. Pages that saw timeouts rendered degraded content,
// so they get the short TTL to heal quickly.
type TTLPolicy struct {
	Default  time.Duration
	Degraded time.Duration
}

// For returns the TTL for a completed pass. Zero means do not cache.
func (p TTLPolicy) For(stats ssr.Stats) time.Duration {
	if stats.Timeouts > 0 {
		return p.Degraded
	}
	return p.Default
}
