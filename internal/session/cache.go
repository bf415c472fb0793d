// Package session holds verified-but-not-yet-submitted sessions keyed
// by OTP, with a TTL and the reconciliation order used to recover the
// current session after a reload.
package session

import (
	"sync"
	"time"

	"athlete-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type entry struct {
	session    domain.VerifiedSession
	verifiedAt time.Time
}

// Cache is an explicit per-process instance; there is no ambient
// singleton. Expiry is checked lazily on read, no timers run.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

func NewCache(ttl time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// SetNowFunc overrides the clock. Tests only.
func (c *Cache) SetNowFunc(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Cache) Put(otp string, s domain.VerifiedSession) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[otp] = entry{session: s, verifiedAt: c.now()}
	c.logger.Debug().Str("request_id", s.RequestID).Msg("session cached")
}

// Get returns the session unless it is older than the TTL, in which
// case the entry is evicted and nothing is returned.
func (c *Cache) Get(otp string) (domain.VerifiedSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[otp]
	if !ok {
		return domain.VerifiedSession{}, false
	}
	if c.now().Sub(e.verifiedAt) > c.ttl {
		delete(c.entries, otp)
		c.logger.Debug().Str("request_id", e.session.RequestID).Msg("session expired, evicted")
		return domain.VerifiedSession{}, false
	}
	return e.session, true
}

func (c *Cache) Evict(otp string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, otp)
}

// Len reports live entries without evicting.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Resolve recovers the current session after a reload. Sources are
// consulted in a fixed priority order:
//
//  1. live — the just-verified session still held by the caller
//  2. workflow — a session already bound to an in-progress submission
//  3. the cache entry for the given OTP (TTL-checked)
//  4. the durable snapshot persisted by a previous process lifetime
//
// The order is deliberate: fresher, more authoritative sources win, and
// the durable snapshot is only a last resort. All lookups live here so
// callers never branch on source themselves.
func (c *Cache) Resolve(live, workflow *domain.VerifiedSession, otp string, store *SnapshotStore, athleteID string) (domain.VerifiedSession, bool) {
	if live != nil {
		return *live, true
	}
	if workflow != nil {
		return *workflow, true
	}
	if s, ok := c.Get(otp); ok {
		return s, true
	}
	if store != nil {
		if s, ok := store.Load(athleteID); ok {
			return s, true
		}
	}
	return domain.VerifiedSession{}, false
}
