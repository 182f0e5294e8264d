package memory

import (
	"context"
	"sync"
	"time"

	"quiz-session-runtime/internal/domain"
)

// ResultsCache keeps session snapshots in-process with per-kind TTLs. Final
// results are cached long, live snapshots briefly, under separate keys.
type ResultsCache struct {
	finalTTL time.Duration
	liveTTL  time.Duration
	clock    func() time.Time

	mu      sync.RWMutex
	entries map[string]cachedSession
}

type cachedSession struct {
	session   domain.QuizSession
	expiresAt time.Time
}

// NewResultsCache builds an in-memory cache. Non-positive TTLs fall back to
// 10m for final results and 5s for live snapshots.
func NewResultsCache(finalTTL, liveTTL time.Duration) *ResultsCache {
	if finalTTL <= 0 {
		finalTTL = 10 * time.Minute
	}
	if liveTTL <= 0 {
		liveTTL = 5 * time.Second
	}
	return &ResultsCache{
		finalTTL: finalTTL,
		liveTTL:  liveTTL,
		clock:    time.Now,
		entries:  make(map[string]cachedSession),
	}
}

func (c *ResultsCache) GetFinal(_ context.Context, sessionID string) (domain.QuizSession, bool, error) {
	return c.get(finalKey(sessionID))
}

func (c *ResultsCache) SetFinal(_ context.Context, sessionID string, session domain.QuizSession) error {
	c.set(finalKey(sessionID), session, c.finalTTL)
	return nil
}

func (c *ResultsCache) GetLive(_ context.Context, sessionID string) (domain.QuizSession, bool, error) {
	return c.get(liveKey(sessionID))
}

func (c *ResultsCache) SetLive(_ context.Context, sessionID string, session domain.QuizSession) error {
	c.set(liveKey(sessionID), session, c.liveTTL)
	return nil
}

func (c *ResultsCache) get(key string) (domain.QuizSession, bool, error) {
	now := c.clock()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && entry.expiresAt.After(now) {
		return entry.session, true, nil
	}
	if ok {
		c.mu.Lock()
		if stale, present := c.entries[key]; present && !stale.expiresAt.After(now) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	}
	return domain.QuizSession{}, false, nil
}

func (c *ResultsCache) set(key string, session domain.QuizSession, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = cachedSession{session: session, expiresAt: c.clock().Add(ttl)}
	c.mu.Unlock()
}

func finalKey(sessionID string) string {
	return "session:" + sessionID + ":final"
}

func liveKey(sessionID string) string {
	return "session:" + sessionID + ":live"
}
