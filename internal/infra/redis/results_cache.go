package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-session-runtime/internal/domain"
)

// ResultsCache stores session snapshots in Redis as JSON. Layout:
//   SET quiz:session:{sessionID}:final {json}  EX finalTTL
//   SET quiz:session:{sessionID}:live  {json}  EX liveTTL
// The two keys never alias, so a live snapshot can expire or be overwritten
// without touching graded results.
type ResultsCache struct {
	client   *redis.Client
	finalTTL time.Duration
	liveTTL  time.Duration
}

// NewResultsCache builds a Redis-backed cache. Non-positive TTLs fall back to
// 10m for final results and 5s for live snapshots.
func NewResultsCache(client *redis.Client, finalTTL, liveTTL time.Duration) *ResultsCache {
	if finalTTL <= 0 {
		finalTTL = 10 * time.Minute
	}
	if liveTTL <= 0 {
		liveTTL = 5 * time.Second
	}
	return &ResultsCache{client: client, finalTTL: finalTTL, liveTTL: liveTTL}
}

func (c *ResultsCache) GetFinal(ctx context.Context, sessionID string) (domain.QuizSession, bool, error) {
	return c.get(ctx, c.finalKey(sessionID))
}

func (c *ResultsCache) SetFinal(ctx context.Context, sessionID string, session domain.QuizSession) error {
	return c.set(ctx, c.finalKey(sessionID), session, c.finalTTL)
}

func (c *ResultsCache) GetLive(ctx context.Context, sessionID string) (domain.QuizSession, bool, error) {
	return c.get(ctx, c.liveKey(sessionID))
}

func (c *ResultsCache) SetLive(ctx context.Context, sessionID string, session domain.QuizSession) error {
	return c.set(ctx, c.liveKey(sessionID), session, c.liveTTL)
}

func (c *ResultsCache) get(ctx context.Context, key string) (domain.QuizSession, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.QuizSession{}, false, nil
	}
	if err != nil {
		return domain.QuizSession{}, false, err
	}
	var session domain.QuizSession
	if err := json.Unmarshal(raw, &session); err != nil {
		// Treat a corrupt entry as a miss; the next set overwrites it.
		return domain.QuizSession{}, false, nil
	}
	return session, true, nil
}

func (c *ResultsCache) set(ctx context.Context, key string, session domain.QuizSession, ttl time.Duration) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

func (c *ResultsCache) finalKey(sessionID string) string {
	return "quiz:session:" + sessionID + ":final"
}

func (c *ResultsCache) liveKey(sessionID string) string {
	return "quiz:session:" + sessionID + ":live"
}
