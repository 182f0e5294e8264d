package memory

import (
	"context"
	"testing"
	"time"

	"quiz-session-runtime/internal/domain"
)

func TestResultsCacheRoundTrip(t *testing.T) {
	cache := NewResultsCache(time.Minute, time.Minute)
	ctx := context.Background()

	if _, ok, _ := cache.GetFinal(ctx, "s-1"); ok {
		t.Fatalf("expected miss on empty cache")
	}

	session := domain.QuizSession{ID: "s-1", TotalScore: 20, IsCompleted: true}
	if err := cache.SetFinal(ctx, "s-1", session); err != nil {
		t.Fatalf("set final: %v", err)
	}

	got, ok, err := cache.GetFinal(ctx, "s-1")
	if err != nil || !ok {
		t.Fatalf("get final: ok=%v err=%v", ok, err)
	}
	if got.TotalScore != 20 {
		t.Fatalf("score = %d, want 20", got.TotalScore)
	}
}

func TestResultsCacheKeysDoNotAlias(t *testing.T) {
	cache := NewResultsCache(time.Minute, time.Minute)
	ctx := context.Background()

	if err := cache.SetLive(ctx, "s-1", domain.QuizSession{ID: "s-1", TotalScore: 5}); err != nil {
		t.Fatalf("set live: %v", err)
	}

	if _, ok, _ := cache.GetFinal(ctx, "s-1"); ok {
		t.Fatalf("live snapshot must not satisfy a final lookup")
	}
	if _, ok, _ := cache.GetLive(ctx, "s-1"); !ok {
		t.Fatalf("expected live hit")
	}
}

func TestResultsCacheEntriesExpire(t *testing.T) {
	cache := NewResultsCache(time.Minute, time.Second)
	now := time.Now()
	cache.clock = func() time.Time { return now }
	ctx := context.Background()

	_ = cache.SetLive(ctx, "s-1", domain.QuizSession{ID: "s-1"})
	if _, ok, _ := cache.GetLive(ctx, "s-1"); !ok {
		t.Fatalf("expected hit before expiry")
	}

	now = now.Add(2 * time.Second)
	if _, ok, _ := cache.GetLive(ctx, "s-1"); ok {
		t.Fatalf("expected miss after TTL elapsed")
	}
}
