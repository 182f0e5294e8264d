package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-session-runtime/internal/domain"
	"quiz-session-runtime/internal/infra/memory"
	"quiz-session-runtime/internal/runtime"
)

// fakeResultsAPI serves grading status, final results and live snapshots with
// call counters.
type fakeResultsAPI struct {
	mu              sync.Mutex
	gradingComplete bool
	final           domain.QuizSession
	live            domain.QuizSession
	resultsCalls    int
	stateCalls      int
}

func (f *fakeResultsAPI) GradingStatus(_ context.Context, sessionID string) (domain.GradingStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.GradingStatus{SessionID: sessionID, IsGradingComplete: f.gradingComplete}, nil
}

func (f *fakeResultsAPI) Results(_ context.Context, _ string) (domain.QuizSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resultsCalls++
	return f.final, nil
}

func (f *fakeResultsAPI) CurrentState(_ context.Context, _ string) (domain.QuizSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateCalls++
	return f.live, nil
}

func TestFinalRefusesWhileGradingIncomplete(t *testing.T) {
	api := &fakeResultsAPI{gradingComplete: false}
	assembler := runtime.NewResultsAssembler(api, memory.NewResultsCache(time.Minute, time.Minute))

	_, err := assembler.Final(context.Background(), "s-1")
	if !errors.Is(err, domain.ErrGradingIncomplete) {
		t.Fatalf("expected ErrGradingIncomplete, got %v", err)
	}
	if api.resultsCalls != 0 {
		t.Fatalf("results endpoint must not be queried before grading completes")
	}
}

func TestFinalFetchesOnceThenServesCache(t *testing.T) {
	api := &fakeResultsAPI{
		gradingComplete: true,
		final:           domain.QuizSession{ID: "s-1", TotalScore: 30, IsCompleted: true},
	}
	assembler := runtime.NewResultsAssembler(api, memory.NewResultsCache(time.Minute, time.Minute))

	first, err := assembler.Final(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("final: %v", err)
	}
	second, err := assembler.Final(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("final (cached): %v", err)
	}
	if first.TotalScore != 30 || second.TotalScore != 30 {
		t.Fatalf("unexpected results: %+v / %+v", first, second)
	}
	if api.resultsCalls != 1 {
		t.Fatalf("expected one backend fetch, got %d", api.resultsCalls)
	}
}

func TestLiveAndFinalUseDistinctCacheKeys(t *testing.T) {
	api := &fakeResultsAPI{
		gradingComplete: true,
		final:           domain.QuizSession{ID: "s-1", TotalScore: 30, IsCompleted: true},
		live:            domain.QuizSession{ID: "s-1", TotalScore: 10},
	}
	assembler := runtime.NewResultsAssembler(api, memory.NewResultsCache(time.Minute, time.Minute))

	live, err := assembler.Live(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	if live.TotalScore != 10 {
		t.Fatalf("live score = %d, want 10", live.TotalScore)
	}

	// A cached live snapshot must never satisfy a final-results lookup.
	final, err := assembler.Final(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("final: %v", err)
	}
	if final.TotalScore != 30 || !final.IsCompleted {
		t.Fatalf("final results polluted by live snapshot: %+v", final)
	}
	if api.resultsCalls != 1 {
		t.Fatalf("expected the final fetch to hit the backend once, got %d", api.resultsCalls)
	}
}

func TestConcurrentFinalCollapsesToOneFetch(t *testing.T) {
	api := &fakeResultsAPI{
		gradingComplete: true,
		final:           domain.QuizSession{ID: "s-1", TotalScore: 30, IsCompleted: true},
	}
	assembler := runtime.NewResultsAssembler(api, memory.NewResultsCache(time.Minute, time.Minute))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := assembler.Final(context.Background(), "s-1"); err != nil {
				t.Errorf("final: %v", err)
			}
		}()
	}
	wg.Wait()

	if api.resultsCalls != 1 {
		t.Fatalf("expected singleflight to collapse fetches, got %d", api.resultsCalls)
	}
}
