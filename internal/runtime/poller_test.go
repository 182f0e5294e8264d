package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-session-runtime/internal/domain"
	"quiz-session-runtime/internal/runtime"
)

// fakeGrader scripts grading-status responses per poll.
type fakeGrader struct {
	mu        sync.Mutex
	responses []gradingOutcome
	calls     int
}

type gradingOutcome struct {
	status domain.GradingStatus
	err    error
}

func (g *fakeGrader) GradingStatus(_ context.Context, sessionID string) (domain.GradingStatus, error) {
	g.mu.Lock()
	call := g.calls
	g.calls++
	g.mu.Unlock()

	if call >= len(g.responses) {
		return domain.GradingStatus{SessionID: sessionID, IsGradingComplete: true}, nil
	}
	outcome := g.responses[call]
	outcome.status.SessionID = sessionID
	return outcome.status, outcome.err
}

func (g *fakeGrader) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestPollerStopsOnCompleteWithBoundedRequests(t *testing.T) {
	grader := &fakeGrader{responses: []gradingOutcome{
		{status: domain.GradingStatus{IsGradingComplete: false}},
		{status: domain.GradingStatus{IsGradingComplete: false}},
		{status: domain.GradingStatus{IsGradingComplete: false}},
		{status: domain.GradingStatus{IsGradingComplete: true}},
	}}
	poller := runtime.NewGradingPoller(grader, 5*time.Millisecond)

	updates, cancel := poller.Watch(context.Background(), "s-1")
	defer cancel()

	var last domain.GradingStatus
	for status := range updates {
		last = status
	}
	if !last.IsGradingComplete {
		t.Fatalf("expected final status to report completion")
	}
	if got := grader.callCount(); got != 4 {
		t.Fatalf("expected exactly 4 requests, got %d", got)
	}

	// No trailing requests once completion was observed.
	time.Sleep(30 * time.Millisecond)
	if got := grader.callCount(); got != 4 {
		t.Fatalf("poller kept polling after completion: %d requests", got)
	}
}

func TestPollerContinuesThroughErrors(t *testing.T) {
	grader := &fakeGrader{responses: []gradingOutcome{
		{err: errors.New("gateway timeout")},
		{err: errors.New("connection reset")},
		{status: domain.GradingStatus{IsGradingComplete: true}},
	}}
	poller := runtime.NewGradingPoller(grader, 5*time.Millisecond)

	status, err := poller.Wait(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !status.IsGradingComplete {
		t.Fatalf("expected completion despite poll errors")
	}
	if got := grader.callCount(); got != 3 {
		t.Fatalf("expected 3 requests, got %d", got)
	}
}

func TestPollerCancelStopsPolling(t *testing.T) {
	grader := &fakeGrader{responses: []gradingOutcome{
		{status: domain.GradingStatus{IsGradingComplete: false}},
		{status: domain.GradingStatus{IsGradingComplete: false}},
		{status: domain.GradingStatus{IsGradingComplete: false}},
		{status: domain.GradingStatus{IsGradingComplete: false}},
	}}
	poller := runtime.NewGradingPoller(grader, 5*time.Millisecond)

	updates, cancel := poller.Watch(context.Background(), "s-1")
	<-updates
	cancel()

	// The channel closes once the loop observes cancellation.
	for range updates {
	}
	settled := grader.callCount()
	time.Sleep(30 * time.Millisecond)
	if got := grader.callCount(); got != settled {
		t.Fatalf("polling continued after cancel: %d then %d requests", settled, got)
	}
}

func TestPollerWaitHonorsContext(t *testing.T) {
	grader := &fakeGrader{responses: []gradingOutcome{
		{status: domain.GradingStatus{IsGradingComplete: false}},
		{status: domain.GradingStatus{IsGradingComplete: false}},
	}}
	poller := runtime.NewGradingPoller(grader, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := poller.Wait(ctx, "s-1"); err == nil {
		t.Fatalf("expected context error when grading never completes")
	}
}
