package runtime

import (
	"context"
	"log"
	"sync"
	"time"

	"quiz-session-runtime/internal/client"
	"quiz-session-runtime/internal/domain"
)

// State is the runtime's position in the question loop.
type State string

const (
	StateIdle             State = "Idle"
	StateCreatingSession  State = "CreatingSession"
	StateFetchingQuestion State = "FetchingQuestion"
	StateAwaitingAnswer   State = "AwaitingAnswer"
	StateSubmitting       State = "Submitting"
	StateShowingFeedback  State = "ShowingFeedback"
	StateCompleted        State = "Completed"
	StateError            State = "Error"
)

// SessionAPI is the slice of the backend client the runtime drives.
type SessionAPI interface {
	CreateSession(ctx context.Context, quizID int, userID string) (domain.QuizSession, error)
	NextQuestion(ctx context.Context, sessionID string) (domain.CurrentQuestion, error)
	SubmitAnswer(ctx context.Context, sessionID string, quizQuestionID int, selection domain.AnswerSelection) (domain.AnswerResult, error)
}

// EventType tags runtime events for consumers.
type EventType string

const (
	EventSessionCreated EventType = "session_created"
	EventQuestion       EventType = "question"
	EventTick           EventType = "tick"
	EventFeedback       EventType = "feedback"
	EventCompleted      EventType = "completed"
	EventError          EventType = "error"
)

// Event is one observable runtime transition.
type Event struct {
	Type           EventType
	State          State
	SessionID      string
	QuestionNumber int
	Question       *domain.CurrentQuestion
	Remaining      int
	Result         *domain.AnswerResult
	Score          int
	Err            string
	Retryable      bool
}

// Options tune the runtime's fixed delays. Zero values take the defaults.
type Options struct {
	TickInterval  time.Duration // countdown granularity, default 1s
	FeedbackDelay time.Duration // pause before advancing when feedback is deferred, default 1s
	AutoAdvance   time.Duration // feedback display time in instant-feedback mode, default 3s
	EventBuffer   int           // event channel capacity, default 32
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.FeedbackDelay <= 0 {
		o.FeedbackDelay = time.Second
	}
	if o.AutoAdvance <= 0 {
		o.AutoAdvance = 3 * time.Second
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = 32
	}
	return o
}

// failedStage records which transition to re-enter on Retry.
type failedStage int

const (
	stageNone failedStage = iota
	stageCreate
	stageFetch
	stageSubmit
)

func (s failedStage) String() string {
	switch s {
	case stageCreate:
		return "create session"
	case stageFetch:
		return "fetch question"
	case stageSubmit:
		return "submit answer"
	default:
		return "none"
	}
}

// Runtime drives one quiz session: it owns the current question, the
// countdown, the submission guard and the auto-advance handle, and serializes
// every transition under one lock. Network completions and timer callbacks
// re-enter through that lock, so no two question fetches or submissions are
// ever outstanding at once.
type Runtime struct {
	api  SessionAPI
	opts Options

	mu         sync.Mutex
	state      State
	ctx        context.Context
	quizID     int
	userID     string
	sessionID  string
	questionNo int
	current    *domain.CurrentQuestion
	lastResult *domain.AnswerResult
	pending    domain.AnswerSelection
	score      int
	retries    int
	failure    failedStage
	guard      SubmissionGuard
	countdown  *CountdownTimer
	advance    *time.Timer
	events     chan Event
	closed     bool
}

// New builds a Runtime over the given session API.
func New(api SessionAPI, opts Options) *Runtime {
	rt := &Runtime{
		api:    api,
		opts:   opts.withDefaults(),
		state:  StateIdle,
		events: make(chan Event, opts.withDefaults().EventBuffer),
	}
	rt.countdown = NewCountdownTimer(rt.opts.TickInterval, rt.onTick, rt.onTimeUp)
	return rt
}

// Events delivers runtime transitions. The channel is closed by Close.
func (rt *Runtime) Events() <-chan Event {
	return rt.events
}

// Start creates the session and begins the question loop. Valid once, from Idle.
func (rt *Runtime) Start(ctx context.Context, quizID int, userID string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.state != StateIdle {
		return domain.ErrSessionFinished
	}
	rt.ctx = ctx
	rt.quizID = quizID
	rt.userID = userID
	rt.enterCreatingSessionLocked()
	return nil
}

// Submit records the user's answer for the active question. Late or duplicate
// submissions are dropped silently; submitting with no active question is an
// error.
func (rt *Runtime) Submit(selection domain.AnswerSelection) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	switch rt.state {
	case StateAwaitingAnswer:
	case StateSubmitting, StateShowingFeedback:
		// Double click or a submit racing the countdown: dropped.
		return nil
	default:
		return domain.ErrNoActiveQuestion
	}
	if !rt.guard.TryAcquire(rt.current.QuizQuestionID) {
		return nil
	}
	rt.beginSubmitLocked(selection)
	return nil
}

// Advance skips the rest of the feedback display and moves on immediately.
// A no-op outside ShowingFeedback.
func (rt *Runtime) Advance() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.state != StateShowingFeedback {
		return
	}
	rt.stopAdvanceLocked()
	rt.advanceLocked()
}

// Retry re-enters the transition that failed. Valid only in Error.
func (rt *Runtime) Retry() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.state != StateError {
		return domain.ErrNoActiveQuestion
	}
	rt.retries++
	switch rt.failure {
	case stageCreate:
		rt.enterCreatingSessionLocked()
	case stageFetch:
		rt.enterFetchingLocked()
	case stageSubmit:
		if rt.current != nil && rt.guard.TryAcquire(rt.current.QuizQuestionID) {
			rt.beginSubmitLocked(rt.pending)
		}
	}
	return nil
}

// Close tears the runtime down: timers are cancelled, the event channel is
// closed, and any in-flight completion becomes a no-op.
func (rt *Runtime) Close() {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return
	}
	rt.closed = true
	rt.countdown.Stop()
	rt.stopAdvanceLocked()
	close(rt.events)
	rt.mu.Unlock()
}

// State reports the current state.
func (rt *Runtime) State() State {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.state
}

// SessionID is empty until the session has been created.
func (rt *Runtime) SessionID() string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.sessionID
}

// Score is the locally accumulated score for optimistic display; the graded
// results remain the source of truth.
func (rt *Runtime) Score() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.score
}

// QuestionNumber is the 1-based number of the most recently fetched question.
func (rt *Runtime) QuestionNumber() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.questionNo
}

// Retries counts how many times an error state was retried.
func (rt *Runtime) Retries() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.retries
}

// ---- transitions (all *Locked methods require rt.mu) ----

func (rt *Runtime) enterCreatingSessionLocked() {
	rt.state = StateCreatingSession
	ctx := rt.ctx
	quizID, userID := rt.quizID, rt.userID
	go func() {
		session, err := rt.api.CreateSession(ctx, quizID, userID)
		rt.onSessionCreated(session, err)
	}()
}

func (rt *Runtime) onSessionCreated(session domain.QuizSession, err error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed || rt.state != StateCreatingSession {
		return
	}
	if err != nil {
		rt.enterErrorLocked(stageCreate, err)
		return
	}
	rt.sessionID = session.ID
	rt.emitLocked(Event{Type: EventSessionCreated})
	rt.enterFetchingLocked()
}

func (rt *Runtime) enterFetchingLocked() {
	rt.state = StateFetchingQuestion
	rt.lastResult = nil
	ctx, sessionID := rt.ctx, rt.sessionID
	go func() {
		question, err := rt.api.NextQuestion(ctx, sessionID)
		rt.onQuestionFetched(question, err)
	}()
}

func (rt *Runtime) onQuestionFetched(question domain.CurrentQuestion, err error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed || rt.state != StateFetchingQuestion {
		return
	}
	if err != nil {
		if client.Classify(err) == client.FailureQuizComplete {
			rt.enterCompletedLocked()
			return
		}
		rt.enterErrorLocked(stageFetch, err)
		return
	}

	rt.questionNo++
	rt.current = &question
	rt.guard.Arm(question.QuizQuestionID)
	rt.state = StateAwaitingAnswer

	seconds := question.TimeRemainingOrLimit()
	rt.countdown.Start(question.QuizQuestionID, seconds)
	rt.emitLocked(Event{
		Type:           EventQuestion,
		QuestionNumber: rt.questionNo,
		Question:       rt.current,
		Remaining:      seconds,
	})
}

func (rt *Runtime) onTick(remaining int) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed || rt.state != StateAwaitingAnswer {
		return
	}
	rt.emitLocked(Event{Type: EventTick, QuestionNumber: rt.questionNo, Remaining: remaining})
}

// onTimeUp submits an empty selection when the countdown expires. If a manual
// submit won the race the guard drops this one. The question id the countdown
// was armed for must still be the active question; an expiry that lost the
// lock race across a question change is discarded.
func (rt *Runtime) onTimeUp(questionID int) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed || rt.state != StateAwaitingAnswer {
		return
	}
	if rt.current == nil || rt.current.QuizQuestionID != questionID {
		return
	}
	if !rt.guard.TryAcquire(questionID) {
		return
	}
	rt.beginSubmitLocked(domain.AnswerSelection{})
}

func (rt *Runtime) beginSubmitLocked(selection domain.AnswerSelection) {
	rt.countdown.Stop()
	rt.state = StateSubmitting
	rt.pending = selection
	ctx, sessionID := rt.ctx, rt.sessionID
	questionID := rt.current.QuizQuestionID
	go func() {
		result, err := rt.api.SubmitAnswer(ctx, sessionID, questionID, selection)
		rt.onSubmitResult(questionID, result, err)
	}()
}

func (rt *Runtime) onSubmitResult(questionID int, result domain.AnswerResult, err error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed || rt.state != StateSubmitting {
		return
	}
	if err != nil {
		// Reopen the guard so Retry can resubmit the same selection.
		rt.guard.Release(questionID)
		rt.enterErrorLocked(stageSubmit, err)
		return
	}

	rt.lastResult = &result
	rt.score += result.ScoreAwarded

	if !rt.current.InstantFeedback {
		// Correctness is deferred to the graded results view, so the feedback
		// event carries no result; the completion check is server-driven and
		// immediate.
		if result.IsQuizComplete {
			rt.enterCompletedLocked()
			return
		}
		rt.state = StateShowingFeedback
		rt.emitLocked(Event{Type: EventFeedback, QuestionNumber: rt.questionNo, Score: rt.score})
		rt.scheduleAdvanceLocked(rt.opts.FeedbackDelay)
		return
	}

	rt.state = StateShowingFeedback
	rt.emitLocked(Event{Type: EventFeedback, QuestionNumber: rt.questionNo, Result: rt.lastResult, Score: rt.score})
	rt.scheduleAdvanceLocked(rt.opts.AutoAdvance)
}

func (rt *Runtime) scheduleAdvanceLocked(after time.Duration) {
	rt.stopAdvanceLocked()
	rt.advance = time.AfterFunc(after, func() {
		rt.mu.Lock()
		defer rt.mu.Unlock()
		if rt.closed || rt.state != StateShowingFeedback {
			return
		}
		rt.advanceLocked()
	})
}

func (rt *Runtime) stopAdvanceLocked() {
	if rt.advance != nil {
		rt.advance.Stop()
		rt.advance = nil
	}
}

func (rt *Runtime) advanceLocked() {
	if rt.lastResult != nil && rt.lastResult.IsQuizComplete {
		rt.enterCompletedLocked()
		return
	}
	rt.enterFetchingLocked()
}

// enterCompletedLocked is the one-way terminal transition of the question
// loop. Consumers start the grading poller on the completed event.
func (rt *Runtime) enterCompletedLocked() {
	rt.countdown.Stop()
	rt.stopAdvanceLocked()
	rt.guard.Disarm()
	rt.current = nil
	rt.state = StateCompleted
	rt.emitLocked(Event{Type: EventCompleted, Score: rt.score})
}

func (rt *Runtime) enterErrorLocked(stage failedStage, err error) {
	rt.countdown.Stop()
	rt.stopAdvanceLocked()
	rt.state = StateError
	rt.failure = stage
	retryable := client.Classify(err) != client.FailureFatal
	log.Printf("session %q: %s failed: %v", rt.sessionID, stage, err)
	rt.emitLocked(Event{Type: EventError, Err: err.Error(), Retryable: retryable})
}

// emitLocked delivers an event without blocking; when the consumer lags, the
// oldest buffered event is dropped first.
func (rt *Runtime) emitLocked(event Event) {
	if rt.closed {
		return
	}
	event.State = rt.state
	event.SessionID = rt.sessionID
	select {
	case rt.events <- event:
	default:
		// Emitters are serialized under rt.mu, so after dropping the oldest
		// buffered event this send cannot block.
		select {
		case <-rt.events:
		default:
		}
		rt.events <- event
	}
}
