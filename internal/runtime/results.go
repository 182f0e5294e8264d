package runtime

import (
	"context"

	"golang.org/x/sync/singleflight"

	"quiz-session-runtime/internal/domain"
)

// ResultsAPI is the slice of the backend client the assembler needs.
type ResultsAPI interface {
	GradingStatus(ctx context.Context, sessionID string) (domain.GradingStatus, error)
	Results(ctx context.Context, sessionID string) (domain.QuizSession, error)
	CurrentState(ctx context.Context, sessionID string) (domain.QuizSession, error)
}

// ResultsCache stores session snapshots. Final results and the live
// in-progress snapshot live under distinct keys so a mid-session view never
// masquerades as graded data.
type ResultsCache interface {
	GetFinal(ctx context.Context, sessionID string) (domain.QuizSession, bool, error)
	SetFinal(ctx context.Context, sessionID string, session domain.QuizSession) error
	GetLive(ctx context.Context, sessionID string) (domain.QuizSession, bool, error)
	SetLive(ctx context.Context, sessionID string, session domain.QuizSession) error
}

// ResultsAssembler fetches and caches session results. Final results are only
// served once grading is complete; concurrent fetches for the same session
// collapse into one backend call.
type ResultsAssembler struct {
	api   ResultsAPI
	cache ResultsCache
	sf    singleflight.Group
}

// NewResultsAssembler builds an assembler over the given API and cache.
func NewResultsAssembler(api ResultsAPI, cache ResultsCache) *ResultsAssembler {
	return &ResultsAssembler{api: api, cache: cache}
}

// Final returns the graded session. It refuses to query the backend's results
// endpoint while grading is still running, returning
// domain.ErrGradingIncomplete instead.
func (a *ResultsAssembler) Final(ctx context.Context, sessionID string) (domain.QuizSession, error) {
	if session, ok, err := a.cache.GetFinal(ctx, sessionID); err == nil && ok {
		return session, nil
	}

	value, err, _ := a.sf.Do("final:"+sessionID, func() (interface{}, error) {
		// Re-check in case a concurrent caller populated the cache.
		if session, ok, err := a.cache.GetFinal(ctx, sessionID); err == nil && ok {
			return session, nil
		}

		status, err := a.api.GradingStatus(ctx, sessionID)
		if err != nil {
			return domain.QuizSession{}, err
		}
		if !status.IsGradingComplete {
			return domain.QuizSession{}, domain.ErrGradingIncomplete
		}

		session, err := a.api.Results(ctx, sessionID)
		if err != nil {
			return domain.QuizSession{}, err
		}
		_ = a.cache.SetFinal(ctx, sessionID, session)
		return session, nil
	})
	if err != nil {
		return domain.QuizSession{}, err
	}
	return value.(domain.QuizSession), nil
}

// Live returns the in-progress session snapshot, cached briefly under the
// live key.
func (a *ResultsAssembler) Live(ctx context.Context, sessionID string) (domain.QuizSession, error) {
	if session, ok, err := a.cache.GetLive(ctx, sessionID); err == nil && ok {
		return session, nil
	}

	value, err, _ := a.sf.Do("live:"+sessionID, func() (interface{}, error) {
		session, err := a.api.CurrentState(ctx, sessionID)
		if err != nil {
			return domain.QuizSession{}, err
		}
		_ = a.cache.SetLive(ctx, sessionID, session)
		return session, nil
	})
	if err != nil {
		return domain.QuizSession{}, err
	}
	return value.(domain.QuizSession), nil
}
