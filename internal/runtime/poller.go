package runtime

import (
	"context"
	"log"
	"time"

	"quiz-session-runtime/internal/domain"
)

// GradingAPI is the slice of the backend client the poller needs.
type GradingAPI interface {
	GradingStatus(ctx context.Context, sessionID string) (domain.GradingStatus, error)
}

// GradingPoller repeatedly asks the backend whether asynchronous grading has
// finished for a completed session. It must only be started after the
// session reached Completed.
type GradingPoller struct {
	api      GradingAPI
	interval time.Duration
}

// NewGradingPoller builds a poller with the given fixed interval (2s when zero).
func NewGradingPoller(api GradingAPI, interval time.Duration) *GradingPoller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &GradingPoller{api: api, interval: interval}
}

// Watch polls every interval until the backend reports grading complete, then
// delivers that final status and closes the channel with no trailing
// requests. Poll failures are logged and the interval continues. The caller
// must invoke the cancel function when it is done watching.
func (p *GradingPoller) Watch(ctx context.Context, sessionID string) (<-chan domain.GradingStatus, func()) {
	ctx, cancel := context.WithCancel(ctx)
	updates := make(chan domain.GradingStatus, 1)

	go func() {
		defer close(updates)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				status, err := p.api.GradingStatus(ctx, sessionID)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("grading poll for session %q failed: %v", sessionID, err)
					continue
				}
				select {
				case updates <- status:
				default:
					// Drop the stale status; only the latest matters.
					select {
					case <-updates:
					default:
					}
					updates <- status
				}
				if status.IsGradingComplete {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return updates, cancel
}

// Wait blocks until grading completes or the context is cancelled, returning
// the final status.
func (p *GradingPoller) Wait(ctx context.Context, sessionID string) (domain.GradingStatus, error) {
	updates, cancel := p.Watch(ctx, sessionID)
	defer cancel()

	var last domain.GradingStatus
	for status := range updates {
		last = status
	}
	if !last.IsGradingComplete && ctx.Err() != nil {
		return last, ctx.Err()
	}
	return last, nil
}
