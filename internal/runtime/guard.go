package runtime

import "sync"

// SubmissionGuard lets exactly one submission through per question. When the
// countdown expiry and a manual submit race, whichever acquires first wins
// and the loser is dropped. Arm resets the guard for a new question; Release
// reopens it after a failed dispatch so an explicit retry can resubmit.
type SubmissionGuard struct {
	mu         sync.Mutex
	questionID int
	armed      bool
	taken      bool
}

// Arm resets the guard for the given question.
func (g *SubmissionGuard) Arm(questionID int) {
	g.mu.Lock()
	g.questionID = questionID
	g.armed = true
	g.taken = false
	g.mu.Unlock()
}

// Disarm closes the guard entirely; no submission passes until the next Arm.
func (g *SubmissionGuard) Disarm() {
	g.mu.Lock()
	g.armed = false
	g.mu.Unlock()
}

// TryAcquire reports whether the caller may dispatch a submission for the
// question. At most one caller succeeds per arm.
func (g *SubmissionGuard) TryAcquire(questionID int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.armed || g.questionID != questionID || g.taken {
		return false
	}
	g.taken = true
	return true
}

// Release reopens the guard after a dispatch that never reached the server.
// A release for a stale question id is ignored.
func (g *SubmissionGuard) Release(questionID int) {
	g.mu.Lock()
	if g.armed && g.questionID == questionID {
		g.taken = false
	}
	g.mu.Unlock()
}
