package client

import (
	"errors"
	"net/http"
	"strings"
)

// FailureKind routes a failed backend call.
type FailureKind int

const (
	// FailureTransient covers network problems and server-side errors worth
	// retrying.
	FailureTransient FailureKind = iota
	// FailureFatal covers rejections that retrying cannot fix.
	FailureFatal
	// FailureQuizComplete means the "failure" is the backend's way of saying
	// the session has no more questions.
	FailureQuizComplete
)

// completionMarkers are the message fragments the backend uses to report quiz
// completion through the error channel. The backend exposes no structured
// completion code, so matching its message text here is the contract; keep
// every marker in this one list.
var completionMarkers = []string{
	"no more questions",
	"quiz is complete",
	"quiz completed",
	"session is completed",
}

// Classify maps a failed backend call to a FailureKind. This is the single
// place where completion-as-error detection lives.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureTransient
	}
	if errors.Is(err, ErrBackendUnavailable) {
		return FailureTransient
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if isCompletionMessage(apiErr.Message) {
			return FailureQuizComplete
		}
		if apiErr.StatusCode >= http.StatusInternalServerError ||
			apiErr.StatusCode == http.StatusTooManyRequests ||
			apiErr.StatusCode == http.StatusRequestTimeout {
			return FailureTransient
		}
		return FailureFatal
	}

	// Context cancellations, decode failures and the like: retryable.
	return FailureTransient
}

func isCompletionMessage(message string) bool {
	lowered := strings.ToLower(message)
	for _, marker := range completionMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
