package domain

import "errors"

var (
	// ErrNoActiveQuestion is returned when an answer arrives while no question
	// is awaiting one.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrSessionFinished is returned for actions that are invalid once the
	// session reached its terminal state.
	ErrSessionFinished = errors.New("session already finished")
	// ErrGradingIncomplete is returned when final results are requested before
	// the server reports grading completion.
	ErrGradingIncomplete = errors.New("grading not complete")
)
