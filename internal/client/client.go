package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quiz-session-runtime/internal/domain"
)

// ErrBackendUnavailable wraps transport-level failures reaching the quiz backend.
var ErrBackendUnavailable = errors.New("quiz backend unavailable")

// APIError is a non-2xx response from the quiz backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// Client wraps the quiz backend's session endpoints. It holds no session
// state; the session id is an explicit parameter to every call after create.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a Client for the given base URL. A nil httpClient falls back to
// a default with a 15s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type createSessionRequest struct {
	QuizID int    `json:"quizId"`
	UserID string `json:"userId"`
}

type submitAnswerRequest struct {
	SessionID        string  `json:"sessionId"`
	QuizQuestionID   int     `json:"quizQuestionId"`
	SelectedOptionID *int    `json:"selectedOptionId,omitempty"`
	SubmittedAnswer  *string `json:"submittedAnswer,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateSession starts a new quiz attempt for the given quiz and user.
func (c *Client) CreateSession(ctx context.Context, quizID int, userID string) (domain.QuizSession, error) {
	var session domain.QuizSession
	err := c.doJSON(ctx, http.MethodPost, "/QuizSessions", createSessionRequest{QuizID: quizID, UserID: userID}, &session)
	return session, err
}

// NextQuestion fetches the next unanswered question for the session. When the
// quiz is finished the backend reports completion through the error channel;
// callers route on Classify.
func (c *Client) NextQuestion(ctx context.Context, sessionID string) (domain.CurrentQuestion, error) {
	var question domain.CurrentQuestion
	err := c.doJSON(ctx, http.MethodGet, "/QuizSessions/"+url.PathEscape(sessionID)+"/next-question", nil, &question)
	return question, err
}

// SubmitAnswer records one answer. An empty selection means no answer was
// given before the countdown expired.
func (c *Client) SubmitAnswer(ctx context.Context, sessionID string, quizQuestionID int, selection domain.AnswerSelection) (domain.AnswerResult, error) {
	request := submitAnswerRequest{
		SessionID:        sessionID,
		QuizQuestionID:   quizQuestionID,
		SelectedOptionID: selection.OptionID,
		SubmittedAnswer:  selection.FreeText,
	}
	var result domain.AnswerResult
	err := c.doJSON(ctx, http.MethodPost, "/QuizSessions/answer", request, &result)
	return result, err
}

// GradingStatus reports whether server-side grading has finished for the session.
func (c *Client) GradingStatus(ctx context.Context, sessionID string) (domain.GradingStatus, error) {
	var status domain.GradingStatus
	err := c.doJSON(ctx, http.MethodGet, "/QuizSessions/"+url.PathEscape(sessionID)+"/grading-status", nil, &status)
	return status, err
}

// Results fetches the full graded session with per-question answers. Only
// meaningful after GradingStatus reports completion.
func (c *Client) Results(ctx context.Context, sessionID string) (domain.QuizSession, error) {
	var session domain.QuizSession
	err := c.doJSON(ctx, http.MethodGet, "/QuizSessions/"+url.PathEscape(sessionID)+"/results", nil, &session)
	return session, err
}

// Session fetches the session record as it currently stands.
func (c *Client) Session(ctx context.Context, sessionID string) (domain.QuizSession, error) {
	var session domain.QuizSession
	err := c.doJSON(ctx, http.MethodGet, "/QuizSessions/"+url.PathEscape(sessionID), nil, &session)
	return session, err
}

// CurrentState fetches the live state snapshot used for resuming or
// inspecting an in-flight session.
func (c *Client) CurrentState(ctx context.Context, sessionID string) (domain.QuizSession, error) {
	var session domain.QuizSession
	err := c.doJSON(ctx, http.MethodGet, "/QuizSessions/"+url.PathEscape(sessionID)+"/current-state", nil, &session)
	return session, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, requestBody, responseBody any) error {
	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil {
			if strings.TrimSpace(payload.Error) != "" {
				apiErr.Message = payload.Error
			} else if strings.TrimSpace(payload.Message) != "" {
				apiErr.Message = payload.Message
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		return apiErr
	}

	if responseBody == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(responseBody)
}
