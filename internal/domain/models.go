package domain

import "time"

// QuestionType discriminates how a question is answered.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "MultipleChoice"
	QuestionTrueFalse      QuestionType = "TrueFalse"
	QuestionTypeTheAnswer  QuestionType = "TypeTheAnswer"
)

// AnswerStatus is the server-assigned outcome of one submission.
type AnswerStatus string

const (
	AnswerCorrect     AnswerStatus = "Correct"
	AnswerIncorrect   AnswerStatus = "Incorrect"
	AnswerTimedOut    AnswerStatus = "TimedOut"
	AnswerNotAnswered AnswerStatus = "NotAnswered"
)

// QuizSession identifies one user's timed attempt at a quiz. The client never
// mutates it; the server updates it as answers are recorded.
type QuizSession struct {
	ID          string       `json:"id"`
	QuizID      int          `json:"quizId"`
	UserID      string       `json:"userId"`
	StartedAt   time.Time    `json:"startedAt"`
	EndedAt     *time.Time   `json:"endedAt,omitempty"`
	TotalScore  int          `json:"totalScore"`
	IsCompleted bool         `json:"isCompleted"`
	UserAnswers []UserAnswer `json:"userAnswers,omitempty"`
}

// AnswerOption is one selectable answer for a question.
type AnswerOption struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// CurrentQuestion is the question presented to the user right now. It exists
// between one next-question fetch and the matching submission; free-text
// questions carry no options.
type CurrentQuestion struct {
	QuizQuestionID   int            `json:"quizQuestionId"`
	Text             string         `json:"text"`
	Options          []AnswerOption `json:"options,omitempty"`
	Type             QuestionType   `json:"questionType"`
	TimeLimitSec     int            `json:"timeLimitSeconds"`
	TimeRemainingSec int            `json:"timeRemainingSeconds"`
	Explanation      string         `json:"explanation,omitempty"`
	InstantFeedback  bool           `json:"instantFeedback"`
}

// TimeRemainingOrLimit returns the seconds to put on the countdown: the
// server's remaining time when present, else the full limit.
func (q CurrentQuestion) TimeRemainingOrLimit() int {
	if q.TimeRemainingSec > 0 {
		return q.TimeRemainingSec
	}
	return q.TimeLimitSec
}

// AnswerSelection is what the user picked for a question: an option id for
// choice questions, free text for typed answers, or neither when the
// countdown expired with no answer.
type AnswerSelection struct {
	OptionID *int
	FreeText *string
}

// None reports whether the selection carries no answer at all.
func (s AnswerSelection) None() bool {
	return s.OptionID == nil && s.FreeText == nil
}

// AnswerResult is the outcome of submitting one answer. Consumed to render
// feedback, then discarded on advance.
type AnswerResult struct {
	Status          AnswerStatus `json:"status"`
	ScoreAwarded    int          `json:"scoreAwarded"`
	IsQuizComplete  bool         `json:"isQuizComplete"`
	CorrectOptionID *int         `json:"correctOptionId,omitempty"`
	Explanation     string       `json:"explanation,omitempty"`
}

// UserAnswer is the server-recorded answer read back for review and results.
type UserAnswer struct {
	QuizQuestionID   int            `json:"quizQuestionId"`
	SelectedOptionID *int           `json:"selectedOptionId,omitempty"`
	SubmittedAnswer  string         `json:"submittedAnswer,omitempty"`
	Status           AnswerStatus   `json:"status"`
	Score            int            `json:"score"`
	QuestionText     string         `json:"questionText,omitempty"`
	Options          []AnswerOption `json:"options,omitempty"`
}

// GradingStatus reports whether asynchronous server-side grading has finished.
type GradingStatus struct {
	SessionID         string `json:"sessionId"`
	IsGradingComplete bool   `json:"isGradingComplete"`
}
