package cli

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"quiz-session-runtime/internal/client"
	"quiz-session-runtime/internal/config"
	"quiz-session-runtime/internal/domain"
	"quiz-session-runtime/internal/runtime"
)

// NewPlayCmd builds the CLI subcommand that plays a quiz session interactively.
func NewPlayCmd(configPath, serverURL *string) *cobra.Command {
	var quizID int
	var userID string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Start a quiz session and answer questions until it completes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if quizID <= 0 {
				return fmt.Errorf("--quiz is required")
			}
			if userID == "" {
				userID = uuid.NewString()
			}
			return runPlay(cmd.Context(), *configPath, *serverURL, quizID, userID)
		},
	}

	cmd.Flags().IntVar(&quizID, "quiz", 0, "id of the quiz to play")
	cmd.Flags().StringVar(&userID, "user", "", "user id (generated when empty)")
	return cmd
}

func runPlay(ctx context.Context, configPath, serverURL string, quizID int, userID string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	backend := newBackend(cfg, serverURL)

	rt := runtime.New(backend, runtime.Options{
		FeedbackDelay: config.Duration(cfg.Session.FeedbackDelay, time.Second),
		AutoAdvance:   config.Duration(cfg.Session.AutoAdvance, 3*time.Second),
	})
	defer rt.Close()

	if err := rt.Start(ctx, quizID, userID); err != nil {
		return err
	}

	lines := readLines(ctx)
	var current *domain.CurrentQuestion

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			handleInput(rt, current, line)
		case event, ok := <-rt.Events():
			if !ok {
				return nil
			}
			switch event.Type {
			case runtime.EventSessionCreated:
				fmt.Printf("session %s started\n", event.SessionID)
			case runtime.EventQuestion:
				current = event.Question
				printQuestion(event.QuestionNumber, event.Question)
			case runtime.EventTick:
				if event.Remaining <= 5 || event.Remaining%10 == 0 {
					fmt.Printf("  %ds left\n", event.Remaining)
				}
			case runtime.EventFeedback:
				current = nil
				printFeedback(event.Result, event.Score)
			case runtime.EventError:
				current = nil
				fmt.Printf("error: %s\n", event.Err)
				if !event.Retryable {
					fmt.Println("this failure will not resolve on retry; press Enter to retry anyway or Ctrl+C to go back")
				} else {
					fmt.Println("press Enter to retry")
				}
			case runtime.EventCompleted:
				fmt.Printf("quiz complete, local score %d; waiting for grading...\n", event.Score)
				return showFinalResults(ctx, cfg, backend, event.SessionID)
			}
		}
	}
}

// handleInput routes one stdin line according to where the session stands.
func handleInput(rt *runtime.Runtime, current *domain.CurrentQuestion, line string) {
	switch rt.State() {
	case runtime.StateAwaitingAnswer:
		if current == nil {
			return
		}
		selection, err := parseSelection(current, line)
		if err != nil {
			fmt.Printf("  %v\n", err)
			return
		}
		_ = rt.Submit(selection)
	case runtime.StateShowingFeedback:
		rt.Advance()
	case runtime.StateError:
		_ = rt.Retry()
	}
}

// parseSelection turns a typed line into the submission payload for the
// question type: an option id for choice questions, free text otherwise.
func parseSelection(question *domain.CurrentQuestion, line string) (domain.AnswerSelection, error) {
	line = strings.TrimSpace(line)
	if question.Type == domain.QuestionTypeTheAnswer {
		return domain.AnswerSelection{FreeText: &line}, nil
	}

	optionID, err := strconv.Atoi(line)
	if err != nil {
		return domain.AnswerSelection{}, fmt.Errorf("type the number of an option")
	}
	for _, option := range question.Options {
		if option.ID == optionID {
			return domain.AnswerSelection{OptionID: &optionID}, nil
		}
	}
	return domain.AnswerSelection{}, fmt.Errorf("no option %d", optionID)
}

func printQuestion(number int, question *domain.CurrentQuestion) {
	fmt.Printf("\nQ%d. %s\n", number, question.Text)
	for _, option := range question.Options {
		fmt.Printf("  [%d] %s\n", option.ID, option.Text)
	}
	if question.Type == domain.QuestionTypeTheAnswer {
		fmt.Println("  (type your answer)")
	}
	fmt.Printf("  %ds on the clock\n> ", question.TimeRemainingOrLimit())
}

func printFeedback(result *domain.AnswerResult, score int) {
	if result == nil {
		// Deferred-feedback quiz: correctness arrives with the graded results.
		fmt.Println("answer recorded")
		return
	}
	switch result.Status {
	case domain.AnswerCorrect:
		fmt.Printf("correct! +%d (total %d)\n", result.ScoreAwarded, score)
	case domain.AnswerTimedOut:
		fmt.Println("time ran out")
	default:
		fmt.Printf("%s (total %d)\n", strings.ToLower(string(result.Status)), score)
	}
	if result.CorrectOptionID != nil {
		fmt.Printf("  correct option was [%d]\n", *result.CorrectOptionID)
	}
	if result.Explanation != "" {
		fmt.Printf("  %s\n", result.Explanation)
	}
	if !result.IsQuizComplete {
		fmt.Println("press Enter for the next question")
	}
}

// readLines feeds stdin lines to a channel so the event loop can select over
// input and runtime events at once.
func readLines(ctx context.Context) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func newBackend(cfg config.Config, serverURL string) *client.Client {
	base := serverURL
	if base == "" {
		base = cfg.Server.BaseURL
	}
	httpClient := &http.Client{Timeout: config.Duration(cfg.Server.Timeout, 15*time.Second)}
	return client.New(base, httpClient)
}
