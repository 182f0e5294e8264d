package cli

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-session-runtime/internal/client"
	"quiz-session-runtime/internal/config"
	"quiz-session-runtime/internal/domain"
	"quiz-session-runtime/internal/infra/memory"
	redicache "quiz-session-runtime/internal/infra/redis"
	"quiz-session-runtime/internal/runtime"
)

// NewResultsCmd builds the CLI subcommand that inspects a session by id.
func NewResultsCmd(configPath, serverURL *string) *cobra.Command {
	var noWait bool

	cmd := &cobra.Command{
		Use:   "results <session-id>",
		Short: "Show a session's results, waiting for grading to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			backend := newBackend(cfg, *serverURL)
			if noWait {
				return showLiveSnapshot(cmd.Context(), cfg, backend, args[0])
			}
			return showFinalResults(cmd.Context(), cfg, backend, args[0])
		},
	}

	cmd.Flags().BoolVar(&noWait, "no-wait", false, "print the live snapshot instead of waiting for grading")
	return cmd
}

// showFinalResults waits for grading completion, then fetches and prints the
// graded session.
func showFinalResults(ctx context.Context, cfg config.Config, backend *client.Client, sessionID string) error {
	poller := runtime.NewGradingPoller(backend, config.Duration(cfg.Polling.Interval, 2*time.Second))
	status, err := poller.Wait(ctx, sessionID)
	if err != nil {
		return err
	}
	if !status.IsGradingComplete {
		return domain.ErrGradingIncomplete
	}

	assembler := runtime.NewResultsAssembler(backend, newCache(cfg))
	session, err := assembler.Final(ctx, sessionID)
	if err != nil {
		return err
	}
	printResults(session)
	return nil
}

func showLiveSnapshot(ctx context.Context, cfg config.Config, backend *client.Client, sessionID string) error {
	assembler := runtime.NewResultsAssembler(backend, newCache(cfg))
	session, err := assembler.Live(ctx, sessionID)
	if err != nil {
		return err
	}
	printResults(session)
	return nil
}

func printResults(session domain.QuizSession) {
	fmt.Printf("\nsession %s  score %d", session.ID, session.TotalScore)
	if session.IsCompleted {
		fmt.Print("  (completed)")
	}
	fmt.Println()
	for i, answer := range session.UserAnswers {
		fmt.Printf("%2d. %-40s %s (+%d)\n", i+1, answer.QuestionText, answer.Status, answer.Score)
	}
}

// newCache picks the Redis-backed cache when an address is configured, the
// in-process one otherwise.
func newCache(cfg config.Config) runtime.ResultsCache {
	finalTTL := config.Duration(cfg.Results.FinalTTL, 10*time.Minute)
	liveTTL := config.Duration(cfg.Results.LiveTTL, 5*time.Second)
	if cfg.Redis.Addr == "" {
		return memory.NewResultsCache(finalTTL, liveTTL)
	}
	return redicache.NewResultsCache(goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}), finalTTL, liveTTL)
}
