package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL  string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envServer := os.Getenv("QUIZ_SERVER_URL")
	if envServer == "" {
		envServer = "http://127.0.0.1:8080"
	}
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:   "quiz-session",
		Short: "Take timed quizzes against a quiz backend from the terminal",
	}

	cmd.PersistentFlags().StringVar(&serverURL, "server", envServer, "quiz backend base URL")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(NewPlayCmd(&configPath, &serverURL))
	cmd.AddCommand(NewResultsCmd(&configPath, &serverURL))
	return cmd
}
