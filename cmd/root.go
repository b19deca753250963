package cmd

import (
	"fmt"
	"os"

	"github.com/Yates-Labs/carebridge/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "carebridge",
	Short: "CareBridge - post-discharge patient assistant",
	Long: `CareBridge answers questions from discharged nephrology patients.

A receptionist agent identifies the patient from their name or ID, and a
clinical agent answers questions grounded in a nephrology reference corpus,
falling back to web search when the reference is not a confident match.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default $LOG_LEVEL or info)")
}

// newLogger builds the process logger, honouring --log-level over LOG_LEVEL.
func newLogger() (*zap.Logger, func(), error) {
	cfg := logging.DefaultConfig()
	if logLevel != "" {
		cfg.Level = logLevel
	}
	return logging.New(cfg)
}
