package main

import (
	"fmt"
	"os"

	"github.com/Freeeeeet/interview_scheduler/internal/app"
	"github.com/Freeeeeet/interview_scheduler/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "interview-scheduler",
	Short: "Interview scheduling with slot booking and payment verification",
	Long: "interview-scheduler lets interviewers publish slots and candidates book them " +
		"after submitting payment proof. Bookings are tracked through the interview, feedback and rating.",
	SilenceUsage: true,
}

func main() {
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig конфиг и логгер для команд, которым они нужны
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err = app.NewLogger(cfg.Environment)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	return nil
}
