package main

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/auth"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/spf13/cobra"
)

var (
	tokenUserID int64
	tokenRole   string
	tokenTTL    time.Duration
)

// Логин вне этого сервиса, команда нужна для локальной разработки и смоук-тестов
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed access token for a user",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().Int64Var(&tokenUserID, "user", 0, "user id")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(model.RoleCandidate), "candidate, interviewer or admin")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	role := model.Role(tokenRole)
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", tokenRole)
	}
	if tokenUserID <= 0 {
		return fmt.Errorf("user id must be positive")
	}

	token, err := auth.NewManager(cfg.JWTSecret).Issue(model.Identity{ID: tokenUserID, Role: role}, tokenTTL)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
