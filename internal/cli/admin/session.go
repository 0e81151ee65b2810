package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/remardo/mkk-portal/internal/config"
	"github.com/remardo/mkk-portal/internal/database"
	"github.com/remardo/mkk-portal/internal/repository"
	"github.com/remardo/mkk-portal/internal/service"
)

func connect(ctx context.Context) (*pgxpool.Pool, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return pool, cfg, nil
}

func newSessionService(pool *pgxpool.Pool, cfg *config.Config) *service.SessionService {
	return service.NewSessionService(
		repository.NewSessionRepository(pool),
		repository.NewProfileRepository(pool),
		&service.DefaultUUIDGenerator{},
		cfg.SessionTTL,
	)
}

func SessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage employee sessions",
		Long:  "Issue and revoke session tokens for portal employees",
	}

	cmd.AddCommand(SessionIssueCmd())
	cmd.AddCommand(SessionRevokeCmd())

	return cmd
}

func SessionIssueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue <user-id>",
		Short: "Issue a session token",
		Long:  "Issue a new session token for an employee. The token is printed once and never stored in plaintext.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, cfg, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			token, err := newSessionService(pool, cfg).CreateSession(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}

			output, _ := json.MarshalIndent(map[string]string{
				"user_id": args[0],
				"token":   token,
			}, "", "  ")
			fmt.Println(string(output))
			return nil
		},
	}

	return cmd
}

func SessionRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <user-id>",
		Short: "Revoke all sessions of an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, cfg, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := newSessionService(pool, cfg).RevokeUserSessions(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to revoke sessions: %w", err)
			}

			fmt.Printf("sessions revoked for user %s\n", args[0])
			return nil
		},
	}

	return cmd
}
