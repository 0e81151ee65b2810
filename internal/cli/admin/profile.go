package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/remardo/mkk-portal/internal/domain"
	"github.com/remardo/mkk-portal/internal/repository"
)

func ProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage employee profiles",
		Long:  "Create and deactivate employee profiles",
	}

	cmd.AddCommand(ProfileCreateCmd())
	cmd.AddCommand(ProfileDeactivateCmd())

	return cmd
}

func ProfileCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an employee profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			fullName, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			role, _ := cmd.Flags().GetString("role")
			branchID, _ := cmd.Flags().GetString("branch")

			now := time.Now().UTC()
			profile := &domain.Profile{
				ID:        uuid.NewString(),
				FullName:  fullName,
				Email:     email,
				Role:      domain.UserRole(role),
				BranchID:  branchID,
				IsActive:  true,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := domain.ValidateProfile(profile); err != nil {
				return err
			}
			if profile.Email == "" {
				return fmt.Errorf("email is required")
			}

			pool, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := repository.NewProfileRepository(pool).Create(ctx, profile); err != nil {
				return fmt.Errorf("failed to create profile: %w", err)
			}

			output, _ := json.MarshalIndent(map[string]string{
				"id":        profile.ID,
				"full_name": profile.FullName,
				"role":      string(profile.Role),
				"branch_id": profile.BranchID,
			}, "", "  ")
			fmt.Println(string(output))
			return nil
		},
	}

	cmd.Flags().String("name", "", "Employee full name (required)")
	cmd.Flags().String("email", "", "Employee email (required)")
	cmd.Flags().String("role", "", "Employee role (required)")
	cmd.Flags().String("branch", "", "Branch ID (empty for head office)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

func ProfileDeactivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deactivate <user-id>",
		Short: "Deactivate an employee profile",
		Long:  "Deactivate an employee profile. A deactivated employee cannot resolve an access context and loses all retrieval.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, cfg, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := repository.NewProfileRepository(pool).SetActive(ctx, args[0], false); err != nil {
				return fmt.Errorf("failed to deactivate profile: %w", err)
			}

			// Active sessions of a disabled employee are dead weight.
			if err := newSessionService(pool, cfg).RevokeUserSessions(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to revoke sessions: %w", err)
			}

			fmt.Printf("profile %s deactivated\n", args[0])
			return nil
		},
	}

	return cmd
}
