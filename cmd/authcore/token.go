package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/bookwell/authcore"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewTokenCmd creates the token subcommand group.
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue, inspect and revoke session tokens",
	}

	cmd.AddCommand(newTokenIssueCmd())
	cmd.AddCommand(newTokenInspectCmd())
	cmd.AddCommand(newTokenRevokeCmd())

	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var subject, role string

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Print a new token for a subject",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := authcore.LoadConfigFromEnv()
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}
			// Issuing never touches the revocation store.
			cfg.Revocation.Enabled = false
			cfg.Audit.Enabled = false

			engine, err := authcore.New().WithConfig(cfg).Build()
			if err != nil {
				return oops.Code("ENGINE_BUILD_FAILED").Wrap(err)
			}
			defer engine.Close()

			tok, err := engine.Issue(cmd.Context(), subject, role)
			if err != nil {
				return oops.Code("TOKEN_ISSUE_FAILED").With("subject", subject).Wrap(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "user id to put in the token")
	cmd.Flags().StringVar(&role, "role", "", "optional role claim")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func newTokenInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <token>",
		Short: "Verify a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := authcore.LoadConfigFromEnv()
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}
			cfg.Revocation.Enabled = false
			cfg.Audit.Enabled = false

			engine, err := authcore.New().WithConfig(cfg).Build()
			if err != nil {
				return oops.Code("ENGINE_BUILD_FAILED").Wrap(err)
			}
			defer engine.Close()

			claims, err := engine.Codec().Verify(args[0])
			if err != nil {
				return oops.Code("TOKEN_INVALID").Wrap(err)
			}

			status := "valid"
			if _, err := engine.Codec().Decode(args[0]); errors.Is(err, authcore.ErrExpired) {
				status = "expired"
			}

			fmt.Fprintf(cmd.OutOrStdout(), "subject:    %s\n", claims.Subject)
			if claims.Role != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "role:       %s\n", claims.Role)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session_id: %s\n", claims.SessionID)
			fmt.Fprintf(cmd.OutOrStdout(), "issued_at:  %s\n", formatUnix(claims.IssuedAt))
			fmt.Fprintf(cmd.OutOrStdout(), "expires_at: %s\n", formatUnix(claims.ExpiresAt))
			fmt.Fprintf(cmd.OutOrStdout(), "status:     %s\n", status)
			return nil
		},
	}
}

func newTokenRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token>",
		Short: "Revoke the session carried by a token",
		Long: `Revoke the token's session in the configured revocation backend.
AUTH_REVOCATION_ENABLED must be true.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proc, err := loadProcessConfig()
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}
			cfg, err := authcore.LoadConfigFromEnv()
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}
			if !cfg.Revocation.Enabled {
				return oops.Code("CONFIG_INVALID").Errorf("AUTH_REVOCATION_ENABLED must be true to revoke")
			}

			logger := newLogger(proc.Logger)
			defer func() { _ = logger.Sync() }()

			engine, cleanup, err := buildEngine(cmd.Context(), cfg, proc, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := engine.Revoke(cmd.Context(), args[0]); err != nil {
				logger.Warn("revoke failed", zap.Error(err))
				return oops.Code("TOKEN_REVOKE_FAILED").Wrap(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "revoked")
			return nil
		},
	}
}

func formatUnix(sec int64) string {
	return fmt.Sprintf("%s (%d)", time.Unix(sec, 0).UTC().Format(time.RFC3339), sec)
}
