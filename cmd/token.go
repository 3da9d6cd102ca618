package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token <identity-id>",
	Short: "Issue an access token for an identity",
	Long: `Issue a signed bearer token for the attendance API.

The token is signed with AUTH_JWT_SECRET and expires after --ttl
(default AUTH_TOKEN_TTL).

Example:
  curl -H "Authorization: Bearer $(face-attendance token 42)" \
    http://localhost:8080/api/v1/attendance/history`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().String("ttl", "", "Token lifetime, e.g. 12h (default AUTH_TOKEN_TTL)")
}

func runToken(cmd *cobra.Command, args []string) error {
	identityID, err := parseIdentityID(args[0])
	if err != nil {
		return err
	}

	cfg := config.Load()
	if cfg.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET environment variable is required")
	}

	ttl := cfg.Auth.TokenTTL
	if s := mustGetString(cmd, "ttl"); s != "" {
		ttl, err = time.ParseDuration(s)
		if err != nil || ttl <= 0 {
			return fmt.Errorf("invalid --ttl %q", s)
		}
	}

	db, err := connectDatabase(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := requireIdentity(context.Background(), identityID); err != nil {
		return err
	}

	token, err := middleware.IssueToken(cfg.Auth.JWTSecret, cfg.Auth.Issuer, identityID, ttl, time.Now())
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	// stdout carries only the token, for $(face-attendance token N)
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
