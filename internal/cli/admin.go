package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-offers/internal/auth"
)

// NewHashPasswordCommand creates the hash-password command. The password is
// read from the first line of stdin so it stays out of shell history.
func NewHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash an admin password read from stdin for ADMIN_PASSWORD_HASH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.New("read password from stdin")
			}
			hash, err := auth.HashPassword(strings.TrimRight(line, "\r\n"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}

// NewTokenCommand creates the token command, which signs an admin token with
// the shared secret instead of logging in.
func NewTokenCommand() *cobra.Command {
	var (
		secret   string
		subject  string
		issuer   string
		audience string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin bearer token from ADMIN_JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("ADMIN_JWT_SECRET")
			}
			svc, err := auth.NewService(auth.Config{
				Secret:         secret,
				AccessTokenTTL: ttl,
				Issuer:         issuer,
				Audience:       audience,
			})
			if err != nil {
				return err
			}
			token, expiry, err := svc.SignAccessToken(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiry.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (default $ADMIN_JWT_SECRET)")
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	cmd.Flags().StringVar(&issuer, "issuer", os.Getenv("ADMIN_JWT_ISSUER"), "token issuer")
	cmd.Flags().StringVar(&audience, "audience", os.Getenv("ADMIN_JWT_AUDIENCE"), "token audience")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*time.Minute, "token lifetime")
	return cmd
}
