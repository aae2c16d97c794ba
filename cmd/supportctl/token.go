package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"support_tracker/internal/platform/config"
	jwtmw "support_tracker/internal/platform/jwt"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		secret  string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin bearer token for the cache maintenance routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				cfg, err := config.Load(cmd.Context())
				if err != nil {
					return err
				}
				secret = cfg.JWTSecret
			}
			if secret == "" {
				return errors.New("no secret: set AUTH_JWT_SECRET or pass --secret")
			}
			token, err := jwtmw.NewGenerator(secret, ttl).GenerateToken(subject)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret, defaults to AUTH_JWT_SECRET")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
