package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	appmw "github.com/shinyyama/inventory-backend/internal/middleware"
	"github.com/shinyyama/inventory-backend/internal/service"
)

func newTokenCmd(a *app) *cobra.Command {
	var (
		id  service.Identity
		ttl time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a development bearer token (AUTH_PROVIDER=jwt only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			if id.AuthUID == "" {
				id.AuthUID = "dev:" + id.Email
			}
			tok, err := appmw.SignToken(a.cfg.JWTSecret, id, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&id.Email, "email", "dev@example.com", "email claim")
	cmd.Flags().StringVar(&id.AuthUID, "uid", "", "subject claim (defaults to dev:<email>)")
	cmd.Flags().StringVar(&id.Name, "name", "", "display name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
