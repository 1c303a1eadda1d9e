package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/service/auth"
	"github.com/spf13/cobra"
)

func newTokenCmd(global *globalOptions) *cobra.Command {
	var operator string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator access token for the screening API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := global.load(cmd)
			if err != nil {
				return err
			}

			id := uuid.New()
			if operator != "" {
				if id, err = uuid.Parse(operator); err != nil {
					return fmt.Errorf("invalid operator id %q: %w", operator, err)
				}
			}

			svc, err := auth.NewJWTService(cfg.Auth)
			if err != nil {
				return err
			}
			token, err := svc.GenerateToken(cmd.Context(), id)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			if err == nil {
				cmd.PrintErrf("operator %s, valid for %s\n", id, cfg.Auth.TokenLifetime())
			}
			return err
		},
	}

	cmd.Flags().StringVar(&operator, "operator", "", "operator UUID (a new one when omitted)")
	cmd.Flags().String("jwt-secret", "", "signing secret shared with the server")
	return cmd
}
