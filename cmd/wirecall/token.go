package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirecall/internal/auth"
	"github.com/vovakirdan/wirecall/internal/domain"
)

func newTokenCmd(rt *runtime) *cobra.Command {
	var (
		account  string
		nickname string
		card     int
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with the configured secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := auth.NewService(&auth.JWTConfig{
				Secret:   []byte(rt.cfg.JWTSecret),
				Issuer:   rt.cfg.JWTIssuer,
				Audience: rt.cfg.JWTAudience,
				TTL:      rt.cfg.TokenTTL,
			})
			token, err := svc.IssueToken(account, nickname, domain.UserCard(card))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&account, "account", "", "account the token identifies")
	flags.StringVar(&nickname, "nickname", "", "display name")
	flags.IntVar(&card, "card", int(domain.CardPatient), "user card (1 patient, 5 doctor, ...)")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}
