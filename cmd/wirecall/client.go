package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirecall/internal/app"
	"github.com/vovakirdan/wirecall/internal/config"
	"github.com/vovakirdan/wirecall/internal/domain"
)

func newClientCmd(rt *runtime) *cobra.Command {
	var (
		overrides config.Config
		callee    string
		audioOnly bool
	)

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Run a headless call participant",
		Long: "Connects to the record service signaling, answers or places calls, and logs " +
			"state changes and notices. Media runs on an in-memory transport.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := rt.cfg
			cfg.UpdateFrom(overrides)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := app.NewClient(cfg, *rt.logger)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return client.Run(gctx) })
			if callee != "" {
				callType := domain.CallVideo
				if audioOnly {
					callType = domain.CallAudio
				}
				g.Go(func() error {
					res, err := client.Place(gctx, callee, callType)
					if err != nil {
						rt.logger.Error().Err(err).Str("callee", callee).Msg("place call")
						return nil
					}
					rt.logger.Info().Int64("room_id", res.RoomID).Str("callee", callee).Msg("call placed")
					return nil
				})
			}
			return g.Wait()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&overrides.Client.ServerURL, "server", "", "record service base URL")
	flags.StringVar(&overrides.Client.Account, "account", "", "account to act as")
	flags.StringVar(&overrides.Client.Token, "token", "", "bearer token (minted from jwt_secret when empty)")
	flags.BoolVar(&overrides.Client.AutoAccept, "auto-accept", false, "answer incoming calls automatically")
	flags.StringVar(&callee, "call", "", "account to call after connecting")
	flags.BoolVar(&audioOnly, "audio", false, "place a voice call instead of a video call")
	return cmd
}
