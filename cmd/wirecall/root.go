package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirecall/internal/config"
	"github.com/vovakirdan/wirecall/internal/log"
)

// runtime is the state shared by subcommands after the root pre-run.
type runtime struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger *zerolog.Logger
}

func newRootCmd() *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:           "wirecall",
		Short:         "Call record service and headless call client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.load()
		},
	}
	root.PersistentFlags().StringVar(&rt.configPath, "config", "", "config file (default ./config.yaml)")
	root.PersistentFlags().StringVar(&rt.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newServeCmd(rt), newClientCmd(rt), newTokenCmd(rt))
	return root
}

func (rt *runtime) load() error {
	bootstrap := log.New("info")
	cfg, path, err := config.Load(bootstrap, rt.configPath)
	if err != nil {
		return err
	}
	cfg.UpdateFrom(config.Config{LogLevel: rt.logLevel})

	rt.cfg = cfg
	rt.logger = log.New(cfg.LogLevel)

	// The command line level wins over later file edits.
	if rt.logLevel == "" {
		if err := config.Watch(rt.logger, path, func(next config.Config) {
			log.SetLevel(next.LogLevel)
		}); err != nil {
			rt.logger.Warn().Err(err).Str("path", path).Msg("config watch disabled")
		}
	}
	return nil
}
