package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pasta/tmpc/internal/config"
	"github.com/pasta/tmpc/internal/mpd"
	"github.com/pasta/tmpc/pkg/logger"
)

func Execute() {
	root := newRootCmd(viper.New())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tmpc",
		Short:         "Control MPD from a Telegram chat",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), v)
		},
	}

	config.SetDefaults(v, defaultAPIServer)
	if err := config.BindFlags(v, cmd.PersistentFlags()); err != nil {
		panic(err)
	}

	cmd.AddCommand(newServeCmd(v))
	cmd.AddCommand(newCurrentCmd(v))
	cmd.AddCommand(newQueueCmd(v))
	cmd.AddCommand(newSearchCmd(v))
	cmd.AddCommand(newStatsCmd(v))
	cmd.AddCommand(newAddYTCmd(v))

	return cmd
}

func initConfig(v *viper.Viper) error {
	if err := config.LoadDotEnv(config.DotEnvFile); err != nil {
		return err
	}
	if err := config.Prepare(v); err != nil {
		return err
	}

	log := logger.GetLogger()
	if lvl, ok := logger.ParseLevel(v.GetString("log.level")); ok {
		log.SetLevel(lvl)
	}
	log.SetColorize(v.GetBool("log.color"))
	return nil
}

// loadLocal reads the config for commands that only talk to MPD, so no
// token is needed.
func loadLocal(v *viper.Viper) (config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil && !errors.Is(err, config.ErrMissingToken) {
		return cfg, err
	}
	return cfg, nil
}

func newPlayer(cfg config.Config) *mpd.Client {
	opts := []mpd.Option{mpd.WithLogger(logger.Named("mpd"))}
	if cfg.MPDAddr != "" {
		opts = append(opts, mpd.WithTCP(cfg.MPDAddr))
	}
	if cfg.MPDPassword != "" {
		opts = append(opts, mpd.WithPassword(cfg.MPDPassword))
	}
	return mpd.New(cfg.MPDSocket, opts...)
}

func printBanner() {
	banner := `
 _
| |_ _ __ ___  _ __   ___
| __| '_ ` + "`" + ` _ \| '_ \ / __|
| |_| | | | | | |_) | (__
 \__|_| |_| |_| .__/ \___|
              |_|
      Telegram -> MPD bridge
`
	fmt.Fprintln(os.Stderr, banner)
}
