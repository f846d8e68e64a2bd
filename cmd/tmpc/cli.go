package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pasta/tmpc/internal/bot"
	"github.com/pasta/tmpc/internal/config"
	"github.com/pasta/tmpc/internal/helper"
	"github.com/pasta/tmpc/pkg/utils"
)

func newCurrentCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "current",
		Aliases: []string{"np"},
		Short:   "Print the song that is playing",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadLocal(v)
			if err != nil {
				return err
			}
			song, err := newPlayer(cfg).CurrentSong()
			if err != nil {
				return err
			}
			if song == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "⏹  Nothing is playing")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), bot.FormatCurrent(*song))
			return nil
		},
	}
}

func newQueueCmd(v *viper.Viper) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "queue",
		Aliases: []string{"q"},
		Short:   "Print the songs after the current one",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadLocal(v)
			if err != nil {
				return err
			}
			player := newPlayer(cfg)
			cur, err := player.CurrentSong()
			if err != nil {
				return err
			}
			if cur == nil || cur.Place == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "⏹  Nothing is playing")
				return nil
			}
			queue, err := player.Queue()
			if err != nil {
				return err
			}
			start := min(cur.Place.Pos, len(queue))
			if limit <= 0 {
				limit = cfg.QueuePreview
			}
			fmt.Fprintln(cmd.OutOrStdout(), bot.FormatQueue(queue[start:], limit))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of songs to show (default: queue.preview)")
	return cmd
}

func newSearchCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "search <query>",
		Aliases: []string{"s"},
		Short:   "Search the library by title",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadLocal(v)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			songs, err := newPlayer(cfg).SearchTitle(query, cfg.SearchLo, cfg.SearchHi)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "🔍 %s result(s) for %q\n", humanize.Comma(int64(len(songs))), query)
			for i, s := range songs {
				fmt.Fprintf(out, "%3d. %s\n    %s\n", i+1, bot.ButtonLabel(s), s.File)
			}
			return nil
		},
	}
}

func newStatsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print library statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadLocal(v)
			if err != nil {
				return err
			}
			st, err := newPlayer(cfg).Stats()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), bot.FormatStats(st))
			return nil
		},
	}
}

func newAddYTCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "addyt <url>",
		Aliases: []string{"yt"},
		Short:   "Queue a YouTube video after the current song",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadLocal(v)
			if err != nil {
				return err
			}
			url := args[0]
			if _, err := utils.VideoID(url); err != nil {
				return fmt.Errorf("%s: %w", url, err)
			}

			var ing bot.URLIngester = helper.New(helper.WithBinary(cfg.Helper))
			if cfg.YouTube == config.YouTubeYTDLP {
				if err := utils.MakeDir(cfg.YTDLPDir); err != nil {
					return err
				}
				ing = helper.NewYTDLP(cfg.YTDLPDir, newPlayer(cfg))
			}

			fmt.Fprintln(cmd.OutOrStdout(), "⏳ Downloading "+utils.CanonicalYouTubeURL(url))
			if err := ing.IngestURL(cmd.Context(), url); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✅ Added to queue")
			return nil
		},
	}
}
