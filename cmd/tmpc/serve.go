package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pasta/tmpc/internal/bot"
	"github.com/pasta/tmpc/internal/config"
	"github.com/pasta/tmpc/internal/helper"
	"github.com/pasta/tmpc/internal/selection"
	"github.com/pasta/tmpc/internal/upload"
	"github.com/pasta/tmpc/pkg/logger"
	"github.com/pasta/tmpc/pkg/utils"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot (default when no command is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), v)
		},
	}
}

func runBot(parent context.Context, v *viper.Viper) error {
	log := logger.GetLogger()
	printBanner()

	cfg, err := config.Load(v)
	if errors.Is(err, config.ErrMissingToken) {
		log.Fatalf("%v", err)
	}
	if err != nil {
		return err
	}

	tgOpts := []telego.BotOption{telego.WithLogger(logger.Named("telego"))}
	if cfg.APIServer != "" {
		tgOpts = append(tgOpts, telego.WithAPIServer(cfg.APIServer))
		log.Infof("Using bot API server %s", cfg.APIServer)
	}
	tg, err := telego.NewBot(cfg.Token, tgOpts...)
	if err != nil {
		return fmt.Errorf("creating bot client: %w", err)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	me, err := tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("fetching bot identity: %w", err)
	}
	log.Infof("Logged in as @%s", me.Username)

	player := newPlayer(cfg)
	rmpc := helper.New(helper.WithBinary(cfg.Helper))

	var urls bot.URLIngester = rmpc
	if cfg.YouTube == config.YouTubeYTDLP {
		if err := utils.MakeDir(cfg.YTDLPDir); err != nil {
			return fmt.Errorf("creating download dir: %w", err)
		}
		urls = helper.NewYTDLP(cfg.YTDLPDir, player)
		log.Infof("YouTube links are fetched with yt-dlp into %s", cfg.YTDLPDir)
	}

	sel, err := selection.Open(cfg.Selection, logger.Named("selection"))
	if err != nil {
		return fmt.Errorf("opening selection store: %w", err)
	}
	defer sel.Close()

	uploadOpts := []upload.Option{
		upload.WithDir(cfg.UploadDir),
		upload.WithMaxSize(cfg.UploadMaxSize),
	}
	if cfg.Progress {
		uploadOpts = append(uploadOpts, upload.WithProgress(os.Stderr))
	}
	uploads := upload.New(upload.NewTelegramDownloader(tg, nil), uploadOpts...)
	log.Infof("Uploads are cached in %s (limit %s)", uploads.Dir(), upload.Describe(uploads.MaxSize()))

	b, err := bot.New(
		bot.WithMessenger(bot.NewTelegram(tg)),
		bot.WithPlayer(player),
		bot.WithHelper(rmpc),
		bot.WithURLIngester(urls),
		bot.WithSelections(sel),
		bot.WithUploads(uploads),
		bot.WithEmoji(cfg.Emoji),
		bot.WithSearchWindow(cfg.SearchLo, cfg.SearchHi),
		bot.WithQueuePreview(cfg.QueuePreview),
		bot.WithUsername(me.Username),
		bot.WithLogger(logger.Named("bot")),
	)
	if err != nil {
		return err
	}

	log.Infof("Controlling MPD at %s", player.Addr())
	if err := b.Run(ctx, tg, cfg.PollTimeout); err != nil {
		return err
	}
	log.Infof("Bye")
	return nil
}
