package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pasta/tmpc/internal/helper"
	"github.com/pasta/tmpc/internal/selection"
	"github.com/pasta/tmpc/internal/upload"
	"github.com/pasta/tmpc/pkg/models"
	"github.com/pasta/tmpc/pkg/utils"
)

func (b *Bot) send(ctx context.Context, msg *Message, text string, opts ...SendOption) error {
	return b.msg.Send(ctx, msg.ChatID, text, opts...)
}

func (b *Bot) react(ctx context.Context, msg *Message) error {
	return b.msg.React(ctx, msg.ChatID, msg.ID, b.emoji)
}

// notSpawned reports whether err is a helper that never started.
func notSpawned(err error) bool {
	var herr *helper.Error
	return errors.As(err, &herr) && !herr.Spawned()
}

func handleHelp(ctx context.Context, b *Bot, req Request) error {
	return b.send(ctx, req.Message, b.HelpText())
}

func handlePlay(ctx context.Context, b *Bot, req Request) error {
	err := b.helper.TogglePause(ctx)
	if notSpawned(err) {
		b.log.Warnf("helper unavailable, toggling through the daemon: %v", err)
		err = b.player.TogglePause()
	}
	if err != nil {
		b.log.Errorf("toggle pause: %v", err)
		return nil
	}
	b.log.Infof("Toggled playback")
	return b.react(ctx, req.Message)
}

// simple runs a daemon operation and reacts on success. Daemon failures are
// logged only.
func simple(op string, fn func(Player) error) handlerFunc {
	return func(ctx context.Context, b *Bot, req Request) error {
		if err := fn(b.player); err != nil {
			b.log.Errorf("%s: %v", op, err)
			return nil
		}
		b.log.Infof("%s done", op)
		return b.react(ctx, req.Message)
	}
}

var (
	handleNext    = simple("next", Player.Next)
	handlePrev    = simple("prev", Player.Prev)
	handleShuffle = simple("shuffle", Player.Shuffle)
	handleClear   = simple("clear", Player.Clear)
)

func handleCurrent(ctx context.Context, b *Bot, req Request) error {
	song, err := b.player.CurrentSong()
	if err != nil {
		return err
	}
	if song == nil {
		return b.send(ctx, req.Message, textNoSong)
	}
	return b.send(ctx, req.Message, FormatCurrent(*song))
}

func handleQueue(ctx context.Context, b *Bot, req Request) error {
	cur, err := b.player.CurrentSong()
	if err != nil {
		return err
	}
	if cur == nil || cur.Place == nil {
		return nil
	}
	queue, err := b.player.Queue()
	if err != nil {
		b.log.Errorf("queue: %v", err)
		return nil
	}

	pos := cur.Place.Pos
	if pos > len(queue) {
		pos = len(queue)
	}
	return b.send(ctx, req.Message, FormatQueue(queue[pos:], b.preview))
}

func handleStats(ctx context.Context, b *Bot, req Request) error {
	st, err := b.player.Stats()
	if err != nil {
		return err
	}
	return b.send(ctx, req.Message, FormatStats(st))
}

func handleSearch(ctx context.Context, b *Bot, req Request) error {
	query := strings.TrimSpace(req.Arg)
	if query == "" {
		return b.send(ctx, req.Message, textSearchUsage, AsMarkdown())
	}

	songs, err := b.player.SearchTitle(query, b.searchLo, b.searchHi)
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		return b.send(ctx, req.Message, textNoResults)
	}

	paths := make([]string, len(songs))
	for i, s := range songs {
		paths[i] = s.File
	}
	ids, err := selection.Save(b.sel, paths)
	if err != nil {
		return fmt.Errorf("saving selections: %w", err)
	}

	rows := make([][]Button, 0, len(songs))
	for i, s := range songs {
		token := selection.Token(ids[i])
		if len(token) > selection.MaxPayload {
			b.log.Warnf("callback token for %s is %d bytes, skipping", s.File, len(token))
			continue
		}
		rows = append(rows, []Button{{Text: ButtonLabel(s), Data: token}})
	}
	b.log.Infof("search %q: %d results", query, len(rows))
	return b.send(ctx, req.Message, SearchHeader(len(rows)), WithKeyboard(rows))
}

func handleAddRand(ctx context.Context, b *Bot, req Request) error {
	n := helper.RandomCount(req.Arg)
	if err := b.helper.AddRandom(ctx, n); err != nil {
		if notSpawned(err) {
			return b.send(ctx, req.Message, helperFailure(textAddFailed, err), AsMarkdown())
		}
		return b.send(ctx, req.Message, textAddFailed)
	}
	return b.send(ctx, req.Message, fmt.Sprintf("Successfully added %s random songs to the queue", n))
}

func handleAddAll(ctx context.Context, b *Bot, req Request) error {
	st, err := b.player.Stats()
	if err != nil {
		return err
	}

	err = b.helper.AddAll(ctx)
	if notSpawned(err) {
		b.log.Warnf("helper unavailable, adding the library root through the daemon: %v", err)
		err = b.player.Push(models.Song{File: "/"})
	}
	if err != nil {
		b.log.Errorf("add all: %v", err)
		return b.send(ctx, req.Message, textAddFailed)
	}
	return b.send(ctx, req.Message, fmt.Sprintf("Successfully added %d songs to the queue", st.Songs))
}

func handleAddYT(ctx context.Context, b *Bot, req Request) error {
	msg := req.Message
	url := strings.TrimSpace(req.Arg)
	if url == "" && msg.ReplyTo != nil {
		url = strings.TrimSpace(msg.ReplyTo.Text)
	}
	if url == "" {
		return b.send(ctx, msg, textNoURL)
	}
	url = utils.CanonicalYouTubeURL(url)

	if err := b.react(ctx, msg); err != nil {
		return err
	}
	if err := b.send(ctx, msg, textDownloading, AsReplyTo(msg.ID)); err != nil {
		return err
	}

	b.log.Infof("ingesting %s", url)
	err := b.urls.IngestURL(ctx, url)
	var herr *helper.Error
	switch {
	case err == nil:
		return b.send(ctx, msg, textYTAdded)
	case errors.As(err, &herr) && herr.Spawned():
		return b.send(ctx, msg, textYTFailed, AsMarkdown())
	default:
		return b.send(ctx, msg, helperFailure(textYTFailed, err), AsMarkdown())
	}
}

func handleAddFile(ctx context.Context, b *Bot, req Request) error {
	msg := req.Message
	var audio *upload.Audio
	if msg.ReplyTo != nil {
		audio = msg.ReplyTo.Audio
	}
	if audio == nil {
		audio = msg.Audio
	}
	if audio == nil {
		return b.send(ctx, msg, textNoAudio)
	}

	notify := func(ctx context.Context) error {
		return b.send(ctx, msg, textFetchingFile)
	}
	res, err := b.uploads.Ingest(ctx, *audio, notify)
	var (
		netErr *upload.NetworkError
		ioErr  *upload.IOError
	)
	switch {
	case err == nil:
	case errors.Is(err, upload.ErrNoFilename):
		return b.send(ctx, msg, textInvalidAudio)
	case errors.Is(err, upload.ErrTooLarge):
		return b.send(ctx, msg, textTooBig)
	case errors.As(err, &netErr):
		b.log.Errorf("%v", err)
		return b.send(ctx, msg, textNetworkFailure, AsReplyTo(msg.ID))
	case errors.As(err, &ioErr):
		b.log.Errorf("%v", err)
		return b.send(ctx, msg, textIOFailure, AsReplyTo(msg.ID))
	default:
		return err
	}

	if err := b.player.Push(models.Song{File: res.Path}); err != nil {
		return err
	}
	how := "downloaded"
	if res.Cached {
		how = "cached"
	}
	b.log.Infof("queued %s upload %s: %s", how, res.Path, ButtonLabel(models.Song{Title: res.Title, Artist: res.Artist}))
	return b.send(ctx, msg, textFileAdded, AsReplyTo(msg.ID))
}
