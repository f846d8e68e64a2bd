package helper

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"github.com/pasta/tmpc/pkg/logger"
	"github.com/pasta/tmpc/pkg/models"
	"github.com/pasta/tmpc/pkg/utils"
)

// Queue is the part of the daemon adapter the in-process ingester needs.
type Queue interface {
	CurrentSong() (*models.Song, error)
	InsertAt(song models.Song, pos int) error
	Push(song models.Song) error
}

// Fetcher downloads the best audio for url into dir and returns the path of
// the file it wrote.
type Fetcher func(ctx context.Context, url, dir string) (string, error)

// YTDLP ingests URLs without rmpc: yt-dlp fetches the audio into a local
// cache and the file is inserted after the current song directly.
type YTDLP struct {
	dir   string
	queue Queue
	fetch Fetcher
	log   Logger
}

type YTDLPOption func(*YTDLP)

func WithFetcher(f Fetcher) YTDLPOption {
	return func(y *YTDLP) {
		y.fetch = f
	}
}

func WithYTDLPLogger(log Logger) YTDLPOption {
	return func(y *YTDLP) {
		y.log = log
	}
}

func NewYTDLP(dir string, queue Queue, opts ...YTDLPOption) *YTDLP {
	y := &YTDLP{dir: dir, queue: queue, fetch: fetchBestAudio}
	for _, opt := range opts {
		opt(y)
	}
	if y.log == nil {
		y.log = logger.Named("ytdlp")
	}
	return y
}

// IngestURL mirrors Invoker.IngestURL: the song lands right after the
// current one, or at the queue tail when nothing is playing. A video already
// in the cache is queued without downloading it again.
func (y *YTDLP) IngestURL(ctx context.Context, url string) error {
	canonical := utils.CanonicalYouTubeURL(url)
	fail := func(err error) error {
		var herr *Error
		if errors.As(err, &herr) {
			return herr
		}
		return &Error{Args: []string{"yt-dlp", canonical}, ExitCode: -1, Err: err}
	}

	id, err := utils.VideoID(canonical)
	if err != nil {
		return fail(err)
	}
	if err := utils.MakeDir(y.dir); err != nil {
		return fail(err)
	}

	path, ok := y.cached(id)
	if ok {
		y.log.Infof("%s already fetched as %s", id, path)
	} else {
		path, err = y.fetch(ctx, canonical, y.dir)
		if err != nil {
			return fail(err)
		}
		y.log.Infof("fetched %s into %s", canonical, path)
	}

	song := models.Song{File: path}
	cur, err := y.queue.CurrentSong()
	if err != nil {
		return err
	}
	if cur != nil && cur.Place != nil {
		return y.queue.InsertAt(song, cur.Place.Pos+1)
	}
	return y.queue.Push(song)
}

// cached finds a finished download named after the video id. yt-dlp's
// in-progress files are skipped.
func (y *YTDLP) cached(id string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(y.dir, id+".*"))
	if err != nil {
		return "", false
	}
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		if utils.FileExists(m) {
			return m, true
		}
	}
	return "", false
}

func fetchBestAudio(ctx context.Context, url, dir string) (string, error) {
	res, err := ytdlp.New().
		Format("bestaudio/best").
		Output(filepath.Join(dir, "%(id)s.%(ext)s")).
		Print("after_move:filepath").
		NoSimulate().
		NoPlaylist().
		NoWarnings().
		IgnoreConfig().
		Run(ctx, url)
	if err != nil {
		herr := &Error{Args: []string{"yt-dlp", url}, ExitCode: -1, Err: err}
		if res != nil {
			herr.Output = res.Stderr
		}
		return "", herr
	}

	lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	path := strings.TrimSpace(lines[len(lines)-1])
	if path == "" {
		return "", fmt.Errorf("yt-dlp printed no file path for %s", url)
	}
	return path, nil
}
