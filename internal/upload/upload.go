// Package upload turns audio files sent to the bot into local files the
// daemon can queue. Downloads are cached by file name in a temp directory.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/pasta/tmpc/pkg/logger"
	"github.com/pasta/tmpc/pkg/utils"
)

// DefaultMaxSize is the largest file the bot API lets bots download.
const DefaultMaxSize int64 = 20 << 20

var (
	ErrNoFilename = errors.New("audio has no file name")
	ErrTooLarge   = errors.New("audio exceeds the download size limit")
)

// NetworkError means the bytes could not be fetched from the messenger.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "download: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// IOError means the bytes arrived but could not be written locally.
type IOError struct {
	Err error
}

func (e *IOError) Error() string { return "write: " + e.Err.Error() }
func (e *IOError) Unwrap() error { return e.Err }

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Audio describes a file as the messenger reports it.
type Audio struct {
	FileID   string
	FileName string
	Size     int64
}

// Downloader opens a stream over the remote file. Errors it returns are
// treated as network errors.
type Downloader interface {
	Open(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Result is a file ready to be queued.
type Result struct {
	Path   string
	Cached bool
	Title  string
	Artist string
}

// Ingester downloads uploads into a cache directory.
type Ingester struct {
	dir      string
	maxSize  int64
	dl       Downloader
	progress io.Writer
	log      Logger
}

type Option func(*Ingester)

// WithDir overrides the cache directory, <temp>/tmpc by default.
func WithDir(dir string) Option {
	return func(in *Ingester) {
		if dir != "" {
			in.dir = dir
		}
	}
}

func WithMaxSize(n int64) Option {
	return func(in *Ingester) {
		if n > 0 {
			in.maxSize = n
		}
	}
}

// WithProgress draws a byte progress bar on w while downloading.
func WithProgress(w io.Writer) Option {
	return func(in *Ingester) {
		in.progress = w
	}
}

func WithLogger(log Logger) Option {
	return func(in *Ingester) {
		in.log = log
	}
}

// DefaultDir is the cache directory used unless WithDir is given.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), "tmpc")
}

func New(dl Downloader, opts ...Option) *Ingester {
	in := &Ingester{
		dir:     DefaultDir(),
		maxSize: DefaultMaxSize,
		dl:      dl,
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.log == nil {
		in.log = logger.Named("upload")
	}
	return in
}

func (in *Ingester) Dir() string { return in.dir }

func (in *Ingester) MaxSize() int64 { return in.maxSize }

// Ingest returns the local path for audio, downloading it unless a file of
// the same name is already cached. notify runs just before a download starts.
func (in *Ingester) Ingest(ctx context.Context, audio Audio, notify func(context.Context) error) (Result, error) {
	if err := utils.MakeDir(in.dir); err != nil {
		return Result{}, &IOError{Err: err}
	}

	name := cleanName(audio.FileName)
	if name == "" {
		return Result{}, ErrNoFilename
	}
	if audio.Size > in.maxSize {
		in.log.Infof("rejecting %s: %s over the %s limit", name,
			humanize.IBytes(uint64(audio.Size)), humanize.IBytes(uint64(in.maxSize)))
		return Result{}, ErrTooLarge
	}

	path := filepath.Join(in.dir, name)
	if utils.FileExists(path) {
		in.log.Debugf("cache hit for %s", name)
		res := Result{Path: path, Cached: true}
		in.readTags(&res)
		return res, nil
	}

	if notify != nil {
		if err := notify(ctx); err != nil {
			return Result{}, err
		}
	}

	in.log.Infof("downloading %s (%s)", name, humanize.IBytes(uint64(audio.Size)))
	if err := in.download(ctx, audio, path); err != nil {
		return Result{}, err
	}

	res := Result{Path: path}
	in.readTags(&res)
	in.log.Infof("stored %s: %q by %q", path, res.Title, res.Artist)
	return res, nil
}

// cleanName keeps only the base name so an upload cannot escape the cache.
func cleanName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	switch name {
	case ".", "..", string(filepath.Separator):
		return ""
	}
	return name
}

// download writes into a part file and renames it into place, so a failed
// or concurrent download never leaves a truncated entry at path.
func (in *Ingester) download(ctx context.Context, audio Audio, path string) error {
	body, err := in.dl.Open(ctx, audio.FileID)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer body.Close()

	part, err := os.CreateTemp(in.dir, filepath.Base(path)+".*.part")
	if err != nil {
		return &IOError{Err: err}
	}
	partPath := part.Name()
	ok := false
	defer func() {
		if !ok {
			part.Close()
			utils.DeleteFile(partPath)
		}
	}()

	var dst io.Writer = part
	if in.progress != nil {
		max := audio.Size
		if max <= 0 {
			max = -1
		}
		bar := progressbar.NewOptions64(max,
			progressbar.OptionSetWriter(in.progress),
			progressbar.OptionSetDescription(filepath.Base(path)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Close()
		dst = io.MultiWriter(part, bar)
	}

	w := &trackedWriter{w: dst}
	n, err := io.Copy(w, io.LimitReader(body, in.maxSize+1))
	if err != nil {
		if w.err != nil {
			return &IOError{Err: w.err}
		}
		return &NetworkError{Err: err}
	}
	if n > in.maxSize {
		return ErrTooLarge
	}
	if err := part.Close(); err != nil {
		return &IOError{Err: err}
	}
	if err := utils.MoveFile(partPath, path); err != nil {
		return &IOError{Err: err}
	}
	ok = true
	return nil
}

// trackedWriter remembers write-side failures so io.Copy errors can be
// attributed to the right end.
type trackedWriter struct {
	w   io.Writer
	err error
}

func (t *trackedWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}

func (in *Ingester) readTags(res *Result) {
	f, err := os.Open(res.Path)
	if err != nil {
		return
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		in.log.Debugf("no tags in %s: %v", res.Path, err)
		return
	}
	res.Title = m.Title()
	res.Artist = m.Artist()
}

// Describe formats a size for user-facing messages.
func Describe(size int64) string {
	if size <= 0 {
		return "unknown size"
	}
	return humanize.IBytes(uint64(size))
}

// String implements fmt.Stringer for log lines.
func (a Audio) String() string {
	return fmt.Sprintf("%s (%s)", a.FileName, Describe(a.Size))
}
