// Package bot turns Telegram updates into player operations: it parses
// commands, runs the matching handler on its own goroutine and answers
// inline-keyboard presses from search results.
package bot

import (
	"context"
	"errors"
	"sync"

	"github.com/pasta/tmpc/internal/helper"
	"github.com/pasta/tmpc/internal/selection"
	"github.com/pasta/tmpc/internal/upload"
	"github.com/pasta/tmpc/pkg/logger"
	"github.com/pasta/tmpc/pkg/models"
)

const (
	DefaultEmoji        = "🍾"
	DefaultSearchLo     = 0
	DefaultSearchHi     = 95
	DefaultQueuePreview = 20
)

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Player is the daemon adapter as the handlers see it.
type Player interface {
	CurrentSong() (*models.Song, error)
	Queue() ([]models.Song, error)
	FindByFile(path string) (*models.Song, error)
	SearchTitle(query string, lo, hi int) ([]models.Song, error)
	InsertAt(song models.Song, pos int) error
	Push(song models.Song) error
	Clear() error
	Next() error
	Prev() error
	TogglePause() error
	Shuffle() error
	Stats() (models.Stats, error)
}

// Helper covers the operations delegated to the rmpc binary.
type Helper interface {
	TogglePause(ctx context.Context) error
	AddRandom(ctx context.Context, n string) error
	AddAll(ctx context.Context) error
}

// URLIngester fetches media behind a URL and queues it after the current song.
type URLIngester interface {
	IngestURL(ctx context.Context, url string) error
}

// Uploader turns an uploaded audio file into a local path.
type Uploader interface {
	Ingest(ctx context.Context, audio upload.Audio, notify func(context.Context) error) (upload.Result, error)
}

type Config struct {
	Messenger    Messenger
	Player       Player
	Helper       Helper
	URLs         URLIngester
	Selections   selection.Store
	Uploads      Uploader
	Logger       Logger
	Emoji        string
	SearchLo     int
	SearchHi     int
	QueuePreview int
	Username     string
}

type Option func(*Config)

func WithMessenger(m Messenger) Option {
	return func(c *Config) {
		c.Messenger = m
	}
}

func WithPlayer(p Player) Option {
	return func(c *Config) {
		c.Player = p
	}
}

func WithHelper(h Helper) Option {
	return func(c *Config) {
		c.Helper = h
	}
}

// WithURLIngester replaces the helper as the /addyt backend.
func WithURLIngester(u URLIngester) Option {
	return func(c *Config) {
		c.URLs = u
	}
}

func WithSelections(s selection.Store) Option {
	return func(c *Config) {
		c.Selections = s
	}
}

func WithUploads(u Uploader) Option {
	return func(c *Config) {
		c.Uploads = u
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithEmoji sets the reaction used to acknowledge commands.
func WithEmoji(emoji string) Option {
	return func(c *Config) {
		if emoji != "" {
			c.Emoji = emoji
		}
	}
}

// WithSearchWindow limits search results to [lo, hi).
func WithSearchWindow(lo, hi int) Option {
	return func(c *Config) {
		c.SearchLo = lo
		c.SearchHi = hi
	}
}

func WithQueuePreview(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.QueuePreview = n
		}
	}
}

// WithUsername makes the router ignore commands addressed to other bots.
func WithUsername(name string) Option {
	return func(c *Config) {
		c.Username = name
	}
}

func defaultConfig() *Config {
	return &Config{
		Emoji:        DefaultEmoji,
		SearchLo:     DefaultSearchLo,
		SearchHi:     DefaultSearchHi,
		QueuePreview: DefaultQueuePreview,
	}
}

// Bot holds everything a handler needs. It is safe for concurrent use.
type Bot struct {
	msg     Messenger
	player  Player
	helper  Helper
	urls    URLIngester
	sel     selection.Store
	uploads Uploader
	log     Logger

	emoji    string
	searchLo int
	searchHi int
	preview  int

	mu       sync.RWMutex
	username string

	commands  []Command
	dialogues *Dialogues
	inflight  sync.WaitGroup
}

func New(opts ...Option) (*Bot, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Messenger == nil {
		return nil, errors.New("bot: messenger is required")
	}
	if cfg.Player == nil {
		return nil, errors.New("bot: player is required")
	}
	if cfg.Uploads == nil {
		return nil, errors.New("bot: uploader is required")
	}
	if cfg.SearchHi <= cfg.SearchLo || cfg.SearchLo < 0 {
		return nil, errors.New("bot: invalid search window")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Named("bot")
	}
	if cfg.Helper == nil {
		cfg.Helper = helper.New()
	}
	if cfg.URLs == nil {
		u, ok := cfg.Helper.(URLIngester)
		if !ok {
			return nil, errors.New("bot: helper cannot ingest URLs and no URL ingester was given")
		}
		cfg.URLs = u
	}
	if cfg.Selections == nil {
		cfg.Selections = selection.NewMemory(selection.DefaultTTL, cfg.Logger)
	}

	b := &Bot{
		msg:       cfg.Messenger,
		player:    cfg.Player,
		helper:    cfg.Helper,
		urls:      cfg.URLs,
		sel:       cfg.Selections,
		uploads:   cfg.Uploads,
		log:       cfg.Logger,
		emoji:     cfg.Emoji,
		searchLo:  cfg.SearchLo,
		searchHi:  cfg.SearchHi,
		preview:   cfg.QueuePreview,
		username:  cfg.Username,
		dialogues: NewDialogues(),
	}
	b.commands = commandTable()
	return b, nil
}

// Username returns the bot's own @name, if known.
func (b *Bot) Username() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.username
}

func (b *Bot) SetUsername(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.username = name
}

// Dialogues exposes per-chat dialogue state.
func (b *Bot) Dialogues() *Dialogues { return b.dialogues }
