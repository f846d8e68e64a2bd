// Package config loads tmpc settings from flags, TMPC_* environment
// variables, an optional .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pasta/tmpc/internal/bot"
	"github.com/pasta/tmpc/internal/helper"
	"github.com/pasta/tmpc/internal/mpd"
	"github.com/pasta/tmpc/internal/selection"
	"github.com/pasta/tmpc/internal/upload"
)

const EnvPrefix = "TMPC"

// DotEnvFile is read from the working directory when present.
const DotEnvFile = ".env"

// YouTube ingest backends.
const (
	YouTubeRmpc  = "rmpc"
	YouTubeYTDLP = "ytdlp"
)

var ErrMissingToken = errors.New("TMPC_TOKEN is not set")

// Config is everything the process needs at start-up.
type Config struct {
	Token       string
	APIServer   string
	PollTimeout int

	MPDSocket   string
	MPDAddr     string
	MPDPassword string

	Emoji        string
	Helper       string
	YouTube      string
	YTDLPDir     string
	SearchLo     int
	SearchHi     int
	QueuePreview int

	Selection selection.Config

	UploadDir     string
	UploadMaxSize int64
	Progress      bool

	LogLevel string
	LogColor bool
}

// SetDefaults registers every key with its default value. apiServer is the
// build's default bot API base URL; empty means the public one.
func SetDefaults(v *viper.Viper, apiServer string) {
	v.SetDefault("api-server", apiServer)
	v.SetDefault("poll-timeout", bot.DefaultPollTimeout)

	v.SetDefault("mpd.socket", mpd.DefaultSocket)
	v.SetDefault("mpd.addr", "")
	v.SetDefault("mpd.password", "")

	v.SetDefault("emoji", bot.DefaultEmoji)
	v.SetDefault("helper", helper.DefaultBinary)
	v.SetDefault("youtube.backend", YouTubeRmpc)
	v.SetDefault("youtube.dir", upload.DefaultDir())
	v.SetDefault("search.lo", bot.DefaultSearchLo)
	v.SetDefault("search.hi", bot.DefaultSearchHi)
	v.SetDefault("queue.preview", bot.DefaultQueuePreview)

	v.SetDefault("selection.backend", selection.BackendMemory)
	v.SetDefault("selection.dir", selection.DefaultDir)
	v.SetDefault("selection.db", selection.DefaultDBPath)
	v.SetDefault("selection.ttl", selection.DefaultTTL)

	v.SetDefault("upload.dir", upload.DefaultDir())
	v.SetDefault("upload.max-size", upload.DefaultMaxSize)
	v.SetDefault("upload.progress", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.color", true)
}

// BindFlags defines the command line flags on fs and binds them to their
// keys in v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String("config", "", "config file (yaml, toml or json)")
	fs.String("token", "", "bot token (env TMPC_TOKEN)")
	fs.String("api-server", "", "bot API base URL")
	fs.String("mpd-socket", "", "MPD unix socket path")
	fs.String("mpd-addr", "", "MPD host:port, overrides the socket")
	fs.String("emoji", "", "reaction used to acknowledge commands")
	fs.String("helper", "", "rmpc binary")
	fs.String("youtube", "", "YouTube backend: rmpc or ytdlp")
	fs.String("selection-backend", "", "search selection store: memory, dir or sqlite")
	fs.Duration("selection-ttl", 0, "how long unused search buttons stay valid")
	fs.String("upload-dir", "", "cache directory for uploaded audio")
	fs.Bool("progress", false, "draw a progress bar while downloading uploads")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.Bool("log-color", true, "colorize log output")

	binds := map[string]string{
		"config":            "config",
		"token":             "token",
		"api-server":        "api-server",
		"mpd.socket":        "mpd-socket",
		"mpd.addr":          "mpd-addr",
		"emoji":             "emoji",
		"helper":            "helper",
		"youtube.backend":   "youtube",
		"selection.backend": "selection-backend",
		"selection.ttl":     "selection-ttl",
		"upload.dir":        "upload-dir",
		"upload.progress":   "progress",
		"log.level":         "log-level",
		"log.color":         "log-color",
	}
	for key, flag := range binds {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// LoadDotEnv copies KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	for _, key := range env.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, env.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}

// Prepare wires environment lookup and reads the config file named by the
// "config" key, if any.
func Prepare(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	file := strings.TrimSpace(v.GetString("config"))
	if file == "" {
		return nil
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", file, err)
	}
	return nil
}

// Load reads the final values out of v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Token:       strings.TrimSpace(v.GetString("token")),
		APIServer:   strings.TrimSpace(v.GetString("api-server")),
		PollTimeout: v.GetInt("poll-timeout"),

		MPDSocket:   v.GetString("mpd.socket"),
		MPDAddr:     v.GetString("mpd.addr"),
		MPDPassword: v.GetString("mpd.password"),

		Emoji:        v.GetString("emoji"),
		Helper:       v.GetString("helper"),
		YouTube:      strings.ToLower(v.GetString("youtube.backend")),
		YTDLPDir:     v.GetString("youtube.dir"),
		SearchLo:     v.GetInt("search.lo"),
		SearchHi:     v.GetInt("search.hi"),
		QueuePreview: v.GetInt("queue.preview"),

		Selection: selection.Config{
			Backend: strings.ToLower(v.GetString("selection.backend")),
			Dir:     v.GetString("selection.dir"),
			DBPath:  v.GetString("selection.db"),
			TTL:     v.GetDuration("selection.ttl"),
		},

		UploadDir:     v.GetString("upload.dir"),
		UploadMaxSize: v.GetInt64("upload.max-size"),
		Progress:      v.GetBool("upload.progress"),

		LogLevel: v.GetString("log.level"),
		LogColor: v.GetBool("log.color"),
	}
	return cfg, cfg.Validate()
}

// Validate reports the first setting that cannot work. The token is checked
// last so that commands which never reach the bot API can ignore
// ErrMissingToken.
func (c Config) Validate() error {
	switch c.YouTube {
	case YouTubeRmpc, YouTubeYTDLP:
	default:
		return fmt.Errorf("unknown youtube backend %q", c.YouTube)
	}
	switch c.Selection.Backend {
	case selection.BackendMemory, selection.BackendDir, selection.BackendSQLite:
	default:
		return fmt.Errorf("unknown selection backend %q", c.Selection.Backend)
	}
	if c.SearchLo < 0 || c.SearchHi <= c.SearchLo {
		return fmt.Errorf("invalid search window [%d,%d)", c.SearchLo, c.SearchHi)
	}
	if c.UploadMaxSize <= 0 {
		return fmt.Errorf("upload max size must be positive, got %d", c.UploadMaxSize)
	}
	if c.Selection.TTL < 0 {
		return fmt.Errorf("selection ttl must not be negative")
	}
	if c.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// PollWait is the long-poll timeout as a duration, for log lines.
func (c Config) PollWait() time.Duration {
	return time.Duration(c.PollTimeout) * time.Second
}
