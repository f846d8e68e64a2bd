// Package mpd is the bridge's view of the music player daemon: a thin adapter
// over gompd that opens a fresh session for every operation.
package mpd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	gompd "github.com/fhs/gompd/v2/mpd"

	"github.com/pasta/tmpc/pkg/logger"
	"github.com/pasta/tmpc/pkg/models"
)

// DefaultSocket is where the daemon listens unless configured otherwise.
const DefaultSocket = "/home/pasta/.config/mpd/socket"

// Logger is the logging surface the adapter needs.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// TransportError wraps any failure talking to the daemon: connect, protocol
// or command errors all surface as this type.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mpd %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client talks to one daemon over a local stream socket.
type Client struct {
	network  string
	addr     string
	password string
	log      Logger
}

type Option func(*Client)

// WithTCP addresses the daemon over TCP instead of a unix socket.
func WithTCP(hostport string) Option {
	return func(c *Client) {
		c.network = "tcp"
		c.addr = hostport
	}
}

func WithPassword(pw string) Option {
	return func(c *Client) {
		c.password = pw
	}
}

func WithLogger(log Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New returns a client for the daemon listening on socket. No connection is
// made until an operation runs.
func New(socket string, opts ...Option) *Client {
	if socket == "" {
		socket = DefaultSocket
	}
	c := &Client{network: "unix", addr: socket}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Named("mpd")
	}
	return c
}

// Addr returns the socket path (or host:port) the client dials.
func (c *Client) Addr() string { return c.addr }

// Connect opens a session. Callers own the returned connection and must
// Close it; the operations below do this themselves.
func (c *Client) Connect() (*gompd.Client, error) {
	conn, err := gompd.DialAuthenticated(c.network, c.addr, c.password)
	if err != nil {
		return nil, &TransportError{Op: "connect", Err: err}
	}
	return conn, nil
}

// do runs fn on a fresh session and releases it afterwards.
func (c *Client) do(op string, fn func(*gompd.Client) error) error {
	start := time.Now()
	conn, err := c.Connect()
	if err != nil {
		c.log.Errorf("%s: %v", op, err)
		return err
	}
	defer conn.Close()

	if err := fn(conn); err != nil {
		terr := &TransportError{Op: op, Err: err}
		c.log.Errorf("%v", terr)
		return terr
	}
	c.log.Debugf("%s done in %s", op, time.Since(start).Round(time.Microsecond))
	return nil
}

// CurrentSong returns the playing (or paused) song, or nil when the daemon
// is stopped with nothing selected.
func (c *Client) CurrentSong() (*models.Song, error) {
	var song *models.Song
	err := c.do("currentsong", func(conn *gompd.Client) error {
		attrs, err := conn.CurrentSong()
		if err != nil {
			return err
		}
		if attrs["file"] == "" {
			return nil
		}
		s := SongFromAttrs(attrs)
		// Attrs keeps only the last value of a repeated key.
		albums, err := conn.Command("currentsong").Strings("Album")
		if err != nil {
			return err
		}
		if len(albums) > 0 {
			SetTagValues(&s, "Album", albums)
		}
		song = &s
		return nil
	})
	return song, err
}

// Queue returns the whole play queue in order.
func (c *Client) Queue() ([]models.Song, error) {
	var songs []models.Song
	err := c.do("playlistinfo", func(conn *gompd.Client) error {
		list, err := conn.PlaylistInfo(-1, -1)
		if err != nil {
			return err
		}
		songs = songsFromAttrs(list)
		return nil
	})
	return songs, err
}

// FindByFile looks a catalog entry up by its exact path.
func (c *Client) FindByFile(path string) (*models.Song, error) {
	var song *models.Song
	err := c.do("find", func(conn *gompd.Client) error {
		list, err := conn.Find("file", path)
		if err != nil {
			return err
		}
		if len(list) > 0 {
			s := SongFromAttrs(list[0])
			song = &s
		}
		return nil
	})
	return song, err
}

// SearchTitle runs a case-insensitive substring search on the title tag and
// returns the results in the window [lo, hi).
func (c *Client) SearchTitle(query string, lo, hi int) ([]models.Song, error) {
	if hi <= lo {
		return nil, nil
	}
	var songs []models.Song
	err := c.do("search", func(conn *gompd.Client) error {
		list, err := conn.Command("search %s %s window %d:%d", "title", query, lo, hi).AttrsList("file")
		if err != nil {
			return err
		}
		songs = songsFromAttrs(list)
		return nil
	})
	return songs, err
}

// InsertAt adds song to the queue at position pos.
func (c *Client) InsertAt(song models.Song, pos int) error {
	return c.do("addid", func(conn *gompd.Client) error {
		_, err := conn.AddID(song.File, pos)
		return err
	})
}

// Push appends song to the end of the queue.
func (c *Client) Push(song models.Song) error {
	return c.do("add", func(conn *gompd.Client) error {
		return conn.Add(song.File)
	})
}

func (c *Client) Clear() error {
	return c.do("clear", func(conn *gompd.Client) error { return conn.Clear() })
}

func (c *Client) Next() error {
	return c.do("next", func(conn *gompd.Client) error { return conn.Next() })
}

func (c *Client) Prev() error {
	return c.do("previous", func(conn *gompd.Client) error { return conn.Previous() })
}

// TogglePause pauses a playing daemon and resumes a paused or stopped one.
func (c *Client) TogglePause() error {
	return c.do("pause", func(conn *gompd.Client) error {
		status, err := conn.Status()
		if err != nil {
			return err
		}
		switch status["state"] {
		case "play":
			return conn.Pause(true)
		case "pause":
			return conn.Pause(false)
		default:
			return conn.Play(-1)
		}
	})
}

// Shuffle shuffles the entire queue.
func (c *Client) Shuffle() error {
	return c.do("shuffle", func(conn *gompd.Client) error { return conn.Shuffle(-1, -1) })
}

func (c *Client) Stats() (models.Stats, error) {
	var stats models.Stats
	err := c.do("stats", func(conn *gompd.Client) error {
		attrs, err := conn.Stats()
		if err != nil {
			return err
		}
		stats = StatsFromAttrs(attrs)
		return nil
	})
	return stats, err
}

// SongFromAttrs converts one daemon record into a Song. Tags keep every
// attribute except the positional ones, sorted by key.
func SongFromAttrs(attrs gompd.Attrs) models.Song {
	s := models.Song{
		File:   attrs["file"],
		Title:  attrs["Title"],
		Artist: attrs["Artist"],
	}
	if posStr, ok := attrs["Pos"]; ok {
		if pos, err := strconv.Atoi(posStr); err == nil {
			id, _ := strconv.Atoi(attrs["Id"])
			s.Place = &models.Position{Pos: pos, ID: id}
		}
	}
	for k, v := range attrs {
		switch k {
		case "file", "Pos", "Id":
			continue
		}
		s.Tags = append(s.Tags, models.Tag{Key: k, Value: v})
	}
	sort.Slice(s.Tags, func(i, j int) bool { return s.Tags[i].Key < s.Tags[j].Key })
	return s
}

// SetTagValues replaces every tag named key, in any casing, with one tag per
// value. Tags stay sorted by key.
func SetTagValues(s *models.Song, key string, values []string) {
	tags := s.Tags[:0:0]
	for _, t := range s.Tags {
		if !strings.EqualFold(t.Key, key) {
			tags = append(tags, t)
		}
	}
	for _, v := range values {
		tags = append(tags, models.Tag{Key: key, Value: v})
	}
	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Key < tags[j].Key })
	s.Tags = tags
}

func songsFromAttrs(list []gompd.Attrs) []models.Song {
	songs := make([]models.Song, 0, len(list))
	for _, attrs := range list {
		// directories and playlists also come back from some commands
		if attrs["file"] == "" {
			continue
		}
		songs = append(songs, SongFromAttrs(attrs))
	}
	return songs
}

// StatsFromAttrs reads the daemon's stats record. Missing or malformed
// counters read as zero.
func StatsFromAttrs(attrs gompd.Attrs) models.Stats {
	atoi := func(key string) int {
		n, _ := strconv.Atoi(strings.TrimSpace(attrs[key]))
		return n
	}
	return models.Stats{
		Artists:    atoi("artists"),
		Albums:     atoi("albums"),
		Songs:      atoi("songs"),
		DBPlaytime: time.Duration(atoi("db_playtime")) * time.Second,
	}
}
