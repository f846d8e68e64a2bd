// Package selection remembers which catalog file each search button stands
// for. Every /search produces one generation of ids; resolving any id from a
// generation drops all of its siblings.
package selection

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pasta/tmpc/pkg/logger"
	"github.com/pasta/tmpc/pkg/utils"
)

// Callback tags appended to an id in button payloads.
const (
	TagInsert = 'i'
	TagNoop   = 'n'
)

// MaxPayload is the messenger's limit on callback data, in bytes.
const MaxPayload = 64

const (
	BackendMemory = "memory"
	BackendDir    = "dir"
	BackendSQLite = "sqlite"
)

const (
	DefaultDir    = "uuid"
	DefaultDBPath = "selections.sqlite3"
	DefaultTTL    = 24 * time.Hour
)

var ErrNotFound = errors.New("selection not found")

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Store maps opaque ids to file paths. Implementations are safe for
// concurrent use.
type Store interface {
	// Put records path under id as part of generation gen.
	Put(gen, id, path string) error
	// Get returns the path for id, or ErrNotFound.
	Get(id string) (string, error)
	// DropGeneration removes id and every sibling from its generation.
	DropGeneration(id string) error
	Close() error
}

// NewID returns a fresh time-ordered id in its 32 character hex form.
func NewID() (string, error) {
	return utils.NewOpaqueID()
}

// Token is the callback payload that inserts the song behind id.
func Token(id string) string {
	return id + string(TagInsert)
}

// SplitPayload separates a callback payload into id and tag. The tag is
// always the last byte; an empty payload yields an empty id and tag 0.
func SplitPayload(data string) (id string, tag byte) {
	if data == "" {
		return "", 0
	}
	n := len(data) - 1
	return data[:n], data[n]
}

// Save stores paths as a single new generation and returns their ids in
// the same order.
func Save(s Store, paths []string) ([]string, error) {
	gen, err := NewID()
	if err != nil {
		return nil, fmt.Errorf("new generation: %w", err)
	}
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		id, err := NewID()
		if err != nil {
			return nil, fmt.Errorf("new id: %w", err)
		}
		if err := s.Put(gen, id, p); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Config selects and tunes a backend.
type Config struct {
	Backend string
	Dir     string        // dir backend
	DBPath  string        // sqlite backend
	TTL     time.Duration // memory and sqlite backends; zero disables expiry
}

// Open builds the configured backend.
func Open(cfg Config, log Logger) (Store, error) {
	if log == nil {
		log = logger.Named("selection")
	}
	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		return NewMemory(cfg.TTL, log), nil
	case BackendDir:
		dir := cfg.Dir
		if dir == "" {
			dir = DefaultDir
		}
		return NewDir(dir, log)
	case BackendSQLite:
		path := cfg.DBPath
		if path == "" {
			path = DefaultDBPath
		}
		return NewSQLite(path, cfg.TTL, log)
	default:
		return nil, fmt.Errorf("unknown selection backend %q", cfg.Backend)
	}
}
