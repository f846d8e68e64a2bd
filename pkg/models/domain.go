package models

import (
	"strings"
	"time"
)

// Unknown is shown in place of a missing title or artist.
const Unknown = "Unknown"

// Tag is one raw key/value pair reported by the daemon for a song. Keys keep
// the daemon's casing ("Album", "AlbumArtist", ...).
type Tag struct {
	Key   string
	Value string
}

// Position is where a song sits in the daemon's queue.
type Position struct {
	Pos int // zero based index in the queue
	ID  int // daemon-assigned song id
}

// Song is a catalog entry. Identity is File; every other field is optional.
type Song struct {
	File   string
	Title  string
	Artist string
	Tags   []Tag
	Place  *Position // nil when the song is not in the queue
}

// TitleOr returns the title, or Unknown when the daemon has none.
func (s Song) TitleOr() string {
	if s.Title == "" {
		return Unknown
	}
	return s.Title
}

// ArtistOr returns the artist, or Unknown when the daemon has none.
func (s Song) ArtistOr() string {
	if s.Artist == "" {
		return Unknown
	}
	return s.Artist
}

// Album concatenates every tag value whose key is "album" in any casing.
func (s Song) Album() string {
	var b strings.Builder
	for _, t := range s.Tags {
		if strings.ToLower(t.Key) == "album" {
			b.WriteString(t.Value)
		}
	}
	return b.String()
}

// Stats is the subset of daemon statistics shown to users.
type Stats struct {
	Artists    int
	Albums     int
	Songs      int
	DBPlaytime time.Duration
}
