package utils

import (
	"errors"
	"net/url"
	"strings"
)

const (
	shortHost = "youtu.be/"
	watchHost = "youtube.com/watch?v="
)

// ErrNoVideoID is returned for links that do not name a single video.
var ErrNoVideoID = errors.New("no YouTube video id in URL")

// CanonicalYouTubeURL rewrites a youtu.be short link into a watch URL so the
// helper sees a single URL shape. The short link's own query string becomes
// extra watch parameters: https://youtu.be/ID?t=42 -> https://youtube.com/watch?v=ID&t=42.
// Anything that is not a short link is returned trimmed but otherwise unchanged.
func CanonicalYouTubeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if !strings.Contains(u, shortHost) {
		return u
	}
	u = strings.ReplaceAll(u, "?", "&")
	return strings.ReplaceAll(u, shortHost, watchHost)
}

// youtubeHost parses raw and reports the host with "www.", "m." and
// "music." dropped, or "" when raw is not a YouTube link.
func youtubeHost(raw string) (*url.URL, string) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, ""
	}
	host := strings.ToLower(u.Hostname())
	for _, sub := range []string{"www.", "m.", "music."} {
		host = strings.TrimPrefix(host, sub)
	}
	switch host {
	case "youtube.com", "youtu.be", "youtube-nocookie.com":
		return u, host
	}
	return nil, ""
}

// VideoID returns the video id a YouTube link refers to. Watch, short,
// shorts, embed, live and /v/ links are understood; anything else, including
// playlists and channel pages, yields ErrNoVideoID.
func VideoID(raw string) (string, error) {
	u, host := youtubeHost(raw)
	if host == "" {
		return "", ErrNoVideoID
	}

	var id string
	if host == "youtu.be" {
		id, _, _ = strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	} else if u.Path == "/watch" {
		id = u.Query().Get("v")
	} else {
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/", "/v/"} {
			if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
				id, _, _ = strings.Cut(rest, "/")
				break
			}
		}
	}
	if !validVideoID(id) {
		return "", ErrNoVideoID
	}
	return id, nil
}

// validVideoID accepts the URL-safe base64 alphabet ids are drawn from, so an
// id is always safe to use as a file name.
func validVideoID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
