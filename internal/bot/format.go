package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/pasta/tmpc/pkg/models"
)

const (
	textNoSong      = "No song playing right now"
	textEmptyQueue  = "No song in queue"
	textNoResults   = "No results found!"
	textSearchUsage = "No search query\nUsage:\n    `/search enter sandman`"
	textSongAdded   = "✅ Song added!"

	textNoURL       = "No url provided\nReply to a message with a video url to add it to queue"
	textDownloading = "⏳ Downloading video... \nPlease wait, this might take a minute"
	textYTAdded     = "✅ Added youtube song to queue!"
	textYTFailed    = "❌ Failed to add song"

	textNoAudio        = "❌ No audio provided\nReply to a message with an audio file to add it to queue"
	textTooBig         = "❌ File too big, can't download files larger than 20MB"
	textInvalidAudio   = "❌ Invalid audio file found"
	textFetchingFile   = "⏳ Downloading the file, this might take some time"
	textNetworkFailure = "❌ Failed to download file due to a Network Error, try again"
	textIOFailure      = "❌ Failed to download file due to an I/O Error"
	textFileAdded      = "✅Song added to queue!"

	textAddFailed = "❌ Failed to add songs"
)

// FormatCurrent renders the now-playing card.
func FormatCurrent(s models.Song) string {
	return fmt.Sprintf("🎵%s\n👤%s\n💿%s", s.TitleOr(), s.ArtistOr(), s.Album())
}

// FormatQueue renders the queue from the current song onwards, listing at
// most limit entries while reporting the full remaining length.
func FormatQueue(remaining []models.Song, limit int) string {
	lines := make([]string, 0, min(len(remaining), limit))
	for i, s := range remaining {
		if i == limit {
			break
		}
		lines = append(lines, fmt.Sprintf("🎵 %s - %s", s.TitleOr(), s.ArtistOr()))
	}
	body := strings.Join(lines, "\n\n")
	if body == "" {
		body = textEmptyQueue
	}
	return fmt.Sprintf("🎛Queue length: %d\n\n%s", len(remaining), body)
}

// FormatStats renders the library statistics block.
func FormatStats(st models.Stats) string {
	return fmt.Sprintf("👤 Number of artists: %d\n💿Number of albums: %d\n🎵Number of songs: %d\n\ntotal duration: %s",
		st.Artists, st.Albums, st.Songs, HumanizeDuration(st.DBPlaytime))
}

// HumanizeDuration spells d out in calendar-ish units, dropping anything
// below a second: 3725s -> "1h 2m 5s".
func HumanizeDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d <= 0 {
		return "0s"
	}
	units := []struct {
		size time.Duration
		name string
	}{
		{365 * 24 * time.Hour, "y"},
		{30 * 24 * time.Hour, "month"},
		{24 * time.Hour, "d"},
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
	}
	var parts []string
	for _, u := range units {
		if d < u.size {
			continue
		}
		n := d / u.size
		d -= n * u.size
		parts = append(parts, fmt.Sprintf("%d%s", n, u.name))
	}
	return strings.Join(parts, " ")
}

// SearchHeader introduces the result keyboard.
func SearchHeader(n int) string {
	return fmt.Sprintf("%d resluts found. Tap on a button to add to queue:", n)
}

// ButtonLabel is the text of one search result button.
func ButtonLabel(s models.Song) string {
	return s.ArtistOr() + " - " + s.TitleOr()
}

// codeBlock wraps text in a MarkdownV2 pre block.
func codeBlock(text string) string {
	r := strings.NewReplacer("\\", "\\\\", "`", "\\`")
	return "```\n" + r.Replace(text) + "\n```"
}

func helperFailure(prefix string, err error) string {
	return prefix + ":\n" + codeBlock(err.Error())
}
