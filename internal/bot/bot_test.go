package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pasta/tmpc/internal/helper"
	"github.com/pasta/tmpc/internal/selection"
	"github.com/pasta/tmpc/internal/upload"
	"github.com/pasta/tmpc/pkg/logger"
	"github.com/pasta/tmpc/pkg/models"
)

func TestSearchThenInsert(t *testing.T) {
	f := newFixture(t)
	f.player.results = []models.Song{
		{File: "/x.flac", Title: "A", Artist: "Metallica"},
		{File: "/y.flac", Title: "B"},
	}
	f.player.catalog["/x.flac"] = models.Song{File: "/x.flac", Title: "A"}
	f.player.current = &models.Song{File: "/now.flac", Place: &models.Position{Pos: 7, ID: 70}}

	f.command(t, "/search sandman")

	reply := f.msgr.last(t)
	if !strings.HasPrefix(reply.Text, "2 resluts found") {
		t.Errorf("unexpected reply %q", reply.Text)
	}
	if f.player.searchLo != 0 || f.player.searchHi != 95 {
		t.Errorf("search window [%d,%d)", f.player.searchLo, f.player.searchHi)
	}
	rows := reply.Out.Keyboard
	if len(rows) != 2 || len(rows[0]) != 1 || len(rows[1]) != 1 {
		t.Fatalf("expected two one-button rows, got %+v", rows)
	}
	if rows[0][0].Text != "Metallica - A" || rows[1][0].Text != "Unknown - B" {
		t.Errorf("labels %q, %q", rows[0][0].Text, rows[1][0].Text)
	}

	var ids []string
	for i, row := range rows {
		id, tag := selection.SplitPayload(row[0].Data)
		if tag != 'i' {
			t.Errorf("button %d payload %q does not end in i", i, row[0].Data)
		}
		want := []string{"/x.flac", "/y.flac"}[i]
		if got, err := f.sel.Get(id); err != nil || got != want {
			t.Errorf("selection %s = %q, %v; want %q", id, got, err, want)
		}
		ids = append(ids, id)
	}
	if f.sel.Len() != 2 {
		t.Errorf("store holds %d entries, want 2", f.sel.Len())
	}

	cb := &Callback{ID: "cb1", Data: rows[0][0].Data, ChatID: 42, MessageID: 555}
	if err := f.bot.HandleCallback(context.Background(), cb); err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if len(f.player.inserts) != 1 || f.player.inserts[0] != (insert{"/x.flac", 8}) {
		t.Errorf("inserts = %+v", f.player.inserts)
	}
	if len(f.msgr.edits) != 1 || f.msgr.edits[0] != (edit{42, 555, "✅ Song added!"}) {
		t.Errorf("edits = %+v", f.msgr.edits)
	}
	if len(f.msgr.answered) != 1 || f.msgr.answered[0] != "cb1" {
		t.Errorf("answered = %v", f.msgr.answered)
	}
	for _, id := range ids {
		if _, err := f.sel.Get(id); !errors.Is(err, selection.ErrNotFound) {
			t.Errorf("sibling %s still resolves", id)
		}
	}

	// pressing a sibling afterwards is a stale button
	stale := &Callback{ID: "cb2", Data: rows[1][0].Data, ChatID: 42, MessageID: 555}
	if err := f.bot.HandleCallback(context.Background(), stale); err != nil {
		t.Fatalf("stale HandleCallback: %v", err)
	}
	if len(f.player.inserts) != 1 || len(f.msgr.edits) != 1 {
		t.Error("stale press changed the queue or the message")
	}
}

func TestSearchUsageAndEmpty(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/search")
	reply := f.msgr.last(t)
	if reply.Text != "No search query\nUsage:\n    `/search enter sandman`" || !reply.Out.Markdown {
		t.Errorf("unexpected usage reply %+v", reply)
	}

	f.command(t, "/s nothing matches")
	if got := f.msgr.last(t).Text; got != "No results found!" {
		t.Errorf("got %q", got)
	}
}

func TestCallbackShortCircuits(t *testing.T) {
	f := newFixture(t)
	ids, err := selection.Save(f.sel, []string{"/gone.flac"})
	if err != nil {
		t.Fatal(err)
	}

	// not in the catalog any more
	if err := f.bot.HandleCallback(context.Background(), &Callback{ID: "a", Data: selection.Token(ids[0])}); err != nil {
		t.Fatal(err)
	}
	// in the catalog, but nothing is playing
	f.player.catalog["/gone.flac"] = models.Song{File: "/gone.flac"}
	if err := f.bot.HandleCallback(context.Background(), &Callback{ID: "b", Data: selection.Token(ids[0])}); err != nil {
		t.Fatal(err)
	}
	if len(f.player.inserts) != 0 || len(f.msgr.edits) != 0 || len(f.msgr.sent) != 0 {
		t.Error("short-circuited press had visible effects")
	}
	if _, err := f.sel.Get(ids[0]); err != nil {
		t.Error("selection dropped without an insert")
	}

	for _, data := range []string{"n", ids[0] + "n", ids[0] + "z", ""} {
		if err := f.bot.HandleCallback(context.Background(), &Callback{ID: "c", Data: data}); err != nil {
			t.Errorf("payload %q: %v", data, err)
		}
	}
	if len(f.msgr.answered) != 6 {
		t.Errorf("answered %d callbacks, want 6", len(f.msgr.answered))
	}
}

func TestAddYTFromReply(t *testing.T) {
	f := newFixture(t)
	msg := &Message{ChatID: 42, ID: 100, Text: "/addyt", ReplyTo: &Message{Text: "https://youtu.be/abc?t=10"}}
	if err := f.bot.HandleMessage(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	want := "addyt -p +0 https://youtube.com/watch?v=abc&t=10"
	if len(f.helper.calls) != 1 || f.helper.calls[0] != want {
		t.Errorf("helper calls %v, want %q", f.helper.calls, want)
	}
	if len(f.msgr.reactions) != 1 || f.msgr.reactions[0] != DefaultEmoji {
		t.Errorf("reactions %v", f.msgr.reactions)
	}
	texts := f.msgr.texts()
	if len(texts) != 2 || texts[0] != textDownloading || texts[1] != "✅ Added youtube song to queue!" {
		t.Errorf("sent %q", texts)
	}
	if f.msgr.sent[0].Out.ReplyTo != 100 {
		t.Error("downloading notice is not a reply to the command")
	}
}

func TestAddYTArgumentWinsAndUsage(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/yt https://youtube.com/watch?v=zzz")
	if len(f.helper.calls) != 1 || f.helper.calls[0] != "addyt -p +0 https://youtube.com/watch?v=zzz" {
		t.Errorf("helper calls %v", f.helper.calls)
	}

	g := newFixture(t)
	g.command(t, "/addyt")
	if got := g.msgr.last(t).Text; got != textNoURL {
		t.Errorf("got %q", got)
	}
	if len(g.helper.calls) != 0 || len(g.msgr.reactions) != 0 {
		t.Error("usage path invoked the helper or reacted")
	}
}

func TestAddYTFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"exit status", &helper.Error{Args: []string{"rmpc"}, ExitCode: 1}, "❌ Failed to add song"},
		{"spawn", &helper.Error{Args: []string{"rmpc"}, ExitCode: -1, Err: errors.New("no `rmpc`")},
			"❌ Failed to add song:\n```\nrmpc: no \\`rmpc\\`\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.helper.err = tt.err
			f.command(t, "/addyt https://youtube.com/watch?v=x")
			reply := f.msgr.last(t)
			if reply.Text != tt.want || !reply.Out.Markdown {
				t.Errorf("reply %+v, want %q", reply, tt.want)
			}
		})
	}
}

func TestAddFileTooBig(t *testing.T) {
	f := newFixture(t)
	f.uploads.err = upload.ErrTooLarge
	msg := &Message{ChatID: 42, ID: 100, Text: "/addfile", ReplyTo: &Message{
		Audio: &upload.Audio{FileID: "f", FileName: "big.flac", Size: 25 << 20},
	}}
	if err := f.bot.HandleMessage(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if got := f.msgr.last(t).Text; got != "❌ File too big, can't download files larger than 20MB" {
		t.Errorf("got %q", got)
	}
	if len(f.player.pushes) != 0 {
		t.Error("oversized upload was queued")
	}
}

func TestAddFileSuccessAndErrors(t *testing.T) {
	audio := &upload.Audio{FileID: "f", FileName: "song.mp3", Size: 1024}
	tests := []struct {
		name   string
		err    error
		want   string
		reply  bool
		pushed bool
	}{
		{"ok", nil, textFileAdded, true, true},
		{"no name", upload.ErrNoFilename, textInvalidAudio, false, false},
		{"network", &upload.NetworkError{Err: errors.New("reset")}, textNetworkFailure, true, false},
		{"io", &upload.IOError{Err: errors.New("disk full")}, textIOFailure, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.uploads.err = tt.err
			f.uploads.notify = true
			f.uploads.res = upload.Result{Path: "/tmp/tmpc/song.mp3"}

			msg := &Message{ChatID: 42, ID: 100, Text: "/file", ReplyTo: &Message{Audio: audio}}
			if err := f.bot.HandleMessage(context.Background(), msg); err != nil {
				t.Fatal(err)
			}
			texts := f.msgr.texts()
			if texts[0] != textFetchingFile {
				t.Errorf("first message %q", texts[0])
			}
			last := f.msgr.last(t)
			if last.Text != tt.want {
				t.Errorf("reply %q, want %q", last.Text, tt.want)
			}
			if (last.Out.ReplyTo == 100) != tt.reply {
				t.Errorf("reply threading = %d", last.Out.ReplyTo)
			}
			if pushed := len(f.player.pushes) == 1; pushed != tt.pushed {
				t.Errorf("pushes = %v", f.player.pushes)
			}
			if tt.pushed && f.player.pushes[0] != "/tmp/tmpc/song.mp3" {
				t.Errorf("pushed %q", f.player.pushes[0])
			}
		})
	}
}

func TestAddFileLogsUploadTags(t *testing.T) {
	tests := []struct {
		name string
		res  upload.Result
		want string
	}{
		{"downloaded", upload.Result{Path: "/c/a.mp3", Title: "One", Artist: "Metallica"}, "queued downloaded upload /c/a.mp3: Metallica - One"},
		{"cached", upload.Result{Path: "/c/b.mp3", Cached: true}, "queued cached upload /c/b.mp3: Unknown - Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			var buf bytes.Buffer
			f.bot.log = logger.New(logger.Config{Level: logger.INFO, Output: &buf})
			f.uploads.res = tt.res

			msg := &Message{ChatID: 42, ID: 100, Text: "/addfile", Audio: &upload.Audio{FileID: "f", FileName: "a.mp3"}}
			if err := f.bot.HandleMessage(context.Background(), msg); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("log %q does not mention %q", buf.String(), tt.want)
			}
			if last := f.msgr.last(t); last.Text != textFileAdded {
				t.Errorf("reply %q", last.Text)
			}
		})
	}
}

func TestAddFileNeedsAudio(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/addfile")
	if got := f.msgr.last(t).Text; got != textNoAudio {
		t.Errorf("got %q", got)
	}
	if f.uploads.called {
		t.Error("uploader called without audio")
	}
}

func TestQueue(t *testing.T) {
	f := newFixture(t)
	f.player.current = &models.Song{File: "x", Place: &models.Position{Pos: 2}}
	f.player.queue = []models.Song{
		{File: "a", Title: "Old1"}, {File: "b", Title: "Old2"},
		{File: "x", Title: "X", Artist: "Ax"},
		{File: "y", Title: "Y", Artist: "Ay"},
		{File: "z", Title: "Z"},
	}
	f.command(t, "/queue")

	want := "🎛Queue length: 3\n\n🎵 X - Ax\n\n🎵 Y - Ay\n\n🎵 Z - Unknown"
	if got := f.msgr.last(t).Text; got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestQueueTruncatesPreview(t *testing.T) {
	f := newFixture(t)
	f.player.current = &models.Song{File: "s0", Place: &models.Position{Pos: 0}}
	for i := 0; i < 30; i++ {
		f.player.queue = append(f.player.queue, models.Song{File: fmt.Sprintf("s%d", i), Title: fmt.Sprintf("T%d", i)})
	}
	f.command(t, "/q")

	got := f.msgr.last(t).Text
	if !strings.HasPrefix(got, "🎛Queue length: 30\n\n") {
		t.Errorf("header wrong: %q", got[:40])
	}
	if n := strings.Count(got, "🎵 "); n != 20 {
		t.Errorf("listed %d songs, want 20", n)
	}
}

func TestQueueWithoutCurrentIsSilent(t *testing.T) {
	f := newFixture(t)
	f.player.queue = []models.Song{{File: "a"}}
	f.command(t, "/queue")
	if len(f.msgr.sent) != 0 {
		t.Errorf("sent %q", f.msgr.texts())
	}
}

func TestAddRandDefaultsToOne(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/addrand")
	if len(f.helper.calls) != 1 || f.helper.calls[0] != "addrandom song 1" {
		t.Errorf("helper calls %v", f.helper.calls)
	}
	if got := f.msgr.last(t).Text; got != "Successfully added 1 random songs to the queue" {
		t.Errorf("got %q", got)
	}

	f.command(t, "/rand 7")
	if got := f.msgr.last(t).Text; got != "Successfully added 7 random songs to the queue" {
		t.Errorf("got %q", got)
	}
}

func TestAddAll(t *testing.T) {
	f := newFixture(t)
	f.player.stats = models.Stats{Songs: 1234}
	f.command(t, "/all")
	if len(f.helper.calls) != 1 || f.helper.calls[0] != "add /" {
		t.Errorf("helper calls %v", f.helper.calls)
	}
	if got := f.msgr.last(t).Text; got != "Successfully added 1234 songs to the queue" {
		t.Errorf("got %q", got)
	}
}

func TestAddAllFallsBackToDaemon(t *testing.T) {
	f := newFixture(t)
	f.player.stats = models.Stats{Songs: 3}
	f.helper.err = &helper.Error{ExitCode: -1, Err: errors.New("not found")}
	f.command(t, "/addall")
	if len(f.player.pushes) != 1 || f.player.pushes[0] != "/" {
		t.Errorf("pushes %v", f.player.pushes)
	}
	if got := f.msgr.last(t).Text; got != "Successfully added 3 songs to the queue" {
		t.Errorf("got %q", got)
	}
}

func TestReactionCommands(t *testing.T) {
	for _, verb := range []string{"next", "n", "prev", "shuffle", "clear", "play", "p"} {
		f := newFixture(t)
		f.command(t, "/"+verb)
		if len(f.msgr.reactions) != 1 || f.msgr.reactions[0] != DefaultEmoji {
			t.Errorf("/%s: reactions %v", verb, f.msgr.reactions)
		}
		if len(f.msgr.sent) != 0 {
			t.Errorf("/%s sent text %q", verb, f.msgr.texts())
		}
	}
}

func TestDaemonFailureIsQuiet(t *testing.T) {
	f := newFixture(t)
	f.player.err = errors.New("mpd connect: no such file")
	f.command(t, "/next")
	if len(f.msgr.reactions) != 0 || len(f.msgr.sent) != 0 {
		t.Error("failed daemon command produced output")
	}
}

func TestPlayFallsBackToDaemon(t *testing.T) {
	f := newFixture(t)
	f.helper.err = &helper.Error{ExitCode: -1, Err: errors.New("not found")}
	f.command(t, "/play")
	if len(f.player.calls) != 1 || f.player.calls[0] != "togglepause" {
		t.Errorf("player calls %v", f.player.calls)
	}
	if len(f.msgr.reactions) != 1 {
		t.Error("no reaction after fallback")
	}
}

func TestCurrentAndStats(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/np")
	if got := f.msgr.last(t).Text; got != "No song playing right now" {
		t.Errorf("got %q", got)
	}

	f.player.current = &models.Song{
		File:  "x",
		Title: "One",
		Tags:  []models.Tag{{Key: "Album", Value: "And Justice"}, {Key: "ALBUM", Value: " For All"}, {Key: "Genre", Value: "Metal"}},
	}
	f.command(t, "/current")
	if got := f.msgr.last(t).Text; got != "🎵One\n👤Unknown\n💿And Justice For All" {
		t.Errorf("got %q", got)
	}

	f.player.stats = models.Stats{Artists: 12, Albums: 34, Songs: 567, DBPlaytime: 3725 * time.Second}
	f.command(t, "/stats")
	want := "👤 Number of artists: 12\n💿Number of albums: 34\n🎵Number of songs: 567\n\ntotal duration: 1h 2m 5s"
	if got := f.msgr.last(t).Text; got != want {
		t.Errorf("got %q", got)
	}
}

func TestHelpListsEveryVerb(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/help")
	got := f.msgr.last(t).Text
	if !strings.HasPrefix(got, HelpHeader+"\n\n") {
		t.Errorf("missing header: %q", got)
	}
	for _, c := range f.bot.Commands() {
		if !strings.Contains(got, "/"+c.Name) || !strings.Contains(got, c.Description) {
			t.Errorf("help lacks /%s", c.Name)
		}
	}
	f.command(t, "/start")
	if f.msgr.last(t).Text != got {
		t.Error("/start and /help differ")
	}
}

func TestUnknownAndForeignCommandsIgnored(t *testing.T) {
	f := newFixture(t)
	for _, text := range []string{"/nope", "hello", "/next@other_bot", ""} {
		f.command(t, text)
	}
	if len(f.msgr.sent)+len(f.msgr.reactions) != 0 || len(f.player.calls) != 0 {
		t.Error("ignored input caused effects")
	}

	f.command(t, "/next@tmpc_bot")
	if len(f.player.calls) != 1 {
		t.Error("command addressed to this bot was dropped")
	}
}
