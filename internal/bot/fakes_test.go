package bot

import (
	"context"
	"sync"
	"testing"

	"github.com/pasta/tmpc/internal/helper"
	"github.com/pasta/tmpc/internal/mpd"
	"github.com/pasta/tmpc/internal/selection"
	"github.com/pasta/tmpc/internal/upload"
	"github.com/pasta/tmpc/pkg/logger"
	"github.com/pasta/tmpc/pkg/models"
)

type sent struct {
	ChatID int64
	Text   string
	Out    Outgoing
}

type edit struct {
	ChatID    int64
	MessageID int
	Text      string
}

type fakeMessenger struct {
	mu        sync.Mutex
	sent      []sent
	reactions []string
	edits     []edit
	answered  []string
	commands  []Command
	sendErr   error
}

func (m *fakeMessenger) Send(_ context.Context, chatID int64, text string, opts ...SendOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var o Outgoing
	for _, opt := range opts {
		opt(&o)
	}
	m.sent = append(m.sent, sent{ChatID: chatID, Text: text, Out: o})
	return m.sendErr
}

func (m *fakeMessenger) React(_ context.Context, _ int64, _ int, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions = append(m.reactions, emoji)
	return nil
}

func (m *fakeMessenger) Edit(_ context.Context, chatID int64, messageID int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, edit{chatID, messageID, text})
	return nil
}

func (m *fakeMessenger) AnswerCallback(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answered = append(m.answered, id)
	return nil
}

func (m *fakeMessenger) SetCommands(_ context.Context, cmds []Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = cmds
	return nil
}

func (m *fakeMessenger) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, s := range m.sent {
		out[i] = s.Text
	}
	return out
}

func (m *fakeMessenger) last(t *testing.T) sent {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("nothing was sent")
	}
	return m.sent[len(m.sent)-1]
}

type insert struct {
	File string
	Pos  int
}

type fakePlayer struct {
	mu       sync.Mutex
	current  *models.Song
	queue    []models.Song
	catalog  map[string]models.Song
	results  []models.Song
	stats    models.Stats
	err      error
	calls    []string
	inserts  []insert
	pushes   []string
	searchLo int
	searchHi int
}

func (p *fakePlayer) record(op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, op)
	return p.err
}

func (p *fakePlayer) CurrentSong() (*models.Song, error) {
	return p.current, p.record("currentsong")
}

func (p *fakePlayer) Queue() ([]models.Song, error) { return p.queue, p.record("queue") }

func (p *fakePlayer) FindByFile(path string) (*models.Song, error) {
	if err := p.record("find"); err != nil {
		return nil, err
	}
	s, ok := p.catalog[path]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (p *fakePlayer) SearchTitle(_ string, lo, hi int) ([]models.Song, error) {
	p.mu.Lock()
	p.searchLo, p.searchHi = lo, hi
	p.mu.Unlock()
	return p.results, p.record("search")
}

func (p *fakePlayer) InsertAt(song models.Song, pos int) error {
	if err := p.record("insert"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inserts = append(p.inserts, insert{song.File, pos})
	return nil
}

func (p *fakePlayer) Push(song models.Song) error {
	if err := p.record("push"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, song.File)
	return nil
}

func (p *fakePlayer) Clear() error                 { return p.record("clear") }
func (p *fakePlayer) Next() error                  { return p.record("next") }
func (p *fakePlayer) Prev() error                  { return p.record("prev") }
func (p *fakePlayer) TogglePause() error           { return p.record("togglepause") }
func (p *fakePlayer) Shuffle() error               { return p.record("shuffle") }
func (p *fakePlayer) Stats() (models.Stats, error) { return p.stats, p.record("stats") }

type fakeHelper struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (h *fakeHelper) record(call string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call)
	return h.err
}

func (h *fakeHelper) TogglePause(context.Context) error { return h.record("togglepause") }

func (h *fakeHelper) AddRandom(_ context.Context, n string) error {
	return h.record("addrandom song " + n)
}

func (h *fakeHelper) AddAll(context.Context) error { return h.record("add /") }

func (h *fakeHelper) IngestURL(_ context.Context, url string) error {
	return h.record("addyt -p +0 " + url)
}

type fakeUploader struct {
	res    upload.Result
	err    error
	notify bool
	audio  upload.Audio
	called bool
}

func (u *fakeUploader) Ingest(ctx context.Context, audio upload.Audio, notify func(context.Context) error) (upload.Result, error) {
	u.called = true
	u.audio = audio
	if u.notify && notify != nil {
		if err := notify(ctx); err != nil {
			return upload.Result{}, err
		}
	}
	return u.res, u.err
}

type fixture struct {
	bot     *Bot
	msgr    *fakeMessenger
	player  *fakePlayer
	helper  *fakeHelper
	uploads *fakeUploader
	sel     *selection.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		msgr:    &fakeMessenger{},
		player:  &fakePlayer{catalog: map[string]models.Song{}},
		helper:  &fakeHelper{},
		uploads: &fakeUploader{},
		sel:     selection.NewMemory(0, logger.Discard()),
	}
	t.Cleanup(func() { f.sel.Close() })

	b, err := New(
		WithMessenger(f.msgr),
		WithPlayer(f.player),
		WithHelper(f.helper),
		WithSelections(f.sel),
		WithUploads(f.uploads),
		WithLogger(logger.Discard()),
		WithUsername("tmpc_bot"),
	)
	if err != nil {
		t.Fatalf("Failed to create bot: %v", err)
	}
	f.bot = b
	return f
}

func (f *fixture) command(t *testing.T, text string) *Message {
	t.Helper()
	msg := &Message{ChatID: 42, ID: 100, Text: text}
	if err := f.bot.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage(%q): %v", text, err)
	}
	return msg
}

var (
	_ Helper      = (*helper.Invoker)(nil)
	_ URLIngester = (*helper.Invoker)(nil)
	_ URLIngester = (*helper.YTDLP)(nil)
	_ Uploader    = (*upload.Ingester)(nil)
	_ Messenger   = (*Telegram)(nil)
	_ Player      = (*mpd.Client)(nil)
)
