// Package helper drives the rmpc command line client for the operations the
// daemon adapter does not cover itself: YouTube ingest, random picks and
// whole-library adds.
package helper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pasta/tmpc/pkg/logger"
	"github.com/pasta/tmpc/pkg/utils"
)

// DefaultBinary is looked up on PATH.
const DefaultBinary = "rmpc"

// maxOutput bounds how much helper output is kept for error reports.
const maxOutput = 4096

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Error reports a helper invocation that did not succeed. Err is set when the
// process could not be started at all; otherwise ExitCode holds its status.
type Error struct {
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *Error) Error() string {
	cmd := strings.Join(e.Args, " ")
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", cmd, e.Err)
	}
	return fmt.Sprintf("%s: exit status %d", cmd, e.ExitCode)
}

func (e *Error) Unwrap() error { return e.Err }

// Spawned reports whether the process started and ran to an exit status.
func (e *Error) Spawned() bool { return e.Err == nil }

// Runner starts a process and waits for it. A process that ran and exited
// non-zero is not an error: the code is returned with err == nil.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (exitCode int, output []byte, err error)
}

// ExecRunner runs real processes. Stdout and Stderr are copied to the given
// writers (the terminal, by default) so download progress stays visible.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (int, []byte, error) {
	var captured tailBuffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = io.MultiWriter(orDiscard(r.Stdout), &captured)
	cmd.Stderr = io.MultiWriter(orDiscard(r.Stderr), &captured)

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), captured.Bytes(), nil
	}
	if err != nil {
		return -1, captured.Bytes(), err
	}
	return 0, captured.Bytes(), nil
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// tailBuffer keeps the last maxOutput bytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf.Write(p)
	if over := t.buf.Len() - maxOutput; over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

func (t *tailBuffer) Bytes() []byte { return t.buf.Bytes() }

// Invoker runs the helper binary synchronously.
type Invoker struct {
	binary string
	runner Runner
	log    Logger
}

type Option func(*Invoker)

func WithBinary(path string) Option {
	return func(h *Invoker) {
		if path != "" {
			h.binary = path
		}
	}
}

func WithRunner(r Runner) Option {
	return func(h *Invoker) {
		h.runner = r
	}
}

func WithLogger(log Logger) Option {
	return func(h *Invoker) {
		h.log = log
	}
}

func New(opts ...Option) *Invoker {
	h := &Invoker{binary: DefaultBinary}
	for _, opt := range opts {
		opt(h)
	}
	if h.runner == nil {
		h.runner = ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
	}
	if h.log == nil {
		h.log = logger.Named("rmpc")
	}
	return h
}

// Binary returns the executable the invoker spawns.
func (h *Invoker) Binary() string { return h.binary }

// Run executes the helper with args and waits for it to exit. Any failure is
// returned as *Error.
func (h *Invoker) Run(ctx context.Context, args ...string) error {
	full := append([]string{h.binary}, args...)
	start := time.Now()

	code, out, err := h.runner.Run(ctx, h.binary, args...)
	if err != nil {
		herr := &Error{Args: full, ExitCode: -1, Output: string(out), Err: err}
		h.log.Errorf("spawn failed: %v", herr)
		return herr
	}
	if code != 0 {
		herr := &Error{Args: full, ExitCode: code, Output: string(out)}
		h.log.Warnf("%v", herr)
		return herr
	}
	h.log.Debugf("%s finished in %s", strings.Join(full, " "), time.Since(start).Round(time.Millisecond))
	return nil
}

func (h *Invoker) TogglePause(ctx context.Context) error {
	return h.Run(ctx, "togglepause")
}

// IngestURL downloads the media behind url and queues it right after the
// current song. Short YouTube links are rewritten first.
func (h *Invoker) IngestURL(ctx context.Context, url string) error {
	return h.Run(ctx, "addyt", "-p", "+0", utils.CanonicalYouTubeURL(url))
}

// RandomCount is the count passed to addrandom for a raw user argument.
func RandomCount(arg string) string {
	n := strings.TrimSpace(arg)
	if n == "" {
		return "1"
	}
	return n
}

// AddRandom queues n random songs from the library; an empty n means one.
func (h *Invoker) AddRandom(ctx context.Context, n string) error {
	return h.Run(ctx, "addrandom", "song", RandomCount(n))
}

// AddAll queues the whole library.
func (h *Invoker) AddAll(ctx context.Context) error {
	return h.Run(ctx, "add", "/")
}
