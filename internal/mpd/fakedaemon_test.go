package mpd

import (
	"bufio"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// fakeDaemon speaks just enough of the MPD text protocol for the adapter.
// Each handler returns the response body lines; the final OK is added for it.
// A handler returning an error produces an ACK line instead.
type fakeDaemon struct {
	t        *testing.T
	socket   string
	ln       net.Listener
	mu       sync.Mutex
	handlers map[string]func(args []string) ([]string, error)
	received []string
}

func newFakeDaemon(t *testing.T) *fakeDaemon {
	t.Helper()

	socket := filepath.Join(t.TempDir(), "mpd.sock")
	ln, err := net.Listen("unix", socket)
	if err != nil {
		t.Fatalf("listen %s: %v", socket, err)
	}
	d := &fakeDaemon{
		t:        t,
		socket:   socket,
		ln:       ln,
		handlers: make(map[string]func([]string) ([]string, error)),
	}
	t.Cleanup(func() { ln.Close() })
	go d.serve()
	return d
}

func (d *fakeDaemon) handle(cmd string, fn func(args []string) ([]string, error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[cmd] = fn
}

func (d *fakeDaemon) reply(cmd string, lines ...string) {
	d.handle(cmd, func([]string) ([]string, error) { return lines, nil })
}

func (d *fakeDaemon) commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.received...)
}

func (d *fakeDaemon) serve() {
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			return
		}
		go d.session(conn)
	}
}

func (d *fakeDaemon) session(conn net.Conn) {
	defer conn.Close()
	w := bufio.NewWriter(conn)
	fmt.Fprint(w, "OK MPD 0.23.5\n")
	w.Flush()

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\n")
		fields := splitArgs(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]
		if cmd == "close" {
			return
		}

		d.mu.Lock()
		d.received = append(d.received, line)
		h, ok := d.handlers[cmd]
		d.mu.Unlock()

		if !ok {
			fmt.Fprintf(w, "ACK [5@0] {%s} unknown command \"%s\"\n", cmd, cmd)
			w.Flush()
			continue
		}
		body, err := h(args)
		if err != nil {
			fmt.Fprintf(w, "ACK [50@0] {%s} %v\n", cmd, err)
			w.Flush()
			continue
		}
		for _, l := range body {
			fmt.Fprintln(w, l)
		}
		fmt.Fprint(w, "OK\n")
		w.Flush()
	}
}

// splitArgs tokenizes a protocol line honoring double quotes and backslash escapes.
func splitArgs(line string) []string {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
		escaped bool
		have    bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && inQuote:
			escaped = true
		case r == '"':
			inQuote = !inQuote
			have = true
		case r == ' ' && !inQuote:
			if have || cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
				have = false
			}
		default:
			cur.WriteRune(r)
		}
	}
	if have || cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
