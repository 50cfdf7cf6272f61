// Package hostbridge is the concrete host-editor adapter cmd/agent runs
// against. Spec §6 treats the host editor's buffer API as an external
// collaborator reached only through the Editor interface, and none of the
// retrieval pack carries a Neovim/msgpack-rpc client library, so there is
// nothing in the domain stack this wiring could be grounded on. It is a
// plain newline-delimited-JSON bridge over stdin/stdout, built on
// encoding/json, the same "one message per line" shape the agent's own wire
// protocol uses, just JSON-framed instead of colon-escaped since this is a
// local process bridge rather than the collaboration protocol itself.
//
// The single-goroutine-owns-mutable-state discipline mirrors
// pkg/transport's runConnection: a reader goroutine does line I/O, resolves
// get_text replies directly (see Run), and hands all other decoded work to a
// channel; Run's select loop is the only place that ever calls into the
// registered OnBytesFunc.
package hostbridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/shiv248/editagent/pkg/client"
)

type envelope struct {
	Type string `json:"type"`

	Buf     int      `json:"buf,omitempty"`
	Start   int      `json:"start,omitempty"`
	End     int      `json:"end,omitempty"`
	Strict  bool     `json:"strict,omitempty"`
	SL      int      `json:"sl,omitempty"`
	SC      int      `json:"sc,omitempty"`
	EL      int      `json:"el,omitempty"`
	EC      int      `json:"ec,omitempty"`
	Lines   []string `json:"lines,omitempty"`
	Message string   `json:"message,omitempty"`
	ID      int      `json:"id,omitempty"`

	Tick       int `json:"tick,omitempty"`
	SR         int `json:"sr,omitempty"`
	StartByte  int `json:"start_byte,omitempty"`
	OldEndRow  int `json:"old_end_row,omitempty"`
	OldEndCol  int `json:"old_end_col,omitempty"`
	OldByteLen int `json:"old_byte_len,omitempty"`
	NewEndRow  int `json:"new_end_row,omitempty"`
	NewEndCol  int `json:"new_end_col,omitempty"`
	NewByteLen int `json:"new_byte_len,omitempty"`
}

// StdioEditor implements client.Editor over newline-delimited JSON on
// stdin/stdout. Run must be started before any Client calls reach it.
type StdioEditor struct {
	in  *bufio.Scanner
	out io.Writer

	outMu sync.Mutex

	cmds chan func()

	onBytesMu sync.Mutex
	onBytes   client.OnBytesFunc

	replyMu  sync.Mutex
	nextID   int
	pending  map[int]chan []string
}

// New builds a StdioEditor reading newline-delimited JSON requests from in
// and writing responses/notifications to out.
func New(in io.Reader, out io.Writer) *StdioEditor {
	return &StdioEditor{
		in:      bufio.NewScanner(in),
		out:     out,
		cmds:    make(chan func(), 64),
		pending: make(map[int]chan []string),
	}
}

// Run is the editor thread: it drains scheduled work and dispatches decoded
// on_bytes notifications, serialized through one goroutine, until ctx is
// cancelled or stdin closes.
//
// The reader goroutine below resolves "get_text_reply" envelopes itself,
// before they ever reach this select loop. That's load-bearing, not just an
// optimization: BufGetText is called synchronously from inside onBytes,
// which this loop dispatches, so if the reply also had to pass back through
// this same loop to be delivered, a pending BufGetText call would block the
// one goroutine that could ever unblock it (and the reader goroutine would
// then jam trying to hand it a line). Routing replies around the loop
// instead of through it avoids that self-dependency entirely.
func (e *StdioEditor) Run(ctx context.Context) error {
	envs := make(chan envelope)
	errCh := make(chan error, 1)
	go func() {
		defer close(envs)
		for e.in.Scan() {
			var env envelope
			if err := json.Unmarshal(e.in.Bytes(), &env); err != nil {
				continue
			}
			if env.Type == "get_text_reply" {
				e.deliverReply(env)
				continue
			}
			envs <- env
		}
		errCh <- e.in.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-e.cmds:
			if !ok {
				return nil
			}
			f()
		case env, ok := <-envs:
			if !ok {
				return <-errCh
			}
			e.dispatch(env)
		}
	}
}

func (e *StdioEditor) deliverReply(env envelope) {
	e.replyMu.Lock()
	ch := e.pending[env.ID]
	delete(e.pending, env.ID)
	e.replyMu.Unlock()
	if ch != nil {
		ch <- env.Lines
	}
}

func (e *StdioEditor) dispatch(env envelope) {
	switch env.Type {
	case "on_bytes":
		e.onBytesMu.Lock()
		cb := e.onBytes
		e.onBytesMu.Unlock()
		if cb != nil {
			cb(env.Buf, env.Tick, env.SR, env.SC, env.StartByte, env.OldEndRow, env.OldEndCol, env.OldByteLen, env.NewEndRow, env.NewEndCol, env.NewByteLen)
		}
	}
}

func (e *StdioEditor) send(env envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	e.outMu.Lock()
	defer e.outMu.Unlock()
	_, err = fmt.Fprintf(e.out, "%s\n", data)
	return err
}

func (e *StdioEditor) Schedule(f func()) {
	e.cmds <- f
}

func (e *StdioEditor) BufSetLines(buf int, start, end int, strict bool, lines []string) error {
	return e.send(envelope{Type: "set_lines", Buf: buf, Start: start, End: end, Strict: strict, Lines: lines})
}

func (e *StdioEditor) BufSetText(buf int, sl, sc, el, ec int, lines []string) error {
	return e.send(envelope{Type: "set_text", Buf: buf, SL: sl, SC: sc, EL: el, EC: ec, Lines: lines})
}

// BufGetText sends a request and blocks until the matching reply arrives on
// the reader goroutine, which keeps running concurrently with this call.
func (e *StdioEditor) BufGetText(buf int, sl, sc, el, ec int) ([]string, error) {
	e.replyMu.Lock()
	id := e.nextID
	e.nextID++
	replyCh := make(chan []string, 1)
	e.pending[id] = replyCh
	e.replyMu.Unlock()

	if err := e.send(envelope{Type: "get_text", ID: id, Buf: buf, SL: sl, SC: sc, EL: el, EC: ec}); err != nil {
		e.replyMu.Lock()
		delete(e.pending, id)
		e.replyMu.Unlock()
		return nil, err
	}
	return <-replyCh, nil
}

func (e *StdioEditor) BufAttach(buf int, onBytes client.OnBytesFunc) error {
	e.onBytesMu.Lock()
	e.onBytes = onBytes
	e.onBytesMu.Unlock()
	return e.send(envelope{Type: "attach", Buf: buf})
}

func (e *StdioEditor) ReportError(msg string) {
	_ = e.send(envelope{Type: "error", Message: msg})
}
