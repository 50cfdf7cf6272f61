// Package client is the coordinator from spec §4.6: it owns the document's
// BreakTree, the author id and sequence counter learned during negotiation,
// and the in-flight submission FIFO, and bridges editor callbacks to a
// Transport in both directions.
//
// It realizes the two-context model from spec §5 (event loop vs. editor
// context) the way the design notes prescribe: two executors connected by a
// message queue, with no state shared across the boundary except through
// that queue. Here the event-loop side is whatever goroutine a Transport's
// MsgCB fires on; the editor side is whatever the host's Editor.Schedule
// primitive runs work on. msgQ is the queue; Schedule is what wakes the
// editor side to drain it.
package client

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shiv248/editagent/internal/protocol"
	"github.com/shiv248/editagent/pkg/breaktree"
	"github.com/shiv248/editagent/pkg/logger"
	"github.com/shiv248/editagent/pkg/ot"
)

// Transport is the subset of *transport.Transport the Client drives. It is
// expressed as an interface, in the Editor's style, so the Client can be
// tested without a real connection.
type Transport interface {
	Submit(protocol.Submission)
	Acknowledge(seq int)
}

// Client ties local edits, remote edits, in-flight submissions, and the
// document model together with correct parent references.
type Client struct {
	editor Editor
	buf    int
	tr     Transport

	authorID        int
	seq             int
	latestServerSeq int
	inflight        []protocol.Submission
	text            *breaktree.BreakTree
	firstSync       bool
	pending         []ot.Op

	msgQMu sync.Mutex
	msgQ   []protocol.ServerMsg
}

// New builds a Client for buf, bound to tr. The Client does not start
// accepting edits from the editor until Start is called, and does not begin
// submitting local edits until the Transport's first successful negotiation
// calls OnConnect.
func New(editor Editor, buf int, tr Transport) *Client {
	return &Client{editor: editor, buf: buf, tr: tr, text: breaktree.NewBreakTree()}
}

// Start attaches to the editor buffer so subsequent edits reach the Client.
// Edits that arrive before the first successful OnConnect are held and
// replayed afterward (spec §7).
func (c *Client) Start() error {
	return c.editor.BufAttach(c.buf, c.onBytes)
}

// OnConnect is the Transport's ConnectCB. text is the authoritative
// document snapshot negotiated with the server; it replaces whatever the
// editor buffer currently holds and reseeds the BreakTree, per spec §4.6's
// initial-sync rule.
func (c *Client) OnConnect(authorID, seqno int, text string) {
	c.editor.Schedule(func() {
		c.authorID = authorID
		c.latestServerSeq = seqno

		c.text = breaktree.NewBreakTree()
		if text != "" {
			if _, _, err := c.text.InsertText(0, text); err != nil {
				c.fatal(fmt.Errorf("seed document: %w", err))
				return
			}
		}

		if err := c.editor.BufSetLines(c.buf, 0, -1, true, strings.Split(text, "\n")); err != nil {
			c.editor.ReportError(fmt.Sprintf("editagent: initial sync failed: %v", err))
		}

		c.firstSync = true
		pending := c.pending
		c.pending = nil
		for _, op := range pending {
			// Replay against the just-synced document, the same way a
			// remote op would apply, so the tree, the buffer, and the
			// submission we send all agree on the same offsets.
			if err := c.applyAndRender(op); err != nil {
				c.fatal(fmt.Errorf("replay pre-sync local edit: %w", err))
				continue
			}
			c.submitLocalOp(op)
		}
	})
}

// HandleServerMsg is the Transport's MsgCB. It fires on the Transport's own
// goroutine (the event-loop context) and must not touch the BreakTree or
// editor APIs directly; it only enqueues and wakes the editor thread.
func (c *Client) HandleServerMsg(msg protocol.ServerMsg) {
	c.msgQMu.Lock()
	c.msgQ = append(c.msgQ, msg)
	c.msgQMu.Unlock()
	c.editor.Schedule(c.drainMsgQ)
}

func (c *Client) drainMsgQ() {
	c.msgQMu.Lock()
	batch := c.msgQ
	c.msgQ = nil
	c.msgQMu.Unlock()

	for _, msg := range batch {
		switch m := msg.(type) {
		case protocol.External:
			c.applyExternal(m)
		case protocol.Accept:
			c.applyAccept(m)
		default:
			c.fatal(fmt.Errorf("unknown server message type %T", msg))
		}
	}
}

// applyExternal implements spec §4.6's "On External" rule: transform the
// incoming op against every submission still in flight, in order, then
// apply the result to the BreakTree and push the change to the editor.
func (c *Client) applyExternal(m protocol.External) {
	c.latestServerSeq = m.Seq

	op := m.Op
	for _, sub := range c.inflight {
		transformed, err := ot.After(op, sub.Op)
		if err != nil {
			c.fatal(fmt.Errorf("transform external seq %d against inflight seq %d: %w", m.Seq, sub.Seq, err))
			return
		}
		if transformed == nil {
			// Fully subsumed by our own pending edit: nothing left to
			// apply against the document.
			return
		}
		op = transformed
	}

	// op now addresses the document the way c.text currently holds it, so
	// this is the one point where the data-model invariants from spec §3
	// can actually be checked against the right length: reject a malformed
	// or out-of-range op here rather than handing it to the BreakTree.
	if err := ot.Validate(op, c.text.Len()-1); err != nil {
		c.fatal(fmt.Errorf("external seq %d: %w", m.Seq, err))
		return
	}

	if err := c.applyAndRender(op); err != nil {
		c.fatal(fmt.Errorf("apply external: %w", err))
	}
}

// applyAndRender applies op to the BreakTree and pushes the corresponding
// change to the editor buffer. A BreakTree error is returned (it indicates a
// broken invariant and is fatal to the caller); an editor-side failure is
// only reported, since the document model itself stayed consistent.
//
// BreakTree's insert/delete return shapes were chosen to match
// Editor.BufSetText's (sl, sc, el, ec) convention directly (spec §4.4 and
// §6 use the same end-inclusive-line/end-exclusive-column contract), so no
// translation happens here beyond picking which call to make.
func (c *Client) applyAndRender(op ot.Op) error {
	switch v := op.(type) {
	case ot.Insert:
		startLine, startCol, err := c.text.InsertText(v.Idx, v.Text)
		if err != nil {
			return err
		}
		if err := c.editor.BufSetText(c.buf, startLine, startCol, startLine, startCol, strings.Split(v.Text, "\n")); err != nil {
			c.editor.ReportError(fmt.Sprintf("editagent: buf_set_text failed: %v", err))
		}
		return nil
	case ot.Delete:
		_, sl, sc, el, ec, err := c.text.DeleteText(v.Idx, v.NChars)
		if err != nil {
			return err
		}
		if err := c.editor.BufSetText(c.buf, sl, sc, el, ec, []string{""}); err != nil {
			c.editor.ReportError(fmt.Sprintf("editagent: buf_set_text failed: %v", err))
		}
		return nil
	default:
		return fmt.Errorf("unknown op type %T", op)
	}
}

// applyAccept implements spec §4.6's "On Accept" rule.
func (c *Client) applyAccept(m protocol.Accept) {
	if len(c.inflight) == 0 || c.inflight[0].Seq != m.Seq {
		c.fatal(fmt.Errorf("accept for seq %d does not match inflight head", m.Seq))
		return
	}
	c.inflight = c.inflight[1:]
	c.tr.Acknowledge(m.Seq)
}

// onBytes is the editor's on_bytes callback (spec §6). It runs on the
// editor thread already, so it applies directly to the BreakTree rather
// than going through the msgQ. A single on_bytes event can carry both a
// deletion and an insertion (an editor-level replace); each becomes its own
// Op, in delete-then-insert order, since Op only models one edit at a time.
func (c *Client) onBytes(bufnr, tick, sr, sc, startByte, oer, oec, oldByteLen, ner, nec, newByteLen int) {
	idx := startByte

	if oldByteLen > 0 {
		removed, _, _, _, _, err := c.text.DeleteText(idx, oldByteLen)
		if err != nil {
			c.editor.ReportError(fmt.Sprintf("editagent: local delete failed: %v", err))
			return
		}
		c.emitLocalOp(ot.Delete{Idx: idx, NChars: oldByteLen, Text: &removed})
	}

	if newByteLen > 0 {
		endRow, endCol := sr+ner, nec
		if ner == 0 {
			endCol = sc + nec
		}
		lines, err := c.editor.BufGetText(bufnr, sr, sc, endRow, endCol)
		if err != nil {
			c.editor.ReportError(fmt.Sprintf("editagent: buf_get_text failed: %v", err))
			return
		}
		inserted := strings.Join(lines, "\n")
		if _, _, err := c.text.InsertText(idx, inserted); err != nil {
			c.editor.ReportError(fmt.Sprintf("editagent: local insert failed: %v", err))
			return
		}
		c.emitLocalOp(ot.Insert{Idx: idx, Text: inserted})
	}
}

// emitLocalOp either submits op immediately or, if the first sync hasn't
// happened yet, holds it for replay once OnConnect seeds the document
// (spec §7).
func (c *Client) emitLocalOp(op ot.Op) {
	if !c.firstSync {
		c.pending = append(c.pending, op)
		return
	}
	c.submitLocalOp(op)
}

// submitLocalOp implements spec §4.6's "On local edit" rule.
func (c *Client) submitLocalOp(op ot.Op) {
	var parentSeq, parentID int
	if len(c.inflight) > 0 {
		parentSeq, parentID = c.seq, c.authorID
	} else {
		parentSeq, parentID = c.latestServerSeq, 0
	}

	c.seq++
	sub := protocol.Submission{Seq: c.seq, ParentSeq: parentSeq, ParentID: parentID, Op: op}
	c.inflight = append(c.inflight, sub)
	c.tr.Submit(sub)
}

func (c *Client) fatal(err error) {
	logger.Error("client: %v", err)
	c.editor.ReportError(fmt.Sprintf("giving up on doc sync: %v", err))
}
