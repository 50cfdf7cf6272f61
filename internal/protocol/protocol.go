// Package protocol encodes and parses the agent's wire messages: the
// newline-delimited, colon-separated format described in spec §6, built on
// top of internal/codec for payload escaping and internal/splitter for
// field extraction.
//
// The tagged-interface shape for server messages follows the same pattern
// the teacher's own ClientMsg/ServerMsg types use to distinguish message
// kinds, adapted from JSON-tagged structs to this line protocol.
package protocol

import (
	"fmt"
	"strconv"

	"github.com/shiv248/editagent/internal/codec"
	"github.com/shiv248/editagent/internal/splitter"
	"github.com/shiv248/editagent/pkg/ot"
)

// NegotiateNew builds the initial negotiation line for a client with no
// prior session.
func NegotiateNew(displayName string) string {
	return "new:" + codec.Encode(displayName) + "\n"
}

// NegotiateReconnect builds the negotiation line used to resume a session
// with a previously issued reconnect secret. The wire format for the
// secret is left to the implementation by spec §6; this agent sends it as
// an escaped payload on a "reconnect:" line, mirroring "new:".
func NegotiateReconnect(secret []byte) string {
	return "reconnect:" + codec.Encode(string(secret)) + "\n"
}

// NegotiationResponse is the server's reply to either negotiation line.
type NegotiationResponse struct {
	AuthorID int
	Secret   []byte
	Seqno    int
	Text     string
}

// ParseNegotiationResponse parses "<author_id>:<reconnect_secret>:<seqno>:<encoded_text>".
func ParseNegotiationResponse(line string) (NegotiationResponse, error) {
	fields, err := splitter.Split(line, ":", 4)
	if err != nil {
		return NegotiationResponse{}, fmt.Errorf("protocol: negotiation response: %w", err)
	}
	authorID, err := strconv.Atoi(fields[0])
	if err != nil {
		return NegotiationResponse{}, fmt.Errorf("protocol: negotiation response: bad author_id %q: %w", fields[0], err)
	}
	if authorID == 0 {
		return NegotiationResponse{}, fmt.Errorf("protocol: negotiation response: author_id must not be 0")
	}
	seqno, err := strconv.Atoi(fields[2])
	if err != nil {
		return NegotiationResponse{}, fmt.Errorf("protocol: negotiation response: bad seqno %q: %w", fields[2], err)
	}
	text, err := codec.Decode(fields[3])
	if err != nil {
		return NegotiationResponse{}, fmt.Errorf("protocol: negotiation response: bad text payload: %w", err)
	}
	return NegotiationResponse{
		AuthorID: authorID,
		Secret:   []byte(fields[1]),
		Seqno:    seqno,
		Text:     text,
	}, nil
}

// Submission is a single local edit sent to the server and awaiting
// acknowledgement.
type Submission struct {
	Seq       int
	ParentSeq int
	ParentID  int
	Op        ot.Op
}

// EncodeSubmission builds "s:<seq>:<parent_seq>:<parent_id>:<type>:<idx>:<arg>".
func EncodeSubmission(s Submission) (string, error) {
	typ, idx, arg, err := encodeOp(s.Op)
	if err != nil {
		return "", fmt.Errorf("protocol: encode submission: %w", err)
	}
	return fmt.Sprintf("s:%d:%d:%d:%s:%d:%s\n", s.Seq, s.ParentSeq, s.ParentID, typ, idx, arg), nil
}

func encodeOp(op ot.Op) (typ string, idx int, arg string, err error) {
	switch v := op.(type) {
	case ot.Insert:
		return "i", v.Idx, codec.Encode(v.Text), nil
	case ot.Delete:
		return "d", v.Idx, strconv.Itoa(v.NChars), nil
	default:
		return "", 0, "", fmt.Errorf("unknown op type %T", op)
	}
}

func decodeOp(typ, idxField, arg string) (ot.Op, error) {
	idx, err := strconv.Atoi(idxField)
	if err != nil {
		return nil, fmt.Errorf("bad idx %q: %w", idxField, err)
	}
	switch typ {
	case "i":
		text, err := codec.Decode(arg)
		if err != nil {
			return nil, fmt.Errorf("bad insert text payload: %w", err)
		}
		return ot.Insert{Idx: idx, Text: text}, nil
	case "d":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("bad nchars %q: %w", arg, err)
		}
		return ot.Delete{Idx: idx, NChars: n}, nil
	default:
		return nil, fmt.Errorf("unknown op type field %q", typ)
	}
}

// ServerMsg is either an External or an Accept, the two message kinds the
// server sends during a session.
type ServerMsg interface {
	isServerMsg()
}

// External is a remote edit the server has sequenced and is broadcasting.
type External struct {
	Seq int
	Op  ot.Op
}

func (External) isServerMsg() {}

// Accept acknowledges a submission previously sent by this client.
type Accept struct {
	Seq int
}

func (Accept) isServerMsg() {}

// ParseServerMessage parses a single in-session line from the server into
// an External or an Accept.
func ParseServerMessage(line string) (ServerMsg, error) {
	tag, rest, err := splitTag(line)
	if err != nil {
		return nil, err
	}
	switch tag {
	case "a":
		seq, err := strconv.Atoi(rest)
		if err != nil {
			return nil, fmt.Errorf("protocol: accept: bad seq %q: %w", rest, err)
		}
		return Accept{Seq: seq}, nil
	case "x":
		fields, err := splitter.Split(rest, ":", 4)
		if err != nil {
			return nil, fmt.Errorf("protocol: external: %w", err)
		}
		seq, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("protocol: external: bad seq %q: %w", fields[0], err)
		}
		op, err := decodeOp(fields[1], fields[2], fields[3])
		if err != nil {
			return nil, fmt.Errorf("protocol: external: %w", err)
		}
		return External{Seq: seq, Op: op}, nil
	default:
		return nil, fmt.Errorf("protocol: server message: unknown tag %q", tag)
	}
}

// splitTag splits the leading "<tag>:" off a line, returning the tag and
// the remainder unsplit.
func splitTag(line string) (tag, rest string, err error) {
	fields, err := splitter.Split(line, ":", 2)
	if err != nil {
		return "", "", fmt.Errorf("protocol: server message: missing tag: %q", line)
	}
	return fields[0], fields[1], nil
}
