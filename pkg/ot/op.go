// Package ot implements the operational-transform algebra the agent uses to
// reconcile concurrent edits: insertion and deletion operations addressed by
// byte offset, their composition behavior under Apply, and their rebasing
// behavior under After.
//
// The shape here — a small tagged interface with an unexported marker
// method — follows the same pattern the operation-sequence OT library in
// this codebase's lineage uses for its own Operation type, even though the
// algebra itself is different: these ops are addressed directly by byte
// offset rather than expressed as a retain/insert/delete sequence.
package ot

import "fmt"

// Op is a single edit: an Insert or a Delete.
type Op interface {
	isOp()
}

// Insert adds Text at byte offset Idx.
type Insert struct {
	Idx  int
	Text string
}

func (Insert) isOp() {}

// Delete removes NChars bytes starting at byte offset Idx. Text holds the
// bytes removed, when known: it is populated when the op originates from a
// local editor event whose deleted content was captured, and may be absent
// on incoming ops and on anything produced by After.
type Delete struct {
	Idx    int
	NChars int
	Text   *string
}

func (Delete) isOp() {}

// Validate checks the invariants from the data model: non-negative index,
// in-range delete, non-empty insert text.
func Validate(op Op, docLen int) error {
	switch v := op.(type) {
	case Insert:
		if v.Idx < 0 {
			return fmt.Errorf("ot: insert idx %d < 0", v.Idx)
		}
		if v.Idx > docLen {
			return fmt.Errorf("ot: insert idx %d exceeds document length %d", v.Idx, docLen)
		}
		if v.Text == "" {
			return fmt.Errorf("ot: insert text must be non-empty")
		}
	case Delete:
		if v.Idx < 0 {
			return fmt.Errorf("ot: delete idx %d < 0", v.Idx)
		}
		if v.NChars < 1 {
			return fmt.Errorf("ot: delete nchars %d < 1", v.NChars)
		}
		if v.Idx+v.NChars > docLen {
			return fmt.Errorf("ot: delete range [%d,%d) exceeds document length %d", v.Idx, v.Idx+v.NChars, docLen)
		}
	default:
		return fmt.Errorf("ot: unknown op type %T", op)
	}
	return nil
}

// Apply returns the result of applying op to text. Indices are byte
// offsets; callers are responsible for aligning them to UTF-8 character
// boundaries — Apply does not validate that.
func Apply(op Op, text string) (string, error) {
	switch v := op.(type) {
	case Insert:
		if v.Idx < 0 || v.Idx > len(text) {
			return "", fmt.Errorf("ot: apply insert: idx %d out of range [0,%d]", v.Idx, len(text))
		}
		return text[:v.Idx] + v.Text + text[v.Idx:], nil
	case Delete:
		if v.Idx < 0 || v.NChars < 0 || v.Idx+v.NChars > len(text) {
			return "", fmt.Errorf("ot: apply delete: range [%d,%d) out of range [0,%d]", v.Idx, v.Idx+v.NChars, len(text))
		}
		return text[:v.Idx] + text[v.Idx+v.NChars:], nil
	default:
		return "", fmt.Errorf("ot: apply: unknown op type %T", op)
	}
}
