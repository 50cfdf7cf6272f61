package breaktree

import (
	"fmt"
	"testing"
)

func mustValidate(t *testing.T, bt *BreakTree) {
	t.Helper()
	if err := bt.Validate(); err != nil {
		t.Fatalf("invariant violation: %v\ntext: %q", err, bt.Text())
	}
}

func TestNewBreakTreeIsJustGhost(t *testing.T) {
	bt := NewBreakTree()
	mustValidate(t, bt)
	if bt.Text() != "\n" {
		t.Fatalf("got %q", bt.Text())
	}
	if bt.Len() != 1 {
		t.Fatalf("got len %d", bt.Len())
	}
}

func TestInsertTextSingleLineGrowsInPlace(t *testing.T) {
	bt := NewBreakTree()
	sl, sc, err := bt.InsertText(0, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if sl != 0 || sc != 0 {
		t.Fatalf("got (%d,%d)", sl, sc)
	}
	mustValidate(t, bt)
	if bt.Text() != "hello\n" {
		t.Fatalf("got %q", bt.Text())
	}
	if bt.Len() != 6 {
		t.Fatalf("got len %d", bt.Len())
	}
}

func TestInsertTextSplitsOnNewline(t *testing.T) {
	bt := NewBreakTree()
	if _, _, err := bt.InsertText(0, "a"); err != nil {
		t.Fatal(err)
	}
	mustValidate(t, bt)
	if bt.Text() != "a\n" {
		t.Fatalf("got %q", bt.Text())
	}

	if _, _, err := bt.InsertText(1, "\n"); err != nil {
		t.Fatal(err)
	}
	mustValidate(t, bt)
	if bt.Text() != "a\n\n" {
		t.Fatalf("got %q", bt.Text())
	}
	if len(bt.Lines()) != 2 {
		t.Fatalf("got %d lines", len(bt.Lines()))
	}
}

// TestInsertDeleteScenario traces a hand-verified sequence of inserts
// followed by a spanning delete, checking both the resulting text and the
// (line, col) coordinates reported at each step.
func TestInsertDeleteScenario(t *testing.T) {
	bt := NewBreakTree()

	sl, sc, err := bt.InsertText(0, "a")
	if err != nil || sl != 0 || sc != 0 {
		t.Fatalf("insert 1: sl=%d sc=%d err=%v", sl, sc, err)
	}
	mustValidate(t, bt)

	sl, sc, err = bt.InsertText(1, "\n")
	if err != nil || sl != 0 || sc != 1 {
		t.Fatalf("insert 2: sl=%d sc=%d err=%v", sl, sc, err)
	}
	mustValidate(t, bt)
	if bt.Text() != "a\n\n" {
		t.Fatalf("got %q", bt.Text())
	}

	sl, sc, err = bt.InsertText(1, "b\nbb\n")
	if err != nil || sl != 0 || sc != 1 {
		t.Fatalf("insert 3: sl=%d sc=%d err=%v", sl, sc, err)
	}
	mustValidate(t, bt)
	if bt.Text() != "ab\nbb\n\n\n" {
		t.Fatalf("got %q", bt.Text())
	}

	sl, sc, err = bt.InsertText(4, "c\nccc\ncc")
	if err != nil || sl != 1 || sc != 1 {
		t.Fatalf("insert 4: sl=%d sc=%d err=%v", sl, sc, err)
	}
	mustValidate(t, bt)
	if bt.Text() != "ab\nbc\nccc\nccb\n\n\n" {
		t.Fatalf("got %q", bt.Text())
	}
	if bt.Len() != 16 {
		t.Fatalf("got len %d", bt.Len())
	}

	removed, rsl, rsc, rel, rec, err := bt.DeleteText(4, 5)
	if err != nil {
		t.Fatal(err)
	}
	if removed != "c\nccc" {
		t.Fatalf("removed = %q", removed)
	}
	if rsl != 1 || rsc != 1 || rel != 2 || rec != 3 {
		t.Fatalf("range = (%d,%d)->(%d,%d)", rsl, rsc, rel, rec)
	}
	mustValidate(t, bt)
	if bt.Text() != "ab\nb\nccb\n\n\n" {
		t.Fatalf("got %q", bt.Text())
	}
	if bt.Len() != 11 {
		t.Fatalf("got len %d", bt.Len())
	}
}

func TestDeleteTextWithinSingleLine(t *testing.T) {
	bt := NewBreakTree()
	if _, _, err := bt.InsertText(0, "hello world"); err != nil {
		t.Fatal(err)
	}
	removed, sl, sc, el, ec, err := bt.DeleteText(5, 6)
	if err != nil {
		t.Fatal(err)
	}
	if removed != " world" {
		t.Fatalf("removed = %q", removed)
	}
	if sl != 0 || sc != 5 || el != 0 || ec != 11 {
		t.Fatalf("range = (%d,%d)->(%d,%d)", sl, sc, el, ec)
	}
	mustValidate(t, bt)
	if bt.Text() != "hello\n" {
		t.Fatalf("got %q", bt.Text())
	}
}

func TestDeleteTextEndingOnLineBoundaryReportsPreviousLineEnd(t *testing.T) {
	bt := NewBreakTree()
	if _, _, err := bt.InsertText(0, "aaa\nbbb\nccc"); err != nil {
		t.Fatal(err)
	}
	mustValidate(t, bt)
	if bt.Text() != "aaa\nbbb\nccc\n" {
		t.Fatalf("got %q", bt.Text())
	}

	// delete "aaa\n" entirely: idx 0, nchars 4. The deletion ends exactly at
	// the start of the "bbb\n" line, so the end should roll back to the end
	// of line 0 rather than (1, 0).
	removed, sl, sc, el, ec, err := bt.DeleteText(0, 4)
	if err != nil {
		t.Fatal(err)
	}
	if removed != "aaa\n" {
		t.Fatalf("removed = %q", removed)
	}
	if sl != 0 || sc != 0 || el != 0 || ec != 4 {
		t.Fatalf("range = (%d,%d)->(%d,%d)", sl, sc, el, ec)
	}
	mustValidate(t, bt)
	if bt.Text() != "bbb\nccc\n" {
		t.Fatalf("got %q", bt.Text())
	}
}

func TestDeleteCannotRemoveGhost(t *testing.T) {
	bt := NewBreakTree()
	if _, _, err := bt.InsertText(0, "ab"); err != nil {
		t.Fatal(err)
	}
	// doc is "ab\n", len 3. Deleting all 3 bytes would consume the ghost.
	if _, _, _, _, _, err := bt.DeleteText(0, 3); err == nil {
		t.Fatal("expected error deleting through the ghost")
	}
	// deleting up to but not including the final byte is fine.
	if _, _, _, _, _, err := bt.DeleteText(0, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustValidate(t, bt)
	if bt.Text() != "\n" {
		t.Fatalf("got %q", bt.Text())
	}
}

func TestFindOutOfRange(t *testing.T) {
	bt := NewBreakTree()
	if _, _, _, err := bt.Find(1); err == nil {
		t.Fatal("expected error for idx == len")
	}
	if _, _, _, err := bt.Find(-1); err == nil {
		t.Fatal("expected error for negative idx")
	}
}

// TestManyLinesStaysBalanced inserts a large number of lines one at a time
// and checks the AA-tree invariants (and the aggregate bookkeeping they
// depend on) after every single insertion, then deletes them all back out
// one character at a time.
func TestManyLinesStaysBalanced(t *testing.T) {
	bt := NewBreakTree()
	for i := 0; i < 200; i++ {
		line := fmt.Sprintf("line-%d\n", i)
		if _, _, err := bt.InsertText(bt.Len()-1, line); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		mustValidate(t, bt)
	}

	for bt.Len() > 1 {
		if _, _, _, _, _, err := bt.DeleteText(0, 1); err != nil {
			t.Fatalf("delete at len %d: %v", bt.Len(), err)
		}
		mustValidate(t, bt)
	}
	if bt.Text() != "\n" {
		t.Fatalf("got %q", bt.Text())
	}
}

func TestDeleteLineMergesNeighbors(t *testing.T) {
	bt := NewBreakTree()
	if _, _, err := bt.InsertText(0, "aaa\nbbb\nccc\nddd"); err != nil {
		t.Fatal(err)
	}
	mustValidate(t, bt)
	// delete the whole "bbb\n" line plus one byte into "ccc", forcing a
	// line removal and a merge of the remainder into the "aaa" line's
	// successor.
	idx := len("aaa\n")
	removed, _, _, _, _, err := bt.DeleteText(idx, len("bbb\n")+1)
	if err != nil {
		t.Fatal(err)
	}
	if removed != "bbb\nc" {
		t.Fatalf("removed = %q", removed)
	}
	mustValidate(t, bt)
	if bt.Text() != "aaa\ncc\nddd\n" {
		t.Fatalf("got %q", bt.Text())
	}
}
