package protocol

import (
	"strings"
	"testing"

	"github.com/shiv248/editagent/pkg/ot"
)

func TestNegotiateNew(t *testing.T) {
	got := NegotiateNew("alice")
	if got != "new:alice\n" {
		t.Fatalf("got %q", got)
	}
}

func TestNegotiateReconnectEscapesSecret(t *testing.T) {
	got := NegotiateReconnect([]byte("se\ncret"))
	if !strings.HasPrefix(got, "reconnect:") || !strings.HasSuffix(got, "\n") {
		t.Fatalf("got %q", got)
	}
	if strings.Contains(got[:len(got)-1], "\n") {
		t.Fatalf("secret newline leaked into the line: %q", got)
	}
}

func TestParseNegotiationResponse(t *testing.T) {
	resp, err := ParseNegotiationResponse("42:abc123:7:hello\\nworld")
	if err != nil {
		t.Fatal(err)
	}
	if resp.AuthorID != 42 {
		t.Fatalf("author id = %d", resp.AuthorID)
	}
	if string(resp.Secret) != "abc123" {
		t.Fatalf("secret = %q", resp.Secret)
	}
	if resp.Seqno != 7 {
		t.Fatalf("seqno = %d", resp.Seqno)
	}
	if resp.Text != "hello\nworld" {
		t.Fatalf("text = %q", resp.Text)
	}
}

func TestParseNegotiationResponseRejectsZeroAuthorID(t *testing.T) {
	if _, err := ParseNegotiationResponse("0:secret:0:text"); err == nil {
		t.Fatal("expected error for author_id 0")
	}
}

func TestEncodeSubmissionInsert(t *testing.T) {
	got, err := EncodeSubmission(Submission{Seq: 3, ParentSeq: 2, ParentID: 1, Op: ot.Insert{Idx: 5, Text: "hi:there"}})
	if err != nil {
		t.Fatal(err)
	}
	// ':' is not in the codec's escape set, so it passes through raw.
	want := "s:3:2:1:i:5:hi:there\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestEncodeSubmissionDelete(t *testing.T) {
	got, err := EncodeSubmission(Submission{Seq: 1, ParentSeq: 0, ParentID: 0, Op: ot.Delete{Idx: 4, NChars: 6}})
	if err != nil {
		t.Fatal(err)
	}
	if got != "s:1:0:0:d:4:6\n" {
		t.Fatalf("got %q", got)
	}
}

func TestParseServerMessageAccept(t *testing.T) {
	msg, err := ParseServerMessage("a:17")
	if err != nil {
		t.Fatal(err)
	}
	a, ok := msg.(Accept)
	if !ok || a.Seq != 17 {
		t.Fatalf("got %+v", msg)
	}
}

func TestParseServerMessageExternalInsert(t *testing.T) {
	msg, err := ParseServerMessage("x:9:i:3:abc")
	if err != nil {
		t.Fatal(err)
	}
	ext, ok := msg.(External)
	if !ok || ext.Seq != 9 {
		t.Fatalf("got %+v", msg)
	}
	ins, ok := ext.Op.(ot.Insert)
	if !ok || ins.Idx != 3 || ins.Text != "abc" {
		t.Fatalf("got %+v", ext.Op)
	}
}

func TestParseServerMessageExternalInsertWithColonInArg(t *testing.T) {
	// the arg field for inserts can legitimately contain raw colons, and
	// the splitter must keep them in the last field rather than erroring.
	msg, err := ParseServerMessage("x:9:i:0:a:b:c")
	if err != nil {
		t.Fatal(err)
	}
	ext := msg.(External)
	ins := ext.Op.(ot.Insert)
	if ins.Text != "a:b:c" {
		t.Fatalf("got %q", ins.Text)
	}
}

func TestParseServerMessageUnknownTag(t *testing.T) {
	if _, err := ParseServerMessage("z:1"); err == nil {
		t.Fatal("expected error for unknown tag")
	}
}

func TestSubmissionRoundTrip(t *testing.T) {
	sub := Submission{Seq: 5, ParentSeq: 4, ParentID: 2, Op: ot.Insert{Idx: 1, Text: "x"}}
	line, err := EncodeSubmission(sub)
	if err != nil {
		t.Fatal(err)
	}
	// a server parsing its own submission-shaped line back (ignoring the
	// "s:" framing, which only the client emits) should recover the op.
	fields := strings.Split(strings.TrimSuffix(line, "\n"), ":")
	if len(fields) < 7 {
		t.Fatalf("unexpected field count: %v", fields)
	}
	op, err := decodeOp(fields[4], fields[5], strings.Join(fields[6:], ":"))
	if err != nil {
		t.Fatal(err)
	}
	if op != sub.Op {
		t.Fatalf("got %+v want %+v", op, sub.Op)
	}
}
