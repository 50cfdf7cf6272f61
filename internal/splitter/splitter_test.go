package splitter

import "testing"

func TestSplit(t *testing.T) {
	got, err := Split("a::b:", ":", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a", "", "b", ""}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestSplitNotEnoughFields(t *testing.T) {
	if _, err := Split("a::b:", ":", 5); err == nil {
		t.Fatal("expected error for too few fields")
	}
}

func TestSplitKeepsTrailingSeparatorsInLastField(t *testing.T) {
	got, err := Split("a:b:c:d:e", ":", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[2] != "c:d:e" {
		t.Fatalf("got %q, want %q", got[2], "c:d:e")
	}
}

func TestSplitSoft(t *testing.T) {
	got := SplitSoft("a::b:", ":")
	want := []string{"a", "", "b", ""}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestSplitSoftWithLimit(t *testing.T) {
	got := SplitSoft("a:b:c:d", ":", 2)
	want := []string{"a", "b:c:d"}
	if len(got) != len(want) || got[1] != want[1] {
		t.Fatalf("got %v want %v", got, want)
	}
}
