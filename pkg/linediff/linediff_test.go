package linediff

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"testing"
)

func TestDiff_SingleReplace(t *testing.T) {
	edits := Diff([]byte("a\nb\nc\n"), []byte("a\nx\nc\n"), WhitespaceNone)
	want := []Edit{{OldStart: 1, OldLen: 1, NewStart: 1, NewLen: 1}}
	if !reflect.DeepEqual(edits, want) {
		t.Fatalf("Diff = %v, want %v", edits, want)
	}
	if edits[0].Type() != EditReplace {
		t.Errorf("Type = %v, want EditReplace", edits[0].Type())
	}
}

func TestDiff_Identical(t *testing.T) {
	if edits := Diff([]byte("a\nb\n"), []byte("a\nb\n"), WhitespaceNone); len(edits) != 0 {
		t.Fatalf("expected no edits, got %v", edits)
	}
}

func TestDiff_EmptySides(t *testing.T) {
	edits := Diff(nil, []byte("a\nb\n"), WhitespaceNone)
	want := []Edit{{OldStart: 0, OldLen: 0, NewStart: 0, NewLen: 2}}
	if !reflect.DeepEqual(edits, want) {
		t.Fatalf("insert-all = %v, want %v", edits, want)
	}

	edits = Diff([]byte("a\nb\n"), nil, WhitespaceNone)
	want = []Edit{{OldStart: 0, OldLen: 2, NewStart: 0, NewLen: 0}}
	if !reflect.DeepEqual(edits, want) {
		t.Fatalf("delete-all = %v, want %v", edits, want)
	}
	if edits[0].Type() != EditDelete {
		t.Errorf("Type = %v, want EditDelete", edits[0].Type())
	}
}

func TestDiff_SeparateRegions(t *testing.T) {
	old := "1\n2\n3\n4\n5\n6\n"
	new := "1\n2a\n3\n4\n5\n6\n7\n"
	edits := Diff([]byte(old), []byte(new), WhitespaceNone)
	want := []Edit{
		{OldStart: 1, OldLen: 1, NewStart: 1, NewLen: 1},
		{OldStart: 6, OldLen: 0, NewStart: 6, NewLen: 1},
	}
	if !reflect.DeepEqual(edits, want) {
		t.Fatalf("Diff = %v, want %v", edits, want)
	}
}

func TestDiff_MissingFinalNewline(t *testing.T) {
	tests := []struct {
		name     string
		old, new string
		ws       Whitespace
		want     []Edit
	}{
		{"newline added", "a", "a\n", WhitespaceNone, []Edit{{OldStart: 0, OldLen: 1, NewStart: 0, NewLen: 1}}},
		{"newline removed", "a\nb\n", "a\nb", WhitespaceNone, []Edit{{OldStart: 1, OldLen: 1, NewStart: 1, NewLen: 1}}},
		{"both unterminated", "a\nb", "a\nb", WhitespaceNone, nil},
		{"line appended after unterminated", "a", "a\nb\n", WhitespaceNone, []Edit{{OldStart: 0, OldLen: 1, NewStart: 0, NewLen: 2}}},
		{"trailing mode ignores it", "a", "a\n", WhitespaceTrailing, nil},
		{"all mode ignores it", "a", "a\n", WhitespaceAll, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			edits := Diff([]byte(tc.old), []byte(tc.new), tc.ws)
			if !reflect.DeepEqual(edits, tc.want) {
				t.Fatalf("Diff(%q, %q) = %v, want %v", tc.old, tc.new, edits, tc.want)
			}
		})
	}
}

func TestDiff_MinimalWithRepeatedLines(t *testing.T) {
	old := "x\na\nb\nc\na\nb\nb\na\n"
	new := "c\nb\na\nb\na\nc\n"
	edits := Diff([]byte(old), []byte(new), WhitespaceNone)

	// x/a/b/c/a/b/b/a and c/b/a/b/a/c share four lines, so the
	// shortest script touches 4 old and 2 new lines.
	var oldChanged, newChanged int
	for _, e := range edits {
		oldChanged += e.OldLen
		newChanged += e.NewLen
	}
	if oldChanged != 4 || newChanged != 2 {
		t.Fatalf("edits %v change %d old / %d new lines, want 4 / 2", edits, oldChanged, newChanged)
	}
}

func TestDiff_LargeRewriteUsesLinearMemory(t *testing.T) {
	const lines = 4000
	var oldText, newText strings.Builder
	for i := 0; i < lines; i++ {
		fmt.Fprintf(&oldText, "old line %05d\n", i)
		fmt.Fprintf(&newText, "new line %05d\n", i)
	}

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	edits := Diff([]byte(oldText.String()), []byte(newText.String()), WhitespaceNone)
	runtime.ReadMemStats(&after)

	want := []Edit{{OldStart: 0, OldLen: lines, NewStart: 0, NewLen: lines}}
	if !reflect.DeepEqual(edits, want) {
		t.Fatalf("Diff = %v, want %v", edits, want)
	}
	if allocated := after.TotalAlloc - before.TotalAlloc; allocated > 32<<20 {
		t.Fatalf("Diff allocated %d MB for a %d-line rewrite", allocated>>20, lines)
	}
}

func TestDiff_Whitespace(t *testing.T) {
	old := []byte("func f() {\n\treturn 1\n}\n")

	tests := []struct {
		name  string
		new   string
		ws    Whitespace
		edits int
	}{
		{"trailing ignored", "func f() {  \n\treturn 1\t\n}\n", WhitespaceTrailing, 0},
		{"trailing counted", "func f() {  \n\treturn 1\n}\n", WhitespaceNone, 1},
		{"change ignored", "func  f()\t{\n\treturn   1\n}\n", WhitespaceChange, 0},
		{"change keeps word breaks", "funcf() {\n\treturn 1\n}\n", WhitespaceChange, 1},
		{"all ignored", "funcf(){\n    return 1\n}\n", WhitespaceAll, 0},
		{"all sees content", "func f() {\n\treturn 2\n}\n", WhitespaceAll, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			edits := Diff(old, []byte(tc.new), tc.ws)
			if len(edits) != tc.edits {
				t.Fatalf("got %d edits (%v), want %d", len(edits), edits, tc.edits)
			}
		})
	}
}

func TestParseWhitespace(t *testing.T) {
	for _, w := range []Whitespace{WhitespaceNone, WhitespaceTrailing, WhitespaceChange, WhitespaceAll} {
		got, err := ParseWhitespace(strings.ToUpper(w.String()))
		if err != nil {
			t.Fatalf("ParseWhitespace(%q): %v", w, err)
		}
		if got != w {
			t.Errorf("ParseWhitespace(%q) = %v", w, got)
		}
	}
	if got, err := ParseWhitespace(""); err != nil || got != WhitespaceNone {
		t.Errorf("empty = %v, %v; want none", got, err)
	}
	if _, err := ParseWhitespace("tabs"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestSplitAndCountLines(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a\n", 1},
		{"a\nb", 2},
		{"\n\n", 2},
	}
	for _, tc := range tests {
		if got := len(SplitLines([]byte(tc.in))); got != tc.want {
			t.Errorf("SplitLines(%q) = %d lines, want %d", tc.in, got, tc.want)
		}
		if got := CountLines([]byte(tc.in)); got != tc.want {
			t.Errorf("CountLines(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestMerge3_Clean(t *testing.T) {
	base := "a\nb\nc\nd\ne\n"
	ours := "A\nb\nc\nd\ne\n"
	theirs := "a\nb\nc\nd\nE\n"

	res := Merge3([]byte(base), []byte(ours), []byte(theirs), Labels{})
	if res.HasConflicts() {
		t.Fatalf("unexpected conflicts:\n%s", res.Merged)
	}
	if got, want := string(res.Merged), "A\nb\nc\nd\nE\n"; got != want {
		t.Errorf("merged = %q, want %q", got, want)
	}
}

func TestMerge3_SameChangeBothSides(t *testing.T) {
	base := "a\nb\nc\n"
	side := "a\nB\nc\n"
	res := Merge3([]byte(base), []byte(side), []byte(side), Labels{})
	if res.HasConflicts() {
		t.Fatalf("identical edits should merge cleanly:\n%s", res.Merged)
	}
	if string(res.Merged) != side {
		t.Errorf("merged = %q, want %q", res.Merged, side)
	}
}

func TestMerge3_Conflict(t *testing.T) {
	base := "a\nb\nc\n"
	ours := "a\nours\nc\n"
	theirs := "a\ntheirs\nc\n"

	res := Merge3([]byte(base), []byte(ours), []byte(theirs), Labels{Ours: "PARENT1", Theirs: "PARENT2"})
	if res.Conflicts != 1 {
		t.Fatalf("Conflicts = %d, want 1", res.Conflicts)
	}
	want := "a\n<<<<<<< PARENT1\nours\n=======\ntheirs\n>>>>>>> PARENT2\nc\n"
	if string(res.Merged) != want {
		t.Errorf("merged =\n%s\nwant\n%s", res.Merged, want)
	}
}

func TestMerge3_InsertionsShiftLaterRegions(t *testing.T) {
	base := "1\n2\n3\n4\n5\n6\n7\n8\n"
	ours := "0\n1\n2\n3\n4\n5\n6\n7\n8\n"
	theirs := "1\n2\n3\n4\n5\n6\n7\nEIGHT\n"

	res := Merge3([]byte(base), []byte(ours), []byte(theirs), Labels{})
	if res.HasConflicts() {
		t.Fatalf("unexpected conflicts:\n%s", res.Merged)
	}
	if got, want := string(res.Merged), "0\n1\n2\n3\n4\n5\n6\n7\nEIGHT\n"; got != want {
		t.Errorf("merged = %q, want %q", got, want)
	}
}

func TestMerge3_EmptyBase(t *testing.T) {
	res := Merge3(nil, []byte("x\n"), []byte("y\n"), Labels{})
	if res.Conflicts != 1 {
		t.Fatalf("Conflicts = %d, want 1", res.Conflicts)
	}
	if !strings.Contains(string(res.Merged), "<<<<<<< ours\nx\n=======\ny\n>>>>>>> theirs\n") {
		t.Errorf("unexpected merge output:\n%s", res.Merged)
	}
}
