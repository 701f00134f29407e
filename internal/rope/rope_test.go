package rope

import (
	"math/rand/v2"
	"strings"
	"testing"
)

func TestZeroRope(t *testing.T) {
	var r Rope
	if r.Len() != 0 {
		t.Errorf("zero rope should have length 0, got %d", r.Len())
	}
	if !r.IsEmpty() {
		t.Error("zero rope should be empty")
	}
	if r.String() != "" {
		t.Errorf("zero rope String() should be empty, got %q", r.String())
	}
	if r.LineCount() != 1 {
		t.Errorf("zero rope should have 1 line, got %d", r.LineCount())
	}
}

func TestFromString(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"single char", "a"},
		{"with newline", "hello\nworld"},
		{"unicode", "hello 世界 🌍"},
		{"long string", strings.Repeat("abcdefghij", 100)},
		{"long lines", strings.Repeat("abcdefghij\n", 500)},
		{"long unicode", strings.Repeat("世界", 400)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromString(tt.input)
			if got := r.String(); got != tt.input {
				t.Errorf("String() = %q, want %q", got, tt.input)
			}
			if r.Len() != ByteOffset(len(tt.input)) {
				t.Errorf("Len() = %d, want %d", r.Len(), len(tt.input))
			}
			if r.Summary() != Summarize(tt.input) {
				t.Errorf("Summary() = %+v, want %+v", r.Summary(), Summarize(tt.input))
			}
			if err := r.Check(); err != nil {
				t.Fatalf("Check() = %v", err)
			}
		})
	}
}

func TestInsert(t *testing.T) {
	tests := []struct {
		name     string
		initial  string
		offset   ByteOffset
		text     string
		expected string
	}{
		{"insert at start", "world", 0, "hello ", "hello world"},
		{"insert at end", "hello", 5, " world", "hello world"},
		{"insert in middle", "helloworld", 5, " ", "hello world"},
		{"insert into empty", "", 0, "hello", "hello"},
		{"insert empty string", "hello", 3, "", "hello"},
		{"insert past end clamps", "hello", 99, "!", "hello!"},
		{"insert at unicode boundary", "世界", 3, "!", "世!界"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromString(tt.initial).Insert(tt.offset, tt.text)
			if got := r.String(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDeleteReplace(t *testing.T) {
	r := FromString("hello, world")

	if got := r.Delete(5, 7).String(); got != "helloworld" {
		t.Errorf("Delete = %q", got)
	}
	if got := r.Delete(7, 5).String(); got != "hello, world" {
		t.Errorf("inverted Delete = %q", got)
	}
	if got := r.Replace(7, 12, "rope").String(); got != "hello, rope" {
		t.Errorf("Replace = %q", got)
	}
	if got := r.String(); got != "hello, world" {
		t.Errorf("original modified: %q", got)
	}
}

func TestSlice(t *testing.T) {
	text := strings.Repeat("0123456789", 100)
	r := FromString(text)

	tests := []struct {
		start, end ByteOffset
	}{
		{0, 0}, {0, 10}, {5, 500}, {250, 260}, {990, 1000}, {0, 1000},
	}
	for _, tt := range tests {
		if got := r.Slice(tt.start, tt.end); got != text[tt.start:tt.end] {
			t.Errorf("Slice(%d, %d) = %q", tt.start, tt.end, got)
		}
		if got := r.SummaryForRange(tt.start, tt.end); got != Summarize(text[tt.start:tt.end]) {
			t.Errorf("SummaryForRange(%d, %d) = %+v", tt.start, tt.end, got)
		}
	}
}

func TestLines(t *testing.T) {
	text := "first\nsecond line\n\nfourth"
	r := FromString(text)

	if r.LineCount() != 4 {
		t.Fatalf("LineCount() = %d, want 4", r.LineCount())
	}

	want := []string{"first", "second line", "", "fourth"}
	for i, w := range want {
		if got := r.LineText(uint32(i)); got != w {
			t.Errorf("LineText(%d) = %q, want %q", i, got, w)
		}
	}
	if got := r.LineStartOffset(10); got != r.Len() {
		t.Errorf("LineStartOffset past end = %d", got)
	}
}

func TestPointConversion(t *testing.T) {
	text := strings.Repeat("line of text\n", 100) + "tail"
	r := FromString(text)

	for off := ByteOffset(0); off <= r.Len(); off += 7 {
		p := r.OffsetToPoint(off)
		wantLine := uint32(strings.Count(text[:off], "\n"))
		wantCol := uint32(off) - uint32(strings.LastIndexByte(text[:off], '\n')+1)
		if p.Line != wantLine || p.Column != wantCol {
			t.Fatalf("OffsetToPoint(%d) = %+v, want {%d %d}", off, p, wantLine, wantCol)
		}
		if back := r.PointToOffset(p); back != off {
			t.Fatalf("PointToOffset(%+v) = %d, want %d", p, back, off)
		}
	}

	if got := r.PointToOffset(Point{Line: 0, Column: 99}); got != 12 {
		t.Errorf("column past line end = %d, want 12", got)
	}
}

func TestSummaryAdd(t *testing.T) {
	parts := []string{"ab", "c\nde", "", "\tf\n", "世界", "\n", "xyz"}
	var sum TextSummary
	var whole string
	for _, p := range parts {
		sum = sum.Add(Summarize(p))
		whole += p
	}
	if sum != Summarize(whole) {
		t.Errorf("Add = %+v, want %+v", sum, Summarize(whole))
	}
	if sum.Flags&FlagASCII != 0 {
		t.Error("non-ASCII text flagged ASCII")
	}
	if sum.Flags&FlagHasTabs == 0 || sum.Flags&FlagHasNewlines == 0 {
		t.Errorf("flags = %b", sum.Flags)
	}
}

func TestRandomEdits(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	alphabet := "abc\nde"

	var ref string
	var r Rope
	for i := 0; i < 500; i++ {
		start := rng.IntN(len(ref) + 1)
		end := start + rng.IntN(len(ref)-start+1)
		var sb strings.Builder
		for range rng.IntN(300) {
			sb.WriteByte(alphabet[rng.IntN(len(alphabet))])
		}
		text := sb.String()

		r = r.Replace(ByteOffset(start), ByteOffset(end), text)
		ref = ref[:start] + text + ref[end:]

		if r.Len() != ByteOffset(len(ref)) {
			t.Fatalf("iteration %d: Len() = %d, want %d", i, r.Len(), len(ref))
		}
		if err := r.Check(); err != nil {
			t.Fatalf("iteration %d: Check() = %v", i, err)
		}
	}
	if r.String() != ref {
		t.Fatal("rope text diverged from reference")
	}
	if r.Summary() != Summarize(ref) {
		t.Fatalf("Summary() = %+v, want %+v", r.Summary(), Summarize(ref))
	}
}

func BenchmarkInsert(b *testing.B) {
	r := FromString(strings.Repeat("hello world\n", 10000))
	for i := 0; b.Loop(); i++ {
		_ = r.Insert(ByteOffset(i%100000), "x")
	}
}
