package rope

import "unicode/utf8"

// ByteOffset is an absolute byte position in a text.
type ByteOffset = int64

// Point is a 0-indexed line/column position. Column counts bytes.
type Point struct {
	Line   uint32
	Column uint32
}

// Compare orders points by line, then column.
func (p Point) Compare(other Point) int {
	switch {
	case p.Line < other.Line:
		return -1
	case p.Line > other.Line:
		return 1
	case p.Column < other.Column:
		return -1
	case p.Column > other.Column:
		return 1
	}
	return 0
}

// TextSummary holds aggregated metrics for a span of text.
// Summaries form a monoid under Add; the zero value is the identity.
type TextSummary struct {
	Bytes      ByteOffset
	UTF16Units int64
	Lines      uint32 // newline count

	// Line lengths are in bytes and exclude the newline. FirstLineLen is
	// the span's text before its first newline, LastLineLen the text after
	// its last one.
	LongestLine  uint32
	FirstLineLen uint32
	LastLineLen  uint32

	Flags TextFlags
}

// TextFlags describe text properties used for fast paths.
type TextFlags uint8

const (
	// FlagASCII indicates all characters are ASCII.
	FlagASCII TextFlags = 1 << iota

	// FlagHasNewlines indicates the text contains a newline.
	FlagHasNewlines

	// FlagHasTabs indicates the text contains a tab.
	FlagHasTabs
)

// Add concatenates two summaries.
func (s TextSummary) Add(other TextSummary) TextSummary {
	if s.Bytes == 0 {
		return other
	}
	if other.Bytes == 0 {
		return s
	}

	result := TextSummary{
		Bytes:      s.Bytes + other.Bytes,
		UTF16Units: s.UTF16Units + other.UTF16Units,
		Lines:      s.Lines + other.Lines,
		Flags:      (s.Flags & other.Flags & FlagASCII) | ((s.Flags | other.Flags) &^ FlagASCII),
	}

	if other.Lines > 0 {
		result.LongestLine = max(s.LongestLine, other.LongestLine, s.LastLineLen+other.FirstLineLen)
		result.LastLineLen = other.LastLineLen
	} else {
		result.LongestLine = max(s.LongestLine, s.LastLineLen+other.LastLineLen)
		result.LastLineLen = s.LastLineLen + other.LastLineLen
	}
	if s.Lines > 0 {
		result.FirstLineLen = s.FirstLineLen
	} else {
		result.FirstLineLen = s.FirstLineLen + other.FirstLineLen
	}

	return result
}

// IsZero reports whether the summary describes empty text.
func (s TextSummary) IsZero() bool {
	return s.Bytes == 0
}

// Summarize computes the summary of s.
func Summarize(s string) TextSummary {
	if len(s) == 0 {
		return TextSummary{}
	}

	sum := TextSummary{
		Bytes: ByteOffset(len(s)),
		Flags: FlagASCII,
	}

	var lineLen uint32
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size

		if r > 0xFFFF {
			sum.UTF16Units += 2
		} else {
			sum.UTF16Units++
		}
		if r >= utf8.RuneSelf {
			sum.Flags &^= FlagASCII
		}

		switch r {
		case '\n':
			if sum.Lines == 0 {
				sum.FirstLineLen = lineLen
			}
			sum.Lines++
			sum.LongestLine = max(sum.LongestLine, lineLen)
			sum.Flags |= FlagHasNewlines
			lineLen = 0
			continue
		case '\t':
			sum.Flags |= FlagHasTabs
		}
		lineLen += uint32(size)
	}

	if sum.Lines == 0 {
		sum.FirstLineLen = lineLen
	}
	sum.LastLineLen = lineLen
	sum.LongestLine = max(sum.LongestLine, lineLen)
	return sum
}

// nthNewline returns the byte index of the nth newline (1-indexed) in s,
// or -1 if s holds fewer than n newlines.
func nthNewline(s string, n uint32) int {
	if n == 0 {
		return -1
	}
	var count uint32
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			count++
			if count == n {
				return i
			}
		}
	}
	return -1
}
