package rope

// Chunk size bounds for leaf text.
const (
	// MinChunkSize is the size below which adjacent chunks are merged.
	MinChunkSize = 128

	// MaxChunkSize is the maximum bytes per chunk.
	MaxChunkSize = 256

	// TargetChunkSize is the preferred chunk size when splitting long text.
	TargetChunkSize = (MinChunkSize + MaxChunkSize) / 2
)

// chunk is an immutable piece of text stored in the tree.
type chunk struct {
	text    string
	summary TextSummary
}

func newChunk(s string) chunk {
	return chunk{text: s, summary: Summarize(s)}
}

// Summary implements sumtree.Item.
func (c chunk) Summary() TextSummary {
	return c.summary
}

// split divides the chunk at a byte offset on a UTF-8 boundary.
func (c chunk) split(offset int) (chunk, chunk) {
	return newChunk(c.text[:offset]), newChunk(c.text[offset:])
}

// splitIntoChunks cuts s into chunks no larger than MaxChunkSize.
func splitIntoChunks(s string) []chunk {
	if len(s) == 0 {
		return nil
	}

	chunks := make([]chunk, 0, len(s)/TargetChunkSize+1)
	for len(s) > MaxChunkSize {
		at := chunkBoundary(s, TargetChunkSize)
		chunks = append(chunks, newChunk(s[:at]))
		s = s[at:]
	}
	return append(chunks, newChunk(s))
}

// chunkBoundary finds a split point near target, preferring the position
// just after a newline and never splitting a UTF-8 sequence.
func chunkBoundary(s string, target int) int {
	lo := max(target-MinChunkSize/4, 1)
	hi := min(target+MinChunkSize/4, len(s)-1)

	for i := target; i < hi; i++ {
		if s[i] == '\n' {
			return i + 1
		}
	}
	for i := target - 1; i >= lo; i-- {
		if s[i] == '\n' {
			return i + 1
		}
	}

	at := target
	for at > 0 && !isRuneStart(s[at]) {
		at--
	}
	if at == 0 {
		at = target
		for at < len(s) && !isRuneStart(s[at]) {
			at++
		}
	}
	return at
}

// isRuneStart reports whether b starts a UTF-8 sequence.
func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
