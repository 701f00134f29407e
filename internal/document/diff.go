package document

import "strings"

// maxDiffLines bounds the Myers search. Larger changes are replaced as one
// hunk after trimming common lines.
const maxDiffLines = 1000

// hunk replaces bytes [start, end) of the old text with text.
type hunk struct {
	start ByteOffset
	end   ByteOffset
	text  string
}

// diffOp is one step of a line edit script.
type diffOp uint8

const (
	opEqual diffOp = iota
	opInsert
	opDelete
)

// lineDiff returns the hunks turning oldText into newText, in ascending
// order of old offsets. Lines keep their trailing newline.
func lineDiff(oldText, newText string) []hunk {
	if oldText == newText {
		return nil
	}
	oldLines := strings.SplitAfter(oldText, "\n")
	newLines := strings.SplitAfter(newText, "\n")

	// Trim common prefix and suffix lines.
	prefix := 0
	for prefix < len(oldLines) && prefix < len(newLines) && oldLines[prefix] == newLines[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(oldLines)-prefix && suffix < len(newLines)-prefix &&
		oldLines[len(oldLines)-1-suffix] == newLines[len(newLines)-1-suffix] {
		suffix++
	}

	var base ByteOffset
	for _, l := range oldLines[:prefix] {
		base += ByteOffset(len(l))
	}
	oldMid := oldLines[prefix : len(oldLines)-suffix]
	newMid := newLines[prefix : len(newLines)-suffix]

	if len(oldMid)+len(newMid) > maxDiffLines {
		return []hunk{{
			start: base,
			end:   base + ByteOffset(joinedLen(oldMid)),
			text:  strings.Join(newMid, ""),
		}}
	}
	return buildHunks(oldMid, newMid, myers(oldMid, newMid), base)
}

func joinedLen(lines []string) int {
	n := 0
	for _, l := range lines {
		n += len(l)
	}
	return n
}

// buildHunks groups consecutive non-equal operations into hunks.
func buildHunks(oldLines, newLines []string, ops []diffOp, base ByteOffset) []hunk {
	var hunks []hunk
	offset := base
	oi, ni := 0, 0

	for i := 0; i < len(ops); {
		if ops[i] == opEqual {
			offset += ByteOffset(len(oldLines[oi]))
			oi++
			ni++
			i++
			continue
		}

		h := hunk{start: offset, end: offset}
		var sb strings.Builder
		for ; i < len(ops) && ops[i] != opEqual; i++ {
			if ops[i] == opDelete {
				h.end += ByteOffset(len(oldLines[oi]))
				oi++
			} else {
				sb.WriteString(newLines[ni])
				ni++
			}
		}
		h.text = sb.String()
		offset = h.end
		hunks = append(hunks, h)
	}
	return hunks
}

// myers computes a shortest line edit script with the Myers algorithm.
func myers(a, b []string) []diffOp {
	n, m := len(a), len(b)
	if n == 0 && m == 0 {
		return nil
	}

	maxD := n + m
	off := maxD
	v := make([]int, 2*maxD+2)
	var trace [][]int

search:
	for d := 0; d <= maxD; d++ {
		trace = append(trace, append([]int(nil), v...))
		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[off+k-1] < v[off+k+1]) {
				x = v[off+k+1]
			} else {
				x = v[off+k-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[off+k] = x
			if x >= n && y >= m {
				break search
			}
		}
	}

	// Walk the trace backwards from (n, m).
	var ops []diffOp
	x, y := n, m
	for d := len(trace) - 1; d > 0; d-- {
		vd := trace[d]
		k := x - y
		var prevK int
		if k == -d || (k != d && vd[off+k-1] < vd[off+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := vd[off+prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			ops = append(ops, opEqual)
			x--
			y--
		}
		if x > prevX {
			ops = append(ops, opDelete)
			x--
		} else {
			ops = append(ops, opInsert)
			y--
		}
	}
	for x > 0 && y > 0 {
		ops = append(ops, opEqual)
		x--
		y--
	}

	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}
	return ops
}
