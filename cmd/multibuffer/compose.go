package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/multibuffer/internal/config"
	"github.com/dshills/multibuffer/internal/document"
	"github.com/dshills/multibuffer/internal/multibuffer"
	"github.com/dshills/multibuffer/internal/workspace"
)

// parseSpec parses a command line excerpt: "path" for a whole file or
// "path:first-last" for a line range (1-indexed, inclusive).
func parseSpec(spec string) (config.ExcerptConfig, error) {
	i := strings.LastIndexByte(spec, ':')
	if i < 0 {
		return config.ExcerptConfig{Path: spec, Bytes: [][]int64{{0, -1}}}, nil
	}
	path, lines := spec[:i], spec[i+1:]

	first, last, ok := strings.Cut(lines, "-")
	if !ok {
		last = first
	}
	a, err := strconv.ParseInt(first, 10, 64)
	if err != nil {
		return config.ExcerptConfig{}, fmt.Errorf("excerpt %q: bad first line: %w", spec, err)
	}
	b, err := strconv.ParseInt(last, 10, 64)
	if err != nil {
		return config.ExcerptConfig{}, fmt.Errorf("excerpt %q: bad last line: %w", spec, err)
	}
	if a < 1 || b < a {
		return config.ExcerptConfig{}, fmt.Errorf("excerpt %q: line range must satisfy 1 <= first <= last", spec)
	}
	return config.ExcerptConfig{Path: path, Lines: [][]int64{{a, b}}}, nil
}

// excerptRanges turns one manifest entry into anchored ranges of doc.
// Byte ends of -1 mean the end of the document.
func excerptRanges(doc *document.Document, ec config.ExcerptConfig) []multibuffer.ExcerptRange {
	snap := doc.Snapshot()
	var ranges []multibuffer.ExcerptRange
	for _, r := range ec.Bytes {
		end := r[1]
		if end < 0 {
			end = snap.Len()
		}
		ranges = append(ranges, multibuffer.ExcerptRange{Document: doc, Range: doc.Range(r[0], end)})
	}
	for _, r := range ec.Lines {
		start := snap.LineStartOffset(uint32(r[0] - 1))
		end := snap.LineStartOffset(uint32(r[1]))
		ranges = append(ranges, multibuffer.ExcerptRange{Document: doc, Range: doc.Range(start, end)})
	}
	return ranges
}

// compose opens every file the manifest names and inserts its excerpts.
func compose(ctx context.Context, ws *workspace.Workspace, mb *multibuffer.MultiBuffer, entries []config.ExcerptConfig) error {
	paths := make([]string, len(entries))
	for i, ec := range entries {
		paths[i] = ec.Path
	}
	docs, err := ws.OpenAll(ctx, paths)
	if err != nil {
		return err
	}

	var ranges []multibuffer.ExcerptRange
	for i, ec := range entries {
		ranges = append(ranges, excerptRanges(docs[i], ec)...)
	}
	mb.InsertExcerpts(ranges)
	return nil
}

// render formats a snapshot. With headers, every excerpt that starts a new
// block is introduced by its path and line range instead of a bare newline.
func render(snap *multibuffer.Snapshot, headers bool) string {
	if !headers {
		return snap.Text()
	}

	var sb strings.Builder
	for info := range snap.Excerpts() {
		doc, _ := snap.Document(info.Doc)
		if info.HasHeader {
			first := doc.OffsetToPoint(info.Offsets.Start).Line + 1
			last := doc.OffsetToPoint(max(info.Offsets.End-1, info.Offsets.Start)).Line + 1
			path := info.Path
			if path == "" {
				path = "(untitled)"
			}
			fmt.Fprintf(&sb, "\n==> %s:%d-%d <==\n", path, first, last)
		}
		sb.WriteString(doc.Slice(info.Offsets.Start, info.Offsets.End))
	}
	return sb.String()
}
