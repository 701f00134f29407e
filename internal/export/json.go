package export

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/dshills/multibuffer/internal/multibuffer"
)

// ExcerptRecord is the JSON form of one excerpt.
type ExcerptRecord struct {
	Path string `json:"path"`
	Doc  string `json:"doc"`

	// Start and End delimit the excerpt in its document.
	Start int64 `json:"start"`
	End   int64 `json:"end"`

	// FirstLine and LastLine are 1-indexed.
	FirstLine uint32 `json:"first_line"`
	LastLine  uint32 `json:"last_line"`

	// Offset is where the excerpt's text begins in the composed view.
	Offset int64 `json:"offset"`

	Header bool `json:"header"`
	Empty  bool `json:"empty,omitempty"`
}

// Records describes the excerpts of snap in order.
func Records(snap *multibuffer.Snapshot) []ExcerptRecord {
	records := make([]ExcerptRecord, 0, snap.ExcerptCount())
	for info := range snap.Excerpts() {
		doc, _ := snap.Document(info.Doc)
		last := max(info.Offsets.End-1, info.Offsets.Start)
		records = append(records, ExcerptRecord{
			Path:      info.Path,
			Doc:       info.Doc.String(),
			Start:     info.Offsets.Start,
			End:       info.Offsets.End,
			FirstLine: doc.OffsetToPoint(info.Offsets.Start).Line + 1,
			LastLine:  doc.OffsetToPoint(last).Line + 1,
			Offset:    info.Start,
			Header:    info.HasHeader,
			Empty:     info.Empty,
		})
	}
	return records
}

// WriteJSON writes the excerpt records of snap as an indented JSON array.
func WriteJSON(w io.Writer, snap *multibuffer.Snapshot) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Records(snap))
}
