// Package export serializes filtered record sets to CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"verba/pkg/core"
	"verba/pkg/query"
	"verba/pkg/storage"
)

// Exporter writes the full (unpaginated) result set of a predicate as CSV.
type Exporter struct {
	store storage.Store
}

func NewExporter(store storage.Store) *Exporter {
	return &Exporter{store: store}
}

// Export streams every record matching the predicate to w as UTF-8 CSV with
// a header row, in the canonical column order (id, playlist, title, timing,
// transcript, pos_tags, audio). Rows flow from the store's cursor straight
// through the CSV writer, so memory use is bounded by a single row plus the
// writer's buffer regardless of result set size.
func (e *Exporter) Export(w io.Writer, p *query.Predicate) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(core.Columns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	err := e.store.ForEach(p, func(r core.Record) error {
		row := []string{
			r.ID,
			r.Playlist,
			r.Title,
			strconv.FormatFloat(r.Timing, 'f', -1, 64),
			r.Transcript,
			r.PosTags,
			r.Audio,
		}
		return cw.Write(row)
	})
	if err != nil {
		return fmt.Errorf("exporting records: %w", err)
	}

	cw.Flush()
	return cw.Error()
}
