// Package storage provides the record store backing the verba API: a single
// fixed-schema transcript table in SQLite with an FTS5 index over the
// transcript and pos_tags columns.
package storage

import (
	"errors"

	"verba/pkg/core"
	"verba/pkg/query"
)

// ErrNotFound is returned by lookups that match no row, or a row whose
// requested attribute is empty.
var ErrNotFound = errors.New("record not found")

// Store is the read-mostly record store the query/export core depends on.
// Implementations own connection lifetime and concurrency safety; callers
// never share connection state across requests.
//
// Count and FetchPage are always called with the same compiled predicate
// within one request, so the reported total and the returned page reflect
// the identical filter.
type Store interface {
	// Count returns the number of rows matching the predicate.
	Count(p *query.Predicate) (int, error)

	// FetchPage returns up to limit matching rows starting at offset,
	// ordered by the given allow-listed sort column and direction. An
	// offset past the end of the result set yields an empty slice, not an
	// error. Tie order among equal sort keys follows SQLite row order and
	// is not guaranteed stable across calls.
	FetchPage(p *query.Predicate, sortColumn, direction string, limit, offset int) ([]core.Record, error)

	// ForEach streams every matching row in canonical id order to fn,
	// stopping on the first error fn returns. Used by the CSV export so
	// large result sets never materialize in memory.
	ForEach(p *query.Predicate, fn func(core.Record) error) error

	// AudioURLs returns the distinct, non-empty audio URLs of all matching
	// rows, sorted.
	AudioURLs(p *query.Predicate) ([]string, error)

	// AudioURL returns the audio URL for the record with the given id.
	// Returns ErrNotFound when the row is absent or its audio is empty.
	AudioURL(id string) (string, error)

	// Playlists returns the sorted distinct non-empty playlist names.
	Playlists() ([]string, error)

	// InsertRecords writes a batch of records and their FTS rows in one
	// transaction. Only the importer uses this; the HTTP surface is
	// read-only.
	InsertRecords(records []core.Record) error

	// Stats returns storage counters for the stats command.
	Stats() (Stats, error)

	Close() error
}

// Stats summarizes the stored dataset.
type Stats struct {
	Records   int
	Playlists int
	WithAudio int
}
