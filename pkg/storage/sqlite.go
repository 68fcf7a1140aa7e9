package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"verba/pkg/core"
	"verba/pkg/query"
)

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// sortExpr maps allow-listed sort column names to physical column
// expressions. Storage re-validates against this map even though the filter
// layer already coerced the value; unknown names order by id.
var sortExpr = map[string]string{
	"id":         "r.id",
	"playlist":   "r.playlist",
	"title":      "r.title",
	"timing":     "r.timing",
	"transcript": "r.transcript",
	"pos_tags":   "r.pos_tags",
	"audio":      "r.audio",
}

const recordColumns = "r.id, r.playlist, r.title, r.timing, r.transcript, r.pos_tags, r.audio"

// NewSQLiteStore opens (creating if needed) the database at dbPath, applies
// performance pragmas and pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA temp_store = memory",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Count(p *query.Predicate) (int, error) {
	sqlQuery := "SELECT COUNT(*) FROM records r " + p.Where()

	var total int
	if err := s.db.QueryRow(sqlQuery, p.Args()...).Scan(&total); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return total, nil
}

func (s *SQLiteStore) FetchPage(p *query.Predicate, sortColumn, direction string, limit, offset int) ([]core.Record, error) {
	expr, ok := sortExpr[sortColumn]
	if !ok {
		expr = sortExpr["id"]
	}
	if direction != "desc" {
		direction = "asc"
	}

	sqlQuery := fmt.Sprintf(
		"SELECT %s FROM records r %s ORDER BY %s %s LIMIT ? OFFSET ?",
		recordColumns, p.Where(), expr, direction)

	args := append(p.Args(), limit, offset)
	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer closeRows(rows)

	records := []core.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func (s *SQLiteStore) ForEach(p *query.Predicate, fn func(core.Record) error) error {
	sqlQuery := fmt.Sprintf("SELECT %s FROM records r %s ORDER BY r.id", recordColumns, p.Where())

	rows, err := s.db.Query(sqlQuery, p.Args()...)
	if err != nil {
		return fmt.Errorf("querying records: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return err
		}
		if err := fn(record); err != nil {
			return err
		}
	}

	return rows.Err()
}

func (s *SQLiteStore) AudioURLs(p *query.Predicate) ([]string, error) {
	cond := "r.audio IS NOT NULL AND r.audio != ''"
	var where string
	if p.Empty() {
		where = "WHERE " + cond
	} else {
		where = p.Where() + " AND " + cond
	}

	sqlQuery := "SELECT DISTINCT r.audio FROM records r " + where + " ORDER BY r.audio"
	rows, err := s.db.Query(sqlQuery, p.Args()...)
	if err != nil {
		return nil, fmt.Errorf("querying audio urls: %w", err)
	}
	defer closeRows(rows)

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scanning audio url: %w", err)
		}
		urls = append(urls, u)
	}

	return urls, rows.Err()
}

func (s *SQLiteStore) AudioURL(id string) (string, error) {
	var audio sql.NullString
	err := s.db.QueryRow("SELECT audio FROM records WHERE id = ?", id).Scan(&audio)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying audio url for %s: %w", id, err)
	}
	if !audio.Valid || audio.String == "" {
		return "", ErrNotFound
	}
	return audio.String, nil
}

func (s *SQLiteStore) Playlists() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT playlist FROM records
		WHERE playlist IS NOT NULL AND playlist != ''
		ORDER BY playlist
	`)
	if err != nil {
		return nil, fmt.Errorf("querying playlists: %w", err)
	}
	defer closeRows(rows)

	playlists := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning playlist: %w", err)
		}
		playlists = append(playlists, name)
	}

	return playlists, rows.Err()
}

func (s *SQLiteStore) InsertRecords(records []core.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO records (id, playlist, title, timing, transcript, pos_tags, audio)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	ftsStmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO records_fts (rowid, transcript, pos_tags)
		VALUES ((SELECT rowid FROM records WHERE id = ?), ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing FTS statement: %w", err)
	}
	defer func() {
		_ = ftsStmt.Close()
	}()

	for _, r := range records {
		if _, err := stmt.Exec(r.ID, r.Playlist, r.Title, r.Timing, r.Transcript, r.PosTags, nullable(r.Audio)); err != nil {
			return fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
		if _, err := ftsStmt.Exec(r.ID, r.Transcript, r.PosTags); err != nil {
			return fmt.Errorf("inserting record %s into FTS: %w", r.ID, err)
		}
	}

	err = tx.Commit()
	if err == nil {
		committed = true
	}
	return err
}

func (s *SQLiteStore) Stats() (Stats, error) {
	var stats Stats

	if err := s.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&stats.Records); err != nil {
		return stats, fmt.Errorf("counting records: %w", err)
	}
	if err := s.db.QueryRow(
		"SELECT COUNT(DISTINCT playlist) FROM records WHERE playlist IS NOT NULL AND playlist != ''",
	).Scan(&stats.Playlists); err != nil {
		return stats, fmt.Errorf("counting playlists: %w", err)
	}
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM records WHERE audio IS NOT NULL AND audio != ''",
	).Scan(&stats.WithAudio); err != nil {
		return stats, fmt.Errorf("counting records with audio: %w", err)
	}

	return stats, nil
}

// Optimize runs SQLite maintenance after bulk imports.
func (s *SQLiteStore) Optimize() error {
	for _, stmt := range []string{"PRAGMA optimize", "ANALYZE"} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("running %s: %w", strings.ToLower(stmt), err)
		}
	}
	return nil
}

func scanRecord(rows *sql.Rows) (core.Record, error) {
	var r core.Record
	var playlist, title, transcript, posTags, audio sql.NullString
	var timing sql.NullFloat64

	if err := rows.Scan(&r.ID, &playlist, &title, &timing, &transcript, &posTags, &audio); err != nil {
		return r, fmt.Errorf("scanning record: %w", err)
	}

	r.Playlist = playlist.String
	r.Title = title.String
	r.Timing = timing.Float64
	r.Transcript = transcript.String
	r.PosTags = posTags.String
	r.Audio = audio.String
	return r, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func closeRows(rows *sql.Rows) {
	_ = rows.Close()
}
