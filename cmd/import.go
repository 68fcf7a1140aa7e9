package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"verba/pkg/config"
	"verba/pkg/core"
	"verba/pkg/log"
	"verba/pkg/storage"
)

const importBatchSize = 500

// columnAliases maps physical CSV header names to canonical attributes.
// Source datasets drifted across iterations ("ID" vs "id", "timing" vs
// "timing (sec.)"); the importer normalizes them all to one schema.
var columnAliases = map[string]string{
	"id":            "id",
	"playlist":      "playlist",
	"title":         "title",
	"timing":        "timing",
	"timing (sec.)": "timing",
	"transcript":    "transcript",
	"pos_tags":      "pos_tags",
	"audio":         "audio",
}

// ImportCommand creates the import command
func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Load a transcript CSV into the database",
		ArgsUsage: "<file.csv>",
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one CSV file argument")
			}
			return importCSV(c.String("config"), c.Args().First())
		},
	}
}

func importCSV(configPath, csvPath string) error {
	logger := log.ForService("import")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := storage.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warnf("closing store: %v", err)
		}
	}()

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("opening CSV file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	batchID := uuid.New().String()
	logger.Infof("import batch %s from %s", batchID, csvPath)

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading CSV header: %w", err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return err
	}

	var batch []core.Record
	total := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.InsertRecords(batch); err != nil {
			return fmt.Errorf("inserting batch: %w", err)
		}
		total += len(batch)
		logger.Debugf("batch %s: %d records so far", batchID, total)
		batch = batch[:0]
		return nil
	}

	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading CSV line %d: %w", line+1, err)
		}
		line++

		record, err := rowToRecord(row, index)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		batch = append(batch, record)

		if len(batch) >= importBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if err := store.Optimize(); err != nil {
		logger.Warnf("optimizing database: %v", err)
	}

	fmt.Printf("Imported %d records into %s\n", total, cfg.DatabasePath)
	return nil
}

// columnIndex resolves the canonical attribute position of every known
// header column. id and transcript are required; the rest default to empty.
func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int)
	for i, name := range header {
		canonical, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		index[canonical] = i
	}

	for _, required := range []string{"id", "transcript"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("CSV header is missing required column %q", required)
		}
	}

	return index, nil
}

func rowToRecord(row []string, index map[string]int) (core.Record, error) {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	record := core.Record{
		ID:         get("id"),
		Playlist:   get("playlist"),
		Title:      get("title"),
		Transcript: get("transcript"),
		PosTags:    get("pos_tags"),
		Audio:      get("audio"),
	}

	if record.ID == "" {
		return record, fmt.Errorf("empty record id")
	}

	if raw := get("timing"); raw != "" {
		timing, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return record, fmt.Errorf("invalid timing %q: %w", raw, err)
		}
		record.Timing = timing
	}

	return record, nil
}
