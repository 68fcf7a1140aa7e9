package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"verba/pkg/config"
	"verba/pkg/query"
	"verba/pkg/storage"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Padding(0, 1)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search transcripts from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "query",
				Usage: "Search phrase",
			},
			&cli.StringSliceFlag{
				Name:  "playlist",
				Usage: "Restrict to a playlist (repeatable)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results",
				Value: 10,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return searchRecords(c.String("config"), c.String("query"), c.StringSlice("playlist"), c.Int("limit"))
		},
	}
}

func searchRecords(configPath, text string, playlists []string, limit int) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := storage.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	pred := query.Compile(text, playlists)

	total, err := store.Count(pred)
	if err != nil {
		return fmt.Errorf("counting records: %w", err)
	}

	records, err := store.FetchPage(pred, "id", "asc", limit, 0)
	if err != nil {
		return fmt.Errorf("fetching records: %w", err)
	}

	if len(records) == 0 {
		fmt.Println(noDataStyle.Render("No matching transcripts."))
		return nil
	}

	fmt.Printf("Showing %d of %d matching records\n\n", len(records), total)
	for _, r := range records {
		header := r.ID
		if r.Title != "" {
			header += " - " + r.Title
		}
		fmt.Println(titleStyle.Render(header))
		fmt.Println(metaStyle.Render(fmt.Sprintf("playlist: %s  timing: %.2fs", r.Playlist, r.Timing)))
		fmt.Println(strings.TrimSpace(r.Transcript))
		fmt.Println()
	}

	return nil
}
