package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"verba/pkg/config"
	"verba/pkg/storage"
)

// StatsCommand creates the stats command
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show database statistics",
		Action: func(ctx context.Context, c *cli.Command) error {
			return showStats(c.String("config"))
		},
	}
}

func showStats(configPath string) error {
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

	stats, err := store.Stats()
	if err != nil {
		return fmt.Errorf("getting stats: %w", err)
	}

	p := message.NewPrinter(language.English)
	fmt.Println(titleStyle.Render("verba storage"))
	p.Printf("  records:     %d\n", stats.Records)
	p.Printf("  playlists:   %d\n", stats.Playlists)
	p.Printf("  with audio:  %d\n", stats.WithAudio)
	fmt.Printf("  database:    %s\n", cfg.DatabasePath)
	return nil
}
