package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"verba/pkg/config"
	"verba/pkg/storage"
)

// PlaylistsCommand creates the playlists command
func PlaylistsCommand() *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List the distinct playlists in the database",
		Action: func(ctx context.Context, c *cli.Command) error {
			return listPlaylists(c.String("config"))
		},
	}
}

func listPlaylists(configPath string) error {
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

	playlists, err := store.Playlists()
	if err != nil {
		return fmt.Errorf("listing playlists: %w", err)
	}

	if len(playlists) == 0 {
		fmt.Println(noDataStyle.Render("No playlists. Run `verba import` first."))
		return nil
	}

	for _, name := range playlists {
		fmt.Println(name)
	}
	return nil
}
