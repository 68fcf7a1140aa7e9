package cmd

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"

	"verba/pkg/api"
	"verba/pkg/config"
	"verba/pkg/log"
	"verba/pkg/storage"
)

//go:embed static/*
var staticFS embed.FS

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP server with the API and web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind to",
				Value: "localhost",
			},
			&cli.StringFlag{
				Name:  "port",
				Usage: "Port to listen on",
				Value: "8080",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("config"), c.String("host"), c.String("port"))
		},
	}
}

func serve(ctx context.Context, configPath, host, port string) error {
	logger := log.ForService("serve")

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

	apiServer := api.NewServer(store, cfg.Audio)

	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)
	registerStatic(mux, cfg.StaticDir)

	handler := api.CorsMiddleware(mux)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", host, port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on http://%s:%s", host, port)
		logger.Infof("  GET /data - paginated, filtered records")
		logger.Infof("  GET /playlists - distinct playlist names")
		logger.Infof("  GET /audio/{id} - audio URL for a record")
		logger.Infof("  GET /download/csv - filtered records as CSV")
		logger.Infof("  GET /download/mp3zip - filtered audio as zip")
		logger.Infof("  GET /health - health check")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Watch the config file so audio tunables apply without a restart.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("creating config watcher: %v", err)
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				logger.Warnf("closing config watcher: %v", err)
			}
		}()
		if err := watcher.Add(configPath); err != nil {
			logger.Warnf("watching config file %s: %v", configPath, err)
		} else {
			logger.Infof("watching config file for changes: %s", configPath)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case err := <-errCh:
			return fmt.Errorf("server failed: %w", err)
		case <-sigCh:
			logger.Infof("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case event, ok := <-watcherEvents(watcher):
			if !ok {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				// Editors often replace files atomically; small delay so the
				// new file is fully written, then re-add the watch.
				time.Sleep(100 * time.Millisecond)
				if event.Has(fsnotify.Rename) {
					if err := watcher.Add(configPath); err != nil {
						logger.Warnf("re-adding config watch: %v", err)
					}
				}
				newCfg, err := config.LoadConfig(configPath)
				if err != nil {
					logger.Warnf("reloading config: %v", err)
					continue
				}
				apiServer.SetAudioSettings(newCfg.Audio)
				logger.Infof("reloaded audio settings: timeout=%s concurrency=%d",
					newCfg.Audio.FetchTimeout, newCfg.Audio.Concurrency)
			}
		case err, ok := <-watcherErrors(watcher):
			if !ok {
				continue
			}
			logger.Warnf("config watcher error: %v", err)
		}
	}
}

// registerStatic serves the web UI: a directory when configured, otherwise
// the embedded assets.
func registerStatic(mux *http.ServeMux, staticDir string) {
	if staticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(staticDir)))
		return
	}

	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// static/ is embedded at build time; this cannot fail at runtime.
		panic(err)
	}
	mux.Handle("GET /", http.FileServer(http.FS(sub)))
}

// watcherEvents and watcherErrors tolerate a nil watcher so the select loop
// stays flat when watching could not be set up.
func watcherEvents(w *fsnotify.Watcher) chan fsnotify.Event {
	if w == nil {
		return nil
	}
	return w.Events
}

func watcherErrors(w *fsnotify.Watcher) chan error {
	if w == nil {
		return nil
	}
	return w.Errors
}
