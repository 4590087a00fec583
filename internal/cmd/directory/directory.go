// Package directory parses directory service flags and launches the service.
package directory

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	entrypoint "github.com/parleyhq/parley/internal/platform/cmd"
	"github.com/parleyhq/parley/internal/platform/timeouts"
	"github.com/parleyhq/parley/internal/services/directory/app"
	"github.com/parleyhq/parley/internal/services/directory/storage/sqlite"
)

// Config holds directory command configuration.
type Config struct {
	Port   int    `env:"PARLEY_DIRECTORY_PORT" envDefault:"8080"`
	DBPath string `env:"PARLEY_DIRECTORY_DB_PATH" envDefault:"directory.db"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The directory HTTP server port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the directory SQLite database")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the directory HTTP and websocket API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceDirectory, func(ctx context.Context) error {
		return serve(ctx, cfg)
	})
}

func serve(ctx context.Context, cfg Config) error {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	application, err := app.New(app.Options{Store: store})
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	tokenCfg, err := app.LoadTokenConfigFromEnv(time.Now)
	if err != nil {
		return fmt.Errorf("load token config: %w", err)
	}
	authenticator, err := app.NewTokenAuthenticator(tokenCfg)
	if err != nil {
		return fmt.Errorf("build authenticator: %w", err)
	}

	server, err := app.NewServer(application, authenticator)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	go application.RunInviteSweeper(ctx)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("directory listening on %s", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
