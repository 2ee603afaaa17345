// cmd/ingest/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/mwidjaja/procura/internal/config"
	"github.com/mwidjaja/procura/internal/ingest"
	"github.com/mwidjaja/procura/internal/repository"
	"github.com/mwidjaja/procura/internal/repository/memory"
	"github.com/mwidjaja/procura/internal/repository/postgres"
	"github.com/mwidjaja/procura/pkg/logger"
)

func main() {
	dir := flag.String("dir", "", "one-shot: ingest CSV exports from this directory, then exit")
	workers := flag.Int("workers", 4, "concurrent files in -dir mode")
	flag.Parse()

	cfg := config.Load()

	if *dir != "" {
		runLocal(cfg, *dir, *workers)
		return
	}

	credentials, err := driveCredentials(cfg.Ingest.CredentialsFile)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to read drive credentials")
	}
	driveClient, err := ingest.NewDriveClient(credentials)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to initialize drive client")
	}

	var history repository.HistoryRepository
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("database unavailable, ingesting into memory")
		history = memory.NewHistoryStore()
	} else {
		defer db.Close()
		if err := db.EnsureSchema(context.Background()); err != nil {
			logger.Log.Fatal().Err(err).Msg("failed to apply database schema")
		}
		history = postgres.NewHistoryRepository(db)
	}

	ingestor := ingest.NewIngestor(history)

	interval := time.Duration(cfg.Ingest.PollIntervalSeconds) * time.Second
	watcher := ingest.NewWatcher(driveClient, ingestor, cfg.Ingest.DriveFolderID, interval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	router := mux.NewRouter()
	handler := ingest.NewHandler(driveClient, ingestor, history, watcher, cfg.Ingest.DriveFolderID)
	handler.RegisterRoutes(router)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	addr := fmt.Sprintf(":%s", cfg.Ingest.Port)
	logger.Log.Info().
		Str("addr", addr).
		Str("folder", cfg.Ingest.DriveFolderID).
		Dur("poll_interval", interval).
		Msg("ingest server starting")
	if err := http.ListenAndServe(addr, router); err != nil {
		logger.Log.Fatal().Err(err).Msg("ingest server stopped")
	}
}

// runLocal ingests a directory of pulled exports straight into Postgres.
// There is no memory fallback here: a one-shot run that kept its rows in
// memory would throw them away on exit.
func runLocal(cfg *config.Config, dir string, workers int) {
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("local ingestion needs the database")
	}
	defer db.Close()
	if err := db.EnsureSchema(context.Background()); err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to apply database schema")
	}

	ingestor := ingest.NewIngestor(postgres.NewHistoryRepository(db))
	res, err := ingestor.IngestDir(context.Background(), dir, workers)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("local ingestion failed")
	}
	if res.Failed > 0 {
		logger.Log.Fatal().Int("failed", res.Failed).Msg("some exports failed to ingest")
	}
}

// driveCredentials prefers raw JSON from the environment, then falls back
// to the configured credentials file.
func driveCredentials(path string) ([]byte, error) {
	if raw := os.Getenv("GOOGLE_DRIVE_CREDENTIALS_JSON"); raw != "" {
		return []byte(raw), nil
	}
	if path == "" {
		return nil, fmt.Errorf("set GOOGLE_DRIVE_CREDENTIALS_JSON or DRIVE_CREDENTIALS_FILE")
	}

	return os.ReadFile(path)
}
