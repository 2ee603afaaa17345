// internal/ingest/watcher.go
package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mwidjaja/procura/pkg/logger"
)

// Watcher periodically sweeps the export folder and ingests files that are
// new or whose modifiedTime moved since the last successful ingest. Files
// that fail outright are retried on the next sweep.
type Watcher struct {
	source   FileSource
	ingestor *Ingestor
	folderID string
	interval time.Duration
	log      zerolog.Logger

	mu   sync.Mutex
	seen map[string]string
}

func NewWatcher(source FileSource, ingestor *Ingestor, folderID string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Watcher{
		source:   source,
		ingestor: ingestor,
		folderID: folderID,
		interval: interval,
		log:      logger.Component("watcher"),
		seen:     make(map[string]string),
	}
}

// Run sweeps immediately, then on every tick until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.Sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep lists the folder once and ingests every new or changed export.
// It returns the number of files ingested.
func (w *Watcher) Sweep(ctx context.Context) int {
	files, err := w.source.ListFolder(w.folderID)
	if err != nil {
		w.log.Error().Err(err).Str("folder", w.folderID).Msg("failed to list export folder")
		return 0
	}

	ingested := 0
	for _, f := range files {
		select {
		case <-ctx.Done():
			return ingested
		default:
		}

		if !strings.EqualFold(filepath.Ext(f.Name), ".csv") || ExportKind(f.Name) == "" {
			continue
		}
		if !w.changed(f) {
			continue
		}

		if _, err := w.ingestor.IngestDriveFile(ctx, w.source, f); err != nil {
			w.log.Error().Err(err).Str("file", f.Name).Msg("ingest failed")
			continue
		}
		w.markSeen(f)
		ingested++
	}

	return ingested
}

func (w *Watcher) changed(f *DriveFile) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	last, ok := w.seen[f.ID]
	return !ok || last != f.ModifiedTime
}

func (w *Watcher) markSeen(f *DriveFile) {
	w.mu.Lock()
	w.seen[f.ID] = f.ModifiedTime
	w.mu.Unlock()
}
