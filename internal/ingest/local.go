// internal/ingest/local.go
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mwidjaja/procura/internal/domain"
)

const defaultDirWorkers = 4

// DirResult aggregates one local ingestion pass over a directory.
type DirResult struct {
	Files    []FileResult `json:"files"`
	Ingested int          `json:"ingested"`
	Failed   int          `json:"failed"`
}

// IngestDir runs every recognizable CSV export under dir through the
// ingestor, at most workers files at a time. Files whose name matches no
// export kind are skipped entirely. Failures are isolated per file: a
// broken export lands in Files with a failed status and never stops the
// rest of the pass.
func (ing *Ingestor) IngestDir(ctx context.Context, dir string, workers int) (*DirResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read export dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".csv") || ExportKind(name) == "" {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)

	if workers <= 0 {
		workers = defaultDirWorkers
	}

	results := make([]*FileResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range files {
		g.Go(func() error {
			res, ferr := ing.ingestLocalFile(ctx, filepath.Join(dir, name))
			if res == nil {
				res = &FileResult{
					FileName: name,
					Kind:     ExportKind(name),
					Status:   domain.IngestStatusFailed,
					Error:    ferr.Error(),
				}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	out := &DirResult{}
	for _, res := range results {
		if res == nil {
			continue
		}
		out.Files = append(out.Files, *res)
		if res.Status == domain.IngestStatusFailed {
			out.Failed++
		} else {
			out.Ingested++
		}
	}

	ing.log.Info().
		Str("dir", dir).
		Int("ingested", out.Ingested).
		Int("failed", out.Failed).
		Msg("local ingestion pass complete")

	return out, nil
}

func (ing *Ingestor) ingestLocalFile(ctx context.Context, path string) (*FileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var modified *time.Time
	if info, statErr := f.Stat(); statErr == nil {
		t := info.ModTime().UTC()
		modified = &t
	}

	return ing.IngestReader(ctx, "local", filepath.Base(path), modified, f)
}
