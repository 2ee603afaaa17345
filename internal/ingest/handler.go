// internal/ingest/handler.go
package ingest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mwidjaja/procura/internal/repository"
)

// Handler exposes the ingest surface over HTTP: browse the export folder,
// pull a single file in, trigger a folder sweep, and read the audit trail.
type Handler struct {
	source   FileSource
	ingestor *Ingestor
	history  repository.HistoryRepository
	watcher  *Watcher
	folderID string
}

// NewHandler wires the ingest routes. watcher may be nil, which disables
// the sweep endpoint.
func NewHandler(source FileSource, ingestor *Ingestor, history repository.HistoryRepository, watcher *Watcher, folderID string) *Handler {
	return &Handler{
		source:   source,
		ingestor: ingestor,
		history:  history,
		watcher:  watcher,
		folderID: folderID,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/ingest/files", h.ListFiles).Methods("GET")
	router.HandleFunc("/api/ingest/files/download", h.DownloadFile).Methods("GET")
	router.HandleFunc("/api/ingest/run", h.IngestFile).Methods("POST")
	router.HandleFunc("/api/ingest/runs", h.RecentRuns).Methods("GET")
	if h.watcher != nil {
		router.HandleFunc("/api/ingest/sweep", h.Sweep).Methods("POST")
	}
}

// ListFiles lists the export folder. folderId overrides the configured
// folder; path resolves a /-separated folder path instead.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	folderID := query.Get("folderId")
	folderPath := query.Get("path")

	if folderID == "" {
		folderID = h.folderID
	}

	var err error
	if folderPath != "" {
		folderID, err = h.source.ResolveFolderPath(folderPath)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
	}

	files, err := h.source.ListFolder(folderID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(files)
}

func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.URL.Query().Get("fileId")
	if fileID == "" {
		http.Error(w, "fileId parameter is required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=export.csv")

	if err := h.source.Download(fileID, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// IngestFile pulls one file in by id. The name parameter is required
// because the export kind is decided from the file name.
func (h *Handler) IngestFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.URL.Query().Get("fileId")
	if fileID == "" {
		http.Error(w, "fileId parameter is required", http.StatusBadRequest)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "name parameter is required", http.StatusBadRequest)
		return
	}

	res, err := h.ingestor.IngestDriveFile(r.Context(), h.source, &DriveFile{ID: fileID, Name: name})
	if err != nil {
		http.Error(w, fmt.Sprintf("ingestion failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// Sweep runs one watcher pass over the export folder.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	n := h.watcher.Sweep(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"files_ingested": n})
}

// RecentRuns returns the latest ingest runs, newest first. limit defaults
// to 20.
func (h *Handler) RecentRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.history.RecentIngestRuns(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"runs": runs, "total": len(runs)})
}
