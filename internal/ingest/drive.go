// internal/ingest/drive.go
package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveFile is the slice of Drive metadata the ingest flow cares about.
type DriveFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         int64  `json:"size,string,omitempty"`
}

// DriveClient reads the shared folder the bookkeeping system drops its
// exports into. Access goes through a read-only service account; nothing
// here ever writes to Drive.
type DriveClient struct {
	srv *drive.Service
}

// NewDriveClient builds a client from service-account credentials JSON.
func NewDriveClient(credentialsJSON []byte) (*DriveClient, error) {
	cfg, err := google.JWTConfigFromJSON(credentialsJSON, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse drive credentials: %w", err)
	}

	client := cfg.Client(context.Background())

	srv, err := drive.NewService(context.Background(), option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to build drive service: %w", err)
	}

	return &DriveClient{srv: srv}, nil
}

// ListFolder returns the non-trashed files directly inside folderID.
// An empty folderID lists the Drive root.
func (c *DriveClient) ListFolder(folderID string) ([]*DriveFile, error) {
	if folderID == "" {
		folderID = "root"
	}

	result, err := c.srv.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed=false", folderID)).
		Fields("files(id, name, mimeType, modifiedTime, size)").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list drive folder %s: %w", folderID, err)
	}

	files := make([]*DriveFile, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, &DriveFile{
			ID:           f.Id,
			Name:         f.Name,
			MimeType:     f.MimeType,
			ModifiedTime: f.ModifiedTime,
			Size:         f.Size,
		})
	}

	return files, nil
}

// Download streams the file's content into w.
func (c *DriveClient) Download(fileID string, w io.Writer) error {
	resp, err := c.srv.Files.Get(fileID).Download()
	if err != nil {
		return fmt.Errorf("failed to download drive file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	_, err = io.Copy(w, resp.Body)
	return err
}

// ResolveFolderPath walks a /-separated folder path from the Drive root
// and returns the ID of the final segment.
func (c *DriveClient) ResolveFolderPath(path string) (string, error) {
	if path == "" {
		return "root", nil
	}

	currentID := "root"
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}

		result, err := c.srv.Files.List().
			Q(fmt.Sprintf("'%s' in parents and name='%s' and mimeType='application/vnd.google-apps.folder' and trashed=false",
				currentID, segment)).
			Fields("files(id, name)").
			Do()
		if err != nil {
			return "", fmt.Errorf("failed to look up folder %s: %w", segment, err)
		}
		if len(result.Files) == 0 {
			return "", fmt.Errorf("folder not found: %s", segment)
		}

		currentID = result.Files[0].Id
	}

	return currentID, nil
}
