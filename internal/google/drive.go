package google

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/drive/v3"
)

// MIME types used when filtering Drive searches.
const (
	MimeTypeGoogleDoc = "application/vnd.google-apps.document"
	MimeTypeFolder    = "application/vnd.google-apps.folder"
)

// File is the id/name pair returned by Drive searches.
type File struct {
	ID   string
	Name string
}

// DriveClient wraps the Drive files API with shared-drive search defaults
// and rate limiting. Account folders live on shared drives, so every query
// spans all drives the service account can see.
type DriveClient struct {
	svc     *drive.Service
	limiter *RateLimiter
	logger  *slog.Logger
}

func NewDriveClient(svc *drive.Service, logger *slog.Logger) *DriveClient {
	return &DriveClient{
		svc:     svc,
		limiter: NewRateLimiter(ServiceDrive),
		logger:  logger,
	}
}

// FindFolders lists folders whose name contains namePart.
func (c *DriveClient) FindFolders(ctx context.Context, namePart string) ([]File, error) {
	query := fmt.Sprintf("name contains '%s' and mimeType='%s'", escapeQuery(namePart), MimeTypeFolder)
	return c.list(ctx, query, 20)
}

// ListDocsInFolder lists Google Docs that are direct children of folderID.
func (c *DriveClient) ListDocsInFolder(ctx context.Context, folderID string) ([]File, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType='%s'", escapeQuery(folderID), MimeTypeGoogleDoc)
	return c.list(ctx, query, 10)
}

// SearchDocsByText lists Google Docs whose full text contains phrase.
func (c *DriveClient) SearchDocsByText(ctx context.Context, phrase string) ([]File, error) {
	query := fmt.Sprintf("fullText contains '%s' and mimeType='%s'", escapeQuery(phrase), MimeTypeGoogleDoc)
	return c.list(ctx, query, 20)
}

func (c *DriveClient) list(ctx context.Context, query string, pageSize int64) ([]File, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	c.logger.Debug("drive files.list", "query", query)

	res, err := c.svc.Files.List().
		Q(query).
		PageSize(pageSize).
		Corpora("allDrives").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		if IsRateLimited(err) {
			c.limiter.RecordRateLimitError(0)
		}
		return nil, fmt.Errorf("drive search: %w", err)
	}

	files := make([]File, 0, len(res.Files))
	for _, f := range res.Files {
		files = append(files, File{ID: f.Id, Name: f.Name})
	}
	return files, nil
}

// escapeQuery escapes backslashes and single quotes in Drive query values.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
