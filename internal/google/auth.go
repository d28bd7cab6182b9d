package google

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// ServiceAccountTokenSource builds a TokenSource from a service-account
// credentials file. The returned source is used for both Drive and Docs.
func ServiceAccountTokenSource(ctx context.Context, credentialsPath string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	cfg, err := googleauth.JWTConfigFromJSON(data, drive.DriveScope, docs.DocumentsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	return cfg.TokenSource(ctx), nil
}

// NewDriveService creates a Google Drive API service using the provided TokenSource.
func NewDriveService(ctx context.Context, ts oauth2.TokenSource) (*drive.Service, error) {
	return drive.NewService(ctx, option.WithTokenSource(ts))
}

// NewDocsService creates a Google Docs API service using the provided TokenSource.
func NewDocsService(ctx context.Context, ts oauth2.TokenSource) (*docs.Service, error) {
	return docs.NewService(ctx, option.WithTokenSource(ts))
}

// NewAuthorizedClient returns an HTTP client that attaches tokens from ts to
// every request. Used for the raw documents.get call.
func NewAuthorizedClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	return oauth2.NewClient(ctx, ts)
}
