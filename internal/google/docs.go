package google

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"google.golang.org/api/docs/v1"
	"google.golang.org/api/googleapi"

	"github.com/fenwick-labs/scrivener/internal/editplan"
	"github.com/fenwick-labs/scrivener/internal/gdoc"
)

const defaultDocsEndpoint = "https://docs.googleapis.com"

// DocsClient reads and edits documents. Reads go through a raw documents.get
// because the generated model omits smart-chip fields and the date chips are
// what anchor the meeting blocks. Edits use the typed batchUpdate call, which
// applies all requests atomically.
type DocsClient struct {
	svc      *docs.Service
	client   *http.Client
	endpoint string
	limiter  *RateLimiter
	logger   *slog.Logger
}

func NewDocsClient(svc *docs.Service, client *http.Client, logger *slog.Logger) *DocsClient {
	return &DocsClient{
		svc:      svc,
		client:   client,
		endpoint: defaultDocsEndpoint,
		limiter:  NewRateLimiter(ServiceDocs),
		logger:   logger,
	}
}

// SetTestTransport points the raw document reads at a test server.
func (c *DocsClient) SetTestTransport(url string) {
	c.endpoint = url
}

// GetDocument fetches a document with its full structural JSON.
func (c *DocsClient) GetDocument(ctx context.Context, docID string) (*gdoc.Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/documents/%s", c.endpoint, docID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests {
			c.limiter.RecordRateLimitError(0)
		}
		return nil, &googleapi.Error{Code: resp.StatusCode, Body: string(body)}
	}

	doc, err := gdoc.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("parse document %s: %w", docID, err)
	}
	return doc, nil
}

// ApplyEdits submits the planned operations as one batchUpdate.
func (c *DocsClient) ApplyEdits(ctx context.Context, docID string, ops []editplan.Op) error {
	if len(ops) == 0 {
		return nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqs := make([]*docs.Request, 0, len(ops))
	for _, op := range ops {
		switch {
		case op.Insert != nil:
			reqs = append(reqs, &docs.Request{
				InsertText: &docs.InsertTextRequest{
					Location: &docs.Location{Index: op.Insert.At},
					Text:     op.Insert.Text,
				},
			})
		case op.DeleteRange != nil:
			reqs = append(reqs, &docs.Request{
				DeleteContentRange: &docs.DeleteContentRangeRequest{
					Range: &docs.Range{
						StartIndex: op.DeleteRange.Start,
						EndIndex:   op.DeleteRange.End,
					},
				},
			})
		}
	}

	c.logger.Info("applying document edits", "doc_id", docID, "requests", len(reqs))

	_, err := c.svc.Documents.BatchUpdate(docID, &docs.BatchUpdateDocumentRequest{
		Requests: reqs,
	}).Context(ctx).Do()
	if err != nil {
		if IsRateLimited(err) {
			c.limiter.RecordRateLimitError(0)
		}
		return fmt.Errorf("batch update %s: %w", docID, err)
	}
	return nil
}
