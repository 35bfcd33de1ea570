package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/time/rate"

	"doc_assistant/internal/domain"
	"doc_assistant/internal/fetch"
)

// Notion caps children per create/append request at 100.
const blockBatchSize = 100

type Config struct {
	Token          string
	DatabaseID     string
	APIBase        string
	Version        string
	RequestsPerSec float64
}

// Client talks to a Notion database configured as the remote side of
// the record sync. All calls share one rate limiter so concurrent use
// stays inside the integration quota.
type Client struct {
	cfg     Config
	fetcher *fetch.Client
	limiter *rate.Limiter
	logger  *slog.Logger

	// props maps canonical property names to the database's actual
	// column names, populated by the schema probe on first use.
	props map[string]string
}

func NewClient(cfg Config, fetcher *fetch.Client, logger *slog.Logger) *Client {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 3
	}
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}
	return &Client{
		cfg:     cfg,
		fetcher: fetcher,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger.With("component", "notion"),
	}
}

func (c *Client) request(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding %s %s payload: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIBase+path, body)
	if err != nil {
		return fmt.Errorf("building %s %s request: %w", method, path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(ctx, req, out)
}

func (c *Client) send(ctx context.Context, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Notion-Version", c.cfg.Version)

	resp, err := c.fetcher.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("notion request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &apiError{StatusCode: resp.StatusCode, Code: fmt.Sprintf("http_%d", resp.StatusCode)}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// ensureSchema probes the database schema once and caches the resolved
// property mapping for the lifetime of the client.
func (c *Client) ensureSchema(ctx context.Context) error {
	if c.props != nil {
		return nil
	}
	var db database
	if err := c.request(ctx, http.MethodGet, "/databases/"+c.cfg.DatabaseID, nil, &db); err != nil {
		return fmt.Errorf("probing database schema: %w", err)
	}
	props, err := resolveSchema(db)
	if err != nil {
		return err
	}
	if _, ok := props["source_slug"]; !ok {
		c.logger.Warn("database has no source_slug column, slug records will sync without it")
	}
	c.props = props
	return nil
}

// ListRecords returns every page of the sync database, including
// archived ones, with page bodies rendered back to markdown.
func (c *Client) ListRecords(ctx context.Context) ([]domain.RemoteRecord, error) {
	if err := c.ensureSchema(ctx); err != nil {
		return nil, err
	}

	var pages []page
	var cursor *string
	for {
		var resp queryResponse
		payload := queryRequest{PageSize: 100, StartCursor: cursor}
		if err := c.request(ctx, http.MethodPost, "/databases/"+c.cfg.DatabaseID+"/query", payload, &resp); err != nil {
			return nil, fmt.Errorf("querying database: %w", err)
		}
		pages = append(pages, resp.Results...)
		if !resp.HasMore || resp.NextCursor == nil {
			break
		}
		cursor = resp.NextCursor
	}

	records := make([]domain.RemoteRecord, 0, len(pages))
	for _, p := range pages {
		summary, err := c.pageMarkdown(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("reading body of page %s: %w", p.ID, err)
		}
		records = append(records, c.parsePage(p, summary))
	}
	c.logger.Debug("listed remote records", "count", len(records))
	return records, nil
}

func (c *Client) listBlocks(ctx context.Context, pageID string) ([]block, error) {
	var blocks []block
	cursor := ""
	for {
		path := "/blocks/" + pageID + "/children?page_size=100"
		if cursor != "" {
			path += "&start_cursor=" + cursor
		}
		var resp blockList
		if err := c.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, err
		}
		blocks = append(blocks, resp.Results...)
		if !resp.HasMore || resp.NextCursor == nil {
			break
		}
		cursor = *resp.NextCursor
	}
	return blocks, nil
}

func (c *Client) pageMarkdown(ctx context.Context, pageID string) (string, error) {
	blocks, err := c.listBlocks(ctx, pageID)
	if err != nil {
		return "", err
	}
	return blocksToMarkdown(blocks), nil
}

func (c *Client) appendBlocks(ctx context.Context, pageID string, blocks []block) error {
	for start := 0; start < len(blocks); start += blockBatchSize {
		end := start + blockBatchSize
		if end > len(blocks) {
			end = len(blocks)
		}
		payload := blockChildren{Children: blocks[start:end]}
		if err := c.request(ctx, http.MethodPatch, "/blocks/"+pageID+"/children", payload, nil); err != nil {
			return fmt.Errorf("appending page body: %w", err)
		}
	}
	return nil
}

// Create makes a new page for the record and writes the summary as its
// body. The created page is returned so callers can link the record to
// its remote id.
func (c *Client) Create(ctx context.Context, rec *domain.Record, summary string) (domain.RemoteRecord, error) {
	if err := c.ensureSchema(ctx); err != nil {
		return domain.RemoteRecord{}, err
	}

	blocks := markdownToBlocks(summary)
	first := blocks
	var rest []block
	if len(blocks) > blockBatchSize {
		first, rest = blocks[:blockBatchSize], blocks[blockBatchSize:]
	}

	payload := createPageRequest{
		Parent:     pageParent{DatabaseID: c.cfg.DatabaseID},
		Properties: c.buildProperties(rec, rec.Archived()),
		Children:   first,
	}
	var created page
	if err := c.request(ctx, http.MethodPost, "/pages", payload, &created); err != nil {
		return domain.RemoteRecord{}, fmt.Errorf("creating page for %s: %w", rec.ID(), err)
	}
	if err := c.appendBlocks(ctx, created.ID, rest); err != nil {
		return domain.RemoteRecord{}, err
	}

	c.logger.Info("created remote page", "record", rec.ID(), "page", created.ID)
	return c.parsePage(created, summary), nil
}

// Update pushes the record's properties and replaces the page body with
// the given summary.
func (c *Client) Update(ctx context.Context, pageID string, rec *domain.Record, summary string) (domain.RemoteRecord, error) {
	if err := c.ensureSchema(ctx); err != nil {
		return domain.RemoteRecord{}, err
	}

	payload := updatePageRequest{Properties: c.buildProperties(rec, rec.Archived())}
	var updated page
	if err := c.request(ctx, http.MethodPatch, "/pages/"+pageID, payload, &updated); err != nil {
		return domain.RemoteRecord{}, fmt.Errorf("updating page %s: %w", pageID, err)
	}

	if err := c.replaceBody(ctx, pageID, summary); err != nil {
		return domain.RemoteRecord{}, err
	}

	c.logger.Info("updated remote page", "record", rec.ID(), "page", pageID)
	return c.parsePage(updated, summary), nil
}

func (c *Client) replaceBody(ctx context.Context, pageID, summary string) error {
	existing, err := c.listBlocks(ctx, pageID)
	if err != nil {
		return fmt.Errorf("listing page body: %w", err)
	}
	for _, b := range existing {
		if err := c.request(ctx, http.MethodDelete, "/blocks/"+b.ID, nil, nil); err != nil {
			return fmt.Errorf("removing stale block %s: %w", b.ID, err)
		}
	}
	return c.appendBlocks(ctx, pageID, markdownToBlocks(summary))
}

// SetArchived flips both the page-level archive flag and the archived
// checkbox so database views and the sync agree.
func (c *Client) SetArchived(ctx context.Context, pageID string, archived bool) error {
	if err := c.ensureSchema(ctx); err != nil {
		return err
	}
	payload := updatePageRequest{
		Properties: map[string]any{
			c.props["archived"]: map[string]any{"checkbox": archived},
		},
		Archived: &archived,
	}
	if err := c.request(ctx, http.MethodPatch, "/pages/"+pageID, payload, nil); err != nil {
		return fmt.Errorf("archiving page %s: %w", pageID, err)
	}
	c.logger.Info("set remote archive state", "page", pageID, "archived", archived)
	return nil
}

// UploadAsset uploads a local file through the file upload API and
// attaches it to the page as a file block.
func (c *Client) UploadAsset(ctx context.Context, pageID, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading asset %s: %w", path, err)
	}
	filename := filepath.Base(path)

	var upload uploadResponse
	createPayload := createUploadRequest{
		Filename:    filename,
		ContentType: assetContentType(filename),
		Mode:        "single_part",
	}
	if err := c.request(ctx, http.MethodPost, "/file_uploads", createPayload, &upload); err != nil {
		return fmt.Errorf("creating file upload: %w", err)
	}

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("building upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("building upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.APIBase+"/file_uploads/"+upload.ID+"/send", bytes.NewReader(form.Bytes()))
	if err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := c.send(ctx, req, nil); err != nil {
		return fmt.Errorf("sending file upload: %w", err)
	}

	attach := blockChildren{Children: []block{{
		Type: "file",
		File: &fileBlock{Type: "file_upload", FileUpload: &fileUpload{ID: upload.ID}},
	}}}
	if err := c.request(ctx, http.MethodPatch, "/blocks/"+pageID+"/children", attach, nil); err != nil {
		return fmt.Errorf("attaching upload to page %s: %w", pageID, err)
	}

	c.logger.Info("uploaded asset", "page", pageID, "file", filename)
	return nil
}

func assetContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3":
		return "audio/mpeg"
	case ".pdf":
		return "application/pdf"
	case ".md":
		return "text/markdown"
	default:
		return "application/octet-stream"
	}
}
