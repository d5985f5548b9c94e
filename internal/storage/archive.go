package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/aeoscan/internal/domain"
	"github.com/jonesrussell/aeoscan/internal/logger"
)

// rawRefSeparator joins index name and document ID into a page's RawRef.
const rawRefSeparator = "/"

// ErrRawPageNotFound is returned when a raw reference resolves to no
// archived document.
var ErrRawPageNotFound = errors.New("raw page not found")

// ErrInvalidRawRef is returned for malformed raw references.
var ErrInvalidRawRef = errors.New("invalid raw reference")

// RawPageStore archives the raw HTML of fetched pages.
type RawPageStore interface {
	EnsureIndex(ctx context.Context, host string) error
	Save(ctx context.Context, page *domain.Page, html []byte) (rawRef string, err error)
	Get(ctx context.Context, rawRef string) ([]byte, error)
}

// rawPageDoc is the archived document shape. The HTML is stored but not
// indexed; lookups go by document ID only.
type rawPageDoc struct {
	ScanID    string    `json:"scan_id"`
	URL       string    `json:"url"`
	RawHTML   string    `json:"raw_html"`
	Rendered  bool      `json:"rendered"`
	FetchedAt time.Time `json:"fetched_at"`
}

// rawPageMapping disables indexing of the HTML body. One shard is
// plenty for an archive keyed by ID.
const rawPageMapping = `{
	"mappings": {
		"properties": {
			"scan_id":    {"type": "keyword"},
			"url":        {"type": "keyword"},
			"raw_html":   {"type": "text", "index": false},
			"rendered":   {"type": "boolean"},
			"fetched_at": {"type": "date"}
		}
	},
	"settings": {
		"number_of_shards":   1,
		"number_of_replicas": 1
	}
}`

// ESArchive stores raw page HTML in a per-host Elasticsearch index.
type ESArchive struct {
	client *es.Client
	log    logger.Interface
}

// NewESArchive creates an archive backed by Elasticsearch.
func NewESArchive(client *es.Client, log logger.Interface) *ESArchive {
	return &ESArchive{client: client, log: log}
}

// EnsureIndex creates the raw page index for a host if it does not
// exist yet.
func (a *ESArchive) EnsureIndex(ctx context.Context, host string) error {
	indexName := rawPageIndexName(host)

	exists, err := a.client.Indices.Exists([]string{indexName},
		a.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", indexName, err)
	}
	defer exists.Body.Close()

	if exists.StatusCode == 200 {
		return nil
	}

	res, err := a.client.Indices.Create(indexName,
		a.client.Indices.Create.WithContext(ctx),
		a.client.Indices.Create.WithBody(strings.NewReader(rawPageMapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", indexName, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating index %s: %s", indexName, res.String())
	}

	a.log.Info("created raw page index", "index", indexName)
	return nil
}

// Save archives a page's raw HTML and returns the reference to store on
// the page record.
func (a *ESArchive) Save(ctx context.Context, page *domain.Page, html []byte) (string, error) {
	doc := rawPageDoc{
		ScanID:    page.ScanID,
		URL:       page.URL,
		RawHTML:   string(html),
		Rendered:  page.Rendered,
		FetchedAt: page.FetchedAt,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode raw page: %w", err)
	}

	indexName := rawPageIndexName(hostOf(page.URL))

	res, err := a.client.Index(indexName, bytes.NewReader(body),
		a.client.Index.WithContext(ctx),
		a.client.Index.WithDocumentID(page.ID),
	)
	if err != nil {
		return "", fmt.Errorf("failed to index raw page: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return "", fmt.Errorf("error indexing raw page: %s", res.String())
	}

	a.log.Debug("archived raw page",
		"index", indexName,
		"page_id", page.ID,
		"bytes", len(html),
	)

	return indexName + rawRefSeparator + page.ID, nil
}

// Get retrieves archived HTML by its raw reference.
func (a *ESArchive) Get(ctx context.Context, rawRef string) ([]byte, error) {
	indexName, docID, ok := strings.Cut(rawRef, rawRefSeparator)
	if !ok || indexName == "" || docID == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRawRef, rawRef)
	}

	res, err := a.client.Get(indexName, docID,
		a.client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get raw page: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, ErrRawPageNotFound
	}
	if res.IsError() {
		return nil, fmt.Errorf("error getting raw page: %s", res.String())
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw page response: %w", err)
	}

	var envelope struct {
		Source rawPageDoc `json:"_source"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode raw page response: %w", err)
	}

	return []byte(envelope.Source.RawHTML), nil
}

var (
	// invalidIndexNameChars matches characters Elasticsearch rejects in
	// index names.
	invalidIndexNameChars = regexp.MustCompile(`[\s"*,/<>?\\|]`)
	// consecutiveUnderscores matches runs of underscores for collapsing.
	consecutiveUnderscores = regexp.MustCompile(`_{2,}`)
)

// rawPageIndexName builds the per-host index name.
// Format: {host}_raw_pages, e.g. example_com_raw_pages.
func rawPageIndexName(host string) string {
	return sanitizeIndexName(host) + "_raw_pages"
}

// sanitizeIndexName normalizes a host for use in an index name.
func sanitizeIndexName(host string) string {
	if host == "" {
		return "unknown"
	}

	normalized := strings.ToLower(host)
	normalized = invalidIndexNameChars.ReplaceAllString(normalized, "_")
	normalized = strings.ReplaceAll(normalized, ".", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = consecutiveUnderscores.ReplaceAllString(normalized, "_")
	normalized = strings.Trim(normalized, "_")

	if normalized == "" {
		return "unknown"
	}

	return normalized
}

// hostOf extracts the host portion of a normalized URL.
func hostOf(rawURL string) string {
	trimmed := rawURL
	if i := strings.Index(trimmed, "://"); i >= 0 {
		trimmed = trimmed[i+3:]
	}
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return trimmed
}
