package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chive-archive/citation-service/internal/domain"
	"github.com/chive-archive/citation-service/internal/enrichers"
)

const (
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	// OpenAlex polite pool (with email) allows higher rates.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// batchSize is the number of referenced work IDs hydrated per request.
	// OpenAlex caps OR-filters at 50 values.
	batchSize = 50

	// doiPrefix is the URL prefix that OpenAlex uses for DOIs.
	doiPrefix = "https://doi.org/"

	// openAlexIDPrefix is the URL prefix for OpenAlex IDs.
	openAlexIDPrefix = "https://openalex.org/"

	// workFields is the list of fields requested for referenced works.
	workFields = "id,doi,title,display_name,publication_year,authorships,primary_location"

	// sourceName is the human-readable name for this enricher.
	sourceName = "OpenAlex"
)

// Config holds configuration for the OpenAlex enricher.
type Config struct {
	// BaseURL is the OpenAlex API base URL.
	// Defaults to https://api.openalex.org
	BaseURL string

	// Email is the contact email for the polite pool.
	// Providing an email grants access to higher rate limits.
	// See: https://docs.openalex.org/how-to-use-the-api/rate-limits-and-authentication
	Email string

	// Timeout is the request timeout.
	// Defaults to 30 seconds.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to 10 req/sec.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to 10.
	BurstSize int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Client is the OpenAlex enricher.
type Client struct {
	config     Config
	httpClient *enrichers.HTTPClient
}

// New creates a new OpenAlex enricher with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := enrichers.NewHTTPClient(enrichers.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: "Chive-CitationService/1.0 (mailto:" + cfg.Email + ")",
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new OpenAlex enricher with a custom HTTP
// client. This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *enrichers.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Source returns the source type identifier.
func (c *Client) Source() domain.SourceType {
	return domain.SourceTypeOpenAlex
}

// Name returns the human-readable name for this enricher.
func (c *Client) Name() string {
	return sourceName
}

// GetPaperByDOI resolves a DOI to a short OpenAlex work ID (e.g. "W123").
// Returns domain.ErrNotFound (wrapped) when the catalog does not know the DOI.
func (c *Client) GetPaperByDOI(ctx context.Context, doi string) (string, error) {
	// OpenAlex addresses works by their full DOI URL.
	workURL := fmt.Sprintf("%s/works/%s?select=id", c.config.BaseURL, url.PathEscape(doiPrefix+doi))

	work, err := c.getWork(ctx, workURL, doi)
	if err != nil {
		return "", err
	}

	id := strings.TrimPrefix(work.ID, openAlexIDPrefix)
	if id == "" {
		return "", domain.NewNotFoundError("work", doi)
	}
	return id, nil
}

// GetReferences returns the work's reference list. The referenced work IDs
// are read from the work record and hydrated in batches of 50.
func (c *Client) GetReferences(ctx context.Context, workID string) ([]domain.RawReference, error) {
	workURL := fmt.Sprintf("%s/works/%s?select=id,referenced_works", c.config.BaseURL, url.PathEscape(workID))
	work, err := c.getWork(ctx, workURL, workID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(work.ReferencedWorks))
	for _, ref := range work.ReferencedWorks {
		if id := strings.TrimPrefix(ref, openAlexIDPrefix); id != "" {
			ids = append(ids, id)
		}
	}

	var refs []domain.RawReference
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch, err := c.getWorksBatch(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		for _, w := range batch {
			refs = append(refs, c.convertToReference(w))
		}
	}

	return refs, nil
}

// getWork fetches a single work record.
func (c *Client) getWork(ctx context.Context, workURL, id string) (*Work, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, workURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError("work", id)
	}
	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}

	// Limit body to 10MB to prevent resource exhaustion.
	var work Work
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&work); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &work, nil
}

// getWorksBatch hydrates a batch of work IDs with a single OR-filtered list
// request.
func (c *Client) getWorksBatch(ctx context.Context, ids []string) ([]Work, error) {
	listURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	listURL = listURL.JoinPath("works")

	q := listURL.Query()
	q.Set("filter", "openalex_id:"+strings.Join(ids, "|"))
	q.Set("select", workFields)
	q.Set("per-page", strconv.Itoa(batchSize))
	listURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}

	// Limit body to 10MB to prevent resource exhaustion.
	var list ListResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&list); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return list.Results, nil
}

// handleErrorResponse checks for API errors and returns appropriate error types.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Read the error body (limit to 1MB to prevent resource exhaustion)
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to read error response", err)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		message := errResp.Error
		if message == "" {
			message = errResp.Message
		}
		if message == "" {
			message = string(body)
		}
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, message, nil)
	}

	return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
}

// convertToReference maps an OpenAlex work to a raw reference.
func (c *Client) convertToReference(w Work) domain.RawReference {
	title := w.Title
	if title == "" {
		title = w.DisplayName
	}

	authors := make([]string, 0, len(w.Authorships))
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			authors = append(authors, a.Author.DisplayName)
		}
	}

	venue := ""
	if w.PrimaryLocation != nil && w.PrimaryLocation.Source != nil {
		venue = w.PrimaryLocation.Source.DisplayName
	}

	return domain.RawReference{
		Title:   title,
		Authors: authors,
		DOI:     strings.TrimPrefix(w.DOI, doiPrefix),
		Year:    w.PublicationYear,
		Venue:   venue,
		Source:  domain.SourceTypeOpenAlex,
	}
}
