package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/chive-archive/citation-service/internal/domain"
	"github.com/chive-archive/citation-service/internal/enrichers"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the default rate limit for unauthenticated requests.
	// With an API key, this can be increased.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultPageSize is the default page size when draining references.
	// The API caps the references endpoint at 1000 entries per page.
	DefaultPageSize = 500

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// referenceFields is the list of fields requested for cited papers.
	referenceFields = "paperId,externalIds,title,year,venue,authors"

	// sourceName is the human-readable name for this enricher.
	sourceName = "Semantic Scholar"
)

// Config contains configuration options for the Semantic Scholar enricher.
type Config struct {
	// BaseURL is the base URL for the API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	// Authenticated requests have higher rate limits.
	APIKey string

	// Timeout is the HTTP request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to DefaultRateLimit if zero.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to DefaultBurstSize if zero.
	BurstSize int

	// PageSize is the page size used when draining the reference list.
	// Defaults to DefaultPageSize if zero.
	PageSize int
}

// Client is the Semantic Scholar enricher.
type Client struct {
	httpClient *enrichers.HTTPClient
	config     Config
}

// NewClient creates a new Semantic Scholar enricher with the given
// configuration. If httpClient is nil, a new one will be created with the
// configuration settings.
func NewClient(cfg Config, httpClient *enrichers.HTTPClient) *Client {
	// Apply defaults
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}

	// Create HTTP client if not provided
	if httpClient == nil {
		httpClient = enrichers.NewHTTPClient(enrichers.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Source returns the source type identifier.
func (c *Client) Source() domain.SourceType {
	return domain.SourceTypeSemanticScholar
}

// Name returns the human-readable name for this enricher.
func (c *Client) Name() string {
	return sourceName
}

// GetPaperByDOI resolves a DOI to the Semantic Scholar paper ID.
// Returns domain.ErrNotFound (wrapped) when the graph does not know the DOI.
func (c *Client) GetPaperByDOI(ctx context.Context, doi string) (string, error) {
	paperURL := fmt.Sprintf("%s/paper/DOI:%s?fields=paperId", c.config.BaseURL, url.PathEscape(doi))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, paperURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", domain.NewNotFoundError("paper", doi)
	}
	if err := c.handleErrorResponse(resp); err != nil {
		return "", err
	}

	// Limit body to 10MB to prevent resource exhaustion.
	var paper PaperResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&paper); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if paper.PaperID == "" {
		return "", domain.NewNotFoundError("paper", doi)
	}

	return paper.PaperID, nil
}

// GetReferences returns the paper's full reference list, draining the
// offset-paginated references endpoint before returning.
func (c *Client) GetReferences(ctx context.Context, paperID string) ([]domain.RawReference, error) {
	var refs []domain.RawReference

	offset := 0
	for {
		page, err := c.getReferencesPage(ctx, paperID, offset)
		if err != nil {
			return nil, err
		}

		for _, entry := range page.Data {
			refs = append(refs, c.convertToReference(entry.CitedPaper))
		}

		if page.Next <= 0 {
			break
		}
		offset = page.Next
	}

	return refs, nil
}

// getReferencesPage fetches one page of the references endpoint.
func (c *Client) getReferencesPage(ctx context.Context, paperID string, offset int) (*ReferencesResponse, error) {
	refsURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	refsURL = refsURL.JoinPath("paper", paperID, "references")

	q := refsURL.Query()
	q.Set("fields", referenceFields)
	q.Set("limit", strconv.Itoa(c.config.PageSize))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	refsURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, refsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError("paper", paperID)
	}
	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}

	// Limit body to 10MB to prevent resource exhaustion.
	var page ReferencesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &page, nil
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

	// Try to parse as JSON error
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

	// Return raw body as error message
	return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
}

// convertToReference maps an API cited paper to a raw reference.
func (c *Client) convertToReference(paper PaperResponse) domain.RawReference {
	authors := make([]string, 0, len(paper.Authors))
	for _, a := range paper.Authors {
		if a.Name != "" {
			authors = append(authors, a.Name)
		}
	}

	return domain.RawReference{
		Title:   paper.Title,
		Authors: authors,
		DOI:     paper.ExternalIDs["DOI"],
		Year:    paper.Year,
		Venue:   paper.Venue,
		Source:  domain.SourceTypeSemanticScholar,
	}
}
