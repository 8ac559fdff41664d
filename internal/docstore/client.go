// Package docstore provides an HTTP client for the Chive document store,
// the internal service that holds the stored bytes of indexed documents.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/chive-archive/citation-service/internal/domain"
)

// Sentinel errors for document fetch operations.
var (
	// ErrTooLarge is returned when the document exceeds the maximum allowed size.
	ErrTooLarge = errors.New("docstore: document exceeds maximum size")
	// ErrFetchFailed is returned when the fetch fails due to network or HTTP errors.
	ErrFetchFailed = errors.New("docstore: fetch failed")
)

// Config holds document store client configuration.
type Config struct {
	// BaseURL is the document store base URL.
	BaseURL string

	// Timeout is the HTTP request timeout. Default: 60 seconds.
	Timeout time.Duration

	// MaxSize is the maximum document size in bytes. Default: 100MB.
	MaxSize int64

	// AuthToken is an optional bearer token for service-to-service auth.
	AuthToken string
}

// Client fetches stored document bytes by owner and content identifier.
type Client struct {
	baseURL   string
	client    *http.Client
	maxSize   int64
	authToken string
}

// NewClient creates a new document store client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("document store base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid document store base URL: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 100 * 1024 * 1024 // 100MB
	}

	return &Client{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxSize:   cfg.MaxSize,
		authToken: cfg.AuthToken,
	}, nil
}

// GetBytes fetches the stored bytes for a document. Returns a wrapped
// domain.ErrNotFound when the store does not hold the content.
func (c *Client) GetBytes(ctx context.Context, ownerID, contentID string) ([]byte, error) {
	if ownerID == "" {
		return nil, domain.NewValidationError("owner_id", "is required")
	}
	if contentID == "" {
		return nil, domain.NewValidationError("content_id", "is required")
	}

	contentURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	contentURL = contentURL.JoinPath("v1", "owners", ownerID, "content", contentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, contentURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.NewNotFoundError("content", ownerID+"/"+contentID)
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, fmt.Errorf("%w: status %d: %s", ErrFetchFailed, resp.StatusCode, string(msg))
	}

	// Reject oversized documents without buffering past the limit. Reading
	// one extra byte distinguishes exactly-at-limit from over-limit.
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrFetchFailed, err)
	}
	if int64(len(data)) > c.maxSize {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, c.maxSize)
	}

	return data, nil
}
