package grobid

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chive-archive/citation-service/internal/domain"
)

const (
	// DefaultBaseURL is the default GROBID server URL.
	DefaultBaseURL = "http://localhost:8070"

	// DefaultTimeout is the default request timeout. Reference parsing on a
	// long bibliography can take tens of seconds.
	DefaultTimeout = 120 * time.Second

	// DefaultMaxResponseSize caps the TEI response size.
	DefaultMaxResponseSize = 50 << 20 // 50MB

	// isAlivePath is the health endpoint.
	isAlivePath = "/api/isalive"

	// processReferencesPath is the bibliography extraction endpoint.
	processReferencesPath = "/api/processReferences"

	// sourceName is the human-readable name for this extractor.
	sourceName = "GROBID"
)

// Config holds configuration for the GROBID client.
type Config struct {
	// BaseURL is the GROBID server URL.
	// Defaults to http://localhost:8070.
	BaseURL string

	// Timeout is the request timeout.
	// Defaults to 120 seconds.
	Timeout time.Duration

	// MaxResponseSize caps the TEI response size in bytes.
	// Defaults to 50MB.
	MaxResponseSize int64

	// ConsolidateCitations asks GROBID to consolidate parsed entries against
	// CrossRef. Consolidation improves DOI recovery but adds latency.
	ConsolidateCitations bool
}

// Client is the GROBID structural extractor.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new GROBID client with the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxResponseSize == 0 {
		cfg.MaxResponseSize = DefaultMaxResponseSize
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the human-readable name for this extractor.
func (c *Client) Name() string {
	return sourceName
}

// IsAvailable reports whether the GROBID server answers its health endpoint.
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+isAlivePath, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))

	return resp.StatusCode == http.StatusOK
}

// ExtractReferences submits the document to processReferences and maps the
// parsed bibliography to raw references. Entries GROBID could not segment
// are absent from the response; entries it could segment but not fully parse
// still arrive with their raw citation string.
func (c *Client) ExtractReferences(ctx context.Context, pdf []byte) ([]domain.RawReference, error) {
	if len(pdf) == 0 {
		return nil, domain.NewValidationError("pdf", "document is empty")
	}

	body, contentType, err := buildMultipartBody(pdf, c.config.ConsolidateCitations)
	if err != nil {
		return nil, fmt.Errorf("building request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+processReferencesPath, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Parsed bibliography follows.
	case http.StatusNoContent:
		// GROBID found no reference section.
		return nil, nil
	case http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: all GROBID workers busy", domain.ErrServiceUnavailable)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(msg), nil)
	}

	var tei TEI
	if err := xml.NewDecoder(io.LimitReader(resp.Body, c.config.MaxResponseSize)).Decode(&tei); err != nil {
		return nil, fmt.Errorf("decoding TEI response: %w", err)
	}

	refs := make([]domain.RawReference, 0, len(tei.Entries))
	for _, entry := range tei.Entries {
		refs = append(refs, convertEntry(entry))
	}
	return refs, nil
}

// buildMultipartBody assembles the processReferences form. includeRawCitations
// is always requested so unparseable entries keep their original text.
func buildMultipartBody(pdf []byte, consolidate bool) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("input", "document.pdf")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(pdf); err != nil {
		return nil, "", err
	}

	if err := w.WriteField("includeRawCitations", "1"); err != nil {
		return nil, "", err
	}
	if consolidate {
		if err := w.WriteField("consolidateCitations", "1"); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// convertEntry maps one biblStruct to a raw reference. Article-level fields
// are preferred; container-level fields fill the gaps.
func convertEntry(entry BiblStruct) domain.RawReference {
	ref := domain.RawReference{Source: domain.SourceTypeStructural}

	for _, note := range entry.Notes {
		if note.Type == "raw_reference" {
			ref.RawText = strings.TrimSpace(note.Value)
			break
		}
	}

	if entry.Analytic != nil {
		ref.Title = pickTitle(entry.Analytic.Titles, "a")
		ref.Authors = convertAuthors(entry.Analytic.Authors)
		ref.DOI = pickIdno(entry.Analytic.IDs, "DOI")
	}

	if entry.Monogr != nil {
		if ref.Title == "" {
			ref.Title = pickTitle(entry.Monogr.Titles, "m")
		} else {
			ref.Venue = pickTitle(entry.Monogr.Titles, "j")
		}
		if len(ref.Authors) == 0 {
			ref.Authors = convertAuthors(entry.Monogr.Authors)
		}
		if ref.DOI == "" {
			ref.DOI = pickIdno(entry.Monogr.IDs, "DOI")
		}
		if entry.Monogr.Imprint != nil {
			ref.Year = pickYear(entry.Monogr.Imprint.Dates)
		}
	}

	return ref
}

// pickTitle returns the title with the preferred level, else the first
// non-empty title.
func pickTitle(titles []Title, preferredLevel string) string {
	for _, t := range titles {
		if t.Level == preferredLevel && strings.TrimSpace(t.Value) != "" {
			return strings.TrimSpace(t.Value)
		}
	}
	for _, t := range titles {
		if v := strings.TrimSpace(t.Value); v != "" {
			return v
		}
	}
	return ""
}

// pickIdno returns the identifier of the given type, case-insensitive.
func pickIdno(ids []Idno, idType string) string {
	for _, id := range ids {
		if strings.EqualFold(id.Type, idType) {
			return strings.TrimSpace(id.Value)
		}
	}
	return ""
}

// convertAuthors flattens structured TEI person names to display strings.
func convertAuthors(authors []Author) []string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if a.PersName == nil {
			continue
		}
		var parts []string
		for _, f := range a.PersName.Forenames {
			if v := strings.TrimSpace(f.Value); v != "" {
				parts = append(parts, v)
			}
		}
		if s := strings.TrimSpace(a.PersName.Surname); s != "" {
			parts = append(parts, s)
		}
		if len(parts) > 0 {
			names = append(names, strings.Join(parts, " "))
		}
	}
	return names
}

// pickYear extracts a four-digit year from the published date, falling back
// to any dated element.
func pickYear(dates []Date) int {
	parse := func(when string) int {
		if len(when) < 4 {
			return 0
		}
		year, err := strconv.Atoi(when[:4])
		if err != nil {
			return 0
		}
		return year
	}

	for _, d := range dates {
		if d.Type == "published" {
			if y := parse(d.When); y > 0 {
				return y
			}
		}
	}
	for _, d := range dates {
		if y := parse(d.When); y > 0 {
			return y
		}
	}
	return 0
}
