package semanticscholar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chive-archive/citation-service/internal/domain"
	"github.com/chive-archive/citation-service/internal/enrichers"
)

// testClient creates a client pointed at the given server with rate limiting
// effectively disabled.
func testClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL: baseURL,
	}, enrichers.NewHTTPClient(enrichers.HTTPClientConfig{
		RateLimit: 1000,
		BurstSize: 1000,
	}))
}

func TestNewClient(t *testing.T) {
	t.Run("creates client with default values", func(t *testing.T) {
		client := NewClient(Config{}, nil)

		require.NotNil(t, client)
		assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
		assert.Equal(t, DefaultTimeout, client.config.Timeout)
		assert.Equal(t, DefaultRateLimit, client.config.RateLimit)
		assert.Equal(t, DefaultBurstSize, client.config.BurstSize)
		assert.Equal(t, DefaultPageSize, client.config.PageSize)
	})

	t.Run("creates client with custom config", func(t *testing.T) {
		cfg := Config{
			BaseURL:   "https://custom.api.com/v1",
			APIKey:    "test-api-key",
			Timeout:   60 * time.Second,
			RateLimit: 50.0,
			BurstSize: 20,
			PageSize:  100,
		}
		client := NewClient(cfg, nil)

		require.NotNil(t, client)
		assert.Equal(t, cfg.BaseURL, client.config.BaseURL)
		assert.Equal(t, cfg.Timeout, client.config.Timeout)
		assert.Equal(t, cfg.PageSize, client.config.PageSize)
	})

	t.Run("identifies itself", func(t *testing.T) {
		client := NewClient(Config{}, nil)

		assert.Equal(t, domain.SourceTypeSemanticScholar, client.Source())
		assert.Equal(t, "Semantic Scholar", client.Name())
	})
}

func TestClient_GetPaperByDOI(t *testing.T) {
	t.Run("resolves DOI to paper ID", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/paper/DOI:10.1038/nature14539", r.URL.Path)
			assert.Equal(t, "paperId", r.URL.Query().Get("fields"))

			json.NewEncoder(w).Encode(PaperResponse{PaperID: "ss-paper-1"})
		}))
		defer server.Close()

		client := testClient(server.URL)
		id, err := client.GetPaperByDOI(context.Background(), "10.1038/nature14539")
		require.NoError(t, err)
		assert.Equal(t, "ss-paper-1", id)
	})

	t.Run("returns not found on 404", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := testClient(server.URL)
		_, err := client.GetPaperByDOI(context.Background(), "10.1/missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("returns not found on empty paper ID", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(PaperResponse{})
		}))
		defer server.Close()

		client := testClient(server.URL)
		_, err := client.GetPaperByDOI(context.Background(), "10.1/empty")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("returns API error on server failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "bad DOI"})
		}))
		defer server.Close()

		client := testClient(server.URL)
		_, err := client.GetPaperByDOI(context.Background(), "not-a-doi")
		require.Error(t, err)

		var apiErr *domain.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, "bad DOI", apiErr.Message)
	})
}

func TestClient_GetReferences(t *testing.T) {
	t.Run("drains pagination", func(t *testing.T) {
		pages := map[string]ReferencesResponse{
			"": {
				Next: 2,
				Data: []ReferenceEntry{
					{CitedPaper: PaperResponse{
						PaperID:     "p1",
						Title:       "First Cited Paper",
						Year:        2019,
						Venue:       "NeurIPS",
						ExternalIDs: map[string]string{"DOI": "10.1/first"},
						Authors:     []Author{{AuthorID: "a1", Name: "Ada Lovelace"}},
					}},
					{CitedPaper: PaperResponse{PaperID: "p2", Title: "Second Cited Paper"}},
				},
			},
			"2": {
				Next: 0,
				Data: []ReferenceEntry{
					{CitedPaper: PaperResponse{PaperID: "p3", Title: "Third Cited Paper"}},
				},
			},
		}

		var requests int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			assert.Equal(t, "/paper/ss-paper-1/references", r.URL.Path)

			page, ok := pages[r.URL.Query().Get("offset")]
			require.True(t, ok, "unexpected offset %q", r.URL.Query().Get("offset"))
			json.NewEncoder(w).Encode(page)
		}))
		defer server.Close()

		client := testClient(server.URL)
		refs, err := client.GetReferences(context.Background(), "ss-paper-1")
		require.NoError(t, err)

		assert.Equal(t, 2, requests)
		require.Len(t, refs, 3)
		assert.Equal(t, "First Cited Paper", refs[0].Title)
		assert.Equal(t, "10.1/first", refs[0].DOI)
		assert.Equal(t, 2019, refs[0].Year)
		assert.Equal(t, "NeurIPS", refs[0].Venue)
		assert.Equal(t, []string{"Ada Lovelace"}, refs[0].Authors)
		assert.Equal(t, domain.SourceTypeSemanticScholar, refs[0].Source)
		assert.Equal(t, "Third Cited Paper", refs[2].Title)
	})

	t.Run("returns not found for unknown paper", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := testClient(server.URL)
		_, err := client.GetReferences(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("empty reference list", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(ReferencesResponse{})
		}))
		defer server.Close()

		client := testClient(server.URL)
		refs, err := client.GetReferences(context.Background(), "childless")
		require.NoError(t, err)
		assert.Empty(t, refs)
	})
}
