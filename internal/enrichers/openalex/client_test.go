package openalex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chive-archive/citation-service/internal/domain"
	"github.com/chive-archive/citation-service/internal/enrichers"
)

// testClient creates a client pointed at the given server with rate limiting
// effectively disabled.
func testClient(baseURL string) *Client {
	return NewWithHTTPClient(Config{
		BaseURL: baseURL,
	}, enrichers.NewHTTPClient(enrichers.HTTPClientConfig{
		RateLimit: 1000,
		BurstSize: 1000,
	}))
}

func TestNew(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		client := New(Config{Email: "team@chive.example"})

		require.NotNil(t, client)
		assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
		assert.Equal(t, DefaultTimeout, client.config.Timeout)
		assert.Equal(t, DefaultRateLimit, client.config.RateLimit)
		assert.Equal(t, DefaultBurstSize, client.config.BurstSize)
	})

	t.Run("identifies itself", func(t *testing.T) {
		client := New(Config{})

		assert.Equal(t, domain.SourceTypeOpenAlex, client.Source())
		assert.Equal(t, "OpenAlex", client.Name())
	})
}

func TestClient_GetPaperByDOI(t *testing.T) {
	t.Run("resolves DOI to short work ID", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/works/https://doi.org/10.1038/nature14539", r.URL.Path)

			json.NewEncoder(w).Encode(Work{ID: "https://openalex.org/W2128227538"})
		}))
		defer server.Close()

		client := testClient(server.URL)
		id, err := client.GetPaperByDOI(context.Background(), "10.1038/nature14539")
		require.NoError(t, err)
		assert.Equal(t, "W2128227538", id)
	})

	t.Run("returns not found on 404", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := testClient(server.URL)
		_, err := client.GetPaperByDOI(context.Background(), "10.1/missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestClient_GetReferences(t *testing.T) {
	t.Run("hydrates referenced works in batches", func(t *testing.T) {
		// 60 referenced works forces two filter batches.
		referenced := make([]string, 60)
		for i := range referenced {
			referenced[i] = "https://openalex.org/W" + string(rune('A'+i%26)) + "x"
		}
		referenced[0] = "https://openalex.org/W1"
		referenced[1] = "https://openalex.org/W2"

		var batchRequests int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.URL.Path == "/works/W100":
				json.NewEncoder(w).Encode(Work{
					ID:              "https://openalex.org/W100",
					ReferencedWorks: referenced,
				})
			case r.URL.Path == "/works":
				batchRequests++
				filter := r.URL.Query().Get("filter")
				assert.True(t, strings.HasPrefix(filter, "openalex_id:"))
				ids := strings.Split(strings.TrimPrefix(filter, "openalex_id:"), "|")
				assert.LessOrEqual(t, len(ids), 50)

				json.NewEncoder(w).Encode(ListResponse{
					Results: []Work{
						{
							ID:              "https://openalex.org/" + ids[0],
							DOI:             "https://doi.org/10.1/" + ids[0],
							Title:           "Cited " + ids[0],
							PublicationYear: 2020,
							Authorships: []Authorship{
								{Author: AuthorInfo{DisplayName: "Grace Hopper"}},
							},
							PrimaryLocation: &Location{Source: &Source{DisplayName: "JACM"}},
						},
					},
				})
			default:
				t.Errorf("unexpected path %q", r.URL.Path)
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		client := testClient(server.URL)
		refs, err := client.GetReferences(context.Background(), "W100")
		require.NoError(t, err)

		assert.Equal(t, 2, batchRequests)
		require.Len(t, refs, 2)
		assert.Equal(t, "Cited W1", refs[0].Title)
		assert.Equal(t, "10.1/W1", refs[0].DOI)
		assert.Equal(t, 2020, refs[0].Year)
		assert.Equal(t, "JACM", refs[0].Venue)
		assert.Equal(t, []string{"Grace Hopper"}, refs[0].Authors)
		assert.Equal(t, domain.SourceTypeOpenAlex, refs[0].Source)
	})

	t.Run("work without references", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(Work{ID: "https://openalex.org/W5"})
		}))
		defer server.Close()

		client := testClient(server.URL)
		refs, err := client.GetReferences(context.Background(), "W5")
		require.NoError(t, err)
		assert.Empty(t, refs)
	})

	t.Run("falls back to display name and strips DOI prefix", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/works" {
				json.NewEncoder(w).Encode(ListResponse{
					Results: []Work{{
						ID:          "https://openalex.org/W9",
						DOI:         "https://doi.org/10.1/w9",
						DisplayName: "Display Only",
					}},
				})
				return
			}
			json.NewEncoder(w).Encode(Work{
				ID:              "https://openalex.org/W8",
				ReferencedWorks: []string{"https://openalex.org/W9"},
			})
		}))
		defer server.Close()

		client := testClient(server.URL)
		refs, err := client.GetReferences(context.Background(), "W8")
		require.NoError(t, err)

		require.Len(t, refs, 1)
		assert.Equal(t, "Display Only", refs[0].Title)
		assert.Equal(t, "10.1/w9", refs[0].DOI)
	})
}
