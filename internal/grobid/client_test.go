package grobid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chive-archive/citation-service/internal/domain"
)

const sampleTEI = `<?xml version="1.0" encoding="UTF-8"?>
<TEI xmlns="http://www.tei-c.org/ns/1.0">
  <text>
    <back>
      <div>
        <listBibl>
          <biblStruct>
            <analytic>
              <title level="a" type="main">Attention Is All You Need</title>
              <author>
                <persName>
                  <forename type="first">Ashish</forename>
                  <surname>Vaswani</surname>
                </persName>
              </author>
              <author>
                <persName>
                  <forename type="first">Noam</forename>
                  <surname>Shazeer</surname>
                </persName>
              </author>
              <idno type="DOI">10.48550/arXiv.1706.03762</idno>
            </analytic>
            <monogr>
              <title level="j">Advances in Neural Information Processing Systems</title>
              <imprint>
                <date type="published" when="2017-12-04" />
              </imprint>
            </monogr>
            <note type="raw_reference">Vaswani, A. et al. Attention is all you need. NeurIPS 2017.</note>
          </biblStruct>
          <biblStruct>
            <monogr>
              <title level="m">Deep Learning</title>
              <author>
                <persName>
                  <forename type="first">Ian</forename>
                  <surname>Goodfellow</surname>
                </persName>
              </author>
              <imprint>
                <date type="published" when="2016" />
              </imprint>
            </monogr>
            <note type="raw_reference">Goodfellow, I. Deep Learning. MIT Press, 2016.</note>
          </biblStruct>
          <biblStruct>
            <note type="raw_reference">Smith, J. Unparseable scribble, no year.</note>
          </biblStruct>
        </listBibl>
      </div>
    </back>
  </text>
</TEI>`

func TestNewClient(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		client := NewClient(Config{})

		assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
		assert.Equal(t, DefaultTimeout, client.config.Timeout)
		assert.Equal(t, int64(DefaultMaxResponseSize), client.config.MaxResponseSize)
		assert.Equal(t, "GROBID", client.Name())
	})
}

func TestIsAvailable(t *testing.T) {
	t.Run("true when server answers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/isalive", r.URL.Path)
			w.Write([]byte("true"))
		}))
		defer server.Close()

		client := NewClient(Config{BaseURL: server.URL})
		assert.True(t, client.IsAvailable(context.Background()))
	})

	t.Run("false on non-200", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewClient(Config{BaseURL: server.URL})
		assert.False(t, client.IsAvailable(context.Background()))
	})

	t.Run("false when unreachable", func(t *testing.T) {
		client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
		assert.False(t, client.IsAvailable(context.Background()))
	})
}

func TestExtractReferences(t *testing.T) {
	t.Run("parses TEI bibliography", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/processReferences", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)

			require.NoError(t, r.ParseMultipartForm(32<<20))
			assert.Equal(t, "1", r.FormValue("includeRawCitations"))

			file, _, err := r.FormFile("input")
			require.NoError(t, err)
			file.Close()

			w.Header().Set("Content-Type", "application/xml")
			w.Write([]byte(sampleTEI))
		}))
		defer server.Close()

		client := NewClient(Config{BaseURL: server.URL})
		refs, err := client.ExtractReferences(context.Background(), []byte("%PDF-1.5 fake"))
		require.NoError(t, err)
		require.Len(t, refs, 3)

		assert.Equal(t, "Attention Is All You Need", refs[0].Title)
		assert.Equal(t, "10.48550/arXiv.1706.03762", refs[0].DOI)
		assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, refs[0].Authors)
		assert.Equal(t, "Advances in Neural Information Processing Systems", refs[0].Venue)
		assert.Equal(t, 2017, refs[0].Year)
		assert.Equal(t, "Vaswani, A. et al. Attention is all you need. NeurIPS 2017.", refs[0].RawText)
		assert.Equal(t, domain.SourceTypeStructural, refs[0].Source)

		// Monograph without an analytic part keeps its own title and authors.
		assert.Equal(t, "Deep Learning", refs[1].Title)
		assert.Equal(t, []string{"Ian Goodfellow"}, refs[1].Authors)
		assert.Equal(t, 2016, refs[1].Year)

		// Unparseable entry survives on raw text alone.
		assert.Empty(t, refs[2].Title)
		assert.Empty(t, refs[2].DOI)
		assert.Equal(t, "Smith, J. Unparseable scribble, no year.", refs[2].RawText)
	})

	t.Run("sends consolidation flag when configured", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(32<<20))
			assert.Equal(t, "1", r.FormValue("consolidateCitations"))
			w.Write([]byte(sampleTEI))
		}))
		defer server.Close()

		client := NewClient(Config{BaseURL: server.URL, ConsolidateCitations: true})
		_, err := client.ExtractReferences(context.Background(), []byte("%PDF"))
		require.NoError(t, err)
	})

	t.Run("no content means no references", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		client := NewClient(Config{BaseURL: server.URL})
		refs, err := client.ExtractReferences(context.Background(), []byte("%PDF"))
		require.NoError(t, err)
		assert.Empty(t, refs)
	})

	t.Run("rejects empty document", func(t *testing.T) {
		client := NewClient(Config{})
		_, err := client.ExtractReferences(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("maps 503 to service unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewClient(Config{BaseURL: server.URL})
		_, err := client.ExtractReferences(context.Background(), []byte("%PDF"))
		assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	})

	t.Run("surfaces server errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("invalid PDF"))
		}))
		defer server.Close()

		client := NewClient(Config{BaseURL: server.URL})
		_, err := client.ExtractReferences(context.Background(), []byte("not a pdf"))
		require.Error(t, err)

		var apiErr *domain.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})
}
