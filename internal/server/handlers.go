package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/chive-archive/citation-service/internal/domain"
	"github.com/chive-archive/citation-service/internal/graphstore"
)

// Validation constants.
const (
	maxRequestBodySize  = 1 << 20 // 1 MB limit for request bodies
	defaultCoCitedLimit = 20
	maxCoCitedLimit     = 100
)

// runExtractionRequest is the JSON request body for triggering an extraction
// run. Structural extraction and enrichment both default to enabled.
type runExtractionRequest struct {
	DocumentURI string `json:"document_uri" validate:"required"`
	DOI         string `json:"doi,omitempty"`
	OwnerID     string `json:"owner_id,omitempty"`
	ContentID   string `json:"content_id,omitempty"`

	DisableStructural bool `json:"disable_structural,omitempty"`
	DisableEnrichers  bool `json:"disable_enrichers,omitempty"`
}

// runExtraction handles POST /api/v1/extractions.
// The run executes synchronously and the response carries the full summary,
// including a failed run's error.
func (s *Server) runExtraction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req runExtractionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "document_uri is required")
		return
	}

	opts := domain.ExtractionOptions{
		UseStructuralExtractor: !req.DisableStructural,
		UseEnrichers:           !req.DisableEnrichers,
		DOI:                    req.DOI,
		OwnerID:                req.OwnerID,
		ContentID:              req.ContentID,
	}

	result, err := s.extraction.ExtractCitations(ctx, req.DocumentURI, opts)
	if err != nil {
		if result == nil {
			writeDomainError(w, err)
			return
		}
		// The run produced a summary even though it failed; return it with
		// an error status so callers can inspect the per-source notes.
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// getCitations handles GET /api/v1/documents/citations?citing_uri=...
// It returns the stored canonical citation set for a document.
func (s *Server) getCitations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	citingURI := r.URL.Query().Get("citing_uri")
	if citingURI == "" {
		writeError(w, http.StatusBadRequest, "citing_uri is required")
		return
	}

	citations, err := s.citations.GetByCitingURI(ctx, citingURI)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	count, err := s.citations.CountByCitingURI(ctx, citingURI)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]citationResponse, len(citations))
	for i := range citations {
		responses[i] = domainCitationToResponse(&citations[i])
	}

	writeJSON(w, http.StatusOK, listCitationsResponse{
		CitingURI:  citingURI,
		Citations:  responses,
		TotalCount: count,
	})
}

// getReferences handles GET /api/v1/graph/references?uri=...
// It returns the documents the given document cites.
func (s *Server) getReferences(w http.ResponseWriter, r *http.Request) {
	s.getEdges(w, r, s.graph.References)
}

// getCitedBy handles GET /api/v1/graph/cited-by?uri=...
// It returns the documents that cite the given document.
func (s *Server) getCitedBy(w http.ResponseWriter, r *http.Request) {
	s.getEdges(w, r, s.graph.CitedBy)
}

// getCoCited handles GET /api/v1/graph/co-cited?uri=...&limit=N.
// It returns documents frequently cited together with the given document.
func (s *Server) getCoCited(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	uri := r.URL.Query().Get("uri")
	if uri == "" {
		writeError(w, http.StatusBadRequest, "uri is required")
		return
	}

	limit := defaultCoCitedLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxCoCitedLimit {
		limit = maxCoCitedLimit
	}

	coCited, err := s.graph.CoCitedWith(ctx, uri, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if coCited == nil {
		coCited = []graphstore.CoCitation{}
	}

	writeJSON(w, http.StatusOK, coCitedResponse{URI: uri, CoCited: coCited})
}

// getEdges runs one graph edge query keyed by the uri query parameter.
func (s *Server) getEdges(w http.ResponseWriter, r *http.Request, query func(ctx context.Context, uri string) ([]domain.CitationRelationship, error)) {
	ctx := r.Context()

	uri := r.URL.Query().Get("uri")
	if uri == "" {
		writeError(w, http.StatusBadRequest, "uri is required")
		return
	}

	edges, err := query(ctx, uri)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]edgeResponse, len(edges))
	for i := range edges {
		responses[i] = domainEdgeToResponse(&edges[i])
	}

	writeJSON(w, http.StatusOK, listEdgesResponse{URI: uri, Edges: responses})
}
