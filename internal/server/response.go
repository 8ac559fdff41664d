package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/chive-archive/citation-service/internal/domain"
	"github.com/chive-archive/citation-service/internal/graphstore"
)

// Response types for JSON serialization.

type citationResponse struct {
	ID              string    `json:"id"`
	CitingURI       string    `json:"citing_uri"`
	RawText         string    `json:"raw_text,omitempty"`
	Title           string    `json:"title,omitempty"`
	DOI             string    `json:"doi,omitempty"`
	Source          string    `json:"source"`
	ChiveMatchURI   string    `json:"chive_match_uri,omitempty"`
	MatchConfidence float64   `json:"match_confidence,omitempty"`
	MatchMethod     string    `json:"match_method"`
	CreatedAt       time.Time `json:"created_at"`
}

type listCitationsResponse struct {
	CitingURI  string             `json:"citing_uri"`
	Citations  []citationResponse `json:"citations"`
	TotalCount int64              `json:"total_count"`
}

type edgeResponse struct {
	CitingURI  string    `json:"citing_uri"`
	CitedURI   string    `json:"cited_uri"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

type listEdgesResponse struct {
	URI   string         `json:"uri"`
	Edges []edgeResponse `json:"edges"`
}

type coCitedResponse struct {
	URI     string                 `json:"uri"`
	CoCited []graphstore.CoCitation `json:"co_cited"`
}

// Converter functions

func domainCitationToResponse(c *domain.CanonicalCitation) citationResponse {
	return citationResponse{
		ID:              c.ID.String(),
		CitingURI:       c.CitingURI,
		RawText:         c.RawText,
		Title:           c.Title,
		DOI:             c.DOI,
		Source:          string(c.Source),
		ChiveMatchURI:   c.ChiveMatchURI,
		MatchConfidence: c.MatchConfidence,
		MatchMethod:     string(c.MatchMethod),
		CreatedAt:       c.CreatedAt,
	}
}

func domainEdgeToResponse(e *domain.CitationRelationship) edgeResponse {
	return edgeResponse{
		CitingURI:  e.CitingURI,
		CitedURI:   e.CitedURI,
		Confidence: e.Confidence,
		CreatedAt:  e.CreatedAt,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// writeDomainError maps domain errors to HTTP status codes and writes a JSON
// error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, domain.ErrCancelled):
		writeError(w, http.StatusConflict, "operation cancelled")
	case errors.Is(err, domain.ErrExtractionInProgress):
		writeError(w, http.StatusConflict, "extraction already in progress")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
