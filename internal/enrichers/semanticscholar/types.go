// Package semanticscholar provides a citation enricher backed by the
// Semantic Scholar Graph API.
//
// The enricher resolves a document's DOI to a Semantic Scholar paper ID and
// drains the paper's reference list across the API's offset pagination.
//
// API Documentation: https://api.semanticscholar.org/api-docs/
package semanticscholar

// PaperResponse represents a single paper returned by the paper lookup endpoint.
type PaperResponse struct {
	// PaperID is the Semantic Scholar unique identifier for the paper.
	PaperID string `json:"paperId"`

	// Title is the title of the paper.
	Title string `json:"title"`

	// Year is the publication year.
	Year int `json:"year"`

	// Venue is the publication venue (conference, journal name, etc.).
	Venue string `json:"venue"`

	// ExternalIDs maps identifier schemes (DOI, ArXiv, ...) to values.
	ExternalIDs map[string]string `json:"externalIds"`

	// Authors is the list of paper authors.
	Authors []Author `json:"authors"`
}

// Author contains basic author information.
type Author struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

// ReferencesResponse represents one page of the paper references endpoint.
type ReferencesResponse struct {
	// Offset is the current offset in the reference list.
	Offset int `json:"offset"`

	// Next is the offset for the next page of references.
	// A value of 0 indicates no more results.
	Next int `json:"next"`

	// Data contains the references on this page.
	Data []ReferenceEntry `json:"data"`
}

// ReferenceEntry wraps one cited paper in the references response.
type ReferenceEntry struct {
	CitedPaper PaperResponse `json:"citedPaper"`
}

// ErrorResponse represents an error payload from the API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
