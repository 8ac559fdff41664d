// Package openalex provides a citation enricher backed by the OpenAlex API.
//
// OpenAlex is a free, open catalog of scholarly works. The enricher resolves
// a document's DOI to an OpenAlex work, reads its referenced_works list, and
// hydrates the referenced work IDs in filtered batches.
//
// API Documentation: https://docs.openalex.org/
package openalex

// ListResponse represents the top-level response from the works list endpoint.
type ListResponse struct {
	Meta    Meta   `json:"meta"`
	Results []Work `json:"results"`
}

// Meta contains metadata about a works list response.
type Meta struct {
	Count   int `json:"count"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Work represents an academic work in OpenAlex.
type Work struct {
	ID              string       `json:"id"`
	DOI             string       `json:"doi"`
	Title           string       `json:"title"`
	DisplayName     string       `json:"display_name"`
	PublicationYear int          `json:"publication_year"`
	Authorships     []Authorship `json:"authorships"`
	PrimaryLocation *Location    `json:"primary_location"`
	ReferencedWorks []string     `json:"referenced_works"`
}

// Authorship represents an author's contribution to a work.
type Authorship struct {
	AuthorPosition string     `json:"author_position"`
	Author         AuthorInfo `json:"author"`
}

// AuthorInfo contains basic author information.
type AuthorInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Location represents where a work is available.
type Location struct {
	Source *Source `json:"source"`
}

// Source represents a publication venue (journal, repository, etc.).
type Source struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// ErrorResponse represents an error payload from the API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
