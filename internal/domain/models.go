// Package domain provides domain models and business logic for the Chive citation service.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SourceType identifies which extraction source reported a reference.
// These values must match the database enum citation_source.
type SourceType string

const (
	// SourceTypeStructural is the structural reference extractor (GROBID).
	SourceTypeStructural SourceType = "structural"
	// SourceTypeSemanticScholar is the Semantic Scholar graph enricher.
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
	// SourceTypeOpenAlex is the OpenAlex graph enricher.
	SourceTypeOpenAlex SourceType = "openalex"
)

// MatchMethod describes how a canonical citation was resolved against the
// Chive corpus. These values must match the database enum match_method.
type MatchMethod string

const (
	// MatchMethodDOI is an exact case-insensitive DOI match (confidence 1.0).
	MatchMethodDOI MatchMethod = "doi"
	// MatchMethodTitle is an exact normalized-title match (sub-unity confidence).
	MatchMethodTitle MatchMethod = "title"
	// MatchMethodNone means the reference could not be resolved.
	MatchMethodNone MatchMethod = "none"
)

// DOIMatchConfidence is the confidence assigned to DOI matches.
const DOIMatchConfidence = 1.0

// RawReference is one reference as reported by a single source. Raw
// references live only for the duration of an extraction run; they are
// merged into CanonicalCitations before anything is persisted.
type RawReference struct {
	// RawText is the original citation string as reported by the source.
	RawText string
	// Title is the parsed title, if the source could identify one.
	Title string
	// Authors is the ordered list of author names.
	Authors []string
	// DOI is the reference's DOI as reported, un-normalized.
	DOI string
	// Year is the publication year, 0 if unknown.
	Year int
	// Venue is the publication venue, if known.
	Venue string
	// Source identifies which extractor or enricher reported this reference.
	Source SourceType
}

// CanonicalCitation is the deduplicated, per-document reference record that
// survives normalization. The set of canonical citations for a citing
// document is recomputed in full on every extraction run.
type CanonicalCitation struct {
	ID uuid.UUID
	// CitingURI is the Chive URI of the document being analyzed.
	CitingURI string
	// RawText is the citation string of the surviving raw reference.
	RawText string
	// Title is the parsed title of the surviving copy, if any.
	Title string
	// DOI is the normalized DOI of the surviving copy, if any.
	DOI string
	// Source is the source of the surviving copy (first-writer-wins).
	Source SourceType
	// ChiveMatchURI is the URI of the resolved local document, empty if the
	// reference could not be matched.
	ChiveMatchURI string
	// MatchConfidence is 1.0 for DOI matches, sub-unity for title matches,
	// and 0 when unmatched.
	MatchConfidence float64
	// MatchMethod records how the match was made.
	MatchMethod MatchMethod
	CreatedAt   time.Time
}

// Matched reports whether this citation resolved to a local document.
func (c *CanonicalCitation) Matched() bool {
	return c.ChiveMatchURI != "" && c.MatchMethod != MatchMethodNone
}

// CitationRelationship is a directed citation-graph edge from a citing
// document to a cited document. Edges exist only for matched canonical
// citations and are replaced in lock-step with the citation set.
type CitationRelationship struct {
	CitingURI  string
	CitedURI   string
	Confidence float64
	CreatedAt  time.Time
}

// ExtractionOptions control a single citation extraction run.
type ExtractionOptions struct {
	// UseStructuralExtractor enables the structural (PDF) extractor. The
	// document bytes are fetched from the document store using OwnerID and
	// ContentID.
	UseStructuralExtractor bool
	// UseEnrichers enables the configured scholarly-graph enrichers. They
	// are consulted only when DOI is also set.
	UseEnrichers bool
	// DOI is the citing document's own DOI, used to query enrichers.
	DOI string
	// OwnerID identifies the document owner in the document store.
	OwnerID string
	// ContentID identifies the document content in the document store.
	ContentID string
}

// ExtractionResult summarizes one extraction run. It is returned to the
// caller and never persisted.
type ExtractionResult struct {
	// CitingURI is the document the run was executed for.
	CitingURI string `json:"citing_uri"`
	// SourceCounts maps each source to the number of raw references it
	// contributed before deduplication.
	SourceCounts map[SourceType]int `json:"source_counts"`
	// SourceErrors records per-source failure notes. A failed source is
	// non-fatal; it simply contributes zero references.
	SourceErrors map[SourceType]string `json:"source_errors,omitempty"`
	// TotalExtracted is the number of canonical citations after dedup.
	TotalExtracted int `json:"total_extracted"`
	// MatchedToChive is the number of canonical citations resolved to a
	// local document (self-citations excluded).
	MatchedToChive int `json:"matched_to_chive"`
	// DurationMs is the wall-clock duration of the run in milliseconds.
	DurationMs int64 `json:"duration_ms"`
	// Success is false only when a storage-layer write failed.
	Success bool `json:"success"`
	// Error carries the storage failure message when Success is false.
	Error string `json:"error,omitempty"`
}

// NewExtractionResult creates an empty result for the given document.
func NewExtractionResult(citingURI string) *ExtractionResult {
	return &ExtractionResult{
		CitingURI:    citingURI,
		SourceCounts: make(map[SourceType]int),
		SourceErrors: make(map[SourceType]string),
	}
}

// CorpusDocument is the read-model row the matcher resolves references
// against. The documents index is owned by the indexing subsystem; this
// service only reads it.
type CorpusDocument struct {
	URI             string
	DOI             string
	Title           string
	NormalizedTitle string
}
