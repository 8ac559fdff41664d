// Package citations implements the core citation extraction pipeline:
// normalization and deduplication of raw references, matching against the
// Chive corpus, and orchestration of the extraction run.
package citations

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/chive-archive/citation-service/internal/domain"
)

// Dedup key prefixes. Keys from different identifier classes must never
// collide, so each class gets its own namespace.
const (
	keyPrefixDOI   = "doi:"
	keyPrefixTitle = "title:"
	keyPrefixRaw   = "raw:"
)

// doiPrefixes are the recognized decorations stripped from reported DOIs.
var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"doi:",
}

// diacriticsStripper decomposes characters and drops combining marks, so
// "Müller" and "Muller" normalize to the same title key.
var diacriticsStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeDOI canonicalizes a DOI: lowercase, surrounding whitespace
// removed, and any resolver or scheme prefix stripped. Returns the empty
// string for an empty input.
func NormalizeDOI(doi string) string {
	d := strings.ToLower(strings.TrimSpace(doi))
	for _, prefix := range doiPrefixes {
		if strings.HasPrefix(d, prefix) {
			d = d[len(prefix):]
			break
		}
	}
	return strings.TrimSpace(d)
}

// NormalizeTitle canonicalizes a title for exact-key matching: diacritics
// stripped, lowercased, punctuation removed, whitespace collapsed to single
// spaces. Returns the empty string if nothing identifiable remains.
func NormalizeTitle(title string) string {
	stripped, _, err := transform.String(diacriticsStripper, title)
	if err != nil {
		// Transform failures are only possible on malformed UTF-8; fall
		// back to the raw input rather than losing the title.
		stripped = title
	}

	var b strings.Builder
	b.Grow(len(stripped))
	lastSpace := true
	for _, r := range strings.ToLower(stripped) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// DedupKey computes the deduplication key for a raw reference: the
// normalized DOI when present, else the normalized title, else the raw
// citation text verbatim. The raw-text fallback guarantees every reference
// is retained even when it carries no usable identifier.
func DedupKey(ref domain.RawReference) string {
	if doi := NormalizeDOI(ref.DOI); doi != "" {
		return keyPrefixDOI + doi
	}
	if title := NormalizeTitle(ref.Title); title != "" {
		return keyPrefixTitle + title
	}
	return keyPrefixRaw + ref.RawText
}
