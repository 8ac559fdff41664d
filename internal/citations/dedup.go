package citations

import (
	"time"

	"github.com/google/uuid"

	"github.com/chive-archive/citation-service/internal/domain"
)

// Deduplicate merges raw references from all sources into the ordered
// canonical citation set for a document. The input must already be
// concatenated in source priority order (structural extractor first, then
// enrichers in configuration order); the first raw reference seen for a
// dedup key wins and later copies are discarded without field merging.
func Deduplicate(citingURI string, refs []domain.RawReference) []domain.CanonicalCitation {
	seen := make(map[string]struct{}, len(refs))
	canonical := make([]domain.CanonicalCitation, 0, len(refs))
	now := time.Now().UTC()

	for _, ref := range refs {
		key := DedupKey(ref)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		canonical = append(canonical, domain.CanonicalCitation{
			ID:          uuid.New(),
			CitingURI:   citingURI,
			RawText:     ref.RawText,
			Title:       ref.Title,
			DOI:         NormalizeDOI(ref.DOI),
			Source:      ref.Source,
			MatchMethod: domain.MatchMethodNone,
			CreatedAt:   now,
		})
	}

	return canonical
}
