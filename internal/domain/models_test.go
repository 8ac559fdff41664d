package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalCitation_Matched(t *testing.T) {
	t.Run("matched by doi", func(t *testing.T) {
		c := CanonicalCitation{
			ChiveMatchURI:   "chive://papers/p2",
			MatchMethod:     MatchMethodDOI,
			MatchConfidence: DOIMatchConfidence,
		}
		assert.True(t, c.Matched())
	})

	t.Run("matched by title", func(t *testing.T) {
		c := CanonicalCitation{
			ChiveMatchURI:   "chive://papers/p2",
			MatchMethod:     MatchMethodTitle,
			MatchConfidence: 0.7,
		}
		assert.True(t, c.Matched())
	})

	t.Run("unmatched has no uri", func(t *testing.T) {
		c := CanonicalCitation{MatchMethod: MatchMethodNone}
		assert.False(t, c.Matched())
	})

	t.Run("uri without method is not matched", func(t *testing.T) {
		c := CanonicalCitation{ChiveMatchURI: "chive://papers/p2", MatchMethod: MatchMethodNone}
		assert.False(t, c.Matched())
	})
}

func TestNewExtractionResult(t *testing.T) {
	r := NewExtractionResult("chive://papers/p1")

	assert.Equal(t, "chive://papers/p1", r.CitingURI)
	assert.NotNil(t, r.SourceCounts)
	assert.NotNil(t, r.SourceErrors)
	assert.Zero(t, r.TotalExtracted)
	assert.Zero(t, r.MatchedToChive)
	assert.False(t, r.Success)
}

func TestErrorUnwrapping(t *testing.T) {
	t.Run("not found error unwraps to sentinel", func(t *testing.T) {
		err := NewNotFoundError("document", "chive://papers/p1")
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.Contains(t, err.Error(), "document not found")
	})

	t.Run("validation error unwraps to invalid input", func(t *testing.T) {
		err := NewValidationError("citing_uri", "is required")
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("persistence error preserves cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := NewPersistenceError("citation", "replace", cause)
		assert.True(t, errors.Is(err, cause))
		assert.Contains(t, err.Error(), "citation store")
	})

	t.Run("external api error preserves cause", func(t *testing.T) {
		cause := errors.New("timeout")
		err := NewExternalAPIError("GROBID", 503, "unavailable", cause)
		assert.True(t, errors.Is(err, cause))
	})
}
