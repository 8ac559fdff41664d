package citations

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chive-archive/citation-service/internal/domain"
)

func TestNormalizeDOI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"already normalized", "10.1000/xyz123", "10.1000/xyz123"},
		{"uppercase", "10.1000/XYZ123", "10.1000/xyz123"},
		{"surrounding whitespace", "  10.1000/xyz123\n", "10.1000/xyz123"},
		{"https resolver prefix", "https://doi.org/10.1000/xyz123", "10.1000/xyz123"},
		{"http resolver prefix", "http://doi.org/10.1000/xyz123", "10.1000/xyz123"},
		{"doi scheme prefix", "doi:10.1000/xyz123", "10.1000/xyz123"},
		{"uppercase resolver prefix", "HTTPS://DOI.ORG/10.1000/XYZ123", "10.1000/xyz123"},
		{"whitespace then prefix", "  doi:10.1000/xyz123  ", "10.1000/xyz123"},
		{"prefix only", "doi:", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDOI(tt.input))
		})
	}
}

func TestNormalizeDOICaseInsensitiveEquality(t *testing.T) {
	// The same DOI reported with different decorations must collapse to one key.
	variants := []string{
		"10.1234/ABC.DEF",
		"doi:10.1234/abc.def",
		"https://doi.org/10.1234/Abc.Def",
	}
	for _, v := range variants {
		assert.Equal(t, "10.1234/abc.def", NormalizeDOI(v))
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"simple", "Attention Is All You Need", "attention is all you need"},
		{"punctuation stripped", "BERT: Pre-training of Deep Bidirectional Transformers", "bert pre training of deep bidirectional transformers"},
		{"whitespace collapsed", "  deep   learning \t methods ", "deep learning methods"},
		{"diacritics stripped", "Müller-Lyer illusion étude", "muller lyer illusion etude"},
		{"digits kept", "ResNet-50 at scale", "resnet 50 at scale"},
		{"punctuation only", "—:!?", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTitle(tt.input))
		})
	}
}

func TestDedupKey(t *testing.T) {
	t.Run("prefers DOI over title", func(t *testing.T) {
		ref := domain.RawReference{
			DOI:   "https://doi.org/10.1/A",
			Title: "Some Title",
		}
		assert.Equal(t, "doi:10.1/a", DedupKey(ref))
	})

	t.Run("falls back to normalized title", func(t *testing.T) {
		ref := domain.RawReference{Title: "Some: Title!"}
		assert.Equal(t, "title:some title", DedupKey(ref))
	})

	t.Run("falls back to raw text", func(t *testing.T) {
		ref := domain.RawReference{RawText: "Smith et al. 1999, unpublished."}
		assert.Equal(t, "raw:Smith et al. 1999, unpublished.", DedupKey(ref))
	})

	t.Run("identifier classes never collide", func(t *testing.T) {
		byDOI := DedupKey(domain.RawReference{DOI: "10.1/x"})
		byTitle := DedupKey(domain.RawReference{Title: "10.1/x"})
		byRaw := DedupKey(domain.RawReference{RawText: "10.1/x"})
		assert.NotEqual(t, byDOI, byTitle)
		assert.NotEqual(t, byDOI, byRaw)
		assert.NotEqual(t, byTitle, byRaw)
	})

	t.Run("empty reference keys on empty raw text", func(t *testing.T) {
		assert.Equal(t, "raw:", DedupKey(domain.RawReference{}))
	})
}
