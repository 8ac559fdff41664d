package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_citations_new")

	assert.NotNil(t, m.ExtractionsStarted)
	assert.NotNil(t, m.ExtractionsCompleted)
	assert.NotNil(t, m.ExtractionsFailed)
	assert.NotNil(t, m.ExtractionDuration)
	assert.NotNil(t, m.ReferencesExtracted)
	assert.NotNil(t, m.SourceFailures)
	assert.NotNil(t, m.CitationsMatched)
	assert.NotNil(t, m.MatchesByMethod)
	assert.NotNil(t, m.EdgesWritten)
	assert.NotNil(t, m.CitationsReplaced)
	assert.NotNil(t, m.EventsConsumed)
	assert.NotNil(t, m.EventsPublished)
	assert.NotNil(t, m.HTTPRequestDuration)
}

func TestExtractionCounters(t *testing.T) {
	m := NewMetrics("test_citations_extractions")

	initial := testutil.ToFloat64(m.ExtractionsStarted)
	m.ExtractionsStarted.Inc()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.ExtractionsStarted))

	m.ExtractionsCompleted.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExtractionsCompleted))

	m.ExtractionsFailed.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExtractionsFailed))
}

func TestExtractionDuration(t *testing.T) {
	m := NewMetrics("test_citations_duration")

	m.ExtractionDuration.Observe(2.5)

	histCount, err := getHistogramSampleCount(m.ExtractionDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestReferencesExtractedBySource(t *testing.T) {
	m := NewMetrics("test_citations_refs")

	m.ReferencesExtracted.WithLabelValues("structural").Add(42)
	m.ReferencesExtracted.WithLabelValues("semantic_scholar").Add(10)

	assert.Equal(t, float64(42), testutil.ToFloat64(m.ReferencesExtracted.WithLabelValues("structural")))
	assert.Equal(t, float64(10), testutil.ToFloat64(m.ReferencesExtracted.WithLabelValues("semantic_scholar")))
}

func TestSourceFailures(t *testing.T) {
	m := NewMetrics("test_citations_source_failures")

	m.SourceFailures.WithLabelValues("openalex").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceFailures.WithLabelValues("openalex")))
}

func TestMatchesByMethod(t *testing.T) {
	m := NewMetrics("test_citations_matches")

	m.MatchesByMethod.WithLabelValues("doi").Inc()
	m.MatchesByMethod.WithLabelValues("title").Inc()
	m.MatchesByMethod.WithLabelValues("none").Inc()
	m.MatchesByMethod.WithLabelValues("doi").Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.MatchesByMethod.WithLabelValues("doi")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.MatchesByMethod.WithLabelValues("title")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.MatchesByMethod.WithLabelValues("none")))
}

func TestStoreCounters(t *testing.T) {
	m := NewMetrics("test_citations_stores")

	m.CitationsReplaced.Add(7)
	m.EdgesWritten.Add(3)

	assert.Equal(t, float64(7), testutil.ToFloat64(m.CitationsReplaced))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.EdgesWritten))
}

func TestEventCounters(t *testing.T) {
	m := NewMetrics("test_citations_events")

	m.EventsConsumed.Inc()
	m.EventsPublished.Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsConsumed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsPublished))
}

// Helper to get histogram sample count
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var dto = &dto.Metric{}
	if err := m.Write(dto); err != nil {
		return 0, err
	}

	return dto.Histogram.GetSampleCount(), nil
}
