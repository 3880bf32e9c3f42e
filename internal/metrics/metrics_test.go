package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposed(t *testing.T) {
	m := New()
	m.Predictions.WithLabelValues("potato", "Healthy").Inc()
	m.CacheHits.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Predictions.WithLabelValues("potato", "Healthy")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `predictions_total{label="Healthy",model="potato"} 1`)
	assert.Contains(t, string(body), "prediction_cache_hits_total 1")
}

func TestNewIsIndependent(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
