package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCounters(t *testing.T) {
	p := NewPrometheus()

	p.LLMCall("NORMAL", "ok", 120*time.Millisecond)
	p.LLMCall("NORMAL", "ok", 80*time.Millisecond)
	p.LLMCall("ROOT", "ai_service_error", time.Second)
	p.RateLimitDecision(true)
	p.RateLimitDecision(false)
	p.RateLimitDecision(false)
	p.ValidationRun("ok", 2*time.Second)
	p.CellProcessed(CellAccepted)
	p.CellProcessed(CellRoot)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.llmCalls.WithLabelValues("NORMAL", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.llmCalls.WithLabelValues("ROOT", "ai_service_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.rateDecisions.WithLabelValues("admitted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.rateDecisions.WithLabelValues("refused")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.validationRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.cellsProcessed.WithLabelValues(CellRoot)))
}

func TestHandlerExposesMetrics(t *testing.T) {
	p := NewPrometheus()
	p.CellProcessed(CellBlocked)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `maams_cells_processed_total{result="blocked"} 1`)
}

func TestNopSatisfiesRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.LLMCall("NORMAL", "ok", 0)
	r.CellProcessed(CellRejected)
}
