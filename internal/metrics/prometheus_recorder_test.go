package metrics

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/ditabuilder/internal/foundation/errors"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveInvocationDuration("html5", 1500*time.Millisecond)
	pr.IncInvocationOutcome("html5", OutcomeSuccess)
	pr.IncInvocationRetry("pdf")
	pr.IncDiagnostic("error")
	pr.ObserveStageReached("Preprocessing")
	pr.ObserveCheckDuration(200 * time.Millisecond)
	pr.IncReference("xref", "broken")
	pr.ObserveProbe("200", 30*time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, mfs, 8)
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncInvocationOutcome("html5", OutcomeFailed)
		pr.ObserveProbe("404", time.Second)
	})
}

func TestHTTPHandlerServesMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncInvocationOutcome("html5", OutcomeSuccess)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ditabuilder_invocation_outcomes_total"))
}

func TestTestRecorderCounts(t *testing.T) {
	r := newTestRecorder()
	r.IncInvocationOutcome("html5", OutcomeCanceled)
	r.IncReference("image", "ok")
	r.IncReference("image", "ok")
	assert.Equal(t, 1, r.outcomes[OutcomeCanceled])
	assert.Equal(t, 2, r.refs["image/ok"])
}

func TestServeReportsBusyAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = Serve(ctx, ln.Addr().String(), prom.NewRegistry())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNetwork))
}
