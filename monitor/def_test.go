package monitor

import (
	"io"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveGrade(t *testing.T) {
	before := testutil.ToFloat64(GradesTotal.WithLabelValues("V4"))
	largeBefore := testutil.ToFloat64(LargeHoldsTotal)

	ObserveGrade("V4", 2, 3*time.Millisecond)
	ObserveGrade("V4", 0, time.Millisecond)

	assert.Equal(t, before+2, testutil.ToFloat64(GradesTotal.WithLabelValues("V4")))
	assert.Equal(t, largeBefore+2, testutil.ToFloat64(LargeHoldsTotal))
}

func TestHandler(t *testing.T) {
	RequestsTotal.WithLabelValues("http", "classify").Inc()
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `grader_requests_total{method="classify",surface="http"}`)
	assert.Contains(t, string(body), "grader_inference_seconds_bucket")
}

func TestCheckProcessInfo(t *testing.T) {
	p, err := process.NewProcess(int32(os.Getpid()))
	require.NoError(t, err)
	checkProcessInfo(p)
	assert.Greater(t, testutil.ToFloat64(memUsage), 0.0)
}
