package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waythor-lab/klock/internal/metrics"
)

func TestWrapWithCORSHandlesPreflight(t *testing.T) {
	h := wrapWithCORS(okHandler())
	req := httptest.NewRequest(http.MethodOptions, "/leases", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWrapWithRecoveryCatchesPanic(t *testing.T) {
	panics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	h := wrapWithRecovery(panics, nil)
	req := httptest.NewRequest(http.MethodGet, "/leases", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWrapWithMetricsRecordsRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	h := wrapWithMetrics(okHandler(), m)
	req := httptest.NewRequest(http.MethodGet, "/leases", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	families, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, fam := range families {
		if fam.GetName() == "klock_http_requests_total" {
			found = true
		}
	}
	assert.True(t, found)
}
