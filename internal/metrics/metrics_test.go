package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waythor-lab/klock/internal/metrics"
)

func TestRecordVerdictIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.RecordVerdict("GRANTED")
	m.RecordVerdict("GRANTED")
	m.RecordVerdict("DIE")

	families, err := reg.Gather()
	require.NoError(t, err)

	var granted, die float64
	for _, fam := range families {
		if fam.GetName() != "klock_verdicts_total" {
			continue
		}
		for _, metric := range fam.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetValue() == "GRANTED" {
					granted = metric.GetCounter().GetValue()
				}
				if label.GetValue() == "DIE" {
					die = metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, float64(2), granted)
	assert.Equal(t, float64(1), die)
}

func TestSetActiveLeasesUpdatesGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.SetActiveLeases(7)

	var gauge dto.Metric
	require.NoError(t, m.LeasesActive.Write(&gauge))
	assert.Equal(t, float64(7), gauge.GetGauge().GetValue())
}

func TestRecordHTTPRequestObservesDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.RecordHTTPRequest("/leases", "GET", "200", 10*time.Millisecond)

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
