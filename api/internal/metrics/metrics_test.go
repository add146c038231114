package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	return reg
}

// counterValue sums the samples of a family that carry all the given labels.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue metric
				}
			}
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestRegisterTwice(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, Register(reg))
}

func TestObserveUpstream(t *testing.T) {
	reg := newRegistry(t)
	labels := map[string]string{"collaborator": "notion", "outcome": OutcomeError}

	before := counterValue(t, reg, "gutachten_upstream_requests_total", labels)
	ObserveUpstream("notion", time.Now(), errors.New("boom"))
	require.Equal(t, before+1, counterValue(t, reg, "gutachten_upstream_requests_total", labels))

	ObserveUpstream("notion", time.Now(), nil)
	require.Equal(t, before+1, counterValue(t, reg, "gutachten_upstream_requests_total", labels))
}

func TestObserveReport(t *testing.T) {
	reg := newRegistry(t)
	labels := map[string]string{"status": "Abgelehnt"}

	before := counterValue(t, reg, "gutachten_reports_total", labels)
	ObserveReport("Abgelehnt")
	require.Equal(t, before+1, counterValue(t, reg, "gutachten_reports_total", labels))
}
