package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the client does against the remote service. Counters
// live on a private registry so tests and embedders stay isolated.
type Metrics struct {
	registry *prometheus.Registry

	apiRequestsTotal *prometheus.CounterVec
	sosTotal         *prometheus.CounterVec
	capturesTotal    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		apiRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "api_requests_total",
				Help: "Total number of API requests by method and outcome",
			},
			[]string{"method", "outcome"},
		),

		sosTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sos_submissions_total",
				Help: "Total number of SOS submissions by outcome",
			},
			[]string{"outcome"},
		),

		capturesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "location_captures_total",
				Help: "Total number of location captures by outcome",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(m.apiRequestsTotal, m.sosTotal, m.capturesTotal)
	return m
}

const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeExpired = "expired"
)

func (m *Metrics) ObserveRequest(method, outcome string) {
	m.apiRequestsTotal.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) ObserveSOS(outcome string) {
	m.sosTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveCapture(outcome string) {
	m.capturesTotal.WithLabelValues(outcome).Inc()
}

// Snapshot gathers all counters into a flat, sorted name{labels} -> value map
// for display.
func (m *Metrics) Snapshot() (map[string]float64, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			key := fam.GetName()
			if labels := metric.GetLabel(); len(labels) > 0 {
				parts := make([]string, 0, len(labels))
				for _, l := range labels {
					parts = append(parts, fmt.Sprintf("%s=%s", l.GetName(), l.GetValue()))
				}
				sort.Strings(parts)
				key = fmt.Sprintf("%s{%s}", key, strings.Join(parts, ","))
			}
			out[key] = metric.GetCounter().GetValue()
		}
	}
	return out, nil
}
