package service

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Bootstrap phases timed by the MetricsCollector.
const (
	PhasePhrase         = "phrase"
	PhaseDerivation     = "derivation"
	PhaseSync           = "sync"
	PhaseNullifierRoot  = "nullifier_root"
	PhaseCommitmentRoot = "commitment_root"
)

// MetricsCollector tracks bootstrap state transitions and phase timings. It
// exports them to prometheus and keeps a summary for the API.
type MetricsCollector struct {
	mu     sync.RWMutex
	phases map[string]*OperationMetrics

	succeeded int
	failed    int
	running   int

	transitions   *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	inFlight      prometheus.Gauge
	results       *prometheus.CounterVec
}

// OperationMetrics contains timing information for one phase
type OperationMetrics struct {
	Count          int       `json:"count"`
	LastRun        time.Time `json:"last_run"`
	ProcessingTime int64     `json:"processing_time_ms"`
}

// MetricsResponse is the summary served by the API
type MetricsResponse struct {
	Succeeded int                         `json:"succeeded"`
	Failed    int                         `json:"failed"`
	InFlight  int                         `json:"in_flight"`
	Phases    map[string]OperationMetrics `json:"phases"`
}

// NewMetricsCollector creates a collector and registers its prometheus
// metrics with reg. A nil reg keeps the metrics unregistered.
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	mc := &MetricsCollector{
		phases: make(map[string]*OperationMetrics),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bootstrap_transitions_total",
				Help: "Total number of bootstrap state transitions",
			},
			[]string{"from_state", "to_state"},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bootstrap_phase_duration_seconds",
				Help:    "Duration of bootstrap phases",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"phase"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bootstrap_in_flight",
				Help: "Number of bootstraps currently running",
			},
		),
		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bootstrap_results_total",
				Help: "Completed bootstraps by result",
			},
			[]string{"result"},
		),
	}

	if reg != nil {
		reg.MustRegister(mc.transitions, mc.phaseDuration, mc.inFlight, mc.results)
	}
	return mc
}

// RecordTransition counts a state machine transition.
func (mc *MetricsCollector) RecordTransition(from, to State) {
	mc.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

// RecordPhase records the duration of a completed phase.
func (mc *MetricsCollector) RecordPhase(phase string, duration time.Duration) {
	mc.phaseDuration.WithLabelValues(phase).Observe(duration.Seconds())

	mc.mu.Lock()
	defer mc.mu.Unlock()

	m, ok := mc.phases[phase]
	if !ok {
		m = &OperationMetrics{}
		mc.phases[phase] = m
	}
	m.Count++
	m.LastRun = time.Now()
	m.ProcessingTime += duration.Milliseconds()
}

// RecordStart marks the start of a bootstrap
func (mc *MetricsCollector) RecordStart() {
	mc.inFlight.Inc()

	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.running++
}

// RecordEnd marks the end of a bootstrap
func (mc *MetricsCollector) RecordEnd(err error) {
	mc.inFlight.Dec()

	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.running--

	if err != nil {
		mc.failed++
		mc.results.WithLabelValues("failed").Inc()
		return
	}
	mc.succeeded++
	mc.results.WithLabelValues("succeeded").Inc()
}

// GetMetrics returns a snapshot of the collected metrics
func (mc *MetricsCollector) GetMetrics() MetricsResponse {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	resp := MetricsResponse{
		Succeeded: mc.succeeded,
		Failed:    mc.failed,
		InFlight:  mc.running,
		Phases:    make(map[string]OperationMetrics, len(mc.phases)),
	}
	for name, m := range mc.phases {
		resp.Phases[name] = *m
	}
	return resp
}
