// Package metrics provides Prometheus metrics for curator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalysisRunsTotal counts improvement runs by trigger (manual, schedule).
	AnalysisRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_analysis_runs_total",
		Help: "Total number of improvement runs, by trigger.",
	}, []string{"trigger"})

	// ImprovementsTotal counts proposed improvements by priority.
	ImprovementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_improvements_total",
		Help: "Total number of proposed improvements, by priority.",
	}, []string{"priority"})

	// AppliedTotal counts applied improvement actions.
	AppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_improvements_applied_total",
		Help: "Total number of applied improvement actions, by action.",
	}, []string{"action"})

	// WatcherEventsTotal counts vault change events by type.
	WatcherEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_watcher_events_total",
		Help: "Total number of vault change events, by type.",
	}, []string{"type"})

	// AIFallbackTotal counts AI scoring failures that fell back to keywords.
	AIFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_ai_fallback_total",
		Help: "Total number of AI relevance fallbacks to keyword scoring, by reason.",
	}, []string{"reason"})

	// IsolatedNotes tracks the isolated-note count from the last analysis.
	IsolatedNotes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curator_isolated_notes",
		Help: "Number of isolated notes found by the last analysis.",
	})
)

// RecordRun increments the run counter and the per-priority improvement counters.
func RecordRun(trigger string, priorities []string) {
	AnalysisRunsTotal.WithLabelValues(trigger).Inc()
	for _, p := range priorities {
		ImprovementsTotal.WithLabelValues(p).Inc()
	}
}

// RecordApplied increments the applied-action counter.
func RecordApplied(action string) {
	AppliedTotal.WithLabelValues(action).Inc()
}

// RecordChange increments the watcher event counter.
func RecordChange(kind string) {
	WatcherEventsTotal.WithLabelValues(kind).Inc()
}

// RecordAIFallback increments the AI fallback counter.
func RecordAIFallback(reason string) {
	AIFallbackTotal.WithLabelValues(reason).Inc()
}

// SetIsolated sets the isolated-note gauge.
func SetIsolated(n int) {
	IsolatedNotes.Set(float64(n))
}
