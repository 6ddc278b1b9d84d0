package service

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CommandsTotal  *prometheus.CounterVec
	ActionsTotal   *prometheus.CounterVec
	HistoryTotal   *prometheus.CounterVec
	ProposalsTotal *prometheus.CounterVec
	PlanDuration   prometheus.Histogram
	ImagesImported prometheus.Counter
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// NewMetrics returns the process-wide collectors, registering them once.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			CommandsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "canvas_agent_commands_total",
				Help: "Commands handled by outcome",
			}, []string{"outcome"}),
			ActionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "canvas_agent_actions_total",
				Help: "Actions applied by type",
			}, []string{"type"}),
			HistoryTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "canvas_agent_history_total",
				Help: "Undo and redo operations",
			}, []string{"direction"}),
			ProposalsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "canvas_agent_proposals_total",
				Help: "Instruction proposer calls by outcome",
			}, []string{"outcome"}),
			PlanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "canvas_agent_plan_duration_seconds",
				Help:    "Time spent planning one instruction",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			}),
			ImagesImported: promauto.NewCounter(prometheus.CounterOpts{
				Name: "canvas_agent_images_imported_total",
				Help: "Images imported into documents",
			}),
		}
	})
	return metricsInstance
}

func (m *Metrics) RecordCommand(outcome string) {
	if m == nil || m.CommandsTotal == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordActions(types []string) {
	if m == nil || m.ActionsTotal == nil {
		return
	}
	for _, t := range types {
		m.ActionsTotal.WithLabelValues(t).Inc()
	}
}

func (m *Metrics) RecordHistory(direction string) {
	if m == nil || m.HistoryTotal == nil {
		return
	}
	m.HistoryTotal.WithLabelValues(direction).Inc()
}

func (m *Metrics) RecordProposal(outcome string) {
	if m == nil || m.ProposalsTotal == nil {
		return
	}
	m.ProposalsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObservePlan(d time.Duration) {
	if m == nil || m.PlanDuration == nil {
		return
	}
	m.PlanDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordImageImport() {
	if m == nil || m.ImagesImported == nil {
		return
	}
	m.ImagesImported.Inc()
}
