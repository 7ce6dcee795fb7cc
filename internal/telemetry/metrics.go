package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — Prometheus метрики движка.
//
// Регистрируются один раз на старте процесса; все компоненты получают
// общий экземпляр через конструктор.
type Metrics struct {
	// ExecutionsStarted — количество начатых executions.
	ExecutionsStarted prometheus.Counter

	// ExecutionsSucceeded — количество успешно завершённых executions.
	ExecutionsSucceeded prometheus.Counter

	// ExecutionsFailed — количество упавших executions.
	ExecutionsFailed prometheus.Counter

	// ExecutionsDeduplicated — повторные trigger-события, отброшенные
	// по идемпотентному ключу.
	ExecutionsDeduplicated prometheus.Counter

	// ExecutionDuration — длительность execution от старта до
	// терминального статуса.
	ExecutionDuration prometheus.Histogram

	// NodeDuration — длительность выполнения одного узла по типу.
	NodeDuration *prometheus.HistogramVec

	// NodeErrors — ошибки узлов по типу.
	NodeErrors *prometheus.CounterVec

	// StatusPublishErrors — неудачные публикации статусов узлов
	// (fire-and-forget, на выполнение не влияют).
	StatusPublishErrors prometheus.Counter
}

// NewMetrics создаёт и регистрирует метрики в registerer.
// nil registerer регистрирует в prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ExecutionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "conveyor",
			Name:      "executions_started_total",
			Help:      "Number of workflow executions started.",
		}),
		ExecutionsSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "conveyor",
			Name:      "executions_succeeded_total",
			Help:      "Number of workflow executions finished successfully.",
		}),
		ExecutionsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "conveyor",
			Name:      "executions_failed_total",
			Help:      "Number of workflow executions finished with an error.",
		}),
		ExecutionsDeduplicated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "conveyor",
			Name:      "executions_deduplicated_total",
			Help:      "Number of trigger events dropped by the idempotency key.",
		}),
		ExecutionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "conveyor",
			Name:      "execution_duration_seconds",
			Help:      "Workflow execution duration from start to terminal status.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		NodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "conveyor",
			Name:      "node_duration_seconds",
			Help:      "Node execution duration by node type.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"node_type"}),
		NodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conveyor",
			Name:      "node_errors_total",
			Help:      "Node execution errors by node type.",
		}, []string{"node_type"}),
		StatusPublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "conveyor",
			Name:      "status_publish_errors_total",
			Help:      "Failed node status publications (fire-and-forget).",
		}),
	}
}
