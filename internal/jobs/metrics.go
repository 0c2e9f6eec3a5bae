package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/pradeepmouli/repoweaver/internal/logfields"
)

const metricNamespace = "repoweaver"

const (
	processedJobsMetricName = "processed_jobs_total"
	pendingJobsMetricName   = "pending_jobs_count"
	webhookEventsMetricName = "processed_webhook_events_total"
)

const (
	typeLabel   = "type"
	resultLabel = "result"
)

type resultLabelVal string

const (
	resultLabelCompletedVal   resultLabelVal = "completed"
	resultLabelRescheduledVal resultLabelVal = "rescheduled"
	resultLabelFailedVal      resultLabelVal = "failed"
)

type metricCollector struct {
	logger          *zap.Logger
	processedJobs   *prometheus.CounterVec
	pendingJobs     prometheus.Gauge
	processedEvents prometheus.Counter
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		logger: zap.L().Named("jobs").Named("metrics"),
		processedJobs: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      processedJobsMetricName,
				Help:      "count of processed jobs",
			},
			[]string{typeLabel, resultLabel},
		),
		pendingJobs: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      pendingJobsMetricName,
				Help:      "count of jobs waiting to be processed",
			},
		),
		processedEvents: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      webhookEventsMetricName,
				Help:      "count of processed github webhook events",
			},
		),
	}
}

func (m *metricCollector) ProcessedJobsInc(typ Type, result resultLabelVal) {
	cnt, err := m.processedJobs.GetMetricWith(prometheus.Labels{
		typeLabel:   string(typ),
		resultLabel: string(result),
	})
	if err != nil {
		m.logger.Warn(
			"could not record metric",
			zap.String("metric", processedJobsMetricName),
			logfields.Event("recording_metric_failed"),
			zap.Error(err),
		)

		return
	}

	cnt.Inc()
}

func (m *metricCollector) PendingJobsSet(count int) {
	m.pendingJobs.Set(float64(count))
}

func (m *metricCollector) ProcessedEventsInc() {
	m.processedEvents.Inc()
}
