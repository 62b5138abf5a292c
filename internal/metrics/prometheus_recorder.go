package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitebuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	taskDuration  *prom.HistogramVec
	taskResults   *prom.CounterVec
	taskCoalesced *prom.CounterVec
	watchTriggers *prom.CounterVec
	pagesWritten  prom.Counter
	pagesFailed   prom.Counter
	reloadClients prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		taskDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of task runs",
			Buckets:   prom.DefBuckets,
		}, []string{"task"}),
		taskResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "task_results_total",
			Help:      "Task runs by outcome",
		}, []string{"task", "result"}),
		taskCoalesced: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "task_coalesced_total",
			Help:      "Run requests folded into a pending follow-up run",
		}, []string{"task"}),
		watchTriggers: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_triggers_total",
			Help:      "Debounced file change batches per watch group",
		}, []string{"group"}),
		pagesWritten: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pages_written_total",
			Help:      "Pages written to the output directory",
		}),
		pagesFailed: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pages_failed_total",
			Help:      "Pages dropped because of per-file errors",
		}),
		reloadClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "livereload_clients",
			Help:      "Connected live reload clients",
		}),
	}
	reg.MustRegister(pr.taskDuration, pr.taskResults, pr.taskCoalesced, pr.watchTriggers,
		pr.pagesWritten, pr.pagesFailed, pr.reloadClients)
	return pr
}

func (p *PrometheusRecorder) ObserveTaskDuration(task string, d time.Duration) {
	if p == nil {
		return
	}
	p.taskDuration.WithLabelValues(task).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTaskResult(task string, result ResultLabel) {
	if p == nil {
		return
	}
	p.taskResults.WithLabelValues(task, string(result)).Inc()
}

func (p *PrometheusRecorder) IncTaskCoalesced(task string) {
	if p == nil {
		return
	}
	p.taskCoalesced.WithLabelValues(task).Inc()
}

func (p *PrometheusRecorder) IncWatchTrigger(group string) {
	if p == nil {
		return
	}
	p.watchTriggers.WithLabelValues(group).Inc()
}

func (p *PrometheusRecorder) ObservePages(written, failed int) {
	if p == nil {
		return
	}
	p.pagesWritten.Add(float64(written))
	p.pagesFailed.Add(float64(failed))
}

func (p *PrometheusRecorder) SetLiveReloadClients(n int) {
	if p == nil {
		return
	}
	p.reloadClients.Set(float64(n))
}
