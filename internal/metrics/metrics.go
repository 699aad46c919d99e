// Package metrics метрики доставки уведомлений в формате Prometheus.
package metrics

import (
	"context"
	"net/http"

	"NoticeEmitter/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notices"

// Metrics набор метрик сервиса со своим реестром.
type Metrics struct {
	registry *prometheus.Registry

	delivered      *prometheus.CounterVec
	lastBatches    prometheus.Gauge
	lastSent       prometheus.Gauge
	lastSentActual prometheus.Gauge
	runDuration    prometheus.Histogram
}

// New создает и регистрирует метрики.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivered_total",
			Help:      "Notices delivered, by backend.",
		}, []string{"backend"}),
		lastBatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_batches",
			Help:      "Batches processed by the last delivery pass.",
		}),
		lastSent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_sent",
			Help:      "Notices attempted by the last delivery pass.",
		}),
		lastSentActual: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_sent_actual",
			Help:      "Notices delivered by the last delivery pass.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of delivery passes.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}

	m.registry.MustRegister(
		m.delivered,
		m.lastBatches,
		m.lastSent,
		m.lastSentActual,
		m.runDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveDelivered учитывает доставку каналом backend.
func (m *Metrics) ObserveDelivered(backend string) {
	m.delivered.WithLabelValues(backend).Inc()
}

// OnNoticesEmitted обновляет метрики последнего прохода.
func (m *Metrics) OnNoticesEmitted(_ context.Context, ev domain.EmittedNotices) error {
	m.lastBatches.Set(float64(ev.Batches))
	m.lastSent.Set(float64(ev.Sent))
	m.lastSentActual.Set(float64(ev.SentActual))
	m.runDuration.Observe(ev.RunTime.Seconds())
	return nil
}

// Registry возвращает реестр метрик.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler HTTP обработчик для сбора метрик.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
