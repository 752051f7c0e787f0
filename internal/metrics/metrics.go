// Package metrics регистрирует Prometheus-метрики сервиса:
// HTTP-запросы и счётчики движков (активации, чистка, автопрогноз, подсчёт очков).
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bolao"

var (
	// Registry — реестр метрик приложения.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests handled.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"method", "route"})

	boosterActivations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "boosters",
		Name:      "activations_total",
		Help:      "Booster activation attempts by result.",
	}, []string{"result"})

	sweepUsages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sweeper",
		Name:      "usages_total",
		Help:      "Expired pending usages handled by the sweeper, by outcome.",
	}, []string{"outcome"})

	autoPickPredictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "autopick",
		Name:      "predictions_created_total",
		Help:      "Predictions inserted by the auto-pick engine.",
	})

	scoringRecomputes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scoring",
		Name:      "recomputes_total",
		Help:      "Pool score recomputations by result.",
	}, []string{"result"})

	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "run_duration_seconds",
		Help:      "Duration of engine runs.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"job"})
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		boosterActivations,
		sweepUsages,
		autoPickPredictions,
		scoringRecomputes,
		jobDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler отдаёт метрики в текстовом формате Prometheus.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// HTTPStarted увеличивает число запросов в обработке и возвращает функцию завершения.
func HTTPStarted() func(method, route string, status int, d time.Duration) {
	httpInFlight.Inc()
	return func(method, route string, status int, d time.Duration) {
		httpInFlight.Dec()
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
	}
}

// RecordActivation — результат активации: ok, no_inventory, persistence_error, error.
func RecordActivation(result string) {
	boosterActivations.WithLabelValues(result).Inc()
}

// RecordSweep добавляет итоги одного прохода чистильщика.
func RecordSweep(refunded, expired, skipped int) {
	sweepUsages.WithLabelValues("refunded").Add(float64(refunded))
	sweepUsages.WithLabelValues("expired").Add(float64(expired))
	sweepUsages.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordAutoPick добавляет число вставленных автопрогнозов.
func RecordAutoPick(created int) {
	autoPickPredictions.Add(float64(created))
}

// RecordRecompute — результат пересчёта очков пула.
func RecordRecompute(result string) {
	scoringRecomputes.WithLabelValues(result).Inc()
}

// ObserveJob записывает длительность запуска движка.
func ObserveJob(job string, d time.Duration) {
	if d <= 0 {
		d = time.Millisecond
	}
	jobDuration.WithLabelValues(job).Observe(d.Seconds())
}
