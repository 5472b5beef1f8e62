package expense

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ravindran-dev/SmartSpend/internal/bill"
)

// Metrics holds the Prometheus collectors for one server
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	bills    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartspend",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		bills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartspend",
			Name:      "bills_processed_total",
			Help:      "Processed bills by source and outcome.",
		}, []string{"source", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "smartspend",
			Name:      "bill_processing_seconds",
			Help:      "Time to scan and extract one bill.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source"}),
	}
	m.registry.MustRegister(
		m.requests,
		m.bills,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// instrument counts requests to a route
func (m *Metrics) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	counter := m.requests.MustCurryWith(prometheus.Labels{"route": route})
	return promhttp.InstrumentHandlerCounter(counter, next).ServeHTTP
}

// observeBill records the outcome of one bill scan
func (m *Metrics) observeBill(result bill.Result, elapsed time.Duration) {
	source := string(result.Source)
	if source == "" {
		source = "unknown"
	}
	m.bills.WithLabelValues(source, billOutcome(result)).Inc()
	m.duration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func billOutcome(result bill.Result) string {
	switch {
	case !result.Success:
		return "error"
	case result.ManualEntryRequired:
		return "manual_entry"
	default:
		return "extracted"
	}
}

// observeScanFailure records an upload the scanner could not process
func (m *Metrics) observeScanFailure(source bill.Source) {
	m.bills.WithLabelValues(string(source), "scan_failed").Inc()
}
