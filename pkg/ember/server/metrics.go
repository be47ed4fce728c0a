package server

import (
	"bytes"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/watt-toolkit/ember/pkg/ember/http11"
)

// Parse failure reasons used as the "reason" label.
const (
	reasonInvalid        = "invalid"
	reasonTooManyHeaders = "too_many_headers"
	reasonHeadTooLarge   = "head_too_large"
	reasonBadHeader      = "bad_header"
	reasonBodyTooLarge   = "body_too_large"
)

// Metrics holds the prometheus collectors of a server.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	connectionsTotal  prometheus.Counter
	connectionsActive prometheus.Gauge
	requestsTotal     *prometheus.CounterVec
	requestDuration   prometheus.Histogram
	requestErrors     *prometheus.CounterVec
	handlerPanics     prometheus.Counter
}

// NewMetrics creates the server collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ember",
			Subsystem: "server",
			Name:      "connections_total",
			Help:      "Total number of accepted connections",
		}),
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ember",
			Subsystem: "server",
			Name:      "connections_active",
			Help:      "Number of connections currently open",
		}),
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ember",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Total number of responses written, by status code",
		}, []string{"code"}),
		requestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ember",
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "Time from a complete request head to the response write",
			Buckets:   prometheus.DefBuckets,
		}),
		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ember",
			Subsystem: "server",
			Name:      "request_errors_total",
			Help:      "Total number of malformed requests, by reason",
		}, []string{"reason"}),
		handlerPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ember",
			Subsystem: "server",
			Name:      "handler_panics_total",
			Help:      "Total number of recovered handler panics",
		}),
	}
}

func (m *Metrics) connOpened() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
	m.connectionsActive.Inc()
}

func (m *Metrics) connClosed() {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
}

func (m *Metrics) observe(status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	m.requestDuration.Observe(d.Seconds())
}

func (m *Metrics) requestError(reason string) {
	if m == nil {
		return
	}
	m.requestErrors.WithLabelValues(reason).Inc()
}

func (m *Metrics) panicked() {
	if m == nil {
		return
	}
	m.handlerPanics.Inc()
}

// MetricsHandler serves the metrics of g in the prometheus text format.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	app.Get("/metrics", server.MetricsHandler(reg))
func MetricsHandler(g prometheus.Gatherer) func(*http11.Request) (*http11.Response, error) {
	return func(*http11.Request) (*http11.Response, error) {
		families, err := g.Gather()
		if err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		if err := writeFamilies(&buf, families); err != nil {
			return nil, err
		}

		res := http11.NewResponse(http11.StatusOK)
		_ = res.Header.Set(http11.HeaderContentType, string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		res.SetBody(buf.Bytes())
		return res, nil
	}
}

func writeFamilies(buf *bytes.Buffer, families []*dto.MetricFamily) error {
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(buf, mf); err != nil {
			return err
		}
	}
	return nil
}
