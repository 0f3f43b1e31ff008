// Package metrics exposes bridge counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evtelemetry/bmsbridge/bms"
	"github.com/evtelemetry/bmsbridge/bridge"
)

const namespace = "bmsbridge"

// NewRegistry returns a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// BridgeMetrics counts bridge events. It implements bridge.Observer.
type BridgeMetrics struct {
	FramesTotal    prometheus.Counter
	FramesDropped  *prometheus.CounterVec // labels: reason=ignored|decode_error
	ReceiveErrors  prometheus.Counter
	RecordsTotal   *prometheus.CounterVec // labels: kind
	PublishTotal   *prometheus.CounterVec // labels: result=ok|error
	RequestsTotal  *prometheus.CounterVec // labels: cadence
	BatchesTotal   *prometheus.CounterVec // labels: cadence
	QueueDropped   prometheus.Counter
	QueueForwarded *prometheus.CounterVec // labels: result=ok|error
}

var _ bridge.Observer = (*BridgeMetrics)(nil)

// NewBridgeMetrics registers and returns the bridge counters.
func NewBridgeMetrics(reg prometheus.Registerer) *BridgeMetrics {
	m := &BridgeMetrics{
		FramesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames received from the bus.",
		}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Received frames that produced no records, by reason.",
		}, []string{"reason"}),
		ReceiveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receive_errors_total",
			Help:      "Transient bus receive errors.",
		}),
		RecordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Decoded telemetry records by kind.",
		}, []string{"kind"}),
		PublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Publish attempts by result.",
		}, []string{"result"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Request frames transmitted by cadence.",
		}, []string{"cadence"}),
		BatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Request batches issued by cadence.",
		}, []string{"cadence"}),
		QueueDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_queue_dropped_total",
			Help:      "Messages dropped from a full publish queue.",
		}),
		QueueForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_queue_forwarded_total",
			Help:      "Messages forwarded by the publish queue by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.FramesTotal, m.FramesDropped, m.ReceiveErrors, m.RecordsTotal, m.PublishTotal,
		m.RequestsTotal, m.BatchesTotal, m.QueueDropped, m.QueueForwarded)
	return m
}

func (m *BridgeMetrics) FrameReceived() { m.FramesTotal.Inc() }

func (m *BridgeMetrics) FrameIgnored() { m.FramesDropped.WithLabelValues("ignored").Inc() }

func (m *BridgeMetrics) RecordDecoded(k bms.Kind) {
	m.RecordsTotal.WithLabelValues(k.String()).Inc()
}

func (m *BridgeMetrics) DecodeFailed() { m.FramesDropped.WithLabelValues("decode_error").Inc() }

func (m *BridgeMetrics) ReceiveFailed() { m.ReceiveErrors.Inc() }

func (m *BridgeMetrics) Published(err error) {
	m.PublishTotal.WithLabelValues(result(err)).Inc()
}

func (m *BridgeMetrics) BatchIssued(c bms.Cadence, n int) {
	m.BatchesTotal.WithLabelValues(c.String()).Inc()
	m.RequestsTotal.WithLabelValues(c.String()).Add(float64(n))
}

// QueueDrop counts one message dropped by the publish queue.
func (m *BridgeMetrics) QueueDrop() { m.QueueDropped.Inc() }

// QueueForward counts one message forwarded by the publish queue.
func (m *BridgeMetrics) QueueForward(err error) {
	m.QueueForwarded.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
