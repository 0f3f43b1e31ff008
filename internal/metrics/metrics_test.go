package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evtelemetry/bmsbridge/bms"
)

func TestBridgeMetrics_Observer(t *testing.T) {
	reg := NewRegistry()
	m := NewBridgeMetrics(reg)

	m.FrameReceived()
	m.FrameReceived()
	m.FrameReceived()
	m.FrameIgnored()
	m.DecodeFailed()
	m.ReceiveFailed()
	m.RecordDecoded(bms.KindPackSummary)
	m.RecordDecoded(bms.KindPackSummary)
	m.Published(nil)
	m.Published(errors.New("broker down"))
	m.BatchIssued(bms.Fast, 2)
	m.BatchIssued(bms.Fast, 2)
	m.BatchIssued(bms.Slow, 6)
	m.QueueDrop()
	m.QueueForward(nil)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.FramesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesDropped.WithLabelValues("ignored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesDropped.WithLabelValues("decode_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReceiveErrors))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordsTotal.WithLabelValues(bms.KindPackSummary.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishTotal.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BatchesTotal.WithLabelValues("fast")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("fast")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("slow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueueDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueueForwarded.WithLabelValues("ok")))
}

func TestHandler_ExposesBridgeMetrics(t *testing.T) {
	reg := NewRegistry()
	m := NewBridgeMetrics(reg)
	m.BatchIssued(bms.Slow, 6)

	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `bmsbridge_requests_total{cadence="slow"} 6`)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}
