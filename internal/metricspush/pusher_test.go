package metricspush

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/humesociety/humesociety-sub000/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

func testRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	registry := prometheus.NewRegistry()
	emails := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "humesociety_emails_total", Help: "x"}, []string{"label"})
	sweep := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "humesociety_reminder_sweep_duration_seconds", Help: "x", Buckets: []float64{1, 5}})
	registry.MustRegister(emails, sweep)
	emails.WithLabelValues("review-reminder").Add(3)
	sweep.Observe(2)
	return registry
}

func TestNewPusherSelection(t *testing.T) {
	log := zap.NewNop()

	assert.Nil(t, NewPusher(config.Config{}, log))
	assert.Nil(t, NewPusher(config.Config{MetricsPush: config.MetricsPushConfig{Exporter: ExporterRemoteWrite}}, log))
	assert.Nil(t, NewPusher(config.Config{MetricsPush: config.MetricsPushConfig{Exporter: "statsd", Endpoint: "http://x"}}, log))
	assert.Nil(t, NewPusher(config.Config{MetricsPush: config.MetricsPushConfig{Exporter: ExporterRemoteWrite, Endpoint: "not a url"}}, log))

	rw := NewPusher(config.Config{MetricsPush: config.MetricsPushConfig{Exporter: ExporterRemoteWrite, Endpoint: "http://prom:9090/api/v1/write"}}, log)
	assert.IsType(t, &RemoteWritePusher{}, rw)

	pg := NewPusher(config.Config{AppName: "humesociety", MetricsPush: config.MetricsPushConfig{Exporter: ExporterPushgateway, Endpoint: "http://gw:9091"}}, log)
	assert.IsType(t, &PushgatewayPusher{}, pg)
}

func TestBuildRemoteWriteSeriesExpandsHistograms(t *testing.T) {
	families, err := testRegistry(t).Gather()
	require.NoError(t, err)

	series := buildRemoteWriteSeries(families, 1000)
	names := map[string]int{}
	for _, ts := range series {
		assert.Equal(t, "__name__", ts.Labels[0].Name)
		names[ts.Labels[0].Value]++
		assert.Equal(t, int64(1000), ts.Samples[0].Timestamp)
	}
	assert.Equal(t, 1, names["humesociety_emails_total"])
	assert.Equal(t, 3, names["humesociety_reminder_sweep_duration_seconds_bucket"])
	assert.Equal(t, 1, names["humesociety_reminder_sweep_duration_seconds_sum"])
	assert.Equal(t, 1, names["humesociety_reminder_sweep_duration_seconds_count"])
}

func TestRemoteWritePushEncodesSnappyProtobuf(t *testing.T) {
	var received prompb.WriteRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		decoded, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, proto.Unmarshal(decoded, protoadapt.MessageV2Of(&received)))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pusher := NewRemoteWritePusher(srv.URL, "token-1")
	pusher.now = func() time.Time { return time.UnixMilli(42) }
	require.NoError(t, pusher.Push(context.Background(), testRegistry(t)))

	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))
	assert.Equal(t, "Bearer token-1", headers.Get("Authorization"))
	assert.NotEmpty(t, received.Timeseries)
	assert.Equal(t, int64(42), received.Timeseries[0].Samples[0].Timestamp)
}

func TestRemoteWritePushReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewRemoteWritePusher(srv.URL, "").Push(context.Background(), testRegistry(t))
	assert.Error(t, err)
}
