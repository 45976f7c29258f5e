// Package metrics collects Prometheus metrics for the server and workers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics interface used by handlers and workers
type Recorder interface {
	RecordSignIn(success bool)
	RecordSignUp(success bool)
	RecordSignOut(success bool)
	RecordUpload(bytes int64)
	RecordSessionsPurged(count int64)
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// Collector records metrics into a Prometheus registry
type Collector struct {
	signIns        *prometheus.CounterVec
	signUps        *prometheus.CounterVec
	signOuts       *prometheus.CounterVec
	uploadBytes    prometheus.Counter
	sessionsPurged prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchkit_auth_sign_ins_total",
			Help: "Sign-in attempts by result",
		}, []string{"result"}),
		signUps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchkit_auth_sign_ups_total",
			Help: "Sign-up attempts by result",
		}, []string{"result"}),
		signOuts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchkit_auth_sign_outs_total",
			Help: "Sign-outs by result. Failed sign-outs still redirect to login.",
		}, []string{"result"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchkit_upload_bytes_total",
			Help: "Bytes written to object storage",
		}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchkit_sessions_purged_total",
			Help: "Expired sessions deleted by the worker",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "launchkit_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "launchkit_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.signIns,
		c.signUps,
		c.signOuts,
		c.uploadBytes,
		c.sessionsPurged,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (c *Collector) RecordSignIn(success bool) {
	c.signIns.WithLabelValues(result(success)).Inc()
}

func (c *Collector) RecordSignUp(success bool) {
	c.signUps.WithLabelValues(result(success)).Inc()
}

func (c *Collector) RecordSignOut(success bool) {
	c.signOuts.WithLabelValues(result(success)).Inc()
}

func (c *Collector) RecordUpload(bytes int64) {
	c.uploadBytes.Add(float64(bytes))
}

func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler exposes the metrics of gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every metric
type Nop struct{}

func (Nop) RecordSignIn(bool)                                    {}
func (Nop) RecordSignUp(bool)                                    {}
func (Nop) RecordSignOut(bool)                                   {}
func (Nop) RecordUpload(int64)                                   {}
func (Nop) RecordSessionsPurged(int64)                           {}
func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
