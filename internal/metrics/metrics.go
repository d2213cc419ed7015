// Package metrics exposes Prometheus counters for the orchestration layer.
//
// A nil *Metrics is valid and records nothing, so components take one optionally.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters recorded by mediactl.
type Metrics struct {
	registry       *prometheus.Registry
	apiRequests    *prometheus.CounterVec
	staleDiscards  *prometheus.CounterVec
	aggregations   *prometheus.CounterVec
	endpointPolls  prometheus.Counter
	transferBytes  prometheus.Counter
	uploads        *prometheus.CounterVec
	reorderMoves   prometheus.Counter
	reorderWrites  *prometheus.CounterVec
	serverRequests *prometheus.CounterVec
}

// New creates and registers the counters on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediactl_api_requests_total",
			Help: "Requests made to the media API by method and status code (0 for transport failures)",
		}, []string{"method", "code"}),
		staleDiscards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediactl_stale_discards_total",
			Help: "Responses dropped because a newer request superseded them",
		}, []string{"component"}),
		aggregations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediactl_playlist_aggregations_total",
			Help: "Player configuration aggregations by result",
		}, []string{"result"}),
		endpointPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mediactl_upload_endpoint_polls_total",
			Help: "Upload endpoint requests that returned no URL yet",
		}),
		transferBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mediactl_upload_transfer_bytes_total",
			Help: "Bytes sent to upload endpoints",
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediactl_uploads_total",
			Help: "Upload sessions by terminal phase",
		}, []string{"phase"}),
		reorderMoves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mediactl_reorder_moves_total",
			Help: "Local reorder moves applied",
		}),
		reorderWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediactl_reorder_writes_total",
			Help: "Debounced order writes by result",
		}, []string{"result"}),
		serverRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediactl_http_requests_total",
			Help: "Requests served by the metrics server by status code",
		}, []string{"code"}),
	}

	registry.MustRegister(
		m.apiRequests,
		m.staleDiscards,
		m.aggregations,
		m.endpointPolls,
		m.transferBytes,
		m.uploads,
		m.reorderMoves,
		m.reorderWrites,
		m.serverRequests,
	)
	return m
}

// ObserveRequest counts one API request. code 0 records a transport failure.
func (m *Metrics) ObserveRequest(method string, code int) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// IncStaleDiscard counts a superseded response dropped by component.
func (m *Metrics) IncStaleDiscard(component string) {
	if m == nil {
		return
	}
	m.staleDiscards.WithLabelValues(component).Inc()
}

// IncAggregation counts a finished aggregation; result is "ok" or "error".
func (m *Metrics) IncAggregation(result string) {
	if m == nil {
		return
	}
	m.aggregations.WithLabelValues(result).Inc()
}

func (m *Metrics) IncEndpointPoll() {
	if m == nil {
		return
	}
	m.endpointPolls.Inc()
}

func (m *Metrics) AddTransferBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.transferBytes.Add(float64(n))
}

// IncUpload counts an upload session reaching a terminal phase.
func (m *Metrics) IncUpload(phase string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(phase).Inc()
}

func (m *Metrics) IncReorderMove() {
	if m == nil {
		return
	}
	m.reorderMoves.Inc()
}

// IncReorderWrite counts a persisted order; result is "ok" or "error".
func (m *Metrics) IncReorderWrite(result string) {
	if m == nil {
		return
	}
	m.reorderWrites.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Result maps an error to the "ok"/"error" label used by the result counters.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
