// Package metrics holds the per-process prometheus registries.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pkoster/beleghub/internal/core/domain"
)

type IngestMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	filesTotal           *prometheus.CounterVec
	fileDuration         *prometheus.HistogramVec
	providerTotal        *prometheus.CounterVec
	uploadRetries        *prometheus.CounterVec
	storageUsageFraction prometheus.Gauge
}

func NewIngestMetrics(service string) *IngestMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beleghub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "beleghub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "beleghub",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	filesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beleghub",
			Subsystem: "ingest",
			Name:      "files_total",
			Help:      "Total ingested files by final status.",
		},
		[]string{"service", "status"},
	)
	fileDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "beleghub",
			Subsystem: "ingest",
			Name:      "file_duration_seconds",
			Help:      "Per-file pipeline duration in seconds by final status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	providerTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beleghub",
			Subsystem: "storage",
			Name:      "provider_selected_total",
			Help:      "Total uploads by selected storage provider.",
		},
		[]string{"service", "provider"},
	)
	uploadRetries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beleghub",
			Subsystem: "storage",
			Name:      "upload_retries_total",
			Help:      "Total retried upload attempts.",
		},
		[]string{"service"},
	)
	storageUsageFraction := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "beleghub",
			Subsystem: "storage",
			Name:      "usage_fraction",
			Help:      "Last estimated primary storage usage fraction.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		filesTotal,
		fileDuration,
		providerTotal,
		uploadRetries,
		storageUsageFraction,
	)

	return &IngestMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		filesTotal:           filesTotal,
		fileDuration:         fileDuration,
		providerTotal:        providerTotal,
		uploadRetries:        uploadRetries,
		storageUsageFraction: storageUsageFraction,
	}
}

func (m *IngestMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *IngestMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func (m *IngestMetrics) RecordFileDone(service string, status domain.DocumentStatus, elapsed time.Duration) {
	m.filesTotal.WithLabelValues(service, string(status)).Inc()
	m.fileDuration.WithLabelValues(service, string(status)).Observe(elapsed.Seconds())
}

func (m *IngestMetrics) RecordProviderSelected(service string, provider domain.StorageProvider) {
	m.providerTotal.WithLabelValues(service, string(provider)).Inc()
}

func (m *IngestMetrics) RecordUploadRetry(service string) {
	m.uploadRetries.WithLabelValues(service).Inc()
}

func (m *IngestMetrics) RecordStorageUsage(fraction float64) {
	m.storageUsageFraction.Set(fraction)
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
