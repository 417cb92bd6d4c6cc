package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kirana"

// Metrics memegang registry Prometheus milik proses ini beserta metrik HTTP,
// akses, kesehatan dan cache. Semua method aman dipanggil pada receiver nil.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	responseBytes *prometheus.HistogramVec
	inFlight      prometheus.Gauge
	accessDenied  *prometheus.CounterVec
	healthScore   *prometheus.GaugeVec
	contentCache  *prometheus.CounterVec
}

// NewMetrics membuat registry baru; tidak memakai registry global.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(registry)
	return &Metrics{
		registry: registry,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "Jumlah permintaan HTTP per route dan status.",
		}, []string{"route", "code"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "Durasi permintaan HTTP per route.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"route"}),
		responseBytes: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "response_size_bytes",
			Help:    "Ukuran body respons per route.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 6),
		}, []string{"route"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "in_flight_requests",
			Help: "Permintaan HTTP yang sedang diproses.",
		}),
		accessDenied: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "access_denied_total",
			Help: "Akses dashboard yang ditolak per alasan.",
		}, []string{"reason"}),
		healthScore: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "health_score",
			Help: "Skor probe kesehatan terakhir (0-100).",
		}, []string{"probe"}),
		contentCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "content_cache_total",
			Help: "Hit dan miss cache konten publik.",
		}, []string{"result"}),
	}
}

// Handler melayani /metrics. Tanpa registry endpoint menjawab 503.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat jumlah, durasi dan ukuran respons. Label route memakai
// pola chi setelah routing selesai sehingga kardinalitas tetap terbatas.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.responseBytes.WithLabelValues(route).Observe(float64(ww.BytesWritten()))
	})
}

// AccessDenied menghitung penolakan akses dashboard.
func (m *Metrics) AccessDenied(reason string) {
	if m != nil {
		m.accessDenied.WithLabelValues(reason).Inc()
	}
}

// ObserveHealth menyimpan skor terakhir satu probe.
func (m *Metrics) ObserveHealth(probe string, score int) {
	if m != nil {
		m.healthScore.WithLabelValues(probe).Set(float64(score))
	}
}

// ContentCache menghitung hit atau miss cache konten.
func (m *Metrics) ContentCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.contentCache.WithLabelValues(result).Inc()
}

// Registerer dipakai paket lain (metrik job) agar ikut terekspos di /metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
