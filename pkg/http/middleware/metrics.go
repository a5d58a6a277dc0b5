package middleware

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsSet  *httpMetrics
	registerer  prometheus.Registerer = prometheus.DefaultRegisterer
)

// SetMetricsRegisterer takes effect only before the first Metrics call.
func SetMetricsRegisterer(reg prometheus.Registerer) { registerer = reg }

func loadMetrics() *httpMetrics {
	metricsOnce.Do(func() {
		f := promauto.With(registerer)
		metricsSet = &httpMetrics{
			requests: f.NewCounterVec(prometheus.CounterOpts{
				Name: "riskpulse_http_requests_total",
				Help: "HTTP requests by route, method and status code",
			}, []string{"route", "method", "status"}),
			duration: f.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "riskpulse_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5},
			}, []string{"route", "method"}),
			inFlight: f.NewGauge(prometheus.GaugeOpts{
				Name: "riskpulse_http_in_flight_requests",
				Help: "Requests currently being served",
			}),
		}
	})
	return metricsSet
}

// Metrics labels requests by route template, never by raw path, so that
// symbols and user ids do not explode cardinality.
func Metrics() echo.MiddlewareFunc {
	m := loadMetrics()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.inFlight.Inc()
			defer m.inFlight.Dec()

			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			code := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				code = he.Code
			}
			method := c.Request().Method
			m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
			m.duration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
