package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	m "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	steps       *prometheus.CounterVec
	assessments *prometheus.CounterVec
	degraded    prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	mt := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fightcancer_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fightcancer_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fightcancer_step_submissions_total",
			Help: "Questionnaire step submissions by step and outcome.",
		}, []string{"step", "outcome"}),
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fightcancer_assessments_total",
			Help: "Computed risk scores by tier.",
		}, []string{"tier", "degraded"}),
		degraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fightcancer_model_degraded",
			Help: "1 when scores come from the stand-in pipeline.",
		}),
	}
	reg.MustRegister(mt.requests, mt.duration, mt.steps, mt.assessments, mt.degraded)
	return mt
}

func (mt *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := m.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		mt.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		mt.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (mt *Metrics) Step(step, outcome string) { mt.steps.WithLabelValues(step, outcome).Inc() }

func (mt *Metrics) Assessment(tier string, degraded bool) {
	mt.assessments.WithLabelValues(tier, strconv.FormatBool(degraded)).Inc()
}

func (mt *Metrics) SetDegraded(d bool) {
	if d {
		mt.degraded.Set(1)
		return
	}
	mt.degraded.Set(0)
}
