package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	m "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fightcancer/internal/db"
	"fightcancer/internal/scoring"
)

// Enqueuer is the part of the asynq client used to schedule training.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Deps are the collaborators of the API.
type Deps struct {
	Store  db.Store
	Scorer *scoring.Scorer
	// Queue is nil when no task queue is configured; training routes then
	// answer 503.
	Queue    Enqueuer
	APIToken string
	Registry *prometheus.Registry
}

type Server struct {
	Store    db.Store
	Scorer   *scoring.Scorer
	Queue    Enqueuer
	apiToken string
	metrics  *Metrics
	registry *prometheus.Registry
}

func NewServer(addr string, d Deps) *http.Server {
	return &http.Server{Addr: addr, Handler: New(d).Routes()}
}

// New builds the API. A nil Registry gets a fresh one.
func New(d Deps) *Server {
	reg := d.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &Server{
		Store:    d.Store,
		Scorer:   d.Scorer,
		Queue:    d.Queue,
		apiToken: d.APIToken,
		metrics:  NewMetrics(reg),
		registry: reg,
	}
	s.metrics.SetDegraded(d.Scorer.Degraded())
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(m.RequestID, m.RealIP, requestLogger, s.metrics.Middleware, m.Recoverer)

	// Questionnaire sessions (session token as Authorization: Bearer)
	r.Post("/sessions", s.createSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Use(s.sessionAuth)
		r.Get("/", s.getSession)
		r.Post("/steps/{step}", s.submitStep)
		r.Post("/reset", s.resetSession)
		r.Get("/result", s.getResult)
		r.Get("/assessments", s.listAssessments)
	})

	r.Post("/score", s.score)
	r.Get("/model", s.modelStatus)

	// Admin/API-token protected
	r.Group(func(r chi.Router) {
		r.Use(RequireAPIToken(s.apiToken))
		r.Post("/training", s.createTraining)
		r.Get("/training/{id}", s.getTraining)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.Store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "db error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "degraded": s.Scorer.Degraded()})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
