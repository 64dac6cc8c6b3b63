// Package maintenance exposes the scoring engine over HTTP.
package maintenance

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kilianp07/fleetmaint/core/model"
	coremon "github.com/kilianp07/fleetmaint/core/monitoring"
	"github.com/kilianp07/fleetmaint/core/prediction/audit"
	"github.com/kilianp07/fleetmaint/infra/logger"
	"github.com/kilianp07/fleetmaint/infra/store"
)

// Service is the fleet facade used by the handlers.
type Service interface {
	Predict(ctx context.Context, vehicleID string) (model.Prediction, error)
	PredictAll(ctx context.Context) (map[string]model.Prediction, error)
	Train(ctx context.Context) (int, error)
	Upsert(ctx context.Context, s model.Snapshot, source string) error
	Vehicles(ctx context.Context, f store.Filter) ([]model.Snapshot, error)
}

// Server routes the maintenance API.
type Server struct {
	svc     Service
	audit   audit.Store
	token   string
	log     logger.Logger
	metrics http.Handler
	router  *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" on mutating and audit routes.
func WithToken(token string) Option { return func(s *Server) { s.token = token } }

// WithAuditStore exposes the prediction audit log.
func WithAuditStore(st audit.Store) Option { return func(s *Server) { s.audit = st } }

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option { return func(s *Server) { s.log = l } }

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

// NewServer builds the router.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{svc: svc, log: logger.NopLogger{}, router: mux.NewRouter()}
	for _, o := range opts {
		o(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(jsonMiddleware)
	api.HandleFunc("/ai/predict/maintenance", s.handlePredict).Methods(http.MethodPost)
	api.HandleFunc("/ai/predict/maintenance/all", s.handlePredictAll).Methods(http.MethodGet)
	api.Handle("/ai/train", s.requireToken(http.HandlerFunc(s.handleTrain))).Methods(http.MethodPost)
	api.HandleFunc("/vehicles/{id}/maintenance", s.handleVehicleMaintenance).Methods(http.MethodGet)
	api.HandleFunc("/vehicles", s.handleListVehicles).Methods(http.MethodGet)
	api.Handle("/vehicles", s.requireToken(http.HandlerFunc(s.handleUpsertVehicle))).Methods(http.MethodPost)
	if s.audit != nil {
		api.Handle("/ai/predictions/log", s.requireToken(http.HandlerFunc(s.handleAuditLog))).Methods(http.MethodGet)
	}

	s.router.Use(s.recoverMiddleware)
	s.router.Use(s.loggingMiddleware)
}

// Router returns the configured router.
func (s *Server) Router() *mux.Router { return s.router }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debugf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		func() {
			defer coremon.RecoverError(&err)
			next.ServeHTTP(w, r)
		}()
		if err != nil {
			s.log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
			respondError(w, http.StatusInternalServerError, "internal error")
		}
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
