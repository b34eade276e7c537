package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dedezza1D/tasklife/internal/lifecycle"
	"github.com/dedezza1D/tasklife/internal/observability"
	"github.com/dedezza1D/tasklife/internal/task"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// TaskService is the lifecycle surface the handlers drive.
type TaskService interface {
	Submit(ctx context.Context, p lifecycle.SubmitParams) (*task.Task, error)
	Get(ctx context.Context, id string) (*task.Task, error)
	Start(ctx context.Context, id string) (*task.Task, error)
	Complete(ctx context.Context, id, resultFile string) (*task.Task, error)
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	tasks      TaskService
}

type Config struct {
	Port string
}

func NewServer(cfg Config, logger *zap.Logger, tasks TaskService) *Server {
	r := mux.NewRouter()

	routeName := func(r *http.Request) string {
		if rt := mux.CurrentRoute(r); rt != nil {
			if tpl, err := rt.GetPathTemplate(); err == nil && tpl != "" {
				return tpl
			}
		}
		return r.URL.Path
	}

	// Middlewares (order matters)
	r.Use(observability.RequestIDMiddleware)
	r.Use(observability.TracingMiddleware(routeName))
	r.Use(observability.HTTPMetricsMiddleware(routeName))
	r.Use(observability.AccessLogMiddleware(logger, routeName))

	srv := &Server{
		logger: logger,
		tasks:  tasks,
	}

	// Metrics
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Health
	api.HandleFunc("/health", srv.handleHealth).Methods(http.MethodGet)

	// Tasks
	api.HandleFunc("/tasks", srv.handleSubmitTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{global_task_id}", srv.handleGetTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{global_task_id}/start", srv.handleStartTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{global_task_id}/complete", srv.handleCompleteTask).Methods(http.MethodPut)

	s := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	srv.httpServer = s
	return srv
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}
