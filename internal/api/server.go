package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ferncroft/helper-audit/internal/analysis"
	"github.com/ferncroft/helper-audit/internal/infrastructure/config"
	"github.com/ferncroft/helper-audit/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Analyzer runs a full analysis and returns the result. The serve command
// injects the pipeline here so the server stays decoupled from discovery,
// report writing, and run persistence.
type Analyzer interface {
	Analyze(ctx context.Context) (*analysis.Result, error)
}

// HealthChecker reports the health of one infrastructure component.
// The database and MQTT clients both satisfy this.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Repo     analysis.Repository
	Analyzer Analyzer

	// Components are named health checkers reported by the health
	// endpoint. Optional components (MQTT, InfluxDB) are simply omitted.
	Components map[string]HealthChecker

	Version string
}

// Server is the HTTP API server for Helper Audit.
//
// It exposes stored run history and a trigger endpoint for new analyses.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	logger     *logging.Logger
	repo       analysis.Repository
	analyzer   Analyzer
	components map[string]HealthChecker
	version    string
	server     *http.Server

	// analysing guards the trigger endpoint: one analysis at a time.
	analysing atomic.Bool
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, run repository)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Repo == nil {
		return nil, fmt.Errorf("run repository is required")
	}
	// Analyzer is optional. Without it the trigger endpoint returns 409
	// but history reads still work.

	return &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		repo:       deps.Repo,
		analyzer:   deps.Analyzer,
		components: deps.Components,
		version:    deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
