// Package server exposes the receptionist and clinical agents over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Yates-Labs/carebridge/internal/config"
	"github.com/Yates-Labs/carebridge/internal/logging"
	"github.com/Yates-Labs/carebridge/internal/orchestrator"
	"github.com/Yates-Labs/carebridge/internal/patient"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Config holds the listener settings.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// DefaultConfig reads HTTP_HOST and HTTP_PORT.
func DefaultConfig() Config {
	return Config{
		Host:            config.String("HTTP_HOST", "0.0.0.0"),
		Port:            config.Int("HTTP_PORT", 5000),
		ShutdownTimeout: 10 * time.Second,
	}
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Clinician answers clinical questions. *orchestrator.RAGPipeline
// satisfies it.
type Clinician interface {
	AnswerQuestion(ctx context.Context, patientSummary, question, patientID string) *orchestrator.Answer
}

// Deps are the collaborators the handlers call.
type Deps struct {
	Patients  patient.Store
	Clinician Clinician

	// Reported by GET /config
	OpenAIConfigured bool
	Model            string
}

// Server is the HTTP front end.
type Server struct {
	config Config
	engine *gin.Engine
	logger *zap.Logger
}

// New builds the gin engine and registers every route.
func New(deps Deps, cfg Config, logger *zap.Logger) (*Server, error) {
	if deps.Patients == nil {
		return nil, errors.New("patient store cannot be nil")
	}
	if deps.Clinician == nil {
		return nil, errors.New("clinician cannot be nil")
	}
	logger = logging.OrNop(logger)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(Recovery(logger), RequestID(), RequestLogger(logger), CORS())

	h := &handlers{
		patients:     deps.Patients,
		receptionist: patient.NewReceptionist(deps.Patients, logger),
		clinician:    deps.Clinician,
		openai:       deps.OpenAIConfigured,
		model:        deps.Model,
	}
	engine.POST("/receptionist", h.receptionistHandler)
	engine.POST("/clinical", h.clinicalHandler)
	engine.GET("/health", h.healthHandler)
	engine.GET("/config", h.configHandler)

	return &Server{config: cfg, engine: engine, logger: logger}, nil
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
