// Package api provides the HTTP REST API and device channel endpoints
// for Feeder Core.
//
// It exposes account and feeder management, the feeding diary, and the
// WebSocket channels (control, video, audio) that feeder hardware
// connects to.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/feedwell/feeder-core/internal/auth"
	"github.com/feedwell/feeder-core/internal/conn"
	"github.com/feedwell/feeder-core/internal/feeder"
	"github.com/feedwell/feeder-core/internal/infrastructure/config"
	"github.com/feedwell/feeder-core/internal/infrastructure/logging"
	"github.com/feedwell/feeder-core/internal/record"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	Channels   config.ChannelsConfig
	Logger     *logging.Logger
	Registry   *conn.Registry
	Dispatcher *conn.Dispatcher
	Feeders    *feeder.Service
	Records    *record.Materializer
	Users      auth.UserRepository
	Tokens     *auth.TokenService
	Version    string
}

// Server is the HTTP API server for Feeder Core.
//
// It manages the HTTP listener, routes, middleware, and the device
// channel upgrade endpoints. The server is created with New() and
// started with Start().
type Server struct {
	cfg        config.APIConfig
	chanCfg    config.ChannelsConfig
	logger     *logging.Logger
	registry   *conn.Registry
	dispatcher *conn.Dispatcher
	feeders    *feeder.Service
	records    *record.Materializer
	users      auth.UserRepository
	tokens     *auth.TokenService
	version    string
	server     *http.Server
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("connection registry is required")
	}
	if deps.Feeders == nil {
		return nil, fmt.Errorf("feeder service is required")
	}
	if deps.Records == nil {
		return nil, fmt.Errorf("record materialiser is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}

	return &Server{
		cfg:        deps.Config,
		chanCfg:    deps.Channels,
		logger:     deps.Logger,
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
		feeders:    deps.Feeders,
		records:    deps.Records,
		users:      deps.Users,
		tokens:     deps.Tokens,
		version:    deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// The listener runs in a background goroutine; the server is stopped
// with Close().
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
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server, waiting up to 10
// seconds for in-flight requests to complete.
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
