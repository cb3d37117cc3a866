// Package httpserver wraps http.Server with the configured timeouts and a
// graceful shutdown hook.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shelfworks/catalog-service/internal/config"
	"github.com/shelfworks/catalog-service/pkg/logger"
)

// Server is the process HTTP listener.
type Server struct {
	srv *http.Server
	log *logger.Logger
}

// New builds a server from the listener configuration.
func New(cfg config.ServerConfig, log *logger.Logger, handler http.Handler) *Server {
	if log == nil {
		log = logger.NewDefault("httpserver")
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 15 * time.Second
	}

	return &Server{
		srv: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Start blocks serving requests until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")
	return s.srv.Shutdown(ctx)
}
