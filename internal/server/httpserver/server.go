package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/yndnr/kvmesh-go/internal/server/config"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
)

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	certFile   string
	keyFile    string
	logger     logger.Logger
}

// New creates an HTTP server for cfg serving handler.
func New(cfg config.HTTPConfig, handler http.Handler, l logger.Logger) *Server {
	if l == nil {
		l = logger.NewNop()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
			ErrorLog:     slog.NewLogLogger(logger.Slog(l).Handler(), slog.LevelWarn),
		},
		certFile: cfg.TLSCertFile,
		keyFile:  cfg.TLSKeyFile,
		logger:   l,
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// TLS reports whether the server serves HTTPS.
func (s *Server) TLS() bool {
	return s.certFile != "" && s.keyFile != ""
}

// ListenAndServe listens on the configured address and serves until
// Shutdown. It returns nil after a graceful shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln. It returns nil after a graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http server listening", "addr", ln.Addr().String(), "tls", s.TLS())

	var err error
	if s.TLS() {
		err = s.httpServer.ServeTLS(ln, s.certFile, s.keyFile)
	} else {
		err = s.httpServer.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
