package redisserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
	"github.com/yndnr/kvmesh-go/internal/core/service"
	"github.com/yndnr/kvmesh-go/internal/server/config"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
	"github.com/yndnr/kvmesh-go/pkg/ratelimit"
)

// Timeout defaults.
const (
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 5 * time.Minute
)

// Config holds the Redis server configuration.
type Config struct {
	Addr string

	// ReadTimeout bounds reading one command once its first byte arrived.
	ReadTimeout time.Duration
	// WriteTimeout bounds flushing one reply.
	WriteTimeout time.Duration
	// IdleTimeout bounds the wait for the next command.
	IdleTimeout time.Duration

	RateLimit config.RateLimitConfig
}

// ConfigFrom builds a Config from the redis server section.
func ConfigFrom(cfg config.RedisConfig) Config {
	return Config{
		Addr:        cfg.Addr,
		IdleTimeout: cfg.IdleTimeout,
		RateLimit:   cfg.RateLimit,
	}
}

func (c Config) withDefaults() Config {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	return c
}

// Server represents the Redis protocol server.
type Server struct {
	cfg     Config
	handler *CommandHandler
	logger  logger.Logger
	limits  Limits

	mu    sync.Mutex
	ln    net.Listener
	conns map[*Conn]struct{}

	closing atomic.Bool
	wg      sync.WaitGroup
}

// Conn represents a single Redis client connection.
type Conn struct {
	netConn net.Conn
	r       *Reader
	bw      *bufio.Writer
	ip      string

	closed atomic.Bool
}

func newConn(c net.Conn, limits Limits) *Conn {
	ip := c.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return &Conn{
		netConn: c,
		r:       NewReader(bufio.NewReader(c), limits),
		bw:      bufio.NewWriter(c),
		ip:      ip,
	}
}

// Close closes the connection. It is safe to call more than once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

// RemoteAddr returns the client address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// New creates a Redis protocol server on top of svc.
func New(cfg Config, svc *service.KVService, l logger.Logger, reg *metric.Registry) *Server {
	if l == nil {
		l = logger.NewNop()
	}
	cfg = cfg.withDefaults()

	var limiter *ratelimit.PerKey
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.Rate, cfg.RateLimit.Burst)
	}

	return &Server{
		cfg:     cfg,
		handler: NewCommandHandler(svc, l, limiter, reg),
		logger:  l,
		limits:  Limits{MaxBulkLen: max(svc.MaxValueBytes(), domain.MaxKeyLength)},
		conns:   make(map[*Conn]struct{}),
	}
}

// ListenAndServe listens on the configured address and serves until
// Shutdown. It returns nil after Shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.closing.Load() {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("redis server listening", "addr", ln.Addr().String())

	for {
		c, err := ln.Accept()
		if err != nil {
			if s.closing.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		conn := newConn(c, s.limits)
		if !s.track(conn) {
			conn.Close()
			return nil
		}

		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.serveConn(ctx, conn)
		}()
	}
}

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting connections, wakes idle ones and waits for
// in-flight commands. Connections still open when ctx ends are closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closing.Store(true)

	var err error
	s.mu.Lock()
	if s.ln != nil {
		if cerr := s.ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	}
	for c := range s.conns {
		_ = c.netConn.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return err
	case <-ctx.Done():
		s.mu.Lock()
		for c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()
		return ctx.Err()
	}
}

// track registers c and adds it to the wait group. Both happen under mu so
// a concurrent Shutdown either rejects c or waits for it.
func (s *Server) track(c *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

func (s *Server) serveConn(ctx context.Context, c *Conn) {
	defer c.Close()

	for !s.closing.Load() && !c.closed.Load() {
		// Idle wait for the first byte of the next command.
		if err := c.netConn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			return
		}
		if s.closing.Load() {
			return
		}
		if err := c.r.Peek(); err != nil {
			s.logReadError(c, err)
			return
		}

		// Tighten to the per-command read timeout once a command started.
		if err := c.netConn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return
		}

		args, err := c.r.ReadCommand()
		if err != nil {
			if errors.Is(err, ErrLimitExceeded) {
				s.logger.Warn("protocol limit exceeded", "remote", c.ip, "error", err)
				s.reply(c, func(w *bufio.Writer) error { return WriteError(w, "ERR protocol limit exceeded") })
				return
			}
			if errors.Is(err, ErrProtocol) {
				s.reply(c, func(w *bufio.Writer) error { return WriteError(w, "ERR protocol error") })
				return
			}
			s.logReadError(c, err)
			return
		}

		if len(args) == 0 {
			continue
		}

		s.handler.Handle(ctx, c, args)

		if c.closed.Load() {
			return
		}
		if err := c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return
		}
		if err := c.bw.Flush(); err != nil {
			return
		}
	}
}

func (s *Server) reply(c *Conn, write func(*bufio.Writer) error) {
	_ = c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	_ = write(c.bw)
	_ = c.bw.Flush()
}

func (s *Server) logReadError(c *Conn, err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || s.closing.Load() {
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		s.logger.Debug("connection timed out", "remote", c.ip)
		return
	}
	s.logger.Debug("connection read error", "remote", c.ip, "error", err)
}
