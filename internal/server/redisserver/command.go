package redisserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
	"github.com/yndnr/kvmesh-go/internal/core/service"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
	"github.com/yndnr/kvmesh-go/pkg/ratelimit"
)

// Metric code labels for replies that carry no domain error code.
const (
	codeOK    = "OK"
	codeError = "ERR"
)

// formatRedisError converts an error to a Redis error string.
// DomainErrors render as "ERR <code> <message>".
func formatRedisError(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return "ERR " + de.Code + " " + de.Message
	}
	return "ERR " + err.Error()
}

// result is what a command handler reports back for metrics.
type result struct {
	code string
}

var done = result{code: codeOK}

func failed(code string) result {
	return result{code: code}
}

type commandFunc func(ctx context.Context, conn *Conn, args [][]byte) result

type command struct {
	fn commandFunc
	// arity is the exact argument count including the command name when
	// positive, or the minimum count when negative.
	arity int
}

// CommandHandler dispatches Redis commands to the key-value service.
type CommandHandler struct {
	svc      *service.KVService
	logger   logger.Logger
	limiter  *ratelimit.PerKey
	metrics  *metric.Registry
	commands map[string]command
}

// NewCommandHandler creates a CommandHandler. limiter and reg may be nil.
func NewCommandHandler(svc *service.KVService, l logger.Logger, limiter *ratelimit.PerKey, reg *metric.Registry) *CommandHandler {
	if l == nil {
		l = logger.NewNop()
	}
	h := &CommandHandler{
		svc:     svc,
		logger:  l,
		limiter: limiter,
		metrics: reg,
	}
	h.commands = map[string]command{
		"PING":    {h.handlePing, -1},
		"ECHO":    {h.handleEcho, 2},
		"QUIT":    {h.handleQuit, -1},
		"COMMAND": {h.handleCommand, -1},
		"GET":     {h.handleGet, 2},
		"SET":     {h.handleSet, 3},
		"SETNX":   {h.handleSetNX, 3},
		"DEL":     {h.handleDel, -2},
		"EXISTS":  {h.handleExists, -2},
		"KEYS":    {h.handleKeys, 2},
		"DBSIZE":  {h.handleDBSize, 1},
		"KVMETA":  {h.handleMeta, 2},
	}
	return h
}

// Handle runs one command and buffers its reply on conn.
func (h *CommandHandler) Handle(ctx context.Context, conn *Conn, args [][]byte) {
	start := time.Now()
	name := normalizeCommandName(args[0])

	cmd, known := h.commands[name]
	route := strings.ToLower(name)
	if !known {
		route = "unknown"
	}

	var res result
	switch {
	case !known:
		_ = WriteError(conn.bw, "ERR unknown command '"+string(args[0])+"'")
		res = failed(codeError)
	case name != "QUIT" && h.limiter != nil && !h.limiter.Allow(conn.ip):
		_ = WriteError(conn.bw, formatRedisError(domain.ErrRateLimited))
		res = failed(domain.ErrRateLimited.Code)
	case !arityOK(cmd.arity, len(args)):
		_ = WriteError(conn.bw, "ERR wrong number of arguments for '"+route+"' command")
		res = failed(codeError)
	default:
		res = cmd.fn(ctx, conn, args)
	}

	h.metrics.ObserveRequest(metric.TransportRedis, route, res.code, time.Since(start))
}

func arityOK(arity, n int) bool {
	if arity < 0 {
		return n >= -arity
	}
	return n == arity
}

// writeErr renders err and reports its code.
func (h *CommandHandler) writeErr(ctx context.Context, conn *Conn, err error) result {
	code := domain.GetErrorCode(err)
	if code == "" {
		h.logger.WithContext(ctx).Error("redis command failed", "remote", conn.ip, "error", err)
		code = codeError
	}
	_ = WriteError(conn.bw, formatRedisError(err))
	return failed(code)
}

func (h *CommandHandler) handlePing(_ context.Context, conn *Conn, args [][]byte) result {
	switch len(args) {
	case 1:
		_ = WriteSimpleString(conn.bw, "PONG")
	case 2:
		_ = WriteBulk(conn.bw, args[1])
	default:
		_ = WriteError(conn.bw, "ERR wrong number of arguments for 'ping' command")
		return failed(codeError)
	}
	return done
}

func (h *CommandHandler) handleEcho(_ context.Context, conn *Conn, args [][]byte) result {
	_ = WriteBulk(conn.bw, nonNil(args[1]))
	return done
}

func (h *CommandHandler) handleQuit(_ context.Context, conn *Conn, _ [][]byte) result {
	_ = WriteSimpleString(conn.bw, "OK")
	_ = conn.bw.Flush()
	_ = conn.Close()
	return done
}

// handleCommand answers COMMAND and its subcommands with an empty array so
// that interactive clients can connect.
func (h *CommandHandler) handleCommand(_ context.Context, conn *Conn, _ [][]byte) result {
	_ = WriteArrayHeader(conn.bw, 0)
	return done
}

// GET <key>
func (h *CommandHandler) handleGet(ctx context.Context, conn *Conn, args [][]byte) result {
	entry, err := h.svc.Get(ctx, string(args[1]))
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			_ = WriteNullBulk(conn.bw)
			return done
		}
		return h.writeErr(ctx, conn, err)
	}
	_ = WriteBulkString(conn.bw, entry.Value)
	return done
}

// SET <key> <value>
func (h *CommandHandler) handleSet(ctx context.Context, conn *Conn, args [][]byte) result {
	if _, err := h.svc.Put(ctx, string(args[1]), string(args[2])); err != nil {
		return h.writeErr(ctx, conn, err)
	}
	_ = WriteSimpleString(conn.bw, "OK")
	return done
}

// SETNX <key> <value>
func (h *CommandHandler) handleSetNX(ctx context.Context, conn *Conn, args [][]byte) result {
	_, err := h.svc.Create(ctx, string(args[1]), string(args[2]))
	switch {
	case err == nil:
		_ = WriteInteger(conn.bw, 1)
	case errors.Is(err, domain.ErrKeyExists):
		_ = WriteInteger(conn.bw, 0)
	default:
		return h.writeErr(ctx, conn, err)
	}
	return done
}

// DEL <key> [key ...]
func (h *CommandHandler) handleDel(ctx context.Context, conn *Conn, args [][]byte) result {
	keys, err := parseKeys(args[1:])
	if err != nil {
		return h.writeErr(ctx, conn, err)
	}

	var removed int64
	for _, k := range keys {
		_, err := h.svc.Delete(ctx, k)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, domain.ErrKeyNotFound):
		default:
			return h.writeErr(ctx, conn, err)
		}
	}
	_ = WriteInteger(conn.bw, removed)
	return done
}

// EXISTS <key> [key ...]
func (h *CommandHandler) handleExists(ctx context.Context, conn *Conn, args [][]byte) result {
	keys, err := parseKeys(args[1:])
	if err != nil {
		return h.writeErr(ctx, conn, err)
	}

	var n int64
	for _, k := range keys {
		exists, err := h.svc.Exists(ctx, k)
		if err != nil {
			return h.writeErr(ctx, conn, err)
		}
		if exists {
			n++
		}
	}
	_ = WriteInteger(conn.bw, n)
	return done
}

// KEYS *
func (h *CommandHandler) handleKeys(ctx context.Context, conn *Conn, args [][]byte) result {
	if string(args[1]) != "*" {
		_ = WriteError(conn.bw, "ERR only the '*' pattern is supported")
		return failed(codeError)
	}
	keys, err := h.svc.List(ctx)
	if err != nil {
		return h.writeErr(ctx, conn, err)
	}
	_ = WriteStringArray(conn.bw, keys)
	return done
}

// DBSIZE
func (h *CommandHandler) handleDBSize(ctx context.Context, conn *Conn, _ [][]byte) result {
	n, err := h.svc.Count(ctx)
	if err != nil {
		return h.writeErr(ctx, conn, err)
	}
	_ = WriteInteger(conn.bw, int64(n))
	return done
}

// KVMETA <key> replies with [value, created_at, updated_at], or a null
// array when the key does not exist.
func (h *CommandHandler) handleMeta(ctx context.Context, conn *Conn, args [][]byte) result {
	entry, err := h.svc.Get(ctx, string(args[1]))
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			_ = WriteNullArray(conn.bw)
			return done
		}
		return h.writeErr(ctx, conn, err)
	}
	_ = WriteStringArray(conn.bw, []string{
		entry.Value,
		entry.CreatedAt.Format(time.RFC3339Nano),
		entry.UpdatedAt.Format(time.RFC3339Nano),
	})
	return done
}

// parseKeys validates every key before any of them is touched.
func parseKeys(args [][]byte) ([]string, error) {
	keys := make([]string, len(args))
	for i, a := range args {
		if _, err := domain.ParseKey(string(a)); err != nil {
			return nil, err
		}
		keys[i] = string(a)
	}
	return keys, nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
