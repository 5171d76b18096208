package redisserver

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/kvmesh-go/internal/core/service"
	"github.com/yndnr/kvmesh-go/internal/storage/memory"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
	"github.com/yndnr/kvmesh-go/pkg/ratelimit"
)

type testHandler struct {
	h    *CommandHandler
	conn *Conn
	out  *bytes.Buffer
}

func newTestHandler(t *testing.T, limiter *ratelimit.PerKey, reg *metric.Registry) *testHandler {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})

	var out bytes.Buffer
	conn := newConn(server, Limits{})
	conn.bw = bufio.NewWriter(&out)

	svc := service.NewKVService(memory.New())
	return &testHandler{
		h:    NewCommandHandler(svc, logger.NewNop(), limiter, reg),
		conn: conn,
		out:  &out,
	}
}

// run executes one command and returns the raw reply.
func (th *testHandler) run(t *testing.T, args ...string) string {
	t.Helper()
	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	th.out.Reset()
	th.h.Handle(context.Background(), th.conn, raw)
	th.conn.bw.Flush()
	return th.out.String()
}

func TestCommands(t *testing.T) {
	th := newTestHandler(t, nil, nil)

	steps := []struct {
		args []string
		want string
	}{
		{[]string{"PING"}, "+PONG\r\n"},
		{[]string{"ping", "hi"}, "$2\r\nhi\r\n"},
		{[]string{"ECHO", "hello"}, "$5\r\nhello\r\n"},
		{[]string{"GET", "k1"}, "$-1\r\n"},
		{[]string{"SET", "k1", "v1"}, "+OK\r\n"},
		{[]string{"GET", "k1"}, "$2\r\nv1\r\n"},
		{[]string{"SETNX", "k1", "other"}, ":0\r\n"},
		{[]string{"SETNX", "k2", "v2"}, ":1\r\n"},
		{[]string{"EXISTS", "k1", "k2", "k3", "k1"}, ":3\r\n"},
		{[]string{"DBSIZE"}, ":2\r\n"},
		{[]string{"KEYS", "*"}, "*2\r\n$2\r\nk1\r\n$2\r\nk2\r\n"},
		{[]string{"DEL", "k1", "k3"}, ":1\r\n"},
		{[]string{"GET", "k1"}, "$-1\r\n"},
		{[]string{"KVMETA", "k1"}, "*-1\r\n"},
		{[]string{"COMMAND", "DOCS"}, "*0\r\n"},
	}

	for _, step := range steps {
		if got := th.run(t, step.args...); got != step.want {
			t.Errorf("%v = %q, want %q", step.args, got, step.want)
		}
	}
}

func TestCommands_Errors(t *testing.T) {
	th := newTestHandler(t, nil, nil)

	tests := []struct {
		args       []string
		wantPrefix string
	}{
		{[]string{"FLUSHALL"}, "-ERR unknown command 'FLUSHALL'"},
		{[]string{"GET"}, "-ERR wrong number of arguments for 'get' command"},
		{[]string{"SET", "k"}, "-ERR wrong number of arguments for 'set' command"},
		{[]string{"DBSIZE", "x"}, "-ERR wrong number of arguments for 'dbsize' command"},
		{[]string{"PING", "a", "b"}, "-ERR wrong number of arguments for 'ping' command"},
		{[]string{"GET", "bad key"}, "-ERR KV-ARG-4001 invalid key"},
		{[]string{"SET", "k", ""}, "-ERR KV-ARG-4002 invalid value"},
		{[]string{"DEL", "ok", "bad key"}, "-ERR KV-ARG-4001 invalid key"},
		{[]string{"KEYS", "user:*"}, "-ERR only the '*' pattern is supported"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			got := th.run(t, tt.args...)
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("reply = %q, want prefix %q", got, tt.wantPrefix)
			}
		})
	}
}

func TestDel_ValidatesBeforeDeleting(t *testing.T) {
	th := newTestHandler(t, nil, nil)
	th.run(t, "SET", "keep", "v")

	th.run(t, "DEL", "keep", "bad key")
	if got := th.run(t, "EXISTS", "keep"); got != ":1\r\n" {
		t.Errorf("keep was deleted despite a bad key in the same DEL: %q", got)
	}
}

func TestKVMeta(t *testing.T) {
	th := newTestHandler(t, nil, nil)
	th.run(t, "SET", "meta", "payload")

	r := NewReader(strings.NewReader(th.run(t, "KVMETA", "meta")), Limits{})
	parts, err := r.ReadCommand()
	if err != nil {
		t.Fatalf("reply is not an array of bulk strings: %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("len = %d, want 3", len(parts))
	}
	if string(parts[0]) != "payload" {
		t.Errorf("value = %q, want payload", parts[0])
	}
	created, err := time.Parse(time.RFC3339Nano, string(parts[1]))
	if err != nil {
		t.Fatalf("created_at %q: %v", parts[1], err)
	}
	updated, err := time.Parse(time.RFC3339Nano, string(parts[2]))
	if err != nil {
		t.Fatalf("updated_at %q: %v", parts[2], err)
	}
	if !created.Equal(updated) {
		t.Error("created_at and updated_at should match for a new key")
	}
}

func TestRateLimited(t *testing.T) {
	th := newTestHandler(t, ratelimit.New(0.001, 1), nil)

	if got := th.run(t, "PING"); got != "+PONG\r\n" {
		t.Fatalf("first PING = %q", got)
	}
	if got := th.run(t, "PING"); !strings.HasPrefix(got, "-ERR KV-SYS-4290") {
		t.Errorf("second PING = %q, want rate limit error", got)
	}
	if got := th.run(t, "QUIT"); got != "+OK\r\n" {
		t.Errorf("QUIT should bypass rate limiting, got %q", got)
	}
}

func TestQuitClosesConn(t *testing.T) {
	th := newTestHandler(t, nil, nil)
	th.run(t, "QUIT")
	if !th.conn.closed.Load() {
		t.Error("QUIT should close the connection")
	}
}

func TestHandle_Metrics(t *testing.T) {
	reg := metric.NewRegistry()
	th := newTestHandler(t, nil, reg)

	th.run(t, "SET", "m", "1")
	th.run(t, "GET", "bad key")
	th.run(t, "NOPE")

	checks := []struct {
		route, code string
	}{
		{"set", codeOK},
		{"get", "KV-ARG-4001"},
		{"unknown", codeError},
	}
	for _, c := range checks {
		got := testutil.ToFloat64(reg.RequestsTotal.WithLabelValues(metric.TransportRedis, c.route, c.code))
		if got != 1 {
			t.Errorf("requests{route=%s,code=%s} = %v, want 1", c.route, c.code, got)
		}
	}
}

func TestArityOK(t *testing.T) {
	tests := []struct {
		arity, n int
		want     bool
	}{
		{2, 2, true},
		{2, 3, false},
		{-2, 2, true},
		{-2, 5, true},
		{-2, 1, false},
	}
	for _, tt := range tests {
		if got := arityOK(tt.arity, tt.n); got != tt.want {
			t.Errorf("arityOK(%d, %d) = %v, want %v", tt.arity, tt.n, got, tt.want)
		}
	}
}
