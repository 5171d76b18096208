package command

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/yndnr/kvmesh-go/internal/core/service"
	"github.com/yndnr/kvmesh-go/internal/server/httpserver/handler"
	"github.com/yndnr/kvmesh-go/internal/storage/memory"
)

// newTestServer starts an HTTP server backed by an in-memory store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := service.NewKVService(memory.New())
	srv := httptest.NewServer(handler.New(handler.Config{Service: svc}))
	t.Cleanup(srv.Close)
	return srv
}

// newStubServer starts an HTTP server that answers every request with fn.
func newStubServer(t *testing.T, fn http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(fn)
	t.Cleanup(srv.Close)
	return srv
}

// run executes the CLI against server and returns what it printed.
func run(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &out

	argv := []string{
		"kvmesh-cli",
		"--config", filepath.Join(t.TempDir(), "cli.yaml"),
		"--server", server,
	}
	argv = append(argv, args...)
	err := app.Run(argv)
	return out.String(), err
}
