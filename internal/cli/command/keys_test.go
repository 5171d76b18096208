package command

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/kvmesh-go/internal/cli/connection"
)

func TestKeys_Lifecycle(t *testing.T) {
	srv := newTestServer(t)

	out, err := run(t, srv.URL, "create", "alpha", "one")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(out, "alpha") || !strings.Contains(out, "one") {
		t.Errorf("create output = %q", out)
	}

	out, err = run(t, srv.URL, "put", "alpha", "two")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.Contains(out, "OUTCOME") || !strings.Contains(out, "updated") {
		t.Errorf("put output = %q, want updated outcome", out)
	}

	out, err = run(t, srv.URL, "-o", "json", "get", "alpha")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var entry Entry
	if err := json.Unmarshal([]byte(out), &entry); err != nil {
		t.Fatalf("get output is not JSON: %v\n%s", err, out)
	}
	if entry.Value != "two" {
		t.Errorf("Value = %q, want two", entry.Value)
	}
	if entry.Metadata.UpdatedAt.Before(entry.Metadata.CreatedAt) {
		t.Error("updated_at should not precede created_at")
	}

	if _, err := run(t, srv.URL, "delete", "alpha"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err = run(t, srv.URL, "get", "alpha")
	var apiErr *connection.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("get after delete error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Code != "KV-KEY-4040" {
		t.Errorf("APIError = %+v, want 404 KV-KEY-4040", apiErr)
	}
}

func TestCreate_Conflict(t *testing.T) {
	srv := newTestServer(t)

	if _, err := run(t, srv.URL, "create", "k", "v"); err != nil {
		t.Fatal(err)
	}
	_, err := run(t, srv.URL, "create", "k", "other")

	var apiErr *connection.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "KV-KEY-4090" {
		t.Errorf("error = %v, want KV-KEY-4090", err)
	}
}

func TestPut_CreatedOutcome(t *testing.T) {
	srv := newTestServer(t)

	out, err := run(t, srv.URL, "-o", "yaml", "put", "fresh", "v")
	if err != nil {
		t.Fatal(err)
	}
	var entry Entry
	if err := yaml.Unmarshal([]byte(out), &entry); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, out)
	}
	if entry.Outcome != "created" {
		t.Errorf("Outcome = %q, want created", entry.Outcome)
	}
	if entry.Key != "fresh" {
		t.Errorf("Key = %q, want fresh", entry.Key)
	}
}

func TestList(t *testing.T) {
	srv := newTestServer(t)

	for _, k := range []string{"charlie", "alpha", "bravo"} {
		if _, err := run(t, srv.URL, "put", k, "v"); err != nil {
			t.Fatal(err)
		}
	}

	out, err := run(t, srv.URL, "--no-headers", "list")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Fields(out)
	want := []string{"alpha", "bravo", "charlie"}
	if strings.Join(lines, ",") != strings.Join(want, ",") {
		t.Errorf("list = %v, want %v", lines, want)
	}

	out, err = run(t, srv.URL, "list", "--count")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "3" {
		t.Errorf("list --count = %q, want 3", out)
	}
}

func TestList_EmptyJSON(t *testing.T) {
	srv := newTestServer(t)

	out, err := run(t, srv.URL, "-o", "json", "list")
	if err != nil {
		t.Fatal(err)
	}
	var list KeyList
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatal(err)
	}
	if list.Keys == nil || len(list.Keys) != 0 || list.Total != 0 {
		t.Errorf("list = %+v, want empty non-nil keys", list)
	}
}

func TestKeyCommands_ArgumentCount(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		args []string
	}{
		{"get without key", []string{"get"}},
		{"put without value", []string{"put", "k"}},
		{"create with extra", []string{"create", "k", "v", "x"}},
		{"delete without key", []string{"delete"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, srv.URL, tt.args...)
			if err == nil || !strings.Contains(err.Error(), "requires") {
				t.Errorf("error = %v, want argument count error", err)
			}
		})
	}
}

func TestInvalidKey(t *testing.T) {
	srv := newTestServer(t)

	_, err := run(t, srv.URL, "put", strings.Repeat("k", 256), "v")

	var apiErr *connection.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Errorf("error = %v, want 400", err)
	}
}

func TestKeyPath(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"simple", "/keys/simple"},
		{"with space", "/keys/with%20space"},
		{"a/b", "/keys/a%2Fb"},
	}
	for _, tt := range tests {
		if got := keyPath(tt.key); got != tt.want {
			t.Errorf("keyPath(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
