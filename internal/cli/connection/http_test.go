package connection

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewHTTPClient(t *testing.T) {
	tests := []struct {
		name   string
		server string
		want   string
	}{
		{"with http prefix", "http://localhost:8080", "http://localhost:8080"},
		{"with https prefix", "https://localhost:8080", "https://localhost:8080"},
		{"without prefix", "localhost:8080", "http://localhost:8080"},
		{"trailing slash", "http://kv.example.com/", "http://kv.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewHTTPClient(tt.server, "")
			if client.BaseURL() != tt.want {
				t.Errorf("BaseURL() = %q, want %q", client.BaseURL(), tt.want)
			}
		})
	}
}

func TestHTTPClient_Methods(t *testing.T) {
	type seen struct {
		method, path, contentType, userAgent, body string
	}
	var got seen

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = seen{r.Method, r.URL.Path, r.Header.Get("Content-Type"), r.Header.Get("User-Agent"), string(b)}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "kvmesh-cli/test")
	ctx := context.Background()
	body := map[string]string{"value": "v"}

	tests := []struct {
		name     string
		call     func() (*http.Response, error)
		want     string
		wantBody bool
	}{
		{"GET", func() (*http.Response, error) { return client.Get(ctx, "/keys/a") }, http.MethodGet, false},
		{"POST", func() (*http.Response, error) { return client.Post(ctx, "/keys/a", body) }, http.MethodPost, true},
		{"PUT", func() (*http.Response, error) { return client.Put(ctx, "/keys/a", body) }, http.MethodPut, true},
		{"DELETE", func() (*http.Response, error) { return client.Delete(ctx, "/keys/a") }, http.MethodDelete, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.call()
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()

			if got.method != tt.want || got.path != "/keys/a" {
				t.Errorf("server saw %s %s", got.method, got.path)
			}
			if got.userAgent != "kvmesh-cli/test" {
				t.Errorf("User-Agent = %q", got.userAgent)
			}
			if tt.wantBody {
				if got.contentType != "application/json" {
					t.Errorf("Content-Type = %q, want application/json", got.contentType)
				}
				if !strings.Contains(got.body, `"value":"v"`) {
					t.Errorf("body = %q", got.body)
				}
			} else if got.body != "" {
				t.Errorf("unexpected body %q", got.body)
			}
		})
	}
}

func respond(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseResponse_Success(t *testing.T) {
	resp := respond(http.StatusOK, `{"code":"OK","message":"Success","data":{"key":"a","value":"1"}}`, nil)

	var entry struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := ParseResponse(resp, &entry); err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if entry.Key != "a" || entry.Value != "1" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestParseResponse_Errors(t *testing.T) {
	tests := []struct {
		name       string
		resp       *http.Response
		wantCode   string
		wantStatus int
		wantText   string
	}{
		{
			name:       "envelope",
			resp:       respond(http.StatusNotFound, `{"code":"KV-KEY-4040","message":"key not found","request_id":"r1","details":"key: a"}`, nil),
			wantCode:   "KV-KEY-4040",
			wantStatus: http.StatusNotFound,
			wantText:   "[KV-KEY-4040] key not found: key: a",
		},
		{
			name:       "non-json body",
			resp:       respond(http.StatusBadGateway, "bad gateway", http.Header{"X-Error-Code": {"KV-SYS-5000"}}),
			wantCode:   "KV-SYS-5000",
			wantStatus: http.StatusBadGateway,
			wantText:   "request failed with status 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponse(tt.resp, nil)

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.Code != tt.wantCode || apiErr.Status != tt.wantStatus {
				t.Errorf("APIError = %+v", apiErr)
			}
			if !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("Error() = %q, want it to contain %q", err.Error(), tt.wantText)
			}
		})
	}
}

func TestParseResponse_InvalidJSON(t *testing.T) {
	err := ParseResponse(respond(http.StatusOK, "{", nil), nil)
	if err == nil {
		t.Fatal("expected an error for malformed JSON")
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return
	}
	if !strings.Contains(err.Error(), "parse response") {
		t.Errorf("error = %v", err)
	}
}
