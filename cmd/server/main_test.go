package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/fxamacker/cbor/v2"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/janisto/greeting-service/internal/http/health"
	"github.com/janisto/greeting-service/internal/http/v1/greeting"
	"github.com/janisto/greeting-service/internal/platform/metrics"
)

func fixedClock() time.Time {
	return time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
}

func testServer() http.Handler {
	return newRouter(metrics.New(), fixedClock)
}

func serve(t *testing.T, srv http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(chimiddleware.RequestIDHeader, "test-"+strings.Trim(strings.ReplaceAll(path, "/", "-"), "-"))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	srv.ServeHTTP(resp, req)
	return resp
}

func TestHome(t *testing.T) {
	resp := serve(t, testServer(), http.MethodGet, "/", nil)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %q", ct)
	}

	var home greeting.HomeData
	if err := json.Unmarshal(resp.Body.Bytes(), &home); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if home.Status != "running" || home.Version != "1.0.0" {
		t.Fatalf("unexpected home payload: %+v", home)
	}
	if home.Timestamp != "2024-01-15T10:30:00" {
		t.Fatalf("unexpected timestamp: %s", home.Timestamp)
	}
	if len(home.Endpoints) != 4 {
		t.Fatalf("expected 4 endpoints, got %d", len(home.Endpoints))
	}
}

func TestHello(t *testing.T) {
	resp := serve(t, testServer(), http.MethodGet, "/hello", nil)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", resp.Code)
	}
	if body := resp.Body.String(); !strings.Contains(body, `"message":"Hello from Spring Boot!"`) ||
		!strings.Contains(body, `"deployed_via":"GitHub Actions + Terraform"`) {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestHelloName(t *testing.T) {
	resp := serve(t, testServer(), http.MethodGet, "/hello/Workshop", nil)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", resp.Code)
	}
	var data greeting.HelloNameData
	if err := json.Unmarshal(resp.Body.Bytes(), &data); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if data.Message != "Hello, Workshop!" {
		t.Fatalf("expected 'Hello, Workshop!', got %s", data.Message)
	}
	if data.Greeting != "Welcome to the GitHub Actions Workshop!" {
		t.Fatalf("unexpected greeting: %s", data.Greeting)
	}
}

func TestHealth(t *testing.T) {
	resp := serve(t, testServer(), http.MethodGet, "/actuator/health", nil)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", resp.Code)
	}
	var h health.Response
	if err := json.Unmarshal(resp.Body.Bytes(), &h); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if h.Status != "UP" {
		t.Fatalf("expected status UP, got %s", h.Status)
	}
}

func TestSecurityAndCORSHeaders(t *testing.T) {
	resp := serve(t, testServer(), http.MethodGet, "/hello", map[string]string{"Origin": "https://example.com"})

	if got := resp.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff, got %q", got)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard CORS origin, got %q", got)
	}
	if got := resp.Header().Get(chimiddleware.RequestIDHeader); got == "" {
		t.Fatal("expected request id header to be echoed")
	}
}

func TestNotFoundReturnsProblemDetails(t *testing.T) {
	resp := serve(t, testServer(), http.MethodGet, "/missing", nil)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("expected application/problem+json content type, got %q", ct)
	}

	var problem huma.ErrorModel
	if err := json.Unmarshal(resp.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to unmarshal 404 response: %v", err)
	}
	if problem.Status != http.StatusNotFound || problem.Detail != "resource not found" {
		t.Fatalf("unexpected problem: %+v", problem)
	}
}

func TestMethodNotAllowedReturnsProblemDetails(t *testing.T) {
	resp := serve(t, testServer(), http.MethodPost, "/hello", nil)

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", resp.Code)
	}
	if allow := resp.Header().Get("Allow"); !strings.Contains(allow, http.MethodGet) {
		t.Fatalf("expected Allow header to list GET, got %q", allow)
	}

	var problem huma.ErrorModel
	if err := json.Unmarshal(resp.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to unmarshal 405 response: %v", err)
	}
	if !strings.Contains(problem.Detail, "POST") {
		t.Fatalf("expected detail to mention POST, got %s", problem.Detail)
	}
}

func TestCBORAcceptHeader(t *testing.T) {
	resp := serve(t, testServer(), http.MethodGet, "/hello/CBOR", map[string]string{"Accept": "application/cbor"})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/cbor" {
		t.Fatalf("expected application/cbor content type, got %q", ct)
	}
	var data greeting.HelloNameData
	if err := cbor.Unmarshal(resp.Body.Bytes(), &data); err != nil {
		t.Fatalf("cbor unmarshal: %v", err)
	}
	if data.Message != "Hello, CBOR!" {
		t.Fatalf("unexpected message: %s", data.Message)
	}
}

func TestWildcardAcceptReturnsJSON(t *testing.T) {
	srv := testServer()
	for _, accept := range []string{"*/*", "application/*", "text/plain", ""} {
		t.Run(accept, func(t *testing.T) {
			headers := map[string]string{}
			if accept != "" {
				headers["Accept"] = accept
			}
			resp := serve(t, srv, http.MethodGet, "/hello", headers)
			if resp.Code != http.StatusOK {
				t.Fatalf("expected 200 OK, got %d", resp.Code)
			}
			if ct := resp.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("expected application/json, got %q", ct)
			}
		})
	}
}

func TestMetricsEndpointCountsGreetings(t *testing.T) {
	srv := testServer()
	for _, name := range []string{"a", "b"} {
		serve(t, srv, http.MethodGet, "/hello/"+name, nil)
	}

	resp := serve(t, srv, http.MethodGet, "/metrics", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", resp.Code)
	}
	body, _ := io.ReadAll(resp.Body)
	want := `greeting_http_requests_total{code="200",method="GET",route="/hello/{name}"} 2`
	if !strings.Contains(string(body), want) {
		t.Fatalf("expected %q in metrics output:\n%s", want, body)
	}
	if got := resp.Header().Get("X-Frame-Options"); got != "" {
		t.Fatalf("expected security headers skipped on /metrics, got %q", got)
	}
}

func TestMetricsDisabled(t *testing.T) {
	srv := newRouter(nil, fixedClock)

	resp := serve(t, srv, http.MethodGet, "/metrics", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when metrics disabled, got %d", resp.Code)
	}
	if resp := serve(t, srv, http.MethodGet, "/hello", nil); resp.Code != http.StatusOK {
		t.Fatalf("expected greetings to work without metrics, got %d", resp.Code)
	}
}

func TestOpenAPIDocument(t *testing.T) {
	resp := serve(t, testServer(), http.MethodGet, "/openapi.json", nil)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", resp.Code)
	}
	var doc struct {
		Info struct {
			Title   string `json:"title"`
			Version string `json:"version"`
		} `json:"info"`
		Paths map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &doc); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if doc.Info.Title != "Greeting Service" || doc.Info.Version != Version {
		t.Fatalf("unexpected info: %+v", doc.Info)
	}
	if _, ok := doc.Paths["/actuator/health"]; ok {
		t.Fatal("health endpoint should not be part of the OpenAPI surface")
	}
}

func TestServerConfiguration(t *testing.T) {
	srv := newServer(":8080", http.NotFoundHandler())

	if srv.ReadTimeout != 5*time.Second {
		t.Errorf("expected ReadTimeout 5s, got %v", srv.ReadTimeout)
	}
	if srv.ReadHeaderTimeout != 2*time.Second {
		t.Errorf("expected ReadHeaderTimeout 2s, got %v", srv.ReadHeaderTimeout)
	}
	if srv.WriteTimeout != 10*time.Second {
		t.Errorf("expected WriteTimeout 10s, got %v", srv.WriteTimeout)
	}
	if srv.IdleTimeout != 60*time.Second {
		t.Errorf("expected IdleTimeout 60s, got %v", srv.IdleTimeout)
	}
	if srv.MaxHeaderBytes != 64<<10 {
		t.Errorf("expected MaxHeaderBytes 64KB, got %d", srv.MaxHeaderBytes)
	}
}

func TestServerShutdown(t *testing.T) {
	srv := newServer("127.0.0.1:0", testServer())

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	listenErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			listenErr <- err
		}
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/actuator/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}

	select {
	case err := <-listenErr:
		t.Fatalf("unexpected listen error after shutdown: %v", err)
	default:
	}
}

func TestVersionVariable(t *testing.T) {
	if Version != "dev" {
		t.Errorf("expected default Version 'dev', got %q", Version)
	}
}
