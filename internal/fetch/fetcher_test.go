package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bl4ck0w1/stacklynx/pkg/models"
)

func testConfig() models.FetchConfig {
	return models.FetchConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "stacklynx-test",
		MaxRedirects: 3,
		MaxBodySize:  1 << 20,
		RatePerSec:   1000,
	}
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "stacklynx-test" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Header().Set("Server", "nginx/1.24.0")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Write([]byte("<html><body>wp-content</body></html>"))
	}))
	defer server.Close()

	result, err := NewFetcher(testConfig(), nil).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	if result.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", result.StatusCode)
	}
	if !strings.Contains(result.Body, "wp-content") {
		t.Errorf("body missing marker: %q", result.Body)
	}
	if !strings.HasPrefix(result.RawHeaders, "HTTP/1.1 200 OK\r\n") {
		t.Errorf("RawHeaders does not start with a status line: %q", result.RawHeaders)
	}
	if !strings.Contains(result.RawHeaders, "Server: nginx/1.24.0\r\n") {
		t.Errorf("RawHeaders missing Server header: %q", result.RawHeaders)
	}
	if !strings.Contains(result.RawHeaders, "X-Frame-Options: DENY\r\n") {
		t.Errorf("RawHeaders missing X-Frame-Options: %q", result.RawHeaders)
	}
	if result.TLS {
		t.Error("plain http server reported TLS")
	}
}

func TestFetchTruncatesLargeBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 4096)))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MaxBodySize = 100

	result, err := NewFetcher(cfg, nil).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(result.Body) > 100 {
		t.Errorf("body length = %d, want <= 100", len(result.Body))
	}
}

func TestFetchInvalidURL(t *testing.T) {
	f := NewFetcher(testConfig(), nil)
	if _, err := f.Fetch(context.Background(), "not a url"); err == nil {
		t.Error("expected error for invalid url")
	}
	if _, err := f.Fetch(context.Background(), "https://"); err == nil {
		t.Error("expected error for url without host")
	}
}

func TestFetchStopsAfterMaxRedirects(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	if _, err := NewFetcher(testConfig(), nil).Fetch(context.Background(), server.URL); err == nil {
		t.Error("expected redirect-limit error")
	}
}

func TestProbeExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.WriteHeader(http.StatusOK)
		case "/get-only":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	f := NewFetcher(testConfig(), nil)
	ctx := context.Background()

	if !f.ProbeExists(ctx, server.URL+"/robots.txt") {
		t.Error("existing file probed as absent")
	}
	if f.ProbeExists(ctx, server.URL+"/missing.txt") {
		t.Error("404 probed as present")
	}
	if !f.ProbeExists(ctx, server.URL+"/get-only") {
		t.Error("HEAD-rejecting endpoint should fall back to GET")
	}
}

func TestWellKnownProbes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" || r.URL.Path == "/favicon.ico" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	names := []string{"robots.txt", "favicon.ico", "humans.txt"}
	probes := NewFetcher(testConfig(), nil).WellKnownProbes(context.Background(), server.URL+"/some/page", names)

	want := map[string]bool{"robots.txt": true, "favicon.ico": true, "humans.txt": false}
	for name, exists := range want {
		if probes[name] != exists {
			t.Errorf("probe %s = %v, want %v", name, probes[name], exists)
		}
	}
}

func TestWellKnownProbesBadPageURL(t *testing.T) {
	probes := NewFetcher(testConfig(), nil).WellKnownProbes(context.Background(), "://bad", []string{"robots.txt"})
	if probes["robots.txt"] {
		t.Error("unparseable page URL must yield all-false probes")
	}
}
