package icons_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/awidyan/homeboard/internal/icons"
)

func newTestCache(t *testing.T) *icons.Cache {
	t.Helper()
	return icons.New(t.TempDir(), "/icons/cache")
}

func pngServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG fake image bytes"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProxy_FetchesAndCaches(t *testing.T) {
	cache := newTestCache(t)
	srv := pngServer(t)

	result, err := cache.Proxy(srv.URL + "/icon.png")
	if err != nil {
		t.Fatalf("proxy failed: %v", err)
	}
	if result.Cached {
		t.Error("first fetch should not report cached")
	}
	if !strings.HasPrefix(result.LocalURL, "/icons/cache/") {
		t.Errorf("expected local URL under the cache prefix, got %q", result.LocalURL)
	}
	if !strings.HasSuffix(result.LocalURL, ".png") {
		t.Errorf("expected .png extension from content type, got %q", result.LocalURL)
	}

	second, err := cache.Proxy(srv.URL + "/icon.png")
	if err != nil {
		t.Fatalf("second proxy failed: %v", err)
	}
	if !second.Cached {
		t.Error("second fetch should be served from cache")
	}
	if second.LocalURL != result.LocalURL {
		t.Errorf("cache hit returned a different URL: %q vs %q", second.LocalURL, result.LocalURL)
	}
}

func TestProxy_InvalidURL(t *testing.T) {
	cache := newTestCache(t)

	for _, raw := range []string{"", "not a url", "/relative/path", "grafana.local/icon.png"} {
		if _, err := cache.Proxy(raw); !errors.Is(err, icons.ErrInvalidURL) {
			t.Errorf("Proxy(%q): expected ErrInvalidURL, got %v", raw, err)
		}
	}
}

func TestProxy_UnreachableFallsBack(t *testing.T) {
	cache := newTestCache(t)

	// A server that is already closed: connection refused, immediately.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL + "/icon.png"
	srv.Close()

	start := time.Now()
	result, err := cache.Proxy(url)
	if err != nil {
		t.Fatalf("proxy must not fail on unreachable remotes: %v", err)
	}
	if elapsed := time.Since(start); elapsed > icons.FetchTimeout+time.Second {
		t.Errorf("proxy took %v, beyond the timeout bound", elapsed)
	}
	if result.Cached {
		t.Error("unreachable remote must not report cached")
	}
	if result.FallbackURL != url {
		t.Errorf("expected fallback to original URL %q, got %q", url, result.FallbackURL)
	}
}

func TestProxy_ErrorStatusFallsBack(t *testing.T) {
	cache := newTestCache(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	result, err := cache.Proxy(srv.URL + "/missing.png")
	if err != nil {
		t.Fatalf("proxy must not fail on HTTP errors: %v", err)
	}
	if result.Cached || result.FallbackURL == "" {
		t.Errorf("expected fallback result, got %+v", result)
	}
}

func TestCacheInfoAndClear(t *testing.T) {
	cache := newTestCache(t)
	srv := pngServer(t)

	if _, err := cache.Proxy(srv.URL + "/a.png"); err != nil {
		t.Fatalf("proxy a failed: %v", err)
	}
	if _, err := cache.Proxy(srv.URL + "/b.png"); err != nil {
		t.Fatalf("proxy b failed: %v", err)
	}

	info, err := cache.CacheInfo()
	if err != nil {
		t.Fatalf("cache info failed: %v", err)
	}
	if info.Count != 2 {
		t.Errorf("expected 2 cached entries, got %d", info.Count)
	}
	if info.TotalSize == 0 {
		t.Error("expected non-zero total size")
	}

	deleted, err := cache.ClearCache()
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deletions, got %d", deleted)
	}

	info, err = cache.CacheInfo()
	if err != nil {
		t.Fatalf("cache info failed: %v", err)
	}
	if info.Count != 0 {
		t.Errorf("expected empty cache after clear, got %d entries", info.Count)
	}
}

func TestCacheInfo_EmptyDirMissing(t *testing.T) {
	cache := icons.New("/nonexistent/icon-cache-dir", "/icons/cache")

	info, err := cache.CacheInfo()
	if err != nil {
		t.Fatalf("cache info on missing dir failed: %v", err)
	}
	if info.Count != 0 || info.TotalSize != 0 {
		t.Errorf("expected zero info, got %+v", info)
	}

	if _, err := cache.ClearCache(); err != nil {
		t.Fatalf("clear on missing dir failed: %v", err)
	}
}
