// Package icons fetches remote icon images and caches them locally, keyed
// by a hash of the source URL. Failures degrade to hot-linking the original.
package icons

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidURL indicates the requested icon URL is not absolute.
var ErrInvalidURL = errors.New("invalid icon url")

// FetchTimeout bounds each outbound icon fetch.
const FetchTimeout = 10 * time.Second

// knownExtensions are the cache file extensions probed on lookup.
var knownExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".webp", ".img"}

// Result describes the outcome of a proxy request. Exactly one of LocalURL
// or FallbackURL is set: LocalURL when the icon is served from cache,
// FallbackURL when the caller should hot-link the original.
type Result struct {
	Cached      bool   `json:"cached"`
	LocalURL    string `json:"local_url,omitempty"`
	FallbackURL string `json:"fallback_url,omitempty"`
}

// Info reports cache occupancy.
type Info struct {
	Count     int   `json:"count"`
	TotalSize int64 `json:"total_size"`
}

// Cache stores fetched icons under dir and serves them at publicPrefix.
type Cache struct {
	dir          string
	publicPrefix string
	client       *http.Client
}

// New creates an icon cache. publicPrefix is the URL path the cache
// directory is served from, e.g. "/icons/cache".
func New(dir, publicPrefix string) *Cache {
	return &Cache{
		dir:          dir,
		publicPrefix: strings.TrimSuffix(publicPrefix, "/"),
		client:       &http.Client{Timeout: FetchTimeout},
	}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Proxy resolves an icon URL to a locally cached copy, fetching it on the
// first request. Network failures, timeouts, and non-2xx responses are not
// errors: the caller gets the original URL back as a fallback.
func (c *Cache) Proxy(rawURL string) (*Result, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return nil, ErrInvalidURL
	}

	key := cacheKey(rawURL)
	if name, ok := c.lookup(key); ok {
		return &Result{Cached: true, LocalURL: c.publicPrefix + "/" + name}, nil
	}

	resp, err := c.client.Get(rawURL)
	if err != nil {
		return &Result{Cached: false, FallbackURL: rawURL}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Result{Cached: false, FallbackURL: rawURL}, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil || len(data) == 0 {
		return &Result{Cached: false, FallbackURL: rawURL}, nil
	}

	name := key + extensionFor(resp.Header.Get("Content-Type"), parsed.Path)
	if err := os.MkdirAll(c.dir, 0750); err != nil {
		return &Result{Cached: false, FallbackURL: rawURL}, nil
	}
	if err := os.WriteFile(filepath.Join(c.dir, name), data, 0640); err != nil {
		return &Result{Cached: false, FallbackURL: rawURL}, nil
	}

	return &Result{Cached: false, LocalURL: c.publicPrefix + "/" + name}, nil
}

// CacheInfo returns the count and total byte size of cached entries.
func (c *Cache) CacheInfo() (*Info, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &Info{}, nil
		}
		return nil, err
	}

	info := &Info{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		info.Count++
		info.TotalSize += fi.Size()
	}
	return info, nil
}

// ClearCache deletes all cached entries, attempting each independently.
// Returns how many were deleted; individual failures are logged, not raised.
func (c *Cache) ClearCache() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			log.Printf("failed to delete cached icon %s: %v", entry.Name(), err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// lookup probes the cache for key under any known extension.
func (c *Cache) lookup(key string) (string, bool) {
	for _, ext := range knownExtensions {
		name := key + ext
		if _, err := os.Stat(filepath.Join(c.dir, name)); err == nil {
			return name, true
		}
	}
	return "", false
}

func cacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:32]
}

// extensionFor picks a file extension from the response content type,
// falling back to the URL path's extension, then a generic one.
func extensionFor(contentType, urlPath string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "image/png":
			return ".png"
		case "image/jpeg":
			return ".jpg"
		case "image/gif":
			return ".gif"
		case "image/svg+xml":
			return ".svg"
		case "image/x-icon", "image/vnd.microsoft.icon":
			return ".ico"
		case "image/webp":
			return ".webp"
		}
	}

	ext := strings.ToLower(path.Ext(urlPath))
	for _, known := range knownExtensions {
		if ext == known {
			return ext
		}
	}
	return ".img"
}
