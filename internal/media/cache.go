// Package media fetches remote attachments into a local scratch cache
// and reclaims stale entries opportunistically.
package media

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/moepig/qqbridge/internal/logging"
)

const (
	// MaxBytes is the hard download size ceiling.
	MaxBytes = 10 * 1024 * 1024
	// MaxAge is how long a cached file may live before cleanup deletes it.
	MaxAge = time.Hour

	downloadTimeout = 30 * time.Second
)

// Cache downloads attachments into a scratch directory.
type Cache struct {
	dir    string
	client *http.Client
	log    *logging.Logger
	now    func() time.Time
}

// New creates a cache rooted at dir.
func New(dir string, log *logging.Logger) *Cache {
	return &Cache{
		dir:    dir,
		client: &http.Client{Timeout: downloadTimeout},
		log:    log.Sub("media"),
		now:    time.Now,
	}
}

// Dir returns the scratch directory path.
func (c *Cache) Dir() string { return c.dir }

// Download fetches url into the scratch directory and returns the local
// path. Non-success status and oversized bodies are failures; the caller
// falls back to URL-only prompt text.
func (c *Cache) Download(ctx context.Context, url string) (string, error) {
	c.log.Info().Str("url", truncate(url, 100)).Msg("downloading attachment")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("attachment fetch returned status %d", resp.StatusCode)
	}

	// Read one byte past the ceiling so oversized bodies are detectable.
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading attachment: %w", err)
	}
	if len(body) > MaxBytes {
		return "", fmt.Errorf("attachment exceeds %d byte limit", MaxBytes)
	}

	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}

	name := fmt.Sprintf("%d-%s%s", c.now().UnixMilli(), randomHex(4), sniffExt(body))
	path := filepath.Join(c.dir, name)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return "", fmt.Errorf("writing attachment: %w", err)
	}

	c.log.Info().
		Str("file", name).
		Int("bytes", len(body)).
		Msg("attachment saved")
	return path, nil
}

// CleanupOnce deletes cached files older than MaxAge. It is best-effort:
// listing, stat and delete errors are swallowed so cleanup can never fail
// a pipeline pass. Safe to invoke repeatedly.
func (c *Cache) CleanupOnce() {
	files, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}
	cutoff := c.now().Add(-MaxAge)
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		path := filepath.Join(c.dir, f.Name())
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(path)
		}
	}
}

// sniffExt infers the file extension from the first two payload bytes.
// PNG and GIF signatures are recognized; everything else is assumed JPEG.
func sniffExt(body []byte) string {
	if len(body) >= 2 {
		if body[0] == 0x89 && body[1] == 0x50 {
			return ".png"
		}
		if body[0] == 0x47 && body[1] == 0x49 {
			return ".gif"
		}
	}
	return ".jpg"
}

func randomHex(n int) string {
	buf := make([]byte, n)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
