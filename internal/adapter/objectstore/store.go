// Package objectstore reads reference objects named by URI. Supported forms
// are bare filesystem paths, file:// URIs and http(s):// URLs.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Store opens objects by URI.
type Store struct {
	httpClient *http.Client
}

// New creates a Store whose remote reads use the given timeout.
func New(timeout time.Duration) *Store {
	return &Store{httpClient: &http.Client{Timeout: timeout}}
}

// Open returns a reader for the object. The caller must close it.
func (s *Store) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	u, err := parse(uri)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "", "file":
		f, err := os.Open(localPath(u))
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", uri, err)
		}
		return f, nil
	case "http", "https":
		return s.get(ctx, uri)
	default:
		return nil, fmt.Errorf("unsupported object uri scheme %q", u.Scheme)
	}
}

// ReadAll returns the full object.
func (s *Store) ReadAll(ctx context.Context, uri string) ([]byte, error) {
	rc, err := s.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	return data, nil
}

// LocalFile returns a filesystem path holding the object. Remote objects are
// downloaded to a temporary file, and cleanup removes it; for local objects
// cleanup does nothing.
func (s *Store) LocalFile(ctx context.Context, uri string) (string, func(), error) {
	u, err := parse(uri)
	if err != nil {
		return "", nil, err
	}
	if u.Scheme == "" || u.Scheme == "file" {
		p := localPath(u)
		if _, err := os.Stat(p); err != nil {
			return "", nil, fmt.Errorf("stat %s: %w", uri, err)
		}
		return p, func() {}, nil
	}

	rc, err := s.Open(ctx, uri)
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()

	f, err := os.CreateTemp("", "object-*"+path.Ext(u.Path))
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("download %s: %w", uri, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("download %s: %w", uri, err)
	}
	return f.Name(), cleanup, nil
}

// Ext returns the lower-cased extension of the object's path.
func Ext(uri string) string {
	u, err := parse(uri)
	if err != nil {
		return strings.ToLower(filepath.Ext(uri))
	}
	return strings.ToLower(path.Ext(u.Path))
}

func (s *Store) get(ctx context.Context, uri string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", uri, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("get %s: status %d: %s", uri, resp.StatusCode, body)
	}
	return resp.Body, nil
}

func parse(uri string) (*url.URL, error) {
	if uri == "" {
		return nil, fmt.Errorf("empty object uri")
	}
	// Windows drive letters and plain relative paths are not URLs.
	if !strings.Contains(uri, "://") {
		return &url.URL{Path: uri}, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse object uri %q: %w", uri, err)
	}
	return u, nil
}

func localPath(u *url.URL) string {
	if u.Scheme == "file" && u.Host != "" && u.Host != "localhost" {
		// file://relative/path
		return filepath.FromSlash(u.Host + u.Path)
	}
	return filepath.FromSlash(u.Path)
}
