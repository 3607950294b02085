// Package prompts supplies the numbered prompt clips placed before each item
// of a quiz track.
package prompts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultPattern names the nth prompt clip.
const DefaultPattern = "question-%d.mp3"

const maxPromptBytes = 32 << 20

var (
	ErrNotFound = errors.New("prompt clip not found")
	ErrTooLarge = errors.New("prompt clip too large")
)

// Clip is one fetched prompt.
type Clip struct {
	N    int
	Name string
	Data []byte
}

// Source fetches prompt n, counting from 1.
type Source interface {
	Fetch(ctx context.Context, n int) (*Clip, error)
}

func checkN(n int) error {
	if n < 1 {
		return fmt.Errorf("prompt number %d: must be at least 1", n)
	}
	return nil
}

// DirSource reads prompt clips from a local directory.
type DirSource struct {
	Dir     string
	Pattern string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir, Pattern: DefaultPattern}
}

func (s *DirSource) Fetch(ctx context.Context, n int) (*Clip, error) {
	if err := checkN(n); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := fmt.Sprintf(pattern(s.Pattern), n)
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading prompt %s: %w", name, err)
	}
	return &Clip{N: n, Name: name, Data: data}, nil
}

// HTTPSource downloads prompt clips from BaseURL.
type HTTPSource struct {
	BaseURL  string
	Pattern  string
	Client   *http.Client
	MaxBytes int64 // 0 means 32 MiB
}

func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Pattern: DefaultPattern,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPSource) URL(n int) string {
	return s.BaseURL + "/" + url.PathEscape(fmt.Sprintf(pattern(s.Pattern), n))
}

func (s *HTTPSource) Fetch(ctx context.Context, n int) (*Clip, error) {
	if err := checkN(n); err != nil {
		return nil, err
	}
	u := s.URL(n)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", u, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetching %s: unexpected status %s", u, resp.Status)
	}

	limit := s.MaxBytes
	if limit <= 0 {
		limit = maxPromptBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", u, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s: %w (over %d bytes)", u, ErrTooLarge, limit)
	}
	return &Clip{N: n, Name: fmt.Sprintf(pattern(s.Pattern), n), Data: data}, nil
}

// Open picks a source for location: an http(s) URL or a directory.
func Open(location string) (Source, error) {
	if location == "" {
		return nil, errors.New("no prompt location configured")
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location), nil
	}
	info, err := os.Stat(location)
	if err != nil {
		return nil, fmt.Errorf("prompt directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("prompt location %s is not a directory", location)
	}
	return NewDirSource(location), nil
}

func pattern(p string) string {
	if p == "" {
		return DefaultPattern
	}
	return p
}
