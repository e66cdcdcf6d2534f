package media

import (
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Saved is the handle returned for a persisted image. Callers reference the
// image by URL only after this point.
type Saved struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Store persists generated and fetched images on disk. Every write goes to a
// fresh uuid filename, so concurrent writers never collide.
type Store struct {
	Dir     string
	BaseURL string // public prefix, e.g. http://localhost:8080/media
	Logger  *log.Logger
}

func NewStore(dir, baseURL string) (*Store, error) {
	if dir == "" {
		dir = "media"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Store{
		Dir:     dir,
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Logger:  log.New(os.Stdout, "[media] ", log.LstdFlags),
	}, nil
}

// httpGet is a package-level var so tests can mock remote fetches.
var httpGet = defaultHTTPGet

func defaultHTTPGet(url string) (*http.Response, error) {
	client := &http.Client{}
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")
	return client.Do(req)
}

// SaveGeneratedImage decodes base64 image data from a provider and writes it
// to the media directory.
func (s *Store) SaveGeneratedImage(provider string, base64Data string) (*Saved, error) {
	if base64Data == "" {
		return nil, fmt.Errorf("empty image data")
	}
	// Tolerate data URLs from providers that prefix the payload.
	if idx := strings.Index(base64Data, ";base64,"); idx != -1 {
		base64Data = base64Data[idx+len(";base64,"):]
	}

	raw, err := base64.StdEncoding.DecodeString(base64Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image data: %w", err)
	}

	extension := extensionForContentType(http.DetectContentType(raw))
	filename := fmt.Sprintf("%s_%s.%s", provider, uuid.NewString(), extension)
	if err := s.write(filename, raw); err != nil {
		return nil, err
	}

	return &Saved{Filename: filename, URL: s.publicURL(filename)}, nil
}

// SaveRemoteImage downloads url and caches it locally. Returns nil (never an
// error) on non-image content type, oversize payload, or fetch failure, so
// enrichment can always fall through to the placeholder.
func (s *Store) SaveRemoteImage(url string, maxBytes int64) *Saved {
	if url == "" {
		return nil
	}
	if maxBytes <= 0 {
		maxBytes = 5 * 1024 * 1024
	}

	resp, err := httpGet(url)
	if err != nil {
		s.Logger.Printf("Failed to fetch remote image %s: %v", url, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.Logger.Printf("Remote image %s returned status %d", url, resp.StatusCode)
		return nil
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		s.Logger.Printf("Remote image %s has non-image content type %q", url, contentType)
		return nil
	}

	// Read one byte past the ceiling to detect oversize bodies.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		s.Logger.Printf("Failed to read remote image %s: %v", url, err)
		return nil
	}
	if int64(len(raw)) > maxBytes {
		s.Logger.Printf("Remote image %s exceeds %d byte limit", url, maxBytes)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}

	extension := extensionForContentType(contentType)
	filename := fmt.Sprintf("cached_%s.%s", uuid.NewString(), extension)
	if err := s.write(filename, raw); err != nil {
		s.Logger.Printf("Failed to cache remote image %s: %v", url, err)
		return nil
	}

	return &Saved{Filename: filename, URL: s.publicURL(filename)}
}

func (s *Store) write(filename string, data []byte) error {
	path := filepath.Join(s.Dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

func (s *Store) publicURL(filename string) string {
	if s.BaseURL == "" {
		return "/media/" + filename
	}
	return s.BaseURL + "/" + filename
}

func extensionForContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return "jpg"
	case strings.Contains(contentType, "webp"):
		return "webp"
	case strings.Contains(contentType, "gif"):
		return "gif"
	default:
		return "png"
	}
}
