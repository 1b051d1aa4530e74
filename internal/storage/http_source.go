package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"
)

// HTTPSource fetches images over HTTP with a transport tuned for single
// image downloads.
type HTTPSource struct {
	client *http.Client
}

// NewHTTPSource creates an HTTP image source
func NewHTTPSource(timeout time.Duration) *HTTPSource {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPSource{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

// Fetch downloads and decodes the image at ref
func (s *HTTPSource) Fetch(ctx context.Context, ref string) (image.Image, error) {
	body, err := s.download(ctx, ref)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode image %q: %w", ref, err)
	}
	return img, nil
}

// Metadata downloads the image and reads its header. A ranged request would
// be lighter but not every image host honors Range, and validation fetches
// the full body immediately afterwards anyway.
func (s *HTTPSource) Metadata(ctx context.Context, ref string) (*Metadata, error) {
	body, err := s.download(ctx, ref)
	if err != nil {
		return nil, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("read image header %q: %w", ref, err)
	}
	return &Metadata{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// download retrieves the raw bytes with up to 3 attempts. 4xx responses are
// not retried; 5xx and transport errors are.
func (s *HTTPSource) download(ctx context.Context, ref string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid URL %q: %w", ref, err)
		}
		req.Header.Set("Accept", "image/jpeg, image/png, image/webp, */*")
		req.Header.Set("User-Agent", "Structural-Validator/2.0")

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK && readErr == nil:
			return body, nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return nil, fmt.Errorf("client error fetching %q: status %d", ref, resp.StatusCode)
		case readErr != nil:
			lastErr = readErr
		default:
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
		}
	}

	return nil, fmt.Errorf("failed to fetch image after 3 attempts: %w", lastErr)
}
