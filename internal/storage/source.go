package storage

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"
)

// Metadata describes an image without requiring a full decode
type Metadata struct {
	Width  int
	Height int
	Format string
}

// ImageSource retrieves images and their metadata by reference. A reference
// is an http(s) URL, an azure:// blob URL, or a local file path.
type ImageSource interface {
	Fetch(ctx context.Context, ref string) (image.Image, error)
	Metadata(ctx context.Context, ref string) (*Metadata, error)
}

// Router dispatches image references to the backend matching their scheme
type Router struct {
	http  ImageSource
	azure ImageSource
	file  ImageSource
}

// NewRouter builds a router over the given backends. Azure may be nil when
// no storage account is configured; azure:// references then fail cleanly.
func NewRouter(httpSource, azureSource, fileSource ImageSource) *Router {
	return &Router{http: httpSource, azure: azureSource, file: fileSource}
}

func (r *Router) pick(ref string) (ImageSource, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return r.file, nil
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return r.http, nil
	case "azure":
		if r.azure == nil {
			return nil, fmt.Errorf("azure storage not configured for reference %q", ref)
		}
		return r.azure, nil
	default:
		return r.file, nil
	}
}

// Fetch retrieves and decodes the referenced image
func (r *Router) Fetch(ctx context.Context, ref string) (image.Image, error) {
	source, err := r.pick(ref)
	if err != nil {
		return nil, err
	}
	return source.Fetch(ctx, ref)
}

// Metadata reads the referenced image's dimensions and format
func (r *Router) Metadata(ctx context.Context, ref string) (*Metadata, error) {
	source, err := r.pick(ref)
	if err != nil {
		return nil, err
	}
	return source.Metadata(ctx, ref)
}
