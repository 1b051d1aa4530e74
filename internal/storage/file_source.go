package storage

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// FileSource reads images from the local filesystem
type FileSource struct{}

// NewFileSource creates a filesystem image source
func NewFileSource() *FileSource {
	return &FileSource{}
}

// Fetch decodes the image at path
func (s *FileSource) Fetch(ctx context.Context, ref string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("open image %q: %w", ref, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %q: %w", ref, err)
	}
	return img, nil
}

// Metadata reads dimensions and format without decoding pixel data
func (s *FileSource) Metadata(ctx context.Context, ref string) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("open image %q: %w", ref, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("read image header %q: %w", ref, err)
	}
	return &Metadata{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}
