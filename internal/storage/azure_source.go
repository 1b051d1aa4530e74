package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureSource fetches images from Azure blob storage. References use the
// form azure://container/path/to/blob.jpg.
type AzureSource struct {
	client *azblob.Client
}

// NewAzureSource creates a blob-backed image source
func NewAzureSource(accountName, accountKey string) (*AzureSource, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &AzureSource{client: client}, nil
}

func splitBlobRef(ref string) (container, blob string, err error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob reference %q: %w", ref, err)
	}
	container = parsed.Host
	blob = strings.TrimPrefix(parsed.Path, "/")
	if container == "" || blob == "" {
		return "", "", fmt.Errorf("blob reference %q must be azure://container/blob", ref)
	}
	return container, blob, nil
}

func (s *AzureSource) read(ctx context.Context, ref string) ([]byte, error) {
	container, blob, err := splitBlobRef(ref)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, fmt.Errorf("blob download failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// Fetch downloads and decodes the referenced blob
func (s *AzureSource) Fetch(ctx context.Context, ref string) (image.Image, error) {
	body, err := s.read(ctx, ref)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode blob %q: %w", ref, err)
	}
	return img, nil
}

// Metadata reads the referenced blob's image header
func (s *AzureSource) Metadata(ctx context.Context, ref string) (*Metadata, error) {
	body, err := s.read(ctx, ref)
	if err != nil {
		return nil, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("read blob header %q: %w", ref, err)
	}
	return &Metadata{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}
