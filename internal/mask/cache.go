package mask

import (
	"context"
	"fmt"
	"image"
	"time"

	"go-structural-validator/internal/logger"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Side distinguishes the two images of one validation pair
type Side string

const (
	SideBaseline  Side = "baseline"
	SideCandidate Side = "candidate"
)

// Key identifies a cached mask. Keys derive from job identity rather than
// file path alone: across retries the same path can hold different content,
// and a path-only key would collide.
type Key struct {
	JobID string
	Side  Side
}

func (k Key) String() string {
	return k.JobID + ":" + string(k.Side)
}

type entry struct {
	mask      *StructuralMask
	imagePath string
}

// Cache is a TTL-bounded structural mask cache. Safe for concurrent use;
// entries are evicted on expiry and on dimension mismatch.
type Cache struct {
	store     *gocache.Cache
	extractor Extractor
}

// NewCache creates a mask cache backed by the given extractor
func NewCache(extractor Extractor, ttl, sweep time.Duration) *Cache {
	return &Cache{
		store:     gocache.New(ttl, sweep),
		extractor: extractor,
	}
}

// LoadOrCompute returns the cached mask for key, recomputing when the entry
// is missing, refers to a different image path, or no longer matches the
// image dimensions.
func (c *Cache) LoadOrCompute(ctx context.Context, key Key, imagePath string, img image.Image) (*StructuralMask, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if raw, found := c.store.Get(key.String()); found {
		cached := raw.(entry)
		if cached.imagePath == imagePath && cached.mask.Width == width && cached.mask.Height == height {
			return cached.mask, nil
		}
		// Stale entry: same key, different content
		logger.WithFields(logrus.Fields{
			"key":         key.String(),
			"cached_path": cached.imagePath,
			"image_path":  imagePath,
		}).Debug("Evicting stale structural mask cache entry")
		c.store.Delete(key.String())
	}

	m, err := c.extractor.Extract(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("structural mask extraction: %w", err)
	}
	if m.Width != width || m.Height != height {
		return nil, fmt.Errorf("structural mask dimensions %dx%d do not match image %dx%d",
			m.Width, m.Height, width, height)
	}

	c.store.SetDefault(key.String(), entry{mask: m, imagePath: imagePath})
	return m, nil
}

// Flush drops all cached masks
func (c *Cache) Flush() {
	c.store.Flush()
}
