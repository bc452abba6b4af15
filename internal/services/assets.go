package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/platform/storage"
)

// DefaultMaxLogoBytes caps logo payloads.
const DefaultMaxLogoBytes int64 = 2 << 20

var (
	// ErrAssetTooLarge indicates the logo exceeds the configured byte cap.
	ErrAssetTooLarge = errors.New("asset: too large")
	// ErrAssetSourceUnavailable indicates the reference scheme is not enabled.
	ErrAssetSourceUnavailable = errors.New("asset: source unavailable")
)

// AssetServiceDeps configures logo loading.
type AssetServiceDeps struct {
	// Objects enables gs:// references. Nil disables them.
	Objects  ObjectReader
	MaxBytes int64
	// BaseDir resolves relative file references.
	BaseDir  string
	CacheTTL time.Duration
	Clock    func() time.Time
	Logger   func(context.Context, string, map[string]any)
}

type assetService struct {
	objects  ObjectReader
	maxBytes int64
	baseDir  string
	logger   func(context.Context, string, map[string]any)
	cache    *logoCache
}

// NewAssetService constructs the logo loader.
func NewAssetService(deps AssetServiceDeps) AssetService {
	maxBytes := deps.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxLogoBytes
	}
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &assetService{
		objects:  deps.Objects,
		maxBytes: maxBytes,
		baseDir:  deps.BaseDir,
		logger:   logger,
		cache:    newLogoCache(ttl, func() time.Time { return now().UTC() }),
	}
}

// LoadLogo reads and decodes a logo. An empty ref returns (nil, nil). Any failure is a
// *domain.AssetDecodeError so callers can degrade to the placeholder.
func (s *assetService) LoadLogo(ctx context.Context, ref string) (*domain.LogoImage, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	key := cacheKey(ref)
	if logo, ok := s.cache.Get(key); ok {
		return logo, nil
	}

	data, err := s.read(ctx, ref)
	if err != nil {
		s.logger(ctx, "asset_load_failed", map[string]any{"scheme": refScheme(ref), "error": err.Error()})
		return nil, &domain.AssetDecodeError{Ref: redactRef(ref), Err: err}
	}
	logo, err := decodeLogo(ref, data)
	if err != nil {
		s.logger(ctx, "asset_decode_failed", map[string]any{"scheme": refScheme(ref)})
		return nil, &domain.AssetDecodeError{Ref: redactRef(ref), Err: err}
	}
	s.cache.Put(key, logo)
	return logo, nil
}

func (s *assetService) read(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		data, err := parseDataURI(ref, s.maxBytes)
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > s.maxBytes {
			return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrAssetTooLarge, len(data), s.maxBytes)
		}
		return data, nil
	case storage.IsObjectURI(ref):
		if s.objects == nil {
			return nil, fmt.Errorf("%w: gs:// references are disabled", ErrAssetSourceUnavailable)
		}
		bucket, object, err := storage.ParseObjectURI(ref)
		if err != nil {
			return nil, err
		}
		rc, err := s.objects.Open(ctx, bucket, object)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return s.readLimited(rc)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return nil, fmt.Errorf("%w: remote urls are not fetched", ErrAssetSourceUnavailable)
	default:
		path := strings.TrimPrefix(ref, "file://")
		if !filepath.IsAbs(path) && s.baseDir != "" {
			path = filepath.Join(s.baseDir, path)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return s.readLimited(f)
	}
}

func (s *assetService) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrAssetTooLarge, s.maxBytes)
	}
	return data, nil
}

func parseDataURI(ref string, maxBytes int64) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data uri")
	}
	if strings.HasSuffix(meta, ";base64") {
		size := base64.RawStdEncoding.DecodedLen(len(strings.TrimRight(payload, "=")))
		if int64(size) > maxBytes {
			return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrAssetTooLarge, size, maxBytes)
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("data uri: %w", err)
		}
		return data, nil
	}
	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data uri: %w", err)
	}
	return []byte(decoded), nil
}

// decodeLogo fully decodes the image so corrupt payloads are caught before export.
func decodeLogo(ref string, data []byte) (*domain.LogoImage, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, errors.New("image has no pixels")
	}
	return &domain.LogoImage{
		Ref:    redactRef(ref),
		Format: format,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Data:   data,
	}, nil
}

func refScheme(ref string) string {
	switch {
	case strings.HasPrefix(ref, "data:"):
		return "data"
	case storage.IsObjectURI(ref):
		return "gs"
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return "http"
	default:
		return "file"
	}
}

// redactRef keeps data: payloads out of errors and logs.
func redactRef(ref string) string {
	if strings.HasPrefix(ref, "data:") {
		meta, _, _ := strings.Cut(ref, ",")
		return meta + ",..."
	}
	return ref
}

func cacheKey(ref string) string {
	sum := sha256.Sum256([]byte(ref))
	return hex.EncodeToString(sum[:])
}

type logoCache struct {
	ttl time.Duration
	now func() time.Time
	mu  sync.RWMutex
	m   map[string]logoCacheEntry
}

type logoCacheEntry struct {
	logo    *domain.LogoImage
	expires time.Time
}

func newLogoCache(ttl time.Duration, now func() time.Time) *logoCache {
	return &logoCache{
		ttl: ttl,
		now: now,
		m:   make(map[string]logoCacheEntry),
	}
}

func (c *logoCache) Get(key string) (*domain.LogoImage, bool) {
	c.mu.RLock()
	entry, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expires) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.logo, true
}

func (c *logoCache) Put(key string, logo *domain.LogoImage) {
	c.mu.Lock()
	c.m[key] = logoCacheEntry{logo: logo, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}
