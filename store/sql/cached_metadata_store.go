package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-syncauth/core"
)

const userMetadataCacheKeyPrefix = "go-syncauth::user_metadata::v1"

// MetadataPersistence is the full persisted-record surface the factory
// hands out: the bridge-facing writes plus the manager-facing reads and
// maintenance.
type MetadataPersistence interface {
	core.MetadataStore
	core.MetadataReader
	core.MetadataReaper
}

// CachedMetadataStore memoizes identity lookups through a cache service and
// invalidates on every write. Reaping invalidates every key the decorator
// has populated, since the reaped identities are not reported back.
type CachedMetadataStore struct {
	base  MetadataPersistence
	cache repositorycache.CacheService

	mu        sync.Mutex
	populated map[string]string
}

type metadataCacheEntry struct {
	Metadata core.UserMetadata
	Found    bool
}

func NewCachedMetadataStore(
	base MetadataPersistence,
	cacheService repositorycache.CacheService,
) (*CachedMetadataStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base metadata store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: metadata cache service is required")
	}
	return &CachedMetadataStore{
		base:      base,
		cache:     cacheService,
		populated: map[string]string{},
	}, nil
}

// UserMetadataCacheKey returns the deterministic cache key contract for
// identity lookups: go-syncauth::user_metadata::v1::<identity> with the
// identity segment URL-path escaped after trimming.
func UserMetadataCacheKey(identity string) (string, error) {
	trimmed := strings.TrimSpace(identity)
	if trimmed == "" {
		return "", fmt.Errorf("sqlstore: identity is required")
	}
	return userMetadataCacheKeyPrefix + "::" + url.PathEscape(trimmed), nil
}

func (s *CachedMetadataStore) SetState(ctx context.Context, identity string, serverURL string, token string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached metadata store is not configured")
	}
	if err := s.base.SetState(ctx, identity, serverURL, token); err != nil {
		return err
	}
	return s.invalidate(ctx, identity)
}

func (s *CachedMetadataStore) MarkForRemoval(ctx context.Context, identity string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached metadata store is not configured")
	}
	if err := s.base.MarkForRemoval(ctx, identity); err != nil {
		return err
	}
	return s.invalidate(ctx, identity)
}

func (s *CachedMetadataStore) Get(ctx context.Context, identity string) (core.UserMetadata, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.UserMetadata{}, false, fmt.Errorf("sqlstore: cached metadata store is not configured")
	}
	cacheKey, err := UserMetadataCacheKey(identity)
	if err != nil {
		return core.UserMetadata{}, false, err
	}

	entry, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (metadataCacheEntry, error) {
		meta, found, fetchErr := s.base.Get(ctx, identity)
		if fetchErr != nil {
			return metadataCacheEntry{}, fetchErr
		}
		return metadataCacheEntry{Metadata: meta, Found: found}, nil
	})
	if err != nil {
		return core.UserMetadata{}, false, err
	}

	s.mu.Lock()
	s.populated[strings.TrimSpace(identity)] = cacheKey
	s.mu.Unlock()

	return entry.Metadata, entry.Found, nil
}

// ListActive always reads through: startup restoration must see the
// authoritative record set.
func (s *CachedMetadataStore) ListActive(ctx context.Context) ([]core.UserMetadata, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached metadata store is not configured")
	}
	return s.base.ListActive(ctx)
}

func (s *CachedMetadataStore) ReapMarked(ctx context.Context) (int, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return 0, fmt.Errorf("sqlstore: cached metadata store is not configured")
	}
	reaped, err := s.base.ReapMarked(ctx)
	if err != nil {
		return reaped, err
	}

	s.mu.Lock()
	keys := make([]string, 0, len(s.populated))
	for _, key := range s.populated {
		keys = append(keys, key)
	}
	s.populated = map[string]string{}
	s.mu.Unlock()

	for _, key := range keys {
		if deleteErr := s.cache.Delete(ctx, key); deleteErr != nil {
			return reaped, deleteErr
		}
	}
	return reaped, nil
}

func (s *CachedMetadataStore) invalidate(ctx context.Context, identity string) error {
	cacheKey, err := UserMetadataCacheKey(identity)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.populated, strings.TrimSpace(identity))
	s.mu.Unlock()
	return s.cache.Delete(ctx, cacheKey)
}

var _ MetadataPersistence = (*CachedMetadataStore)(nil)
