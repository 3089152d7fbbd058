package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-syncauth/core"
	"github.com/uptrace/bun"
)

// RepositoryFactory resolves a bun DB from whatever persistence handle the
// caller owns and builds the metadata store stack on top of it. With a cache
// service configured, reads go through the cached decorator; with a secret
// provider configured, tokens are sealed at rest.
type RepositoryFactory struct {
	db      *bun.DB
	secrets core.SecretProvider
	cache   repositorycache.CacheService

	metadataStore *SQLMetadataStore
	cachedStore   *CachedMetadataStore
}

type FactoryOption func(*RepositoryFactory)

func WithFactorySecretProvider(secrets core.SecretProvider) FactoryOption {
	return func(f *RepositoryFactory) {
		f.secrets = secrets
	}
}

func WithFactoryCacheService(cacheService repositorycache.CacheService) FactoryOption {
	return func(f *RepositoryFactory) {
		f.cache = cacheService
	}
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(factory)
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.metadataStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

// MetadataStore returns the bridge-facing store, cached when a cache
// service was configured.
func (f *RepositoryFactory) MetadataStore() core.MetadataStore {
	if f == nil {
		return nil
	}
	if f.cachedStore != nil {
		return f.cachedStore
	}
	if f.metadataStore == nil {
		return nil
	}
	return f.metadataStore
}

func (f *RepositoryFactory) MetadataReader() core.MetadataReader {
	if f == nil {
		return nil
	}
	if f.cachedStore != nil {
		return f.cachedStore
	}
	if f.metadataStore == nil {
		return nil
	}
	return f.metadataStore
}

func (f *RepositoryFactory) MetadataReaper() core.MetadataReaper {
	if f == nil {
		return nil
	}
	if f.cachedStore != nil {
		return f.cachedStore
	}
	if f.metadataStore == nil {
		return nil
	}
	return f.metadataStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	storeOpts := []MetadataStoreOption{}
	if f.secrets != nil {
		storeOpts = append(storeOpts, WithSecretProvider(f.secrets))
	}
	metadataStore, err := NewSQLMetadataStore(f.db, storeOpts...)
	if err != nil {
		return err
	}
	f.metadataStore = metadataStore

	if f.cache != nil {
		cachedStore, err := NewCachedMetadataStore(metadataStore, f.cache)
		if err != nil {
			return err
		}
		f.cachedStore = cachedStore
	}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
