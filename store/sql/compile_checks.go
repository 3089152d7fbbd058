package sqlstore

import "github.com/goliatone/go-syncauth/core"

var (
	_ core.MetadataStore          = (*SQLMetadataStore)(nil)
	_ core.MetadataReader         = (*SQLMetadataStore)(nil)
	_ core.MetadataReaper         = (*SQLMetadataStore)(nil)
	_ MetadataPersistence         = (*SQLMetadataStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
