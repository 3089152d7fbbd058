package syncauth

import (
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-syncauth/core"
	"github.com/goliatone/go-syncauth/security"
	sqlstore "github.com/goliatone/go-syncauth/store/sql"
)

// Convenience constructors for the pluggable pieces a host composes around
// the user controller, so simple deployments need only the root import.

func SQLRepositoryFactory(opts ...sqlstore.FactoryOption) core.RepositoryStoreFactory {
	return sqlstore.NewRepositoryFactory(opts...)
}

func SQLRepositoryFactoryFromPersistence(client *persistence.Client, opts ...sqlstore.FactoryOption) (core.RepositoryStoreFactory, error) {
	return sqlstore.NewRepositoryFactoryFromPersistence(client, opts...)
}

func AppKeySecretProvider(keyMaterial []byte, opts ...security.Option) (core.SecretProvider, error) {
	return security.NewAppKeySecretProvider(keyMaterial, opts...)
}

func AppKeySecretProviderFromString(key string, opts ...security.Option) (core.SecretProvider, error) {
	return security.NewAppKeySecretProviderFromString(key, opts...)
}

func InlineMetadataUpdater(store MetadataStore, logger Logger) MetadataUpdater {
	return core.NewInlineMetadataUpdater(store, logger)
}

func QueuedMetadataUpdater(store MetadataStore, logger Logger, opts ...core.QueuedMetadataUpdaterOption) *core.QueuedMetadataUpdater {
	return core.NewQueuedMetadataUpdater(store, logger, opts...)
}

func JobQueueMetadataUpdater(enqueuer core.JobEnqueuer, logger Logger) *core.JobQueueMetadataUpdater {
	return core.NewJobQueueMetadataUpdater(enqueuer, logger)
}

func MetadataJobRunner(
	dequeuer core.JobDequeuer,
	store MetadataStore,
	logger Logger,
	config core.MetadataJobRunnerConfig,
) (*core.MetadataJobRunner, error) {
	return core.NewMetadataJobRunner(dequeuer, store, logger, config)
}
