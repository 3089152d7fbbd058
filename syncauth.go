package syncauth

import "github.com/goliatone/go-syncauth/core"

type Config = core.Config

type Option = core.Option

type User = core.User

type UserDependencies = core.UserDependencies

type UserState = core.UserState
type UserMetadata = core.UserMetadata
type MetadataUpdate = core.MetadataUpdate
type MetadataStore = core.MetadataStore
type MetadataReader = core.MetadataReader
type MetadataReaper = core.MetadataReaper
type MetadataUpdater = core.MetadataUpdater
type SecretProvider = core.SecretProvider
type MetricsRecorder = core.MetricsRecorder
type Logger = core.Logger

type Session = core.Session

type SessionRef = core.SessionRef

type Reviver = core.Reviver

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithMetadataStore     = core.WithMetadataStore
	WithMetadataUpdater   = core.WithMetadataUpdater
	WithReviver           = core.WithReviver
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewUser(cfg Config, opts ...Option) (*User, error) {
	return core.NewUser(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*User, error) {
	return core.Setup(cfg, opts...)
}
