package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Session is the contract consumed from an externally-owned sync session.
// Sessions are created, owned, and destroyed by the network layer; the user
// controller only ever holds non-owning handles to them.
type Session interface {
	ConfiguredURL() string
	InErrorState() bool
	LogOut()
	BindWithAdminToken(token string, url string)
}

// Revivable is implemented by sessions that can rebind after a credential
// change. ReviveIfNeeded must be safe to call whether or not revival is
// actually needed, and may call back into the owning user.
type Revivable interface {
	ReviveIfNeeded()
}

// Reviver asks a session to come back online after a token update or a
// registration while the user is active. Invoked outside the user lock.
type Reviver func(session Session)

// MetadataStore is the persisted credential record store consumed by the
// metadata bridge. SetState creates the record when absent; MarkForRemoval
// never does.
type MetadataStore interface {
	SetState(ctx context.Context, identity string, serverURL string, token string) error
	MarkForRemoval(ctx context.Context, identity string) error
}

// MetadataReader exposes the persisted records for manager-side restoration.
type MetadataReader interface {
	Get(ctx context.Context, identity string) (UserMetadata, bool, error)
	ListActive(ctx context.Context) ([]UserMetadata, error)
}

// MetadataReaper removes records previously marked for removal.
type MetadataReaper interface {
	ReapMarked(ctx context.Context) (int, error)
}

// MetadataUpdater schedules a staged update to run against the persisted
// store at its own discretion. Updates run best-effort: failures are logged
// by the updater, never surfaced to the state machine.
type MetadataUpdater interface {
	PerformMetadataUpdate(update MetadataUpdate)
}

type StoreProvider interface {
	MetadataStore() MetadataStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}
