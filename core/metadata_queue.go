package core

import (
	"context"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

const (
	defaultMetadataQueueCapacity  = 64
	defaultMetadataMaxAttempts    = 3
	defaultMetadataInitialBackoff = 500 * time.Millisecond
	defaultMetadataMaxBackoff     = 10 * time.Second
)

type BackoffScheduler interface {
	NextDelay(attempt int) time.Duration
}

type ExponentialBackoffScheduler struct {
	Initial time.Duration
	Max     time.Duration
}

func (s ExponentialBackoffScheduler) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := s.Initial
	if initial <= 0 {
		initial = defaultMetadataInitialBackoff
	}
	max := s.Max
	if max <= 0 {
		max = defaultMetadataMaxBackoff
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// QueuedMetadataUpdater decouples metadata persistence from the scheduling
// goroutine through a bounded in-process queue. A single worker drains the
// queue and applies each update with bounded retries. When the queue is full
// the update is dropped and logged rather than blocking a state transition.
type QueuedMetadataUpdater struct {
	store       MetadataStore
	logger      Logger
	updates     chan MetadataUpdate
	maxAttempts int
	backoff     BackoffScheduler
	closeOnce   sync.Once
	done        chan struct{}
}

type QueuedMetadataUpdaterOption func(*QueuedMetadataUpdater)

func WithQueueCapacity(capacity int) QueuedMetadataUpdaterOption {
	return func(q *QueuedMetadataUpdater) {
		if capacity > 0 {
			q.updates = make(chan MetadataUpdate, capacity)
		}
	}
}

func WithQueueMaxAttempts(attempts int) QueuedMetadataUpdaterOption {
	return func(q *QueuedMetadataUpdater) {
		if attempts > 0 {
			q.maxAttempts = attempts
		}
	}
}

func WithQueueBackoffScheduler(scheduler BackoffScheduler) QueuedMetadataUpdaterOption {
	return func(q *QueuedMetadataUpdater) {
		if scheduler != nil {
			q.backoff = scheduler
		}
	}
}

func NewQueuedMetadataUpdater(store MetadataStore, logger Logger, options ...QueuedMetadataUpdaterOption) *QueuedMetadataUpdater {
	q := &QueuedMetadataUpdater{
		store:       store,
		logger:      glog.Ensure(logger),
		updates:     make(chan MetadataUpdate, defaultMetadataQueueCapacity),
		maxAttempts: defaultMetadataMaxAttempts,
		backoff:     ExponentialBackoffScheduler{},
		done:        make(chan struct{}),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(q)
	}
	return q
}

func (q *QueuedMetadataUpdater) PerformMetadataUpdate(update MetadataUpdate) {
	if q == nil {
		return
	}
	select {
	case <-q.done:
		return
	default:
	}
	select {
	case q.updates <- update:
	default:
		if q.logger != nil {
			q.logger.Error("metadata queue full, update dropped",
				"identity", update.Identity,
				"kind", string(update.Kind),
			)
		}
	}
}

// Run applies queued updates until the context is cancelled or the queue is
// closed, then drains whatever is still buffered. Call it on a dedicated
// goroutine.
func (q *QueuedMetadataUpdater) Run(ctx context.Context) {
	if q == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			q.drain()
			return
		case <-q.done:
			q.drain()
			return
		case update := <-q.updates:
			q.apply(ctx, update)
		}
	}
}

// Close stops accepting updates. Safe to call more than once.
func (q *QueuedMetadataUpdater) Close() {
	if q == nil {
		return
	}
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

func (q *QueuedMetadataUpdater) drain() {
	for {
		select {
		case update := <-q.updates:
			q.apply(context.Background(), update)
		default:
			return
		}
	}
}

func (q *QueuedMetadataUpdater) apply(ctx context.Context, update MetadataUpdate) {
	var lastErr error
	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		err := ApplyMetadataUpdate(ctx, q.store, update)
		if err == nil {
			return
		}
		lastErr = err
		if attempt == q.maxAttempts {
			break
		}
		delay := defaultMetadataInitialBackoff
		if q.backoff != nil {
			delay = q.backoff.NextDelay(attempt)
		}
		if waitErr := waitWithContext(ctx, delay); waitErr != nil {
			break
		}
	}
	if q.logger != nil && lastErr != nil {
		q.logger.Error("metadata update failed after retries",
			"identity", update.Identity,
			"kind", string(update.Kind),
			"attempts", q.maxAttempts,
			"error", lastErr.Error(),
		)
	}
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ MetadataUpdater = (*QueuedMetadataUpdater)(nil)
