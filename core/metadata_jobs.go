package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

const MetadataJobID = "syncauth.metadata.update"

const (
	jobParamIdentity  = "identity"
	jobParamKind      = "kind"
	jobParamServerURL = "server_url"
	jobParamToken     = "token"
)

// BuildMetadataIdempotencyKey derives a stable key for a metadata update so
// queue backends can collapse duplicate deliveries of the same write.
func BuildMetadataIdempotencyKey(update MetadataUpdate) string {
	identity := strings.TrimSpace(strings.ToLower(update.Identity))
	serverURL := strings.TrimSpace(strings.ToLower(update.ServerURL))
	token := strings.TrimSpace(update.Token)
	if serverURL == "" {
		serverURL = "_"
	}
	if token == "" {
		token = "_"
	}
	payload := strings.Join(
		[]string{identity, string(update.Kind), serverURL, token},
		"|",
	)
	digest := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(digest[:])
}

// MetadataUpdateToJobMessage serializes a staged update into a queue
// execution message.
func MetadataUpdateToJobMessage(update MetadataUpdate) (*JobExecutionMessage, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	return &JobExecutionMessage{
		JobID: MetadataJobID,
		Parameters: map[string]any{
			jobParamIdentity:  strings.TrimSpace(update.Identity),
			jobParamKind:      string(update.Kind),
			jobParamServerURL: strings.TrimSpace(update.ServerURL),
			jobParamToken:     update.Token,
		},
		IdempotencyKey: BuildMetadataIdempotencyKey(update),
	}, nil
}

// MetadataUpdateFromJobMessage decodes an execution message produced by
// MetadataUpdateToJobMessage.
func MetadataUpdateFromJobMessage(msg *JobExecutionMessage) (MetadataUpdate, error) {
	if msg == nil {
		return MetadataUpdate{}, fmt.Errorf("core: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != MetadataJobID {
		return MetadataUpdate{}, fmt.Errorf("core: unexpected job id %q", msg.JobID)
	}
	update := MetadataUpdate{
		Identity:  stringParameter(msg.Parameters, jobParamIdentity),
		Kind:      MetadataUpdateKind(stringParameter(msg.Parameters, jobParamKind)),
		ServerURL: stringParameter(msg.Parameters, jobParamServerURL),
		Token:     stringParameter(msg.Parameters, jobParamToken),
	}
	if err := update.Validate(); err != nil {
		return MetadataUpdate{}, err
	}
	return update, nil
}

func stringParameter(params map[string]any, key string) string {
	if len(params) == 0 {
		return ""
	}
	raw, ok := params[key]
	if !ok || raw == nil {
		return ""
	}
	if typed, ok := raw.(string); ok {
		return strings.TrimSpace(typed)
	}
	return strings.TrimSpace(fmt.Sprint(raw))
}

// JobQueueMetadataUpdater hands each staged update to a durable job queue
// instead of writing storage in-process. Enqueue failures are logged and
// swallowed so credential transitions never block on the broker.
type JobQueueMetadataUpdater struct {
	enqueuer JobEnqueuer
	logger   Logger
}

func NewJobQueueMetadataUpdater(enqueuer JobEnqueuer, logger Logger) *JobQueueMetadataUpdater {
	return &JobQueueMetadataUpdater{
		enqueuer: enqueuer,
		logger:   glog.Ensure(logger),
	}
}

func (j *JobQueueMetadataUpdater) PerformMetadataUpdate(update MetadataUpdate) {
	if j == nil || j.enqueuer == nil {
		return
	}
	msg, err := MetadataUpdateToJobMessage(update)
	if err == nil {
		err = j.enqueuer.Enqueue(context.Background(), msg)
	}
	if err != nil && j.logger != nil {
		j.logger.Error("metadata update enqueue failed",
			"identity", update.Identity,
			"kind", string(update.Kind),
			"error", err.Error(),
		)
	}
}

var _ MetadataUpdater = (*JobQueueMetadataUpdater)(nil)

type MetadataJobRunnerConfig struct {
	RequeueDelay time.Duration
	PollBackoff  time.Duration
}

func DefaultMetadataJobRunnerConfig() MetadataJobRunnerConfig {
	return MetadataJobRunnerConfig{
		RequeueDelay: 2 * time.Second,
		PollBackoff:  500 * time.Millisecond,
	}
}

// MetadataJobRunner drains metadata update jobs from a queue and applies
// them to the store. Malformed messages are dead-lettered; store failures
// are requeued with a delay.
type MetadataJobRunner struct {
	dequeuer JobDequeuer
	store    MetadataStore
	logger   Logger
	config   MetadataJobRunnerConfig
}

func NewMetadataJobRunner(
	dequeuer JobDequeuer,
	store MetadataStore,
	logger Logger,
	config MetadataJobRunnerConfig,
) (*MetadataJobRunner, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("core: job dequeuer is required")
	}
	if store == nil {
		return nil, fmt.Errorf("core: metadata store is required")
	}
	if config.RequeueDelay <= 0 {
		config.RequeueDelay = DefaultMetadataJobRunnerConfig().RequeueDelay
	}
	if config.PollBackoff <= 0 {
		config.PollBackoff = DefaultMetadataJobRunnerConfig().PollBackoff
	}
	return &MetadataJobRunner{
		dequeuer: dequeuer,
		store:    store,
		logger:   glog.Ensure(logger),
		config:   config,
	}, nil
}

// ProcessNext handles a single delivery. The bool reports whether a delivery
// was acknowledged.
func (r *MetadataJobRunner) ProcessNext(ctx context.Context) (bool, error) {
	if r == nil || r.dequeuer == nil || r.store == nil {
		return false, fmt.Errorf("core: metadata job runner is not configured")
	}
	delivery, err := r.dequeuer.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if delivery == nil {
		return false, nil
	}

	update, decodeErr := MetadataUpdateFromJobMessage(delivery.Message())
	if decodeErr != nil {
		_ = delivery.Nack(ctx, JobNackOptions{
			DeadLetter: true,
			Reason:     decodeErr.Error(),
		})
		return false, decodeErr
	}

	if applyErr := ApplyMetadataUpdate(ctx, r.store, update); applyErr != nil {
		_ = delivery.Nack(ctx, JobNackOptions{
			Requeue: true,
			Delay:   r.config.RequeueDelay,
			Reason:  applyErr.Error(),
		})
		return false, applyErr
	}

	if ackErr := delivery.Ack(ctx); ackErr != nil {
		return false, ackErr
	}
	return true, nil
}

// Run processes deliveries until the context is cancelled.
func (r *MetadataJobRunner) Run(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("core: metadata job runner is not configured")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := r.ProcessNext(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if r.logger != nil {
				r.logger.Error("metadata job processing failed", "error", err.Error())
			}
			if waitErr := waitWithContext(ctx, r.config.PollBackoff); waitErr != nil {
				return waitErr
			}
		}
	}
}
