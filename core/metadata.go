package core

import (
	"context"
	"fmt"

	glog "github.com/goliatone/go-logger/glog"
)

// ApplyMetadataUpdate interprets a staged update against a store. Set-state
// writes the record, creating it when absent; mark-for-removal only flags an
// existing record and is silent when none exists.
func ApplyMetadataUpdate(ctx context.Context, store MetadataStore, update MetadataUpdate) error {
	if store == nil {
		return fmt.Errorf("core: metadata store is required")
	}
	if err := update.Validate(); err != nil {
		return err
	}
	switch update.Kind {
	case MetadataUpdateSetState:
		if err := store.SetState(ctx, update.Identity, update.ServerURL, update.Token); err != nil {
			return fmt.Errorf("core: metadata update set_state for %q: %w", update.Identity, err)
		}
	case MetadataUpdateMarkForRemoval:
		if err := store.MarkForRemoval(ctx, update.Identity); err != nil {
			return fmt.Errorf("core: metadata update mark_for_removal for %q: %w", update.Identity, err)
		}
	default:
		return fmt.Errorf("core: metadata update kind %q: %w", update.Kind, ErrInvalidMetadataUpdateKind)
	}
	return nil
}

// NopMetadataUpdater discards every update. Admin users and users built
// without a store run with this updater.
type NopMetadataUpdater struct{}

func (NopMetadataUpdater) PerformMetadataUpdate(MetadataUpdate) {}

var _ MetadataUpdater = NopMetadataUpdater{}

// InlineMetadataUpdater applies updates synchronously on the calling
// goroutine. Failures are logged and swallowed: credential state must not
// depend on storage availability.
type InlineMetadataUpdater struct {
	store  MetadataStore
	logger Logger
}

func NewInlineMetadataUpdater(store MetadataStore, logger Logger) *InlineMetadataUpdater {
	return &InlineMetadataUpdater{
		store:  store,
		logger: glog.Ensure(logger),
	}
}

func (i *InlineMetadataUpdater) PerformMetadataUpdate(update MetadataUpdate) {
	if i == nil || i.store == nil {
		return
	}
	if err := ApplyMetadataUpdate(context.Background(), i.store, update); err != nil {
		if i.logger != nil {
			i.logger.Error("metadata update failed",
				"identity", update.Identity,
				"kind", string(update.Kind),
				"error", err.Error(),
			)
		}
	}
}

var _ MetadataUpdater = (*InlineMetadataUpdater)(nil)
