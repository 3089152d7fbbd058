package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-syncauth/core"
	"github.com/goliatone/go-syncauth/security"
	"github.com/uptrace/bun"
)

// SQLMetadataStore persists one credential record per identity. SetState is
// the only creating write; MarkForRemoval and ReapMarked never create.
// When a secret provider is configured, refresh tokens are sealed before the
// row is written and opened on read.
type SQLMetadataStore struct {
	db      *bun.DB
	repo    repository.Repository[*userMetadataRecord]
	secrets core.SecretProvider
}

type MetadataStoreOption func(*SQLMetadataStore)

func WithSecretProvider(secrets core.SecretProvider) MetadataStoreOption {
	return func(s *SQLMetadataStore) {
		s.secrets = secrets
	}
}

func NewSQLMetadataStore(db *bun.DB, opts ...MetadataStoreOption) (*SQLMetadataStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*userMetadataRecord](db, userMetadataHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid user metadata repository wiring: %w", err)
		}
	}
	store := &SQLMetadataStore{
		db:   db,
		repo: repo,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(store)
	}
	return store, nil
}

// SetState upserts the record for an identity and clears any pending
// removal mark, resurrecting records that were flagged but not yet reaped.
func (s *SQLMetadataStore) SetState(ctx context.Context, identity string, serverURL string, token string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: metadata store is not configured")
	}
	identity = strings.TrimSpace(identity)
	serverURL = strings.TrimSpace(serverURL)
	token = strings.TrimSpace(token)
	if identity == "" {
		return fmt.Errorf("sqlstore: identity is required")
	}

	sealed, err := s.sealToken(ctx, token)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findUserMetadataTx(ctx, tx, identity)
		if err != nil {
			return err
		}
		if record == nil {
			record = newUserMetadataRecord(identity, serverURL, sealed, now)
			if _, createErr := s.repo.CreateTx(ctx, tx, record); createErr != nil {
				if !isUniqueViolation(createErr) {
					return createErr
				}
				record, err = findUserMetadataTx(ctx, tx, identity)
				if err != nil {
					return err
				}
				if record == nil {
					return createErr
				}
			} else {
				return nil
			}
		}

		record.ServerURL = serverURL
		record.RefreshToken = sealed
		record.MarkedForRemoval = false
		record.UpdatedAt = now
		_, updateErr := tx.NewUpdate().
			Model(record).
			Where("id = ?", record.ID).
			Exec(ctx)
		return updateErr
	})
}

// MarkForRemoval flags an existing record. A missing record is a silent
// no-op: log-out must never create metadata.
func (s *SQLMetadataStore) MarkForRemoval(ctx context.Context, identity string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: metadata store is not configured")
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return fmt.Errorf("sqlstore: identity is required")
	}

	_, err := s.db.NewUpdate().
		Model((*userMetadataRecord)(nil)).
		Set("marked_for_removal = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("identity = ?", identity).
		Where("deleted_at IS NULL").
		Exec(ctx)
	return err
}

func (s *SQLMetadataStore) Get(ctx context.Context, identity string) (core.UserMetadata, bool, error) {
	if s == nil || s.db == nil {
		return core.UserMetadata{}, false, fmt.Errorf("sqlstore: metadata store is not configured")
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return core.UserMetadata{}, false, fmt.Errorf("sqlstore: identity is required")
	}

	record := &userMetadataRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.identity = ?", identity).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.UserMetadata{}, false, nil
		}
		return core.UserMetadata{}, false, err
	}

	meta, err := s.openRecord(ctx, record)
	if err != nil {
		return core.UserMetadata{}, false, err
	}
	return meta, true, nil
}

// ListActive returns the unmarked records in identity order.
func (s *SQLMetadataStore) ListActive(ctx context.Context) ([]core.UserMetadata, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: metadata store is not configured")
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.marked_for_removal = ?", false).
				Where("?TableAlias.deleted_at IS NULL")
		}),
		repository.OrderBy("identity ASC"),
	)
	if err != nil {
		return nil, err
	}

	out := make([]core.UserMetadata, 0, len(records))
	for _, record := range records {
		meta, openErr := s.openRecord(ctx, record)
		if openErr != nil {
			return nil, openErr
		}
		out = append(out, meta)
	}
	return out, nil
}

// ReapMarked soft-deletes every record flagged for removal and reports how
// many rows it retired.
func (s *SQLMetadataStore) ReapMarked(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: metadata store is not configured")
	}

	res, err := s.db.NewDelete().
		Model((*userMetadataRecord)(nil)).
		Where("marked_for_removal = ?", true).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

func (s *SQLMetadataStore) sealToken(ctx context.Context, token string) (string, error) {
	if s.secrets == nil || token == "" {
		return token, nil
	}
	sealed, err := s.secrets.Encrypt(ctx, []byte(token))
	if err != nil {
		return "", fmt.Errorf("sqlstore: seal refresh token: %w", err)
	}
	return string(sealed), nil
}

func (s *SQLMetadataStore) openRecord(ctx context.Context, record *userMetadataRecord) (core.UserMetadata, error) {
	meta := record.toDomain()
	if s.secrets == nil || !security.IsEnvelope(meta.RefreshToken) {
		return meta, nil
	}
	opened, err := s.secrets.Decrypt(ctx, []byte(meta.RefreshToken))
	if err != nil {
		return core.UserMetadata{}, fmt.Errorf("sqlstore: open refresh token for %q: %w", meta.Identity, err)
	}
	meta.RefreshToken = string(opened)
	return meta, nil
}

func findUserMetadataTx(ctx context.Context, tx bun.Tx, identity string) (*userMetadataRecord, error) {
	record := &userMetadataRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.identity = ?", strings.TrimSpace(identity)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
