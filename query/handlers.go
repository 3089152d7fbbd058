package query

import (
	"context"
	"fmt"

	"github.com/goliatone/go-syncauth/core"
)

// UserReader is the read-only surface of the user aggregate. The state
// machine is purely in-process, so its methods carry no context; query
// handlers accept one to satisfy the dispatcher contract.
type UserReader interface {
	RefreshToken() string
	State() core.UserState
	AllSessions() []core.Session
	SessionForURL(url string) (core.Session, bool)
}

// MetadataReader resolves identities against the persisted record store.
type MetadataReader interface {
	Get(ctx context.Context, identity string) (core.UserMetadata, bool, error)
}

type RefreshTokenQuery struct {
	reader UserReader
}

func NewRefreshTokenQuery(reader UserReader) *RefreshTokenQuery {
	return &RefreshTokenQuery{reader: reader}
}

func (q *RefreshTokenQuery) Query(_ context.Context, _ RefreshTokenMessage) (string, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: user reader is required")
	}
	return q.reader.RefreshToken(), nil
}

type StateQuery struct {
	reader UserReader
}

func NewStateQuery(reader UserReader) *StateQuery {
	return &StateQuery{reader: reader}
}

func (q *StateQuery) Query(_ context.Context, _ StateMessage) (core.UserState, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: user reader is required")
	}
	return q.reader.State(), nil
}

type AllSessionsQuery struct {
	reader UserReader
}

func NewAllSessionsQuery(reader UserReader) *AllSessionsQuery {
	return &AllSessionsQuery{reader: reader}
}

func (q *AllSessionsQuery) Query(_ context.Context, _ AllSessionsMessage) ([]core.Session, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: user reader is required")
	}
	return q.reader.AllSessions(), nil
}

type SessionForURLQuery struct {
	reader UserReader
}

func NewSessionForURLQuery(reader UserReader) *SessionForURLQuery {
	return &SessionForURLQuery{reader: reader}
}

func (q *SessionForURLQuery) Query(_ context.Context, msg SessionForURLMessage) (core.Session, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: user reader is required")
	}
	session, ok := q.reader.SessionForURL(msg.URL)
	if !ok {
		return nil, queryNotFoundError(fmt.Sprintf("query: no session for %q", msg.URL))
	}
	return session, nil
}

type GetUserMetadataQuery struct {
	reader MetadataReader
}

func NewGetUserMetadataQuery(reader MetadataReader) *GetUserMetadataQuery {
	return &GetUserMetadataQuery{reader: reader}
}

func (q *GetUserMetadataQuery) Query(ctx context.Context, msg GetUserMetadataMessage) (core.UserMetadata, error) {
	if q == nil || q.reader == nil {
		return core.UserMetadata{}, queryDependencyError("query: metadata reader is required")
	}
	meta, found, err := q.reader.Get(ctx, msg.Identity)
	if err != nil {
		return core.UserMetadata{}, err
	}
	if !found {
		return core.UserMetadata{}, queryNotFoundError(fmt.Sprintf("query: no metadata for %q", msg.Identity))
	}
	return meta, nil
}
