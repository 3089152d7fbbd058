package query

import "strings"

const (
	TypeRefreshToken    = "syncauth.query.token.get"
	TypeState           = "syncauth.query.state.get"
	TypeAllSessions     = "syncauth.query.sessions.list"
	TypeSessionForURL   = "syncauth.query.session.get"
	TypeGetUserMetadata = "syncauth.query.metadata.get"
)

type RefreshTokenMessage struct{}

func (RefreshTokenMessage) Type() string { return TypeRefreshToken }

func (RefreshTokenMessage) Validate() error { return nil }

type StateMessage struct{}

func (StateMessage) Type() string { return TypeState }

func (StateMessage) Validate() error { return nil }

type AllSessionsMessage struct{}

func (AllSessionsMessage) Type() string { return TypeAllSessions }

func (AllSessionsMessage) Validate() error { return nil }

type SessionForURLMessage struct {
	URL string
}

func (SessionForURLMessage) Type() string { return TypeSessionForURL }

func (m SessionForURLMessage) Validate() error {
	if strings.TrimSpace(m.URL) == "" {
		return queryValidationError("url", "endpoint url is required")
	}
	return nil
}

type GetUserMetadataMessage struct {
	Identity string
}

func (GetUserMetadataMessage) Type() string { return TypeGetUserMetadata }

func (m GetUserMetadataMessage) Validate() error {
	if strings.TrimSpace(m.Identity) == "" {
		return queryValidationError("identity", "identity is required")
	}
	return nil
}
