package command

import (
	"strings"

	"github.com/goliatone/go-syncauth/core"
)

const (
	TypeUpdateRefreshToken = "syncauth.command.token.update"
	TypeLogOut             = "syncauth.command.user.logout"
	TypeInvalidate         = "syncauth.command.user.invalidate"
	TypeRegisterSession    = "syncauth.command.session.register"
)

type UpdateRefreshTokenMessage struct {
	Token string
}

func (UpdateRefreshTokenMessage) Type() string { return TypeUpdateRefreshToken }

func (m UpdateRefreshTokenMessage) Validate() error {
	if strings.TrimSpace(m.Token) == "" {
		return commandValidationError("token", "refresh token is required")
	}
	return nil
}

type LogOutMessage struct{}

func (LogOutMessage) Type() string { return TypeLogOut }

func (LogOutMessage) Validate() error { return nil }

type InvalidateMessage struct{}

func (InvalidateMessage) Type() string { return TypeInvalidate }

func (InvalidateMessage) Validate() error { return nil }

// RegisterSessionMessage carries the live session handle: sessions are
// in-process objects owned by the caller, never serialized payloads.
type RegisterSessionMessage struct {
	Session core.Session
}

func (RegisterSessionMessage) Type() string { return TypeRegisterSession }

func (m RegisterSessionMessage) Validate() error {
	if m.Session == nil {
		return commandValidationError("session", "session is required")
	}
	if strings.TrimSpace(m.Session.ConfiguredURL()) == "" {
		return commandValidationError("endpoint_url", "session endpoint url is required")
	}
	return nil
}
