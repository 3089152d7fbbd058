package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-syncauth/core"
)

var (
	_ gocmd.Querier[RefreshTokenMessage, string]               = (*RefreshTokenQuery)(nil)
	_ gocmd.Querier[StateMessage, core.UserState]              = (*StateQuery)(nil)
	_ gocmd.Querier[AllSessionsMessage, []core.Session]        = (*AllSessionsQuery)(nil)
	_ gocmd.Querier[SessionForURLMessage, core.Session]        = (*SessionForURLQuery)(nil)
	_ gocmd.Querier[GetUserMetadataMessage, core.UserMetadata] = (*GetUserMetadataQuery)(nil)
)
