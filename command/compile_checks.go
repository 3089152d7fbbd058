package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[UpdateRefreshTokenMessage] = (*UpdateRefreshTokenCommand)(nil)
	_ gocmd.Commander[LogOutMessage]             = (*LogOutCommand)(nil)
	_ gocmd.Commander[InvalidateMessage]         = (*InvalidateCommand)(nil)
	_ gocmd.Commander[RegisterSessionMessage]    = (*RegisterSessionCommand)(nil)
)
