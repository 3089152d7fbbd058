package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-syncauth/core"
)

// UserService is the mutating surface of the user aggregate. The state
// machine is purely in-process, so its methods carry no context; command
// handlers accept one to satisfy the dispatcher contract.
type UserService interface {
	UpdateRefreshToken(token string)
	LogOut()
	Invalidate()
	RegisterSession(session core.Session) (*core.SessionRef, error)
}

type UpdateRefreshTokenCommand struct {
	service UserService
}

func NewUpdateRefreshTokenCommand(service UserService) *UpdateRefreshTokenCommand {
	return &UpdateRefreshTokenCommand{service: service}
}

func (c *UpdateRefreshTokenCommand) Execute(_ context.Context, msg UpdateRefreshTokenMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: token update service is required")
	}
	c.service.UpdateRefreshToken(msg.Token)
	return nil
}

type LogOutCommand struct {
	service UserService
}

func NewLogOutCommand(service UserService) *LogOutCommand {
	return &LogOutCommand{service: service}
}

func (c *LogOutCommand) Execute(_ context.Context, _ LogOutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: logout service is required")
	}
	c.service.LogOut()
	return nil
}

type InvalidateCommand struct {
	service UserService
}

func NewInvalidateCommand(service UserService) *InvalidateCommand {
	return &InvalidateCommand{service: service}
}

func (c *InvalidateCommand) Execute(_ context.Context, _ InvalidateMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: invalidate service is required")
	}
	c.service.Invalidate()
	return nil
}

type RegisterSessionCommand struct {
	service UserService
}

func NewRegisterSessionCommand(service UserService) *RegisterSessionCommand {
	return &RegisterSessionCommand{service: service}
}

func (c *RegisterSessionCommand) Execute(ctx context.Context, msg RegisterSessionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: session registration service is required")
	}
	ref, err := c.service.RegisterSession(msg.Session)
	if err != nil {
		return err
	}
	storeResult(ctx, ref)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
