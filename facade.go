package syncauth

import (
	"fmt"
	"reflect"

	syncauthcommand "github.com/goliatone/go-syncauth/command"
	"github.com/goliatone/go-syncauth/core"
	syncauthquery "github.com/goliatone/go-syncauth/query"
)

// CommandQueryService is the combined surface the facade wraps: the mutating
// operations of the user aggregate plus its read model. *core.User satisfies
// it directly.
type CommandQueryService interface {
	syncauthcommand.UserService
	syncauthquery.UserReader
}

type Commands struct {
	UpdateRefreshToken *syncauthcommand.UpdateRefreshTokenCommand
	LogOut             *syncauthcommand.LogOutCommand
	Invalidate         *syncauthcommand.InvalidateCommand
	RegisterSession    *syncauthcommand.RegisterSessionCommand
}

type Queries struct {
	RefreshToken    *syncauthquery.RefreshTokenQuery
	State           *syncauthquery.StateQuery
	AllSessions     *syncauthquery.AllSessionsQuery
	SessionForURL   *syncauthquery.SessionForURLQuery
	GetUserMetadata *syncauthquery.GetUserMetadataQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	metadataReader syncauthquery.MetadataReader
}

// WithMetadataReader overrides the persisted-record reader backing the
// metadata lookup query. Without it the facade resolves a reader from the
// service's repository factory.
func WithMetadataReader(reader syncauthquery.MetadataReader) FacadeOption {
	return func(options *facadeOptions) {
		options.metadataReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("syncauth: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.metadataReader
	if reader == nil {
		reader = resolveMetadataReader(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		UpdateRefreshToken: syncauthcommand.NewUpdateRefreshTokenCommand(service),
		LogOut:             syncauthcommand.NewLogOutCommand(service),
		Invalidate:         syncauthcommand.NewInvalidateCommand(service),
		RegisterSession:    syncauthcommand.NewRegisterSessionCommand(service),
	}
	facade.queries = Queries{
		RefreshToken:    syncauthquery.NewRefreshTokenQuery(service),
		State:           syncauthquery.NewStateQuery(service),
		AllSessions:     syncauthquery.NewAllSessionsQuery(service),
		SessionForURL:   syncauthquery.NewSessionForURLQuery(service),
		GetUserMetadata: syncauthquery.NewGetUserMetadataQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// resolveMetadataReader finds a persisted-record reader for the metadata
// lookup query: the service itself when it implements the contract,
// otherwise the MetadataReader accessor of whatever repository factory the
// service was built with.
func resolveMetadataReader(service CommandQueryService) syncauthquery.MetadataReader {
	if service == nil {
		return nil
	}
	if reader, ok := service.(syncauthquery.MetadataReader); ok {
		return reader
	}
	provider, ok := service.(interface {
		Dependencies() core.UserDependencies
	})
	if !ok {
		return nil
	}
	deps := provider.Dependencies()
	if deps.RepositoryFactory == nil {
		return nil
	}

	factoryValue := reflect.ValueOf(deps.RepositoryFactory)
	if !factoryValue.IsValid() {
		return nil
	}
	if factoryValue.Kind() == reflect.Ptr && factoryValue.IsNil() {
		return nil
	}
	method := factoryValue.MethodByName("MetadataReader")
	if !method.IsValid() || method.Type().NumIn() != 0 || method.Type().NumOut() != 1 {
		return nil
	}

	results, ok := safeReflectCall(method)
	if !ok {
		return nil
	}
	if len(results) != 1 {
		return nil
	}
	candidate := results[0]
	if !candidate.IsValid() {
		return nil
	}
	switch candidate.Kind() {
	case reflect.Ptr, reflect.Interface:
		if candidate.IsNil() {
			return nil
		}
	}
	reader, ok := candidate.Interface().(syncauthquery.MetadataReader)
	if !ok {
		return nil
	}
	return reader
}

func safeReflectCall(method reflect.Value) (_ []reflect.Value, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return method.Call(nil), true
}
