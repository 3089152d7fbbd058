package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

var ErrDuplicateRegistration = errors.New("core: a live session is already registered for this endpoint")

// User is the client-side authentication and session controller for one sync
// identity. It owns the credential state machine and the endpoint-keyed
// session registries, all guarded by a single lock. Side effects that may
// call back into the user (session revival) run only after that lock is
// released; metadata persistence is staged under the lock and handed to the
// updater afterwards.
type User struct {
	identity  string
	serverURL string
	isAdmin   bool

	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	metadata          MetadataUpdater
	metadataStore     MetadataStore
	reviver           Reviver

	mu           sync.Mutex
	state        UserState
	refreshToken string
	registry     *sessionRegistry
}

type UserDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	MetadataStore     MetadataStore
	MetadataUpdater   MetadataUpdater
	Reviver           Reviver
}

// NewUser builds a user from the merged configuration layers and enters the
// Active state. Non-admin users immediately schedule a set-state metadata
// update so the persisted record reflects the construction-time credential.
func NewUser(cfg Config, options ...Option) (*User, error) {
	builder := defaultUserBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("syncauth", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("syncauth"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.reviver == nil {
		builder.reviver = ReviveIfNeeded
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	identity := strings.TrimSpace(finalConfig.Identity)
	if identity == "" {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: identity is required"))
	}
	if strings.TrimSpace(finalConfig.RefreshToken) == "" {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: refresh token is required"))
	}

	if builder.metadataStore == nil && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				builder.metadataStore = storeProvider.MetadataStore()
			}
		} else if storeProvider, ok := builder.repositoryFactory.(StoreProvider); ok {
			builder.metadataStore = storeProvider.MetadataStore()
		}
	}
	if builder.metadataUpdater == nil {
		if builder.metadataStore != nil {
			builder.metadataUpdater = NewInlineMetadataUpdater(builder.metadataStore, logger)
		} else {
			builder.metadataUpdater = NopMetadataUpdater{}
		}
	}

	user := &User{
		identity:          identity,
		serverURL:         strings.TrimSpace(finalConfig.ServerURL),
		isAdmin:           finalConfig.IsAdmin,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		metadata:          builder.metadataUpdater,
		metadataStore:     builder.metadataStore,
		reviver:           builder.reviver,
		state:             UserStateActive,
		refreshToken:      finalConfig.RefreshToken,
		registry:          newSessionRegistry(),
	}

	if !user.isAdmin {
		user.scheduleMetadataUpdate(MetadataUpdate{
			Identity:  user.identity,
			Kind:      MetadataUpdateSetState,
			ServerURL: user.serverURL,
			Token:     user.refreshToken,
		})
	}
	return user, nil
}

// Setup is a convenience alias for NewUser.
func Setup(cfg Config, options ...Option) (*User, error) {
	return NewUser(cfg, options...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (u *User) mapError(err error) error {
	if err == nil {
		return nil
	}
	if u == nil || u.errorMapper == nil {
		return err
	}
	mapped := u.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (u *User) Identity() string {
	if u == nil {
		return ""
	}
	return u.identity
}

func (u *User) ServerURL() string {
	if u == nil {
		return ""
	}
	return u.serverURL
}

func (u *User) IsAdmin() bool {
	if u == nil {
		return false
	}
	return u.isAdmin
}

// RefreshToken returns the current credential. The read is atomic with
// respect to state transitions: a caller never observes a token without the
// state change it arrived with.
func (u *User) RefreshToken() string {
	if u == nil {
		return ""
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.refreshToken
}

func (u *User) State() UserState {
	if u == nil {
		return ""
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Config returns a snapshot of the user's current configuration.
func (u *User) Config() Config {
	if u == nil {
		return Config{}
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return Config{
		Identity:     u.identity,
		ServerURL:    u.serverURL,
		RefreshToken: u.refreshToken,
		IsAdmin:      u.isAdmin,
	}
}

func (u *User) Dependencies() UserDependencies {
	if u == nil {
		return UserDependencies{}
	}
	return UserDependencies{
		Logger:            u.logger,
		LoggerProvider:    u.loggerProvider,
		MetricsRecorder:   u.metricsRecorder,
		ErrorFactory:      u.errorFactory,
		ErrorMapper:       u.errorMapper,
		PersistenceClient: u.persistenceClient,
		RepositoryFactory: u.repositoryFactory,
		ConfigProvider:    u.configProvider,
		OptionsResolver:   u.optionsResolver,
		MetadataStore:     u.metadataStore,
		MetadataUpdater:   u.metadata,
		Reviver:           u.reviver,
	}
}

// AllSessions lists the live, non-error sessions bound to this user in
// endpoint order. Handles whose target is gone or in an error condition are
// purged as a side effect of the read. Always empty once the user has been
// invalidated.
func (u *User) AllSessions() []Session {
	if u == nil {
		return nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state == UserStateError {
		return []Session{}
	}
	return u.registry.liveActive()
}

// SessionForURL returns the active session registered for the endpoint. A
// handle whose target is gone is purged and reported as not found.
func (u *User) SessionForURL(url string) (Session, bool) {
	if u == nil {
		return nil, false
	}
	url = strings.TrimSpace(url)
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state == UserStateError {
		return nil, false
	}
	return u.registry.lookupActive(url)
}

// UpdateRefreshToken installs a new credential. While logged out it also
// transitions the user back to Active and revives every still-live waiting
// session; revival runs after the lock is released because a session may
// call back into the user while rebinding. Ignored once invalidated.
func (u *User) UpdateRefreshToken(token string) {
	if u == nil {
		return
	}
	startedAt := time.Now().UTC()

	var toRevive []Session
	var update *MetadataUpdate

	u.mu.Lock()
	switch u.state {
	case UserStateError:
		u.mu.Unlock()
		return
	case UserStateActive:
		u.refreshToken = token
	case UserStateLoggedOut:
		u.refreshToken = token
		u.state = UserStateActive
		toRevive = u.registry.promoteWaiting()
	}
	if !u.isAdmin {
		update = &MetadataUpdate{
			Identity:  u.identity,
			Kind:      MetadataUpdateSetState,
			ServerURL: u.serverURL,
			Token:     u.refreshToken,
		}
	}
	state := u.state
	u.mu.Unlock()

	if update != nil {
		u.scheduleMetadataUpdate(*update)
	}
	for _, session := range toRevive {
		u.revive(session)
	}

	u.observeOperation(startedAt, "token_update", nil, map[string]any{
		"identity": u.identity,
		"state":    string(state),
		"revived":  len(toRevive),
	})
}

// LogOut parks every live session and transitions to LoggedOut, then
// schedules a mark-for-removal update against the persisted record. Admin
// users cannot be logged out; repeated calls and calls after invalidation
// are no-ops.
func (u *User) LogOut() {
	if u == nil || u.isAdmin {
		return
	}
	startedAt := time.Now().UTC()

	u.mu.Lock()
	if u.state != UserStateActive {
		u.mu.Unlock()
		return
	}
	u.state = UserStateLoggedOut
	parked := u.registry.parkActive()
	for _, session := range parked {
		// Passive notification, guaranteed not to re-enter this user.
		session.LogOut()
	}
	u.mu.Unlock()

	u.scheduleMetadataUpdate(MetadataUpdate{
		Identity: u.identity,
		Kind:     MetadataUpdateMarkForRemoval,
	})

	u.observeOperation(startedAt, "logout", nil, map[string]any{
		"identity": u.identity,
		"state":    string(UserStateLoggedOut),
		"parked":   len(parked),
	})
}

// Invalidate moves the user into the terminal Error state. Every later
// mutation is absorbed as a no-op and reads behave as if no sessions exist.
// Nothing is persisted: the condition is local and unrecoverable.
func (u *User) Invalidate() {
	if u == nil {
		return
	}
	startedAt := time.Now().UTC()

	u.mu.Lock()
	u.state = UserStateError
	u.mu.Unlock()

	u.observeOperation(startedAt, "invalidate", nil, map[string]any{
		"identity": u.identity,
		"state":    string(UserStateError),
	})
}

// RegisterSession adds a session handle keyed by the session's configured
// URL and returns the ref the owner must release when the session is
// destroyed. At most one live handle may exist per endpoint across both the
// active and waiting sets. While Active, admin users bind the session
// in-line with the current token; other users get the session revived after
// the lock is released. While logged out the handle is parked. After
// invalidation the session is silently dropped and the returned ref is nil.
func (u *User) RegisterSession(session Session) (*SessionRef, error) {
	if u == nil {
		return nil, fmt.Errorf("core: user is required")
	}
	if session == nil {
		return nil, u.mapError(fmt.Errorf("core: session is required"))
	}
	endpoint := strings.TrimSpace(session.ConfiguredURL())
	if endpoint == "" {
		return nil, u.mapError(fmt.Errorf("core: session endpoint url is required"))
	}
	startedAt := time.Now().UTC()

	u.mu.Lock()
	if u.registry.hasLive(endpoint) {
		u.mu.Unlock()
		err := u.mapError(fmt.Errorf("core: register session for %q: %w", endpoint, ErrDuplicateRegistration))
		u.observeOperation(startedAt, "session_register", err, map[string]any{
			"identity": u.identity,
			"endpoint": endpoint,
		})
		return nil, err
	}

	var ref *SessionRef
	revive := false
	switch u.state {
	case UserStateActive:
		ref = NewSessionRef(session)
		u.registry.storeActive(endpoint, ref)
		if u.isAdmin {
			// Leaf call: binding never re-enters the user.
			session.BindWithAdminToken(u.refreshToken, endpoint)
		} else {
			revive = true
		}
	case UserStateLoggedOut:
		ref = NewSessionRef(session)
		u.registry.storeWaiting(endpoint, ref)
	case UserStateError:
		// Dropped: registration under a dead user is a no-op, not an error.
	}
	state := u.state
	u.mu.Unlock()

	if revive {
		u.revive(session)
	}

	u.observeOperation(startedAt, "session_register", nil, map[string]any{
		"identity": u.identity,
		"endpoint": endpoint,
		"state":    string(state),
		"stored":   ref != nil,
	})
	return ref, nil
}

func (u *User) revive(session Session) {
	if u == nil || session == nil {
		return
	}
	if u.reviver != nil {
		u.reviver(session)
		return
	}
	ReviveIfNeeded(session)
}

func (u *User) scheduleMetadataUpdate(update MetadataUpdate) {
	if u == nil || u.metadata == nil {
		return
	}
	u.metadata.PerformMetadataUpdate(update)
	u.recordCounter("syncauth.metadata.scheduled.total", 1, map[string]string{
		"kind": string(update.Kind),
	})
}
