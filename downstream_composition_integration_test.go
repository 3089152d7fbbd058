package syncauth_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	gocmd "github.com/goliatone/go-command"
	syncauth "github.com/goliatone/go-syncauth"
	syncauthcommand "github.com/goliatone/go-syncauth/command"
	"github.com/goliatone/go-syncauth/core"
	syncauthquery "github.com/goliatone/go-syncauth/query"
)

func TestDownstreamComposition_RunsCredentialLifecycleOverPublicSurface(t *testing.T) {
	store := newDownstreamMetadataStore()

	user, err := syncauth.NewUser(
		syncauth.Config{
			Identity:     "user-1",
			ServerURL:    "https://sync.example.com",
			RefreshToken: "token-1",
		},
		syncauth.WithMetadataStore(store),
	)
	if err != nil {
		t.Fatalf("new user: %v", err)
	}

	facade, err := syncauth.NewFacade(user, syncauth.WithMetadataReader(store))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	app := downstreamDocsApp{controller: facade}
	ctx := context.Background()

	if record, ok := store.snapshot("user-1"); !ok || record.RefreshToken != "token-1" || record.MarkedForRemoval {
		t.Fatalf("expected construction to persist the initial credential, got %#v", record)
	}

	session := &downstreamSession{url: "wss://sync.example.com/docs", credentials: user}
	ref, err := app.OpenDocument(ctx, session)
	if err != nil {
		t.Fatalf("open document through controller surface: %v", err)
	}
	if resolved, ok := ref.Resolve(); !ok || resolved != session {
		t.Fatalf("expected session handle to resolve the registered session")
	}
	if got := session.revives(); len(got) != 1 || got[0] != "token-1" {
		t.Fatalf("expected registration to revive the session with the live token, got %v", got)
	}

	if err := app.RenewCredentials(ctx, "token-2"); err != nil {
		t.Fatalf("renew credentials: %v", err)
	}
	token, err := facade.Queries().RefreshToken.Query(ctx, syncauthquery.RefreshTokenMessage{})
	if err != nil {
		t.Fatalf("refresh token query: %v", err)
	}
	if token != "token-2" {
		t.Fatalf("expected token-2 after renewal, got %q", token)
	}
	if record, _ := store.snapshot("user-1"); record.RefreshToken != "token-2" {
		t.Fatalf("expected renewal to reach the record store, got %#v", record)
	}
	if got := session.revives(); len(got) != 1 {
		t.Fatalf("expected no revival while already active, got %v", got)
	}

	if err := app.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	state, err := facade.Queries().State.Query(ctx, syncauthquery.StateMessage{})
	if err != nil {
		t.Fatalf("state query: %v", err)
	}
	if state != core.UserStateLoggedOut {
		t.Fatalf("expected logged-out state, got %q", state)
	}
	if !session.isLoggedOut() {
		t.Fatalf("expected the active session to be logged out with the user")
	}
	if sessions, _ := facade.Queries().AllSessions.Query(ctx, syncauthquery.AllSessionsMessage{}); len(sessions) != 0 {
		t.Fatalf("expected no active sessions after sign-out, got %d", len(sessions))
	}
	if record, _ := store.snapshot("user-1"); !record.MarkedForRemoval || record.RefreshToken != "token-2" {
		t.Fatalf("expected sign-out to mark the record without touching the token, got %#v", record)
	}

	if err := app.RenewCredentials(ctx, "token-3"); err != nil {
		t.Fatalf("renew credentials after sign-out: %v", err)
	}
	state, err = facade.Queries().State.Query(ctx, syncauthquery.StateMessage{})
	if err != nil {
		t.Fatalf("state query: %v", err)
	}
	if state != core.UserStateActive {
		t.Fatalf("expected re-login to reactivate the user, got %q", state)
	}
	if got := session.revives(); len(got) != 2 || got[1] != "token-3" {
		t.Fatalf("expected the parked session to revive with the new token, got %v", got)
	}
	if session.isLoggedOut() {
		t.Fatalf("expected the revived session to be bound again")
	}
	if sessions, _ := facade.Queries().AllSessions.Query(ctx, syncauthquery.AllSessionsMessage{}); len(sessions) != 1 {
		t.Fatalf("expected the parked session back among active sessions, got %d", len(sessions))
	}
	found, err := facade.Queries().SessionForURL.Query(ctx, syncauthquery.SessionForURLMessage{URL: "wss://sync.example.com/docs"})
	if err != nil {
		t.Fatalf("session lookup by endpoint: %v", err)
	}
	if found != session {
		t.Fatalf("expected endpoint lookup to return the registered session")
	}

	meta, err := facade.Queries().GetUserMetadata.Query(ctx, syncauthquery.GetUserMetadataMessage{Identity: "user-1"})
	if err != nil {
		t.Fatalf("metadata query: %v", err)
	}
	if meta.RefreshToken != "token-3" || meta.MarkedForRemoval {
		t.Fatalf("expected re-login to rewrite and unmark the record, got %#v", meta)
	}

	hooks := syncauth.NewExtensionHooks()
	err = hooks.RegisterCommandQueryBundle("credential_reads", func(service syncauth.CommandQueryService) (any, error) {
		return downstreamCredentialPanel{state: service.State, token: service.RefreshToken}, nil
	})
	if err != nil {
		t.Fatalf("register bundle: %v", err)
	}
	bundles, err := hooks.BuildCommandQueryBundles(user)
	if err != nil {
		t.Fatalf("build bundles: %v", err)
	}
	panel, ok := bundles["credential_reads"].(downstreamCredentialPanel)
	if !ok {
		t.Fatalf("expected credential panel bundle, got %#v", bundles["credential_reads"])
	}
	if panel.state() != core.UserStateActive || panel.token() != "token-3" {
		t.Fatalf("expected bundle reads to track the live user, got %q/%q", panel.state(), panel.token())
	}
}

// downstreamController is the slice of the root facade the app composes
// against; *syncauth.Facade satisfies it.
type downstreamController interface {
	Commands() syncauth.Commands
	Queries() syncauth.Queries
}

type downstreamDocsApp struct {
	controller downstreamController
}

func (a downstreamDocsApp) OpenDocument(ctx context.Context, session syncauth.Session) (*syncauth.SessionRef, error) {
	if a.controller == nil {
		return nil, fmt.Errorf("controller is required")
	}
	collector := gocmd.NewResult[*syncauth.SessionRef]()
	ctx = gocmd.ContextWithResult(ctx, collector)
	msg := syncauthcommand.RegisterSessionMessage{Session: session}
	if err := a.controller.Commands().RegisterSession.Execute(ctx, msg); err != nil {
		return nil, err
	}
	ref, ok := collector.Load()
	if !ok {
		return nil, fmt.Errorf("session handle was not captured")
	}
	return ref, nil
}

func (a downstreamDocsApp) RenewCredentials(ctx context.Context, token string) error {
	if a.controller == nil {
		return fmt.Errorf("controller is required")
	}
	return a.controller.Commands().UpdateRefreshToken.Execute(ctx, syncauthcommand.UpdateRefreshTokenMessage{Token: token})
}

func (a downstreamDocsApp) SignOut(ctx context.Context) error {
	if a.controller == nil {
		return fmt.Errorf("controller is required")
	}
	return a.controller.Commands().LogOut.Execute(ctx, syncauthcommand.LogOutMessage{})
}

// downstreamSession stands in for a network-layer session object. Revival
// reads the live token back through the user, which only works because
// revival runs outside the user lock.
type downstreamSession struct {
	mu          sync.Mutex
	url         string
	credentials interface{ RefreshToken() string }
	revived     []string
	loggedOut   bool
}

func (s *downstreamSession) ConfiguredURL() string { return s.url }

func (s *downstreamSession) InErrorState() bool { return false }

func (s *downstreamSession) LogOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedOut = true
}

func (s *downstreamSession) BindWithAdminToken(string, string) {}

func (s *downstreamSession) ReviveIfNeeded() {
	token := s.credentials.RefreshToken()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedOut = false
	s.revived = append(s.revived, token)
}

func (s *downstreamSession) revives() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.revived...)
}

func (s *downstreamSession) isLoggedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedOut
}

// downstreamMetadataStore keeps credential records in memory with the same
// write semantics as the SQL store: set-state creates and unmarks,
// mark-for-removal never creates.
type downstreamMetadataStore struct {
	mu      sync.Mutex
	records map[string]syncauth.UserMetadata
}

func newDownstreamMetadataStore() *downstreamMetadataStore {
	return &downstreamMetadataStore{records: map[string]syncauth.UserMetadata{}}
}

func (s *downstreamMetadataStore) SetState(_ context.Context, identity string, serverURL string, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.records[identity]
	record.Identity = identity
	record.ServerURL = serverURL
	record.RefreshToken = token
	record.MarkedForRemoval = false
	s.records[identity] = record
	return nil
}

func (s *downstreamMetadataStore) MarkForRemoval(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[identity]
	if !ok {
		return nil
	}
	record.MarkedForRemoval = true
	s.records[identity] = record
	return nil
}

func (s *downstreamMetadataStore) Get(_ context.Context, identity string) (syncauth.UserMetadata, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[identity]
	return record, ok, nil
}

func (s *downstreamMetadataStore) snapshot(identity string) (syncauth.UserMetadata, bool) {
	record, ok, _ := s.Get(context.Background(), identity)
	return record, ok
}

type downstreamCredentialPanel struct {
	state func() core.UserState
	token func() string
}

var (
	_ downstreamController         = (*syncauth.Facade)(nil)
	_ syncauth.MetadataStore       = (*downstreamMetadataStore)(nil)
	_ syncauthquery.MetadataReader = (*downstreamMetadataStore)(nil)
	_ core.Session                 = (*downstreamSession)(nil)
	_ core.Revivable               = (*downstreamSession)(nil)
)
