package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidUserStateTransition = errors.New("core: invalid user state transition")
	ErrInvalidMetadataUpdateKind  = errors.New("core: invalid metadata update kind")
)

type UserState string

const (
	UserStateActive    UserState = "active"
	UserStateLoggedOut UserState = "logged_out"
	UserStateError     UserState = "error"
)

// TransitionTo validates a state change against the machine and returns the
// next state. Same-state moves are permitted so repeated operations stay
// idempotent.
func (s UserState) TransitionTo(next UserState) (UserState, error) {
	if !UserStateTransitionAllowed(s, next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidUserStateTransition, s, next)
	}
	return next, nil
}

// UserStateTransitionAllowed reports whether the state machine permits
// moving from current to next. Error is terminal: once entered, the only
// transition the machine accepts is the idempotent Error -> Error.
func UserStateTransitionAllowed(current, next UserState) bool {
	if current == next {
		return true
	}
	allowed := map[UserState]map[UserState]struct{}{
		UserStateActive: {
			UserStateLoggedOut: {},
			UserStateError:     {},
		},
		UserStateLoggedOut: {
			UserStateActive: {},
			UserStateError:  {},
		},
		UserStateError: {},
	}
	_, ok := allowed[current][next]
	return ok
}

type MetadataUpdateKind string

const (
	MetadataUpdateSetState       MetadataUpdateKind = "set_state"
	MetadataUpdateMarkForRemoval MetadataUpdateKind = "mark_for_removal"
)

// MetadataUpdate is one unit of persisted-credential maintenance staged by a
// user transition. Updates are applied against the metadata store at the
// updater's discretion, synchronously or deferred.
type MetadataUpdate struct {
	Identity  string
	Kind      MetadataUpdateKind
	ServerURL string
	Token     string
}

func (m MetadataUpdate) Validate() error {
	if strings.TrimSpace(m.Identity) == "" {
		return fmt.Errorf("core: metadata update identity is required")
	}
	switch m.Kind {
	case MetadataUpdateSetState, MetadataUpdateMarkForRemoval:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMetadataUpdateKind, m.Kind)
	}
}

// UserMetadata is the read model of one persisted credential record.
type UserMetadata struct {
	Identity         string
	ServerURL        string
	RefreshToken     string
	MarkedForRemoval bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
