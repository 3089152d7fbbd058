package core

import "sync"

// SessionRef is a non-owning handle to an externally-owned session. The
// session's owner receives the ref from RegisterSession and calls Release
// when the session is destroyed; from then on the ref no longer resolves and
// the registry drops it lazily on next access. A ref never extends the
// session's logical lifetime.
type SessionRef struct {
	mu      sync.Mutex
	session Session
}

func NewSessionRef(session Session) *SessionRef {
	return &SessionRef{session: session}
}

// Resolve returns the referenced session while it is still live.
func (r *SessionRef) Resolve() (Session, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil, false
	}
	return r.session, true
}

// Release marks the target as destroyed and drops the reference. Safe to
// call more than once and on a nil ref.
func (r *SessionRef) Release() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.session = nil
	r.mu.Unlock()
}

// ReviveIfNeeded asks a session to come back online when it supports
// revival. Safe to call with a nil session and on sessions that do not
// implement Revivable.
func ReviveIfNeeded(session Session) {
	if session == nil {
		return
	}
	if revivable, ok := session.(Revivable); ok {
		revivable.ReviveIfNeeded()
	}
}
