package core

import "sort"

// sessionRegistry keeps the endpoint-keyed session handles for one user:
// active holds sessions that should be live, waiting holds sessions parked
// while the user is logged out. The registry carries no lock of its own;
// every method must be called with the owning user's lock held. Dead handles
// are purged only as a side effect of access, never by an eager sweep.
type sessionRegistry struct {
	active  map[string]*SessionRef
	waiting map[string]*SessionRef
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		active:  map[string]*SessionRef{},
		waiting: map[string]*SessionRef{},
	}
}

// hasLive reports whether either collection holds a still-resolvable handle
// for the endpoint. Dead entries are left in place; a registration for the
// same endpoint overwrites them.
func (r *sessionRegistry) hasLive(url string) bool {
	if r == nil {
		return false
	}
	if ref, ok := r.active[url]; ok {
		if _, live := ref.Resolve(); live {
			return true
		}
	}
	if ref, ok := r.waiting[url]; ok {
		if _, live := ref.Resolve(); live {
			return true
		}
	}
	return false
}

func (r *sessionRegistry) storeActive(url string, ref *SessionRef) {
	if r == nil || ref == nil {
		return
	}
	r.active[url] = ref
}

func (r *sessionRegistry) storeWaiting(url string, ref *SessionRef) {
	if r == nil || ref == nil {
		return
	}
	r.waiting[url] = ref
}

// liveActive returns the resolvable, non-error sessions from the active set
// in endpoint order. Handles that no longer resolve, or whose target reports
// an error condition, are removed while iterating.
func (r *sessionRegistry) liveActive() []Session {
	sessions := make([]Session, 0, len(r.active))
	if r == nil {
		return sessions
	}
	for _, url := range sortedKeys(r.active) {
		session, live := r.active[url].Resolve()
		if !live || session.InErrorState() {
			delete(r.active, url)
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions
}

// lookupActive resolves the active handle for one endpoint, purging it when
// the target is gone. A resolvable session is returned even if it reports an
// error condition; only listings filter on that.
func (r *sessionRegistry) lookupActive(url string) (Session, bool) {
	if r == nil {
		return nil, false
	}
	ref, ok := r.active[url]
	if !ok {
		return nil, false
	}
	session, live := ref.Resolve()
	if !live {
		delete(r.active, url)
		return nil, false
	}
	return session, true
}

// promoteWaiting moves every still-resolvable waiting handle into the active
// set and clears the waiting set, returning the resolved sessions so the
// caller can revive them once the lock is released.
func (r *sessionRegistry) promoteWaiting() []Session {
	if r == nil {
		return nil
	}
	sessions := make([]Session, 0, len(r.waiting))
	for _, url := range sortedKeys(r.waiting) {
		ref := r.waiting[url]
		session, live := ref.Resolve()
		if !live {
			continue
		}
		r.active[url] = ref
		sessions = append(sessions, session)
	}
	r.waiting = map[string]*SessionRef{}
	return sessions
}

// parkActive moves every still-resolvable active handle into the waiting set
// and clears the active set, returning the resolved sessions so the caller
// can notify them of the logout while still holding the lock.
func (r *sessionRegistry) parkActive() []Session {
	if r == nil {
		return nil
	}
	sessions := make([]Session, 0, len(r.active))
	for _, url := range sortedKeys(r.active) {
		ref := r.active[url]
		session, live := ref.Resolve()
		if !live {
			continue
		}
		r.waiting[url] = ref
		sessions = append(sessions, session)
	}
	r.active = map[string]*SessionRef{}
	return sessions
}

func (r *sessionRegistry) activeCount() int {
	if r == nil {
		return 0
	}
	return len(r.active)
}

func (r *sessionRegistry) waitingCount() int {
	if r == nil {
		return 0
	}
	return len(r.waiting)
}

func sortedKeys(refs map[string]*SessionRef) []string {
	keys := make([]string, 0, len(refs))
	for key := range refs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
