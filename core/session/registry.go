package session

import (
	"sync"
	"time"
)

// Registry keeps the open sessions.
// Open is the login side of the lifecycle and Close the logout side;
// when the last session of a scope closes, the OnScopeClosed hooks run so that
// caches holding that scope's data can drop it.
// A closed session cannot be opened again until its token expires.
type Registry struct {
	key []byte

	mu       sync.RWMutex
	sessions map[string]Session
	scopes   map[Scope]int        // open sessions per scope
	closed   map[string]time.Time // closed session ids, until their expiry
	hooks    []func(Scope)
}

func NewRegistry(key []byte) *Registry {
	return &Registry{
		key:      key,
		sessions: make(map[string]Session),
		scopes:   make(map[Scope]int),
		closed:   make(map[string]time.Time),
	}
}

// OnScopeClosed registers fn to be called (outside the registry lock) when a scope loses its last session.
func (r *Registry) OnScopeClosed(fn func(Scope)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, fn)
}

// Open verifies the token and registers its Session. Opening the same token twice is a noop.
func (r *Registry) Open(token string) (Session, error) {
	sess, err := Parse(token, r.key)
	if err != nil {
		return Session{}, err
	}
	return r.add(sess)
}

// Add registers an already verified Session.
func (r *Registry) Add(sess Session) (Session, error) {
	if err := sess.Valid(); err != nil {
		return Session{}, err
	}
	return r.add(sess)
}

func (r *Registry) add(sess Session) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[sess.ID]; ok {
		return existing, nil
	}
	if _, ok := r.closed[sess.ID]; ok {
		return Session{}, ErrClosed
	}
	r.sessions[sess.ID] = sess
	r.scopes[sess.Scope]++
	return sess, nil
}

// Get returns the open Session with the given ID. Expired sessions are closed on access.
func (r *Registry) Get(id string) (Session, error) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return Session{}, ErrNotFound
	}
	if err := sess.Valid(); err != nil {
		_ = r.Close(id)
		return Session{}, err
	}
	return sess, nil
}

// Close removes the Session. It is the logout side of the lifecycle:
// the session's token is refused until it expires.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	delete(r.sessions, id)
	if sess.Valid() == nil {
		r.closed[id] = sess.ExpiresAt
	}

	var closed bool
	if r.scopes[sess.Scope]--; r.scopes[sess.Scope] <= 0 {
		delete(r.scopes, sess.Scope)
		closed = true
	}
	hooks := make([]func(Scope), len(r.hooks))
	copy(hooks, r.hooks)
	r.mu.Unlock()

	if closed {
		for _, fn := range hooks {
			fn(sess.Scope)
		}
	}
	return nil
}

// Prune closes every expired session and returns how many were closed.
// Closed ids whose token expired are forgotten.
func (r *Registry) Prune() int {
	now := NowFunc()
	r.mu.Lock()
	expired := make([]string, 0)
	for id, sess := range r.sessions {
		if sess.Valid() != nil {
			expired = append(expired, id)
		}
	}
	for id, exp := range r.closed {
		if !exp.IsZero() && now.After(exp) {
			delete(r.closed, id)
		}
	}
	r.mu.Unlock()

	for _, id := range expired {
		_ = r.Close(id)
	}
	return len(expired)
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
