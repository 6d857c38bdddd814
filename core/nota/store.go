package nota

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/e-docBR/colaboraEdu-produc/core"
	"github.com/e-docBR/colaboraEdu-produc/core/session"
)

var nowFunc = time.Now // mockable

// Snapshot is the state of one scope's records as last loaded.
// Items must be treated as read-only: they are shared with every reader of the same version.
type Snapshot struct {
	Scope      session.Scope
	Items      []Nota
	Version    uint64 // changes only when Items change; 0 means nothing was ever loaded
	FetchedAt  time.Time
	IsLoading  bool // no data yet and a fetch is in flight
	IsFetching bool // a fetch is in flight
	Err        error
}

func (s Snapshot) IsError() bool { return s.Err != nil }

type entry struct {
	snap Snapshot
	sess session.Session // last session seen for the scope, used by RefreshAll
}

// Store caches the records of every active scope and tracks their fetch lifecycle.
// Concurrent loads of the same scope share one repository call.
type Store struct {
	repo       Repository
	logger     core.Logger
	staleAfter time.Duration

	group singleflight.Group

	mu      sync.RWMutex
	entries map[session.Scope]*entry
	version uint64
}

// NewStore returns a Store. A staleAfter <= 0 means loaded data never goes stale.
func NewStore(repo Repository, logger core.Logger, staleAfter time.Duration) *Store {
	return &Store{
		repo:       repo,
		logger:     logger,
		staleAfter: staleAfter,
		entries:    make(map[session.Scope]*entry),
	}
}

// Peek returns the current snapshot of scope without loading anything.
func (s *Store) Peek(scope session.Scope) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[scope]
	if !ok {
		return Snapshot{Scope: scope}, false
	}
	return e.snap, true
}

// Load returns the records of the session's scope, fetching them when missing, stale or failed.
// Fetch failures are reported in Snapshot.Err, alongside the last good Items if any.
func (s *Store) Load(ctx context.Context, sess session.Session) (Snapshot, error) {
	if err := sess.Valid(); err != nil {
		return Snapshot{}, err
	}
	if snap, ok := s.Peek(sess.Scope); ok && s.isFresh(snap) {
		return snap, nil
	}
	return s.Refresh(ctx, sess)
}

// Prefetch starts loading the session's scope in the background and returns the current snapshot.
func (s *Store) Prefetch(sess session.Session) (Snapshot, error) {
	if err := sess.Valid(); err != nil {
		return Snapshot{}, err
	}
	snap, ok := s.Peek(sess.Scope)
	if !ok || !s.isFresh(snap) {
		s.markFetching(sess)
		go func() {
			if _, err := s.Refresh(context.Background(), sess); err != nil {
				s.logger.Warn(fmt.Sprintf("prefetching %s: %v", sess.Scope, err), err)
			}
		}()
		snap, _ = s.Peek(sess.Scope)
	}
	return snap, nil
}

// Refresh fetches the records of the session's scope regardless of their age.
// A system session fetches on behalf of the last user session seen for the scope, if still valid.
func (s *Store) Refresh(ctx context.Context, sess session.Session) (Snapshot, error) {
	if err := sess.Valid(); err != nil {
		return Snapshot{}, err
	}

	res, err, _ := s.group.Do(sess.Scope.String(), func() (interface{}, error) {
		items, err := s.repo.ListNotas(ctx, s.markFetching(sess))
		return s.commit(sess.Scope, items, err), nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return res.(Snapshot), nil
}

// RefreshAll refreshes every tracked scope with the last session seen for it.
// Scopes whose session expired are forgotten.
func (s *Store) RefreshAll(ctx context.Context) {
	for _, scope := range s.Scopes() {
		s.mu.RLock()
		e, ok := s.entries[scope]
		var sess session.Session
		if ok {
			sess = e.sess
		}
		s.mu.RUnlock()
		if !ok {
			continue
		}

		if err := sess.Valid(); err != nil {
			s.logger.Info(fmt.Sprintf("forgetting %s: %v", scope, err))
			s.Forget(scope)
			continue
		}
		if _, err := s.Refresh(ctx, sess); err != nil {
			s.logger.Warn(fmt.Sprintf("refreshing %s: %v", scope, err), err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Forget drops the scope's cached records.
func (s *Store) Forget(scope session.Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, scope)
}

// Scopes lists the tracked scopes, ordered by tenant then academic year.
func (s *Store) Scopes() []session.Scope {
	s.mu.RLock()
	scopes := make([]session.Scope, 0, len(s.entries))
	for scope := range s.entries {
		scopes = append(scopes, scope)
	}
	s.mu.RUnlock()

	sort.Slice(scopes, func(i, j int) bool {
		if scopes[i].TenantID != scopes[j].TenantID {
			return scopes[i].TenantID < scopes[j].TenantID
		}
		return scopes[i].AcademicYearID < scopes[j].AcademicYearID
	})
	return scopes
}

func (s *Store) isFresh(snap Snapshot) bool {
	if snap.Version == 0 || snap.Err != nil {
		return false
	}
	return s.staleAfter <= 0 || nowFunc().Sub(snap.FetchedAt) < s.staleAfter
}

// markFetching flags the scope as fetching and returns the session to fetch with.
func (s *Store) markFetching(sess session.Session) session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sess.Scope]
	if !ok {
		e = &entry{snap: Snapshot{Scope: sess.Scope}}
		s.entries[sess.Scope] = e
	}
	// keep the user's session over a system one: it carries the upstream token
	if !sess.IsSystem() || e.sess.ID == "" || e.sess.Valid() != nil {
		e.sess = sess
	}
	e.snap.IsFetching = true
	e.snap.IsLoading = e.snap.Version == 0
	return e.sess
}

func (s *Store) commit(scope session.Scope, items []Nota, err error) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[scope]
	if !ok { // forgotten while fetching: nothing is kept nor versioned
		snap := Snapshot{Scope: scope, FetchedAt: nowFunc()}
		if err != nil {
			snap.Err = errors.Wrap(err, "listing notas")
		}
		return snap
	}
	e.snap.IsFetching = false
	e.snap.IsLoading = false

	if err != nil {
		e.snap.Err = errors.Wrap(err, "listing notas")
		s.logger.Warn(fmt.Sprintf("loading notas for %s: %v", scope, err), err)
		return e.snap
	}

	if items == nil {
		items = []Nota{}
	}
	if e.snap.Version == 0 || !reflect.DeepEqual(e.snap.Items, items) {
		s.version++
		e.snap.Version = s.version
		e.snap.Items = items
	}
	e.snap.Err = nil
	e.snap.FetchedAt = nowFunc()
	return e.snap
}
