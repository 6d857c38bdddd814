package relatorio

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"github.com/e-docBR/colaboraEdu-produc/core/nota"
	"github.com/e-docBR/colaboraEdu-produc/core/session"
)

const DefaultCacheSize = 256

type memoKey struct {
	scope   session.Scope
	version uint64
	slug    Slug
	filter  nota.Filter
}

// Engine derives reports from record snapshots and memoizes the rows.
// A result is reused while the snapshot version and the filter stay the same.
// It is safe for concurrent use.
type Engine struct {
	cache  *lru.Cache
	hits   uint64
	misses uint64
}

// NewEngine returns an Engine remembering up to size results (DefaultCacheSize when size <= 0).
func NewEngine(size int) (*Engine, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Engine{cache: cache}, nil
}

// Derive computes the report named by slug over snap's records.
// It returns false when slug is not a derived report; the caller must then query the server.
// The load flags of snap are forwarded unchanged.
func (e *Engine) Derive(slug Slug, snap nota.Snapshot, f nota.Filter) (Result, bool) {
	if !IsDerived(slug) {
		return newResult(nil, snap), false
	}
	if snap.Version == 0 { // nothing loaded yet
		return newResult(nil, snap), true
	}

	key := memoKey{scope: snap.Scope, version: snap.Version, slug: slug, filter: f}
	if v, ok := e.cache.Get(key); ok {
		atomic.AddUint64(&e.hits, 1)
		return newResult(v.([]Row), snap), true
	}
	atomic.AddUint64(&e.misses, 1)

	rows := Compute(slug, snap.Items, f)
	e.cache.Add(key, rows)
	return newResult(rows, snap), true
}

// Forget drops every memoized result of scope.
func (e *Engine) Forget(scope session.Scope) {
	for _, k := range e.cache.Keys() {
		if key, ok := k.(memoKey); ok && key.scope == scope {
			e.cache.Remove(k)
		}
	}
}

type Stats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

func (e *Engine) Stats() Stats {
	return Stats{
		Entries: e.cache.Len(),
		Hits:    atomic.LoadUint64(&e.hits),
		Misses:  atomic.LoadUint64(&e.misses),
	}
}
