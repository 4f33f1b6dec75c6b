package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/career-engine/internal/platform/resilience"
)

// Store is an in-process TTL cache split into scopes, one per save.
// Invalidating a scope bumps its generation, so a load that started before
// the invalidation never writes its now stale value back.
type Store struct {
	mu     sync.Mutex
	scopes map[string]*scope
	ttl    time.Duration
	now    func() time.Time
	flight resilience.SingleFlight[any]
}

type scope struct {
	generation uint64
	entries    map[string]entry
}

type entry struct {
	value     any
	expiresAt time.Time
}

// NewStore keeps entries for ttl; ttl <= 0 keeps them until invalidated.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		scopes: make(map[string]*scope),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *Store) scopeLocked(name string) *scope {
	sc, ok := s.scopes[name]
	if !ok {
		sc = &scope{entries: make(map[string]entry)}
		s.scopes[name] = sc
	}
	return sc
}

func (s *Store) Get(_ context.Context, scopeName, key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scopes[scopeName]
	if !ok {
		return nil, false
	}
	e, ok := sc.entries[key]
	if !ok {
		return nil, false
	}
	if s.ttl > 0 && !e.expiresAt.After(s.now()) {
		delete(sc.entries, key)
		return nil, false
	}
	return e.value, true
}

// Invalidate drops every entry of the scope.
func (s *Store) Invalidate(_ context.Context, scopeName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc := s.scopeLocked(scopeName)
	sc.generation++
	clear(sc.entries)
}

// GetOrLoad returns the cached value or runs loader once for concurrent
// callers of the same key.
func (s *Store) GetOrLoad(ctx context.Context, scopeName, key string, loader func(context.Context) (any, error)) (any, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if value, ok := s.Get(ctx, scopeName, key); ok {
		return value, nil
	}

	s.mu.Lock()
	generation := s.scopeLocked(scopeName).generation
	s.mu.Unlock()

	value, err, _ := s.flight.Do(scopeName+"\x00"+key, func() (any, error) {
		if cached, ok := s.Get(ctx, scopeName, key); ok {
			return cached, nil
		}
		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		s.store(scopeName, key, loaded, generation)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Store) store(scopeName, key string, value any, generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc := s.scopeLocked(scopeName)
	if sc.generation != generation {
		return
	}
	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = s.now().Add(s.ttl)
	}
	sc.entries[key] = entry{value: value, expiresAt: expiresAt}
}
