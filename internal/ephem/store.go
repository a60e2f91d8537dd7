package ephem

import (
	"context"
	"sync"
)

// Result is the outcome of an asynchronous fetch.
type Result struct {
	Snapshot *Snapshot
	Err      error
}

// Store caches the latest snapshot for the session. The first successful
// load is kept until Clear.
type Store struct {
	loader Loader

	mu     sync.Mutex
	cached *Snapshot
}

// NewStore creates a store backed by loader.
func NewStore(loader Loader) *Store {
	return &Store{loader: loader}
}

// LoadLatest returns the cached snapshot, loading it on first use.
func (s *Store) LoadLatest(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	cached := s.cached
	s.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	snap, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil {
		s.cached = snap
	}
	return s.cached, nil
}

// Cached returns the cached snapshot without loading.
func (s *Store) Cached() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached
}

// Clear drops the cached snapshot.
func (s *Store) Clear() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// FetchAsync loads in the background. The channel receives exactly one
// Result and is then closed.
func (s *Store) FetchAsync(ctx context.Context) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		snap, err := s.LoadLatest(ctx)
		ch <- Result{Snapshot: snap, Err: err}
	}()
	return ch
}
