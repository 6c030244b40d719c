package routes

import (
	"context"
	"errors"
	"sync"
)

// Resolver answers route questions from an in-process cache backed by a
// Store. Only found routes are cached; entries are never evicted.
type Resolver struct {
	store Store

	cacheMu sync.RWMutex
	cache   map[string]*Route

	// storeMu serializes store queries
	storeMu sync.Mutex
}

// NewResolver creates a resolver over store
func NewResolver(store Store) *Resolver {
	return &Resolver{
		store: store,
		cache: make(map[string]*Route),
	}
}

func cacheKey(departure, arrival string) string {
	return departure + "->" + arrival
}

// Lookup returns the route from departure to arrival, or (nil, nil) when
// there is none. Store failures are returned as errors.
func (r *Resolver) Lookup(ctx context.Context, departure, arrival string) (*Route, error) {
	key := cacheKey(departure, arrival)

	r.cacheMu.RLock()
	cached, ok := r.cache[key]
	r.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	r.storeMu.Lock()
	defer r.storeMu.Unlock()

	// another caller may have filled the entry while we waited
	r.cacheMu.RLock()
	cached, ok = r.cache[key]
	r.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	route, err := r.store.GetRoute(ctx, departure, arrival)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[key] = route
	r.cacheMu.Unlock()
	return route, nil
}

// Cached reports how many routes are held in the cache
func (r *Resolver) Cached() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
