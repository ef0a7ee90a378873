package view

import (
	"log/slog"
	"sync"
	"time"
)

// Controllers idle for this long are dropped on the next sweep. A dropped
// controller only loses its view cache; the next request rebuilds it.
const staleControllerAge = time.Hour

// Registry hands out one Controller per user session.
type Registry struct {
	store  WishlistStore
	logger *slog.Logger

	// now is swappable so tests can age entries.
	now func() time.Time

	mu          sync.Mutex
	controllers map[string]*registryEntry
}

type registryEntry struct {
	controller *Controller
	lastUsed   time.Time
}

// NewRegistry creates an empty registry backed by the given store.
func NewRegistry(st WishlistStore, logger *slog.Logger) *Registry {
	return &Registry{
		store:       st,
		logger:      logger,
		now:         time.Now,
		controllers: make(map[string]*registryEntry),
	}
}

// For returns the user's controller, creating it on first use.
func (r *Registry) For(userID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()

	e, ok := r.controllers[userID]
	if !ok {
		e = &registryEntry{controller: NewController(r.store, userID, r.logger)}
		r.controllers[userID] = e
	}
	e.lastUsed = r.now()
	return e.controller
}

// Drop discards the user's controller, if any. Called on logout.
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.controllers, userID)
}

func (r *Registry) pruneLocked() {
	cutoff := r.now().Add(-staleControllerAge)
	for id, e := range r.controllers {
		if e.lastUsed.Before(cutoff) {
			delete(r.controllers, id)
		}
	}
}
