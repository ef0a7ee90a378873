// Package view holds per-user session view state: the cached wishlist
// overview, the selected wishlist detail, and the mode the user is in.
// Overlapping fetches are sequence-tagged per state slot so only the most
// recently requested fetch lands; stale responses are discarded.
package view

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jfchinemerem/Threesixteen/internal/domain"
	"github.com/jfchinemerem/Threesixteen/internal/store"
	apperrors "github.com/jfchinemerem/Threesixteen/pkg/errors"
)

// Mode is the view the user currently sees.
type Mode string

const (
	ModeOverview       Mode = "overview"
	ModeLoadingDetail  Mode = "loading-detail"
	ModeDetail         Mode = "detail"
	ModeDetailNotFound Mode = "detail-not-found"
	ModeCreating       Mode = "creating"
)

// WishlistStore is the storage surface the controller drives.
type WishlistStore interface {
	List(ctx context.Context, userID string) ([]*domain.Wishlist, error)
	Get(ctx context.Context, id string) (*domain.Wishlist, error)
	Create(ctx context.Context, userID string, in store.CreateInput) (*domain.Wishlist, error)
	Update(ctx context.Context, id string, in store.UpdateInput) (*domain.Wishlist, error)
	Delete(ctx context.Context, id string) error
	AddItem(ctx context.Context, wishlistID string, in store.ItemInput) (*domain.Item, error)
	RemoveItem(ctx context.Context, itemID string) (string, error)
}

// State is an immutable snapshot of a controller's view state.
type State struct {
	Mode          Mode               `json:"mode"`
	Wishlists     []*domain.Wishlist `json:"wishlists"`
	SelectedID    string             `json:"selected_id,omitempty"`
	Current       *domain.Wishlist   `json:"current,omitempty"`
	ListLoading   bool               `json:"list_loading"`
	DetailLoading bool               `json:"detail_loading"`
}

// Controller is the view-state hub for one user session. All methods are
// safe for concurrent use; fetches run outside the lock so overlapping
// requests proceed in parallel and settle by sequence.
type Controller struct {
	store  WishlistStore
	userID string
	logger *slog.Logger

	mu            sync.Mutex
	mode          Mode
	wishlists     []*domain.Wishlist
	selectedID    string
	current       *domain.Wishlist
	listLoading   bool
	detailLoading bool

	// Monotonic fetch tags, one per state slot. A response whose tag no
	// longer matches the latest issued tag for its slot is discarded.
	listSeq   uint64
	detailSeq uint64
}

// NewController creates a controller in overview mode with an empty cache.
func NewController(st WishlistStore, userID string, logger *slog.Logger) *Controller {
	return &Controller{
		store:     st,
		userID:    userID,
		logger:    logger,
		mode:      ModeOverview,
		wishlists: []*domain.Wishlist{},
	}
}

// Init populates the overview cache. The list-loading flag stays up until
// the fetch resolves either way, so an empty overview is never shown before
// the first response.
func (c *Controller) Init(ctx context.Context) (State, error) {
	return c.refreshList(ctx)
}

// Snapshot returns the current view state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Select resolves a wishlist into the detail slot. The overview cache is
// consulted first; only a miss goes remote. A fetch that loses the sequence
// race leaves the state as the winner set it.
func (c *Controller) Select(ctx context.Context, id string) (State, error) {
	id = domain.NormalizeID(id)

	c.mu.Lock()
	if w := c.findCachedLocked(id); w != nil {
		// A cache hit is a resolution too: bump the sequence so any remote
		// fetch still in flight is discarded instead of landing over this.
		c.detailSeq++
		c.selectedID = id
		c.current = w
		c.mode = ModeDetail
		c.detailLoading = false
		st := c.snapshotLocked()
		c.mu.Unlock()
		return st, nil
	}

	c.detailSeq++
	seq := c.detailSeq
	c.selectedID = id
	c.current = nil
	c.detailLoading = true
	c.mode = ModeLoadingDetail
	c.mu.Unlock()

	w, err := c.store.Get(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.detailSeq {
		// A later Select superseded this fetch.
		return c.snapshotLocked(), nil
	}

	c.detailLoading = false
	switch {
	case err == nil:
		c.current = w
		c.mode = ModeDetail
	case errors.Is(err, apperrors.ErrNotFound):
		c.current = nil
		c.mode = ModeDetailNotFound
	default:
		c.current = nil
		c.mode = ModeDetailNotFound
		c.logger.WarnContext(ctx, "wishlist detail fetch failed",
			slog.String("wishlist_id", id),
			slog.String("error", err.Error()),
		)
		return c.snapshotLocked(), err
	}

	return c.snapshotLocked(), nil
}

// Deselect returns to the overview and drops the detail slot. The overview
// cache is retained.
func (c *Controller) Deselect() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.detailSeq++
	c.selectedID = ""
	c.current = nil
	c.detailLoading = false
	c.mode = ModeOverview

	return c.snapshotLocked()
}

// BeginCreate switches to the creation form.
func (c *Controller) BeginCreate() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mode = ModeCreating
	return c.snapshotLocked()
}

// Create persists a new wishlist, re-fetches the overview, and lands on the
// new wishlist's detail.
func (c *Controller) Create(ctx context.Context, in store.CreateInput) (State, error) {
	w, err := c.store.Create(ctx, c.userID, in)
	if err != nil {
		return c.Snapshot(), err
	}

	if _, err := c.refreshList(ctx); err != nil {
		c.logger.WarnContext(ctx, "overview refresh after create failed",
			slog.String("error", err.Error()),
		)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.detailSeq++
	c.selectedID = w.ID
	c.current = w
	c.detailLoading = false
	c.mode = ModeDetail

	return c.snapshotLocked(), nil
}

// Update applies a partial update and re-fetches the affected wishlist.
func (c *Controller) Update(ctx context.Context, id string, in store.UpdateInput) (State, error) {
	if _, err := c.store.Update(ctx, id, in); err != nil {
		return c.Snapshot(), err
	}
	return c.refetchWishlist(ctx, id)
}

// AddItem adds an item and re-fetches the affected wishlist.
func (c *Controller) AddItem(ctx context.Context, wishlistID string, in store.ItemInput) (State, error) {
	if _, err := c.store.AddItem(ctx, wishlistID, in); err != nil {
		return c.Snapshot(), err
	}
	return c.refetchWishlist(ctx, wishlistID)
}

// RemoveItem removes an item and re-fetches the wishlist it belonged to.
func (c *Controller) RemoveItem(ctx context.Context, itemID string) (State, error) {
	wishlistID, err := c.store.RemoveItem(ctx, itemID)
	if err != nil {
		return c.Snapshot(), err
	}
	return c.refetchWishlist(ctx, wishlistID)
}

// Delete removes a wishlist, re-fetches the overview, and returns to it.
func (c *Controller) Delete(ctx context.Context, id string) (State, error) {
	if err := c.store.Delete(ctx, id); err != nil {
		return c.Snapshot(), err
	}

	c.mu.Lock()
	if c.selectedID == domain.NormalizeID(id) {
		c.detailSeq++
		c.selectedID = ""
		c.current = nil
		c.detailLoading = false
	}
	c.mode = ModeOverview
	c.mu.Unlock()

	return c.refreshList(ctx)
}

// refreshList re-fetches the overview under a list sequence tag.
func (c *Controller) refreshList(ctx context.Context) (State, error) {
	c.mu.Lock()
	c.listSeq++
	seq := c.listSeq
	c.listLoading = true
	c.mu.Unlock()

	wishlists, err := c.store.List(ctx, c.userID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.listSeq {
		return c.snapshotLocked(), nil
	}

	c.listLoading = false
	if err != nil {
		return c.snapshotLocked(), err
	}

	c.wishlists = wishlists
	return c.snapshotLocked(), nil
}

// refetchWishlist re-reads one wishlist after a mutation, replacing both the
// detail slot (when selected) and its overview cache entry. Read-your-writes
// comes from the re-fetch, never from patching local state.
func (c *Controller) refetchWishlist(ctx context.Context, id string) (State, error) {
	id = domain.NormalizeID(id)

	c.mu.Lock()
	c.detailSeq++
	seq := c.detailSeq
	c.mu.Unlock()

	w, err := c.store.Get(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.detailSeq {
		return c.snapshotLocked(), nil
	}

	if err != nil {
		return c.snapshotLocked(), err
	}

	for i, cached := range c.wishlists {
		if cached.ID == w.ID {
			c.wishlists[i] = w
			break
		}
	}
	if c.selectedID == id {
		c.current = w
		c.mode = ModeDetail
		c.detailLoading = false
	}

	return c.snapshotLocked(), nil
}

func (c *Controller) findCachedLocked(id string) *domain.Wishlist {
	for _, w := range c.wishlists {
		if w.ID == id {
			return w
		}
	}
	return nil
}

func (c *Controller) snapshotLocked() State {
	wishlists := make([]*domain.Wishlist, len(c.wishlists))
	copy(wishlists, c.wishlists)

	return State{
		Mode:          c.mode,
		Wishlists:     wishlists,
		SelectedID:    c.selectedID,
		Current:       c.current,
		ListLoading:   c.listLoading,
		DetailLoading: c.detailLoading,
	}
}
