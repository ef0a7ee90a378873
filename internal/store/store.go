// Package store implements the wishlist storage client: reads served through
// the redis listing cache, writes applied to PostgreSQL with cache
// invalidation and best-effort domain events.
package store

import (
	"context"
	"log/slog"

	"github.com/jfchinemerem/Threesixteen/internal/domain"
	"github.com/jfchinemerem/Threesixteen/internal/event"
	"github.com/jfchinemerem/Threesixteen/internal/repository"
)

// Cache is the listing-cache surface the store depends on.
type Cache interface {
	GetList(ctx context.Context, userID string) ([]*domain.Wishlist, error)
	SetList(ctx context.Context, userID string, wishlists []*domain.Wishlist) error
	Invalidate(ctx context.Context, userID string) error
}

// ItemInput describes an item to add.
type ItemInput struct {
	Name  string
	Price float64
	Image string
	URL   string
	Notes string
}

// CreateInput describes a wishlist to create, with any initial items.
type CreateInput struct {
	Title       string
	Description string
	IsPrivate   bool
	Items       []ItemInput
}

// UpdateInput carries a partial wishlist update; nil fields are unchanged.
type UpdateInput struct {
	Title       *string
	Description *string
	IsPrivate   *bool
}

// Store is the wishlist storage client.
type Store struct {
	repo   repository.WishlistRepository
	cache  Cache
	events event.Publisher
	logger *slog.Logger
}

// New creates a wishlist store.
func New(repo repository.WishlistRepository, cache Cache, events event.Publisher, logger *slog.Logger) *Store {
	return &Store{
		repo:   repo,
		cache:  cache,
		events: events,
		logger: logger,
	}
}

// List returns the user's wishlists newest-created first, items newest-added
// first. Serves the cached listing when warm, hydrating the cache on a miss.
// A user with no wishlists gets an empty slice, not an error.
func (s *Store) List(ctx context.Context, userID string) ([]*domain.Wishlist, error) {
	cached, err := s.cache.GetList(ctx, userID)
	if err != nil {
		// A broken cache must not take reads down; fall through to postgres.
		s.logger.WarnContext(ctx, "wishlist cache read failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	if cached != nil {
		return cached, nil
	}

	wishlists, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetList(ctx, userID, wishlists); err != nil {
		s.logger.WarnContext(ctx, "wishlist cache write failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return wishlists, nil
}

// Create inserts the wishlist and its initial items atomically. Either the
// wishlist and every item land, or nothing does.
func (s *Store) Create(ctx context.Context, userID string, in CreateInput) (*domain.Wishlist, error) {
	w := &domain.Wishlist{
		Title:       in.Title,
		Description: in.Description,
		IsPrivate:   in.IsPrivate,
		UserID:      userID,
		Items:       make([]*domain.Item, 0, len(in.Items)),
	}
	for _, item := range in.Items {
		w.Items = append(w.Items, &domain.Item{
			Name:  item.Name,
			Price: item.Price,
			Image: item.Image,
			URL:   item.URL,
			Notes: item.Notes,
		})
	}

	if err := s.repo.Create(ctx, w); err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	s.publish(ctx, event.TypeWishlistCreated, w.ID, event.AggregateWishlist, event.WishlistEventData{
		WishlistID: w.ID,
		UserID:     w.UserID,
		Title:      w.Title,
		ItemCount:  len(w.Items),
	})

	return w, nil
}

// Get returns a wishlist by id. The id is normalized (URL-decoded and
// trimmed) before lookup; a missing wishlist is apperrors.ErrNotFound,
// distinct from infrastructure failures.
func (s *Store) Get(ctx context.Context, id string) (*domain.Wishlist, error) {
	return s.repo.GetByID(ctx, domain.NormalizeID(id))
}

// Update applies a partial update and returns the refreshed wishlist.
func (s *Store) Update(ctx context.Context, id string, in UpdateInput) (*domain.Wishlist, error) {
	id = domain.NormalizeID(id)

	update := repository.WishlistUpdate{
		Title:       in.Title,
		Description: in.Description,
		IsPrivate:   in.IsPrivate,
	}
	if err := s.repo.Update(ctx, id, update); err != nil {
		return nil, err
	}

	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, w.UserID)
	s.publish(ctx, event.TypeWishlistUpdated, w.ID, event.AggregateWishlist, event.WishlistEventData{
		WishlistID: w.ID,
		UserID:     w.UserID,
		Title:      w.Title,
		ItemCount:  len(w.Items),
	})

	return w, nil
}

// Delete removes the wishlist; its items go with it.
func (s *Store) Delete(ctx context.Context, id string) error {
	id = domain.NormalizeID(id)

	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, w.UserID)
	s.publish(ctx, event.TypeWishlistDeleted, w.ID, event.AggregateWishlist, event.WishlistEventData{
		WishlistID: w.ID,
		UserID:     w.UserID,
		ItemCount:  len(w.Items),
	})

	return nil
}

// AddItem appends an item to an existing wishlist.
func (s *Store) AddItem(ctx context.Context, wishlistID string, in ItemInput) (*domain.Item, error) {
	wishlistID = domain.NormalizeID(wishlistID)

	w, err := s.repo.GetByID(ctx, wishlistID)
	if err != nil {
		return nil, err
	}

	item := &domain.Item{
		WishlistID: wishlistID,
		Name:       in.Name,
		Price:      in.Price,
		Image:      in.Image,
		URL:        in.URL,
		Notes:      in.Notes,
	}
	if err := s.repo.AddItem(ctx, item); err != nil {
		return nil, err
	}

	s.invalidate(ctx, w.UserID)
	s.publish(ctx, event.TypeItemAdded, wishlistID, event.AggregateWishlist, event.ItemEventData{
		WishlistID: wishlistID,
		ItemID:     item.ID,
		Name:       item.Name,
		Price:      item.Price,
	})

	return item, nil
}

// RemoveItem deletes an item and returns the id of the wishlist it belonged to.
func (s *Store) RemoveItem(ctx context.Context, itemID string) (string, error) {
	itemID = domain.NormalizeID(itemID)

	wishlistID, err := s.repo.RemoveItem(ctx, itemID)
	if err != nil {
		return "", err
	}

	if w, err := s.repo.GetByID(ctx, wishlistID); err == nil {
		s.invalidate(ctx, w.UserID)
	}
	s.publish(ctx, event.TypeItemRemoved, wishlistID, event.AggregateWishlist, event.ItemEventData{
		WishlistID: wishlistID,
		ItemID:     itemID,
	})

	return wishlistID, nil
}

func (s *Store) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "wishlist cache invalidation failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Store) publish(ctx context.Context, eventType, aggregateID, aggregateType string, data any) {
	if err := s.events.Publish(ctx, eventType, aggregateID, aggregateType, data); err != nil {
		s.logger.WarnContext(ctx, "domain event publish failed",
			slog.String("event_type", eventType),
			slog.String("aggregate_id", aggregateID),
			slog.String("error", err.Error()),
		)
	}
}
