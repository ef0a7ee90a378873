package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfchinemerem/Threesixteen/internal/domain"
	"github.com/jfchinemerem/Threesixteen/internal/event"
	"github.com/jfchinemerem/Threesixteen/internal/repository"
	apperrors "github.com/jfchinemerem/Threesixteen/pkg/errors"
)

type fakeRepo struct {
	wishlists map[string]*domain.Wishlist
	nextID    int

	listErr   error
	createErr error
	updateErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{wishlists: make(map[string]*domain.Wishlist)}
}

func (r *fakeRepo) ListByUser(_ context.Context, userID string) ([]*domain.Wishlist, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := []*domain.Wishlist{}
	for _, w := range r.wishlists {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*domain.Wishlist, error) {
	w, ok := r.wishlists[id]
	if !ok {
		return nil, apperrors.NotFound("wishlist", id)
	}
	return w, nil
}

func (r *fakeRepo) Create(_ context.Context, w *domain.Wishlist) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	w.ID = fmt.Sprintf("w-%d", r.nextID)
	for i, item := range w.Items {
		item.ID = fmt.Sprintf("%s-i-%d", w.ID, i+1)
		item.WishlistID = w.ID
	}
	r.wishlists[w.ID] = w
	return nil
}

func (r *fakeRepo) Update(_ context.Context, id string, update repository.WishlistUpdate) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	w, ok := r.wishlists[id]
	if !ok {
		return apperrors.NotFound("wishlist", id)
	}
	if update.Title != nil {
		w.Title = *update.Title
	}
	if update.Description != nil {
		w.Description = *update.Description
	}
	if update.IsPrivate != nil {
		w.IsPrivate = *update.IsPrivate
	}
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.wishlists[id]; !ok {
		return apperrors.NotFound("wishlist", id)
	}
	delete(r.wishlists, id)
	return nil
}

func (r *fakeRepo) AddItem(_ context.Context, item *domain.Item) error {
	w, ok := r.wishlists[item.WishlistID]
	if !ok {
		return apperrors.NotFound("wishlist", item.WishlistID)
	}
	r.nextID++
	item.ID = fmt.Sprintf("i-%d", r.nextID)
	w.Items = append([]*domain.Item{item}, w.Items...)
	return nil
}

func (r *fakeRepo) RemoveItem(_ context.Context, itemID string) (string, error) {
	for _, w := range r.wishlists {
		for i, item := range w.Items {
			if item.ID == itemID {
				w.Items = append(w.Items[:i], w.Items[i+1:]...)
				return w.ID, nil
			}
		}
	}
	return "", apperrors.NotFound("wishlist item", itemID)
}

type fakeCache struct {
	lists map[string][]*domain.Wishlist

	getErr error
	setErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{lists: make(map[string][]*domain.Wishlist)}
}

func (c *fakeCache) GetList(_ context.Context, userID string) ([]*domain.Wishlist, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.lists[userID], nil
}

func (c *fakeCache) SetList(_ context.Context, userID string, wishlists []*domain.Wishlist) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.lists[userID] = wishlists
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, userID string) error {
	delete(c.lists, userID)
	return nil
}

type recordedEvent struct {
	EventType   string
	AggregateID string
	Data        any
}

type recordingPublisher struct {
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, aggregateID, _ string, data any) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, recordedEvent{EventType: eventType, AggregateID: aggregateID, Data: data})
	return nil
}

func newStoreTestFixture(t *testing.T) (*Store, *fakeRepo, *fakeCache, *recordingPublisher) {
	t.Helper()
	repo := newFakeRepo()
	cache := newFakeCache()
	pub := &recordingPublisher{}
	s := New(repo, cache, pub, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return s, repo, cache, pub
}

func seedWishlist(t *testing.T, repo *fakeRepo, userID string, items int) *domain.Wishlist {
	t.Helper()
	w := &domain.Wishlist{Title: "Birthday", UserID: userID}
	for i := 0; i < items; i++ {
		w.Items = append(w.Items, &domain.Item{Name: fmt.Sprintf("Item %d", i+1), Price: 10})
	}
	require.NoError(t, repo.Create(context.Background(), w))
	return w
}

func TestStore_List_CacheMissHydrates(t *testing.T) {
	s, repo, cache, _ := newStoreTestFixture(t)
	ctx := context.Background()
	seedWishlist(t, repo, "u-1", 1)

	got, err := s.List(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, cache.lists["u-1"], 1)
}

func TestStore_List_ServedFromCache(t *testing.T) {
	s, repo, cache, _ := newStoreTestFixture(t)
	ctx := context.Background()

	cache.lists["u-1"] = []*domain.Wishlist{{ID: "cached", UserID: "u-1"}}
	repo.listErr = errors.New("postgres down")

	got, err := s.List(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cached", got[0].ID)
}

func TestStore_List_CacheFailureFallsThrough(t *testing.T) {
	s, repo, cache, _ := newStoreTestFixture(t)
	ctx := context.Background()
	seedWishlist(t, repo, "u-1", 0)
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")

	got, err := s.List(ctx, "u-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_List_EmptyIsNotAnError(t *testing.T) {
	s, _, _, _ := newStoreTestFixture(t)

	got, err := s.List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_Create_WithItems(t *testing.T) {
	s, _, cache, pub := newStoreTestFixture(t)
	ctx := context.Background()
	cache.lists["u-1"] = []*domain.Wishlist{}

	w, err := s.Create(ctx, "u-1", CreateInput{
		Title: "Wedding",
		Items: []ItemInput{{Name: "Blender", Price: 59.99}, {Name: "Toaster", Price: 24.5}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, w.ID)
	require.Len(t, w.Items, 2)
	assert.Equal(t, w.ID, w.Items[0].WishlistID)

	_, stillCached := cache.lists["u-1"]
	assert.False(t, stillCached, "create must invalidate the owner's listing cache")

	require.Len(t, pub.events, 1)
	assert.Equal(t, event.TypeWishlistCreated, pub.events[0].EventType)
	data, ok := pub.events[0].Data.(event.WishlistEventData)
	require.True(t, ok)
	assert.Equal(t, 2, data.ItemCount)
}

func TestStore_Create_RepoFailurePublishesNothing(t *testing.T) {
	s, repo, _, pub := newStoreTestFixture(t)
	repo.createErr = errors.New("insert failed")

	_, err := s.Create(context.Background(), "u-1", CreateInput{Title: "Wedding"})
	require.Error(t, err)
	assert.Empty(t, pub.events)
}

func TestStore_Get_NormalizesID(t *testing.T) {
	s, repo, _, _ := newStoreTestFixture(t)
	w := seedWishlist(t, repo, "u-1", 0)

	got, err := s.Get(context.Background(), "  "+w.ID+"  ")
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
}

func TestStore_Get_NotFound(t *testing.T) {
	s, _, _, _ := newStoreTestFixture(t)

	_, err := s.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestStore_Update_InvalidatesAndPublishes(t *testing.T) {
	s, repo, cache, pub := newStoreTestFixture(t)
	ctx := context.Background()
	w := seedWishlist(t, repo, "u-1", 1)
	cache.lists["u-1"] = []*domain.Wishlist{w}

	title := "Renamed"
	got, err := s.Update(ctx, w.ID, UpdateInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	_, stillCached := cache.lists["u-1"]
	assert.False(t, stillCached)
	require.Len(t, pub.events, 1)
	assert.Equal(t, event.TypeWishlistUpdated, pub.events[0].EventType)
}

func TestStore_Update_NotFound(t *testing.T) {
	s, _, _, pub := newStoreTestFixture(t)

	title := "Renamed"
	_, err := s.Update(context.Background(), "missing", UpdateInput{Title: &title})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Empty(t, pub.events)
}

func TestStore_Delete(t *testing.T) {
	s, repo, cache, pub := newStoreTestFixture(t)
	ctx := context.Background()
	w := seedWishlist(t, repo, "u-1", 2)
	cache.lists["u-1"] = []*domain.Wishlist{w}

	require.NoError(t, s.Delete(ctx, w.ID))

	_, err := s.Get(ctx, w.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	_, stillCached := cache.lists["u-1"]
	assert.False(t, stillCached)
	require.Len(t, pub.events, 1)
	assert.Equal(t, event.TypeWishlistDeleted, pub.events[0].EventType)
}

func TestStore_AddItem(t *testing.T) {
	s, repo, cache, pub := newStoreTestFixture(t)
	ctx := context.Background()
	w := seedWishlist(t, repo, "u-1", 0)
	cache.lists["u-1"] = []*domain.Wishlist{w}

	item, err := s.AddItem(ctx, w.ID, ItemInput{Name: "Camera", Price: 499})
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, w.ID, item.WishlistID)

	_, stillCached := cache.lists["u-1"]
	assert.False(t, stillCached)
	require.Len(t, pub.events, 1)
	assert.Equal(t, event.TypeItemAdded, pub.events[0].EventType)
}

func TestStore_AddItem_WishlistMissing(t *testing.T) {
	s, _, _, pub := newStoreTestFixture(t)

	_, err := s.AddItem(context.Background(), "missing", ItemInput{Name: "Camera"})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Empty(t, pub.events)
}

func TestStore_RemoveItem(t *testing.T) {
	s, repo, cache, pub := newStoreTestFixture(t)
	ctx := context.Background()
	w := seedWishlist(t, repo, "u-1", 1)
	itemID := w.Items[0].ID
	cache.lists["u-1"] = []*domain.Wishlist{w}

	wishlistID, err := s.RemoveItem(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, wishlistID)
	assert.Empty(t, w.Items)

	_, stillCached := cache.lists["u-1"]
	assert.False(t, stillCached)
	require.Len(t, pub.events, 1)
	assert.Equal(t, event.TypeItemRemoved, pub.events[0].EventType)
}

func TestStore_RemoveItem_NotFound(t *testing.T) {
	s, _, _, _ := newStoreTestFixture(t)

	_, err := s.RemoveItem(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestStore_PublishFailureDoesNotFailMutation(t *testing.T) {
	s, _, _, pub := newStoreTestFixture(t)
	pub.err = errors.New("broker unreachable")

	w, err := s.Create(context.Background(), "u-1", CreateInput{Title: "Birthday"})
	require.NoError(t, err)
	assert.NotEmpty(t, w.ID)
}
