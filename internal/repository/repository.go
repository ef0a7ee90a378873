// Package repository defines the persistence interfaces the rest of the
// application depends on. Implementations live in subpackages.
package repository

import (
	"context"

	"github.com/jfchinemerem/Threesixteen/internal/domain"
)

// WishlistUpdate carries a partial update; nil fields are left unchanged.
type WishlistUpdate struct {
	Title       *string
	Description *string
	IsPrivate   *bool
}

// UserUpdate carries a partial profile update; nil fields are left unchanged.
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

// WishlistRepository persists wishlists and their items.
type WishlistRepository interface {
	// ListByUser returns the user's wishlists newest-created first, each with
	// items newest-added first. Returns an empty slice when the user has none.
	ListByUser(ctx context.Context, userID string) ([]*domain.Wishlist, error)

	// GetByID returns a wishlist with its items, or apperrors.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Wishlist, error)

	// Create inserts the wishlist and all of its items in one transaction and
	// fills in generated ids and timestamps.
	Create(ctx context.Context, w *domain.Wishlist) error

	// Update applies a partial update and stamps updated_at.
	Update(ctx context.Context, id string, update WishlistUpdate) error

	// Delete removes the wishlist; items go with it via ON DELETE CASCADE.
	Delete(ctx context.Context, id string) error

	// AddItem inserts an item and fills in its generated id and added_at.
	AddItem(ctx context.Context, item *domain.Item) error

	// RemoveItem deletes an item and returns the id of the wishlist it
	// belonged to.
	RemoveItem(ctx context.Context, itemID string) (wishlistID string, err error)
}

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, id string, update UserUpdate) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// RefreshTokenRepository persists hashed refresh tokens.
type RefreshTokenRepository interface {
	Create(ctx context.Context, t *domain.RefreshToken) error

	// FindValid returns the stored token matching the hash if it has not been
	// revoked or expired.
	FindValid(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// RevokeAllForUser marks every live token for the user as revoked.
	RevokeAllForUser(ctx context.Context, userID string) error
}
