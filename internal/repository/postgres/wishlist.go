package postgres

import (
	"context"
	"fmt"

	"github.com/jfchinemerem/Threesixteen/internal/domain"
	"github.com/jfchinemerem/Threesixteen/internal/repository"
	apperrors "github.com/jfchinemerem/Threesixteen/pkg/errors"
)

// WishlistRepository implements repository.WishlistRepository using PostgreSQL.
type WishlistRepository struct {
	db DB
}

// NewWishlistRepository creates a new PostgreSQL-backed wishlist repository.
func NewWishlistRepository(db DB) *WishlistRepository {
	return &WishlistRepository{db: db}
}

// ListByUser returns the user's wishlists newest-created first, each carrying
// its items newest-added first.
func (r *WishlistRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Wishlist, error) {
	query := `
		SELECT id, title, description, is_private, user_id, created_at, updated_at
		FROM wishlists
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlists: %w", err)
	}
	defer rows.Close()

	var wishlists []*domain.Wishlist
	byID := make(map[string]*domain.Wishlist)
	var ids []string

	for rows.Next() {
		var w domain.Wishlist
		if err := rows.Scan(&w.ID, &w.Title, &w.Description, &w.IsPrivate, &w.UserID, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan wishlist: %w", err)
		}
		w.Items = []*domain.Item{}
		wishlists = append(wishlists, &w)
		byID[w.ID] = &w
		ids = append(ids, w.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wishlist rows: %w", err)
	}

	if wishlists == nil {
		return []*domain.Wishlist{}, nil
	}

	items, err := r.itemsForWishlists(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if w, ok := byID[item.WishlistID]; ok {
			w.Items = append(w.Items, item)
		}
	}

	return wishlists, nil
}

// GetByID returns a wishlist with its items.
func (r *WishlistRepository) GetByID(ctx context.Context, id string) (*domain.Wishlist, error) {
	query := `
		SELECT id, title, description, is_private, user_id, created_at, updated_at
		FROM wishlists
		WHERE id = $1`

	var w domain.Wishlist
	err := r.db.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.Title, &w.Description, &w.IsPrivate, &w.UserID, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("wishlist", id)
		}
		return nil, fmt.Errorf("get wishlist: %w", err)
	}

	w.Items = []*domain.Item{}
	items, err := r.itemsForWishlists(ctx, []string{w.ID})
	if err != nil {
		return nil, err
	}
	w.Items = items

	return &w, nil
}

// Create inserts the wishlist and its items in a single transaction.
func (r *WishlistRepository) Create(ctx context.Context, w *domain.Wishlist) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create wishlist: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insertWishlist := `
		INSERT INTO wishlists (title, description, is_private, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRow(ctx, insertWishlist, w.Title, w.Description, w.IsPrivate, w.UserID).
		Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert wishlist: %w", err)
	}

	insertItem := `
		INSERT INTO wishlist_items (wishlist_id, name, price, image, url, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, added_at`

	for _, item := range w.Items {
		item.WishlistID = w.ID
		err = tx.QueryRow(ctx, insertItem, w.ID, item.Name, item.Price, item.Image, item.URL, item.Notes).
			Scan(&item.ID, &item.AddedAt)
		if err != nil {
			return fmt.Errorf("insert wishlist item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create wishlist: %w", err)
	}

	return nil
}

// Update applies a partial update. Nil fields keep their stored values.
func (r *WishlistRepository) Update(ctx context.Context, id string, update repository.WishlistUpdate) error {
	query := `
		UPDATE wishlists
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    is_private = COALESCE($4, is_private),
		    updated_at = NOW()
		WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id, update.Title, update.Description, update.IsPrivate)
	if err != nil {
		return fmt.Errorf("update wishlist: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("wishlist", id)
	}

	return nil
}

// Delete removes the wishlist. Items cascade at the schema level.
func (r *WishlistRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM wishlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete wishlist: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("wishlist", id)
	}

	return nil
}

// AddItem inserts an item into an existing wishlist.
func (r *WishlistRepository) AddItem(ctx context.Context, item *domain.Item) error {
	query := `
		INSERT INTO wishlist_items (wishlist_id, name, price, image, url, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, added_at`

	err := r.db.QueryRow(ctx, query, item.WishlistID, item.Name, item.Price, item.Image, item.URL, item.Notes).
		Scan(&item.ID, &item.AddedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NotFound("wishlist", item.WishlistID)
		}
		return fmt.Errorf("insert wishlist item: %w", err)
	}

	return nil
}

// RemoveItem deletes an item and reports which wishlist it belonged to.
func (r *WishlistRepository) RemoveItem(ctx context.Context, itemID string) (string, error) {
	query := `DELETE FROM wishlist_items WHERE id = $1 RETURNING wishlist_id`

	var wishlistID string
	err := r.db.QueryRow(ctx, query, itemID).Scan(&wishlistID)
	if err != nil {
		if isNoRows(err) {
			return "", apperrors.NotFound("wishlist item", itemID)
		}
		return "", fmt.Errorf("remove wishlist item: %w", err)
	}

	return wishlistID, nil
}

func (r *WishlistRepository) itemsForWishlists(ctx context.Context, wishlistIDs []string) ([]*domain.Item, error) {
	query := `
		SELECT id, wishlist_id, name, price, image, url, notes, added_at
		FROM wishlist_items
		WHERE wishlist_id = ANY($1::uuid[])
		ORDER BY added_at DESC`

	rows, err := r.db.Query(ctx, query, wishlistIDs)
	if err != nil {
		return nil, fmt.Errorf("list wishlist items: %w", err)
	}
	defer rows.Close()

	items := []*domain.Item{}
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.ID, &item.WishlistID, &item.Name, &item.Price, &item.Image, &item.URL, &item.Notes, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wishlist item rows: %w", err)
	}

	return items, nil
}
