package domain

import (
	"net/url"
	"strings"
	"time"
)

// Wishlist is a user-owned collection of gift items.
type Wishlist struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsPrivate   bool      `json:"is_private"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Items       []*Item   `json:"items"`
}

// Item is a single gift entry inside a wishlist. Price is in major currency
// units; MinorUnits converts for payment amounts.
type Item struct {
	ID         string    `json:"id"`
	WishlistID string    `json:"wishlist_id"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	Image      string    `json:"image,omitempty"`
	URL        string    `json:"url,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	AddedAt    time.Time `json:"added_at"`
}

// Total returns the sum of item prices in major units.
func (w *Wishlist) Total() float64 {
	var total float64
	for _, item := range w.Items {
		total += item.Price
	}
	return total
}

// TotalMinorUnits returns the sum of item prices converted to minor currency
// units (kobo for NGN), rounding each item to the nearest unit.
func (w *Wishlist) TotalMinorUnits() int64 {
	var total int64
	for _, item := range w.Items {
		total += int64(item.Price*100 + 0.5)
	}
	return total
}

// NormalizeID prepares an externally supplied wishlist or item id for lookup:
// URL-decode, then trim surrounding whitespace. Route params arrive
// percent-encoded when the id was embedded in a shared link.
func NormalizeID(raw string) string {
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		// Not valid percent-encoding; use the raw value as-is.
		decoded = raw
	}
	return strings.TrimSpace(decoded)
}
