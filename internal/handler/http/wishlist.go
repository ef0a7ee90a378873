package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jfchinemerem/Threesixteen/internal/domain"
	"github.com/jfchinemerem/Threesixteen/internal/share"
	"github.com/jfchinemerem/Threesixteen/internal/store"
	"github.com/jfchinemerem/Threesixteen/internal/view"
	apperrors "github.com/jfchinemerem/Threesixteen/pkg/errors"
	"github.com/jfchinemerem/Threesixteen/pkg/httputil"
	"github.com/jfchinemerem/Threesixteen/pkg/middleware"
)

// WishlistHandler handles wishlist CRUD, view state, and sharing.
type WishlistHandler struct {
	views  *view.Registry
	store  view.WishlistStore
	origin string
	logger *slog.Logger
}

// NewWishlistHandler creates a new wishlist HTTP handler. origin is the
// public origin share links are built against.
func NewWishlistHandler(views *view.Registry, st view.WishlistStore, origin string, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{views: views, store: st, origin: origin, logger: logger}
}

// ItemRequest is the JSON body for an item, inline in creation or standalone
// in the add-item flow.
type ItemRequest struct {
	Name  string  `json:"name" validate:"required,min=1,max=200"`
	Price float64 `json:"price" validate:"gte=0"`
	Image string  `json:"image" validate:"omitempty,url,max=2048"`
	URL   string  `json:"url" validate:"omitempty,url,max=2048"`
	Notes string  `json:"notes" validate:"max=1000"`
}

// CreateWishlistRequest is the JSON body for wishlist creation.
type CreateWishlistRequest struct {
	Title       string        `json:"title" validate:"required,min=1,max=200"`
	Description string        `json:"description" validate:"max=2000"`
	IsPrivate   bool          `json:"is_private"`
	Items       []ItemRequest `json:"items" validate:"dive"`
}

// UpdateWishlistRequest is the JSON body for a partial wishlist update.
type UpdateWishlistRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	IsPrivate   *bool   `json:"is_private,omitempty"`
}

// ShareResponse carries the canonical share link and social intents.
type ShareResponse struct {
	Link    string        `json:"link"`
	Targets share.Targets `json:"targets"`
}

// PublicWishlistResponse is the read-mode representation served to visitors.
type PublicWishlistResponse struct {
	Wishlist    *domain.Wishlist `json:"wishlist"`
	SharedView  bool             `json:"shared_view"`
	CanEdit     bool             `json:"can_edit"`
	CanPurchase bool             `json:"can_purchase"`
}

// List handles GET /api/v1/wishlists. It refreshes the session's overview
// and returns the view state.
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	state, err := c.Init(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: state})
}

// ViewState handles GET /api/v1/view.
func (h *WishlistHandler) ViewState(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: c.Snapshot()})
}

// Deselect handles POST /api/v1/view/deselect.
func (h *WishlistHandler) Deselect(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: c.Deselect()})
}

// Create handles POST /api/v1/wishlists.
func (h *WishlistHandler) Create(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	var req CreateWishlistRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in := store.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, store.ItemInput{
			Name:  item.Name,
			Price: item.Price,
			Image: item.Image,
			URL:   item.URL,
			Notes: item.Notes,
		})
	}

	state, err := c.Create(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: state})
}

// Get handles GET /api/v1/wishlists/{id}. A missing wishlist is reported as
// the detail-not-found view state, not a 404.
func (h *WishlistHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	state, err := c.Select(r.Context(), chi.URLParam(r, "id"))
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: state})
}

// Update handles PUT /api/v1/wishlists/{id}.
func (h *WishlistHandler) Update(w http.ResponseWriter, r *http.Request) {
	c, userID, ok := h.ownedController(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if !h.checkOwnership(w, r, id, userID) {
		return
	}

	var req UpdateWishlistRequest
	if !decodeBody(w, r, &req) {
		return
	}

	state, err := c.Update(r.Context(), id, store.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: state})
}

// Delete handles DELETE /api/v1/wishlists/{id}.
func (h *WishlistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, userID, ok := h.ownedController(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if !h.checkOwnership(w, r, id, userID) {
		return
	}

	state, err := c.Delete(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: state})
}

// AddItem handles POST /api/v1/wishlists/{id}/items.
func (h *WishlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	c, userID, ok := h.ownedController(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if !h.checkOwnership(w, r, id, userID) {
		return
	}

	var req ItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	state, err := c.AddItem(r.Context(), id, store.ItemInput{
		Name:  req.Name,
		Price: req.Price,
		Image: req.Image,
		URL:   req.URL,
		Notes: req.Notes,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: state})
}

// RemoveItem handles DELETE /api/v1/wishlists/{id}/items/{itemID}. The item
// must belong to the named wishlist, and the wishlist to the caller.
func (h *WishlistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, userID, ok := h.ownedController(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	itemID := domain.NormalizeID(chi.URLParam(r, "itemID"))

	wishlist, err := h.store.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if wishlist.UserID != userID {
		httputil.WriteError(w, r, apperrors.NotFound("wishlist", id), h.logger)
		return
	}

	var member bool
	for _, item := range wishlist.Items {
		if item.ID == itemID {
			member = true
			break
		}
	}
	if !member {
		httputil.WriteError(w, r, apperrors.NotFound("wishlist item", itemID), h.logger)
		return
	}

	state, err := c.RemoveItem(r.Context(), itemID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: state})
}

// Share handles GET /api/v1/wishlists/{id}/share.
func (h *WishlistHandler) Share(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "id")

	wishlist, err := h.store.Get(r.Context(), rawID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	link := share.BuildLink(h.origin, rawID)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ShareResponse{
		Link:    link,
		Targets: share.ShareTargets(link, wishlist.Title),
	}})
}

// Public handles GET /wishlist/{id}, the page a share link opens. In shared
// mode owner controls are suppressed and the purchase action is exposed.
func (h *WishlistHandler) Public(w http.ResponseWriter, r *http.Request) {
	wishlist, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	sharedView := share.IsSharedView(r.URL.Query())
	viewerID := middleware.UserIDFromContext(r.Context())
	isOwner := viewerID != "" && viewerID == wishlist.UserID

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: PublicWishlistResponse{
		Wishlist:    wishlist,
		SharedView:  sharedView,
		CanEdit:     isOwner && !sharedView,
		CanPurchase: sharedView || !isOwner,
	}})
}

func (h *WishlistHandler) controller(w http.ResponseWriter, r *http.Request) (*view.Controller, bool) {
	c, _, ok := h.ownedController(w, r)
	return c, ok
}

func (h *WishlistHandler) ownedController(w http.ResponseWriter, r *http.Request) (*view.Controller, string, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		httputil.WriteError(w, r, errUnauthenticated(), h.logger)
		return nil, "", false
	}
	return h.views.For(userID), userID, true
}

// checkOwnership resolves the wishlist and refuses mutation by anyone but
// the owner. A foreign wishlist reads as not found, matching the lookup
// response for a missing one.
func (h *WishlistHandler) checkOwnership(w http.ResponseWriter, r *http.Request, id, userID string) bool {
	wishlist, err := h.store.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return false
	}
	if wishlist.UserID != userID {
		httputil.WriteError(w, r, apperrors.NotFound("wishlist", id), h.logger)
		return false
	}
	return true
}
