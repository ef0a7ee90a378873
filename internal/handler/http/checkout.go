package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jfchinemerem/Threesixteen/internal/checkout"
	"github.com/jfchinemerem/Threesixteen/internal/view"
	apperrors "github.com/jfchinemerem/Threesixteen/pkg/errors"
	"github.com/jfchinemerem/Threesixteen/pkg/httputil"
	"github.com/jfchinemerem/Threesixteen/pkg/middleware"
)

// CheckoutHandler drives payment attempts. The endpoints are public so
// shared-view visitors can purchase; signed-in users reuse their account
// identity and e-mail, guests get a per-attempt session id instead.
type CheckoutHandler struct {
	orchestrator *checkout.Orchestrator
	store        view.WishlistStore
	logger       *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(o *checkout.Orchestrator, st view.WishlistStore, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{orchestrator: o, store: st, logger: logger}
}

// BeginCheckoutRequest is the JSON body for opening a checkout review.
// Empty item_ids selects every item of the wishlist.
type BeginCheckoutRequest struct {
	WishlistID string   `json:"wishlist_id" validate:"required"`
	ItemIDs    []string `json:"item_ids"`
	PayerEmail string   `json:"payer_email" validate:"omitempty,email"`
}

// SuccessRequest is the JSON body for the widget's success callback.
type SuccessRequest struct {
	Reference string `json:"reference" validate:"required"`
}

// CheckoutResponse pairs the session id with the current attempt.
type CheckoutResponse struct {
	SessionID string           `json:"session_id"`
	Attempt   checkout.Attempt `json:"attempt"`
}

// Begin handles POST /api/v1/checkout.
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	var req BeginCheckoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	payerEmail := req.PayerEmail
	if payerEmail == "" {
		payerEmail = middleware.EmailFromContext(r.Context())
	}
	if payerEmail == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("payer email is required"), h.logger)
		return
	}

	wishlist, err := h.store.Get(r.Context(), req.WishlistID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	// Signed-in users key their session by account id, which also binds the
	// session to them. Guests get an unguessable per-attempt id.
	ownerID := middleware.UserIDFromContext(r.Context())
	sessionID := ownerID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	attempt, err := h.orchestrator.Begin(sessionID, ownerID, payerEmail, wishlist, req.ItemIDs)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{
		Data: CheckoutResponse{SessionID: sessionID, Attempt: attempt},
	})
}

// sessionFromRequest resolves the path's session id and checks the caller
// may act on it. A foreign caller gets a not-found error, never a hint that
// the session exists.
func (h *CheckoutHandler) sessionFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.orchestrator.Authorize(sessionID, middleware.UserIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return "", false
	}
	return sessionID, true
}

// State handles GET /api/v1/checkout/{sessionID}.
func (h *CheckoutHandler) State(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: CheckoutResponse{SessionID: sessionID, Attempt: h.orchestrator.State(sessionID)},
	})
}

// Pay handles POST /api/v1/checkout/{sessionID}/pay.
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	attempt, err := h.orchestrator.Pay(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: CheckoutResponse{SessionID: sessionID, Attempt: attempt},
	})
}

// Success handles POST /api/v1/checkout/{sessionID}/success, the widget's
// success callback.
func (h *CheckoutHandler) Success(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req SuccessRequest
	if !decodeBody(w, r, &req) {
		return
	}

	attempt, err := h.orchestrator.HandleSuccess(r.Context(), sessionID, req.Reference)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: CheckoutResponse{SessionID: sessionID, Attempt: attempt},
	})
}

// Close handles POST /api/v1/checkout/{sessionID}/close, the widget's
// dismissal callback.
func (h *CheckoutHandler) Close(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	attempt, err := h.orchestrator.HandleClose(sessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: CheckoutResponse{SessionID: sessionID, Attempt: attempt},
	})
}
