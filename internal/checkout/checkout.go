// Package checkout drives one-shot payment attempts over a chosen subset of
// wishlist items. Each user session holds at most one attempt at a time;
// the attempt walks Idle -> Reviewing -> Processing and ends in Succeeded,
// Cancelled, or Failed. A new review may start from any terminal phase.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jfchinemerem/Threesixteen/internal/checkout/provider"
	"github.com/jfchinemerem/Threesixteen/internal/domain"
	"github.com/jfchinemerem/Threesixteen/internal/event"
	apperrors "github.com/jfchinemerem/Threesixteen/pkg/errors"
)

// Phase is a checkout attempt's position in its lifecycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseReviewing  Phase = "reviewing"
	PhaseProcessing Phase = "processing"
	PhaseSucceeded  Phase = "succeeded"
	PhaseCancelled  Phase = "cancelled"
	PhaseFailed     Phase = "failed"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "NGN"

// WidgetConfig is everything the payment widget needs to open.
type WidgetConfig struct {
	Key         string `json:"key"`
	Email       string `json:"email"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
	AccessCode  string `json:"access_code,omitempty"`
}

// Attempt is a snapshot of a session's checkout state.
type Attempt struct {
	Phase       Phase          `json:"phase"`
	WishlistID  string         `json:"wishlist_id,omitempty"`
	Items       []*domain.Item `json:"items,omitempty"`
	TotalMinor  int64          `json:"total_minor"`
	Currency    string         `json:"currency,omitempty"`
	PayerEmail  string         `json:"payer_email,omitempty"`
	Reference   string         `json:"reference,omitempty"`
	Widget      *WidgetConfig  `json:"widget,omitempty"`
	FailureNote string         `json:"failure_note,omitempty"`
}

// Sessions that are not processing and have not been touched for this long
// are dropped on the next sweep. Guest sessions are minted per attempt and
// would otherwise accumulate forever.
const staleSessionAge = time.Hour

type session struct {
	phase      Phase
	owner      string
	wishlistID string
	items      []*domain.Item
	totalMinor int64
	payerEmail string
	reference  string
	widget     *WidgetConfig
	failure    string
	updatedAt  time.Time
}

// Orchestrator manages checkout sessions, one per session key. Signed-in
// users key their session by user id; guests get an unguessable id minted
// by the transport layer.
type Orchestrator struct {
	provider  provider.Provider
	events    event.Publisher
	publicKey string
	currency  string
	logger    *slog.Logger

	// now is swappable so tests can pin references.
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates an orchestrator. An empty currency falls back to NGN.
func New(p provider.Provider, events event.Publisher, publicKey, currency string, logger *slog.Logger) *Orchestrator {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Orchestrator{
		provider:  p,
		events:    events,
		publicKey: publicKey,
		currency:  currency,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*session),
	}
}

// Begin opens a review over the chosen items of a wishlist. Empty itemIDs
// selects every item. The total is summed once here, in minor units, and is
// not re-read while the attempt is in flight. Beginning is refused while a
// previous attempt is still processing. A non-empty owner binds the session
// to that caller; an empty owner marks a guest session.
func (o *Orchestrator) Begin(sessionID, owner, payerEmail string, w *domain.Wishlist, itemIDs []string) (Attempt, error) {
	selected := selectItems(w.Items, itemIDs)

	var totalMinor int64
	for _, item := range selected {
		totalMinor += int64(item.Price*100 + 0.5)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.pruneLocked()

	if s := o.sessions[sessionID]; s != nil && s.phase == PhaseProcessing {
		return o.snapshotLocked(sessionID), apperrors.Conflict("a payment attempt is already processing")
	}

	o.sessions[sessionID] = &session{
		phase:      PhaseReviewing,
		owner:      owner,
		wishlistID: domain.NormalizeID(w.ID),
		items:      selected,
		totalMinor: totalMinor,
		payerEmail: payerEmail,
		updatedAt:  o.now(),
	}

	return o.snapshotLocked(sessionID), nil
}

// Authorize reports whether the caller may act on the session. A session
// begun by a signed-in user only answers to that user; guest sessions rely
// on their ids being unguessable. Unknown sessions pass, they resolve to an
// idle attempt downstream.
func (o *Orchestrator) Authorize(sessionID, callerID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.sessions[sessionID]
	if s != nil && s.owner != "" && s.owner != callerID {
		return apperrors.NotFound("checkout session", sessionID)
	}
	return nil
}

// Pay moves a reviewing attempt into processing: it mints a per-attempt
// reference, registers the attempt with the provider, and returns the widget
// configuration. A zero-item review is refused before the provider is
// touched. Provider failure lands in Failed, from which Begin may retry.
func (o *Orchestrator) Pay(ctx context.Context, sessionID string) (Attempt, error) {
	o.mu.Lock()
	s := o.sessions[sessionID]
	if s == nil || s.phase != PhaseReviewing {
		snap := o.snapshotLocked(sessionID)
		o.mu.Unlock()
		return snap, apperrors.Conflict("no checkout attempt under review")
	}
	if len(s.items) == 0 {
		snap := o.snapshotLocked(sessionID)
		o.mu.Unlock()
		return snap, apperrors.InvalidInput("cannot pay for an empty selection")
	}

	reference := fmt.Sprintf("wishlist_%s_%d", s.wishlistID, o.now().UnixMilli())
	s.phase = PhaseProcessing
	s.reference = reference
	s.updatedAt = o.now()
	input := &provider.InitializeInput{
		Email:       s.payerEmail,
		AmountMinor: s.totalMinor,
		Currency:    o.currency,
		Reference:   reference,
	}
	o.mu.Unlock()

	result, err := o.provider.Initialize(ctx, input)

	o.mu.Lock()
	defer o.mu.Unlock()

	// The session may have been replaced while the provider call ran.
	s = o.sessions[sessionID]
	if s == nil || s.reference != reference {
		return o.snapshotLocked(sessionID), nil
	}

	if err != nil {
		s.phase = PhaseFailed
		s.failure = "payment widget could not be loaded"
		s.updatedAt = o.now()
		o.logger.WarnContext(ctx, "payment initialization failed",
			slog.String("session_id", sessionID),
			slog.String("reference", reference),
			slog.String("error", err.Error()),
		)
		return o.snapshotLocked(sessionID), apperrors.PaymentFailed("payment widget could not be loaded")
	}

	s.widget = &WidgetConfig{
		Key:         o.publicKey,
		Email:       s.payerEmail,
		AmountMinor: s.totalMinor,
		Currency:    o.currency,
		Reference:   reference,
		AccessCode:  result.AccessCode,
	}

	return o.snapshotLocked(sessionID), nil
}

// HandleSuccess settles a processing attempt after the widget's success
// callback. The reference must match the in-flight attempt; the provider is
// asked to confirm before anything is trusted. Success publishes a
// checkout.succeeded event; items are never flagged purchased in storage.
func (o *Orchestrator) HandleSuccess(ctx context.Context, sessionID, reference string) (Attempt, error) {
	o.mu.Lock()
	s := o.sessions[sessionID]
	if s == nil || s.phase != PhaseProcessing {
		snap := o.snapshotLocked(sessionID)
		o.mu.Unlock()
		return snap, apperrors.Conflict("no payment attempt in flight")
	}
	if s.reference != reference {
		snap := o.snapshotLocked(sessionID)
		o.mu.Unlock()
		return snap, apperrors.InvalidInput("reference does not match the current attempt")
	}
	o.mu.Unlock()

	verified, err := o.provider.Verify(ctx, reference)

	o.mu.Lock()
	defer o.mu.Unlock()

	s = o.sessions[sessionID]
	if s == nil || s.reference != reference {
		return o.snapshotLocked(sessionID), nil
	}

	if err != nil || verified.Status != provider.StatusSuccess {
		s.phase = PhaseFailed
		s.failure = "payment could not be verified"
		s.updatedAt = o.now()
		if err != nil {
			o.logger.WarnContext(ctx, "payment verification failed",
				slog.String("reference", reference),
				slog.String("error", err.Error()),
			)
		}
		return o.snapshotLocked(sessionID), apperrors.PaymentFailed("payment could not be verified")
	}

	s.phase = PhaseSucceeded
	s.updatedAt = o.now()

	data := event.CheckoutSucceededData{
		WishlistID:  s.wishlistID,
		Reference:   reference,
		AmountMinor: s.totalMinor,
		Currency:    o.currency,
		PayerEmail:  s.payerEmail,
	}
	if err := o.events.Publish(ctx, event.TypeCheckoutSucceeded, s.wishlistID, event.AggregateWishlist, data); err != nil {
		o.logger.WarnContext(ctx, "checkout event publish failed",
			slog.String("reference", reference),
			slog.String("error", err.Error()),
		)
	}

	o.logger.InfoContext(ctx, "checkout succeeded",
		slog.String("session_id", sessionID),
		slog.String("wishlist_id", s.wishlistID),
		slog.String("reference", reference),
		slog.Int64("amount_minor", s.totalMinor),
	)

	return o.snapshotLocked(sessionID), nil
}

// HandleClose settles a processing attempt after the widget was dismissed.
// Closing is not an error.
func (o *Orchestrator) HandleClose(sessionID string) (Attempt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.sessions[sessionID]
	if s == nil || s.phase != PhaseProcessing {
		return o.snapshotLocked(sessionID), apperrors.Conflict("no payment attempt in flight")
	}

	s.phase = PhaseCancelled
	s.widget = nil
	s.updatedAt = o.now()

	return o.snapshotLocked(sessionID), nil
}

// State returns the session's current attempt, or an idle attempt when the
// session is unknown.
func (o *Orchestrator) State(sessionID string) Attempt {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pruneLocked()
	return o.snapshotLocked(sessionID)
}

// pruneLocked drops sessions that settled or idled long enough ago.
// Processing sessions are kept; the provider may still settle them.
func (o *Orchestrator) pruneLocked() {
	cutoff := o.now().Add(-staleSessionAge)
	for id, s := range o.sessions {
		if s.phase != PhaseProcessing && s.updatedAt.Before(cutoff) {
			delete(o.sessions, id)
		}
	}
}

func (o *Orchestrator) snapshotLocked(sessionID string) Attempt {
	s := o.sessions[sessionID]
	if s == nil {
		return Attempt{Phase: PhaseIdle}
	}

	items := make([]*domain.Item, len(s.items))
	copy(items, s.items)

	var widget *WidgetConfig
	if s.widget != nil {
		w := *s.widget
		widget = &w
	}

	return Attempt{
		Phase:       s.phase,
		WishlistID:  s.wishlistID,
		Items:       items,
		TotalMinor:  s.totalMinor,
		Currency:    o.currency,
		PayerEmail:  s.payerEmail,
		Reference:   s.reference,
		Widget:      widget,
		FailureNote: s.failure,
	}
}

// selectItems filters a wishlist's items down to the chosen ids, keeping the
// wishlist order. Empty ids selects everything.
func selectItems(items []*domain.Item, itemIDs []string) []*domain.Item {
	if len(itemIDs) == 0 {
		out := make([]*domain.Item, len(items))
		copy(out, items)
		return out
	}

	wanted := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}

	out := []*domain.Item{}
	for _, item := range items {
		if wanted[item.ID] {
			out = append(out, item)
		}
	}
	return out
}
