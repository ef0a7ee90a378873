// Package event publishes wishlist domain events to Kafka. Publishing is
// best-effort: callers log failures and carry on, the write path never blocks
// on the broker.
package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/jfchinemerem/Threesixteen/pkg/kafka"
)

// Event type constants.
const (
	TypeWishlistCreated   = "wishlist.created"
	TypeWishlistUpdated   = "wishlist.updated"
	TypeWishlistDeleted   = "wishlist.deleted"
	TypeItemAdded         = "wishlist.item_added"
	TypeItemRemoved       = "wishlist.item_removed"
	TypeCheckoutSucceeded = "checkout.succeeded"
	TypeUserRegistered    = "user.registered"
	TypePasswordReset     = "user.password_reset"
)

// Aggregate type constants.
const (
	AggregateWishlist = "wishlist"
	AggregateUser     = "user"
)

// Source identifier for events originating from this service.
const Source = "threesixteen-server"

// WishlistEventData is the payload for wishlist lifecycle events.
type WishlistEventData struct {
	WishlistID string `json:"wishlist_id"`
	UserID     string `json:"user_id"`
	Title      string `json:"title,omitempty"`
	ItemCount  int    `json:"item_count"`
}

// ItemEventData is the payload for item_added / item_removed events.
type ItemEventData struct {
	WishlistID string  `json:"wishlist_id"`
	ItemID     string  `json:"item_id"`
	Name       string  `json:"name,omitempty"`
	Price      float64 `json:"price,omitempty"`
}

// CheckoutSucceededData is the payload for checkout.succeeded events.
type CheckoutSucceededData struct {
	WishlistID  string `json:"wishlist_id"`
	Reference   string `json:"reference"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	PayerEmail  string `json:"payer_email"`
}

// UserRegisteredData is the payload for user.registered events.
type UserRegisteredData struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// PasswordResetData is the payload for user.password_reset events. A
// downstream consumer delivers the token to the user out-of-band.
type PasswordResetData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

// Publisher is the event-publishing surface the services depend on.
type Publisher interface {
	Publish(ctx context.Context, eventType, aggregateID, aggregateType string, data any) error
}

// Producer publishes domain events through the shared Kafka producer.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new domain event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// Publish wraps the payload in the standard envelope and writes it to Kafka.
func (p *Producer) Publish(ctx context.Context, eventType, aggregateID, aggregateType string, data any) error {
	evt := pkgkafka.NewEvent(eventType, aggregateID, aggregateType, Source, data)

	if err := p.kafka.Publish(ctx, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published domain event",
		slog.String("event_type", eventType),
		slog.String("aggregate_id", aggregateID),
	)

	return nil
}

// NoopPublisher drops every event. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, string, any) error {
	return nil
}
