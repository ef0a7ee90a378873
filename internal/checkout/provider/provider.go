// Package provider defines the payment provider abstraction the checkout
// orchestrator drives. Implementations live in subpackages.
package provider

import "context"

// InitializeInput holds the parameters for opening a payment attempt.
type InitializeInput struct {
	Email       string
	AmountMinor int64
	Currency    string
	Reference   string
}

// InitializeResult holds what the provider hands back for the widget.
type InitializeResult struct {
	AccessCode       string
	AuthorizationURL string
}

// VerifyResult holds the provider's view of a completed attempt.
type VerifyResult struct {
	Reference   string
	Status      string // "success", "failed", or "abandoned"
	AmountMinor int64
	Currency    string
}

// StatusSuccess is the provider status for a completed payment.
const StatusSuccess = "success"

// Provider is the interface payment integrations implement.
type Provider interface {
	// Name returns the provider name (e.g. "mock", "paystack").
	Name() string

	// Initialize registers a payment attempt with the provider and returns
	// the widget handle.
	Initialize(ctx context.Context, input *InitializeInput) (*InitializeResult, error)

	// Verify confirms the outcome of an attempt by reference.
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}
