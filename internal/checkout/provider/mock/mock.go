// Package mock provides a payment provider that always succeeds. It is
// intended for development and testing.
package mock

import (
	"context"

	"github.com/google/uuid"

	"github.com/jfchinemerem/Threesixteen/internal/checkout/provider"
)

// Provider is a mock payment provider. Every attempt initializes and every
// verification reports success for the stored amount.
type Provider struct {
	attempts map[string]*provider.InitializeInput
}

// NewProvider creates a new mock payment provider.
func NewProvider() *Provider {
	return &Provider{attempts: make(map[string]*provider.InitializeInput)}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mock"
}

// Initialize records the attempt and returns a fabricated widget handle.
func (p *Provider) Initialize(_ context.Context, input *provider.InitializeInput) (*provider.InitializeResult, error) {
	p.attempts[input.Reference] = input
	return &provider.InitializeResult{
		AccessCode:       "mock_access_" + uuid.New().String(),
		AuthorizationURL: "https://checkout.example.test/" + input.Reference,
	}, nil
}

// Verify reports success for any reference seen by Initialize.
func (p *Provider) Verify(_ context.Context, reference string) (*provider.VerifyResult, error) {
	result := &provider.VerifyResult{
		Reference: reference,
		Status:    provider.StatusSuccess,
	}
	if input, ok := p.attempts[reference]; ok {
		result.AmountMinor = input.AmountMinor
		result.Currency = input.Currency
	}
	return result, nil
}
