// Package paystack implements the payment provider against the Paystack
// transaction API. All calls go through the shared HTTP client with its
// circuit breaker; a tripped breaker surfaces as a provider error, which the
// orchestrator treats as a failed (retryable) attempt.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jfchinemerem/Threesixteen/internal/checkout/provider"
	"github.com/jfchinemerem/Threesixteen/pkg/httpclient"
)

const defaultBaseURL = "https://api.paystack.co"

// Provider talks to the Paystack transaction API.
type Provider struct {
	client    *httpclient.CircuitBreakerClient
	baseURL   string
	secretKey string
	logger    *slog.Logger
}

// NewProvider creates a Paystack provider. An empty baseURL uses the public
// API endpoint.
func NewProvider(client *httpclient.CircuitBreakerClient, baseURL, secretKey string, logger *slog.Logger) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{
		client:    client,
		baseURL:   baseURL,
		secretKey: secretKey,
		logger:    logger,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "paystack"
}

type initializeRequest struct {
	Email     string `json:"email"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// Initialize registers a transaction and returns the widget access code.
func (p *Provider) Initialize(ctx context.Context, input *provider.InitializeInput) (*provider.InitializeResult, error) {
	body, err := json.Marshal(initializeRequest{
		Email:     input.Email,
		Amount:    input.AmountMinor,
		Currency:  input.Currency,
		Reference: input.Reference,
	})
	if err != nil {
		return nil, fmt.Errorf("encode initialize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build initialize request: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("initialize transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "paystack")
	}

	var out initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode initialize response: %w", err)
	}
	if !out.Status {
		return nil, fmt.Errorf("initialize transaction rejected: %s", out.Message)
	}

	p.logger.DebugContext(ctx, "paystack transaction initialized",
		slog.String("reference", input.Reference),
		slog.Int64("amount_minor", input.AmountMinor),
	)

	return &provider.InitializeResult{
		AccessCode:       out.Data.AccessCode,
		AuthorizationURL: out.Data.AuthorizationURL,
	}, nil
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	} `json:"data"`
}

// Verify confirms the outcome of a transaction by reference.
func (p *Provider) Verify(ctx context.Context, reference string) (*provider.VerifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("verify transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "paystack")
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	if !out.Status {
		return nil, fmt.Errorf("verify transaction rejected: %s", out.Message)
	}

	return &provider.VerifyResult{
		Reference:   out.Data.Reference,
		Status:      out.Data.Status,
		AmountMinor: out.Data.Amount,
		Currency:    out.Data.Currency,
	}, nil
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")
}
