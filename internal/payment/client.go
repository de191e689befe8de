// Package payment wraps the external payment gateway. The gateway is a
// bounded, fallible collaborator: every call carries the request context and
// the client timeout, and callers must never hold database locks while a
// call is in flight.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

var (
	// ErrDeclined means the gateway refused the charge. The charge does
	// not exist; there is nothing to reverse.
	ErrDeclined = errors.New("payment declined")

	// ErrGatewayUnavailable means the gateway could not be reached or
	// answered with a server error. The caller must not assume the charge
	// happened.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// Gateway is the outbound payment interface consumed by the enrollment
// engine. The resty-backed Client is the production implementation; tests
// substitute a stub.
type Gateway interface {
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, providerRef string) error
}

type ChargeRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	CardToken   string `json:"card_token"`
	Method      string `json:"method"`
	// Reference is an idempotency key so a retried call cannot double-charge.
	Reference string `json:"reference"`
}

type ChargeResult struct {
	ProviderRef string `json:"provider_ref"`
	Status      string `json:"status"`
}

// Client is the HTTP client for the payment gateway.
type Client struct {
	http     *resty.Client
	provider string
}

// NewClient creates a gateway client with a bounded per-call timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:     httpClient,
		provider: "edupay",
	}
}

// Provider identifies the gateway in payment records.
func (c *Client) Provider() string {
	return c.provider
}

// NewReference mints an idempotency key for one charge attempt.
func NewReference() string {
	return uuid.NewString()
}

type gatewayResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"` // "captured" | "declined"
	Reason string `json:"reason"`
}

// Charge captures the amount. A decline is a terminal answer (ErrDeclined);
// transport and server failures map to ErrGatewayUnavailable.
func (c *Client) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	var result gatewayResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/v1/charges")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode() == http.StatusPaymentRequired || result.Status == "declined":
		return nil, ErrDeclined
	case resp.StatusCode() >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: gateway returned %d", ErrGatewayUnavailable, resp.StatusCode())
	case resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated:
		return nil, fmt.Errorf("unexpected gateway response %d: %s", resp.StatusCode(), resp.String())
	}

	return &ChargeResult{
		ProviderRef: result.ID,
		Status:      result.Status,
	}, nil
}

// Refund reverses a captured charge. Used by the reconciliation path when an
// enrollment lost the uniqueness race after capture.
func (c *Client) Refund(ctx context.Context, providerRef string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Post(fmt.Sprintf("/v1/charges/%s/refund", providerRef))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("refund failed with status %d: %s", resp.StatusCode(), resp.String())
	}

	return nil
}
