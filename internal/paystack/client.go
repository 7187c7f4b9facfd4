// Package paystack is a thin client for the Paystack transaction API:
// initialize and verify, which is all the premium-unlock flow consumes.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// Client talks to the Paystack REST API.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a Paystack client.
func NewClient(baseURL, secretKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secretKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log.With().Str("component", "paystack").Logger(),
	}
}

// InitializeResult is the subset of the initialize response the app uses.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyResult is the subset of the verify response the app uses.
type VerifyResult struct {
	Status  string     `json:"status"` // "success", "failed", "abandoned", ...
	Amount  int        `json:"amount"`
	Channel string     `json:"channel"`
	PaidAt  *time.Time `json:"paid_at"`
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize starts a transaction for the given email/amount/reference.
// Not retried: a duplicate initialize with the same reference is rejected by
// the gateway, so failures surface to the caller for a fresh attempt.
func (c *Client) Initialize(ctx context.Context, email string, amountKobo int, reference string) (*InitializeResult, error) {
	payload, err := json.Marshal(map[string]any{
		"email":     email,
		"amount":    amountKobo,
		"reference": reference,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal initialize payload: %w", err)
	}

	var out InitializeResult
	if err := c.call(ctx, http.MethodPost, "/transaction/initialize", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify checks a transaction's status by reference. Transient transport and
// 5xx failures are retried with exponential backoff (verification is safe to
// repeat); gateway 4xx responses are permanent.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	operation := func() (*VerifyResult, error) {
		var out VerifyResult
		if err := c.call(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3),
	)
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", reference, err)
	}
	return result, nil
}

// call performs one authenticated request and decodes the envelope's data
// field into out. Client-side (4xx) failures are marked permanent so Verify's
// retry loop stops immediately.
func (c *Client) call(ctx context.Context, method, path string, body []byte, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return backoff.Permanent(fmt.Errorf("%s %s: gateway returned %d", method, path, resp.StatusCode))
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%s %s: gateway returned %d", method, path, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Status {
		return backoff.Permanent(fmt.Errorf("%s %s: %s", method, path, env.Message))
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
