package tax

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shadecraft/storefront-api/internal/pricing"
	"github.com/shadecraft/storefront-api/internal/resilience"
)

// Client quotes sales tax from an external rate service. Requests go through
// the resilience wrapper so a flapping provider trips the breaker instead of
// stalling checkout.
type Client struct {
	BaseURL string
	HTTP    resilience.HTTPClient
	Log     zerolog.Logger
}

// Config controls construction of the tax client.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	Breaker     *resilience.Breaker
	Log         zerolog.Logger
}

// NewClient builds a tax client with tracing-instrumented transport.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("tax")
	}
	return &Client{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		HTTP: resilience.HTTPClient{
			Client: &http.Client{
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			},
			Breaker:     breaker,
			MaxAttempts: cfg.MaxAttempts,
			BaseBackoff: cfg.BaseBackoff,
			Timeout:     timeout,
		},
		Log: cfg.Log,
	}
}

type quoteRequest struct {
	Amount float64 `json:"amount"`
	State  string  `json:"state,omitempty"`
	Zip    string  `json:"zip"`
}

type quoteResponse struct {
	Amount       float64               `json:"amount"`
	Rate         float64               `json:"rate"`
	Jurisdiction string                `json:"jurisdiction"`
	Breakdown    *pricing.TaxBreakdown `json:"breakdown"`
}

// Quote asks the rate service for the tax due on amount shipped to the given
// destination.
func (c *Client) Quote(ctx context.Context, amount float64, state, zip string) (pricing.TaxQuote, error) {
	if c == nil || c.BaseURL == "" {
		return pricing.TaxQuote{}, errors.New("tax: client not configured")
	}
	payload, err := json.Marshal(quoteRequest{Amount: amount, State: state, Zip: zip})
	if err != nil {
		return pricing.TaxQuote{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/quotes", bytes.NewReader(payload))
	if err != nil {
		return pricing.TaxQuote{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return pricing.TaxQuote{}, fmt.Errorf("tax: quote request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return pricing.TaxQuote{}, fmt.Errorf("tax: unexpected status %d", resp.StatusCode)
	}

	var out quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return pricing.TaxQuote{}, fmt.Errorf("tax: decode quote: %w", err)
	}
	return pricing.TaxQuote{
		Amount:       out.Amount,
		Rate:         out.Rate,
		Breakdown:    out.Breakdown,
		Jurisdiction: out.Jurisdiction,
	}, nil
}

// StaticGateway applies one flat rate locally. Used when no rate service is
// configured and as a development default.
type StaticGateway struct {
	Rate         float64
	Jurisdiction string
}

// Quote computes tax at the fixed rate.
func (s StaticGateway) Quote(_ context.Context, amount float64, _ string, _ string) (pricing.TaxQuote, error) {
	if s.Rate <= 0 {
		return pricing.TaxQuote{}, nil
	}
	return pricing.TaxQuote{
		Amount:       amount * s.Rate,
		Rate:         s.Rate,
		Jurisdiction: s.Jurisdiction,
		Breakdown:    &pricing.TaxBreakdown{StateTax: amount * s.Rate},
	}, nil
}
