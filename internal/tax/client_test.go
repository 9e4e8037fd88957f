package tax_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shadecraft/storefront-api/internal/tax"
)

func TestClientQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/quotes", r.URL.Path)

		var body struct {
			Amount float64 `json:"amount"`
			Zip    string  `json:"zip"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, 100.0, body.Amount)
		require.Equal(t, "78701", body.Zip)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"amount":       8.25,
			"rate":         0.0825,
			"jurisdiction": "TX",
			"breakdown":    map[string]float64{"stateTax": 6.25, "cityTax": 2.0},
		})
	}))
	defer server.Close()

	client := tax.NewClient(tax.Config{BaseURL: server.URL})
	quote, err := client.Quote(context.Background(), 100, "TX", "78701")
	require.NoError(t, err)
	require.Equal(t, 8.25, quote.Amount)
	require.Equal(t, 0.0825, quote.Rate)
	require.Equal(t, "TX", quote.Jurisdiction)
	require.NotNil(t, quote.Breakdown)
	require.Equal(t, 6.25, quote.Breakdown.StateTax)
}

func TestClientQuoteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"amount": 4.0, "rate": 0.08})
	}))
	defer server.Close()

	client := tax.NewClient(tax.Config{BaseURL: server.URL, MaxAttempts: 2, BaseBackoff: time.Millisecond})
	quote, err := client.Quote(context.Background(), 50, "", "30301")
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())
	require.Equal(t, 4.0, quote.Amount)
}

func TestClientQuoteErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := tax.NewClient(tax.Config{BaseURL: server.URL})
	_, err := client.Quote(context.Background(), 50, "", "00000")
	require.Error(t, err)
}

func TestStaticGateway(t *testing.T) {
	quote, err := tax.StaticGateway{Rate: 0.0825, Jurisdiction: "TX"}.Quote(context.Background(), 200, "TX", "78701")
	require.NoError(t, err)
	require.Equal(t, 16.5, quote.Amount)
	require.Equal(t, 0.0825, quote.Rate)

	quote, err = tax.StaticGateway{}.Quote(context.Background(), 200, "", "")
	require.NoError(t, err)
	require.Zero(t, quote.Amount)
}
