// internal/pricefeed/client_test.go
package pricefeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/lp-hedger/internal/hedge"
)

func testSymbols() map[string]string {
	return map[string]string{
		"ETH":  "ethereum",
		"WETH": "weth",
		"USDC": "usd-coin",
		"DOGE": "dogecoin",
	}
}

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	return NewClient(Config{
		Endpoint:       endpoint,
		RequestTimeout: 2 * time.Second,
		Symbols:        testSymbols(),
		Logger:         zaptest.NewLogger(t),
	})
}

func TestFetchPricesMapsSymbols(t *testing.T) {
	var gotIDs, gotCurrencies string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIDs = r.URL.Query().Get("ids")
		gotCurrencies = r.URL.Query().Get("vs_currencies")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ethereum":{"usd":2512.34},"usd-coin":{"usd":1.0},"weth":{"usd":2510.0}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	prices, err := client.FetchPrices(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "dogecoin,ethereum,usd-coin,weth", gotIDs)
	assert.Equal(t, "usd", gotCurrencies)

	assert.Equal(t, 2512.34, prices["ETH"])
	assert.Equal(t, 2510.0, prices["WETH"])
	assert.Equal(t, 1.0, prices["USDC"])
	_, ok := prices["DOGE"]
	assert.False(t, ok, "symbols missing from the response are left out")
}

func TestFetchPricesRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ethereum":{"usd":2000.0}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	prices, err := client.FetchPrices(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2000.0, prices["ETH"])
}

func TestFetchPricesDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad id list", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.FetchPrices(context.Background())
	require.Error(t, err)

	assert.Equal(t, int32(1), calls.Load(), "4xx responses must not be retried")

	var retErr *hedge.RetrievalError
	require.True(t, errors.As(err, &retErr))
	assert.Equal(t, "pricefeed", retErr.Source)
	assert.Equal(t, "simple_price", retErr.Op)
}

func TestFetchPricesRejectsUnusableResponse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.FetchPrices(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable prices")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchPricesHonorsContext(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchPrices(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
