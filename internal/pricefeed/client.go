// internal/pricefeed/client.go

// Package pricefeed pulls spot USD prices from the CoinGecko simple price
// API for the token symbols the hedger tracks.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rovshanmuradov/lp-hedger/internal/hedge"
)

const defaultEndpoint = "https://api.coingecko.com/api/v3/simple/price"

const defaultRequestTimeout = 8 * time.Second

// Config carries the feed settings. Symbols maps display symbols to
// CoinGecko ids ("ETH" -> "ethereum").
type Config struct {
	Endpoint       string
	RequestTimeout time.Duration
	Symbols        map[string]string
	Logger         *zap.Logger
}

// Client fetches prices with retry and client-side rate limiting. The
// free CoinGecko tier tolerates roughly a call every two seconds, so the
// limiter is fixed there regardless of how hard the scheduler polls.
type Client struct {
	endpoint string
	symbols  map[string]string
	ids      string
	http     *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Client{
		endpoint: cfg.Endpoint,
		symbols:  cfg.Symbols,
		ids:      idsParam(cfg.Symbols),
		http:     &http.Client{Timeout: cfg.RequestTimeout},
		limiter:  rate.NewLimiter(rate.Every(2*time.Second), 1),
		logger:   cfg.Logger.Named("pricefeed"),
	}
}

// idsParam builds the deduplicated, sorted ids query fragment so the
// request URL is stable.
func idsParam(symbols map[string]string) string {
	seen := make(map[string]struct{}, len(symbols))
	ids := make([]string, 0, len(symbols))
	for _, id := range symbols {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// FetchPrices returns the current USD price for every configured symbol
// CoinGecko knows about. Symbols missing from the response are simply
// absent from the result; an entirely unusable response is an error.
func (c *Client) FetchPrices(ctx context.Context) (map[string]float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, hedge.NewRetrievalError("pricefeed", "rate_wait", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second

	notify := func(err error, duration time.Duration) {
		c.logger.Debug("Retrying price fetch", zap.Error(err), zap.Duration("backoff", duration))
	}

	operation := func() (map[string]map[string]float64, error) {
		return c.fetch(ctx)
	}

	data, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(3),
		backoff.WithNotify(notify))
	if err != nil {
		return nil, hedge.NewRetrievalError("pricefeed", "simple_price", err)
	}

	prices := make(map[string]float64, len(c.symbols))
	for symbol, id := range c.symbols {
		if usd, ok := data[id]["usd"]; ok && usd > 0 {
			prices[symbol] = usd
		}
	}
	if len(prices) == 0 {
		return nil, hedge.NewRetrievalError("pricefeed", "simple_price",
			fmt.Errorf("no usable prices in response"))
	}

	c.logger.Debug("Prices fetched", zap.Int("count", len(prices)))
	return prices, nil
}

func (c *Client) fetch(ctx context.Context) (map[string]map[string]float64, error) {
	reqURL := fmt.Sprintf("%s?ids=%s&vs_currencies=usd", c.endpoint, c.ids)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("coingecko status %d: %s", resp.StatusCode, body)
		// 4xx responses other than rate limiting will not fix themselves.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var data map[string]map[string]float64
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, err
	}
	return data, nil
}
