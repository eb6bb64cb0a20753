// Package external fetches the market spot price used to quote sells when
// the caller gives no price.
package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjannette/trahn-pnl/internal/httputil"
)

const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

var ErrNoPrice = errors.New("no spot price")

type CoinGeckoClient struct {
	baseURL    string
	coinID     string
	vsCurrency string
	httpClient *http.Client
	retry      httputil.RetryConfig
	log        *zap.Logger
}

// NewCoinGeckoClient prices coinID (e.g. "ethereum") in vsCurrency (e.g.
// "usd"). An empty baseURL uses the public API.
func NewCoinGeckoClient(baseURL, coinID, vsCurrency string, log *zap.Logger) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("coingecko")
	return &CoinGeckoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		coinID:     strings.ToLower(coinID),
		vsCurrency: strings.ToLower(vsCurrency),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
			Logger:      log,
		},
		log: log,
	}
}

// SpotPrice returns the current price of one unit of the coin.
func (c *CoinGeckoClient) SpotPrice(ctx context.Context) (float64, error) {
	q := url.Values{}
	q.Set("ids", c.coinID)
	q.Set("vs_currencies", c.vsCurrency)
	endpoint := c.baseURL + "/simple/price?" + q.Encode()

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return 0, fmt.Errorf("coingecko fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}

	var data map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}

	price, ok := data[c.coinID][c.vsCurrency]
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s missing from response", ErrNoPrice, c.coinID, c.vsCurrency)
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: invalid price %f", ErrNoPrice, price)
	}

	c.log.Debug("spot price", zap.String("coin", c.coinID), zap.Float64("price", price))
	return price, nil
}
