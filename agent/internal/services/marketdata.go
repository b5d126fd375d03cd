package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"moonbags-buybot/agent/internal/models"
	"moonbags-buybot/shared/logger"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	suiCoinType = "0x2::sui::SUI"

	// Birdeye free tier allows ~5 req/s.
	suiPriceCacheTTL = time.Minute
)

var marketDataLimiter = rate.NewLimiter(rate.Limit(4.66), 5)

// MarketDataClient fetches token market data and recent trades from a
// Birdeye-style HTTP API. All calls go through a shared rate limiter and a
// circuit breaker so a flapping upstream degrades to zeroed data instead of
// hammering the API from every tick.
type MarketDataClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        *logger.Logger

	suiPriceMu sync.Mutex
	suiPrice   float64
	suiPriceAt time.Time
}

func NewMarketDataClient(baseURL, apiKey string, log *logger.Logger) *MarketDataClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "marketdata",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Market data circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &MarketDataClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    breaker,
		log:        log,
	}
}

type priceResponse struct {
	Data *struct {
		Symbol    string  `json:"symbol"`
		Name      string  `json:"name"`
		Value     float64 `json:"value"`
		MarketCap float64 `json:"marketCap"`
		Liquidity float64 `json:"liquidity"`
		Change24h float64 `json:"change24h"`
	} `json:"data"`
}

type tradesResponse struct {
	Data []struct {
		TxHash    string  `json:"txHash"`
		Source    string  `json:"source"`
		Amount    float64 `json:"amount"`
		ValueUsd  float64 `json:"valueUsd"`
		Timestamp int64   `json:"timestamp"`
	} `json:"data"`
}

// TokenInfo fetches current market data for a coin type, including the SUI
// reference price (cached for a minute).
func (c *MarketDataClient) TokenInfo(ctx context.Context, tokenAddress string) (models.TokenInfo, error) {
	var resp priceResponse
	params := url.Values{"address": {tokenAddress}, "chain": {"sui"}}
	if err := c.getJSON(ctx, "/defi/price", params, &resp); err != nil {
		return models.TokenInfo{}, err
	}
	if resp.Data == nil {
		return models.TokenInfo{}, fmt.Errorf("market data response for %s has no data", tokenAddress)
	}

	info := models.TokenInfo{
		Symbol:       resp.Data.Symbol,
		Name:         resp.Data.Name,
		PriceUSD:     resp.Data.Value,
		MarketCapUSD: resp.Data.MarketCap,
		LiquidityUSD: resp.Data.Liquidity,
		Change24hPct: resp.Data.Change24h,
	}
	if info.Symbol == "" {
		info.Symbol = "TOKEN"
	}

	if suiPrice, err := c.SuiPrice(ctx); err == nil {
		info.SuiPriceUSD = suiPrice
	} else {
		c.log.Warn("Failed to fetch SUI reference price", "error", err)
	}
	return info, nil
}

// SuiPrice returns the current SUI/USD price, cached for suiPriceCacheTTL.
func (c *MarketDataClient) SuiPrice(ctx context.Context) (float64, error) {
	c.suiPriceMu.Lock()
	if time.Since(c.suiPriceAt) < suiPriceCacheTTL && c.suiPrice > 0 {
		price := c.suiPrice
		c.suiPriceMu.Unlock()
		return price, nil
	}
	c.suiPriceMu.Unlock()

	var resp priceResponse
	params := url.Values{"address": {suiCoinType}, "chain": {"sui"}}
	if err := c.getJSON(ctx, "/defi/price", params, &resp); err != nil {
		return 0, err
	}
	if resp.Data == nil {
		return 0, fmt.Errorf("SUI price response has no data")
	}

	c.suiPriceMu.Lock()
	c.suiPrice = resp.Data.Value
	c.suiPriceAt = time.Now()
	c.suiPriceMu.Unlock()
	return resp.Data.Value, nil
}

// RecentBuys lists buys of the coin type strictly after the cutoff.
func (c *MarketDataClient) RecentBuys(ctx context.Context, tokenAddress string, since time.Time) ([]models.BuyRecord, error) {
	var resp tradesResponse
	params := url.Values{
		"address": {tokenAddress},
		"chain":   {"sui"},
		"tx_type": {"buy"},
		"limit":   {"50"},
	}
	if err := c.getJSON(ctx, "/defi/txs/token", params, &resp); err != nil {
		return nil, err
	}

	var buys []models.BuyRecord
	for _, tx := range resp.Data {
		ts := time.Unix(tx.Timestamp, 0)
		if !ts.After(since) {
			continue
		}
		buys = append(buys, models.BuyRecord{
			TxDigest:     tx.TxHash,
			TokenAddress: tokenAddress,
			BuyerAddress: tx.Source,
			TokenAmount:  tx.Amount,
			UsdValue:     tx.ValueUsd,
			BlockTime:    ts,
		})
	}
	return buys, nil
}

func (c *MarketDataClient) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := marketDataLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	reqURL := c.baseURL + path + "?" + params.Encode()
	body, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("X-API-KEY", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("market data request failed: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, fmt.Errorf("rate limit exceeded (429)")
		case resp.StatusCode != http.StatusOK:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("market data request failed with status %d: %s", resp.StatusCode, string(b))
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return fmt.Errorf("parse market data response: %w", err)
	}
	return nil
}
