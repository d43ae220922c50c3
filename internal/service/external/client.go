package external

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TradePulse/internal/domain/models"
	xhttp "TradePulse/pkg/http"
	"TradePulse/pkg/logger"
)

const (
	defaultCoinGeckoURL     = "https://api.coingecko.com/api/v3"
	defaultCryptoCompareURL = "https://min-api.cryptocompare.com/data"
)

// Config holds external provider settings. AssetIDs maps exchange pairs to
// CoinGecko coin ids (e.g. XBTUSD -> bitcoin).
type Config struct {
	CoinGeckoURL     string
	CryptoCompareURL string
	AssetIDs         map[string]string
	Timeout          time.Duration
}

// Client aggregates 24h volume from CoinGecko and market cap from
// CryptoCompare. Either provider failing degrades that metric to zero.
type Client struct {
	cfg    Config
	http   *xhttp.Client
	logger *logger.Logger
}

// NewClient creates an external data client.
func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.CoinGeckoURL == "" {
		cfg.CoinGeckoURL = defaultCoinGeckoURL
	}
	if cfg.CryptoCompareURL == "" {
		cfg.CryptoCompareURL = defaultCryptoCompareURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		logger: log,
	}
}

// Aggregate fetches both providers for a pair. A total failure returns an
// error; a partial failure returns what was available.
func (c *Client) Aggregate(ctx context.Context, pair string) (models.ExternalAggregate, error) {
	agg := models.ExternalAggregate{}

	volume, volErr := c.volume24h(ctx, pair)
	if volErr != nil {
		c.logger.Warn("coingecko volume unavailable",
			logger.String("pair", pair), logger.Error(volErr))
	} else {
		agg.Volume24h = volume
	}

	mcap, capErr := c.marketCap(ctx, pair)
	if capErr != nil {
		c.logger.Warn("cryptocompare market cap unavailable",
			logger.String("pair", pair), logger.Error(capErr))
	} else {
		agg.MarketCap = mcap
	}

	if volErr != nil && capErr != nil {
		return agg, fmt.Errorf("external data for %s: %w", pair, volErr)
	}
	return agg, nil
}

func (c *Client) volume24h(ctx context.Context, pair string) (float64, error) {
	var result []struct {
		TotalVolume float64 `json:"total_volume"`
	}
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.cfg.CoinGeckoURL + "/coins/markets",
		QueryParams: map[string][]string{
			"vs_currency": {"usd"},
			"ids":         {c.coinID(pair)},
		},
	}, &result)
	if err != nil {
		return 0, err
	}
	if len(result) == 0 {
		return 0, fmt.Errorf("no market data for %s", pair)
	}
	return result[0].TotalVolume, nil
}

func (c *Client) marketCap(ctx context.Context, pair string) (float64, error) {
	symbol := strings.ToUpper(baseSymbol(pair))
	var result struct {
		Raw map[string]map[string]struct {
			MktCap float64 `json:"MKTCAP"`
		} `json:"RAW"`
	}
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.cfg.CryptoCompareURL + "/pricemultifull",
		QueryParams: map[string][]string{
			"fsyms": {symbol},
			"tsyms": {"USD"},
		},
	}, &result)
	if err != nil {
		return 0, err
	}
	if quote, ok := result.Raw[symbol]["USD"]; ok {
		return quote.MktCap, nil
	}
	return 0, fmt.Errorf("no quote for %s", symbol)
}

func (c *Client) coinID(pair string) string {
	if id, ok := c.cfg.AssetIDs[pair]; ok {
		return id
	}
	return strings.ToLower(baseSymbol(pair))
}

func baseSymbol(pair string) string {
	for _, quote := range []string{"USDT", "USD"} {
		if strings.HasSuffix(pair, quote) {
			return strings.TrimSuffix(pair, quote)
		}
	}
	return pair
}
