package kraken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/repository"
	xhttp "TradePulse/pkg/http"
	"TradePulse/pkg/logger"
)

const (
	defaultRESTURL  = "https://api.kraken.com"
	publicPath      = "/0/public/"
	privatePath     = "/0/private/"
	defaultCacheTTL = 60 * time.Second
	defaultATR      = 0.01

	maxAttempts  = 3
	retryBackoff = time.Second
)

// Config holds exchange access settings.
type Config struct {
	APIKey     string
	APISecret  string
	RESTURL    string
	QuoteAsset string
	CacheTTL   time.Duration
	Timeout    time.Duration
	DryRun     bool
}

// Client talks to the Kraken REST API. It implements MarketData, Balances
// and OrderExecutor. Snapshots are cached for a short TTL and refreshed by
// the websocket stream when enabled.
type Client struct {
	cfg     Config
	http    *xhttp.Client
	logger  *logger.Logger
	metrics repository.Metrics

	nonce atomic.Int64

	mu        sync.RWMutex
	snapshots map[string]cachedSnapshot
}

type cachedSnapshot struct {
	snap    models.MarketSnapshot
	fetched time.Time
}

// apiResponse is the common Kraken envelope.
type apiResponse struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// NewClient creates a Kraken client.
func NewClient(cfg Config, log *logger.Logger, metrics repository.Metrics) *Client {
	if cfg.RESTURL == "" {
		cfg.RESTURL = defaultRESTURL
	}
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "ZUSD"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := &Client{
		cfg:       cfg,
		http:      xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		logger:    log,
		metrics:   metrics,
		snapshots: make(map[string]cachedSnapshot),
	}
	c.nonce.Store(time.Now().UnixNano())
	return c
}

// Snapshot returns price, top-of-book volume and short-window ATR for a
// pair. Results are cached for the configured TTL.
func (c *Client) Snapshot(ctx context.Context, pair string) (*models.MarketSnapshot, error) {
	c.mu.RLock()
	cached, ok := c.snapshots[pair]
	c.mu.RUnlock()
	if ok && time.Since(cached.fetched) < c.cfg.CacheTTL {
		snap := cached.snap
		return &snap, nil
	}

	start := time.Now()
	price, err := c.tickerPrice(ctx, pair)
	if err != nil {
		return nil, err
	}
	volume, err := c.depthVolume(ctx, pair)
	if err != nil {
		return nil, err
	}
	atr, err := c.shortATR(ctx, pair)
	if err != nil {
		return nil, err
	}
	c.metrics.RecordLatency("kraken_snapshot", time.Since(start).Seconds())

	snap := models.MarketSnapshot{
		Pair:   pair,
		Price:  price,
		Volume: volume,
		ATR:    atr,
		Time:   time.Now(),
	}
	c.mu.Lock()
	c.snapshots[pair] = cachedSnapshot{snap: snap, fetched: time.Now()}
	c.mu.Unlock()
	return &snap, nil
}

// UpdatePrice refreshes the cached price for a pair from the live stream.
func (c *Client) UpdatePrice(pair string, price float64) {
	if price <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.snapshots[pair]; ok {
		cached.snap.Price = price
		cached.snap.Time = time.Now()
		c.snapshots[pair] = cached
	}
}

// OHLC returns hourly candles covering the last days, oldest first.
func (c *Client) OHLC(ctx context.Context, pair string, days int) ([]models.Bar, error) {
	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour).Unix()
	raw, err := c.publicQuery(ctx, "OHLC", map[string]string{
		"pair":     pair,
		"interval": "60",
		"since":    strconv.FormatInt(since, 10),
	})
	if err != nil {
		return nil, err
	}
	return parseOHLC(raw)
}

// QuoteBalance returns the available quote-asset balance.
func (c *Client) QuoteBalance(ctx context.Context) (float64, error) {
	balances, err := c.balances(ctx)
	if err != nil {
		return 0, err
	}
	return lookupBalance(balances, c.cfg.QuoteAsset), nil
}

// BaseBalance returns the available base-asset balance for a pair.
func (c *Client) BaseBalance(ctx context.Context, pair string) (float64, error) {
	balances, err := c.balances(ctx)
	if err != nil {
		return 0, err
	}
	return lookupBalance(balances, baseAsset(pair)), nil
}

// PlaceBuy submits a limit buy. In dry-run mode no order leaves the process
// and a synthetic id is returned.
func (c *Client) PlaceBuy(ctx context.Context, pair string, amount, price float64) (string, error) {
	return c.addOrder(ctx, pair, "buy", amount, price)
}

// PlaceSell submits a limit sell.
func (c *Client) PlaceSell(ctx context.Context, pair string, amount, price float64) (string, error) {
	return c.addOrder(ctx, pair, "sell", amount, price)
}

func (c *Client) addOrder(ctx context.Context, pair, side string, amount, price float64) (string, error) {
	if c.cfg.DryRun {
		id := fmt.Sprintf("dry-%s-%d", side, time.Now().UnixNano())
		c.logger.Info("dry-run order",
			logger.String("pair", pair),
			logger.String("side", side),
			logger.Float64("amount", amount),
			logger.Float64("price", price),
			logger.String("order_id", id),
		)
		return id, nil
	}

	raw, err := c.privateQuery(ctx, "AddOrder", map[string]string{
		"pair":      pair,
		"type":      side,
		"ordertype": "limit",
		"price":     strconv.FormatFloat(price, 'f', -1, 64),
		"volume":    strconv.FormatFloat(amount, 'f', -1, 64),
	})
	if err != nil {
		return "", fmt.Errorf("add order: %w", err)
	}

	var result struct {
		Txid []string `json:"txid"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("parse add order: %w", err)
	}
	if len(result.Txid) == 0 {
		return "", fmt.Errorf("add order: no transaction id returned")
	}
	return result.Txid[0], nil
}

func (c *Client) tickerPrice(ctx context.Context, pair string) (float64, error) {
	raw, err := c.publicQuery(ctx, "Ticker", map[string]string{"pair": pair})
	if err != nil {
		return 0, err
	}
	var result map[string]struct {
		C []string `json:"c"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, fmt.Errorf("parse ticker: %w", err)
	}
	for _, entry := range result {
		if len(entry.C) == 0 {
			break
		}
		price, err := strconv.ParseFloat(entry.C[0], 64)
		if err != nil {
			return 0, fmt.Errorf("parse ticker price: %w", err)
		}
		return price, nil
	}
	return 0, fmt.Errorf("ticker: no data for %s", pair)
}

func (c *Client) depthVolume(ctx context.Context, pair string) (float64, error) {
	raw, err := c.publicQuery(ctx, "Depth", map[string]string{"pair": pair, "count": "1"})
	if err != nil {
		return 0, err
	}
	var result map[string]struct {
		Bids [][]any `json:"bids"`
		Asks [][]any `json:"asks"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, fmt.Errorf("parse depth: %w", err)
	}
	for _, book := range result {
		volume := 0.0
		if len(book.Bids) > 0 && len(book.Bids[0]) > 1 {
			volume += toFloat(book.Bids[0][1])
		}
		if len(book.Asks) > 0 && len(book.Asks[0]) > 1 {
			volume += toFloat(book.Asks[0][1])
		}
		return volume, nil
	}
	return 0, fmt.Errorf("depth: no data for %s", pair)
}

// shortATR averages the true range of the last five 5-minute candles. A
// window under two candles yields the default.
func (c *Client) shortATR(ctx context.Context, pair string) (float64, error) {
	since := time.Now().Add(-25 * time.Minute).Unix()
	raw, err := c.publicQuery(ctx, "OHLC", map[string]string{
		"pair":     pair,
		"interval": "5",
		"since":    strconv.FormatInt(since, 10),
	})
	if err != nil {
		return 0, err
	}
	bars, err := parseOHLC(raw)
	if err != nil {
		return 0, err
	}
	if len(bars) > 5 {
		bars = bars[len(bars)-5:]
	}
	if len(bars) < 2 {
		return defaultATR, nil
	}

	sum := 0.0
	for i := 1; i < len(bars); i++ {
		tr := math.Max(bars[i].High-bars[i].Low,
			math.Max(math.Abs(bars[i].High-bars[i-1].Close), math.Abs(bars[i].Low-bars[i-1].Close)))
		sum += tr
	}
	return sum / float64(len(bars)-1), nil
}

func (c *Client) balances(ctx context.Context) (map[string]float64, error) {
	if c.cfg.DryRun {
		// simulated account so the dry-run loop can size entries
		return map[string]float64{c.cfg.QuoteAsset: 10000}, nil
	}
	raw, err := c.privateQuery(ctx, "Balance", nil)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	var result map[string]string
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	balances := make(map[string]float64, len(result))
	for asset, amount := range result {
		v, err := strconv.ParseFloat(amount, 64)
		if err != nil {
			continue
		}
		balances[asset] = v
	}
	return balances, nil
}

// publicQuery calls a public endpoint with bounded retry. Transient errors
// back off exponentially and give up after three attempts.
func (c *Client) publicQuery(ctx context.Context, endpoint string, params map[string]string) (json.RawMessage, error) {
	query := make(map[string][]string, len(params))
	for k, v := range params {
		query[k] = []string{v}
	}
	opts := &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.cfg.RESTURL + publicPath + endpoint,
		QueryParams: query,
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := retryBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var resp apiResponse
		if err := c.http.SendAndParse(ctx, opts, &resp); err != nil {
			lastErr = err
			c.logger.Warn("kraken public query failed",
				logger.String("endpoint", endpoint),
				logger.Int("attempt", attempt+1),
				logger.Error(err),
			)
			c.metrics.RecordError("kraken_public")
			continue
		}
		if len(resp.Error) > 0 {
			lastErr = fmt.Errorf("kraken api: %s", strings.Join(resp.Error, ", "))
			c.metrics.RecordError("kraken_api")
			continue
		}
		return resp.Result, nil
	}
	return nil, fmt.Errorf("%s after %d attempts: %w", endpoint, maxAttempts, lastErr)
}

// privateQuery signs and calls a private endpoint. Orders are not retried;
// a duplicate submission is worse than a missed cycle.
func (c *Client) privateQuery(ctx context.Context, endpoint string, params map[string]string) (json.RawMessage, error) {
	path := privatePath + endpoint
	nonce := strconv.FormatInt(c.nonce.Add(1), 10)

	form := url.Values{}
	form.Set("nonce", nonce)
	for k, v := range params {
		form.Set(k, v)
	}
	postData := form.Encode()

	sign, err := c.sign(path, nonce, postData)
	if err != nil {
		return nil, err
	}

	opts := &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.cfg.RESTURL + path,
		Headers: map[string]string{
			"API-Key":      c.cfg.APIKey,
			"API-Sign":     sign,
			"Content-Type": "application/x-www-form-urlencoded",
		},
		Body: postData,
	}

	var resp apiResponse
	if err := c.http.SendAndParse(ctx, opts, &resp); err != nil {
		c.metrics.RecordError("kraken_private")
		return nil, err
	}
	if len(resp.Error) > 0 {
		c.metrics.RecordError("kraken_api")
		return nil, fmt.Errorf("kraken api: %s", strings.Join(resp.Error, ", "))
	}
	return resp.Result, nil
}

func (c *Client) sign(path, nonce, postData string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(c.cfg.APISecret)
	if err != nil {
		return "", fmt.Errorf("decode api secret: %w", err)
	}
	digest := sha256.Sum256([]byte(nonce + postData))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(path))
	mac.Write(digest[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// parseOHLC decodes a Kraken OHLC result. The result holds the pair key and
// a "last" cursor; candle rows are [time, open, high, low, close, vwap,
// volume, count] with numeric strings.
func parseOHLC(raw json.RawMessage) ([]models.Bar, error) {
	var result map[string]json.RawMessage
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("parse ohlc: %w", err)
	}
	for key, value := range result {
		if key == "last" {
			continue
		}
		var rows [][]any
		if err := json.Unmarshal(value, &rows); err != nil {
			return nil, fmt.Errorf("parse ohlc rows: %w", err)
		}
		bars := make([]models.Bar, 0, len(rows))
		for _, row := range rows {
			if len(row) < 7 {
				continue
			}
			bars = append(bars, models.Bar{
				Time:   time.Unix(int64(toFloat(row[0])), 0),
				Open:   toFloat(row[1]),
				High:   toFloat(row[2]),
				Low:    toFloat(row[3]),
				Close:  toFloat(row[4]),
				Volume: toFloat(row[6]),
			})
		}
		return bars, nil
	}
	return nil, fmt.Errorf("ohlc: empty result")
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case json.Number:
		f, _ := t.Float64()
		return f
	default:
		return 0
	}
}

func baseAsset(pair string) string {
	for _, suffix := range []string{"USDT", "ZUSD", "USD"} {
		if strings.HasSuffix(pair, suffix) {
			return strings.TrimSuffix(pair, suffix)
		}
	}
	return pair
}

func lookupBalance(balances map[string]float64, asset string) float64 {
	if v, ok := balances[asset]; ok {
		return v
	}
	// Kraken prefixes some legacy assets (XXBT, ZUSD)
	if v, ok := balances["X"+asset]; ok {
		return v
	}
	if v, ok := balances["Z"+asset]; ok {
		return v
	}
	return 0
}
