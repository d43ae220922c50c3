package advisor

import (
	"context"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/pkg/cache"
	xhttp "TradePulse/pkg/http"
	"TradePulse/pkg/logger"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o"

	missionContext = "Mission: steady daily compounding on a fixed set of Kraken spot pairs, " +
		"five conviction signals gated at 3%, unattended 24/7 operation."
)

// Strategy reviews run only at these local hours, once per window.
var reviewHours = map[int]bool{12: true, 23: true}

// Config holds advisor access settings.
type Config struct {
	Enabled bool
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client reviews trades and strategy through an OpenAI-compatible chat
// completions API. A disabled or failing advisor degrades to neutral hints;
// it never blocks or biases the trading loop.
type Client struct {
	cfg      Config
	http     *xhttp.Client
	throttle cache.Service
	logger   *logger.Logger
}

// NewClient creates an advisor client. The cache backs the once-per-window
// throttle for strategy reviews.
func NewClient(cfg Config, throttle cache.Service, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:      cfg,
		http:     xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		throttle: throttle,
		logger:   log,
	}
}

// ReviewTrade asks for commentary on an executed trade.
func (c *Client) ReviewTrade(ctx context.Context, trade *models.TradeRecord, pnl float64) (string, error) {
	if !c.cfg.Enabled {
		return "", nil
	}
	prompt := fmt.Sprintf("Review this trade: %s %s %.8f at %.4f (realized %.4f). Suggest conviction or strategy adjustments.",
		trade.Action, trade.Pair, trade.Amount, trade.Price, pnl)
	return c.complete(ctx, prompt, 200)
}

// StrategyHint requests a strategy review and classifies it. Outside the
// review windows, when throttled, disabled, or on error it returns a
// neutral hint.
func (c *Client) StrategyHint(ctx context.Context, summary string) (models.Hint, string, error) {
	if !c.cfg.Enabled {
		return models.HintNeutral, "", nil
	}

	now := time.Now()
	if !reviewHours[now.Hour()] {
		return models.HintNeutral, "", nil
	}

	lockKey := fmt.Sprintf("advisor:strategy:%s:%02d", now.Format("2006-01-02"), now.Hour())
	acquired, err := c.throttle.TryLock(ctx, lockKey, time.Hour)
	if err != nil {
		c.logger.Warn("advisor throttle check failed", logger.Error(err))
		return models.HintNeutral, "", nil
	}
	if !acquired {
		return models.HintNeutral, "", nil
	}

	prompt := fmt.Sprintf("Strategize for tomorrow's trading. %s Respond with whether conviction thresholds should increase or decrease.", summary)
	text, err := c.complete(ctx, prompt, 300)
	if err != nil {
		return models.HintNeutral, "", err
	}
	return ClassifyHint(text), text, nil
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: missionContext},
			{Role: "user", Content: prompt},
		},
		MaxTokens: maxTokens,
	}

	var resp chatResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.cfg.BaseURL + "/chat/completions",
		Headers: map[string]string{
			"Authorization": "Bearer " + c.cfg.APIKey,
			"Content-Type":  "application/json",
		},
		Body: req,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
