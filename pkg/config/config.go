package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Trading struct {
		Pairs           []string      `yaml:"pairs"`
		Interval        time.Duration `yaml:"interval"`
		ErrorBackoff    time.Duration `yaml:"error_backoff"`
		MinQuoteBalance float64       `yaml:"min_quote_balance"`
		OHLCDays        int           `yaml:"ohlc_days"`
		DryRun          bool          `yaml:"dry_run"`
	} `yaml:"trading"`
	Kraken struct {
		APIKey       string        `yaml:"api_key"`
		APISecret    string        `yaml:"api_secret"`
		RESTURL      string        `yaml:"rest_url"`
		WebSocketURL string        `yaml:"websocket_url"`
		UseStream    bool          `yaml:"use_stream"`
		Timeout      time.Duration `yaml:"timeout"`
		CacheTTL     time.Duration `yaml:"cache_ttl"`
		QuoteAsset   string        `yaml:"quote_asset"`
	} `yaml:"kraken"`
	External struct {
		CoinGeckoURL     string            `yaml:"coingecko_url"`
		CryptoCompareURL string            `yaml:"cryptocompare_url"`
		AssetIDs         map[string]string `yaml:"asset_ids"`
		Timeout          time.Duration     `yaml:"timeout"`
	} `yaml:"external"`
	Advisor struct {
		Enabled bool          `yaml:"enabled"`
		APIKey  string        `yaml:"api_key"`
		BaseURL string        `yaml:"base_url"`
		Model   string        `yaml:"model"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"advisor"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		AlertTopic   string   `yaml:"alert_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Override with environment variables
	if v := os.Getenv("KRAKEN_API_KEY"); v != "" {
		c.Kraken.APIKey = v
	}
	if v := os.Getenv("KRAKEN_API_SECRET"); v != "" {
		c.Kraken.APISecret = v
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		c.Trading.DryRun = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("PAIRS"); v != "" {
		c.Trading.Pairs = strings.Split(v, ",")
	}
	if v := os.Getenv("ADVISOR_API_KEY"); v != "" {
		c.Advisor.APIKey = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Validate checks if the configuration is valid. Live trading without
// exchange credentials is refused at startup rather than at the first order.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Trading.Pairs) == 0 {
		return fmt.Errorf("trading.pairs cannot be empty")
	}
	if c.Trading.Interval < 0 {
		return fmt.Errorf("trading.interval cannot be negative")
	}
	if !c.Trading.DryRun {
		if c.Kraken.APIKey == "" || c.Kraken.APISecret == "" {
			return fmt.Errorf("kraken.api_key and kraken.api_secret are required when dry_run is off")
		}
	}
	if c.Advisor.Enabled && c.Advisor.APIKey == "" {
		return fmt.Errorf("advisor.api_key is required when advisor is enabled")
	}
	return nil
}
