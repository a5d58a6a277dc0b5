package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		CORS            bool          `yaml:"cors" default:"true"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logging struct {
		Level     string `yaml:"level" default:"info"`
		Format    string `yaml:"format" default:"json"`
		Collector struct {
			Enabled       bool          `yaml:"enabled"`
			BatchSize     int           `yaml:"batch_size" default:"100"`
			FlushInterval time.Duration `yaml:"flush_interval" default:"5s"`
		} `yaml:"collector"`
	} `yaml:"logging"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled" default:"true"`
		Brokers      []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Topics       struct {
			Prices string `yaml:"prices" default:"riskpulse.prices"`
			Trades string `yaml:"trades" default:"riskpulse.trades"`
			Texts  string `yaml:"texts" default:"riskpulse.texts"`
			Alerts string `yaml:"alerts" default:"riskpulse.alerts"`
			Logs   string `yaml:"logs" default:"riskpulse.logs"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"riskpulse"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"riskpulse.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"riskpulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert" default:"true"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
		InitSchema       bool          `yaml:"init_schema" default:"true"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		Prefix       string        `yaml:"prefix" default:"riskpulse"`
		PoolSize     int           `yaml:"pool_size" default:"20"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
		PoolTimeout  time.Duration `yaml:"pool_timeout" default:"4s"`
	} `yaml:"redis"`
	Postgres struct {
		Host            string        `yaml:"host" default:"localhost"`
		Port            int           `yaml:"port" default:"5432"`
		User            string        `yaml:"user" default:"riskpulse"`
		Password        string        `yaml:"password"`
		Database        string        `yaml:"database" default:"riskpulse"`
		SSLMode         string        `yaml:"ssl_mode" default:"disable"`
		MaxOpenConns    int           `yaml:"max_open_conns" default:"5"`
		MaxIdleConns    int           `yaml:"max_idle_conns" default:"2"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"30m"`
	} `yaml:"postgres"`
	Risk struct {
		Enabled          bool          `yaml:"enabled" default:"true"`
		Interval         time.Duration `yaml:"interval" default:"1h"`
		MaxCycleDuration time.Duration `yaml:"max_cycle_duration" default:"50m"`
		Workers          int           `yaml:"workers" default:"8"`
		Windows          struct {
			VolatilityDays    int `yaml:"volatility_days" default:"30"`
			VaRDays           int `yaml:"var_days" default:"90"`
			LiquidityDays     int `yaml:"liquidity_days" default:"7"`
			ConcentrationDays int `yaml:"concentration_days" default:"90"`
		} `yaml:"windows"`
		VaRMinDays int `yaml:"var_min_days" default:"10"`
		Thresholds struct {
			AssetScore        float64       `yaml:"asset_score" default:"75"`
			AssetRatio        float64       `yaml:"asset_ratio" default:"1.2"`
			AssetTrailing     time.Duration `yaml:"asset_trailing" default:"24h"`
			PortfolioVaRRatio float64       `yaml:"portfolio_var_ratio" default:"0.15"`
			MarketIndex       float64       `yaml:"market_index" default:"60"`
			MarketRatio       float64       `yaml:"market_ratio" default:"1.5"`
			MarketTrailing    time.Duration `yaml:"market_trailing" default:"168h"`
		} `yaml:"thresholds"`
	} `yaml:"risk"`
	Sentiment struct {
		Enabled          bool          `yaml:"enabled" default:"true"`
		Interval         time.Duration `yaml:"interval" default:"10m"`
		MaxCycleDuration time.Duration `yaml:"max_cycle_duration" default:"8m"`
		Window           time.Duration `yaml:"window" default:"1h"`
		ItemLimit        int           `yaml:"item_limit" default:"5000"`
		Workers          int           `yaml:"workers" default:"8"`
		AlertMinItems    int           `yaml:"alert_min_items" default:"5"`
		Matcher          string        `yaml:"matcher" default:"substring"`
		Lexicon          struct {
			Source string `yaml:"source" default:"builtin"`
			Path   string `yaml:"path" default:"config/lexicon.yaml"`
		} `yaml:"lexicon"`
		FearGreed struct {
			Enabled  bool          `yaml:"enabled" default:"true"`
			URL      string        `yaml:"url" default:"https://api.alternative.me/fng/"`
			Timeout  time.Duration `yaml:"timeout" default:"5s"`
			Attempts int           `yaml:"attempts" default:"3"`
		} `yaml:"fear_greed"`
	} `yaml:"sentiment"`
	API struct {
		CacheTTL  time.Duration `yaml:"cache_ttl" default:"60s"`
		RateLimit struct {
			Enabled      bool    `yaml:"enabled" default:"true"`
			Capacity     int     `yaml:"capacity" default:"30"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"1"`
		} `yaml:"rate_limit"`
	} `yaml:"api"`
	Sentry struct {
		DSN              string  `yaml:"dsn"`
		Environment      string  `yaml:"environment"`
		Release          string  `yaml:"release"`
		Debug            bool    `yaml:"debug"`
		TracesSampleRate float64 `yaml:"traces_sample_rate"`
	} `yaml:"sentry"`
}

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Parse applies defaults, then overlays the YAML document and validates.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := getenv("POSTGRES_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := getenv("POSTGRES_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("POSTGRES_PORT: %w", err)
		}
		c.Postgres.Port = port
	}
	if v := getenv("POSTGRES_USER"); v != "" {
		c.Postgres.User = v
	}
	if v := getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := getenv("POSTGRES_DB"); v != "" {
		c.Postgres.Database = v
	}
	if v := getenv("SENTRY_DSN"); v != "" {
		c.Sentry.DSN = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("LEXICON_SOURCE"); v != "" {
		c.Sentiment.Lexicon.Source = v
	}
	return nil
}

// PostgresDSN builds a lib/pq connection string.
func (c *Config) PostgresDSN() string {
	p := c.Postgres
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty")
	}
	if c.Risk.Interval <= 0 || c.Sentiment.Interval <= 0 {
		return fmt.Errorf("risk.interval and sentiment.interval must be positive")
	}
	if c.Risk.MaxCycleDuration <= 0 || c.Sentiment.MaxCycleDuration <= 0 {
		return fmt.Errorf("max_cycle_duration must be positive")
	}
	if c.Risk.Workers <= 0 || c.Sentiment.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	w := c.Risk.Windows
	if w.VolatilityDays <= 0 || w.VaRDays <= 0 || w.LiquidityDays <= 0 || w.ConcentrationDays <= 0 {
		return fmt.Errorf("risk.windows must be positive")
	}
	if c.Sentiment.Window <= 0 {
		return fmt.Errorf("sentiment.window must be positive")
	}
	if c.Risk.VaRMinDays < 2 {
		return fmt.Errorf("risk.var_min_days must be at least 2, got %d", c.Risk.VaRMinDays)
	}
	t := c.Risk.Thresholds
	if t.AssetScore < 0 || t.AssetScore > 100 {
		return fmt.Errorf("risk.thresholds.asset_score must be in [0,100], got %v", t.AssetScore)
	}
	if t.AssetRatio <= 0 || t.MarketRatio <= 0 {
		return fmt.Errorf("risk.thresholds ratios must be positive")
	}
	if t.PortfolioVaRRatio <= 0 || t.PortfolioVaRRatio > 1 {
		return fmt.Errorf("risk.thresholds.portfolio_var_ratio must be in (0,1], got %v", t.PortfolioVaRRatio)
	}
	if t.MarketIndex < 0 {
		return fmt.Errorf("risk.thresholds.market_index must be non-negative")
	}
	if t.AssetTrailing <= 0 || t.MarketTrailing <= 0 {
		return fmt.Errorf("risk.thresholds trailing windows must be positive")
	}
	switch c.Sentiment.Lexicon.Source {
	case "builtin", "file", "postgres":
	default:
		return fmt.Errorf("sentiment.lexicon.source must be 'builtin', 'file' or 'postgres', got '%s'", c.Sentiment.Lexicon.Source)
	}
	switch c.Sentiment.Matcher {
	case "substring", "word":
	default:
		return fmt.Errorf("sentiment.matcher must be 'substring' or 'word', got '%s'", c.Sentiment.Matcher)
	}
	return nil
}
