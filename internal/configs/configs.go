package configs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// 基础配置
	Proxy string `json:"proxy" yaml:"proxy" env:"PROSPECTOR_PROXY"` // HTTP(S) 代理

	Server Server `json:"server" yaml:"server"`

	// 链上数据源
	Etherscan Etherscan `json:"etherscan" yaml:"etherscan"`

	// ETH 价格
	Price Price `json:"price" yaml:"price"`

	// 观察名单数据库，可选
	Database Database `json:"database" yaml:"database"`

	// AI 模型参数，可选
	AIConfig AIConfig `json:"ai_config" yaml:"ai_config"`

	Prospecting Prospecting `json:"prospecting" yaml:"prospecting"`
}

type Server struct {
	Addr           string `json:"addr" yaml:"addr" env:"PROSPECTOR_ADDR"`
	ReadTimeoutMS  int    `json:"read_timeout_ms" yaml:"read_timeout_ms" env:"PROSPECTOR_READ_TIMEOUT_MS"`
	WriteTimeoutMS int    `json:"write_timeout_ms" yaml:"write_timeout_ms" env:"PROSPECTOR_WRITE_TIMEOUT_MS"`
	LogLevel       string `json:"log_level" yaml:"log_level" env:"LOG_LEVEL"`
}

type Etherscan struct {
	BaseURL          string  `json:"base_url" yaml:"base_url" env:"ETHERSCAN_BASE_URL"`
	APIKey           string  `json:"api_key" yaml:"api_key" env:"ETHERSCAN_API_KEY"`
	ChainID          string  `json:"chain_id" yaml:"chain_id" env:"ETHERSCAN_CHAIN_ID"`
	RequestsPerSec   float64 `json:"requests_per_sec" yaml:"requests_per_sec" env:"ETHERSCAN_RPS"`
	BalanceTimeoutMS int     `json:"balance_timeout_ms" yaml:"balance_timeout_ms" env:"ETHERSCAN_BALANCE_TIMEOUT_MS"`
	HistoryTimeoutMS int     `json:"history_timeout_ms" yaml:"history_timeout_ms" env:"ETHERSCAN_HISTORY_TIMEOUT_MS"`
}

type Price struct {
	CoinGeckoURL   string  `json:"coingecko_url" yaml:"coingecko_url" env:"COINGECKO_URL"`
	TimeoutMS      int     `json:"timeout_ms" yaml:"timeout_ms" env:"PRICE_TIMEOUT_MS"`
	BinanceEnabled bool    `json:"binance_enabled" yaml:"binance_enabled" env:"PRICE_BINANCE_ENABLED"`
	BinanceURL     string  `json:"binance_url" yaml:"binance_url" env:"PRICE_BINANCE_URL"`
	TTLSeconds     int     `json:"ttl_seconds" yaml:"ttl_seconds" env:"PRICE_TTL_SECONDS"`
	Fallback       float64 `json:"fallback" yaml:"fallback" env:"PRICE_FALLBACK"`
	RedisURL       string  `json:"redis_url" yaml:"redis_url" env:"REDIS_URL"` // 多实例共享价格缓存
}

type Database struct {
	ConnStr string `json:"conn_str" yaml:"conn_str" env:"WATCHLIST_DATABASE_URL"` // 数据库连接字符串
}

type AIConfig struct {
	APIKey    string `json:"api_key" yaml:"api_key" env:"AI_API_KEY"`          // AI服务API密钥
	BaseURL   string `json:"base_url" yaml:"base_url" env:"AI_BASE_URL"`       // 兼容 OpenAI 的接口地址, 例如 DeepSeek
	ModelType string `json:"model_type" yaml:"model_type" env:"AI_MODEL_TYPE"` // AI模型类型
}

type Prospecting struct {
	Concurrency        int `json:"concurrency" yaml:"concurrency" env:"PROSPECTOR_CONCURRENCY"`
	TransactionSample  int `json:"transaction_sample" yaml:"transaction_sample" env:"PROSPECTOR_TX_SAMPLE"`
	TransferSample     int `json:"transfer_sample" yaml:"transfer_sample" env:"PROSPECTOR_TRANSFER_SAMPLE"`
	BreakerFailures    int `json:"breaker_failures" yaml:"breaker_failures" env:"PROSPECTOR_BREAKER_FAILURES"`
	BreakerOpenSeconds int `json:"breaker_open_seconds" yaml:"breaker_open_seconds" env:"PROSPECTOR_BREAKER_OPEN_SECONDS"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:           ":8080",
			ReadTimeoutMS:  10_000,
			WriteTimeoutMS: 120_000,
			LogLevel:       "info",
		},
		Price: Price{
			TTLSeconds: 300,
			Fallback:   2500,
		},
		Prospecting: Prospecting{
			Concurrency: 4,
		},
	}
}

// Load reads an optional .env file, then the config file at path (JSON, or
// YAML for .yaml/.yml), then environment overrides. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	// .env 不存在时直接使用进程环境变量
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(path, raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, raw []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(raw, cfg)
	default:
		return json.Unmarshal(raw, cfg)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Server.LogLevel)] {
		errs = append(errs, fmt.Errorf("invalid log level: %s", c.Server.LogLevel))
	}

	if c.Price.TTLSeconds < 0 {
		errs = append(errs, fmt.Errorf("price.ttl_seconds must not be negative, got %d", c.Price.TTLSeconds))
	}
	if c.Price.Fallback <= 0 {
		errs = append(errs, fmt.Errorf("price.fallback must be positive, got %v", c.Price.Fallback))
	}

	if c.Prospecting.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("prospecting.concurrency must be at least 1, got %d", c.Prospecting.Concurrency))
	}

	return errors.Join(errs...)
}

// ReadTimeout returns the server read timeout as a time.Duration.
func (s Server) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

// WriteTimeout returns the server write timeout as a time.Duration.
func (s Server) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutMS) * time.Millisecond
}

func (e Etherscan) BalanceTimeout() time.Duration {
	return time.Duration(e.BalanceTimeoutMS) * time.Millisecond
}

func (e Etherscan) HistoryTimeout() time.Duration {
	return time.Duration(e.HistoryTimeoutMS) * time.Millisecond
}

func (p Price) Timeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

func (p Price) TTL() time.Duration {
	return time.Duration(p.TTLSeconds) * time.Second
}

func (p Prospecting) BreakerOpenTimeout() time.Duration {
	return time.Duration(p.BreakerOpenSeconds) * time.Second
}
