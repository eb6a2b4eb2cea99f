package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/go-resty/resty/v2"

	"github.com/songzhibin97/prospector/internal/utils/request"
)

// ErrNoPrice is returned when a source answers without a usable price.
var ErrNoPrice = errors.New("no usable price in response")

// Source fetches a live ETH/USD spot price.
type Source interface {
	Name() string
	FetchPrice(ctx context.Context) (float64, error)
}

const defaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoSource reads the simple/price endpoint.
type CoinGeckoSource struct {
	baseURL    string
	httpClient *resty.Client
}

func NewCoinGeckoSource(baseURL string, timeout time.Duration) *CoinGeckoSource {
	if baseURL == "" {
		baseURL = defaultCoinGeckoURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CoinGeckoSource{
		baseURL:    baseURL,
		httpClient: request.New(timeout),
	}
}

func (s *CoinGeckoSource) Name() string { return "coingecko" }

func (s *CoinGeckoSource) FetchPrice(ctx context.Context) (float64, error) {
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           "ethereum",
			"vs_currencies": "usd",
		}).
		Get(s.baseURL + "/simple/price")
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	var result struct {
		Ethereum struct {
			USD *float64 `json:"usd"`
		} `json:"ethereum"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Ethereum.USD == nil || *result.Ethereum.USD <= 0 {
		return 0, ErrNoPrice
	}

	return *result.Ethereum.USD, nil
}

// BinanceSource reads the ETHUSDT last price from the Binance spot API.
type BinanceSource struct {
	client  *binance.Client
	symbol  string
	timeout time.Duration
}

func NewBinanceSource(baseURL string, timeout time.Duration) *BinanceSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	// 默认 http.Client 没有超时
	client.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
	}
	return &BinanceSource{
		client:  client,
		symbol:  "ETHUSDT",
		timeout: timeout,
	}
}

func (s *BinanceSource) Name() string { return "binance" }

func (s *BinanceSource) FetchPrice(ctx context.Context) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prices, err := s.client.NewListPricesService().Symbol(s.symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list prices: %w", err)
	}

	for _, p := range prices {
		if p.Symbol != s.symbol {
			continue
		}
		v, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse price: %w", err)
		}
		if v <= 0 {
			return 0, ErrNoPrice
		}
		return v, nil
	}

	return 0, ErrNoPrice
}

// MultiSource asks each source in order and returns the first price.
type MultiSource struct {
	sources []Source
	logger  *slog.Logger
}

func NewMultiSource(sources []Source, logger *slog.Logger) *MultiSource {
	return &MultiSource{
		sources: sources,
		logger:  logger,
	}
}

func (m *MultiSource) Name() string { return "multi" }

func (m *MultiSource) FetchPrice(ctx context.Context) (float64, error) {
	for _, src := range m.sources {
		p, err := src.FetchPrice(ctx)
		if err == nil {
			m.logger.Debug("fetched eth price", "source", src.Name(), "price", p)
			return p, nil
		}
		m.logger.Warn("failed to fetch eth price", "source", src.Name(), "error", err)
	}
	return 0, fmt.Errorf("failed to fetch price from all sources")
}
