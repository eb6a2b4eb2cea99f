package etherscan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/songzhibin97/prospector/internal/data"
	"github.com/songzhibin97/prospector/internal/models"
	"github.com/songzhibin97/prospector/internal/utils/request"
)

const (
	defaultBaseURL = "https://api.etherscan.io/v2/api"
	defaultChainID = "1"

	noTransactionsFound = "No transactions found"
)

var weiPerEther = decimal.New(1, 18)

// Config holds the Etherscan client settings.
type Config struct {
	BaseURL        string
	APIKey         string
	ChainID        string
	RequestsPerSec float64
	BalanceTimeout time.Duration
	HistoryTimeout time.Duration
}

// Client implements data.ChainDataProvider against the Etherscan account API.
type Client struct {
	baseURL        string
	apiKey         string
	chainID        string
	balanceTimeout time.Duration
	historyTimeout time.Duration
	limiter        *rate.Limiter
	httpClient     *resty.Client
}

var _ data.ChainDataProvider = (*Client)(nil)

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ChainID == "" {
		cfg.ChainID = defaultChainID
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 5 // 免费额度 5 req/s
	}
	if cfg.BalanceTimeout <= 0 {
		cfg.BalanceTimeout = 10 * time.Second
	}
	if cfg.HistoryTimeout <= 0 {
		cfg.HistoryTimeout = 15 * time.Second
	}

	return &Client{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		chainID:        cfg.ChainID,
		balanceTimeout: cfg.BalanceTimeout,
		historyTimeout: cfg.HistoryTimeout,
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		httpClient:     request.New(cfg.HistoryTimeout),
	}
}

func (c *Client) Name() string {
	return "etherscan"
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type txRecord struct {
	Hash         string `json:"hash"`
	From         string `json:"from"`
	To           string `json:"to"`
	Value        string `json:"value"`
	FunctionName string `json:"functionName"`
	Input        string `json:"input"`
	TimeStamp    string `json:"timeStamp"`
}

type tokenTxRecord struct {
	TokenSymbol     string `json:"tokenSymbol"`
	TokenName       string `json:"tokenName"`
	ContractAddress string `json:"contractAddress"`
	Value           string `json:"value"`
	TimeStamp       string `json:"timeStamp"`
}

func (c *Client) GetBalance(ctx context.Context, address string) (*models.Balance, error) {
	ctx, cancel := context.WithTimeout(ctx, c.balanceTimeout)
	defer cancel()

	env, err := c.call(ctx, map[string]string{
		"action":  "balance",
		"address": address,
		"tag":     "latest",
	})
	if err != nil {
		return nil, err
	}
	if env == nil {
		return &models.Balance{Wei: decimal.Zero}, nil
	}

	var raw string
	if err := json.Unmarshal(env.Result, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode balance: %w", err)
	}

	wei, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance %q: %w", raw, err)
	}

	return &models.Balance{
		Wei: wei,
		ETH: wei.Div(weiPerEther).InexactFloat64(),
	}, nil
}

func (c *Client) GetTransactions(ctx context.Context, address string, limit int) ([]models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.historyTimeout)
	defer cancel()

	env, err := c.call(ctx, map[string]string{
		"action":     "txlist",
		"address":    address,
		"startblock": "0",
		"endblock":   "99999999",
		"page":       "1",
		"offset":     strconv.Itoa(limit),
		"sort":       "desc",
	})
	if err != nil {
		return nil, err
	}
	if env == nil {
		return []models.Transaction{}, nil
	}

	var records []txRecord
	if err := json.Unmarshal(env.Result, &records); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}

	txs := make([]models.Transaction, 0, len(records))
	for _, r := range records {
		ts, err := parseTimestamp(r.TimeStamp)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", r.Hash, err)
		}
		txs = append(txs, models.Transaction{
			Hash:         r.Hash,
			From:         r.From,
			To:           r.To,
			Value:        r.Value,
			FunctionName: r.FunctionName,
			Input:        r.Input,
			Timestamp:    ts,
		})
	}

	return txs, nil
}

func (c *Client) GetTokenTransfers(ctx context.Context, address string, limit int) ([]models.TokenTransfer, error) {
	ctx, cancel := context.WithTimeout(ctx, c.historyTimeout)
	defer cancel()

	env, err := c.call(ctx, map[string]string{
		"action":  "tokentx",
		"address": address,
		"page":    "1",
		"offset":  strconv.Itoa(limit),
		"sort":    "desc",
	})
	if err != nil {
		return nil, err
	}
	if env == nil {
		return []models.TokenTransfer{}, nil
	}

	var records []tokenTxRecord
	if err := json.Unmarshal(env.Result, &records); err != nil {
		return nil, fmt.Errorf("failed to decode token transfers: %w", err)
	}

	transfers := make([]models.TokenTransfer, 0, len(records))
	for _, r := range records {
		ts, err := parseTimestamp(r.TimeStamp)
		if err != nil {
			return nil, fmt.Errorf("token transfer %s: %w", r.TokenSymbol, err)
		}
		transfers = append(transfers, models.TokenTransfer{
			TokenSymbol:     r.TokenSymbol,
			TokenName:       r.TokenName,
			ContractAddress: r.ContractAddress,
			Value:           r.Value,
			Timestamp:       ts,
		})
	}

	return transfers, nil
}

// call performs one account-module request. A nil envelope with a nil error
// means the account simply has no records.
func (c *Client) call(ctx context.Context, params map[string]string) (*envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", data.ErrThrottled, err)
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("module", "account").
		SetQueryParam("chainid", c.chainID).
		SetQueryParam("apikey", c.apiKey).
		Get(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if env.Status != "1" {
		if env.Message == noTransactionsFound {
			return nil, nil
		}
		var detail string
		_ = json.Unmarshal(env.Result, &detail)
		return nil, fmt.Errorf("%w: %s %s", data.ErrProviderStatus, env.Message, detail)
	}

	return &env, nil
}

func parseTimestamp(s string) (time.Time, error) {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return time.Unix(sec, 0).UTC(), nil
}
