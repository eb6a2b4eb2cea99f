package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance 账户余额
type Balance struct {
	Wei decimal.Decimal `json:"wei"`
	ETH float64         `json:"eth"`
}

// Transaction is a normal transaction as returned by the history provider.
type Transaction struct {
	Hash         string    `json:"hash"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Value        string    `json:"value"`
	FunctionName string    `json:"function_name"`
	Input        string    `json:"input"`
	Timestamp    time.Time `json:"timestamp"`
}

// TokenTransfer is an ERC20 transfer event touching the wallet.
type TokenTransfer struct {
	TokenSymbol     string    `json:"token_symbol"`
	TokenName       string    `json:"token_name"`
	ContractAddress string    `json:"contract_address"`
	Value           string    `json:"value"`
	Timestamp       time.Time `json:"timestamp"`
}

// WalletMetrics 钱包指标快照，每次分析重新计算
type WalletMetrics struct {
	Address                 string       `json:"address"`
	TotalValueUSD           float64      `json:"total_value_usd"`
	ETHBalance              float64      `json:"eth_balance"`
	TokenCount              int          `json:"token_count"`
	NFTCount                int          `json:"nft_count"`
	FirstTransactionDate    *time.Time   `json:"first_transaction_date"`
	LastTransactionDate     *time.Time   `json:"last_transaction_date"`
	TransactionCount        int          `json:"transaction_count"`
	WalletAgeDays           int          `json:"wallet_age_days"`
	AvgHoldTimeDays         float64      `json:"avg_hold_time_days"`
	LargestSingleHoldingPct float64      `json:"largest_single_holding_pct"`
	DefiProtocolCount       int          `json:"defi_protocol_count"`
	StakingPositions        int          `json:"staking_positions"`
	HasENS                  bool         `json:"has_ens"`
	ENSName                 *string      `json:"ens_name"`
	BehaviorType            BehaviorType `json:"behavior_type"`
	DiversificationScore    float64      `json:"diversification_score"`

	// ETHPriceUSD is the reference price the snapshot was valued at; scoring
	// reuses it so one wallet is never priced twice.
	ETHPriceUSD float64 `json:"-"`
}

// ContactMethod is one suggested outreach channel.
type ContactMethod struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Note  string `json:"note"`
}

// MortgageQualificationScore 抵押贷款资格评分
type MortgageQualificationScore struct {
	WalletAddress string   `json:"wallet_address"`
	OverallScore  float64  `json:"overall_score"`
	RiskTier      RiskTier `json:"risk_tier"`

	// 分项评分 (0-100)
	WealthScore       float64 `json:"wealth_score"`
	StabilityScore    float64 `json:"stability_score"`
	BehaviorScore     float64 `json:"behavior_score"`
	LiquidityScore    float64 `json:"liquidity_score"`
	VerificationScore float64 `json:"verification_score"`

	EstimatedAnnualIncome float64 `json:"estimated_annual_income"`
	EstimatedNetWorth     float64 `json:"estimated_net_worth"`
	MaxMortgageAmount     float64 `json:"max_mortgage_amount"`
	RecommendedLTV        float64 `json:"recommended_ltv"`

	PositiveSignals []string `json:"positive_signals"`
	RiskFlags       []string `json:"risk_flags"`
	Recommendations []string `json:"recommendations"`

	ContactMethods   []ContactMethod  `json:"contact_methods"`
	OutreachPriority OutreachPriority `json:"outreach_priority"`
}

// ProspectLead is the discovery projection of metrics and score.
type ProspectLead struct {
	WalletAddress      string           `json:"wallet_address"`
	QualificationScore float64          `json:"qualification_score"`
	RiskTier           RiskTier         `json:"risk_tier"`
	EstimatedValue     float64          `json:"estimated_value"`
	BehaviorType       BehaviorType     `json:"behavior_type"`
	ContactMethods     []ContactMethod  `json:"contact_methods"`
	LastActive         string           `json:"last_active"`
	Priority           OutreachPriority `json:"priority"`
	Notes              []string         `json:"notes"`
}

// BatchResult is one row of a batch analysis. A failed address carries only
// the address, the error and a zero overall score.
type BatchResult struct {
	*MortgageQualificationScore
	WalletAddress string  `json:"wallet_address"`
	OverallScore  float64 `json:"overall_score"`
	Error         string  `json:"error,omitempty"`
}

// ReportSummary is the condensed view at the end of a prospect report.
type ReportSummary struct {
	Qualified            bool             `json:"qualified"`
	Priority             OutreachPriority `json:"priority"`
	EstimatedOpportunity float64          `json:"estimated_opportunity"`
	KeyStrengths         []string         `json:"key_strengths"`
	KeyConcerns          []string         `json:"key_concerns"`
	NextSteps            []string         `json:"next_steps"`
}

// ProspectReport 单个钱包的完整报告
type ProspectReport struct {
	ReportID           string                      `json:"report_id"`
	ReportGenerated    time.Time                   `json:"report_generated"`
	WalletAnalysis     *WalletMetrics              `json:"wallet_analysis"`
	QualificationScore *MortgageQualificationScore `json:"qualification_score"`
	Summary            ReportSummary               `json:"summary"`
	DemoNote           string                      `json:"demo_note,omitempty"`
	OutreachDraft      string                      `json:"outreach_draft,omitempty"`
}

// ComponentScores holds the five independent 0-100 sub-scores.
type ComponentScores struct {
	Wealth       float64 `json:"wealth"`
	Stability    float64 `json:"stability"`
	Behavior     float64 `json:"behavior"`
	Liquidity    float64 `json:"liquidity"`
	Verification float64 `json:"verification"`
}
