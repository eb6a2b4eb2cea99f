package risk

import (
	"github.com/songzhibin97/prospector/internal/models"
)

// Assessor turns a scored wallet into an underwriting view
type Assessor interface {
	// Assess determines the risk tier and financial estimates for a wallet
	// whose weighted overall score is already known
	Assess(overallScore float64, metrics *models.WalletMetrics) *Assessment
}

// Assessment 风险评估结果
type Assessment struct {
	Tier            models.RiskTier `json:"risk_tier"`
	EstimatedIncome float64         `json:"estimated_annual_income"`
	NetWorth        float64         `json:"estimated_net_worth"`
	MaxMortgage     float64         `json:"max_mortgage_amount"`
	RecommendedLTV  float64         `json:"recommended_ltv"`
}
