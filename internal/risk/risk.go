package risk

import (
	"math"

	"github.com/songzhibin97/prospector/internal/models"
)

// Minimum thresholds for mortgage consideration
const (
	MinWalletValueUSD   = 50_000
	MinWalletAgeDays    = 180
	MinTransactionCount = 10
)

const (
	incomeMultiplier      = 5.0
	netWorthLendableRatio = 0.5
	maxLTV                = 85.0
	ltvStabilityBonus     = 5.0
)

var tierMortgageMultiplier = map[models.RiskTier]float64{
	models.RiskTierPrime:       1.0,
	models.RiskTierNearPrime:   0.85,
	models.RiskTierSubprime:    0.7,
	models.RiskTierUnqualified: 0.5,
}

var tierBaseLTV = map[models.RiskTier]float64{
	models.RiskTierPrime:       80,
	models.RiskTierNearPrime:   75,
	models.RiskTierSubprime:    70,
	models.RiskTierUnqualified: 60,
}

// BasicAssessor applies the fixed tier table and underwriting heuristics.
type BasicAssessor struct{}

var _ Assessor = BasicAssessor{}

func NewBasicAssessor() BasicAssessor {
	return BasicAssessor{}
}

func (BasicAssessor) Assess(overallScore float64, metrics *models.WalletMetrics) *Assessment {
	tier := DetermineTier(overallScore, metrics.TotalValueUSD)
	income := EstimateIncome(metrics)

	return &Assessment{
		Tier:            tier,
		EstimatedIncome: income,
		NetWorth:        metrics.TotalValueUSD,
		MaxMortgage:     MaxMortgage(income, metrics.TotalValueUSD, tier),
		RecommendedLTV:  RecommendLTV(tier, metrics),
	}
}

// DetermineTier evaluates the tier rules in order; the first match wins.
func DetermineTier(overallScore, totalValueUSD float64) models.RiskTier {
	switch {
	case overallScore >= 75 && totalValueUSD >= 100_000:
		return models.RiskTierPrime
	case overallScore >= 60 && totalValueUSD >= 50_000:
		return models.RiskTierNearPrime
	case overallScore >= 40:
		return models.RiskTierSubprime
	default:
		return models.RiskTierUnqualified
	}
}

// EstimateIncome maps holdings to an annual income band. DeFi activity and
// accumulator behavior each raise the estimate; the multipliers compound.
func EstimateIncome(metrics *models.WalletMetrics) float64 {
	var income float64
	switch v := metrics.TotalValueUSD; {
	case v >= 500_000:
		income = 200_000
	case v >= 250_000:
		income = 150_000
	case v >= 100_000:
		income = 100_000
	case v >= 50_000:
		income = 75_000
	default:
		income = 50_000
	}

	if metrics.DefiProtocolCount >= 3 {
		income *= 1.2
	}
	if metrics.BehaviorType == models.BehaviorAccumulator {
		income *= 1.1
	}

	return math.RoundToEven(income)
}

// MaxMortgage takes the lower of the income-based and asset-based limits and
// scales it by the tier multiplier.
func MaxMortgage(estimatedIncome, netWorth float64, tier models.RiskTier) float64 {
	byIncome := estimatedIncome * incomeMultiplier
	byAssets := netWorth * netWorthLendableRatio

	m, ok := tierMortgageMultiplier[tier]
	if !ok {
		m = tierMortgageMultiplier[models.RiskTierUnqualified]
	}

	return math.RoundToEven(math.Min(byIncome, byAssets) * m)
}

// RecommendLTV returns the tier's base LTV, raised for long-lived diversified
// wallets.
func RecommendLTV(tier models.RiskTier, metrics *models.WalletMetrics) float64 {
	ltv, ok := tierBaseLTV[tier]
	if !ok {
		ltv = tierBaseLTV[models.RiskTierUnqualified]
	}

	if metrics.WalletAgeDays >= 730 && metrics.DiversificationScore >= 70 {
		ltv = math.Min(maxLTV, ltv+ltvStabilityBonus)
	}

	return ltv
}
