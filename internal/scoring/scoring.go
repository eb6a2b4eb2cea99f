package scoring

import (
	"time"

	"github.com/songzhibin97/prospector/internal/models"
	"github.com/songzhibin97/prospector/internal/outreach"
	"github.com/songzhibin97/prospector/internal/risk"
)

// Scorer turns a metrics snapshot into a mortgage qualification score.
type Scorer interface {
	Score(metrics *models.WalletMetrics, ethPrice float64) *models.MortgageQualificationScore
}

// Engine is the default Scorer.
type Engine struct {
	assessor risk.Assessor
	now      func() time.Time
}

var _ Scorer = (*Engine)(nil)

func NewEngine(assessor risk.Assessor, now func() time.Time) *Engine {
	if assessor == nil {
		assessor = risk.NewBasicAssessor()
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{
		assessor: assessor,
		now:      now,
	}
}

// Components computes the five sub-scores without rounding.
func (e *Engine) Components(m *models.WalletMetrics, ethPrice float64) models.ComponentScores {
	return models.ComponentScores{
		Wealth:       WealthScore(m.TotalValueUSD),
		Stability:    StabilityScore(m),
		Behavior:     BehaviorScore(m),
		Liquidity:    LiquidityScore(m, ethPrice, e.now()),
		Verification: VerificationScore(m),
	}
}

// Score implements Scorer. The metrics snapshot is read, never modified.
func (e *Engine) Score(m *models.WalletMetrics, ethPrice float64) *models.MortgageQualificationScore {
	components := e.Components(m, ethPrice)
	overall := Overall(components)

	assessment := e.assessor.Assess(overall, m)
	plan := outreach.Generate(m, components, assessment.Tier, overall)

	return &models.MortgageQualificationScore{
		WalletAddress:         m.Address,
		OverallScore:          round2(overall),
		RiskTier:              assessment.Tier,
		WealthScore:           round2(components.Wealth),
		StabilityScore:        round2(components.Stability),
		BehaviorScore:         round2(components.Behavior),
		LiquidityScore:        round2(components.Liquidity),
		VerificationScore:     round2(components.Verification),
		EstimatedAnnualIncome: assessment.EstimatedIncome,
		EstimatedNetWorth:     assessment.NetWorth,
		MaxMortgageAmount:     assessment.MaxMortgage,
		RecommendedLTV:        assessment.RecommendedLTV,
		PositiveSignals:       plan.PositiveSignals,
		RiskFlags:             plan.RiskFlags,
		Recommendations:       plan.Recommendations,
		ContactMethods:        plan.ContactMethods,
		OutreachPriority:      plan.Priority,
	}
}
