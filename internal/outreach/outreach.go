// Package outreach turns wallet metrics and scores into signals, flags,
// recommendations and contact suggestions for the growth team.
package outreach

import (
	"fmt"

	"github.com/songzhibin97/prospector/internal/models"
	"github.com/songzhibin97/prospector/internal/risk"
)

// Plan is the human-facing part of a qualification score.
type Plan struct {
	PositiveSignals []string
	RiskFlags       []string
	Recommendations []string
	ContactMethods  []models.ContactMethod
	Priority        models.OutreachPriority
}

// Generate builds the outreach plan. Every list keeps rule order, which
// callers rely on when they show only the first few entries.
func Generate(m *models.WalletMetrics, scores models.ComponentScores, tier models.RiskTier, overallScore float64) *Plan {
	return &Plan{
		PositiveSignals: positiveSignals(m, scores),
		RiskFlags:       riskFlags(m),
		Recommendations: recommendations(m, tier, scores),
		ContactMethods:  contactMethods(m),
		Priority:        Priority(overallScore, m.TotalValueUSD),
	}
}

func positiveSignals(m *models.WalletMetrics, scores models.ComponentScores) []string {
	signals := make([]string, 0)

	if m.TotalValueUSD >= 100_000 {
		signals = append(signals, "Substantial crypto holdings (>$100k)")
	}
	if m.WalletAgeDays >= 730 {
		signals = append(signals, "Established wallet history (2+ years)")
	}
	if m.BehaviorType == models.BehaviorHodler || m.BehaviorType == models.BehaviorAccumulator {
		signals = append(signals, fmt.Sprintf("Favorable behavior pattern: %s", m.BehaviorType))
	}
	if m.DiversificationScore >= 70 {
		signals = append(signals, "Well-diversified portfolio")
	}
	if m.DefiProtocolCount >= 3 {
		signals = append(signals, "DeFi-savvy user (multiple protocols)")
	}
	if m.HasENS {
		signals = append(signals, "ENS domain owner (identity signal)")
	}
	if scores.Stability >= 70 {
		signals = append(signals, "High stability score")
	}

	return signals
}

func riskFlags(m *models.WalletMetrics) []string {
	flags := make([]string, 0)

	if m.TotalValueUSD < risk.MinWalletValueUSD {
		flags = append(flags, "Holdings below minimum threshold ($50k)")
	}
	if m.WalletAgeDays < risk.MinWalletAgeDays {
		flags = append(flags, "New wallet (< 6 months)")
	}
	if m.BehaviorType == models.BehaviorActiveTrader {
		flags = append(flags, "High trading frequency (volatility risk)")
	}
	if m.LargestSingleHoldingPct > 80 {
		flags = append(flags, "Concentrated position (>80% single asset)")
	}
	if m.TransactionCount < risk.MinTransactionCount {
		flags = append(flags, "Limited transaction history")
	}
	if m.BehaviorType == models.BehaviorDormant {
		flags = append(flags, "Dormant wallet (inactivity concern)")
	}

	return flags
}

func recommendations(m *models.WalletMetrics, tier models.RiskTier, scores models.ComponentScores) []string {
	recs := make([]string, 0)

	switch tier {
	case models.RiskTierPrime:
		recs = append(recs,
			"High-priority prospect - initiate premium outreach",
			"Consider crypto-collateralized mortgage products")
	case models.RiskTierNearPrime:
		recs = append(recs, "Good prospect - standard qualification process")
		if scores.Stability < 70 {
			recs = append(recs, "Request additional holding period documentation")
		}
	case models.RiskTierSubprime:
		recs = append(recs, "Requires enhanced documentation")
		if m.TotalValueUSD < risk.MinWalletValueUSD {
			recs = append(recs, "May need traditional income verification")
		}
	default:
		recs = append(recs,
			"Does not meet current qualification criteria",
			"Consider nurture campaign for future qualification")
	}

	if m.BehaviorType == models.BehaviorActiveTrader {
		recs = append(recs, "Consider volatility-adjusted qualification")
	}
	if !m.HasENS {
		recs = append(recs, "Request identity verification (no ENS)")
	}

	return recs
}

func contactMethods(m *models.WalletMetrics) []models.ContactMethod {
	methods := make([]models.ContactMethod, 0, 3)

	if m.HasENS && m.ENSName != nil {
		methods = append(methods, models.ContactMethod{
			Type:  "ens",
			Value: *m.ENSName,
			Note:  "Can message via ENS-linked channels",
		})
	}

	methods = append(methods, models.ContactMethod{
		Type:  "on_chain_message",
		Value: m.Address,
		Note:  "Can send on-chain message transaction",
	})

	if m.DefiProtocolCount > 0 {
		methods = append(methods, models.ContactMethod{
			Type:  "defi_community",
			Value: "Protocol Discord/Telegram",
			Note:  "Active in DeFi communities - consider targeted ads",
		})
	}

	return methods
}

// Priority buckets a prospect for the outreach queue.
func Priority(overallScore, totalValueUSD float64) models.OutreachPriority {
	switch {
	case overallScore >= 80 && totalValueUSD >= 250_000:
		return models.PriorityHigh
	case overallScore >= 60 && totalValueUSD >= 100_000:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}
