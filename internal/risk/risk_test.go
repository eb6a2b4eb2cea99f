package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/songzhibin97/prospector/internal/models"
)

func TestDetermineTier(t *testing.T) {
	tests := []struct {
		name    string
		overall float64
		value   float64
		want    models.RiskTier
	}{
		{"prime", 75, 100_000, models.RiskTierPrime},
		{"high score but small wallet", 90, 99_999, models.RiskTierNearPrime},
		{"near prime boundary", 60, 50_000, models.RiskTierNearPrime},
		{"near prime score, tiny wallet", 65, 10_000, models.RiskTierSubprime},
		{"subprime boundary", 40, 0, models.RiskTierSubprime},
		{"unqualified", 39.99, 1_000_000, models.RiskTierUnqualified},
		{"empty wallet", 0, 0, models.RiskTierUnqualified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineTier(tt.overall, tt.value))
		})
	}
}

func TestDetermineTier_Monotonic(t *testing.T) {
	// 分数或资产增加时, 等级不会下降
	values := []float64{0, 10_000, 49_999, 50_000, 99_999, 100_000, 500_000, 5_000_000}
	for _, v := range values {
		prev := -1
		for s := 0.0; s <= 100; s += 0.5 {
			rank := DetermineTier(s, v).Rank()
			assert.GreaterOrEqual(t, rank, prev, "score %.1f value %.0f", s, v)
			prev = rank
		}
	}
	for s := 0.0; s <= 100; s += 5 {
		prev := -1
		for _, v := range values {
			rank := DetermineTier(s, v).Rank()
			assert.GreaterOrEqual(t, rank, prev, "score %.1f value %.0f", s, v)
			prev = rank
		}
	}
}

func TestEstimateIncome(t *testing.T) {
	tests := []struct {
		name    string
		metrics models.WalletMetrics
		want    float64
	}{
		{"smallest band", models.WalletMetrics{TotalValueUSD: 10_000}, 50_000},
		{"50k band", models.WalletMetrics{TotalValueUSD: 50_000}, 75_000},
		{"100k band", models.WalletMetrics{TotalValueUSD: 150_000}, 100_000},
		{"250k band", models.WalletMetrics{TotalValueUSD: 250_000}, 150_000},
		{"500k band", models.WalletMetrics{TotalValueUSD: 2_000_000}, 200_000},
		{"defi boost", models.WalletMetrics{TotalValueUSD: 100_000, DefiProtocolCount: 3}, 120_000},
		{"accumulator boost", models.WalletMetrics{TotalValueUSD: 100_000, BehaviorType: models.BehaviorAccumulator}, 110_000},
		{"boosts compound", models.WalletMetrics{TotalValueUSD: 500_000, DefiProtocolCount: 4, BehaviorType: models.BehaviorAccumulator}, 264_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateIncome(&tt.metrics))
		})
	}
}

func TestMaxMortgage(t *testing.T) {
	tests := []struct {
		name     string
		income   float64
		netWorth float64
		tier     models.RiskTier
		want     float64
	}{
		{"asset bound prime", 200_000, 1_000_000, models.RiskTierPrime, 500_000},
		{"income bound prime", 100_000, 2_000_000, models.RiskTierPrime, 500_000},
		{"near prime multiplier", 100_000, 300_000, models.RiskTierNearPrime, 127_500},
		{"subprime multiplier", 75_000, 60_000, models.RiskTierSubprime, 21_000},
		{"unqualified multiplier", 50_000, 0, models.RiskTierUnqualified, 0},
		{"unknown tier treated as unqualified", 50_000, 100_000, models.RiskTier("bogus"), 25_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaxMortgage(tt.income, tt.netWorth, tt.tier))
		})
	}
}

func TestRecommendLTV(t *testing.T) {
	tests := []struct {
		name    string
		tier    models.RiskTier
		metrics models.WalletMetrics
		want    float64
	}{
		{"prime base", models.RiskTierPrime, models.WalletMetrics{}, 80},
		{"near prime base", models.RiskTierNearPrime, models.WalletMetrics{}, 75},
		{"subprime base", models.RiskTierSubprime, models.WalletMetrics{}, 70},
		{"unqualified base", models.RiskTierUnqualified, models.WalletMetrics{}, 60},
		{"stability bonus", models.RiskTierPrime, models.WalletMetrics{WalletAgeDays: 730, DiversificationScore: 70}, 85},
		{"bonus needs both", models.RiskTierPrime, models.WalletMetrics{WalletAgeDays: 730, DiversificationScore: 69.99}, 80},
		{"bonus near prime", models.RiskTierNearPrime, models.WalletMetrics{WalletAgeDays: 1000, DiversificationScore: 90}, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecommendLTV(tt.tier, &tt.metrics))
		})
	}
}

func TestBasicAssessor_Assess(t *testing.T) {
	m := &models.WalletMetrics{
		TotalValueUSD:        300_000,
		WalletAgeDays:        800,
		DiversificationScore: 75,
		DefiProtocolCount:    3,
	}

	a := NewBasicAssessor().Assess(78, m)

	assert.Equal(t, models.RiskTierPrime, a.Tier)
	assert.Equal(t, 180_000.0, a.EstimatedIncome)
	assert.Equal(t, 300_000.0, a.NetWorth)
	assert.Equal(t, 150_000.0, a.MaxMortgage)
	assert.Equal(t, 85.0, a.RecommendedLTV)
}

func TestMaxMortgage_RoundsHalfToEven(t *testing.T) {
	tests := []struct {
		name     string
		income   float64
		netWorth float64
		want     float64
	}{
		// min(500, netWorth/2) * 0.5
		{"half rounds down to even", 100, 2, 0},
		{"one and a half rounds up to even", 100, 6, 2},
		{"two and a half rounds down to even", 100, 10, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaxMortgage(tt.income, tt.netWorth, models.RiskTierUnqualified))
		})
	}
}
