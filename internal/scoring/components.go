package scoring

import (
	"math"
	"time"

	"github.com/songzhibin97/prospector/internal/models"
)

// Component weights. They sum to 1.0.
const (
	WealthWeight       = 0.30
	StabilityWeight    = 0.25
	BehaviorWeight     = 0.20
	LiquidityWeight    = 0.15
	VerificationWeight = 0.10
)

// wealthBand interpolates linearly from (lo, loScore) to (hi, hiScore).
type wealthBand struct {
	lo, hi           float64
	loScore, hiScore float64
}

var wealthBands = []wealthBand{
	{0, 50_000, 0, 30},
	{50_000, 100_000, 30, 50},
	{100_000, 250_000, 50, 70},
	{250_000, 500_000, 70, 85},
	{500_000, 1_000_000, 85, 95},
}

var behaviorBase = map[models.BehaviorType]float64{
	models.BehaviorAccumulator:   90,
	models.BehaviorHodler:        85,
	models.BehaviorWhale:         80,
	models.BehaviorYieldFarmer:   75,
	models.BehaviorDefiPowerUser: 70,
	models.BehaviorActiveTrader:  50,
	models.BehaviorDormant:       30,
}

const unknownBehaviorScore = 50

// WealthScore maps total holdings onto six piecewise-linear bands.
func WealthScore(totalValueUSD float64) float64 {
	for _, b := range wealthBands {
		if totalValueUSD < b.hi {
			return clamp(b.loScore + (totalValueUSD-b.lo)/(b.hi-b.lo)*(b.hiScore-b.loScore))
		}
	}
	// 100 万美元以上每多 100 万加 5 分，封顶 100
	return clamp(95 + math.Min(5, (totalValueUSD-1_000_000)/1_000_000*5))
}

// StabilityScore credits wallet age (40), hold time (30) and 30% of the
// diversification score.
func StabilityScore(m *models.WalletMetrics) float64 {
	var score float64

	switch age := float64(m.WalletAgeDays); {
	case age >= 730:
		score += 40
	case age >= 365:
		score += 30
	case age >= 180:
		score += 20
	default:
		score += age / 180 * 20
	}

	switch hold := m.AvgHoldTimeDays; {
	case hold >= 365:
		score += 30
	case hold >= 180:
		score += 20
	default:
		score += hold / 180 * 20
	}

	score += m.DiversificationScore * 0.3

	return clamp(score)
}

func BehaviorScore(m *models.WalletMetrics) float64 {
	score, ok := behaviorBase[m.BehaviorType]
	if !ok {
		score = unknownBehaviorScore
	}

	if m.DefiProtocolCount >= 3 {
		score += 5
	}
	if m.TransactionCount >= 50 && m.WalletAgeDays >= 365 {
		score += 5
	}

	return clamp(score)
}

// LiquidityScore rewards liquid ETH, token breadth and recent activity.
// Recency is measured against now.
func LiquidityScore(m *models.WalletMetrics, ethPrice float64, now time.Time) float64 {
	var score float64

	ethValue := m.ETHBalance * ethPrice
	score += math.Min(ethValue, 50_000) / 50_000 * 50
	score += math.Min(float64(m.TokenCount), 10) / 10 * 30

	if m.LastTransactionDate != nil {
		days := int(math.Floor(now.Sub(*m.LastTransactionDate).Hours() / 24))
		switch {
		case days <= 30:
			score += 20
		case days <= 90:
			score += 10
		}
	}

	return clamp(score)
}

func VerificationScore(m *models.WalletMetrics) float64 {
	score := 50.0

	if m.HasENS {
		score += 30
	}
	if m.WalletAgeDays >= 365 {
		score += 10
	}
	if m.TransactionCount >= 100 {
		score += 10
	}

	return clamp(score)
}

// Overall combines the components with the fixed weights.
func Overall(c models.ComponentScores) float64 {
	return clamp(c.Wealth*WealthWeight +
		c.Stability*StabilityWeight +
		c.Behavior*BehaviorWeight +
		c.Liquidity*LiquidityWeight +
		c.Verification*VerificationWeight)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
