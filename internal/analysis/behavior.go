package analysis

import (
	"strings"

	"github.com/songzhibin97/prospector/internal/models"
)

const (
	whaleValueUSD           = 1_000_000
	defiPowerUserProtocols  = 3
	activeTraderMonthlyRate = 20
	accumulatorMinRate      = 2
	accumulatorMaxRate      = 10
	hodlerMaxRate           = 2
	hodlerMinAgeDays        = 365
)

// Protocols recognised by the behavior classifier. Matched against both the
// target address and the decoded function name.
var behaviorProtocols = []string{"uniswap", "aave", "compound", "curve", "maker", "lido", "sushiswap"}

// Protocols counted for defi_protocol_count. Matched against the target
// address only.
var countedProtocols = []string{"uniswap", "aave", "compound", "curve", "maker", "lido", "yearn"}

// MonthlyRate normalises a transaction count to a 30-day rate. A wallet with
// no measurable age reports its raw count.
func MonthlyRate(txCount, ageDays int) float64 {
	if ageDays > 0 {
		return float64(txCount) / float64(ageDays) * 30
	}
	return float64(txCount)
}

// ClassifyBehavior assigns exactly one behavior label. Rules are evaluated in
// priority order and the first match wins.
func ClassifyBehavior(txs []models.Transaction, ageDays int, totalValue float64) models.BehaviorType {
	if len(txs) == 0 {
		return models.BehaviorDormant
	}

	rate := MonthlyRate(len(txs), ageDays)

	switch {
	case totalValue >= whaleValueUSD:
		return models.BehaviorWhale
	case len(matchProtocols(txs, behaviorProtocols, true)) >= defiPowerUserProtocols:
		return models.BehaviorDefiPowerUser
	case rate > activeTraderMonthlyRate:
		return models.BehaviorActiveTrader
	case rate >= accumulatorMinRate && rate <= accumulatorMaxRate:
		return models.BehaviorAccumulator
	case rate < hodlerMaxRate && ageDays > hodlerMinAgeDays:
		return models.BehaviorHodler
	case mentionsYield(txs):
		return models.BehaviorYieldFarmer
	default:
		return models.BehaviorAccumulator
	}
}

// CountProtocols returns the number of distinct known protocols whose name
// appears in a transaction's target address.
func CountProtocols(txs []models.Transaction) int {
	return len(matchProtocols(txs, countedProtocols, false))
}

func matchProtocols(txs []models.Transaction, known []string, withFunction bool) map[string]struct{} {
	found := make(map[string]struct{})
	for _, tx := range txs {
		to := strings.ToLower(tx.To)
		fn := ""
		if withFunction {
			fn = strings.ToLower(tx.FunctionName)
		}
		for _, protocol := range known {
			if strings.Contains(to, protocol) || (withFunction && strings.Contains(fn, protocol)) {
				found[protocol] = struct{}{}
			}
		}
	}
	return found
}

func mentionsYield(txs []models.Transaction) bool {
	for _, tx := range txs {
		text := strings.ToLower(tx.FunctionName + " " + tx.To + " " + tx.From + " " + tx.Input)
		if strings.Contains(text, "stake") || strings.Contains(text, "farm") {
			return true
		}
	}
	return false
}
