package models

import "fmt"

// BehaviorType classifies a wallet's on-chain activity pattern.
type BehaviorType string

const (
	BehaviorHodler        BehaviorType = "hodler"
	BehaviorAccumulator   BehaviorType = "accumulator"
	BehaviorActiveTrader  BehaviorType = "active_trader"
	BehaviorDefiPowerUser BehaviorType = "defi_power_user"
	BehaviorYieldFarmer   BehaviorType = "yield_farmer"
	BehaviorWhale         BehaviorType = "whale"
	BehaviorDormant       BehaviorType = "dormant"
)

// BehaviorTypes lists every behavior label.
var BehaviorTypes = []BehaviorType{
	BehaviorHodler,
	BehaviorAccumulator,
	BehaviorActiveTrader,
	BehaviorDefiPowerUser,
	BehaviorYieldFarmer,
	BehaviorWhale,
	BehaviorDormant,
}

func (b BehaviorType) String() string { return string(b) }

// Valid reports whether b is one of the known labels.
func (b BehaviorType) Valid() bool {
	switch b {
	case BehaviorHodler, BehaviorAccumulator, BehaviorActiveTrader, BehaviorDefiPowerUser,
		BehaviorYieldFarmer, BehaviorWhale, BehaviorDormant:
		return true
	}
	return false
}

// UnmarshalText rejects labels outside the closed set.
func (b *BehaviorType) UnmarshalText(text []byte) error {
	v := BehaviorType(text)
	if !v.Valid() {
		return fmt.Errorf("unknown behavior type: %q", text)
	}
	*b = v
	return nil
}

// RiskTier 风险等级
type RiskTier string

const (
	RiskTierPrime       RiskTier = "prime"
	RiskTierNearPrime   RiskTier = "near_prime"
	RiskTierSubprime    RiskTier = "subprime"
	RiskTierUnqualified RiskTier = "unqualified"
)

func (t RiskTier) String() string { return string(t) }

// Rank orders tiers from worst (0) to best (3).
func (t RiskTier) Rank() int {
	switch t {
	case RiskTierPrime:
		return 3
	case RiskTierNearPrime:
		return 2
	case RiskTierSubprime:
		return 1
	default:
		return 0
	}
}

// Qualified reports whether the tier is worth a standard mortgage conversation.
func (t RiskTier) Qualified() bool {
	return t == RiskTierPrime || t == RiskTierNearPrime
}

// UnmarshalText rejects tiers outside the closed set.
func (t *RiskTier) UnmarshalText(text []byte) error {
	switch v := RiskTier(text); v {
	case RiskTierPrime, RiskTierNearPrime, RiskTierSubprime, RiskTierUnqualified:
		*t = v
		return nil
	}
	return fmt.Errorf("unknown risk tier: %q", text)
}

// OutreachPriority 外联优先级
type OutreachPriority string

const (
	PriorityHigh   OutreachPriority = "high"
	PriorityMedium OutreachPriority = "medium"
	PriorityLow    OutreachPriority = "low"
)

func (p OutreachPriority) String() string { return string(p) }
