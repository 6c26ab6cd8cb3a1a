// Package votevalue estimates what a vote is worth from the reward pool, the
// voter's stake and the voter's current voting mana.
package votevalue

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidWeight    = errors.New("weight must be between -10000 and 10000")
	ErrIncompleteInputs = errors.New("reward fund, vesting totals and stake must be non-zero")
)

// ManaRegenerationSeconds is the time an empty manabar takes to refill.
const ManaRegenerationSeconds = 5 * 24 * 60 * 60

var (
	fullWeight    = decimal.NewFromInt(10000)
	manaPerVote   = decimal.RequireFromString("0.02")
	vestPrecision = decimal.NewFromInt(1_000_000)
	regenSeconds  = decimal.NewFromInt(ManaRegenerationSeconds)
	hundred       = decimal.NewFromInt(100)
)

// Inputs gathers the chain values the estimate depends on. Stake and supply
// values are in whole units; mana is in raw units as the chain stores it.
type Inputs struct {
	RewardBalance decimal.Decimal
	RecentClaims  decimal.Decimal

	VestingShares          decimal.Decimal
	DelegatedVestingShares decimal.Decimal
	ReceivedVestingShares  decimal.Decimal
	TotalVestingShares     decimal.Decimal
	CurrentSupply          decimal.Decimal

	CurrentMana    decimal.Decimal
	LastUpdateTime time.Time
	Now            time.Time

	// Weight in basis points, negative for a downvote.
	Weight int

	// Median feed price, reference currency per liquid token. Zero when no
	// feed is published.
	Price decimal.Decimal
}

// Estimate is the result of a vote value computation.
type Estimate struct {
	EffectiveVests   decimal.Decimal
	ManaPercent      decimal.Decimal // 0..100
	ManaUsedFraction decimal.Decimal
	Value            decimal.Decimal // liquid token
	ReferenceValue   decimal.Decimal // reference currency at the feed price
}

// EffectiveVests is own stake minus delegated-out plus delegated-in.
func EffectiveVests(own, delegated, received decimal.Decimal) decimal.Decimal {
	return own.Sub(delegated).Add(received)
}

// CurrentMana regenerates mana linearly since the last update, capped at max.
func CurrentMana(stored, maxMana decimal.Decimal, last, now time.Time) decimal.Decimal {
	elapsed := now.Sub(last).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	regenerated := stored.Add(maxMana.Mul(decimal.NewFromFloat(elapsed)).Div(regenSeconds))
	if regenerated.GreaterThan(maxMana) {
		return maxMana
	}
	if regenerated.IsNegative() {
		return decimal.Zero
	}
	return regenerated
}

// Compute estimates the value of a vote:
//
//	value = (rewardBalance / recentClaims) * (effectiveVests / totalVests) * manaUsed * currentSupply
//
// with manaUsed = manaFraction * weight/10000 * 0.02, converted to the
// reference currency with the feed's base/quote.
func Compute(in Inputs) (Estimate, error) {
	if in.Weight < -10000 || in.Weight > 10000 {
		return Estimate{}, ErrInvalidWeight
	}
	vests := EffectiveVests(in.VestingShares, in.DelegatedVestingShares, in.ReceivedVestingShares)
	if in.RecentClaims.IsZero() || in.TotalVestingShares.IsZero() || !vests.IsPositive() {
		return Estimate{}, ErrIncompleteInputs
	}

	maxMana := vests.Mul(vestPrecision)
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	mana := CurrentMana(in.CurrentMana, maxMana, in.LastUpdateTime, now)
	manaFraction := mana.Div(maxMana)

	used := manaFraction.
		Mul(decimal.NewFromInt(int64(in.Weight))).
		Div(fullWeight).
		Mul(manaPerVote)

	value := in.RewardBalance.Div(in.RecentClaims).
		Mul(vests.Div(in.TotalVestingShares)).
		Mul(used).
		Mul(in.CurrentSupply)

	return Estimate{
		EffectiveVests:   vests,
		ManaPercent:      manaFraction.Mul(hundred),
		ManaUsedFraction: used,
		Value:            value,
		ReferenceValue:   value.Mul(in.Price),
	}, nil
}
