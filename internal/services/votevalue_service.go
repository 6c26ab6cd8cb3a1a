package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"chainview/internal/core"
	"chainview/internal/rpc"
	"chainview/internal/votevalue"
)

// PostRewardFund is the reward pool votes on posts draw from.
const PostRewardFund = "post"

// AccountGetter loads a single account.
type AccountGetter interface {
	GetAccount(ctx context.Context, name string) (rpc.Account, error)
}

// VoteValue is the estimate for one account voting at one weight.
type VoteValue struct {
	Account        string          `json:"account"`
	Weight         int             `json:"weight"`
	ManaPercent    decimal.Decimal `json:"mana_percent"`
	EffectiveVests decimal.Decimal `json:"effective_vests"`
	Value          core.Asset      `json:"value"`
	ReferenceValue core.Asset      `json:"reference_value"`
}

// VoteValueService estimates vote values from live chain data.
type VoteValueService struct {
	accounts AccountGetter
	globals  rpc.GlobalsSource
	now      func() time.Time
}

// NewVoteValueService reads chain-wide values through globals, which is
// normally an rpc.CachedGlobals.
func NewVoteValueService(accounts AccountGetter, globals rpc.GlobalsSource) *VoteValueService {
	return &VoteValueService{accounts: accounts, globals: globals, now: time.Now}
}

// Estimate values a vote by account at weight basis points.
func (s *VoteValueService) Estimate(ctx context.Context, account string, weight int) (*VoteValue, error) {
	account, err := core.NormalizeAccount(account)
	if err != nil {
		return nil, err
	}
	if weight < -10000 || weight > 10000 {
		return nil, votevalue.ErrInvalidWeight
	}

	var (
		acct  rpc.Account
		props rpc.DynamicGlobalProperties
		feed  rpc.FeedHistory
		fund  rpc.RewardFund
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		acct, err = s.accounts.GetAccount(gctx, account)
		return err
	})
	g.Go(func() (err error) {
		props, err = s.globals.GetDynamicGlobalProperties(gctx)
		return err
	})
	g.Go(func() (err error) {
		feed, err = s.globals.GetFeedHistory(gctx)
		return err
	})
	g.Go(func() (err error) {
		fund, err = s.globals.GetRewardFund(gctx, PostRewardFund)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fetchFailed(err)
	}

	price := feed.CurrentMedianHistory
	est, err := votevalue.Compute(votevalue.Inputs{
		RewardBalance:          fund.RewardBalance.Amount,
		RecentClaims:           fund.RecentClaims,
		VestingShares:          acct.VestingShares.Amount,
		DelegatedVestingShares: acct.DelegatedVestingShares.Amount,
		ReceivedVestingShares:  acct.ReceivedVestingShares.Amount,
		TotalVestingShares:     props.TotalVestingShares.Amount,
		CurrentSupply:          props.CurrentSupply.Amount,
		CurrentMana:            acct.VotingManabar.CurrentMana,
		LastUpdateTime:         time.Unix(acct.VotingManabar.LastUpdateTime, 0),
		Now:                    s.now(),
		Weight:                 weight,
		Price:                  price.Rate(),
	})
	if err != nil {
		return nil, err
	}

	return &VoteValue{
		Account:        account,
		Weight:         weight,
		ManaPercent:    est.ManaPercent.Round(2),
		EffectiveVests: est.EffectiveVests,
		Value:          assetLike(props.CurrentSupply, est.Value),
		ReferenceValue: assetLike(price.Base, est.ReferenceValue),
	}, nil
}

// assetLike expresses amount in the symbol and precision of like.
func assetLike(like core.Asset, amount decimal.Decimal) core.Asset {
	return core.Asset{
		Amount:    amount.Round(like.Precision),
		Symbol:    like.Symbol,
		Precision: like.Precision,
	}
}
