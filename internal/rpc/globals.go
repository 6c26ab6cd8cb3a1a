package rpc

import (
	"context"

	"github.com/shopspring/decimal"

	"chainview/internal/core"
)

// DynamicGlobalProperties is the subset of chain-wide state the vote value needs.
type DynamicGlobalProperties struct {
	HeadBlockNumber      int64      `json:"head_block_number"`
	Time                 string     `json:"time"`
	CurrentSupply        core.Asset `json:"current_supply"`
	CurrentHBDSupply     core.Asset `json:"current_hbd_supply"`
	TotalVestingFundHive core.Asset `json:"total_vesting_fund_hive"`
	TotalVestingShares   core.Asset `json:"total_vesting_shares"`
}

// Price is a base/quote pair such as 0.250 HBD per 1.000 HIVE.
type Price struct {
	Base  core.Asset `json:"base"`
	Quote core.Asset `json:"quote"`
}

// Rate returns base divided by quote, or zero when quote is zero.
func (p Price) Rate() decimal.Decimal {
	if p.Quote.Amount.IsZero() {
		return decimal.Zero
	}
	return p.Base.Amount.Div(p.Quote.Amount)
}

// FeedHistory carries the witnesses' median price feed.
type FeedHistory struct {
	CurrentMedianHistory Price `json:"current_median_history"`
}

// RewardFund is the state of a reward pool.
type RewardFund struct {
	Name          string          `json:"name"`
	RewardBalance core.Asset      `json:"reward_balance"`
	RecentClaims  decimal.Decimal `json:"recent_claims"`
}

func (c *Client) GetDynamicGlobalProperties(ctx context.Context) (DynamicGlobalProperties, error) {
	var out DynamicGlobalProperties
	err := c.Call(ctx, "condenser_api.get_dynamic_global_properties", nil, &out)
	return out, err
}

func (c *Client) GetFeedHistory(ctx context.Context) (FeedHistory, error) {
	var out FeedHistory
	err := c.Call(ctx, "condenser_api.get_feed_history", nil, &out)
	return out, err
}

// GetRewardFund fetches a named pool; the post pool is "post".
func (c *Client) GetRewardFund(ctx context.Context, name string) (RewardFund, error) {
	var out RewardFund
	err := c.Call(ctx, "condenser_api.get_reward_fund", []any{name}, &out)
	return out, err
}

// Ping checks that a node answers a cheap call.
func (c *Client) Ping(ctx context.Context) error {
	return c.Call(ctx, "condenser_api.get_dynamic_global_properties", nil, nil)
}
