package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"chainview/internal/core"
)

var ErrAccountNotFound = errors.New("account not found")

// Manabar is a regenerating capacity counter as stored on chain.
type Manabar struct {
	CurrentMana    decimal.Decimal `json:"current_mana"`
	LastUpdateTime int64           `json:"last_update_time"`
}

// Account is the subset of a condenser account object the views use.
type Account struct {
	Name                   string          `json:"name"`
	Created                string          `json:"created"`
	PostCount              int64           `json:"post_count"`
	Reputation             decimal.Decimal `json:"reputation"`
	JSONMetadata           string          `json:"json_metadata"`
	PostingJSONMetadata    string          `json:"posting_json_metadata"`
	Balance                core.Asset      `json:"balance"`
	HBDBalance             core.Asset      `json:"hbd_balance"`
	SavingsBalance         core.Asset      `json:"savings_balance"`
	VestingShares          core.Asset      `json:"vesting_shares"`
	DelegatedVestingShares core.Asset      `json:"delegated_vesting_shares"`
	ReceivedVestingShares  core.Asset      `json:"received_vesting_shares"`
	VotingManabar          Manabar         `json:"voting_manabar"`
	LastVoteTime           string          `json:"last_vote_time"`
}

// ProfileMetadata is the self-declared profile inside the account's metadata.
type ProfileMetadata struct {
	Name         string `json:"name,omitempty"`
	About        string `json:"about,omitempty"`
	Location     string `json:"location,omitempty"`
	Website      string `json:"website,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
	CoverImage   string `json:"cover_image,omitempty"`
}

// Profile extracts profile metadata, preferring the posting metadata. Malformed
// metadata yields an empty profile.
func (a Account) Profile() ProfileMetadata {
	for _, raw := range []string{a.PostingJSONMetadata, a.JSONMetadata} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		var meta struct {
			Profile ProfileMetadata `json:"profile"`
		}
		if err := json.Unmarshal([]byte(raw), &meta); err == nil && meta.Profile != (ProfileMetadata{}) {
			return meta.Profile
		}
	}
	return ProfileMetadata{}
}

// GetAccounts fetches the named accounts. Unknown names are absent from the result.
func (c *Client) GetAccounts(ctx context.Context, names ...string) ([]Account, error) {
	normalized := make([]string, 0, len(names))
	for _, n := range names {
		name, err := core.NormalizeAccount(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, n)
		}
		normalized = append(normalized, name)
	}
	var accounts []Account
	if err := c.Call(ctx, "condenser_api.get_accounts", []any{normalized}, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// GetAccount fetches a single account, failing with ErrAccountNotFound when
// the node does not know it.
func (c *Client) GetAccount(ctx context.Context, name string) (Account, error) {
	accounts, err := c.GetAccounts(ctx, name)
	if err != nil {
		return Account{}, err
	}
	if len(accounts) == 0 {
		return Account{}, ErrAccountNotFound
	}
	return accounts[0], nil
}

// FollowEntry is one edge of the follow graph.
type FollowEntry struct {
	Follower  string   `json:"follower"`
	Following string   `json:"following"`
	What      []string `json:"what"`
}

// FollowCount is the number of followers and followed accounts.
type FollowCount struct {
	Account        string `json:"account"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
}

// GetFollowers lists accounts following account, starting after start
// (empty for the beginning) in the node's alphabetical order.
func (c *Client) GetFollowers(ctx context.Context, account, start string, limit int) ([]FollowEntry, error) {
	return c.follows(ctx, "condenser_api.get_followers", account, start, limit)
}

// GetFollowing lists accounts account follows.
func (c *Client) GetFollowing(ctx context.Context, account, start string, limit int) ([]FollowEntry, error) {
	return c.follows(ctx, "condenser_api.get_following", account, start, limit)
}

func (c *Client) follows(ctx context.Context, method, account, start string, limit int) ([]FollowEntry, error) {
	account, err := core.NormalizeAccount(account)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > MaxHistoryLimit {
		return nil, ErrInvalidLimit
	}
	var out []FollowEntry
	if err := c.Call(ctx, method, []any{account, start, "blog", limit}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetFollowCount fetches follower and following totals.
func (c *Client) GetFollowCount(ctx context.Context, account string) (FollowCount, error) {
	account, err := core.NormalizeAccount(account)
	if err != nil {
		return FollowCount{}, err
	}
	var out FollowCount
	if err := c.Call(ctx, "condenser_api.get_follow_count", []any{account}, &out); err != nil {
		return FollowCount{}, err
	}
	return out, nil
}
