package services

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"chainview/internal/cache"
	"chainview/internal/core"
	"chainview/internal/log"
	"chainview/internal/rpc"
	"chainview/internal/votevalue"
)

// Profile is the account header shown next to the activity list.
type Profile struct {
	Account        string          `json:"account"`
	DisplayName    string          `json:"display_name,omitempty"`
	About          string          `json:"about,omitempty"`
	Location       string          `json:"location,omitempty"`
	Website        string          `json:"website,omitempty"`
	ProfileImage   string          `json:"profile_image,omitempty"`
	CoverImage     string          `json:"cover_image,omitempty"`
	Created        string          `json:"created"`
	PostCount      int64           `json:"post_count"`
	Reputation     float64         `json:"reputation"`
	Balance        core.Asset      `json:"balance"`
	HBDBalance     core.Asset      `json:"hbd_balance"`
	SavingsBalance core.Asset      `json:"savings_balance"`
	EffectiveVests decimal.Decimal `json:"effective_vests"`

	// Follow counts are nil when the node could not provide them.
	FollowerCount  *int `json:"follower_count,omitempty"`
	FollowingCount *int `json:"following_count,omitempty"`
}

// FollowPage is one page of the follow graph.
type FollowPage struct {
	Account string            `json:"account"`
	Entries []rpc.FollowEntry `json:"entries"`

	// Next is the start value for the following page, empty at the end.
	Next string `json:"next,omitempty"`
}

// ProfileService builds account profiles and follow lists.
type ProfileService struct {
	accounts AccountSource
	profiles *cache.LRUCache[*Profile]
	logger   *log.Logger
}

// NewProfileService caches up to size profiles for ttl.
func NewProfileService(accounts AccountSource, size int, ttl time.Duration, logger *log.Logger) *ProfileService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ProfileService{
		accounts: accounts,
		profiles: cache.NewLRUCache[*Profile](size, ttl),
		logger:   logger.WithComponent(log.ComponentActivity),
	}
}

// Profiles exposes the profile cache so it can be registered for sweeping.
func (s *ProfileService) Profiles() *cache.LRUCache[*Profile] {
	return s.profiles
}

// Profile loads the account and its follow counts concurrently. A failed
// follow count leaves the counts unset rather than failing the profile.
func (s *ProfileService) Profile(ctx context.Context, account string) (*Profile, error) {
	account, err := core.NormalizeAccount(account)
	if err != nil {
		return nil, err
	}
	if p, ok := s.profiles.Get(account); ok {
		return p, nil
	}

	var (
		acct  rpc.Account
		count *rpc.FollowCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		acct, err = s.accounts.GetAccount(gctx, account)
		return err
	})
	g.Go(func() error {
		fc, err := s.accounts.GetFollowCount(gctx, account)
		if err != nil {
			s.logger.WarnContext(gctx, "Follow count unavailable",
				log.NewFields().WithAccount(account).WithOperation(log.OpFetchFollows).WithError(err).ToSlice()...)
			return nil
		}
		count = &fc
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fetchFailed(err)
	}

	p := buildProfile(acct, count)
	s.profiles.Set(account, p)
	return p, nil
}

func buildProfile(a rpc.Account, count *rpc.FollowCount) *Profile {
	meta := a.Profile()
	p := &Profile{
		Account:        a.Name,
		DisplayName:    meta.Name,
		About:          meta.About,
		Location:       meta.Location,
		Website:        meta.Website,
		ProfileImage:   meta.ProfileImage,
		CoverImage:     meta.CoverImage,
		Created:        a.Created,
		PostCount:      a.PostCount,
		Reputation:     ReputationScore(a.Reputation),
		Balance:        a.Balance,
		HBDBalance:     a.HBDBalance,
		SavingsBalance: a.SavingsBalance,
		EffectiveVests: votevalue.EffectiveVests(
			a.VestingShares.Amount,
			a.DelegatedVestingShares.Amount,
			a.ReceivedVestingShares.Amount,
		),
	}
	if count != nil {
		p.FollowerCount = &count.FollowerCount
		p.FollowingCount = &count.FollowingCount
	}
	return p
}

// ReputationScore converts the raw on-chain reputation into the familiar
// 25-based display score, rounded to two decimals.
func ReputationScore(raw decimal.Decimal) float64 {
	if raw.IsZero() {
		return 25
	}
	f := raw.Abs().InexactFloat64()
	score := math.Log10(f) - 9
	if score < 0 {
		score = 0
	}
	if raw.IsNegative() {
		score = -score
	}
	return math.Round((score*9+25)*100) / 100
}

// Followers lists accounts following account.
func (s *ProfileService) Followers(ctx context.Context, account, start string, limit int) (*FollowPage, error) {
	return s.follows(ctx, s.accounts.GetFollowers, account, start, limit, func(e rpc.FollowEntry) string { return e.Follower })
}

// Following lists accounts that account follows.
func (s *ProfileService) Following(ctx context.Context, account, start string, limit int) (*FollowPage, error) {
	return s.follows(ctx, s.accounts.GetFollowing, account, start, limit, func(e rpc.FollowEntry) string { return e.Following })
}

type followFetch func(ctx context.Context, account, start string, limit int) ([]rpc.FollowEntry, error)

func (s *ProfileService) follows(ctx context.Context, fetch followFetch, account, start string, limit int, key func(rpc.FollowEntry) string) (*FollowPage, error) {
	account, err := core.NormalizeAccount(account)
	if err != nil {
		return nil, err
	}
	entries, err := fetch(ctx, account, start, limit)
	if err != nil {
		return nil, fetchFailed(err)
	}
	if entries == nil {
		entries = []rpc.FollowEntry{}
	}
	page := &FollowPage{Account: account, Entries: entries}
	if len(entries) == limit && limit > 0 {
		page.Next = key(entries[len(entries)-1])
	}
	return page, nil
}
