// Package http exposes the activity views as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"chainview/internal/cache"
	"chainview/internal/log"
	"chainview/internal/middleware/ratelimit"
	"chainview/internal/middleware/security"
	"chainview/internal/middleware/trace"
	"chainview/internal/services"
	"chainview/internal/view"
)

// ActivityReader serves activity pages and live view state.
type ActivityReader interface {
	Activity(ctx context.Context, q services.ActivityQuery) (*services.ActivityPage, error)
	Snapshot(account string) (*view.Snapshot, error)
}

// ProfileReader serves account profiles and follow lists.
type ProfileReader interface {
	Profile(ctx context.Context, account string) (*services.Profile, error)
	Followers(ctx context.Context, account, start string, limit int) (*services.FollowPage, error)
	Following(ctx context.Context, account, start string, limit int) (*services.FollowPage, error)
}

// VoteValueEstimator values a vote by an account.
type VoteValueEstimator interface {
	Estimate(ctx context.Context, account string, weight int) (*services.VoteValue, error)
}

// Pinger checks that the chain is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheStatser is any cache that reports statistics.
type CacheStatser interface {
	Stats() cache.Stats
}

// Dependencies wires the server to its services.
type Dependencies struct {
	Activity  ActivityReader
	Profiles  ProfileReader
	VoteValue VoteValueEstimator
	Node      Pinger

	// Caches are reported on /metrics under their map key.
	Caches    map[string]CacheStatser
	RateLimit ratelimit.Config

	// BlockSuspicious rejects probing requests instead of only logging them.
	BlockSuspicious bool
	Logger          *log.Logger
}

type Server struct {
	http.Server

	activity  ActivityReader
	profiles  ProfileReader
	voteValue VoteValueEstimator
	node      Pinger
	caches    map[string]CacheStatser
	logger    *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		activity:  deps.Activity,
		profiles:  deps.Profiles,
		voteValue: deps.VoteValue,
		node:      deps.Node,
		caches:    deps.Caches,
		logger:    logger.WithComponent(log.ComponentHTTP),
		limiter:   ratelimit.NewLimiter(deps.RateLimit),
		detector:  security.NewDetector(deps.BlockSuspicious),
		started:   time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/accounts/{account}/activity", s.handleActivity)
	mux.HandleFunc("GET /api/accounts/{account}/summary", s.handleSummary)
	mux.HandleFunc("GET /api/accounts/{account}/view", s.handleView)
	mux.HandleFunc("GET /api/accounts/{account}/profile", s.handleProfile)
	mux.HandleFunc("GET /api/accounts/{account}/followers", s.handleFollowers)
	mux.HandleFunc("GET /api/accounts/{account}/following", s.handleFollowing)
	mux.HandleFunc("GET /api/accounts/{account}/vote-value", s.handleVoteValue)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var h http.Handler = mux
	h = headers.Middleware(h)
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.logger)(h)
	h = s.detector.Middleware(s.logger)(h)
	h = s.tracer.Middleware(h)
	return h
}

// Shutdown stops background work and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
