package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"chainview/internal/log"
)

const readinessTimeout = 5 * time.Second

// handleHealth performs a basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports ready only when a node answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	switch {
	case s.node == nil:
		checks["node"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	default:
		if err := s.node.Ping(ctx); err != nil {
			checks["node"] = fmt.Sprintf("failed: %v", err)
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["node"] = "ok"
		}
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	tm := s.tracer.GetMetrics()
	rm := s.limiter.GetMetrics()
	sm := s.detector.GetMetrics()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", tm.TotalRequests)
	metric("http_client_errors_total", "counter", "Responses with a 4xx status", tm.ClientErrors)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", tm.ServerErrors)
	metric("http_response_time_avg_microseconds", "gauge", "Average response time", tm.AverageResponseTime)
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rm.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rm.ClientCount)
	metric("suspicious_requests_total", "counter", "Requests matching probing patterns", sm.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.started).Seconds()))

	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return
	}

	fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n# TYPE cache_entries gauge\n")
	for _, name := range names {
		fmt.Fprintf(w, "cache_entries{cache=%q} %d\n", name, s.caches[name].Stats().Size)
	}
	fmt.Fprintf(w, "\n# HELP cache_hits_total Cache hits\n# TYPE cache_hits_total counter\n")
	for _, name := range names {
		fmt.Fprintf(w, "cache_hits_total{cache=%q} %d\n", name, s.caches[name].Stats().Hits)
	}
	fmt.Fprintf(w, "\n# HELP cache_misses_total Cache misses\n# TYPE cache_misses_total counter\n")
	for _, name := range names {
		fmt.Fprintf(w, "cache_misses_total{cache=%q} %d\n", name, s.caches[name].Stats().Misses)
	}
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	q, err := parseActivityQuery(r)
	if err != nil {
		s.writeFailure(r.Context(), w, log.OpFetchHistory, err)
		return
	}
	page, err := s.activity.Activity(r.Context(), q)
	if err != nil {
		s.writeFailure(r.Context(), w, log.OpFetchHistory, err)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogActivityLoaded(r.Context(), page.Account, q.Start, q.Limit, len(page.Items))
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q, err := parseActivityQuery(r)
	if err != nil {
		s.writeFailure(r.Context(), w, log.OpSummarize, err)
		return
	}
	page, err := s.activity.Activity(r.Context(), q)
	if err != nil {
		s.writeFailure(r.Context(), w, log.OpSummarize, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account": page.Account,
		"summary": page.Summary,
	})
}

// handleView returns the account's current view state without fetching.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	snap, err := s.activity.Snapshot(r.PathValue("account"))
	if err != nil {
		s.writeFailure(r.Context(), w, log.OpRefresh, err)
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "no view loaded for this account", false)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.Profile(r.Context(), r.PathValue("account"))
	if err != nil {
		s.writeFailure(r.Context(), w, log.OpFetchAccounts, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleFollowers(w http.ResponseWriter, r *http.Request) {
	start, limit, err := parseFollowParams(r)
	if err != nil {
		s.writeFailure(r.Context(), w, log.OpFetchFollows, err)
		return
	}
	page, err := s.profiles.Followers(r.Context(), r.PathValue("account"), start, limit)
	if err != nil {
		s.writeFailure(r.Context(), w, log.OpFetchFollows, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) {
	start, limit, err := parseFollowParams(r)
	if err != nil {
		s.writeFailure(r.Context(), w, log.OpFetchFollows, err)
		return
	}
	page, err := s.profiles.Following(r.Context(), r.PathValue("account"), start, limit)
	if err != nil {
		s.writeFailure(r.Context(), w, log.OpFetchFollows, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleVoteValue(w http.ResponseWriter, r *http.Request) {
	weight, err := parseWeight(r)
	if err != nil {
		s.writeFailure(r.Context(), w, log.OpFetchGlobals, err)
		return
	}
	vv, err := s.voteValue.Estimate(r.Context(), r.PathValue("account"), weight)
	if err != nil {
		s.writeFailure(r.Context(), w, log.OpFetchGlobals, err)
		return
	}
	writeJSON(w, http.StatusOK, vv)
}
