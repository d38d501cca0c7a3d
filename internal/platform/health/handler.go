// Package health serves the liveness, readiness and status probes. Readiness
// runs every registered dependency check concurrently; status reports how far
// the derived index trails the event feed.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"quorumcred/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

const DefaultCheckTimeout = 2 * time.Second

type CheckFunc func(ctx context.Context) error

// CursorFunc reports the feed position the index has applied.
type CursorFunc func() uint64

// HeadFunc reports the newest feed position.
type HeadFunc func(ctx context.Context) (uint64, error)

type Handler struct {
	started      time.Time
	environment  string
	checkTimeout time.Duration

	mu     sync.RWMutex
	checks map[string]CheckFunc
	cursor CursorFunc
	head   HeadFunc
}

func New(environment string) *Handler {
	return &Handler{
		started:      time.Now(),
		environment:  environment,
		checkTimeout: DefaultCheckTimeout,
		checks:       make(map[string]CheckFunc),
	}
}

func (h *Handler) SetIndexCursor(fn CursorFunc) {
	h.mu.Lock()
	h.cursor = fn
	h.mu.Unlock()
}

func (h *Handler) SetFeedHead(fn HeadFunc) {
	h.mu.Lock()
	h.head = fn
	h.mu.Unlock()
}

// RegisterCheck adds or replaces a readiness check.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	h.checks[name] = check
	h.mu.Unlock()
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

type CheckResult struct {
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type ReadinessResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
	Failed []string               `json:"failed,omitempty"`
}

// HandleReadiness answers 503 when any check fails or exceeds its timeout.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	fns := make([]CheckFunc, 0, len(h.checks))
	for name, fn := range h.checks {
		names = append(names, name)
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	results := make([]CheckResult, len(fns))
	var g errgroup.Group
	for i, fn := range fns {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), h.checkTimeout)
			defer cancel()
			start := time.Now()
			err := fn(ctx)
			results[i] = CheckResult{Status: "up", DurationMS: time.Since(start).Milliseconds()}
			if err != nil {
				results[i].Status = "down"
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	resp := ReadinessResponse{Status: "ready", Checks: make(map[string]CheckResult, len(names))}
	for i, name := range names {
		resp.Checks[name] = results[i]
		if results[i].Status != "up" {
			resp.Failed = append(resp.Failed, name)
		}
	}
	if len(resp.Failed) > 0 {
		sort.Strings(resp.Failed)
		resp.Status = "not_ready"
		httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type StatusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Environment   string `json:"environment"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
	IndexCursor   uint64 `json:"index_cursor"`
	FeedSequence  uint64 `json:"feed_sequence,omitempty"`
	IndexLag      uint64 `json:"index_lag"`
}

// HandleStatus always answers 200. A feed head that cannot be read is left
// out rather than failing the probe.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	cursor, head := h.cursor, h.head
	h.mu.RUnlock()

	resp := StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	if cursor != nil {
		resp.IndexCursor = cursor()
	}
	if head != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.checkTimeout)
		seq, err := head(ctx)
		cancel()
		if err == nil {
			resp.FeedSequence = seq
			if seq > resp.IndexCursor {
				resp.IndexLag = seq - resp.IndexCursor
			}
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
