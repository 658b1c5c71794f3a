// Package bot holds what every scheduled bot shares: the run lifecycle,
// tweet threading and the live/dry-run split.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hk-410/hakyng-bots/metrics"
)

// Bot produces and publishes one day's tweet.
type Bot interface {
	// Name is the bot's route and metrics label, e.g. "fortune".
	Name() string

	Run(ctx context.Context, run Run) (*Result, error)
}

// PublicDryRunner is implemented by bots whose dry runs may be triggered
// without the cron secret.
type PublicDryRunner interface {
	PublicDryRun() bool
}

// AllowsPublicDryRun reports whether b opts in to unauthenticated dry runs.
func AllowsPublicDryRun(b Bot) bool {
	p, ok := b.(PublicDryRunner)
	return ok && p.PublicDryRun()
}

// Run describes one invocation.
type Run struct {
	ID     string
	DryRun bool
	// Now is the trigger time; bots derive "today" from it in KST.
	Now    time.Time
	Logger *slog.Logger
}

// Result is what a run produced.
type Result struct {
	Bot    string
	RunID  string
	DryRun bool

	// Tweet is the main tweet text.
	Tweet string

	// Thread holds the reply texts in posting order.
	Thread []string

	// TweetIDs are the ids of posted tweets, main first. Empty on dry runs.
	TweetIDs []string

	// Details is bot-specific structured output (fortune's ranked replies).
	Details any
}

// Runner starts runs with an id, a scoped logger and metrics.
type Runner struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a runner. m may be nil.
func NewRunner(logger *slog.Logger, m *metrics.Metrics, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{logger: logger, metrics: m, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes b once.
func (r *Runner) Run(ctx context.Context, b Bot, dryRun bool) (result *Result, err error) {
	id := uuid.New().String()
	logger := r.logger.With("bot", b.Name(), "run_id", id)
	run := Run{ID: id, DryRun: dryRun, Now: r.now(), Logger: logger}

	logger.Info("Function start", "dry_run", dryRun)
	started := time.Now()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("bot %s panicked: %v", b.Name(), p)
			result = nil
		}
		r.metrics.ObserveRun(b.Name(), dryRun, err, time.Since(started))
		if err != nil {
			logger.Error("Run failed", "error", err, "duration", time.Since(started))
			return
		}
		logger.Info("Run finished", "duration", time.Since(started), "tweets", len(result.TweetIDs))
	}()

	result, err = b.Run(ctx, run)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("bot %s returned no result", b.Name())
	}
	result.Bot = b.Name()
	result.RunID = id
	result.DryRun = dryRun
	return result, nil
}
