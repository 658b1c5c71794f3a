package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/hk-410/hakyng-bots/metrics"
)

// DefaultReplyDelay is the pause after each posted reply.
const DefaultReplyDelay = 1500 * time.Millisecond

// Poster publishes tweets. *twitter.Client implements it.
type Poster interface {
	Post(ctx context.Context, text string) (string, error)
	Reply(ctx context.Context, text, inReplyToID string) (string, error)
}

// PostThread posts main and then each reply in answer to the last tweet
// that went through. A failed reply is logged and skipped; only a failed
// main tweet or a cancelled context is an error. Returns the ids posted.
func PostThread(ctx context.Context, p Poster, logger *slog.Logger, main string, replies []string, delay time.Duration) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	mainID, err := p.Post(ctx, main)
	if err != nil {
		return nil, fmt.Errorf("post main tweet: %w", err)
	}
	logger.Info("Main tweet posted", "tweet_id", mainID)

	ids := []string{mainID}
	last := mainID
	for i, text := range replies {
		if err := ctx.Err(); err != nil {
			return ids, err
		}

		id, err := p.Reply(ctx, text, last)
		if err != nil {
			logger.Error("Failed to post reply", "index", i+1, "in_reply_to", last, "error", err)
			continue
		}
		ids = append(ids, id)
		last = id
		logger.Info("Reply posted", "index", i+1, "tweet_id", id)

		if delay > 0 {
			select {
			case <-ctx.Done():
				return ids, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return ids, nil
}

// Publisher sends a bot's tweets to X, or logs them on dry runs.
type Publisher struct {
	poster     Poster
	metrics    *metrics.Metrics
	replyDelay time.Duration
}

// NewPublisher creates a publisher. poster may be nil when only dry runs
// are expected.
func NewPublisher(poster Poster, m *metrics.Metrics, replyDelay time.Duration) *Publisher {
	return &Publisher{poster: poster, metrics: m, replyDelay: replyDelay}
}

// Publish posts the main tweet and its thread for a live run, or logs them
// with their character counts for a dry run.
func (p *Publisher) Publish(ctx context.Context, bot string, run Run, main string, replies []string) ([]string, error) {
	logger := run.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if run.DryRun {
		logger.Info("--- DRY RUN ---")
		logger.Info("Main tweet", "chars", utf8.RuneCountInString(main), "text", main)
		for i, r := range replies {
			logger.Info("Reply", "index", i+1, "chars", utf8.RuneCountInString(r), "text", r)
		}
		return nil, nil
	}

	if p.poster == nil {
		return nil, fmt.Errorf("no X client configured for live run")
	}

	ids, err := PostThread(ctx, p.poster, logger, main, replies, p.replyDelay)
	if len(ids) > 0 {
		p.metrics.TweetPosted(bot, metrics.KindMain)
		for range ids[1:] {
			p.metrics.TweetPosted(bot, metrics.KindReply)
		}
	}
	if err != nil {
		return ids, err
	}
	if len(ids) < len(replies)+1 {
		logger.Warn("Thread posted partially", "posted", len(ids), "expected", len(replies)+1)
	}
	return ids, nil
}
