// Package nanal is "나날", the bot that tweets about what today is: a
// holiday, an observance, or a day it makes up.
package nanal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hk-410/hakyng-bots/bot"
	"github.com/hk-410/hakyng-bots/llm"
	"github.com/hk-410/hakyng-bots/model"
	"github.com/hk-410/hakyng-bots/saju"
)

// Name is the bot's route and metrics label.
const Name = "nanal"

const systemPrompt = `You are "나날(NaNal)", a witty bot that tweets about today's date.

<Your Goal>
Create a single, focused tweet in Korean, under 280 characters. Your tweet should have ONE main theme and, if relevant, one or two related fun facts. Avoid just listing things.

<How to Choose the Theme>
Analyze the provided list of observances and pick the main theme using this priority:
1.  **Korean Holiday:** If one exists, it's your main theme.
2.  **Famous Global Holiday:** If no Korean holiday, pick a globally recognized one.
3.  **Most Interesting Topic:** If neither of the above, pick the most fun or quirky topic from the list.
4.  **Creative Fallback:** If the list is empty, invent a fun, special day for today.

<How to Write the Tweet>
- Focus on the main theme you chose.
- You can add one or two other interesting observances from the list as secondary fun facts, but don't let them distract from the main theme.
- Tell a small story or share a fun perspective. Start with an engaging opening like "11월 10일, 오늘은..."
- The tweet MUST NOT contain any hashtags.
`

// ObservanceSource lists the observances of a Wikipedia date page.
// *wikipedia.Client implements it.
type ObservanceSource interface {
	Observances(ctx context.Context, page string) ([]string, error)
}

// Bot is the nanal bot.
type Bot struct {
	llm         llm.Completer
	publisher   *bot.Publisher
	source      ObservanceSource
	temperature float64
}

// New creates the bot. source may be nil, in which case the LLM always
// invents the day.
func New(c llm.Completer, p *bot.Publisher, source ObservanceSource, temperature float64) *Bot {
	return &Bot{llm: c, publisher: p, source: source, temperature: temperature}
}

// Name implements bot.Bot.
func (b *Bot) Name() string { return Name }

// PublicDryRun lets anyone preview the tweet without the cron secret.
func (b *Bot) PublicDryRun() bool { return true }

// Run implements bot.Bot.
func (b *Bot) Run(ctx context.Context, run bot.Run) (*bot.Result, error) {
	if run.Logger == nil {
		run.Logger = slog.Default()
	}
	logger := run.Logger

	date := DateString(run.Now.In(saju.KST))
	logger.Info("Target date (KST)", "date", date)

	observances := b.observances(ctx, logger, date)
	source := "Wikipedia"
	if len(observances) == 0 {
		source = "Fallback (invented day)"
	}
	logger.Info("Generating tweet content", "data_source", source, "observances", len(observances))

	temp := b.temperature
	resp, err := b.llm.Complete(ctx, llm.Request{
		Capability: model.CapabilityForBot(Name).String(),
		Messages: []llm.Message{
			llm.SystemMessage(systemPrompt),
			llm.UserMessage(UserPrompt(date, observances)),
		},
		Temperature: &temp,
	})
	if err != nil {
		return nil, fmt.Errorf("generate tweet: %w", err)
	}

	tweet := strings.TrimSpace(resp.Content)
	if tweet == "" {
		return nil, fmt.Errorf("failed to generate tweet content: empty LLM response")
	}

	ids, err := b.publisher.Publish(ctx, Name, run, tweet, nil)
	if err != nil {
		return nil, err
	}
	return &bot.Result{Tweet: tweet, TweetIDs: ids}, nil
}

// observances never fails the run; without data the LLM invents a day.
func (b *Bot) observances(ctx context.Context, logger *slog.Logger, date string) []string {
	if b.source == nil {
		return nil
	}
	items, err := b.source.Observances(ctx, date)
	if err != nil {
		logger.Error("Wikipedia API fetch failed", "error", err)
		return nil
	}
	logger.Info("Wikipedia fetch result", "found", len(items))
	return items
}

// DateString formats t as the English Wikipedia page title, "November 10".
func DateString(t time.Time) string {
	return fmt.Sprintf("%s %d", t.Month(), t.Day())
}

// UserPrompt lists the observances for date.
func UserPrompt(date string, observances []string) string {
	return fmt.Sprintf("Today is %s. Here is the list of observances:\n- %s\n\nFollow the instructions to create a tweet.",
		date, strings.Join(observances, "\n- "))
}
