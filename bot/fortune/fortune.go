// Package fortune is the daily IT job fortune bot: it classifies every
// persona against today's day stem, lets the LLM rank them and posts the
// ranking as a thread.
package fortune

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hk-410/hakyng-bots/bot"
	"github.com/hk-410/hakyng-bots/llm"
	"github.com/hk-410/hakyng-bots/model"
	"github.com/hk-410/hakyng-bots/saju"
)

// Name is the bot's route and metrics label.
const Name = "fortune"

// DefaultTemperature is the sampling temperature for the ranking call.
const DefaultTemperature = 0.75

// Detail is one ranked persona as returned by the LLM.
type Detail struct {
	Persona     string `json:"persona"`
	Shipshin    string `json:"shipshin"`
	LuckLevel   string `json:"luck_level"`
	Explanation string `json:"explanation"`
	LuckyItem   string `json:"lucky_item"`
}

// Forecast is the LLM's JSON reply.
type Forecast struct {
	Summary string   `json:"mainTweetSummary"`
	Details []Detail `json:"details"`
}

// RankedReply is a Detail with its 1-based rank, as served to callers.
type RankedReply struct {
	Detail
	Rank int `json:"rank"`
}

// Bot is the fortune bot.
type Bot struct {
	llm         llm.Completer
	publisher   *bot.Publisher
	personas    []saju.Persona
	temperature float64
}

// Option configures a Bot.
type Option func(*Bot)

// WithTemperature overrides DefaultTemperature.
func WithTemperature(t float64) Option {
	return func(b *Bot) {
		b.temperature = t
	}
}

// WithPersonas replaces the built-in persona catalog.
func WithPersonas(p []saju.Persona) Option {
	return func(b *Bot) {
		b.personas = p
	}
}

// New creates the fortune bot.
func New(c llm.Completer, p *bot.Publisher, opts ...Option) *Bot {
	b := &Bot{
		llm:         c,
		publisher:   p,
		personas:    saju.Personas,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements bot.Bot.
func (b *Bot) Name() string { return Name }

// Run implements bot.Bot.
func (b *Bot) Run(ctx context.Context, run bot.Run) (*bot.Result, error) {
	if run.Logger == nil {
		run.Logger = slog.Default()
	}
	logger := run.Logger

	today := run.Now.In(saju.KST)
	pillar := saju.DayPillarOf(today)
	date := saju.FormatKoreanDate(today)
	readings := saju.ReadAll(b.personas, pillar.Stem)

	logger.Info("Day pillar computed", "date", date, "iljin", pillar.String())
	for _, r := range readings {
		logger.Debug("Shipshin", "persona", r.Persona.Name, "shipshin", r.Shipshin.String(), "base_tier", r.Shipshin.BaseTier().String())
	}

	temp := b.temperature
	req := llm.Request{
		Capability: model.CapabilityForBot(Name).String(),
		Messages: []llm.Message{
			llm.SystemMessage(SystemPrompt(b.personas)),
			llm.UserMessage(UserPrompt(pillar, today, readings)),
		},
		Temperature: &temp,
	}

	logger.Info("Generating content with LLM ranking")
	var forecast Forecast
	resp, err := llm.CompleteJSON(ctx, b.llm, req, &forecast)
	if err != nil {
		if resp != nil {
			logger.Error("LLM did not return valid JSON", "raw", resp.Content)
		}
		return nil, fmt.Errorf("LLM did not return valid JSON: %w", err)
	}
	if err := b.validate(forecast); err != nil {
		logger.Error("Invalid JSON structure", "raw", resp.Content, "error", err)
		return nil, err
	}
	b.checkLuckLevels(run, forecast)

	main := MainTweet(date, forecast.Summary)
	ranked := Rank(forecast.Details)
	thread := make([]string, len(ranked))
	for i, r := range ranked {
		thread[i] = ReplyTweet(r)
	}

	ids, err := b.publisher.Publish(ctx, Name, run, main, thread)
	if err != nil {
		return nil, err
	}

	return &bot.Result{
		Tweet:    main,
		Thread:   thread,
		TweetIDs: ids,
		Details:  ranked,
	}, nil
}

func (b *Bot) validate(f Forecast) error {
	if strings.TrimSpace(f.Summary) == "" {
		return fmt.Errorf("invalid JSON structure: mainTweetSummary is empty")
	}
	if len(f.Details) != len(b.personas) {
		return fmt.Errorf("invalid JSON structure: got %d details, want %d", len(f.Details), len(b.personas))
	}
	return nil
}

// checkLuckLevels warns about levels outside the seven tiers. The text is
// posted as-is.
func (b *Bot) checkLuckLevels(run bot.Run, f Forecast) {
	for i, d := range f.Details {
		if _, ok := saju.ParseLuckTier(strings.TrimSpace(d.LuckLevel)); !ok {
			run.Logger.Warn("Unknown luck level from LLM", "rank", i+1, "persona", d.Persona, "luck_level", d.LuckLevel)
		}
	}
}

// Rank numbers details in the order given, starting at 1.
func Rank(details []Detail) []RankedReply {
	ranked := make([]RankedReply, len(details))
	for i, d := range details {
		ranked[i] = RankedReply{Detail: d, Rank: i + 1}
	}
	return ranked
}

// MainTweet renders the thread head.
func MainTweet(date, summary string) string {
	return fmt.Sprintf("%s 오늘의 IT 직무 운세 🔮\n\n%s", date, summary)
}

// ReplyTweet renders one ranked persona.
func ReplyTweet(r RankedReply) string {
	return fmt.Sprintf("[%d위: %s (%s)]\n%s\n\n🍀 행운의 아이템: %s", r.Rank, r.Persona, r.LuckLevel, r.Explanation, r.LuckyItem)
}
