// Package weatherfairy posts the day's forecast for a few cities. It uses
// no LLM.
package weatherfairy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hk-410/hakyng-bots/bot"
	"github.com/hk-410/hakyng-bots/saju"
	"github.com/hk-410/hakyng-bots/weather"
)

// Name is the bot's route and metrics label.
const Name = "weatherfairy"

// City pairs the Korean display name with the OpenWeatherMap query.
type City struct {
	Name  string `yaml:"name"`
	Query string `yaml:"query"`
}

// DefaultCities are the cities in tweet order.
var DefaultCities = []City{
	{Name: "서울", Query: "Seoul"},
	{Name: "부산", Query: "Busan"},
	{Name: "평양", Query: "Pyongyang"},
}

// ForecastSource fetches one city's forecast. *weather.Client implements it.
type ForecastSource interface {
	Forecast(ctx context.Context, city string) (*weather.Forecast, error)
}

// Bot is the weather fairy.
type Bot struct {
	source    ForecastSource
	publisher *bot.Publisher
	cities    []City
}

// New creates the bot. An empty cities list selects DefaultCities.
func New(source ForecastSource, p *bot.Publisher, cities []City) *Bot {
	if len(cities) == 0 {
		cities = DefaultCities
	}
	return &Bot{source: source, publisher: p, cities: cities}
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
	summaries := make([]weather.Summary, len(b.cities))

	logger.Info("Fetching weather from OpenWeatherMap", "cities", len(b.cities))
	for i, c := range b.cities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := b.source.Forecast(ctx, c.Query)
		if err != nil {
			logger.Error("OpenWeatherMap API fetch failed", "city", c.Query, "error", err)
			continue
		}
		summaries[i] = weather.Summarize(f, today, saju.KST)
		logger.Debug("City summarized", "city", c.Query, "condition", summaries[i].Description)
	}

	tweet := Tweet(saju.FormatKoreanDate(today), b.cities, summaries)

	ids, err := b.publisher.Publish(ctx, Name, run, tweet, nil)
	if err != nil {
		return nil, err
	}
	return &bot.Result{Tweet: tweet, TweetIDs: ids}, nil
}

// Tweet renders the date line followed by one line per city.
func Tweet(date string, cities []City, summaries []weather.Summary) string {
	lines := make([]string, 0, len(cities)+1)
	lines = append(lines, date)
	for i, c := range cities {
		var s weather.Summary
		if i < len(summaries) {
			s = summaries[i]
		}
		lines = append(lines, fmt.Sprintf("%s %s - 최고: %s℃ | 최저: %s℃", c.Name, s.Icon(), s.MaxString(), s.MinString()))
	}
	return strings.Join(lines, "\n")
}
