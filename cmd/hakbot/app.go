package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/hk-410/hakyng-bots/bot"
	"github.com/hk-410/hakyng-bots/bot/fortune"
	"github.com/hk-410/hakyng-bots/bot/nanal"
	"github.com/hk-410/hakyng-bots/bot/weatherfairy"
	"github.com/hk-410/hakyng-bots/config"
	"github.com/hk-410/hakyng-bots/fetch"
	"github.com/hk-410/hakyng-bots/llm"
	"github.com/hk-410/hakyng-bots/metrics"
	"github.com/hk-410/hakyng-bots/model"
	"github.com/hk-410/hakyng-bots/server"
	"github.com/hk-410/hakyng-bots/twitter"
	"github.com/hk-410/hakyng-bots/weather"
	"github.com/hk-410/hakyng-bots/wikipedia"
)

// App is the main application that wires together all components.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	metrics *metrics.Metrics
	runner  *bot.Runner
	bots    map[string]bot.Bot
}

// NewApp creates a new application instance.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		bots:    make(map[string]bot.Bot),
	}
	app.runner = bot.NewRunner(logger, app.metrics)

	registry, err := app.modelRegistry()
	if err != nil {
		return nil, err
	}
	completer := llm.NewClient(registry,
		llm.WithLogger(logger),
		llm.WithMetrics(app.metrics),
		llm.WithHTTPClient(&http.Client{Timeout: cfg.Model.Timeout}),
	)

	poster := app.poster()

	wiki := wikipedia.New(
		fetch.New(cfg.Nanal.Timeout, cfg.Nanal.UserAgent),
		wikipedia.WithAPIURL(cfg.Nanal.APIURL),
	)
	forecasts := weather.New(
		fetch.New(cfg.Weather.Timeout, cfg.Weather.UserAgent),
		cfg.Weather.APIKey,
		weather.WithBaseURL(cfg.Weather.BaseURL),
	)
	cities := make([]weatherfairy.City, len(cfg.Weather.Cities))
	for i, c := range cfg.Weather.Cities {
		cities[i] = weatherfairy.City{Name: c.Name, Query: c.Query}
	}

	app.register(
		fortune.New(completer, bot.NewPublisher(poster, app.metrics, cfg.Fortune.ReplyDelay),
			fortune.WithTemperature(cfg.Model.Temperature)),
		nanal.New(completer, bot.NewPublisher(poster, app.metrics, 0), wiki, cfg.Model.Temperature),
		weatherfairy.New(forecasts, bot.NewPublisher(poster, app.metrics, 0), cities),
	)

	return app, nil
}

func (a *App) register(bots ...bot.Bot) {
	for _, b := range bots {
		a.bots[b.Name()] = b
	}
}

func (a *App) modelRegistry() (*model.Registry, error) {
	registry := model.NewDefaultRegistry()
	if a.cfg.Model.RegistryFile != "" {
		var err error
		registry, err = model.LoadFromFile(a.cfg.Model.RegistryFile)
		if err != nil {
			return nil, fmt.Errorf("load model registry: %w", err)
		}
		a.logger.Debug("Loaded model registry", "path", a.cfg.Model.RegistryFile, "endpoints", registry.ListEndpoints())
	}

	for _, name := range registry.ListEndpoints() {
		ep := registry.GetEndpoint(name)
		if llm.GetProvider(ep.Provider) == nil {
			return nil, fmt.Errorf("model %s uses unknown provider %q (available: %v)", name, ep.Provider, llm.ListProviders())
		}
	}
	for _, name := range []string{fortune.Name, nanal.Name} {
		a.logger.Debug("Model selected", "bot", name, "model", registry.Resolve(model.CapabilityForBot(name)))
	}
	return registry, nil
}

// poster returns nil when credentials are incomplete; only dry runs work then.
func (a *App) poster() bot.Poster {
	client, err := twitter.New(twitter.Credentials{
		AppKey:       a.cfg.X.AppKey,
		AppSecret:    a.cfg.X.AppSecret,
		AccessToken:  a.cfg.X.AccessToken,
		AccessSecret: a.cfg.X.AccessSecret,
	}, twitter.WithBaseURL(a.cfg.X.BaseURL), twitter.WithLogger(a.logger))
	if err != nil {
		a.logger.Warn("X client disabled, live runs will fail", "error", err)
		return nil
	}
	return client
}

// Bot returns a registered bot by name.
func (a *App) Bot(name string) (bot.Bot, error) {
	b, ok := a.bots[name]
	if !ok {
		return nil, fmt.Errorf("unknown bot %q (available: %v)", name, a.BotNames())
	}
	return b, nil
}

// BotNames returns the registered bot names, sorted.
func (a *App) BotNames() []string {
	names := make([]string, 0, len(a.bots))
	for name := range a.bots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Server builds the HTTP surface over every bot.
func (a *App) Server() *server.Server {
	bots := make([]bot.Bot, 0, len(a.bots))
	for _, name := range a.BotNames() {
		bots = append(bots, a.bots[name])
	}
	return server.New(a.runner, a.cfg.Server.CronSecret, bots,
		server.WithLogger(a.logger),
		server.WithMetrics(a.metrics),
	)
}
