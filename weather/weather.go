// Package weather fetches OpenWeatherMap 5-day forecasts and condenses one
// day of them into a min/max temperature and a headline condition.
package weather

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hk-410/hakyng-bots/fetch"
)

// DefaultBaseURL is the OpenWeatherMap API host.
const DefaultBaseURL = "http://api.openweathermap.org"

// Condition is one weather description of a forecast entry.
type Condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

// Entry is one 3-hourly forecast slot.
type Entry struct {
	DT   int64 `json:"dt"`
	Main struct {
		TempMin float64 `json:"temp_min"`
		TempMax float64 `json:"temp_max"`
	} `json:"main"`
	Weather []Condition `json:"weather"`
}

// Time returns the slot start.
func (e Entry) Time() time.Time {
	return time.Unix(e.DT, 0)
}

// Forecast is the data/2.5/forecast response.
type Forecast struct {
	List []Entry `json:"list"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
}

// Client calls the forecast endpoint.
type Client struct {
	fetcher *fetch.Fetcher
	baseURL string
	apiKey  string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// New creates a client.
func New(f *fetch.Fetcher, apiKey string, opts ...Option) *Client {
	c := &Client{fetcher: f, baseURL: DefaultBaseURL, apiKey: apiKey}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Forecast fetches the metric, English-language forecast for city.
func (c *Client) Forecast(ctx context.Context, city string) (*Forecast, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("OpenWeatherMap API key is not set")
	}

	q := url.Values{
		"q":     {city},
		"appid": {c.apiKey},
		"lang":  {"en"},
		"units": {"metric"},
	}
	u := strings.TrimRight(c.baseURL, "/") + "/data/2.5/forecast?" + q.Encode()

	var f Forecast
	if err := c.fetcher.GetJSON(ctx, u, &f); err != nil {
		return nil, fmt.Errorf("forecast for %s: %w", city, err)
	}
	return &f, nil
}
