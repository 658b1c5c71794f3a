// Package config provides configuration loading and management for the bots.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete bot configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Model   ModelConfig   `yaml:"model"`
	X       XConfig       `yaml:"x"`
	Fortune FortuneConfig `yaml:"fortune"`
	Nanal   NanalConfig   `yaml:"nanal"`
	Weather WeatherConfig `yaml:"weather"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	// Addr is the listen address (default: :8080)
	Addr string `yaml:"addr"`
	// CronSecret is the bearer token the scheduler sends. Empty rejects
	// every authenticated call.
	CronSecret string `yaml:"cron_secret"`
}

// ModelConfig configures the LLM
type ModelConfig struct {
	// RegistryFile is an optional JSON model registry replacing the built-in one
	RegistryFile string `yaml:"registry_file"`
	// Temperature controls randomness (0.0-2.0, default: 0.75). An explicit 0
	// in a config file is kept.
	Temperature float64 `yaml:"temperature"`
	// Timeout is the maximum time to wait for one completion
	Timeout time.Duration `yaml:"timeout"`
}

// XConfig holds the X (Twitter) credentials of the posting account
type XConfig struct {
	AppKey       string `yaml:"app_key"`
	AppSecret    string `yaml:"app_secret"`
	AccessToken  string `yaml:"access_token"`
	AccessSecret string `yaml:"access_secret"`
	// BaseURL overrides the API host (default: https://api.x.com)
	BaseURL string `yaml:"base_url"`
}

// FortuneConfig configures the fortune bot
type FortuneConfig struct {
	// ReplyDelay is the pause after each thread reply (default: 1.5s). An
	// explicit 0s in a config file disables it.
	ReplyDelay time.Duration `yaml:"reply_delay"`
}

// NanalConfig configures the observance bot
type NanalConfig struct {
	// UserAgent identifies the bot to Wikipedia
	UserAgent string `yaml:"user_agent"`
	// APIURL is the MediaWiki action API
	APIURL  string        `yaml:"api_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// WeatherConfig configures the weather bot
type WeatherConfig struct {
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	Cities    []CityConfig  `yaml:"cities"`
}

// CityConfig is one forecast line
type CityConfig struct {
	// Name is shown in the tweet (e.g., "서울")
	Name string `yaml:"name"`
	// Query is sent to OpenWeatherMap (e.g., "Seoul")
	Query string `yaml:"query"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Model: ModelConfig{
			Temperature: 0.75,
			Timeout:     2 * time.Minute,
		},
		X: XConfig{
			BaseURL: "https://api.x.com",
		},
		Fortune: FortuneConfig{
			ReplyDelay: 1500 * time.Millisecond,
		},
		Nanal: NanalConfig{
			UserAgent: "NaNalBot/1.0 (https://github.com/HK-410/hakyng-bots/tree/main/apps/nanal/; hakyung410+nanalbot@gmail.com)",
			APIURL:    "https://en.wikipedia.org/w/api.php",
			Timeout:   15 * time.Second,
		},
		Weather: WeatherConfig{
			BaseURL:   "http://api.openweathermap.org",
			UserAgent: "WeatherFairyBot/1.0 (https://github.com/HK-410/hakyng-bots/tree/main/apps/weatherfairy/; hakyung410+weatherfairy@gmail.com)",
			Timeout:   15 * time.Second,
			Cities: []CityConfig{
				{Name: "서울", Query: "Seoul"},
				{Name: "부산", Query: "Busan"},
				{Name: "평양", Query: "Pyongyang"},
			},
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("model.temperature must be between 0 and 2")
	}
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("model.timeout must be positive")
	}
	if c.Fortune.ReplyDelay < 0 {
		return fmt.Errorf("fortune.reply_delay must not be negative")
	}
	if c.Nanal.APIURL == "" {
		return fmt.Errorf("nanal.api_url is required")
	}
	if c.Weather.BaseURL == "" {
		return fmt.Errorf("weather.base_url is required")
	}
	for i, city := range c.Weather.Cities {
		if city.Name == "" || city.Query == "" {
			return fmt.Errorf("weather.cities[%d] needs both name and query", i)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := decodeFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

// decodeFile reads a YAML file into config, leaving absent fields as they are
func decodeFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Secrets may live here, so keep it private.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values). The loader restores explicit zero temperature and reply
// delay from the file itself.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Server
	mergeString(&c.Server.Addr, other.Server.Addr)
	mergeString(&c.Server.CronSecret, other.Server.CronSecret)

	// Model
	mergeString(&c.Model.RegistryFile, other.Model.RegistryFile)
	if other.Model.Temperature != 0 {
		c.Model.Temperature = other.Model.Temperature
	}
	if other.Model.Timeout != 0 {
		c.Model.Timeout = other.Model.Timeout
	}

	// X
	mergeString(&c.X.AppKey, other.X.AppKey)
	mergeString(&c.X.AppSecret, other.X.AppSecret)
	mergeString(&c.X.AccessToken, other.X.AccessToken)
	mergeString(&c.X.AccessSecret, other.X.AccessSecret)
	mergeString(&c.X.BaseURL, other.X.BaseURL)

	// Fortune
	if other.Fortune.ReplyDelay != 0 {
		c.Fortune.ReplyDelay = other.Fortune.ReplyDelay
	}

	// Nanal
	mergeString(&c.Nanal.UserAgent, other.Nanal.UserAgent)
	mergeString(&c.Nanal.APIURL, other.Nanal.APIURL)
	if other.Nanal.Timeout != 0 {
		c.Nanal.Timeout = other.Nanal.Timeout
	}

	// Weather
	mergeString(&c.Weather.APIKey, other.Weather.APIKey)
	mergeString(&c.Weather.BaseURL, other.Weather.BaseURL)
	mergeString(&c.Weather.UserAgent, other.Weather.UserAgent)
	if other.Weather.Timeout != 0 {
		c.Weather.Timeout = other.Weather.Timeout
	}
	if len(other.Weather.Cities) > 0 {
		c.Weather.Cities = other.Weather.Cities
	}
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
