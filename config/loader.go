package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "hakbot.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/hakbot"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Environment variables read by the loader. They win over every file.
const (
	EnvCronSecret    = "CRON_SECRET"
	EnvXAppKey       = "X_APP_KEY"
	EnvXAppSecret    = "X_APP_SECRET"
	EnvXAccessToken  = "X_ACCESS_TOKEN"
	EnvXAccessSecret = "X_ACCESS_SECRET"
	EnvWeatherAPIKey = "OPENWEATHERMAP_API_KEY"
	EnvAddr          = "HAKBOT_ADDR"
	EnvModelRegistry = "HAKBOT_MODEL_REGISTRY"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger         *slog.Logger
	lookupEnv      func(string) (string, bool)
	workDir        string
	userConfigPath string
	explicitPath   string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) LoaderOption {
	return func(l *Loader) {
		l.lookupEnv = fn
	}
}

// WithWorkDir sets where the project config search starts.
func WithWorkDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.workDir = dir
	}
}

// WithUserConfigPath overrides ~/.config/hakbot/config.yaml.
func WithUserConfigPath(path string) LoaderOption {
	return func(l *Loader) {
		l.userConfigPath = path
	}
}

// WithConfigFile replaces the project config search with one file, which
// must exist.
func WithConfigFile(path string) LoaderOption {
	return func(l *Loader) {
		l.explicitPath = path
	}
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{logger: logger, lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(l)
	}
	if l.userConfigPath == "" {
		l.userConfigPath = defaultUserConfigPath()
	}
	return l
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/hakbot/config.yaml)
// 3. Project config (hakbot.yaml in current or parent directories, or --config)
// 4. Environment variables
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	// Load user config
	if l.userConfigPath != "" {
		if userConfig, err := readLayer(l.userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", l.userConfigPath))
			userConfig.mergeInto(config)
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to load user config", slog.String("path", l.userConfigPath), slog.String("error", err.Error()))
		}
	}

	// Load project config
	if l.explicitPath != "" {
		projectConfig, err := readLayer(l.explicitPath)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config file", slog.String("path", l.explicitPath))
		projectConfig.mergeInto(config)
	} else if projectConfigPath := l.findProjectConfig(); projectConfigPath != "" {
		if projectConfig, err := readLayer(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			projectConfig.mergeInto(config)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	l.applyEnv(config)

	// Validate final config
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnv overlays the environment variables that are set.
func (l *Loader) applyEnv(config *Config) {
	for name, dst := range map[string]*string{
		EnvCronSecret:    &config.Server.CronSecret,
		EnvAddr:          &config.Server.Addr,
		EnvXAppKey:       &config.X.AppKey,
		EnvXAppSecret:    &config.X.AppSecret,
		EnvXAccessToken:  &config.X.AccessToken,
		EnvXAccessSecret: &config.X.AccessSecret,
		EnvWeatherAPIKey: &config.Weather.APIKey,
		EnvModelRegistry: &config.Model.RegistryFile,
	} {
		if v, ok := l.lookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist
func (l *Loader) EnsureUserConfig() (string, error) {
	if _, err := os.Stat(l.userConfigPath); err == nil {
		return l.userConfigPath, nil
	}

	if err := DefaultConfig().SaveToFile(l.userConfigPath); err != nil {
		return "", err
	}

	l.logger.Info("Created default user config", slog.String("path", l.userConfigPath))
	return l.userConfigPath, nil
}

// layer is one config file decoded without defaults, so Merge only sees
// what it sets. Merge skips zero values; explicit tracks the fields whose
// zero is a valid setting.
type layer struct {
	config   *Config
	explicit struct {
		Model struct {
			Temperature *float64 `yaml:"temperature"`
		} `yaml:"model"`
		Fortune struct {
			ReplyDelay *time.Duration `yaml:"reply_delay"`
		} `yaml:"fortune"`
	}
}

func readLayer(path string) (*layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	l := &layer{config: &Config{}}
	if err := yaml.Unmarshal(data, l.config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &l.explicit); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return l, nil
}

func (l *layer) mergeInto(config *Config) {
	config.Merge(l.config)
	if t := l.explicit.Model.Temperature; t != nil {
		config.Model.Temperature = *t
	}
	if d := l.explicit.Fortune.ReplyDelay; d != nil {
		config.Fortune.ReplyDelay = *d
	}
}

func defaultUserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for hakbot.yaml in the work directory and its parents
func (l *Loader) findProjectConfig() string {
	dir := l.workDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = cwd
	}

	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
