package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func noEnv(string) (string, bool) { return "", false }

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Model.Temperature != 0.75 {
		t.Errorf("expected default temperature 0.75, got %f", cfg.Model.Temperature)
	}
	if cfg.Fortune.ReplyDelay != 1500*time.Millisecond {
		t.Errorf("expected reply delay 1.5s, got %v", cfg.Fortune.ReplyDelay)
	}
	if len(cfg.Weather.Cities) != 3 || cfg.Weather.Cities[2].Query != "Pyongyang" {
		t.Errorf("expected Seoul, Busan, Pyongyang, got %v", cfg.Weather.Cities)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing addr",
			modify:  func(c *Config) { c.Server.Addr = "" },
			wantErr: true,
		},
		{
			name:    "temperature too low",
			modify:  func(c *Config) { c.Model.Temperature = -0.1 },
			wantErr: true,
		},
		{
			name:    "temperature too high",
			modify:  func(c *Config) { c.Model.Temperature = 2.1 },
			wantErr: true,
		},
		{
			name:    "zero timeout",
			modify:  func(c *Config) { c.Model.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "negative reply delay",
			modify:  func(c *Config) { c.Fortune.ReplyDelay = -time.Second },
			wantErr: true,
		},
		{
			name:    "city without query",
			modify:  func(c *Config) { c.Weather.Cities = []CityConfig{{Name: "제주"}} },
			wantErr: true,
		},
		{
			name:    "no cities uses bot defaults",
			modify:  func(c *Config) { c.Weather.Cities = nil },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
server:
  addr: ":9000"
model:
  temperature: 0.5
  timeout: 10m
fortune:
  reply_delay: 2s
weather:
  cities:
    - name: 제주
      query: Jeju
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Server.Addr != ":9000" {
		t.Errorf("expected addr :9000, got %s", cfg.Server.Addr)
	}
	if cfg.Model.Temperature != 0.5 {
		t.Errorf("expected temperature 0.5, got %f", cfg.Model.Temperature)
	}
	if cfg.Model.Timeout != 10*time.Minute {
		t.Errorf("expected timeout 10m, got %v", cfg.Model.Timeout)
	}
	if cfg.Fortune.ReplyDelay != 2*time.Second {
		t.Errorf("expected reply delay 2s, got %v", cfg.Fortune.ReplyDelay)
	}
	if len(cfg.Weather.Cities) != 1 || cfg.Weather.Cities[0].Name != "제주" {
		t.Errorf("expected only 제주, got %v", cfg.Weather.Cities)
	}
	// Untouched sections keep their defaults.
	if cfg.Nanal.APIURL != "https://en.wikipedia.org/w/api.php" {
		t.Errorf("expected default nanal api url, got %s", cfg.Nanal.APIURL)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Server: ServerConfig{CronSecret: "s3cret"},
		X:      XConfig{AppKey: "key"},
	}

	base.Merge(override)

	if base.Server.CronSecret != "s3cret" {
		t.Errorf("expected cron secret s3cret, got %s", base.Server.CronSecret)
	}
	if base.X.AppKey != "key" {
		t.Errorf("expected app key, got %s", base.X.AppKey)
	}
	// Addr should remain from base since override didn't set it
	if base.Server.Addr != ":8080" {
		t.Errorf("expected addr to remain default, got %s", base.Server.Addr)
	}
	if base.X.BaseURL != "https://api.x.com" {
		t.Errorf("expected X base url to remain default, got %s", base.X.BaseURL)
	}

	base.Merge(nil)
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.Addr = ":7000"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("config file was not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Server.Addr != ":7000" {
		t.Errorf("expected addr :7000, got %s", loaded.Server.Addr)
	}
}

func TestLoader_Layers(t *testing.T) {
	tmpDir := t.TempDir()

	userPath := filepath.Join(tmpDir, "home", "config.yaml")
	user := DefaultConfig()
	user.Server.Addr = ":1111"
	user.Server.CronSecret = "from-user"
	user.Weather.APIKey = "user-owm"
	if err := user.SaveToFile(userPath); err != nil {
		t.Fatal(err)
	}

	projectDir := filepath.Join(tmpDir, "project")
	nested := filepath.Join(projectDir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	project := "server:\n  addr: \":2222\"\n"
	if err := os.WriteFile(filepath.Join(projectDir, ProjectConfigFile), []byte(project), 0644); err != nil {
		t.Fatal(err)
	}

	env := map[string]string{
		EnvCronSecret: "from-env",
		EnvXAppKey:    "env-key",
	}
	loader := NewLoader(quietLogger,
		WithUserConfigPath(userPath),
		WithWorkDir(nested),
		WithLookupEnv(func(k string) (string, bool) { v, ok := env[k]; return v, ok }),
	)

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != ":2222" {
		t.Errorf("project config should win over user config, got %s", cfg.Server.Addr)
	}
	if cfg.Server.CronSecret != "from-env" {
		t.Errorf("env should win over files, got %s", cfg.Server.CronSecret)
	}
	if cfg.Weather.APIKey != "user-owm" {
		t.Errorf("user value should survive project layer, got %s", cfg.Weather.APIKey)
	}
	if cfg.X.AppKey != "env-key" {
		t.Errorf("expected env app key, got %s", cfg.X.AppKey)
	}
	if cfg.Model.Temperature != 0.75 {
		t.Errorf("expected default temperature, got %f", cfg.Model.Temperature)
	}
}

func TestLoader_ExplicitZeroValues(t *testing.T) {
	tmpDir := t.TempDir()

	userPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(userPath, []byte("model:\n  temperature: 1.2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(tmpDir, "hakbot.yaml")
	zeros := "model:\n  temperature: 0\nfortune:\n  reply_delay: 0s\n"
	if err := os.WriteFile(path, []byte(zeros), 0644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(quietLogger,
		WithUserConfigPath(userPath),
		WithConfigFile(path),
		WithLookupEnv(noEnv),
	)
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model.Temperature != 0 {
		t.Errorf("explicit temperature 0 should override the user layer, got %f", cfg.Model.Temperature)
	}
	if cfg.Fortune.ReplyDelay != 0 {
		t.Errorf("explicit reply_delay 0s should override the default, got %v", cfg.Fortune.ReplyDelay)
	}
	if cfg.Model.Timeout != 2*time.Minute {
		t.Errorf("absent fields keep their defaults, got timeout %v", cfg.Model.Timeout)
	}
}

func TestLoader_ExplicitFileMustExist(t *testing.T) {
	loader := NewLoader(quietLogger,
		WithUserConfigPath(filepath.Join(t.TempDir(), "none.yaml")),
		WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml")),
		WithLookupEnv(noEnv),
	)
	if _, err := loader.Load(); err == nil {
		t.Error("expected error for missing --config file")
	}
}

func TestLoader_InvalidResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hakbot.yaml")
	if err := os.WriteFile(path, []byte("model:\n  temperature: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(quietLogger,
		WithUserConfigPath(filepath.Join(t.TempDir(), "none.yaml")),
		WithConfigFile(path),
		WithLookupEnv(noEnv),
	)
	if _, err := loader.Load(); err == nil {
		t.Error("expected validation error")
	}
}

func TestEnsureUserConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hakbot", "config.yaml")
	loader := NewLoader(quietLogger, WithUserConfigPath(path))

	got, err := loader.EnsureUserConfig()
	if err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}
	if got != path {
		t.Errorf("expected %s, got %s", path, got)
	}

	// A second call leaves the existing file alone.
	if err := os.WriteFile(path, []byte("server:\n  addr: \":3333\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := loader.EnsureUserConfig(); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":3333" {
		t.Errorf("existing config was overwritten")
	}
}
