package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate for unusable configuration.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration
type Config struct {
	// Debug enables verbose logging
	Debug bool `yaml:"debug"`

	// Hotkey is the push-to-talk key, e.g. "ctrl+shift+f"
	Hotkey string `yaml:"hotkey"`

	// VOICEVOX engine settings
	Engine struct {
		Path           string `yaml:"path"`
		URL            string `yaml:"url"`
		Speaker        int    `yaml:"speaker"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"engine"`

	// Speech recognition settings
	Recognition struct {
		Model  string `yaml:"model"`
		Device string `yaml:"device"`
		Warmup bool   `yaml:"warmup"`
	} `yaml:"recognition"`

	// Route database settings
	Routes struct {
		Database string `yaml:"database"`
	} `yaml:"routes"`

	// Telemetry bridge settings
	Telemetry struct {
		URL string `yaml:"url"`
	} `yaml:"telemetry"`

	// Intent keywords, matched as lower-cased substrings
	Intents struct {
		Exit       []string `yaml:"exit"`
		Navigation []string `yaml:"navigation"`
	} `yaml:"intents"`

	// Phrases spoken by the assistant
	Phrases Phrases `yaml:"phrases"`

	// Output settings
	Output struct {
		Transcript string `yaml:"transcript"`
	} `yaml:"output"`
}

// Phrases holds every sentence the assistant can say.
// Route may reference {boarding} and {landing}.
type Phrases struct {
	Greeting      string `yaml:"greeting"`
	Farewell      string `yaml:"farewell"`
	Prompt        string `yaml:"prompt"`
	Repeat        string `yaml:"repeat"`
	NoSpeech      string `yaml:"no_speech"`
	NotUnderstood string `yaml:"not_understood"`
	Failure       string `yaml:"failure"`
	NoTelemetry   string `yaml:"no_telemetry"`
	NoJob         string `yaml:"no_job"`
	NoFerry       string `yaml:"no_ferry"`
	Route         string `yaml:"route"`
}

// DefaultPhrases returns the Japanese phrase set matching the default
// VOICEVOX voices and the Japanese recognition model.
func DefaultPhrases() Phrases {
	return Phrases{
		Greeting:      "フェリー乗船サポートツールを起動しました。",
		Farewell:      "システムを終了します",
		Prompt:        "どうぞ",
		Repeat:        "もう一度お願いします",
		NoSpeech:      "申し訳ありません。もう一度キーを押して話しかけてください",
		NotUnderstood: "申し訳ありません。聞き取れませんでした。",
		Failure:       "エラーが発生しました。もう一度お試しください",
		NoTelemetry:   "配送情報が取得できていません",
		NoJob:         "現在お仕事を請け負っていません",
		NoFerry:       "この区間にフェリーはありません",
		Route:         "{boarding}から{landing}行きのフェリーに乗船してください",
	}
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Debug = false
	cfg.Hotkey = "ctrl+shift+f"

	// Engine defaults
	cfg.Engine.Path = ""
	cfg.Engine.URL = "http://127.0.0.1:50021"
	cfg.Engine.Speaker = 0
	cfg.Engine.TimeoutSeconds = 30

	// Recognition defaults
	cfg.Recognition.Model = "vosk-model-small-ja-0.22"
	cfg.Recognition.Device = ""
	cfg.Recognition.Warmup = true

	cfg.Routes.Database = "ferry_routes.db"
	cfg.Telemetry.URL = "ws://127.0.0.1:25555/telemetry"

	cfg.Intents.Exit = []string{"終了", "終わり", "おわり"}
	cfg.Intents.Navigation = []string{
		"どこ", "どっち", "フェリー", "方面",
		"行き", "いき", "行く", "いく", "から",
	}

	cfg.Phrases = DefaultPhrases()

	return cfg
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadWithFallback attempts to load configuration from multiple locations
// Priority: explicit path > ~/.ferryvoxrc > /etc/ferryvox/config.yaml
func LoadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(homeDir, ".ferryvoxrc")
		if _, err := os.Stat(userConfigPath); err == nil {
			cfg, err := Load(userConfigPath)
			if err == nil {
				return cfg, nil
			}
		}
	}

	systemConfigPath := "/etc/ferryvox/config.yaml"
	if _, err := os.Stat(systemConfigPath); err == nil {
		cfg, err := Load(systemConfigPath)
		if err == nil {
			return cfg, nil
		}
	}

	// No config file found, return defaults
	return DefaultConfig(), nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports settings the assistant cannot start without.
// The engine executable itself is checked by the synthesis gateway.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Engine.Path) == "" {
		problems = append(problems, "engine.path is not set")
	}
	if c.Engine.URL == "" {
		problems = append(problems, "engine.url is not set")
	}
	if c.Engine.TimeoutSeconds <= 0 {
		problems = append(problems, "engine.timeout_seconds must be positive")
	}
	if c.Hotkey == "" {
		problems = append(problems, "hotkey is not set")
	}
	if c.Routes.Database == "" {
		problems = append(problems, "routes.database is not set")
	}
	if len(c.Intents.Exit) == 0 && len(c.Intents.Navigation) == 0 {
		problems = append(problems, "no intent keywords configured")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
