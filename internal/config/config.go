package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/tradelab/internal/core"
	"github.com/spf13/viper"
)

// DateLayout is the format of configured and requested dates
const DateLayout = "2006-01-02"

type Config struct {
	Server     ServerConfig              `mapstructure:"server" yaml:"server"`
	Log        LogConfig                 `mapstructure:"log" yaml:"log"`
	Data       DataConfig                `mapstructure:"data" yaml:"data"`
	Backtest   BacktestConfig            `mapstructure:"backtest" yaml:"backtest"`
	Strategies map[string]StrategyConfig `mapstructure:"strategies" yaml:"strategies"`
	Storage    StorageConfig             `mapstructure:"storage" yaml:"storage"`
	Collectors CollectorsConfig          `mapstructure:"collectors" yaml:"collectors"`
	LLM        LLMConfig                 `mapstructure:"llm" yaml:"llm"`
	Metrics    MetricsConfig             `mapstructure:"metrics" yaml:"metrics"`
	Notify     NotifyConfig              `mapstructure:"notify" yaml:"notify"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host" yaml:"host"`
	Port        int    `mapstructure:"port" yaml:"port"`
	APIKey      string `mapstructure:"api_key" yaml:"-"`
	JobTTLHours int    `mapstructure:"job_ttl_hours" yaml:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs" yaml:"max_jobs"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// DataConfig selects where price history comes from
type DataConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"` // yahoo, alpaca or csv
	StartDate string `mapstructure:"start_date" yaml:"start_date"`
	EndDate   string `mapstructure:"end_date" yaml:"end_date"`
	CSVDir    string `mapstructure:"csv_dir" yaml:"csv_dir"`
	Cache     bool   `mapstructure:"cache" yaml:"cache"`
}

// Range parses the configured default date range
func (d DataConfig) Range() (start, end time.Time, err error) {
	if start, err = ParseDate(d.StartDate); err != nil {
		return
	}
	end, err = ParseDate(d.EndDate)
	return
}

// BacktestConfig holds simulation defaults
type BacktestConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital" yaml:"initial_capital"`
	Commission     float64 `mapstructure:"commission" yaml:"commission"`
}

type StrategyConfig struct {
	Params map[string]any `mapstructure:"params" yaml:"params"`
}

type StorageConfig struct {
	Archive ArchiveConfig `mapstructure:"archive" yaml:"archive"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
}

// ArchiveConfig configures blob storage for cached bars and full results
type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled" yaml:"enabled"`
	Type    string   `mapstructure:"type" yaml:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path" yaml:"path"` // For localfs
	S3      S3Config `mapstructure:"s3" yaml:"s3"`     // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"-"`
	SecretKey string `mapstructure:"secret_key" yaml:"-"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
}

// HistoryConfig configures the run history store
type HistoryConfig struct {
	Type    string `mapstructure:"type" yaml:"type"` // "memory" or "sqlite"
	Path    string `mapstructure:"path" yaml:"path"`
	MaxRuns int    `mapstructure:"max_runs" yaml:"max_runs"`
}

type CollectorsConfig struct {
	Yahoo  CollectorConfig `mapstructure:"yahoo" yaml:"yahoo"`
	Alpaca CollectorConfig `mapstructure:"alpaca" yaml:"alpaca"`
}

type CollectorConfig struct {
	APIKey    string        `mapstructure:"api_key" yaml:"-"`
	APISecret string        `mapstructure:"api_secret" yaml:"-"`
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type LLMConfig struct {
	Provider string       `mapstructure:"provider" yaml:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude" yaml:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai" yaml:"openai"`
	Ollama   OllamaConfig `mapstructure:"ollama" yaml:"ollama"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"-"`
	Model  string `mapstructure:"model" yaml:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"-"`
	Model   string `mapstructure:"model" yaml:"model"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Model    string `mapstructure:"model" yaml:"model"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// NotifyConfig lists the sinks told about finished runs
type NotifyConfig struct {
	Webhooks []WebhookConfig `mapstructure:"webhooks" yaml:"webhooks"`
}

type WebhookConfig struct {
	Name    string            `mapstructure:"name" yaml:"name"`
	URL     string            `mapstructure:"url" yaml:"url"`
	Headers map[string]string `mapstructure:"headers" yaml:"-"`
	Timeout time.Duration     `mapstructure:"timeout" yaml:"timeout"`
}

// Load reads configuration from file on top of Defaults. An empty path
// yields the defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Support environment variable overrides, e.g. TRADELAB_SERVER_PORT
	v.SetEnvPrefix("tradelab")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := Defaults()
	bindDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("reading config: %w", err))
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if ok && strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	// A strategies section replaces the built-in entries instead of merging
	// with them, so a strategy configured under an alias is not shadowed.
	if v.IsSet("strategies") {
		cfg.Strategies = nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unmarshaling config: %w", err))
	}

	return cfg, nil
}

// bindDefaults registers every scalar default with viper so AutomaticEnv
// can override keys that are absent from the file
func bindDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.api_key", cfg.Server.APIKey)
	v.SetDefault("server.job_ttl_hours", cfg.Server.JobTTLHours)
	v.SetDefault("server.max_jobs", cfg.Server.MaxJobs)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("data.provider", cfg.Data.Provider)
	v.SetDefault("data.start_date", cfg.Data.StartDate)
	v.SetDefault("data.end_date", cfg.Data.EndDate)
	v.SetDefault("data.csv_dir", cfg.Data.CSVDir)
	v.SetDefault("data.cache", cfg.Data.Cache)
	v.SetDefault("backtest.initial_capital", cfg.Backtest.InitialCapital)
	v.SetDefault("backtest.commission", cfg.Backtest.Commission)
	v.SetDefault("storage.archive.enabled", cfg.Storage.Archive.Enabled)
	v.SetDefault("storage.archive.type", cfg.Storage.Archive.Type)
	v.SetDefault("storage.archive.path", cfg.Storage.Archive.Path)
	v.SetDefault("storage.history.type", cfg.Storage.History.Type)
	v.SetDefault("storage.history.path", cfg.Storage.History.Path)
	v.SetDefault("storage.history.max_runs", cfg.Storage.History.MaxRuns)
	v.SetDefault("collectors.alpaca.api_key", "")
	v.SetDefault("collectors.alpaca.api_secret", "")
	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.claude.api_key", "")
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Log: LogConfig{
			Level: "info",
		},
		Data: DataConfig{
			Provider:  "yahoo",
			StartDate: "2020-01-01",
			EndDate:   "2023-12-31",
			CSVDir:    "data",
		},
		Backtest: BacktestConfig{
			InitialCapital: 100000,
			Commission:     0,
		},
		Strategies: map[string]StrategyConfig{
			"ma_crossover":   {Params: map[string]any{"fast_window": 50, "slow_window": 200}},
			"mean_reversion": {Params: map[string]any{"window": 20, "std_dev": 2.0}},
		},
		Storage: StorageConfig{
			Archive: ArchiveConfig{
				Type: "localfs",
				Path: "archive",
			},
			History: HistoryConfig{
				Type:    "memory",
				Path:    "tradelab.db",
				MaxRuns: 1000,
			},
		},
		Collectors: CollectorsConfig{
			Yahoo: CollectorConfig{Timeout: 10 * time.Second},
		},
		LLM: LLMConfig{
			Claude: ClaudeConfig{Model: "claude-sonnet-4-20250514"},
			OpenAI: OpenAIConfig{Model: "gpt-4o-mini"},
			Ollama: OllamaConfig{Endpoint: "http://localhost:11434", Model: "llama3"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Data validation
	switch c.Data.Provider {
	case "yahoo", "csv":
	case "alpaca":
		if c.Collectors.Alpaca.APIKey == "" || c.Collectors.Alpaca.APISecret == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("alpaca api_key and api_secret required when data provider is alpaca"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("data provider must be yahoo, alpaca or csv, got %q", c.Data.Provider))
	}
	start, end, err := c.Data.Range()
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("data end_date %s is before start_date %s", c.Data.EndDate, c.Data.StartDate))
	}

	// Backtest validation
	if !(c.Backtest.InitialCapital > 0) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital must be positive, got %v", c.Backtest.InitialCapital))
	}
	if c.Backtest.Commission < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("commission cannot be negative, got %v", c.Backtest.Commission))
	}

	// Storage validation
	if c.Data.Cache && !c.Storage.Archive.Enabled {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("data.cache stores bars in the archive and requires storage.archive.enabled"))
	}
	if c.Storage.Archive.Enabled {
		switch c.Storage.Archive.Type {
		case "localfs", "":
			if c.Storage.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive path required for localfs"))
			}
		case "s3":
			if c.Storage.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive s3 bucket required"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("archive type must be localfs or s3, got %q", c.Storage.Archive.Type))
		}
	}
	switch c.Storage.History.Type {
	case "memory", "":
	case "sqlite":
		if c.Storage.History.Path == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("history path required for sqlite"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("history type must be memory or sqlite, got %q", c.Storage.History.Type))
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("llm provider must be claude, openai or ollama, got %q", c.LLM.Provider))
		}
	}

	for i, wh := range c.Notify.Webhooks {
		if wh.URL == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("notify webhook %d has no url", i))
		}
	}

	return nil
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight. Empty input yields
// the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("date %q is not YYYY-MM-DD", s))
	}
	return t, nil
}
