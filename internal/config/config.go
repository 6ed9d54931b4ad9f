package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/wa-ai-bot-go/internal/models"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Completion CompletionConfig `mapstructure:"completion"`
	Roles      RolesConfig      `mapstructure:"roles"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Context    ContextConfig    `mapstructure:"context"`
	Fallback   FallbackConfig   `mapstructure:"fallback"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	WebhookPath string `mapstructure:"webhook_path"`
}

type GatewayConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	Instance    string  `mapstructure:"instance"`
	Token       string  `mapstructure:"token"`
	SendPerSec  float64 `mapstructure:"send_per_sec"`
	SendBurst   int     `mapstructure:"send_burst"`
}

type CompletionConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type RolesConfig struct {
	// SpecialUsers maps a chat identifier to a role name.
	SpecialUsers map[string]string `mapstructure:"special_users"`
	// BannedUsers lists identifiers that are rejected outright.
	BannedUsers []string `mapstructure:"banned_users"`
	// Profiles maps a role name to its behavior profile.
	Profiles map[string]models.RoleProfile `mapstructure:"profiles"`
}

type RateLimitConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	MaxPerMinute int  `mapstructure:"max_per_minute"`
}

// ContextStrategy selects how completion context is assembled.
const (
	StrategyPersona = "persona"
	StrategyRolling = "rolling"
)

type ContextConfig struct {
	Strategy            string `mapstructure:"strategy"`
	RollingWindow       int    `mapstructure:"rolling_window"`
	HistoryLimit        int    `mapstructure:"history_limit"`
	DefaultSystemPrompt string `mapstructure:"default_system_prompt"`
}

// Fallback modes used when the completion provider fails.
const (
	FallbackStatic  = "static"
	FallbackKeyword = "keyword"
)

type FallbackConfig struct {
	Mode    string `mapstructure:"mode"`
	Apology string `mapstructure:"apology"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize int           `mapstructure:"max_size"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
	Directory       string   `mapstructure:"directory"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Secrets come from the environment, never the yaml file.
	viper.BindEnv("gateway.base_url", "GREEN_API_URL")
	viper.BindEnv("gateway.instance", "GREEN_API_INSTANCE")
	viper.BindEnv("gateway.token", "GREEN_API_TOKEN")
	viper.BindEnv("completion.base_url", "COMPLETION_BASE_URL")
	viper.BindEnv("completion.api_key", "COMPLETION_API_KEY")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":5000"
	}
	if cfg.Server.WebhookPath == "" {
		cfg.Server.WebhookPath = "/webhook"
	}
	if cfg.Gateway.BaseURL == "" {
		cfg.Gateway.BaseURL = "https://api.green-api.com"
	}
	if cfg.Gateway.SendPerSec <= 0 {
		cfg.Gateway.SendPerSec = 2
	}
	if cfg.Gateway.SendBurst <= 0 {
		cfg.Gateway.SendBurst = 5
	}
	if cfg.Completion.Timeout <= 0 {
		cfg.Completion.Timeout = 30 * time.Second
	}
	if cfg.Completion.MaxRetries <= 0 {
		cfg.Completion.MaxRetries = 3
	}
	if cfg.RateLimit.MaxPerMinute <= 0 {
		cfg.RateLimit.MaxPerMinute = 10
	}
	if cfg.Context.Strategy == "" {
		cfg.Context.Strategy = StrategyPersona
	}
	if cfg.Context.RollingWindow <= 0 {
		cfg.Context.RollingWindow = 5
	}
	if cfg.Context.HistoryLimit <= 0 {
		cfg.Context.HistoryLimit = 20
	}
	if cfg.Fallback.Mode == "" {
		cfg.Fallback.Mode = FallbackKeyword
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = time.Hour
	}
	if cfg.Cache.MaxSize <= 0 {
		cfg.Cache.MaxSize = 1000
	}
	if cfg.I18n.DefaultLanguage == "" {
		cfg.I18n.DefaultLanguage = "id"
	}
	if len(cfg.I18n.Languages) == 0 {
		cfg.I18n.Languages = []string{"id", "en"}
	}
	if cfg.I18n.Directory == "" {
		cfg.I18n.Directory = "configs/i18n"
	}
}

// Validate checks the fields without which the process must not start serving.
func Validate(cfg *Config) error {
	if cfg.Gateway.Instance == "" {
		return fmt.Errorf("gateway instance is required")
	}
	if cfg.Gateway.Token == "" {
		return fmt.Errorf("gateway token is required")
	}
	if cfg.Completion.BaseURL == "" {
		return fmt.Errorf("completion base url is required")
	}
	if cfg.Completion.APIKey == "" {
		return fmt.Errorf("completion api key is required")
	}
	if _, ok := cfg.Roles.Profiles[string(models.RoleBasic)]; !ok {
		return fmt.Errorf("role profile %q is required", models.RoleBasic)
	}
	for name := range cfg.Roles.Profiles {
		if !isKnownRole(name) {
			return fmt.Errorf("unknown role in profiles: %q", name)
		}
	}
	for id, role := range cfg.Roles.SpecialUsers {
		if !isKnownRole(role) {
			return fmt.Errorf("special user %q has unknown role %q", id, role)
		}
	}
	switch cfg.Context.Strategy {
	case StrategyPersona, StrategyRolling:
	default:
		return fmt.Errorf("unknown context strategy: %q", cfg.Context.Strategy)
	}
	switch cfg.Fallback.Mode {
	case FallbackStatic, FallbackKeyword:
	default:
		return fmt.Errorf("unknown fallback mode: %q", cfg.Fallback.Mode)
	}
	return nil
}

func isKnownRole(name string) bool {
	for _, r := range models.KnownRoles {
		if string(r) == name {
			return true
		}
	}
	return false
}
