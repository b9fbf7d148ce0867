package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Corpus   CorpusConfig   `mapstructure:"corpus"`
	Whisper  WhisperConfig  `mapstructure:"whisper"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Practice PracticeConfig `mapstructure:"practice"`
	App      AppConfig      `mapstructure:"app"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type RedisConfig struct {
	URI      string        `mapstructure:"uri"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"` // corpus cache, 0 disables it
}

type CorpusConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type WhisperConfig struct {
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"` // empty means the OpenAI default
	Model    string `mapstructure:"model"`
	Language string `mapstructure:"language"`
}

type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"` // empty disables explanations
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
}

// Enabled reports whether an explainer should be wired
func (g GeminiConfig) Enabled() bool {
	return g.APIKey != ""
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

type HTTPConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type PracticeConfig struct {
	Surahs      []int `mapstructure:"surahs"`
	MaxAttempts int   `mapstructure:"max_attempts"`
	MaxDraws    int   `mapstructure:"max_draws"`
}

type AppConfig struct {
	Env             string `mapstructure:"env"`
	LocalesDir      string `mapstructure:"locales_dir"`
	DefaultLanguage string `mapstructure:"default_language"`
}

// Target selects which binary's required fields are validated
type Target int

const (
	TargetBot Target = iota
	TargetAPI
)

// Load loads configuration from a YAML file with environment variable overrides.
// A .env file in the working directory is applied to the environment first.
func Load(filename string, target Target) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	// Set config file
	v.SetConfigFile(filename)

	// Set defaults
	v.SetDefault("redis.cache_ttl", 7*24*time.Hour)
	v.SetDefault("corpus.base_url", "https://equran.id/api/v2")
	v.SetDefault("corpus.timeout", 30*time.Second)
	v.SetDefault("whisper.model", "whisper-1")
	v.SetDefault("whisper.language", "ar")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("practice.surahs", []int{1, 18, 36, 55, 67, 78, 91, 93, 101, 110})
	v.SetDefault("practice.max_attempts", 20)
	v.SetDefault("practice.max_draws", 5)
	v.SetDefault("app.env", "development")
	v.SetDefault("app.locales_dir", "locales")
	v.SetDefault("app.default_language", "en")

	// Read config file, it is optional when everything comes from the environment
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	// Environment variable configuration
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets are usually only present in the environment, and AutomaticEnv
	// does not see keys that are missing from the file
	_ = v.BindEnv("telegram.token", "TELEGRAM_TOKEN")
	_ = v.BindEnv("redis.uri", "REDIS_URI")
	_ = v.BindEnv("whisper.api_key", "WHISPER_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("app.env", "APP_ENV")

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(target); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate(target Target) error {
	if target == TargetBot {
		if c.Telegram.Token == "" {
			return fmt.Errorf("telegram token is required")
		}
		if c.Redis.URI == "" {
			return fmt.Errorf("redis URI is required")
		}
		if c.Database.URL == "" {
			return fmt.Errorf("database URL is required")
		}
	}
	if c.Corpus.BaseURL == "" {
		return fmt.Errorf("corpus base URL is required")
	}
	if c.Whisper.APIKey == "" {
		return fmt.Errorf("whisper API key is required")
	}
	if c.Practice.MaxAttempts <= 0 || c.Practice.MaxDraws <= 0 {
		return fmt.Errorf("practice max_attempts and max_draws must be positive")
	}
	return nil
}
