// Package config loads application configuration from YAML files and
// environment variables via viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonesrussell/aeoscan/internal/budget"
	"github.com/jonesrussell/aeoscan/internal/crawl"
	"github.com/jonesrussell/aeoscan/internal/database"
	"github.com/jonesrussell/aeoscan/internal/logger"
	"github.com/jonesrussell/aeoscan/internal/rubric"
	"github.com/jonesrussell/aeoscan/internal/storage"
)

// Budget defaults applied when no ceiling is configured.
const (
	DefaultMaxPages         = 200
	DefaultMaxRenders       = 20
	DefaultMaxLLMCalls      = 60
	DefaultMaxTokensPerCall = 4000
)

// Server defaults.
const (
	defaultServerAddress      = ":8080"
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 30 * time.Second
	defaultServerIdleTimeout  = 60 * time.Second
)

// defaultRescanSchedule runs rescans of known targets nightly.
const defaultRescanSchedule = "0 3 * * *"

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// RendererConfig holds headless Chrome settings.
type RendererConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RescanConfig holds the periodic rescan schedule.
type RescanConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// Config is the full application configuration.
type Config struct {
	Environment   string           `mapstructure:"environment"`
	Logger        logger.Config    `mapstructure:"logger"`
	Server        ServerConfig     `mapstructure:"server"`
	Database      database.Config  `mapstructure:"database"`
	Elasticsearch storage.Config   `mapstructure:"elasticsearch"`
	LLM           rubric.LLMConfig `mapstructure:"llm"`
	Crawl         crawl.Config     `mapstructure:"crawl"`
	Budget        budget.Limits    `mapstructure:"budget"`
	Renderer      RendererConfig   `mapstructure:"renderer"`
	Rescan        RescanConfig     `mapstructure:"rescan"`
	Rubric        string           `mapstructure:"rubric"`
	FixTemplates  string           `mapstructure:"fix_templates"`
}

// Load reads configuration from the optional config file, environment
// variables and defaults, in that order of precedence.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	// The config file is optional; env vars and defaults carry a full
	// configuration on their own.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// bindEnvVars maps the documented environment variables to config keys.
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string][]string{
		"budget.max_pages":           {"MAX_PAGES"},
		"budget.max_renders":         {"MAX_RENDERS"},
		"budget.max_llm_calls":       {"MAX_LLM_CALLS"},
		"budget.max_tokens_per_call": {"MAX_TOKENS_PER_CALL"},
		"logger.level":               {"LOG_LEVEL"},
		"logger.encoding":            {"LOG_FORMAT"},
		"llm.api_key":                {"OPENAI_API_KEY", "LLM_API_KEY"},
		"llm.model":                  {"LLM_MODEL"},
		"database.host":              {"DATABASE_HOST"},
		"database.port":              {"DATABASE_PORT"},
		"database.user":              {"DATABASE_USER"},
		"database.password":          {"DATABASE_PASSWORD"},
		"database.dbname":            {"DATABASE_NAME"},
		"database.sslmode":           {"DATABASE_SSLMODE"},
		"elasticsearch.addresses":    {"ELASTICSEARCH_HOSTS", "ELASTICSEARCH_ADDRESSES"},
		"elasticsearch.password":     {"ELASTIC_PASSWORD", "ELASTICSEARCH_PASSWORD"},
		"elasticsearch.api_key":      {"ELASTICSEARCH_API_KEY"},
	}

	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	return nil
}

// setDefaults sets production-safe default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "production")

	v.SetDefault("logger", map[string]any{
		"level":       "info",
		"encoding":    "json",
		"development": false,
	})

	v.SetDefault("server", map[string]any{
		"address":       defaultServerAddress,
		"read_timeout":  defaultServerReadTimeout.String(),
		"write_timeout": defaultServerWriteTimeout.String(),
		"idle_timeout":  defaultServerIdleTimeout.String(),
	})

	v.SetDefault("database", map[string]any{
		"host":    "127.0.0.1",
		"port":    "5432",
		"user":    "aeoscan",
		"dbname":  "aeoscan",
		"sslmode": "disable",
	})

	v.SetDefault("elasticsearch", map[string]any{
		"addresses": []string{"http://127.0.0.1:9200"},
	})

	v.SetDefault("budget", map[string]any{
		"max_pages":           DefaultMaxPages,
		"max_renders":         DefaultMaxRenders,
		"max_llm_calls":       DefaultMaxLLMCalls,
		"max_tokens_per_call": DefaultMaxTokensPerCall,
	})

	v.SetDefault("crawl", map[string]any{
		"parallelism":     4,
		"request_timeout": "30s",
	})

	v.SetDefault("renderer", map[string]any{
		"enabled": false,
		"timeout": "20s",
	})

	v.SetDefault("rescan", map[string]any{
		"schedule": defaultRescanSchedule,
	})
}
