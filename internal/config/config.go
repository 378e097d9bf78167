// Package config loads chatbox settings from flags, environment, .env files and an
// optional YAML config file.
//
// Priority (highest to lowest): flags > environment variables > local .env >
// config-dir .env > config file > defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"chatbox/internal/logger"
)

// EnvPrefix is prepended to every environment variable chatbox reads.
const EnvPrefix = "CHATBOX"

// Configuration keys.
const (
	KeyAPIURL         = "api_url"
	KeyRequestTimeout = "request_timeout"
	KeyHistoryWindow  = "history_window"
	KeyOffline        = "offline"
	KeySeed           = "seed"
	KeyRenderStyle    = "render_style"
	KeyTestMode       = "test_mode"
	KeyLogLevel       = "log_level"
	KeyLogFile        = "log_file"
	KeyServeAddr      = "serve.addr"
	KeyServeProvider  = "serve.provider"
	KeyServeOrigins   = "serve.allowed_origins"
	KeyOpenAIAPIKey   = "openai.api_key"
	KeyOpenAIModel    = "openai.model"
	KeyOpenAIBaseURL  = "openai.base_url"
)

// Defaults.
const (
	DefaultAPIURL         = "http://localhost:3001/api"
	DefaultRequestTimeout = 30 * time.Second
	DefaultHistoryWindow  = 10
	DefaultRenderStyle    = "dark"
	DefaultServeAddr      = ":3001"
	DefaultServeProvider  = "mock"
	DefaultOpenAIModel    = "gpt-4o-mini"
)

// Serve providers.
const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
)

// Config holds all resolved chatbox settings.
type Config struct {
	APIURL         string        // Base URL of the remote chat API, without the /chat suffix
	RequestTimeout time.Duration // Upper bound for one remote chat call
	HistoryWindow  int           // Number of prior messages sent as context
	Offline        bool          // Skip the remote call and always use mock replies
	Seed           uint64        // Seed for mock reply selection, 0 means random
	RenderStyle    string        // Glamour style used for assistant messages
	TestMode       bool          // Deterministic ids and timestamps
	LogLevel       string
	LogFile        string

	Serve  ServeConfig
	OpenAI OpenAIConfig
}

// ServeConfig configures the development backend.
type ServeConfig struct {
	Addr           string
	Provider       string
	AllowedOrigins []string
}

// OpenAIConfig configures the OpenAI provider of the development backend.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// LoadOptions tunes where configuration is read from.
type LoadOptions struct {
	ConfigFile string // Explicit config file; empty searches the user config dir
	ConfigDir  string // Overrides the user config dir lookup
	WorkDir    string // Overrides the working directory used for the local .env
	SkipDotEnv bool   // Do not read .env files (test mode)
}

// New returns a viper instance with chatbox defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyAPIURL, DefaultAPIURL)
	v.SetDefault(KeyRequestTimeout, DefaultRequestTimeout)
	v.SetDefault(KeyHistoryWindow, DefaultHistoryWindow)
	v.SetDefault(KeyOffline, false)
	v.SetDefault(KeySeed, 0)
	v.SetDefault(KeyRenderStyle, DefaultRenderStyle)
	v.SetDefault(KeyTestMode, false)
	v.SetDefault(KeyLogLevel, "")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyServeAddr, DefaultServeAddr)
	v.SetDefault(KeyServeProvider, DefaultServeProvider)
	v.SetDefault(KeyServeOrigins, []string{"*"})
	v.SetDefault(KeyOpenAIModel, DefaultOpenAIModel)
	v.SetDefault(KeyOpenAIBaseURL, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// The OpenAI key keeps its conventional name as well
	_ = v.BindEnv(KeyOpenAIAPIKey, EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")

	return v
}

// Load reads .env files and the config file into v and returns the resolved Config.
func Load(v *viper.Viper, opts LoadOptions) (*Config, error) {
	configDir := opts.ConfigDir
	if configDir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			configDir = filepath.Join(dir, "chatbox")
		}
	}

	if !opts.SkipDotEnv {
		if err := loadDotEnv(opts.WorkDir, configDir); err != nil {
			return nil, err
		}
	}

	if err := readConfigFile(v, opts.ConfigFile, configDir); err != nil {
		return nil, err
	}

	cfg := &Config{
		APIURL:         strings.TrimSuffix(v.GetString(KeyAPIURL), "/"),
		RequestTimeout: v.GetDuration(KeyRequestTimeout),
		HistoryWindow:  v.GetInt(KeyHistoryWindow),
		Offline:        v.GetBool(KeyOffline),
		Seed:           v.GetUint64(KeySeed),
		RenderStyle:    v.GetString(KeyRenderStyle),
		TestMode:       v.GetBool(KeyTestMode),
		LogLevel:       v.GetString(KeyLogLevel),
		LogFile:        v.GetString(KeyLogFile),
		Serve: ServeConfig{
			Addr:           v.GetString(KeyServeAddr),
			Provider:       strings.ToLower(v.GetString(KeyServeProvider)),
			AllowedOrigins: v.GetStringSlice(KeyServeOrigins),
		},
		OpenAI: OpenAIConfig{
			APIKey:  v.GetString(KeyOpenAIAPIKey),
			Model:   v.GetString(KeyOpenAIModel),
			BaseURL: v.GetString(KeyOpenAIBaseURL),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("Configuration loaded",
		"api_url", cfg.APIURL,
		"request_timeout", cfg.RequestTimeout.String(),
		"history_window", cfg.HistoryWindow,
		"offline", cfg.Offline,
		"config_file", v.ConfigFileUsed())
	return cfg, nil
}

// Validate checks the client-side settings.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", KeyAPIURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q: must be an absolute http(s) URL", KeyAPIURL, c.APIURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyRequestTimeout, c.RequestTimeout)
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyHistoryWindow, c.HistoryWindow)
	}
	return nil
}

// ValidateServe checks the development backend settings.
func (c *Config) ValidateServe() error {
	if c.Serve.Addr == "" {
		return fmt.Errorf("%s is required", KeyServeAddr)
	}
	switch c.Serve.Provider {
	case ProviderMock:
		return nil
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai provider requires OPENAI_API_KEY or %s_OPENAI_API_KEY", EnvPrefix)
		}
		if c.OpenAI.Model == "" {
			return fmt.Errorf("%s is required for the openai provider", KeyOpenAIModel)
		}
		return nil
	default:
		return fmt.Errorf("unknown %s %q (expected %s or %s)", KeyServeProvider, c.Serve.Provider, ProviderMock, ProviderOpenAI)
	}
}

// loadDotEnv loads the local .env first, then the config-dir .env.
// godotenv never overrides variables that are already set, so the real
// environment wins over both files and the local file wins over the config-dir one.
func loadDotEnv(workDir, configDir string) error {
	if workDir == "" {
		dir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		workDir = dir
	}

	paths := []string{filepath.Join(workDir, ".env")}
	if configDir != "" {
		paths = append(paths, filepath.Join(configDir, ".env"))
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load .env file %s: %w", path, err)
		}
		logger.Debug("Loaded .env file", "path", path)
	}
	return nil
}

func readConfigFile(v *viper.Viper, configFile, configDir string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if configDir == "" {
			return nil
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && configFile == "" {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}
