package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/flowbaker/csvclassifier/pkg/domain"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	DefaultModelName       = "gpt-4o-2024-08-06"
	DefaultAzureAPIVersion = "2024-10-21"
	DefaultEnvFile         = ".env"
)

// Config holds the classifier configuration
type Config struct {
	ModelName string `mapstructure:"model_name"`

	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`

	AzureEndpoint   string `mapstructure:"azure_openai_endpoint"`
	AzureAPIKey     string `mapstructure:"azure_openai_api_key"`
	AzureAPIVersion string `mapstructure:"azure_api_version"`

	// Temperature is kept as text so an unset value can be told apart from 0.
	Temperature    string        `mapstructure:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	CategoriesFile   string `mapstructure:"categories_file"`
	SystemPromptFile string `mapstructure:"system_prompt_file"`
	StrictValidation bool   `mapstructure:"strict_validation"`

	LogLevel string `mapstructure:"log_level"`
}

type LoadOptions struct {
	// EnvFile is a dotenv file to read. When empty, ./.env is read if it
	// exists.
	EnvFile string
}

// LoadConfig loads configuration from an optional dotenv file and the
// process environment. Environment variables take precedence.
func LoadConfig(opts LoadOptions) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	envMappings := map[string]string{
		"model_name":            "MODEL_NAME",
		"openai_api_key":        "OPENAI_API_KEY",
		"openai_base_url":       "OPENAI_BASE_URL",
		"azure_openai_endpoint": "AZURE_OPENAI_ENDPOINT",
		"azure_openai_api_key":  "AZURE_OPENAI_API_KEY",
		"azure_api_version":     "AZURE_API_VERSION",
		"temperature":           "TEMPERATURE",
		"max_tokens":            "MAX_TOKENS",
		"request_timeout":       "REQUEST_TIMEOUT",
		"categories_file":       "CATEGORIES_FILE",
		"system_prompt_file":    "SYSTEM_PROMPT_FILE",
		"strict_validation":     "STRICT_VALIDATION",
		"log_level":             "LOG_LEVEL",
	}

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	envFile, err := resolveEnvFile(opts.EnvFile)
	if err != nil {
		return nil, err
	}

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: error reading env file %s: %v", domain.ErrConfiguration, envFile, err)
		}
		log.Debug().Msgf("Using env file: %s", v.ConfigFileUsed())
	} else {
		log.Debug().Msg("Env file not found, using environment variables and defaults")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("%w: unable to decode config into struct: %v", domain.ErrConfiguration, err)
	}

	log.Debug().Msgf("Config loaded: Model=%s, Azure=%t", config.ModelName, config.AzureEndpoint != "")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("azure_api_version", DefaultAzureAPIVersion)
	v.SetDefault("max_tokens", 0)
	v.SetDefault("request_timeout", "0s")
	v.SetDefault("strict_validation", false)
	v.SetDefault("log_level", "info")
}

func resolveEnvFile(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: env file %s: %v", domain.ErrConfiguration, path, err)
		}
		return path, nil
	}

	if _, err := os.Stat(DefaultEnvFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("%w: env file %s: %v", domain.ErrConfiguration, DefaultEnvFile, err)
	}

	return DefaultEnvFile, nil
}

// ProviderKind names the completion endpoint variant
type ProviderKind string

const (
	ProviderOpenAI ProviderKind = "openai"
	ProviderAzure  ProviderKind = "azure"
)

// ProviderSettings is the resolved endpoint selection for a run
type ProviderSettings struct {
	Kind       ProviderKind
	APIKey     string
	Endpoint   string
	APIVersion string
	Model      string

	// Temperature is nil when none was configured
	Temperature *float32
	MaxTokens   int
	// Timeout of 0 leaves the HTTP client without a deadline
	Timeout time.Duration
}

// ResolveProvider picks Azure when both an Azure endpoint and key are set,
// and the standard OpenAI API otherwise.
func (c *Config) ResolveProvider() (ProviderSettings, error) {
	model := strings.TrimSpace(c.ModelName)
	if model == "" {
		model = DefaultModelName
	}

	temperature, err := c.parseTemperature()
	if err != nil {
		return ProviderSettings{}, err
	}

	if c.MaxTokens < 0 {
		return ProviderSettings{}, fmt.Errorf("%w: MAX_TOKENS must not be negative, got %d", domain.ErrConfiguration, c.MaxTokens)
	}
	if c.RequestTimeout < 0 {
		return ProviderSettings{}, fmt.Errorf("%w: REQUEST_TIMEOUT must not be negative, got %s", domain.ErrConfiguration, c.RequestTimeout)
	}

	settings := ProviderSettings{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.RequestTimeout,
	}

	if c.AzureEndpoint != "" && c.AzureAPIKey != "" {
		settings.Kind = ProviderAzure
		settings.APIKey = c.AzureAPIKey
		settings.Endpoint = c.AzureEndpoint
		settings.APIVersion = c.AzureAPIVersion
		if settings.APIVersion == "" {
			settings.APIVersion = DefaultAzureAPIVersion
		}

		return settings, nil
	}

	if c.OpenAIAPIKey == "" {
		return ProviderSettings{}, fmt.Errorf("%w: missing required environment variables: OPENAI_API_KEY (or AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY)", domain.ErrConfiguration)
	}

	settings.Kind = ProviderOpenAI
	settings.APIKey = c.OpenAIAPIKey
	settings.Endpoint = c.OpenAIBaseURL

	return settings, nil
}

// parseTemperature accepts an empty value or a number in [0, 2].
func (c *Config) parseTemperature() (*float32, error) {
	raw := strings.TrimSpace(c.Temperature)
	if raw == "" {
		return nil, nil
	}

	value, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: TEMPERATURE %q is not a number", domain.ErrConfiguration, raw)
	}
	if value < 0 || value > 2 {
		return nil, fmt.Errorf("%w: TEMPERATURE must be between 0 and 2, got %s", domain.ErrConfiguration, raw)
	}

	t := float32(value)
	return &t, nil
}
