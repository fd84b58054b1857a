package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"legal-explainer/internal/models"
)

const (
	apiKeyEnv       = "GEMINI_API_KEY"
	endpointBaseEnv = "GEMINI_API_ENDPOINT_BASE"
	modelNameEnv    = "GEMINI_MODEL_NAME"
)

// ErrIncomplete is returned by GeminiConfig.Validate when a required field is empty.
var ErrIncomplete = errors.New("gemini configuration is incomplete")

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Upload    UploadConfig    `yaml:"upload"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Narration NarrationConfig `yaml:"narration"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Addr               string  `yaml:"addr"`
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
}

// GeminiConfig is the injected API configuration. All three of APIKey,
// EndpointBase and Model must be set for analysis to be available.
type GeminiConfig struct {
	APIKey         string        `yaml:"api_key"`
	EndpointBase   string        `yaml:"endpoint_base"`
	Model          string        `yaml:"model"`
	PromptTemplate string        `yaml:"prompt_template"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

type AnalysisConfig struct {
	MaxChars  int `yaml:"max_chars"`
	WarnChars int `yaml:"warn_chars"`
}

type NarrationConfig struct {
	Enabled bool    `yaml:"enabled"`
	Engine  string  `yaml:"engine"`
	Lang    string  `yaml:"lang"`
	Rate    float64 `yaml:"rate"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig reads the YAML file at path, applies environment overrides and
// fills defaults. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration built only from defaults and the environment.
func Default() *Config {
	cfg, _ := LoadConfig("")
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(apiKeyEnv); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv(endpointBaseEnv); v != "" {
		c.Gemini.EndpointBase = v
	}
	if v := os.Getenv(modelNameEnv); v != "" {
		c.Gemini.Model = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RateLimitPerSecond <= 0 {
		c.Server.RateLimitPerSecond = 1
	}
	if c.Gemini.PromptTemplate == "" {
		c.Gemini.PromptTemplate = models.ExplainPromptTemplate
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = models.DefaultMaxUploadBytes
	}
	if c.Analysis.MaxChars <= 0 {
		c.Analysis.MaxChars = models.DefaultMaxChars
	}
	if c.Analysis.WarnChars <= 0 {
		c.Analysis.WarnChars = models.DefaultWarnChars
	}
	if c.Narration.Engine == "" {
		c.Narration.Engine = "espeak-ng"
	}
	if c.Narration.Lang == "" {
		c.Narration.Lang = models.DefaultNarrationLang
	}
	if c.Narration.Rate <= 0 {
		c.Narration.Rate = models.DefaultNarrationRate
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports which of the required Gemini fields are missing.
func (g GeminiConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(g.APIKey) == "" {
		missing = append(missing, "api_key")
	}
	if strings.TrimSpace(g.EndpointBase) == "" {
		missing = append(missing, "endpoint_base")
	}
	if strings.TrimSpace(g.Model) == "" {
		missing = append(missing, "model")
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrIncomplete, "missing %s", strings.Join(missing, ", "))
	}
	return nil
}
