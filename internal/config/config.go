package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is built once at
// startup and passed into the pipeline; stages never embed credentials,
// model ids, or budget constants as literals.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Budget    BudgetConfig    `yaml:"budget" mapstructure:"budget"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings. Model handles the
// document-level extraction stages; MiniModel handles the cheap candidate
// filter and the table stage.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MiniModel   string  `yaml:"mini_model" mapstructure:"mini_model"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// BudgetConfig configures the resource budget planner.
type BudgetConfig struct {
	// Ceiling is the hard cap on any per-call max-token budget.
	Ceiling int `yaml:"ceiling" mapstructure:"ceiling"`
	// CandidateTokens is the fixed small budget for the candidate filter.
	CandidateTokens int `yaml:"candidate_tokens" mapstructure:"candidate_tokens"`
}

// PipelineConfig configures extraction behavior.
type PipelineConfig struct {
	// MaxMaterials caps the candidate hint-list length.
	MaxMaterials int `yaml:"max_materials" mapstructure:"max_materials"`
	// ParseFailurePath receives the raw service output when every repair
	// strategy fails. Last failure wins.
	ParseFailurePath string `yaml:"parse_failure_path" mapstructure:"parse_failure_path"`
}

// BatchConfig configures the batch driver.
type BatchConfig struct {
	// BaseDir is the corpus root: one subdirectory per document.
	BaseDir string `yaml:"base_dir" mapstructure:"base_dir"`
	// CompletedLog and FailedLog are the checkpoint files, one document
	// identifier per line.
	CompletedLog string `yaml:"completed_log" mapstructure:"completed_log"`
	FailedLog    string `yaml:"failed_log" mapstructure:"failed_log"`
	// MaxNewUnits stops the run after this many newly completed documents.
	MaxNewUnits int `yaml:"max_new_units" mapstructure:"max_new_units"`
	// ThrottleMinSecs/ThrottleMaxSecs bound the randomized sleep between
	// documents.
	ThrottleMinSecs int `yaml:"throttle_min_secs" mapstructure:"throttle_min_secs"`
	ThrottleMaxSecs int `yaml:"throttle_max_secs" mapstructure:"throttle_max_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("THERMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.mini_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.temperature", 0.001)
	v.SetDefault("budget.ceiling", 5120)
	v.SetDefault("budget.candidate_tokens", 256)
	v.SetDefault("pipeline.max_materials", 20)
	v.SetDefault("pipeline.parse_failure_path", "llm_broken_output.txt")
	v.SetDefault("batch.base_dir", "articles")
	v.SetDefault("batch.completed_log", "completed_folders.txt")
	v.SetDefault("batch.failed_log", "failed_folders.txt")
	v.SetDefault("batch.max_new_units", 2000)
	v.SetDefault("batch.throttle_min_secs", 6)
	v.SetDefault("batch.throttle_max_secs", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
