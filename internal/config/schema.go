package config

import (
	"time"

	"gramfix/internal/corrector"
	"gramfix/internal/customdict"
	"gramfix/internal/dictfile"
	"gramfix/internal/generator"
)

// Config holds gramfix configuration.
type Config struct {
	Server      ServerConfig             `mapstructure:"server" yaml:"server"`
	Log         LogConfig                `mapstructure:"log" yaml:"log"`
	Dictionary  DictionaryConfig         `mapstructure:"dictionary" yaml:"dictionary"`
	CustomWords CustomWordsConfig        `mapstructure:"customwords" yaml:"customwords"`
	Generator   GeneratorConfig          `mapstructure:"generator" yaml:"generator"`
	Decoding    generator.DecodingConfig `mapstructure:"decoding" yaml:"decoding"`
	Pipeline    PipelineConfig           `mapstructure:"pipeline" yaml:"pipeline"`
	Metrics     MetricsConfig            `mapstructure:"metrics" yaml:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes" validate:"min=0"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	SmokeCheck      bool          `mapstructure:"smoke_check" yaml:"smoke_check"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error disabled off"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=console json"`
}

// DictionaryConfig locates the frequency dictionary and tunes the corrector.
type DictionaryConfig struct {
	Path            string `mapstructure:"path" yaml:"path" validate:"required"`
	URL             string `mapstructure:"url" yaml:"url" validate:"omitempty,url"`
	BigramPath      string `mapstructure:"bigram_path" yaml:"bigram_path"`
	BigramURL       string `mapstructure:"bigram_url" yaml:"bigram_url" validate:"omitempty,url"`
	Fetch           bool   `mapstructure:"fetch" yaml:"fetch"`
	MaxEditDistance int    `mapstructure:"max_edit_distance" yaml:"max_edit_distance" validate:"min=0,max=5"`
	PrefixLength    int    `mapstructure:"prefix_length" yaml:"prefix_length" validate:"min=1"`
	CountThreshold  int64  `mapstructure:"count_threshold" yaml:"count_threshold" validate:"min=0"`
	PreserveCase    bool   `mapstructure:"preserve_case" yaml:"preserve_case"`
	CorrectDigits   bool   `mapstructure:"correct_digits" yaml:"correct_digits"`
}

// Corrector converts the section into corrector settings.
func (d DictionaryConfig) Corrector() corrector.CorrectorConfig {
	return corrector.CorrectorConfig{
		MaxEditDistance: d.MaxEditDistance,
		PrefixLength:    d.PrefixLength,
		CountThreshold:  d.CountThreshold,
		PreserveCase:    d.PreserveCase,
		CorrectDigits:   d.CorrectDigits,
		BigramPath:      d.BigramPath,
	}
}

// CustomWordsConfig addresses the Redis set of user words.
type CustomWordsConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr     string `mapstructure:"addr" yaml:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password" yaml:"password"` // supports ${ENV_VAR}
	DB       int    `mapstructure:"db" yaml:"db" validate:"min=0"`
	Key      string `mapstructure:"key" yaml:"key"`
}

// Options converts the section into Redis connection options.
func (c CustomWordsConfig) Options() customdict.Options {
	return customdict.Options{Addr: c.Addr, Password: c.Password, DB: c.DB, Key: c.Key}
}

// GeneratorConfig selects the grammar model and the backend that serves it.
type GeneratorConfig struct {
	Profile      string        `mapstructure:"profile" yaml:"profile" validate:"required"`
	Backend      string        `mapstructure:"backend" yaml:"backend" validate:"oneof=hf openai echo"`
	Model        string        `mapstructure:"model" yaml:"model" validate:"required_unless=Backend echo"`
	PromptPrefix string        `mapstructure:"prompt_prefix" yaml:"prompt_prefix"`
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url" validate:"omitempty,url"`
	Token        string        `mapstructure:"token" yaml:"token"` // supports ${ENV_VAR}
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=0"`
	Concurrency  int           `mapstructure:"concurrency" yaml:"concurrency" validate:"min=0"`
}

// PipelineConfig fixes the stage order.
type PipelineConfig struct {
	Order string `mapstructure:"order" yaml:"order" validate:"oneof=grammar_then_spell spell_then_grammar"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path" validate:"startswith=/"`
}

// DefaultConfig returns configuration with defaults and the default profile applied.
func DefaultConfig() *Config {
	p, _ := generator.LookupProfile(generator.DefaultProfile)
	c := corrector.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    1 << 20,
			CORSOrigins:     []string{"*"},
			SmokeCheck:      true,
		},
		Log: LogConfig{Level: "info", Format: "console"},
		Dictionary: DictionaryConfig{
			Path:            "frequency_dictionary_en_82_765.txt",
			URL:             dictfile.DefaultURL,
			BigramURL:       dictfile.DefaultBigramURL,
			Fetch:           true,
			MaxEditDistance: c.MaxEditDistance,
			PrefixLength:    c.PrefixLength,
			CountThreshold:  c.CountThreshold,
			PreserveCase:    c.PreserveCase,
		},
		CustomWords: CustomWordsConfig{
			Addr: "localhost:6379",
			Key:  customdict.DefaultKey,
		},
		Generator: GeneratorConfig{
			Profile:      p.Name,
			Backend:      "hf",
			Model:        p.Model,
			PromptPrefix: p.PromptPrefix,
			Timeout:      60 * time.Second,
			Concurrency:  4,
		},
		Decoding: p.Decoding,
		Pipeline: PipelineConfig{Order: p.StageOrder},
		Metrics:  MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}
