// Package config loads gramfix settings from an optional YAML file and
// GRAMFIX_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"gramfix/internal/generator"
	"gramfix/internal/pipeline"
	"gramfix/internal/platform/bind"
	perr "gramfix/internal/platform/errors"
)

const (
	// EnvPrefix prefixes every environment override, e.g. GRAMFIX_SERVER_ADDR.
	EnvPrefix = "GRAMFIX"
	// DefaultAddr is used when neither server.addr nor PORT is set.
	DefaultAddr = "0.0.0.0:8000"
)

// profileKeys have no viper defaults; a key counts as explicit when a file or
// the environment sets it, and explicit keys win over the selected profile.
var profileKeys = []string{
	"generator.model",
	"generator.prompt_prefix",
	"pipeline.order",
	"decoding.max_new_tokens",
	"decoding.strategy",
	"decoding.num_beams",
	"decoding.early_stopping",
	"decoding.top_k",
	"decoding.top_p",
	"decoding.repetition_penalty",
}

var envRefRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads cfgFile (or the default search paths) and the environment.
func Load(cfgFile string) (*Config, error) {
	v, err := NewViper(cfgFile)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// NewViper sets up a viper instance with defaults, env binding and the config
// file. Callers may bind flags on it before FromViper.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range append(profileKeys, "server.addr") {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", k, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("gramfix")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.gramfix")
	}

	// the file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, perr.Wrapf(err, perr.ErrorCodeConfig, "read config file")
		}
	}
	return v, nil
}

// FromViper decodes v, applies the generator profile and validates the result.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeConfig, "decode config")
	}
	if err := cfg.applyProfile(v); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
		if port := os.Getenv("PORT"); port != "" {
			cfg.Server.Addr = "0.0.0.0:" + port
		}
	}
	cfg.Generator.Token = ResolveEnvVars(cfg.Generator.Token)
	cfg.CustomWords.Password = ResolveEnvVars(cfg.CustomWords.Password)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyProfile fills profile-governed settings that were not set explicitly.
func (c *Config) applyProfile(v *viper.Viper) error {
	p, ok := generator.LookupProfile(c.Generator.Profile)
	if !ok {
		return perr.WithField(perr.Configf(
			"unknown generator profile %q (known: %s)", c.Generator.Profile, strings.Join(generator.ProfileNames(), ", ")),
			"generator.profile")
	}
	if !v.IsSet("generator.model") {
		c.Generator.Model = p.Model
	}
	if !v.IsSet("generator.prompt_prefix") {
		c.Generator.PromptPrefix = p.PromptPrefix
	}
	if !v.IsSet("pipeline.order") {
		c.Pipeline.Order = p.StageOrder
	}

	d := p.Decoding
	if v.IsSet("decoding.strategy") {
		s, err := generator.ParseStrategy(v.GetString("decoding.strategy"))
		if err != nil {
			return perr.WithField(perr.Wrap(err, perr.ErrorCodeConfig, "invalid decoding strategy"), "decoding.strategy")
		}
		d.Strategy = s
	}
	if v.IsSet("decoding.max_new_tokens") {
		d.MaxNewTokens = v.GetInt("decoding.max_new_tokens")
	}
	if v.IsSet("decoding.num_beams") {
		d.NumBeams = v.GetInt("decoding.num_beams")
	}
	if v.IsSet("decoding.early_stopping") {
		d.EarlyStopping = v.GetBool("decoding.early_stopping")
	}
	if v.IsSet("decoding.top_k") {
		d.TopK = v.GetInt("decoding.top_k")
	}
	if v.IsSet("decoding.top_p") {
		d.TopP = v.GetFloat64("decoding.top_p")
	}
	if v.IsSet("decoding.repetition_penalty") {
		d.RepetitionPenalty = v.GetFloat64("decoding.repetition_penalty")
	}
	c.Decoding = d
	return nil
}

// Validate checks struct tags, the decoding policy and the stage order.
func (c *Config) Validate() error {
	if err := bind.Struct(c); err != nil {
		return perr.Wrap(err, perr.ErrorCodeConfig, "invalid config")
	}
	if err := c.Decoding.Validate(); err != nil {
		return perr.WithField(perr.Wrap(err, perr.ErrorCodeConfig, "invalid config"), "decoding")
	}
	if _, err := pipeline.ParseStageOrder(c.Pipeline.Order); err != nil {
		return perr.WithField(perr.Wrap(err, perr.ErrorCodeConfig, "invalid config"), "pipeline.order")
	}
	return nil
}

// StageOrder returns the parsed pipeline order.
func (c *Config) StageOrder() pipeline.StageOrder {
	o, _ := pipeline.ParseStageOrder(c.Pipeline.Order)
	return o
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envRefRe.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("config: marshal defaults: %w", err)
	}
	header := []byte(`# gramfix configuration
# Every key can be overridden with GRAMFIX_<SECTION>_<KEY>, e.g. GRAMFIX_GENERATOR_BACKEND=echo.
# Secrets accept ${ENV_VAR} references.

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.smoke_check", d.Server.SmokeCheck)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("dictionary.path", d.Dictionary.Path)
	v.SetDefault("dictionary.url", d.Dictionary.URL)
	v.SetDefault("dictionary.bigram_path", "")
	v.SetDefault("dictionary.bigram_url", d.Dictionary.BigramURL)
	v.SetDefault("dictionary.fetch", d.Dictionary.Fetch)
	v.SetDefault("dictionary.max_edit_distance", d.Dictionary.MaxEditDistance)
	v.SetDefault("dictionary.prefix_length", d.Dictionary.PrefixLength)
	v.SetDefault("dictionary.count_threshold", d.Dictionary.CountThreshold)
	v.SetDefault("dictionary.preserve_case", d.Dictionary.PreserveCase)
	v.SetDefault("dictionary.correct_digits", d.Dictionary.CorrectDigits)

	v.SetDefault("customwords.enabled", d.CustomWords.Enabled)
	v.SetDefault("customwords.addr", d.CustomWords.Addr)
	v.SetDefault("customwords.password", "")
	v.SetDefault("customwords.db", 0)
	v.SetDefault("customwords.key", d.CustomWords.Key)

	v.SetDefault("generator.profile", d.Generator.Profile)
	v.SetDefault("generator.backend", d.Generator.Backend)
	v.SetDefault("generator.base_url", "")
	v.SetDefault("generator.token", "")
	v.SetDefault("generator.timeout", d.Generator.Timeout)
	v.SetDefault("generator.concurrency", d.Generator.Concurrency)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}
