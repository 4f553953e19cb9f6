// Package config resolves callgrade's CLI settings. Values are layered with
// viper: command-line flags over CALLGRADE_* environment variables over an
// optional YAML config file over built-in defaults.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/granin/sample20calls/internal/profile"
)

// EnvPrefix is the prefix of environment overrides, e.g. CALLGRADE_WORKERS
// or CALLGRADE_LLM_PROVIDER.
const EnvPrefix = "CALLGRADE"

// LLM configures the review provider.
type LLM struct {
	Provider    string  `mapstructure:"provider" validate:"oneof=anthropic openai google"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens" validate:"gt=0"`
	Temperature float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

// Config is the resolved set of settings.
type Config struct {
	CallsDir       string  `mapstructure:"calls_dir" validate:"required"`
	OutDir         string  `mapstructure:"out_dir"`
	GroundTruthDir string  `mapstructure:"ground_truth_dir"`
	Profile        string  `mapstructure:"profile"`
	ProfileFile    string  `mapstructure:"profile_file"`
	Workers        int     `mapstructure:"workers" validate:"gte=1,lte=64"`
	Format         string  `mapstructure:"format" validate:"oneof=json markdown both"`
	LogLevel       string  `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat      string  `mapstructure:"log_format" validate:"oneof=json console"`
	CallDuration   float64 `mapstructure:"call_duration" validate:"gte=0"`
	// FailBelow makes grading exit non-zero when any call's final grade is
	// below it. Zero disables the check.
	FailBelow int `mapstructure:"fail_below" validate:"gte=0,lte=10"`
	LLM       LLM `mapstructure:"llm"`
}

var defaults = map[string]any{
	"calls_dir":        "calls",
	"out_dir":          "",
	"ground_truth_dir": "ground_truth",
	"profile":          "standard",
	"profile_file":     "",
	"workers":          4,
	"format":           "json",
	"log_level":        "info",
	"log_format":       "console",
	"call_duration":    0.0,
	"fail_below":       0,
	"llm.provider":     "anthropic",
	"llm.model":        "",
	"llm.max_tokens":   8192,
	"llm.temperature":  0.0,
}

// Keys returns every settings key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FlagName returns the command-line flag bound to key: "llm.max_tokens"
// becomes "llm-max-tokens".
func FlagName(key string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(key)
}

// New returns a viper instance with defaults and environment binding set.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds each settings key to its flag in fs when that flag exists.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, k := range Keys() {
		f := fs.Lookup(FlagName(k))
		if f == nil {
			continue
		}
		if err := v.BindPFlag(k, f); err != nil {
			return fmt.Errorf("config: bind %s: %w", k, err)
		}
	}
	return nil
}

// Load reads configFile when non-empty, then decodes and validates the
// merged settings.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %q: %w", configFile, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	if err := Validate(c); err != nil {
		return Config{}, err
	}
	return c, nil
}

var validate = validator.New()

// Validate checks c against its field constraints.
func Validate(c Config) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid settings: %w", err)
	}
	return nil
}

// GradingProfile resolves the profile: a profile file wins over a name.
func (c Config) GradingProfile() (profile.Profile, error) {
	if c.ProfileFile != "" {
		return profile.LoadFile(c.ProfileFile)
	}
	return profile.Load(c.Profile)
}
