// Package config loads the engine settings from an optional YAML file and
// FHIRENGINE_* environment variables. Environment variables win over the
// file, and the file wins over the defaults.
//
// Every key maps to an environment variable by upper-casing it and replacing
// dots with underscores: limits.max_depth is FHIRENGINE_LIMITS_MAX_DEPTH.
package config

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "FHIRENGINE"

// Config holds every setting of the engine.
type Config struct {
	Limits      Limits      `mapstructure:"limits"`
	Validation  Validation  `mapstructure:"validation"`
	Definitions Definitions `mapstructure:"definitions"`
	Log         Log         `mapstructure:"log"`
}

// Limits bound the decoding of untrusted documents.
type Limits struct {
	MaxDepth int `mapstructure:"max_depth"`
	MaxItems int `mapstructure:"max_items"`
	MaxBytes int `mapstructure:"max_bytes"`
}

// Validation configures value set membership checks.
type Validation struct {
	// TerminologyFile is a YAML file of value set codes used for bindings
	// without embedded codes.
	TerminologyFile      string `mapstructure:"terminology_file"`
	TerminologyCacheSize int    `mapstructure:"terminology_cache_size"`
}

// Definitions lists definition files added to the bundled R4 types.
type Definitions struct {
	Extra []string `mapstructure:"extra"`
}

// Log configures the logger.
type Log struct {
	Level logrus.Level `mapstructure:"level"`
	File  string       `mapstructure:"file"`
}

var defaults = map[string]any{
	"limits.max_depth":                  64,
	"limits.max_items":                  10_000,
	"limits.max_bytes":                  16 << 20,
	"validation.terminology_file":       "",
	"validation.terminology_cache_size": 1024,
	"definitions.extra":                 []string{},
	"log.level":                         "info",
	"log.file":                          "",
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load reads filename, when not empty, and applies environment overrides.
func Load(filename string) (*Config, error) {
	v := newViper()

	if filename != "" {
		v.SetConfigFile(filename)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", filename)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return cfg, nil
}

// Validate checks the values that can not be corrected by a default.
func (c *Config) Validate() error {
	switch {
	case c.Limits.MaxDepth <= 0:
		return errors.Errorf("limits.max_depth must be positive, got %d", c.Limits.MaxDepth)
	case c.Limits.MaxItems <= 0:
		return errors.Errorf("limits.max_items must be positive, got %d", c.Limits.MaxItems)
	case c.Limits.MaxBytes <= 0:
		return errors.Errorf("limits.max_bytes must be positive, got %d", c.Limits.MaxBytes)
	case c.Validation.TerminologyCacheSize <= 0:
		return errors.Errorf("validation.terminology_cache_size must be positive, got %d",
			c.Validation.TerminologyCacheSize)
	}

	return nil
}

func newViper() *viper.Viper {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	hook := mapstructure.ComposeDecodeHookFunc(
		stringToLevelHook,
		mapstructure.StringToSliceHookFunc(","),
	)

	if err := v.Unmarshal(cfg, viper.DecodeHook(hook)); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	return cfg, nil
}

// stringToLevelHook parses log level names ("debug", "warn").
func stringToLevelHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(logrus.Level(0)) {
		return data, nil
	}

	level, err := logrus.ParseLevel(data.(string))
	if err != nil {
		return nil, errors.Wrap(err, "log.level")
	}

	return level, nil
}
