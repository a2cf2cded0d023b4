// Package config loads pumpprep settings from defaults, an optional yaml
// file, a .env file and PUMPPREP_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/pumpprep/bench"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
	"github.com/YuminosukeSato/pumpprep/preprocessing"
)

// EnvPrefix prefixes every environment override, e.g. PUMPPREP_PIPELINE_SEED.
const EnvPrefix = "PUMPPREP"

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "pumpprep.yaml"

// Config is the full application configuration.
type Config struct {
	LogLevel string                       `mapstructure:"log_level" yaml:"log_level"`
	Pipeline preprocessing.Config         `mapstructure:"pipeline" yaml:"pipeline"`
	Encoder  preprocessing.EncoderOptions `mapstructure:"encoder" yaml:"encoder"`
	Bench    Bench                        `mapstructure:"bench" yaml:"bench"`
	CSV      CSV                          `mapstructure:"csv" yaml:"csv"`
	Postgres Postgres                     `mapstructure:"postgres" yaml:"postgres"`
}

// Bench configures the model bench.
type Bench struct {
	Model         string  `mapstructure:"model" yaml:"model"`
	PositiveLevel string  `mapstructure:"positive_level" yaml:"positive_level"`
	Threshold     float64 `mapstructure:"threshold" yaml:"threshold"`
	MaxWorkers    int     `mapstructure:"max_workers" yaml:"max_workers"`
}

// CSV configures the CSV loader.
type CSV struct {
	NAValues  []string `mapstructure:"na_values" yaml:"na_values"`
	Delimiter string   `mapstructure:"delimiter" yaml:"delimiter"`
}

// Postgres configures the database loader. The DSN is usually supplied
// through PUMPPREP_POSTGRES_DSN in .env rather than the yaml file.
type Postgres struct {
	DSN   string `mapstructure:"dsn" yaml:"dsn"`
	Query string `mapstructure:"query" yaml:"query"`
}

// Default returns the built-in configuration.
func Default() *Config {
	pipeline := preprocessing.DefaultConfig()
	return &Config{
		LogLevel: "info",
		Pipeline: pipeline,
		Encoder:  preprocessing.DefaultEncoderOptions(pipeline),
		Bench: Bench{
			Model:         bench.ModelLogistic,
			PositiveLevel: pipeline.StatusLevels[1],
			Threshold:     0.5,
		},
		CSV: CSV{
			NAValues:  []string{},
			Delimiter: ",",
		},
		Postgres: Postgres{
			Query: "SELECT * FROM pump_observations",
		},
	}
}

// Validate checks the settings that are not covered by the pipeline.
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if len([]rune(c.CSV.Delimiter)) != 1 {
		return errors.NewValidationError("csv.delimiter", "must be a single character", c.CSV.Delimiter)
	}
	if !(c.Bench.Threshold > 0 && c.Bench.Threshold < 1) {
		return errors.NewValidationError("bench.threshold", "must be in (0, 1)", c.Bench.Threshold)
	}
	if _, err := bench.NewClassifierFactory(c.Bench.Model, 0); err != nil {
		return errors.NewValidationError("bench.model", "must be majority or logistic", c.Bench.Model)
	}
	found := false
	for _, level := range c.Pipeline.StatusLevels {
		found = found || level == c.Bench.PositiveLevel
	}
	if !found {
		return errors.NewValidationError("bench.positive_level", "must be one of the status levels", c.Bench.PositiveLevel)
	}
	return nil
}

// Delimiter returns the CSV delimiter as a rune.
func (c *Config) Delimiter() rune {
	return []rune(c.CSV.Delimiter)[0]
}

// Load reads cfgFile (or ./pumpprep.yaml when empty) and ./.env.
// Precedence: env > .env > config file > defaults.
func Load(cfgFile string) (*Config, error) {
	return LoadWithEnvFile(cfgFile, ".env")
}

// LoadWithEnvFile is Load with an explicit .env path. A missing .env file
// is not an error; variables already set in the environment win over it.
func LoadWithEnvFile(cfgFile, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "load %s", envFile)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := setDefaults(v, Default()); err != nil {
		return nil, err
	}
	// 識別子と目的変数の列名から導出する
	v.SetDefault("encoder.exclude", []string{})

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", cfgFile)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(strings.TrimSuffix(DefaultFile, filepath.Ext(DefaultFile)))
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if len(c.Encoder.Exclude) == 0 {
		c.Encoder.Exclude = []string{c.Pipeline.IDColumn, c.Pipeline.StatusColumn}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes c as yaml to path, creating the directory if necessary.
func Save(c *Config, path string) error {
	if path == "" {
		path = DefaultFile
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "mkdir config dir")
		}
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal yaml")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

// setDefaults registers every leaf of d as a viper default so that
// AutomaticEnv can override nested keys.
func setDefaults(v *viper.Viper, d *Config) error {
	b, err := yaml.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "marshal defaults")
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(b, &tree); err != nil {
		return errors.Wrap(err, "unmarshal defaults")
	}
	walkDefaults(v, "", tree)
	return nil
}

func walkDefaults(v *viper.Viper, prefix string, tree map[string]interface{}) {
	for key, value := range tree {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if sub, ok := value.(map[string]interface{}); ok {
			walkDefaults(v, full, sub)
			continue
		}
		v.SetDefault(full, value)
	}
}
