// Package config loads the settings of a hierlock run
// from defaults, an optional YAML file and HIERLOCK_*
// environment variables, in increasing precedence.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/hierlock/hierlock/log"
)

// EnvPrefix is prepended to every environment variable,
// e.g. HIERLOCK_DRIVER_WORKERS.
const EnvPrefix = "HIERLOCK"

// Config represents the complete hierlock configuration
type Config struct {
	Tree   TreeConfig   `mapstructure:"tree"`
	Driver DriverConfig `mapstructure:"driver"`
	Log    LogConfig    `mapstructure:"log"`
}

// TreeConfig bounds the trees accepted from input
type TreeConfig struct {
	// MaxNodes rejects streams announcing more nodes (0 = unlimited)
	MaxNodes int `mapstructure:"max_nodes"`
}

// DriverConfig controls how operations are dispatched
type DriverConfig struct {
	// Workers is the number of operations in flight at once.
	// 1 runs the stream strictly in order.
	Workers int `mapstructure:"workers"`

	// Verify checks every counter once the stream is done.
	Verify bool `mapstructure:"verify"`
}

// LogConfig controls diagnostic output on stderr
type LogConfig struct {
	// Level is a logrus level name: trace, debug, info, warn, error
	Level string `mapstructure:"level"`
	// Topics is a comma separated list of call, verdict, trace, error, all or none
	Topics string `mapstructure:"topics"`
	// Format is either "text" or "json"
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Tree: TreeConfig{
			MaxNodes: 0,
		},
		Driver: DriverConfig{
			Workers: 1,
			Verify:  false,
		},
		Log: LogConfig{
			Level:  "warn",
			Topics: "error",
			Format: "text",
		},
	}
}

// SetDefaults registers the defaults with v. Keys have to
// be known to viper for environment overrides to apply.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("tree.max_nodes", defaults.Tree.MaxNodes)

	v.SetDefault("driver.workers", defaults.Driver.Workers)
	v.SetDefault("driver.verify", defaults.Driver.Verify)

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.topics", defaults.Log.Topics)
	v.SetDefault("log.format", defaults.Log.Format)
}

// New creates a viper instance with defaults and
// environment binding. If configFile is not empty it is
// read as well.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %q", configFile)
		}
	}
	return v, nil
}

// Load reads the configuration from v into a Config struct and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return &cfg, nil
}

// ValidationErrors collects every invalid setting
type ValidationErrors []error

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Validate checks every setting and returns the problems found
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	if c.Tree.MaxNodes < 0 {
		errs = append(errs, errors.Errorf("tree.max_nodes must not be negative, got %d", c.Tree.MaxNodes))
	}
	if c.Driver.Workers < 1 {
		errs = append(errs, errors.Errorf("driver.workers must be at least 1, got %d", c.Driver.Workers))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, errors.Wrap(err, "log.level"))
	}
	if _, err := log.ParseTopics(c.Log.Topics); err != nil {
		errs = append(errs, errors.Wrap(err, "log.topics"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, errors.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errs
}

// ParsedTopics returns the parsed log topics. The config must
// have been validated.
func (c LogConfig) ParsedTopics() log.Topics {
	topics, _ := log.ParseTopics(c.Topics)
	return topics
}
