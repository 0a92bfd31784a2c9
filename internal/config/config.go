// Package config loads the server configuration from an optional YAML file
// and NOVODL_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	// LndModeExec runs the real lnd binary.
	LndModeExec = "exec"
	// LndModeFake runs a scripted in-memory lnd, useful for demos and tests.
	LndModeFake = "fake"
)

// Config is the server configuration.
type Config struct {
	ListenAddr   string `mapstructure:"listen_addr"`
	AccessLog    bool   `mapstructure:"access_log"`
	LndMode      string `mapstructure:"lnd_mode"`
	DBPath       string `mapstructure:"db_path"`
	SettingsPath string `mapstructure:"settings_path"`
}

// Options are the load options. The default fields seed the values that the
// file and environment can override.
type Options struct {
	// Path is the config file path. Empty means no file, load from
	// defaults and environment only.
	Path string

	DefaultDBPath       string
	DefaultSettingsPath string
}

// Load reads the configuration. Precedence is environment over file over
// defaults.
func Load(opts Options) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":3683")
	v.SetDefault("access_log", true)
	v.SetDefault("lnd_mode", LndModeExec)
	v.SetDefault("db_path", opts.DefaultDBPath)
	v.SetDefault("settings_path", opts.DefaultSettingsPath)

	v.SetEnvPrefix("novodl")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Path != "" {
		v.SetConfigFile(opts.Path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	switch cfg.LndMode {
	case LndModeExec, LndModeFake:
	default:
		return nil, fmt.Errorf("invalid lnd mode %q (must be: exec, fake)", cfg.LndMode)
	}

	return &cfg, nil
}
