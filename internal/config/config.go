// Package config layers mdlc's settings: embedded defaults, merged with
// an optional config file, then overridden by environment variables and
// finally by CLI flags (the precedence cobra flags are bound at, via
// BindPFlags).
package config

import (
	_ "embed"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML string

// Config is mdlc's resolved configuration, after defaults/file/env/flags
// have all been merged.
type Config struct {
	In          string `mapstructure:"in"`
	Out         string `mapstructure:"out"`
	Calibration string `mapstructure:"calibration"`
	Graph       string `mapstructure:"graph"`
	Debug       bool   `mapstructure:"debug"`
	DebugFile   string `mapstructure:"debugfile"`
}

// Load builds a Config from embedded defaults, an optional ./mdlc.yaml
// (or $HOME/mdlc.yaml), MDLC_*-prefixed environment variables, and
// finally flags already bound on the cobra command invoking Load.
func Load(flags *pflag.FlagSet) (*Config, error) {
	var defaults Config
	if err := yaml.Unmarshal([]byte(defaultsYAML), &defaults); err != nil {
		panic("invalid embedded defaults.yaml: " + err.Error())
	}

	v := viper.New()
	v.SetDefault("in", defaults.In)
	v.SetDefault("out", defaults.Out)
	v.SetDefault("calibration", defaults.Calibration)
	v.SetDefault("graph", defaults.Graph)
	v.SetDefault("debug", defaults.Debug)
	v.SetDefault("debugfile", defaults.DebugFile)

	v.SetConfigName("mdlc")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	v.SetEnvPrefix("MDLC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
