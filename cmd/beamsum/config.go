package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the beamsum configuration file
// (~/.config/beamsum/config.yaml). Pointer fields distinguish "not set" from
// zero values.
type Config struct {
	Backend     string `yaml:"backend"`
	Poll        string `yaml:"poll"`
	Timeout     string `yaml:"timeout"`
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`

	// Beamforming scenario
	Samples      *int64   `yaml:"samples"`
	Channels     *int64   `yaml:"channels"`
	SpeedOfSound *float64 `yaml:"speed_of_sound"`
	ActiveSample *int64   `yaml:"active_sample"`
	Shader       string   `yaml:"shader"`
	EntryPoint   string   `yaml:"entry_point"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "beamsum", "config.yaml")
}

// LoadConfig reads path, or the default location when path is empty. A
// missing default file yields a zero Config; a missing explicit file is an
// error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyCommonConfig applies config file defaults to the shared settings
// when the corresponding flag was not explicitly set.
func applyCommonConfig(c *cli.Command, cfg Config, s *settings) error {
	if cfg.Backend != "" && !c.IsSet("backend") {
		s.backend = cfg.Backend
	}
	if cfg.Poll != "" && !c.IsSet("poll") {
		s.poll = cfg.Poll
	}
	if cfg.Timeout != "" && !c.IsSet("timeout") {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		s.timeout = d
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		s.logLevel = cfg.LogLevel
	}
	if cfg.MetricsAddr != "" && !c.IsSet("metrics-addr") {
		s.metricsAddr = cfg.MetricsAddr
	}
	return nil
}

// applyBeamformConfig applies config file defaults to the beamform scenario.
func applyBeamformConfig(c *cli.Command, cfg Config, sc *scenario) {
	if cfg.Samples != nil && !c.IsSet("samples") {
		sc.samples = *cfg.Samples
	}
	if cfg.Channels != nil && !c.IsSet("channels") {
		sc.channels = *cfg.Channels
	}
	if cfg.SpeedOfSound != nil && !c.IsSet("speed-of-sound") {
		sc.speedOfSound = *cfg.SpeedOfSound
	}
	if cfg.ActiveSample != nil && !c.IsSet("active-sample") {
		sc.activeSample = *cfg.ActiveSample
	}
	if cfg.Shader != "" && !c.IsSet("shader") {
		sc.shader = cfg.Shader
	}
	if cfg.EntryPoint != "" && !c.IsSet("entry-point") {
		sc.entryPoint = cfg.EntryPoint
	}
}
