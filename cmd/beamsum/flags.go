package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

// settings are the values shared by every command. Flags write them
// directly; config file values fill in whatever was not set on the command
// line.
type settings struct {
	configPath  string
	backend     string
	poll        string
	timeout     time.Duration
	logLevel    string
	metricsAddr string
	jsonOut     bool
	host        bool
}

func commonFlags(s *settings) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: user config dir)",
			Destination: &s.configPath,
		},
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "restrict adapters to a backend (vulkan, metal, dx12, gl)",
			Destination: &s.backend,
		},
		&cli.StringFlag{
			Name:        "poll",
			Usage:       "readback wait mode (block, spin)",
			Value:       "block",
			Destination: &s.poll,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "deadline for one run",
			Value:       30 * time.Second,
			Destination: &s.timeout,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &s.logLevel,
		},
		&cli.StringFlag{
			Name:        "metrics-addr",
			Usage:       "serve Prometheus metrics on this address while running",
			Destination: &s.metricsAddr,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "print results as JSON",
			Destination: &s.jsonOut,
		},
		&cli.BoolFlag{
			Name:        "host",
			Usage:       "run on the host emulator instead of a device",
			Destination: &s.host,
		},
	}
}
