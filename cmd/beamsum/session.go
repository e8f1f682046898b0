package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/openfluke/beamsum/gpu"
	"github.com/openfluke/beamsum/pods"
)

// setup loads the config file, applies it under the flags and starts the
// ambient services. done must be called before the command returns.
func setup(cmd *cli.Command, s *settings) (log *zap.Logger, cfg Config, done func(), err error) {
	cfg, err = LoadConfig(s.configPath)
	if err != nil {
		return nil, Config{}, nil, err
	}
	if err := applyCommonConfig(cmd, cfg, s); err != nil {
		return nil, Config{}, nil, err
	}

	log, err = newLogger(s.logLevel)
	if err != nil {
		return nil, Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	gpu.SetLogger(log)
	gpu.Debug = s.logLevel == "debug"

	stopMetrics := func() {}
	if s.metricsAddr != "" {
		stopMetrics = serveMetrics(s.metricsAddr, log)
	}
	return log, cfg, func() {
		stopMetrics()
		_ = log.Sync()
	}, nil
}

func pollMode(name string) (gpu.PollMode, error) {
	switch name {
	case "", "block":
		return gpu.PollBlock, nil
	case "spin":
		return gpu.PollSpin, nil
	default:
		return 0, fmt.Errorf("unknown poll mode %q (block, spin)", name)
	}
}

func deviceOptions(s *settings) (gpu.Options, error) {
	mode, err := pollMode(s.poll)
	if err != nil {
		return gpu.Options{}, err
	}
	return gpu.Options{Backend: s.backend, Poll: mode}, nil
}

// execContext picks where pods run. Without a compatible device it falls
// back to the host and says so.
func execContext(ctx context.Context, s *settings, log *zap.Logger) (*pods.ExecContext, func(), error) {
	if s.host {
		return pods.NewContext(ctx, nil), func() {}, nil
	}
	opts, err := deviceOptions(s)
	if err != nil {
		return nil, nil, err
	}

	x, err := pods.Device(ctx, opts)
	if err != nil {
		if !errors.Is(err, gpu.ErrNoCompatibleDevice) {
			return nil, nil, err
		}
		log.Warn("no compatible device, running on the host emulator", zap.Error(err))
		return x, func() {}, nil
	}
	release := func() {}
	if c, ok := x.GPU.(*gpu.Context); ok {
		release = c.Release
	}
	return x, release, nil
}
