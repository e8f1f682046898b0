package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/openfluke/beamsum/gpu"
	"github.com/openfluke/beamsum/kernel"
	"github.com/openfluke/beamsum/layout"
	"github.com/openfluke/beamsum/pods"
)

// scenario is the impulse test signal: every channel of activeSample is 1.
type scenario struct {
	samples      int64
	channels     int64
	speedOfSound float64
	activeSample int64
	shader       string
	entryPoint   string
}

func (sc scenario) validate() error {
	if sc.samples <= 0 {
		return fmt.Errorf("samples must be positive, got %d", sc.samples)
	}
	if sc.channels != kernel.NumChannels {
		return fmt.Errorf("the kernel sums %d channels, got %d", kernel.NumChannels, sc.channels)
	}
	if math.IsNaN(sc.speedOfSound) || math.IsInf(sc.speedOfSound, 0) {
		return fmt.Errorf("speed of sound must be finite")
	}
	return nil
}

func scenarioFlags(sc *scenario) []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "samples",
			Usage:       "number of output samples",
			Value:       16,
			Destination: &sc.samples,
		},
		&cli.Int64Flag{
			Name:        "channels",
			Usage:       "channels per sample",
			Value:       kernel.NumChannels,
			Destination: &sc.channels,
		},
		&cli.Float64Flag{
			Name:        "speed-of-sound",
			Aliases:     []string{"c"},
			Usage:       "scale applied to each channel sum",
			Value:       1540,
			Destination: &sc.speedOfSound,
		},
		&cli.Int64Flag{
			Name:        "active-sample",
			Usage:       "sample whose channels are all 1 in the test signal",
			Value:       8,
			Destination: &sc.activeSample,
		},
		&cli.StringFlag{
			Name:        "shader",
			Usage:       "load the kernel from a .spv or .wgsl file instead of the built-in one",
			Destination: &sc.shader,
		},
		&cli.StringFlag{
			Name:        "entry-point",
			Usage:       "entry point of --shader",
			Value:       "main_shader",
			Destination: &sc.entryPoint,
		},
	}
}

func beamformCmd() *cli.Command {
	var (
		s  settings
		sc scenario
	)

	return &cli.Command{
		Name:    "beamform",
		Aliases: []string{"run"},
		Usage:   "Sum 64 channels per sample on the device and scale by the speed of sound",
		Flags:   append(commonFlags(&s), scenarioFlags(&sc)...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log, cfg, done, err := setup(cmd, &s)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer done()

			applyBeamformConfig(cmd, cfg, &sc)
			if err := sc.validate(); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			ctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			input := kernel.ImpulseInput(int(sc.samples), int(sc.channels), int(sc.activeSample))
			rec := layout.Config{SpeedOfSound: float32(sc.speedOfSound)}

			var res result
			if sc.shader != "" {
				res, err = beamformShader(ctx, &s, sc, input, rec)
			} else {
				res, err = beamformPod(ctx, &s, log, sc, input, rec)
			}
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			return printResult(os.Stdout, res, s.jsonOut)
		},
	}
}

func beamformPod(ctx context.Context, s *settings, log *zap.Logger, sc scenario, input []float32, rec layout.Config) (result, error) {
	x, release, err := execContext(ctx, s, log)
	if err != nil {
		return result{}, err
	}
	defer release()

	out, err := pods.Run(x, "beamform", pods.BeamformIn{
		Frame:  pods.Frame{Data: input, Samples: int(sc.samples), Channels: int(sc.channels)},
		Config: rec,
	})
	if err != nil {
		return result{}, err
	}
	bo := out.(pods.BeamformOut)
	return result{Kernel: "beamform", Backend: bo.Backend, Label: "sample", Values: bo.Values}, nil
}

// beamformShader runs a user-supplied kernel. It needs a device.
func beamformShader(ctx context.Context, s *settings, sc scenario, input []float32, rec layout.Config) (result, error) {
	prog, err := loadShader(sc.shader, sc.entryPoint)
	if err != nil {
		return result{}, err
	}
	opts, err := deviceOptions(s)
	if err != nil {
		return result{}, err
	}
	c, err := gpu.Acquire(opts)
	if err != nil {
		return result{}, err
	}
	defer c.Release()

	job, err := gpu.BeamformJob(prog, input, rec, int(sc.samples))
	if err != nil {
		return result{}, err
	}
	vals, err := c.Run(ctx, job)
	if err != nil {
		return result{}, err
	}
	rep := c.Report()
	return result{Kernel: prog.Name, Backend: rep.Name + " (" + rep.Backend + ")", Label: "sample", Values: vals}, nil
}

func loadShader(path, entryPoint string) (*kernel.Program, error) {
	if strings.EqualFold(filepath.Ext(path), ".wgsl") {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return &kernel.Program{
			Name:          strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			EntryPoint:    entryPoint,
			WGSL:          string(src),
			WorkgroupSize: kernel.WorkgroupSize,
			Slots:         append([]kernel.Slot(nil), kernel.BeamformSlots...),
		}, nil
	}
	return kernel.LoadSPIRV(path, entryPoint, kernel.BeamformSlots)
}
