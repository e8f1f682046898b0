package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

const sampleConfig = `
backend: metal
poll: spin
timeout: 5s
log_level: debug
samples: 64
speed_of_sound: 1500
active_sample: 3
entry_point: cs_main
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "metal", cfg.Backend)
	assert.Equal(t, "spin", cfg.Poll)
	require.NotNil(t, cfg.Samples)
	assert.Equal(t, int64(64), *cfg.Samples)
	require.NotNil(t, cfg.SpeedOfSound)
	assert.Equal(t, 1500.0, *cfg.SpeedOfSound)
	assert.Nil(t, cfg.Channels)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")

	_, err = LoadConfig(writeConfig(t, "samples: [1, 2"))
	assert.Error(t, err)
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	var (
		s  settings
		sc scenario
	)
	cmd := &cli.Command{
		Name:  "beamform",
		Flags: append(commonFlags(&s), scenarioFlags(&sc)...),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := applyCommonConfig(c, cfg, &s); err != nil {
				return err
			}
			applyBeamformConfig(c, cfg, &sc)
			return nil
		},
	}
	require.NoError(t, cmd.Run(context.Background(), []string{"beamform", "--backend", "vulkan", "--samples", "8"}))

	// Set on the command line.
	assert.Equal(t, "vulkan", s.backend)
	assert.Equal(t, int64(8), sc.samples)
	// Filled from the file.
	assert.Equal(t, "spin", s.poll)
	assert.Equal(t, 5*time.Second, s.timeout)
	assert.Equal(t, "debug", s.logLevel)
	assert.Equal(t, 1500.0, sc.speedOfSound)
	assert.Equal(t, int64(3), sc.activeSample)
	assert.Equal(t, "cs_main", sc.entryPoint)
	// Neither: flag default.
	assert.Equal(t, int64(64), sc.channels)
}

func TestBadConfigTimeout(t *testing.T) {
	var s settings
	cmd := &cli.Command{
		Name:  "x",
		Flags: commonFlags(&s),
		Action: func(ctx context.Context, c *cli.Command) error {
			return applyCommonConfig(c, Config{Timeout: "soon"}, &s)
		},
	}
	assert.Error(t, cmd.Run(context.Background(), []string{"x"}))
}
