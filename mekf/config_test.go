package mekf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerokit/go-ahrs/quat"
)

func TestDefaultConfig(t *testing.T) {
	assert := assert.New(t)

	c := DefaultConfig()
	assert.NoError(c.Validate())
	assert.Equal(1.0, c.InitOrientVar)
	assert.Equal(1e-4, c.InitBiasVar)
	assert.Equal(quat.Vec3{X: 0.2, Y: 0.2, Z: 0.2}, c.MagNoise)
}

func TestConfigValidate(t *testing.T) {
	assert := assert.New(t)

	bad := func(mutate func(*Config)) Config {
		c := DefaultConfig()
		mutate(&c)
		return c
	}

	cases := []Config{
		bad(func(c *Config) { c.InitOrientVar = 0 }),
		bad(func(c *Config) { c.InitBiasVar = -1 }),
		bad(func(c *Config) { c.OrientNoiseDensity = 0 }),
		bad(func(c *Config) { c.BiasNoiseDensity = 0 }),
		bad(func(c *Config) { c.MagNoise = quat.Vec3{X: 0.2, Y: 0, Z: 0.2} }),
		bad(func(c *Config) { c.MagField = quat.Vec3{Z: 1} }),
		bad(func(c *Config) { c.AccelNoise = 0 }),
		bad(func(c *Config) { c.AccelNoiseGain = -1 }),
		bad(func(c *Config) { c.AccelLowpassAlpha = 1 }),
		bad(func(c *Config) { c.RateLowpassAlpha = 0 }),
		bad(func(c *Config) { c.RateLowpassAlpha = 1.5 }),
		bad(func(c *Config) { c.PropagateFrequency = -10 }),
	}

	for _, c := range cases {
		assert.Error(c.Validate())
	}
}

func TestLoadConfig(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "mekf.yaml")

	data := []byte(`
mag_field:
  x: 0.45
  y: -0.03
  z: 0.89
mag_noise:
  x: 0.1
  y: 0.1
  z: 0.3
accel_noise_gain: 100
propagate_frequency: 512
`)
	require.NoError(os.WriteFile(path, data, 0o644))

	c, err := LoadConfig(path)
	assert.NoError(err)
	assert.Equal(quat.Vec3{X: 0.45, Y: -0.03, Z: 0.89}, c.MagField)
	assert.Equal(quat.Vec3{X: 0.1, Y: 0.1, Z: 0.3}, c.MagNoise)
	assert.Equal(100.0, c.AccelNoiseGain)
	assert.Equal(512.0, c.PropagateFrequency)

	// unspecified keys keep their defaults
	assert.Equal(1e-4, c.InitBiasVar)
	assert.Equal(0.92, c.AccelLowpassAlpha)

	// missing file
	_, err = LoadConfig(filepath.Join(dir, "nope.yaml"))
	assert.Error(err)

	// malformed yaml
	require.NoError(os.WriteFile(path, []byte("mag_field: ["), 0o644))
	_, err = LoadConfig(path)
	assert.Error(err)

	// valid yaml failing validation
	require.NoError(os.WriteFile(path, []byte("init_bias_variance: -1"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(err)
}
