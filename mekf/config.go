package mekf

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aerokit/go-ahrs/quat"
)

// Config holds the filter tuning, fixed at construction.
type Config struct {
	// InitOrientVar is the initial variance of each orientation error
	// component, rad^2
	InitOrientVar float64 `yaml:"init_orientation_variance"`
	// InitBiasVar is the initial variance of each gyro bias error
	// component, (rad/s)^2
	InitBiasVar float64 `yaml:"init_bias_variance"`
	// MagField is the reference magnetic field in the LTP frame
	MagField quat.Vec3 `yaml:"mag_field"`
	// MagNoise holds per axis magnetometer measurement variances
	MagNoise quat.Vec3 `yaml:"mag_noise"`
	// OrientNoiseDensity scales the dt^2 orientation process noise
	OrientNoiseDensity float64 `yaml:"orientation_noise_density"`
	// BiasNoiseDensity scales the dt^2 bias random walk process noise
	BiasNoiseDensity float64 `yaml:"bias_noise_density"`
	// AccelNoise is the accelerometer variance floor on each axis
	AccelNoise float64 `yaml:"accel_noise"`
	// AccelNoiseGain inflates accelerometer noise in proportion to the
	// low-passed deviation of specific force magnitude from gravity
	AccelNoiseGain float64 `yaml:"accel_noise_gain"`
	// AccelLowpassAlpha is the smoothing constant of that deviation
	// low-pass, in [0, 1): larger holds history longer
	AccelLowpassAlpha float64 `yaml:"accel_lowpass_alpha"`
	// RateLowpassAlpha is the weight of a new gyro sample in the filtered
	// rate, in (0, 1]: 1 disables rate smoothing
	RateLowpassAlpha float64 `yaml:"rate_lowpass_alpha"`
	// PropagateFrequency is the fixed propagation rate in Hz used when
	// positive; zero derives dt from gyro sample timestamps
	PropagateFrequency float64 `yaml:"propagate_frequency"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		InitOrientVar:      1.0,
		InitBiasVar:        1e-4,
		MagField:           quat.Vec3{X: 0.5138, Y: 0.0001, Z: 0.8579},
		MagNoise:           quat.Vec3{X: 0.2, Y: 0.2, Z: 0.2},
		OrientNoiseDensity: 10e-3,
		BiasNoiseDensity:   9e-6,
		AccelNoise:         1.0,
		AccelNoiseGain:     250,
		AccelLowpassAlpha:  0.92,
		RateLowpassAlpha:   1.0,
	}
}

// LoadConfig reads a yaml tuning file, overlaying it on the defaults.
// It returns error if the file cannot be read, parsed or validated.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %v", path, err)
	}

	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %v", path, err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

// Validate checks the tuning for consistency.
func (c Config) Validate() error {
	if c.InitOrientVar <= 0 || c.InitBiasVar <= 0 {
		return fmt.Errorf("invalid initial variances: %g, %g", c.InitOrientVar, c.InitBiasVar)
	}

	if c.OrientNoiseDensity <= 0 || c.BiasNoiseDensity <= 0 {
		return fmt.Errorf("invalid process noise densities: %g, %g", c.OrientNoiseDensity, c.BiasNoiseDensity)
	}

	if c.MagNoise.X <= 0 || c.MagNoise.Y <= 0 || c.MagNoise.Z <= 0 {
		return fmt.Errorf("invalid magnetometer noise: %v", c.MagNoise)
	}

	// a field without a horizontal component carries no heading
	// information and breaks alignment
	if h := (quat.Vec3{X: c.MagField.X, Y: c.MagField.Y}); h.Norm() < 1e-6 {
		return fmt.Errorf("reference magnetic field %v has no horizontal component", c.MagField)
	}

	if c.AccelNoise <= 0 || c.AccelNoiseGain < 0 {
		return fmt.Errorf("invalid accelerometer noise tuning: %g, %g", c.AccelNoise, c.AccelNoiseGain)
	}

	if c.AccelLowpassAlpha < 0 || c.AccelLowpassAlpha >= 1 {
		return fmt.Errorf("accel lowpass alpha out of range: %g", c.AccelLowpassAlpha)
	}

	if c.RateLowpassAlpha <= 0 || c.RateLowpassAlpha > 1 {
		return fmt.Errorf("rate lowpass alpha out of range: %g", c.RateLowpassAlpha)
	}

	if c.PropagateFrequency < 0 {
		return fmt.Errorf("invalid propagate frequency: %g", c.PropagateFrequency)
	}

	return nil
}
