// Package sim provides a synthetic flight data source for exercising the
// attitude filter offline: a true attitude driven by body rates, and the
// gyro, accelerometer and magnetometer streams an IMU flying that profile
// would produce.
package sim

import (
	"fmt"

	ahrs "github.com/aerokit/go-ahrs"
	"github.com/aerokit/go-ahrs/quat"
)

// Flight generates sensor samples along a rotation profile. The true
// attitude is integrated exactly from the commanded body rates; sensor
// outputs are the ideal observations corrupted by the configured noise
// sources and, for the gyro, a constant bias.
type Flight struct {
	// Rates are the commanded true body rates, mutable between steps
	Rates quat.Rates
	// GyroBias is the constant bias added to gyro output
	GyroBias quat.Rates
	// MagField is the true magnetic field in the LTP frame
	MagField quat.Vec3
	// Dt is the simulation step, seconds
	Dt float64

	attitude quat.Quat
	t        float64

	gyroNoise  ahrs.Noise
	accelNoise ahrs.Noise
	magNoise   ahrs.Noise
}

// NewFlight creates a level, stationary flight with the given step and
// magnetic field. Nil noise sources mean perfect sensors.
// It returns error if dt is not positive or a noise source is not
// 3-dimensional.
func NewFlight(dt float64, magField quat.Vec3, gyroNoise, accelNoise, magNoise ahrs.Noise) (*Flight, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("invalid simulation step: %g", dt)
	}

	for _, n := range []ahrs.Noise{gyroNoise, accelNoise, magNoise} {
		if n != nil && n.Cov().SymmetricDim() != 3 {
			return nil, fmt.Errorf("invalid noise dimension: %d", n.Cov().SymmetricDim())
		}
	}

	return &Flight{
		MagField:   magField,
		Dt:         dt,
		attitude:   quat.Identity(),
		gyroNoise:  gyroNoise,
		accelNoise: accelNoise,
		magNoise:   magNoise,
	}, nil
}

// Step advances the true attitude by one simulation step.
func (fl *Flight) Step() {
	fl.attitude = fl.attitude.Integrated(fl.Rates, fl.Dt)
	fl.t += fl.Dt
}

// T returns the current simulation time, seconds.
func (fl *Flight) T() float64 {
	return fl.t
}

// Attitude returns the true LTP-to-IMU attitude.
func (fl *Flight) Attitude() quat.Quat {
	return fl.attitude
}

// Gyro returns a gyro sample: true rates plus bias plus noise.
func (fl *Flight) Gyro() quat.Rates {
	g := fl.Rates.Add(fl.GyroBias)
	if fl.gyroNoise != nil {
		n := fl.gyroNoise.Sample()
		g = g.Add(quat.Rates{P: n.AtVec(0), Q: n.AtVec(1), R: n.AtVec(2)})
	}

	return g
}

// Accel returns an accelerometer sample: gravity observed in the IMU
// frame plus noise. The profile is coordinated, so no specific force
// beyond gravity appears.
func (fl *Flight) Accel() quat.Vec3 {
	a := fl.attitude.VMult(quat.Vec3{X: 0, Y: 0, Z: -9.81})
	return fl.perturb(a, fl.accelNoise)
}

// Mag returns a magnetometer sample: the LTP field observed in the IMU
// frame plus noise.
func (fl *Flight) Mag() quat.Vec3 {
	m := fl.attitude.VMult(fl.MagField)
	return fl.perturb(m, fl.magNoise)
}

func (fl *Flight) perturb(v quat.Vec3, n ahrs.Noise) quat.Vec3 {
	if n == nil {
		return v
	}
	s := n.Sample()

	return v.Add(quat.Vec3{X: s.AtVec(0), Y: s.AtVec(1), Z: s.AtVec(2)})
}
