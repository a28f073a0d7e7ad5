// Package ahrs defines the contracts of an attitude and heading reference
// system: the sensor-event surface an external dispatcher drives, the
// output sink the estimated body state is pushed to, and the static
// body-to-IMU mounting offset the estimator reads.
package ahrs

import (
	"gonum.org/v1/gonum/mat"

	"github.com/aerokit/go-ahrs/quat"
)

// SensorListener consumes discrete sensor events. It is implemented by the
// estimator and invoked by an external event dispatcher. The dispatcher must
// serialize calls: the listener is not reentrant and performs no locking.
type SensorListener interface {
	// OnGyro consumes one angular rate sample stamped in seconds
	OnGyro(stamp float64, gyro quat.Rates)
	// OnAccel consumes one specific force sample stamped in seconds
	OnAccel(stamp float64, accel quat.Vec3)
	// OnMag consumes one magnetic field sample stamped in seconds
	OnMag(stamp float64, mag quat.Vec3)
	// OnAlignment consumes one low-passed (gyro, accel, mag) triple,
	// produced by an external smoothing stage
	OnAlignment(lpGyro quat.Rates, lpAccel, lpMag quat.Vec3)
}

// StateSink consumes the body attitude and body angular rates computed by
// the estimator. Push is called after every propagation, measurement update
// and alignment and must not block.
type StateSink interface {
	// Push publishes LTP-to-body attitude and body-frame rates
	Push(ltpToBody quat.Quat, bodyRates quat.Rates)
}

// BodyToIMU provides the static orientation of the IMU relative to the
// vehicle body, as both quaternion and rotation matrix. Implementations
// must be immutable: the estimator reads them on every sample.
type BodyToIMU interface {
	// Quat returns body-to-IMU orientation quaternion
	Quat() quat.Quat
	// RMat returns body-to-IMU rotation matrix
	RMat() quat.RMat
}

// AttitudeFilter estimates vehicle attitude and rate gyroscope bias.
type AttitudeFilter interface {
	// Align initialises attitude and gyro bias from low-passed samples
	Align(lpGyro quat.Rates, lpAccel, lpMag quat.Vec3)
	// Propagate advances the estimate by one gyro sample over dt seconds
	Propagate(gyro quat.Rates, dt float64)
	// UpdateAccel incorporates one gravity observation
	UpdateAccel(accel quat.Vec3) error
	// UpdateMag incorporates one magnetic field observation
	UpdateMag(mag quat.Vec3) error
}

// Noise is a source of random sensor perturbations, used when simulating
// measurement streams.
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset()
}

// StaticMount is an immutable BodyToIMU implementation.
type StaticMount struct {
	q quat.Quat
	r quat.RMat
}

// NewStaticMount returns a BodyToIMU provider for the given body-to-IMU
// orientation. The rotation matrix form is precomputed once.
func NewStaticMount(q quat.Quat) *StaticMount {
	n := q.Normalized()

	return &StaticMount{
		q: n,
		r: n.RMat(),
	}
}

// Quat returns body-to-IMU orientation quaternion
func (m *StaticMount) Quat() quat.Quat {
	return m.q
}

// RMat returns body-to-IMU rotation matrix
func (m *StaticMount) RMat() quat.RMat {
	return m.r
}
