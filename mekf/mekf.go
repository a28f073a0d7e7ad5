// Package mekf implements a multiplicative extended Kalman filter
// estimating vehicle attitude and rate gyro bias from angular rate,
// specific force and magnetic field samples.
//
// The filter keeps a unit reference quaternion rotating the local tangent
// plane (LTP) frame into the IMU frame and a 6-dimensional error state of
// small-angle orientation error and gyro bias error. Gyro samples propagate
// the reference quaternion and the error covariance; accelerometer and
// magnetometer samples correct the error state through a shared 3D vector
// measurement update and are immediately folded back into the reference by
// a multiplicative reset. All matrix workspaces are allocated once at
// construction; the sample paths allocate nothing.
package mekf

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	ahrs "github.com/aerokit/go-ahrs"
	"github.com/aerokit/go-ahrs/estimate"
	"github.com/aerokit/go-ahrs/matrix"
	"github.com/aerokit/go-ahrs/quat"
)

// gravity is standard gravity, m/s^2.
const gravity = 9.81

// earthG is the expected accelerometer reading in the LTP frame at rest.
var earthG = quat.Vec3{X: 0, Y: 0, Z: -gravity}

// ErrSingularInnovation is returned by a measurement update whose 3x3
// innovation covariance cannot be inverted. The sample is forfeited: state
// and covariance keep their pre-update values and no reset takes place.
var ErrSingularInnovation = errors.New("singular innovation covariance")

// Status is the filter lifecycle state.
type Status int

const (
	// Uninitialized is the state before alignment: propagation and
	// measurement updates are ignored
	Uninitialized Status = iota
	// Running is the state after alignment: alignment samples are ignored
	Running
)

// String implements the Stringer interface.
func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Running:
		return "running"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Filter is the MEKF attitude and gyro bias estimator. It is driven by one
// sensor event at a time and is not safe for concurrent use: the event
// dispatcher must serialize calls.
type Filter struct {
	cfg   Config
	mount ahrs.BodyToIMU
	sink  ahrs.StateSink

	status Status
	// ltpToIMU is the reference quaternion, LTP to IMU frame, unit norm
	ltpToIMU quat.Quat
	// gibbs is the error state: scalar part pinned to 2 at reset, vector
	// part twice the accumulated small-angle correction
	gibbs quat.Quat
	// bias is the estimated gyro bias
	bias quat.Rates
	// rate is the unbiased, optionally low-passed angular rate
	rate quat.Rates
	// lpAccel tracks the low-passed deviation of specific force
	// magnitude from gravity
	lpAccel float64

	magH     quat.Vec3
	magNoise quat.Vec3

	// body state recomputed after every event
	body      quat.Quat
	bodyRates quat.Rates

	// p is the 6x6 error covariance over [orientation error, bias error]
	p *mat.Dense

	// workspaces preallocated at construction
	fm     *mat.Dense // 6x6 state transition
	fmT    mat.Matrix
	tmp66  *mat.Dense
	tmp66b *mat.Dense
	eye6   *mat.Dense
	h      *mat.Dense // 3x6 observation sensitivity
	hSkew  *mat.Dense // leading 3x3 block of h
	hT     mat.Matrix
	tmp36  *mat.Dense
	s      *mat.Dense // 3x3 innovation covariance
	sInv   *mat.Dense
	pht    *mat.Dense // 6x3
	k      *mat.Dense // 6x3 Kalman gain
	gqg    [6]float64

	lastStamp float64
	hasStamp  bool
	faults    uint64
}

var (
	_ ahrs.AttitudeFilter = &Filter{}
	_ ahrs.SensorListener = &Filter{}
)

// New creates a new attitude filter and returns it. The mount provides the
// static body-to-IMU orientation; sink, if not nil, receives the body state
// after every event. The filter starts Uninitialized with the reference
// quaternion chosen so that the body attitude is the identity rotation.
// It returns error if cfg fails validation or mount is nil.
func New(cfg Config, mount ahrs.BodyToIMU, sink ahrs.StateSink) (*Filter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if mount == nil {
		return nil, fmt.Errorf("nil body-to-IMU mount")
	}

	f := &Filter{
		cfg:      cfg,
		mount:    mount,
		sink:     sink,
		status:   Uninitialized,
		ltpToIMU: mount.Quat(),
		gibbs:    quat.Identity(),
		magH:     cfg.MagField,
		magNoise: cfg.MagNoise,

		p:      mat.NewDense(6, 6, nil),
		fm:     matrix.Eye(6),
		tmp66:  mat.NewDense(6, 6, nil),
		tmp66b: mat.NewDense(6, 6, nil),
		eye6:   matrix.Eye(6),
		h:      mat.NewDense(3, 6, nil),
		tmp36:  mat.NewDense(3, 6, nil),
		s:      mat.NewDense(3, 3, nil),
		sInv:   mat.NewDense(3, 3, nil),
		pht:    mat.NewDense(6, 3, nil),
		k:      mat.NewDense(6, 3, nil),
	}
	f.hSkew = f.h.Slice(0, 3, 0, 3).(*mat.Dense)
	f.hT = f.h.T()
	f.fmT = f.fm.T()

	for i := 0; i < 3; i++ {
		f.p.Set(i, i, cfg.InitOrientVar)
		f.p.Set(i+3, i+3, cfg.InitBiasVar)
	}

	f.body = f.ltpToIMU.CompInv(f.mount.Quat())
	f.bodyRates = f.mount.RMat().TranspRateMult(f.rate)

	return f, nil
}

// Align initialises the reference quaternion from the low-passed
// accelerometer and magnetometer vectors, takes the low-passed gyro sample
// as the initial bias estimate and starts the filter. It is ignored once
// the filter is Running. The error covariance keeps its construction value.
func (f *Filter) Align(lpGyro quat.Rates, lpAccel, lpMag quat.Vec3) {
	if f.status == Running {
		return
	}

	f.ltpToIMU = quat.FromAccelMag(lpAccel, lpMag, f.magH)
	f.setBodyState()

	f.bias = lpGyro
	f.status = Running
}

// Propagate advances the reference quaternion and the error covariance by
// one gyro sample over dt seconds. dt must be positive; it is the caller's
// contract, not checked here. Ignored unless the filter is Running.
func (f *Filter) Propagate(gyro quat.Rates, dt float64) {
	if f.status != Running {
		return
	}

	f.propagateRef(gyro, dt)
	f.propagateState(dt)
	f.setBodyState()
}

// UpdateAccel incorporates one specific force sample as an observation of
// gravity. The accelerometer noise is inflated in proportion to the
// low-passed deviation of the sample magnitude from standard gravity, which
// down-weights the update during sustained maneuvering. Ignored unless the
// filter is Running. It returns ErrSingularInnovation if the update had to
// be skipped.
func (f *Filter) UpdateAccel(accel quat.Vec3) error {
	if f.status != Running {
		return nil
	}

	alpha := f.cfg.AccelLowpassAlpha
	f.lpAccel = alpha*f.lpAccel + (1-alpha)*(accel.Norm()-gravity)

	dn := f.cfg.AccelNoiseGain * math.Abs(f.lpAccel)
	n := quat.Vec3{
		X: f.cfg.AccelNoise + dn,
		Y: f.cfg.AccelNoise + dn,
		Z: f.cfg.AccelNoise + dn,
	}

	if err := f.updateState(earthG, accel, n); err != nil {
		return err
	}
	f.resetState()

	return nil
}

// UpdateMag incorporates one magnetic field sample as an observation of the
// configured reference field. Ignored unless the filter is Running. It
// returns ErrSingularInnovation if the update had to be skipped.
func (f *Filter) UpdateMag(m quat.Vec3) error {
	if f.status != Running {
		return nil
	}

	if err := f.updateState(f.magH, m, f.magNoise); err != nil {
		return err
	}
	f.resetState()

	return nil
}

func (f *Filter) propagateRef(gyro quat.Rates, dt float64) {
	unbiased := gyro.Sub(f.bias)
	f.rate = f.rate.Lerp(unbiased, f.cfg.RateLowpassAlpha)
	f.ltpToIMU = f.ltpToIMU.Integrated(f.rate, dt)
}

// propagateState predicts the error covariance. The error mean needs no
// prediction: it is zero after every reset.
func (f *Filter) propagateState(dt float64) {
	dp := f.rate.P * dt
	dq := f.rate.Q * dt
	dr := f.rate.R * dt

	// F orientation block is I - skew(rate*dt), orientation/bias coupling
	// is -dt*I, bias block stays I from construction
	f.fm.Set(0, 1, dr)
	f.fm.Set(0, 2, -dq)
	f.fm.Set(1, 0, -dr)
	f.fm.Set(1, 2, dp)
	f.fm.Set(2, 0, dq)
	f.fm.Set(2, 1, -dp)
	f.fm.Set(0, 3, -dt)
	f.fm.Set(1, 4, -dt)
	f.fm.Set(2, 5, -dt)

	// P = F P F' + G Q G'
	f.tmp66.Mul(f.fm, f.p)
	f.p.Mul(f.tmp66, f.fmT)

	dt2 := dt * dt
	for i := 0; i < 3; i++ {
		f.gqg[i] = dt2 * f.cfg.OrientNoiseDensity
		f.gqg[i+3] = dt2 * f.cfg.BiasNoiseDensity
	}
	matrix.AddDiag(f.p, f.gqg[:])
}

// updateState incorporates one 3D vector measurement: iExpected is the
// reference vector in the LTP frame, bMeasured its observation in the IMU
// frame, noise the per axis measurement variances. On success the
// correction is accumulated in the error state and the covariance is
// contracted; on a singular innovation covariance nothing is modified.
func (f *Filter) updateState(iExpected, bMeasured, noise quat.Vec3) error {
	bExp := f.ltpToIMU.VMult(iExpected)

	// H = [ skew(b_expected) | 0 ]: a vector observation is sensitive to
	// orientation error only
	matrix.SetSkew(f.hSkew, bExp.X, bExp.Y, bExp.Z)

	// S = H P H' + diag(noise)
	f.tmp36.Mul(f.h, f.p)
	f.s.Mul(f.tmp36, f.hT)
	f.s.Set(0, 0, f.s.At(0, 0)+noise.X)
	f.s.Set(1, 1, f.s.At(1, 1)+noise.Y)
	f.s.Set(2, 2, f.s.At(2, 2)+noise.Z)

	if err := f.sInv.Inverse(f.s); err != nil {
		f.faults++
		return fmt.Errorf("%w: %v", ErrSingularInnovation, err)
	}

	// K = P H' S^-1
	f.pht.Mul(f.p, f.hT)
	f.k.Mul(f.pht, f.sInv)

	// P = (I - K H) P
	f.tmp66.Mul(f.k, f.h)
	f.tmp66.Sub(f.eye6, f.tmp66)
	f.tmp66b.Mul(f.tmp66, f.p)
	f.p.Copy(f.tmp66b)

	// X = X + K e
	e := bMeasured.Sub(bExp)
	f.gibbs.X += f.k.At(0, 0)*e.X + f.k.At(0, 1)*e.Y + f.k.At(0, 2)*e.Z
	f.gibbs.Y += f.k.At(1, 0)*e.X + f.k.At(1, 1)*e.Y + f.k.At(1, 2)*e.Z
	f.gibbs.Z += f.k.At(2, 0)*e.X + f.k.At(2, 1)*e.Y + f.k.At(2, 2)*e.Z
	f.bias.P += f.k.At(3, 0)*e.X + f.k.At(3, 1)*e.Y + f.k.At(3, 2)*e.Z
	f.bias.Q += f.k.At(4, 0)*e.X + f.k.At(4, 1)*e.Y + f.k.At(4, 2)*e.Z
	f.bias.R += f.k.At(5, 0)*e.X + f.k.At(5, 1)*e.Y + f.k.At(5, 2)*e.Z

	return nil
}

// resetState folds the accumulated error state into the reference
// quaternion and zeroes it for the next interval.
func (f *Filter) resetState() {
	f.gibbs.W = 2
	f.ltpToIMU = f.ltpToIMU.Comp(f.gibbs).Normalized()
	f.gibbs = quat.Identity()
	f.setBodyState()
}

// setBodyState recomputes the externally visible body attitude and rates
// and pushes them to the sink.
func (f *Filter) setBodyState() {
	f.body = f.ltpToIMU.CompInv(f.mount.Quat())
	f.bodyRates = f.mount.RMat().TranspRateMult(f.rate)

	if f.sink != nil {
		f.sink.Push(f.body, f.bodyRates)
	}
}

// OnGyro consumes one timestamped gyro sample. With a configured
// PropagateFrequency the sample propagates the filter over a fixed period;
// otherwise dt is the delta of successive timestamps and the first sample
// only latches its stamp.
func (f *Filter) OnGyro(stamp float64, gyro quat.Rates) {
	if f.cfg.PropagateFrequency > 0 {
		f.Propagate(gyro, 1/f.cfg.PropagateFrequency)
		return
	}

	if f.hasStamp {
		if dt := stamp - f.lastStamp; dt > 0 {
			f.Propagate(gyro, dt)
		}
	}
	f.lastStamp = stamp
	f.hasStamp = true
}

// OnAccel consumes one accelerometer sample. A skipped update is recorded
// in the fault counter.
func (f *Filter) OnAccel(_ float64, accel quat.Vec3) {
	_ = f.UpdateAccel(accel)
}

// OnMag consumes one magnetometer sample. A skipped update is recorded in
// the fault counter.
func (f *Filter) OnMag(_ float64, m quat.Vec3) {
	_ = f.UpdateMag(m)
}

// OnAlignment consumes one low-passed alignment triple.
func (f *Filter) OnAlignment(lpGyro quat.Rates, lpAccel, lpMag quat.Vec3) {
	f.Align(lpGyro, lpAccel, lpMag)
}

// Status returns the filter lifecycle state.
func (f *Filter) Status() Status {
	return f.status
}

// Bias returns the current gyro bias estimate.
func (f *Filter) Bias() quat.Rates {
	return f.bias
}

// MagField returns the configured reference magnetic field, for low rate
// diagnostic reporting.
func (f *Filter) MagField() quat.Vec3 {
	return f.magH
}

// Faults returns the number of measurement updates skipped on a singular
// innovation covariance.
func (f *Filter) Faults() uint64 {
	return f.faults
}

// Cov returns a copy of the error state covariance.
func (f *Filter) Cov() mat.Symmetric {
	cov := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		for j := i; j < 6; j++ {
			cov.SetSym(i, j, f.p.At(i, j))
		}
	}

	return cov
}

// Estimate returns a snapshot of the current body attitude, body rates and
// error covariance. It allocates and is meant for diagnostics, not for the
// sample path.
func (f *Filter) Estimate() (*estimate.Attitude, error) {
	return estimate.NewAttitude(f.body, f.bodyRates, f.Cov())
}
