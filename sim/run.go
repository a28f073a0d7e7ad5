package sim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	ahrs "github.com/aerokit/go-ahrs"
	"github.com/aerokit/go-ahrs/quat"
)

// Trace is a StateSink retaining the latest body state pushed by the
// filter.
type Trace struct {
	// Quat is the last pushed LTP-to-body attitude
	Quat quat.Quat
	// Rates are the last pushed body rates
	Rates quat.Rates
	// Pushes counts sink invocations
	Pushes int
}

// Push implements ahrs.StateSink.
func (t *Trace) Push(q quat.Quat, r quat.Rates) {
	t.Quat = q
	t.Rates = r
	t.Pushes++
}

// Run aligns the listener from perfect low-passed samples, then drives it
// with steps gyro samples, injecting an accelerometer and a magnetometer
// sample every updateEvery steps. It returns the true and estimated
// attitude histories as steps x 4 matrices of (t, roll, pitch, yaw) rows.
// It returns error if steps or updateEvery is not positive.
func Run(fl *Flight, l ahrs.SensorListener, trace *Trace, steps, updateEvery int) (truth, estimated *mat.Dense, err error) {
	if steps <= 0 || updateEvery <= 0 {
		return nil, nil, fmt.Errorf("invalid run length: steps %d, updateEvery %d", steps, updateEvery)
	}

	l.OnAlignment(fl.GyroBias, fl.Accel(), fl.Mag())

	truth = mat.NewDense(steps, 4, nil)
	estimated = mat.NewDense(steps, 4, nil)

	// first gyro sample only latches the timestamp when dt is derived
	// from stamps
	l.OnGyro(fl.T(), fl.Gyro())

	for i := 0; i < steps; i++ {
		fl.Step()
		l.OnGyro(fl.T(), fl.Gyro())

		if (i+1)%updateEvery == 0 {
			l.OnAccel(fl.T(), fl.Accel())
			l.OnMag(fl.T(), fl.Mag())
		}

		setEulerRow(truth, i, fl.T(), fl.Attitude())
		setEulerRow(estimated, i, fl.T(), trace.Quat)
	}

	return truth, estimated, nil
}

func setEulerRow(m *mat.Dense, i int, t float64, q quat.Quat) {
	roll, pitch, yaw := q.Euler()
	m.Set(i, 0, t)
	m.Set(i, 1, roll)
	m.Set(i, 2, pitch)
	m.Set(i, 3, yaw)
}
