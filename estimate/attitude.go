// Package estimate provides immutable snapshots of the attitude filter
// output.
package estimate

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/aerokit/go-ahrs/quat"
)

// Attitude is an attitude estimate: body orientation, body angular rates
// and the 6x6 error state covariance over orientation and gyro bias error.
type Attitude struct {
	// q is LTP to body attitude
	q quat.Quat
	// rates are body frame angular rates
	rates quat.Rates
	// cov is error state covariance
	cov *mat.SymDense
}

// NewAttitude returns an attitude estimate for the given body orientation,
// body rates and error covariance. A nil cov yields a zero covariance.
// It returns error if cov is not 6x6.
func NewAttitude(q quat.Quat, rates quat.Rates, cov mat.Symmetric) (*Attitude, error) {
	c := mat.NewSymDense(6, nil)
	if cov != nil {
		if cov.SymmetricDim() != 6 {
			return nil, fmt.Errorf("invalid covariance dimension: %d", cov.SymmetricDim())
		}
		c.CopySym(cov)
	}

	return &Attitude{
		q:     q,
		rates: rates,
		cov:   c,
	}, nil
}

// Quat returns the LTP to body attitude quaternion.
func (a *Attitude) Quat() quat.Quat {
	return a.q
}

// Rates returns the body frame angular rates.
func (a *Attitude) Rates() quat.Rates {
	return a.rates
}

// Cov returns a copy of the error state covariance.
func (a *Attitude) Cov() mat.Symmetric {
	cov := mat.NewSymDense(a.cov.SymmetricDim(), nil)
	cov.CopySym(a.cov)

	return cov
}

// Euler returns the ZYX roll, pitch and yaw angles of the attitude.
func (a *Attitude) Euler() (roll, pitch, yaw float64) {
	return a.q.Euler()
}
