package noise

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// None is an absent noise source: zero mean and zero covariance of the
// given dimension. It keeps simulated sensors perfect.
type None struct {
	dim int
}

// NewNone creates new None noise of the given dimension and returns it.
// It returns error if dim is not positive.
func NewNone(dim int) (*None, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid noise dimension: %d", dim)
	}

	return &None{dim: dim}, nil
}

// Sample returns the zero vector.
func (e *None) Sample() mat.Vector {
	return mat.NewVecDense(e.dim, nil)
}

// Cov returns the zero covariance matrix.
func (e *None) Cov() mat.Symmetric {
	return mat.NewSymDense(e.dim, nil)
}

// Mean returns the zero mean.
func (e *None) Mean() []float64 {
	return make([]float64, e.dim)
}

// Reset does nothing: it's here to implement ahrs.Noise interface.
func (e *None) Reset() {}

// String implements the Stringer interface.
func (e *None) String() string {
	return fmt.Sprintf("None{\nMean=%v\nCov=%v\n}", e.Mean(), mat.Formatted(e.Cov(), mat.Prefix("    "), mat.Squeeze()))
}
