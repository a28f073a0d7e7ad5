// Package matrix provides small gonum matrix helpers shared by the
// estimation packages.
package matrix

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Eye returns the n x n identity matrix.
// It panics if n is not positive.
func Eye(n int) *mat.Dense {
	if n <= 0 {
		panic("matrix: non-positive dimension")
	}

	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}

	return m
}

// SetSkew writes the 3x3 skew-symmetric matrix of the vector (x, y, z)
// into dst, so that dst*v equals the cross product (x, y, z) x v.
// It panics if dst is not 3x3.
func SetSkew(dst *mat.Dense, x, y, z float64) {
	r, c := dst.Dims()
	if r != 3 || c != 3 {
		panic("matrix: skew destination must be 3x3")
	}

	dst.Set(0, 0, 0)
	dst.Set(0, 1, -z)
	dst.Set(0, 2, y)
	dst.Set(1, 0, z)
	dst.Set(1, 1, 0)
	dst.Set(1, 2, -x)
	dst.Set(2, 0, -y)
	dst.Set(2, 1, x)
	dst.Set(2, 2, 0)
}

// AddDiag adds d[i] to the i-th diagonal entry of dst.
// It panics if dst is not square or len(d) does not match its dimension.
func AddDiag(dst *mat.Dense, d []float64) {
	r, c := dst.Dims()
	if r != c || len(d) != r {
		panic("matrix: diagonal dimension mismatch")
	}

	for i := 0; i < r; i++ {
		dst.Set(i, i, dst.At(i, i)+d[i])
	}
}

// IsSymmetric reports whether m is symmetric within tolerance tol.
// It panics if m is nil.
func IsSymmetric(m mat.Matrix, tol float64) bool {
	r, c := m.Dims()
	if r != c {
		return false
	}

	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			if math.Abs(m.At(i, j)-m.At(j, i)) > tol {
				return false
			}
		}
	}

	return true
}
