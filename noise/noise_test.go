package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	ahrs "github.com/aerokit/go-ahrs"
)

var (
	_ ahrs.Noise = &Gaussian{}
	_ ahrs.Noise = &None{}
)

func TestGaussian(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{0.1, -0.2, 0.3}
	cov := mat.NewSymDense(3, []float64{
		0.01, 0, 0,
		0, 0.01, 0,
		0, 0, 0.01,
	})

	g, err := NewGaussian(mean, cov)
	assert.NoError(err)
	assert.NotNil(g)
	assert.Equal(mean, g.Mean())
	assert.Equal(3, g.Cov().SymmetricDim())

	s := g.Sample()
	assert.Equal(3, s.Len())

	// samples concentrate around the mean
	n := 2000
	sum := make([]float64, 3)
	for i := 0; i < n; i++ {
		x := g.Sample()
		for j := 0; j < 3; j++ {
			sum[j] += x.AtVec(j)
		}
	}
	for j := 0; j < 3; j++ {
		assert.InDelta(mean[j], sum[j]/float64(n), 0.05)
	}

	g.Reset()
	assert.Equal(3, g.Sample().Len())

	// non positive definite covariance
	g, err = NewGaussian([]float64{0, 0}, mat.NewSymDense(2, nil))
	assert.Nil(g)
	assert.Error(err)
}

func TestNone(t *testing.T) {
	assert := assert.New(t)

	e, err := NewNone(3)
	assert.NoError(err)
	assert.NotNil(e)

	s := e.Sample()
	assert.Equal(3, s.Len())
	for i := 0; i < 3; i++ {
		assert.Equal(0.0, s.AtVec(i))
	}
	assert.Equal([]float64{0, 0, 0}, e.Mean())
	assert.Equal(0.0, e.Cov().At(0, 0))
	e.Reset()

	e, err = NewNone(0)
	assert.Nil(e)
	assert.Error(err)
}
