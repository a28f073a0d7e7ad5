package quat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const tol = 1e-9

func TestCompIdentity(t *testing.T) {
	assert := assert.New(t)

	q := FromEuler(0.3, -0.2, 1.1)

	got := q.Comp(Identity())
	assert.InDelta(q.W, got.W, tol)
	assert.InDelta(q.X, got.X, tol)
	assert.InDelta(q.Y, got.Y, tol)
	assert.InDelta(q.Z, got.Z, tol)

	// q*q^-1 = identity
	got = q.CompInv(q)
	assert.InDelta(1.0, got.W, tol)
	assert.InDelta(0.0, got.X, tol)
	assert.InDelta(0.0, got.Y, tol)
	assert.InDelta(0.0, got.Z, tol)
}

func TestCompMatchesRMatComposition(t *testing.T) {
	assert := assert.New(t)

	a2b := FromEuler(0.1, 0.2, 0.3)
	b2c := FromEuler(-0.4, 0.1, -0.9)
	a2c := a2b.Comp(b2c)

	v := Vec3{1, -2, 0.5}

	// rotating a->b then b->c must equal rotating a->c directly
	want := b2c.VMult(a2b.VMult(v))
	got := a2c.VMult(v)
	assert.InDelta(want.X, got.X, tol)
	assert.InDelta(want.Y, got.Y, tol)
	assert.InDelta(want.Z, got.Z, tol)

	// RMat form agrees with VMult
	rot := a2c.RMat().VMult(v)
	assert.InDelta(got.X, rot.X, tol)
	assert.InDelta(got.Y, rot.Y, tol)
	assert.InDelta(got.Z, rot.Z, tol)

	// transpose multiply inverts the rotation
	back := a2c.RMat().TranspVMult(got)
	assert.InDelta(v.X, back.X, tol)
	assert.InDelta(v.Y, back.Y, tol)
	assert.InDelta(v.Z, back.Z, tol)
}

func TestEulerRoundTrip(t *testing.T) {
	assert := assert.New(t)

	angles := [][3]float64{
		{0, 0, 0},
		{0.5, 0, 0},
		{0, -0.7, 0},
		{0, 0, 2.1},
		{0.3, -0.4, 1.5},
		{-1.2, 0.9, -2.8},
	}

	for _, a := range angles {
		q := FromEuler(a[0], a[1], a[2])
		assert.InDelta(1.0, q.Norm(), tol)

		roll, pitch, yaw := q.Euler()
		assert.InDelta(a[0], roll, 1e-8)
		assert.InDelta(a[1], pitch, 1e-8)
		assert.InDelta(a[2], yaw, 1e-8)
	}
}

func TestIntegratedYaw(t *testing.T) {
	assert := assert.New(t)

	// constant yaw rate for one second must rotate the frame by that angle
	q := Identity()
	rate := Rates{R: 0.5}
	for i := 0; i < 100; i++ {
		q = q.Integrated(rate, 0.01)
	}

	assert.InDelta(1.0, q.Norm(), tol)
	_, _, yaw := q.Euler()
	assert.InDelta(0.5, yaw, 1e-8)
}

func TestIntegratedZeroRate(t *testing.T) {
	assert := assert.New(t)

	q := FromEuler(0.2, 0.1, -0.3)
	got := q.Integrated(Rates{}, 0.25)
	assert.Equal(q, got)
}

func TestFromRMatRoundTrip(t *testing.T) {
	assert := assert.New(t)

	// cover all Shepperd branches, including near half-turn rotations
	quats := []Quat{
		FromEuler(0.1, 0.2, 0.3),
		FromEuler(3.0, 0, 0),
		FromEuler(0, 0, 3.1),
		FromEuler(3.0, 0, 3.1),
		FromEuler(0.2, -1.5, 0),
	}

	for _, q := range quats {
		got := FromRMat(q.RMat())
		// q and -q are the same rotation
		if got.W*q.W+got.X*q.X+got.Y*q.Y+got.Z*q.Z < 0 {
			got = Quat{-got.W, -got.X, -got.Y, -got.Z}
		}
		assert.InDelta(q.W, got.W, 1e-8)
		assert.InDelta(q.X, got.X, 1e-8)
		assert.InDelta(q.Y, got.Y, 1e-8)
		assert.InDelta(q.Z, got.Z, 1e-8)
	}
}

func TestFromAccelMagLevel(t *testing.T) {
	assert := assert.New(t)

	href := Vec3{X: 1, Y: 0, Z: 1}

	// level vehicle: accelerometer reads straight -g, mag reads the
	// reference field, attitude must be identity
	q := FromAccelMag(Vec3{0, 0, -9.81}, href, href)
	roll, pitch, yaw := q.Euler()
	assert.InDelta(0.0, roll, tol)
	assert.InDelta(0.0, pitch, tol)
	assert.InDelta(0.0, yaw, tol)
}

func TestFromAccelMagRecoversAttitude(t *testing.T) {
	assert := assert.New(t)

	href := Vec3{X: 0.9, Y: 0.1, Z: 1.2}
	g := Vec3{0, 0, -9.81}

	for _, a := range [][3]float64{
		{0.4, -0.2, 0.7},
		{-0.9, 0.5, -2.1},
		{0, 0, 1.570796},
	} {
		truth := FromEuler(a[0], a[1], a[2])

		// perfect measurements seen in the IMU frame
		accel := truth.VMult(g)
		mag := truth.VMult(href)

		got := FromAccelMag(accel, mag, href)
		roll, pitch, yaw := got.Euler()
		assert.InDelta(a[0], roll, 1e-6)
		assert.InDelta(a[1], pitch, 1e-6)
		assert.InDelta(a[2], yaw, 1e-6)
	}
}

func TestFromAccelMagCollinearFallsBack(t *testing.T) {
	assert := assert.New(t)

	// vertical field is useless for heading: roll/pitch must still resolve
	href := Vec3{X: 0, Y: 0, Z: 1}
	truth := FromEuler(0.3, -0.1, 0)

	accel := truth.VMult(Vec3{0, 0, -9.81})
	mag := truth.VMult(href)

	got := FromAccelMag(accel, mag, href)
	down := got.VMult(Vec3{0, 0, -1})
	want := accel.Normalized()
	assert.InDelta(want.X, down.X, 1e-6)
	assert.InDelta(want.Y, down.Y, 1e-6)
	assert.InDelta(want.Z, down.Z, 1e-6)
}

func TestVecOps(t *testing.T) {
	assert := assert.New(t)

	v := Vec3{3, 0, 4}
	assert.InDelta(5.0, v.Norm(), tol)
	assert.InDelta(1.0, v.Normalized().Norm(), tol)

	c := Vec3{1, 0, 0}.Cross(Vec3{0, 1, 0})
	assert.Equal(Vec3{0, 0, 1}, c)

	r := Rates{P: 0.1, Q: -0.2, R: 0.3}.Sub(Rates{P: 0.1, Q: -0.2, R: 0.3})
	assert.Equal(Rates{}, r)

	lp := Rates{P: 1}.Lerp(Rates{P: 3}, 0.5)
	assert.InDelta(2.0, lp.P, tol)

	assert.InDelta(math.Sqrt(0.14), Rates{P: 0.1, Q: -0.2, R: 0.3}.Norm(), tol)
}
