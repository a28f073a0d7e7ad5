// Package quat provides fixed-size quaternion, vector and rotation matrix
// primitives for attitude estimation. All types are plain values and all
// operations are allocation free.
//
// Quaternions here are unit quaternions representing frame rotations: a
// quaternion "a to b" rotates coordinates of a vector expressed in frame a
// into frame b. Composition follows the Hamilton convention, so the
// composition of "a to b" with "b to c" is "a to c".
package quat

import "math"

// minRateNorm is the rate norm below which quaternion integration is a no-op.
const minRateNorm = 1e-30

// Vec3 is a 3-dimensional vector.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z}
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z}
}

// Scaled returns k*v.
func (v Vec3) Scaled(k float64) Vec3 {
	return Vec3{k * v.X, k * v.Y, k * v.Z}
}

// Dot returns the dot product of v and w.
func (v Vec3) Dot(w Vec3) float64 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

// Cross returns the cross product v x w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		X: v.Y*w.Z - v.Z*w.Y,
		Y: v.Z*w.X - v.X*w.Z,
		Z: v.X*w.Y - v.Y*w.X,
	}
}

// Norm returns the Euclidean norm of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalized returns v scaled to unit length. The zero vector is returned
// unchanged.
func (v Vec3) Normalized() Vec3 {
	n := v.Norm()
	if n < minRateNorm {
		return v
	}
	return v.Scaled(1 / n)
}

// Rates are body-frame angular rates about the x (P), y (Q) and z (R) axes,
// in rad/s.
type Rates struct {
	P, Q, R float64
}

// Sub returns r - s.
func (r Rates) Sub(s Rates) Rates {
	return Rates{r.P - s.P, r.Q - s.Q, r.R - s.R}
}

// Add returns r + s.
func (r Rates) Add(s Rates) Rates {
	return Rates{r.P + s.P, r.Q + s.Q, r.R + s.R}
}

// Scaled returns k*r.
func (r Rates) Scaled(k float64) Rates {
	return Rates{k * r.P, k * r.Q, k * r.R}
}

// Norm returns the Euclidean norm of r.
func (r Rates) Norm() float64 {
	return math.Sqrt(r.P*r.P + r.Q*r.Q + r.R*r.R)
}

// Lerp returns (1-k)*r + k*s, the linear blend used for rate low-passing.
func (r Rates) Lerp(s Rates, k float64) Rates {
	return Rates{
		P: (1-k)*r.P + k*s.P,
		Q: (1-k)*r.Q + k*s.Q,
		R: (1-k)*r.R + k*s.R,
	}
}

// Quat is a quaternion with scalar part W and vector part (X, Y, Z).
type Quat struct {
	W, X, Y, Z float64
}

// Identity returns the identity quaternion.
func Identity() Quat {
	return Quat{W: 1}
}

// Norm returns the quaternion norm.
func (q Quat) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalized returns q scaled to unit norm. A near-zero quaternion yields
// the identity.
func (q Quat) Normalized() Quat {
	n := q.Norm()
	if n < minRateNorm {
		return Identity()
	}
	k := 1 / n
	return Quat{q.W * k, q.X * k, q.Y * k, q.Z * k}
}

// Inv returns the inverse rotation. q must be unit norm.
func (q Quat) Inv() Quat {
	return Quat{q.W, -q.X, -q.Y, -q.Z}
}

// Comp returns the Hamilton product q*p. With q rotating frame a to b and
// p rotating b to c, the result rotates a to c.
func (q Quat) Comp(p Quat) Quat {
	return Quat{
		W: q.W*p.W - q.X*p.X - q.Y*p.Y - q.Z*p.Z,
		X: q.W*p.X + q.X*p.W + q.Y*p.Z - q.Z*p.Y,
		Y: q.W*p.Y - q.X*p.Z + q.Y*p.W + q.Z*p.X,
		Z: q.W*p.Z + q.X*p.Y - q.Y*p.X + q.Z*p.W,
	}
}

// CompInv returns q*p^-1. With q rotating frame a to c and p rotating b to c,
// the result rotates a to b.
func (q Quat) CompInv(p Quat) Quat {
	return q.Comp(p.Inv())
}

// VMult rotates the coordinates of v from the source frame of q into its
// destination frame.
func (q Quat) VMult(v Vec3) Vec3 {
	w2m12 := q.W*q.W - 0.5
	wx := q.W * q.X
	wy := q.W * q.Y
	wz := q.W * q.Z
	xy := q.X * q.Y
	xz := q.X * q.Z
	yz := q.Y * q.Z

	return Vec3{
		X: 2 * ((w2m12+q.X*q.X)*v.X + (xy+wz)*v.Y + (xz-wy)*v.Z),
		Y: 2 * ((xy-wz)*v.X + (w2m12+q.Y*q.Y)*v.Y + (yz+wx)*v.Z),
		Z: 2 * ((xz+wy)*v.X + (yz-wx)*v.Y + (w2m12+q.Z*q.Z)*v.Z),
	}
}

// Integrated advances q by the body rates r held constant over dt seconds.
// The step is the exact quaternion exponential, which preserves unit norm.
func (q Quat) Integrated(r Rates, dt float64) Quat {
	n := r.Norm()
	if n < minRateNorm {
		return q
	}

	a := 0.5 * n * dt
	s := math.Sin(a) / n

	return q.Comp(Quat{
		W: math.Cos(a),
		X: s * r.P,
		Y: s * r.Q,
		Z: s * r.R,
	})
}

// RMat returns the rotation matrix form of q: the matrix that rotates
// vector coordinates from the source frame of q into its destination frame.
func (q Quat) RMat() RMat {
	w2 := q.W * q.W
	x2 := q.X * q.X
	y2 := q.Y * q.Y
	z2 := q.Z * q.Z
	wx := q.W * q.X
	wy := q.W * q.Y
	wz := q.W * q.Z
	xy := q.X * q.Y
	xz := q.X * q.Z
	yz := q.Y * q.Z

	return RMat{
		w2 + x2 - y2 - z2, 2 * (xy + wz), 2 * (xz - wy),
		2 * (xy - wz), w2 - x2 + y2 - z2, 2 * (yz + wx),
		2 * (xz + wy), 2 * (yz - wx), w2 - x2 - y2 + z2,
	}
}

// Euler returns the ZYX roll, pitch and yaw angles of q, with q rotating
// the reference frame into the body frame. Roll and yaw are in (-pi, pi],
// pitch is in [-pi/2, pi/2].
func (q Quat) Euler() (roll, pitch, yaw float64) {
	w2 := q.W * q.W
	x2 := q.X * q.X
	y2 := q.Y * q.Y
	z2 := q.Z * q.Z

	st := 2 * (q.X*q.Z - q.W*q.Y)
	if st > 1 {
		st = 1
	} else if st < -1 {
		st = -1
	}

	roll = math.Atan2(2*(q.Y*q.Z+q.W*q.X), w2-x2-y2+z2)
	pitch = -math.Asin(st)
	yaw = math.Atan2(2*(q.X*q.Y+q.W*q.Z), w2+x2-y2-z2)

	return roll, pitch, yaw
}

// FromEuler returns the quaternion rotating the reference frame into a body
// frame with the given ZYX roll, pitch and yaw angles.
func FromEuler(roll, pitch, yaw float64) Quat {
	cphi := math.Cos(roll / 2)
	sphi := math.Sin(roll / 2)
	cth := math.Cos(pitch / 2)
	sth := math.Sin(pitch / 2)
	cpsi := math.Cos(yaw / 2)
	spsi := math.Sin(yaw / 2)

	return Quat{
		W: cphi*cth*cpsi + sphi*sth*spsi,
		X: sphi*cth*cpsi - cphi*sth*spsi,
		Y: cphi*sth*cpsi + sphi*cth*spsi,
		Z: cphi*cth*spsi - sphi*sth*cpsi,
	}
}

// FromRMat extracts the unit quaternion of a rotation matrix using
// Shepperd's method, branching on the largest of trace and diagonal terms
// for numerical stability.
func FromRMat(r RMat) Quat {
	tr := r[0] + r[4] + r[8]

	var q Quat
	switch {
	case tr > r[0] && tr > r[4] && tr > r[8]:
		s := 2 * math.Sqrt(1+tr)
		q = Quat{
			W: 0.25 * s,
			X: (r[5] - r[7]) / s,
			Y: (r[6] - r[2]) / s,
			Z: (r[1] - r[3]) / s,
		}
	case r[0] > r[4] && r[0] > r[8]:
		s := 2 * math.Sqrt(1+r[0]-r[4]-r[8])
		q = Quat{
			W: (r[5] - r[7]) / s,
			X: 0.25 * s,
			Y: (r[1] + r[3]) / s,
			Z: (r[6] + r[2]) / s,
		}
	case r[4] > r[8]:
		s := 2 * math.Sqrt(1+r[4]-r[0]-r[8])
		q = Quat{
			W: (r[6] - r[2]) / s,
			X: (r[1] + r[3]) / s,
			Y: 0.25 * s,
			Z: (r[5] + r[7]) / s,
		}
	default:
		s := 2 * math.Sqrt(1+r[8]-r[0]-r[4])
		q = Quat{
			W: (r[1] - r[3]) / s,
			X: (r[6] + r[2]) / s,
			Y: (r[5] + r[7]) / s,
			Z: 0.25 * s,
		}
	}

	return q.Normalized()
}

// FromAccelMag computes the attitude of an IMU from a gravity observation
// accel, a magnetic field observation mag and the reference magnetic field
// href, all with accel and mag expressed in the IMU frame and href in the
// navigation frame. The accelerometer fully determines roll and pitch, the
// magnetometer contributes heading only. If accel and mag are collinear the
// magnetometer is discarded and an accelerometer-only attitude with
// arbitrary heading is returned.
func FromAccelMag(accel, mag, href Vec3) Quat {
	// gravity reference: resting accelerometers read (0, 0, -g)
	r1 := Vec3{0, 0, -1}
	b1 := accel.Normalized()

	r2 := r1.Cross(href.Normalized())
	b2 := b1.Cross(mag.Normalized())
	if r2.Norm() < 1e-9 || b2.Norm() < 1e-9 {
		return fromVecPair(b1, r1)
	}
	r2 = r2.Normalized()
	b2 = b2.Normalized()

	r3 := r1.Cross(r2)
	b3 := b1.Cross(b2)

	// R maps navigation coordinates to IMU coordinates: R = B A^T with
	// the triad vectors as columns of A and B
	var r RMat
	ra := [3]Vec3{r1, r2, r3}
	rb := [3]Vec3{b1, b2, b3}
	for i := 0; i < 3; i++ {
		bi := [3]float64{rb[i].X, rb[i].Y, rb[i].Z}
		ai := [3]float64{ra[i].X, ra[i].Y, ra[i].Z}
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				r[3*j+k] += bi[j] * ai[k]
			}
		}
	}

	return FromRMat(r)
}

// fromVecPair returns the shortest-arc frame rotation q satisfying
// q.VMult(to) == from. Both inputs must be unit vectors.
func fromVecPair(from, to Vec3) Quat {
	c := from.Cross(to)
	d := from.Dot(to)
	if d < -1+1e-12 {
		// antiparallel: rotate half a turn about any axis normal to from
		axis := Vec3{1, 0, 0}.Cross(from)
		if axis.Norm() < 1e-9 {
			axis = Vec3{0, 1, 0}.Cross(from)
		}
		axis = axis.Normalized()
		return Quat{W: 0, X: axis.X, Y: axis.Y, Z: axis.Z}
	}

	return Quat{W: 1 + d, X: c.X, Y: c.Y, Z: c.Z}.Normalized()
}
