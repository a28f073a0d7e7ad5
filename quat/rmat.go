package quat

// RMat is a 3x3 rotation matrix in row-major order. Like Quat it rotates
// vector coordinates from a source frame into a destination frame.
type RMat [9]float64

// IdentityRMat returns the identity rotation matrix.
func IdentityRMat() RMat {
	return RMat{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// VMult returns r*v.
func (r RMat) VMult(v Vec3) Vec3 {
	return Vec3{
		X: r[0]*v.X + r[1]*v.Y + r[2]*v.Z,
		Y: r[3]*v.X + r[4]*v.Y + r[5]*v.Z,
		Z: r[6]*v.X + r[7]*v.Y + r[8]*v.Z,
	}
}

// TranspVMult returns r'*v, the inverse rotation of v.
func (r RMat) TranspVMult(v Vec3) Vec3 {
	return Vec3{
		X: r[0]*v.X + r[3]*v.Y + r[6]*v.Z,
		Y: r[1]*v.X + r[4]*v.Y + r[7]*v.Z,
		Z: r[2]*v.X + r[5]*v.Y + r[8]*v.Z,
	}
}

// TranspRateMult returns r'*w, rotating angular rates back through the
// inverse of r.
func (r RMat) TranspRateMult(w Rates) Rates {
	return Rates{
		P: r[0]*w.P + r[3]*w.Q + r[6]*w.R,
		Q: r[1]*w.P + r[4]*w.Q + r[7]*w.R,
		R: r[2]*w.P + r[5]*w.Q + r[8]*w.R,
	}
}
