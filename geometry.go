package occumap

import "math"

// F is the scalar type used throughout the mapping engine. 32-bit as
// recommended by the data model; the extra range of float64 is not needed
// once values are stored as log-odds with saturation bounds.
type F = float32

// I is the integer index element used by index vectors.
type I = int32

// Vec3 is a Cartesian point or vector in R^3.
type Vec3 struct {
	X, Y, Z F
}

// Vec2 is a 2D point or vector, used for range image pixel/sub-pixel
// coordinates.
type Vec2 struct {
	X, Y F
}

// Index3 is an integer index vector in Z^3 (a cell, node or block index
// depending on context).
type Index3 struct {
	X, Y, Z I
}

// Index2 is an integer index vector in Z^2 (a range image pixel index).
type Index2 struct {
	X, Y I
}

func AddVec3(a, b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func SubVec3(a, b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func ScaleVec3(a Vec3, s F) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

func DotVec3(a, b Vec3) F {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func NormVec3(a Vec3) F {
	return F(math.Sqrt(float64(DotVec3(a, a))))
}

func AddIndex3(a, b Index3) Index3 { return Index3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func SubIndex3(a, b Index3) Index3 { return Index3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

// CwiseMin/CwiseMax are the componentwise min/max used to clamp an index
// into the inclusive corner range of a node, e.g. when testing whether a
// padded grid voxel sits inside an obstacle.
func CwiseMinIndex3(a, b Index3) Index3 {
	return Index3{minI(a.X, b.X), minI(a.Y, b.Y), minI(a.Z, b.Z)}
}

func CwiseMaxIndex3(a, b Index3) Index3 {
	return Index3{maxI(a.X, b.X), maxI(a.Y, b.Y), maxI(a.Z, b.Z)}
}

func minI(a, b I) I {
	if a < b {
		return a
	}
	return b
}

func maxI(a, b I) I {
	if a > b {
		return a
	}
	return b
}

// Index3ToVec3 converts an integer index into a floating point point,
// useful for Euclidean distance computations between indices.
func Index3ToVec3(idx Index3) Vec3 {
	return Vec3{F(idx.X), F(idx.Y), F(idx.Z)}
}

// AABB is an axis-aligned bounding box in R^3.
type AABB struct {
	Min, Max Vec3
}

// Width returns the AABB's extent along a single axis (0=x, 1=y, 2=z).
func (b AABB) Width(axis int) F {
	switch axis {
	case 0:
		return b.Max.X - b.Min.X
	case 1:
		return b.Max.Y - b.Min.Y
	default:
		return b.Max.Z - b.Min.Z
	}
}

// Center returns the AABB's midpoint.
func (b AABB) Center() Vec3 {
	return Vec3{
		(b.Min.X + b.Max.X) / 2,
		(b.Min.Y + b.Max.Y) / 2,
		(b.Min.Z + b.Max.Z) / 2,
	}
}

// Corners returns the 8 corner points of the AABB, ordered by the same
// child-bit convention as OctreeIndex children (see index.go).
func (b AABB) Corners() [8]Vec3 {
	var c [8]Vec3
	for i := 0; i < 8; i++ {
		x, y, z := b.Min.X, b.Min.Y, b.Min.Z
		if i&1 != 0 {
			x = b.Max.X
		}
		if i&2 != 0 {
			y = b.Max.Y
		}
		if i&4 != 0 {
			z = b.Max.Z
		}
		c[i] = Vec3{x, y, z}
	}
	return c
}

// MinDistanceTo returns the minimum Euclidean distance from the AABB to a
// point, 0 if the point is inside. Used by the cropping operation to bound
// a block conservatively without walking every leaf.
func (b AABB) MinDistanceTo(p Vec3) F {
	dx := F(0)
	if p.X < b.Min.X {
		dx = b.Min.X - p.X
	} else if p.X > b.Max.X {
		dx = p.X - b.Max.X
	}
	dy := F(0)
	if p.Y < b.Min.Y {
		dy = b.Min.Y - p.Y
	} else if p.Y > b.Max.Y {
		dy = p.Y - b.Max.Y
	}
	dz := F(0)
	if p.Z < b.Min.Z {
		dz = b.Min.Z - p.Z
	} else if p.Z > b.Max.Z {
		dz = p.Z - b.Max.Z
	}
	return F(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
}

// NearFarDistanceTo gives the min/max Euclidean distance from
// the AABB's 8 corners to a point, used by the intersector to bound
// d_near/d_far against a range interval.
func (b AABB) NearFarDistanceTo(p Vec3) (near, far F) {
	near = F(math.MaxFloat32)
	far = 0
	for _, c := range b.Corners() {
		d := NormVec3(SubVec3(c, p))
		if d < near {
			near = d
		}
		if d > far {
			far = d
		}
	}
	// The near distance to an AABB is bounded below by MinDistanceTo if the
	// point projects onto a face/edge rather than a corner.
	if md := b.MinDistanceTo(p); md < near {
		near = md
	}
	return near, far
}

// Transform3D is a rigid body transform (rotation + translation), stored as
// a row-major 3x3 rotation plus translation, the common convention for
// sensor poses.
type Transform3D struct {
	R [9]F // row-major 3x3 rotation
	T Vec3
}

// Identity3D returns the identity rigid transform.
func Identity3D() Transform3D {
	return Transform3D{R: [9]F{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// Apply transforms a point by this rigid transform: R*p + t.
func (tf Transform3D) Apply(p Vec3) Vec3 {
	return Vec3{
		tf.R[0]*p.X + tf.R[1]*p.Y + tf.R[2]*p.Z + tf.T.X,
		tf.R[3]*p.X + tf.R[4]*p.Y + tf.R[5]*p.Z + tf.T.Y,
		tf.R[6]*p.X + tf.R[7]*p.Y + tf.R[8]*p.Z + tf.T.Z,
	}
}

// Inverse returns the inverse rigid transform: R^T, -R^T*t.
func (tf Transform3D) Inverse() Transform3D {
	r := tf.R
	rt := [9]F{r[0], r[3], r[6], r[1], r[4], r[7], r[2], r[5], r[8]}
	inv := Transform3D{R: rt}
	neg := Vec3{-tf.T.X, -tf.T.Y, -tf.T.Z}
	inv.T = Vec3{
		rt[0]*neg.X + rt[1]*neg.Y + rt[2]*neg.Z,
		rt[3]*neg.X + rt[4]*neg.Y + rt[5]*neg.Z,
		rt[6]*neg.X + rt[7]*neg.Y + rt[8]*neg.Z,
	}
	return inv
}

// Compose returns the transform equivalent to applying `inner` then `outer`.
func Compose(outer, inner Transform3D) Transform3D {
	var r [9]F
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s F
			for k := 0; k < 3; k++ {
				s += outer.R[i*3+k] * inner.R[k*3+j]
			}
			r[i*3+j] = s
		}
	}
	return Transform3D{R: r, T: outer.Apply(inner.T)}
}

// IsFinite reports whether every component of the transform is finite,
// a precondition checked before integration.
func (tf Transform3D) IsFinite() bool {
	vals := append(tf.R[:0:0], tf.R[:]...)
	vals = append(vals, tf.T.X, tf.T.Y, tf.T.Z)
	for _, v := range vals {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}

// IsOrthonormal reports whether the rotation submatrix is proper and
// orthonormal within tol: determinant near 1 and columns unit-length and
// mutually perpendicular.
func (tf Transform3D) IsOrthonormal(tol F) bool {
	r := tf.R
	det := r[0]*(r[4]*r[8]-r[5]*r[7]) -
		r[1]*(r[3]*r[8]-r[5]*r[6]) +
		r[2]*(r[3]*r[7]-r[4]*r[6])
	if absF(det-1) > tol {
		return false
	}
	// columns must be unit length and mutually orthogonal
	cols := [3]Vec3{{r[0], r[3], r[6]}, {r[1], r[4], r[7]}, {r[2], r[5], r[8]}}
	for _, c := range cols {
		if absF(NormVec3(c)-1) > tol {
			return false
		}
	}
	if absF(DotVec3(cols[0], cols[1])) > tol || absF(DotVec3(cols[0], cols[2])) > tol ||
		absF(DotVec3(cols[1], cols[2])) > tol {
		return false
	}
	return true
}

// Valid reports whether the transform is usable as a sensor pose: finite
// and orthonormal.
func (tf Transform3D) Valid() bool {
	return tf.IsFinite() && tf.IsOrthonormal(1e-2)
}

func absF(v F) F {
	if v < 0 {
		return -v
	}
	return v
}

// RotationFromQuaternion builds the rotation submatrix of a Transform3D
// from a unit quaternion (w, x, y, z), used by the undistorter when
// interpolating orientations via SLERP (undistort.go).
func RotationFromQuaternion(w, x, y, z F) [9]F {
	return [9]F{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	}
}

// QuaternionFromRotation extracts a unit quaternion (w,x,y,z) from a
// rotation submatrix, the inverse of RotationFromQuaternion, needed to
// feed SLERP from poses stored/looked-up as matrices.
func QuaternionFromRotation(r [9]F) (w, x, y, z F) {
	trace := r[0] + r[4] + r[8]
	if trace > 0 {
		s := F(math.Sqrt(float64(trace+1))) * 2
		w = s / 4
		x = (r[7] - r[5]) / s
		y = (r[2] - r[6]) / s
		z = (r[3] - r[1]) / s
		return
	}
	if r[0] > r[4] && r[0] > r[8] {
		s := F(math.Sqrt(float64(1+r[0]-r[4]-r[8]))) * 2
		w = (r[7] - r[5]) / s
		x = s / 4
		y = (r[1] + r[3]) / s
		z = (r[2] + r[6]) / s
		return
	}
	if r[4] > r[8] {
		s := F(math.Sqrt(float64(1+r[4]-r[0]-r[8]))) * 2
		w = (r[2] - r[6]) / s
		x = (r[1] + r[3]) / s
		y = s / 4
		z = (r[5] + r[7]) / s
		return
	}
	s := F(math.Sqrt(float64(1+r[8]-r[0]-r[4]))) * 2
	w = (r[3] - r[1]) / s
	x = (r[2] + r[6]) / s
	y = (r[5] + r[7]) / s
	z = s / 4
	return
}
