package occumap

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var approxVec3 = cmpopts.EquateApprox(0, 1e-3)

func TestTransform3DInverseRoundTrip(t *testing.T) {
	w, x, y, z := F(0.7071), F(0), F(0.7071), F(0)
	tf := Transform3D{R: RotationFromQuaternion(w, x, y, z), T: Vec3{1, 2, 3}}
	inv := tf.Inverse()

	p := Vec3{4, 5, 6}
	roundTripped := inv.Apply(tf.Apply(p))

	if diff := cmp.Diff(p, roundTripped, approxVec3); diff != "" {
		t.Fatalf("Inverse(Apply(p)) mismatch (-want +got):\n%s", diff)
	}
}

func TestTransform3DComposeIdentity(t *testing.T) {
	id := Identity3D()
	tf := Transform3D{R: RotationFromQuaternion(1, 0, 0, 0), T: Vec3{1, -2, 3}}

	composed := Compose(id, tf)
	if diff := cmp.Diff(tf.T, composed.T, approxVec3); diff != "" {
		t.Fatalf("Compose(Identity, tf).T mismatch (-want +got):\n%s", diff)
	}
}

func TestTransform3DValidRejectsNonOrthonormal(t *testing.T) {
	tf := Transform3D{R: [9]F{2, 0, 0, 0, 1, 0, 0, 0, 1}}
	if tf.Valid() {
		t.Fatalf("scaled rotation matrix reported as Valid")
	}
}

func TestTransform3DValidRejectsNonFinite(t *testing.T) {
	tf := Identity3D()
	tf.T.X = F(math.NaN())
	if tf.Valid() {
		t.Fatalf("NaN translation reported as Valid")
	}
}

func TestQuaternionRotationRoundTrip(t *testing.T) {
	cases := [][4]F{
		{1, 0, 0, 0},
		{0.7071, 0.7071, 0, 0},
		{0.5, 0.5, 0.5, 0.5},
	}
	for _, c := range cases {
		r := RotationFromQuaternion(c[0], c[1], c[2], c[3])
		w, x, y, z := QuaternionFromRotation(r)
		r2 := RotationFromQuaternion(w, x, y, z)
		for i := range r {
			if absF(r[i]-r2[i]) > 1e-4 {
				t.Fatalf("quaternion round trip mismatch at %d: %v vs %v", i, r, r2)
			}
		}
	}
}

func TestAABBCornersOrderMatchesChildIndexConvention(t *testing.T) {
	box := AABB{Min: Vec3{0, 0, 0}, Max: Vec3{1, 1, 1}}
	corners := box.Corners()
	// bit0=x, bit1=y, bit2=z per ChildIndex's convention.
	want := Vec3{1, 1, 0}
	if corners[3] != want {
		t.Fatalf("Corners()[3] = %+v, want %+v", corners[3], want)
	}
}

func TestAABBMinDistanceToInsideIsZero(t *testing.T) {
	box := AABB{Min: Vec3{0, 0, 0}, Max: Vec3{2, 2, 2}}
	if d := box.MinDistanceTo(Vec3{1, 1, 1}); d != 0 {
		t.Fatalf("MinDistanceTo(inside point) = %v, want 0", d)
	}
}

func TestAABBNearFarDistanceToBoundsCorners(t *testing.T) {
	box := AABB{Min: Vec3{0, 0, 0}, Max: Vec3{1, 1, 1}}
	near, far := box.NearFarDistanceTo(Vec3{-1, 0.5, 0.5})
	if near <= 0 || near > 1 {
		t.Fatalf("near = %v, want in (0, 1]", near)
	}
	if far < near {
		t.Fatalf("far (%v) < near (%v)", far, near)
	}
}

