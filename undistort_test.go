package occumap

import "testing"

// fakeTransformBuffer resolves every lookup to a fixed pose, or reports
// missing when blockedTimes contains the queried timestamp.
type fakeTransformBuffer struct {
	pose         Transform3D
	blockedTimes map[int64]bool
}

func (b fakeTransformBuffer) LookupTransform(targetFrame, sourceFrame string, tNsec int64) (Transform3D, bool) {
	if b.blockedTimes[tNsec] {
		return Transform3D{}, false
	}
	return b.pose, true
}

func TestUndistortResultString(t *testing.T) {
	cases := map[UndistortResult]string{
		UndistortSuccess:                       "success",
		UndistortEndTimeNotInTfBuffer:          "end_time_not_in_tf_buffer",
		UndistortStartTimeNotInTfBuffer:        "start_time_not_in_tf_buffer",
		UndistortIntermediateTimeNotInTfBuffer: "intermediate_time_not_in_tf_buffer",
		UndistortResult(99):                    "unknown",
	}
	for r, want := range cases {
		if got := r.String(); got != want {
			t.Fatalf("UndistortResult(%d).String() = %q, want %q", r, got, want)
		}
	}
}

func TestUndistorterSuccessWithStaticPose(t *testing.T) {
	pose := Transform3D{R: RotationFromQuaternion(1, 0, 0, 0), T: Vec3{5, 0, 0}}
	buf := fakeTransformBuffer{pose: pose}
	u := NewUndistorter(buf, 4)

	cloud := StampedPointcloud{
		BaseTimestampNsec: 0,
		SensorFrameID:     "lidar",
		Points: []PointXYZT{
			{X: 1, Y: 0, Z: 0, OffsetTimeNsec: 0},
			{X: 0, Y: 1, Z: 0, OffsetTimeNsec: 100},
		},
	}
	out, result := u.Undistort(cloud, "world")
	if result != UndistortSuccess {
		t.Fatalf("Undistort result = %v, want Success", result)
	}
	if len(out.Points) != len(cloud.Points) {
		t.Fatalf("Undistort produced %d points, want %d", len(out.Points), len(cloud.Points))
	}
}

func TestUndistorterMissingEndTime(t *testing.T) {
	cloud := StampedPointcloud{
		BaseTimestampNsec: 0,
		SensorFrameID:     "lidar",
		Points: []PointXYZT{
			{X: 1, OffsetTimeNsec: 0},
			{X: 2, OffsetTimeNsec: 100},
		},
	}
	buf := fakeTransformBuffer{pose: Identity3D(), blockedTimes: map[int64]bool{100: true}}
	u := NewUndistorter(buf, 1)

	_, result := u.Undistort(cloud, "world")
	if result != UndistortEndTimeNotInTfBuffer {
		t.Fatalf("Undistort result = %v, want EndTimeNotInTfBuffer", result)
	}
}

func TestUndistorterMissingStartTime(t *testing.T) {
	cloud := StampedPointcloud{
		BaseTimestampNsec: 0,
		SensorFrameID:     "lidar",
		Points: []PointXYZT{
			{X: 1, OffsetTimeNsec: 0},
			{X: 2, OffsetTimeNsec: 100},
		},
	}
	buf := fakeTransformBuffer{pose: Identity3D(), blockedTimes: map[int64]bool{0: true}}
	u := NewUndistorter(buf, 1)

	_, result := u.Undistort(cloud, "world")
	if result != UndistortStartTimeNotInTfBuffer {
		t.Fatalf("Undistort result = %v, want StartTimeNotInTfBuffer", result)
	}
}

func TestSlerpAtEndpointsReturnsInputs(t *testing.T) {
	w0, x0, y0, z0 := F(1), F(0), F(0), F(0)
	w1, x1, y1, z1 := F(0.7071), F(0.7071), F(0), F(0)

	w, x, y, z := slerp(w0, x0, y0, z0, w1, x1, y1, z1, 0)
	if absF(w-w0) > 1e-3 || absF(x-x0) > 1e-3 {
		t.Fatalf("slerp(t=0) = (%v,%v,%v,%v), want start quaternion", w, x, y, z)
	}

	w, x, y, z = slerp(w0, x0, y0, z0, w1, x1, y1, z1, 1)
	if absF(w-w1) > 1e-3 || absF(x-x1) > 1e-3 {
		t.Fatalf("slerp(t=1) = (%v,%v,%v,%v), want end quaternion", w, x, y, z)
	}
}
