package occumap

import "math"

// UndistortResult is the outcome of an undistortion attempt.
type UndistortResult int

const (
	UndistortSuccess UndistortResult = iota
	UndistortEndTimeNotInTfBuffer
	UndistortStartTimeNotInTfBuffer
	UndistortIntermediateTimeNotInTfBuffer
)

func (r UndistortResult) String() string {
	switch r {
	case UndistortSuccess:
		return "success"
	case UndistortEndTimeNotInTfBuffer:
		return "end_time_not_in_tf_buffer"
	case UndistortStartTimeNotInTfBuffer:
		return "start_time_not_in_tf_buffer"
	case UndistortIntermediateTimeNotInTfBuffer:
		return "intermediate_time_not_in_tf_buffer"
	default:
		return "unknown"
	}
}

// TransformBuffer is the external, read-only, externally-thread-safe
// transform history the engine queries but does not own.
type TransformBuffer interface {
	LookupTransform(targetFrame, sourceFrame string, tNsec int64) (Transform3D, bool)
}

// Undistorter resolves per-point timestamps against a TransformBuffer to
// correct for sensor motion during capture.
type Undistorter struct {
	Buffer       TransformBuffer
	NumIntervals int
}

// NewUndistorter constructs an Undistorter sampling numIntervals+1 poses
// per cloud.
func NewUndistorter(buffer TransformBuffer, numIntervals int) *Undistorter {
	return &Undistorter{Buffer: buffer, NumIntervals: numIntervals}
}

// Undistort resolves a pose per point from its offset timestamp, correcting
// for sensor motion during capture, and re-expresses every point in the
// sensor frame at the cloud's median time; the returned PosedPointcloud
// carries that median-time pose (in worldFrame). Points with a zero
// OffsetTimeNsec are kept as they are.
func (u *Undistorter) Undistort(cloud StampedPointcloud, worldFrame string) (PosedPointcloud, UndistortResult) {
	t0 := cloud.GetStartTime()
	t1 := cloud.GetEndTime()
	n := u.NumIntervals
	if n < 1 {
		n = 1
	}

	sampleTimes := make([]int64, n+1)
	transforms := make([]Transform3D, n+1)
	for k := 0; k <= n; k++ {
		sampleTimes[k] = t0 + (t1-t0)*int64(k)/int64(n)
	}

	// Step 2: look up transforms, end time first (caller retries later if
	// only the end transform is missing).
	endTf, ok := u.Buffer.LookupTransform(worldFrame, cloud.SensorFrameID, sampleTimes[n])
	if !ok {
		return PosedPointcloud{}, UndistortEndTimeNotInTfBuffer
	}
	transforms[n] = endTf

	startTf, ok := u.Buffer.LookupTransform(worldFrame, cloud.SensorFrameID, sampleTimes[0])
	if !ok {
		return PosedPointcloud{}, UndistortStartTimeNotInTfBuffer
	}
	transforms[0] = startTf

	for k := 1; k < n; k++ {
		tf, ok := u.Buffer.LookupTransform(worldFrame, cloud.SensorFrameID, sampleTimes[k])
		if !ok {
			return PosedPointcloud{}, UndistortIntermediateTimeNotInTfBuffer
		}
		transforms[k] = tf
	}

	medianNsec := cloud.GetMedianTime()
	refPose, ok := interpolateAt(sampleTimes, transforms, medianNsec)
	if !ok {
		refPose = transforms[n/2]
	}
	refInv := refPose.Inverse()

	globalPoints := make([]Vec3, len(cloud.Points))
	for i, p := range cloud.Points {
		if p.OffsetTimeNsec == 0 {
			globalPoints[i] = Vec3{p.X, p.Y, p.Z}
			continue
		}
		absTime := cloud.BaseTimestampNsec + p.OffsetTimeNsec
		pose, _ := interpolateAt(sampleTimes, transforms, absTime)
		worldPoint := pose.Apply(Vec3{p.X, p.Y, p.Z})
		globalPoints[i] = refInv.Apply(worldPoint)
	}

	return PosedPointcloud{Pose: refPose, Points: globalPoints}, UndistortSuccess
}

// interpolateAt finds t's enclosing sample interval and linearly
// interpolates translation / SLERPs rotation within it.
func interpolateAt(sampleTimes []int64, transforms []Transform3D, t int64) (Transform3D, bool) {
	n := len(sampleTimes)
	if n == 0 {
		return Transform3D{}, false
	}
	if t <= sampleTimes[0] {
		return transforms[0], true
	}
	if t >= sampleTimes[n-1] {
		return transforms[n-1], true
	}
	k := 0
	for k < n-2 && sampleTimes[k+1] < t {
		k++
	}
	t0, t1 := sampleTimes[k], sampleTimes[k+1]
	var alpha F
	if t1 != t0 {
		alpha = F(t-t0) / F(t1-t0)
	}
	return lerpTransform(transforms[k], transforms[k+1], alpha), true
}

// lerpTransform linearly interpolates translation and SLERPs rotation
// between two rigid transforms.
func lerpTransform(a, b Transform3D, alpha F) Transform3D {
	translation := Vec3{
		a.T.X + alpha*(b.T.X-a.T.X),
		a.T.Y + alpha*(b.T.Y-a.T.Y),
		a.T.Z + alpha*(b.T.Z-a.T.Z),
	}
	wa, xa, ya, za := QuaternionFromRotation(a.R)
	wb, xb, yb, zb := QuaternionFromRotation(b.R)
	w, x, y, z := slerp(wa, xa, ya, za, wb, xb, yb, zb, alpha)
	return Transform3D{R: RotationFromQuaternion(w, x, y, z), T: translation}
}

// slerp spherically interpolates between two unit quaternions, falling
// back to a normalized linear interpolation when the angle between them
// is small enough for numerical division to be unstable.
func slerp(w0, x0, y0, z0, w1, x1, y1, z1, t F) (w, x, y, z F) {
	dot := w0*w1 + x0*x1 + y0*y1 + z0*z1
	if dot < 0 {
		w1, x1, y1, z1 = -w1, -x1, -y1, -z1
		dot = -dot
	}
	if dot > 0.9995 {
		w = w0 + t*(w1-w0)
		x = x0 + t*(x1-x0)
		y = y0 + t*(y1-y0)
		z = z0 + t*(z1-z0)
		return normalizeQuat(w, x, y, z)
	}
	theta0 := F(math.Acos(float64(clampF(dot, -1, 1))))
	theta := theta0 * t
	sinTheta0 := F(math.Sin(float64(theta0)))
	s1 := F(math.Sin(float64(theta))) / sinTheta0
	s0 := F(math.Cos(float64(theta))) - dot*s1
	w = s0*w0 + s1*w1
	x = s0*x0 + s1*x1
	y = s0*y0 + s1*y1
	z = s0*z0 + s1*z1
	return
}

func normalizeQuat(w, x, y, z F) (F, F, F, F) {
	n := F(math.Sqrt(float64(w*w + x*x + y*y + z*z)))
	if n == 0 {
		return 1, 0, 0, 0
	}
	return w / n, x / n, y / n, z / n
}

func clampF(v, lo, hi F) F {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
