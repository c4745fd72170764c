package occumap

// PointXYZT is one range-sensor return: a local Cartesian point plus its
// offset time from the cloud's base timestamp, in nanoseconds. A zero
// OffsetTimeNsec disables undistortion for that point (Undistorter keeps it
// as it is).
type PointXYZT struct {
	X, Y, Z       F
	OffsetTimeNsec int64
}

// StampedPointcloud is a batch of points sharing one base timestamp and
// sensor frame id.
type StampedPointcloud struct {
	BaseTimestampNsec int64
	SensorFrameID     string
	Points            []PointXYZT
}

// GetStartTime/GetEndTime/GetMedianTime return base + min/max/median
// offset.
func (p StampedPointcloud) GetStartTime() int64 {
	if len(p.Points) == 0 {
		return p.BaseTimestampNsec
	}
	min := p.Points[0].OffsetTimeNsec
	for _, pt := range p.Points[1:] {
		if pt.OffsetTimeNsec < min {
			min = pt.OffsetTimeNsec
		}
	}
	return p.BaseTimestampNsec + min
}

func (p StampedPointcloud) GetEndTime() int64 {
	if len(p.Points) == 0 {
		return p.BaseTimestampNsec
	}
	max := p.Points[0].OffsetTimeNsec
	for _, pt := range p.Points[1:] {
		if pt.OffsetTimeNsec > max {
			max = pt.OffsetTimeNsec
		}
	}
	return p.BaseTimestampNsec + max
}

func (p StampedPointcloud) GetMedianTime() int64 {
	if len(p.Points) == 0 {
		return p.BaseTimestampNsec
	}
	offsets := make([]int64, len(p.Points))
	for i, pt := range p.Points {
		offsets[i] = pt.OffsetTimeNsec
	}
	sortInt64(offsets)
	mid := offsets[len(offsets)/2]
	return p.BaseTimestampNsec + mid
}

func sortInt64(s []int64) {
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] > v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}

// PosedPointcloud is a pointcloud fixed to a single rigid pose, with
// lazily computed world-frame points.
type PosedPointcloud struct {
	Pose   Transform3D
	Points []Vec3 // local (sensor-frame) points
}

// GlobalPoints transforms every local point into the world frame.
func (p PosedPointcloud) GlobalPoints() []Vec3 {
	out := make([]Vec3, len(p.Points))
	for i, pt := range p.Points {
		out[i] = p.Pose.Apply(pt)
	}
	return out
}

// PosedImage is a range image tagged with the pose it was captured at,
// the alternate integration input accepted alongside PosedPointcloud.
type PosedImage struct {
	Pose  Transform3D
	Image *RangeImage2D
}
