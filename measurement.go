package occumap

// UpdateType classifies how a node relates to the current measurement,
// the three-way result of determineUpdateType.
type UpdateType int

const (
	UpdateTypeFullyUnobserved UpdateType = iota
	UpdateTypeFreeOrUnknown
	UpdateTypePossiblyOccupied
)

func (u UpdateType) String() string {
	switch u {
	case UpdateTypeFullyUnobserved:
		return "fully_unobserved"
	case UpdateTypeFreeOrUnknown:
		return "free_or_unknown"
	case UpdateTypePossiblyOccupied:
		return "possibly_occupied"
	default:
		return "unknown"
	}
}

// kNoiseThreshold biases tie-breaks in the intersector toward
// kPossiblyOccupied (conservative) and sets the "nearly saturated free"
// skip threshold in updateBlock.
const kNoiseThreshold F = 0.1

// kUnitCubeHalfDiagonal is sqrt(3)/2, the bounding-sphere radius factor
// for a unit cube.
const kUnitCubeHalfDiagonal F = 0.8660254

// MeasurementModel computes log-odds updates and their worst-case
// approximation error bound.
type MeasurementModel interface {
	// ComputeWorstCaseApproximationError bounds the per-sample log-odds
	// error if a node is treated as a single sample at its center. Must be
	// monotone non-increasing in distance and non-decreasing in
	// boundingSphereRadius.
	ComputeWorstCaseApproximationError(updateType UpdateType, distance, boundingSphereRadius F) F
	// ComputeUpdate returns the log-odds increment for a sample at
	// distance along the beam, given the beam's measured range.
	ComputeUpdate(distance, measuredRange F) F
}

// LogOddsMeasurementModel is a standard binary (free/occupied) beam model
// with a surface band of finite thickness, applying fixed log-odds
// increments on either side of the surface crossing.
type LogOddsMeasurementModel struct {
	FreeSpaceLogOdds F // negative
	OccupiedLogOdds  F // positive
	SurfaceThickness F // meters, half-width of the occupied band around the return
}

func (m LogOddsMeasurementModel) ComputeUpdate(distance, measuredRange F) F {
	diff := distance - measuredRange
	if absF(diff) <= m.SurfaceThickness {
		return m.OccupiedLogOdds
	}
	if distance < measuredRange {
		return m.FreeSpaceLogOdds
	}
	return 0
}

func (m LogOddsMeasurementModel) ComputeWorstCaseApproximationError(updateType UpdateType, distance, boundingSphereRadius F) F {
	if updateType == UpdateTypeFullyUnobserved {
		return 0
	}
	span := m.OccupiedLogOdds - m.FreeSpaceLogOdds
	if span < 0 {
		span = -span
	}
	d := distance
	if d < 1e-3 {
		d = 1e-3
	}
	return span * boundingSphereRadius / d
}
