package occumap

import "errors"

// Validation errors: config or runtime input invalid, rejected before any
// state change.
var ErrInvalidPose = errors.New("occumap: pose is not finite and orthonormal")
var ErrInvalidConfig = errors.New("occumap: invalid configuration")
var ErrEmptyPointcloud = errors.New("occumap: pointcloud has zero points")
var ErrDimensionMismatch = errors.New("occumap: point field dimensions mismatch")

// Internal invariant violation errors: conditions that should never
// happen, warned and dropped rather than panicked on.
var ErrIntermediateTransformMissing = errors.New("occumap: intermediate transform missing despite end transform present")
var ErrUnsupportedMapVariant = errors.New("occumap: operation unsupported for this map variant")

// Persistence errors, one sentinel per failing TileDB operation.
var ErrCreateMapTdb = errors.New("occumap: error creating map TileDB array")
var ErrWriteMapTdb = errors.New("occumap: error writing map TileDB array")
var ErrReadMapTdb = errors.New("occumap: error reading map TileDB array")
var ErrCreateSchemaTdb = errors.New("occumap: error creating TileDB schema")
var ErrCreateAttrTdb = errors.New("occumap: error creating TileDB attribute")
var ErrAddFiltersTdb = errors.New("occumap: error adding filter to TileDB filter list")
