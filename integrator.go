package occumap

import (
	"log/slog"
	"math"
	"sync"

	"github.com/alitto/pond"
)

// IntegratorConfig holds the per-engine constants assumed fixed for the
// lifetime of an Integrator.
type IntegratorConfig struct {
	TreeHeight             int
	MinCellWidth           F
	MinRange               F
	MaxRange               F
	TerminationHeight      int
	TerminationUpdateError F
	MinLogOdds             F
	MaxLogOdds             F
	AzimuthWraps           bool
}

// Integrator is the projective coarse-to-fine integrator: it owns one
// long-lived thread pool, used only inside updateMap.
type Integrator struct {
	cfg         IntegratorConfig
	occupancy   *HashedWaveletOctree
	projection  ProjectionModel
	measurement MeasurementModel
	pool        *pond.WorkerPool
	intersector *RangeImageIntersector
	log         *slog.Logger
	profiler    Profiler
}

// NewIntegrator constructs an Integrator with a pool of numWorkers, kept
// alive for the integrator's lifetime. Profiling is a no-op until
// SetProfiler installs a real implementation.
func NewIntegrator(cfg IntegratorConfig, occupancy *HashedWaveletOctree, projection ProjectionModel, measurement MeasurementModel, numWorkers int, logger *slog.Logger) *Integrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Integrator{
		cfg:         cfg,
		occupancy:   occupancy,
		projection:  projection,
		measurement: measurement,
		pool:        pond.New(numWorkers, 0, pond.MinWorkers(numWorkers)),
		log:         logger,
		profiler:    NoopProfiler{},
	}
}

// SetProfiler installs p to record scope durations for subsequent
// Integrate/IntegrateImage calls. Passing nil reinstalls the no-op.
func (in *Integrator) SetProfiler(p Profiler) {
	if p == nil {
		p = NoopProfiler{}
	}
	in.profiler = p
}

// Close stops the underlying thread pool, waiting for in-flight tasks.
func (in *Integrator) Close() {
	in.pool.StopAndWait()
}

// Integrate validates cloud's pose, projects it into a range image, and
// fuses that image into the map.
func (in *Integrator) Integrate(cloud PosedPointcloud) error {
	if !cloud.Pose.Valid() {
		in.log.Warn("rejecting pointcloud with invalid pose")
		return ErrInvalidPose
	}
	rangeImage := in.importPointcloud(cloud)
	in.updateMap(cloud.Pose, rangeImage)
	return nil
}

// IntegrateImage integrates a pre-posed range image directly, the
// alternate entry point `updateMap` shares with Integrate.
func (in *Integrator) IntegrateImage(img PosedImage) error {
	if !img.Pose.Valid() {
		in.log.Warn("rejecting range image with invalid pose")
		return ErrInvalidPose
	}
	in.updateMap(img.Pose, img.Image)
	return nil
}

// importPointcloud projects every local point into the sensor's range
// image, keeping the closer of any two points landing on the same pixel.
func (in *Integrator) importPointcloud(cloud PosedPointcloud) *RangeImage2D {
	defer in.profiler.StartScope("importPointcloud")()
	dims := in.projection.GetDimensions()
	rangeImage := NewRangeImage2D(int(dims.Y), int(dims.X), kUnknownRangeImageValueUpperBound)
	for _, p := range cloud.Points {
		if !isFiniteVec3(p) {
			continue
		}
		depth := in.projection.CartesianToSensorZ(p)
		if depth < in.cfg.MinRange || depth > in.cfg.MaxRange {
			continue
		}
		image, d := in.projection.CartesianToSensor(p)
		if d <= 0 {
			continue
		}
		idx, _ := in.projection.ImageToNearestIndexAndOffset(image)
		if idx.X < 0 || idx.X >= dims.X || idx.Y < 0 || idx.Y >= dims.Y {
			continue
		}
		v := valueOrInit(d, kUnknownRangeImageValueUpperBound)
		if v == kUnknownRangeImageValueUpperBound {
			continue
		}
		existing := rangeImage.At(int(idx.Y), int(idx.X))
		if existing == kUnknownRangeImageValueUpperBound || v < existing {
			rangeImage.Set(int(idx.Y), int(idx.X), v)
		}
	}
	return rangeImage
}

func isFiniteVec3(p Vec3) bool {
	return !math.IsNaN(float64(p.X)) && !math.IsInf(float64(p.X), 0) &&
		!math.IsNaN(float64(p.Y)) && !math.IsInf(float64(p.Y), 0) &&
		!math.IsNaN(float64(p.Z)) && !math.IsInf(float64(p.Z), 0)
}

// updateMap intersects the current field of view against the map, then
// fans the affected blocks out across the worker pool for update.
func (in *Integrator) updateMap(pose Transform3D, rangeImage *RangeImage2D) {
	defer in.profiler.StartScope("updateMap")()
	hri := NewHierarchicalRangeImage(rangeImage, in.cfg.AzimuthWraps)
	in.intersector = NewRangeImageIntersector(hri, in.projection, in.cfg.MinRange, in.cfg.MaxRange, pose)

	fovMin, fovMax := in.getFovMinMaxIndices(pose.T)

	var blocksToUpdate []Index3
	Grid{Min: fovMin.Position, Max: fovMax.Position}.ForEach(func(blockIdx Index3) {
		in.recursiveTester(OctreeIndex{Height: fovMin.Height, Position: blockIdx}, &blocksToUpdate)
	})

	// Pre-allocate sequentially before any concurrent dispatch.
	for _, idx := range blocksToUpdate {
		in.occupancy.GetOrAllocateBlock(idx)
	}

	// One Submit per independent block onto the long-lived pool; a
	// call-local WaitGroup gives wait-all semantics for this integration
	// without tearing the pool down between calls.
	var wg sync.WaitGroup
	for _, idx := range blocksToUpdate {
		blockIdx := idx
		wg.Add(1)
		in.pool.Submit(func() {
			defer wg.Done()
			if block, ok := in.occupancy.GetBlock(blockIdx); ok {
				in.updateBlock(block, blockIdx)
			}
		})
	}
	wg.Wait()
}

// getFovMinMaxIndices computes the block-aligned AABB covering
// sensorOrigin +- max_range, padded by one block on each side, at a height
// coarse enough to contain every block the sensor's range could reach.
func (in *Integrator) getFovMinMaxIndices(sensorOrigin Vec3) (minIdx, maxIdx OctreeIndex) {
	ratio := float64(in.cfg.MaxRange / in.cfg.MinCellWidth)
	height := 1 + maxInt(int(math.Ceil(math.Log2(ratio))), in.cfg.TreeHeight)

	blockSize := I(1) << uint(in.cfg.TreeHeight)
	lowCorner := SubVec3(sensorOrigin, Vec3{in.cfg.MaxRange, in.cfg.MaxRange, in.cfg.MaxRange})
	highCorner := AddVec3(sensorOrigin, Vec3{in.cfg.MaxRange, in.cfg.MaxRange, in.cfg.MaxRange})

	lowLeaf := PointToFloorIndex(lowCorner, in.cfg.MinCellWidth)
	lowLeaf = Index3{lowLeaf.X - blockSize, lowLeaf.Y - blockSize, lowLeaf.Z - blockSize}
	highLeaf := PointToCeilIndex(highCorner, in.cfg.MinCellWidth)
	highLeaf = Index3{highLeaf.X + blockSize, highLeaf.Y + blockSize, highLeaf.Z + blockSize}

	return IndexAndHeightToNodeIndex(lowLeaf, height), IndexAndHeightToNodeIndex(highLeaf, height)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// recursiveTester descends from an FOV grid cell, pruning fully-unobserved
// subtrees, and enqueues block indices at tree_height that need updating.
func (in *Integrator) recursiveTester(idx OctreeIndex, out *[]Index3) {
	aabb := idx.ToAABB(in.cfg.MinCellWidth)
	updateType := in.intersector.DetermineUpdateType(aabb)
	if updateType == UpdateTypeFullyUnobserved {
		return
	}
	if idx.Height == in.cfg.TreeHeight {
		enqueue := updateType == UpdateTypePossiblyOccupied
		if !enqueue {
			if block, ok := in.occupancy.GetBlock(idx.Position); ok {
				if block.GetRootScale() > in.cfg.MinLogOdds+kNoiseThreshold/10 {
					enqueue = true
				}
			}
		}
		if enqueue {
			*out = append(*out, idx.Position)
		}
		return
	}
	for rel := 0; rel < NumChildren; rel++ {
		in.recursiveTester(idx.ChildIndex(rel), out)
	}
}

// updateBlock recursively updates one block's wavelet octree in place.
func (in *Integrator) updateBlock(block *WaveletOctreeBlock, blockIndex Index3) {
	block.SetNeedsPruning(true)
	needsThresholding := block.NeedsThresholding()
	rootIdx := OctreeIndex{Height: in.cfg.TreeHeight, Position: blockIndex}
	newScale := in.updateNodeRecursive(block.root, rootIdx, block.GetRootScale(), &needsThresholding)
	block.SetRootScale(newScale)
	block.SetNeedsThresholding(needsThresholding)
}

func (in *Integrator) minLogOddsShrunk() F {
	return in.cfg.MinLogOdds + kNoiseThreshold/10
}

// updateNodeRecursive walks the wavelet tree top-down, updating cells against
// the range image as it descends. Each call frame owns its own decompressed
// [8]F child-scale array; recursion depth is bounded by tree_height.
func (in *Integrator) updateNodeRecursive(node *waveletNode, idx OctreeIndex, nodeValue F, needsThresholding *bool) F {
	childValues := Transform{}.Backward(nodeValue, node.details)

	for rel := 0; rel < NumChildren; rel++ {
		childIdx := idx.ChildIndex(rel)
		childAABB := childIdx.ToAABB(in.cfg.MinCellWidth)
		updateType := in.intersector.DetermineUpdateType(childAABB)
		if updateType == UpdateTypeFullyUnobserved {
			continue
		}
		if updateType != UpdateTypePossiblyOccupied && childValues[rel] < in.minLogOddsShrunk() {
			continue
		}

		childWidth := childAABB.Width(0)
		childCenter := AddVec3(childAABB.Min, Vec3{childWidth / 2, childWidth / 2, childWidth / 2})
		localCenter := in.intersector.Pose.Inverse().Apply(childCenter)
		dChild := in.projection.CartesianToSensorZ(localCenter)
		boundingRadius := kUnitCubeHalfDiagonal * childWidth

		if in.measurement.ComputeWorstCaseApproximationError(updateType, dChild, boundingRadius) < in.cfg.TerminationUpdateError {
			sample := in.computeUpdateAt(localCenter, dChild)
			childValues[rel] = ClampLogOdds(childValues[rel]+sample, in.cfg.MinLogOdds, in.cfg.MaxLogOdds)
			*needsThresholding = true
			continue
		}

		childNode := node.children[rel]
		if childNode == nil {
			childNode = &waveletNode{}
			node.children[rel] = childNode
		}
		if childIdx.Height <= in.cfg.TerminationHeight+1 {
			childValues[rel] = in.updateLeavesBatch(childNode, childIdx, childValues[rel])
		} else {
			childValues[rel] = in.updateNodeRecursive(childNode, childIdx, childValues[rel], needsThresholding)
		}
	}

	newScale, newDetails := Transform{}.Forward(childValues)
	node.details = newDetails
	return newScale
}

// updateLeavesBatch computes per-leaf updates in a tight recursive
// unwind once a subtree is shallow enough that the worst-case-error gate
// would always pass. Unlike updateNodeRecursive it applies the sample
// unconditionally at every descendant leaf, skipping the intersector
// re-classification since the parent already established the subtree is
// relevant.
func (in *Integrator) updateLeavesBatch(node *waveletNode, idx OctreeIndex, nodeValue F) F {
	if idx.Height == 0 {
		aabb := idx.ToAABB(in.cfg.MinCellWidth)
		center := aabb.Center()
		local := in.intersector.Pose.Inverse().Apply(center)
		d := in.projection.CartesianToSensorZ(local)
		sample := in.computeUpdateAt(local, d)
		return ClampLogOdds(nodeValue+sample, in.cfg.MinLogOdds, in.cfg.MaxLogOdds)
	}
	children := Transform{}.Backward(nodeValue, node.details)
	for rel := 0; rel < NumChildren; rel++ {
		childNode := node.children[rel]
		if childNode == nil {
			childNode = &waveletNode{}
			node.children[rel] = childNode
		}
		children[rel] = in.updateLeavesBatch(childNode, idx.ChildIndex(rel), children[rel])
	}
	newScale, newDetails := Transform{}.Forward(children)
	node.details = newDetails
	return newScale
}

// computeUpdateAt looks up the measured range at localPoint's projected
// pixel and asks the measurement model for the log-odds increment.
func (in *Integrator) computeUpdateAt(localPoint Vec3, distance F) F {
	image, d := in.projection.CartesianToSensor(localPoint)
	if d <= 0 {
		return 0
	}
	idx, _ := in.projection.ImageToNearestIndexAndOffset(image)
	dims := in.projection.GetDimensions()
	if idx.X < 0 || idx.X >= dims.X || idx.Y < 0 || idx.Y >= dims.Y {
		return 0
	}
	measuredRange := in.intersector.RangeImage.Base.At(int(idx.Y), int(idx.X))
	if measuredRange == kUnknownRangeImageValueUpperBound {
		measuredRange = in.cfg.MaxRange + 1
	}
	return in.measurement.ComputeUpdate(distance, measuredRange)
}
