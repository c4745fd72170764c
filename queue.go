package occumap

import (
	"log/slog"
	"time"

	"github.com/samber/lo"
)

// Queue buffers stamped pointclouds for one source and drains them into an
// Integrator once poses become available, retrying transform lookups for a
// bounded period.
type Queue struct {
	cfg         SourceConfig
	integrator  *Integrator
	undistorter *Undistorter
	worldFrame  string
	log         *slog.Logger

	pending []StampedPointcloud
}

// NewQueue constructs a Queue for one source. undistorter may be nil when
// cfg.UndistortMotion is false, in which case poses are looked up directly
// via buffer at each cloud's base timestamp.
func NewQueue(cfg SourceConfig, integrator *Integrator, undistorter *Undistorter, worldFrame string, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	return &Queue{cfg: cfg, integrator: integrator, undistorter: undistorter, worldFrame: worldFrame, log: log}
}

// Push enqueues a cloud, dropping the oldest pending one if the queue is at
// capacity.
func (q *Queue) Push(cloud StampedPointcloud) {
	if len(cloud.Points) == 0 {
		q.log.Warn("skipping empty pointcloud", "frame", cloud.SensorFrameID)
		return
	}
	if len(q.pending) >= q.cfg.TopicQueueLength {
		q.pending = q.pending[1:]
	}
	q.pending = append(q.pending, cloud)
}

// buffer abstracts the pose-lookup path a non-undistorting Queue uses
// directly, letting Queue avoid depending on Undistorter when undistortion
// is disabled.
type buffer interface {
	LookupTransform(targetFrame, sourceFrame string, tNsec int64) (Transform3D, bool)
}

// ProcessQueue drains every cloud it can resolve a pose for, in FIFO order,
// stopping as soon as the oldest remaining cloud's pose is not yet
// available (it may become available on the next call).
func (q *Queue) ProcessQueue(buf buffer) {
	for len(q.pending) > 0 {
		oldest := q.pending[0]
		newest := q.pending[len(q.pending)-1]

		if time.Duration(newest.GetEndTime()-oldest.GetStartTime())*time.Nanosecond > q.cfg.MaxWaitForPose {
			q.log.Warn("max wait for pose exceeded, dropping cloud",
				"frame", oldest.SensorFrameID, "start", oldest.GetStartTime(), "end", oldest.GetEndTime())
			q.pending = q.pending[1:]
			continue
		}

		var posed PosedPointcloud
		if q.cfg.UndistortMotion {
			result := UndistortResult(-1)
			posed, result = q.undistorter.Undistort(oldest, q.worldFrame)
			switch result {
			case UndistortSuccess:
				// fallthrough to integration below
			case UndistortEndTimeNotInTfBuffer:
				return
			case UndistortStartTimeNotInTfBuffer, UndistortIntermediateTimeNotInTfBuffer:
				q.log.Warn("dropping pointcloud: undistortion failed", "result", result.String())
				q.pending = q.pending[1:]
				continue
			default:
				q.pending = q.pending[1:]
				continue
			}
		} else {
			pose, ok := buf.LookupTransform(q.worldFrame, oldest.SensorFrameID, oldest.BaseTimestampNsec)
			if !ok {
				return
			}
			points := lo.Map(oldest.Points, func(p PointXYZT, _ int) Vec3 {
				return Vec3{p.X, p.Y, p.Z}
			})
			posed = PosedPointcloud{Pose: pose, Points: points}
		}

		if err := q.integrator.Integrate(posed); err != nil {
			q.log.Warn("integration failed", "err", err)
		}
		q.pending = q.pending[1:]
	}
}

// Len returns the number of clouds currently buffered.
func (q *Queue) Len() int { return len(q.pending) }
