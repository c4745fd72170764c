package occumap

import "testing"

func TestQueuePushDropsOldestAtCapacity(t *testing.T) {
	cfg := DefaultSourceConfig()
	cfg.SensorFrameID = "lidar"
	cfg.TopicQueueLength = 2
	q := NewQueue(cfg, nil, nil, "world", nil)

	q.Push(StampedPointcloud{SensorFrameID: "lidar", Points: []PointXYZT{{X: 1}}})
	q.Push(StampedPointcloud{SensorFrameID: "lidar", Points: []PointXYZT{{X: 2}}})
	q.Push(StampedPointcloud{SensorFrameID: "lidar", Points: []PointXYZT{{X: 3}}})

	if got := q.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
}

func TestQueuePushSkipsEmptyCloud(t *testing.T) {
	cfg := DefaultSourceConfig()
	cfg.SensorFrameID = "lidar"
	q := NewQueue(cfg, nil, nil, "world", nil)

	q.Push(StampedPointcloud{SensorFrameID: "lidar"})
	if got := q.Len(); got != 0 {
		t.Fatalf("Len() after pushing an empty cloud = %d, want 0", got)
	}
}

func TestQueueProcessQueueDrainsWhenPoseAvailable(t *testing.T) {
	in := newTestIntegrator()
	defer in.Close()

	cfg := DefaultSourceConfig()
	cfg.SensorFrameID = "lidar"
	cfg.MaxWaitForPose = 1e9 // effectively unbounded for this test
	q := NewQueue(cfg, in, nil, "world", nil)

	q.Push(StampedPointcloud{SensorFrameID: "lidar", Points: []PointXYZT{{X: 3, Y: 0, Z: 0}}})

	buf := fakeTransformBuffer{pose: Identity3D()}
	q.ProcessQueue(buf)

	if got := q.Len(); got != 0 {
		t.Fatalf("Len() after ProcessQueue with a resolvable pose = %d, want 0", got)
	}
}

func TestQueueProcessQueueStopsWhenPoseUnavailable(t *testing.T) {
	in := newTestIntegrator()
	defer in.Close()

	cfg := DefaultSourceConfig()
	cfg.SensorFrameID = "lidar"
	cfg.MaxWaitForPose = 1e9
	q := NewQueue(cfg, in, nil, "world", nil)

	q.Push(StampedPointcloud{SensorFrameID: "lidar", Points: []PointXYZT{{X: 3, Y: 0, Z: 0}}})

	buf := fakeTransformBuffer{pose: Identity3D(), blockedTimes: map[int64]bool{0: true}}
	q.ProcessQueue(buf)

	if got := q.Len(); got != 1 {
		t.Fatalf("Len() after ProcessQueue with no available pose = %d, want 1", got)
	}
}

func TestQueueProcessQueueDropsCloudExceedingMaxWait(t *testing.T) {
	in := newTestIntegrator()
	defer in.Close()

	cfg := DefaultSourceConfig()
	cfg.SensorFrameID = "lidar"
	cfg.MaxWaitForPose = 1 // one nanosecond: any spread exceeds it
	q := NewQueue(cfg, in, nil, "world", nil)

	q.Push(StampedPointcloud{SensorFrameID: "lidar", BaseTimestampNsec: 0, Points: []PointXYZT{{X: 3, OffsetTimeNsec: 0}, {X: 3, OffsetTimeNsec: 1000}}})

	buf := fakeTransformBuffer{pose: Identity3D(), blockedTimes: map[int64]bool{0: true}}
	q.ProcessQueue(buf)

	if got := q.Len(); got != 0 {
		t.Fatalf("Len() after exceeding MaxWaitForPose = %d, want 0 (dropped)", got)
	}
}
