package occumap

import "testing"

func TestBucketQueueEmptyInitially(t *testing.T) {
	q := NewBucketQueue(4, 2.0)
	if !q.Empty() {
		t.Fatalf("fresh BucketQueue reports non-empty")
	}
}

func TestBucketQueuePushPopFIFOWithinBucket(t *testing.T) {
	q := NewBucketQueue(2, 2.0) // bucket width 1.0
	q.Push(0.1, Index3{1, 0, 0})
	q.Push(0.2, Index3{2, 0, 0})

	var got []Index3
	for !q.Empty() {
		got = append(got, q.Front())
		q.Pop()
	}
	want := []Index3{{1, 0, 0}, {2, 0, 0}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("drain order = %+v, want %+v", got, want)
	}
}

func TestBucketQueueOrdersByBucketNotInsertionOrder(t *testing.T) {
	q := NewBucketQueue(4, 4.0) // bucket width 1.0
	q.Push(3.5, Index3{9, 0, 0})
	q.Push(0.5, Index3{1, 0, 0})
	q.Push(1.5, Index3{2, 0, 0})

	var order []F
	for !q.Empty() {
		idx := q.Front()
		q.Pop()
		switch idx {
		case Index3{9, 0, 0}:
			order = append(order, 3.5)
		case Index3{1, 0, 0}:
			order = append(order, 0.5)
		case Index3{2, 0, 0}:
			order = append(order, 1.5)
		}
	}
	for i := 1; i < len(order); i++ {
		if order[i] < order[i-1] {
			t.Fatalf("BucketQueue drained out of priority order: %v", order)
		}
	}
}

func TestBucketQueueClampsOutOfRangePriority(t *testing.T) {
	q := NewBucketQueue(2, 1.0)
	q.Push(1000, Index3{7, 7, 7})
	if q.Empty() {
		t.Fatalf("queue empty after pushing an out-of-range priority")
	}
	if got := q.Front(); got != (Index3{7, 7, 7}) {
		t.Fatalf("Front() = %+v, want {7,7,7}", got)
	}
}
