package occumap

import "testing"

func TestNoopProfilerStartScopeIsSafeToCall(t *testing.T) {
	var p Profiler = NoopProfiler{}
	stop := p.StartScope("anything")
	stop()
}

func TestTimingProfilerAccumulatesDurationPerScope(t *testing.T) {
	p := NewTimingProfiler()
	stop := p.StartScope("phase-a")
	stop()

	d, ok := p.Durations["phase-a"]
	if !ok {
		t.Fatalf("StartScope did not record a duration for phase-a")
	}
	if d < 0 {
		t.Fatalf("recorded duration is negative: %v", d)
	}
}

func TestTimingProfilerTracksScopesIndependently(t *testing.T) {
	p := NewTimingProfiler()
	p.StartScope("a")()
	p.StartScope("b")()

	if _, ok := p.Durations["a"]; !ok {
		t.Fatalf("missing duration for scope a")
	}
	if _, ok := p.Durations["b"]; !ok {
		t.Fatalf("missing duration for scope b")
	}
}
