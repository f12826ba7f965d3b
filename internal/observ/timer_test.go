package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	load := tm.Begin("load")
	time.Sleep(time.Millisecond)
	tm.End(load, "1 file")
	build := tm.Begin("build")
	tm.End(build, "")
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("phases = %d, want 2", len(r.Phases))
	}
	if r.Phases[0].Name != "load" || r.Phases[0].Note != "1 file" {
		t.Fatalf("first phase = %+v", r.Phases[0])
	}
	if r.Phases[0].DurationMS <= 0 {
		t.Fatalf("load duration = %v", r.Phases[0].DurationMS)
	}
	if r.TotalMS < r.Phases[0].DurationMS {
		t.Fatalf("total %v < load %v", r.TotalMS, r.Phases[0].DurationMS)
	}

	s := tm.Summary()
	for _, want := range []string{"timings:", "load", "// 1 file", "total"} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary missing %q:\n%s", want, s)
		}
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	idx := tm.Begin("x")
	tm.End(idx, "")
	if r := tm.Report(); len(r.Phases) != 0 || r.TotalMS != 0 {
		t.Fatalf("nil timer report = %+v", r)
	}
}
