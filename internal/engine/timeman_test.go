package engine

import (
	"testing"
	"time"

	"gannet/internal/board"
)

func TestUseTimeManagement(t *testing.T) {
	cases := []struct {
		name   string
		limits Limits
		want   bool
	}{
		{"clock", Limits{Time: [2]time.Duration{time.Minute, time.Minute}}, true},
		{"depth", Limits{Depth: 10}, false},
		{"nodes", Limits{Nodes: 1000}, false},
		{"movetime", Limits{MoveTime: time.Second}, false},
		{"infinite", Limits{Infinite: true}, false},
		{"clock and depth", Limits{Time: [2]time.Duration{time.Minute, 0}, Depth: 5}, false},
	}
	for _, c := range cases {
		if got := c.limits.UseTimeManagement(); got != c.want {
			t.Errorf("%s: UseTimeManagement = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestMoveTimeBudgets(t *testing.T) {
	var tm TimeManager
	limits := Limits{MoveTime: 750 * time.Millisecond}
	tm.Init(&limits, board.White, 0, 30*time.Millisecond)
	if tm.Optimum() != limits.MoveTime || tm.Maximum() != limits.MoveTime {
		t.Errorf("movetime budgets = %v/%v, want both %v",
			tm.Optimum(), tm.Maximum(), limits.MoveTime)
	}

	// movetime is a hard cap but not a soft one: the search runs the
	// full allotment and is then cut.
	if tm.ShouldStop() || tm.PastOptimum(0.1) {
		t.Error("movetime search stopped early")
	}
	tm.startTime = time.Now().Add(-limits.MoveTime - time.Millisecond)
	if !tm.ShouldStop() {
		t.Error("movetime cap not enforced")
	}
	if tm.PastOptimum(0.1) {
		t.Error("soft budget applied to a movetime search")
	}
}

func TestClockBudgets(t *testing.T) {
	var tm TimeManager
	limits := Limits{
		Time: [2]time.Duration{time.Minute, time.Minute},
		Inc:  [2]time.Duration{time.Second, time.Second},
	}
	tm.Init(&limits, board.Black, 20, 30*time.Millisecond)

	if tm.Optimum() <= 0 || tm.Maximum() <= 0 {
		t.Fatalf("budgets not set: optimum %v maximum %v", tm.Optimum(), tm.Maximum())
	}
	if tm.Optimum() > tm.Maximum() {
		t.Errorf("optimum %v exceeds maximum %v", tm.Optimum(), tm.Maximum())
	}
	if hard := limits.Time[board.Black] * 8 / 10; tm.Maximum() > hard {
		t.Errorf("maximum %v exceeds 80%% of the clock (%v)", tm.Maximum(), hard)
	}
}

// A nearly exhausted clock still yields a positive, tiny budget.
func TestLowClockStaysPositive(t *testing.T) {
	var tm TimeManager
	limits := Limits{Time: [2]time.Duration{40 * time.Millisecond, 40 * time.Millisecond}}
	tm.Init(&limits, board.White, 60, 30*time.Millisecond)
	if tm.Optimum() <= 0 || tm.Maximum() <= 0 {
		t.Errorf("budgets collapsed: optimum %v maximum %v", tm.Optimum(), tm.Maximum())
	}
}

func TestShouldStopAndPastOptimum(t *testing.T) {
	var tm TimeManager
	limits := Limits{Time: [2]time.Duration{10 * time.Second, 10 * time.Second}}
	tm.Init(&limits, board.White, 0, 0)

	if tm.ShouldStop() {
		t.Error("ShouldStop immediately after Init")
	}
	if tm.PastOptimum(1.0) {
		t.Error("PastOptimum immediately after Init")
	}

	// Rewind the start time past the hard cap.
	tm.startTime = time.Now().Add(-tm.maximum - time.Second)
	if !tm.ShouldStop() {
		t.Error("ShouldStop = false past the hard cap")
	}
	if !tm.PastOptimum(1.0) {
		t.Error("PastOptimum = false past the hard cap")
	}
}

func TestPastOptimumScaling(t *testing.T) {
	var tm TimeManager
	limits := Limits{Time: [2]time.Duration{10 * time.Second, 10 * time.Second}}
	tm.Init(&limits, board.White, 0, 0)

	// Sit just past the unscaled soft target: a stable search (scale
	// below 1) stops, an unstable one (scale above 1) continues.
	tm.startTime = time.Now().Add(-tm.optimum - 10*time.Millisecond)
	if !tm.PastOptimum(0.5) {
		t.Error("stable search did not stop past its shrunken budget")
	}
	if tm.PastOptimum(3.0) {
		t.Error("unstable search stopped despite its grown budget")
	}
}

// Fixed depth or node searches never stop on the clock.
func TestInactiveManagerNeverStops(t *testing.T) {
	var tm TimeManager
	limits := Limits{Depth: 10}
	tm.Init(&limits, board.White, 0, 0)
	tm.startTime = time.Now().Add(-time.Hour)
	if tm.ShouldStop() || tm.PastOptimum(1.0) {
		t.Error("inactive time manager stopped a search")
	}
}
