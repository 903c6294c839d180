package engine

import (
	"time"

	"gannet/internal/board"
)

// Limits are the constraints of one `go` command.
type Limits struct {
	Time        [2]time.Duration // remaining time per color
	Inc         [2]time.Duration // increment per move
	MovesToGo   int              // moves to the next time control, 0 = sudden death
	MoveTime    time.Duration    // fixed time for this move
	Depth       int              // fixed depth
	Nodes       uint64           // node budget
	Mate        int              // search for mate in N
	Infinite    bool
	Ponder      bool
	SearchMoves []board.Move // restrict the root to these
}

// UseTimeManagement reports whether the clock, rather than an explicit
// depth/node/movetime bound, decides when to stop.
func (l *Limits) UseTimeManagement() bool {
	return !l.Infinite && l.MoveTime == 0 && l.Depth == 0 && l.Nodes == 0 &&
		(l.Time[board.White] > 0 || l.Time[board.Black] > 0)
}

// TimeManager turns the clock situation into two budgets: optimum,
// the point after which no new iteration starts when the search is
// stable, and maximum, the hard cap enforced mid-iteration.
type TimeManager struct {
	startTime time.Time
	optimum   time.Duration
	maximum   time.Duration
	active    bool // clock-driven: soft and hard budgets both apply
	fixed     bool // movetime: only the hard cap applies
}

// Init computes the budgets for the side to move at the given game
// ply. overhead is subtracted per move to absorb protocol latency.
func (tm *TimeManager) Init(limits *Limits, us board.Color, ply int, overhead time.Duration) {
	tm.startTime = time.Now()
	tm.active = limits.UseTimeManagement()
	tm.fixed = limits.MoveTime > 0

	if tm.fixed {
		tm.optimum = limits.MoveTime
		tm.maximum = limits.MoveTime
		return
	}
	if !tm.active {
		tm.optimum = 0
		tm.maximum = 0
		return
	}

	timeLeft := limits.Time[us] - overhead
	if timeLeft < time.Millisecond {
		timeLeft = time.Millisecond
	}
	inc := limits.Inc[us]

	mtg := limits.MovesToGo
	if mtg == 0 {
		// Sudden death: assume fewer moves remain as the game ages.
		mtg = clamp(50-ply/4, 12, 50)
	}

	base := timeLeft/time.Duration(mtg) + inc*3/4
	tm.optimum = base

	// Hard cap: several optima, but never a large share of the clock.
	tm.maximum = base * 5
	if hard := timeLeft * 8 / 10; tm.maximum > hard {
		tm.maximum = hard
	}
	if tm.optimum > tm.maximum {
		tm.optimum = tm.maximum
	}
	if tm.optimum < 5*time.Millisecond {
		tm.optimum = 5 * time.Millisecond
	}
	if tm.maximum < 10*time.Millisecond {
		tm.maximum = 10 * time.Millisecond
	}
}

func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// Maximum is the hard cap; zero when no clock governs the search.
func (tm *TimeManager) Maximum() time.Duration { return tm.maximum }

// Optimum is the soft target.
func (tm *TimeManager) Optimum() time.Duration { return tm.optimum }

// ShouldStop enforces the hard cap.
func (tm *TimeManager) ShouldStop() bool {
	return (tm.active || tm.fixed) && tm.Elapsed() >= tm.maximum
}

// PastOptimum applies a scale to the soft target: above 1 when the
// best move keeps changing or the score is falling, below 1 when the
// choice has been stable for several iterations.
func (tm *TimeManager) PastOptimum(scale float64) bool {
	if !tm.active {
		return false
	}
	budget := time.Duration(float64(tm.optimum) * scale)
	if budget > tm.maximum {
		budget = tm.maximum
	}
	return tm.Elapsed() >= budget
}
