package robot

import (
	"math"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultStatsWindow is the number of recent cycles kept for statistics.
const DefaultStatsWindow = 500

// Stats accumulates cycle timing. Recording happens on the control thread;
// snapshots may be taken from any goroutine.
type Stats struct {
	mu sync.Mutex

	cycles   uint64
	overruns uint64

	// ring buffers, in seconds
	periods    []float64
	kinematics []float64
	next       int
	filled     bool
}

// StatsSnapshot is a point-in-time view of cycle timing.
type StatsSnapshot struct {
	Cycles   uint64 `json:"cycles"`
	Overruns uint64 `json:"overruns"`

	MeanPeriod      time.Duration `json:"mean_period_ns"`
	StdDevPeriod    time.Duration `json:"stddev_period_ns"`
	MeanKinematics  time.Duration `json:"mean_kinematics_ns"`
	P99Kinematics   time.Duration `json:"p99_kinematics_ns"`
	MaxKinematics   time.Duration `json:"max_kinematics_ns"`
	WindowedSamples int           `json:"windowed_samples"`
}

// NewStats creates a collector over the last window cycles.
func NewStats(window int) *Stats {
	if window <= 0 {
		window = DefaultStatsWindow
	}
	return &Stats{
		periods:    make([]float64, window),
		kinematics: make([]float64, window),
	}
}

func (s *Stats) record(period, kinematics time.Duration, overrun bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cycles++
	if overrun {
		s.overruns++
	}
	s.periods[s.next] = period.Seconds()
	s.kinematics[s.next] = kinematics.Seconds()
	s.next++
	if s.next == len(s.periods) {
		s.next = 0
		s.filled = true
	}
}

// Snapshot computes statistics over the current window.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	n := s.next
	if s.filled {
		n = len(s.periods)
	}
	periods := append([]float64(nil), s.periods[:n]...)
	kin := append([]float64(nil), s.kinematics[:n]...)
	snap := StatsSnapshot{
		Cycles:          s.cycles,
		Overruns:        s.overruns,
		WindowedSamples: n,
	}
	s.mu.Unlock()

	if n == 0 {
		return snap
	}

	snap.MeanPeriod = seconds(stat.Mean(periods, nil))
	if n > 1 {
		snap.StdDevPeriod = seconds(stat.StdDev(periods, nil))
	}
	snap.MeanKinematics = seconds(stat.Mean(kin, nil))
	snap.MaxKinematics = seconds(floats.Max(kin))

	sort.Float64s(kin)
	snap.P99Kinematics = seconds(stat.Quantile(0.99, stat.Empirical, kin, nil))
	return snap
}

func seconds(v float64) time.Duration {
	return time.Duration(math.Round(v * float64(time.Second)))
}
