package pool

import (
	"sort"
	"time"
)

// DeviceStats summarizes the successful work done by one device.
type DeviceStats struct {
	Count       int
	AvgDuration time.Duration
}

// Failure records one failed task for the report.
type Failure struct {
	TaskID   string
	DeviceID int
	Err      error
}

// Stats is the informational summary of a batch. It never affects the
// returned Outcome set.
type Stats struct {
	Strategy  Strategy
	Total     int
	Succeeded int
	Failed    int

	// PerDevice covers successful outcomes only.
	PerDevice map[int]DeviceStats

	Failures []Failure
}

// Aggregate restores submission order and computes summary statistics.
//
// The comparator is the submission index, ascending; synthetic outcomes
// carry index -1 and therefore sort ahead of the batch. The sort is
// stable, so identical input always yields identical order.
func Aggregate(outcomes []Outcome) ([]Outcome, Stats) {
	ordered := make([]Outcome, len(outcomes))
	copy(ordered, outcomes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})

	stats := Stats{
		Total:     len(ordered),
		PerDevice: make(map[int]DeviceStats),
	}

	totals := make(map[int]time.Duration)
	for _, out := range ordered {
		if !out.Success() {
			stats.Failed++
			stats.Failures = append(stats.Failures, Failure{
				TaskID:   out.TaskID,
				DeviceID: out.DeviceID,
				Err:      out.Err,
			})
			continue
		}

		stats.Succeeded++
		ds := stats.PerDevice[out.DeviceID]
		ds.Count++
		stats.PerDevice[out.DeviceID] = ds
		totals[out.DeviceID] += out.Duration
	}

	for id, ds := range stats.PerDevice {
		ds.AvgDuration = totals[id] / time.Duration(ds.Count)
		stats.PerDevice[id] = ds
	}

	return ordered, stats
}
