package pool

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

// Render writes the execution report: batch totals, individually listed
// failures, and a per-device table of successful work.
func (s Stats) Render(w io.Writer) {
	rule := strings.Repeat("=", 50)

	fmt.Fprintln(w, rule)
	_, _ = bold.Fprintf(w, "EXECUTION COMPLETE (%s)\n", strings.ToUpper(s.Strategy.String()))
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total tasks: %d\n", s.Total)
	_, _ = green.Fprintf(w, "Successful: %d\n", s.Succeeded)
	_, _ = red.Fprintf(w, "Failed: %d\n", s.Failed)

	if len(s.Failures) > 0 {
		_, _ = yellow.Fprintln(w, "Failed runs:")
		for _, f := range s.Failures {
			fmt.Fprintf(w, "  - %s: %v\n", f.TaskID, f.Err)
		}
	}

	if len(s.PerDevice) == 0 {
		return
	}

	fmt.Fprintln(w)
	_, _ = bold.Fprintln(w, "Device statistics:")

	devices := make([]int, 0, len(s.PerDevice))
	for id := range s.PerDevice {
		devices = append(devices, id)
	}
	sort.Ints(devices)

	table := tablewriter.NewWriter(w)
	table.Header("Device", "Tasks", "Avg Duration")
	for _, id := range devices {
		ds := s.PerDevice[id]
		_ = table.Append(
			strconv.Itoa(id),
			strconv.Itoa(ds.Count),
			ds.AvgDuration.Round(time.Millisecond).String(),
		)
	}
	if err := table.Render(); err != nil {
		_, _ = red.Fprintln(w, "Error in rendering device table")
	}
}
