package pool

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// newProgressBar builds the default per-batch progress renderer.
func newProgressBar(total int, desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
}

// barObserver adapts a progress bar to the ProgressFunc contract,
// showing the last completed task's device, id, and elapsed time.
func barObserver(bar *progressbar.ProgressBar, desc string) ProgressFunc {
	return func(deviceID int, taskID string, elapsed time.Duration, success bool) {
		if success {
			bar.Describe(fmt.Sprintf("%s [dev %d, task %.15s, %.1fs]",
				desc, deviceID, taskID, elapsed.Seconds()))
		}
		_ = bar.Add(1)
	}
}
