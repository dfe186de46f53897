package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// barWidth is the character width of the filled portion of the bar.
const barWidth = 40

// ProgressBar renders dataset-preparation progress as a single
// terminal line, redrawn in place on every update.
type ProgressBar struct {
	out         io.Writer
	description string
	total       int
	current     int
	startTime   time.Time
	width       int
}

// NewProgressBar returns a bar writing to out. total is the expected
// record count; pass 0 when the count is unknown (a streaming source
// reveals its length only at EOF) and the bar shows a running count
// instead of a percentage.
func NewProgressBar(out io.Writer, description string, total int) *ProgressBar {
	return &ProgressBar{
		out:         out,
		description: description,
		total:       total,
		startTime:   time.Now(),
		width:       barWidth,
	}
}

// Update redraws the bar at count records.
func (pb *ProgressBar) Update(count int) {
	pb.current = count
	pb.render()
}

// Finish draws the completed bar and moves to the next line. A bar
// started without a total adopts the final count as its total.
func (pb *ProgressBar) Finish() {
	if pb.total > 0 {
		pb.current = pb.total
	} else {
		pb.total = pb.current
	}
	pb.render()
	fmt.Fprintln(pb.out)
}

func (pb *ProgressBar) render() {
	elapsed := time.Since(pb.startTime)

	var line string
	if pb.total > 0 {
		percentage := float64(pb.current) / float64(pb.total) * 100
		filled := int(float64(pb.width) * float64(pb.current) / float64(pb.total))
		if filled > pb.width {
			filled = pb.width
		}
		bar := strings.Repeat("█", filled) + strings.Repeat(" ", pb.width-filled)

		var eta time.Duration
		if pb.current > 0 {
			eta = time.Duration(float64(elapsed) / float64(pb.current) * float64(pb.total-pb.current))
		}

		line = fmt.Sprintf("\r%s: %3.0f%%|%s| %d/%d [%s<%s",
			pb.description, percentage, bar, pb.current, pb.total,
			formatDuration(elapsed), formatDuration(eta))
	} else {
		line = fmt.Sprintf("\r%s: %d records [%s",
			pb.description, pb.current, formatDuration(elapsed))
	}

	if elapsed > 0 {
		rate := float64(pb.current) / elapsed.Seconds()
		line += fmt.Sprintf(", %.0frecords/s", rate)
	}
	line += "]"

	fmt.Fprint(pb.out, line)
}

// formatDuration renders a duration as MM:SS.
func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
