package pipeline

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// lastFrame returns the most recent carriage-return frame in buf,
// stripped of a trailing newline.
func lastFrame(t *testing.T, buf *bytes.Buffer) string {
	t.Helper()
	segments := strings.Split(buf.String(), "\r")
	if len(segments) < 2 {
		t.Fatalf("no frames rendered, output %q", buf.String())
	}
	return strings.TrimSuffix(segments[len(segments)-1], "\n")
}

func TestProgressBarKnownTotal(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgressBar(&buf, "preparing", 100)

	pb.Update(50)
	frame := lastFrame(t, &buf)
	if !strings.HasPrefix(frame, "preparing:  50%|") {
		t.Errorf("frame = %q, want prefix %q", frame, "preparing:  50%|")
	}
	if !strings.Contains(frame, "| 50/100 [") {
		t.Errorf("frame %q missing count 50/100", frame)
	}
	if got := strings.Count(frame, "█"); got != barWidth/2 {
		t.Errorf("bar filled %d cells, want %d", got, barWidth/2)
	}
	if !strings.Contains(frame, "records/s]") {
		t.Errorf("frame %q missing rate suffix", frame)
	}

	pb.Finish()
	out := buf.String()
	if !strings.HasSuffix(out, "]\n") {
		t.Errorf("output does not end the bar line, got %q", out)
	}
	frame = lastFrame(t, &buf)
	if !strings.Contains(frame, "100%|") || !strings.Contains(frame, "| 100/100 [") {
		t.Errorf("finished frame = %q, want full bar at 100/100", frame)
	}
	if got := strings.Count(frame, "█"); got != barWidth {
		t.Errorf("finished bar filled %d cells, want %d", got, barWidth)
	}
}

func TestProgressBarUnknownTotal(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgressBar(&buf, "preparing", 0)

	pb.Update(10)
	frame := lastFrame(t, &buf)
	if !strings.HasPrefix(frame, "preparing: 10 records [") {
		t.Errorf("frame = %q, want running-count form", frame)
	}
	if strings.Contains(frame, "%|") {
		t.Errorf("frame %q shows a percentage without a total", frame)
	}

	// Finish adopts the final count as the total.
	pb.Update(25)
	pb.Finish()
	frame = lastFrame(t, &buf)
	if !strings.Contains(frame, "100%|") || !strings.Contains(frame, "| 25/25 [") {
		t.Errorf("finished frame = %q, want full bar at 25/25", frame)
	}
}

func TestProgressBarOverrun(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgressBar(&buf, "preparing", 10)

	// More records than promised must not overflow the bar.
	pb.Update(15)
	frame := lastFrame(t, &buf)
	if got := strings.Count(frame, "█"); got != barWidth {
		t.Errorf("bar filled %d cells, want clamp at %d", got, barWidth)
	}
	if !strings.Contains(frame, "| 15/10 [") {
		t.Errorf("frame = %q, want true count 15/10", frame)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{5 * time.Second, "00:05"},
		{65 * time.Second, "01:05"},
		{10 * time.Minute, "10:00"},
		{125 * time.Minute, "125:00"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.d); got != tc.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
