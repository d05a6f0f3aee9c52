package core

import (
	"fmt"
	"time"
)

// FormatClock renders a position or duration as minutes:seconds.
// Minutes do not roll over into hours, so a full hour reads "60:00".
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatClockRange renders "position / duration" for transport displays.
func FormatClockRange(position, duration time.Duration) string {
	return FormatClock(position) + " / " + FormatClock(duration)
}
