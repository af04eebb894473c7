package view

import "fmt"

// FormatClock renders milliseconds as mm:ss, floored to whole seconds and
// clamped at zero.
func FormatClock(ms int64) string {
	s := ms / 1000
	if s < 0 || ms < 0 {
		s = 0
	}
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}
