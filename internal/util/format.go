package util

import (
	"fmt"
	"time"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// FormatSize renders a byte count with binary units, e.g. "9.54 MB".
// Whole values drop the decimals.
func FormatSize(size uint64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	exp := 0
	div := uint64(1)
	for size/div >= unit && exp < len(sizeUnits)-1 {
		div *= unit
		exp++
	}

	if size%div == 0 {
		return fmt.Sprintf("%d %s", size/div, sizeUnits[exp])
	}
	return fmt.Sprintf("%.2f %s", float64(size)/float64(div), sizeUnits[exp])
}

var speedUnits = []string{"bit/s", "Kbit/s", "Mbit/s", "Gbit/s", "Tbit/s"}

// FormatSpeed renders a rate given in megabits per second with the largest
// decimal unit that keeps the value at or above 1.
func FormatSpeed(mbps float64) string {
	if mbps <= 0 {
		return "0 bit/s"
	}
	bits := mbps * 1_000_000
	exp := 0
	for bits >= 1000 && exp < len(speedUnits)-1 {
		bits /= 1000
		exp++
	}
	return fmt.Sprintf("%.2f %s", bits, speedUnits[exp])
}

// FormatSeconds renders a duration in seconds with millisecond precision.
func FormatSeconds(seconds float64) string {
	return fmt.Sprintf("%.3f s", seconds)
}

// FormatDuration is FormatSeconds for a time.Duration.
func FormatDuration(d time.Duration) string {
	return FormatSeconds(d.Seconds())
}

// FormatPercent renders a percentage with two decimals, or "-" when absent.
func FormatPercent(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", *p)
}
