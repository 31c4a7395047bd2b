package util

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name     string
		size     uint64
		expected string
	}{
		{"Zero bytes", 0, "0 B"},
		{"Below one kilobyte", 1023, "1023 B"},
		{"Exact kilobyte", 1024, "1 KB"},
		{"Fractional kilobyte", 1536, "1.50 KB"},
		{"Ten megabytes decimal", 10_000_000, "9.54 MB"},
		{"Exact gigabyte", 1 << 30, "1 GB"},
		{"Max uint64", ^uint64(0), "16.00 EB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatSize(tt.size))
		})
	}
}

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		name     string
		mbps     float64
		expected string
	}{
		{"Zero", 0, "0 bit/s"},
		{"Negative", -3, "0 bit/s"},
		{"Bits", 0.0005, "500.00 bit/s"},
		{"Kilobits", 0.25, "250.00 Kbit/s"},
		{"Megabits", 8, "8.00 Mbit/s"},
		{"Gigabits", 2500, "2.50 Gbit/s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatSpeed(tt.mbps))
		})
	}
}

func TestFormatTimeAndPercent(t *testing.T) {
	assert.Equal(t, "1.500 s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "0.000 s", FormatSeconds(0))

	loss := 33.3333
	assert.Equal(t, "33.33%", FormatPercent(&loss))
	assert.Equal(t, "-", FormatPercent(nil))
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		name     string
		str      string
		width    int
		expected string
	}{
		{"Empty string", "", 5, "     "},
		{"Short string", "abc", 10, "abc       "},
		{"Exact width", "hello", 5, "hello"},
		{"Truncated", "hello world", 10, "hello w..."},
		{"Wide characters", "你好", 8, "你好    "},
		{"Mixed characters", "hello世界", 12, "hello世界   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PadRight(tt.str, tt.width))
		})
	}
}

func TestPadLeft(t *testing.T) {
	assert.Equal(t, "   42", PadLeft("42", 5))
	assert.Equal(t, "12345", PadLeft("12345", 3))
	assert.Equal(t, "  世界", PadLeft("世界", 6))
}

func TestColumns(t *testing.T) {
	lines := Columns([][]string{
		{"UDP #1", "8.00 Mbit/s", "0.00%"},
		{"TCP #10", "950.12 Mbit/s", "-"},
	}, 1, 2)

	assert.Equal(t, []string{
		"UDP #1     8.00 Mbit/s  0.00%",
		"TCP #10  950.12 Mbit/s      -",
	}, lines)

	for _, l := range lines {
		assert.False(t, strings.HasSuffix(l, " "))
	}
}

func TestLocalIPv4(t *testing.T) {
	ip := LocalIPv4()
	if ip == nil {
		t.Skip("no non-loopback IPv4 interface")
	}
	assert.NotNil(t, ip.To4())
	assert.False(t, ip.IsLoopback())
}
