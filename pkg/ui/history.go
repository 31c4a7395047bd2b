package ui

import (
	"strings"

	"github.com/NoaS100/NetworkSpeedTest/pkg/stats"
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// speedHistory keeps the average speed of the last rounds per protocol.
type speedHistory struct {
	limit  int
	values map[stats.Protocol][]float64
}

func newSpeedHistory(limit int) *speedHistory {
	return &speedHistory{limit: limit, values: make(map[stats.Protocol][]float64)}
}

func (h *speedHistory) add(summaries []stats.Summary) {
	for _, s := range summaries {
		if s.Transfers == s.Failed {
			continue
		}
		v := append(h.values[s.Protocol], s.AverageMbps)
		if len(v) > h.limit {
			v = v[len(v)-h.limit:]
		}
		h.values[s.Protocol] = v
	}
}

// sparkline renders one character per round, scaled between the lowest and
// highest value seen.
func (h *speedHistory) sparkline(p stats.Protocol) string {
	values := h.values[p]
	if len(values) == 0 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	var b strings.Builder
	for _, v := range values {
		idx := len(sparkChars) / 2
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkChars)-1))
		}
		b.WriteRune(sparkChars[idx])
	}
	return b.String()
}
