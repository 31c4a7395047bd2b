package stats

import "math"

// Summary aggregates the successful results of one protocol in a round.
// It is a display aid; the per-connection results stay authoritative.
type Summary struct {
	Protocol    Protocol
	Transfers   int
	Failed      int
	MaxMbps     float64
	MinMbps     float64
	AverageMbps float64
	// AverageLoss is nil for TCP.
	AverageLoss *float64
}

// Summarize groups results by protocol. Protocols with no results are omitted.
func Summarize(results []Result) []Summary {
	var summaries []Summary
	for _, proto := range []Protocol{UDP, TCP} {
		s := Summary{Protocol: proto, MinMbps: math.MaxFloat64}
		var speedSum, lossSum float64
		var lossCount int
		for _, r := range results {
			if r.Protocol != proto {
				continue
			}
			s.Transfers++
			if r.Err != nil {
				s.Failed++
				continue
			}
			speedSum += r.MegabitsPerSecond
			s.MaxMbps = math.Max(s.MaxMbps, r.MegabitsPerSecond)
			s.MinMbps = math.Min(s.MinMbps, r.MegabitsPerSecond)
			if r.LossPercent != nil {
				lossSum += *r.LossPercent
				lossCount++
			}
		}
		if s.Transfers == 0 {
			continue
		}
		succeeded := s.Transfers - s.Failed
		if succeeded == 0 {
			s.MinMbps = 0
		} else {
			s.AverageMbps = speedSum / float64(succeeded)
		}
		if lossCount > 0 {
			avg := lossSum / float64(lossCount)
			s.AverageLoss = &avg
		}
		summaries = append(summaries, s)
	}
	return summaries
}
