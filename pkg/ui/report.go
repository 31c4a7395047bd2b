package ui

import (
	"fmt"

	"github.com/NoaS100/NetworkSpeedTest/internal/util"
	"github.com/NoaS100/NetworkSpeedTest/pkg/stats"
)

var reportHeader = []string{"Transfer", "Speed", "Time", "Received", "Loss", "Status"}

func transferName(r stats.Result) string {
	return fmt.Sprintf("%s #%d", r.Protocol, r.Index)
}

// resultRow renders one report record as table cells.
func resultRow(r stats.Result) []string {
	status := "ok"
	if r.Err != nil {
		status = "failed: " + r.Err.Error()
	}
	return []string{
		transferName(r),
		util.FormatSpeed(r.MegabitsPerSecond),
		util.FormatSeconds(r.ElapsedSeconds),
		util.FormatSize(r.BytesReceived),
		util.FormatPercent(r.LossPercent),
		status,
	}
}

// resultSentence is the one-line form printed by the plain renderer.
func resultSentence(r stats.Result) string {
	s := fmt.Sprintf("%s transfer #%d finished, total time: %s, total speed: %s",
		r.Protocol, r.Index, util.FormatSeconds(r.ElapsedSeconds), util.FormatSpeed(r.MegabitsPerSecond))
	if r.LossPercent != nil {
		s += fmt.Sprintf(", packets received: %s", util.FormatPercent(ptr(100-*r.LossPercent)))
	}
	if r.Err != nil {
		s += fmt.Sprintf(" (failed: %v)", r.Err)
	}
	return s
}

func summaryLine(s stats.Summary) string {
	line := fmt.Sprintf("%s: %d transfer(s)", s.Protocol, s.Transfers)
	if s.Failed > 0 {
		line += fmt.Sprintf(", %d failed", s.Failed)
	}
	if s.Transfers > s.Failed {
		line += fmt.Sprintf(", avg %s, min %s, max %s",
			util.FormatSpeed(s.AverageMbps), util.FormatSpeed(s.MinMbps), util.FormatSpeed(s.MaxMbps))
	}
	if s.AverageLoss != nil {
		line += fmt.Sprintf(", avg loss %s", util.FormatPercent(s.AverageLoss))
	}
	return line
}

func ptr[T any](v T) *T { return &v }
