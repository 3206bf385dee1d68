// Package timecalc holds the delay and duration arithmetic used by clock
// actions and monitor jobs. Every function takes the current time as an
// argument; nothing here reads the wall clock.
package timecalc

import (
	"time"

	"github.com/vprep/preparator-backend-go/internal/domain/schedule"
)

type Punctuality string

const (
	OnTime Punctuality = "on_time"
	Late   Punctuality = "late"
)

// BreakWindow is a break interval. A nil End means the break is in progress.
type BreakWindow struct {
	Start time.Time
	End   *time.Time
}

// DateOf returns the calendar date of t, in t's location, as midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Minutes floors d to whole minutes, clamping negatives to zero.
func Minutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// DelayMinutes returns whole minutes actual is past scheduled, floored at zero.
func DelayMinutes(scheduled, actual time.Time) int {
	return Minutes(actual.Sub(scheduled))
}

// LateStartMinutes returns how late now is relative to the schedule start.
// The schedule clock is resolved in now's location. A nil or unparsable
// schedule yields 0.
func LateStartMinutes(s *schedule.Schedule, now time.Time) int {
	if s == nil {
		return 0
	}
	start, err := s.StartAt(now.Location())
	if err != nil {
		return 0
	}
	return DelayMinutes(start, now)
}

// ElapsedMinutes returns now - start minus the overlap with every break
// window. In-progress breaks count up to now.
func ElapsedMinutes(start, now time.Time, breaks []BreakWindow) int {
	if !now.After(start) {
		return 0
	}
	elapsed := now.Sub(start)
	for _, b := range breaks {
		end := now
		if b.End != nil && b.End.Before(now) {
			end = *b.End
		}
		bs := b.Start
		if bs.Before(start) {
			bs = start
		}
		if end.After(bs) {
			elapsed -= end.Sub(bs)
		}
	}
	return Minutes(elapsed)
}

// IsOvertime reports whether at least threshold minutes elapsed since start.
func IsOvertime(start, now time.Time, thresholdMinutes int) bool {
	return ElapsedMinutes(start, now, nil) >= thresholdMinutes
}

func ClassifyPunctuality(delayMinutes, lateThreshold int) Punctuality {
	if delayMinutes >= lateThreshold {
		return Late
	}
	return OnTime
}

// BreakMinutes returns the length of a completed break, 0 otherwise.
func BreakMinutes(start, end *time.Time) int {
	if start == nil || end == nil {
		return 0
	}
	return Minutes(end.Sub(*start))
}

// WorkedMinutes is the span start..end minus breakMinutes.
func WorkedMinutes(start, end time.Time, breakMinutes int) int {
	worked := Minutes(end.Sub(start)) - breakMinutes
	if worked < 0 {
		return 0
	}
	return worked
}

// IsOnTime reports whether a task finished within threshold minutes (inclusive).
func IsOnTime(totalMinutes, thresholdMinutes int) bool {
	return totalMinutes <= thresholdMinutes
}
