package timesheet

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/vprep/preparator-backend-go/internal/domain/schedule"
	"github.com/vprep/preparator-backend-go/internal/pkg/timecalc"
)

type State string

const (
	StateNotStarted State = "not_started"
	StateClockedIn  State = "clocked_in"
	StateOnBreak    State = "on_break"
	StateClockedOut State = "clocked_out"
)

type Event string

const (
	EventClockIn    Event = "clock_in"
	EventBreakStart Event = "break_start"
	EventBreakEnd   Event = "break_end"
	EventClockOut   Event = "clock_out"
)

type lifecycleContext struct {
	TimesheetID string
}

// lifecycle wraps a statekit interpreter positioned at the timesheet's
// current state.
type lifecycle struct {
	interpreter *statekit.Interpreter[lifecycleContext]
}

func newLifecycle(initial State, timesheetID string) (*lifecycle, error) {
	builder := statekit.NewMachine[lifecycleContext]("timesheet-lifecycle").
		WithInitial(statekit.StateID(initial)).
		WithContext(lifecycleContext{TimesheetID: timesheetID})

	builder.State(statekit.StateID(StateNotStarted)).
		On(statekit.EventType(EventClockIn)).Target(statekit.StateID(StateClockedIn)).
		Done()

	builder.State(statekit.StateID(StateClockedIn)).
		On(statekit.EventType(EventBreakStart)).Target(statekit.StateID(StateOnBreak)).
		On(statekit.EventType(EventClockOut)).Target(statekit.StateID(StateClockedOut)).
		Done()

	// Clocking out during a break closes the break at the clock-out time.
	builder.State(statekit.StateID(StateOnBreak)).
		On(statekit.EventType(EventBreakEnd)).Target(statekit.StateID(StateClockedIn)).
		On(statekit.EventType(EventClockOut)).Target(statekit.StateID(StateClockedOut)).
		Done()

	builder.State(statekit.StateID(StateClockedOut)).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build timesheet lifecycle: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &lifecycle{interpreter: interpreter}, nil
}

func (l *lifecycle) current() State {
	return State(l.interpreter.State().Value)
}

// fire sends e and reports whether the machine moved.
func (l *lifecycle) fire(e Event) bool {
	before := l.current()
	l.interpreter.Send(statekit.Event{Type: statekit.EventType(e)})
	return l.current() != before
}

// rejection maps a refused event to the domain error for the state.
func rejection(s State, e Event) error {
	switch e {
	case EventClockIn:
		return ErrAlreadyClockedIn
	case EventBreakStart:
		switch s {
		case StateOnBreak:
			return ErrBreakAlreadyStarted
		case StateClockedOut:
			return ErrAlreadyClockedOut
		}
		return ErrNotClockedIn
	case EventBreakEnd:
		switch s {
		case StateClockedIn:
			return ErrBreakNotStarted
		case StateClockedOut:
			return ErrAlreadyClockedOut
		}
		return ErrNotClockedIn
	case EventClockOut:
		if s == StateClockedOut {
			return ErrAlreadyClockedOut
		}
		return ErrNotClockedIn
	}
	return fmt.Errorf("unknown timesheet event %q", e)
}

func (t *Timesheet) transition(e Event) error {
	state := t.State()
	lc, err := newLifecycle(state, t.ID)
	if err != nil {
		return err
	}
	if !lc.fire(e) {
		return rejection(state, e)
	}
	return nil
}

// ClockIn records the start of the shift and its delay against sched.
func (t *Timesheet) ClockIn(now time.Time, sched *schedule.Schedule) error {
	if err := t.transition(EventClockIn); err != nil {
		return err
	}
	t.StartTime = &now
	if sched != nil {
		id := sched.ID
		t.ScheduleID = &id
	}
	t.Delays.Start = timecalc.LateStartMinutes(sched, now)
	t.Status = StatusIncomplete
	return nil
}

// StartBreak opens the day's break. Only one break per timesheet.
func (t *Timesheet) StartBreak(now time.Time, sched *schedule.Schedule) error {
	if t.State() == StateClockedIn && t.BreakStart != nil {
		return ErrBreakAlreadyStarted
	}
	if t.StartTime != nil && now.Before(*t.StartTime) {
		return ErrInvalidBreakWindow
	}
	if err := t.transition(EventBreakStart); err != nil {
		return err
	}
	t.BreakStart = &now
	if sched != nil {
		if plannedStart, _, ok := sched.BreakWindow(now.Location()); ok {
			t.Delays.BreakStart = timecalc.DelayMinutes(plannedStart, now)
		}
	}
	return nil
}

func (t *Timesheet) EndBreak(now time.Time, sched *schedule.Schedule) error {
	if t.State() == StateOnBreak && !now.After(*t.BreakStart) {
		return ErrInvalidBreakWindow
	}
	if err := t.transition(EventBreakEnd); err != nil {
		return err
	}
	t.closeBreak(now, sched)
	return nil
}

// ClockOut closes the shift and computes totals.
func (t *Timesheet) ClockOut(now time.Time, sched *schedule.Schedule) error {
	state := t.State()
	if (state == StateClockedIn || state == StateOnBreak) && !now.After(*t.StartTime) {
		return ErrInvalidClockOut
	}
	if err := t.transition(EventClockOut); err != nil {
		return err
	}
	if state == StateOnBreak {
		if now.After(*t.BreakStart) {
			t.closeBreak(now, sched)
		} else {
			t.BreakStart = nil
		}
	}

	t.EndTime = &now
	t.TotalBreakMinutes = timecalc.BreakMinutes(t.BreakStart, t.BreakEnd)
	t.TotalWorkedMinutes = timecalc.WorkedMinutes(*t.StartTime, now, t.TotalBreakMinutes)
	if sched != nil {
		if end, err := sched.EndAt(now.Location()); err == nil {
			t.Delays.End = timecalc.DelayMinutes(end, now)
		}
	}
	t.Status = StatusComplete
	return nil
}

func (t *Timesheet) closeBreak(now time.Time, sched *schedule.Schedule) {
	t.BreakEnd = &now
	t.TotalBreakMinutes = timecalc.BreakMinutes(t.BreakStart, t.BreakEnd)
	if sched != nil {
		if _, plannedEnd, ok := sched.BreakWindow(now.Location()); ok {
			t.Delays.BreakEnd = timecalc.DelayMinutes(plannedEnd, now)
		}
	}
}
