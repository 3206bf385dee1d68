package timesheet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vprep/preparator-backend-go/internal/domain/alert"
	"github.com/vprep/preparator-backend-go/internal/domain/schedule"
)

func clock(h, m int) time.Time {
	return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
}

func testSchedule() *schedule.Schedule {
	bs, be := "12:00", "12:30"
	return &schedule.Schedule{
		ID:         "sch-1",
		Date:       time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		StartTime:  "08:00",
		EndTime:    "16:00",
		BreakStart: &bs,
		BreakEnd:   &be,
		Status:     schedule.StatusActive,
	}
}

func newTimesheet() Timesheet {
	return New(Key{WorkerID: "w-1", AgencyID: "a-1", Date: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)})
}

func TestTimesheet_FullDay(t *testing.T) {
	ts := newTimesheet()
	sched := testSchedule()
	assert.Equal(t, StateNotStarted, ts.State())

	require.NoError(t, ts.ClockIn(clock(8, 16), sched))
	assert.Equal(t, StateClockedIn, ts.State())
	assert.Equal(t, 16, ts.Delays.Start)
	require.NotNil(t, ts.ScheduleID)
	assert.Equal(t, "sch-1", *ts.ScheduleID)

	require.NoError(t, ts.StartBreak(clock(12, 5), sched))
	assert.Equal(t, StateOnBreak, ts.State())
	assert.Equal(t, 5, ts.Delays.BreakStart)

	require.NoError(t, ts.EndBreak(clock(12, 50), sched))
	assert.Equal(t, StateClockedIn, ts.State())
	assert.Equal(t, 20, ts.Delays.BreakEnd)
	assert.Equal(t, 45, ts.TotalBreakMinutes)

	require.NoError(t, ts.ClockOut(clock(16, 10), sched))
	assert.Equal(t, StateClockedOut, ts.State())
	assert.Equal(t, StatusComplete, ts.Status)
	assert.Equal(t, 10, ts.Delays.End)
	assert.Equal(t, 474-45, ts.TotalWorkedMinutes)
}

func TestTimesheet_WorkedMinutesRoundTrip(t *testing.T) {
	breaks := []struct {
		start, end time.Time
	}{
		{clock(9, 0), clock(9, 1)},
		{clock(12, 0), clock(13, 0)},
		{clock(10, 17), clock(11, 42)},
	}
	for _, b := range breaks {
		ts := newTimesheet()
		require.NoError(t, ts.ClockIn(clock(8, 3), nil))
		require.NoError(t, ts.StartBreak(b.start, nil))
		require.NoError(t, ts.EndBreak(b.end, nil))
		require.NoError(t, ts.ClockOut(clock(17, 29), nil))

		span := int(ts.EndTime.Sub(*ts.StartTime) / time.Minute)
		assert.Equal(t, span-ts.TotalBreakMinutes, ts.TotalWorkedMinutes)
		assert.Equal(t, int(b.end.Sub(b.start)/time.Minute), ts.TotalBreakMinutes)
	}
}

func TestTimesheet_Rejections(t *testing.T) {
	t.Run("clock in twice", func(t *testing.T) {
		ts := newTimesheet()
		require.NoError(t, ts.ClockIn(clock(8, 0), nil))
		assert.ErrorIs(t, ts.ClockIn(clock(8, 5), nil), ErrAlreadyClockedIn)
	})

	t.Run("clock in after clock out", func(t *testing.T) {
		ts := newTimesheet()
		require.NoError(t, ts.ClockIn(clock(8, 0), nil))
		require.NoError(t, ts.ClockOut(clock(16, 0), nil))
		assert.ErrorIs(t, ts.ClockIn(clock(17, 0), nil), ErrAlreadyClockedIn)
	})

	t.Run("break before clock in", func(t *testing.T) {
		ts := newTimesheet()
		assert.ErrorIs(t, ts.StartBreak(clock(12, 0), nil), ErrNotClockedIn)
		assert.ErrorIs(t, ts.EndBreak(clock(12, 0), nil), ErrNotClockedIn)
	})

	t.Run("break end without start", func(t *testing.T) {
		ts := newTimesheet()
		require.NoError(t, ts.ClockIn(clock(8, 0), nil))
		assert.ErrorIs(t, ts.EndBreak(clock(12, 0), nil), ErrBreakNotStarted)
	})

	t.Run("second break", func(t *testing.T) {
		ts := newTimesheet()
		require.NoError(t, ts.ClockIn(clock(8, 0), nil))
		require.NoError(t, ts.StartBreak(clock(10, 0), nil))
		assert.ErrorIs(t, ts.StartBreak(clock(10, 5), nil), ErrBreakAlreadyStarted)
		require.NoError(t, ts.EndBreak(clock(10, 15), nil))
		assert.ErrorIs(t, ts.StartBreak(clock(14, 0), nil), ErrBreakAlreadyStarted)
	})

	t.Run("break end not after start", func(t *testing.T) {
		ts := newTimesheet()
		require.NoError(t, ts.ClockIn(clock(8, 0), nil))
		require.NoError(t, ts.StartBreak(clock(12, 0), nil))
		assert.ErrorIs(t, ts.EndBreak(clock(12, 0), nil), ErrInvalidBreakWindow)
		assert.Nil(t, ts.BreakEnd)
	})

	t.Run("clock out twice", func(t *testing.T) {
		ts := newTimesheet()
		require.NoError(t, ts.ClockIn(clock(8, 0), nil))
		require.NoError(t, ts.ClockOut(clock(16, 0), nil))
		assert.ErrorIs(t, ts.ClockOut(clock(16, 5), nil), ErrAlreadyClockedOut)
		assert.ErrorIs(t, ts.StartBreak(clock(16, 5), nil), ErrAlreadyClockedOut)
	})

	t.Run("clock out without clock in", func(t *testing.T) {
		ts := newTimesheet()
		assert.ErrorIs(t, ts.ClockOut(clock(16, 0), nil), ErrNotClockedIn)
	})

	t.Run("clock out before clock in time", func(t *testing.T) {
		ts := newTimesheet()
		require.NoError(t, ts.ClockIn(clock(8, 0), nil))
		assert.ErrorIs(t, ts.ClockOut(clock(8, 0), nil), ErrInvalidClockOut)
		assert.Nil(t, ts.EndTime)
	})
}

func TestTimesheet_ClockOutDuringBreakClosesIt(t *testing.T) {
	ts := newTimesheet()
	require.NoError(t, ts.ClockIn(clock(8, 0), nil))
	require.NoError(t, ts.StartBreak(clock(12, 0), nil))
	require.NoError(t, ts.ClockOut(clock(12, 30), nil))

	require.NotNil(t, ts.BreakEnd)
	assert.Equal(t, 30, ts.TotalBreakMinutes)
	assert.Equal(t, 240, ts.TotalWorkedMinutes)
}

func TestTimesheet_ClockInEarlyHasZeroDelay(t *testing.T) {
	ts := newTimesheet()
	require.NoError(t, ts.ClockIn(clock(7, 40), testSchedule()))
	assert.Equal(t, 0, ts.Delays.Start)
}

func TestAlertsSent(t *testing.T) {
	var a AlertsSent
	assert.False(t, a.Has(alert.TypeLateStart))

	require.NoError(t, a.Set(alert.TypeLateStart))
	require.NoError(t, a.Set(alert.TypeMissingClockOut))
	assert.True(t, a.Has(alert.TypeLateStart))
	assert.True(t, a.Has(alert.TypeMissingClockOut))
	assert.False(t, a.Has(alert.TypeLongBreak))

	assert.ErrorIs(t, a.Set(alert.TypeOvertimePreparation), alert.ErrUnknownType)
}
