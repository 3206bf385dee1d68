package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vprep/preparator-backend-go/internal/domain/schedule"
	"github.com/vprep/preparator-backend-go/internal/domain/timesheet"
	"github.com/vprep/preparator-backend-go/internal/pkg/validator"
	"github.com/vprep/preparator-backend-go/internal/repository/memory"
)

type fixture struct {
	svc   timesheet.TimesheetService
	store *memory.Store
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	f := &fixture{store: memory.NewStore(), now: time.Date(2025, 1, 15, 8, 16, 0, 0, paris)}
	breakStart, breakEnd := "12:00", "12:30"
	_, err = f.store.Schedules().Create(context.Background(), schedule.Schedule{
		WorkerID:   "w1",
		AgencyID:   "a1",
		Date:       time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		StartTime:  "08:00",
		EndTime:    "16:00",
		BreakStart: &breakStart,
		BreakEnd:   &breakEnd,
	})
	require.NoError(t, err)

	f.svc = NewTimesheetService(f.store.Timesheets(), f.store.Schedules(), paris, func() time.Time { return f.now })
	return f
}

var req = timesheet.ClockRequest{WorkerID: "w1", AgencyID: "a1"}

func TestClockIn_ComputesStartDelay(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.ClockIn(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 16, res.Delays.StartDelay)
	assert.Equal(t, timesheet.StateClockedIn, res.State)
	assert.Equal(t, "2025-01-15", res.Date)
	require.NotNil(t, res.ScheduleID)

	_, err = f.svc.ClockIn(context.Background(), req)
	assert.ErrorIs(t, err, timesheet.ErrAlreadyClockedIn)
}

func TestFullDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.now = f.now.Add(-16 * time.Minute) // 08:00
	_, err := f.svc.ClockIn(ctx, req)
	require.NoError(t, err)

	f.now = f.now.Add(4*time.Hour + 5*time.Minute) // 12:05
	res, err := f.svc.StartBreak(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Delays.BreakStartDelay)
	assert.Equal(t, timesheet.StateOnBreak, res.State)

	f.now = f.now.Add(40 * time.Minute) // 12:45
	res, err = f.svc.EndBreak(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 15, res.Delays.BreakEndDelay)

	f.now = f.now.Add(3*time.Hour + 25*time.Minute) // 16:10
	res, err = f.svc.ClockOut(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusComplete, res.Status)
	assert.Equal(t, 40, res.TotalBreakMinutes)
	assert.Equal(t, 8*60+10-40, res.TotalWorkedMinutes)
	assert.Equal(t, 10, res.Delays.EndDelay)

	_, err = f.svc.ClockOut(ctx, req)
	assert.ErrorIs(t, err, timesheet.ErrAlreadyClockedOut)
}

func TestRejectsOutOfOrderActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.StartBreak(ctx, req)
	assert.ErrorIs(t, err, timesheet.ErrNotClockedIn)
	_, err = f.svc.ClockOut(ctx, req)
	assert.ErrorIs(t, err, timesheet.ErrNotClockedIn)

	_, err = f.svc.ClockIn(ctx, req)
	require.NoError(t, err)
	_, err = f.svc.EndBreak(ctx, req)
	assert.ErrorIs(t, err, timesheet.ErrBreakNotStarted)
}

func TestClockOut_AfterMidnightClosesYesterday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.now = time.Date(2025, 1, 15, 22, 0, 0, 0, f.now.Location())
	_, err := f.svc.ClockIn(ctx, req)
	require.NoError(t, err)

	f.now = f.now.Add(3 * time.Hour) // 01:00 on the 16th
	res, err := f.svc.ClockOut(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-15", res.Date)
	assert.Equal(t, 180, res.TotalWorkedMinutes)
}

func TestGetToday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetToday(ctx, req)
	assert.ErrorIs(t, err, timesheet.ErrTimesheetNotFound)

	_, err = f.svc.ClockIn(ctx, req)
	require.NoError(t, err)
	res, err := f.svc.GetToday(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "w1", res.WorkerID)
}

func TestValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ClockIn(context.Background(), timesheet.ClockRequest{})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
}
