package timecalc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vprep/preparator-backend-go/internal/domain/schedule"
)

var day = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
}

func TestLateStartMinutes(t *testing.T) {
	s := &schedule.Schedule{Date: day, StartTime: "08:00"}

	for d := -30; d <= 120; d += 7 {
		now := at(8, 0).Add(time.Duration(d) * time.Minute)
		want := d
		if want < 0 {
			want = 0
		}
		assert.Equal(t, want, LateStartMinutes(s, now), "offset %d", d)
	}
}

func TestLateStartMinutes_FloorsSeconds(t *testing.T) {
	s := &schedule.Schedule{Date: day, StartTime: "08:00"}
	assert.Equal(t, 16, LateStartMinutes(s, at(8, 16).Add(59*time.Second)))
}

func TestLateStartMinutes_NoSchedule(t *testing.T) {
	assert.Equal(t, 0, LateStartMinutes(nil, at(9, 0)))
	assert.Equal(t, 0, LateStartMinutes(&schedule.Schedule{Date: day, StartTime: "bad"}, at(9, 0)))
}

func TestLateStartMinutes_UsesNowLocation(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Paris")
	s := &schedule.Schedule{Date: day, StartTime: "08:00"}
	now := time.Date(2026, 3, 10, 8, 16, 0, 0, loc)

	assert.Equal(t, 16, LateStartMinutes(s, now))
}

func TestElapsedMinutes(t *testing.T) {
	breakEnd := at(12, 30)
	cases := []struct {
		name   string
		now    time.Time
		breaks []BreakWindow
		want   int
	}{
		{"no breaks", at(10, 0), nil, 120},
		{"completed break", at(14, 0), []BreakWindow{{Start: at(12, 0), End: &breakEnd}}, 330},
		{"in-progress break", at(12, 10), []BreakWindow{{Start: at(12, 0)}}, 240},
		{"break before start is clipped", at(9, 0), []BreakWindow{{Start: at(7, 0), End: ptr(at(8, 30))}}, 30},
		{"now before start", at(7, 0), nil, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ElapsedMinutes(at(8, 0), c.now, c.breaks))
		})
	}
}

func TestIsOvertime(t *testing.T) {
	start := at(8, 0)
	assert.False(t, IsOvertime(start, start.Add(44*time.Minute), 45))
	assert.True(t, IsOvertime(start, start.Add(45*time.Minute), 45))
	assert.True(t, IsOvertime(start, start.Add(46*time.Minute), 45))
}

func TestClassifyPunctuality(t *testing.T) {
	assert.Equal(t, OnTime, ClassifyPunctuality(0, 15))
	assert.Equal(t, OnTime, ClassifyPunctuality(14, 15))
	assert.Equal(t, Late, ClassifyPunctuality(15, 15))
	assert.Equal(t, Late, ClassifyPunctuality(16, 15))
}

func TestWorkedMinutes_RoundTrip(t *testing.T) {
	start := at(8, 0)
	end := at(17, 3)
	for _, br := range [][2]time.Time{
		{at(12, 0), at(12, 45)},
		{at(10, 15), at(10, 16)},
		{at(16, 0), at(17, 0)},
	} {
		bm := BreakMinutes(&br[0], &br[1])
		got := WorkedMinutes(start, end, bm)
		assert.Equal(t, Minutes(end.Sub(start))-bm, got)
	}
	assert.Equal(t, 0, BreakMinutes(ptr(at(12, 0)), nil))
}

func TestIsOnTime_Boundary(t *testing.T) {
	assert.True(t, IsOnTime(30, 30))
	assert.False(t, IsOnTime(31, 30))
}

func TestDateOf(t *testing.T) {
	loc, _ := time.LoadLocation("Asia/Tokyo")
	local := time.Date(2026, 3, 11, 1, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), DateOf(local))
}

func ptr(t time.Time) *time.Time { return &t }
