package cron

import (
	"fmt"
	"time"
)

// Trigger decides when a job runs next.
type Trigger interface {
	Next(now time.Time) time.Time
	String() string
}

// Every fires at a fixed interval. Jobs with an Every trigger also run once
// as soon as they are started.
type Every time.Duration

func (e Every) Next(now time.Time) time.Time {
	return now.Add(time.Duration(e))
}

func (e Every) String() string {
	return "every " + time.Duration(e).String()
}

// DailyAt fires once a day at Hour:Minute in Location.
type DailyAt struct {
	Hour     int
	Minute   int
	Location *time.Location
}

func (d DailyAt) Next(now time.Time) time.Time {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.Hour, d.Minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, d.Hour, d.Minute, 0, 0, loc)
	}
	return next
}

func (d DailyAt) String() string {
	loc := "UTC"
	if d.Location != nil {
		loc = d.Location.String()
	}
	return fmt.Sprintf("daily at %02d:%02d %s", d.Hour, d.Minute, loc)
}
