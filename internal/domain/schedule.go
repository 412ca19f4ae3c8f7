package domain

import "time"

// NextDailyFire returns the first instant strictly after now at which the wall
// clock in loc reads hour:minute:00. Rolling over uses the next calendar day
// rather than a fixed 24h shift, so DST transitions never move the local time.
//
// A time of day that does not exist on a given date (spring-forward gap) is
// normalised by time.Date, which places it on the neighbouring side of the gap.
func NextDailyFire(now time.Time, loc *time.Location, hour, minute int) time.Time {
	local := now.In(loc)
	candidate := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !candidate.After(local) {
		candidate = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return candidate
}

// PrevDailyFire returns the latest instant at or before now at which the wall
// clock in loc read hour:minute:00.
func PrevDailyFire(now time.Time, loc *time.Location, hour, minute int) time.Time {
	local := now.In(loc)
	candidate := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if candidate.After(local) {
		candidate = time.Date(local.Year(), local.Month(), local.Day()-1, hour, minute, 0, 0, loc)
	}
	return candidate
}

// DailySchedule fires every day at Hour:Minute local time in Location.
// It satisfies cron.Schedule from github.com/robfig/cron/v3.
type DailySchedule struct {
	Hour      int
	Minute    int
	Location  *time.Location
	NotBefore time.Time // first fire instant; zero means no lower bound
}

// Next returns the next activation strictly after t.
func (s DailySchedule) Next(t time.Time) time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	if !s.NotBefore.IsZero() && t.Before(s.NotBefore) {
		t = s.NotBefore.Add(-time.Second)
	}
	return NextDailyFire(t, loc, s.Hour, s.Minute)
}
