package quartz

import (
	"fmt"
	"time"
)

// IntervalUnit is the step unit of a calendar-interval trigger.
type IntervalUnit string

const (
	IntervalSecond IntervalUnit = "SECOND"
	IntervalMinute IntervalUnit = "MINUTE"
	IntervalHour   IntervalUnit = "HOUR"
	IntervalDay    IntervalUnit = "DAY"
	IntervalWeek   IntervalUnit = "WEEK"
	IntervalMonth  IntervalUnit = "MONTH"
	IntervalYear   IntervalUnit = "YEAR"
)

// CalendarIntervalTrigger fires every N units of civil time. Unlike
// SimpleTrigger it follows the calendar (a month is a month, not a fixed
// number of hours), so DST shifts and month lengths are respected.
type CalendarIntervalTrigger struct {
	TriggerCore

	RepeatInterval int
	Unit           IntervalUnit
	Timezone       string // IANA zone; empty means UTC
	TimesTriggered int

	loc *time.Location
}

func NewCalendarIntervalTrigger(key, jobKey Key, start time.Time, interval int, unit IntervalUnit, tz string) (*CalendarIntervalTrigger, error) {
	t := &CalendarIntervalTrigger{
		TriggerCore:    newTriggerCore(key, jobKey, start),
		RepeatInterval: interval,
		Unit:           unit,
		Timezone:       tz,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *CalendarIntervalTrigger) Kind() string { return "calinterval" }

func (t *CalendarIntervalTrigger) Validate() error {
	if t.RepeatInterval < 1 {
		return fmt.Errorf("calendar interval trigger: repeat interval must be >= 1, got %d", t.RepeatInterval)
	}
	switch t.Unit {
	case IntervalSecond, IntervalMinute, IntervalHour, IntervalDay, IntervalWeek, IntervalMonth, IntervalYear:
	default:
		return fmt.Errorf("calendar interval trigger: invalid unit %q", t.Unit)
	}
	loc := time.UTC
	if t.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(t.Timezone)
		if err != nil {
			return fmt.Errorf("calendar interval timezone %q: %w", t.Timezone, err)
		}
	}
	t.loc = loc
	return nil
}

func (t *CalendarIntervalTrigger) location() *time.Location {
	if t.loc == nil {
		if err := t.Validate(); err != nil {
			return time.UTC
		}
	}
	return t.loc
}

// step advances from by one repeat interval in the trigger's zone.
func (t *CalendarIntervalTrigger) step(from time.Time) time.Time {
	n := t.RepeatInterval
	local := from.In(t.location())
	switch t.Unit {
	case IntervalSecond:
		return local.Add(time.Duration(n) * time.Second)
	case IntervalMinute:
		return local.Add(time.Duration(n) * time.Minute)
	case IntervalHour:
		return local.Add(time.Duration(n) * time.Hour)
	case IntervalDay:
		return local.AddDate(0, 0, n)
	case IntervalWeek:
		return local.AddDate(0, 0, 7*n)
	case IntervalMonth:
		return local.AddDate(0, n, 0)
	default: // IntervalYear
		return local.AddDate(n, 0, 0)
	}
}

func (t *CalendarIntervalTrigger) FireTimeAfter(after time.Time) *time.Time {
	ft := t.StartTime
	switch t.Unit {
	case IntervalSecond, IntervalMinute, IntervalHour:
		// Fixed-length units are computed arithmetically.
		unit := map[IntervalUnit]time.Duration{
			IntervalSecond: time.Second,
			IntervalMinute: time.Minute,
			IntervalHour:   time.Hour,
		}[t.Unit]
		dur := time.Duration(t.RepeatInterval) * unit
		if after.Before(t.StartTime) {
			// first fire is the start itself
		} else {
			n := int64(after.Sub(t.StartTime)/dur) + 1
			ft = t.StartTime.Add(time.Duration(n) * dur)
		}
	default:
		for !ft.After(after) {
			ft = t.step(ft)
		}
	}
	if t.pastEnd(ft) {
		return nil
	}
	return &ft
}

func (t *CalendarIntervalTrigger) ComputeFirstFireTime(cal Calendar) *time.Time {
	return t.computeFirstFireTime(cal, t.FireTimeAfter)
}

func (t *CalendarIntervalTrigger) Triggered(cal Calendar) {
	t.TimesTriggered++
	t.triggeredAdvance(cal, t.FireTimeAfter)
}

func (t *CalendarIntervalTrigger) UpdateAfterMisfire(now time.Time, cal Calendar) {
	instr := t.MisfireInstruction
	if instr == MisfireSmartPolicy {
		instr = MisfireFireOnceNow
	}
	switch instr {
	case MisfireIgnorePolicy:
		return
	case MisfireFireOnceNow:
		at := now
		t.NextFireTime = &at
	default: // MisfireDoNothing
		t.NextFireTime = skipExcluded(cal, t.FireTimeAfter(now), t.FireTimeAfter)
	}
}

func (t *CalendarIntervalTrigger) UpdateWithNewCalendar(now time.Time, cal Calendar, threshold time.Duration) {
	t.updateWithNewCalendar(now, cal, threshold, t.FireTimeAfter)
}
