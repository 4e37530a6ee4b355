package quartz

import (
	"fmt"
	"time"
)

// Calendar is a named set of exclusion rules consulted when computing a
// trigger's next valid fire time. Calendars are referenced by triggers by
// name only; a dangling reference means "no calendar applied".
type Calendar interface {
	// Kind is the codec discriminator ("holiday", "weekly").
	Kind() string

	// IsTimeIncluded reports whether t is a valid fire instant.
	IsTimeIncluded(t time.Time) bool

	// NextIncludedTime returns the earliest instant after t that the
	// calendar includes.
	NextIncludedTime(t time.Time) time.Time
}

const dateLayout = "2006-01-02"

// HolidayCalendar excludes whole dates. Dates are compared in the
// calendar's time zone (UTC when unset).
type HolidayCalendar struct {
	Dates    []string
	Timezone string

	dateSet map[string]struct{}
}

func NewHolidayCalendar(tz string, dates ...time.Time) *HolidayCalendar {
	c := &HolidayCalendar{Timezone: tz}
	for _, d := range dates {
		c.AddExcludedDate(d)
	}
	return c
}

func (c *HolidayCalendar) Kind() string { return "holiday" }

// AddExcludedDate excludes the whole date containing t. Adding an
// already-excluded date is a no-op.
func (c *HolidayCalendar) AddExcludedDate(t time.Time) {
	day := t.In(c.location()).Format(dateLayout)
	if c.excluded(day) {
		return
	}
	c.Dates = append(c.Dates, day)
	c.dateSet[day] = struct{}{}
}

func (c *HolidayCalendar) location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *HolidayCalendar) excluded(day string) bool {
	if c.dateSet == nil {
		c.dateSet = make(map[string]struct{}, len(c.Dates))
		for _, d := range c.Dates {
			c.dateSet[d] = struct{}{}
		}
	}
	_, ok := c.dateSet[day]
	return ok
}

func (c *HolidayCalendar) IsTimeIncluded(t time.Time) bool {
	return !c.excluded(t.In(c.location()).Format(dateLayout))
}

func (c *HolidayCalendar) NextIncludedTime(t time.Time) time.Time {
	loc := c.location()
	day := t.In(loc)
	for !c.IsTimeIncluded(day) {
		// Jump to midnight of the following day.
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	}
	if day.After(t) {
		return day
	}
	return t
}

// WeeklyCalendar excludes whole weekdays (e.g. weekends).
type WeeklyCalendar struct {
	Days     []time.Weekday
	Timezone string
}

func NewWeeklyCalendar(tz string, days ...time.Weekday) *WeeklyCalendar {
	return &WeeklyCalendar{Timezone: tz, Days: days}
}

func (c *WeeklyCalendar) Kind() string { return "weekly" }

func (c *WeeklyCalendar) location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *WeeklyCalendar) IsTimeIncluded(t time.Time) bool {
	wd := t.In(c.location()).Weekday()
	for _, d := range c.Days {
		if d == wd {
			return false
		}
	}
	return true
}

func (c *WeeklyCalendar) NextIncludedTime(t time.Time) time.Time {
	loc := c.location()
	day := t.In(loc)
	for !c.IsTimeIncluded(day) {
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	}
	if day.After(t) {
		return day
	}
	return t
}

// ValidateCalendar rejects calendars whose spec cannot be applied.
func ValidateCalendar(c Calendar) error {
	switch cal := c.(type) {
	case *HolidayCalendar:
		for _, d := range cal.Dates {
			if _, err := time.Parse(dateLayout, d); err != nil {
				return fmt.Errorf("holiday calendar: invalid date %q: %w", d, err)
			}
		}
	case *WeeklyCalendar:
		for _, d := range cal.Days {
			if d < time.Sunday || d > time.Saturday {
				return fmt.Errorf("weekly calendar: invalid weekday %d", d)
			}
		}
	}
	return nil
}
