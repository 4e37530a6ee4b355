package quartz

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts standard 5-field expressions, optional leading seconds,
// and descriptors like "@hourly".
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// CronTrigger fires on a cron expression evaluated in its time zone.
type CronTrigger struct {
	TriggerCore

	Expression string
	Timezone   string // IANA zone; empty means UTC

	sched cron.Schedule
	loc   *time.Location
}

func NewCronTrigger(key, jobKey Key, start time.Time, expression, tz string) (*CronTrigger, error) {
	t := &CronTrigger{
		TriggerCore: newTriggerCore(key, jobKey, start),
		Expression:  expression,
		Timezone:    tz,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *CronTrigger) Kind() string { return "cron" }

// Validate parses the expression and zone; it is called by the codec on
// load so a corrupt document fails at read time, not at fire time.
func (t *CronTrigger) Validate() error {
	sched, err := cronParser.Parse(t.Expression)
	if err != nil {
		return fmt.Errorf("cron expression %q: %w", t.Expression, err)
	}
	loc := time.UTC
	if t.Timezone != "" {
		loc, err = time.LoadLocation(t.Timezone)
		if err != nil {
			return fmt.Errorf("cron timezone %q: %w", t.Timezone, err)
		}
	}
	t.sched = sched
	t.loc = loc
	return nil
}

func (t *CronTrigger) FireTimeAfter(after time.Time) *time.Time {
	if t.sched == nil {
		if err := t.Validate(); err != nil {
			return nil
		}
	}
	// Fire times never precede the trigger's start.
	if after.Before(t.StartTime) {
		after = t.StartTime.Add(-time.Second)
	}
	next := t.sched.Next(after.In(t.loc))
	if next.IsZero() || t.pastEnd(next) {
		return nil
	}
	return &next
}

func (t *CronTrigger) ComputeFirstFireTime(cal Calendar) *time.Time {
	return t.computeFirstFireTime(cal, t.FireTimeAfter)
}

func (t *CronTrigger) Triggered(cal Calendar) {
	t.triggeredAdvance(cal, t.FireTimeAfter)
}

func (t *CronTrigger) UpdateAfterMisfire(now time.Time, cal Calendar) {
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

func (t *CronTrigger) UpdateWithNewCalendar(now time.Time, cal Calendar, threshold time.Duration) {
	t.updateWithNewCalendar(now, cal, threshold, t.FireTimeAfter)
}
