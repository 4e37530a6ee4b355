package quartz

import "time"

// Misfire instruction codes. A trigger misfires when its next fire time has
// slipped past the store's misfire threshold before it was acquired.
const (
	// MisfireIgnorePolicy exempts the trigger from misfire correction.
	MisfireIgnorePolicy = -1
	// MisfireSmartPolicy lets each trigger kind pick a sensible default.
	MisfireSmartPolicy = 0
)

// Simple trigger misfire instructions.
const (
	SimpleMisfireFireNow = 1
	SimpleMisfireNext    = 2
)

// Cron and calendar-interval trigger misfire instructions.
const (
	MisfireFireOnceNow = 1
	MisfireDoNothing   = 2
)

// CompletionInstruction is reported by the engine when a fired job finishes.
type CompletionInstruction int

const (
	CompletionNoop CompletionInstruction = iota
	CompletionReExecuteJob
	CompletionSetTriggerComplete
	CompletionDeleteTrigger
	CompletionSetTriggerError
	CompletionSetAllJobTriggersComplete
	CompletionSetAllJobTriggersError
)

// Trigger is the closed set of persisted schedule kinds. Implementations
// carry their own schedule fields and own the fire-time math; the store
// drives them exclusively through this capability set.
type Trigger interface {
	// Core exposes the fields every trigger kind shares.
	Core() *TriggerCore

	// Kind is the codec discriminator ("simple", "cron", "calinterval").
	Kind() string

	// FireTimeAfter returns the first fire time strictly after the given
	// instant, or nil when the schedule is exhausted.
	FireTimeAfter(after time.Time) *time.Time

	// ComputeFirstFireTime sets and returns the initial next fire time,
	// skipping instants the calendar excludes. cal may be nil.
	ComputeFirstFireTime(cal Calendar) *time.Time

	// Triggered advances the trigger after a fire: records the previous
	// fire time and computes the next one. cal may be nil.
	Triggered(cal Calendar)

	// UpdateAfterMisfire applies the trigger's misfire instruction,
	// recomputing the next fire time relative to now. cal may be nil.
	UpdateAfterMisfire(now time.Time, cal Calendar)

	// UpdateWithNewCalendar recomputes the next fire time against a
	// replaced calendar. A recomputed time further than threshold in the
	// past is pushed forward past now.
	UpdateWithNewCalendar(now time.Time, cal Calendar, threshold time.Duration)
}

// TriggerCore holds the fields common to every trigger kind.
type TriggerCore struct {
	Name     string
	Group    string
	JobName  string
	JobGroup string

	Description  string
	CalendarName string
	State        TriggerState

	StartTime time.Time
	EndTime   *time.Time

	NextFireTime     *time.Time
	PreviousFireTime *time.Time

	Priority           int
	MisfireInstruction int

	Data map[string]any
}

// DefaultPriority is assigned when a trigger is built without an explicit one.
const DefaultPriority = 5

func newTriggerCore(key, jobKey Key, start time.Time) TriggerCore {
	return TriggerCore{
		Name:      key.Name,
		Group:     key.Group,
		JobName:   jobKey.Name,
		JobGroup:  jobKey.Group,
		State:     StateWaiting,
		StartTime: start,
		Priority:  DefaultPriority,
	}
}

func (c *TriggerCore) Core() *TriggerCore { return c }

func (c *TriggerCore) Key() Key    { return NewKey(c.Group, c.Name) }
func (c *TriggerCore) JobKey() Key { return NewKey(c.JobGroup, c.JobName) }

// pastEnd reports whether t falls on or after the trigger's end time.
func (c *TriggerCore) pastEnd(t time.Time) bool {
	return c.EndTime != nil && !t.Before(*c.EndTime)
}

// yearsToGiveUp bounds the calendar-skip walk. A calendar still excluding
// every candidate this far past the first one is treated as excluding the
// whole schedule.
const yearsToGiveUp = 100

// skipExcluded walks next forward through fireAfter until the calendar
// includes it, or nil once the walk passes the give-up horizon. A nil
// calendar includes everything.
func skipExcluded(cal Calendar, next *time.Time, fireAfter func(time.Time) *time.Time) *time.Time {
	if next == nil || cal == nil {
		return next
	}
	giveUpYear := next.Year() + yearsToGiveUp
	for next != nil && !cal.IsTimeIncluded(*next) {
		if next.Year() > giveUpYear {
			return nil
		}
		next = fireAfter(*next)
	}
	return next
}

// computeFirstFireTime is the shared ComputeFirstFireTime body: the first
// fire time at or after the start, calendar-skipped.
func (c *TriggerCore) computeFirstFireTime(cal Calendar, fireAfter func(time.Time) *time.Time) *time.Time {
	first := fireAfter(c.StartTime.Add(-time.Millisecond))
	c.NextFireTime = skipExcluded(cal, first, fireAfter)
	return c.NextFireTime
}

// triggeredAdvance is the shared Triggered body.
func (c *TriggerCore) triggeredAdvance(cal Calendar, fireAfter func(time.Time) *time.Time) {
	c.PreviousFireTime = c.NextFireTime
	if c.NextFireTime == nil {
		return
	}
	next := fireAfter(*c.NextFireTime)
	c.NextFireTime = skipExcluded(cal, next, fireAfter)
}

// updateWithNewCalendar is the shared UpdateWithNewCalendar body.
func (c *TriggerCore) updateWithNewCalendar(now time.Time, cal Calendar, threshold time.Duration, fireAfter func(time.Time) *time.Time) {
	base := now
	if c.PreviousFireTime != nil {
		base = *c.PreviousFireTime
	}
	next := skipExcluded(cal, fireAfter(base), fireAfter)

	// A recomputed time that already misfired is pushed past now.
	if next != nil && next.Before(now) && now.Sub(*next) >= threshold {
		next = skipExcluded(cal, fireAfter(now), fireAfter)
	}
	c.NextFireTime = next
}

// FiredBundle is the hand-off record produced when a trigger fires. The
// engine consumes it to dispatch job execution; the store never executes
// jobs itself.
type FiredBundle struct {
	Job      *JobDetail
	Trigger  Trigger
	Calendar Calendar

	// FireTime is the instant the store recorded the fire.
	FireTime time.Time
	// PrevFireTime is the trigger's previous fire time before this fire
	// advanced it; NextFireTime is the recomputed upcoming one.
	PrevFireTime *time.Time
	NextFireTime *time.Time

	// Recovering is set for triggers in the recovery group.
	Recovering bool
}
