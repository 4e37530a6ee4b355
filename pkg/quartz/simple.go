package quartz

import "time"

// RepeatIndefinitely makes a simple trigger repeat until its end time.
const RepeatIndefinitely = -1

// SimpleTrigger fires at its start time and then every RepeatInterval,
// RepeatCount more times (or forever with RepeatIndefinitely).
type SimpleTrigger struct {
	TriggerCore

	RepeatCount    int
	RepeatInterval time.Duration
	TimesTriggered int
}

func NewSimpleTrigger(key, jobKey Key, start time.Time, repeatCount int, interval time.Duration) *SimpleTrigger {
	return &SimpleTrigger{
		TriggerCore:    newTriggerCore(key, jobKey, start),
		RepeatCount:    repeatCount,
		RepeatInterval: interval,
	}
}

func (t *SimpleTrigger) Kind() string { return "simple" }

func (t *SimpleTrigger) FireTimeAfter(after time.Time) *time.Time {
	if t.RepeatCount == 0 && !after.Before(t.StartTime) {
		return nil
	}
	var n int64
	if after.Before(t.StartTime) {
		n = 0
	} else {
		if t.RepeatInterval <= 0 {
			return nil
		}
		n = int64(after.Sub(t.StartTime)/t.RepeatInterval) + 1
	}
	if t.RepeatCount != RepeatIndefinitely && n > int64(t.RepeatCount) {
		return nil
	}
	ft := t.StartTime.Add(time.Duration(n) * t.RepeatInterval)
	if t.pastEnd(ft) {
		return nil
	}
	return &ft
}

func (t *SimpleTrigger) ComputeFirstFireTime(cal Calendar) *time.Time {
	return t.computeFirstFireTime(cal, t.FireTimeAfter)
}

func (t *SimpleTrigger) Triggered(cal Calendar) {
	t.TimesTriggered++
	t.triggeredAdvance(cal, t.FireTimeAfter)
}

func (t *SimpleTrigger) UpdateAfterMisfire(now time.Time, cal Calendar) {
	instr := t.MisfireInstruction
	if instr == MisfireSmartPolicy {
		if t.RepeatCount == 0 {
			instr = SimpleMisfireFireNow
		} else {
			instr = SimpleMisfireNext
		}
	}
	switch instr {
	case MisfireIgnorePolicy:
		return
	case SimpleMisfireFireNow:
		at := now
		t.NextFireTime = &at
	default: // SimpleMisfireNext
		t.NextFireTime = skipExcluded(cal, t.FireTimeAfter(now), t.FireTimeAfter)
	}
}

func (t *SimpleTrigger) UpdateWithNewCalendar(now time.Time, cal Calendar, threshold time.Duration) {
	t.updateWithNewCalendar(now, cal, threshold, t.FireTimeAfter)
}
