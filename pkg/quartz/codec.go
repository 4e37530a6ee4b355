package quartz

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire documents are flat: one struct per document type with a kind
// discriminator and the union of all variant fields. Fire times travel as
// epoch milliseconds so range scans over the serialized form order
// correctly regardless of zone.

type triggerDoc struct {
	Kind string `json:"kind"`

	Name     string `json:"name"`
	Group    string `json:"group"`
	JobName  string `json:"job_name"`
	JobGroup string `json:"job_group"`

	Description  string `json:"description,omitempty"`
	CalendarName string `json:"calendar_name,omitempty"`
	State        string `json:"state"`

	StartTime int64  `json:"start_time"`
	EndTime   *int64 `json:"end_time,omitempty"`

	NextFireTime     *int64 `json:"next_fire_time,omitempty"`
	PreviousFireTime *int64 `json:"previous_fire_time,omitempty"`

	Priority           int            `json:"priority"`
	MisfireInstruction int            `json:"misfire_instruction"`
	Data               map[string]any `json:"data,omitempty"`

	// simple
	RepeatCount    *int   `json:"repeat_count,omitempty"`
	RepeatInterval *int64 `json:"repeat_interval_ms,omitempty"`
	TimesTriggered *int   `json:"times_triggered,omitempty"`

	// cron
	Expression string `json:"expression,omitempty"`

	// calinterval
	IntervalCount *int   `json:"interval_count,omitempty"`
	IntervalUnit  string `json:"interval_unit,omitempty"`

	// cron and calinterval
	Timezone string `json:"timezone,omitempty"`
}

type calendarDoc struct {
	Kind     string   `json:"kind"`
	Timezone string   `json:"timezone,omitempty"`
	Dates    []string `json:"dates,omitempty"`    // holiday
	Days     []int    `json:"weekdays,omitempty"` // weekly
}

type jobDoc struct {
	Name             string         `json:"name"`
	Group            string         `json:"group"`
	Description      string         `json:"description,omitempty"`
	Handler          string         `json:"handler"`
	Durable          bool           `json:"durable"`
	RequestsRecovery bool           `json:"requests_recovery"`
	Data             map[string]any `json:"data,omitempty"`
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func millisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	m := t.UnixMilli()
	return &m
}

func fromMillis(m int64) time.Time { return time.UnixMilli(m).UTC() }

func fromMillisPtr(m *int64) *time.Time {
	if m == nil {
		return nil
	}
	t := fromMillis(*m)
	return &t
}

// MarshalTrigger serializes any trigger kind into its wire document.
func MarshalTrigger(t Trigger) ([]byte, error) {
	c := t.Core()
	doc := triggerDoc{
		Kind:               t.Kind(),
		Name:               c.Name,
		Group:              c.Group,
		JobName:            c.JobName,
		JobGroup:           c.JobGroup,
		Description:        c.Description,
		CalendarName:       c.CalendarName,
		State:              string(c.State),
		StartTime:          millis(c.StartTime),
		EndTime:            millisPtr(c.EndTime),
		NextFireTime:       millisPtr(c.NextFireTime),
		PreviousFireTime:   millisPtr(c.PreviousFireTime),
		Priority:           c.Priority,
		MisfireInstruction: c.MisfireInstruction,
		Data:               c.Data,
	}
	switch v := t.(type) {
	case *SimpleTrigger:
		rc, tt := v.RepeatCount, v.TimesTriggered
		ri := v.RepeatInterval.Milliseconds()
		doc.RepeatCount = &rc
		doc.RepeatInterval = &ri
		doc.TimesTriggered = &tt
	case *CronTrigger:
		doc.Expression = v.Expression
		doc.Timezone = v.Timezone
	case *CalendarIntervalTrigger:
		ri, tt := v.RepeatInterval, v.TimesTriggered
		doc.IntervalCount = &ri
		doc.TimesTriggered = &tt
		doc.IntervalUnit = string(v.Unit)
		doc.Timezone = v.Timezone
	default:
		return nil, fmt.Errorf("marshal trigger: unknown kind %q", t.Kind())
	}
	return json.Marshal(doc)
}

// UnmarshalTrigger decodes a wire document into the concrete trigger kind
// named by its discriminator.
func UnmarshalTrigger(body []byte) (Trigger, error) {
	var doc triggerDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal trigger: %w", err)
	}
	core := TriggerCore{
		Name:               doc.Name,
		Group:              doc.Group,
		JobName:            doc.JobName,
		JobGroup:           doc.JobGroup,
		Description:        doc.Description,
		CalendarName:       doc.CalendarName,
		State:              TriggerState(doc.State),
		StartTime:          fromMillis(doc.StartTime),
		EndTime:            fromMillisPtr(doc.EndTime),
		NextFireTime:       fromMillisPtr(doc.NextFireTime),
		PreviousFireTime:   fromMillisPtr(doc.PreviousFireTime),
		Priority:           doc.Priority,
		MisfireInstruction: doc.MisfireInstruction,
		Data:               doc.Data,
	}
	switch doc.Kind {
	case "simple":
		t := &SimpleTrigger{TriggerCore: core}
		if doc.RepeatCount != nil {
			t.RepeatCount = *doc.RepeatCount
		}
		if doc.RepeatInterval != nil {
			t.RepeatInterval = time.Duration(*doc.RepeatInterval) * time.Millisecond
		}
		if doc.TimesTriggered != nil {
			t.TimesTriggered = *doc.TimesTriggered
		}
		return t, nil
	case "cron":
		t := &CronTrigger{
			TriggerCore: core,
			Expression:  doc.Expression,
			Timezone:    doc.Timezone,
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("unmarshal trigger %s: %w", core.Key(), err)
		}
		return t, nil
	case "calinterval":
		t := &CalendarIntervalTrigger{
			TriggerCore: core,
			Unit:        IntervalUnit(doc.IntervalUnit),
			Timezone:    doc.Timezone,
		}
		if doc.IntervalCount != nil {
			t.RepeatInterval = *doc.IntervalCount
		}
		if doc.TimesTriggered != nil {
			t.TimesTriggered = *doc.TimesTriggered
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("unmarshal trigger %s: %w", core.Key(), err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unmarshal trigger: unknown kind %q", doc.Kind)
	}
}

// MarshalCalendar serializes a calendar into its wire document.
func MarshalCalendar(c Calendar) ([]byte, error) {
	switch v := c.(type) {
	case *HolidayCalendar:
		return json.Marshal(calendarDoc{Kind: v.Kind(), Timezone: v.Timezone, Dates: v.Dates})
	case *WeeklyCalendar:
		days := make([]int, len(v.Days))
		for i, d := range v.Days {
			days[i] = int(d)
		}
		return json.Marshal(calendarDoc{Kind: v.Kind(), Timezone: v.Timezone, Days: days})
	default:
		return nil, fmt.Errorf("marshal calendar: unknown kind %q", c.Kind())
	}
}

// UnmarshalCalendar decodes a calendar wire document.
func UnmarshalCalendar(body []byte) (Calendar, error) {
	var doc calendarDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal calendar: %w", err)
	}
	switch doc.Kind {
	case "holiday":
		return &HolidayCalendar{Timezone: doc.Timezone, Dates: doc.Dates}, nil
	case "weekly":
		days := make([]time.Weekday, len(doc.Days))
		for i, d := range doc.Days {
			days[i] = time.Weekday(d)
		}
		return &WeeklyCalendar{Timezone: doc.Timezone, Days: days}, nil
	default:
		return nil, fmt.Errorf("unmarshal calendar: unknown kind %q", doc.Kind)
	}
}

// MarshalJob serializes a job detail into its wire document.
func MarshalJob(j *JobDetail) ([]byte, error) {
	return json.Marshal(jobDoc{
		Name:             j.Name,
		Group:            j.Group,
		Description:      j.Description,
		Handler:          j.Handler,
		Durable:          j.Durable,
		RequestsRecovery: j.RequestsRecovery,
		Data:             j.Data,
	})
}

// UnmarshalJob decodes a job wire document.
func UnmarshalJob(body []byte) (*JobDetail, error) {
	var doc jobDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &JobDetail{
		Name:             doc.Name,
		Group:            doc.Group,
		Description:      doc.Description,
		Handler:          doc.Handler,
		Durable:          doc.Durable,
		RequestsRecovery: doc.RequestsRecovery,
		Data:             doc.Data,
	}, nil
}
