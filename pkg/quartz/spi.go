package quartz

import (
	"context"
	"time"
)

// JobWithTriggers pairs a job with the triggers to be stored against it.
type JobWithTriggers struct {
	Job      *JobDetail
	Triggers []Trigger
}

// JobStore is the persistence contract the scheduling engine drives. It is
// a fixed boundary: implementations honor these method contracts and fail
// with ErrUnsupported for the administrative operations they do not carry.
//
// Single-entity lookups report absence as a nil value, not an error.
// Remove operations report absence as false. Every other failure surfaces
// as a *PersistenceError (or one of the sentinel errors it passes through).
type JobStore interface {
	// Lifecycle pass-throughs. The store performs no background work of
	// its own; these exist so the engine can signal phase changes.
	SchedulerStarted(ctx context.Context) error
	SchedulerPaused()
	SchedulerResumed()
	// Shutdown is not supported; the owner closes the backing store.
	Shutdown() error

	SupportsPersistence() bool
	Clustered() bool
	// EstimatedTimeToReleaseAndAcquireTrigger is a pacing hint for the
	// engine's acquisition loop. This store does not measure it.
	EstimatedTimeToReleaseAndAcquireTrigger() time.Duration
	InstanceID() string
	SetInstanceID(id string)
	InstanceName() string
	SetInstanceName(name string)
	// SetMisfireThreshold rejects non-positive durations.
	SetMisfireThreshold(d time.Duration) error

	// Jobs.
	StoreJob(ctx context.Context, job *JobDetail, replace bool) error
	RemoveJob(ctx context.Context, key Key) (bool, error)
	RemoveJobs(ctx context.Context, keys []Key) (bool, error)
	RetrieveJob(ctx context.Context, key Key) (*JobDetail, error)
	CheckJobExists(ctx context.Context, key Key) (bool, error)
	RetrieveJobs(ctx context.Context, keys []Key) ([]*JobDetail, error)
	NumberOfJobs(ctx context.Context) (int, error)
	JobKeys(ctx context.Context, m GroupMatcher) ([]Key, error)
	JobGroupNames(ctx context.Context) ([]string, error)

	// Triggers.
	StoreTrigger(ctx context.Context, trigger Trigger, replace bool) error
	RemoveTrigger(ctx context.Context, key Key) (bool, error)
	RemoveTriggers(ctx context.Context, keys []Key) (bool, error)
	ReplaceTrigger(ctx context.Context, key Key, trigger Trigger) (bool, error)
	RetrieveTrigger(ctx context.Context, key Key) (Trigger, error)
	RetrieveTriggers(ctx context.Context, keys []Key) ([]Trigger, error)
	CheckTriggerExists(ctx context.Context, key Key) (bool, error)
	NumberOfTriggers(ctx context.Context) (int, error)
	TriggerKeys(ctx context.Context, m GroupMatcher) ([]Key, error)
	TriggerGroupNames(ctx context.Context) ([]string, error)
	TriggersForJob(ctx context.Context, jobKey Key) ([]Trigger, error)
	TriggersForCalendar(ctx context.Context, name string) ([]Trigger, error)
	TriggerState(ctx context.Context, key Key) (ExternalState, error)
	UpdateTriggerState(ctx context.Context, key Key, state TriggerState) error

	// Calendars.
	StoreCalendar(ctx context.Context, name string, cal Calendar, replace, updateTriggers bool) error
	RemoveCalendar(ctx context.Context, name string) (bool, error)
	RetrieveCalendar(ctx context.Context, name string) (Calendar, error)
	RetrieveCalendars(ctx context.Context, names []string) (map[string]Calendar, error)
	NumberOfCalendars(ctx context.Context) (int, error)
	CalendarNames(ctx context.Context) ([]string, error)

	// Composite.
	StoreJobAndTrigger(ctx context.Context, job *JobDetail, trigger Trigger) error
	StoreJobsAndTriggers(ctx context.Context, sets []JobWithTriggers, replace bool) error
	ClearAllSchedulingData(ctx context.Context) error

	// Fire protocol.
	AcquireNextTriggers(ctx context.Context, noLaterThan time.Time, maxCount int, timeWindow time.Duration) ([]Trigger, error)
	ReleaseAcquiredTrigger(ctx context.Context, trigger Trigger) error
	TriggersFired(ctx context.Context, triggers []Trigger) ([]FiredBundle, error)
	TriggeredJobComplete(ctx context.Context, trigger Trigger, job *JobDetail, instruction CompletionInstruction) error

	// Pause and resume. Only single-trigger transitions are supported;
	// the group, job and global variants fail with ErrUnsupported.
	PauseTrigger(ctx context.Context, key Key) error
	ResumeTrigger(ctx context.Context, key Key) error
	PauseTriggers(ctx context.Context, m GroupMatcher) ([]string, error)
	ResumeTriggers(ctx context.Context, m GroupMatcher) ([]string, error)
	PauseJob(ctx context.Context, key Key) error
	ResumeJob(ctx context.Context, key Key) error
	PauseJobs(ctx context.Context, m GroupMatcher) ([]string, error)
	ResumeJobs(ctx context.Context, m GroupMatcher) ([]string, error)
	PausedTriggerGroups(ctx context.Context) ([]string, error)
	PauseAll(ctx context.Context) error
	ResumeAll(ctx context.Context) error
}
