package jobstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"schedstore/internal/docstore"
	"schedstore/pkg/logx"
	"schedstore/pkg/quartz"
)

// DefaultMisfireThreshold is how far past its next fire time a trigger
// may slip before misfire correction kicks in.
const DefaultMisfireThreshold = 60 * time.Second

// Store composes the three repositories into the engine-facing
// quartz.JobStore contract. Operations that touch several documents are
// explicit sequences with documented partial-failure outcomes; there are
// no cross-document transactions.
type Store struct {
	jobs      *JobRepository
	triggers  *TriggerRepository
	calendars *CalendarRepository
	log       logx.Logger

	mu               sync.Mutex
	misfireThreshold time.Duration
	instanceID       string
	instanceName     string

	now func() time.Time
}

var _ quartz.JobStore = (*Store)(nil)

func New(docs *docstore.Store, log logx.Logger) *Store {
	return &Store{
		jobs:             NewJobRepository(docs, log),
		triggers:         NewTriggerRepository(docs, log),
		calendars:        NewCalendarRepository(docs, log),
		log:              log,
		misfireThreshold: DefaultMisfireThreshold,
		now:              time.Now,
	}
}

// ---- Lifecycle ----

func (s *Store) SchedulerStarted(ctx context.Context) error {
	s.log.Info("job store attached to scheduler",
		logx.String("instance", s.InstanceName()))
	return nil
}

func (s *Store) SchedulerPaused()  {}
func (s *Store) SchedulerResumed() {}

func (s *Store) Shutdown() error { return quartz.ErrUnsupported }

func (s *Store) SupportsPersistence() bool { return true }
func (s *Store) Clustered() bool           { return false }

// EstimatedTimeToReleaseAndAcquireTrigger reports zero; acquisition cost
// is not tracked.
func (s *Store) EstimatedTimeToReleaseAndAcquireTrigger() time.Duration { return 0 }

func (s *Store) InstanceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instanceID
}

func (s *Store) SetInstanceID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instanceID = id
}

func (s *Store) InstanceName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instanceName
}

func (s *Store) SetInstanceName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instanceName = name
}

func (s *Store) SetMisfireThreshold(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("misfire threshold must be positive, got %s", d)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.misfireThreshold = d
	return nil
}

func (s *Store) threshold() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.misfireThreshold
}

// ---- Jobs ----

func (s *Store) StoreJob(ctx context.Context, job *quartz.JobDetail, replace bool) error {
	return s.jobs.Store(ctx, job, replace)
}

// RemoveJob removes every trigger referencing the job, then the job
// itself. The cascade is a sequence: a crash between the steps leaves
// the job behind with some triggers gone, which a retry cleans up.
func (s *Store) RemoveJob(ctx context.Context, key quartz.Key) (bool, error) {
	related, err := s.triggers.ByJob(ctx, key)
	if err != nil {
		return false, err
	}
	for _, t := range related {
		if _, err := s.triggers.Remove(ctx, t.Core().Key()); err != nil {
			return false, err
		}
	}
	return s.jobs.Remove(ctx, key)
}

func (s *Store) RemoveJobs(ctx context.Context, keys []quartz.Key) (bool, error) {
	all := true
	for _, k := range keys {
		found, err := s.RemoveJob(ctx, k)
		if err != nil {
			return false, err
		}
		all = all && found
	}
	return all, nil
}

func (s *Store) RetrieveJob(ctx context.Context, key quartz.Key) (*quartz.JobDetail, error) {
	return s.jobs.Retrieve(ctx, key)
}

func (s *Store) CheckJobExists(ctx context.Context, key quartz.Key) (bool, error) {
	return s.jobs.Exists(ctx, key)
}

func (s *Store) RetrieveJobs(ctx context.Context, keys []quartz.Key) ([]*quartz.JobDetail, error) {
	return s.jobs.RetrieveBatch(ctx, keys)
}

func (s *Store) NumberOfJobs(ctx context.Context) (int, error) {
	return s.jobs.Count(ctx)
}

func (s *Store) JobKeys(ctx context.Context, m quartz.GroupMatcher) ([]quartz.Key, error) {
	return s.jobs.Keys(ctx, m)
}

func (s *Store) JobGroupNames(ctx context.Context) ([]string, error) {
	return s.jobs.GroupNames(ctx)
}

// ---- Triggers ----

// StoreTrigger persists a trigger. The referenced job must already
// exist. A trigger stored without a next fire time gets its first one
// computed here, calendar-aware.
func (s *Store) StoreTrigger(ctx context.Context, t quartz.Trigger, replace bool) error {
	core := t.Core()
	job, err := s.jobs.Retrieve(ctx, core.JobKey())
	if err != nil {
		return err
	}
	if job == nil {
		return quartz.NewPersistenceError("trigger store",
			fmt.Errorf("trigger %s references missing job %s", core.Key(), core.JobKey()))
	}
	if core.NextFireTime == nil {
		cal, err := s.resolveCalendar(ctx, core.CalendarName)
		if err != nil {
			return err
		}
		t.ComputeFirstFireTime(cal)
	}
	return s.triggers.Store(ctx, t, replace)
}

// RemoveTrigger removes the trigger; when the job it referenced had at
// most one trigger recorded in the pre-removal snapshot, the job is
// removed too, durable or not.
func (s *Store) RemoveTrigger(ctx context.Context, key quartz.Key) (bool, error) {
	t, err := s.triggers.Retrieve(ctx, key)
	if err != nil {
		return false, err
	}
	if t == nil {
		return false, nil
	}
	related, err := s.triggers.ByJob(ctx, t.Core().JobKey())
	if err != nil {
		return false, err
	}
	found, err := s.triggers.Remove(ctx, key)
	if err != nil {
		return false, err
	}
	if len(related) <= 1 {
		if _, err := s.jobs.Remove(ctx, t.Core().JobKey()); err != nil {
			return false, err
		}
	}
	return found, nil
}

func (s *Store) RemoveTriggers(ctx context.Context, keys []quartz.Key) (bool, error) {
	all := true
	for _, k := range keys {
		found, err := s.RemoveTrigger(ctx, k)
		if err != nil {
			return false, err
		}
		all = all && found
	}
	return all, nil
}

func (s *Store) ReplaceTrigger(ctx context.Context, key quartz.Key, t quartz.Trigger) (bool, error) {
	if t.Core().NextFireTime == nil {
		cal, err := s.resolveCalendar(ctx, t.Core().CalendarName)
		if err != nil {
			return false, err
		}
		t.ComputeFirstFireTime(cal)
	}
	return s.triggers.Replace(ctx, key, t)
}

func (s *Store) RetrieveTrigger(ctx context.Context, key quartz.Key) (quartz.Trigger, error) {
	return s.triggers.Retrieve(ctx, key)
}

func (s *Store) RetrieveTriggers(ctx context.Context, keys []quartz.Key) ([]quartz.Trigger, error) {
	return s.triggers.RetrieveBatch(ctx, keys)
}

func (s *Store) CheckTriggerExists(ctx context.Context, key quartz.Key) (bool, error) {
	return s.triggers.Exists(ctx, key)
}

func (s *Store) NumberOfTriggers(ctx context.Context) (int, error) {
	return s.triggers.Count(ctx)
}

func (s *Store) TriggerKeys(ctx context.Context, m quartz.GroupMatcher) ([]quartz.Key, error) {
	return s.triggers.Keys(ctx, m)
}

func (s *Store) TriggerGroupNames(ctx context.Context) ([]string, error) {
	return s.triggers.GroupNames(ctx)
}

func (s *Store) TriggersForJob(ctx context.Context, jobKey quartz.Key) ([]quartz.Trigger, error) {
	return s.triggers.ByJob(ctx, jobKey)
}

func (s *Store) TriggersForCalendar(ctx context.Context, name string) ([]quartz.Trigger, error) {
	return s.triggers.ByCalendar(ctx, name)
}

func (s *Store) TriggerState(ctx context.Context, key quartz.Key) (quartz.ExternalState, error) {
	return s.triggers.State(ctx, key)
}

func (s *Store) UpdateTriggerState(ctx context.Context, key quartz.Key, state quartz.TriggerState) error {
	return s.triggers.UpdateState(ctx, key, state)
}

// ---- Calendars ----

// StoreCalendar persists the calendar and, when updateTriggers is set,
// recomputes the next fire time of every trigger referencing it. With
// updateTriggers false, referencing triggers keep their stale fire times
// even though the calendar content changed; callers opt into that.
func (s *Store) StoreCalendar(ctx context.Context, name string, cal quartz.Calendar, replace, updateTriggers bool) error {
	if err := s.calendars.Store(ctx, name, cal, replace); err != nil {
		return err
	}
	if !updateTriggers {
		return nil
	}
	referencing, err := s.triggers.ByCalendar(ctx, name)
	if err != nil {
		return err
	}
	now := s.now()
	var cands []candidate
	for _, t := range referencing {
		fresh, rev, err := s.triggers.get(ctx, t.Core().Key())
		if err != nil {
			return err
		}
		if fresh == nil {
			continue
		}
		fresh.UpdateWithNewCalendar(now, cal, s.threshold())
		cands = append(cands, candidate{trigger: fresh, rev: rev})
	}
	return s.triggers.updateBatch(ctx, cands)
}

func (s *Store) RemoveCalendar(ctx context.Context, name string) (bool, error) {
	return s.calendars.Remove(ctx, name)
}

func (s *Store) RetrieveCalendar(ctx context.Context, name string) (quartz.Calendar, error) {
	return s.calendars.Retrieve(ctx, name)
}

func (s *Store) RetrieveCalendars(ctx context.Context, names []string) (map[string]quartz.Calendar, error) {
	return s.calendars.RetrieveBatch(ctx, names)
}

func (s *Store) NumberOfCalendars(ctx context.Context) (int, error) {
	return s.calendars.Count(ctx)
}

func (s *Store) CalendarNames(ctx context.Context) ([]string, error) {
	return s.calendars.Names(ctx)
}

func (s *Store) resolveCalendar(ctx context.Context, name string) (quartz.Calendar, error) {
	if name == "" {
		return nil, nil
	}
	// A dangling reference degrades to "no calendar applied".
	return s.calendars.Retrieve(ctx, name)
}

// ---- Composite ----

// StoreJobAndTrigger stores the job then the trigger, neither replacing.
// Not atomic: a failure after the job write leaves an orphan durable
// job, which is a legal state.
func (s *Store) StoreJobAndTrigger(ctx context.Context, job *quartz.JobDetail, t quartz.Trigger) error {
	if err := s.jobs.Store(ctx, job, false); err != nil {
		return err
	}
	return s.StoreTrigger(ctx, t, false)
}

// StoreJobsAndTriggers bulk-stores job/trigger sets. With replace=false
// it pre-validates that none of the jobs or triggers exist, failing fast
// on the first conflict before writing anything; the writes themselves
// then go through one pair at a time with replace on. An existence
// check, not a transaction.
func (s *Store) StoreJobsAndTriggers(ctx context.Context, sets []quartz.JobWithTriggers, replace bool) error {
	if !replace {
		for _, set := range sets {
			exists, err := s.jobs.Exists(ctx, set.Job.Key())
			if err != nil {
				return err
			}
			if exists {
				return quartz.ErrAlreadyExists
			}
			for _, t := range set.Triggers {
				exists, err := s.triggers.Exists(ctx, t.Core().Key())
				if err != nil {
					return err
				}
				if exists {
					return quartz.ErrAlreadyExists
				}
			}
		}
	}
	for _, set := range sets {
		if err := s.jobs.Store(ctx, set.Job, true); err != nil {
			return err
		}
		for _, t := range set.Triggers {
			if err := s.StoreTrigger(ctx, t, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// ClearAllSchedulingData wipes jobs, triggers, and calendars with
// best-effort per-document deletes, then re-counts and fails loudly if
// anything survived. The post-condition check is the guarantee, not the
// deletes themselves.
func (s *Store) ClearAllSchedulingData(ctx context.Context) error {
	if err := s.triggers.removeAll(ctx); err != nil {
		return err
	}
	if err := s.jobs.removeAll(ctx); err != nil {
		return err
	}
	if err := s.calendars.removeAll(ctx); err != nil {
		return err
	}

	jobs, err := s.jobs.Count(ctx)
	if err != nil {
		return err
	}
	triggers, err := s.triggers.Count(ctx)
	if err != nil {
		return err
	}
	calendars, err := s.calendars.Count(ctx)
	if err != nil {
		return err
	}
	if jobs != 0 || triggers != 0 || calendars != 0 {
		return quartz.NewPersistenceError("clear all scheduling data",
			fmt.Errorf("data remains after clear: %d jobs, %d triggers, %d calendars", jobs, triggers, calendars))
	}
	s.log.Info("cleared all scheduling data")
	return nil
}

// ---- Fire protocol ----

// AcquireNextTriggers claims up to maxCount waiting triggers due in
// [epoch, noLaterThan+timeWindow], ascending by next fire time with the
// document id as tie break. Misfire correction runs on each candidate
// before it is marked acquired; candidates whose correction leaves no
// next fire time are still returned acquired, and the engine decides
// completion. The whole claim persists as one revision-checked batch.
//
// Designed for a single active acquirer; two concurrent acquirers can
// select the same trigger before either persists, and the batch
// revision check is what makes the loser fail rather than double-fire.
func (s *Store) AcquireNextTriggers(ctx context.Context, noLaterThan time.Time, maxCount int, timeWindow time.Duration) ([]quartz.Trigger, error) {
	now := s.now()
	cands, err := s.triggers.acquireCandidates(ctx, noLaterThan.Add(timeWindow), maxCount)
	if err != nil {
		return nil, err
	}
	for i := range cands {
		if err := s.applyMisfire(ctx, cands[i].trigger, now); err != nil {
			return nil, err
		}
		cands[i].trigger.Core().State = quartz.StateAcquired
	}
	if err := s.triggers.updateBatch(ctx, cands); err != nil {
		return nil, err
	}
	out := make([]quartz.Trigger, len(cands))
	for i, c := range cands {
		out[i] = c.trigger
	}
	return out, nil
}

// applyMisfire runs the trigger's misfire instruction when its next fire
// time has slipped past the threshold.
func (s *Store) applyMisfire(ctx context.Context, t quartz.Trigger, now time.Time) error {
	core := t.Core()
	if core.NextFireTime == nil || core.MisfireInstruction == quartz.MisfireIgnorePolicy {
		return nil
	}
	misfireTime := now.Add(-s.threshold())
	if core.NextFireTime.After(misfireTime) {
		return nil
	}
	cal, err := s.resolveCalendar(ctx, core.CalendarName)
	if err != nil {
		return err
	}
	was := core.NextFireTime
	t.UpdateAfterMisfire(now, cal)
	if !equalTimePtr(was, core.NextFireTime) {
		s.triggers.logMisfire(t, was)
	}
	return nil
}

// ReleaseAcquiredTrigger hands an acquired trigger back unfired.
func (s *Store) ReleaseAcquiredTrigger(ctx context.Context, t quartz.Trigger) error {
	return s.triggers.UpdateState(ctx, t.Core().Key(), quartz.StateWaiting)
}

// TriggersFired advances each trigger past its due fire, sets it back to
// waiting, persists the batch, and hands the engine one fired bundle per
// trigger. Triggers deleted since acquisition are skipped.
func (s *Store) TriggersFired(ctx context.Context, triggers []quartz.Trigger) ([]quartz.FiredBundle, error) {
	now := s.now()
	var bundles []quartz.FiredBundle
	var cands []candidate
	for _, acquired := range triggers {
		key := acquired.Core().Key()
		t, rev, err := s.triggers.get(ctx, key)
		if err != nil {
			return nil, err
		}
		if t == nil {
			s.log.Debug("fired trigger no longer stored, skipping", logx.String("trigger", key.String()))
			continue
		}
		cal, err := s.resolveCalendar(ctx, t.Core().CalendarName)
		if err != nil {
			return nil, err
		}
		job, err := s.jobs.Retrieve(ctx, t.Core().JobKey())
		if err != nil {
			return nil, err
		}

		prevBefore := t.Core().PreviousFireTime
		t.Triggered(cal)
		t.Core().State = quartz.StateWaiting
		cands = append(cands, candidate{trigger: t, rev: rev})

		bundles = append(bundles, quartz.FiredBundle{
			Job:          job,
			Trigger:      t,
			Calendar:     cal,
			FireTime:     now,
			PrevFireTime: prevBefore,
			NextFireTime: t.Core().NextFireTime,
			Recovering:   t.Core().Group == quartz.RecoveryGroup,
		})
	}
	if err := s.triggers.updateBatch(ctx, cands); err != nil {
		return nil, err
	}
	return bundles, nil
}

// TriggeredJobComplete applies the engine's completion verdict. A
// trigger whose schedule is exhausted (no next fire time) is removed
// from storage, cascading per RemoveTrigger.
func (s *Store) TriggeredJobComplete(ctx context.Context, t quartz.Trigger, job *quartz.JobDetail, instruction quartz.CompletionInstruction) error {
	key := t.Core().Key()
	switch instruction {
	case quartz.CompletionDeleteTrigger:
		_, err := s.RemoveTrigger(ctx, key)
		return err
	case quartz.CompletionSetTriggerComplete:
		return s.triggers.UpdateState(ctx, key, quartz.StateComplete)
	case quartz.CompletionSetTriggerError:
		return s.triggers.UpdateState(ctx, key, quartz.StateError)
	case quartz.CompletionSetAllJobTriggersComplete:
		return s.setJobTriggersState(ctx, t.Core().JobKey(), quartz.StateComplete)
	case quartz.CompletionSetAllJobTriggersError:
		return s.setJobTriggersState(ctx, t.Core().JobKey(), quartz.StateError)
	}

	if t.Core().NextFireTime == nil {
		// Guard against a concurrent reschedule: only remove when the
		// stored copy is exhausted too.
		stored, err := s.triggers.Retrieve(ctx, key)
		if err != nil {
			return err
		}
		if stored != nil && stored.Core().NextFireTime == nil {
			_, err := s.RemoveTrigger(ctx, key)
			return err
		}
	}
	return nil
}

func (s *Store) setJobTriggersState(ctx context.Context, jobKey quartz.Key, state quartz.TriggerState) error {
	related, err := s.triggers.ByJob(ctx, jobKey)
	if err != nil {
		return err
	}
	for _, t := range related {
		if err := s.triggers.UpdateState(ctx, t.Core().Key(), state); err != nil {
			return err
		}
	}
	return nil
}

// ---- Pause and resume ----

func (s *Store) PauseTrigger(ctx context.Context, key quartz.Key) error {
	return s.triggers.UpdateState(ctx, key, quartz.StatePaused)
}

func (s *Store) ResumeTrigger(ctx context.Context, key quartz.Key) error {
	return s.triggers.UpdateState(ctx, key, quartz.StateWaiting)
}

func (s *Store) PauseTriggers(ctx context.Context, m quartz.GroupMatcher) ([]string, error) {
	return nil, quartz.ErrUnsupported
}

func (s *Store) ResumeTriggers(ctx context.Context, m quartz.GroupMatcher) ([]string, error) {
	return nil, quartz.ErrUnsupported
}

func (s *Store) PauseJob(ctx context.Context, key quartz.Key) error {
	return quartz.ErrUnsupported
}

func (s *Store) ResumeJob(ctx context.Context, key quartz.Key) error {
	return quartz.ErrUnsupported
}

func (s *Store) PauseJobs(ctx context.Context, m quartz.GroupMatcher) ([]string, error) {
	return nil, quartz.ErrUnsupported
}

func (s *Store) ResumeJobs(ctx context.Context, m quartz.GroupMatcher) ([]string, error) {
	return nil, quartz.ErrUnsupported
}

func (s *Store) PausedTriggerGroups(ctx context.Context) ([]string, error) {
	return nil, quartz.ErrUnsupported
}

func (s *Store) PauseAll(ctx context.Context) error { return quartz.ErrUnsupported }

func (s *Store) ResumeAll(ctx context.Context) error { return quartz.ErrUnsupported }

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
