package jobstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"schedstore/internal/docstore"
	"schedstore/pkg/logx"
	"schedstore/pkg/quartz"
)

var fixedNow = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	docs, err := docstore.Open(docstore.Config{
		Path:        filepath.Join(t.TempDir(), "sched.db"),
		BusyTimeout: time.Second,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	t.Cleanup(func() { _ = docs.Close() })

	s := New(docs, logx.Nop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func mustStoreJob(t *testing.T, s *Store, group, name string) *quartz.JobDetail {
	t.Helper()
	job := quartz.NewJobDetail(quartz.NewKey(group, name), "handlers.Test")
	if err := s.StoreJob(context.Background(), job, false); err != nil {
		t.Fatalf("StoreJob(%s.%s): %v", group, name, err)
	}
	return job
}

func mustStoreSimple(t *testing.T, s *Store, name string, jobKey quartz.Key, start time.Time, count int, interval time.Duration) *quartz.SimpleTrigger {
	t.Helper()
	tr := quartz.NewSimpleTrigger(quartz.NewKey("", name), jobKey, start, count, interval)
	if err := s.StoreTrigger(context.Background(), tr, false); err != nil {
		t.Fatalf("StoreTrigger(%s): %v", name, err)
	}
	return tr
}

func TestStoreJobReplaceSemantics(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	job := quartz.NewJobDetail(quartz.NewKey("", "etl"), "handlers.ETL")
	job.Data = map[string]any{"v": "1"}
	if err := s.StoreJob(ctx, job, false); err != nil {
		t.Fatalf("first StoreJob: %v", err)
	}
	if err := s.StoreJob(ctx, job, false); !errors.Is(err, quartz.ErrAlreadyExists) {
		t.Fatalf("second StoreJob = %v, want ErrAlreadyExists", err)
	}

	job.Data = map[string]any{"v": "2"}
	if err := s.StoreJob(ctx, job, true); err != nil {
		t.Fatalf("StoreJob with replace: %v", err)
	}
	got, err := s.RetrieveJob(ctx, job.Key())
	if err != nil {
		t.Fatalf("RetrieveJob: %v", err)
	}
	if got == nil || got.Data["v"] != "2" {
		t.Fatalf("RetrieveJob = %+v, want data v=2", got)
	}
}

func TestRetrieveMissingIsAbsentNotError(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.RetrieveJob(ctx, quartz.NewKey("", "ghost"))
	if err != nil || job != nil {
		t.Fatalf("RetrieveJob = (%v, %v), want (nil, nil)", job, err)
	}
	tr, err := s.RetrieveTrigger(ctx, quartz.NewKey("", "ghost"))
	if err != nil || tr != nil {
		t.Fatalf("RetrieveTrigger = (%v, %v), want (nil, nil)", tr, err)
	}
	cal, err := s.RetrieveCalendar(ctx, "ghost")
	if err != nil || cal != nil {
		t.Fatalf("RetrieveCalendar = (%v, %v), want (nil, nil)", cal, err)
	}

	found, err := s.RemoveJob(ctx, quartz.NewKey("", "ghost"))
	if err != nil || found {
		t.Fatalf("RemoveJob of missing = (%v, %v), want (false, nil)", found, err)
	}
}

func TestStoreTriggerRequiresJob(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	tr := quartz.NewSimpleTrigger(quartz.NewKey("", "t"), quartz.NewKey("", "nope"), fixedNow, 0, 0)
	if err := s.StoreTrigger(context.Background(), tr, false); err == nil {
		t.Fatal("expected error for trigger referencing a missing job")
	}
}

func TestStoreTriggerSameJobCheck(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	j1 := mustStoreJob(t, s, "", "j1")
	mustStoreJob(t, s, "", "j2")
	mustStoreSimple(t, s, "t", j1.Key(), fixedNow.Add(time.Hour), 0, 0)

	other := quartz.NewSimpleTrigger(quartz.NewKey("", "t"), quartz.NewKey("", "j2"), fixedNow.Add(time.Hour), 0, 0)
	if err := s.StoreTrigger(ctx, other, true); !errors.Is(err, quartz.ErrConsistency) {
		t.Fatalf("StoreTrigger with different job = %v, want ErrConsistency", err)
	}
	if err := s.StoreTrigger(ctx, other, false); !errors.Is(err, quartz.ErrAlreadyExists) {
		t.Fatalf("StoreTrigger without replace = %v, want ErrAlreadyExists", err)
	}

	// Replace of a missing trigger reports false and stores nothing.
	found, err := s.ReplaceTrigger(ctx, quartz.NewKey("", "missing"), other)
	if err != nil || found {
		t.Fatalf("ReplaceTrigger of missing = (%v, %v), want (false, nil)", found, err)
	}
}

func TestAcquireNextTriggersOrderingAndStates(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	j := mustStoreJob(t, s, "", "j")
	mustStoreSimple(t, s, "late", j.Key(), fixedNow.Add(3*time.Second), 0, 0)
	mustStoreSimple(t, s, "early", j.Key(), fixedNow.Add(1*time.Second), 0, 0)
	mustStoreSimple(t, s, "paused", j.Key(), fixedNow.Add(2*time.Second), 0, 0)
	if err := s.UpdateTriggerState(ctx, quartz.NewKey("", "paused"), quartz.StatePaused); err != nil {
		t.Fatalf("UpdateTriggerState: %v", err)
	}

	got, err := s.AcquireNextTriggers(ctx, fixedNow.Add(10*time.Second), 5, 0)
	if err != nil {
		t.Fatalf("AcquireNextTriggers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("acquired %d triggers, want 2 (paused one excluded)", len(got))
	}
	if got[0].Core().Name != "early" || got[1].Core().Name != "late" {
		t.Fatalf("acquisition order = [%s %s], want [early late]", got[0].Core().Name, got[1].Core().Name)
	}
	for _, tr := range got {
		stored, err := s.RetrieveTrigger(ctx, tr.Core().Key())
		if err != nil {
			t.Fatalf("RetrieveTrigger: %v", err)
		}
		if stored.Core().State != quartz.StateAcquired {
			t.Fatalf("trigger %s state = %s, want ACQUIRED", tr.Core().Name, stored.Core().State)
		}
	}

	if err := s.ReleaseAcquiredTrigger(ctx, got[0]); err != nil {
		t.Fatalf("ReleaseAcquiredTrigger: %v", err)
	}
	stored, err := s.RetrieveTrigger(ctx, got[0].Core().Key())
	if err != nil {
		t.Fatalf("RetrieveTrigger: %v", err)
	}
	if stored.Core().State != quartz.StateWaiting {
		t.Fatalf("released trigger state = %s, want WAITING", stored.Core().State)
	}
}

func TestAcquireRespectsMaxCountAndWindow(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	j := mustStoreJob(t, s, "", "j")
	mustStoreSimple(t, s, "a", j.Key(), fixedNow.Add(1*time.Second), 0, 0)
	mustStoreSimple(t, s, "b", j.Key(), fixedNow.Add(2*time.Second), 0, 0)
	mustStoreSimple(t, s, "far", j.Key(), fixedNow.Add(time.Hour), 0, 0)

	got, err := s.AcquireNextTriggers(ctx, fixedNow.Add(10*time.Second), 1, 0)
	if err != nil {
		t.Fatalf("AcquireNextTriggers: %v", err)
	}
	if len(got) != 1 || got[0].Core().Name != "a" {
		t.Fatalf("acquired = %v, want just [a]", got)
	}

	// The far trigger comes into range only through the time window.
	got, err = s.AcquireNextTriggers(ctx, fixedNow.Add(10*time.Second), 5, time.Hour)
	if err != nil {
		t.Fatalf("AcquireNextTriggers: %v", err)
	}
	if len(got) != 2 || got[1].Core().Name != "far" {
		t.Fatalf("acquired %d, want [b far]", len(got))
	}
}

func TestAcquireAppliesMisfireCorrection(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	j := mustStoreJob(t, s, "", "j")
	// One-shot that slipped five minutes past its fire time.
	mustStoreSimple(t, s, "overdue", j.Key(), fixedNow.Add(-5*time.Minute), 0, 0)

	got, err := s.AcquireNextTriggers(ctx, fixedNow, 1, 0)
	if err != nil {
		t.Fatalf("AcquireNextTriggers: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("acquired %d triggers, want 1", len(got))
	}
	// Smart policy on a one-shot corrects the fire time to now.
	next := got[0].Core().NextFireTime
	if next == nil || !next.Equal(fixedNow) {
		t.Fatalf("corrected fire time = %v, want %v", next, fixedNow)
	}
	stored, err := s.RetrieveTrigger(ctx, got[0].Core().Key())
	if err != nil {
		t.Fatalf("RetrieveTrigger: %v", err)
	}
	if stored.Core().State != quartz.StateAcquired {
		t.Fatalf("state = %s, want ACQUIRED", stored.Core().State)
	}
	if stored.Core().NextFireTime == nil || !stored.Core().NextFireTime.Equal(fixedNow) {
		t.Fatalf("persisted fire time = %v, want %v", stored.Core().NextFireTime, fixedNow)
	}
}

func TestSingleShotFireAndComplete(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	job := mustStoreJob(t, s, "", "once")
	mustStoreSimple(t, s, "once", job.Key(), fixedNow.Add(time.Second), 0, 0)

	acquired, err := s.AcquireNextTriggers(ctx, fixedNow.Add(10*time.Second), 1, 0)
	if err != nil || len(acquired) != 1 {
		t.Fatalf("AcquireNextTriggers = (%v, %v), want one trigger", acquired, err)
	}

	bundles, err := s.TriggersFired(ctx, acquired)
	if err != nil {
		t.Fatalf("TriggersFired: %v", err)
	}
	if len(bundles) != 1 {
		t.Fatalf("got %d bundles, want 1", len(bundles))
	}
	b := bundles[0]
	if b.NextFireTime != nil {
		t.Fatalf("single-shot bundle NextFireTime = %v, want nil", b.NextFireTime)
	}
	if !b.FireTime.Equal(fixedNow) {
		t.Fatalf("bundle FireTime = %v, want %v", b.FireTime, fixedNow)
	}
	if b.Job == nil || b.Job.Key() != job.Key() {
		t.Fatalf("bundle job = %+v, want %s", b.Job, job.Key())
	}
	if b.Recovering {
		t.Fatal("bundle marked recovering for a regular group")
	}

	stored, err := s.RetrieveTrigger(ctx, b.Trigger.Core().Key())
	if err != nil {
		t.Fatalf("RetrieveTrigger: %v", err)
	}
	if stored.Core().State != quartz.StateWaiting || stored.Core().NextFireTime != nil {
		t.Fatalf("fired trigger = state %s next %v, want WAITING/nil", stored.Core().State, stored.Core().NextFireTime)
	}

	if err := s.TriggeredJobComplete(ctx, b.Trigger, b.Job, quartz.CompletionNoop); err != nil {
		t.Fatalf("TriggeredJobComplete: %v", err)
	}
	gone, err := s.RetrieveTrigger(ctx, b.Trigger.Core().Key())
	if err != nil || gone != nil {
		t.Fatalf("exhausted trigger still stored: (%v, %v)", gone, err)
	}
	// The cascade took the now trigger-less job with it.
	j, err := s.RetrieveJob(ctx, job.Key())
	if err != nil || j != nil {
		t.Fatalf("job after cascade = (%v, %v), want (nil, nil)", j, err)
	}
}

func TestRepeatingFireAdvancesSchedule(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	j := mustStoreJob(t, s, "", "j")
	mustStoreSimple(t, s, "rep", j.Key(), fixedNow.Add(time.Second), 5, time.Minute)

	acquired, err := s.AcquireNextTriggers(ctx, fixedNow.Add(10*time.Second), 1, 0)
	if err != nil || len(acquired) != 1 {
		t.Fatalf("AcquireNextTriggers = (%v, %v)", acquired, err)
	}
	bundles, err := s.TriggersFired(ctx, acquired)
	if err != nil || len(bundles) != 1 {
		t.Fatalf("TriggersFired = (%v, %v)", bundles, err)
	}

	first := fixedNow.Add(time.Second)
	b := bundles[0]
	if b.NextFireTime == nil || !b.NextFireTime.Equal(first.Add(time.Minute)) {
		t.Fatalf("advanced fire time = %v, want %v", b.NextFireTime, first.Add(time.Minute))
	}
	stored, err := s.RetrieveTrigger(ctx, b.Trigger.Core().Key())
	if err != nil {
		t.Fatalf("RetrieveTrigger: %v", err)
	}
	if stored.Core().PreviousFireTime == nil || !stored.Core().PreviousFireTime.Equal(first) {
		t.Fatalf("previous fire time = %v, want %v", stored.Core().PreviousFireTime, first)
	}
	simple, ok := stored.(*quartz.SimpleTrigger)
	if !ok {
		t.Fatalf("stored trigger = %T, want *SimpleTrigger", stored)
	}
	if simple.TimesTriggered != 1 {
		t.Fatalf("TimesTriggered = %d, want 1", simple.TimesTriggered)
	}
}

func TestRemoveJobCascadesToTriggers(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	j := mustStoreJob(t, s, "", "j")
	mustStoreSimple(t, s, "t1", j.Key(), fixedNow.Add(time.Hour), 0, 0)
	mustStoreSimple(t, s, "t2", j.Key(), fixedNow.Add(2*time.Hour), 0, 0)

	found, err := s.RemoveJob(ctx, j.Key())
	if err != nil || !found {
		t.Fatalf("RemoveJob = (%v, %v), want (true, nil)", found, err)
	}
	for _, name := range []string{"t1", "t2"} {
		tr, err := s.RetrieveTrigger(ctx, quartz.NewKey("", name))
		if err != nil || tr != nil {
			t.Fatalf("trigger %s after cascade = (%v, %v), want absent", name, tr, err)
		}
	}
}

func TestRemoveJobRetryAfterPartialCascade(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	j := mustStoreJob(t, s, "", "j")
	mustStoreSimple(t, s, "t1", j.Key(), fixedNow.Add(time.Hour), 0, 0)
	mustStoreSimple(t, s, "t2", j.Key(), fixedNow.Add(2*time.Hour), 0, 0)

	// Simulate a crash that removed one trigger but never reached the job.
	if _, err := s.triggers.Remove(ctx, quartz.NewKey("", "t1")); err != nil {
		t.Fatalf("simulated partial cascade: %v", err)
	}

	found, err := s.RemoveJob(ctx, j.Key())
	if err != nil || !found {
		t.Fatalf("RemoveJob retry = (%v, %v), want (true, nil)", found, err)
	}
	if tr, _ := s.RetrieveTrigger(ctx, quartz.NewKey("", "t2")); tr != nil {
		t.Fatal("trigger t2 survived the retried cascade")
	}
}

func TestRemoveTriggerCascadesJobOnLastTrigger(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	j := mustStoreJob(t, s, "", "j")
	mustStoreSimple(t, s, "t1", j.Key(), fixedNow.Add(time.Hour), 0, 0)
	mustStoreSimple(t, s, "t2", j.Key(), fixedNow.Add(2*time.Hour), 0, 0)

	found, err := s.RemoveTrigger(ctx, quartz.NewKey("", "t1"))
	if err != nil || !found {
		t.Fatalf("RemoveTrigger t1 = (%v, %v), want (true, nil)", found, err)
	}
	if job, _ := s.RetrieveJob(ctx, j.Key()); job == nil {
		t.Fatal("job removed while another trigger still references it")
	}

	found, err = s.RemoveTrigger(ctx, quartz.NewKey("", "t2"))
	if err != nil || !found {
		t.Fatalf("RemoveTrigger t2 = (%v, %v), want (true, nil)", found, err)
	}
	if job, _ := s.RetrieveJob(ctx, j.Key()); job != nil {
		t.Fatal("job survived removal of its last trigger")
	}
}

func TestStoreCalendarUpdateTriggers(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.StoreCalendar(ctx, "cal1", quartz.NewHolidayCalendar(""), false, false); err != nil {
		t.Fatalf("StoreCalendar: %v", err)
	}
	j := mustStoreJob(t, s, "", "j")
	start := time.Date(2030, 6, 2, 0, 0, 0, 0, time.UTC)
	tr, err := quartz.NewCronTrigger(quartz.NewKey("", "daily"), j.Key(), start, "0 0 12 * * *", "")
	if err != nil {
		t.Fatalf("NewCronTrigger: %v", err)
	}
	tr.CalendarName = "cal1"
	if err := s.StoreTrigger(ctx, tr, false); err != nil {
		t.Fatalf("StoreTrigger: %v", err)
	}

	firstNoon := time.Date(2030, 6, 2, 12, 0, 0, 0, time.UTC)
	stored, _ := s.RetrieveTrigger(ctx, tr.Key())
	if stored.Core().NextFireTime == nil || !stored.Core().NextFireTime.Equal(firstNoon) {
		t.Fatalf("initial fire time = %v, want %v", stored.Core().NextFireTime, firstNoon)
	}

	excluding := quartz.NewHolidayCalendar("", time.Date(2030, 6, 2, 0, 0, 0, 0, time.UTC))

	// updateTriggers=false leaves the stale fire time in place.
	if err := s.StoreCalendar(ctx, "cal1", excluding, true, false); err != nil {
		t.Fatalf("StoreCalendar: %v", err)
	}
	stored, _ = s.RetrieveTrigger(ctx, tr.Key())
	if !stored.Core().NextFireTime.Equal(firstNoon) {
		t.Fatalf("fire time moved without updateTriggers: %v", stored.Core().NextFireTime)
	}

	// updateTriggers=true recomputes it past the new exclusion.
	if err := s.StoreCalendar(ctx, "cal1", excluding, true, true); err != nil {
		t.Fatalf("StoreCalendar: %v", err)
	}
	stored, _ = s.RetrieveTrigger(ctx, tr.Key())
	want := time.Date(2030, 6, 3, 12, 0, 0, 0, time.UTC)
	if stored.Core().NextFireTime == nil || !stored.Core().NextFireTime.Equal(want) {
		t.Fatalf("recomputed fire time = %v, want %v", stored.Core().NextFireTime, want)
	}
}

func TestStoreTriggerSkipsExcludedStartDate(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	d := time.Date(2030, 7, 1, 0, 0, 0, 0, time.UTC)
	if err := s.StoreCalendar(ctx, "blackout", quartz.NewHolidayCalendar("", d), false, false); err != nil {
		t.Fatalf("StoreCalendar: %v", err)
	}
	j := mustStoreJob(t, s, "", "j")
	tr, err := quartz.NewCronTrigger(quartz.NewKey("", "daily"), j.Key(), d, "0 0 12 * * *", "")
	if err != nil {
		t.Fatalf("NewCronTrigger: %v", err)
	}
	tr.CalendarName = "blackout"
	if err := s.StoreTrigger(ctx, tr, false); err != nil {
		t.Fatalf("StoreTrigger: %v", err)
	}

	stored, err := s.RetrieveTrigger(ctx, tr.Key())
	if err != nil {
		t.Fatalf("RetrieveTrigger: %v", err)
	}
	want := time.Date(2030, 7, 2, 12, 0, 0, 0, time.UTC)
	if stored.Core().NextFireTime == nil || !stored.Core().NextFireTime.Equal(want) {
		t.Fatalf("first fire = %v, want %v (excluded date skipped)", stored.Core().NextFireTime, want)
	}
}

func TestStoreJobsAndTriggersPreValidation(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	existing := mustStoreJob(t, s, "", "existing")

	newJob := quartz.NewJobDetail(quartz.NewKey("", "fresh"), "handlers.Fresh")
	sets := []quartz.JobWithTriggers{
		{Job: newJob, Triggers: []quartz.Trigger{
			quartz.NewSimpleTrigger(quartz.NewKey("", "fresh-t"), newJob.Key(), fixedNow.Add(time.Hour), 0, 0),
		}},
		{Job: existing},
	}
	if err := s.StoreJobsAndTriggers(ctx, sets, false); !errors.Is(err, quartz.ErrAlreadyExists) {
		t.Fatalf("StoreJobsAndTriggers = %v, want ErrAlreadyExists", err)
	}
	// Pre-validation failed before anything was written.
	if job, _ := s.RetrieveJob(ctx, newJob.Key()); job != nil {
		t.Fatal("job written despite failed pre-validation")
	}

	if err := s.StoreJobsAndTriggers(ctx, sets, true); err != nil {
		t.Fatalf("StoreJobsAndTriggers with replace: %v", err)
	}
	if job, _ := s.RetrieveJob(ctx, newJob.Key()); job == nil {
		t.Fatal("job missing after bulk store")
	}
	if tr, _ := s.RetrieveTrigger(ctx, quartz.NewKey("", "fresh-t")); tr == nil {
		t.Fatal("trigger missing after bulk store")
	}
}

func TestClearAllSchedulingData(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	j := mustStoreJob(t, s, "", "j")
	mustStoreSimple(t, s, "t", j.Key(), fixedNow.Add(time.Hour), 0, 0)
	if err := s.StoreCalendar(ctx, "cal", quartz.NewWeeklyCalendar("", time.Sunday), false, false); err != nil {
		t.Fatalf("StoreCalendar: %v", err)
	}

	if err := s.ClearAllSchedulingData(ctx); err != nil {
		t.Fatalf("ClearAllSchedulingData: %v", err)
	}
	for name, count := range map[string]func(context.Context) (int, error){
		"jobs":      s.NumberOfJobs,
		"triggers":  s.NumberOfTriggers,
		"calendars": s.NumberOfCalendars,
	} {
		n, err := count(ctx)
		if err != nil {
			t.Fatalf("count %s: %v", name, err)
		}
		if n != 0 {
			t.Fatalf("%s count after clear = %d, want 0", name, n)
		}
	}

	// Idempotent on an empty store.
	if err := s.ClearAllSchedulingData(ctx); err != nil {
		t.Fatalf("second ClearAllSchedulingData: %v", err)
	}
}

func TestTriggerStateMapping(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	j := mustStoreJob(t, s, "", "j")
	mustStoreSimple(t, s, "t", j.Key(), fixedNow.Add(time.Hour), 0, 0)

	state, err := s.TriggerState(ctx, quartz.NewKey("", "t"))
	if err != nil || state != quartz.ExternalNormal {
		t.Fatalf("TriggerState = (%v, %v), want NORMAL", state, err)
	}

	if err := s.PauseTrigger(ctx, quartz.NewKey("", "t")); err != nil {
		t.Fatalf("PauseTrigger: %v", err)
	}
	state, _ = s.TriggerState(ctx, quartz.NewKey("", "t"))
	if state != quartz.ExternalPaused {
		t.Fatalf("paused TriggerState = %v, want PAUSED", state)
	}

	if err := s.ResumeTrigger(ctx, quartz.NewKey("", "t")); err != nil {
		t.Fatalf("ResumeTrigger: %v", err)
	}
	state, _ = s.TriggerState(ctx, quartz.NewKey("", "t"))
	if state != quartz.ExternalNormal {
		t.Fatalf("resumed TriggerState = %v, want NORMAL", state)
	}

	state, err = s.TriggerState(ctx, quartz.NewKey("", "missing"))
	if err != nil || state != quartz.ExternalNone {
		t.Fatalf("missing TriggerState = (%v, %v), want NONE", state, err)
	}
}

func TestUnsupportedOperationsFailFast(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	key := quartz.NewKey("", "x")

	checks := map[string]error{
		"Shutdown":  s.Shutdown(),
		"PauseJob":  s.PauseJob(ctx, key),
		"ResumeJob": s.ResumeJob(ctx, key),
		"PauseAll":  s.PauseAll(ctx),
		"ResumeAll": s.ResumeAll(ctx),
	}
	if _, err := s.PauseTriggers(ctx, quartz.AnyGroup()); err != nil {
		checks["PauseTriggers"] = err
	}
	if _, err := s.ResumeTriggers(ctx, quartz.AnyGroup()); err != nil {
		checks["ResumeTriggers"] = err
	}
	if _, err := s.PauseJobs(ctx, quartz.AnyGroup()); err != nil {
		checks["PauseJobs"] = err
	}
	if _, err := s.ResumeJobs(ctx, quartz.AnyGroup()); err != nil {
		checks["ResumeJobs"] = err
	}
	if _, err := s.PausedTriggerGroups(ctx); err != nil {
		checks["PausedTriggerGroups"] = err
	}

	for op, err := range checks {
		if !errors.Is(err, quartz.ErrUnsupported) {
			t.Fatalf("%s = %v, want ErrUnsupported", op, err)
		}
	}
}

func TestListingsAndCounts(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	a := mustStoreJob(t, s, "alpha", "a")
	mustStoreJob(t, s, "beta", "b")
	mustStoreSimple(t, s, "t", a.Key(), fixedNow.Add(time.Hour), 0, 0)

	keys, err := s.JobKeys(ctx, quartz.GroupEquals("alpha"))
	if err != nil || len(keys) != 1 || keys[0].Name != "a" {
		t.Fatalf("JobKeys(alpha) = (%v, %v)", keys, err)
	}
	keys, err = s.JobKeys(ctx, quartz.AnyGroup())
	if err != nil || len(keys) != 2 {
		t.Fatalf("JobKeys(any) = (%v, %v)", keys, err)
	}

	groups, err := s.JobGroupNames(ctx)
	if err != nil || len(groups) != 2 {
		t.Fatalf("JobGroupNames = (%v, %v)", groups, err)
	}

	triggers, err := s.TriggersForJob(ctx, a.Key())
	if err != nil || len(triggers) != 1 {
		t.Fatalf("TriggersForJob = (%v, %v)", triggers, err)
	}

	n, err := s.NumberOfJobs(ctx)
	if err != nil || n != 2 {
		t.Fatalf("NumberOfJobs = (%d, %v), want 2", n, err)
	}
}

func TestLifecycleReporting(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	if !s.SupportsPersistence() {
		t.Fatal("SupportsPersistence = false, want true")
	}
	if s.Clustered() {
		t.Fatal("Clustered = true, want false")
	}
	if d := s.EstimatedTimeToReleaseAndAcquireTrigger(); d != 0 {
		t.Fatalf("EstimatedTimeToReleaseAndAcquireTrigger = %v, want 0", d)
	}
}

func TestSetMisfireThreshold(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	if err := s.SetMisfireThreshold(0); err == nil {
		t.Fatal("expected error for zero threshold")
	}
	if err := s.SetMisfireThreshold(-time.Second); err == nil {
		t.Fatal("expected error for negative threshold")
	}
	if err := s.SetMisfireThreshold(30 * time.Second); err != nil {
		t.Fatalf("SetMisfireThreshold: %v", err)
	}
	if got := s.threshold(); got != 30*time.Second {
		t.Fatalf("threshold = %v, want 30s", got)
	}
}
