package jobstore

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"schedstore/internal/docstore"
	"schedstore/pkg/logx"
	"schedstore/pkg/quartz"
)

// TriggerRepository is CRUD over trigger documents plus the acquisition
// scan and the state machine transitions.
type TriggerRepository struct {
	docs *docstore.Store
	log  logx.Logger

	// A misfire storm (hundreds of overdue triggers after downtime) would
	// otherwise flood the log with one line per corrected trigger.
	misfireLog *rate.Limiter
}

func NewTriggerRepository(docs *docstore.Store, log logx.Logger) *TriggerRepository {
	return &TriggerRepository{
		docs:       docs,
		log:        log,
		misfireLog: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// get fetches a trigger together with its current revision.
func (r *TriggerRepository) get(ctx context.Context, key quartz.Key) (quartz.Trigger, string, error) {
	d, err := r.docs.Get(ctx, quartz.TriggerID(key))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", quartz.NewPersistenceError("trigger retrieve", err)
	}
	t, err := quartz.UnmarshalTrigger(d.Body)
	if err != nil {
		return nil, "", quartz.NewPersistenceError("trigger retrieve", err)
	}
	return t, d.Rev, nil
}

// Store inserts or overwrites a trigger. On overwrite the new trigger
// must reference the same job as the existing one; the existing
// document's identity and revision chain are preserved.
func (r *TriggerRepository) Store(ctx context.Context, t quartz.Trigger, replace bool) error {
	id := quartz.TriggerID(t.Core().Key())
	existing, rev, err := r.get(ctx, t.Core().Key())
	if err != nil {
		return err
	}
	if existing != nil && !replace {
		return quartz.ErrAlreadyExists
	}
	if existing != nil && existing.Core().JobKey() != t.Core().JobKey() {
		return quartz.ErrConsistency
	}
	body, err := quartz.MarshalTrigger(t)
	if err != nil {
		return quartz.NewPersistenceError("trigger store", err)
	}
	if existing == nil {
		_, err = r.docs.Insert(ctx, docstore.Doc{ID: id, Type: docstore.TypeTrigger, Body: body})
		if errors.Is(err, docstore.ErrExists) {
			err = quartz.ErrAlreadyExists
		}
	} else {
		_, err = r.docs.Update(ctx, docstore.Doc{ID: id, Type: docstore.TypeTrigger, Rev: rev, Body: body})
	}
	return quartz.NewPersistenceError("trigger store", err)
}

// Replace overwrites the trigger under key with a new one, enforcing the
// same-job check. Returns false without creating when key is absent.
func (r *TriggerRepository) Replace(ctx context.Context, key quartz.Key, t quartz.Trigger) (bool, error) {
	existing, rev, err := r.get(ctx, key)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}
	if existing.Core().JobKey() != t.Core().JobKey() {
		return false, quartz.ErrConsistency
	}
	// The stored identity wins over whatever the replacement carries.
	t.Core().Name = key.Name
	t.Core().Group = key.Group
	body, err := quartz.MarshalTrigger(t)
	if err != nil {
		return false, quartz.NewPersistenceError("trigger replace", err)
	}
	_, err = r.docs.Update(ctx, docstore.Doc{ID: quartz.TriggerID(key), Type: docstore.TypeTrigger, Rev: rev, Body: body})
	if err != nil {
		return false, quartz.NewPersistenceError("trigger replace", err)
	}
	return true, nil
}

// Retrieve returns the trigger, or nil when absent.
func (r *TriggerRepository) Retrieve(ctx context.Context, key quartz.Key) (quartz.Trigger, error) {
	t, _, err := r.get(ctx, key)
	return t, err
}

// Remove deletes the trigger and reports whether one existed.
func (r *TriggerRepository) Remove(ctx context.Context, key quartz.Key) (bool, error) {
	d, err := r.docs.Get(ctx, quartz.TriggerID(key))
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, quartz.NewPersistenceError("trigger remove", err)
	}
	if err := r.docs.Delete(ctx, d.ID, d.Rev); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return false, nil
		}
		return false, quartz.NewPersistenceError("trigger remove", err)
	}
	return true, nil
}

func (r *TriggerRepository) Exists(ctx context.Context, key quartz.Key) (bool, error) {
	_, err := r.docs.Get(ctx, quartz.TriggerID(key))
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, quartz.NewPersistenceError("trigger exists", err)
	}
	return true, nil
}

func (r *TriggerRepository) queryTriggers(ctx context.Context, op, clause, orderBy string, args ...any) ([]quartz.Trigger, error) {
	docs, err := r.docs.Query(ctx, docstore.TypeTrigger, clause, orderBy, args...)
	if err != nil {
		return nil, quartz.NewPersistenceError(op, err)
	}
	out := make([]quartz.Trigger, 0, len(docs))
	for _, d := range docs {
		t, err := quartz.UnmarshalTrigger(d.Body)
		if err != nil {
			return nil, quartz.NewPersistenceError(op, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// ByJob lists the triggers referencing a job.
func (r *TriggerRepository) ByJob(ctx context.Context, jobKey quartz.Key) ([]quartz.Trigger, error) {
	return r.queryTriggers(ctx, "triggers by job",
		"json_extract(body,'$.job_group') = ? AND json_extract(body,'$.job_name') = ?",
		"id ASC", jobKey.Group, jobKey.Name)
}

// ByCalendar lists the triggers referencing a calendar by name.
func (r *TriggerRepository) ByCalendar(ctx context.Context, name string) ([]quartz.Trigger, error) {
	return r.queryTriggers(ctx, "triggers by calendar",
		"json_extract(body,'$.calendar_name') = ?", "id ASC", name)
}

// Keys lists trigger keys whose group matches. Scan-and-filter.
func (r *TriggerRepository) Keys(ctx context.Context, m quartz.GroupMatcher) ([]quartz.Key, error) {
	all, err := r.queryTriggers(ctx, "trigger keys", "", "id ASC")
	if err != nil {
		return nil, err
	}
	var out []quartz.Key
	for _, t := range all {
		if m.Matches(t.Core().Group) {
			out = append(out, t.Core().Key())
		}
	}
	return out, nil
}

// RetrieveBatch bulk-fetches triggers; absent keys are skipped.
func (r *TriggerRepository) RetrieveBatch(ctx context.Context, keys []quartz.Key) ([]quartz.Trigger, error) {
	out := make([]quartz.Trigger, 0, len(keys))
	for _, k := range keys {
		t, _, err := r.get(ctx, k)
		if err != nil {
			return nil, err
		}
		if t != nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *TriggerRepository) GroupNames(ctx context.Context) ([]string, error) {
	groups, err := r.docs.Groups(ctx, docstore.TypeTrigger)
	return groups, quartz.NewPersistenceError("trigger group names", err)
}

func (r *TriggerRepository) Count(ctx context.Context) (int, error) {
	n, err := r.docs.Count(ctx, docstore.TypeTrigger, "")
	return n, quartz.NewPersistenceError("trigger count", err)
}

// State maps the stored trigger state onto the engine-facing one.
// Absent triggers report ExternalNone.
func (r *TriggerRepository) State(ctx context.Context, key quartz.Key) (quartz.ExternalState, error) {
	t, _, err := r.get(ctx, key)
	if err != nil {
		return quartz.ExternalNone, err
	}
	if t == nil {
		return quartz.ExternalNone, nil
	}
	return t.Core().State.External(), nil
}

// UpdateState assigns the state directly and persists.
func (r *TriggerRepository) UpdateState(ctx context.Context, key quartz.Key, state quartz.TriggerState) error {
	t, rev, err := r.get(ctx, key)
	if err != nil {
		return err
	}
	if t == nil {
		return nil
	}
	t.Core().State = state
	return r.update(ctx, t, rev)
}

func (r *TriggerRepository) update(ctx context.Context, t quartz.Trigger, rev string) error {
	body, err := quartz.MarshalTrigger(t)
	if err != nil {
		return quartz.NewPersistenceError("trigger update", err)
	}
	_, err = r.docs.Update(ctx, docstore.Doc{
		ID:   quartz.TriggerID(t.Core().Key()),
		Type: docstore.TypeTrigger,
		Rev:  rev,
		Body: body,
	})
	return quartz.NewPersistenceError("trigger update", err)
}

// candidate is a trigger paired with the revision it was read at, so a
// batched write can present the right precondition per document.
type candidate struct {
	trigger quartz.Trigger
	rev     string
}

// acquireCandidates scans waiting triggers due no later than the cutoff,
// ordered by next fire time with document id as the tie break.
func (r *TriggerRepository) acquireCandidates(ctx context.Context, cutoff time.Time, limit int) ([]candidate, error) {
	docs, err := r.docs.Query(ctx, docstore.TypeTrigger,
		"json_extract(body,'$.state') = ? AND json_extract(body,'$.next_fire_time') IS NOT NULL AND json_extract(body,'$.next_fire_time') <= ?",
		"json_extract(body,'$.next_fire_time') ASC, id ASC",
		string(quartz.StateWaiting), cutoff.UnixMilli(),
	)
	if err != nil {
		return nil, quartz.NewPersistenceError("trigger acquire", err)
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	out := make([]candidate, 0, len(docs))
	for _, d := range docs {
		t, err := quartz.UnmarshalTrigger(d.Body)
		if err != nil {
			return nil, quartz.NewPersistenceError("trigger acquire", err)
		}
		out = append(out, candidate{trigger: t, rev: d.Rev})
	}
	return out, nil
}

// updateBatch persists a set of read-modify-write triggers in one
// revision-checked batch.
func (r *TriggerRepository) updateBatch(ctx context.Context, cands []candidate) error {
	if len(cands) == 0 {
		return nil
	}
	docs := make([]docstore.Doc, len(cands))
	for i, c := range cands {
		body, err := quartz.MarshalTrigger(c.trigger)
		if err != nil {
			return quartz.NewPersistenceError("trigger batch update", err)
		}
		docs[i] = docstore.Doc{
			ID:   quartz.TriggerID(c.trigger.Core().Key()),
			Type: docstore.TypeTrigger,
			Rev:  c.rev,
			Body: body,
		}
	}
	_, err := r.docs.UpdateBatch(ctx, docs)
	return quartz.NewPersistenceError("trigger batch update", err)
}

// logMisfire is rate limited; see misfireLog.
func (r *TriggerRepository) logMisfire(t quartz.Trigger, was *time.Time) {
	if !r.misfireLog.Allow() {
		return
	}
	f := []logx.Field{logx.String("trigger", t.Core().Key().String())}
	if was != nil {
		f = append(f, logx.Time("missed_fire_time", *was))
	}
	if next := t.Core().NextFireTime; next != nil {
		f = append(f, logx.Time("corrected_fire_time", *next))
	}
	r.log.Warn("trigger misfired, fire time corrected", f...)
}

// removeAll deletes every trigger, logging and continuing on per-document
// failures. Used by the clear-all path.
func (r *TriggerRepository) removeAll(ctx context.Context) error {
	docs, err := r.docs.Query(ctx, docstore.TypeTrigger, "", "")
	if err != nil {
		return quartz.NewPersistenceError("trigger remove all", err)
	}
	for _, d := range docs {
		if err := r.docs.Delete(ctx, d.ID, d.Rev); err != nil {
			r.log.Warn("failed to delete trigger document", logx.String("id", d.ID), logx.Err(err))
		}
	}
	return nil
}
