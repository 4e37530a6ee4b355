package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"schedstore/internal/docstore"
	"schedstore/pkg/logx"
	"schedstore/pkg/quartz"
)

// calendarID derives the stable document id for a calendar name.
func calendarID(name string) string { return "calendar:" + name }

// CalendarRepository is CRUD over calendar documents. Calendars live in
// their own id space keyed by name alone.
type CalendarRepository struct {
	docs *docstore.Store
	log  logx.Logger
}

func NewCalendarRepository(docs *docstore.Store, log logx.Logger) *CalendarRepository {
	return &CalendarRepository{docs: docs, log: log}
}

// Store inserts or overwrites a calendar. Overwrite is a merge: the new
// payload's fields are folded into the existing document rather than
// swapping it wholesale, so fields the new payload omits survive.
func (r *CalendarRepository) Store(ctx context.Context, name string, cal quartz.Calendar, replace bool) error {
	if strings.TrimSpace(name) == "" {
		return quartz.NewPersistenceError("calendar store", errors.New("calendar name is required"))
	}
	if err := quartz.ValidateCalendar(cal); err != nil {
		return quartz.NewPersistenceError("calendar store", err)
	}
	body, err := quartz.MarshalCalendar(cal)
	if err != nil {
		return quartz.NewPersistenceError("calendar store", err)
	}
	id := calendarID(name)
	existing, err := r.docs.Get(ctx, id)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		_, err = r.docs.Insert(ctx, docstore.Doc{ID: id, Type: docstore.TypeCalendar, Body: body})
		if errors.Is(err, docstore.ErrExists) {
			err = quartz.ErrAlreadyExists
		}
	case err != nil:
	case !replace:
		return quartz.ErrAlreadyExists
	default:
		merged, merr := mergeJSON(existing.Body, body)
		if merr != nil {
			return quartz.NewPersistenceError("calendar store", merr)
		}
		_, err = r.docs.Update(ctx, docstore.Doc{ID: id, Type: docstore.TypeCalendar, Rev: existing.Rev, Body: merged})
	}
	return quartz.NewPersistenceError("calendar store", err)
}

// mergeJSON folds the fields of over into base at the top level.
func mergeJSON(base, over []byte) ([]byte, error) {
	var dst, src map[string]any
	if err := json.Unmarshal(base, &dst); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(over, &src); err != nil {
		return nil, err
	}
	for k, v := range src {
		dst[k] = v
	}
	return json.Marshal(dst)
}

// Retrieve returns the calendar, or nil when absent.
func (r *CalendarRepository) Retrieve(ctx context.Context, name string) (quartz.Calendar, error) {
	d, err := r.docs.Get(ctx, calendarID(name))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, quartz.NewPersistenceError("calendar retrieve", err)
	}
	cal, err := quartz.UnmarshalCalendar(d.Body)
	if err != nil {
		return nil, quartz.NewPersistenceError("calendar retrieve", err)
	}
	return cal, nil
}

// Remove deletes the calendar and reports whether one existed. Triggers
// referencing the name are untouched; their reference dangles harmlessly.
func (r *CalendarRepository) Remove(ctx context.Context, name string) (bool, error) {
	d, err := r.docs.Get(ctx, calendarID(name))
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, quartz.NewPersistenceError("calendar remove", err)
	}
	if err := r.docs.Delete(ctx, d.ID, d.Rev); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return false, nil
		}
		return false, quartz.NewPersistenceError("calendar remove", err)
	}
	return true, nil
}

// Names lists every stored calendar name.
func (r *CalendarRepository) Names(ctx context.Context) ([]string, error) {
	docs, err := r.docs.Query(ctx, docstore.TypeCalendar, "", "id ASC")
	if err != nil {
		return nil, quartz.NewPersistenceError("calendar names", err)
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, strings.TrimPrefix(d.ID, "calendar:"))
	}
	return out, nil
}

// RetrieveBatch bulk-fetches calendars by name; absent names are skipped.
func (r *CalendarRepository) RetrieveBatch(ctx context.Context, names []string) (map[string]quartz.Calendar, error) {
	out := make(map[string]quartz.Calendar, len(names))
	for _, n := range names {
		cal, err := r.Retrieve(ctx, n)
		if err != nil {
			return nil, err
		}
		if cal != nil {
			out[n] = cal
		}
	}
	return out, nil
}

func (r *CalendarRepository) Count(ctx context.Context) (int, error) {
	n, err := r.docs.Count(ctx, docstore.TypeCalendar, "")
	return n, quartz.NewPersistenceError("calendar count", err)
}

// removeAll deletes every calendar, logging and continuing on failures.
func (r *CalendarRepository) removeAll(ctx context.Context) error {
	docs, err := r.docs.Query(ctx, docstore.TypeCalendar, "", "")
	if err != nil {
		return quartz.NewPersistenceError("calendar remove all", err)
	}
	for _, d := range docs {
		if err := r.docs.Delete(ctx, d.ID, d.Rev); err != nil {
			r.log.Warn("failed to delete calendar document", logx.String("id", d.ID), logx.Err(err))
		}
	}
	return nil
}
