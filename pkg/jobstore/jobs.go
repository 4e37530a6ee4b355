package jobstore

import (
	"context"
	"errors"

	"schedstore/internal/docstore"
	"schedstore/pkg/logx"
	"schedstore/pkg/quartz"
)

// JobRepository is CRUD over job documents.
type JobRepository struct {
	docs *docstore.Store
	log  logx.Logger
}

func NewJobRepository(docs *docstore.Store, log logx.Logger) *JobRepository {
	return &JobRepository{docs: docs, log: log}
}

// Store inserts or overwrites a job. With replace=false an existing job
// fails with ErrAlreadyExists; with replace=true the existing document's
// identity and revision chain are preserved across the overwrite.
func (r *JobRepository) Store(ctx context.Context, job *quartz.JobDetail, replace bool) error {
	id := quartz.JobID(job.Key())
	body, err := quartz.MarshalJob(job)
	if err != nil {
		return quartz.NewPersistenceError("job store", err)
	}
	existing, err := r.docs.Get(ctx, id)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		_, err = r.docs.Insert(ctx, docstore.Doc{ID: id, Type: docstore.TypeJob, Body: body})
		if errors.Is(err, docstore.ErrExists) {
			err = quartz.ErrAlreadyExists
		}
	case err != nil:
	case !replace:
		return quartz.ErrAlreadyExists
	default:
		_, err = r.docs.Update(ctx, docstore.Doc{ID: id, Type: docstore.TypeJob, Rev: existing.Rev, Body: body})
	}
	return quartz.NewPersistenceError("job store", err)
}

// Retrieve returns the job, or nil when absent.
func (r *JobRepository) Retrieve(ctx context.Context, key quartz.Key) (*quartz.JobDetail, error) {
	d, err := r.docs.Get(ctx, quartz.JobID(key))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, quartz.NewPersistenceError("job retrieve", err)
	}
	job, err := quartz.UnmarshalJob(d.Body)
	if err != nil {
		return nil, quartz.NewPersistenceError("job retrieve", err)
	}
	return job, nil
}

// Remove deletes the job and reports whether one existed.
func (r *JobRepository) Remove(ctx context.Context, key quartz.Key) (bool, error) {
	d, err := r.docs.Get(ctx, quartz.JobID(key))
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, quartz.NewPersistenceError("job remove", err)
	}
	if err := r.docs.Delete(ctx, d.ID, d.Rev); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return false, nil
		}
		return false, quartz.NewPersistenceError("job remove", err)
	}
	return true, nil
}

// RemoveBatch removes each key independently and reports whether every
// key named an existing job.
func (r *JobRepository) RemoveBatch(ctx context.Context, keys []quartz.Key) (bool, error) {
	all := true
	for _, k := range keys {
		found, err := r.Remove(ctx, k)
		if err != nil {
			return false, err
		}
		all = all && found
	}
	return all, nil
}

func (r *JobRepository) Exists(ctx context.Context, key quartz.Key) (bool, error) {
	_, err := r.docs.Get(ctx, quartz.JobID(key))
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, quartz.NewPersistenceError("job exists", err)
	}
	return true, nil
}

// Keys lists job keys whose group matches. Scan-and-filter; volumes are
// operational scale.
func (r *JobRepository) Keys(ctx context.Context, m quartz.GroupMatcher) ([]quartz.Key, error) {
	docs, err := r.docs.Query(ctx, docstore.TypeJob, "", "id ASC")
	if err != nil {
		return nil, quartz.NewPersistenceError("job keys", err)
	}
	var out []quartz.Key
	for _, d := range docs {
		job, err := quartz.UnmarshalJob(d.Body)
		if err != nil {
			return nil, quartz.NewPersistenceError("job keys", err)
		}
		if m.Matches(job.Group) {
			out = append(out, job.Key())
		}
	}
	return out, nil
}

func (r *JobRepository) GroupNames(ctx context.Context) ([]string, error) {
	groups, err := r.docs.Groups(ctx, docstore.TypeJob)
	return groups, quartz.NewPersistenceError("job group names", err)
}

func (r *JobRepository) Count(ctx context.Context) (int, error) {
	n, err := r.docs.Count(ctx, docstore.TypeJob, "")
	return n, quartz.NewPersistenceError("job count", err)
}

// RetrieveBatch bulk-fetches jobs; absent keys are skipped.
func (r *JobRepository) RetrieveBatch(ctx context.Context, keys []quartz.Key) ([]*quartz.JobDetail, error) {
	out := make([]*quartz.JobDetail, 0, len(keys))
	for _, k := range keys {
		job, err := r.Retrieve(ctx, k)
		if err != nil {
			return nil, err
		}
		if job != nil {
			out = append(out, job)
		}
	}
	return out, nil
}

// removeAll deletes every job, logging and continuing on per-document
// failures. Used by the clear-all path.
func (r *JobRepository) removeAll(ctx context.Context) error {
	docs, err := r.docs.Query(ctx, docstore.TypeJob, "", "")
	if err != nil {
		return quartz.NewPersistenceError("job remove all", err)
	}
	for _, d := range docs {
		if err := r.docs.Delete(ctx, d.ID, d.Rev); err != nil {
			r.log.Warn("failed to delete job document", logx.String("id", d.ID), logx.Err(err))
		}
	}
	return nil
}
