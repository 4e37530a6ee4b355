package docstore

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"schedstore/pkg/logx"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "store.db"),
		BusyTimeout: time.Second,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertGetUpdateDelete(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	rev1, err := s.Insert(ctx, Doc{ID: "job:DEFAULT-a", Type: TypeJob, Body: []byte(`{"name":"a"}`)})
	if err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if rev1 == "" {
		t.Fatal("Insert returned empty revision")
	}

	got, err := s.Get(ctx, "job:DEFAULT-a")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Rev != rev1 || got.Type != TypeJob {
		t.Fatalf("Get = %+v, want rev %s type %s", got, rev1, TypeJob)
	}

	rev2, err := s.Update(ctx, Doc{ID: "job:DEFAULT-a", Type: TypeJob, Rev: rev1, Body: []byte(`{"name":"a","v":2}`)})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if rev2 == rev1 {
		t.Fatal("Update did not advance the revision")
	}

	if err := s.Delete(ctx, "job:DEFAULT-a", rev2); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := s.Get(ctx, "job:DEFAULT-a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestInsertDuplicate(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, Doc{ID: "x", Type: TypeJob, Body: []byte(`{}`)}); err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if _, err := s.Insert(ctx, Doc{ID: "x", Type: TypeJob, Body: []byte(`{}`)}); !errors.Is(err, ErrExists) {
		t.Fatalf("second Insert = %v, want ErrExists", err)
	}
}

func TestStaleRevisionConflicts(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	rev1, err := s.Insert(ctx, Doc{ID: "x", Type: TypeJob, Body: []byte(`{}`)})
	if err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if _, err := s.Update(ctx, Doc{ID: "x", Type: TypeJob, Rev: rev1, Body: []byte(`{"v":2}`)}); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	// The first revision is now stale.
	if _, err := s.Update(ctx, Doc{ID: "x", Type: TypeJob, Rev: rev1, Body: []byte(`{"v":3}`)}); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale Update = %v, want ErrConflict", err)
	}
	if err := s.Delete(ctx, "x", rev1); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale Delete = %v, want ErrConflict", err)
	}

	if _, err := s.Update(ctx, Doc{ID: "missing", Type: TypeJob, Rev: rev1, Body: []byte(`{}`)}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update of missing doc = %v, want ErrNotFound", err)
	}
}

func TestQueryByExtractedField(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	seed := []struct {
		id    string
		state string
		fire  int64
	}{
		{"trigger:g-c", "WAITING", 300},
		{"trigger:g-a", "WAITING", 100},
		{"trigger:g-b", "ACQUIRED", 200},
	}
	for _, d := range seed {
		body := []byte(`{"state":"` + d.state + `","next_fire_time":` + strconv.FormatInt(d.fire, 10) + `}`)
		if _, err := s.Insert(ctx, Doc{ID: d.id, Type: TypeTrigger, Body: body}); err != nil {
			t.Fatalf("Insert %s error: %v", d.id, err)
		}
	}

	docs, err := s.Query(ctx, TypeTrigger,
		"json_extract(body,'$.state') = ?",
		"json_extract(body,'$.next_fire_time') ASC", "WAITING")
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "trigger:g-a" || docs[1].ID != "trigger:g-c" {
		t.Fatalf("Query result = %+v, want [trigger:g-a trigger:g-c]", docs)
	}

	n, err := s.Count(ctx, TypeTrigger, "json_extract(body,'$.state') = ?", "ACQUIRED")
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if n != 1 {
		t.Fatalf("Count = %d, want 1", n)
	}
}

func TestUpdateBatchRollsBackOnConflict(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	rev1, err := s.Insert(ctx, Doc{ID: "a", Type: TypeTrigger, Body: []byte(`{"v":1}`)})
	if err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	rev2, err := s.Insert(ctx, Doc{ID: "b", Type: TypeTrigger, Body: []byte(`{"v":1}`)})
	if err != nil {
		t.Fatalf("Insert error: %v", err)
	}

	_, err = s.UpdateBatch(ctx, []Doc{
		{ID: "a", Type: TypeTrigger, Rev: rev1, Body: []byte(`{"v":2}`)},
		{ID: "b", Type: TypeTrigger, Rev: "9-stale", Body: []byte(`{"v":2}`)},
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("UpdateBatch = %v, want ErrConflict", err)
	}

	// The whole batch rolled back, including the valid first update.
	got, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Rev != rev1 {
		t.Fatalf("doc a rev = %s, want unchanged %s", got.Rev, rev1)
	}

	revs, err := s.UpdateBatch(ctx, []Doc{
		{ID: "a", Type: TypeTrigger, Rev: rev1, Body: []byte(`{"v":2}`)},
		{ID: "b", Type: TypeTrigger, Rev: rev2, Body: []byte(`{"v":2}`)},
	})
	if err != nil {
		t.Fatalf("UpdateBatch error: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("UpdateBatch returned %d revs, want 2", len(revs))
	}
}

func TestGroups(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for _, d := range []struct{ id, group string }{
		{"job:b-x", "beta"},
		{"job:a-x", "alpha"},
		{"job:a-y", "alpha"},
	} {
		if _, err := s.Insert(ctx, Doc{ID: d.id, Type: TypeJob, Body: []byte(`{"group":"` + d.group + `"}`)}); err != nil {
			t.Fatalf("Insert error: %v", err)
		}
	}
	groups, err := s.Groups(ctx, TypeJob)
	if err != nil {
		t.Fatalf("Groups error: %v", err)
	}
	if len(groups) != 2 || groups[0] != "alpha" || groups[1] != "beta" {
		t.Fatalf("Groups = %v, want [alpha beta]", groups)
	}
}
