package docstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"schedstore/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Store is the revisioned document store. Safe for concurrent use; the
// underlying pool is capped at one connection because SQLite serializes
// writers anyway.
type Store struct {
	db  *sql.DB
	log logx.Logger
}

func Open(cfg Config, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("docstore path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	s := &Store{db: db, log: log}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// newRev builds the next revision token: a generation counter plus random
// suffix, so tokens are unique across deletes and re-creates of an id.
func newRev(prev string) string {
	gen := 1
	if i := strings.IndexByte(prev, '-'); i > 0 {
		if n, err := strconv.Atoi(prev[:i]); err == nil {
			gen = n + 1
		}
	}
	u := uuid.New()
	return strconv.Itoa(gen) + "-" + hex.EncodeToString(u[:6])
}

// Insert stores a new document and returns its first revision.
// Fails with ErrExists when the id is already taken.
func (s *Store) Insert(ctx context.Context, d Doc) (string, error) {
	rev := newRev("")
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents(id, doc_type, rev, body) VALUES(?,?,?,?)`,
		d.ID, d.Type, rev, string(d.Body),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrExists
		}
		return "", err
	}
	return rev, nil
}

// Update replaces the body of an existing document. d.Rev must be the
// current revision; a stale one fails with ErrConflict, a missing id with
// ErrNotFound.
func (s *Store) Update(ctx context.Context, d Doc) (string, error) {
	rev := newRev(d.Rev)
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET body = ?, rev = ? WHERE id = ? AND rev = ?`,
		string(d.Body), rev, d.ID, d.Rev,
	)
	if err != nil {
		return "", err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if n == 0 {
		if _, err := s.Get(ctx, d.ID); errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		return "", ErrConflict
	}
	return rev, nil
}

// Delete removes a document. rev must be current; same failure modes as
// Update.
func (s *Store) Delete(ctx context.Context, id, rev string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ? AND rev = ?`, id, rev,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

// Get fetches a document by id.
func (s *Store) Get(ctx context.Context, id string) (Doc, error) {
	var d Doc
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, doc_type, rev, body FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.Type, &d.Rev, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return Doc{}, ErrNotFound
	}
	if err != nil {
		return Doc{}, err
	}
	d.Body = []byte(body)
	return d, nil
}

// Query returns documents of the given type matching an optional WHERE
// fragment over json_extract expressions, e.g.
//
//	Query(ctx, TypeTrigger, "json_extract(body,'$.state') = ?", "WAITING")
//
// An empty clause returns every document of the type. orderBy, when
// non-empty, is appended verbatim.
func (s *Store) Query(ctx context.Context, docType, clause, orderBy string, args ...any) ([]Doc, error) {
	q := `SELECT id, doc_type, rev, body FROM documents WHERE doc_type = ?`
	qargs := append([]any{docType}, args...)
	if clause != "" {
		q += " AND (" + clause + ")"
	}
	if orderBy != "" {
		q += " ORDER BY " + orderBy
	}
	rows, err := s.db.QueryContext(ctx, q, qargs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Doc
	for rows.Next() {
		var d Doc
		var body string
		if err := rows.Scan(&d.ID, &d.Type, &d.Rev, &body); err != nil {
			return nil, err
		}
		d.Body = []byte(body)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Count returns the number of documents of a type matching an optional
// clause.
func (s *Store) Count(ctx context.Context, docType, clause string, args ...any) (int, error) {
	q := `SELECT COUNT(*) FROM documents WHERE doc_type = ?`
	qargs := append([]any{docType}, args...)
	if clause != "" {
		q += " AND (" + clause + ")"
	}
	var n int
	if err := s.db.QueryRowContext(ctx, q, qargs...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Groups returns the distinct group values of a document type.
func (s *Store) Groups(ctx context.Context, docType string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT json_extract(body, '$.group') FROM documents WHERE doc_type = ? ORDER BY 1`,
		docType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// UpdateBatch applies revision-checked updates in one transaction. Any
// stale revision rolls the whole batch back with ErrConflict.
func (s *Store) UpdateBatch(ctx context.Context, docs []Doc) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	revs := make([]string, len(docs))
	for i, d := range docs {
		rev := newRev(d.Rev)
		res, err := tx.ExecContext(ctx,
			`UPDATE documents SET body = ?, rev = ? WHERE id = ? AND rev = ?`,
			string(d.Body), rev, d.ID, d.Rev,
		)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: %s", ErrConflict, d.ID)
		}
		revs[i] = rev
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return revs, nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite surfaces constraint failures in the message;
	// matching on it avoids importing driver internals.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
