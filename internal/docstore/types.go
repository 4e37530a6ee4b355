package docstore

import (
	"errors"
	"time"
)

// Document types known to the store.
const (
	TypeJob      = "job"
	TypeTrigger  = "trigger"
	TypeCalendar = "calendar"
)

var (
	// ErrNotFound means no document exists under the id.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrExists means an insert hit an id that is already taken.
	ErrExists = errors.New("docstore: document already exists")

	// ErrConflict means the presented revision is stale.
	ErrConflict = errors.New("docstore: revision conflict")
)

// Config controls how the backing database is opened.
type Config struct {
	// Path is the SQLite database file. Parent directories are created.
	Path string `yaml:"path"`

	// BusyTimeout bounds how long a write waits on a locked database.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// Doc is one stored document. Body is the JSON payload; Rev is opaque to
// callers and must be echoed back on update and delete.
type Doc struct {
	ID   string
	Type string
	Rev  string
	Body []byte
}
