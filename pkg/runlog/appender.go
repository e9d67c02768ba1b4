package runlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// WriteError wraps errors that occur while appending a record.
type WriteError struct {
	Op   string // Operation that failed (e.g., "open", "write")
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("runlog: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Appender appends records to log files under a directory.
//
// Appender is safe for concurrent use. Appends to the same file name are
// serialized by a per-file mutex held for the whole open/write/close, so two
// workers targeting one file never interleave records. Appends to different
// files proceed in parallel. Files are never truncated.
type Appender struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAppender creates an appender writing under dir. An empty dir means the
// current working directory.
func NewAppender(dir string) *Appender {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	return &Appender{dir: dir, locks: make(map[string]*sync.Mutex)}
}

// Dir returns the log directory.
func (a *Appender) Dir() string {
	return a.dir
}

// Path returns the full path for a log file name.
func (a *Appender) Path(name string) string {
	return filepath.Join(a.dir, name)
}

// Files returns the log file names appended to so far, sorted.
func (a *Appender) Files() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]string, 0, len(a.locks))
	for name := range a.locks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (a *Appender) lockFor(name string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.locks[name]
	if !ok {
		l = &sync.Mutex{}
		a.locks[name] = l
	}
	return l
}

// Append writes rec to the named log file as one write.
//
// name must be a plain file name; it is joined to the appender directory.
func (a *Appender) Append(ctx context.Context, name string, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" || name != filepath.Base(name) {
		return &WriteError{Op: "validate", Path: name, Err: fmt.Errorf("log file name must be a plain file name")}
	}

	// Render outside the lock.
	data := rec.Format()
	path := a.Path(name)

	l := a.lockFor(name)
	l.Lock()
	defer l.Unlock()

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return &WriteError{Op: "mkdir", Path: a.dir, Err: err}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &WriteError{Op: "open", Path: path, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return &WriteError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &WriteError{Op: "close", Path: path, Err: err}
	}
	return nil
}
