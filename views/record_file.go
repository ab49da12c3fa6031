package views

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// RecordFile appends text records to a file. Complete records are never
// truncated or rewritten. The file is opened for each record and closed again, so a
// target that disappears and comes back is picked up on the next append.
type RecordFile struct {
	mu     sync.Mutex
	path   string
	rows   uint64
	closed bool
}

// NewRecordFile prepares path for appending, creating parent directories.
// An existing file is kept as is.
func NewRecordFile(path string) (*RecordFile, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create record dir %s: %w", dir, err)
		}
	}
	return &RecordFile{path: path}, nil
}

// AppendRecord writes rec in a single append. On a failed or short write
// the partial record is cut off, but only while the file still ends with
// exactly the bytes this call wrote; otherwise the file is left alone.
func (w *RecordFile) AppendRecord(ctx context.Context, rec []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrStoreClosed
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", w.path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", w.path, err)
	}

	n, err := f.Write(rec)
	if err == nil && n < len(rec) {
		err = io.ErrShortWrite
	}
	if err != nil {
		rollbackPartial(f, st.Size(), n)
		return fmt.Errorf("write %s: %w", w.path, err)
	}

	w.rows++
	return nil
}

type statTruncater interface {
	Stat() (os.FileInfo, error)
	Truncate(size int64) error
}

// rollbackPartial removes the n bytes a failed append left after prev.
// It reports whether the file was truncated.
func rollbackPartial(f statTruncater, prev int64, n int) bool {
	if n <= 0 {
		return false
	}
	st, err := f.Stat()
	if err != nil || st.Size() != prev+int64(n) {
		return false
	}
	return f.Truncate(prev) == nil
}

// Path returns the target file path.
func (w *RecordFile) Path() string {
	return w.path
}

// Rows returns the number of records appended through this writer.
func (w *RecordFile) Rows() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// Close stops further appends. The file itself is closed after every write.
func (w *RecordFile) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}
