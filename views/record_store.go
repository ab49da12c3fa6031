package views

import (
	"context"
	"errors"
	"fmt"

	"telemetry-logger/utils"
)

// ErrStoreClosed is returned by AppendRecord after Close.
var ErrStoreClosed = errors.New("record store closed")

// RecordStore is the append-only persistence target for log records.
// AppendRecord either stores the whole record or nothing.
type RecordStore interface {
	AppendRecord(ctx context.Context, rec []byte) error
	Close() error
}

// OpenRecordStore builds the backend selected by storage.backend.
func OpenRecordStore(cfg utils.StorageConfig, runID string) (RecordStore, error) {
	switch cfg.Backend {
	case "", "file":
		return NewRecordFile(cfg.Path)
	case "sqlite":
		return OpenSQLiteRecordStore(cfg.Path, runID)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
