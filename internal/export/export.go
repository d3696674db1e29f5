// internal/export/export.go
package export

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// Sample is one exported reference value.
type Sample struct {
	Timestamp time.Time
	Device    string
	Ref       string
	Value     any
}

// Sink persists samples. Implementations are not shared across goroutines.
type Sink interface {
	Write(ctx context.Context, samples []Sample) error
	Close() error
}

// Open picks a sink by file extension: .db/.sqlite/.sqlite3 open SQLite,
// anything else is CSV.
func Open(path string) (Sink, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteSink(path)
	default:
		return NewCSVSink(path), nil
	}
}
