// internal/export/csv.go
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
)

var csvHeader = []string{"timestamp", "device", "ref", "value"}

// CSVSink appends rows to a file, writing the header when the file is new.
// The file is opened per write so external rotation is tolerated.
type CSVSink struct {
	path string
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) Write(_ context.Context, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}

	newFile := false
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		newFile = true
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("export csv: open %s: %w", s.path, err)
	}

	w := csv.NewWriter(f)
	if newFile {
		_ = w.Write(csvHeader)
	}
	for _, smp := range samples {
		_ = w.Write([]string{
			smp.Timestamp.UTC().Format(time.RFC3339Nano),
			smp.Device,
			smp.Ref,
			formatValue(smp.Value),
		})
	}
	w.Flush()

	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("export csv: write %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export csv: close %s: %w", s.path, err)
	}
	return nil
}

func (s *CSVSink) Close() error { return nil }

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
