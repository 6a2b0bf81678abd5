// Package ingest scans external message sources for appointments and
// files them into the calendar via the LLM.
package ingest

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	markerPrefix = "LAST_READ_TIME:"
	// Millisecond precision, space-separated.
	markerLayout = "2006-01-02 15:04:05.000"
)

// Marker persists the last-read watermark between ingestion passes.
type Marker struct {
	path string
}

func NewMarker(path string) *Marker {
	return &Marker{path: path}
}

// Read returns the stored watermark. A missing or empty file yields
// ok=false so the caller can fall back to its lookback default.
func (m *Marker) Read() (time.Time, bool, error) {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, errors.Wrapf(err, "failed to read marker file %s", m.path)
	}

	line := strings.TrimSpace(strings.SplitN(string(raw), "\n", 2)[0])
	if line == "" {
		return time.Time{}, false, nil
	}
	value, found := strings.CutPrefix(line, markerPrefix)
	if !found {
		return time.Time{}, false, errors.Errorf("malformed marker line %q", line)
	}
	ts, err := time.ParseInLocation(markerLayout, value, time.Local)
	if err != nil {
		return time.Time{}, false, errors.Wrapf(err, "malformed marker timestamp %q", value)
	}
	return ts, true, nil
}

// Write overwrites the watermark. Called at the start of every pass so
// the next pass picks up where this one began.
func (m *Marker) Write(ts time.Time) error {
	line := markerPrefix + ts.Format(markerLayout)
	if err := os.WriteFile(m.path, []byte(line), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write marker file %s", m.path)
	}
	return nil
}
