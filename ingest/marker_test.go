package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerRoundTrip(t *testing.T) {
	marker := NewMarker(filepath.Join(t.TempDir(), "last_read.ts"))

	ts := time.Date(2025, 6, 1, 12, 30, 45, 123_000_000, time.Local)
	require.NoError(t, marker.Write(ts))

	got, ok, err := marker.Read()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(ts), "got %v want %v", got, ts)

	raw, err := os.ReadFile(marker.path)
	require.NoError(t, err)
	assert.Equal(t, "LAST_READ_TIME:2025-06-01 12:30:45.123", string(raw))
}

func TestMarkerMissingFile(t *testing.T) {
	marker := NewMarker(filepath.Join(t.TempDir(), "last_read.ts"))

	_, ok, err := marker.Read()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkerEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_read.ts")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	_, ok, err := NewMarker(path).Read()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkerMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_read.ts")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	_, _, err := NewMarker(path).Read()
	require.Error(t, err)
}

func TestMarkerOverwrites(t *testing.T) {
	marker := NewMarker(filepath.Join(t.TempDir(), "last_read.ts"))

	require.NoError(t, marker.Write(time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)))
	second := time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local)
	require.NoError(t, marker.Write(second))

	got, ok, err := marker.Read()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(second))
}
