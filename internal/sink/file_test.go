package sink

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radar.jpg")
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0}

	n, err := WriteFile(context.Background(), path, bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestWriteFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radar.jpg")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	_, err := WriteFile(context.Background(), path, bytes.NewReader([]byte("new")))
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestWriteFile_FailureKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "radar.jpg")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	_, err := WriteFile(context.Background(), path, failingReader{})
	require.Error(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be cleaned up")
}

func TestWriteFile_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radar.jpg")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WriteFile(ctx, path, bytes.NewReader([]byte("data")))
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
